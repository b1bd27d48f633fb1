package symtab_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/zephyrtronium/treecalc"
	"github.com/zephyrtronium/treecalc/symtab"
)

func value(t *testing.T, tab *symtab.Table, name string) treecalc.Value {
	t.Helper()
	sym, ok := tab.Lookup(name)
	if !ok {
		t.Fatalf("%s not bound", name)
	}
	v, ok := sym.(*treecalc.Variable)
	if !ok {
		t.Fatalf("%s bound to %T", name, sym)
	}
	return v.Value
}

func TestBind(t *testing.T) {
	tab := symtab.New()
	tab.SetVar("x", 1)
	r1 := tab.Bind("x", &treecalc.Variable{Name: "x", Value: 2})
	r2 := tab.Bind("x", &treecalc.Variable{Name: "x", Value: 3})
	if got := value(t, tab, "x"); got != 3 {
		t.Errorf("innermost binding: want 3, got %v", got)
	}
	// Out of order restore removes the outer shadow only.
	r1()
	if got := value(t, tab, "x"); got != 3 {
		t.Errorf("after restoring first shadow: want 3, got %v", got)
	}
	r2()
	if got := value(t, tab, "x"); got != 1 {
		t.Errorf("after restoring both: want 1, got %v", got)
	}
	r2()
	if got := value(t, tab, "x"); got != 1 {
		t.Errorf("repeated restore changed binding: got %v", got)
	}
}

func TestBindNew(t *testing.T) {
	tab := symtab.New()
	restore := tab.Bind("y", &treecalc.Variable{Name: "y", Value: 1})
	if _, ok := tab.Lookup("y"); !ok {
		t.Fatal("y not bound")
	}
	restore()
	if _, ok := tab.Lookup("y"); ok {
		t.Error("y still bound after restore")
	}
	if diff := cmp.Diff([]string{}, tab.Names()); diff != "" {
		t.Errorf("names after restore (-want +got):\n%s", diff)
	}
}

func TestSet(t *testing.T) {
	tab := symtab.New()
	tab.SetVar("x", 1)
	restore := tab.Bind("x", &treecalc.Variable{Name: "x", Value: 2})
	tab.SetVar("x", 5)
	if got := value(t, tab, "x"); got != 2 {
		t.Errorf("Set replaced shadow: got %v", got)
	}
	restore()
	if got := value(t, tab, "x"); got != 5 {
		t.Errorf("Set did not replace outer binding: want 5, got %v", got)
	}
	tab.Delete("x")
	if _, ok := tab.Lookup("x"); ok {
		t.Error("x bound after Delete")
	}
}

func TestNames(t *testing.T) {
	tab := symtab.New()
	tab.Define(
		&treecalc.Variable{Name: "b"},
		&treecalc.Function{Name: "c"},
		&treecalc.Consumer{Name: "a"},
	)
	if diff := cmp.Diff([]string{"a", "b", "c"}, tab.Names()); diff != "" {
		t.Errorf("wrong names (-want +got):\n%s", diff)
	}
}

func TestClone(t *testing.T) {
	tab := symtab.New()
	tab.SetVar("x", 1)
	f := &treecalc.Function{Name: "f"}
	tab.Define(f)
	c := tab.Clone()
	sym, _ := c.Lookup("x")
	sym.(*treecalc.Variable).Value = 3
	if got := value(t, tab, "x"); got != 1 {
		t.Errorf("clone shares variable values: got %v", got)
	}
	c.SetVar("x", 2)
	if got := value(t, tab, "x"); got != 1 {
		t.Errorf("clone shares variables: got %v", got)
	}
	if sym, _ := c.Lookup("f"); sym != f {
		t.Errorf("clone should share function: got %v", sym)
	}
}
