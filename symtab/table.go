// Package symtab provides a scoped symbol table and the standard library of
// operators, functions, and consumers for treecalc expressions.
package symtab

import (
	"slices"

	"github.com/zephyrtronium/treecalc"
)

// Table is a symbol table in which bindings shadow earlier ones until they
// are restored. It is not safe for concurrent use; use Clone to give each
// goroutine its own.
type Table struct {
	syms map[string][]*entry
}

// entry is one binding. Restoring compares entries by identity so that
// restores out of order remove the right binding.
type entry struct {
	sym treecalc.Symbol
}

var _ treecalc.SymbolTable = (*Table)(nil)

// New creates an empty table.
func New() *Table {
	return &Table{syms: make(map[string][]*entry)}
}

// Lookup returns the innermost binding of name.
func (t *Table) Lookup(name string) (treecalc.Symbol, bool) {
	s := t.syms[name]
	if len(s) == 0 {
		return nil, false
	}
	return s[len(s)-1].sym, true
}

// Bind shadows name with sym until the returned function is called. Calling
// the function more than once has no further effect.
func (t *Table) Bind(name string, sym treecalc.Symbol) (restore func()) {
	e := &entry{sym: sym}
	t.syms[name] = append(t.syms[name], e)
	return func() {
		s := t.syms[name]
		for i := len(s) - 1; i >= 0; i-- {
			if s[i] == e {
				s = append(s[:i:i], s[i+1:]...)
				break
			}
		}
		if len(s) == 0 {
			delete(t.syms, name)
			return
		}
		t.syms[name] = s
	}
}

// Set defines name as sym, replacing its outermost binding.
func (t *Table) Set(name string, sym treecalc.Symbol) {
	s := t.syms[name]
	if len(s) == 0 {
		t.syms[name] = []*entry{{sym: sym}}
		return
	}
	s[0] = &entry{sym: sym}
}

// SetVar defines a variable.
func (t *Table) SetVar(name string, v treecalc.Value) {
	t.Set(name, &treecalc.Variable{Name: name, Value: v})
}

// Define adds symbols under their own names.
func (t *Table) Define(syms ...treecalc.Symbol) {
	for _, sym := range syms {
		t.Set(sym.SymbolName(), sym)
	}
}

// Delete removes every binding of name.
func (t *Table) Delete(name string) {
	delete(t.syms, name)
}

// Names returns the names with bindings, sorted.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.syms))
	for name := range t.syms {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Clone returns a table with the innermost binding of every name. Variables
// are copied so that setting a value in one table does not affect the other.
func (t *Table) Clone() *Table {
	n := New()
	for name, s := range t.syms {
		sym := s[len(s)-1].sym
		if v, ok := sym.(*treecalc.Variable); ok {
			c := *v
			sym = &c
		}
		n.syms[name] = []*entry{{sym: sym}}
	}
	return n
}
