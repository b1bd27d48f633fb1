package bignum_test

import (
	"errors"
	"math"
	"math/big"
	"testing"

	"github.com/zephyrtronium/treecalc"
	"github.com/zephyrtronium/treecalc/bignum"
	"github.com/zephyrtronium/treecalc/symtab"
)

func TestArithmetic(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{"add", "1 + 2", "3"},
		{"sub", "2 - 3 - 4", "-5"},
		{"mul", "6 * 7", "42"},
		{"div", "1 / 4", "0.25"},
		{"neg", "- 5", "-5"},
		{"prec", "1 + 2 * 3", "7"},
		{"sqrt", "√ 16", "4"},
		{"fact", "5 !", "120"},
		{"cmp", "2 < 3", "1"},
		{"inf", "inf + 1", "+Inf"},
		{"vec", "(1, 2) + 1", "(2, 3)"},
	}
	tm := bignum.New(64)
	tab := symtab.Standard(tm)
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			r, err := treecalc.EvalString(c.src, tab, tm)
			if err != nil {
				t.Fatal(err)
			}
			if got := treecalc.FormatValue(tm, r); got != c.want {
				t.Errorf("wrong result: want %s, got %s", c.want, got)
			}
		})
	}
}

func TestApprox(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want float64
	}{
		{"pow", "2 ^ 10", 1024},
		{"root", "2 ^ 0.5", math.Sqrt2},
		{"pct", "50 %", 0.5},
		{"exp", "exp 1", math.E},
		{"ln", "ln e", 1},
		{"log", "log 1000", 3},
		{"pi", "pi", math.Pi},
		{"third", "1 / 3", 1.0 / 3},
	}
	tm := bignum.New(64)
	tab := symtab.Standard(tm)
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			r, err := treecalc.EvalString(c.src, tab, tm)
			if err != nil {
				t.Fatal(err)
			}
			got, err := tm.Float64(r)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(got-c.want) > 1e-14*math.Max(1, math.Abs(c.want)) {
				t.Errorf("wrong result: want %g, got %g", c.want, got)
			}
		})
	}
}

func TestDomain(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"div0", "1 / 0"},
		{"ln", "ln (- 1)"},
		{"sqrt", "sqrt (- 4)"},
		{"pow", "(- 2) ^ 0.5"},
		{"nan", "inf - inf"},
	}
	tm := bignum.New(64)
	tab := symtab.Standard(tm)
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			_, err := treecalc.EvalString(c.src, tab, tm)
			var d *treecalc.DomainError
			if !errors.As(err, &d) {
				t.Errorf("expected domain error, got %v", err)
			}
		})
	}
}

func TestPrecision(t *testing.T) {
	tm := bignum.New(200)
	if tm.Prec() != 200 {
		t.Errorf("wrong precision: want 200, got %d", tm.Prec())
	}
	pi := tm.Pi().(*big.Float)
	if pi.Prec() != 200 {
		t.Errorf("pi has wrong precision: want 200, got %d", pi.Prec())
	}
	want, _ := new(big.Float).SetPrec(200).SetString("3.14159265358979323846264338327950288419716939937510582097494")
	diff := new(big.Float).Sub(pi, want)
	if diff.Abs(diff).Cmp(big.NewFloat(1e-55)) > 0 {
		t.Errorf("pi inaccurate: got %s", pi.Text('g', 60))
	}
	if bignum.New(0).Prec() != 64 {
		t.Error("zero precision should default to 64")
	}
}

func TestForeignValue(t *testing.T) {
	tm := bignum.New(64)
	_, err := tm.Add(1.5, tm.One())
	var te *treecalc.TypeError
	if !errors.As(err, &te) {
		t.Errorf("expected type error, got %v", err)
	}
}
