package decnum_test

import (
	"errors"
	"math"
	"testing"

	"github.com/zephyrtronium/treecalc"
	"github.com/zephyrtronium/treecalc/decnum"
	"github.com/zephyrtronium/treecalc/symtab"
)

func TestArithmetic(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{"tenths", "0.1 + 0.2", "0.3"},
		{"sub", "2 - 3 - 4", "-5"},
		{"mul", "1.5 * 4", "6"},
		{"div", "1 / 8", "0.125"},
		{"pct", "50 %", "0.5"},
		{"fact", "6 !", "720"},
		{"sqrt", "sqrt 2.25", "1.5"},
		{"sum", "sum [0 <= i <= 1 <> 0.1] (i)", "5.5"},
		{"count", "count [0 <= i <= 1 <> 0.1] (i)", "11"},
		{"eq", "0.1 * 3 == 0.3", "1"},
	}
	tm := decnum.New(34)
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

func TestTranscendental(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want float64
	}{
		{"exp", "exp 1", math.E},
		{"ln", "ln 10", math.Ln10},
		{"pow", "2 ^ 0.5", math.Sqrt2},
		{"pi", "pi", math.Pi},
	}
	tm := decnum.New(20)
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
			if math.Abs(got-c.want) > 1e-14 {
				t.Errorf("wrong result: want %g, got %g", c.want, got)
			}
		})
	}
}

func TestDomain(t *testing.T) {
	tm := decnum.New(0)
	tab := symtab.Standard(tm)
	for _, src := range []string{"1 / 0", "ln 0", "sqrt (- 1)"} {
		_, err := treecalc.EvalString(src, tab, tm)
		var d *treecalc.DomainError
		if !errors.As(err, &d) {
			t.Errorf("%q: expected domain error, got %v", src, err)
		}
	}
}

func TestDigits(t *testing.T) {
	if got := decnum.New(0).Digits(); got != 34 {
		t.Errorf("default digits: want 34, got %d", got)
	}
	if got := decnum.DigitsForBits(64); got != 20 {
		t.Errorf("digits for 64 bits: want 20, got %d", got)
	}
	if got := decnum.DigitsForBits(53); got != 16 {
		t.Errorf("digits for 53 bits: want 16, got %d", got)
	}
}
