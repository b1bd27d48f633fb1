package treecalc_test

import (
	"math"
	"strconv"

	"github.com/zephyrtronium/treecalc"
	"github.com/zephyrtronium/treecalc/symtab"
)

// floats is a float64 type manager for tests.
type floats struct{}

func f64(a treecalc.Value) float64 { return a.(float64) }

func (floats) Zero() treecalc.Value { return 0.0 }
func (floats) One() treecalc.Value { return 1.0 }
func (floats) FromInt(i int64) treecalc.Value { return float64(i) }
func (floats) Parse(text string) (treecalc.Value, error) {
	if text == "∞" {
		return math.Inf(1), nil
	}
	return strconv.ParseFloat(text, 64)
}
func (floats) Add(a, b treecalc.Value) (treecalc.Value, error) { return f64(a) + f64(b), nil }
func (floats) Multiply(a, b treecalc.Value) (treecalc.Value, error) { return f64(a) * f64(b), nil }
func (floats) Negate(a treecalc.Value) (treecalc.Value, error) { return -f64(a), nil }
func (floats) Invert(a treecalc.Value) (treecalc.Value, error) {
	if f64(a) == 0 {
		return nil, &treecalc.DomainError{X: "0", Arg: 1, Func: "/"}
	}
	return 1 / f64(a), nil
}
func (floats) IsZero(a treecalc.Value) bool { return f64(a) == 0 }
func (floats) IsNegative(a treecalc.Value) bool { return f64(a) < 0 }
func (floats) LessThan(a, b treecalc.Value) bool { return f64(a) < f64(b) }
func (floats) String(a treecalc.Value) string { return strconv.FormatFloat(f64(a), 'g', -1, 64) }
func (floats) Float64(a treecalc.Value) (float64, error) { return f64(a), nil }
func (floats) FromFloat64(f float64) treecalc.Value { return f }

// counter is a pure function that counts its calls and returns its argument.
type counter struct {
	calls int
}

func (c *counter) fn() *treecalc.Function {
	return &treecalc.Function{
		Name: "tally",
		Apply: func(x treecalc.Value) (treecalc.Value, error) {
			c.calls++
			return x, nil
		},
		Pure: true,
	}
}

// table creates a standard table with x = 2, y = 3, and a tally function.
func table() (*symtab.Table, *counter) {
	tab := symtab.Standard(floats{})
	tab.SetVar("x", 2.0)
	tab.SetVar("y", 3.0)
	c := new(counter)
	tab.Define(c.fn())
	return tab, c
}
