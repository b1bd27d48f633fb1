package symtab

import (
	"math"
	"strconv"

	"github.com/zephyrtronium/treecalc"
	"github.com/zephyrtronium/treecalc/quad"
)

// fold accumulates step results with a binary function.
type fold struct {
	tm   treecalc.TypeManager
	f    func(a, b treecalc.Value) (treecalc.Value, error)
	zero func() treecalc.Value
	r    treecalc.Value
}

func (c *fold) Init() error {
	c.r = c.zero()
	return nil
}

func (c *fold) SetIterationValue(treecalc.Value) {}

func (c *fold) Accept(v treecalc.Value) error {
	r, err := c.f(c.r, v)
	if err != nil {
		return err
	}
	c.r = r
	return nil
}

func (c *fold) Result() (treecalc.Value, error) {
	return c.r, nil
}

// counter counts steps.
type counter struct {
	tm treecalc.TypeManager
	n  int64
}

func (c *counter) Init() error {
	c.n = 0
	return nil
}

func (c *counter) SetIterationValue(treecalc.Value) {}

func (c *counter) Accept(treecalc.Value) error {
	c.n++
	return nil
}

func (c *counter) Result() (treecalc.Value, error) {
	return c.tm.FromInt(c.n), nil
}

// extreme finds the least or greatest scalar step result.
type extreme struct {
	tm   treecalc.TypeManager
	name string
	max  bool
	r    treecalc.Value
}

func (c *extreme) Init() error {
	c.r = nil
	return nil
}

func (c *extreme) SetIterationValue(treecalc.Value) {}

func (c *extreme) Accept(v treecalc.Value) error {
	switch v.(type) {
	case treecalc.Vector, string:
		return &treecalc.TypeError{Want: "scalar for " + c.name, Got: v}
	}
	if c.r == nil || c.max && c.tm.LessThan(c.r, v) || !c.max && c.tm.LessThan(v, c.r) {
		c.r = v
	}
	return nil
}

func (c *extreme) Result() (treecalc.Value, error) {
	if c.r == nil {
		return nil, &treecalc.EvalError{Name: c.name, Msg: "no values"}
	}
	return c.r, nil
}

// list collects step results into a Vector.
type list struct {
	vals treecalc.Vector
}

func (c *list) Init() error {
	c.vals = treecalc.Vector{}
	return nil
}

func (c *list) SetIterationValue(treecalc.Value) {}

func (c *list) Accept(v treecalc.Value) error {
	c.vals = append(c.vals, v)
	return nil
}

func (c *list) Result() (treecalc.Value, error) {
	return c.vals, nil
}

// mean computes the arithmetic mean of step results.
type mean struct {
	tm  treecalc.TypeManager
	sum fold
	n   int64
}

func (c *mean) Init() error {
	c.sum = fold{tm: c.tm, f: Elementwise("mean", c.tm.Add), zero: c.tm.Zero}
	c.n = 0
	return c.sum.Init()
}

func (c *mean) SetIterationValue(treecalc.Value) {}

func (c *mean) Accept(v treecalc.Value) error {
	c.n++
	return c.sum.Accept(v)
}

func (c *mean) Result() (treecalc.Value, error) {
	if c.n == 0 {
		return nil, &treecalc.EvalError{Name: "mean", Msg: "no values"}
	}
	return div(c.tm)(c.sum.r, c.tm.FromInt(c.n))
}

// trapezoid integrates the target over a range span with the trapezoid rule,
// sampling at each step and at the upper bound.
type trapezoid struct{}

func (trapezoid) Evaluate(d *treecalc.RangeDigest) (treecalc.Value, error) {
	tm := d.Types
	if !tm.LessThan(tm.Zero(), d.Delta) {
		return nil, &treecalc.DomainError{X: tm.String(d.Delta), Arg: 1, Func: "integral step"}
	}
	if !tm.LessThan(d.Lo, d.Hi) {
		return tm.Zero(), nil
	}
	sub := sub(tm)
	half, err := tm.Invert(tm.FromInt(2))
	if err != nil {
		return nil, err
	}
	x := d.Lo
	fx, err := d.F(x)
	if err != nil {
		return nil, err
	}
	r := tm.Zero()
	for tm.LessThan(x, d.Hi) {
		y, err := tm.Add(x, d.Delta)
		if err != nil {
			return nil, err
		}
		if tm.LessThan(d.Hi, y) {
			y = d.Hi
		}
		fy, err := d.F(y)
		if err != nil {
			return nil, err
		}
		h, err := sub(y, x)
		if err != nil {
			return nil, err
		}
		s, err := Elementwise("integral", tm.Add)(fx, fy)
		if err != nil {
			return nil, err
		}
		s, err = Elementwise("integral", tm.Multiply)(s, h)
		if err != nil {
			return nil, err
		}
		s, err = Elementwise("integral", tm.Multiply)(s, half)
		if err != nil {
			return nil, err
		}
		if r, err = Elementwise("integral", tm.Add)(r, s); err != nil {
			return nil, err
		}
		x, fx = y, fy
	}
	return r, nil
}

// tanhSinh integrates the target over a range span by double exponential
// quadrature. The step is unused.
type tanhSinh struct{}

func (tanhSinh) Evaluate(d *treecalc.RangeDigest) (treecalc.Value, error) {
	fl, ok := d.Types.(treecalc.Floater)
	if !ok {
		return nil, &treecalc.EvalError{Name: "tanhsinh", Msg: "type does not convert to float64"}
	}
	a, err := fl.Float64(d.Lo)
	if err != nil {
		return nil, err
	}
	b, err := fl.Float64(d.Hi)
	if err != nil {
		return nil, err
	}
	var ferr error
	f := func(x float64) float64 {
		if ferr != nil {
			return 0
		}
		y, err := d.F(fl.FromFloat64(x))
		if err != nil {
			ferr = err
			return 0
		}
		r, err := fl.Float64(y)
		if err != nil {
			ferr = err
			return 0
		}
		return r
	}
	r := quad.TanhSinh(f, a, b, d.Config.TanhSinhLevels, d.Config.Tolerance)
	if ferr != nil {
		return nil, ferr
	}
	if math.IsNaN(r) {
		return nil, &treecalc.DomainError{X: formatFloat(a) + ".." + formatFloat(b), Arg: 1, Func: "tanhsinh"}
	}
	return fl.FromFloat64(r), nil
}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'g', -1, 64)
}
