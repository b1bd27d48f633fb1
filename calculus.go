package treecalc

import (
	"math"
	"strconv"

	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/zephyrtronium/treecalc/quad"
)

// QuadratureKind selects a quadrature rule for a calculus operator.
type QuadratureKind int8

const (
	// QuadTanhSinh is double exponential quadrature.
	QuadTanhSinh QuadratureKind = iota
	// QuadClenshawCurtis is Clenshaw–Curtis quadrature.
	QuadClenshawCurtis
	// QuadTrapezoid is the composite trapezoid rule.
	QuadTrapezoid
	// QuadTrapezoidAdjusted is the trapezoid rule with end correction.
	QuadTrapezoidAdjusted
	// QuadDifference treats the function as an antiderivative and returns
	// its difference over the interval.
	QuadDifference
)

func (k QuadratureKind) String() string {
	switch k {
	case QuadTanhSinh:
		return "tanh-sinh"
	case QuadClenshawCurtis:
		return "clenshaw-curtis"
	case QuadTrapezoid:
		return "trapezoid"
	case QuadTrapezoidAdjusted:
		return "trapezoid-adjusted"
	case QuadDifference:
		return "difference"
	default:
		return "QuadratureKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// calculus is a calculus descriptor: a function identifier modified by a
// derivative or quadrature operator. The parameter is the node's left.
type calculus struct {
	// fn indexes the identifier arena; op indexes the operator arena.
	fn, op int
	// resolved is the callable the descriptor denotes, created on first
	// evaluation by the context in by.
	resolved func(x Value) (Value, error)
	by       *Context
}

// evalCalc evaluates a calculus descriptor applied to its parameter.
func (ctx *Context) evalCalc(n *node) (Value, error) {
	c := n.calc
	if c.resolved == nil || c.by != ctx {
		f, err := ctx.resolveCalculus(c)
		if err != nil {
			return nil, err
		}
		c.resolved, c.by = f, ctx
	}
	x, err := ctx.eval(n.left)
	if err != nil {
		return nil, err
	}
	return c.resolved(x)
}

func (ctx *Context) resolveCalculus(c *calculus) (func(Value) (Value, error), error) {
	opname := ctx.e.ops[c.op].name
	sym, err := ctx.symbol(opname)
	if err != nil {
		return nil, err
	}
	op, ok := sym.(*CalculusOperator)
	if !ok {
		return nil, &EvalError{Name: opname, Msg: "not a calculus operator"}
	}
	fname := ctx.e.idents[c.fn].name
	if sym, err = ctx.symbol(fname); err != nil {
		return nil, err
	}
	fn, ok := sym.(*Function)
	if !ok {
		return nil, &EvalError{Name: fname, Msg: "calculus operator applied to a non-function"}
	}
	level.Debug(ctx.logger).Log("msg", "resolving calculus descriptor", "func", fname, "op", opname, "order", op.Order, "quadrature", op.Quadrature)
	if op.Order > 0 {
		return ctx.derivative(fn.Apply, op.Order)
	}
	return ctx.quadrature(fn.Apply, op)
}

// derivative creates the order-th central difference of f:
//
//	f⁽ⁿ⁾(x) ≈ h⁻ⁿ Σₖ (-1)ᵏ C(n, k) f(x + (n/2 - k)h)
func (ctx *Context) derivative(f func(Value) (Value, error), order int) (func(Value) (Value, error), error) {
	tm := ctx.tm
	h, err := tm.Parse(ctx.cfg.DerivativeStep)
	if err != nil {
		return nil, errors.Wrap(err, "parsing derivative step")
	}
	a := arith{tm: tm}
	halfh := a.mul(h, a.inv(tm.FromInt(2)))
	scale := tm.One()
	hinv := a.inv(h)
	for i := 0; i < order; i++ {
		scale = a.mul(scale, hinv)
	}
	offsets := make([]Value, order+1)
	coeffs := make([]Value, order+1)
	binom := int64(1)
	for k := 0; k <= order; k++ {
		offsets[k] = a.mul(tm.FromInt(int64(order-2*k)), halfh)
		if k%2 == 0 {
			coeffs[k] = tm.FromInt(binom)
		} else {
			coeffs[k] = tm.FromInt(-binom)
		}
		binom = binom * int64(order-k) / int64(k+1)
	}
	if a.err != nil {
		return nil, a.err
	}
	return func(x Value) (Value, error) {
		a := arith{tm: tm}
		sum := tm.Zero()
		for k := range offsets {
			y, err := f(a.add(x, offsets[k]))
			if err != nil {
				return nil, err
			}
			sum = a.add(sum, a.mul(coeffs[k], y))
		}
		r := a.mul(sum, scale)
		return r, a.err
	}, nil
}

// quadrature creates a callable integrating f over the interval given as its
// parameter, which must be a pair (a, b).
func (ctx *Context) quadrature(f func(Value) (Value, error), op *CalculusOperator) (func(Value) (Value, error), error) {
	fl, ok := ctx.tm.(Floater)
	if !ok {
		return nil, &EvalError{Name: op.Name, Msg: "quadrature requires a type convertible to float64"}
	}
	cfg := ctx.cfg
	return func(x Value) (Value, error) {
		v, ok := x.(Vector)
		if !ok {
			return nil, &DegreeError{Op: op.Name, Want: 2, Got: 1}
		}
		if len(v) != 2 {
			return nil, &DegreeError{Op: op.Name, Want: 2, Got: len(v)}
		}
		a, err := fl.Float64(v[0])
		if err != nil {
			return nil, err
		}
		b, err := fl.Float64(v[1])
		if err != nil {
			return nil, err
		}
		var ferr error
		g := func(t float64) float64 {
			if ferr != nil {
				return 0
			}
			y, err := f(fl.FromFloat64(t))
			if err != nil {
				ferr = err
				return 0
			}
			r, err := fl.Float64(y)
			if err != nil {
				ferr = err
			}
			return r
		}
		var r float64
		switch op.Quadrature {
		case QuadTanhSinh:
			r = quad.TanhSinh(g, a, b, cfg.TanhSinhLevels, cfg.Tolerance)
		case QuadClenshawCurtis:
			r = quad.ClenshawCurtis(g, a, b, cfg.QuadratureTerms)
		case QuadTrapezoid:
			r = quad.Trapezoid(g, a, b, cfg.QuadratureTerms)
		case QuadTrapezoidAdjusted:
			r = quad.TrapezoidAdjusted(g, a, b, cfg.QuadratureTerms)
		case QuadDifference:
			r = quad.Difference(g, a, b)
		default:
			return nil, &EvalError{Name: op.Name, Msg: "unknown quadrature kind " + op.Quadrature.String()}
		}
		if ferr != nil {
			return nil, ferr
		}
		if math.IsNaN(r) {
			return nil, &DomainError{X: FormatValue(ctx.tm, x), Arg: 1, Func: op.Name}
		}
		return fl.FromFloat64(r), nil
	}, nil
}
