package symtab

import (
	"math"

	"github.com/zephyrtronium/treecalc"
)

// Operator precedences of the standard library.
const (
	PrecCompare = 5
	PrecAdd     = 10
	PrecMul     = 20
	PrecPow     = 30
	PrecUnary   = 40
)

// maxFactorial bounds the argument of the factorial operator.
const maxFactorial = 10000

// Standard creates a table holding the standard library for tm:
//
//   - binary + - * × / ÷ ^ and comparisons < <= > >= == != giving one or zero,
//     elementwise over vectors with scalar broadcast
//   - prefix √ and ¬, postfix ! and %, and the named operator "not"
//   - derivatives ' '' ''' and quadratures ∫ ∫cc ∫trap ∫adj ∫diff
//   - functions exp, ln, log, sqrt, abs, and len; variables pi and e
//   - consumers sum, prod, count, min, max, list, and mean
//   - numerical analyses integral and tanhsinh
//
// The elementary functions, ^, √, pi, and e are present only if tm implements
// treecalc.Transcendental or treecalc.Floater, and tanhsinh only if it
// implements treecalc.Floater.
func Standard(tm treecalc.TypeManager) *Table {
	t := New()
	t.Define(
		&treecalc.BinaryOperator{Name: "+", Prec: PrecAdd, Apply: Elementwise("+", tm.Add)},
		&treecalc.BinaryOperator{Name: "-", Prec: PrecAdd, Apply: Elementwise("-", sub(tm))},
		&treecalc.BinaryOperator{Name: "*", Prec: PrecMul, Apply: Elementwise("*", tm.Multiply)},
		&treecalc.BinaryOperator{Name: "×", Prec: PrecMul, Apply: Elementwise("×", tm.Multiply)},
		&treecalc.BinaryOperator{Name: "/", Prec: PrecMul, Apply: Elementwise("/", div(tm))},
		&treecalc.BinaryOperator{Name: "÷", Prec: PrecMul, Apply: Elementwise("÷", div(tm))},
		&treecalc.BinaryOperator{Name: "<", Prec: PrecCompare, Apply: compare(tm, func(a, b treecalc.Value) bool { return tm.LessThan(a, b) })},
		&treecalc.BinaryOperator{Name: "<=", Prec: PrecCompare, Apply: compare(tm, func(a, b treecalc.Value) bool { return !tm.LessThan(b, a) })},
		&treecalc.BinaryOperator{Name: ">", Prec: PrecCompare, Apply: compare(tm, func(a, b treecalc.Value) bool { return tm.LessThan(b, a) })},
		&treecalc.BinaryOperator{Name: ">=", Prec: PrecCompare, Apply: compare(tm, func(a, b treecalc.Value) bool { return !tm.LessThan(a, b) })},
		&treecalc.BinaryOperator{Name: "==", Prec: PrecCompare, Apply: compare(tm, func(a, b treecalc.Value) bool { return !tm.LessThan(a, b) && !tm.LessThan(b, a) })},
		&treecalc.BinaryOperator{Name: "!=", Prec: PrecCompare, Apply: compare(tm, func(a, b treecalc.Value) bool { return tm.LessThan(a, b) || tm.LessThan(b, a) })},
		&treecalc.UnaryOperator{Name: "¬", Prec: PrecUnary, Apply: Monadic(not(tm))},
		&treecalc.UnaryOperator{Name: "!", Prec: PrecUnary, Postfix: true, Apply: Monadic(factorial(tm))},
		&treecalc.UnaryOperator{Name: "%", Prec: PrecUnary, Postfix: true, Apply: Monadic(percent(tm))},
		&treecalc.NamedOperator{Name: "not", Operator: "¬"},
		&treecalc.CalculusOperator{Name: "'", Order: 1},
		&treecalc.CalculusOperator{Name: "''", Order: 2},
		&treecalc.CalculusOperator{Name: "'''", Order: 3},
		&treecalc.CalculusOperator{Name: "∫", Quadrature: treecalc.QuadTanhSinh},
		&treecalc.CalculusOperator{Name: "∫cc", Quadrature: treecalc.QuadClenshawCurtis},
		&treecalc.CalculusOperator{Name: "∫trap", Quadrature: treecalc.QuadTrapezoid},
		&treecalc.CalculusOperator{Name: "∫adj", Quadrature: treecalc.QuadTrapezoidAdjusted},
		&treecalc.CalculusOperator{Name: "∫diff", Quadrature: treecalc.QuadDifference},
		&treecalc.Function{Name: "abs", Apply: Monadic(abs(tm)), Pure: true},
		&treecalc.Function{Name: "len", Apply: length(tm), Pure: true},
		&treecalc.Consumer{Name: "sum", New: func() interface{} { return &fold{tm: tm, f: Elementwise("sum", tm.Add), zero: tm.Zero}}},
		&treecalc.Consumer{Name: "prod", New: func() interface{} { return &fold{tm: tm, f: Elementwise("prod", tm.Multiply), zero: tm.One}}},
		&treecalc.Consumer{Name: "count", New: func() interface{} { return &counter{tm: tm} }},
		&treecalc.Consumer{Name: "min", New: func() interface{} { return &extreme{tm: tm, name: "min"} }},
		&treecalc.Consumer{Name: "max", New: func() interface{} { return &extreme{tm: tm, name: "max", max: true} }},
		&treecalc.Consumer{Name: "list", New: func() interface{} { return &list{} }},
		&treecalc.Consumer{Name: "mean", New: func() interface{} { return &mean{tm: tm} }},
		&treecalc.Consumer{Name: "integral", New: func() interface{} { return trapezoid{} }},
	)
	if el, ok := elementary(tm); ok {
		t.Define(
			&treecalc.BinaryOperator{Name: "^", Prec: PrecPow, Apply: Elementwise("^", el.Pow)},
			&treecalc.UnaryOperator{Name: "√", Prec: PrecUnary, Apply: Monadic(el.Sqrt)},
			&treecalc.Function{Name: "exp", Apply: Monadic(el.Exp), Pure: true},
			&treecalc.Function{Name: "ln", Apply: Monadic(el.Log), Pure: true},
			&treecalc.Function{Name: "log", Apply: Monadic(log10(tm, el)), Pure: true},
			&treecalc.Function{Name: "sqrt", Apply: Monadic(el.Sqrt), Pure: true},
			&treecalc.Variable{Name: "pi", Value: el.Pi()},
		)
		if e, err := el.Exp(tm.One()); err == nil {
			t.Define(&treecalc.Variable{Name: "e", Value: e})
		}
	}
	if _, ok := tm.(treecalc.Floater); ok {
		t.Define(&treecalc.Consumer{Name: "tanhsinh", New: func() interface{} { return tanhSinh{} }})
	}
	return t
}

// Monadic creates a function that applies f to a scalar, or to each
// component of a Vector.
func Monadic(f func(x treecalc.Value) (treecalc.Value, error)) func(treecalc.Value) (treecalc.Value, error) {
	var g func(x treecalc.Value) (treecalc.Value, error)
	g = func(x treecalc.Value) (treecalc.Value, error) {
		v, ok := x.(treecalc.Vector)
		if !ok {
			return f(x)
		}
		r := make(treecalc.Vector, len(v))
		for i, c := range v {
			y, err := g(c)
			if err != nil {
				return nil, err
			}
			r[i] = y
		}
		return r, nil
	}
	return g
}

// Elementwise creates a binary function that applies f to scalars, to
// corresponding components of Vectors of equal length, or to each component
// of a Vector with a scalar.
func Elementwise(name string, f func(a, b treecalc.Value) (treecalc.Value, error)) func(a, b treecalc.Value) (treecalc.Value, error) {
	var g func(a, b treecalc.Value) (treecalc.Value, error)
	g = func(a, b treecalc.Value) (treecalc.Value, error) {
		va, oka := a.(treecalc.Vector)
		vb, okb := b.(treecalc.Vector)
		switch {
		case !oka && !okb:
			return f(a, b)
		case oka && okb && len(va) != len(vb):
			return nil, &treecalc.DegreeError{Op: name, Want: len(va), Got: len(vb)}
		}
		n := len(va)
		if !oka {
			n = len(vb)
		}
		r := make(treecalc.Vector, n)
		for i := range r {
			x, y := a, b
			if oka {
				x = va[i]
			}
			if okb {
				y = vb[i]
			}
			z, err := g(x, y)
			if err != nil {
				return nil, err
			}
			r[i] = z
		}
		return r, nil
	}
	return g
}

func sub(tm treecalc.TypeManager) func(a, b treecalc.Value) (treecalc.Value, error) {
	return func(a, b treecalc.Value) (treecalc.Value, error) {
		nb, err := tm.Negate(b)
		if err != nil {
			return nil, err
		}
		return tm.Add(a, nb)
	}
}

func div(tm treecalc.TypeManager) func(a, b treecalc.Value) (treecalc.Value, error) {
	return func(a, b treecalc.Value) (treecalc.Value, error) {
		ib, err := tm.Invert(b)
		if err != nil {
			return nil, err
		}
		return tm.Multiply(a, ib)
	}
}

// truth converts a boolean to one or zero.
func truth(tm treecalc.TypeManager, b bool) treecalc.Value {
	if b {
		return tm.One()
	}
	return tm.Zero()
}

func compare(tm treecalc.TypeManager, f func(a, b treecalc.Value) bool) func(a, b treecalc.Value) (treecalc.Value, error) {
	return func(a, b treecalc.Value) (treecalc.Value, error) {
		return truth(tm, f(a, b)), nil
	}
}

func not(tm treecalc.TypeManager) func(x treecalc.Value) (treecalc.Value, error) {
	return func(x treecalc.Value) (treecalc.Value, error) {
		return truth(tm, tm.IsZero(x)), nil
	}
}

func abs(tm treecalc.TypeManager) func(x treecalc.Value) (treecalc.Value, error) {
	return func(x treecalc.Value) (treecalc.Value, error) {
		if tm.IsNegative(x) {
			return tm.Negate(x)
		}
		return x, nil
	}
}

func percent(tm treecalc.TypeManager) func(x treecalc.Value) (treecalc.Value, error) {
	return func(x treecalc.Value) (treecalc.Value, error) {
		h, err := tm.Invert(tm.FromInt(100))
		if err != nil {
			return nil, err
		}
		return tm.Multiply(x, h)
	}
}

// factorial computes x! for non-negative x by multiplying 1 through x. For
// non-integer x, the product stops at the largest integer not above x.
func factorial(tm treecalc.TypeManager) func(x treecalc.Value) (treecalc.Value, error) {
	return func(x treecalc.Value) (treecalc.Value, error) {
		if tm.IsNegative(x) || tm.LessThan(tm.FromInt(maxFactorial), x) {
			return nil, &treecalc.DomainError{X: tm.String(x), Arg: 1, Func: "!"}
		}
		r, k := tm.One(), tm.One()
		for !tm.LessThan(x, k) {
			var err error
			if r, err = tm.Multiply(r, k); err != nil {
				return nil, err
			}
			if k, err = tm.Add(k, tm.One()); err != nil {
				return nil, err
			}
		}
		return r, nil
	}
}

// length gives the number of components of a Vector, or 1 for a scalar.
func length(tm treecalc.TypeManager) func(x treecalc.Value) (treecalc.Value, error) {
	return func(x treecalc.Value) (treecalc.Value, error) {
		if v, ok := x.(treecalc.Vector); ok {
			return tm.FromInt(int64(len(v))), nil
		}
		return tm.One(), nil
	}
}

func log10(tm treecalc.TypeManager, el treecalc.Transcendental) func(x treecalc.Value) (treecalc.Value, error) {
	return func(x treecalc.Value) (treecalc.Value, error) {
		l, err := el.Log(x)
		if err != nil {
			return nil, err
		}
		ten, err := el.Log(tm.FromInt(10))
		if err != nil {
			return nil, err
		}
		return div(tm)(l, ten)
	}
}

// elementary returns tm's own elementary functions if it has them, or float64
// ones if it converts to float64.
func elementary(tm treecalc.TypeManager) (treecalc.Transcendental, bool) {
	if el, ok := tm.(treecalc.Transcendental); ok {
		return el, true
	}
	if fl, ok := tm.(treecalc.Floater); ok {
		return floats{fl}, true
	}
	return nil, false
}

// floats implements elementary functions through float64.
type floats struct {
	fl treecalc.Floater
}

func (f floats) apply(name string, x treecalc.Value, g func(float64) float64) (treecalc.Value, error) {
	a, err := f.fl.Float64(x)
	if err != nil {
		return nil, err
	}
	r := g(a)
	if math.IsNaN(r) {
		return nil, &treecalc.DomainError{X: formatFloat(a), Arg: 1, Func: name}
	}
	return f.fl.FromFloat64(r), nil
}

func (f floats) Exp(x treecalc.Value) (treecalc.Value, error) {
	return f.apply("exp", x, math.Exp)
}

func (f floats) Log(x treecalc.Value) (treecalc.Value, error) {
	a, err := f.fl.Float64(x)
	if err != nil {
		return nil, err
	}
	if a <= 0 {
		return nil, &treecalc.DomainError{X: formatFloat(a), Arg: 1, Func: "ln"}
	}
	return f.fl.FromFloat64(math.Log(a)), nil
}

func (f floats) Sqrt(x treecalc.Value) (treecalc.Value, error) {
	return f.apply("sqrt", x, math.Sqrt)
}

func (f floats) Pow(x, y treecalc.Value) (treecalc.Value, error) {
	b, err := f.fl.Float64(y)
	if err != nil {
		return nil, err
	}
	return f.apply("^", x, func(a float64) float64 { return math.Pow(a, b) })
}

func (f floats) Pi() treecalc.Value {
	return f.fl.FromFloat64(math.Pi)
}
