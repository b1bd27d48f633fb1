package treecalc

import (
	"strconv"
	"strings"
)

// Value is a value of the element type handled by a TypeManager. The core
// never inspects values except through the TypeManager, with two exceptions:
// aggregates evaluate to a Vector, and quoted literals evaluate to a string.
type Value = interface{}

// Vector is a dimensioned value, the result of evaluating an aggregate such as
// (1, 2, 3).
type Vector []Value

// TypeManager performs arithmetic for the element type of an expression.
type TypeManager interface {
	Zero() Value
	One() Value
	FromInt(i int64) Value
	// Parse converts a numeric literal to the internal representation.
	Parse(text string) (Value, error)

	Add(a, b Value) (Value, error)
	Multiply(a, b Value) (Value, error)
	Negate(a Value) (Value, error)
	// Invert returns 1/a. Inverting zero must return a *DomainError.
	Invert(a Value) (Value, error)

	IsZero(a Value) bool
	IsNegative(a Value) bool
	LessThan(a, b Value) bool

	// String formats a scalar value for display.
	String(a Value) string
}

// Floater is implemented by type managers whose values convert to and from
// float64. Quadrature requires it.
type Floater interface {
	Float64(a Value) (float64, error)
	FromFloat64(f float64) Value
}

// Transcendental is implemented by type managers that can compute elementary
// functions at their own precision.
type Transcendental interface {
	Exp(a Value) (Value, error)
	Log(a Value) (Value, error)
	Pow(a, b Value) (Value, error)
	Sqrt(a Value) (Value, error)
	Pi() Value
}

// FormatValue formats any value produced by evaluation, including vectors
// and text.
func FormatValue(tm TypeManager, v Value) string {
	var b strings.Builder
	formatValue(&b, tm, v)
	return b.String()
}

func formatValue(b *strings.Builder, tm TypeManager, v Value) {
	switch v := v.(type) {
	case Vector:
		b.WriteByte('(')
		for i, x := range v {
			if i > 0 {
				b.WriteString(", ")
			}
			formatValue(b, tm, x)
		}
		b.WriteByte(')')
	case string:
		b.WriteString(strconv.Quote(v))
	default:
		b.WriteString(tm.String(v))
	}
}

// arith chains TypeManager operations, keeping the first error. Operations
// after an error return nil.
type arith struct {
	tm  TypeManager
	err error
}

func (a *arith) add(x, y Value) Value {
	if a.err != nil {
		return nil
	}
	r, err := a.tm.Add(x, y)
	a.err = err
	return r
}

func (a *arith) mul(x, y Value) Value {
	if a.err != nil {
		return nil
	}
	r, err := a.tm.Multiply(x, y)
	a.err = err
	return r
}

func (a *arith) inv(x Value) Value {
	if a.err != nil {
		return nil
	}
	r, err := a.tm.Invert(x)
	a.err = err
	return r
}
