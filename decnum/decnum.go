// Package decnum provides a treecalc type manager for arbitrary precision
// decimal values, so that literals like 0.1 are exact.
package decnum

import (
	"math"

	"github.com/cockroachdb/apd"
	"github.com/pkg/errors"

	"github.com/zephyrtronium/treecalc"
)

// pi to more digits than any practical precision.
const pi = "3.14159265358979323846264338327950288419716939937510582097494459230781640628620899862803482534211706798214808651328230664709384460955058223172535940812848111745028410270193852110555964462294895493038196"

// Manager performs arithmetic on *apd.Decimal values at a fixed number of
// significant digits.
type Manager struct {
	ctx *apd.Context
}

var (
	_ treecalc.TypeManager    = (*Manager)(nil)
	_ treecalc.Floater        = (*Manager)(nil)
	_ treecalc.Transcendental = (*Manager)(nil)
)

// New creates a type manager computing with the given number of significant
// decimal digits. Zero uses 34.
func New(digits uint32) *Manager {
	if digits == 0 {
		digits = 34
	}
	return &Manager{ctx: apd.BaseContext.WithPrecision(digits)}
}

// DigitsForBits gives the number of decimal digits at least as precise as
// the given number of bits.
func DigitsForBits(bits uint) uint32 {
	return uint32(math.Ceil(float64(bits) * math.Log10(2)))
}

// Digits returns the manager's precision in decimal digits.
func (m *Manager) Digits() uint32 {
	return m.ctx.Precision
}

func arg(a treecalc.Value) (*apd.Decimal, error) {
	x, ok := a.(*apd.Decimal)
	if !ok {
		return nil, &treecalc.TypeError{Want: "*apd.Decimal", Got: a}
	}
	return x, nil
}

func args(a, b treecalc.Value) (*apd.Decimal, *apd.Decimal, error) {
	x, err := arg(a)
	if err != nil {
		return nil, nil, err
	}
	y, err := arg(b)
	if err != nil {
		return nil, nil, err
	}
	return x, y, nil
}

// result converts a trapped condition into a domain error.
func result(d *apd.Decimal, name string, x *apd.Decimal, err error) (treecalc.Value, error) {
	if err != nil || d.Form == apd.NaN || d.Form == apd.NaNSignaling {
		return nil, &treecalc.DomainError{X: x.String(), Arg: 1, Func: name}
	}
	return d, nil
}

func (m *Manager) Zero() treecalc.Value {
	return apd.New(0, 0)
}

func (m *Manager) One() treecalc.Value {
	return apd.New(1, 0)
}

func (m *Manager) FromInt(i int64) treecalc.Value {
	return apd.New(i, 0)
}

// Parse converts a decimal literal, rounding it to the manager's precision.
// "∞" and "inf" are positive infinity.
func (m *Manager) Parse(text string) (treecalc.Value, error) {
	switch text {
	case "∞", "inf", "Inf":
		return &apd.Decimal{Form: apd.Infinite}, nil
	}
	d, _, err := m.ctx.NewFromString(text)
	if err != nil {
		return nil, errors.Wrapf(err, "decnum: invalid number %s", text)
	}
	return d, nil
}

func (m *Manager) Add(a, b treecalc.Value) (treecalc.Value, error) {
	x, y, err := args(a, b)
	if err != nil {
		return nil, err
	}
	var d apd.Decimal
	_, err = m.ctx.Add(&d, x, y)
	return result(&d, "+", y, err)
}

func (m *Manager) Multiply(a, b treecalc.Value) (treecalc.Value, error) {
	x, y, err := args(a, b)
	if err != nil {
		return nil, err
	}
	var d apd.Decimal
	_, err = m.ctx.Mul(&d, x, y)
	return result(&d, "*", y, err)
}

func (m *Manager) Negate(a treecalc.Value) (treecalc.Value, error) {
	x, err := arg(a)
	if err != nil {
		return nil, err
	}
	var d apd.Decimal
	d.Neg(x)
	return &d, nil
}

func (m *Manager) Invert(a treecalc.Value) (treecalc.Value, error) {
	x, err := arg(a)
	if err != nil {
		return nil, err
	}
	if x.IsZero() {
		return nil, &treecalc.DomainError{X: x.String(), Arg: 1, Func: "/"}
	}
	var d apd.Decimal
	_, err = m.ctx.Quo(&d, apd.New(1, 0), x)
	return result(&d, "/", x, err)
}

func (m *Manager) IsZero(a treecalc.Value) bool {
	x, err := arg(a)
	return err == nil && x.IsZero()
}

func (m *Manager) IsNegative(a treecalc.Value) bool {
	x, err := arg(a)
	return err == nil && x.Sign() < 0
}

func (m *Manager) LessThan(a, b treecalc.Value) bool {
	x, y, err := args(a, b)
	return err == nil && x.Cmp(y) < 0
}

func (m *Manager) String(a treecalc.Value) string {
	x, err := arg(a)
	if err != nil {
		return "<invalid>"
	}
	if x.Form == apd.Finite {
		// Drop trailing zeros so that equal values print alike.
		var r apd.Decimal
		r.Reduce(x)
		return r.Text('f')
	}
	return x.String()
}

func (m *Manager) Float64(a treecalc.Value) (float64, error) {
	x, err := arg(a)
	if err != nil {
		return 0, err
	}
	return x.Float64()
}

// FromFloat64 converts f. NaN has no representation and converts to zero.
func (m *Manager) FromFloat64(f float64) treecalc.Value {
	switch {
	case math.IsNaN(f):
		return apd.New(0, 0)
	case math.IsInf(f, 0):
		return &apd.Decimal{Form: apd.Infinite, Negative: f < 0}
	}
	d, err := new(apd.Decimal).SetFloat64(f)
	if err != nil {
		return apd.New(0, 0)
	}
	return d
}

func (m *Manager) Exp(a treecalc.Value) (treecalc.Value, error) {
	x, err := arg(a)
	if err != nil {
		return nil, err
	}
	var d apd.Decimal
	_, err = m.ctx.Exp(&d, x)
	return result(&d, "exp", x, err)
}

func (m *Manager) Log(a treecalc.Value) (treecalc.Value, error) {
	x, err := arg(a)
	if err != nil {
		return nil, err
	}
	if x.Sign() <= 0 {
		return nil, &treecalc.DomainError{X: x.String(), Arg: 1, Func: "ln"}
	}
	var d apd.Decimal
	_, err = m.ctx.Ln(&d, x)
	return result(&d, "ln", x, err)
}

func (m *Manager) Pow(a, b treecalc.Value) (treecalc.Value, error) {
	x, y, err := args(a, b)
	if err != nil {
		return nil, err
	}
	var d apd.Decimal
	_, err = m.ctx.Pow(&d, x, y)
	return result(&d, "^", x, err)
}

func (m *Manager) Sqrt(a treecalc.Value) (treecalc.Value, error) {
	x, err := arg(a)
	if err != nil {
		return nil, err
	}
	if x.Sign() < 0 {
		return nil, &treecalc.DomainError{X: x.String(), Arg: 1, Func: "sqrt"}
	}
	var d apd.Decimal
	_, err = m.ctx.Sqrt(&d, x)
	return result(&d, "sqrt", x, err)
}

func (m *Manager) Pi() treecalc.Value {
	d, _, err := m.ctx.NewFromString(pi)
	if err != nil {
		panic("decnum: invalid pi: " + err.Error())
	}
	return d
}
