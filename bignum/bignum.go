// Package bignum provides a treecalc type manager for arbitrary precision
// binary floating-point values.
package bignum

import (
	"errors"
	"math"
	"math/big"

	"github.com/zephyrtronium/bigfloat"

	"github.com/zephyrtronium/treecalc"
)

// Manager performs arithmetic on *big.Float values at a fixed precision.
// Values are never modified after they are created, so results may be shared
// freely.
type Manager struct {
	prec uint
}

var (
	_ treecalc.TypeManager    = (*Manager)(nil)
	_ treecalc.Floater        = (*Manager)(nil)
	_ treecalc.Transcendental = (*Manager)(nil)
)

// New creates a type manager computing with prec bits of mantissa. A prec of
// zero uses 64.
func New(prec uint) *Manager {
	if prec == 0 {
		prec = 64
	}
	return &Manager{prec: prec}
}

// Prec returns the manager's precision in bits.
func (m *Manager) Prec() uint {
	return m.prec
}

func (m *Manager) new() *big.Float {
	return new(big.Float).SetPrec(m.prec)
}

// arg extracts a *big.Float operand.
func arg(a treecalc.Value) (*big.Float, error) {
	x, ok := a.(*big.Float)
	if !ok {
		return nil, &treecalc.TypeError{Want: "*big.Float", Got: a}
	}
	return x, nil
}

func args(a, b treecalc.Value) (*big.Float, *big.Float, error) {
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

// guard converts a big.ErrNaN panic from an operation on x into a domain
// error. Other panics propagate.
func guard(name string, x *big.Float, err *error) {
	r := recover()
	if r == nil {
		return
	}
	e, ok := r.(error)
	if !ok || !errors.As(e, &big.ErrNaN{}) {
		panic(r)
	}
	*err = &treecalc.DomainError{X: x.String(), Arg: 1, Func: name}
}

func (m *Manager) Zero() treecalc.Value {
	return m.new()
}

func (m *Manager) One() treecalc.Value {
	return m.new().SetInt64(1)
}

func (m *Manager) FromInt(i int64) treecalc.Value {
	return m.new().SetInt64(i)
}

// Parse converts a decimal literal. "∞" and "inf" are positive infinity.
func (m *Manager) Parse(text string) (treecalc.Value, error) {
	switch text {
	case "∞", "inf", "Inf":
		return m.new().SetInf(false), nil
	}
	x, ok := m.new().SetString(text)
	if !ok {
		return nil, errors.New("bignum: invalid number " + text)
	}
	return x, nil
}

func (m *Manager) Add(a, b treecalc.Value) (r treecalc.Value, err error) {
	x, y, err := args(a, b)
	if err != nil {
		return nil, err
	}
	defer guard("+", y, &err)
	return m.new().Add(x, y), nil
}

func (m *Manager) Multiply(a, b treecalc.Value) (r treecalc.Value, err error) {
	x, y, err := args(a, b)
	if err != nil {
		return nil, err
	}
	defer guard("*", y, &err)
	return m.new().Mul(x, y), nil
}

func (m *Manager) Negate(a treecalc.Value) (treecalc.Value, error) {
	x, err := arg(a)
	if err != nil {
		return nil, err
	}
	return m.new().Neg(x), nil
}

func (m *Manager) Invert(a treecalc.Value) (treecalc.Value, error) {
	x, err := arg(a)
	if err != nil {
		return nil, err
	}
	if x.Sign() == 0 {
		return nil, &treecalc.DomainError{X: x.String(), Arg: 1, Func: "/"}
	}
	return m.new().Quo(m.new().SetInt64(1), x), nil
}

func (m *Manager) IsZero(a treecalc.Value) bool {
	x, err := arg(a)
	return err == nil && x.Sign() == 0
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
	return x.Text('g', -1)
}

func (m *Manager) Float64(a treecalc.Value) (float64, error) {
	x, err := arg(a)
	if err != nil {
		return 0, err
	}
	f, _ := x.Float64()
	return f, nil
}

// FromFloat64 converts f. NaN has no representation and converts to zero.
func (m *Manager) FromFloat64(f float64) treecalc.Value {
	if math.IsNaN(f) {
		return m.new()
	}
	return m.new().SetFloat64(f)
}

func (m *Manager) Exp(a treecalc.Value) (r treecalc.Value, err error) {
	x, err := arg(a)
	if err != nil {
		return nil, err
	}
	defer guard("exp", x, &err)
	return bigfloat.Exp(m.new(), x), nil
}

func (m *Manager) Log(a treecalc.Value) (r treecalc.Value, err error) {
	x, err := arg(a)
	if err != nil {
		return nil, err
	}
	switch x.Sign() {
	case -1:
		return nil, &treecalc.DomainError{X: x.String(), Arg: 1, Func: "ln"}
	case 0:
		return m.new().SetInf(true), nil
	}
	defer guard("ln", x, &err)
	return bigfloat.Log(m.new(), x), nil
}

// Pow computes a^b for non-negative a.
func (m *Manager) Pow(a, b treecalc.Value) (r treecalc.Value, err error) {
	x, y, err := args(a, b)
	if err != nil {
		return nil, err
	}
	switch {
	case x.Sign() < 0:
		return nil, &treecalc.DomainError{X: x.String(), Arg: 1, Func: "^"}
	case y.Sign() == 0:
		return m.new().SetInt64(1), nil
	case x.Sign() == 0 && y.Sign() > 0:
		return m.new(), nil
	case x.Sign() == 0:
		return m.new().SetInf(false), nil
	}
	defer guard("^", x, &err)
	return bigfloat.Pow(m.new(), x, y), nil
}

func (m *Manager) Sqrt(a treecalc.Value) (treecalc.Value, error) {
	x, err := arg(a)
	if err != nil {
		return nil, err
	}
	if x.Sign() < 0 {
		return nil, &treecalc.DomainError{X: x.String(), Arg: 1, Func: "sqrt"}
	}
	if x.Sign() == 0 {
		return m.new(), nil
	}
	return m.new().Sqrt(x), nil
}

func (m *Manager) Pi() treecalc.Value {
	return bigfloat.Pi(m.new())
}
