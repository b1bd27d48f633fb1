package treecalc

// Symbol is an entry in a SymbolTable. The attributor understands the
// concrete symbol types declared in this file; any other implementation is
// rejected as an unrecognized type.
type Symbol interface {
	SymbolName() string
}

// SymbolTable resolves names during attribution and evaluation.
type SymbolTable interface {
	// Lookup finds the symbol currently bound to name.
	Lookup(name string) (Symbol, bool)
	// Bind binds sym to name, shadowing any existing binding until restore
	// is called. The range iterator binds loop variables this way.
	Bind(name string, sym Symbol) (restore func())
}

// Variable is a symbol holding a settable value.
type Variable struct {
	Name  string
	Value Value
}

// BinaryOperator is an infix operator. Higher Prec binds tighter.
type BinaryOperator struct {
	Name  string
	Prec  int
	Apply func(l, r Value) (Value, error)
}

// UnaryOperator is a prefix or postfix operator.
type UnaryOperator struct {
	Name    string
	Prec    int
	Postfix bool
	Apply   func(x Value) (Value, error)
}

// CalculusOperator modifies the function identifier preceding it. A positive
// Order gives a derivative of that order; otherwise the operator is a
// quadrature of the given kind.
type CalculusOperator struct {
	Name       string
	Order      int
	Quadrature QuadratureKind
}

// Function is a callable of one parameter. Calls with several arguments pass
// them as a Vector; calls with empty parentheses pass an empty Vector.
//
// Pure reports that Apply depends on nothing but its argument. Calls to
// functions that are not pure may read loop variables through the symbol
// table, so the groups holding them are recomputed on every loop step.
type Function struct {
	Name  string
	Apply func(x Value) (Value, error)
	Pure  bool
}

// Consumer is an iteration accumulator factory. New must return a fresh
// IterationConsumer or NumericalAnalysis on each call.
type Consumer struct {
	Name string
	New  func() interface{}
}

// NamedOperator is an identifier that applies a prefix operator, such as
// "not" for "¬".
type NamedOperator struct {
	Name     string
	Operator string
}

func (s *Variable) SymbolName() string         { return s.Name }
func (s *BinaryOperator) SymbolName() string   { return s.Name }
func (s *UnaryOperator) SymbolName() string    { return s.Name }
func (s *CalculusOperator) SymbolName() string { return s.Name }
func (s *Function) SymbolName() string         { return s.Name }
func (s *Consumer) SymbolName() string         { return s.Name }
func (s *NamedOperator) SymbolName() string    { return s.Name }

// IterationConsumer accumulates one value per step of a range loop.
type IterationConsumer interface {
	Init() error
	// SetIterationValue receives the loop variable's value before the target
	// for that step is evaluated.
	SetIterationValue(v Value)
	Accept(v Value) error
	Result() (Value, error)
}

// NumericalAnalysis is a consumer that drives the range itself, e.g. to
// integrate the target over the span.
type NumericalAnalysis interface {
	Evaluate(d *RangeDigest) (Value, error)
}

// RangeDigest describes an evaluated range span to a NumericalAnalysis.
type RangeDigest struct {
	// Var is the loop variable name.
	Var string
	// Lo, Hi, and Delta are the evaluated bounds and step.
	Lo, Hi, Delta Value
	// LowerOpen is true when the lower comparison is strict.
	LowerOpen bool
	// Upper is the name of the upper comparison operator.
	Upper string
	// Types is the type manager used for evaluation.
	Types TypeManager
	// Config is the evaluating context's configuration.
	Config Config
	// F evaluates the target with the loop variable bound to x.
	F func(x Value) (Value, error)
}
