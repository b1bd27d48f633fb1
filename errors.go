package treecalc

import (
	"fmt"
	"strconv"
	"strings"
)

// Messages for NestingError and SemanticError.
const (
	msgExcessClose    = "excess closing parenthesis"
	msgTooFewClose    = "too few closing parenthesis"
	msgBracketClose   = "closing bracket without range descriptor"
	msgBracketOpen    = "range descriptor without closing bracket"
	msgBracketParen   = "closing parenthesis inside range descriptor endpoints"
	msgBracketComma   = "comma inside range descriptor endpoints"
	msgUnknownToken   = "unclassified token"
	msgNotOperator    = "operator not recognized"
	msgUnrecognized   = "unrecognized type"
	msgBadLiteral     = "invalid numeric literal"
	msgMissingParam   = "missing parameter"
	msgCalculusIdent  = "calculus modifier must follow a function identifier"
	msgOperand        = "operand not of proper type"
	msgIncomplete     = "descriptor is incomplete"
	msgResidual       = "expression does not reduce to a single value"
	msgNamedNotPrefix = "named operator must name a prefix operator"
	msgLoopVar        = "loop variable names a function or operator"
	msgEmptyTarget    = "range descriptor has no target"
)

// NestingError is an error indicating mismatched parentheses or brackets. It
// implements InputError.
type NestingError struct {
	// Col is the position of the token where the mismatch was detected.
	Col int
	// Msg describes the mismatch.
	Msg string
}

func (err *NestingError) Error() string {
	return errpos(err.Col, err.Msg)
}

func (err *NestingError) Pos() int {
	return err.Col
}

// SemanticError is an error in attributing or reducing a tree: an unknown
// operator, a malformed invocation, calculus construct, or range descriptor,
// or operands of the wrong kind. It implements InputError.
type SemanticError struct {
	// Col is the position of the offending construct.
	Col int
	// Text is the offending name or token, if any.
	Text string
	// Msg describes the error.
	Msg string
}

func (err *SemanticError) Error() string {
	if err.Text == "" {
		return errpos(err.Col, err.Msg)
	}
	return errpos(err.Col, err.Msg+": "+strconv.Quote(err.Text))
}

func (err *SemanticError) Pos() int {
	return err.Col
}

// errpos is a shortcut to create an error message with a position.
func errpos(pos int, msg string) string {
	return strconv.Itoa(pos) + ": " + msg
}

// InputError is an error with position information. Every error resulting from
// invalid input implements InputError.
type InputError interface {
	error
	// Pos returns the position of the error as the number of runes up to and
	// including the start of the token that caused the error.
	Pos() int
}

var (
	_ InputError = (*NestingError)(nil)
	_ InputError = (*SemanticError)(nil)
	_ InputError = (*LexError)(nil)
)

// NameError is an error from a lookup for a symbol that is missing from the
// symbol table at evaluation time.
type NameError struct {
	// Name is the name that was missing.
	Name string
	// Suggestions are similar names that the table does have, best first.
	Suggestions []string
}

func (err *NameError) Error() string {
	msg := "symbol not found: " + err.Name
	if len(err.Suggestions) > 0 {
		msg += " (did you mean " + strings.Join(err.Suggestions, ", ") + "?)"
	}
	return msg
}

// EvalError is an error evaluating a tree other than a missing symbol or a
// domain error, e.g. a residual group or a symbol of the wrong kind.
type EvalError struct {
	// Name is the symbol or construct involved, if any.
	Name string
	// Msg describes the error.
	Msg string
}

func (err *EvalError) Error() string {
	if err.Name == "" {
		return err.Msg
	}
	return err.Msg + ": " + err.Name
}

// DegreeError is returned when values of mismatched dimension are combined.
type DegreeError struct {
	// Op names the operation.
	Op string
	// Want and Got are the expected and actual number of components.
	Want, Got int
}

func (err *DegreeError) Error() string {
	return "degree mismatch in " + err.Op + ": want " + strconv.Itoa(err.Want) + ", got " + strconv.Itoa(err.Got)
}

// DomainError is an error returned when a function is called on arguments
// outside its domain.
type DomainError struct {
	// X is the display form of the out-of-domain argument.
	X string
	// Arg is the 1-based index of the argument.
	Arg int
	// Func is a name identifying the function.
	Func string
}

func (err *DomainError) Error() string {
	r := err.X + " outside domain"
	if err.Func != "" {
		r += " of " + err.Func
	}
	if err.Arg > 0 {
		r += " (argument " + strconv.Itoa(err.Arg) + ")"
	}
	return r
}

// TypeError is returned by type managers given a value of a foreign type.
type TypeError struct {
	// Want describes the expected type.
	Want string
	// Got is the value received.
	Got Value
}

func (err *TypeError) Error() string {
	return fmt.Sprintf("value of type %T where %s was expected", err.Got, err.Want)
}
