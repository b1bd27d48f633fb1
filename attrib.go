package treecalc

import (
	"github.com/go-kit/log/level"
)

// Attribute resolves every identifier and operator of the tree against tab,
// converts numeric literals with tm, and marks aggregate groups.
//
// An operator that tab does not know is an error. An identifier that tab does
// not know is not: it is marked unknown, since range descriptors bind their
// loop variables only during evaluation.
func (e *Expr) Attribute(tab SymbolTable, tm TypeManager) error {
	for k := range e.ops {
		if err := e.attributeOp(k, tab); err != nil {
			return err
		}
	}
	for k := range e.idents {
		if err := e.attributeIdent(k, tab); err != nil {
			return err
		}
	}
	var err error
	visit := func(n *node) bool {
		if err != nil {
			return false
		}
		err = attributeNode(n, tm)
		return err == nil
	}
	walkGroup(e.root, visit)
	if err != nil {
		return err
	}
	e.attributed = true
	level.Debug(e.logger).Log("msg", "attributed tree", "identifiers", len(e.idents), "operators", len(e.ops))
	return nil
}

func (e *Expr) attributeOp(k int, tab SymbolTable) error {
	op := &e.ops[k]
	switch op.name {
	case assignOp:
		op.kind = opAssign
		return nil
	case deltaOp:
		op.kind = opDelta
		return nil
	}
	sym, ok := tab.Lookup(op.name)
	if !ok {
		return &SemanticError{Col: op.pos, Text: op.name, Msg: msgNotOperator}
	}
	switch s := sym.(type) {
	case *BinaryOperator:
		op.kind = opBinary
		op.prec = s.Prec
	case *UnaryOperator:
		op.kind = opPrefix
		if s.Postfix {
			op.kind = opPostfix
		}
		op.prec = s.Prec
	case *CalculusOperator:
		op.kind = opCalculus
	default:
		return &SemanticError{Col: op.pos, Text: op.name, Msg: msgUnrecognized}
	}
	op.sym = sym
	return nil
}

func (e *Expr) attributeIdent(k int, tab SymbolTable) error {
	id := &e.idents[k]
	if id.role == roleLocal {
		// Loop variables of restored trees are bound only by their ranges.
		return nil
	}
	sym, ok := tab.Lookup(id.name)
	if !ok {
		id.role = roleUnknown
		return nil
	}
	switch s := sym.(type) {
	case *Variable:
		id.role = roleVariable
	case *Function:
		id.role = roleFunction
	case *Consumer:
		id.role = roleConsumer
	case *NamedOperator:
		op := e.op(s.Operator, id.pos)
		if err := e.attributeOp(op, tab); err != nil {
			return err
		}
		if e.ops[op].kind != opPrefix {
			return &SemanticError{Col: id.pos, Text: id.name, Msg: msgNamedNotPrefix}
		}
		id.role = roleNamedOp
		id.op = op
	default:
		return &SemanticError{Col: id.pos, Text: id.name, Msg: msgUnrecognized}
	}
	id.sym = sym
	return nil
}

// attributeNode converts literals and marks aggregates.
func attributeNode(n *node, tm TypeManager) error {
	switch n.kind {
	case nodeNum:
		if n.val != nil {
			return nil
		}
		v, err := tm.Parse(n.text)
		if err != nil {
			return &SemanticError{Col: n.pos, Text: n.text, Msg: msgBadLiteral}
		}
		n.val = v
	case nodeText:
		n.val = n.text
	case nodeGroup:
		if n.grp.aggregate {
			n.kind = nodeAggregate
		}
	}
	return nil
}
