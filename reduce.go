package treecalc

import (
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

// Reduce rewrites the attributed tree into structured nodes. The passes run
// in a fixed order over each group:
//
//  1. function and consumer invocations
//  2. calculus modifiers
//  3. named operators
//  4. postfix operators
//  5. prefix operators
//  6. binary operators by descending precedence, equal precedence
//     associating left to right
//
// Range descriptors are split into their parts and reduced afterward. After
// Reduce succeeds, every group that represents a single value holds exactly
// one node.
func (e *Expr) Reduce(tm TypeManager) error {
	if !e.attributed {
		return errors.New("treecalc: Reduce before Attribute")
	}
	if e.reduced {
		return errors.New("treecalc: tree is already reduced")
	}
	// Components are registered as they close, so inner groups come first.
	// The list grows only through range splitting, which does not register.
	for _, g := range e.components {
		if err := e.reduceGroup(g, tm); err != nil {
			return err
		}
	}
	if err := e.reduceGroup(e.root, tm); err != nil {
		return err
	}
	for _, r := range e.ranges {
		if err := e.reduceRange(r, tm); err != nil {
			return err
		}
	}
	e.finish()
	e.reduced = true
	level.Debug(e.logger).Log("msg", "reduced tree", "components", len(e.components), "calls", len(e.calls), "ranges", len(e.ranges))
	return nil
}

// reduceGroup runs reduction passes 1 through 6 on a single group. Aggregate
// roots are left alone; their items are reduced as components.
func (e *Expr) reduceGroup(g *group, tm TypeManager) error {
	if g.aggregate {
		return nil
	}
	seq, err := e.invocations(g.nodes)
	if err != nil {
		return err
	}
	if seq, err = e.calculi(seq); err != nil {
		return err
	}
	if seq, err = e.namedOps(seq); err != nil {
		return err
	}
	if seq, err = e.postfix(seq); err != nil {
		return err
	}
	if seq, err = e.prefix(seq); err != nil {
		return err
	}
	if seq, err = e.binary(seq, tm, g.pos); err != nil {
		return err
	}
	g.nodes = seq
	return nil
}

// isOp reports whether n is an unreduced operator of kind k.
func (e *Expr) isOp(n *node, k opKind) bool {
	return n.kind == nodeOp && e.ops[n.ref].kind == k
}

// operand reports whether n can be an operand, i.e. is not an unreduced
// operator.
func operand(n *node) bool {
	return n.kind != nodeOp
}

// reverse reverses a node list in place.
func reverse(seq []*node) {
	for i, j := 0, len(seq)-1; i < j; i, j = i+1, j-1 {
		seq[i], seq[j] = seq[j], seq[i]
	}
}

// invocations pairs each function or consumer identifier with the node
// following it. The scan runs right to left so that in "f g x" the parameter
// of f is the already built g(x). A consumer followed by a range descriptor
// becomes that descriptor's iteration consumer instead.
func (e *Expr) invocations(seq []*node) ([]*node, error) {
	out := make([]*node, 0, len(seq))
	for i := len(seq) - 1; i >= 0; i-- {
		n := seq[i]
		if n.kind != nodeIdent {
			out = append(out, n)
			continue
		}
		id := &e.idents[n.ref]
		if id.role != roleFunction && id.role != roleConsumer {
			out = append(out, n)
			continue
		}
		if len(out) == 0 {
			return nil, &SemanticError{Col: n.pos, Text: id.name, Msg: msgMissingParam}
		}
		p := out[len(out)-1]
		switch {
		case e.isOp(p, opCalculus):
			// f ' x: the function belongs to the calculus descriptor.
			out = append(out, n)
		case id.role == roleConsumer && p.kind == nodeRange:
			p.rng.consumer = n.ref
		case !operand(p):
			return nil, &SemanticError{Col: p.pos, Text: e.ops[p.ref].name, Msg: msgOperand}
		default:
			out[len(out)-1] = e.invocation(n, p)
		}
	}
	reverse(out)
	return out, nil
}

// invocation creates a call of the identifier fn on p, wrapped in a group so
// that its value is cached.
func (e *Expr) invocation(fn, p *node) *node {
	call := &node{kind: nodeCall, pos: fn.pos, ref: fn.ref, left: p}
	g := &group{nodes: []*node{call}, role: groupCall, pos: fn.pos, slot: -1}
	e.calls = append(e.calls, g)
	return &node{kind: nodeGroup, pos: fn.pos, grp: g}
}

// calculi replaces each (identifier, calculus modifier, parameter) triple with
// a calculus descriptor.
func (e *Expr) calculi(seq []*node) ([]*node, error) {
	out := make([]*node, 0, len(seq))
	for i := 0; i < len(seq); i++ {
		n := seq[i]
		if !e.isOp(n, opCalculus) {
			out = append(out, n)
			continue
		}
		if len(out) == 0 || out[len(out)-1].kind != nodeIdent {
			return nil, &SemanticError{Col: n.pos, Text: e.ops[n.ref].name, Msg: msgCalculusIdent}
		}
		if i+1 >= len(seq) {
			return nil, &SemanticError{Col: n.pos, Text: e.ops[n.ref].name, Msg: msgMissingParam}
		}
		p := seq[i+1]
		if !operand(p) {
			return nil, &SemanticError{Col: p.pos, Text: e.ops[p.ref].name, Msg: msgOperand}
		}
		fn := out[len(out)-1]
		out[len(out)-1] = &node{
			kind: nodeCalc,
			pos:  fn.pos,
			left: p,
			calc: &calculus{fn: fn.ref, op: n.ref},
		}
		i++
	}
	return out, nil
}

// namedOps replaces each named operator identifier and the node following it
// with a prefix application of the linked operator.
func (e *Expr) namedOps(seq []*node) ([]*node, error) {
	out := make([]*node, 0, len(seq))
	for i := len(seq) - 1; i >= 0; i-- {
		n := seq[i]
		if n.kind != nodeIdent || e.idents[n.ref].role != roleNamedOp {
			out = append(out, n)
			continue
		}
		id := &e.idents[n.ref]
		if len(out) == 0 {
			return nil, &SemanticError{Col: n.pos, Text: id.name, Msg: msgMissingParam}
		}
		p := out[len(out)-1]
		if !operand(p) {
			return nil, &SemanticError{Col: p.pos, Text: e.ops[p.ref].name, Msg: msgOperand}
		}
		out[len(out)-1] = &node{kind: nodeUnary, pos: n.pos, ref: id.op, left: p}
	}
	reverse(out)
	return out, nil
}

// postfix applies each postfix operator to the node preceding it, left to
// right, so that "3!!" is "(3!)!".
func (e *Expr) postfix(seq []*node) ([]*node, error) {
	out := make([]*node, 0, len(seq))
	for _, n := range seq {
		if !e.isOp(n, opPostfix) {
			out = append(out, n)
			continue
		}
		if len(out) == 0 || !operand(out[len(out)-1]) {
			return nil, &SemanticError{Col: n.pos, Text: e.ops[n.ref].name, Msg: msgOperand}
		}
		out[len(out)-1] = &node{kind: nodeUnary, pos: n.pos, ref: n.ref, left: out[len(out)-1]}
	}
	return out, nil
}

// prefix applies each prefix operator to the node following it, right to
// left, so that "√√x" is "√(√x)".
func (e *Expr) prefix(seq []*node) ([]*node, error) {
	out := make([]*node, 0, len(seq))
	for i := len(seq) - 1; i >= 0; i-- {
		n := seq[i]
		if !e.isOp(n, opPrefix) {
			out = append(out, n)
			continue
		}
		if len(out) == 0 || !operand(out[len(out)-1]) {
			return nil, &SemanticError{Col: n.pos, Text: e.ops[n.ref].name, Msg: msgOperand}
		}
		out[len(out)-1] = &node{kind: nodeUnary, pos: n.pos, ref: n.ref, left: out[len(out)-1]}
	}
	reverse(out)
	return out, nil
}

// binary reduces binary operators in order of descending precedence. A
// leading binary operator gets an implicit zero left operand, so "- 5" is
// "0 - 5". The result must be exactly one node, or none for an empty group.
func (e *Expr) binary(seq []*node, tm TypeManager, pos int) ([]*node, error) {
	if len(seq) == 0 {
		return seq, nil
	}
	if e.isOp(seq[0], opBinary) {
		zero := &node{kind: nodeNum, pos: seq[0].pos, text: "0", val: tm.Zero()}
		seq = append([]*node{zero}, seq...)
	}
	var ops []*node
	for _, n := range seq {
		if e.isOp(n, opBinary) {
			ops = append(ops, n)
		}
	}
	e.sortops(ops)
	for _, op := range ops {
		k := indexOf(seq, op)
		if k <= 0 || k+1 >= len(seq) || !operand(seq[k-1]) || !operand(seq[k+1]) {
			return nil, &SemanticError{Col: op.pos, Text: e.ops[op.ref].name, Msg: msgOperand}
		}
		b := &node{kind: nodeBinary, pos: op.pos, ref: op.ref, left: seq[k-1], right: seq[k+1]}
		seq = splice(seq, k-1, k+2, b)
	}
	if len(seq) != 1 {
		return nil, &SemanticError{Col: seq[1].pos, Msg: msgResidual}
	}
	return seq, nil
}

// sortops stably sorts operator nodes by descending precedence. Insertion
// sort keeps operators of equal precedence in discovery order.
func (e *Expr) sortops(ops []*node) {
	for i := 1; i < len(ops); i++ {
		for j := i; j > 0 && e.ops[ops[j].ref].prec > e.ops[ops[j-1].ref].prec; j-- {
			ops[j], ops[j-1] = ops[j-1], ops[j]
		}
	}
}

func indexOf(seq []*node, n *node) int {
	for i, m := range seq {
		if m == n {
			return i
		}
	}
	return -1
}

// splice returns a new list with seq[i:j] replaced by n.
func splice(seq []*node, i, j int, n *node) []*node {
	out := make([]*node, 0, len(seq)-(j-i)+1)
	out = append(out, seq[:i]...)
	out = append(out, n)
	return append(out, seq[j:]...)
}

// finish assigns cache slots and records the names each cached group
// references, then computes the loop-step invalidation sets of each range.
func (e *Expr) finish() {
	e.slots = e.slots[:0]
	e.slots = append(e.slots, e.components...)
	e.slots = append(e.slots, e.calls...)
	for k, g := range e.slots {
		g.slot = k
		g.names = make(map[string]bool)
		g.callees = make(map[string]bool)
		walkGroup(g, func(n *node) bool {
			switch n.kind {
			case nodeIdent:
				g.names[e.idents[n.ref].name] = true
			case nodeCall:
				g.names[e.idents[n.ref].name] = true
				g.callees[e.idents[n.ref].name] = true
			case nodeCalc:
				g.names[e.idents[n.calc.fn].name] = true
				g.callees[e.idents[n.calc.fn].name] = true
			case nodeRange:
				if n.rng.consumer >= 0 {
					g.names[e.idents[n.rng.consumer].name] = true
				}
			}
			return true
		})
	}
	for _, r := range e.ranges {
		r.scope, r.dependents = nil, nil
		walkGroup(r.target, func(n *node) bool {
			if n.kind != nodeGroup && n.kind != nodeAggregate {
				return true
			}
			g := n.grp
			if g.slot < 0 {
				return true
			}
			r.scope = append(r.scope, g)
			if g.names[r.v] || g.names[deltaName(r.v)] {
				r.dependents = append(r.dependents, g)
			}
			return true
		})
	}
}
