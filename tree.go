package treecalc

import (
	"strings"

	"github.com/go-kit/log"
)

// Expr is an expression tree. A tree is built from tokens, attributed against
// a symbol table, reduced, and then evaluated with a Context any number of
// times. An Expr must not be evaluated concurrently.
type Expr struct {
	// root is the outermost group.
	root *group

	// idents and ops are the identifier and operator arenas. Every occurrence
	// of a name refers to the same record by index.
	idents   []identRec
	identIdx map[string]int
	ops      []opRec
	opIdx    map[string]int

	// components are the parenthesized and aggregate item groups, innermost
	// first. calls are the groups synthesized to wrap invocations. Both are
	// cached during evaluation; slots lists them in cache slot order.
	components []*group
	calls      []*group
	slots      []*group

	// ranges are all range descriptors in the tree in source order.
	ranges []*rangeDesc

	attributed bool
	reduced    bool

	logger log.Logger
}

func newExpr() *Expr {
	return &Expr{
		identIdx: make(map[string]int),
		opIdx:    make(map[string]int),
		logger:   log.NewNopLogger(),
	}
}

// ident interns an identifier name and returns its arena index.
func (e *Expr) ident(name string, pos int) int {
	if k, ok := e.identIdx[name]; ok {
		return k
	}
	k := len(e.idents)
	e.idents = append(e.idents, identRec{name: name, pos: pos, op: -1})
	e.identIdx[name] = k
	return k
}

// op interns an operator name and returns its arena index.
func (e *Expr) op(name string, pos int) int {
	if k, ok := e.opIdx[name]; ok {
		return k
	}
	k := len(e.ops)
	e.ops = append(e.ops, opRec{name: name, pos: pos})
	e.opIdx[name] = k
	return k
}

func (e *Expr) newGroup(parent *group, role groupRole, pos int) *group {
	return &group{parent: parent, role: role, pos: pos, slot: -1}
}

// Build constructs an unattributed tree from a token stream. The shape of the
// tree mirrors the nesting of parentheses and range brackets.
func Build(toks []Token) (*Expr, error) {
	e := newExpr()
	e.root = e.newGroup(nil, groupRoot, 1)
	cur := e.root
	end := 1
	for _, tok := range toks {
		var err error
		end = tok.Pos
		switch tok.Kind {
		case TokenNum:
			cur.nodes = append(cur.nodes, &node{kind: nodeNum, pos: tok.Pos, text: tok.Text})
		case TokenQuoted:
			cur.nodes = append(cur.nodes, &node{kind: nodeText, pos: tok.Pos, text: tok.Text})
		case TokenIdent:
			cur.nodes = append(cur.nodes, &node{kind: nodeIdent, pos: tok.Pos, ref: e.ident(tok.Text, tok.Pos)})
		case TokenOp:
			cur.nodes = append(cur.nodes, &node{kind: nodeOp, pos: tok.Pos, ref: e.op(tok.Text, tok.Pos)})
		case TokenOpen:
			g := e.newGroup(cur, groupParen, tok.Pos)
			cur.nodes = append(cur.nodes, &node{kind: nodeGroup, pos: tok.Pos, grp: g})
			cur = g
		case TokenClose:
			cur, err = e.closeParen(cur, tok)
		case TokenComma:
			cur, err = e.comma(cur, tok)
		case TokenRangeOpen:
			r := &rangeDesc{pos: tok.Pos, parent: cur, lower: -1, upper: -1, consumer: -1}
			r.endpoints = e.newGroup(cur, groupEndpoints, tok.Pos)
			r.endpoints.rng = r
			cur.nodes = append(cur.nodes, &node{kind: nodeRange, pos: tok.Pos, rng: r})
			e.ranges = append(e.ranges, r)
			cur = r.endpoints
		case TokenRangeClose:
			cur, err = e.closeBracket(cur, tok)
		default:
			err = &NestingError{Col: tok.Pos, Msg: msgUnknownToken + " " + tok.String()}
		}
		if err != nil {
			return nil, err
		}
	}
	// Unwind layers that end implicitly at the end of input.
	for cur != e.root {
		switch cur.role {
		case groupItem:
			e.components = append(e.components, cur)
			cur = cur.parent
		case groupTarget:
			cur = cur.rng.parent
		case groupEndpoints:
			return nil, &NestingError{Col: end, Msg: msgBracketOpen}
		default:
			return nil, &NestingError{Col: end, Msg: msgTooFewClose}
		}
	}
	return e, nil
}

// closeParen matures the current group on a closing parenthesis and returns
// the group that becomes current.
func (e *Expr) closeParen(cur *group, tok Token) (*group, error) {
	for {
		switch cur.role {
		case groupItem:
			e.components = append(e.components, cur)
			cur = cur.parent
		case groupTarget:
			// The target layer ends with the enclosing group. Discard it and
			// close the descriptor's parent instead.
			cur = cur.rng.parent
		case groupParen:
			e.components = append(e.components, cur)
			return cur.parent, nil
		case groupEndpoints:
			return nil, &NestingError{Col: tok.Pos, Msg: msgBracketParen}
		default:
			return nil, &NestingError{Col: tok.Pos, Msg: msgExcessClose}
		}
	}
}

// comma handles an aggregate separator and returns the group for the next
// aggregate member.
func (e *Expr) comma(cur *group, tok Token) (*group, error) {
	for cur.role == groupTarget {
		cur = cur.rng.parent
	}
	switch {
	case cur.role == groupEndpoints:
		return nil, &NestingError{Col: tok.Pos, Msg: msgBracketComma}
	case cur.role == groupItem:
		e.components = append(e.components, cur)
		cur = cur.parent
	case !cur.aggregate:
		// First comma: the existing contents become the first member.
		first := e.newGroup(cur, groupItem, cur.pos)
		first.nodes = cur.nodes
		for _, n := range first.nodes {
			reparent(n, first)
		}
		e.components = append(e.components, first)
		cur.nodes = []*node{{kind: nodeGroup, pos: cur.pos, grp: first}}
		cur.aggregate = true
	}
	item := e.newGroup(cur, groupItem, tok.Pos)
	cur.nodes = append(cur.nodes, &node{kind: nodeGroup, pos: tok.Pos, grp: item})
	return item, nil
}

// reparent updates back-references of a node moved into g.
func reparent(n *node, g *group) {
	switch n.kind {
	case nodeGroup:
		n.grp.parent = g
	case nodeRange:
		n.rng.parent = g
		n.rng.endpoints.parent = g
		if n.rng.target != nil {
			n.rng.target.parent = g
		}
	}
}

// closeBracket ends a range descriptor's endpoints and returns its target
// layer.
func (e *Expr) closeBracket(cur *group, tok Token) (*group, error) {
	if cur.role != groupEndpoints {
		return nil, &NestingError{Col: tok.Pos, Msg: msgBracketClose}
	}
	r := cur.rng
	r.target = e.newGroup(r.parent, groupTarget, tok.Pos)
	r.target.rng = r
	return r.target, nil
}

// String creates a string representation of the tree. Binary and unary
// operations are fully parenthesized; unreduced sequences appear in braces.
func (e *Expr) String() string {
	var b strings.Builder
	e.fmtGroup(&b, e.root)
	return b.String()
}

// Vars returns the names of identifiers that are looked up as variables when
// evaluating the expression. Uses of a name inside the target of a range
// binding that name are not lookups.
func (e *Expr) Vars() []string {
	loop := make(map[string]bool, len(e.ranges))
	for _, r := range e.ranges {
		loop[r.v] = true
	}
	seen := make(map[string]bool)
	bound := make(map[string]int)
	var visit func(n *node)
	visitGroup := func(g *group) {
		if g == nil {
			return
		}
		for _, n := range g.nodes {
			visit(n)
		}
	}
	visit = func(n *node) {
		if n == nil {
			return
		}
		switch n.kind {
		case nodeIdent:
			id := &e.idents[n.ref]
			if bound[id.name] > 0 {
				return
			}
			switch id.role {
			case roleVariable, roleUnknown, roleUnresolved:
				seen[id.name] = true
			case roleLocal:
				// Shared with a loop variable, but free here.
				if loop[id.name] {
					seen[id.name] = true
				}
			}
		case nodeGroup, nodeAggregate:
			visitGroup(n.grp)
		case nodeRange:
			r := n.rng
			visitGroup(r.endpoints)
			visitGroup(r.lo)
			visitGroup(r.hi)
			visitGroup(r.delta)
			if r.v != "" {
				bound[r.v]++
				bound[deltaName(r.v)]++
			}
			visitGroup(r.target)
			if r.v != "" {
				bound[r.v]--
				bound[deltaName(r.v)]--
			}
		}
		visit(n.left)
		visit(n.right)
	}
	visitGroup(e.root)
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sortstrs(names)
	return names
}

// sortstrs sorts a string slice without using package sort because that has
// reflection and allocation problems.
func sortstrs(names []string) {
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j] < names[j-1]; j-- {
			names[j], names[j-1] = names[j-1], names[j]
		}
	}
}
