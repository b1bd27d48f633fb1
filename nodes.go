package treecalc

import (
	"strconv"
	"strings"
)

// node is a node in an expression tree. It is a tagged variant: kind decides
// which of the remaining fields are meaningful.
type node struct {
	kind nodeKind
	pos  int

	// text is the source text of nodeNum and nodeText.
	text string
	// val is the converted value of nodeNum and nodeText after attribution.
	val Value

	// ref indexes the tree's identifier arena for nodeIdent and nodeCall, or
	// its operator arena for nodeOp, nodeUnary, and nodeBinary.
	ref int

	// left is the parameter of nodeCall, nodeUnary, and nodeCalc, and the left
	// operand of nodeBinary. right is the right operand of nodeBinary.
	left  *node
	right *node

	grp  *group     // nodeGroup, nodeAggregate
	calc *calculus  // nodeCalc
	rng  *rangeDesc // nodeRange
}

type nodeKind int8

const (
	nodeNone nodeKind = iota

	nodeNum   // numeric literal
	nodeText  // quoted string literal
	nodeIdent // identifier, shared per name through the arena
	nodeOp    // operator not yet reduced

	nodeAggregate // comma list; grp is the aggregate root, whose nodes are items
	nodeCall      // function or consumer ref applied to left
	nodeUnary     // prefix or postfix operator ref applied to left
	nodeBinary    // left op right
	nodeCalc      // calculus descriptor applied to left
	nodeRange     // range descriptor
	nodeGroup     // nested group
)

func (k nodeKind) String() string {
	switch k {
	case nodeNone:
		return "None"
	case nodeNum:
		return "Num"
	case nodeText:
		return "Text"
	case nodeIdent:
		return "Ident"
	case nodeOp:
		return "Op"
	case nodeAggregate:
		return "Aggregate"
	case nodeCall:
		return "Call"
	case nodeUnary:
		return "Unary"
	case nodeBinary:
		return "Binary"
	case nodeCalc:
		return "Calc"
	case nodeRange:
		return "Range"
	case nodeGroup:
		return "Group"
	default:
		return "nodeKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// group is a nesting unit: an ordered node sequence with a back-reference to
// the enclosing group.
type group struct {
	nodes  []*node
	parent *group
	role   groupRole
	pos    int

	// aggregate marks an aggregate root, whose nodes are its item groups.
	aggregate bool
	// rng is the descriptor owning an endpoints or target group.
	rng *rangeDesc

	// slot is the group's index in the evaluation cache, or -1 if the group
	// is evaluated directly every time.
	slot int
	// names is the set of identifiers referenced anywhere under the group.
	// callees is the subset naming invoked functions and calculus targets.
	// Both are set after reduction for cached groups.
	names   map[string]bool
	callees map[string]bool
}

type groupRole int8

const (
	groupRoot      groupRole = iota
	groupParen               // parenthesized
	groupItem                // member of an aggregate root
	groupCall                // synthesized to wrap an invocation
	groupEndpoints           // flat range endpoints before splitting
	groupTarget              // range target layer
	groupBound               // lo, hi, or delta split out of endpoints
)

// identRec is the canonical record for every occurrence of one identifier.
type identRec struct {
	name string
	pos  int
	role role
	// op indexes the operator arena for roleNamedOp.
	op  int
	sym Symbol
}

type role int8

const (
	roleUnresolved role = iota
	roleUnknown
	roleVariable
	roleLocal
	roleFunction
	roleConsumer
	roleNamedOp
)

// opRec is the canonical record for every occurrence of one operator.
type opRec struct {
	name string
	pos  int
	kind opKind
	prec int
	sym  Symbol
}

type opKind int8

const (
	opUnresolved opKind = iota
	opBinary
	opPrefix
	opPostfix
	opCalculus
	// opAssign and opDelta are range descriptor syntax.
	opAssign
	opDelta
)

// Range descriptor syntax operators.
const (
	assignOp = "="
	deltaOp  = "<>"
)

// walk calls fn on n and every node under it, including inside groups and
// range descriptors. If fn returns false, walk does not descend into n.
func walk(n *node, fn func(*node) bool) {
	if n == nil || !fn(n) {
		return
	}
	walk(n.left, fn)
	walk(n.right, fn)
	switch n.kind {
	case nodeGroup, nodeAggregate:
		walkGroup(n.grp, fn)
	case nodeCalc:
		// The parameter is left; the descriptor holds only references.
	case nodeRange:
		r := n.rng
		walkGroup(r.endpoints, fn)
		walkGroup(r.lo, fn)
		walkGroup(r.hi, fn)
		walkGroup(r.delta, fn)
		walkGroup(r.target, fn)
	}
}

func walkGroup(g *group, fn func(*node) bool) {
	if g == nil {
		return
	}
	for _, n := range g.nodes {
		walk(n, fn)
	}
}

func (e *Expr) fmtGroup(b *strings.Builder, g *group) {
	if g.aggregate {
		b.WriteByte('(')
		for i, n := range g.nodes {
			if i > 0 {
				b.WriteString(", ")
			}
			e.fmt(b, n)
		}
		b.WriteByte(')')
		return
	}
	switch len(g.nodes) {
	case 0:
		b.WriteString("()")
	case 1:
		e.fmt(b, g.nodes[0])
	default:
		// Unreduced sequences use braces.
		b.WriteByte('{')
		for i, n := range g.nodes {
			if i > 0 {
				b.WriteByte(' ')
			}
			e.fmt(b, n)
		}
		b.WriteByte('}')
	}
}

func (e *Expr) fmt(b *strings.Builder, n *node) {
	switch n.kind {
	case nodeNum:
		b.WriteString(n.text)
	case nodeText:
		b.WriteString(strconv.Quote(n.text))
	case nodeIdent:
		b.WriteString(e.idents[n.ref].name)
	case nodeOp:
		b.WriteString(e.ops[n.ref].name)
	case nodeAggregate, nodeGroup:
		e.fmtGroup(b, n.grp)
	case nodeCall:
		b.WriteString(e.idents[n.ref].name)
		e.fmtParam(b, n.left)
	case nodeUnary:
		b.WriteByte('(')
		if e.ops[n.ref].kind == opPostfix {
			e.fmt(b, n.left)
			b.WriteString(e.ops[n.ref].name)
		} else {
			b.WriteString(e.ops[n.ref].name)
			e.fmt(b, n.left)
		}
		b.WriteByte(')')
	case nodeBinary:
		b.WriteByte('(')
		e.fmt(b, n.left)
		b.WriteByte(' ')
		b.WriteString(e.ops[n.ref].name)
		b.WriteByte(' ')
		e.fmt(b, n.right)
		b.WriteByte(')')
	case nodeCalc:
		b.WriteString(e.idents[n.calc.fn].name)
		b.WriteString(e.ops[n.calc.op].name)
		e.fmtParam(b, n.left)
	case nodeRange:
		e.fmtRange(b, n.rng)
	default:
		panic("treecalc: invalid node kind " + n.kind.String() + " after writing " + b.String())
	}
}

// fmtParam writes a parameter in parentheses unless it already has them.
func (e *Expr) fmtParam(b *strings.Builder, n *node) {
	if n.kind == nodeBinary || n.kind == nodeUnary || n.kind == nodeAggregate ||
		(n.kind == nodeGroup && n.grp.aggregate) {
		e.fmt(b, n)
		return
	}
	b.WriteByte('(')
	e.fmt(b, n)
	b.WriteByte(')')
}

func (e *Expr) fmtRange(b *strings.Builder, r *rangeDesc) {
	if r.consumer >= 0 {
		b.WriteString(e.idents[r.consumer].name)
	}
	b.WriteByte('[')
	switch {
	case r.lo == nil:
		// Not yet split.
		for i, n := range r.endpoints.nodes {
			if i > 0 {
				b.WriteByte(' ')
			}
			e.fmt(b, n)
		}
	case r.point:
		b.WriteString(r.v)
		b.WriteString(" = ")
		e.fmtGroup(b, r.lo)
	default:
		e.fmtGroup(b, r.lo)
		b.WriteByte(' ')
		b.WriteString(e.ops[r.lower].name)
		b.WriteByte(' ')
		b.WriteString(r.v)
		b.WriteByte(' ')
		b.WriteString(e.ops[r.upper].name)
		b.WriteByte(' ')
		e.fmtGroup(b, r.hi)
		b.WriteString(" <> ")
		e.fmtGroup(b, r.delta)
	}
	b.WriteString("] ")
	if r.target != nil {
		e.fmtGroup(b, r.target)
	}
}
