package treecalc

// rangeDesc is a range descriptor: either an evaluation point binding
// "[x = e] target" or a span "[lo < x <= hi <> delta] target".
type rangeDesc struct {
	pos int
	// parent is the group containing the descriptor's node.
	parent *group
	// endpoints holds the flat bracket contents until reduction splits them.
	endpoints *group
	// target is evaluated once per step.
	target *group
	// lo, hi, and delta are split out of endpoints. An evaluation point uses
	// only lo, for the bound value.
	lo, hi, delta *group

	point bool
	// v is the loop variable name.
	v string
	// lower and upper index the operator arena for the bound comparisons.
	lower, upper int
	// consumer indexes the identifier arena for the iteration consumer, or
	// is -1 to collect step values.
	consumer int

	// scope lists the cached groups inside target. dependents is the subset
	// that references the loop variable or its delta.
	scope      []*group
	dependents []*group
}

// deltaName is the name under which a range binds the step of its loop
// variable v.
func deltaName(v string) string {
	return "Δ" + v
}

// bound creates a bound group holding nodes split out of r's endpoints.
func (e *Expr) bound(r *rangeDesc, nodes []*node) *group {
	g := e.newGroup(r.parent, groupBound, r.pos)
	g.rng = r
	g.nodes = nodes
	for _, n := range nodes {
		reparent(n, g)
	}
	return g
}

// reduceRange classifies a range descriptor, splits its endpoints into bound
// groups, and reduces the bounds and the target.
func (e *Expr) reduceRange(r *rangeDesc, tm TypeManager) error {
	eps := r.endpoints.nodes
	if len(eps) >= 2 && e.isOp(eps[1], opAssign) {
		if err := e.splitPoint(r, eps); err != nil {
			return err
		}
	} else if err := e.splitSpan(r, eps, tm); err != nil {
		return err
	}
	r.endpoints.nodes = nil
	for _, g := range []*group{r.delta, r.lo, r.hi} {
		if g == nil {
			continue
		}
		if err := e.reduceGroup(g, tm); err != nil {
			return err
		}
		if len(g.nodes) == 0 {
			return &SemanticError{Col: r.pos, Msg: msgIncomplete}
		}
	}
	if len(r.target.nodes) == 0 {
		return &SemanticError{Col: r.pos, Msg: msgEmptyTarget}
	}
	return e.reduceGroup(r.target, tm)
}

// splitPoint handles "[x = e]".
func (e *Expr) splitPoint(r *rangeDesc, eps []*node) error {
	if eps[0].kind != nodeIdent || len(eps) < 3 {
		return &SemanticError{Col: r.pos, Msg: msgIncomplete}
	}
	if err := e.loopVar(r, eps[0]); err != nil {
		return err
	}
	r.point = true
	r.lo = e.bound(r, eps[2:])
	return nil
}

// splitSpan handles "[lo < x < hi <> delta]". The delta part is optional and
// defaults to one.
func (e *Expr) splitSpan(r *rangeDesc, eps []*node, tm TypeManager) error {
	rest := eps
	r.delta = nil
	for i, n := range rest {
		if e.isOp(n, opDelta) {
			r.delta = e.bound(r, rest[i+1:])
			rest = rest[:i]
			break
		}
	}
	if r.delta == nil {
		one := &node{kind: nodeNum, pos: r.pos, text: "1", val: tm.One()}
		r.delta = e.bound(r, []*node{one})
	}
	k := -1
	for i, n := range rest {
		if n.kind == nodeOp && (e.ops[n.ref].name == "<" || e.ops[n.ref].name == "<=") {
			k = i
			break
		}
	}
	if k <= 0 {
		return &SemanticError{Col: r.pos, Msg: msgIncomplete}
	}
	r.lo = e.bound(r, rest[:k])
	r.lower = rest[k].ref
	rest = rest[k+1:]
	if len(rest) < 3 || rest[0].kind != nodeIdent || !e.isOp(rest[1], opBinary) {
		return &SemanticError{Col: r.pos, Msg: msgIncomplete}
	}
	if err := e.loopVar(r, rest[0]); err != nil {
		return err
	}
	r.upper = rest[1].ref
	r.hi = e.bound(r, rest[2:])
	return nil
}

// loopVar records n as the loop variable of r.
func (e *Expr) loopVar(r *rangeDesc, n *node) error {
	id := &e.idents[n.ref]
	switch id.role {
	case roleUnresolved, roleUnknown, roleVariable, roleLocal:
	default:
		return &SemanticError{Col: n.pos, Text: id.name, Msg: msgLoopVar}
	}
	id.role = roleLocal
	r.v = id.name
	return nil
}
