package treecalc

import (
	"sort"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Context is a context for evaluating expressions: a type manager, a symbol
// table, and the per-evaluation caches. It is not safe to use a Context
// concurrently.
type Context struct {
	tm      TypeManager
	tab     SymbolTable
	cfg     Config
	logger  log.Logger
	metrics *Metrics

	// e is the tree being evaluated, or nil between evaluations.
	e *Expr
	// vals and done are the group value cache, indexed by slot.
	vals []Value
	done []bool
	// syms caches symbol lookups by name for the current evaluation.
	syms map[string]Symbol
	// steps counts range loop steps for the iteration limit.
	steps int
}

// NewContext creates a new evaluation context.
func NewContext(tm TypeManager, tab SymbolTable, opts ...Option) *Context {
	s := newSettings(opts)
	return &Context{
		tm:      tm,
		tab:     tab,
		cfg:     s.cfg,
		logger:  s.logger,
		metrics: s.metrics,
	}
}

// Types returns the context's type manager.
func (ctx *Context) Types() TypeManager {
	return ctx.tm
}

// Table returns the context's symbol table.
func (ctx *Context) Table() SymbolTable {
	return ctx.tab
}

// Config returns the context's configuration.
func (ctx *Context) Config() Config {
	return ctx.cfg
}

// Eval evaluates a reduced expression. Each call starts with a fresh cache,
// so changes to the symbol table between calls are always observed. Within
// one call, every cached group is computed at most once, except as range
// loops invalidate them.
func (ctx *Context) Eval(e *Expr) (Value, error) {
	if ctx.e != nil {
		panic("treecalc: Eval during Eval")
	}
	if !e.attributed || !e.reduced {
		return nil, &EvalError{Msg: "expression is not attributed and reduced"}
	}
	ctx.e = e
	ctx.vals = make([]Value, len(e.slots))
	ctx.done = make([]bool, len(e.slots))
	ctx.syms = make(map[string]Symbol, len(e.idents)+len(e.ops))
	ctx.steps = 0
	defer func() {
		ctx.e = nil
		ctx.syms = nil
	}()
	ctx.metrics.evaluation()
	if len(e.root.nodes) == 0 && !e.root.aggregate {
		return nil, &EvalError{Msg: "empty expression"}
	}
	v, err := ctx.evalGroup(e.root)
	if err != nil {
		level.Debug(ctx.logger).Log("msg", "evaluation failed", "expr", e, "err", err)
		return nil, err
	}
	return v, nil
}

// Lookup finds a symbol as evaluation would: through the current
// evaluation's symbol cache if one is live, else the table.
func (ctx *Context) Lookup(name string) (Symbol, bool) {
	if s, ok := ctx.syms[name]; ok {
		return s, true
	}
	return ctx.tab.Lookup(name)
}

// symbol resolves a name through the evaluation's symbol cache.
func (ctx *Context) symbol(name string) (Symbol, error) {
	if s, ok := ctx.syms[name]; ok {
		return s, nil
	}
	s, ok := ctx.tab.Lookup(name)
	if !ok {
		return nil, &NameError{Name: name, Suggestions: ctx.suggest(name)}
	}
	ctx.syms[name] = s
	return s, nil
}

// bind binds sym to name in both the table and the symbol cache. The returned
// function undoes both.
func (ctx *Context) bind(name string, sym Symbol) func() {
	restore := ctx.tab.Bind(name, sym)
	prev, had := ctx.syms[name]
	ctx.syms[name] = sym
	return func() {
		restore()
		if had {
			ctx.syms[name] = prev
		} else {
			delete(ctx.syms, name)
		}
	}
}

// maxSuggestions is the number of names a NameError suggests at most.
const maxSuggestions = 3

// suggest finds names similar to a missing one, if the table can list its
// names. Only symbols that are written as identifiers are suggested.
func (ctx *Context) suggest(name string) []string {
	lister, ok := ctx.tab.(interface{ Names() []string })
	if !ok {
		return nil
	}
	var names []string
	for _, cand := range lister.Names() {
		sym, _ := ctx.tab.Lookup(cand)
		switch sym.(type) {
		case *Variable, *Function, *Consumer, *NamedOperator:
			names = append(names, cand)
		}
	}
	ranks := fuzzy.RankFindFold(name, names)
	for _, cand := range names {
		d := fuzzy.LevenshteinDistance(strings.ToLower(name), strings.ToLower(cand))
		if d <= 2 && !ranked(ranks, cand) {
			ranks = append(ranks, fuzzy.Rank{Source: name, Target: cand, Distance: d, OriginalIndex: -1})
		}
	}
	sort.Stable(ranks)
	var r []string
	for _, rk := range ranks {
		if len(r) == maxSuggestions {
			break
		}
		r = append(r, rk.Target)
	}
	return r
}

func ranked(ranks fuzzy.Ranks, name string) bool {
	for _, r := range ranks {
		if r.Target == name {
			return true
		}
	}
	return false
}

// evalGroup evaluates a group, consulting and filling the cache for cached
// groups.
func (ctx *Context) evalGroup(g *group) (Value, error) {
	if g.slot >= 0 {
		if ctx.done[g.slot] {
			ctx.metrics.hit()
			return ctx.vals[g.slot], nil
		}
		ctx.metrics.miss()
	}
	var v Value
	switch {
	case g.aggregate:
		vec := make(Vector, 0, len(g.nodes))
		for _, n := range g.nodes {
			x, err := ctx.eval(n)
			if err != nil {
				return nil, err
			}
			vec = append(vec, x)
		}
		v = vec
	case len(g.nodes) == 0:
		// Empty parentheses are the empty parameter list.
		v = Vector{}
	case len(g.nodes) == 1:
		x, err := ctx.eval(g.nodes[0])
		if err != nil {
			return nil, err
		}
		v = x
	default:
		return nil, &EvalError{Msg: msgResidual}
	}
	if g.slot >= 0 {
		ctx.vals[g.slot] = v
		ctx.done[g.slot] = true
	}
	return v, nil
}

// reset marks cached groups as unevaluated.
func (ctx *Context) reset(gs []*group) {
	for _, g := range gs {
		ctx.done[g.slot] = false
		ctx.vals[g.slot] = nil
	}
}

// eval evaluates a single node.
func (ctx *Context) eval(n *node) (Value, error) {
	switch n.kind {
	case nodeNum, nodeText:
		if n.val == nil {
			return nil, &EvalError{Name: n.text, Msg: "literal is not attributed"}
		}
		return n.val, nil
	case nodeIdent:
		name := ctx.e.idents[n.ref].name
		sym, err := ctx.symbol(name)
		if err != nil {
			return nil, err
		}
		v, ok := sym.(*Variable)
		if !ok {
			return nil, &EvalError{Name: name, Msg: "not a variable"}
		}
		return v.Value, nil
	case nodeCall:
		return ctx.evalCall(n)
	case nodeUnary:
		name := ctx.e.ops[n.ref].name
		sym, err := ctx.symbol(name)
		if err != nil {
			return nil, err
		}
		op, ok := sym.(*UnaryOperator)
		if !ok {
			return nil, &EvalError{Name: name, Msg: "not a unary operator"}
		}
		x, err := ctx.eval(n.left)
		if err != nil {
			return nil, err
		}
		return op.Apply(x)
	case nodeBinary:
		name := ctx.e.ops[n.ref].name
		sym, err := ctx.symbol(name)
		if err != nil {
			return nil, err
		}
		op, ok := sym.(*BinaryOperator)
		if !ok {
			return nil, &EvalError{Name: name, Msg: "not a binary operator"}
		}
		l, err := ctx.eval(n.left)
		if err != nil {
			return nil, err
		}
		r, err := ctx.eval(n.right)
		if err != nil {
			return nil, err
		}
		return op.Apply(l, r)
	case nodeAggregate, nodeGroup:
		return ctx.evalGroup(n.grp)
	case nodeCalc:
		return ctx.evalCalc(n)
	case nodeRange:
		return ctx.iterate(n.rng)
	case nodeOp:
		return nil, &EvalError{Name: ctx.e.ops[n.ref].name, Msg: "unreduced operator"}
	default:
		panic("treecalc: invalid node kind " + n.kind.String())
	}
}

// evalCall evaluates a function invocation, or a consumer applied to a value
// rather than a range, in which case each member of the value is one step.
func (ctx *Context) evalCall(n *node) (Value, error) {
	name := ctx.e.idents[n.ref].name
	sym, err := ctx.symbol(name)
	if err != nil {
		return nil, err
	}
	x, err := ctx.eval(n.left)
	if err != nil {
		return nil, err
	}
	switch s := sym.(type) {
	case *Function:
		return s.Apply(x)
	case *Consumer:
		c, ok := s.New().(IterationConsumer)
		if !ok {
			return nil, &EvalError{Name: name, Msg: "consumer requires a range"}
		}
		vals, ok := x.(Vector)
		if !ok {
			vals = Vector{x}
		}
		return consume(c, vals)
	default:
		return nil, &EvalError{Name: name, Msg: "not a function"}
	}
}
