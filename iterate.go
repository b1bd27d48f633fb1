package treecalc

import (
	"strconv"

	"github.com/go-kit/log/level"
)

// iterate evaluates a range descriptor.
func (ctx *Context) iterate(r *rangeDesc) (Value, error) {
	var cons interface{}
	if r.consumer >= 0 {
		name := ctx.e.idents[r.consumer].name
		sym, err := ctx.symbol(name)
		if err != nil {
			return nil, err
		}
		c, ok := sym.(*Consumer)
		if !ok {
			return nil, &EvalError{Name: name, Msg: "not a consumer"}
		}
		cons = c.New()
	}
	if r.point {
		return ctx.point(r, cons)
	}
	lo, err := ctx.evalGroup(r.lo)
	if err != nil {
		return nil, err
	}
	hi, err := ctx.evalGroup(r.hi)
	if err != nil {
		return nil, err
	}
	delta, err := ctx.evalGroup(r.delta)
	if err != nil {
		return nil, err
	}
	switch c := cons.(type) {
	case nil:
		return ctx.loop(r, &collector{}, lo, hi, delta)
	case IterationConsumer:
		return ctx.loop(r, c, lo, hi, delta)
	case NumericalAnalysis:
		return ctx.analyze(r, c, lo, hi, delta)
	default:
		return nil, &EvalError{Name: ctx.e.idents[r.consumer].name, Msg: "consumer produced an unusable accumulator"}
	}
}

// point evaluates an evaluation point binding. Without a consumer, the result
// is the target's value.
func (ctx *Context) point(r *rangeDesc, cons interface{}) (Value, error) {
	x, err := ctx.evalGroup(r.lo)
	if err != nil {
		return nil, err
	}
	restore := ctx.bind(r.v, &Variable{Name: r.v, Value: x})
	defer restore()
	if err := ctx.tick(r); err != nil {
		return nil, err
	}
	switch c := cons.(type) {
	case nil:
		return ctx.evalGroup(r.target)
	case IterationConsumer:
		if err := c.Init(); err != nil {
			return nil, err
		}
		c.SetIterationValue(x)
		y, err := ctx.evalGroup(r.target)
		if err != nil {
			return nil, err
		}
		if err := c.Accept(y); err != nil {
			return nil, err
		}
		return c.Result()
	default:
		return nil, &EvalError{Name: ctx.e.idents[r.consumer].name, Msg: "consumer requires a range span"}
	}
}

// loop runs the step loop of a range span:
//
//	init: x = lo, advanced once by delta if the lower bound is open
//	test: x upper hi, ending on a zero result
//	step: feed x to the consumer, evaluate the target, feed the result
//	advance: x += delta
func (ctx *Context) loop(r *rangeDesc, c IterationConsumer, lo, hi, delta Value) (Value, error) {
	upper, err := ctx.comparison(r.upper)
	if err != nil {
		return nil, err
	}
	if ctx.tm.IsZero(delta) {
		return nil, &EvalError{Name: r.v, Msg: "range step is zero"}
	}
	dv := &Variable{Name: deltaName(r.v), Value: delta}
	defer ctx.bind(dv.Name, dv)()
	v := &Variable{Name: r.v, Value: lo}
	defer ctx.bind(r.v, v)()
	x := lo
	if ctx.e.ops[r.lower].name == "<" {
		if x, err = ctx.tm.Add(x, delta); err != nil {
			return nil, err
		}
	}
	if err := c.Init(); err != nil {
		return nil, err
	}
	steps := 0
	for {
		t, err := upper.Apply(x, hi)
		if err != nil {
			return nil, err
		}
		if ctx.tm.IsZero(t) {
			break
		}
		v.Value = x
		if err := ctx.tick(r); err != nil {
			return nil, err
		}
		steps++
		c.SetIterationValue(x)
		y, err := ctx.evalGroup(r.target)
		if err != nil {
			return nil, err
		}
		if err := c.Accept(y); err != nil {
			return nil, err
		}
		if x, err = ctx.tm.Add(x, delta); err != nil {
			return nil, err
		}
	}
	level.Debug(ctx.logger).Log("msg", "range loop finished", "var", r.v, "steps", steps)
	return c.Result()
}

// analyze hands a range span to a numerical analysis consumer.
func (ctx *Context) analyze(r *rangeDesc, c NumericalAnalysis, lo, hi, delta Value) (Value, error) {
	dv := &Variable{Name: deltaName(r.v), Value: delta}
	defer ctx.bind(dv.Name, dv)()
	v := &Variable{Name: r.v, Value: lo}
	defer ctx.bind(r.v, v)()
	d := RangeDigest{
		Var:       r.v,
		Lo:        lo,
		Hi:        hi,
		Delta:     delta,
		LowerOpen: ctx.e.ops[r.lower].name == "<",
		Upper:     ctx.e.ops[r.upper].name,
		Types:     ctx.tm,
		Config:    ctx.cfg,
		F: func(x Value) (Value, error) {
			v.Value = x
			if err := ctx.tick(r); err != nil {
				return nil, err
			}
			return ctx.evalGroup(r.target)
		},
	}
	return c.Evaluate(&d)
}

// comparison resolves a bound comparison operator.
func (ctx *Context) comparison(k int) (*BinaryOperator, error) {
	name := ctx.e.ops[k].name
	sym, err := ctx.symbol(name)
	if err != nil {
		return nil, err
	}
	op, ok := sym.(*BinaryOperator)
	if !ok {
		return nil, &EvalError{Name: name, Msg: "not a binary operator"}
	}
	return op, nil
}

// tick accounts for one loop step and invalidates the target's cached groups
// according to the step caching mode.
func (ctx *Context) tick(r *rangeDesc) error {
	ctx.steps++
	if ctx.cfg.MaxIterations > 0 && ctx.steps > ctx.cfg.MaxIterations {
		return &EvalError{Name: r.v, Msg: "iteration limit " + strconv.Itoa(ctx.cfg.MaxIterations) + " exceeded"}
	}
	ctx.metrics.step()
	switch ctx.cfg.StepCaching {
	case StepRecompute:
		ctx.reset(r.scope)
	default:
		ctx.reset(r.dependents)
		for _, g := range r.scope {
			if ctx.impure(g) {
				ctx.reset([]*group{g})
			}
		}
	}
	return nil
}

// impure reports whether g invokes a function that is not marked pure. Such
// a function may read the loop variable through the table.
func (ctx *Context) impure(g *group) bool {
	for name := range g.callees {
		sym, ok := ctx.Lookup(name)
		if !ok {
			continue
		}
		if f, ok := sym.(*Function); ok && !f.Pure {
			return true
		}
	}
	return false
}
