package treecalc_test

import (
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zephyrtronium/treecalc"
	"github.com/zephyrtronium/treecalc/symtab"
)

func TestEval(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{"num", "1", "1"},
		{"ident", "x", "2"},
		{"add", "x + y", "5"},
		{"left-assoc", "2 - 3 - 4", "-5"},
		{"implicit-zero", "- 5", "-5"},
		{"prec", "1 + 2 * 3", "7"},
		{"paren", "(1 + 2) * 3", "9"},
		{"pow", "2 ^ 3 ^ 2", "64"},
		{"call", "sqrt 16", "4"},
		{"call-chain", "sqrt sqrt 16", "2"},
		{"postfix", "3 ! !", "720"},
		{"prefix", "√ 16", "4"},
		{"named", "not 1", "0"},
		{"text", `"hi"`, `"hi"`},
		{"aggregate", "(1, 2) + (3, 4)", "(4, 6)"},
		{"empty", "()", "()"},
		{"len-empty", "len ()", "0"},
		{"consumer-value", "sum (1, 2, 3)", "6"},
		{"point", "[x = 3] (x * x)", "9"},
		{"point-bare", "[x = 3] x * x", "9"},
		{"point-target-extends", "[x = 3] (x * x) + x", "12"},
		{"point-restores", "x + [x = 3] (x * x)", "11"},
		{"point-consumer", "sum [x = 4] (x)", "4"},
		{"span", "sum [0 <= i < 5 <> 1] (i)", "10"},
		{"span-default-delta", "sum [0 <= i < 5] (i)", "10"},
		{"span-closed", "sum [0 <= i < 5 <> 1] (i + 1)", "15"},
		{"span-open", "sum [0 < i < 5 <> 1] (i + 1)", "14"},
		{"span-count", "count [0 < i < 5] (i)", "4"},
		{"span-collect", "[0 <= i < 3] (i)", "(0, 1, 2)"},
		{"span-none", "[0 <= i < 0] (i)", "()"},
		{"span-frac", "sum [0 <= i <= 1 <> 0.5] (i)", "1.5"},
		{"span-down", "sum [0 <= i > - 3 <> - 1] (i)", "-3"},
		{"span-delta-var", "sum [0 <= i < 3 <> 1] (Δi)", "3"},
		{"span-nested", "sum [0 <= i < 3] sum [0 <= j < 3] (i * j)", "9"},
		{"span-outer-var", "sum [0 <= i < 3] (x)", "6"},
	}
	tab, _ := table()
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			r, err := treecalc.EvalString(c.src, tab, floats{})
			require.NoError(t, err)
			assert.Equal(t, c.want, treecalc.FormatValue(floats{}, r))
		})
	}
}

func TestEvalErrors(t *testing.T) {
	cases := []struct {
		name  string
		src   string
		check func(t *testing.T, err error)
	}{
		{"name", "nope", func(t *testing.T, err error) {
			var nerr *treecalc.NameError
			require.ErrorAs(t, err, &nerr)
			assert.Equal(t, "nope", nerr.Name)
		}},
		{"suggest", "pj", func(t *testing.T, err error) {
			var nerr *treecalc.NameError
			require.ErrorAs(t, err, &nerr)
			require.NotEmpty(t, nerr.Suggestions)
			assert.Equal(t, "pi", nerr.Suggestions[0])
			assert.LessOrEqual(t, len(nerr.Suggestions), 3)
			assert.Contains(t, nerr.Error(), "did you mean pi")
		}},
		{"suggest-identifiers", "f", func(t *testing.T, err error) {
			var nerr *treecalc.NameError
			require.ErrorAs(t, err, &nerr)
			require.NotEmpty(t, nerr.Suggestions)
			for _, s := range nerr.Suggestions {
				assert.Regexp(t, `^\pL`, s)
			}
		}},
		{"degree", "(1, 2) + (1, 2, 3)", func(t *testing.T, err error) {
			var derr *treecalc.DegreeError
			require.ErrorAs(t, err, &derr)
			assert.Equal(t, 2, derr.Want)
			assert.Equal(t, 3, derr.Got)
		}},
		{"domain", "1 / 0", func(t *testing.T, err error) {
			var derr *treecalc.DomainError
			require.ErrorAs(t, err, &derr)
		}},
		{"zero-step", "sum [0 <= i < 5 <> 0] (i)", func(t *testing.T, err error) {
			var eerr *treecalc.EvalError
			require.ErrorAs(t, err, &eerr)
			assert.Equal(t, "i", eerr.Name)
		}},
		{"empty", "", func(t *testing.T, err error) {
			var eerr *treecalc.EvalError
			require.ErrorAs(t, err, &eerr)
		}},
		{"analysis-point", "integral [x = 1] (x)", func(t *testing.T, err error) {
			var eerr *treecalc.EvalError
			require.ErrorAs(t, err, &eerr)
			assert.Equal(t, "integral", eerr.Name)
		}},
		{"analysis-value", "integral (1, 2)", func(t *testing.T, err error) {
			var eerr *treecalc.EvalError
			require.ErrorAs(t, err, &eerr)
		}},
		{"calculus-variable", "x ' 2", func(t *testing.T, err error) {
			var eerr *treecalc.EvalError
			require.ErrorAs(t, err, &eerr)
			assert.Equal(t, "x", eerr.Name)
		}},
	}
	tab, _ := table()
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			_, err := treecalc.EvalString(c.src, tab, floats{})
			require.Error(t, err)
			c.check(t, err)
		})
	}
}

func TestIterationLimit(t *testing.T) {
	tab, _ := table()
	cfg := treecalc.DefaultConfig()
	cfg.MaxIterations = 10
	_, err := treecalc.EvalString("sum [0 <= i < 100] (i)", tab, floats{}, treecalc.WithConfig(cfg))
	var eerr *treecalc.EvalError
	require.ErrorAs(t, err, &eerr)
	assert.Contains(t, eerr.Msg, "iteration limit 10")
	r, err := treecalc.EvalString("sum [0 <= i < 10] (i)", tab, floats{}, treecalc.WithConfig(cfg))
	require.NoError(t, err)
	assert.Equal(t, 45.0, r)
}

func TestEvalFresh(t *testing.T) {
	tab, _ := table()
	e, err := treecalc.Compile("(x * 2) + 1", tab, floats{})
	require.NoError(t, err)
	ctx := treecalc.NewContext(floats{}, tab)
	r, err := ctx.Eval(e)
	require.NoError(t, err)
	assert.Equal(t, 5.0, r)
	tab.SetVar("x", 5.0)
	r, err = ctx.Eval(e)
	require.NoError(t, err)
	assert.Equal(t, 11.0, r, "each evaluation must observe the current table")
	// Symbols resolve at evaluation, so a function can be replaced by a
	// variable between evaluations.
	f, err := treecalc.Compile("tally 3", tab, floats{})
	require.NoError(t, err)
	tab.SetVar("tally", 1.0)
	_, err = ctx.Eval(f)
	var eerr *treecalc.EvalError
	require.ErrorAs(t, err, &eerr)
	assert.Equal(t, "tally", eerr.Name)
}

func TestEvalUnreduced(t *testing.T) {
	tab, _ := table()
	e, err := treecalc.ParseString("1 + 2")
	require.NoError(t, err)
	_, err = treecalc.NewContext(floats{}, tab).Eval(e)
	assert.Error(t, err)
}

func TestEvalDuringEval(t *testing.T) {
	tab, _ := table()
	inner, err := treecalc.Compile("1", tab, floats{})
	require.NoError(t, err)
	ctx := treecalc.NewContext(floats{}, tab)
	tab.Define(&treecalc.Function{
		Name: "reenter",
		Apply: func(x treecalc.Value) (treecalc.Value, error) {
			return ctx.Eval(inner)
		},
	})
	outer, err := treecalc.Compile("reenter 1", tab, floats{})
	require.NoError(t, err)
	assert.PanicsWithValue(t, "treecalc: Eval during Eval", func() { ctx.Eval(outer) })
}

func TestStepCaching(t *testing.T) {
	cases := []struct {
		name   string
		mode   treecalc.StepCaching
		calls  int
		hits   float64
		misses float64
	}{
		// The target's outer group depends on i and is recomputed every step.
		// The group around the call is invariant and computed once.
		{"invariant", treecalc.StepCacheInvariant, 1, 3, 6},
		{"recompute", treecalc.StepRecompute, 4, 0, 12},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			tab, tally := table()
			reg := prometheus.NewRegistry()
			m := treecalc.NewMetrics(reg)
			cfg := treecalc.DefaultConfig()
			cfg.StepCaching = c.mode
			r, err := treecalc.EvalString("sum [0 <= i < 4] (i * (tally 3))", tab, floats{}, treecalc.WithConfig(cfg), treecalc.WithMetrics(m))
			require.NoError(t, err)
			assert.Equal(t, 18.0, r)
			assert.Equal(t, c.calls, tally.calls)
			assert.Equal(t, 1.0, testutil.ToFloat64(m.Evaluations))
			assert.Equal(t, 4.0, testutil.ToFloat64(m.LoopSteps))
			assert.Equal(t, c.hits, testutil.ToFloat64(m.CacheHits))
			assert.Equal(t, c.misses, testutil.ToFloat64(m.CacheMisses))
		})
	}
}

func TestStaleCache(t *testing.T) {
	// Groups that reference the loop variable must never be served stale,
	// however deeply they are nested.
	tab, _ := table()
	for _, mode := range []treecalc.StepCaching{treecalc.StepCacheInvariant, treecalc.StepRecompute} {
		cfg := treecalc.DefaultConfig()
		cfg.StepCaching = mode
		r, err := treecalc.EvalString("[1 <= i <= 3] (((i * 2)) + (sqrt (i * i)))", tab, floats{}, treecalc.WithConfig(cfg))
		require.NoError(t, err, mode.String())
		assert.Equal(t, "(3, 6, 9)", treecalc.FormatValue(floats{}, r), mode.String())
	}
}

func TestStaleCacheIndirect(t *testing.T) {
	// A profile body reads k from the table, so calls to it cannot be cached
	// across loop steps even though the call site never names k.
	for _, mode := range []treecalc.StepCaching{treecalc.StepCacheInvariant, treecalc.StepRecompute} {
		tab, tally := table()
		p, err := treecalc.CompileProfile("sq", []string{"t"}, "t * k", tab, floats{})
		require.NoError(t, err)
		fn, err := p.Function(tab, floats{})
		require.NoError(t, err)
		assert.False(t, fn.Pure)
		tab.Define(fn)
		cfg := treecalc.DefaultConfig()
		cfg.StepCaching = mode
		r, err := treecalc.EvalString("sum [0 <= k < 3] ((sq 1) + (tally 1))", tab, floats{}, treecalc.WithConfig(cfg))
		require.NoError(t, err, mode.String())
		assert.Equal(t, 6.0, r, mode.String())
		if mode == treecalc.StepCacheInvariant {
			assert.Equal(t, 1, tally.calls, "pure calls stay cached")
		}
	}
}

func TestMemoWithinEval(t *testing.T) {
	tab, tally := table()
	e, err := treecalc.Compile("[1 <= i <= 3] (tally 3)", tab, floats{})
	require.NoError(t, err)
	ctx := treecalc.NewContext(floats{}, tab)
	r, err := ctx.Eval(e)
	require.NoError(t, err)
	assert.Equal(t, "(3, 3, 3)", treecalc.FormatValue(floats{}, r))
	assert.Equal(t, 1, tally.calls, "invariant call computed once per evaluation")
	_, err = ctx.Eval(e)
	require.NoError(t, err)
	assert.Equal(t, 2, tally.calls, "cache does not survive evaluations")
}

func TestCalculus(t *testing.T) {
	cases := []struct {
		name string
		src  string
		step string
		want float64
		tol  float64
	}{
		{"first", "sqrt ' 4", "1e-5", 0.25, 1e-8},
		{"second", "exp '' 0", "1e-4", 1, 1e-5},
		{"third", "exp ''' 0", "1e-2", 1, 1e-3},
		{"quad", "exp ∫ (0, 1)", "", math.E - 1, 1e-10},
		{"quad-singular", "sqrt ∫cc (0, 4)", "", 16.0 / 3, 1e-3},
		{"quad-reverse", "exp ∫cc (1, 0)", "", 1 - math.E, 1e-10},
	}
	tab, _ := table()
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			cfg := treecalc.DefaultConfig()
			if c.step != "" {
				cfg.DerivativeStep = c.step
			}
			r, err := treecalc.EvalString(c.src, tab, floats{}, treecalc.WithConfig(cfg))
			require.NoError(t, err)
			assert.InDelta(t, c.want, r, c.tol)
		})
	}
}

func TestQuadratureNeedsFloats(t *testing.T) {
	tm := struct{ treecalc.TypeManager }{floats{}}
	tab := symtab.Standard(tm)
	tab.Define(&treecalc.Function{Name: "id", Apply: func(x treecalc.Value) (treecalc.Value, error) { return x, nil }})
	_, err := treecalc.EvalString("id ∫ (0, 1)", tab, tm)
	var eerr *treecalc.EvalError
	require.ErrorAs(t, err, &eerr)
	_, err = treecalc.EvalString("id ' 1", tab, tm)
	assert.NoError(t, err, "derivatives need only arithmetic")
}

func TestLookup(t *testing.T) {
	tab, _ := table()
	ctx := treecalc.NewContext(floats{}, tab)
	sym, ok := ctx.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, 2.0, sym.(*treecalc.Variable).Value)
	_, ok = ctx.Lookup("nope")
	assert.False(t, ok)
	assert.Same(t, tab, ctx.Table())
	assert.Equal(t, floats{}, ctx.Types())
	assert.Equal(t, treecalc.DefaultConfig(), ctx.Config())
}

func TestErrorText(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&treecalc.NameError{Name: "q"}, "symbol not found: q"},
		{&treecalc.NameError{Name: "q", Suggestions: []string{"a", "b"}}, "symbol not found: q (did you mean a, b?)"},
		{&treecalc.EvalError{Msg: "bad"}, "bad"},
		{&treecalc.EvalError{Name: "f", Msg: "bad"}, "bad: f"},
		{&treecalc.DegreeError{Op: "+", Want: 2, Got: 3}, "degree mismatch in +: want 2, got 3"},
		{&treecalc.DomainError{X: "-1", Arg: 1, Func: "ln"}, "-1 outside domain of ln (argument 1)"},
		{&treecalc.SemanticError{Col: 3, Text: "~", Msg: "operator not recognized"}, `3: operator not recognized: "~"`},
		{&treecalc.NestingError{Col: 1, Msg: "excess closing parenthesis"}, "1: excess closing parenthesis"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.err.Error())
	}
}
