package treecalc_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zephyrtronium/treecalc"
)

func TestBuildNesting(t *testing.T) {
	cases := []struct {
		name string
		src  string
		msg  string
	}{
		{"unclosed", "(1", "2: too few closing parenthesis"},
		{"unclosed-nested", "((1) + 2", "8: too few closing parenthesis"},
		{"excess", "1)", "2: excess closing parenthesis"},
		{"excess-nested", "(1))", "4: excess closing parenthesis"},
		{"too-few-spaced", "(( 1 + 2 )", "10: too few closing parenthesis"},
		{"excess-spaced", "1 + 2 ))", "7: excess closing parenthesis"},
		{"bracket-close", "1 ]", "3: closing bracket without range descriptor"},
		{"bracket-open", "[x = 1", "6: range descriptor without closing bracket"},
		{"bracket-paren", "[x = 1) ] x", "7: closing parenthesis inside range descriptor endpoints"},
		{"bracket-comma", "[x, 1] x", "3: comma inside range descriptor endpoints"},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			_, err := treecalc.ParseString(c.src)
			var nerr *treecalc.NestingError
			require.ErrorAs(t, err, &nerr)
			assert.Equal(t, c.msg, nerr.Error())
		})
	}
}

func TestBuildShapes(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{"empty", "", "()"},
		{"paren", "(1)", "1"},
		{"flat", "1 + 2", "{1 + 2}"},
		{"nested", "(1 + (2))", "{1 + 2}"},
		{"aggregate", "1, 2", "(1, 2)"},
		{"aggregate-paren", "(1, (2, 3))", "(1, (2, 3))"},
		{"range-target", "([x = 1] x + 1) * 2", "{[x = 1] {x + 1} * 2}"},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			e, err := treecalc.ParseString(c.src)
			require.NoError(t, err)
			assert.Equal(t, c.want, e.String())
		})
	}
}

func TestReduce(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{"left-assoc", "2 - 3 - 4", "((2 - 3) - 4)"},
		{"implicit-zero", "- 5", "(0 - 5)"},
		{"prec", "1 + 2 * 3", "(1 + (2 * 3))"},
		{"prec-left", "2 * 3 + 1", "((2 * 3) + 1)"},
		{"pow-left", "2 ^ 3 ^ 2", "((2 ^ 3) ^ 2)"},
		{"paren", "2 * (x + y)", "(2 * (x + y))"},
		{"call", "sqrt 4", "sqrt(4)"},
		{"call-chain", "sqrt sqrt 16", "sqrt(sqrt(16))"},
		{"call-bind", "sqrt 4 + 1", "(sqrt(4) + 1)"},
		{"postfix", "3 ! !", "((3!)!)"},
		{"prefix", "√ √ x", "(√(√x))"},
		{"prefix-zero", "- √ 4", "(0 - (√4))"},
		{"named", "not 0", "(¬0)"},
		{"aggregate", "1, 2", "(1, 2)"},
		{"aggregate-paren", "(1, x + 1)", "(1, (x + 1))"},
		{"consumer-value", "sum (1, 2)", "sum(1, 2)"},
		{"empty-parens", "()", "()"},
		{"calculus", "sqrt ' 4", "sqrt'(4)"},
		{"point", "[x = 3] (x * x)", "[x = 3] (x * x)"},
		{"span", "sum [0 <= i < 5] (i)", "sum[0 <= i < 5 <> 1] i"},
		{"span-delta", "[0 < i <= 1 <> 0.5] i * 2", "[0 < i <= 1 <> 0.5] (i * 2)"},
	}
	tab, _ := table()
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			e, err := treecalc.Compile(c.src, tab, floats{})
			require.NoError(t, err)
			assert.Equal(t, c.want, e.String())
		})
	}
}

func TestReduceErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		msg  string
	}{
		{"trailing-op", "1 +", "operand not of proper type"},
		{"residual", "x y", "expression does not reduce to a single value"},
		{"unknown-op", "1 ~ 2", "operator not recognized"},
		{"missing-param", "sqrt", "missing parameter"},
		{"calculus-ident", "' 2", "calculus modifier must follow a function identifier"},
		{"point-incomplete", "[1 = 2] (1)", "descriptor is incomplete"},
		{"span-incomplete", "[0 <= i] (i)", "descriptor is incomplete"},
		{"no-lower", "[i < 3] (i)", "descriptor is incomplete"},
		{"no-target", "[x = 1]", "range descriptor has no target"},
		{"loop-func", "[sqrt = 1] (1)", "loop variable names a function or operator"},
		{"bad-literal", "1e5000000000000000000000", "invalid numeric literal"},
	}
	tab, _ := table()
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			_, err := treecalc.Compile(c.src, tab, floats{})
			var serr *treecalc.SemanticError
			require.ErrorAs(t, err, &serr)
			assert.Contains(t, serr.Error(), c.msg)
			var ierr treecalc.InputError
			assert.True(t, errors.As(err, &ierr), "semantic errors are input errors")
		})
	}
}

func TestReduceTwice(t *testing.T) {
	tab, _ := table()
	e, err := treecalc.Compile("1 + 2", tab, floats{})
	require.NoError(t, err)
	assert.Error(t, e.Reduce(floats{}))
	p, err := treecalc.ParseString("1 + 2")
	require.NoError(t, err)
	assert.Error(t, p.Reduce(floats{}), "reducing before attributing")
}

func TestVars(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want []string
	}{
		{"free", "y + x + z + sum [0 <= i < 3] (i) + sqrt 4", []string{"x", "y", "z"}},
		{"shadowed", "x + [x = 3] (x * x)", []string{"x"}},
		{"bound-only", "[x = 3] (x * y)", []string{"y"}},
		{"bounds-outside", "sum [x <= x < x + 3] (x)", []string{"x"}},
		{"nested", "sum [0 <= i < 2] ([j = i] (j + k))", []string{"k"}},
		{"none", "sum [0 <= i < 3] (i * Δi)", []string{}},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			tab, _ := table()
			e, err := treecalc.Compile(c.src, tab, floats{})
			require.NoError(t, err)
			if diff := cmp.Diff(c.want, e.Vars()); diff != "" {
				t.Errorf("wrong vars (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCompiler(t *testing.T) {
	tab, _ := table()
	c, err := treecalc.NewCompiler(tab, floats{}, 2)
	require.NoError(t, err)
	a, err := c.Compile("1 + x")
	require.NoError(t, err)
	b, err := c.Compile("1 + x")
	require.NoError(t, err)
	assert.Same(t, a, b)
	_, err = c.Compile("1 +")
	assert.Error(t, err)
	assert.Equal(t, 1, c.Len(), "failed compilations are not cached")
	for _, src := range []string{"1", "2", "3"} {
		_, err := c.Compile(src)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, c.Len())
	d, err := c.Compile("1 + x")
	require.NoError(t, err)
	assert.NotSame(t, a, d, "evicted tree should be recompiled")
	c.Purge()
	assert.Zero(t, c.Len())
	_, err = treecalc.NewCompiler(tab, floats{}, 0)
	assert.Error(t, err)
}

func TestParseReader(t *testing.T) {
	e, err := treecalc.Parse(strings.NewReader("(a, b)"))
	require.NoError(t, err)
	assert.Equal(t, "(a, b)", e.String())
}
