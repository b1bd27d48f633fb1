package treecalc_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/zephyrtronium/treecalc"
)

func TestLoadConfig(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want func(*treecalc.Config)
		err  bool
	}{
		{"empty", "", func(*treecalc.Config) {}, false},
		{
			name: "fields",
			doc:  "derivative_step: 1e-3\nquadrature_terms: 16\nstep_caching: recompute\nmax_iterations: 0\nprecision: 256\n",
			want: func(c *treecalc.Config) {
				c.DerivativeStep = "1e-3"
				c.QuadratureTerms = 16
				c.StepCaching = treecalc.StepRecompute
				c.MaxIterations = 0
				c.Precision = 256
			},
		},
		{"unknown-field", "derivative: 1\n", nil, true},
		{"unknown-mode", "step_caching: sometimes\n", nil, true},
		{"few-terms", "quadrature_terms: 1\n", nil, true},
		{"bad-tolerance", "tolerance: 0\n", nil, true},
		{"negative-limit", "max_iterations: -1\n", nil, true},
		{"no-step", "derivative_step: ''\n", nil, true},
		{"not-yaml", "[", nil, true},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			got, err := treecalc.LoadConfig(strings.NewReader(c.doc))
			if c.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			want := treecalc.DefaultConfig()
			c.want(&want)
			assert.Equal(t, want, got)
		})
	}
}

func TestStepCachingYAML(t *testing.T) {
	cfg := treecalc.DefaultConfig()
	cfg.StepCaching = treecalc.StepRecompute
	b, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(b), "step_caching: recompute")
	got, err := treecalc.LoadConfig(strings.NewReader(string(b)))
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	assert.Equal(t, "invariant", treecalc.StepCacheInvariant.String())
	assert.Equal(t, "StepCaching(9)", treecalc.StepCaching(9).String())
	_, err = treecalc.ParseStepCaching("never")
	assert.Error(t, err)
	cfg.StepCaching = 9
	assert.Error(t, cfg.Validate())
}

func TestDerivativeStepConfig(t *testing.T) {
	tab, _ := table()
	cfg := treecalc.DefaultConfig()
	cfg.DerivativeStep = "not a number"
	_, err := treecalc.EvalString("sqrt ' 4", tab, floats{}, treecalc.WithConfig(cfg))
	assert.Error(t, err)
}
