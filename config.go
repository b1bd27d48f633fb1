package treecalc

import (
	"io"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds the tunables used during evaluation. The zero Config is not
// valid; start from DefaultConfig.
type Config struct {
	// DerivativeStep is the step size h for numeric derivatives, as a numeric
	// literal so that it is parsed at the evaluation type's precision.
	DerivativeStep string `yaml:"derivative_step"`
	// QuadratureTerms is the number of subintervals or nodes used by the
	// trapezoid and Clenshaw–Curtis rules.
	QuadratureTerms int `yaml:"quadrature_terms"`
	// TanhSinhLevels is the maximum number of step halvings for tanh-sinh
	// quadrature.
	TanhSinhLevels int `yaml:"tanh_sinh_levels"`
	// Tolerance is the convergence tolerance for tanh-sinh quadrature.
	Tolerance float64 `yaml:"tolerance"`
	// MaxIterations bounds the total number of range loop steps in a single
	// evaluation. Zero means no bound.
	MaxIterations int `yaml:"max_iterations"`
	// StepCaching selects how cached groups inside a range target are
	// invalidated between loop steps.
	StepCaching StepCaching `yaml:"step_caching"`
	// Precision is the precision in bits used by big number type managers.
	Precision uint `yaml:"precision"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		DerivativeStep:  "1e-5",
		QuadratureTerms: 64,
		TanhSinhLevels:  8,
		Tolerance:       1e-12,
		MaxIterations:   1 << 20,
		StepCaching:     StepCacheInvariant,
		Precision:       64,
	}
}

// Validate reports whether the configuration is usable.
func (c Config) Validate() error {
	switch {
	case c.DerivativeStep == "":
		return errors.New("derivative_step must be set")
	case c.QuadratureTerms < 2:
		return errors.Errorf("quadrature_terms must be at least 2, not %d", c.QuadratureTerms)
	case c.TanhSinhLevels < 1:
		return errors.Errorf("tanh_sinh_levels must be positive, not %d", c.TanhSinhLevels)
	case c.Tolerance <= 0:
		return errors.Errorf("tolerance must be positive, not %g", c.Tolerance)
	case c.MaxIterations < 0:
		return errors.Errorf("max_iterations must not be negative, not %d", c.MaxIterations)
	case c.Precision == 0:
		return errors.New("precision must be positive")
	}
	switch c.StepCaching {
	case StepCacheInvariant, StepRecompute:
	default:
		return errors.Errorf("invalid step caching mode %d", int(c.StepCaching))
	}
	return nil
}

// LoadConfig reads a YAML configuration. Fields missing from the document
// keep their default values.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errors.Wrap(err, "decoding config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}

// StepCaching selects how a range loop treats cached groups in its target.
type StepCaching int8

const (
	// StepCacheInvariant resets only the cached groups that reference the
	// loop variable on each step. Groups that do not depend on the loop are
	// computed once per evaluation.
	StepCacheInvariant StepCaching = iota
	// StepRecompute resets every cached group in the target on each step.
	StepRecompute
)

func (s StepCaching) String() string {
	switch s {
	case StepCacheInvariant:
		return "invariant"
	case StepRecompute:
		return "recompute"
	default:
		return "StepCaching(" + strconv.Itoa(int(s)) + ")"
	}
}

// ParseStepCaching parses the name of a step caching mode.
func ParseStepCaching(s string) (StepCaching, error) {
	switch s {
	case "invariant":
		return StepCacheInvariant, nil
	case "recompute":
		return StepRecompute, nil
	default:
		return 0, errors.Errorf("unknown step caching mode %q", s)
	}
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *StepCaching) UnmarshalYAML(n *yaml.Node) error {
	var name string
	if err := n.Decode(&name); err != nil {
		return err
	}
	v, err := ParseStepCaching(name)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (s StepCaching) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}
