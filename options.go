package treecalc

import (
	"github.com/go-kit/log"
)

// Option is an option for compiling or evaluating expressions.
type Option interface {
	apply(*settings)
}

type (
	cfgopt     Config
	loggeropt  struct{ l log.Logger }
	metricsopt struct{ m *Metrics }
)

// settings holds the options in effect for a Context or a Compiler.
type settings struct {
	cfg     Config
	logger  log.Logger
	metrics *Metrics
}

func newSettings(opts []Option) settings {
	s := settings{
		cfg:    DefaultConfig(),
		logger: log.NewNopLogger(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.apply(&s)
	}
	return s
}

// WithConfig sets the configuration used during evaluation.
func WithConfig(cfg Config) Option {
	return cfgopt(cfg)
}

func (o cfgopt) apply(s *settings) {
	s.cfg = Config(o)
}

// WithLogger sets the logger that receives debug information about
// compilation and evaluation. The default discards everything.
func WithLogger(l log.Logger) Option {
	if l == nil {
		l = log.NewNopLogger()
	}
	return loggeropt{l}
}

func (o loggeropt) apply(s *settings) {
	s.logger = o.l
}

// WithMetrics sets the metrics updated during evaluation.
func WithMetrics(m *Metrics) Option {
	return metricsopt{m}
}

func (o metricsopt) apply(s *settings) {
	s.metrics = o.m
}
