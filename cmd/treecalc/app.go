package main

import (
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"

	"github.com/zephyrtronium/treecalc"
	"github.com/zephyrtronium/treecalc/bignum"
	"github.com/zephyrtronium/treecalc/decnum"
	"github.com/zephyrtronium/treecalc/symtab"
)

// app holds the flags shared by every subcommand and the evaluation
// environment built from them.
type app struct {
	configPath string
	prec       uint
	decimal    bool
	debug      bool
	stats      bool
	given      []string

	stdin          io.Reader
	stdout, stderr io.Writer

	cfg     treecalc.Config
	tm      treecalc.TypeManager
	tab     *symtab.Table
	logger  log.Logger
	reg     *prometheus.Registry
	metrics *treecalc.Metrics
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	return &app{stdin: stdin, stdout: stdout, stderr: stderr}
}

// command creates the root command. Flags are bound to a, so the command
// must be created before setup.
func (a *app) command() *cobra.Command {
	root := &cobra.Command{
		Use:           "treecalc",
		Short:         "Evaluate mathematical expressions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if !a.stats {
				return nil
			}
			return a.printStats()
		},
	}
	fl := root.PersistentFlags()
	fl.StringVar(&a.configPath, "config", "", "YAML configuration file")
	fl.UintVarP(&a.prec, "prec", "p", 64, "precision of calculations in bits")
	fl.BoolVar(&a.decimal, "decimal", false, "use decimal arithmetic")
	fl.BoolVar(&a.debug, "debug", false, "log debug information to stderr")
	fl.BoolVar(&a.stats, "stats", false, "print evaluation counters to stderr when finished")
	fl.StringArrayVar(&a.given, "given", nil, "name=value variable definition (any number of times)")
	root.AddCommand(a.evalCmd(), a.replCmd(), a.dumpCmd(), a.loadCmd())
	return root
}

// setup loads the configuration and creates the type manager, symbol table,
// logger, and metrics.
func (a *app) setup(cmd *cobra.Command) error {
	a.cfg = treecalc.DefaultConfig()
	if a.configPath != "" {
		f, err := os.Open(a.configPath)
		if err != nil {
			return errors.Wrap(err, "opening config")
		}
		defer f.Close()
		if a.cfg, err = treecalc.LoadConfig(f); err != nil {
			return err
		}
	}
	// The flag overrides the file only when given explicitly.
	if a.configPath == "" || cmd.Flags().Changed("prec") {
		a.cfg.Precision = a.prec
	}
	if a.cfg.Precision == 0 {
		return errors.New("precision must be positive")
	}

	allow := level.AllowInfo()
	if a.debug {
		allow = level.AllowDebug()
	}
	a.logger = log.NewLogfmtLogger(log.NewSyncWriter(a.stderr))
	a.logger = level.NewFilter(log.With(a.logger, "ts", log.DefaultTimestampUTC), allow)
	a.reg = prometheus.NewRegistry()
	a.metrics = treecalc.NewMetrics(a.reg)

	if a.decimal {
		a.tm = decnum.New(decnum.DigitsForBits(a.cfg.Precision))
	} else {
		a.tm = bignum.New(a.cfg.Precision)
	}
	a.tab = symtab.Standard(a.tm)
	for _, g := range a.given {
		name, src, ok := strings.Cut(g, "=")
		if !ok {
			return errors.Errorf(`variable definitions must be "name=value", not %q`, g)
		}
		name = strings.TrimSpace(name)
		v, err := treecalc.EvalString(strings.TrimSpace(src), a.tab, a.tm, a.opts()...)
		if err != nil {
			return errors.Wrapf(err, "setting %s", name)
		}
		a.tab.SetVar(name, v)
	}
	level.Debug(a.logger).Log("msg", "configured", "precision", a.cfg.Precision, "decimal", a.decimal, "step_caching", a.cfg.StepCaching, "given", len(a.given))
	return nil
}

// opts returns the options for compiling and evaluating.
func (a *app) opts() []treecalc.Option {
	return []treecalc.Option{
		treecalc.WithConfig(a.cfg),
		treecalc.WithLogger(a.logger),
		treecalc.WithMetrics(a.metrics),
	}
}

// printStats writes the gathered evaluation counters.
func (a *app) printStats() error {
	mfs, err := a.reg.Gather()
	if err != nil {
		return errors.Wrap(err, "gathering metrics")
	}
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			if _, err := io.WriteString(a.stderr, mf.GetName()+" "+formatMetric(mf.GetType(), m)+"\n"); err != nil {
				return err
			}
		}
	}
	return nil
}

func formatMetric(t dto.MetricType, m *dto.Metric) string {
	var v float64
	switch t {
	case dto.MetricType_COUNTER:
		v = m.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		v = m.GetGauge().GetValue()
	default:
		v = math.NaN()
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
