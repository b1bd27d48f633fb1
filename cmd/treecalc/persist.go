package main

import (
	"fmt"
	"io"
	"os"

	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/zephyrtronium/treecalc"
)

func (a *app) dumpCmd() *cobra.Command {
	var (
		profile string
		params  []string
		desc    string
	)
	cmd := &cobra.Command{
		Use:   "dump expression",
		Short: "Print the persisted form of an expression or profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.dump(args[0], profile, params, desc)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, string(b))
			return nil
		},
	}
	cmd.Flags().StringVar(&profile, "profile", "", "persist a profile with this name, using the expression as its body")
	cmd.Flags().StringSliceVar(&params, "params", nil, "profile parameter names")
	cmd.Flags().StringVar(&desc, "description", "", "profile description")
	return cmd
}

func (a *app) dump(src, profile string, params []string, desc string) ([]byte, error) {
	if profile == "" {
		e, err := treecalc.Compile(src, a.tab, a.tm, a.opts()...)
		if err != nil {
			return nil, err
		}
		return e.MarshalJSON()
	}
	p, err := treecalc.CompileProfile(profile, params, src, a.tab, a.tm, a.opts()...)
	if err != nil {
		return nil, err
	}
	p.Description = desc
	return p.MarshalJSON()
}

func (a *app) loadCmd() *cobra.Command {
	var exprs []string
	cmd := &cobra.Command{
		Use:   "load file...",
		Short: "Evaluate persisted expressions and define persisted profiles",
		Long: `Each file holds one persisted expression or profile; "-" reads standard
input. Expressions are evaluated and printed. Profiles are defined as functions
for the files that follow and for the expressions given with --expr.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range args {
				if err := a.load(name); err != nil {
					return errors.Wrapf(err, "loading %s", name)
				}
			}
			for _, src := range exprs {
				r := a.evalOne(src, a.tab)
				if r.err != nil {
					return r.err
				}
				fmt.Fprintln(a.stdout, r.val)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&exprs, "expr", "e", nil, "expression to evaluate after loading (any number of times)")
	return cmd
}

// load evaluates or defines the persisted tree in the named file.
func (a *app) load(name string) error {
	var data []byte
	var err error
	if name == "-" {
		data, err = io.ReadAll(a.stdin)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return err
	}
	if treecalc.IsProfile(data) {
		p, err := treecalc.UnmarshalProfile(data)
		if err != nil {
			return err
		}
		fn, err := p.Function(a.tab, a.tm, a.opts()...)
		if err != nil {
			return err
		}
		a.tab.Define(fn)
		level.Info(a.logger).Log("msg", "defined profile", "profile", p, "file", name)
		return nil
	}
	e, err := treecalc.UnmarshalExpr(data)
	if err != nil {
		return err
	}
	if err := e.Attribute(a.tab, a.tm); err != nil {
		return err
	}
	v, err := treecalc.NewContext(a.tm, a.tab, a.opts()...).Eval(e)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, treecalc.FormatValue(a.tm, v))
	return nil
}
