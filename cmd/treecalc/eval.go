package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/zephyrtronium/treecalc"
	"github.com/zephyrtronium/treecalc/symtab"
)

func (a *app) evalCmd() *cobra.Command {
	var (
		parallel int
		echo     bool
	)
	cmd := &cobra.Command{
		Use:   "eval [expression...]",
		Short: "Evaluate expressions",
		Long: `Evaluate each argument as an expression. With no arguments, evaluate each
line of standard input. Blank lines and lines starting with # are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			srcs := args
			if len(srcs) == 0 {
				var err error
				if srcs, err = readLines(a.stdin); err != nil {
					return err
				}
			}
			return a.evalAll(cmd.Context(), srcs, parallel, echo)
		},
	}
	cmd.Flags().IntVarP(&parallel, "parallel", "j", 1, "number of expressions to evaluate concurrently")
	cmd.Flags().BoolVar(&echo, "echo", false, "print reduced trees before results")
	return cmd
}

// readLines reads the expressions in r, one per line.
func readLines(r io.Reader) ([]string, error) {
	var srcs []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		srcs = append(srcs, line)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "reading expressions")
	}
	return srcs, nil
}

// result is the outcome of evaluating one expression.
type result struct {
	tree string
	val  string
	err  error
}

// evalAll evaluates srcs with up to parallel workers and prints the results
// in input order.
func (a *app) evalAll(ctx context.Context, srcs []string, parallel int, echo bool) error {
	if parallel < 1 {
		return errors.Errorf("parallel must be positive, not %d", parallel)
	}
	results := make([]result, len(srcs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, src := range srcs {
		i, src := i, src
		// Range descriptors bind their variables into the table while they
		// run, so concurrent evaluations each get a copy.
		tab := a.tab
		if parallel > 1 {
			tab = a.tab.Clone()
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = a.evalOne(src, tab)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	failed := 0
	for _, r := range results {
		if echo && r.tree != "" {
			fmt.Fprintf(a.stdout, "%s : ", r.tree)
		}
		if r.err != nil {
			failed++
			fmt.Fprintln(a.stdout, "error:", r.err)
			continue
		}
		fmt.Fprintln(a.stdout, r.val)
	}
	level.Debug(a.logger).Log("msg", "evaluated expressions", "count", len(srcs), "failed", failed, "parallel", parallel)
	if failed > 0 {
		return errors.Errorf("%d of %d expressions failed", failed, len(srcs))
	}
	return nil
}

// evalOne compiles and evaluates src against tab.
func (a *app) evalOne(src string, tab *symtab.Table) result {
	e, err := treecalc.Compile(src, tab, a.tm, a.opts()...)
	if err != nil {
		return result{err: err}
	}
	v, err := treecalc.NewContext(a.tm, tab, a.opts()...).Eval(e)
	if err != nil {
		return result{tree: e.String(), err: err}
	}
	return result{tree: e.String(), val: treecalc.FormatValue(a.tm, v)}
}
