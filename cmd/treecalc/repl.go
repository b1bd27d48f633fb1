package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/zephyrtronium/treecalc"
)

const replHelp = `Enter an expression to evaluate it. Commands:
  :let name = expr   evaluate expr and assign it to name
  :tree expr         print the reduced tree of expr
  :json expr         print the persisted form of expr
  :vars              list variables
  :quit              exit
`

func (a *app) replCmd() *cobra.Command {
	var (
		history string
		size    int
	)
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Evaluate expressions interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.repl(history, size)
		},
	}
	cmd.Flags().StringVar(&history, "history", defaultHistory(), "history file, or empty for none")
	cmd.Flags().IntVar(&size, "cache", 256, "number of compiled expressions to remember")
	return cmd
}

func defaultHistory() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".treecalc_history")
}

// session is the state of an interactive session.
type session struct {
	a    *app
	comp *treecalc.Compiler
	ctx  *treecalc.Context
}

func (a *app) session(size int) (*session, error) {
	comp, err := treecalc.NewCompiler(a.tab, a.tm, size, a.opts()...)
	if err != nil {
		return nil, err
	}
	return &session{a: a, comp: comp, ctx: treecalc.NewContext(a.tm, a.tab, a.opts()...)}, nil
}

func (a *app) repl(history string, size int) error {
	s, err := a.session(size)
	if err != nil {
		return err
	}
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetCompleter(s.complete)
	if history != "" {
		if f, err := os.Open(history); err == nil {
			ln.ReadHistory(f)
			f.Close()
		}
		defer func() {
			if f, err := os.Create(history); err == nil {
				ln.WriteHistory(f)
				f.Close()
			}
		}()
	}
	for {
		line, err := ln.Prompt("> ")
		switch {
		case errors.Is(err, liner.ErrPromptAborted):
			continue
		case errors.Is(err, io.EOF):
			fmt.Fprintln(a.stdout)
			return nil
		case err != nil:
			return errors.Wrap(err, "reading input")
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ln.AppendHistory(line)
		quit, err := s.line(line)
		if err != nil {
			fmt.Fprintln(a.stdout, "error:", err)
		}
		if quit {
			return nil
		}
	}
}

// line handles one line of input. Lines starting with a colon are commands.
func (s *session) line(line string) (quit bool, err error) {
	if !strings.HasPrefix(line, ":") {
		v, err := s.eval(line)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(s.a.stdout, treecalc.FormatValue(s.a.tm, v))
		return false, nil
	}
	cmd, rest, _ := strings.Cut(line[1:], " ")
	rest = strings.TrimSpace(rest)
	switch cmd {
	case "q", "quit":
		return true, nil
	case "h", "help":
		fmt.Fprint(s.a.stdout, replHelp)
	case "let":
		name, src, ok := strings.Cut(rest, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return false, errors.New("usage: :let name = expr")
		}
		v, err := s.eval(strings.TrimSpace(src))
		if err != nil {
			return false, err
		}
		s.a.tab.SetVar(name, v)
		// Cached trees were reduced with the old meaning of name.
		s.comp.Purge()
	case "tree":
		e, err := s.comp.Compile(rest)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(s.a.stdout, e)
	case "json":
		e, err := s.comp.Compile(rest)
		if err != nil {
			return false, err
		}
		b, err := e.MarshalJSON()
		if err != nil {
			return false, err
		}
		fmt.Fprintln(s.a.stdout, string(b))
	case "vars":
		for _, name := range s.a.tab.Names() {
			sym, _ := s.a.tab.Lookup(name)
			if v, ok := sym.(*treecalc.Variable); ok {
				fmt.Fprintf(s.a.stdout, "%s = %s\n", name, treecalc.FormatValue(s.a.tm, v.Value))
			}
		}
	default:
		return false, errors.Errorf("unknown command :%s (try :help)", cmd)
	}
	return false, nil
}

func (s *session) eval(src string) (treecalc.Value, error) {
	e, err := s.comp.Compile(src)
	if err != nil {
		return nil, err
	}
	return s.ctx.Eval(e)
}

// complete completes the last name on the line.
func (s *session) complete(line string) []string {
	k := strings.LastIndexAny(line, " ()[],") + 1
	prefix, word := line[:k], line[k:]
	if word == "" {
		return nil
	}
	var r []string
	for _, name := range s.a.tab.Names() {
		if strings.HasPrefix(name, word) {
			r = append(r, prefix+name)
		}
	}
	return r
}
