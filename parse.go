package treecalc

import (
	"io"
	"strings"

	"github.com/go-kit/log/level"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
)

// Parse tokenizes src and builds an unattributed tree from it.
func Parse(src io.RuneScanner) (*Expr, error) {
	toks, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	return Build(toks)
}

// ParseString is a shortcut to parse a string.
func ParseString(src string) (*Expr, error) {
	return Parse(strings.NewReader(src))
}

// Compile parses, attributes, and reduces src so that it is ready to evaluate.
func Compile(src string, tab SymbolTable, tm TypeManager, opts ...Option) (*Expr, error) {
	s := newSettings(opts)
	return compile(src, tab, tm, &s)
}

func compile(src string, tab SymbolTable, tm TypeManager, s *settings) (*Expr, error) {
	e, err := ParseString(src)
	if err != nil {
		return nil, err
	}
	e.logger = s.logger
	if err := e.Attribute(tab, tm); err != nil {
		return nil, err
	}
	if err := e.Reduce(tm); err != nil {
		return nil, err
	}
	level.Debug(s.logger).Log("msg", "compiled expression", "src", src, "tree", e)
	return e, nil
}

// EvalString is a shortcut to compile and evaluate src with a new Context.
func EvalString(src string, tab SymbolTable, tm TypeManager, opts ...Option) (Value, error) {
	e, err := Compile(src, tab, tm, opts...)
	if err != nil {
		return nil, err
	}
	return NewContext(tm, tab, opts...).Eval(e)
}

// Compiler compiles expressions against a fixed symbol table and type
// manager, remembering recently compiled trees by source text. Trees returned
// for the same source are shared, so they must not be evaluated concurrently.
// A Compiler is safe for concurrent use.
type Compiler struct {
	tab   SymbolTable
	tm    TypeManager
	s     settings
	cache *lru.Cache[string, *Expr]
}

// NewCompiler creates a Compiler that remembers up to size trees.
func NewCompiler(tab SymbolTable, tm TypeManager, size int, opts ...Option) (*Compiler, error) {
	cache, err := lru.New[string, *Expr](size)
	if err != nil {
		return nil, errors.Wrap(err, "creating compile cache")
	}
	return &Compiler{
		tab:   tab,
		tm:    tm,
		s:     newSettings(opts),
		cache: cache,
	}, nil
}

// Compile returns the tree for src, compiling it if it is not cached. Failed
// compilations are not cached.
func (c *Compiler) Compile(src string) (*Expr, error) {
	if e, ok := c.cache.Get(src); ok {
		return e, nil
	}
	e, err := compile(src, c.tab, c.tm, &c.s)
	if err != nil {
		return nil, err
	}
	c.cache.Add(src, e)
	return e, nil
}

// Len returns the number of cached trees.
func (c *Compiler) Len() int {
	return c.cache.Len()
}

// Purge forgets all cached trees.
func (c *Compiler) Purge() {
	c.cache.Purge()
}
