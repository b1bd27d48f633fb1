package treecalc

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLex(t *testing.T) {
	num := func(s string, p int) Token { return Token{Kind: TokenNum, Text: s, Pos: p} }
	id := func(s string, p int) Token { return Token{Kind: TokenIdent, Text: s, Pos: p} }
	op := func(s string, p int) Token { return Token{Kind: TokenOp, Text: s, Pos: p} }
	cases := []struct {
		src    string
		tokens []Token
		err    bool
	}{
		// spaces
		{"", nil, false},
		{" \t \r\n ", nil, false},
		// numbers
		{"0", []Token{num("0", 1)}, false},
		{"9876543210", []Token{num("9876543210", 1)}, false},
		{"1 0", []Token{num("1", 1), num("0", 3)}, false},
		{"1.0", []Token{num("1.0", 1)}, false},
		{"1e1", []Token{num("1e1", 1)}, false},
		{"1e+1", []Token{num("1e+1", 1)}, false},
		{"1e-1", []Token{num("1e-1", 1)}, false},
		{".1", []Token{num(".1", 1)}, false},
		{"inf", []Token{num("inf", 1)}, false},
		{"∞", []Token{num("∞", 1)}, false},
		{"1e", nil, true},
		{"1.1.1", nil, true},
		{".", nil, true},
		{"1a", nil, true},
		// identifiers
		{"e", []Token{id("e", 1)}, false},
		{"e1", []Token{id("e1", 1)}, false},
		{"π", []Token{id("π", 1)}, false},
		{"_x.y", []Token{id("_x.y", 1)}, false},
		// operators
		{"1-2", []Token{num("1", 1), op("-", 2), num("2", 3)}, false},
		{"a--b", []Token{id("a", 1), op("-", 2), op("-", 3), id("b", 4)}, false},
		{"<=", []Token{op("<=", 1)}, false},
		{"< =", []Token{op("<", 1), op("=", 3)}, false},
		{"<>", []Token{op("<>", 1)}, false},
		{"3!=4", []Token{num("3", 1), op("!=", 2), num("4", 4)}, false},
		{"3!", []Token{num("3", 1), op("!", 2)}, false},
		{"√x", []Token{op("√", 1), id("x", 2)}, false},
		{"f'''x", []Token{id("f", 1), op("'''", 2), id("x", 5)}, false},
		{"f∫cc(0", []Token{id("f", 1), op("∫cc", 2), {Kind: TokenOpen, Text: "(", Pos: 5}, num("0", 6)}, false},
		// text
		{`"a\"b"`, []Token{{Kind: TokenQuoted, Text: `a"b`, Pos: 1}}, false},
		{`"abc`, nil, true},
		// punctuation
		{"(1, 2)", []Token{
			{Kind: TokenOpen, Text: "(", Pos: 1},
			num("1", 2),
			{Kind: TokenComma, Text: ",", Pos: 3},
			num("2", 5),
			{Kind: TokenClose, Text: ")", Pos: 6},
		}, false},
		{"[x]", []Token{
			{Kind: TokenRangeOpen, Text: "[", Pos: 1},
			id("x", 2),
			{Kind: TokenRangeClose, Text: "]", Pos: 3},
		}, false},
		// erroneous symbols
		{"$", nil, true},
		{"a$", nil, true},
		{"{}", nil, true},
	}
	for _, c := range cases {
		got, err := TokenizeString(c.src)
		if c.err {
			var ierr InputError
			if !errors.As(err, &ierr) {
				t.Errorf("scanning %q: expected input error, got %v", c.src, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("scanning %q: unexpected error %v", c.src, err)
			continue
		}
		if diff := cmp.Diff(c.tokens, got); diff != "" {
			t.Errorf("scanning %q: wrong tokens (-want +got):\n%s", c.src, diff)
		}
	}
}

func TestLexErrorPos(t *testing.T) {
	_, err := TokenizeString("ab $")
	var lerr *LexError
	if !errors.As(err, &lerr) {
		t.Fatalf("expected LexError, got %v", err)
	}
	if lerr.Pos() != 4 {
		t.Errorf("wrong position: want 4, got %d", lerr.Pos())
	}
	if lerr.Text != "$" {
		t.Errorf("wrong text: want %q, got %q", "$", lerr.Text)
	}
}
