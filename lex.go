package treecalc

import (
	"errors"
	"io"
	"strconv"
	"strings"
	"unicode"
)

// Token is a classified token. The tree builder consumes a token stream from
// any source; Tokenize produces one from text.
type Token struct {
	Kind TokenKind
	Text string
	// Pos is the 1-based rune position of the token's first rune.
	Pos int
}

func (t Token) String() string {
	return t.Kind.String() + ":" + t.Text + "@" + strconv.Itoa(t.Pos)
}

// TokenKind classifies a token.
type TokenKind int8

const (
	TokenNone TokenKind = iota
	// TokenNum is a numeric literal.
	TokenNum
	// TokenQuoted is a quoted string literal. Text holds the unquoted contents.
	TokenQuoted
	// TokenIdent is a variable, function, consumer, or named operator name.
	TokenIdent
	// TokenOp is an operator.
	TokenOp
	// TokenOpen and TokenClose are parentheses.
	TokenOpen
	TokenClose
	// TokenComma separates aggregate members.
	TokenComma
	// TokenRangeOpen and TokenRangeClose delimit range descriptor endpoints.
	TokenRangeOpen
	TokenRangeClose
)

func (k TokenKind) String() string {
	switch k {
	case TokenNone:
		return "None"
	case TokenNum:
		return "Num"
	case TokenQuoted:
		return "Quoted"
	case TokenIdent:
		return "Ident"
	case TokenOp:
		return "Op"
	case TokenOpen:
		return "Open"
	case TokenClose:
		return "Close"
	case TokenComma:
		return "Comma"
	case TokenRangeOpen:
		return "RangeOpen"
	case TokenRangeClose:
		return "RangeClose"
	default:
		return "TokenKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Operators contains the runes which are considered to be operators.
const Operators = "+-*/^×÷<>=!'%√¬∫~"

// multiops are the two-rune operators, scanned by maximal munch.
var multiops = []string{"<=", ">=", "<>", "==", "!="}

type lexer struct {
	src  io.RuneScanner
	buf  strings.Builder
	rune int
}

func lex(src io.RuneScanner) *lexer {
	return &lexer{
		src:  src,
		rune: 1,
	}
}

// Tokenize classifies all of src into tokens.
func Tokenize(src io.RuneScanner) ([]Token, error) {
	l := lex(src)
	var toks []Token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		if tok.Kind == TokenNone {
			return toks, nil
		}
		toks = append(toks, tok)
	}
}

// TokenizeString is a shortcut to tokenize a string.
func TokenizeString(src string) ([]Token, error) {
	return Tokenize(strings.NewReader(src))
}

// readRune reads a rune from the src and updates the lexer's position info.
func (l *lexer) readRune() (r rune, err error) {
	r, sz, err := l.src.ReadRune()
	if sz > 0 {
		l.rune++
	}
	return r, err
}

// unreadRune unreads a rune from the src and updates the lexer's position
// info. Panics if unreading returns an error.
func (l *lexer) unreadRune() {
	if err := l.src.UnreadRune(); err != nil {
		panic(err)
	}
	l.rune--
}

// next scans the next token from the input. At the end of the input, the
// result is a token of kind TokenNone with a nil error.
func (l *lexer) next() (Token, error) {
	defer l.buf.Reset()
	tok := Token{Pos: l.rune}
	for {
		r, err := l.readRune()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Token{}, nil
			}
			return tok, err
		}
		switch {
		case unicode.IsSpace(r):
			tok.Pos++
			continue
		case '0' <= r && r <= '9', r == '.':
			l.unreadRune()
			if err := l.scanNum(); err != nil {
				return tok, err
			}
			tok.Text = l.buf.String()
			tok.Kind = TokenNum
			return tok, nil
		case r == '_', unicode.IsLetter(r):
			l.unreadRune()
			if err := l.scanIdent(); err != nil {
				return tok, err
			}
			tok.Text = l.buf.String()
			// inf looks like an identifier, so check for it here.
			switch tok.Text {
			case "inf", "Inf":
				tok.Kind = TokenNum
			default:
				tok.Kind = TokenIdent
			}
			return tok, nil
		case r == '"':
			if err := l.scanQuoted(); err != nil {
				return tok, err
			}
			tok.Text = l.buf.String()
			tok.Kind = TokenQuoted
			return tok, nil
		case r == '(':
			tok.Text, tok.Kind = "(", TokenOpen
			return tok, nil
		case r == ')':
			tok.Text, tok.Kind = ")", TokenClose
			return tok, nil
		case r == '[':
			tok.Text, tok.Kind = "[", TokenRangeOpen
			return tok, nil
		case r == ']':
			tok.Text, tok.Kind = "]", TokenRangeClose
			return tok, nil
		case r == ',':
			tok.Text, tok.Kind = ",", TokenComma
			return tok, nil
		case r == '∞':
			tok.Text, tok.Kind = "∞", TokenNum
			return tok, nil
		case strings.ContainsRune(Operators, r):
			if err := l.scanOp(r); err != nil {
				return tok, err
			}
			tok.Text = l.buf.String()
			tok.Kind = TokenOp
			return tok, nil
		default:
			// Write the rune so that it shows up in the error message.
			l.buf.WriteRune(r)
			return tok, l.error("")
		}
	}
}

func (l *lexer) scanNum() error {
	var dig, dot, e, le, ed bool
	for {
		r, err := l.readRune()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		if unicode.IsSpace(r) {
			l.unreadRune()
			break
		}
		if r == '+' || r == '-' {
			// + or - anywhere other than immediately following an exponent
			// marker means a new token, as it is an operator.
			if !le {
				l.unreadRune()
				break
			}
			le = false
			l.buf.WriteRune(r)
			continue
		}
		if strings.ContainsRune(Operators+"()[],\"", r) {
			l.unreadRune()
			break
		}
		l.buf.WriteRune(r)
		switch r {
		case '.':
			if dot || e {
				return l.error("number")
			}
			dot = true
			le = false
		case 'e', 'E':
			if !dig || e {
				return l.error("number")
			}
			e = true
			le = true
		case '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
			if e {
				ed = true
			} else {
				dig = true
			}
			le = false
		default:
			return l.error("number")
		}
	}
	if (!dig && !ed) || (e && !ed) {
		return l.error("number")
	}
	return nil
}

func (l *lexer) scanIdent() error {
	for {
		r, err := l.readRune()
		if err != nil {
			if errors.Is(err, io.EOF) {
				// next unreads the rune that decides ident scanning before
				// calling scanIdent, so we have scanned at least one rune.
				return nil
			}
			return err
		}
		switch {
		case r == '_', r == '.', unicode.IsLetter(r), unicode.IsDigit(r):
			l.buf.WriteRune(r)
		default:
			l.unreadRune()
			return nil
		}
	}
}

// scanQuoted scans the contents of a quoted string after the opening quote.
func (l *lexer) scanQuoted() error {
	esc := false
	for {
		r, err := l.readRune()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return l.error("string")
			}
			return err
		}
		switch {
		case esc:
			l.buf.WriteRune(r)
			esc = false
		case r == '\\':
			esc = true
		case r == '"':
			return nil
		default:
			l.buf.WriteRune(r)
		}
	}
}

// scanOp scans an operator beginning with first.
func (l *lexer) scanOp(first rune) error {
	l.buf.WriteRune(first)
	switch first {
	case '\'':
		// Derivative modifiers: the order is the number of primes.
		return l.scanRun(func(r rune) bool { return r == '\'' })
	case '∫':
		// Quadrature modifiers carry their kind as a suffix, e.g. ∫cc.
		return l.scanRun(unicode.IsLetter)
	}
	r, err := l.readRune()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	two := string(first) + string(r)
	for _, op := range multiops {
		if op == two {
			l.buf.WriteRune(r)
			return nil
		}
	}
	l.unreadRune()
	return nil
}

// scanRun appends runes to the buffer while ok accepts them.
func (l *lexer) scanRun(ok func(rune) bool) error {
	for {
		r, err := l.readRune()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if !ok(r) {
			l.unreadRune()
			return nil
		}
		l.buf.WriteRune(r)
	}
}

func (l *lexer) error(kind string) error {
	return &LexError{
		Text: l.buf.String(),
		Kind: kind,
		Col:  l.rune - 1,
	}
}

// LexError indicates an invalid token. It implements InputError.
type LexError struct {
	// Text is the token the lexer was scanning when the invalid rune was
	// encountered, plus the invalid rune.
	Text string
	// Kind is the type of token the lexer was scanning. This may be "number",
	// "string", or the empty string (if a token kind hadn't been decided).
	Kind string
	// Col is the total number of runes scanned by the lexer up to and
	// including this error.
	Col int
}

func (err *LexError) Error() string {
	pos := "column " + strconv.Itoa(err.Col)
	if err.Kind == "" {
		return "invalid token at " + pos + ": " + err.Text
	}
	return "invalid " + err.Kind + " token at " + pos + ": " + err.Text
}

func (err *LexError) Pos() int {
	return err.Col
}
