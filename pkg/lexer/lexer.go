// Package lexer turns template source text into a token tree.
//
// The lexer accepts a Rust-like token syntax: identifiers, integer, float,
// string and character literals, single-character punctuation, and the
// three bracket kinds. Whitespace and comments are skipped; their only
// effect is on token adjacency, which is recorded through spans and the
// Joint flag on punctuation.
package lexer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/leapstack-labs/leapseq/pkg/token"
)

const punctChars = "!#$%&*+,-./:;<=>?@^|~\\"

type itemKind int

const (
	itemEOF itemKind = iota
	itemLeaf
	itemOpen
	itemClose
)

type item struct {
	kind  itemKind
	node  token.Node // set for itemLeaf
	delim token.Delimiter
	ch    rune
	span  token.Span
}

// Lexer tokenizes template source.
type Lexer struct {
	input string
	pos   int // offset of the current byte
	line  int
	col   int
	base  int // offset of input[0] in the enclosing file
}

// New creates a Lexer whose positions start at line 1, column 1.
func New(input string) *Lexer {
	return NewAt(input, token.Position{Line: 1, Column: 1})
}

// NewAt creates a Lexer for input embedded in a larger file, where the
// first byte of input sits at base.
func NewAt(input string, base token.Position) *Lexer {
	if !base.IsValid() {
		base = token.Position{Line: 1, Column: 1}
	}
	if base.Column < 1 {
		base.Column = 1
	}
	return &Lexer{
		input: input,
		line:  base.Line,
		col:   base.Column,
		base:  base.Offset,
	}
}

// Parse tokenizes src into a token tree.
func Parse(src string) (token.Tree, error) {
	return New(src).Parse()
}

// ParseAt tokenizes src as if it started at base in an enclosing file.
func ParseAt(src string, base token.Position) (token.Tree, error) {
	return NewAt(src, base).Parse()
}

// Parse consumes the whole input and returns its token tree.
func (l *Lexer) Parse() (token.Tree, error) {
	var items []item
	for {
		it, err := l.next()
		if err != nil {
			return nil, err
		}
		if it.kind == itemEOF {
			items = append(items, it)
			break
		}
		items = append(items, it)
	}
	markJoint(items)
	return build(items)
}

// markJoint sets Joint on every punct immediately followed by another token.
func markJoint(items []item) {
	for i := 0; i+1 < len(items); i++ {
		p, ok := items[i].node.(*token.Punct)
		if !ok || items[i+1].kind == itemEOF {
			continue
		}
		p.Joint = items[i+1].span.Start.Offset == items[i].span.End.Offset
	}
}

type frame struct {
	delim    token.Delimiter
	open     token.Span
	children token.Tree
}

func build(items []item) (token.Tree, error) {
	stack := []*frame{{}}
	for _, it := range items {
		top := stack[len(stack)-1]
		switch it.kind {
		case itemLeaf:
			top.children = append(top.children, it.node)
		case itemOpen:
			stack = append(stack, &frame{delim: it.delim, open: it.span})
		case itemClose:
			if len(stack) == 1 {
				return nil, &UnbalancedGroupError{Pos: it.span.Start, Found: it.ch}
			}
			if top.delim != it.delim {
				return nil, &UnbalancedGroupError{
					Pos:      it.span.Start,
					Open:     top.open.Start,
					Expected: top.delim.Close(),
					Found:    it.ch,
				}
			}
			stack = stack[:len(stack)-1]
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, token.NewGroup(top.delim, top.children, top.open, it.span))
		case itemEOF:
			if len(stack) > 1 {
				return nil, &UnbalancedGroupError{
					Pos:      it.span.Start,
					Open:     top.open.Start,
					Expected: top.delim.Close(),
				}
			}
		}
	}
	return stack[0].children, nil
}

// ch returns the current byte, or 0 at end of input.
func (l *Lexer) ch() byte {
	return l.peek(0)
}

// peek returns the byte n positions ahead without advancing.
func (l *Lexer) peek(n int) byte {
	if l.pos+n >= len(l.input) {
		return 0
	}
	return l.input[l.pos+n]
}

func (l *Lexer) eof() bool {
	return l.pos >= len(l.input)
}

// advance moves past the current byte.
func (l *Lexer) advance() {
	if l.eof() {
		return
	}
	if l.input[l.pos] == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	l.pos++
}

func (l *Lexer) advanceN(n int) {
	for i := 0; i < n; i++ {
		l.advance()
	}
}

func (l *Lexer) currentPos() token.Position {
	return token.Position{Line: l.line, Column: l.col, Offset: l.base + l.pos}
}

func (l *Lexer) next() (item, error) {
	if err := l.skipWhitespaceAndComments(); err != nil {
		return item{}, err
	}

	start := l.currentPos()
	if l.eof() {
		return item{kind: itemEOF, span: token.Span{Start: start, End: start}}, nil
	}

	c := l.ch()
	switch {
	case c == 'r' && l.rawStringAhead(1):
		return l.readRawString(start, 1)
	case c == 'b' && l.peek(1) == 'r' && l.rawStringAhead(2):
		return l.readRawString(start, 2)
	case c == 'b' && l.peek(1) == '"':
		l.advance()
		return l.readString(start)
	case c == 'b' && l.peek(1) == '\'':
		l.advance()
		return l.readCharOrPunct(start)
	case isIdentStart(c):
		return l.readIdent(start), nil
	case isDigit(c):
		return l.readNumber(start), nil
	case c == '"':
		return l.readString(start)
	case c == '\'':
		return l.readCharOrPunct(start)
	}

	if delim, ok := token.DelimiterFor(rune(c)); ok {
		l.advance()
		kind := itemClose
		if c == '(' || c == '[' || c == '{' {
			kind = itemOpen
		}
		return item{kind: kind, delim: delim, ch: rune(c), span: l.spanFrom(start)}, nil
	}

	if strings.IndexByte(punctChars, c) >= 0 {
		l.advance()
		span := l.spanFrom(start)
		return item{kind: itemLeaf, node: token.NewPunct(rune(c), false, span), span: span}, nil
	}

	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	return item{}, &LexError{Pos: start, Message: fmt.Sprintf(errUnexpectedChar, r)}
}

func (l *Lexer) spanFrom(start token.Position) token.Span {
	return token.Span{Start: start, End: l.currentPos()}
}

func (l *Lexer) leaf(n token.Node) item {
	return item{kind: itemLeaf, node: n, span: n.Span()}
}

func (l *Lexer) skipWhitespaceAndComments() error {
	for !l.eof() {
		c := l.ch()
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v':
			l.advance()
		case c == '/' && l.peek(1) == '/':
			for !l.eof() && l.ch() != '\n' {
				l.advance()
			}
		case c == '/' && l.peek(1) == '*':
			if err := l.skipBlockComment(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
	return nil
}

// skipBlockComment skips a possibly nested /* */ comment.
func (l *Lexer) skipBlockComment() error {
	start := l.currentPos()
	depth := 0
	for !l.eof() {
		switch {
		case l.ch() == '/' && l.peek(1) == '*':
			depth++
			l.advanceN(2)
		case l.ch() == '*' && l.peek(1) == '/':
			depth--
			l.advanceN(2)
			if depth == 0 {
				return nil
			}
		default:
			l.advance()
		}
	}
	return &LexError{Pos: start, Message: errUnterminatedComment}
}

func (l *Lexer) readIdent(start token.Position) item {
	from := l.pos
	for !l.eof() && isIdentChar(l.ch()) {
		l.advance()
	}
	return l.leaf(token.NewIdent(l.input[from:l.pos], l.spanFrom(start)))
}

// readNumber reads an integer or float literal including any prefix,
// digit separators and type suffix.
func (l *Lexer) readNumber(start token.Position) item {
	from := l.pos
	prefixed := false
	hex := false
	if l.ch() == '0' {
		switch l.peek(1) {
		case 'x':
			hex = true
			prefixed = true
		case 'o', 'b':
			prefixed = true
		}
		if prefixed {
			l.advanceN(2)
		}
	}

	isFloat := false
loop:
	for !l.eof() {
		c := l.ch()
		switch {
		case isDigit(c) || c == '_':
			l.advance()
		case c == '.' && !prefixed && !isFloat && isDigit(l.peek(1)):
			isFloat = true
			l.advance()
		case (c == 'e' || c == 'E') && !hex && isDigit(l.peek(1)):
			isFloat = true
			l.advance()
		case (c == 'e' || c == 'E') && !hex && (l.peek(1) == '+' || l.peek(1) == '-') && isDigit(l.peek(2)):
			isFloat = true
			l.advanceN(2)
		case isIdentChar(c):
			l.advance()
		default:
			break loop
		}
	}

	text := l.input[from:l.pos]
	if !prefixed && (strings.HasSuffix(text, "f32") || strings.HasSuffix(text, "f64")) {
		isFloat = true
	}
	kind := token.LitInt
	if isFloat {
		kind = token.LitFloat
	}
	return l.leaf(token.NewLiteral(kind, text, l.spanFrom(start)))
}

// readString reads a quoted string. start may precede the quote when the
// literal carries a prefix.
func (l *Lexer) readString(start token.Position) (item, error) {
	from := start.Offset - l.base
	l.advance() // opening quote
	for {
		if l.eof() {
			return item{}, &LexError{Pos: start, Message: errUnterminatedString}
		}
		switch l.ch() {
		case '\\':
			l.advanceN(2)
		case '"':
			l.advance()
			return l.leaf(token.NewLiteral(token.LitString, l.input[from:l.pos], l.spanFrom(start))), nil
		default:
			l.advance()
		}
	}
}

// rawStringAhead reports whether the bytes at offset n are zero or more
// '#' followed by a quote.
func (l *Lexer) rawStringAhead(n int) bool {
	for l.peek(n) == '#' {
		n++
	}
	return l.peek(n) == '"'
}

func (l *Lexer) readRawString(start token.Position, prefixLen int) (item, error) {
	from := l.pos
	l.advanceN(prefixLen)
	hashes := 0
	for l.ch() == '#' {
		hashes++
		l.advance()
	}
	l.advance() // opening quote
	closing := "\"" + strings.Repeat("#", hashes)
	for {
		if l.eof() {
			return item{}, &LexError{Pos: start, Message: errUnterminatedString}
		}
		if strings.HasPrefix(l.input[l.pos:], closing) {
			l.advanceN(len(closing))
			return l.leaf(token.NewLiteral(token.LitString, l.input[from:l.pos], l.spanFrom(start))), nil
		}
		l.advance()
	}
}

// readCharOrPunct reads a character literal, or a lone quote punct when the
// quote starts a lifetime label such as 'a.
func (l *Lexer) readCharOrPunct(start token.Position) (item, error) {
	from := start.Offset - l.base
	j := l.pos + 1
	if j < len(l.input) && l.input[j] == '\\' {
		rest := j + 2 // past the escaped character
		if rest > len(l.input) {
			return item{}, &LexError{Pos: start, Message: errUnterminatedChar}
		}
		end := strings.IndexByte(l.input[rest:], '\'')
		nl := strings.IndexByte(l.input[rest:], '\n')
		if end < 0 || (nl >= 0 && nl < end) {
			return item{}, &LexError{Pos: start, Message: errUnterminatedChar}
		}
		l.advanceN(rest - l.pos + end + 1)
		return l.leaf(token.NewLiteral(token.LitChar, l.input[from:l.pos], l.spanFrom(start))), nil
	}
	if j < len(l.input) {
		_, w := utf8.DecodeRuneInString(l.input[j:])
		if j+w < len(l.input) && l.input[j+w] == '\'' {
			l.advanceN(w + 2)
			return l.leaf(token.NewLiteral(token.LitChar, l.input[from:l.pos], l.spanFrom(start))), nil
		}
	}
	if from != l.pos {
		// a b prefix without a closing quote
		return item{}, &LexError{Pos: start, Message: errUnterminatedChar}
	}
	l.advance()
	span := l.spanFrom(start)
	return item{kind: itemLeaf, node: token.NewPunct('\'', false, span), span: span}, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= utf8.RuneSelf
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
