package seq

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	pc "github.com/shibukawa/parsercombinator"

	"github.com/leapstack-labs/leapseq/pkg/lexer"
	"github.com/leapstack-labs/leapseq/pkg/token"
)

// intSuffixes are the integer type suffixes accepted on bounds, longest first.
var intSuffixes = []string{
	"i128", "u128", "isize", "usize",
	"i16", "i32", "i64", "u16", "u32", "u64",
	"i8", "u8",
}

// keywords cannot name the loop variable.
var keywords = map[string]bool{
	"_": true, "abstract": true, "as": true, "async": true, "await": true,
	"become": true, "box": true, "break": true, "const": true, "continue": true,
	"crate": true, "do": true, "dyn": true, "else": true, "enum": true,
	"extern": true, "false": true, "final": true, "fn": true, "for": true,
	"if": true, "impl": true, "in": true, "let": true, "loop": true,
	"macro": true, "match": true, "mod": true, "move": true, "mut": true,
	"override": true, "priv": true, "pub": true, "ref": true, "return": true,
	"self": true, "Self": true, "static": true, "struct": true, "super": true,
	"trait": true, "true": true, "try": true, "type": true, "typeof": true,
	"unsafe": true, "unsized": true, "use": true, "virtual": true, "where": true,
	"while": true, "yield": true,
}

// primitive matches a single token satisfying match.
func primitive(match func(token.Node) bool) pc.Parser[token.Node] {
	return func(pctx *pc.ParseContext[token.Node], tokens []pc.Token[token.Node]) (int, []pc.Token[token.Node], error) {
		if len(tokens) > 0 && match(tokens[0].Val) {
			return 1, tokens[:1], nil
		}
		return 0, nil, pc.ErrNotMatch
	}
}

// pair matches two consecutive tokens.
func pair(first, second func(token.Node) bool) pc.Parser[token.Node] {
	return func(pctx *pc.ParseContext[token.Node], tokens []pc.Token[token.Node]) (int, []pc.Token[token.Node], error) {
		if len(tokens) > 1 && first(tokens[0].Val) && second(tokens[1].Val) {
			return 2, tokens[:2], nil
		}
		return 0, nil, pc.ErrNotMatch
	}
}

// adjacentPair matches two tokens that touch in the source.
func adjacentPair(first, second func(token.Node) bool) pc.Parser[token.Node] {
	return func(pctx *pc.ParseContext[token.Node], tokens []pc.Token[token.Node]) (int, []pc.Token[token.Node], error) {
		if len(tokens) > 1 && first(tokens[0].Val) && second(tokens[1].Val) && token.Adjacent(tokens[0].Val, tokens[1].Val) {
			return 2, tokens[:2], nil
		}
		return 0, nil, pc.ErrNotMatch
	}
}

func isLoopVar(n token.Node) bool {
	id, ok := n.(*token.Ident)
	return ok && !keywords[id.Name]
}

func isIntLit(n token.Node) bool {
	lit, ok := n.(*token.Literal)
	return ok && lit.Kind == token.LitInt
}

func isPunct(ch rune) func(token.Node) bool {
	return func(n token.Node) bool { return token.IsPunct(n, ch) }
}

func isBrace(n token.Node) bool {
	g, ok := n.(*token.Group)
	return ok && g.Delim == token.Brace
}

var (
	loopVar = primitive(isLoopVar)
	inKw    = primitive(func(n token.Node) bool { return token.IsIdent(n, "in") })
	dotDot  = adjacentPair(isPunct('.'), isPunct('.'))
	body    = primitive(isBrace)

	// bound folds an optional minus sign into the literal.
	bound = pc.Trans(
		pc.Or(pair(isPunct('-'), isIntLit), primitive(isIntLit)),
		func(pctx *pc.ParseContext[token.Node], src []pc.Token[token.Node]) ([]pc.Token[token.Node], error) {
			if len(src) == 1 {
				return src, nil
			}
			lit := src[1].Val.(*token.Literal)
			merged := token.NewLiteral(token.LitInt, "-"+lit.Text, src[0].Val.Span().Join(lit.Span()))
			return []pc.Token[token.Node]{{Type: "int", Pos: src[0].Pos, Val: merged, Raw: merged.Text}}, nil
		},
	)
)

type headerStep struct {
	expected string
	parser   pc.Parser[token.Node]
}

var headerSteps = []headerStep{
	{"loop variable identifier", loopVar},
	{"`in`", inKw},
	{"integer literal", bound},
	{"`..`", dotDot},
	{"integer literal", bound},
	{"brace-delimited body", body},
	{"end of input", pc.EOS[token.Node]()},
}

// ParseHeader matches `Ident in Int..Int { body }` against the top level
// of tree and returns the resulting request.
func ParseHeader(tree token.Tree) (*Request, error) {
	tokens := toParserTokens(tree)
	end := endOf(tree)
	pctx := pc.NewParseContext[token.Node]()

	var matched [][]pc.Token[token.Node]
	rest := tokens
	for _, step := range headerSteps {
		consumed, m, err := step.parser(pctx, rest)
		if err != nil {
			return nil, &MalformedHeaderError{
				Pos:      positionOf(rest, end),
				Expected: step.expected,
				Found:    describe(rest),
			}
		}
		matched = append(matched, m)
		rest = rest[consumed:]
	}

	start, err := boundValue(matched[2][0].Val)
	if err != nil {
		return nil, err
	}
	stop, err := boundValue(matched[4][0].Val)
	if err != nil {
		return nil, err
	}

	v := matched[0][0].Val.(*token.Ident)
	g := matched[5][0].Val.(*token.Group)
	return &Request{
		Variable: v.Name,
		VarSpan:  v.Span(),
		Range:    Range{Start: start, End: stop},
		Body:     g.Children,
		BodySpan: g.Span(),
	}, nil
}

// Parse lexes src and parses it as a header. file is used only for the
// error prefix and may be empty.
func Parse(src, file string) (*Request, error) {
	tree, err := lexer.Parse(src)
	if err != nil {
		return nil, withFile(file, err)
	}
	req, err := ParseHeader(tree)
	if err != nil {
		return nil, withFile(file, err)
	}
	return req, nil
}

func withFile(file string, err error) error {
	if file == "" {
		return err
	}
	return fmt.Errorf("%s: %w", file, err)
}

func toParserTokens(tree token.Tree) []pc.Token[token.Node] {
	out := make([]pc.Token[token.Node], len(tree))
	for i, n := range tree {
		start := n.Span().Start
		out[i] = pc.Token[token.Node]{
			Type: token.Kind(n),
			Pos:  &pc.Pos{Line: start.Line, Col: start.Column, Index: start.Offset},
			Val:  n,
			Raw:  token.Text(n),
		}
	}
	return out
}

func endOf(tree token.Tree) token.Position {
	if len(tree) == 0 {
		return token.Position{Line: 1, Column: 1}
	}
	return tree[len(tree)-1].Span().End
}

func positionOf(rest []pc.Token[token.Node], end token.Position) token.Position {
	if len(rest) == 0 {
		return end
	}
	return rest[0].Val.Span().Start
}

func describe(rest []pc.Token[token.Node]) string {
	if len(rest) == 0 {
		return "end of input"
	}
	return fmt.Sprintf("%s %q", rest[0].Type, rest[0].Raw)
}

// boundValue converts an integer literal, optionally negated, to int64.
func boundValue(n token.Node) (int64, error) {
	lit := n.(*token.Literal)
	v, err := parseInt(lit.Text)
	if err != nil {
		return 0, &MalformedHeaderError{
			Pos:      lit.Span().Start,
			Expected: "integer literal",
			Found:    strconv.Quote(lit.Text),
			Message:  err.Error(),
		}
	}
	return v, nil
}

// parseInt parses a Rust-style integer literal: decimal or 0x/0o/0b,
// with '_' separators and an optional type suffix.
func parseInt(text string) (int64, error) {
	s := text
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	base := 10
	switch {
	case strings.HasPrefix(s, "0x"):
		base, s = 16, s[2:]
	case strings.HasPrefix(s, "0o"):
		base, s = 8, s[2:]
	case strings.HasPrefix(s, "0b"):
		base, s = 2, s[2:]
	}

	// hex digits can end in what looks like a suffix, so only strip one
	// that leaves digits behind
	for _, suffix := range intSuffixes {
		if trimmed, ok := strings.CutSuffix(s, suffix); ok && trimmed != "" {
			s = trimmed
			break
		}
	}
	s = strings.ReplaceAll(s, "_", "")
	if s == "" {
		return 0, errors.New("missing digits")
	}
	if neg {
		s = "-" + s
	}

	v, err := strconv.ParseInt(s, base, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return 0, errors.New("value out of range for a 64-bit signed integer")
		}
		return 0, fmt.Errorf("invalid digits for base %d", base)
	}
	return v, nil
}
