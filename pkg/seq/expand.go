package seq

import (
	"strconv"

	"github.com/leapstack-labs/leapseq/pkg/token"
)

// Expand returns a copy of tree with the loop variable replaced by value.
//
// An identifier equal to variable becomes an unsuffixed integer literal.
// The three adjacent tokens `prefix#variable` become the single identifier
// prefix followed by the decimal value; this form is matched first. Every
// node in the result is freshly allocated.
func Expand(tree token.Tree, variable string, value int64) token.Tree {
	text := strconv.FormatInt(value, 10)
	out := make(token.Tree, 0, len(tree))

	for i := 0; i < len(tree); i++ {
		switch n := tree[i].(type) {
		case *token.Group:
			out = append(out, token.NewGroup(n.Delim, Expand(n.Children, variable, value), n.Open, n.Close))
		case *token.Ident:
			if isConcat(tree, i, variable) {
				out = append(out, token.NewIdent(n.Name+text, n.Span().Join(tree[i+2].Span())))
				i += 2
				continue
			}
			if n.Name == variable {
				out = append(out, token.NewLiteral(token.LitInt, text, n.Span()))
				continue
			}
			out = append(out, token.NewIdent(n.Name, n.Span()))
		case *token.Literal:
			out = append(out, token.NewLiteral(n.Kind, n.Text, n.Span()))
		case *token.Punct:
			out = append(out, token.NewPunct(n.Char, n.Joint, n.Span()))
		}
	}
	return out
}

// isConcat reports whether tree[i:i+3] is `prefix # variable` with no
// whitespace between the three tokens.
func isConcat(tree token.Tree, i int, variable string) bool {
	if i+2 >= len(tree) {
		return false
	}
	hash, next := tree[i+1], tree[i+2]
	return token.IsPunct(hash, '#') &&
		token.IsIdent(next, variable) &&
		token.Adjacent(tree[i], hash) &&
		token.Adjacent(hash, next)
}
