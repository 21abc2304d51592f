package lexer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapseq/pkg/token"
)

// leaves flattens a tree into kind/text pairs, recording groups by their
// bracket pair.
func leaves(tree token.Tree) [][2]string {
	var out [][2]string
	token.Walk(tree, func(n token.Node, _ int) bool {
		out = append(out, [2]string{token.Kind(n), token.Text(n)})
		return true
	})
	return out
}

func TestLexer_Leaves(t *testing.T) {
	tree, err := Parse(`foo 42 1.5 "hi" 'c' + _bar9`)
	require.NoError(t, err, "unexpected error")

	expected := [][2]string{
		{"ident", "foo"},
		{"int", "42"},
		{"float", "1.5"},
		{"string", `"hi"`},
		{"char", "'c'"},
		{"punct", "+"},
		{"ident", "_bar9"},
	}
	require.Len(t, tree, len(expected), "wrong number of tokens")
	for i, exp := range expected {
		assert.Equal(t, exp, leaves(tree)[i], "token[%d]", i)
	}
}

func TestLexer_Numbers(t *testing.T) {
	tests := []struct {
		input string
		kind  token.LitKind
	}{
		{"0", token.LitInt},
		{"1_000", token.LitInt},
		{"0xff", token.LitInt},
		{"0b1010", token.LitInt},
		{"0o17", token.LitInt},
		{"7u8", token.LitInt},
		{"1e10", token.LitFloat},
		{"2.5e-3", token.LitFloat},
		{"3f32", token.LitFloat},
		{"0xfe", token.LitInt},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tree, err := Parse(tt.input)
			require.NoError(t, err)
			require.Len(t, tree, 1)
			lit, ok := tree[0].(*token.Literal)
			require.True(t, ok, "expected literal, got %T", tree[0])
			assert.Equal(t, tt.kind, lit.Kind)
			assert.Equal(t, tt.input, lit.Text)
		})
	}
}

func TestLexer_RangeIsNotFloat(t *testing.T) {
	tree, err := Parse("0..3")
	require.NoError(t, err)
	require.Len(t, tree, 4)

	assert.Equal(t, "0", token.Text(tree[0]))
	assert.True(t, token.IsPunct(tree[1], '.'))
	assert.True(t, token.IsPunct(tree[2], '.'))
	assert.Equal(t, "3", token.Text(tree[3]))

	assert.True(t, tree[1].(*token.Punct).Joint, "first dot should be joint")
	assert.True(t, tree[2].(*token.Punct).Joint, "second dot touches the literal")
}

func TestLexer_Groups(t *testing.T) {
	tree, err := Parse("a ( b [ c { d } ] )")
	require.NoError(t, err)
	require.Len(t, tree, 2)

	paren, ok := tree[1].(*token.Group)
	require.True(t, ok)
	assert.Equal(t, token.Paren, paren.Delim)
	require.Len(t, paren.Children, 2)

	bracket, ok := paren.Children[1].(*token.Group)
	require.True(t, ok)
	assert.Equal(t, token.Bracket, bracket.Delim)

	brace, ok := bracket.Children[1].(*token.Group)
	require.True(t, ok)
	assert.Equal(t, token.Brace, brace.Delim)
	require.Len(t, brace.Children, 1)
	assert.True(t, token.IsIdent(brace.Children[0], "d"))

	assert.Equal(t, 2, paren.Open.Start.Offset)
	assert.Equal(t, 19, paren.Close.End.Offset)
	assert.Equal(t, paren.Open.Start, paren.Span().Start)
	assert.Equal(t, paren.Close.End, paren.Span().End)
}

func TestLexer_Joint(t *testing.T) {
	tests := []struct {
		name  string
		input string
		joint bool
	}{
		{"touching ident", "#x", true},
		{"spaced ident", "# x", false},
		{"touching group", "#(x)", true},
		{"trailing", "x #", false},
		{"comment between", "#/* c */x", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := Parse(tt.input)
			require.NoError(t, err)
			var p *token.Punct
			for _, n := range tree {
				if v, ok := n.(*token.Punct); ok {
					p = v
				}
			}
			require.NotNil(t, p, "no punct in %q", tt.input)
			assert.Equal(t, tt.joint, p.Joint)
		})
	}
}

func TestLexer_Positions(t *testing.T) {
	tree, err := Parse("a\n  bb")
	require.NoError(t, err)
	require.Len(t, tree, 2)

	assert.Equal(t, token.Position{Line: 1, Column: 1, Offset: 0}, tree[0].Span().Start)
	assert.Equal(t, token.Position{Line: 2, Column: 3, Offset: 4}, tree[1].Span().Start)
	assert.Equal(t, token.Position{Line: 2, Column: 5, Offset: 6}, tree[1].Span().End)
}

func TestLexer_ParseAt(t *testing.T) {
	tree, err := ParseAt("x\ny", token.Position{Line: 10, Column: 4, Offset: 100})
	require.NoError(t, err)
	require.Len(t, tree, 2)

	assert.Equal(t, token.Position{Line: 10, Column: 4, Offset: 100}, tree[0].Span().Start)
	assert.Equal(t, token.Position{Line: 11, Column: 1, Offset: 102}, tree[1].Span().Start)
}

func TestLexer_CommentsSkipped(t *testing.T) {
	tree, err := Parse("a // line\n/* block /* nested */ */ b")
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.True(t, token.IsIdent(tree[0], "a"))
	assert.True(t, token.IsIdent(tree[1], "b"))
}

func TestLexer_Strings(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`"a \" b"`, `"a \" b"`},
		{`b"bytes"`, `b"bytes"`},
		{`r"raw \n"`, `r"raw \n"`},
		{`r#"has "quotes""#`, `r#"has "quotes""#`},
		{`'\n'`, `'\n'`},
		{`'\''`, `'\''`},
		{`b'x'`, `b'x'`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tree, err := Parse(tt.input)
			require.NoError(t, err)
			require.Len(t, tree, 1)
			assert.Equal(t, tt.want, token.Text(tree[0]))
		})
	}
}

func TestLexer_Lifetime(t *testing.T) {
	tree, err := Parse("'a")
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.True(t, token.IsPunct(tree[0], '\''))
	assert.True(t, tree[0].(*token.Punct).Joint)
	assert.True(t, token.IsIdent(tree[1], "a"))
}

func TestLexer_Errors(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		unbalanced bool
		errSubstr  string
	}{
		{"unterminated string", `"abc`, false, "unterminated string"},
		{"unterminated comment", "/* abc", false, "unterminated block comment"},
		{"unexpected char", "a ` b", false, "unexpected character"},
		{"stray closer", "a )", true, "no open group"},
		{"mismatched", "( ]", true, "mismatched"},
		{"unclosed", "{ a", true, "unclosed group"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
			assert.Equal(t, tt.unbalanced, errors.Is(err, ErrUnbalancedGroup))

			if !tt.unbalanced {
				var lexErr *LexError
				assert.True(t, errors.As(err, &lexErr), "expected *LexError, got %T", err)
			}
		})
	}
}

func TestLexer_UnbalancedPosition(t *testing.T) {
	_, err := Parse("(\n  a ]")
	require.Error(t, err)

	var ue *UnbalancedGroupError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, 2, ue.Pos.Line)
	assert.Equal(t, 5, ue.Pos.Column)
	assert.Equal(t, ')', ue.Expected)
	assert.Equal(t, ']', ue.Found)
	assert.Equal(t, 1, ue.Open.Line)
}

func TestLexer_Empty(t *testing.T) {
	tree, err := Parse("  // only a comment\n")
	require.NoError(t, err)
	assert.Empty(t, tree)
}
