package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapseq/pkg/lexer"
)

func TestPrint(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"leaves", "a   b\n\tc", "a b c"},
		{"joint punct", "a::b", "a::b"},
		{"spaced punct", "a : b", "a : b"},
		{"paren", "f( a , b )", "f( a , b )"},
		{"call", "f(a, b);", "f(a, b);"},
		{"bracket", "[1, 2]", "[1, 2]"},
		{"brace", "struct S{x:i32}", "struct S{x:i32}"},
		{"empty brace", "{ }", "{ }"},
		{"empty paren", "()", "()"},
		{"marker", "#( x )*", "#( x )*"},
		{"concat", "(item#x)", "(item#x)"},
		{"spaced concat", "item # x", "item # x"},
		{"negative", "-1", "-1"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := lexer.Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, Print(tree))
		})
	}
}

func TestPrint_Reparses(t *testing.T) {
	input := "fn f() -> u8 { let v = [a, (b)]; v[0] }"
	tree, err := lexer.Parse(input)
	require.NoError(t, err)

	again, err := lexer.Parse(Print(tree))
	require.NoError(t, err)
	assert.Equal(t, Print(tree), Print(again), "printing is stable across a re-lex")
}

func TestPretty(t *testing.T) {
	tree, err := lexer.Parse("fn f() { let a = 1; let b = { 2 }; } x")
	require.NoError(t, err)

	want := "fn f() {\n" +
		"    let a = 1;\n" +
		"    let b = {\n" +
		"        2\n" +
		"    }\n" +
		"    ;\n" +
		"}\n" +
		"x"
	assert.Equal(t, want, Pretty(tree))
}
