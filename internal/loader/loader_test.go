package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapseq/pkg/lexer"
	"github.com/leapstack-labs/leapseq/pkg/seq"
	"github.com/leapstack-labs/leapseq/pkg/token"
)

func TestExtractFrontmatter(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantYAML  bool
		wantName  string
		wantErr   bool
		errSubstr string
	}{
		{
			name:     "no frontmatter",
			content:  "x in 0..3 { x }",
			wantYAML: false,
		},
		{
			name: "with frontmatter",
			content: `/*---
name: counters
marker_policy: all
max_iterations: 100
---*/
x in 0..3 { x }`,
			wantYAML: true,
			wantName: "counters",
		},
		{
			name: "unknown field",
			content: `/*---
owner: me
---*/
x in 0..3 { x }`,
			wantErr:   true,
			errSubstr: `unknown field "owner"`,
		},
		{
			name: "bad policy",
			content: `/*---
marker_policy: last
---*/
x in 0..3 { x }`,
			wantErr:   true,
			errSubstr: "invalid marker_policy value",
		},
		{
			name: "negative limit",
			content: `/*---
max_iterations: -1
---*/
x in 0..3 { x }`,
			wantErr:   true,
			errSubstr: "must not be negative",
		},
		{
			name: "invalid yaml",
			content: `/*---
name: [unclosed
---*/
x in 0..3 { x }`,
			wantErr:   true,
			errSubstr: "invalid YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ExtractFrontmatter(tt.content)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errSubstr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantYAML, result.HasYAML)
			assert.Equal(t, tt.wantName, result.Config.Name)
			assert.Equal(t, "x in 0..3 { x }", strings.TrimSpace(result.Body))
		})
	}
}

func TestFrontmatterConfig_ApplyTo(t *testing.T) {
	limit := int64(5)
	cfg := (&FrontmatterConfig{MarkerPolicy: "reject", MaxIterations: &limit}).ApplyTo(seq.Config{MaxIterations: 100})
	assert.Equal(t, seq.PolicyReject, cfg.Policy)
	assert.Equal(t, int64(5), cfg.MaxIterations)

	cfg = (&FrontmatterConfig{}).ApplyTo(seq.Config{Policy: seq.PolicyAll, MaxIterations: 100})
	assert.Equal(t, seq.PolicyAll, cfg.Policy)
	assert.Equal(t, int64(100), cfg.MaxIterations)

	var nilConfig *FrontmatterConfig
	assert.Equal(t, seq.Config{MaxIterations: 7}, nilConfig.ApplyTo(seq.Config{MaxIterations: 7}))
}

func TestParseSeq_PositionsIncludeFrontmatter(t *testing.T) {
	content := "/*---\nname: n\n---*/\nx in 0..3 { x }"
	tpl, err := ParseSeq("dir/n.seq", content)
	require.NoError(t, err)
	assert.Equal(t, "n", tpl.Name)

	tree, err := lexer.ParseAt(tpl.Source, tpl.Base)
	require.NoError(t, err)
	require.NotEmpty(t, tree)
	assert.Equal(t, 4, tree[0].Span().Start.Line, "frontmatter is skipped as a comment")
}

func TestParseSeq_DefaultName(t *testing.T) {
	tpl, err := ParseSeq(filepath.Join("a", "b", "gen_fields.seq"), "x in 0..1 {}")
	require.NoError(t, err)
	assert.Equal(t, "gen_fields", tpl.Name)
	assert.Equal(t, 0, tpl.Block)
	assert.Equal(t, filepath.Join("a", "b", "gen_fields.seq"), tpl.ID())
}

func TestParseSeq_ErrorCarriesFile(t *testing.T) {
	_, err := ParseSeq("bad.seq", "/*---\ncolor: red\n---*/\nx in 0..1 {}")
	require.Error(t, err)

	var unknown *UnknownFieldError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "bad.seq", unknown.File)
	assert.True(t, strings.HasPrefix(err.Error(), "bad.seq: "))
}

const markdownDoc = `---
marker_policy: all
---
# Generated constants

Some prose.

` + "```seq name=consts\n" +
	"N in 0..3 { const C#N: u32 = N; }\n" +
	"```\n" +
	"\n" +
	"```rust\n" +
	"fn ignored() {}\n" +
	"```\n" +
	"\n" +
	"```seq marker_policy=first max_iterations=10\n" +
	"i in 0..2 {\n" +
	"    #( f#i )*\n" +
	"}\n" +
	"```\n"

func TestParseMarkdown(t *testing.T) {
	templates, err := ParseMarkdown("docs/gen.md", []byte(markdownDoc), DefaultMarkdownLang)
	require.NoError(t, err)
	require.Len(t, templates, 2)

	first := templates[0]
	assert.Equal(t, "consts", first.Name)
	assert.Equal(t, 1, first.Block)
	assert.Equal(t, "docs/gen.md#1", first.ID())
	assert.Equal(t, "all", first.Config.MarkerPolicy)
	assert.Equal(t, "N in 0..3 { const C#N: u32 = N; }\n", first.Source)
	assert.Equal(t, token.Position{Line: 9, Column: 1, Offset: strings.Index(markdownDoc, "N in")}, first.Base)

	second := templates[1]
	assert.Equal(t, "gen-2", second.Name)
	assert.Equal(t, 2, second.Block)
	assert.Equal(t, "first", second.Config.MarkerPolicy)
	require.NotNil(t, second.Config.MaxIterations)
	assert.Equal(t, int64(10), *second.Config.MaxIterations)

	tree, err := lexer.ParseAt(second.Source, second.Base)
	require.NoError(t, err)
	assert.Equal(t, 17, tree[0].Span().Start.Line)
}

func TestParseMarkdown_CustomLang(t *testing.T) {
	doc := "```rust\nx in 0..1 { x }\n```\n"
	templates, err := ParseMarkdown("r.md", []byte(doc), "rust")
	require.NoError(t, err)
	require.Len(t, templates, 1)

	templates, err = ParseMarkdown("r.md", []byte(doc), DefaultMarkdownLang)
	require.NoError(t, err)
	assert.Empty(t, templates)
}

func TestParseMarkdown_BadAttribute(t *testing.T) {
	doc := "text\n\n```seq colour=blue\nx in 0..1 { x }\n```\n"
	_, err := ParseMarkdown("a.md", []byte(doc), DefaultMarkdownLang)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `a.md: unknown field "colour"`)

	doc = "```seq oops\nx in 0..1 { x }\n```\n"
	_, err = ParseMarkdown("a.md", []byte(doc), DefaultMarkdownLang)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a.md:1: attribute \"oops\" is not key=value")
}

func TestParseMarkdown_NestedFences(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		source string
	}{
		{
			name:   "blockquote",
			doc:    "> ```seq\n> x in 0..2 { x\n> }\n> ```\n",
			source: "x in 0..2 { x\n  }\n",
		},
		{
			name:   "list item",
			doc:    "- item\n\n  ```seq\n  x in 0..2 { x\n  }\n  ```\n",
			source: "x in 0..2 { x\n  }\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			templates, err := ParseMarkdown("a.md", []byte(tt.doc), DefaultMarkdownLang)
			require.NoError(t, err)
			require.Len(t, templates, 1)

			tpl := templates[0]
			assert.Equal(t, tt.source, tpl.Source)
			assert.Equal(t, strings.Index(tt.doc, "x in"), tpl.Base.Offset)

			tree, err := lexer.ParseAt(tpl.Source, tpl.Base)
			require.NoError(t, err)
			body := tree[len(tree)-1].(*token.Group)
			assert.Equal(t, strings.Index(tt.doc, "{"), body.Open.Start.Offset)
			assert.Equal(t, strings.LastIndex(tt.doc, "}"), body.Close.Start.Offset)
			assert.Equal(t, 3, body.Close.Start.Column)

			res, err := seq.New(seq.Config{}).ExpandSourceAt(context.Background(), tpl.Source, tpl.ID(), tpl.Base)
			require.NoError(t, err)
			assert.Len(t, res.Output, 2)
			for _, n := range res.Output {
				assert.IsType(t, &token.Literal{}, n)
			}
		})
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0750))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0750))

	files := map[string]string{
		filepath.Join(dir, "a.seq"):         "x in 0..1 { x }",
		filepath.Join(dir, "sub", "b.seq"):  "y in 0..1 { y }",
		filepath.Join(dir, "sub", "c.md"):   "```seq\nz in 0..1 { z }\n```\n",
		filepath.Join(dir, "notes.txt"):     "ignored",
		filepath.Join(dir, ".hidden.seq"):   "ignored",
		filepath.Join(dir, ".git", "x.seq"): "ignored",
	}
	for path, content := range files {
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	}

	templates, err := LoadDir(dir, Options{})
	require.NoError(t, err)

	var names []string
	for _, tpl := range templates {
		names = append(names, tpl.Name)
	}
	assert.Equal(t, []string{"a", "b", "c-1"}, names)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "one.seq")
	require.NoError(t, os.WriteFile(file, []byte("x in 0..1 { x }"), 0600))

	templates, err := Load([]string{file, "-"}, strings.NewReader("s in 0..2 { s }"), Options{})
	require.NoError(t, err)
	require.Len(t, templates, 2)
	assert.Equal(t, "one", templates[0].Name)
	assert.Equal(t, "<stdin>", templates[1].Path)
	assert.Equal(t, "s in 0..2 { s }", templates[1].Source)

	_, err = Load([]string{filepath.Join(dir, "missing.seq")}, nil, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestIsTemplateFile(t *testing.T) {
	assert.True(t, IsTemplateFile("a.seq"))
	assert.True(t, IsTemplateFile("a.MD"))
	assert.True(t, IsTemplateFile("a.markdown"))
	assert.False(t, IsTemplateFile("a.rs"))
}
