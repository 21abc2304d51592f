package commands

import (
	"fmt"

	"github.com/leapstack-labs/leapseq/internal/cli/output"
	"github.com/leapstack-labs/leapseq/internal/loader"
	"github.com/leapstack-labs/leapseq/pkg/lexer"
	"github.com/leapstack-labs/leapseq/pkg/token"
	"github.com/spf13/cobra"
)

// TokenRow describes one node of a lexed template.
type TokenRow struct {
	Kind     string `json:"kind" yaml:"kind"`
	Text     string `json:"text" yaml:"text"`
	Position string `json:"position" yaml:"position"`
	Joint    bool   `json:"joint,omitempty" yaml:"joint,omitempty"`
	Depth    int    `json:"depth" yaml:"depth"`
}

// TokenListing holds the nodes of one template.
type TokenListing struct {
	Template string     `json:"template" yaml:"template"`
	Tokens   []TokenRow `json:"tokens" yaml:"tokens"`
}

// NewTokensCommand creates the tokens command.
func NewTokensCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens [paths...]",
		Short: "Show the token tree of templates",
		Long: `Lex templates and list every node of the resulting token tree with its
kind, text, position, jointness and nesting depth.

Groups are listed by their bracket pair followed by their children one level
deeper. This is useful for checking how a template is tokenized before it
is expanded.`,
		Example: `  # Show the tokens of a template
  leapseq tokens consts.seq

  # Tokens from stdin as JSON
  echo 'N in 0..2 { x#N }' | leapseq tokens -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokens(cmd, args)
		},
	}

	return cmd
}

func runTokens(cmd *cobra.Command, args []string) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	paths := args
	if len(paths) == 0 {
		paths = []string{"-"}
	}

	templates, err := loader.Load(paths, cmd.InOrStdin(), cmdCtx.LoaderOptions())
	if err != nil {
		return err
	}

	listings := make([]TokenListing, 0, len(templates))
	for _, tpl := range templates {
		tree, err := lexer.ParseAt(tpl.Source, tpl.Base)
		if err != nil {
			return fmt.Errorf("%s: %w", tpl.ID(), err)
		}
		listings = append(listings, TokenListing{Template: tpl.ID(), Tokens: tokenRows(tree)})
	}

	if ok, err := r.Structured(listings); ok {
		return err
	}

	for i, listing := range listings {
		if i > 0 {
			r.Println("")
		}
		if len(listings) > 1 {
			r.Header(2, listing.Template)
		}
		rows := make([][]any, len(listing.Tokens))
		for j, tok := range listing.Tokens {
			joint := ""
			if tok.Joint {
				joint = "yes"
			}
			rows[j] = []any{tok.Kind, tok.Text, tok.Position, joint, tok.Depth}
		}
		r.Table([]string{"kind", "text", "position", "joint", "depth"}, rows)
	}

	if r.EffectiveMode() == output.ModeText && len(listings) == 0 {
		r.Muted("no templates found")
	}
	return nil
}

// tokenRows flattens tree in source order.
func tokenRows(tree token.Tree) []TokenRow {
	var rows []TokenRow
	token.Walk(tree, func(n token.Node, depth int) bool {
		row := TokenRow{
			Kind:     token.Kind(n),
			Text:     token.Text(n),
			Position: n.Span().Start.String(),
			Depth:    depth,
		}
		if p, ok := n.(*token.Punct); ok {
			row.Joint = p.Joint
		}
		rows = append(rows, row)
		return true
	})
	return rows
}
