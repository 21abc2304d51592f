package commands

import (
	"fmt"

	"github.com/leapstack-labs/leapseq/internal/cli/output"
	"github.com/leapstack-labs/leapseq/internal/loader"
	"github.com/leapstack-labs/leapseq/pkg/lexer"
	"github.com/leapstack-labs/leapseq/pkg/seq"
	"github.com/spf13/cobra"
)

// CheckResult is the outcome of checking one template.
type CheckResult struct {
	Template   string `json:"template" yaml:"template"`
	Variable   string `json:"variable,omitempty" yaml:"variable,omitempty"`
	Range      string `json:"range,omitempty" yaml:"range,omitempty"`
	Iterations uint64 `json:"iterations" yaml:"iterations"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
}

// OK reports whether the template passed.
func (c CheckResult) OK() bool {
	return c.Error == ""
}

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [paths...]",
		Short: "Validate template headers without expanding",
		Long: `Parse the header of every template and check its range against the
iteration limit. Nothing is expanded.

Exits with a non-zero status if any template fails.`,
		Example: `  # Check every template in a directory
  leapseq check templates/

  # Check in CI with machine-readable output
  leapseq check templates/ -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args)
		},
	}

	return cmd
}

func runCheck(cmd *cobra.Command, args []string) error {
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

	results := make([]CheckResult, 0, len(templates))
	failed := 0
	for _, tpl := range templates {
		res := checkTemplate(cmdCtx, tpl)
		if !res.OK() {
			failed++
		}
		results = append(results, res)
	}

	if ok, err := r.Structured(results); ok {
		if err != nil {
			return err
		}
	} else {
		renderCheck(r, results, failed)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d templates failed", failed, len(results))
	}
	return nil
}

func checkTemplate(cmdCtx *CommandContext, tpl *loader.Template) CheckResult {
	res := CheckResult{Template: tpl.ID()}

	tree, err := lexer.ParseAt(tpl.Source, tpl.Base)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	req, err := seq.ParseHeader(tree)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	res.Variable = req.Variable
	res.Range = req.Range.String()
	res.Iterations = req.Range.Len()
	if err := cmdCtx.EngineFor(tpl).Check(req); err != nil {
		res.Error = err.Error()
	}
	return res
}

func renderCheck(r *output.Renderer, results []CheckResult, failed int) {
	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println(output.FormatHeader(1, "Template Check"))
		r.Println("")
		for _, res := range results {
			if res.OK() {
				r.Printf("- [x] `%s` %s in %s (%d iterations)\n", res.Template, res.Variable, res.Range, res.Iterations)
			} else {
				r.Printf("- [ ] `%s` %s\n", res.Template, res.Error)
			}
		}
		r.Println("")
		r.Println(output.FormatKeyValue("Passed", fmt.Sprintf("%d", len(results)-failed)))
		r.Println(output.FormatKeyValue("Failed", fmt.Sprintf("%d", failed)))
		return
	}

	for _, res := range results {
		if res.OK() {
			r.StatusLine(res.Template, "success", fmt.Sprintf("%s in %s, %d iterations", res.Variable, res.Range, res.Iterations))
		} else {
			r.StatusLine(res.Template, "error", res.Error)
		}
	}

	summary := fmt.Sprintf("%d passed, %d failed", len(results)-failed, failed)
	if failed > 0 {
		r.Println(r.Styles().Error.Render(summary))
	} else {
		r.Success(summary)
	}
}
