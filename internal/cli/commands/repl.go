package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/leapseq/pkg/format"
	"github.com/leapstack-labs/leapseq/pkg/lexer"
	"github.com/leapstack-labs/leapseq/pkg/seq"
	"github.com/leapstack-labs/leapseq/pkg/token"
	"github.com/spf13/cobra"
)

const (
	replPrompt     = "leapseq> "
	replContPrompt = "    ...> "
)

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Expand templates interactively",
		Long: `Start an interactive session. Each template is expanded as soon as its
brackets balance and its brace body is complete, so templates may span
several lines.

Dot-commands:
  .help           Show help
  .policy [name]  Show or set the marker policy (first|all|reject)
  .pretty         Toggle multi-line output
  .quit / .exit   Exit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd)
		},
	}

	return cmd
}

func runREPL(cmd *cobra.Command) error {
	cmdCtx := NewCommandContext(cmd)

	historyFile := ""
	if home, err := os.UserHomeDir(); err == nil {
		historyFile = filepath.Join(home, ".leapseq_history")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     historyFile,
		AutoComplete:    newREPLCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	session := newREPLSession(cmdCtx, cmd.OutOrStdout(), cmd.ErrOrStderr())

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "leapseq REPL")
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(cmd.OutOrStdout())

	ctx := cmd.Context()
	for ctx.Err() == nil {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			session.reset()
			rl.SetPrompt(replPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		if session.handleLine(ctx, line) {
			break
		}
		rl.SetPrompt(session.prompt())
	}

	return nil
}

// replSession holds the state of one interactive session.
type replSession struct {
	cmdCtx *CommandContext
	out    io.Writer
	errOut io.Writer
	policy seq.MarkerPolicy
	pretty bool
	buffer strings.Builder
}

func newREPLSession(cmdCtx *CommandContext, out, errOut io.Writer) *replSession {
	return &replSession{
		cmdCtx: cmdCtx,
		out:    out,
		errOut: errOut,
		policy: cmdCtx.Engine.Policy(),
		pretty: cmdCtx.Cfg.Pretty,
	}
}

func (s *replSession) reset() {
	s.buffer.Reset()
}

func (s *replSession) prompt() string {
	if s.buffer.Len() > 0 {
		return replContPrompt
	}
	return replPrompt
}

// handleLine processes one input line and reports whether the session ends.
func (s *replSession) handleLine(ctx context.Context, line string) bool {
	trimmed := strings.TrimSpace(line)
	if s.buffer.Len() == 0 {
		if trimmed == "" {
			return false
		}
		if strings.HasPrefix(trimmed, ".") {
			return s.dotCommand(trimmed)
		}
	}

	s.buffer.WriteString(line)
	s.buffer.WriteString("\n")

	src := s.buffer.String()
	tree, err := lexer.Parse(src)
	if incomplete(tree, err) {
		return false
	}
	s.buffer.Reset()

	if err != nil {
		s.printError(err)
		return false
	}

	engineCfg := s.cmdCtx.Cfg.EngineConfig()
	engineCfg.Policy = s.policy
	engineCfg.Logger = s.cmdCtx.Logger
	res, err := seq.New(engineCfg).ExpandTree(ctx, tree)
	if err != nil {
		s.printError(err)
		return false
	}

	if s.pretty {
		_, _ = fmt.Fprintln(s.out, format.Pretty(res.Output))
	} else {
		_, _ = fmt.Fprintln(s.out, format.Print(res.Output))
	}
	return false
}

// incomplete reports whether more input is needed: a group is still open,
// or no brace body has been seen yet.
func incomplete(tree token.Tree, err error) bool {
	var unbalanced *lexer.UnbalancedGroupError
	if errors.As(err, &unbalanced) {
		return unbalanced.Found == 0 && unbalanced.Expected != 0
	}
	if err != nil {
		return false
	}
	for _, n := range tree {
		if g, ok := n.(*token.Group); ok && g.Delim == token.Brace {
			return false
		}
	}
	return true
}

func (s *replSession) printError(err error) {
	_, _ = fmt.Fprintf(s.errOut, "Error: %v\n", err)
}

func (s *replSession) dotCommand(line string) bool {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(s.out)

	case ".policy":
		if len(parts) < 2 {
			_, _ = fmt.Fprintf(s.out, "marker policy: %s\n", s.policy)
			return false
		}
		p, err := seq.ParseMarkerPolicy(parts[1])
		if err != nil {
			s.printError(err)
			return false
		}
		s.policy = p
		_, _ = fmt.Fprintf(s.out, "marker policy set to %s\n", p)

	case ".pretty":
		s.pretty = !s.pretty
		state := "off"
		if s.pretty {
			state = "on"
		}
		_, _ = fmt.Fprintf(s.out, "pretty output %s\n", state)

	default:
		_, _ = fmt.Fprintf(s.errOut, "Unknown command: %s (type .help for commands)\n", command)
	}
	return false
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help           Show this help message
  .policy [name]  Show or set the marker policy (first|all|reject)
  .pretty         Toggle multi-line output
  .quit / .exit   Exit the REPL

Tips:
  - Enter a template such as: N in 0..3 { f(N); }
  - Input continues until brackets balance
  - Ctrl-C discards a partial template
`
	_, _ = fmt.Fprintln(w, help)
}

func newREPLCompleter() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem(".help"),
		readline.PcItem(".policy",
			readline.PcItem("first"),
			readline.PcItem("all"),
			readline.PcItem("reject"),
		),
		readline.PcItem(".pretty"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)
}
