package commands

import (
	"log/slog"

	"github.com/leapstack-labs/leapseq/internal/cli/config"
	"github.com/leapstack-labs/leapseq/internal/cli/output"
	"github.com/leapstack-labs/leapseq/internal/loader"
	"github.com/leapstack-labs/leapseq/pkg/format"
	"github.com/leapstack-labs/leapseq/pkg/seq"
	"github.com/leapstack-labs/leapseq/pkg/token"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *seq.Engine
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the loaded configuration.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	engineCfg := cfg.EngineConfig()
	engineCfg.Logger = logger

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Engine:   seq.New(engineCfg),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}
}

// getConfig returns the loaded configuration, or defaults when the command
// runs outside the root command.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return config.Default()
}

// LoaderOptions returns the template discovery options.
func (c *CommandContext) LoaderOptions() loader.Options {
	return loader.Options{MarkdownLang: c.Cfg.Markdown.Lang}
}

// EngineFor returns the engine for tpl, honoring its frontmatter overrides.
func (c *CommandContext) EngineFor(tpl *loader.Template) *seq.Engine {
	if tpl.Config == nil || (tpl.Config.MarkerPolicy == "" && tpl.Config.MaxIterations == nil) {
		return c.Engine
	}
	engineCfg := c.Cfg.EngineConfig()
	engineCfg.Logger = c.Logger.With("template", tpl.ID())
	return seq.New(tpl.Config.ApplyTo(engineCfg))
}

// Format prints a token tree honoring the pretty setting.
func (c *CommandContext) Format(t token.Tree) string {
	if c.Cfg.Pretty {
		return format.Pretty(t)
	}
	return format.Print(t)
}
