package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leapstack-labs/leapseq/internal/cli/output"
	"github.com/leapstack-labs/leapseq/internal/loader"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// watchDebounce delays re-expansion until a burst of file events settles.
const watchDebounce = 100 * time.Millisecond

// ExpandOptions holds options for the expand command.
type ExpandOptions struct {
	Watch bool
}

// ExpandResult is the machine-readable outcome of one template.
type ExpandResult struct {
	Template   string `json:"template" yaml:"template"`
	Name       string `json:"name,omitempty" yaml:"name,omitempty"`
	Mode       string `json:"mode,omitempty" yaml:"mode,omitempty"`
	Iterations uint64 `json:"iterations" yaml:"iterations"`
	Output     string `json:"output" yaml:"output"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewExpandCommand creates the expand command.
func NewExpandCommand() *cobra.Command {
	opts := &ExpandOptions{}

	cmd := &cobra.Command{
		Use:   "expand [paths...]",
		Short: "Expand templates and print the result",
		Long: `Expand every template found in the given files and directories.

A .seq file holds one template. Markdown files contribute every fenced code
block tagged with the configured language (default "seq"). Directories are
searched recursively. With no arguments, or "-", the template is read from
stdin.

Output adapts to environment:
  - Terminal: expanded tokens
  - Piped/Scripted: Markdown with one section per template`,
		Example: `  # Expand a template file
  leapseq expand consts.seq

  # Expand from stdin
  echo 'N in 0..3 { f(N); }' | leapseq expand

  # Expand every template under a directory as JSON
  leapseq expand templates/ -o json

  # Re-expand whenever a template changes
  leapseq expand templates/ --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExpand(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Re-expand when templates change")

	return cmd
}

func runExpand(cmd *cobra.Command, args []string, opts *ExpandOptions) error {
	cmdCtx := NewCommandContext(cmd)

	paths := args
	if len(paths) == 0 {
		paths = []string{"-"}
	}

	if opts.Watch {
		if slices.Contains(paths, "-") {
			return fmt.Errorf("--watch requires file or directory arguments")
		}
		return watchExpand(cmd.Context(), cmdCtx, paths)
	}
	return expandOnce(cmd.Context(), cmdCtx, paths, cmd.InOrStdin())
}

// expandOnce loads, expands and renders paths. It fails if any template failed.
func expandOnce(ctx context.Context, cmdCtx *CommandContext, paths []string, stdin io.Reader) error {
	templates, err := loader.Load(paths, stdin, cmdCtx.LoaderOptions())
	if err != nil {
		return err
	}
	cmdCtx.Logger.Debug("loaded templates", "count", len(templates))

	results, err := expandAll(ctx, cmdCtx, templates)
	if err != nil {
		return err
	}

	if err := renderExpansions(cmdCtx.Renderer, results); err != nil {
		return err
	}

	failed := 0
	for _, res := range results {
		if res.Error != "" {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d templates failed to expand", failed, len(results))
	}
	return nil
}

// expandAll expands templates concurrently, bounded by the workers setting.
// Results keep the order of templates; per-template errors are recorded in
// the result, only cancellation aborts the batch.
func expandAll(ctx context.Context, cmdCtx *CommandContext, templates []*loader.Template) ([]ExpandResult, error) {
	results := make([]ExpandResult, len(templates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cmdCtx.Cfg.Workers, 1))

	for i, tpl := range templates {
		g.Go(func() error {
			res := ExpandResult{Template: tpl.ID(), Name: tpl.Name}

			out, err := cmdCtx.EngineFor(tpl).ExpandSourceAt(gctx, tpl.Source, tpl.ID(), tpl.Base)
			switch {
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return err
			case err != nil:
				res.Error = err.Error()
			default:
				res.Mode = out.Mode.String()
				res.Iterations = out.Iterations
				res.Output = cmdCtx.Format(out.Output)
			}

			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func renderExpansions(r *output.Renderer, results []ExpandResult) error {
	if ok, err := r.Structured(results); ok {
		return err
	}

	if r.EffectiveMode() == output.ModeMarkdown {
		for i, res := range results {
			if i > 0 {
				r.Println("")
			}
			r.Println(output.FormatHeader(2, res.Template))
			r.Println("")
			if res.Name != "" {
				r.Println(output.FormatKeyValue("Name", res.Name))
			}
			if res.Error != "" {
				r.Println(output.FormatKeyValue("Error", res.Error))
				continue
			}
			r.Println(output.FormatKeyValue("Mode", res.Mode))
			r.Println(output.FormatKeyValue("Iterations", fmt.Sprintf("%d", res.Iterations)))
			r.Println("")
			r.Println(output.FormatCodeBlock("", res.Output))
		}
		return nil
	}

	// Text mode: the expanded tokens, labelled when there is more than one template
	for _, res := range results {
		if res.Error != "" {
			r.Error(res.Error)
			continue
		}
		if len(results) > 1 {
			r.Println(r.Styles().Muted.Render("// " + res.Template))
		}
		r.Println(res.Output)
	}
	return nil
}

// watchExpand expands paths, then again after every change until ctx is done.
func watchExpand(ctx context.Context, cmdCtx *CommandContext, paths []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	for _, p := range paths {
		if err := watchPath(watcher, p); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
	}

	run := func() {
		if err := expandOnce(ctx, cmdCtx, paths, nil); err != nil && ctx.Err() == nil {
			cmdCtx.Renderer.Error(err.Error())
		}
	}
	run()

	changed := make(chan string, 1)
	var debounceTimer *time.Timer
	schedule := func(name string) {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		debounceTimer = time.AfterFunc(watchDebounce, func() {
			select {
			case changed <- name:
			default:
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if event.Has(fsnotify.Create) {
				isDir, err := watchCreated(watcher, event.Name)
				if err != nil {
					cmdCtx.Logger.Warn("failed to watch directory", "dir", event.Name, "error", err)
				}
				if isDir {
					// templates moved in with the directory raise no events of their own
					schedule(event.Name)
					continue
				}
			}
			if !loader.IsTemplateFile(event.Name) && !isConfigFile(event.Name) {
				continue
			}
			schedule(event.Name)

		case name := <-changed:
			cmdCtx.Logger.Info("change detected", "file", filepath.Base(name))
			run()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			cmdCtx.Logger.Warn("watcher error", "error", err)
		}
	}
}

// watchPath adds p to the watcher. Directories are added recursively,
// skipping hidden ones; files are watched through their parent so editors
// that replace files on save keep being tracked.
func watchPath(watcher *fsnotify.Watcher, p string) error {
	info, err := os.Stat(p)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return watcher.Add(filepath.Dir(p))
	}
	return filepath.WalkDir(p, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != p && len(d.Name()) > 0 && d.Name()[0] == '.' {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

// watchCreated adds name to the watcher when it is a new, non-hidden
// directory and reports whether it was added.
func watchCreated(watcher *fsnotify.Watcher, name string) (bool, error) {
	info, err := os.Stat(name)
	if err != nil || !info.IsDir() || strings.HasPrefix(filepath.Base(name), ".") {
		return false, nil
	}
	return true, watchPath(watcher, name)
}

func isConfigFile(path string) bool {
	switch filepath.Base(path) {
	case "leapseq.yaml", "leapseq.yml":
		return true
	}
	return false
}
