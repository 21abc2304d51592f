// Package seq expands `var in start..end { body }` templates.
//
// The body is a token tree. If it contains a repeat block `#( ... )*`, only
// the block's content is repeated once per value in the range and the rest
// of the body is emitted once. Otherwise the whole body is repeated. In
// both cases every identifier equal to the loop variable becomes the
// current integer, and `prefix#var` becomes the identifier prefixN.
package seq

import (
	"context"
	"log/slog"

	"github.com/leapstack-labs/leapseq/pkg/lexer"
	"github.com/leapstack-labs/leapseq/pkg/token"
)

// Mode records how an expansion was performed.
type Mode int

// Mode constants.
const (
	// ModeFallback repeats the whole body.
	ModeFallback Mode = iota
	// ModeExplicit repeats only the content of #( ... )* blocks.
	ModeExplicit
)

func (m Mode) String() string {
	if m == ModeExplicit {
		return "explicit"
	}
	return "fallback"
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Config holds engine configuration.
type Config struct {
	// Policy selects how multiple repeat blocks are handled.
	Policy MarkerPolicy
	// MaxIterations bounds the total number of body expansions: the range
	// length times the number of repeat blocks expanded. Zero means unlimited.
	MaxIterations int64
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Engine runs expansion requests. It holds no mutable state and is safe
// for concurrent use.
type Engine struct {
	policy        MarkerPolicy
	maxIterations int64
	logger        *slog.Logger
}

// Result is the outcome of one expansion.
type Result struct {
	Output     token.Tree
	Mode       Mode
	Markers    []token.Span // repeat blocks that were expanded
	Iterations uint64       // number of Expand calls
}

// New creates an engine.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		policy:        cfg.Policy,
		maxIterations: cfg.MaxIterations,
		logger:        logger,
	}
}

// Policy returns the configured marker policy.
func (e *Engine) Policy() MarkerPolicy {
	return e.policy
}

// Check reports whether req is within the engine's limits without
// expanding it. Every template expands the body at least once per value,
// so the range alone is checked; Run also counts repeat blocks.
func (e *Engine) Check(req *Request) error {
	if e.maxIterations > 0 && req.Range.Len() > uint64(e.maxIterations) {
		return &RangeTooLargeError{Range: req.Range, Limit: e.maxIterations}
	}
	return nil
}

// Run expands req. The body outside a repeat block is emitted once; without
// a block the whole body is emitted once per range value, in ascending order.
func (e *Engine) Run(ctx context.Context, req *Request) (*Result, error) {
	if err := e.Check(req); err != nil {
		return nil, err
	}

	s := &scanner{
		ctx:      ctx,
		variable: req.Variable,
		rng:      req.Range,
		policy:   e.policy,
		limit:    e.maxIterations,
	}
	out, found, err := s.scan(req.Body)
	if err != nil {
		return nil, err
	}

	if found {
		e.logger.Debug("expanded repeat blocks",
			slog.String("variable", req.Variable),
			slog.String("range", req.Range.String()),
			slog.Int("markers", len(s.markers)),
			slog.String("policy", e.policy.String()))
		return &Result{
			Output:     out,
			Mode:       ModeExplicit,
			Markers:    s.markers,
			Iterations: totalIterations(req.Range.Len(), len(s.markers)),
		}, nil
	}

	out = make(token.Tree, 0, len(req.Body)*int(min(req.Range.Len(), 1024)))
	for v := range req.Range.Values() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, Expand(req.Body, req.Variable, v)...)
	}

	e.logger.Debug("expanded whole body",
		slog.String("variable", req.Variable),
		slog.String("range", req.Range.String()),
		slog.Uint64("iterations", req.Range.Len()))
	return &Result{
		Output:     out,
		Mode:       ModeFallback,
		Iterations: req.Range.Len(),
	}, nil
}

// ExpandTree parses tree as a header and runs it.
func (e *Engine) ExpandTree(ctx context.Context, tree token.Tree) (*Result, error) {
	req, err := ParseHeader(tree)
	if err != nil {
		return nil, err
	}
	return e.Run(ctx, req)
}

// ExpandSource lexes, parses and runs src. file is used only to prefix
// errors and may be empty.
func (e *Engine) ExpandSource(ctx context.Context, src, file string) (*Result, error) {
	return e.ExpandSourceAt(ctx, src, file, token.Position{Line: 1, Column: 1})
}

// ExpandSourceAt is ExpandSource for src embedded at base in file.
func (e *Engine) ExpandSourceAt(ctx context.Context, src, file string, base token.Position) (*Result, error) {
	tree, err := lexer.ParseAt(src, base)
	if err != nil {
		return nil, withFile(file, err)
	}
	res, err := e.ExpandTree(ctx, tree)
	if err != nil {
		return nil, withFile(file, err)
	}
	return res, nil
}
