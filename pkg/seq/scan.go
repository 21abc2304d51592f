package seq

import (
	"context"

	"github.com/leapstack-labs/leapseq/pkg/token"
)

// scanner locates #( ... )* repeat blocks and expands them in place.
type scanner struct {
	ctx      context.Context
	variable string
	rng      Range
	policy   MarkerPolicy
	limit    int64
	markers  []token.Span
}

// scan returns a rebuilt copy of tree with repeat blocks expanded and
// whether any block was found at or below this level.
func (s *scanner) scan(tree token.Tree) (token.Tree, bool, error) {
	out := make(token.Tree, 0, len(tree))
	found := false

	for i := 0; i < len(tree); i++ {
		if s.done() {
			out = append(out, token.CloneNode(tree[i]))
			continue
		}

		if g, ok := markerAt(tree, i); ok {
			span := tree[i].Span().Join(tree[i+2].Span())
			if s.policy == PolicyReject && len(s.markers) > 0 {
				return nil, false, &AmbiguousMarkerError{First: s.markers[0], Second: span}
			}
			s.markers = append(s.markers, span)
			if err := s.checkLimit(); err != nil {
				return nil, false, err
			}
			for v := range s.rng.Values() {
				if err := s.ctx.Err(); err != nil {
					return nil, false, err
				}
				out = append(out, Expand(g.Children, s.variable, v)...)
			}
			found = true
			i += 2
			continue
		}

		if g, ok := tree[i].(*token.Group); ok {
			children, f, err := s.scan(g.Children)
			if err != nil {
				return nil, false, err
			}
			out = append(out, token.NewGroup(g.Delim, children, g.Open, g.Close))
			found = found || f
			continue
		}

		out = append(out, token.CloneNode(tree[i]))
	}
	return out, found, nil
}

// checkLimit fails once the blocks found so far need more expansions than
// the limit allows.
func (s *scanner) checkLimit() error {
	if s.limit <= 0 {
		return nil
	}
	if totalIterations(s.rng.Len(), len(s.markers)) > uint64(s.limit) {
		return &RangeTooLargeError{Range: s.rng, Blocks: len(s.markers), Limit: s.limit}
	}
	return nil
}

// done reports whether the rest of the tree is copied without scanning.
func (s *scanner) done() bool {
	return s.policy == PolicyFirst && len(s.markers) > 0
}

// markerAt reports whether tree[i:i+3] is `#`, a paren group and `*`,
// each touching the next.
func markerAt(tree token.Tree, i int) (*token.Group, bool) {
	if i+2 >= len(tree) || !token.IsPunct(tree[i], '#') || !token.IsPunct(tree[i+2], '*') {
		return nil, false
	}
	g, ok := tree[i+1].(*token.Group)
	if !ok || g.Delim != token.Paren {
		return nil, false
	}
	if !token.Adjacent(tree[i], g) || !token.Adjacent(g, tree[i+2]) {
		return nil, false
	}
	return g, true
}
