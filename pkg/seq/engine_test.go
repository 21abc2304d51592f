package seq

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapseq/internal/testutil"
	"github.com/leapstack-labs/leapseq/pkg/format"
	"github.com/leapstack-labs/leapseq/pkg/lexer"
	"github.com/leapstack-labs/leapseq/pkg/token"
)

func expand(t *testing.T, cfg Config, src string) *Result {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = testutil.NewTestLogger(t)
	}
	res, err := New(cfg).ExpandSource(context.Background(), src, "")
	require.NoError(t, err)
	return res
}

func TestEngine_Fallback(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"whole identifier", "x in 2..5 { x }", "2 3 4"},
		{"concat", "x in 0..3 { item#x }", "item0 item1 item2"},
		{"spaced hash", "x in 0..2 { item # x }", "item # 0 item # 1"},
		{"statement", "N in 0..2 { const C#N: u8 = N; }", "const C0: u8 = 0; const C1: u8 = 1;"},
		{"joint punct at end of body", "x in 0..3 { a#x-}", "a0- a1- a2-"},
		{"untouched concat stays joined", "x in 0..2 { (item#y) }", "(item#y) (item#y)"},
		{"negative range", "i in -2..1 { i }", "-2 -1 0"},
		{"empty range", "x in 3..3 { x }", ""},
		{"reversed range", "x in 5..2 { x }", ""},
		{"empty body", "x in 0..3 {}", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := expand(t, Config{}, tt.src)
			assert.Equal(t, ModeFallback, res.Mode)
			assert.Empty(t, res.Markers)
			assert.Equal(t, tt.want, format.Print(res.Output))
		})
	}
}

func TestEngine_FallbackCount(t *testing.T) {
	tests := []struct {
		start, end int64
		want       int
	}{
		{0, 0, 0},
		{0, 1, 1},
		{-5, 5, 10},
		{10, 3, 0},
		{100, 164, 64},
	}
	for _, tt := range tests {
		req := &Request{
			Variable: "n",
			Range:    Range{Start: tt.start, End: tt.end},
			Body:     mustLex(t, "(n)"),
		}
		res, err := New(Config{}).Run(context.Background(), req)
		require.NoError(t, err)
		assert.Len(t, res.Output, tt.want, "range %s", req.Range)
		assert.Equal(t, uint64(tt.want), res.Iterations)
	}
}

func TestEngine_Marker(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			"marker precedence",
			"x in 0..3 { prefix { #( item#x )* } }",
			"prefix { item0 item1 item2 }",
		},
		{
			"nested two levels",
			"x in 0..3 { ( [ #( x )* ] ) }",
			"( [ 0 1 2 ] )",
		},
		{
			"outside left verbatim",
			"x in 0..2 { x #( x , )* x }",
			"x 0 , 1 , x",
		},
		{
			"enum variants",
			"N in 1..4 { enum E { #( V#N, )* } }",
			"enum E { V1, V2, V3, }",
		},
		{
			"empty range drops block",
			"x in 0..0 { a #( x )* b }",
			"a b",
		},
		{
			"nested marker inside block is literal",
			"x in 0..2 { #( #( x )* )* }",
			"#( 0 )* #( 1 )*",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := expand(t, Config{}, tt.src)
			assert.Equal(t, ModeExplicit, res.Mode)
			require.Len(t, res.Markers, 1)
			assert.Equal(t, tt.want, format.Print(res.Output))
		})
	}
}

func TestEngine_NotAMarker(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"space after hash", "x in 0..2 { # ( x )* }", "# ( 0 )* # ( 1 )*"},
		{"space before star", "x in 0..2 { #( x ) * }", "#( 0 ) * #( 1 ) *"},
		{"no star", "x in 0..2 { #( x ) }", "#( 0 ) #( 1 )"},
		{"bracket group", "x in 0..2 { #[ x ]* }", "#[ 0 ]* #[ 1 ]*"},
		{"plus instead of star", "x in 0..2 { #( x )+ }", "#( 0 )+ #( 1 )+"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := expand(t, Config{}, tt.src)
			assert.Equal(t, ModeFallback, res.Mode)
			assert.Equal(t, tt.want, format.Print(res.Output))
		})
	}
}

func TestEngine_MarkerPolicy(t *testing.T) {
	src := "x in 0..2 { a { #( x )* } b ( #( y#x )* ) }"

	t.Run("first", func(t *testing.T) {
		res := expand(t, Config{Policy: PolicyFirst}, src)
		assert.Equal(t, ModeExplicit, res.Mode)
		assert.Len(t, res.Markers, 1)
		assert.Equal(t, "a { 0 1 } b ( #( y#x )* )", format.Print(res.Output))
		assert.Equal(t, uint64(2), res.Iterations)
	})

	t.Run("all", func(t *testing.T) {
		res := expand(t, Config{Policy: PolicyAll}, src)
		assert.Equal(t, ModeExplicit, res.Mode)
		assert.Len(t, res.Markers, 2)
		assert.Equal(t, "a { 0 1 } b ( y0 y1 )", format.Print(res.Output))
		assert.Equal(t, uint64(4), res.Iterations)
	})

	t.Run("reject", func(t *testing.T) {
		_, err := New(Config{Policy: PolicyReject}).ExpandSource(context.Background(), src, "")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrAmbiguousMarker)

		var ae *AmbiguousMarkerError
		require.True(t, errors.As(err, &ae))
		assert.Equal(t, 17, ae.First.Start.Column)
		assert.Equal(t, 31, ae.Second.Start.Column)
	})

	t.Run("reject single marker", func(t *testing.T) {
		res := expand(t, Config{Policy: PolicyReject}, "x in 0..2 { #( x )* }")
		assert.Equal(t, "0 1", format.Print(res.Output))
	})
}

func TestEngine_FirstMarkerSiblingsCopied(t *testing.T) {
	// a marker deeper in an earlier group wins over a later top-level one
	res := expand(t, Config{}, "x in 0..2 { ( #( x )* ) #( x )* x }")
	assert.Equal(t, "( 0 1 ) #( x )* x", format.Print(res.Output))
	require.Len(t, res.Markers, 1)
	assert.Equal(t, 15, res.Markers[0].Start.Column)
}

func TestEngine_OutputHasNoMarkers(t *testing.T) {
	srcs := []string{
		"x in 0..3 { prefix { #( item#x )* } }",
		"x in 0..3 { ( [ #( x )* ] ) }",
		"x in 0..3 { f#x(x) }",
	}
	for _, src := range srcs {
		res := expand(t, Config{}, src)
		again, err := lexer.Parse(format.Print(res.Output))
		require.NoError(t, err)

		found := 0
		token.Walk(again, func(n token.Node, _ int) bool {
			if g, ok := n.(*token.Group); ok {
				for i := range g.Children {
					if _, ok := markerAt(g.Children, i); ok {
						found++
					}
				}
			}
			return true
		})
		for i := range again {
			if _, ok := markerAt(again, i); ok {
				found++
			}
		}
		assert.Zero(t, found, "output of %q", src)
	}
}

func TestEngine_Deterministic(t *testing.T) {
	src := "n in 0..16 { fn f#n() -> u32 { #( n + )* 0 } }"
	first := format.Print(expand(t, Config{Policy: PolicyAll}, src).Output)
	for range 5 {
		assert.Equal(t, first, format.Print(expand(t, Config{Policy: PolicyAll}, src).Output))
	}
}

func TestEngine_RequestNotMutated(t *testing.T) {
	req, err := Parse("x in 0..3 { a#x #( x )* }", "")
	require.NoError(t, err)
	before := format.Print(req.Body)

	_, err = New(Config{}).Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, before, format.Print(req.Body))
}

func TestEngine_MaxIterations(t *testing.T) {
	eng := New(Config{MaxIterations: 10})

	_, err := eng.ExpandSource(context.Background(), "x in 0..10 { x }", "")
	require.NoError(t, err)

	_, err = eng.ExpandSource(context.Background(), "x in 0..11 { x }", "big.seq")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRangeTooLarge)
	assert.Contains(t, err.Error(), "big.seq: range 0..11 has 11 iterations, limit is 10")
}

func TestEngine_MaxIterationsCountsBlocks(t *testing.T) {
	src := "x in 0..6 { #( a#x )* #( b#x )* }"

	res, err := New(Config{MaxIterations: 10}).ExpandSource(context.Background(), src, "")
	require.NoError(t, err)
	assert.Equal(t, uint64(6), res.Iterations)

	_, err = New(Config{Policy: PolicyAll, MaxIterations: 10}).ExpandSource(context.Background(), src, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRangeTooLarge)
	assert.Contains(t, err.Error(), "range 0..6 has 12 iterations across 2 repeat blocks, limit is 10")

	res, err = New(Config{Policy: PolicyAll, MaxIterations: 12}).ExpandSource(context.Background(), src, "")
	require.NoError(t, err)
	assert.Equal(t, uint64(12), res.Iterations)
}

func TestTotalIterations(t *testing.T) {
	assert.Equal(t, uint64(0), totalIterations(0, 3))
	assert.Equal(t, uint64(12), totalIterations(6, 2))
	assert.Equal(t, uint64(math.MaxUint64), totalIterations(math.MaxUint64, 2))
}

func TestEngine_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Config{}).ExpandSource(ctx, "x in 0..3 { x }", "")
	assert.ErrorIs(t, err, context.Canceled)

	_, err = New(Config{}).ExpandSource(ctx, "x in 0..3 { #( x )* }", "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_ErrorsPropagate(t *testing.T) {
	_, err := New(Config{}).ExpandSource(context.Background(), "x in 0..3 ( x )", "")
	assert.ErrorIs(t, err, ErrMalformedHeader)

	_, err = New(Config{}).ExpandSource(context.Background(), "x in 0..3 { ] }", "")
	assert.ErrorIs(t, err, lexer.ErrUnbalancedGroup)
}

func TestEngine_Logs(t *testing.T) {
	logger, logs := testutil.NewCaptureLogger()

	expand(t, Config{Logger: logger}, "x in 0..3 { x }")
	expand(t, Config{Logger: logger}, "x in 0..3 { #( x )* }")

	lines := logs.Lines()
	require.Len(t, lines, 2)
	assert.True(t, strings.Contains(lines[0], `msg="expanded whole body"`), lines[0])
	assert.Contains(t, lines[0], "iterations=3")
	assert.Contains(t, lines[1], `msg="expanded repeat blocks"`)
	assert.Contains(t, lines[1], "markers=1")
}

func TestRange(t *testing.T) {
	assert.Equal(t, uint64(0), Range{3, 3}.Len())
	assert.Equal(t, uint64(0), Range{4, 3}.Len())
	assert.Equal(t, uint64(1<<64-1), Range{Start: -1 << 63, End: 1<<63 - 1}.Len())
	assert.True(t, Range{1, 1}.Empty())

	var got []int64
	for v := range (Range{-1, 2}).Values() {
		got = append(got, v)
	}
	assert.Equal(t, []int64{-1, 0, 1}, got)
	assert.Equal(t, "-1..2", Range{-1, 2}.String())
}

func TestMarkerPolicy(t *testing.T) {
	for _, name := range PolicyNames() {
		p, err := ParseMarkerPolicy(name)
		require.NoError(t, err)
		assert.Equal(t, name, p.String())
	}

	p, err := ParseMarkerPolicy(" ALL ")
	require.NoError(t, err)
	assert.Equal(t, PolicyAll, p)

	p, err = ParseMarkerPolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyFirst, p)

	_, err = ParseMarkerPolicy("last")
	assert.ErrorIs(t, err, ErrUnknownPolicy)

	var q MarkerPolicy
	require.NoError(t, q.UnmarshalText([]byte("reject")))
	assert.Equal(t, PolicyReject, q)
	assert.Error(t, q.UnmarshalText([]byte("nope")))
}
