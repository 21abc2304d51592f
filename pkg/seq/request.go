package seq

import (
	"fmt"
	"iter"

	"github.com/leapstack-labs/leapseq/pkg/token"
)

// Range is the half-open interval [Start, End).
type Range struct {
	Start int64
	End   int64
}

// Len returns the number of values in the range, zero when Start >= End.
func (r Range) Len() uint64 {
	if r.Start >= r.End {
		return 0
	}
	return uint64(r.End) - uint64(r.Start)
}

// Empty reports whether the range yields no values.
func (r Range) Empty() bool {
	return r.Start >= r.End
}

// Values yields Start, Start+1, ..., End-1.
func (r Range) Values() iter.Seq[int64] {
	return func(yield func(int64) bool) {
		for v := r.Start; v < r.End; v++ {
			if !yield(v) {
				return
			}
		}
	}
}

func (r Range) String() string {
	return fmt.Sprintf("%d..%d", r.Start, r.End)
}

// Request is a parsed `var in start..end { body }` invocation.
// It is not modified by the engine.
type Request struct {
	Variable string
	VarSpan  token.Span
	Range    Range
	Body     token.Tree
	BodySpan token.Span // span of the enclosing braces
}
