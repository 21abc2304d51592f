package seq

import (
	"errors"
	"fmt"
	"math"
	"math/bits"

	"github.com/leapstack-labs/leapseq/pkg/token"
)

// Sentinel errors matched with errors.Is.
var (
	ErrMalformedHeader = errors.New("malformed header")
	ErrAmbiguousMarker = errors.New("ambiguous marker")
	ErrRangeTooLarge   = errors.New("range too large")
	ErrUnknownPolicy   = errors.New("unknown marker policy")
)

// MalformedHeaderError reports input that does not match
// `Ident in Int..Int { body }`.
type MalformedHeaderError struct {
	Pos      token.Position
	Expected string
	Found    string
	Message  string // optional detail, e.g. an overflow
}

func (e *MalformedHeaderError) Error() string {
	msg := fmt.Sprintf("expected %s, found %s", e.Expected, e.Found)
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	return fmt.Sprintf("malformed header at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, msg)
}

func (e *MalformedHeaderError) Unwrap() error { return ErrMalformedHeader }

// AmbiguousMarkerError is returned under PolicyReject when a body holds
// more than one repeat block.
type AmbiguousMarkerError struct {
	First  token.Span
	Second token.Span
}

func (e *AmbiguousMarkerError) Error() string {
	return fmt.Sprintf("ambiguous marker at line %d, column %d: second repeat block, first one at %s",
		e.Second.Start.Line, e.Second.Start.Column, e.First.Start)
}

func (e *AmbiguousMarkerError) Unwrap() error { return ErrAmbiguousMarker }

// RangeTooLargeError is returned when an expansion exceeds
// Config.MaxIterations. Blocks is the number of repeat blocks counted, zero
// when only the range was checked.
type RangeTooLargeError struct {
	Range  Range
	Blocks int
	Limit  int64
}

func (e *RangeTooLargeError) Error() string {
	if e.Blocks > 1 {
		return fmt.Sprintf("range %s has %d iterations across %d repeat blocks, limit is %d",
			e.Range, totalIterations(e.Range.Len(), e.Blocks), e.Blocks, e.Limit)
	}
	return fmt.Sprintf("range %s has %d iterations, limit is %d", e.Range, e.Range.Len(), e.Limit)
}

// totalIterations returns n*blocks, saturating at math.MaxUint64.
func totalIterations(n uint64, blocks int) uint64 {
	hi, lo := bits.Mul64(n, uint64(blocks))
	if hi != 0 {
		return math.MaxUint64
	}
	return lo
}

func (e *RangeTooLargeError) Unwrap() error { return ErrRangeTooLarge }
