package lexer

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/leapseq/pkg/token"
)

// ErrUnbalancedGroup is matched by every *UnbalancedGroupError.
var ErrUnbalancedGroup = errors.New("unbalanced group")

// LexError represents a lexical analysis error.
type LexError struct {
	Pos     token.Position
	Message string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lexer error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// UnbalancedGroupError reports a closing bracket without a matching
// opener, a mismatched pair, or a group left open at end of input.
type UnbalancedGroupError struct {
	Pos      token.Position // where the problem was detected
	Open     token.Position // opener position, invalid when there is none
	Expected rune           // closer that was required, 0 when none was open
	Found    rune           // closer that was seen, 0 at end of input
}

func (e *UnbalancedGroupError) Error() string {
	var msg string
	switch {
	case e.Expected == 0:
		msg = fmt.Sprintf("unexpected %q with no open group", e.Found)
	case e.Found == 0:
		msg = fmt.Sprintf("unclosed group opened at %s, expected %q", e.Open, e.Expected)
	default:
		msg = fmt.Sprintf("mismatched %q, expected %q to close group opened at %s", e.Found, e.Expected, e.Open)
	}
	return fmt.Sprintf("unbalanced group at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, msg)
}

func (e *UnbalancedGroupError) Unwrap() error { return ErrUnbalancedGroup }

// Common error messages
const (
	errUnterminatedString  = "unterminated string literal"
	errUnterminatedChar    = "unterminated character literal"
	errUnterminatedComment = "unterminated block comment"
	errUnexpectedChar      = "unexpected character %q"
)
