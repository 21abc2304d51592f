// Package format renders token trees back to source text.
package format

import "github.com/leapstack-labs/leapseq/pkg/token"

// Print renders t on a single line. Tokens that touched in the source are
// written together; any other pair is separated by one space. Tokens from
// different iterations never touch.
func Print(t token.Tree) string {
	p := newPrinter(false)
	p.printTree(t)
	return p.String()
}

// Pretty renders t over multiple lines, breaking after ';' and placing the
// contents of brace groups on indented lines.
func Pretty(t token.Tree) string {
	p := newPrinter(true)
	p.printTree(t)
	return p.String()
}
