package format

import (
	"bytes"
	"strings"

	"github.com/leapstack-labs/leapseq/pkg/token"
)

const indentSize = 4

// Printer renders a token tree as text.
type Printer struct {
	output      *bytes.Buffer
	depth       int
	atLineStart bool
	prevEnd     int // source offset just past the last token written, -1 before any
	pretty      bool
}

func newPrinter(pretty bool) *Printer {
	return &Printer{
		output:      &bytes.Buffer{},
		atLineStart: true,
		prevEnd:     -1,
		pretty:      pretty,
	}
}

// String returns the rendered output without a trailing newline.
func (p *Printer) String() string {
	return strings.TrimRight(p.output.String(), " \n")
}

func (p *Printer) write(s string) {
	if p.atLineStart && len(s) > 0 && s[0] != '\n' {
		p.writeIndent()
	}
	p.output.WriteString(s)
	p.atLineStart = false
}

func (p *Printer) writeln() {
	if p.atLineStart {
		return
	}
	p.output.WriteByte('\n')
	p.atLineStart = true
}

func (p *Printer) writeIndent() {
	for i := 0; i < p.depth*indentSize; i++ {
		p.output.WriteByte(' ')
	}
	p.atLineStart = false
}

func (p *Printer) indent() {
	p.depth++
}

func (p *Printer) dedent() {
	if p.depth > 0 {
		p.depth--
	}
}

// separate writes one space before next unless it touched the previous
// token in the source.
func (p *Printer) separate(next token.Span) {
	if !p.atLineStart && p.prevEnd >= 0 && p.prevEnd != next.Start.Offset {
		p.output.WriteByte(' ')
	}
}

func (p *Printer) printTree(t token.Tree) {
	for _, n := range t {
		p.printNode(n)
	}
}

func (p *Printer) printNode(n token.Node) {
	if g, ok := n.(*token.Group); ok {
		p.printGroup(g)
		return
	}
	p.separate(n.Span())
	p.write(token.Text(n))
	p.prevEnd = n.Span().End.Offset
	if p.pretty && token.IsPunct(n, ';') {
		p.writeln()
	}
}

func (p *Printer) printGroup(g *token.Group) {
	p.separate(g.Open)
	p.write(string(g.Delim.Open()))
	p.prevEnd = g.Open.End.Offset

	if p.pretty && g.Delim == token.Brace && len(g.Children) > 0 {
		p.writeln()
		p.indent()
		p.printTree(g.Children)
		p.writeln()
		p.dedent()
	} else {
		p.printTree(g.Children)
	}

	p.separate(g.Close)
	p.write(string(g.Delim.Close()))
	p.prevEnd = g.Close.End.Offset
	if p.pretty && g.Delim == token.Brace {
		p.writeln()
	}
}
