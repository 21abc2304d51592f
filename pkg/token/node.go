// Package token defines the token tree consumed and produced by the
// sequence expansion engine.
//
// A tree is an ordered list of nodes. Leaves are identifiers, literals and
// single-character punctuation; a Group wraps a delimited subtree.
package token

import "strings"

// Node is the interface for all token tree nodes.
// The set of implementations is closed: *Ident, *Literal, *Punct and *Group.
type Node interface {
	Span() Span
	node() // marker method to restrict implementation
}

// nodeBase provides common span handling for all nodes.
type nodeBase struct {
	span Span
}

func (n *nodeBase) Span() Span { return n.span }
func (n *nodeBase) node()      {}

// Tree is an ordered sequence of sibling nodes.
type Tree []Node

// Ident is an identifier or keyword.
type Ident struct {
	nodeBase
	Name string
}

// NewIdent creates an identifier node.
func NewIdent(name string, span Span) *Ident {
	return &Ident{nodeBase: nodeBase{span: span}, Name: name}
}

// LitKind identifies the kind of a literal.
type LitKind int

// LitKind constants.
const (
	LitInt LitKind = iota
	LitFloat
	LitString
	LitChar
)

func (k LitKind) String() string {
	switch k {
	case LitInt:
		return "int"
	case LitFloat:
		return "float"
	case LitString:
		return "string"
	case LitChar:
		return "char"
	default:
		return "unknown"
	}
}

// Literal is a numeric, string or character literal. Text is the source
// text including quotes, prefixes and suffixes.
type Literal struct {
	nodeBase
	Kind LitKind
	Text string
}

// NewLiteral creates a literal node.
func NewLiteral(kind LitKind, text string, span Span) *Literal {
	return &Literal{nodeBase: nodeBase{span: span}, Kind: kind, Text: text}
}

// Punct is a single punctuation character.
// Joint is set when the next token starts exactly where this one ends.
type Punct struct {
	nodeBase
	Char  rune
	Joint bool
}

// NewPunct creates a punctuation node.
func NewPunct(ch rune, joint bool, span Span) *Punct {
	return &Punct{nodeBase: nodeBase{span: span}, Char: ch, Joint: joint}
}

// Delimiter identifies the bracket kind of a Group.
type Delimiter int

// Delimiter constants.
const (
	Paren Delimiter = iota
	Bracket
	Brace
)

// Open returns the opening bracket.
func (d Delimiter) Open() rune {
	switch d {
	case Bracket:
		return '['
	case Brace:
		return '{'
	default:
		return '('
	}
}

// Close returns the closing bracket.
func (d Delimiter) Close() rune {
	switch d {
	case Bracket:
		return ']'
	case Brace:
		return '}'
	default:
		return ')'
	}
}

func (d Delimiter) String() string {
	switch d {
	case Paren:
		return "paren"
	case Bracket:
		return "bracket"
	case Brace:
		return "brace"
	default:
		return "unknown"
	}
}

// DelimiterFor returns the delimiter opened or closed by ch.
func DelimiterFor(ch rune) (Delimiter, bool) {
	switch ch {
	case '(', ')':
		return Paren, true
	case '[', ']':
		return Bracket, true
	case '{', '}':
		return Brace, true
	}
	return 0, false
}

// Group is a delimited subtree. Its span runs from the opening bracket
// to the end of the closing bracket.
type Group struct {
	nodeBase
	Delim    Delimiter
	Children Tree
	Open     Span
	Close    Span
}

// NewGroup creates a group node spanning open through close.
func NewGroup(delim Delimiter, children Tree, open, close Span) *Group {
	return &Group{
		nodeBase: nodeBase{span: open.Join(close)},
		Delim:    delim,
		Children: children,
		Open:     open,
		Close:    close,
	}
}

// Clone returns a deep copy of the tree. No node is shared with the input.
func (t Tree) Clone() Tree {
	if t == nil {
		return nil
	}
	out := make(Tree, len(t))
	for i, n := range t {
		out[i] = CloneNode(n)
	}
	return out
}

// CloneNode returns a deep copy of n.
func CloneNode(n Node) Node {
	switch v := n.(type) {
	case *Ident:
		c := *v
		return &c
	case *Literal:
		c := *v
		return &c
	case *Punct:
		c := *v
		return &c
	case *Group:
		c := *v
		c.Children = v.Children.Clone()
		return &c
	default:
		return n
	}
}

// Adjacent reports whether b starts exactly where a ends. A punct on the
// left must also be marked joint.
func Adjacent(a, b Node) bool {
	sa, sb := a.Span(), b.Span()
	if !sa.IsValid() || !sb.IsValid() {
		return false
	}
	if p, ok := a.(*Punct); ok && !p.Joint {
		return false
	}
	return sa.End.Offset == sb.Start.Offset
}

// IsPunct reports whether n is the punctuation character ch.
func IsPunct(n Node, ch rune) bool {
	p, ok := n.(*Punct)
	return ok && p.Char == ch
}

// IsIdent reports whether n is an identifier with the given name.
func IsIdent(n Node, name string) bool {
	id, ok := n.(*Ident)
	return ok && id.Name == name
}

// Walk calls fn for every node in depth-first order, passing the group
// nesting depth. Returning false skips the children of a group.
func Walk(t Tree, fn func(n Node, depth int) bool) {
	walk(t, 0, fn)
}

func walk(t Tree, depth int, fn func(n Node, depth int) bool) {
	for _, n := range t {
		if !fn(n, depth) {
			continue
		}
		if g, ok := n.(*Group); ok {
			walk(g.Children, depth+1, fn)
		}
	}
}

// Text returns the source text of a leaf, or the bracket pair of a group.
func Text(n Node) string {
	switch v := n.(type) {
	case *Ident:
		return v.Name
	case *Literal:
		return v.Text
	case *Punct:
		return string(v.Char)
	case *Group:
		var b strings.Builder
		b.WriteRune(v.Delim.Open())
		b.WriteRune(v.Delim.Close())
		return b.String()
	}
	return ""
}

// Kind returns a short name for the node kind.
func Kind(n Node) string {
	switch v := n.(type) {
	case *Ident:
		return "ident"
	case *Literal:
		return v.Kind.String()
	case *Punct:
		return "punct"
	case *Group:
		return v.Delim.String()
	}
	return "unknown"
}
