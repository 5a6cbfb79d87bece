package cast

import (
	"golang.org/x/net/html"

	"github.com/conneroisu/imbui/pkg/dom"
)

// PartKind identifies the variant of a Part.
type PartKind int

const (
	KindNode PartKind = iota
	KindAttr
	KindEvent
	KindRange
)

// String returns the kind name.
func (k PartKind) String() string {
	switch k {
	case KindNode:
		return "node"
	case KindAttr:
		return "attr"
	case KindEvent:
		return "event"
	case KindRange:
		return "range"
	default:
		return "unknown"
	}
}

// Part is a binding site tying one hole to live nodes. The set of parts is
// closed: *NodePart, *AttrPart, *EventPart and *RangePart.
type Part interface {
	// Index is the hole feeding this part.
	Index() int
	// Kind reports the variant.
	Kind() PartKind
	// Host is the logical host element passed to directives.
	Host() *html.Node
	// Runtime is the runtime that created the part.
	Runtime() *Runtime

	base() *partBase
}

type partBase struct {
	index int
	host  *html.Node
	rt    *Runtime
	owner *Instance

	directive *DirectiveResult
	dispose   func()
	disposed  bool
}

func (b *partBase) Index() int        { return b.index }
func (b *partBase) Host() *html.Node  { return b.host }
func (b *partBase) Runtime() *Runtime { return b.rt }
func (b *partBase) base() *partBase   { return b }

// siblings returns the flat parts list of the owning instance.
func (b *partBase) siblings() []Part {
	if b.owner == nil {
		return nil
	}
	return b.owner.parts
}

// NodePart is a single child position next to a marker comment.
type NodePart struct {
	partBase
	Marker *html.Node
	// Text is the text node holding the coerced value, if one was created.
	Text *html.Node

	// span holds rich content (nodes, nested templates) bound at this
	// position. Its end is Marker.
	span *Span
}

// Kind implements Part.
func (p *NodePart) Kind() PartKind { return KindNode }

// AttrPart is one attribute assembled from literal strings and hole values.
type AttrPart struct {
	partBase
	Element *html.Node
	Name    string
	// Strings has one more element than Indices.
	Strings []string
	Indices []int
}

// Kind implements Part.
func (p *AttrPart) Kind() PartKind { return KindAttr }

// EventPart binds a listener for Type on Element.
type EventPart struct {
	partBase
	Element *html.Node
	Type    string

	listener *dom.Listener
}

// Kind implements Part.
func (p *EventPart) Kind() PartKind { return KindEvent }

// Listener returns the currently attached listener, or nil.
func (p *EventPart) Listener() *dom.Listener { return p.listener }

// RangePart is a variable length child range between two marker comments.
type RangePart struct {
	partBase
	Start *html.Node
	End   *html.Node

	spans  []*Span
	direct *Span
	keyed  *keyedState
}

// Kind implements Part.
func (p *RangePart) Kind() PartKind { return KindRange }

// Spans returns the positional item spans currently rendered.
func (p *RangePart) Spans() []*Span {
	out := make([]*Span, len(p.spans))
	copy(out, p.spans)
	return out
}

// ActiveDirective returns the directive result last applied to p, or nil.
func ActiveDirective(p Part) *DirectiveResult {
	return p.base().directive
}

// nodeOf returns the node that locates p in the tree.
func nodeOf(p Part) *html.Node {
	switch p := p.(type) {
	case *NodePart:
		return p.Marker
	case *AttrPart:
		return p.Element
	case *EventPart:
		return p.Element
	case *RangePart:
		return p.Start
	}
	return nil
}
