// Package dom is a small live DOM built on golang.org/x/net/html nodes.
//
// The tree itself is plain *html.Node values. A Document owns everything the
// parser tree cannot hold on its own: event listeners, live element properties
// such as an input's current value, and mutation observers. All mutations that
// should be observable go through Document methods.
package dom

import (
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/conneroisu/imbui/internal/weakmap"
)

// Document owns the side tables for a set of nodes.
type Document struct {
	listeners *weakmap.Map[html.Node, map[string][]*Listener]
	props     *weakmap.Map[html.Node, map[string]any]

	mu        sync.Mutex
	observers map[int]func(Mutation)
	nextObs   int
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{
		listeners: weakmap.New[html.Node, map[string][]*Listener](),
		props:     weakmap.New[html.Node, map[string]any](),
		observers: make(map[int]func(Mutation)),
	}
}

// CreateElement returns a detached element.
func (d *Document) CreateElement(tag string) *html.Node {
	tag = strings.ToLower(tag)
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
}

// CreateTextNode returns a detached text node.
func (d *Document) CreateTextNode(text string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: text}
}

// CreateComment returns a detached comment node.
func (d *Document) CreateComment(data string) *html.Node {
	return &html.Node{Type: html.CommentNode, Data: data}
}

// CreateFragment returns an empty document fragment. Fragments are
// represented as html.DocumentNode roots; inserting one moves its children.
func (d *Document) CreateFragment() *html.Node {
	return &html.Node{Type: html.DocumentNode}
}

// IsFragment reports whether n is a fragment root.
func IsFragment(n *html.Node) bool {
	return n != nil && n.Type == html.DocumentNode
}

// ParseFragment parses markup the way a <template> element parses its
// innerHTML and returns the result as a fragment.
func (d *Document) ParseFragment(markup string) (*html.Node, error) {
	context := &html.Node{
		Type:     html.ElementNode,
		Data:     "template",
		DataAtom: atom.Template,
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), context)
	if err != nil {
		return nil, err
	}

	frag := d.CreateFragment()
	for _, n := range nodes {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
		frag.AppendChild(n)
	}
	return frag, nil
}

// CloneNode copies n. Listeners and properties are not copied.
func (d *Document) CloneNode(n *html.Node, deep bool) *html.Node {
	clone := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	if len(n.Attr) > 0 {
		clone.Attr = make([]html.Attribute, len(n.Attr))
		copy(clone.Attr, n.Attr)
	}
	if deep {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			clone.AppendChild(d.CloneNode(c, true))
		}
	}
	return clone
}
