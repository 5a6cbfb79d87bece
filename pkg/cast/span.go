package cast

import (
	"bytes"
	"context"
	"fmt"
	"reflect"

	"golang.org/x/net/html"

	"github.com/conneroisu/imbui/pkg/dom"
)

type contentKind int

const (
	contentNone contentKind = iota
	contentText
	contentNode
	contentNested
	contentComponent
	contentDirective
)

// Span is a pair of marker comments delimiting one item's nodes inside a
// range.
type Span struct {
	Start *html.Node
	End   *html.Node
	// Key is set for spans owned by a keyed list.
	Key any

	part   Part
	kind   contentKind
	text   *html.Node
	node   *html.Node
	nested *Instance
	adhoc  *RangePart
	last   any
}

// Nested returns the template instance rendered in the span, if any.
func (s *Span) Nested() *Instance { return s.nested }

// Nodes returns the nodes between the span's markers.
func (s *Span) Nodes() []*html.Node {
	var out []*html.Node
	for n := s.Start.NextSibling; n != nil && n != s.End; n = n.NextSibling {
		out = append(out, n)
	}
	return out
}

// newSpan inserts a fresh marker pair before ref.
func (rt *Runtime) newSpan(owner Part, parent, ref *html.Node, label string) *Span {
	s := &Span{
		Start: rt.doc.CreateComment(label),
		End:   rt.doc.CreateComment("/" + label),
		part:  owner,
	}
	rt.doc.InsertBefore(parent, s.Start, ref)
	rt.doc.InsertBefore(parent, s.End, ref)
	return s
}

// setSpanContent renders v between the span's markers. Content of the same
// shape is updated in place; anything else is torn down and rebuilt.
func (rt *Runtime) setSpanContent(s *Span, v any) {
	host := s.part.Host()

	if d, ok := v.(*DirectiveResult); ok && d != nil {
		if s.kind != contentDirective {
			rt.clearSpan(s)
			s.adhoc = &RangePart{
				partBase: partBase{index: -1, host: host, rt: rt, owner: s.part.base().owner},
				Start:    s.Start,
				End:      s.End,
			}
			s.kind = contentDirective
		}
		rt.runDirective(s.adhoc, d)
		return
	}

	if n, ok := v.(*html.Node); ok && n != nil {
		if s.kind == contentNode && s.node == n && (dom.IsFragment(n) || n.Parent == s.End.Parent) {
			return
		}
		rt.clearSpan(s)
		rt.doc.InsertBefore(s.End.Parent, n, s.End)
		s.kind, s.node = contentNode, n
		return
	}

	if res, ok := asResult(v); ok {
		if s.kind == contentNested && s.nested != nil && !s.nested.disposed && s.nested.identity == res.Template {
			rt.update(s.nested, res.Values)
			return
		}
		rt.clearSpan(s)
		if inst := rt.insertNested(res, s.End, host); inst != nil {
			s.kind, s.nested = contentNested, inst
		}
		return
	}

	if c, ok := asComponent(v); ok {
		if s.kind == contentComponent && same(s.last, v) {
			return
		}
		rt.clearSpan(s)
		var buf bytes.Buffer
		if err := c.Render(context.Background(), &buf); err != nil {
			rt.logger.Error(rt.ctx, err, "component render failed", "type", typeName(v))
			return
		}
		frag, err := rt.doc.ParseFragment(buf.String())
		if err != nil {
			rt.logger.Error(rt.ctx, err, "component markup parse failed", "type", typeName(v))
			return
		}
		rt.doc.InsertBefore(s.End.Parent, frag, s.End)
		s.kind, s.last = contentComponent, v
		return
	}

	text := rt.text(v)
	if s.kind == contentText && s.text != nil && s.text.Parent == s.End.Parent {
		if s.text.Data != text {
			rt.doc.SetData(s.text, text)
		}
		return
	}
	rt.clearSpan(s)
	s.text = rt.doc.CreateTextNode(text)
	rt.doc.InsertBefore(s.End.Parent, s.text, s.End)
	s.kind = contentText
}

// insertNested renders res into a detached fragment with this runtime, hands
// the fragment's instances to the destination parent and moves the nodes in
// before end.
func (rt *Runtime) insertNested(res Result, end, host *html.Node) *Instance {
	parent := end.Parent
	fragment := rt.doc.CreateFragment()
	if err := rt.Render(res, fragment, host); err != nil {
		rt.logger.Error(rt.ctx, err, "nested render failed")
		return nil
	}
	inst, _ := rt.Instance(fragment, res.Template)
	rt.MoveInstances(fragment, parent)
	rt.doc.InsertBefore(parent, fragment, end)
	return inst
}

// clearSpan disposes whatever the span holds and removes the nodes between
// its markers. The markers stay.
func (rt *Runtime) clearSpan(s *Span) {
	switch s.kind {
	case contentNested:
		if s.nested != nil {
			rt.DisposeInstance(s.nested)
		}
	case contentDirective:
		if s.adhoc != nil {
			rt.disposePart(s.adhoc)
		}
	}
	rt.disposeBetween(s.Start, s.End, s.part.base().siblings())
	s.kind = contentNone
	s.text, s.node, s.nested, s.adhoc, s.last = nil, nil, nil, nil, nil
}

// removeSpan clears the span and removes its markers.
func (rt *Runtime) removeSpan(s *Span) {
	rt.clearSpan(s)
	rt.doc.Remove(s.Start)
	rt.doc.Remove(s.End)
}

// renderRange reconciles a range's spans against v by position. Slices and
// arrays give one span per element; any other value is a single item.
func (rt *Runtime) renderRange(p *RangePart, v any) {
	if p.direct != nil {
		rt.removeDirect(p)
	}
	if p.keyed != nil {
		rt.disposeKeyed(p)
	}

	items := toItems(v)
	parent := p.End.Parent

	for _, s := range p.spans[min(len(items), len(p.spans)):] {
		rt.removeSpan(s)
	}
	if len(p.spans) > len(items) {
		p.spans = p.spans[:len(items)]
	}

	for i := len(p.spans); i < len(items); i++ {
		label := fmt.Sprintf("i:%d", p.index)
		p.spans = append(p.spans, rt.newSpan(p, parent, p.End, label))
	}

	for i, item := range items {
		rt.setSpanContent(p.spans[i], item)
	}
}

// removeDirect drops content a directive committed straight into the range.
func (rt *Runtime) removeDirect(p *RangePart) {
	rt.clearSpan(p.direct)
	p.direct = nil
}

// clearPositional removes all positional spans of a range.
func (rt *Runtime) clearPositional(p *RangePart) {
	for _, s := range p.spans {
		rt.removeSpan(s)
	}
	p.spans = nil
}

func toItems(v any) []any {
	switch x := v.(type) {
	case []any:
		return x
	case nil, string, []byte:
		return []any{v}
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out
	}
	return []any{v}
}
