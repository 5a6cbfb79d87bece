package cast

import (
	"fmt"

	"golang.org/x/net/html"

	imbuierrors "github.com/conneroisu/imbui/internal/errors"
	"github.com/conneroisu/imbui/pkg/dom"
)

// RenderOption configures a package-level Render call.
type RenderOption func(*renderConfig)

type renderConfig struct {
	host *html.Node
	rt   *Runtime
}

// WithHost sets the logical host element handed to directives.
func WithHost(host *html.Node) RenderOption {
	return func(c *renderConfig) { c.host = host }
}

// WithRuntime renders with rt instead of the default runtime.
func WithRuntime(rt *Runtime) RenderOption {
	return func(c *renderConfig) { c.rt = rt }
}

// Render mounts res into container, or updates it in place when container
// already shows the same template.
func Render(res Result, container *html.Node, opts ...RenderOption) error {
	cfg := renderConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.rt == nil {
		cfg.rt = Default()
	}
	return cfg.rt.Render(res, container, cfg.host)
}

// Render mounts res into container, or diffs it against the instance already
// there. host defaults to container when container is an element.
func (rt *Runtime) Render(res Result, container *html.Node, host *html.Node) error {
	if container == nil {
		return imbuierrors.NewContainerError(imbuierrors.ErrCodeNilContainer, "render target is nil")
	}
	if res.Template == nil {
		return imbuierrors.NewCompileError(imbuierrors.ErrCodeNilTemplate, "result has no template", nil)
	}

	bp, err := rt.Compile(res.Template)
	if err != nil {
		return err
	}

	instances := rt.instanceMap(container)
	prev, hasPrev := rt.active.Get(container)
	live, hasLive := instances[res.Template]
	hasLive = hasLive && !live.disposed
	// Without an active template, cached instances are only kept when one of
	// them can be diffed against res.
	if (hasPrev && prev != res.Template) || (!hasPrev && !hasLive) {
		for t, inst := range instances {
			rt.DisposeInstance(inst)
			delete(instances, t)
		}
	}
	rt.active.Set(container, res.Template)

	if inst, ok := instances[res.Template]; ok && !inst.disposed {
		rt.update(inst, res.Values)
		return nil
	}

	if host == nil && container.Type == html.ElementNode {
		host = container
	}
	inst, fragment := rt.mount(res.Template, bp, res.Values, host)
	rt.doc.ReplaceChildren(container, fragment)
	instances[res.Template] = inst
	return nil
}

// mount clones the blueprint content and binds every part's initial value.
// The bound content is returned in a detached fragment.
func (rt *Runtime) mount(t *Template, bp *Blueprint, values []any, host *html.Node) (*Instance, *html.Node) {
	fragment := rt.doc.CloneNode(bp.content, true)
	inst := &Instance{identity: t, values: snapshot(values)}
	inst.parts = instantiate(fragment, bp)
	for _, p := range inst.parts {
		b := p.base()
		b.host = host
		b.owner = inst
		b.rt = rt
	}

	for _, p := range inst.parts {
		v := inst.value(p.Index())
		if d, ok := v.(*DirectiveResult); ok && d != nil {
			rt.runDirective(p, d)
			continue
		}
		switch p := p.(type) {
		case *NodePart:
			rt.bindNode(p, v)
		case *AttrPart:
			rt.doc.SetAttribute(p.Element, p.Name, rt.attrValue(p, inst.values))
		case *EventPart:
			rt.bindEvent(p, v)
		case *RangePart:
			rt.renderRange(p, v)
		}
	}
	return inst, fragment
}

// update diffs values against the instance's previous values and applies
// the changes.
func (rt *Runtime) update(inst *Instance, values []any) {
	old := inst.values
	oldAt := func(i int) any {
		if i < 0 || i >= len(old) {
			return nil
		}
		return old[i]
	}
	newAt := func(i int) any {
		if i < 0 || i >= len(values) {
			return nil
		}
		return values[i]
	}

	for _, p := range inst.parts {
		nv, ov := newAt(p.Index()), oldAt(p.Index())
		b := p.base()

		nd, newIsDirective := nv.(*DirectiveResult)
		newIsDirective = newIsDirective && nd != nil
		if !newIsDirective && b.directive != nil {
			rt.cleanupDirective(p, b.directive)
			b.directive = nil
			b.dispose = nil
		}
		if newIsDirective {
			rt.runDirective(p, nd)
			continue
		}

		switch p := p.(type) {
		case *NodePart:
			if same(nv, ov) {
				continue
			}
			rt.bindNode(p, nv)
		case *AttrPart:
			if _, wasDirective := ov.(*DirectiveResult); !wasDirective {
				changed := false
				for _, i := range p.Indices {
					if !same(newAt(i), oldAt(i)) {
						changed = true
						break
					}
				}
				if !changed {
					continue
				}
			}
			rt.doc.SetAttribute(p.Element, p.Name, rt.attrValue(p, values))
		case *EventPart:
			if same(nv, ov) {
				continue
			}
			rt.bindEvent(p, nv)
		case *RangePart:
			rt.renderRange(p, nv)
		}
	}
	inst.values = snapshot(values)
}

// attrValue concatenates the attribute's literal strings with the coerced
// values of its holes.
func (rt *Runtime) attrValue(p *AttrPart, values []any) string {
	out := ""
	for i, s := range p.Strings {
		out += s
		if i < len(p.Indices) {
			idx := p.Indices[i]
			if idx < len(values) {
				out += rt.text(values[idx])
			}
		}
	}
	return out
}

// bindNode writes v at a single child position. Plain values become the
// part's text node; nodes, templates and components become span content
// ending at the marker.
func (rt *Runtime) bindNode(p *NodePart, v any) {
	if isRich(v) {
		if p.Text != nil {
			rt.doc.Remove(p.Text)
			p.Text = nil
		}
		if p.span == nil {
			start := rt.doc.CreateComment("")
			rt.doc.InsertBefore(p.Marker.Parent, start, p.Marker)
			p.span = &Span{Start: start, End: p.Marker, part: p}
		}
		rt.setSpanContent(p.span, v)
		return
	}

	if p.span != nil {
		rt.clearSpan(p.span)
		rt.doc.Remove(p.span.Start)
		p.span = nil
	}
	s := rt.text(v)
	if p.Text == nil {
		p.Text = rt.doc.CreateTextNode(s)
		rt.doc.InsertBefore(p.Marker.Parent, p.Text, p.Marker)
		return
	}
	if p.Text.Data != s {
		rt.doc.SetData(p.Text, s)
	}
}

// bindEvent swaps the listener on an event part. Values that are not
// listeners detach without a replacement.
func (rt *Runtime) bindEvent(p *EventPart, v any) {
	l := asListener(v)
	if l != nil && l == p.listener {
		return
	}
	if p.listener != nil {
		rt.doc.RemoveEventListener(p.Element, p.Type, p.listener)
		p.listener = nil
	}
	if l != nil {
		rt.doc.AddEventListener(p.Element, p.Type, l)
		p.listener = l
	}
}

// asListener adapts the accepted handler forms to a *dom.Listener.
func asListener(v any) *dom.Listener {
	switch h := v.(type) {
	case *dom.Listener:
		return h
	case func(*dom.Event):
		if h != nil {
			return dom.ListenerFunc(h)
		}
	case func():
		if h != nil {
			return dom.ListenerFunc(func(*dom.Event) { h() })
		}
	}
	return nil
}

// isRich reports whether v is inserted as nodes rather than coerced to text.
func isRich(v any) bool {
	switch x := v.(type) {
	case *html.Node:
		return x != nil
	}
	if _, ok := asResult(v); ok {
		return true
	}
	_, ok := asComponent(v)
	return ok
}

func snapshot(values []any) []any {
	out := make([]any, len(values))
	copy(out, values)
	return out
}

func typeName(v any) string { return fmt.Sprintf("%T", v) }
