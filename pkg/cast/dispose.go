package cast

import (
	"golang.org/x/net/html"

	imbuierrors "github.com/conneroisu/imbui/internal/errors"
	"github.com/conneroisu/imbui/pkg/dom"
)

// DisposeInstance tears down every binding of inst: directive cleanups run,
// listeners are removed and range contents are disposed and removed.
// Disposing an instance twice has no effect.
func (rt *Runtime) DisposeInstance(inst *Instance) {
	if inst == nil || inst.disposed {
		return
	}
	inst.disposed = true
	for _, p := range inst.parts {
		rt.disposePart(p)
	}
	if rt.onDispose != nil {
		if err := rt.guard(func() error { rt.onDispose(inst); return nil }); err != nil {
			rt.logger.Warn(rt.ctx, err, "dispose hook failed")
		}
	}
}

// disposePart releases one part. A failing cleanup is logged and does not
// stop the caller from disposing the remaining parts.
func (rt *Runtime) disposePart(p Part) {
	b := p.base()
	if b.disposed {
		return
	}
	b.disposed = true

	err := rt.guard(func() error {
		if b.dispose != nil {
			fn := b.dispose
			b.dispose = nil
			fn()
		}
		b.directive = nil

		switch p := p.(type) {
		case *EventPart:
			if p.listener != nil {
				rt.doc.RemoveEventListener(p.Element, p.Type, p.listener)
				p.listener = nil
			}
		case *RangePart:
			rt.disposeKeyed(p)
			for _, s := range p.spans {
				rt.clearSpan(s)
			}
			p.spans = nil
			if p.direct != nil {
				rt.clearSpan(p.direct)
				p.direct = nil
			}
			rt.disposeBetween(p.Start, p.End, b.siblings())
		case *NodePart:
			if p.span != nil {
				rt.clearSpan(p.span)
			}
		}
		return nil
	})
	if err != nil {
		rt.logger.Error(rt.ctx, imbuierrors.NewDisposeError(imbuierrors.ErrCodeCleanupFailed, "part dispose failed", err),
			"dispose failed", "index", p.Index(), "kind", p.Kind().String())
	}
}

// disposeBetween disposes every part in parts located strictly between start
// and end, then removes the nodes between them.
func (rt *Runtime) disposeBetween(start, end *html.Node, parts []Part) {
	parent := start.Parent
	if parent == nil {
		return
	}
	for n := start.NextSibling; n != nil && n != end; n = start.NextSibling {
		for _, p := range parts {
			if at := nodeOf(p); at != nil && dom.Contains(n, at) {
				rt.disposePart(p)
			}
		}
		rt.doc.RemoveChild(parent, n)
	}
}
