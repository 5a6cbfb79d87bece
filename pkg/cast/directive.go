package cast

import (
	"fmt"

	"golang.org/x/net/html"

	imbuierrors "github.com/conneroisu/imbui/internal/errors"
)

// BindFunc applies a directive value to a part. old is the value of the
// directive of the same kind previously bound at the part, or nil.
type BindFunc[V any] func(p Part, value V, host *html.Node, old any) error

// CleanupFunc tears down what a directive set up at a part.
type CleanupFunc func(p Part, host *html.Node) error

// DirectiveResult is a value carrying its own binding behavior. Placed in a
// hole, it replaces the default binding for that part.
type DirectiveResult struct {
	Value any
	// Kind distinguishes directive families. Replacing a directive with one
	// of a different kind runs the old cleanup first.
	Kind any

	bind    func(p Part, value any, host *html.Node, old any) error
	cleanup CleanupFunc
}

// DirectiveOption configures a directive factory.
type DirectiveOption func(*directiveConfig)

type directiveConfig struct {
	kind    any
	cleanup CleanupFunc
}

// WithCleanup sets the function run when the directive is removed from a
// part or the part is disposed.
func WithCleanup(fn CleanupFunc) DirectiveOption {
	return func(c *directiveConfig) { c.cleanup = fn }
}

// WithKind sets the directive kind. Factories default to a kind of their own.
func WithKind(kind any) DirectiveOption {
	return func(c *directiveConfig) { c.kind = kind }
}

// kindToken gives each factory a distinct default kind. It must not be
// zero-sized, or distinct tokens could share an address.
type kindToken struct{ _ byte }

// NewDirective returns a factory wrapping values of type V with bind.
func NewDirective[V any](bind BindFunc[V], opts ...DirectiveOption) func(V) *DirectiveResult {
	cfg := directiveConfig{kind: &kindToken{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	wrapped := func(p Part, value any, host *html.Node, old any) error {
		v, _ := value.(V)
		return bind(p, v, host, old)
	}
	return func(v V) *DirectiveResult {
		return &DirectiveResult{Value: v, Kind: cfg.kind, bind: wrapped, cleanup: cfg.cleanup}
	}
}

// runDirective binds d at p. A previous directive of another kind is cleaned
// up first. Failures are logged and never abort the render.
func (rt *Runtime) runDirective(p Part, d *DirectiveResult) {
	b := p.base()
	old := b.directive
	if old != nil && old != d && old.Kind != d.Kind {
		rt.cleanupDirective(p, old)
		old = nil
	}

	b.directive = d
	b.dispose = nil
	if d.cleanup != nil {
		b.dispose = func() { rt.cleanupDirective(p, d) }
	}

	var oldValue any
	if old != nil {
		oldValue = old.Value
	}
	if d.bind == nil {
		return
	}
	if err := rt.guard(func() error { return d.bind(p, d.Value, b.host, oldValue) }); err != nil {
		rt.logger.Error(rt.ctx, imbuierrors.NewDirectiveError(imbuierrors.ErrCodeBindFailed, "directive bind failed", err),
			"directive bind failed", "index", p.Index(), "kind", p.Kind().String())
	}
}

// cleanupDirective runs d's cleanup at p, logging failures.
func (rt *Runtime) cleanupDirective(p Part, d *DirectiveResult) {
	if d == nil || d.cleanup == nil {
		return
	}
	if err := rt.guard(func() error { return d.cleanup(p, p.Host()) }); err != nil {
		rt.logger.Error(rt.ctx, imbuierrors.NewDirectiveError(imbuierrors.ErrCodeCleanupFailed, "directive cleanup failed", err),
			"directive cleanup failed", "index", p.Index(), "kind", p.Kind().String())
	}
}

// guard runs fn, converting a panic into an error.
func (rt *Runtime) guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = imbuierrors.FromPanic(r)
		}
	}()
	return fn()
}

// Commit renders v at p as directive-managed content. It is meant for
// directive bind functions: v follows the same rules as an interpolated
// value at a child position, except that directives are not accepted.
func Commit(p Part, v any) error {
	if _, ok := v.(*DirectiveResult); ok {
		return fmt.Errorf("cannot commit a directive result")
	}
	rt := p.Runtime()
	switch p := p.(type) {
	case *NodePart:
		rt.bindNode(p, v)
	case *RangePart:
		if len(p.spans) > 0 {
			rt.clearPositional(p)
		}
		if p.keyed != nil {
			rt.disposeKeyed(p)
		}
		if p.direct == nil {
			p.direct = &Span{Start: p.Start, End: p.End, part: p}
		}
		rt.setSpanContent(p.direct, v)
	default:
		return fmt.Errorf("cannot commit content to a %s part", p.Kind())
	}
	return nil
}

// Clear removes content committed at p.
func Clear(p Part) {
	rt := p.Runtime()
	switch p := p.(type) {
	case *NodePart:
		if p.span != nil {
			rt.clearSpan(p.span)
			rt.doc.Remove(p.span.Start)
			p.span = nil
		}
		if p.Text != nil {
			rt.doc.Remove(p.Text)
			p.Text = nil
		}
	case *RangePart:
		if p.direct != nil {
			rt.removeDirect(p)
		}
	}
}
