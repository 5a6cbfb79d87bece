package cast

import (
	"context"
	"sync"

	"golang.org/x/net/html"

	"github.com/conneroisu/imbui/internal/logging"
	"github.com/conneroisu/imbui/internal/weakmap"
	"github.com/conneroisu/imbui/pkg/dom"
)

// Instance is the live state of one template rendered into one container:
// the resolved parts and the values they were last bound to.
type Instance struct {
	identity *Template
	parts    []Part
	values   []any
	disposed bool
}

// Identity returns the template the instance was rendered from.
func (i *Instance) Identity() *Template { return i.identity }

// Parts returns the instance's parts in hole order.
func (i *Instance) Parts() []Part {
	out := make([]Part, len(i.parts))
	copy(out, i.parts)
	return out
}

// Values returns the values the instance was last rendered with.
func (i *Instance) Values() []any {
	out := make([]any, len(i.values))
	copy(out, i.values)
	return out
}

// Disposed reports whether the instance has been torn down.
func (i *Instance) Disposed() bool { return i.disposed }

func (i *Instance) value(idx int) any {
	if idx < 0 || idx >= len(i.values) {
		return nil
	}
	return i.values[idx]
}

// Runtime bundles the caches the engine works with: compiled blueprints by
// template, instances by container and the active template by container.
// Independent runtimes share nothing.
//
// A runtime is not safe for concurrent renders.
type Runtime struct {
	doc       *dom.Document
	logger    logging.Logger
	replacer  Replacer
	onDispose func(*Instance)
	ctx       context.Context

	compiled  *weakmap.Map[Template, *Blueprint]
	instances *weakmap.Map[html.Node, map[*Template]*Instance]
	active    *weakmap.Map[html.Node, *Template]
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithDocument sets the document that owns listeners and node creation.
func WithDocument(doc *dom.Document) Option {
	return func(rt *Runtime) { rt.doc = doc }
}

// WithLogger sets the logger used for swallowed failures.
func WithLogger(l logging.Logger) Option {
	return func(rt *Runtime) { rt.logger = l }
}

// WithReplacer sets the serialization override used when coercing values.
func WithReplacer(r Replacer) Option {
	return func(rt *Runtime) { rt.replacer = r }
}

// WithDisposeHook registers fn to be called once for every disposed instance.
func WithDisposeHook(fn func(*Instance)) Option {
	return func(rt *Runtime) { rt.onDispose = fn }
}

// NewRuntime returns a runtime with empty caches.
func NewRuntime(opts ...Option) *Runtime {
	rt := &Runtime{
		ctx:       context.Background(),
		compiled:  weakmap.New[Template, *Blueprint](),
		instances: weakmap.New[html.Node, map[*Template]*Instance](),
		active:    weakmap.New[html.Node, *Template](),
	}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.doc == nil {
		rt.doc = dom.NewDocument()
	}
	if rt.logger == nil {
		rt.logger = logging.NewLogger(logging.DefaultConfig())
	}
	rt.logger = rt.logger.WithComponent("cast")
	return rt
}

var (
	defaultOnce    sync.Once
	defaultRuntime *Runtime
)

// Default returns the shared runtime used when no runtime is given.
func Default() *Runtime {
	defaultOnce.Do(func() { defaultRuntime = NewRuntime() })
	return defaultRuntime
}

// Document returns the runtime's document.
func (rt *Runtime) Document() *dom.Document { return rt.doc }

// Logger returns the runtime's logger.
func (rt *Runtime) Logger() logging.Logger { return rt.logger }

// Instances returns the instances cached for container, by template.
func (rt *Runtime) Instances(container *html.Node) map[*Template]*Instance {
	m, _ := rt.instances.Get(container)
	out := make(map[*Template]*Instance, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Instance returns the instance of t cached for container, if any.
func (rt *Runtime) Instance(container *html.Node, t *Template) (*Instance, bool) {
	m, _ := rt.instances.Get(container)
	inst, ok := m[t]
	return inst, ok
}

func (rt *Runtime) instanceMap(container *html.Node) map[*Template]*Instance {
	m, ok := rt.instances.Get(container)
	if !ok {
		m = make(map[*Template]*Instance)
		rt.instances.Set(container, m)
	}
	return m
}

// ActiveIdentity returns the template currently mounted in container.
func (rt *Runtime) ActiveIdentity(container *html.Node) *Template {
	t, _ := rt.active.Get(container)
	return t
}

// SetActiveIdentity records t as the template mounted in container.
func (rt *Runtime) SetActiveIdentity(container *html.Node, t *Template) {
	if t == nil {
		rt.active.Delete(container)
		return
	}
	rt.active.Set(container, t)
}

// MoveInstances transfers every instance cached for from onto to. The
// entries are removed from from. An entry never replaces the live instance of
// to's active template. The active template moves as well unless to already
// has one.
func (rt *Runtime) MoveInstances(from, to *html.Node) {
	src, ok := rt.instances.Get(from)
	if !ok {
		return
	}
	dst := rt.instanceMap(to)
	active, _ := rt.active.Get(to)
	for t, inst := range src {
		// A template nested inside itself must not displace the live
		// instance mounted in to.
		if cur, ok := dst[t]; ok && t == active && !cur.disposed && cur != inst {
			continue
		}
		dst[t] = inst
	}
	rt.instances.Delete(from)

	if t, ok := rt.active.Get(from); ok {
		if _, has := rt.active.Get(to); !has {
			rt.active.Set(to, t)
		}
		rt.active.Delete(from)
	}
}

// Unmount disposes everything rendered into container, empties it and
// forgets its active template.
func (rt *Runtime) Unmount(container *html.Node) {
	if container == nil {
		return
	}
	if m, ok := rt.instances.Get(container); ok {
		for t, inst := range m {
			rt.DisposeInstance(inst)
			delete(m, t)
		}
	}
	rt.doc.ReplaceChildren(container)
	rt.active.Delete(container)
}

// Unmount tears down container using the default runtime.
func Unmount(container *html.Node) {
	Default().Unmount(container)
}

// text coerces v, logging values that could only be rendered as placeholders.
func (rt *Runtime) text(v any) string {
	s, err := Stringify(v, rt.replacer)
	if err != nil {
		rt.logger.Warn(rt.ctx, err, "value coercion failed", "type", typeName(v))
	}
	return s
}
