package dom

import (
	"golang.org/x/net/html"
)

// MutationKind classifies a recorded mutation.
type MutationKind int

const (
	ChildList MutationKind = iota
	Attributes
	CharacterData
)

// String returns the mutation kind name.
func (k MutationKind) String() string {
	switch k {
	case ChildList:
		return "childList"
	case Attributes:
		return "attributes"
	case CharacterData:
		return "characterData"
	default:
		return "unknown"
	}
}

// Mutation describes one change made through a Document.
type Mutation struct {
	Kind     MutationKind
	Target   *html.Node
	Added    *html.Node
	Removed  *html.Node
	Name     string
	OldValue string
}

// Observe registers fn to receive every subsequent mutation and returns a
// function that unregisters it.
func (d *Document) Observe(fn func(Mutation)) (cancel func()) {
	d.mu.Lock()
	id := d.nextObs
	d.nextObs++
	d.observers[id] = fn
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		delete(d.observers, id)
		d.mu.Unlock()
	}
}

func (d *Document) notify(m Mutation) {
	d.mu.Lock()
	if len(d.observers) == 0 {
		d.mu.Unlock()
		return
	}
	fns := make([]func(Mutation), 0, len(d.observers))
	for _, fn := range d.observers {
		fns = append(fns, fn)
	}
	d.mu.Unlock()

	for _, fn := range fns {
		fn(m)
	}
}

// Recorder collects mutations for later inspection.
type Recorder struct {
	Mutations []Mutation
	stop      func()
}

// Record starts collecting mutations made through d.
func (d *Document) Record() *Recorder {
	r := &Recorder{}
	r.stop = d.Observe(func(m Mutation) { r.Mutations = append(r.Mutations, m) })
	return r
}

// Stop ends recording.
func (r *Recorder) Stop() {
	if r.stop != nil {
		r.stop()
		r.stop = nil
	}
}

// Count returns the number of recorded mutations of kind k.
func (r *Recorder) Count(k MutationKind) int {
	n := 0
	for _, m := range r.Mutations {
		if m.Kind == k {
			n++
		}
	}
	return n
}

// Reset drops everything recorded so far.
func (r *Recorder) Reset() { r.Mutations = r.Mutations[:0] }

// Property returns a live property previously set on n.
func (d *Document) Property(n *html.Node, name string) (any, bool) {
	props, _ := d.props.Get(n)
	v, ok := props[name]
	return v, ok
}

// SetProperty sets a live property on n. Properties are not serialized and
// do not produce mutations.
func (d *Document) SetProperty(n *html.Node, name string, value any) {
	props, _ := d.props.Get(n)
	if props == nil {
		props = make(map[string]any)
	}
	props[name] = value
	d.props.Set(n, props)
}

// Value returns the current value of a form control: the live "value"
// property when set, otherwise the value attribute.
func (d *Document) Value(el *html.Node) string {
	if v, ok := d.Property(el, "value"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	v, _ := GetAttribute(el, "value")
	return v
}

// SetValue sets the live value of a form control, as user input would.
func (d *Document) SetValue(el *html.Node, value string) {
	d.SetProperty(el, "value", value)
}
