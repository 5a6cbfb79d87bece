package cast

import "github.com/a-h/templ"

// Template holds the literal segments of one template. Its pointer is the
// template's identity: keep a Template in a package-level variable so every
// render of the same markup shares compiled state.
type Template struct {
	segments []string
}

// HTML declares a template from its literal segments. Values are interleaved
// between segments, so n segments take n-1 values.
//
//	var greeting = cast.HTML("<p>hello ", "</p>")
//	cast.Render(greeting.With("world"), el)
func HTML(segments ...string) *Template {
	s := make([]string, len(segments))
	copy(s, segments)
	if len(s) == 0 {
		s = []string{""}
	}
	return &Template{segments: s}
}

// Holes returns the number of interpolation holes.
func (t *Template) Holes() int { return len(t.segments) - 1 }

// Segments returns a copy of the literal segments.
func (t *Template) Segments() []string {
	out := make([]string, len(t.segments))
	copy(out, t.segments)
	return out
}

// With binds values to the template's holes.
func (t *Template) With(values ...any) Result {
	return Result{Template: t, Values: values}
}

// Result is one invocation of a template: the shared literal segments plus
// the values for this render.
type Result struct {
	Template *Template
	Values   []any
	Key      any
}

// Identity returns the template the result was produced from.
func (r Result) Identity() *Template { return r.Template }

// Strings returns the literal segments.
func (r Result) Strings() []string {
	if r.Template == nil {
		return nil
	}
	return r.Template.segments
}

// WithKey returns a copy of r carrying key.
func (r Result) WithKey(key any) Result {
	r.Key = key
	return r
}

// Value returns the value bound to hole i. Missing values read as nil.
func (r Result) Value(i int) any {
	if i < 0 || i >= len(r.Values) {
		return nil
	}
	return r.Values[i]
}

// asResult recognises template results passed by value or by pointer.
func asResult(v any) (Result, bool) {
	switch r := v.(type) {
	case Result:
		return r, r.Template != nil
	case *Result:
		if r != nil && r.Template != nil {
			return *r, true
		}
	}
	return Result{}, false
}

func asComponent(v any) (templ.Component, bool) {
	c, ok := v.(templ.Component)
	return c, ok && c != nil
}
