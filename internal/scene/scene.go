// Package scene loads YAML scene files and replays them through the cast
// engine.
//
// A scene names a set of templates, picks one as the root and lists frames of
// values for it:
//
//	name: todo
//	root: list
//	templates:
//	  list: ["<ul>", "</ul>"]
//	  item: ["<li class=", ">", "</li>"]
//	frames:
//	  - values:
//	      - [{template: item, values: [done, a]}]
//
// Values are YAML scalars and sequences, or one of these mappings:
//
//	{template: name, values: [...]}          nested template
//	{keyed: {key: f, template: name, fields: [f, ...], items: [...]}}
//	{html: "<b>raw</b>"}                     unescaped markup
//	{markdown: "# title"}                    markdown
//	{listener: name}                         counting event listener
package scene

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	imbuierrors "github.com/conneroisu/imbui/internal/errors"
	"github.com/conneroisu/imbui/pkg/cast"
	"github.com/conneroisu/imbui/pkg/directives"
	"github.com/conneroisu/imbui/pkg/dom"
)

// File is the on-disk shape of a scene.
type File struct {
	Name      string              `yaml:"name"`
	Root      string              `yaml:"root"`
	Templates map[string][]string `yaml:"templates"`
	Frames    []FrameSpec         `yaml:"frames"`
}

// FrameSpec is one step of a scene before its values are resolved.
type FrameSpec struct {
	Values   []any      `yaml:"values"`
	Dispatch []Dispatch `yaml:"dispatch"`
}

// Dispatch fires an event at the index-th element with the given tag after a
// frame is rendered.
type Dispatch struct {
	Tag   string `yaml:"tag"`
	Index int    `yaml:"index"`
	Type  string `yaml:"type"`
}

// Frame is a resolved frame ready to render.
type Frame struct {
	Values   []any
	Dispatch []Dispatch
}

// Scene is a parsed and validated scene. Templates keep their identity for
// the lifetime of the scene, so replaying frames updates in place.
type Scene struct {
	Name      string
	Root      *cast.Template
	Templates map[string]*cast.Template
	Frames    []Frame

	rootName  string
	listeners map[string]*Counter
}

// Counter is an event listener that counts invocations.
type Counter struct {
	Name     string
	Listener *dom.Listener
	Count    int
}

// Load reads and parses the scene file at path.
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, imbuierrors.NewIOError(imbuierrors.ErrCodeFileNotFound, "scene file not found", err).
				WithContext("path", path)
		}
		return nil, imbuierrors.NewIOError("", "reading scene file", err).WithContext("path", path)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a scene and resolves every frame. All reference errors are
// reported together.
func Parse(data []byte) (*Scene, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, imbuierrors.NewSceneError(imbuierrors.ErrCodeParseFailed, "decoding scene yaml", err)
	}

	s := &Scene{
		Name:      f.Name,
		Templates: make(map[string]*cast.Template, len(f.Templates)),
		rootName:  f.Root,
		listeners: make(map[string]*Counter),
	}
	for name, segments := range f.Templates {
		s.Templates[name] = cast.HTML(segments...)
	}

	errs := imbuierrors.NewCollector()
	root, ok := s.Templates[f.Root]
	if !ok {
		errs.Add(unknownTemplate(f.Root, "root"))
	}
	s.Root = root

	for i, fs := range f.Frames {
		r := resolver{scene: s, errs: errs, where: fmt.Sprintf("frames[%d]", i)}
		frame := Frame{Values: make([]any, len(fs.Values)), Dispatch: fs.Dispatch}
		for j, v := range fs.Values {
			frame.Values[j] = r.resolve(v, fmt.Sprintf("values[%d]", j))
		}
		for j, d := range fs.Dispatch {
			if d.Tag == "" || d.Type == "" {
				errs.Add(imbuierrors.NewValidationError(imbuierrors.ErrCodeInvalidValue, "dispatch needs a tag and a type").
					WithContext("at", fmt.Sprintf("%s.dispatch[%d]", r.where, j)))
			}
		}
		s.Frames = append(s.Frames, frame)
	}

	if err := errs.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

// TemplateNames returns the scene's template names in sorted order.
func (s *Scene) TemplateNames() []string {
	names := make([]string, 0, len(s.Templates))
	for name := range s.Templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RootName returns the name of the root template.
func (s *Scene) RootName() string { return s.rootName }

// Counters returns the scene's listeners by name.
func (s *Scene) Counters() map[string]*Counter { return s.listeners }

// ResetCounters zeroes every listener count.
func (s *Scene) ResetCounters() {
	for _, c := range s.listeners {
		c.Count = 0
	}
}

func (s *Scene) counter(name string) *Counter {
	if c, ok := s.listeners[name]; ok {
		return c
	}
	c := &Counter{Name: name}
	c.Listener = dom.ListenerFunc(func(*dom.Event) { c.Count++ })
	s.listeners[name] = c
	return c
}

type resolver struct {
	scene *Scene
	errs  *imbuierrors.Collector
	where string
}

// resolve turns a decoded YAML value into a render value.
func (r resolver) resolve(v any, at string) any {
	switch x := v.(type) {
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = r.resolve(item, fmt.Sprintf("%s[%d]", at, i))
		}
		return out
	case map[string]any:
		return r.resolveMapping(x, at)
	default:
		return v
	}
}

func (r resolver) resolveMapping(m map[string]any, at string) any {
	switch {
	case has(m, "template"):
		name := fmt.Sprint(m["template"])
		tpl, ok := r.scene.Templates[name]
		if !ok {
			r.errs.Add(unknownTemplate(name, r.where+"."+at))
			return nil
		}
		values, _ := m["values"].([]any)
		resolved := make([]any, len(values))
		for i, v := range values {
			resolved[i] = r.resolve(v, fmt.Sprintf("%s.values[%d]", at, i))
		}
		res := tpl.With(resolved...)
		if key, ok := m["key"]; ok {
			res = res.WithKey(key)
		}
		return res
	case has(m, "keyed"):
		return r.resolveKeyed(m["keyed"], at)
	case has(m, "html"):
		return directives.UnsafeHTML(fmt.Sprint(m["html"]))
	case has(m, "markdown"):
		return directives.Markdown(fmt.Sprint(m["markdown"]))
	case has(m, "listener"):
		return r.scene.counter(fmt.Sprint(m["listener"])).Listener
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	r.errs.Add(imbuierrors.NewValidationError(imbuierrors.ErrCodeInvalidValue,
		"mapping is not a template, keyed, html, markdown or listener value").
		WithContext("at", r.where+"."+at).
		WithContext("keys", strings.Join(keys, ",")))
	return nil
}

func (r resolver) resolveKeyed(v any, at string) any {
	spec, ok := v.(map[string]any)
	if !ok {
		r.errs.Add(imbuierrors.NewValidationError(imbuierrors.ErrCodeInvalidValue, "keyed value must be a mapping").
			WithContext("at", r.where+"."+at))
		return nil
	}
	if !has(spec, "key") {
		r.errs.Add(imbuierrors.NewValidationError(imbuierrors.ErrCodeInvalidValue, "keyed value needs a key field").
			WithContext("at", r.where+"."+at))
		return nil
	}
	keyField := fmt.Sprint(spec["key"])
	name := fmt.Sprint(spec["template"])
	tpl, ok := r.scene.Templates[name]
	if !ok {
		r.errs.Add(unknownTemplate(name, r.where+"."+at+".keyed"))
		return nil
	}

	var fields []string
	if raw, ok := spec["fields"].([]any); ok {
		for _, f := range raw {
			fields = append(fields, fmt.Sprint(f))
		}
	} else {
		fields = []string{keyField}
	}

	rawItems, _ := spec["items"].([]any)
	items := make([]map[string]any, 0, len(rawItems))
	for i, it := range rawItems {
		item, ok := it.(map[string]any)
		if !ok {
			r.errs.Add(imbuierrors.NewValidationError(imbuierrors.ErrCodeInvalidValue, "keyed items must be mappings").
				WithContext("at", fmt.Sprintf("%s.%s.keyed.items[%d]", r.where, at, i)))
			continue
		}
		resolved := make(map[string]any, len(item))
		for k, fv := range item {
			resolved[k] = r.resolve(fv, fmt.Sprintf("%s.keyed.items[%d].%s", at, i, k))
		}
		items = append(items, resolved)
	}

	list := cast.Keyed(
		func(item map[string]any) any { return item[keyField] },
		func(item map[string]any) any {
			values := make([]any, len(fields))
			for i, f := range fields {
				values[i] = item[f]
			}
			return tpl.With(values...)
		},
	)
	return list(items)
}

func has(m map[string]any, key string) bool {
	_, ok := m[key]
	return ok
}

func unknownTemplate(name, at string) error {
	return imbuierrors.NewSceneError(imbuierrors.ErrCodeUnknownTemplate, fmt.Sprintf("unknown template %q", name), nil).
		WithContext("at", at)
}
