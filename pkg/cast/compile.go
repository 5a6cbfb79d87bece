package cast

import (
	"golang.org/x/net/html"

	imbuierrors "github.com/conneroisu/imbui/internal/errors"
	"github.com/conneroisu/imbui/pkg/dom"
)

// PartBlueprint locates one part inside a blueprint's content by child-index
// paths, so it can be resolved against any clone of that content.
type PartBlueprint struct {
	Kind  PartKind
	Index int
	// Path leads to the marker comment, the element, or the range start.
	Path dom.Path
	// EndPath leads to the range end marker. Ranges only.
	EndPath dom.Path
	// Name is the attribute name or the event type.
	Name    string
	Strings []string
	Indices []int
}

// Blueprint is the compiled, immutable form of a Template. It is shared by
// every render of the template within one runtime.
type Blueprint struct {
	// Markup is the stamped markup the blueprint was parsed from.
	Markup string
	Parts  []PartBlueprint

	content *html.Node
}

// HTML serializes the blueprint content with its markers.
func (b *Blueprint) HTML() string { return dom.InnerHTML(b.content) }

// Compile returns the blueprint for t, compiling it on first use. Compiling
// the same template twice returns the same blueprint.
func (rt *Runtime) Compile(t *Template) (*Blueprint, error) {
	if t == nil {
		return nil, imbuierrors.NewCompileError(imbuierrors.ErrCodeNilTemplate, "template is nil", nil)
	}
	if bp, ok := rt.compiled.Get(t); ok {
		return bp, nil
	}

	markup := encode(t.segments)
	content, err := rt.doc.ParseFragment(markup)
	if err != nil {
		return nil, imbuierrors.NewCompileError(imbuierrors.ErrCodeParseFailed, "parsing template markup", err).
			WithContext("holes", t.Holes())
	}

	parts := collectParts(content)
	bp := &Blueprint{
		Markup:  markup,
		Parts:   make([]PartBlueprint, 0, len(parts)),
		content: content,
	}
	for _, p := range parts {
		pb := PartBlueprint{Kind: p.Kind(), Index: p.Index(), Path: dom.PathTo(nodeOf(p), content)}
		switch p := p.(type) {
		case *RangePart:
			pb.EndPath = dom.PathTo(p.End, content)
		case *AttrPart:
			pb.Name = p.Name
			pb.Strings = p.Strings
			pb.Indices = p.Indices
		case *EventPart:
			pb.Name = p.Type
		}
		bp.Parts = append(bp.Parts, pb)
	}

	rt.compiled.Set(t, bp)
	rt.logger.Debug(rt.ctx, "compiled template", "holes", t.Holes(), "parts", len(bp.Parts))
	return bp, nil
}

// instantiate resolves the blueprint's paths against fragment, a fresh clone
// of the blueprint content. It binds no values.
func instantiate(fragment *html.Node, bp *Blueprint) []Part {
	parts := make([]Part, 0, len(bp.Parts))
	for _, pb := range bp.Parts {
		node := dom.NodeAt(fragment, pb.Path)
		if node == nil {
			continue
		}
		base := partBase{index: pb.Index}
		switch pb.Kind {
		case KindNode:
			parts = append(parts, &NodePart{partBase: base, Marker: node})
		case KindAttr:
			parts = append(parts, &AttrPart{
				partBase: base,
				Element:  node,
				Name:     pb.Name,
				Strings:  pb.Strings,
				Indices:  pb.Indices,
			})
		case KindEvent:
			parts = append(parts, &EventPart{partBase: base, Element: node, Type: pb.Name})
		case KindRange:
			end := dom.NodeAt(fragment, pb.EndPath)
			if end == nil {
				continue
			}
			parts = append(parts, &RangePart{partBase: base, Start: node, End: end})
		}
	}
	return parts
}
