package cast

import (
	"fmt"
	"reflect"

	"golang.org/x/net/html"

	imbuierrors "github.com/conneroisu/imbui/internal/errors"
)

// keyedKind is the directive kind shared by every keyed list.
var keyedKind = &kindToken{}

// keyedState is the key to span table a keyed list keeps on its range part.
type keyedState struct {
	records map[any]*Span
}

// Keys returns the keys of a keyed range in DOM order.
func (p *RangePart) Keys() []any {
	if p.keyed == nil {
		return nil
	}
	byStart := make(map[*html.Node]any, len(p.keyed.records))
	for k, s := range p.keyed.records {
		byStart[s.Start] = k
	}
	keys := make([]any, 0, len(byStart))
	for n := p.Start.NextSibling; n != nil && n != p.End; n = n.NextSibling {
		if k, ok := byStart[n]; ok {
			keys = append(keys, k)
		}
	}
	return keys
}

// Record returns the span rendered for key in a keyed range.
func (p *RangePart) Record(key any) (*Span, bool) {
	if p.keyed == nil || !hashable(key) {
		return nil, false
	}
	s, ok := p.keyed.records[key]
	return s, ok
}

// Keyed returns a directive factory that renders a list at a range position
// while keeping each item's nodes across renders. key identifies an item and
// must return a comparable value; render maps an item to anything a range
// accepts. Existing items are moved rather than recreated when the order
// changes.
func Keyed[T any](key func(T) any, render func(T) any) func([]T) *DirectiveResult {
	bind := func(p Part, items []T, _ *html.Node, _ any) error {
		rp, ok := p.(*RangePart)
		if !ok {
			return fmt.Errorf("keyed list bound at a %s part", p.Kind())
		}
		entries := make([]keyedEntry, len(items))
		for i, item := range items {
			entries[i] = keyedEntry{key: key(item), value: func() any { return render(item) }}
		}
		rp.Runtime().reconcileKeyed(rp, entries)
		return nil
	}
	cleanup := func(p Part, _ *html.Node) error {
		if rp, ok := p.(*RangePart); ok {
			rp.Runtime().disposeKeyed(rp)
		}
		return nil
	}
	return NewDirective(bind, WithKind(keyedKind), WithCleanup(cleanup))
}

type keyedEntry struct {
	key   any
	value func() any
}

// reconcileKeyed moves, creates and removes records so the range holds one
// span per entry, in entry order.
func (rt *Runtime) reconcileKeyed(p *RangePart, entries []keyedEntry) {
	if p.direct != nil {
		rt.removeDirect(p)
	}
	if len(p.spans) > 0 {
		rt.clearPositional(p)
	}
	if p.keyed == nil {
		p.keyed = &keyedState{records: make(map[any]*Span)}
	}
	prev := p.keyed.records
	next := make(map[any]*Span, len(entries))
	parent := p.End.Parent

	cursor := p.Start
	for _, e := range entries {
		if !hashable(e.key) {
			rt.logger.Warn(rt.ctx, imbuierrors.NewValidationError(imbuierrors.ErrCodeInvalidValue, "keyed list key is not comparable"),
				"skipping keyed item", "key_type", typeName(e.key))
			continue
		}
		if _, dup := next[e.key]; dup {
			rt.logger.Warn(rt.ctx, imbuierrors.NewValidationError(imbuierrors.ErrCodeDuplicateKey, "duplicate key in keyed list"),
				"skipping keyed item", "key", fmt.Sprint(e.key))
			continue
		}

		rec, ok := prev[e.key]
		if !ok {
			rec = rt.newSpan(p, parent, cursor.NextSibling, fmt.Sprintf("key:%v", e.key))
			rec.Key = e.key
		} else {
			delete(prev, e.key)
			if cursor.NextSibling != rec.Start {
				rt.moveSpan(rec, parent, cursor.NextSibling)
			}
		}
		rt.setSpanContent(rec, e.value())
		next[e.key] = rec
		cursor = rec.End
	}

	for _, stale := range prev {
		rt.removeSpan(stale)
	}
	p.keyed.records = next
}

// moveSpan relocates the span's nodes, markers included, before ref.
func (rt *Runtime) moveSpan(s *Span, parent, ref *html.Node) {
	var nodes []*html.Node
	for n := s.Start; n != nil; n = n.NextSibling {
		nodes = append(nodes, n)
		if n == s.End {
			break
		}
	}
	for _, n := range nodes {
		rt.doc.InsertBefore(parent, n, ref)
	}
}

// disposeKeyed removes every record of a keyed range.
func (rt *Runtime) disposeKeyed(p *RangePart) {
	if p.keyed == nil {
		return
	}
	for _, rec := range p.keyed.records {
		rt.removeSpan(rec)
	}
	p.keyed = nil
}

func hashable(k any) bool {
	if k == nil {
		return true
	}
	return reflect.TypeOf(k).Comparable()
}
