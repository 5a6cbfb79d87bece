// Package cast renders templates into a live DOM and keeps them up to date
// with minimal mutations.
//
// A template is declared once from its literal segments and rendered many
// times with different values:
//
//	var row = cast.HTML(`<li class=`, `>`, `</li>`)
//	var list = cast.HTML(`<ul>`, `</ul>`)
//
//	items := []any{row.With("done", "write docs"), row.With("", "ship")}
//	err := cast.Render(list.With(items), container)
//
// On first render the template is compiled into a Blueprint: the markup is
// stamped with marker comments and attribute tokens at every hole, parsed,
// and each marker becomes a part addressed by a child-index path. The
// blueprint is cached per template, so parsing happens once per template and
// runtime.
//
// Rendering the same template into the same container again diffs each hole
// against its previous value and touches only what changed: text nodes get
// new character data, attributes are rebuilt when one of their holes changed,
// listeners are swapped, and child ranges grow or shrink their item spans.
// Rendering a different template disposes the previous instance first.
//
// Values at a child position are bound in priority order: a *DirectiveResult
// runs its directive, a *html.Node is inserted as is, a Result is rendered as
// a nested template, a templ.Component is rendered to markup and parsed, and
// anything else is coerced to text with Stringify. Slices at a range position
// render one span per element; use Keyed to keep item nodes across reorders.
//
// All caches live on a Runtime. Tests and independent roots should construct
// their own with NewRuntime; package-level functions use Default.
package cast
