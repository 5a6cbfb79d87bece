// Package directives provides directives that insert markup the template
// itself does not describe.
package directives

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"golang.org/x/net/html"

	"github.com/conneroisu/imbui/pkg/cast"
)

type kind struct{ name string }

var (
	unsafeHTMLKind = &kind{"unsafe-html"}
	markdownKind   = &kind{"markdown"}
)

// UnsafeHTML renders its value as raw markup at a child position. The markup
// is parsed and inserted without escaping; never pass untrusted input.
var UnsafeHTML = cast.NewDirective(bindMarkup(func(src string) (string, error) {
	return src, nil
}), cast.WithKind(unsafeHTMLKind), cast.WithCleanup(clearMarkup))

// Markdown converts its value with goldmark's default parser and renders the
// resulting HTML at a child position.
var Markdown = MarkdownWith(goldmark.New())

// MarkdownWith returns a markdown directive converting with md.
func MarkdownWith(md goldmark.Markdown) func(string) *cast.DirectiveResult {
	return cast.NewDirective(bindMarkup(func(src string) (string, error) {
		var buf bytes.Buffer
		if err := md.Convert([]byte(src), &buf); err != nil {
			return "", fmt.Errorf("converting markdown: %w", err)
		}
		return buf.String(), nil
	}), cast.WithKind(markdownKind), cast.WithCleanup(clearMarkup))
}

// bindMarkup builds a bind function that renders the markup produced by
// convert. Content is left alone when the source did not change.
func bindMarkup(convert func(string) (string, error)) cast.BindFunc[string] {
	return func(p cast.Part, src string, _ *html.Node, old any) error {
		if p.Kind() != cast.KindNode && p.Kind() != cast.KindRange {
			return fmt.Errorf("markup directive bound at a %s part", p.Kind())
		}
		if prev, ok := old.(string); ok && prev == src {
			return nil
		}
		markup, err := convert(src)
		if err != nil {
			return err
		}
		frag, err := p.Runtime().Document().ParseFragment(markup)
		if err != nil {
			return fmt.Errorf("parsing markup: %w", err)
		}
		return cast.Commit(p, frag)
	}
}

func clearMarkup(p cast.Part, _ *html.Node) error {
	cast.Clear(p)
	return nil
}
