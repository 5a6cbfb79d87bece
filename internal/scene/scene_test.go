package scene

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	imbuierrors "github.com/conneroisu/imbui/internal/errors"
	"github.com/conneroisu/imbui/pkg/cast"
	"github.com/conneroisu/imbui/pkg/dom"
)

func TestLoadTodo(t *testing.T) {
	s, err := Load("testdata/todo.yml")
	require.NoError(t, err)

	assert.Equal(t, "todo", s.Name)
	assert.Equal(t, "app", s.RootName())
	assert.Equal(t, []string{"app", "item"}, s.TemplateNames())
	require.Len(t, s.Frames, 3)
	assert.Same(t, s.Templates["app"], s.Root)

	v := s.Frames[0].Values
	require.Len(t, v, 3)
	assert.Equal(t, "Todo", v[0])
	_, isDirective := v[1].(*cast.DirectiveResult)
	assert.True(t, isDirective)
	_, isListener := v[2].(*dom.Listener)
	assert.True(t, isListener)
	assert.Same(t, v[2], s.Frames[1].Values[2], "listeners are shared by name")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("testdata/missing.yml")
	require.Error(t, err)
	assert.True(t, imbuierrors.IsType(err, imbuierrors.ErrorTypeIO))
}

func TestParseValueForms(t *testing.T) {
	s, err := Parse([]byte(`
root: page
templates:
  page: ["<div>", "</div>"]
  em: ["<em>", "</em>"]
frames:
  - values:
      - - plain
        - 3
        - {template: em, values: [x], key: k1}
        - {html: "<b>b</b>"}
        - {markdown: "*m*"}
`))
	require.NoError(t, err)

	items, ok := s.Frames[0].Values[0].([]any)
	require.True(t, ok)
	require.Len(t, items, 5)
	assert.Equal(t, "plain", items[0])
	assert.Equal(t, 3, items[1])

	res, ok := items[2].(cast.Result)
	require.True(t, ok)
	assert.Same(t, s.Templates["em"], res.Template)
	assert.Equal(t, []any{"x"}, res.Values)
	assert.Equal(t, "k1", res.Key)

	_, ok = items[3].(*cast.DirectiveResult)
	assert.True(t, ok)
	_, ok = items[4].(*cast.DirectiveResult)
	assert.True(t, ok)
}

func TestParseReportsEveryReferenceError(t *testing.T) {
	_, err := Parse([]byte(`
root: nope
templates:
  page: ["<div>", "</div>"]
frames:
  - values:
      - {template: ghost}
      - {unknown: 1}
      - {keyed: {template: page}}
    dispatch:
      - {tag: button}
`))
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, `unknown template "nope"`)
	assert.Contains(t, msg, `unknown template "ghost"`)
	assert.Contains(t, msg, "keys=unknown")
	assert.Contains(t, msg, "keyed value needs a key field")
	assert.Contains(t, msg, "dispatch needs a tag and a type")
	assert.True(t, imbuierrors.IsType(err, imbuierrors.ErrorTypeScene))
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("root: [unterminated"))
	require.Error(t, err)
	assert.True(t, imbuierrors.IsType(err, imbuierrors.ErrorTypeScene))
}

func TestPlayerReplaysTodo(t *testing.T) {
	s, err := Load("testdata/todo.yml")
	require.NoError(t, err)
	p := NewPlayer(s, nil)
	ctx := context.Background()

	first, err := p.Step(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t,
		`<section><h1>Todo</h1><ul><li class="open">write docs</li><li class="done">ship</li></ul><button>add</button></section>`,
		stripComments(t, first.HTML))
	lis := dom.QuerySelectorAll(p.Container(), "li")
	require.Len(t, lis, 2)

	second, err := p.Step(ctx, 1)
	require.NoError(t, err)
	after := dom.QuerySelectorAll(p.Container(), "li")
	require.Len(t, after, 3)
	assert.Same(t, lis[1], after[0], "keyed items are moved, not recreated")
	assert.Same(t, lis[0], after[1])
	assert.Equal(t, 1, second.Stats.Attributes, "only the changed class is written")
	assert.Zero(t, second.Stats.Disposed)
	assert.Equal(t, 1, second.Stats.Listeners)
	assert.Equal(t, 1, s.Counters()["add"].Count)

	third, err := p.Step(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, dom.QuerySelectorAll(p.Container(), "li"))
	assert.Equal(t, 3, third.Stats.Disposed)
	assert.Equal(t, 1, third.Stats.CharacterData)
	assert.Contains(t, third.Text(), "-- frame 2")

	p.Reset()
	assert.Nil(t, p.Container().FirstChild)
	assert.Zero(t, s.Counters()["add"].Count)
}

func TestPlayerPlay(t *testing.T) {
	s, err := Load("testdata/todo.yml")
	require.NoError(t, err)
	p := NewPlayer(s, nil)

	var seen []int
	require.NoError(t, p.Play(context.Background(), func(r FrameResult) error {
		seen = append(seen, r.Index)
		_, err := r.JSON()
		return err
	}))
	assert.Equal(t, []int{0, 1, 2}, seen)

	_, err = p.Step(context.Background(), 3)
	assert.True(t, imbuierrors.IsType(err, imbuierrors.ErrorTypeScene))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Play(ctx, nil), context.Canceled)
}

func stripComments(t *testing.T, markup string) string {
	t.Helper()
	doc := dom.NewDocument()
	frag, err := doc.ParseFragment(markup)
	require.NoError(t, err)
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; {
			next := c.NextSibling
			if c.Type == html.CommentNode {
				n.RemoveChild(c)
			} else {
				walk(c)
			}
			c = next
		}
	}
	walk(frag)
	return dom.InnerHTML(frag)
}
