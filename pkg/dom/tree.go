package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// InsertBefore inserts child into parent before ref, or at the end when ref
// is nil. A child that is already attached is moved. Inserting a fragment
// moves all of its children and leaves it empty.
func (d *Document) InsertBefore(parent, child, ref *html.Node) {
	if child == nil || child == ref {
		return
	}
	if IsFragment(child) {
		for c := child.FirstChild; c != nil; c = child.FirstChild {
			d.InsertBefore(parent, c, ref)
		}
		return
	}
	if child.Parent != nil {
		d.RemoveChild(child.Parent, child)
	}
	parent.InsertBefore(child, ref)
	d.notify(Mutation{Kind: ChildList, Target: parent, Added: child})
}

// AppendChild appends child to parent.
func (d *Document) AppendChild(parent, child *html.Node) {
	d.InsertBefore(parent, child, nil)
}

// RemoveChild detaches child from parent. It is a no-op when child belongs to
// another parent.
func (d *Document) RemoveChild(parent, child *html.Node) {
	if child == nil || child.Parent != parent {
		return
	}
	parent.RemoveChild(child)
	d.notify(Mutation{Kind: ChildList, Target: parent, Removed: child})
}

// Remove detaches n from its parent, if any.
func (d *Document) Remove(n *html.Node) {
	if n != nil && n.Parent != nil {
		d.RemoveChild(n.Parent, n)
	}
}

// ReplaceChildren removes every child of parent and appends nodes in order.
func (d *Document) ReplaceChildren(parent *html.Node, nodes ...*html.Node) {
	for c := parent.FirstChild; c != nil; c = parent.FirstChild {
		d.RemoveChild(parent, c)
	}
	for _, n := range nodes {
		d.AppendChild(parent, n)
	}
}

// SetData replaces the character data of a text or comment node.
func (d *Document) SetData(n *html.Node, data string) {
	old := n.Data
	n.Data = data
	d.notify(Mutation{Kind: CharacterData, Target: n, OldValue: old})
}

// GetAttribute returns the value of the named attribute.
func GetAttribute(el *html.Node, name string) (string, bool) {
	for _, a := range el.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttribute sets or adds the named attribute.
func (d *Document) SetAttribute(el *html.Node, name, value string) {
	old, _ := GetAttribute(el, name)
	set := false
	for i := range el.Attr {
		if el.Attr[i].Namespace == "" && el.Attr[i].Key == name {
			el.Attr[i].Val = value
			set = true
			break
		}
	}
	if !set {
		el.Attr = append(el.Attr, html.Attribute{Key: name, Val: value})
	}
	d.notify(Mutation{Kind: Attributes, Target: el, Name: name, OldValue: old})
}

// RemoveAttribute deletes the named attribute if present.
func (d *Document) RemoveAttribute(el *html.Node, name string) {
	for i, a := range el.Attr {
		if a.Namespace == "" && a.Key == name {
			el.Attr = append(el.Attr[:i], el.Attr[i+1:]...)
			d.notify(Mutation{Kind: Attributes, Target: el, Name: name, OldValue: a.Val})
			return
		}
	}
}

// ChildNodes returns the children of n.
func ChildNodes(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

// Children returns the element children of n.
func Children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// FirstElementChild returns the first element child of n, or nil.
func FirstElementChild(n *html.Node) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}

// Contains reports whether other is n or one of its descendants.
func Contains(n, other *html.Node) bool {
	for p := other; p != nil; p = p.Parent {
		if p == n {
			return true
		}
	}
	return false
}

// TextContent concatenates the text of n and its descendants. Comments only
// contribute when n itself is a comment.
func TextContent(n *html.Node) string {
	switch n.Type {
	case html.TextNode, html.CommentNode:
		return n.Data
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				b.WriteString(c.Data)
			case html.ElementNode:
				walk(c)
			}
		}
	}
	walk(n)
	return b.String()
}

// InnerHTML serializes the children of n.
func InnerHTML(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&b, c)
	}
	return b.String()
}

// OuterHTML serializes n itself.
func OuterHTML(n *html.Node) string {
	if IsFragment(n) {
		return InnerHTML(n)
	}
	var b strings.Builder
	_ = html.Render(&b, n)
	return b.String()
}

// QuerySelectorAll returns the descendant elements of root whose tag matches,
// in document order. "*" matches every element.
func QuerySelectorAll(root *html.Node, tag string) []*html.Node {
	tag = strings.ToLower(tag)
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (tag == "*" || c.Data == tag) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(root)
	return out
}

// QuerySelector returns the first descendant element matching tag, or nil.
func QuerySelector(root *html.Node, tag string) *html.Node {
	if all := QuerySelectorAll(root, tag); len(all) > 0 {
		return all[0]
	}
	return nil
}

// Path is a sequence of child ordinals from a root to a node.
type Path []int

// PathTo returns the child-index path from root to node.
func PathTo(node, root *html.Node) Path {
	var path Path
	for n := node; n != nil && n != root; n = n.Parent {
		i := 0
		for s := n.PrevSibling; s != nil; s = s.PrevSibling {
			i++
		}
		path = append(path, i)
	}
	for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
		path[l], path[r] = path[r], path[l]
	}
	return path
}

// NodeAt follows path from root. It returns nil when the path does not exist.
func NodeAt(root *html.Node, path Path) *html.Node {
	n := root
	for _, idx := range path {
		c := n.FirstChild
		for i := 0; c != nil && i < idx; i++ {
			c = c.NextSibling
		}
		if c == nil {
			return nil
		}
		n = c
	}
	return n
}
