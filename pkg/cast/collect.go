package cast

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

var (
	nodeMarker  = regexp.MustCompile(`^` + stampGlyph + `(\d+)$`)
	startMarker = regexp.MustCompile(`^` + stampGlyph + `start:(\d+)$`)
	endMarker   = regexp.MustCompile(`^` + stampGlyph + `end:(\d+)$`)
	attrToken   = regexp.MustCompile(stampGlyph + `(\d+)`)
)

// eventPrefix marks attributes that bind listeners instead of values.
const eventPrefix = "on"

// collectParts finds every stamped marker in fragment and returns the parts
// ordered by hole index. Event attributes are removed from their elements.
// Range starts without a matching end are dropped.
func collectParts(fragment *html.Node) []Part {
	var (
		parts  []Part
		starts = map[int]*html.Node{}
		ends   = map[int]*html.Node{}
		order  []int
		elems  []*html.Node
	)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.CommentNode:
				if m := nodeMarker.FindStringSubmatch(c.Data); m != nil {
					parts = append(parts, &NodePart{partBase: partBase{index: atoi(m[1])}, Marker: c})
				} else if m := startMarker.FindStringSubmatch(c.Data); m != nil {
					i := atoi(m[1])
					starts[i] = c
					order = append(order, i)
				} else if m := endMarker.FindStringSubmatch(c.Data); m != nil {
					ends[atoi(m[1])] = c
				}
			case html.ElementNode:
				elems = append(elems, c)
			}
			walk(c)
		}
	}
	walk(fragment)

	for _, i := range order {
		if end, ok := ends[i]; ok {
			parts = append(parts, &RangePart{partBase: partBase{index: i}, Start: starts[i], End: end})
		}
	}

	for _, el := range elems {
		// Iterate over a copy: event attributes are removed as we go.
		attrs := make([]html.Attribute, len(el.Attr))
		copy(attrs, el.Attr)
		for _, attr := range attrs {
			if attr.Namespace != "" {
				continue
			}
			strs, indices := splitTokens(attr.Val)
			if len(indices) == 0 {
				continue
			}
			if strings.HasPrefix(attr.Key, eventPrefix) {
				parts = append(parts, &EventPart{
					partBase: partBase{index: indices[0]},
					Element:  el,
					Type:     strings.TrimPrefix(attr.Key, eventPrefix),
				})
				removeAttr(el, attr.Key)
				continue
			}
			parts = append(parts, &AttrPart{
				partBase: partBase{index: indices[0]},
				Element:  el,
				Name:     attr.Key,
				Strings:  strs,
				Indices:  indices,
			})
		}
	}

	sort.SliceStable(parts, func(a, b int) bool { return parts[a].Index() < parts[b].Index() })
	return parts
}

// splitTokens splits an attribute value around its stamp tokens. The literal
// strings always number one more than the indices.
func splitTokens(raw string) ([]string, []int) {
	locs := attrToken.FindAllStringSubmatchIndex(raw, -1)
	if len(locs) == 0 {
		return nil, nil
	}
	strs := make([]string, 0, len(locs)+1)
	indices := make([]int, 0, len(locs))
	last := 0
	for _, loc := range locs {
		strs = append(strs, raw[last:loc[0]])
		indices = append(indices, atoi(raw[loc[2]:loc[3]]))
		last = loc[1]
	}
	strs = append(strs, raw[last:])
	return strs, indices
}

func removeAttr(el *html.Node, key string) {
	for i, a := range el.Attr {
		if a.Namespace == "" && a.Key == key {
			el.Attr = append(el.Attr[:i], el.Attr[i+1:]...)
			return
		}
	}
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
