package cast

import (
	"strconv"
	"strings"
	"unicode"
)

// Sentinels embedded in template markup before parsing. The marker glyph does
// not occur in ordinary markup, so parsed comments and attribute values can be
// matched back to hole indices.
const stampGlyph = "⁕"

func attrStamp(i int) string  { return stampGlyph + strconv.Itoa(i) }
func textStamp(i int) string  { return "<!--" + stampGlyph + strconv.Itoa(i) + "-->" }
func headStamp(i int) string  { return "<!--" + stampGlyph + "start:" + strconv.Itoa(i) + "-->" }
func tailStamp(i int) string  { return "<!--" + stampGlyph + "end:" + strconv.Itoa(i) + "-->" }
func rangeStamp(i int) string { return headStamp(i) + tailStamp(i) }

// holeKind is the stamp chosen for one interpolation hole.
type holeKind int

const (
	holeText holeKind = iota
	holeAttr
	holeRange
)

// encode interleaves the segments with sentinel stamps.
func encode(segments []string) string {
	var b strings.Builder
	for i, seg := range segments {
		b.WriteString(seg)
		if i == len(segments)-1 {
			break
		}
		switch classify(b.String(), seg, segments[i+1]) {
		case holeAttr:
			b.WriteString(attrStamp(i))
		case holeRange:
			b.WriteString(rangeStamp(i))
		default:
			b.WriteString(textStamp(i))
		}
	}
	return b.String()
}

// classify decides the hole kind. The attribute check runs over all markup
// written so far so a tag spanning several holes keeps attribute context.
func classify(markup, prev, next string) holeKind {
	if looksLikeAttrOpen(markup) {
		return holeAttr
	}
	if looksLikeChildSlot(prev, next) {
		return holeRange
	}
	return holeText
}

// looksLikeAttrOpen reports whether prev ends inside an open start tag.
func looksLikeAttrOpen(prev string) bool {
	lt := strings.LastIndex(prev, "<")
	if lt == -1 {
		return false
	}
	tail := prev[lt+1:]
	if tail == "" {
		return false
	}
	if r := rune(tail[0]); !unicode.IsLetter(r) {
		return false
	}

	var quote byte
	for i := 0; i < len(tail); i++ {
		c := tail[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '>':
			return false
		}
	}
	if quote != 0 {
		return true
	}

	last := tail[len(tail)-1]
	switch {
	case last == '=' || last == '"' || last == '\'':
		return true
	case isSpace(last):
		return true
	}
	return isAttrNameByte(last)
}

// looksLikeChildSlot reports whether a hole sits between element boundaries.
func looksLikeChildSlot(prev, next string) bool {
	last := lastNonSpace(prev)
	if last == '>' && !strings.HasSuffix(strings.TrimRightFunc(prev, unicode.IsSpace), "/>") {
		return true
	}
	return firstNonSpace(next) == '<'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

func isAttrNameByte(c byte) bool {
	return !isSpace(c) && c != '"' && c != '\'' && c != '>' && c != '/' && c != '='
}

func lastNonSpace(s string) byte {
	for i := len(s) - 1; i >= 0; i-- {
		if !isSpace(s[i]) {
			return s[i]
		}
	}
	return 0
}

func firstNonSpace(s string) byte {
	for i := 0; i < len(s); i++ {
		if !isSpace(s[i]) {
			return s[i]
		}
	}
	return 0
}
