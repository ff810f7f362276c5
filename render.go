package htmldom

import (
	"strings"

	"golang.org/x/net/html"
)

// ToHTML renders the subtree rooted at n back to markup, indenting nested
// children with one tab per depth level.
func (n *Node) ToHTML() string {
	return n.ToHTMLIndent('\t')
}

// ToHTMLIndent renders the subtree with the given indent byte. A tag whose
// children are all text nodes is emitted inline without introducing
// whitespace; a tag with non-text children puts each child on its own
// indented line.
func (n *Node) ToHTMLIndent(indent byte) string {
	var b strings.Builder
	renderNode(&b, n, indent, 0)
	return b.String()
}

// InnerHTML renders only the children of n, using tab indentation.
func (n *Node) InnerHTML() string {
	var b strings.Builder
	renderForest(&b, n.children, '\t', 0)
	return b.String()
}

func renderNode(b *strings.Builder, n *Node, indent byte, depth int) {
	switch n.Kind {
	case KindText:
		b.WriteString(n.Content)
	case KindComment:
		b.WriteString("<!--")
		b.WriteString(n.Content)
		b.WriteString("-->")
	case KindDoctype:
		b.WriteString("<!DOCTYPE ")
		b.WriteString(n.Content)
		b.WriteString(">")
	case KindTag:
		if n.TagName == "" {
			// Synthetic root: render the children without a wrapping tag.
			renderForest(b, n.children, indent, depth)
			return
		}
		b.WriteByte('<')
		b.WriteString(n.TagName)
		for _, a := range n.Attr {
			b.WriteByte(' ')
			b.WriteString(a.Name)
			b.WriteString(`="`)
			b.WriteString(strings.ReplaceAll(a.Value, `"`, "&quot;"))
			b.WriteByte('"')
		}
		if n.SelfClosing {
			b.WriteString("/>")
			return
		}
		b.WriteByte('>')
		if textOnly(n.children) {
			for _, c := range n.children {
				b.WriteString(c.Content)
			}
		} else {
			b.WriteByte('\n')
			for _, c := range n.children {
				writeIndent(b, indent, depth+1)
				renderNode(b, c, indent, depth+1)
				b.WriteByte('\n')
			}
			writeIndent(b, indent, depth)
		}
		b.WriteString("</")
		b.WriteString(n.TagName)
		b.WriteByte('>')
	}
}

// renderForest renders a sibling sequence: inline when every node is text,
// otherwise one node per line.
func renderForest(b *strings.Builder, nodes []*Node, indent byte, depth int) {
	if textOnly(nodes) {
		for _, c := range nodes {
			b.WriteString(c.Content)
		}
		return
	}
	for i, c := range nodes {
		if i > 0 {
			b.WriteByte('\n')
		}
		writeIndent(b, indent, depth)
		renderNode(b, c, indent, depth)
	}
}

func textOnly(nodes []*Node) bool {
	for _, c := range nodes {
		if c.Kind != KindText {
			return false
		}
	}
	return true
}

func writeIndent(b *strings.Builder, indent byte, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteByte(indent)
	}
}

// ToText extracts the text content of the subtree in document order.
// Consecutive ASCII whitespace runs collapse to a single space, leading and
// trailing whitespace is trimmed, and HTML entities are decoded. Content of
// raw-text elements such as script and style is emitted verbatim.
func (n *Node) ToText() string {
	w := textWriter{}
	w.walk(n, false)
	return strings.Trim(w.b.String(), "\x09\x0a\x0c\x0d\x20")
}

// RawText extracts the text content verbatim: no whitespace collapsing, no
// trimming and no entity decoding.
func (n *Node) RawText() string {
	w := textWriter{raw: true}
	w.walk(n, false)
	return w.b.String()
}

type textWriter struct {
	b         strings.Builder
	raw       bool
	lastSpace bool
}

func (w *textWriter) walk(n *Node, inRaw bool) {
	switch n.Kind {
	case KindText:
		if w.raw || inRaw {
			w.b.WriteString(n.Content)
			w.lastSpace = false
			return
		}
		w.collapse(html.UnescapeString(n.Content))
	case KindTag:
		if !inRaw && n.TagName != "" && rawTextElements[lookupAtom(n.TagName)] {
			inRaw = true
		}
		for _, c := range n.children {
			w.walk(c, inRaw)
		}
	}
}

// collapse writes s with every run of ASCII whitespace reduced to a single
// space, merging runs across adjacent text nodes.
func (w *textWriter) collapse(s string) {
	for i := 0; i < len(s); i++ {
		if isSpace(s[i]) {
			if !w.lastSpace {
				w.b.WriteByte(' ')
				w.lastSpace = true
			}
			continue
		}
		w.b.WriteByte(s[i])
		w.lastSpace = false
	}
}
