package htmldom

import (
	"sort"
	"strings"
)

// NodeKind identifies what a Node represents.
type NodeKind int

// Node kinds. The zero value is KindNone, the kind of the sentinel node
// returned by At and Select when nothing is found.
const (
	KindNone NodeKind = iota
	KindText
	KindTag
	KindComment
	KindDoctype
)

// String returns a short name for the kind.
func (k NodeKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindText:
		return "text"
	case KindTag:
		return "tag"
	case KindComment:
		return "comment"
	case KindDoctype:
		return "doctype"
	}
	return "unknown"
}

// TagKind distinguishes open and close tags while a tag node is under
// construction inside the parser. Finalized nodes in a tree always carry
// TagOpen; close tags never become tree nodes.
type TagKind int

// Tag kinds.
const (
	TagNone TagKind = iota
	TagOpen
	TagClose
)

// Attribute is a single name/value pair on a tag node. Attribute order
// follows source order; names are lowercase.
type Attribute struct {
	Name  string
	Value string
}

// Node is a single node of a parsed document tree. Only tag nodes carry
// children; text, comment and doctype nodes are leaves whose payload lives
// in Content. The root of a parsed tree is a synthetic tag node with an
// empty TagName.
type Node struct {
	Kind        NodeKind
	TagKind     TagKind
	SelfClosing bool
	TagName     string
	Content     string
	Attr        []Attribute

	parent   *Node
	children []*Node
}

// NewNode constructs a standalone node. For KindTag, value is the tag name
// (lowercased); for text, comment and doctype nodes it is the content.
// Attribute names are lowercased; attrs are applied in sorted-key order so
// construction is deterministic.
func NewNode(kind NodeKind, value string, attrs map[string]string) *Node {
	n := &Node{Kind: kind}
	switch kind {
	case KindTag:
		n.TagKind = TagOpen
		n.TagName = strings.ToLower(value)
		if voidElements[lookupAtom(n.TagName)] {
			n.SelfClosing = true
		}
	default:
		n.Content = value
	}
	if len(attrs) > 0 {
		keys := make([]string, 0, len(attrs))
		for k := range attrs {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			return strings.ToLower(keys[i]) < strings.ToLower(keys[j])
		})
		for _, k := range keys {
			n.SetAttr(k, attrs[k])
		}
	}
	return n
}

// At returns the i-th child. Out-of-range indexes return a sentinel empty
// node rather than failing, so lookups can be chained.
func (n *Node) At(i int) *Node {
	if i >= 0 && i < len(n.children) {
		return n.children[i]
	}
	return &Node{}
}

// Size returns the number of direct children.
func (n *Node) Size() int {
	return len(n.children)
}

// Empty reports whether the node has no children.
func (n *Node) Empty() bool {
	return len(n.children) == 0
}

// Children returns a copy of the direct child list.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// Parent returns the parent node, or nil for a root.
func (n *Node) Parent() *Node {
	return n.parent
}

// NextSibling returns the sibling following n under its parent, or nil.
func (n *Node) NextSibling() *Node {
	if n.parent == nil {
		return nil
	}
	for i, c := range n.parent.children {
		if c == n && i+1 < len(n.parent.children) {
			return n.parent.children[i+1]
		}
	}
	return nil
}

// PrevSibling returns the sibling preceding n under its parent, or nil.
func (n *Node) PrevSibling() *Node {
	if n.parent == nil {
		return nil
	}
	for i, c := range n.parent.children {
		if c == n && i > 0 {
			return n.parent.children[i-1]
		}
	}
	return nil
}

// GetAttr returns the value of the named attribute, or "" when absent.
// Lookup is by lowercase name.
func (n *Node) GetAttr(name string) string {
	v, _ := n.LookupAttr(name)
	return v
}

// LookupAttr returns the value of the named attribute and whether it is set.
func (n *Node) LookupAttr(name string) (string, bool) {
	name = strings.ToLower(name)
	for _, a := range n.Attr {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttr sets an attribute, lowercasing the name. Setting an existing
// attribute replaces its value in place; order is preserved.
func (n *Node) SetAttr(name, value string) {
	name = strings.ToLower(name)
	for i := range n.Attr {
		if n.Attr[i].Name == name {
			n.Attr[i].Value = value
			return
		}
	}
	n.Attr = append(n.Attr, Attribute{Name: name, Value: value})
}

// RemoveAttr deletes the named attribute if present.
func (n *Node) RemoveAttr(name string) {
	name = strings.ToLower(name)
	for i := range n.Attr {
		if n.Attr[i].Name == name {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

// Append adds child as the last child of n and rewires the child's parent
// pointer. A child that already has a parent is detached from it first.
// Returns the child.
func (n *Node) Append(child *Node) *Node {
	if child.parent != nil {
		child.Remove()
	}
	child.parent = n
	n.children = append(n.children, child)
	return child
}

// Remove detaches n from its parent. A node without a parent is left
// untouched.
func (n *Node) Remove() {
	p := n.parent
	if p == nil {
		return
	}
	for i, c := range p.children {
		if c == n {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
	n.parent = nil
}

// Walk traverses the subtree rooted at n depth-first in pre-order, calling
// visit for n and each descendant. Returning false from visit skips the
// current node's children.
func (n *Node) Walk(visit func(*Node) bool) {
	if !visit(n) {
		return
	}
	for _, c := range n.children {
		c.Walk(visit)
	}
}

// Copy returns a deep clone of the subtree rooted at n. Parent pointers of
// the clones point into the clone tree; the clone root's parent is nil.
func (n *Node) Copy() *Node {
	c := &Node{
		Kind:        n.Kind,
		TagKind:     n.TagKind,
		SelfClosing: n.SelfClosing,
		TagName:     n.TagName,
		Content:     n.Content,
	}
	if len(n.Attr) > 0 {
		c.Attr = make([]Attribute, len(n.Attr))
		copy(c.Attr, n.Attr)
	}
	for _, child := range n.children {
		cc := child.Copy()
		cc.parent = c
		c.children = append(c.children, cc)
	}
	return c
}

// Select returns the first node in document order within this subtree
// (including n itself) that satisfies the selector expression. When nothing
// matches, or the expression is empty or ill-formed, a sentinel empty node
// is returned.
func (n *Node) Select(expr string) *Node {
	sel := CompileSelector(expr)
	if sel.Empty() {
		return &Node{}
	}
	if found := selectFirst(n, sel); found != nil {
		return found
	}
	return &Node{}
}

// SelectAll returns every node in document order within this subtree that
// satisfies the selector expression.
func (n *Node) SelectAll(expr string) []*Node {
	sel := CompileSelector(expr)
	if sel.Empty() {
		return nil
	}
	var out []*Node
	n.Walk(func(c *Node) bool {
		if sel.Matches(c) {
			out = append(out, c)
		}
		return true
	})
	return out
}

// Matches reports whether n satisfies the compiled selector.
func (n *Node) Matches(sel Selector) bool {
	return sel.Matches(n)
}

func selectFirst(n *Node, sel Selector) *Node {
	if sel.Matches(n) {
		return n
	}
	for _, c := range n.children {
		if found := selectFirst(c, sel); found != nil {
			return found
		}
	}
	return nil
}
