package htmldom

import (
	"strconv"
	"strings"
)

// Selector compiler lexical states.
const (
	selRoute = iota
	selTag
	selClass
	selID
	selOperator
	selIndex
	selAttr
	selAttrOperator
	selAttrVal
)

// condition is one atomic requirement of a simple selector. The conditions
// of a simple selector are ANDed; a simple like "a.x.y" compiles to three
// conditions (tag, class, class).
type condition struct {
	tagName   string
	id        string
	className string
	index     int
	attrName  string
	attrOp    string // "", "=", "*=", "^=", "$="; "" with hasAttr means presence
	attrValue string
	hasAttr   bool
}

func (c *condition) matches(n *Node) bool {
	if n.Kind != KindTag {
		return false
	}
	if c.tagName != "" && n.TagName != c.tagName {
		return false
	}
	if c.id != "" && n.GetAttr("id") != c.id {
		return false
	}
	if c.className != "" && !hasClassToken(n.GetAttr("class"), c.className) {
		return false
	}
	if c.index != 0 && n.siblingIndex() != c.index {
		return false
	}
	if c.hasAttr {
		v, ok := n.LookupAttr(c.attrName)
		if !ok {
			return false
		}
		switch c.attrOp {
		case "=":
			return v == c.attrValue
		case "*=":
			return strings.Contains(v, c.attrValue)
		case "^=":
			return strings.HasPrefix(v, c.attrValue)
		case "$=":
			return strings.HasSuffix(v, c.attrValue)
		}
	}
	return true
}

func hasClassToken(classAttr, token string) bool {
	for _, t := range strings.Fields(classAttr) {
		if t == token {
			return true
		}
	}
	return false
}

// siblingIndex is the 1-based position of n among its parent's children that
// share n's tag name. Computed on demand so it stays correct under mutation.
func (n *Node) siblingIndex() int {
	if n.parent == nil {
		return 1
	}
	idx := 0
	for _, c := range n.parent.children {
		if c.Kind == KindTag && c.TagName == n.TagName {
			idx++
		}
		if c == n {
			break
		}
	}
	return idx
}

// matcherChain is one comma-alternative of a selector: an ordered list of
// simple selectors connected by the descendant combinator. simples[0] is the
// leaf requirement; subsequent entries are ancestor requirements.
type matcherChain struct {
	allAncestors bool
	simples      [][]condition
}

func matchSimple(simple []condition, n *Node) bool {
	for i := range simple {
		if !simple[i].matches(n) {
			return false
		}
	}
	return true
}

func (m *matcherChain) matches(n *Node) bool {
	if len(m.simples) == 0 {
		return false
	}
	if !matchSimple(m.simples[0], n) {
		return false
	}
	if !m.allAncestors {
		return true
	}
	// Each ancestor requirement must be satisfied strictly further from n
	// than the previous one.
	cur := n.parent
	for _, simple := range m.simples[1:] {
		for cur != nil && !matchSimple(simple, cur) {
			cur = cur.parent
		}
		if cur == nil {
			return false
		}
		cur = cur.parent
	}
	return true
}

// Selector is a compiled selector expression: a disjunction of matcher
// chains. The zero value matches nothing.
type Selector struct {
	matchers []matcherChain
}

// Empty reports whether the selector has no matchers, either because the
// expression was empty or because it failed to compile.
func (s Selector) Empty() bool {
	return len(s.matchers) == 0
}

// Matches reports whether n satisfies any of the selector's chains.
func (s Selector) Matches(n *Node) bool {
	for i := range s.matchers {
		if s.matchers[i].matches(n) {
			return true
		}
	}
	return false
}

// CompileSelector compiles a selector expression. Ill-formed input yields an
// empty selector that never matches; no error is reported.
func CompileSelector(expr string) Selector {
	c := selCompiler{state: selRoute, ok: true}
	for i := 0; i < len(expr) && c.ok; i++ {
		c.step(expr[i])
	}
	c.finish()
	if !c.ok {
		return Selector{}
	}
	return Selector{matchers: c.matchers}
}

type selCompiler struct {
	state    int
	ok       bool
	buf      []byte
	matchers []matcherChain
	chain    [][]condition // simples in source order, outermost first
	cur      []condition   // conditions of the simple being built

	attrName []byte
	attrOp   string
	valQuote byte
	valOpen  bool
	valDone  bool
}

func (c *selCompiler) step(ch byte) {
	switch c.state {
	case selRoute:
		c.route(ch)
	case selTag:
		if isSelNameByte(ch) {
			c.buf = append(c.buf, lowerByte(ch))
			return
		}
		c.flushPart()
		c.route(ch)
	case selClass, selID:
		if !isSelDelim(ch) {
			c.buf = append(c.buf, ch)
			return
		}
		c.flushPart()
		c.route(ch)
	case selOperator:
		if ch >= '0' && ch <= '9' {
			c.buf = append(c.buf, ch)
			c.state = selIndex
			return
		}
		c.ok = false
	case selIndex:
		if ch >= '0' && ch <= '9' {
			c.buf = append(c.buf, ch)
			return
		}
		if !isSelDelim(ch) {
			c.ok = false
			return
		}
		c.flushPart()
		c.route(ch)
	case selAttr:
		switch {
		case ch == ']':
			if len(c.attrName) == 0 {
				c.ok = false
				return
			}
			c.cur = append(c.cur, condition{attrName: string(c.attrName), hasAttr: true})
			c.state = selRoute
		case ch == '=':
			c.attrOp = "="
			c.state = selAttrVal
		case ch == '*' || ch == '^' || ch == '$':
			c.attrOp = string(ch)
			c.state = selAttrOperator
		case isSelSpace(ch):
			c.ok = false
		default:
			c.attrName = append(c.attrName, lowerByte(ch))
		}
	case selAttrOperator:
		if ch == '=' {
			c.attrOp += "="
			c.state = selAttrVal
			return
		}
		c.ok = false
	case selAttrVal:
		if !c.valOpen {
			c.valOpen = true
			if ch == '"' || ch == '\'' {
				c.valQuote = ch
				return
			}
		}
		if c.valQuote != 0 {
			switch {
			case c.valDone:
				if ch == ']' {
					c.pushAttr()
					return
				}
				c.ok = false
			case ch == c.valQuote:
				c.valDone = true
			default:
				c.buf = append(c.buf, ch)
			}
			return
		}
		if ch == ']' {
			c.pushAttr()
			return
		}
		c.buf = append(c.buf, ch)
	}
}

// route dispatches a boundary byte: whitespace advances to the next simple
// selector of the chain, a comma starts a new chain, and part introducers
// open the corresponding lexical state.
func (c *selCompiler) route(ch byte) {
	switch {
	case isSelSpace(ch):
		c.endSimple()
		c.state = selRoute
	case ch == ',':
		c.endChain()
		c.state = selRoute
	case ch == '.':
		c.state = selClass
	case ch == '#':
		c.state = selID
	case ch == ':':
		c.state = selOperator
	case ch == '[':
		c.attrName = c.attrName[:0]
		c.attrOp = ""
		c.valQuote = 0
		c.valOpen = false
		c.valDone = false
		c.state = selAttr
	case isAlpha(ch):
		c.buf = append(c.buf, lowerByte(ch))
		c.state = selTag
	default:
		c.ok = false
	}
}

// flushPart converts the accumulated bytes of the current lexical state into
// a condition on the simple selector under construction.
func (c *selCompiler) flushPart() {
	text := string(c.buf)
	c.buf = c.buf[:0]
	switch c.state {
	case selTag:
		if text != "" {
			c.cur = append(c.cur, condition{tagName: text})
		}
	case selClass:
		if text == "" {
			c.ok = false
			return
		}
		c.cur = append(c.cur, condition{className: text})
	case selID:
		if text == "" {
			c.ok = false
			return
		}
		c.cur = append(c.cur, condition{id: text})
	case selIndex:
		idx, err := strconv.Atoi(text)
		if err != nil {
			c.ok = false
			return
		}
		c.cur = append(c.cur, condition{index: idx})
	}
	c.state = selRoute
}

func (c *selCompiler) pushAttr() {
	if len(c.attrName) == 0 {
		c.ok = false
		return
	}
	c.cur = append(c.cur, condition{
		attrName:  string(c.attrName),
		attrOp:    c.attrOp,
		attrValue: string(c.buf),
		hasAttr:   true,
	})
	c.buf = c.buf[:0]
	c.state = selRoute
}

func (c *selCompiler) endSimple() {
	if len(c.cur) > 0 {
		c.chain = append(c.chain, c.cur)
		c.cur = nil
	}
}

// endChain finalizes one comma-alternative, reversing the simples so the
// leaf requirement comes first.
func (c *selCompiler) endChain() {
	c.endSimple()
	if len(c.chain) == 0 {
		return
	}
	simples := make([][]condition, len(c.chain))
	for i, s := range c.chain {
		simples[len(c.chain)-1-i] = s
	}
	c.matchers = append(c.matchers, matcherChain{
		allAncestors: len(simples) > 1,
		simples:      simples,
	})
	c.chain = nil
}

func (c *selCompiler) finish() {
	if !c.ok {
		return
	}
	switch c.state {
	case selRoute:
	case selTag, selClass, selID, selIndex:
		c.flushPart()
	default:
		// Unterminated attribute selector or bare ':'.
		c.ok = false
		return
	}
	if c.ok {
		c.endChain()
	}
}

func isSelSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\f' || ch == '\r'
}

func isSelDelim(ch byte) bool {
	return isSelSpace(ch) || ch == ',' || ch == '.' || ch == '#' || ch == ':' || ch == '['
}

func isSelNameByte(ch byte) bool {
	return isAlpha(ch) || isDigit(ch) || ch == '-' || ch == '_'
}
