package htmldom

import (
	"fmt"
	"os"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Tokenizer states, numbered after the HTML standard's tokenization states.
const (
	stateData                      = 0
	stateRawtext                   = 3
	stateTagOpen                   = 6
	stateEndTagOpen                = 7
	stateTagName                   = 8
	stateRawtextLessThanSign       = 12
	stateRawtextEndTagOpen         = 13
	stateRawtextEndTagName         = 14
	stateBeforeAttributeName       = 32
	stateAttributeName             = 33
	stateAfterAttributeName        = 34
	stateBeforeAttributeValue      = 35
	stateAttributeValueDouble      = 36
	stateAttributeValueSingle      = 37
	stateAttributeValueUnquoted    = 38
	stateAfterAttributeValueQuoted = 39
	stateSelfClosing               = 40
	stateBogusComment              = 41
	stateMarkupDecOpen             = 42
	stateCommentStart              = 43
	stateCommentStartDash          = 44
	stateComment                   = 45
	stateCommentEndDash            = 50
	stateCommentEnd                = 51
	stateBeforeDoctypeName         = 54
	stateDoctypeName               = 55
)

// ErrorKind identifies a malformation reported through the error callback.
type ErrorKind int

// ErrTagNotClosed is reported once for every element that never received its
// close tag: when a close tag moves the cursor above it, or at end of input.
const ErrTagNotClosed ErrorKind = iota

// String returns a short name for the error kind.
func (e ErrorKind) String() string {
	if e == ErrTagNotClosed {
		return "tag_not_closed"
	}
	return "unknown"
}

// voidElements never have content or a close tag; the parser appends them as
// leaves without descending.
var voidElements = map[atom.Atom]bool{
	atom.Area: true, atom.Base: true, atom.Br: true, atom.Col: true,
	atom.Embed: true, atom.Hr: true, atom.Img: true, atom.Input: true,
	atom.Link: true, atom.Meta: true, atom.Param: true, atom.Source: true,
	atom.Track: true, atom.Wbr: true,
}

// rawTextElements switch the tokenizer into RAWTEXT after their open tag:
// content is not tokenized except to find the matching close tag.
var rawTextElements = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Textarea: true, atom.Title: true,
	atom.Xmp: true, atom.Iframe: true, atom.Noembed: true, atom.Noframes: true,
	atom.Noscript: true, atom.Plaintext: true,
}

func lookupAtom(name string) atom.Atom {
	return atom.Lookup([]byte(name))
}

type nodeCallback struct {
	filtered bool
	sel      Selector
	fn       func(*Node)
}

// Parser converts HTML source bytes into a node tree. A Parser is stateful
// during a parse and must not be shared across goroutines; distinct parsers
// on disjoint inputs may run in parallel. Registered callbacks persist
// across calls to Parse.
type Parser struct {
	state   int
	data    []byte
	pos     int
	root    *Node
	cursor  *Node
	pending *Node

	text      []byte // text run accumulator (DATA, RAWTEXT)
	name      []byte // tag name accumulator, canonical lowercase
	content   []byte // comment/doctype content accumulator
	attrName  []byte
	attrValue []byte
	rawTag    string // canonical name of the open raw-text element
	rawEnd    []byte // candidate close-tag name inside RAWTEXT

	nodeCallbacks []nodeCallback
	errCallbacks  []func(ErrorKind, *Node)
}

// NewParser returns a parser with no callbacks registered.
func NewParser() *Parser {
	return &Parser{}
}

// OnNode registers a callback invoked for every node right after it is
// linked into the tree.
func (p *Parser) OnNode(fn func(*Node)) *Parser {
	p.nodeCallbacks = append(p.nodeCallbacks, nodeCallback{fn: fn})
	return p
}

// OnSelector registers a callback invoked only for nodes matching the
// selector expression at the moment of emission. An expression that is empty
// or fails to compile never fires.
func (p *Parser) OnSelector(expr string, fn func(*Node)) *Parser {
	p.nodeCallbacks = append(p.nodeCallbacks, nodeCallback{
		filtered: true,
		sel:      CompileSelector(expr),
		fn:       fn,
	})
	return p
}

// OnError registers a callback invoked with an error kind and the offending
// node.
func (p *Parser) OnError(fn func(ErrorKind, *Node)) *Parser {
	p.errCallbacks = append(p.errCallbacks, fn)
	return p
}

// ClearCallbacks removes all registered callbacks.
func (p *Parser) ClearCallbacks() {
	p.nodeCallbacks = nil
	p.errCallbacks = nil
}

// ParseFile reads and parses an HTML file.
func (p *Parser) ParseFile(name string) (*Node, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", name, err)
	}
	return p.Parse(data), nil
}

// Parse parses the entire byte slice and returns the root of the tree. The
// root is a synthetic tag node with an empty tag name; all top-level nodes
// are its direct children. Parsing never fails: malformed input is recovered
// and at worst yields an empty root.
func (p *Parser) Parse(data []byte) *Node {
	p.reset()
	p.data = data
	for p.pos = 0; p.pos < len(p.data); p.pos++ {
		c := p.data[p.pos]
		switch p.state {

		case stateData:
			if c == '<' {
				p.state = stateTagOpen
			} else {
				p.text = append(p.text, c)
			}

		case stateTagOpen:
			switch {
			case c == '!':
				p.state = stateMarkupDecOpen
			case c == '/':
				p.state = stateEndTagOpen
			case isAlpha(c):
				p.startTag(TagOpen)
				p.name = append(p.name, lowerByte(c))
				p.state = stateTagName
			case c == '?':
				p.startComment()
				p.content = append(p.content, c)
				p.state = stateBogusComment
			default:
				// Not a tag after all; the '<' is literal text.
				p.text = append(p.text, '<')
				p.state = stateData
				p.pos--
			}

		case stateEndTagOpen:
			switch {
			case isAlpha(c):
				p.startTag(TagClose)
				p.name = append(p.name, lowerByte(c))
				p.state = stateTagName
			case c == '>':
				p.state = stateData
			default:
				p.startComment()
				p.content = append(p.content, c)
				p.state = stateBogusComment
			}

		case stateTagName:
			switch {
			case isSpace(c):
				p.state = stateBeforeAttributeName
			case c == '/':
				p.state = stateSelfClosing
			case c == '>':
				p.emitTag()
			case isTagNameByte(c):
				p.name = append(p.name, lowerByte(c))
			}

		case stateBeforeAttributeName:
			switch {
			case isSpace(c):
			case c == '/':
				p.state = stateSelfClosing
			case c == '>':
				p.emitTag()
			default:
				p.attrName = append(p.attrName[:0], lowerByte(c))
				p.attrValue = p.attrValue[:0]
				p.state = stateAttributeName
			}

		case stateAttributeName:
			switch {
			case isSpace(c):
				p.state = stateAfterAttributeName
			case c == '=':
				p.state = stateBeforeAttributeValue
			case c == '/':
				p.commitAttr()
				p.state = stateSelfClosing
			case c == '>':
				p.commitAttr()
				p.emitTag()
			default:
				p.attrName = append(p.attrName, lowerByte(c))
			}

		case stateAfterAttributeName:
			switch {
			case isSpace(c):
			case c == '=':
				p.state = stateBeforeAttributeValue
			case c == '/':
				p.commitAttr()
				p.state = stateSelfClosing
			case c == '>':
				p.commitAttr()
				p.emitTag()
			default:
				// Previous attribute had no value; a new one begins.
				p.commitAttr()
				p.attrName = append(p.attrName[:0], lowerByte(c))
				p.state = stateAttributeName
			}

		case stateBeforeAttributeValue:
			switch {
			case isSpace(c):
			case c == '"':
				p.state = stateAttributeValueDouble
			case c == '\'':
				p.state = stateAttributeValueSingle
			case c == '>':
				p.commitAttr()
				p.emitTag()
			default:
				p.attrValue = append(p.attrValue, c)
				p.state = stateAttributeValueUnquoted
			}

		case stateAttributeValueDouble:
			if c == '"' {
				p.commitAttr()
				p.state = stateAfterAttributeValueQuoted
			} else {
				p.attrValue = append(p.attrValue, c)
			}

		case stateAttributeValueSingle:
			if c == '\'' {
				p.commitAttr()
				p.state = stateAfterAttributeValueQuoted
			} else {
				p.attrValue = append(p.attrValue, c)
			}

		case stateAttributeValueUnquoted:
			switch {
			case isSpace(c):
				p.commitAttr()
				p.state = stateBeforeAttributeName
			case c == '>':
				p.commitAttr()
				p.emitTag()
			default:
				p.attrValue = append(p.attrValue, c)
			}

		case stateAfterAttributeValueQuoted:
			switch {
			case isSpace(c):
				p.state = stateBeforeAttributeName
			case c == '/':
				p.state = stateSelfClosing
			case c == '>':
				p.emitTag()
			default:
				p.state = stateBeforeAttributeName
				p.pos--
			}

		case stateSelfClosing:
			if c == '>' {
				p.pending.SelfClosing = true
				p.emitTag()
			} else {
				p.state = stateBeforeAttributeName
				p.pos--
			}

		case stateMarkupDecOpen:
			switch {
			case c == '-' && p.peek(1) == '-':
				p.pos++
				p.startComment()
				p.state = stateCommentStart
			case (c == 'd' || c == 'D') && matchFold(p.data[p.pos:], "doctype"):
				p.pos += 6
				p.state = stateBeforeDoctypeName
			default:
				p.startComment()
				p.state = stateBogusComment
				p.pos--
			}

		case stateBogusComment:
			if c == '>' {
				p.emitComment()
			} else {
				p.content = append(p.content, c)
			}

		case stateCommentStart:
			switch {
			case c == '-':
				p.state = stateCommentStartDash
			case c == '>':
				p.emitComment()
			default:
				p.content = append(p.content, c)
				p.state = stateComment
			}

		case stateCommentStartDash:
			switch {
			case c == '-':
				p.state = stateCommentEnd
			case c == '>':
				p.emitComment()
			default:
				p.content = append(p.content, '-', c)
				p.state = stateComment
			}

		case stateComment:
			if c == '-' {
				p.state = stateCommentEndDash
			} else {
				p.content = append(p.content, c)
			}

		case stateCommentEndDash:
			if c == '-' {
				p.state = stateCommentEnd
			} else {
				p.content = append(p.content, '-', c)
				p.state = stateComment
			}

		case stateCommentEnd:
			switch {
			case c == '>':
				p.emitComment()
			case c == '-':
				p.content = append(p.content, '-')
			default:
				p.content = append(p.content, '-', '-', c)
				p.state = stateComment
			}

		case stateBeforeDoctypeName:
			switch {
			case isSpace(c):
			case c == '>':
				p.emitDoctype()
			default:
				p.startDoctype()
				p.content = append(p.content, c)
				p.state = stateDoctypeName
			}

		case stateDoctypeName:
			switch {
			case isSpace(c):
				// Content is the name portion only; anything up to '>' is
				// discarded (public/system identifiers and the like).
				p.emitDoctype()
				for p.pos < len(p.data) && p.data[p.pos] != '>' {
					p.pos++
				}
			case c == '>':
				p.emitDoctype()
			default:
				p.content = append(p.content, c)
			}

		case stateRawtext:
			if c == '<' {
				p.state = stateRawtextLessThanSign
			} else {
				p.text = append(p.text, c)
			}

		case stateRawtextLessThanSign:
			if c == '/' {
				p.rawEnd = p.rawEnd[:0]
				p.state = stateRawtextEndTagOpen
			} else {
				p.text = append(p.text, '<')
				p.state = stateRawtext
				p.pos--
			}

		case stateRawtextEndTagOpen:
			if isAlpha(c) {
				p.rawEnd = append(p.rawEnd, c)
				p.state = stateRawtextEndTagName
			} else {
				p.text = append(p.text, '<', '/')
				p.state = stateRawtext
				p.pos--
			}

		case stateRawtextEndTagName:
			switch {
			case isAlpha(c) || isDigit(c):
				// Kept in original case: a mismatch replays these bytes as
				// literal raw text.
				p.rawEnd = append(p.rawEnd, c)
			case (isSpace(c) || c == '/' || c == '>') && foldEquals(p.rawEnd, p.rawTag):
				p.startTag(TagClose)
				for _, ec := range p.rawEnd {
					p.name = append(p.name, lowerByte(ec))
				}
				switch {
				case c == '>':
					p.emitTag()
				case c == '/':
					p.state = stateSelfClosing
				default:
					p.state = stateBeforeAttributeName
				}
			default:
				// Not the matching close tag; everything is literal text.
				p.text = append(p.text, '<', '/')
				p.text = append(p.text, p.rawEnd...)
				p.state = stateRawtext
				p.pos--
			}
		}
	}
	p.finish()
	return p.root
}

// reset prepares the parser for a fresh input; callbacks are kept.
func (p *Parser) reset() {
	p.state = stateData
	p.root = &Node{Kind: KindTag, TagKind: TagOpen}
	p.cursor = p.root
	p.pending = nil
	p.text = p.text[:0]
	p.name = p.name[:0]
	p.content = p.content[:0]
	p.attrName = p.attrName[:0]
	p.attrValue = p.attrValue[:0]
	p.rawEnd = p.rawEnd[:0]
	p.rawTag = ""
}

// finish flushes whatever construct was in flight at end of input and
// reports every element still on the open path, innermost first.
func (p *Parser) finish() {
	switch p.state {
	case stateTagOpen:
		p.text = append(p.text, '<')
	case stateEndTagOpen:
		p.text = append(p.text, '<', '/')
	case stateRawtextLessThanSign:
		p.text = append(p.text, '<')
	case stateRawtextEndTagOpen:
		p.text = append(p.text, '<', '/')
	case stateRawtextEndTagName:
		p.text = append(p.text, '<', '/')
		p.text = append(p.text, p.rawEnd...)
	case stateMarkupDecOpen:
		p.startComment()
		p.emitComment()
	case stateBogusComment, stateCommentStart, stateCommentStartDash,
		stateComment, stateCommentEndDash, stateCommentEnd:
		p.emitComment()
	case stateBeforeDoctypeName, stateDoctypeName:
		p.emitDoctype()
	}
	p.pending = nil
	p.flushText()
	for n := p.cursor; n != p.root; n = n.parent {
		p.fireError(ErrTagNotClosed, n)
	}
	p.data = nil
}

// peek returns the byte at offset ahead of the current position, or 0.
func (p *Parser) peek(ahead int) byte {
	if p.pos+ahead < len(p.data) {
		return p.data[p.pos+ahead]
	}
	return 0
}

// startTag begins a tag node. Committing to a non-text construct flushes
// the preceding text run, so a '<' that turns out to be literal stays part
// of one uninterrupted text node.
func (p *Parser) startTag(kind TagKind) {
	p.flushText()
	p.pending = &Node{Kind: KindTag, TagKind: kind}
	p.name = p.name[:0]
	p.attrName = p.attrName[:0]
	p.attrValue = p.attrValue[:0]
}

func (p *Parser) startComment() {
	p.flushText()
	p.pending = &Node{Kind: KindComment}
	p.content = p.content[:0]
}

func (p *Parser) startDoctype() {
	p.flushText()
	p.pending = &Node{Kind: KindDoctype}
}

// commitAttr adds the accumulated attribute to the pending tag. Values are
// stored entity-decoded; a duplicate attribute name keeps the first
// occurrence.
func (p *Parser) commitAttr() {
	if len(p.attrName) == 0 {
		p.attrValue = p.attrValue[:0]
		return
	}
	name := string(p.attrName)
	exists := false
	for _, a := range p.pending.Attr {
		if a.Name == name {
			exists = true
			break
		}
	}
	if !exists {
		p.pending.Attr = append(p.pending.Attr, Attribute{
			Name:  name,
			Value: html.UnescapeString(string(p.attrValue)),
		})
	}
	p.attrName = p.attrName[:0]
	p.attrValue = p.attrValue[:0]
}

// flushText emits the accumulated text run as a text node. Empty runs are
// suppressed.
func (p *Parser) flushText() {
	if len(p.text) == 0 {
		return
	}
	p.link(&Node{Kind: KindText, Content: string(p.text)})
	p.text = p.text[:0]
}

// emitTag finalizes the pending tag and applies the tree-construction rules:
// void and self-closing tags are appended as leaves, ordinary open tags
// become the new cursor, and close tags unwind the cursor.
func (p *Parser) emitTag() {
	n := p.pending
	p.pending = nil
	n.TagName = string(p.name)
	if n.TagKind == TagClose {
		p.closeTag(n.TagName)
		p.state = stateData
		return
	}
	a := atom.Lookup(p.name)
	if voidElements[a] {
		n.SelfClosing = true
		p.link(n)
		p.state = stateData
		return
	}
	p.link(n)
	if n.SelfClosing {
		p.state = stateData
		return
	}
	p.cursor = n
	if rawTextElements[a] {
		p.rawTag = n.TagName
		p.state = stateRawtext
		return
	}
	p.state = stateData
}

// closeTag resolves a close tag against the open-element path. The nearest
// ancestor with the same name is closed and the cursor moves to its parent;
// elements jumped over on the way are reported as not closed, innermost
// first. Without a matching ancestor the close tag has no effect.
func (p *Parser) closeTag(name string) {
	target := p.cursor
	for target != p.root && target.TagName != name {
		target = target.parent
	}
	if target == p.root {
		return
	}
	for n := p.cursor; n != target; n = n.parent {
		p.fireError(ErrTagNotClosed, n)
	}
	p.cursor = target.parent
}

func (p *Parser) emitComment() {
	n := p.pending
	p.pending = nil
	n.Content = string(p.content)
	p.content = p.content[:0]
	p.link(n)
	p.state = stateData
}

func (p *Parser) emitDoctype() {
	if p.pending == nil {
		p.startDoctype()
	}
	n := p.pending
	p.pending = nil
	n.Content = string(p.content)
	p.content = p.content[:0]
	p.link(n)
	p.state = stateData
}

// link splices a finalized node under the cursor and runs node callbacks.
func (p *Parser) link(n *Node) {
	n.parent = p.cursor
	p.cursor.children = append(p.cursor.children, n)
	for i := range p.nodeCallbacks {
		cb := &p.nodeCallbacks[i]
		if !cb.filtered || cb.sel.Matches(n) {
			cb.fn(n)
		}
	}
}

func (p *Parser) fireError(kind ErrorKind, n *Node) {
	for _, fn := range p.errCallbacks {
		fn(kind, n)
	}
}

// foldEquals reports whether b equals the lowercase ASCII string s,
// case-insensitively.
func foldEquals(b []byte, s string) bool {
	return len(b) == len(s) && matchFold(b, s)
}

// matchFold reports whether data begins with the ASCII string s,
// case-insensitively.
func matchFold(data []byte, s string) bool {
	if len(data) < len(s) {
		return false
	}
	for i := 0; i < len(s); i++ {
		if lowerByte(data[i]) != s[i] {
			return false
		}
	}
	return true
}

// Tokenization whitespace per the HTML standard.
func isSpace(c byte) bool {
	return c == 0x09 || c == 0x0A || c == 0x0C || c == 0x0D || c == 0x20
}

func isAlpha(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func isTagNameByte(c byte) bool {
	return isAlpha(c) || isDigit(c) || c == '-' || c == '_'
}

func lowerByte(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
