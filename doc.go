// Package htmldom parses HTML source text into a navigable node tree,
// evaluates compact CSS-like selector expressions over that tree, and
// serializes subtrees back to HTML markup or readable text.
//
// The parser is a byte-driven state machine modeled on the HTML standard's
// tokenization states. It tolerates malformed input: bogus comments,
// unmatched close tags, stray '<' characters and unterminated attributes are
// all recovered, and a parse always returns a root node. The only condition
// reported to the caller is an element that never received its close tag
// (reported when a close tag for an enclosing element unwinds past it, or at
// end of input), delivered through the parser's error callback.
//
// Basic usage:
//
//	root := htmldom.ParseString(`<div><a class="x y">k</a></div>`)
//	link := root.Select("div a.x.y")
//	fmt.Println(link.ToText()) // "k"
//
// Selectors support tag names, #id, .class (multiple classes are ANDed),
// [attr] with =, *=, ^= and $= operators, a :n same-tag sibling index, the
// descendant combinator (whitespace) and disjunction (comma).
package htmldom
