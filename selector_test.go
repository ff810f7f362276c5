package htmldom_test

import (
	"testing"

	"htmldom"
)

const selectorFixture = `
<div id="main" class="outer box">
	<p class="intro">first</p>
	<p>second</p>
	<span><a href="/home" rel="nofollow">home</a></span>
</div>
<div class="footer"><a href="/about">about</a></div>
`

func TestSelect(t *testing.T) {
	root := htmldom.ParseString(selectorFixture)
	tests := []struct {
		expr string
		want string // ToText of the first match; "" means no match expected
	}{
		{"p", "first"},
		{"#main", "first second home"},
		{".box", "first second home"},
		{"div.outer.box", "first second home"},
		{"div.outer.missing", ""},
		{"p.intro", "first"},
		{"p:1", "first"},
		{"p:2", "second"},
		{"p:0", "first"},
		{"p:3", ""},
		{"div p", "first"},
		{"div span a", "home"},
		{"span div a", ""},
		{"div.footer a", "about"},
		{"[href]", "home"},
		{"[rel]", "home"},
		{"a[href=/about]", "about"},
		{`a[href="/home"]`, "home"},
		{`a[href='/home']`, "home"},
		{"a[href^=/a]", "about"},
		{"a[href$=ome]", "home"},
		{"a[href*=bou]", "about"},
		{"a[href=nope]", ""},
		{"em, div.footer a", "about"},
		{"nosuch", ""},
		{"", ""},
		{"p >", ""},
		{"[unterminated", ""},
		{"div:", ""},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got := root.Select(tt.expr)
			if tt.want == "" {
				if got.Kind != htmldom.KindNone {
					t.Fatalf("Select(%q) matched %s, want none", tt.expr, got.TagName)
				}
				return
			}
			if got.Kind == htmldom.KindNone {
				t.Fatalf("Select(%q) found nothing", tt.expr)
			}
			if text := got.ToText(); text != tt.want {
				t.Errorf("Select(%q).ToText() = %q, want %q", tt.expr, text, tt.want)
			}
		})
	}
}

func TestSelectAll(t *testing.T) {
	root := htmldom.ParseString(selectorFixture)
	tests := []struct {
		expr string
		want int
	}{
		{"p", 2},
		{"a", 2},
		{"div", 2},
		{"div a", 2},
		{"p.intro", 1},
		{"p, a", 4},
		{"nosuch", 0},
	}
	for _, tt := range tests {
		if got := len(root.SelectAll(tt.expr)); got != tt.want {
			t.Errorf("SelectAll(%q) returned %d matches, want %d", tt.expr, got, tt.want)
		}
	}
}

// Disjunction: a node matches "A, B" exactly when it matches A or B.
func TestSelectorDisjunction(t *testing.T) {
	root := htmldom.ParseString(selectorFixture)
	a := htmldom.CompileSelector("p.intro")
	b := htmldom.CompileSelector(".footer a")
	both := htmldom.CompileSelector("p.intro, .footer a")
	root.Walk(func(n *htmldom.Node) bool {
		union := a.Matches(n) || b.Matches(n)
		if got := both.Matches(n); got != union {
			t.Errorf("node <%s>: disjunction=%v, union=%v", n.TagName, got, union)
		}
		return true
	})
}

func TestSelectorMultiClassAnd(t *testing.T) {
	root := htmldom.ParseString(`<div><a class='x y'>k</a><a class='x'>m</a></div>`)
	if got := root.Select("div a.x.y").ToText(); got != "k" {
		t.Errorf("multi-class AND selected %q, want %q", got, "k")
	}
	if got := len(root.SelectAll("a.x")); got != 2 {
		t.Errorf("single class matched %d nodes, want 2", got)
	}
}

func TestSelectorSiblingIndex(t *testing.T) {
	root := htmldom.ParseString("<ul><li>1</li><li>2</li><li>3</li></ul>")
	if got := root.Select("ul li:2").ToText(); got != "2" {
		t.Errorf("li:2 selected %q, want %q", got, "2")
	}
	// Index counts same-tag siblings only.
	mixed := htmldom.ParseString("<div><p>a</p><span>s</span><p>b</p></div>")
	if got := mixed.Select("p:2").ToText(); got != "b" {
		t.Errorf("p:2 selected %q, want %q", got, "b")
	}
}

func TestSelectorAncestorMonotonicity(t *testing.T) {
	root := htmldom.ParseString(`<div id="o"><div id="i"><a id="t">x</a></div></div>`)
	if got := root.Select("div div a"); got.GetAttr("id") != "t" {
		t.Errorf("div div a selected %q", got.GetAttr("id"))
	}
	single := htmldom.ParseString(`<div><a id="u">y</a></div>`)
	if got := single.Select("div div a"); got.Kind != htmldom.KindNone {
		t.Error("div div a matched with only one div ancestor")
	}
	// Ancestor requirements are strict: a node is not its own ancestor.
	if got := single.Select("a a"); got.Kind != htmldom.KindNone {
		t.Error("a a matched a node against itself")
	}
}

func TestSelectorAttributePresence(t *testing.T) {
	root := htmldom.ParseString(`<p><input disabled><input value="v"></p>`)
	if got := len(root.SelectAll("[disabled]")); got != 1 {
		t.Errorf("[disabled] matched %d nodes, want 1", got)
	}
	if got := root.Select("input[disabled=]"); got.Kind == htmldom.KindNone {
		t.Error("[disabled=] did not match an empty value")
	}
}

func TestCompileSelector(t *testing.T) {
	valid := []string{"p", "a.x.y", "#id", "div p span", "a, b", "[k]", "a[k*=v]", "li:2"}
	for _, expr := range valid {
		if htmldom.CompileSelector(expr).Empty() {
			t.Errorf("CompileSelector(%q) unexpectedly empty", expr)
		}
	}
	invalid := []string{"", "   ", "p >", "p + q", "[", "[a=", `[a="x]`, ":", "a:", ":x", "a:1x"}
	for _, expr := range invalid {
		if !htmldom.CompileSelector(expr).Empty() {
			t.Errorf("CompileSelector(%q) unexpectedly compiled", expr)
		}
	}
}

func TestSelectReturnsFirstInDocumentOrder(t *testing.T) {
	root := htmldom.ParseString("<div><b>1</b></div><b>2</b>")
	if got := root.Select("b").ToText(); got != "1" {
		t.Errorf("Select returned %q, want the first match %q", got, "1")
	}
	// Select is scoped to the receiver's subtree.
	if got := root.At(1).Select("b").ToText(); got != "2" {
		t.Errorf("subtree Select returned %q, want %q", got, "2")
	}
}
