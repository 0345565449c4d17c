package wiki

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

func convert(t *testing.T, src string, exts ...goldmark.Extender) string {
	t.Helper()
	md := goldmark.New(goldmark.WithExtensions(exts...))
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	return buf.String()
}

// wikiLinks parses src and returns every WikiLink in document order.
func wikiLinks(t *testing.T, src string) []*WikiLink {
	t.Helper()
	md := goldmark.New(goldmark.WithExtensions(NewLinkExtension("html")))
	doc := md.Parser().Parse(text.NewReader([]byte(src)))
	var out []*WikiLink
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if l, ok := n.(*WikiLink); ok && entering {
			out = append(out, l)
		}
		return ast.WalkContinue, nil
	})
	return out
}

func TestLink_Render(t *testing.T) {
	cases := []struct {
		name, src, want string
	}{
		{"plain", "[[Hello World]]", "<p><a href=\"./hello_world.html\">Hello World</a></p>\n"},
		{"display and target", "[[The Page|Some's Title]]", "<p><a href=\"./somes_title.html\">The Page</a></p>\n"},
		{"empty display", "[[|x]]", "<p><a href=\"./x.html\"></a></p>\n"},
		{"empty inner", "[[]]", "<p><a href=\"./.html\"></a></p>\n"},
		{"trimmed", "[[  Spaced  |  Target Page  ]]", "<p><a href=\"./target_page.html\">Spaced</a></p>\n"},
		{"escaped display", "[[a < b|t]]", "<p><a href=\"./t.html\">a &lt; b</a></p>\n"},
		{"inline context", "see [[Home]] now", "<p>see <a href=\"./home.html\">Home</a> now</p>\n"},
		{"trailing bracket", "[[a]]]", "<p><a href=\"./a.html\">a</a>]</p>\n"},
		{"unterminated", "[[foo", "<p>[[foo</p>\n"},
		{"single close", "[[ ]", "<p>[[ ]</p>\n"},
		{"code span", "`[[x]]`", "<p><code>[[x]]</code></p>\n"},
		{"nested opener", "[[a [[b]] c]]", "<p><a href=\"./a_[[b.html\">a [[b</a> c]]</p>\n"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := convert(t, c.src, NewLinkExtension("html")); got != c.want {
				t.Errorf("got %q, want %q", got, c.want)
			}
		})
	}
}

func TestLink_OrdinaryLinkStillWorks(t *testing.T) {
	got := convert(t, "[text](page.html) and [[Wiki]]", NewLinkExtension("html"))
	want := "<p><a href=\"page.html\">text</a> and <a href=\"./wiki.html\">Wiki</a></p>\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLink_OutputExtension(t *testing.T) {
	got := convert(t, "[[Hello]]", NewLinkExtension("htm"))
	if got != "<p><a href=\"./hello.htm\">Hello</a></p>\n" {
		t.Errorf("got %q", got)
	}
	got = convert(t, "[[Hello]]", &LinkExtension{})
	if got != "<p><a href=\"./hello.html\">Hello</a></p>\n" {
		t.Errorf("default extension: got %q", got)
	}
}

func TestLinkParser_Fields(t *testing.T) {
	cases := []struct {
		src, display, target string
	}{
		{"[[Target]]", "Target", "Target"},
		{"[[ Shown | Hidden ]]", "Shown", "Hidden"},
		{"[[a|b|c]]", "a", "b|c"},
		{"[[|x]]", "", "x"},
		{"[[x|]]", "x", ""},
		{"[[]]", "", ""},
		{`[[a\|b]]`, "a", "b"},
	}
	for _, c := range cases {
		links := wikiLinks(t, c.src)
		if len(links) != 1 {
			t.Fatalf("%q: got %d links, want 1", c.src, len(links))
		}
		if string(links[0].Display) != c.display || string(links[0].Target) != c.target {
			t.Errorf("%q: got (%q, %q), want (%q, %q)",
				c.src, links[0].Display, links[0].Target, c.display, c.target)
		}
	}
}

func TestLinkParser_NoMatch(t *testing.T) {
	for _, src := range []string{"[[open", "[single]", "[[ ]", "[ [x]]", `\[[x]]`} {
		if links := wikiLinks(t, src); len(links) != 0 {
			t.Errorf("%q: expected no wiki link, got %d", src, len(links))
		}
	}
}

func TestLinkParser_ConsumedLength(t *testing.T) {
	// Everything after the first "]]" must survive as ordinary text.
	got := convert(t, "[[a]]b]]", NewLinkExtension("html"))
	if got != "<p><a href=\"./a.html\">a</a>b]]</p>\n" {
		t.Errorf("got %q", got)
	}
}

func TestLinkParser_AcrossLines(t *testing.T) {
	links := wikiLinks(t, "see [[Hello\nWorld]] now")
	if len(links) != 1 {
		t.Fatalf("got %d links, want 1", len(links))
	}
	if string(links[0].Target) != "Hello\nWorld" {
		t.Errorf("target = %q", links[0].Target)
	}
	if got := Canonicalise(string(links[0].Target), "html"); got != "./hello_world.html" {
		t.Errorf("href = %q", got)
	}
}

func TestLinkParser_ManyUnclosed(t *testing.T) {
	src := strings.Repeat("[[x\n", 20000)
	start := time.Now()
	links := wikiLinks(t, src)
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("parsing took %v", elapsed)
	}
	if len(links) != 0 {
		t.Errorf("got %d links, want 0", len(links))
	}
}

func TestLinkParser_UnclosedDoesNotLeakIntoNextBlock(t *testing.T) {
	links := wikiLinks(t, "[[open\nmore [[text\n\n[[Shut]]\n")
	if len(links) != 1 || string(links[0].Target) != "Shut" {
		t.Fatalf("links = %v", links)
	}
}

func TestLinkParser_EscapedSeparatorInTable(t *testing.T) {
	src := "| page |\n| --- |\n| [[Disp\\|Target]] |\n"
	got := convert(t, src, extension.Table, NewLinkExtension("html"))
	if !strings.Contains(got, `<td><a href="./target.html">Disp</a></td>`) {
		t.Errorf("got %q", got)
	}
}

func TestLinkRenderer_KeepsAttributes(t *testing.T) {
	md := goldmark.New(goldmark.WithExtensions(NewLinkExtension("html")))

	link := NewWikiLink([]byte("d"), []byte("T"))
	link.SetAttributeString("class", []byte("wiki"))
	link.SetAttributeString("href", []byte("ignored"))
	para := ast.NewParagraph()
	para.AppendChild(para, link)
	doc := ast.NewDocument()
	doc.AppendChild(doc, para)

	var buf bytes.Buffer
	if err := md.Renderer().Render(&buf, nil, doc); err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := "<p><a class=\"wiki\" href=\"./t.html\">d</a></p>\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestWikiLink_String(t *testing.T) {
	if got := NewWikiLink([]byte("Shown"), []byte("Target")).String(); got != "[[Shown|Target]]" {
		t.Errorf("String = %q", got)
	}
}
