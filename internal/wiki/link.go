package wiki

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Link parsing must win over goldmark's LinkParser (priority 200), which
// also triggers on '['.
const (
	priorityLinkParser   = 199
	priorityLinkRenderer = 500
)

var (
	linkOpen  = []byte("[[")
	linkClose = []byte("]]")
	linkSep   = []byte("|")
	hrefAttr  = []byte("href")
)

type linkParser struct{}

var defaultLinkParser = &linkParser{}

// NewLinkParser returns the inline parser for [[display|target]] links.
func NewLinkParser() parser.InlineParser {
	return defaultLinkParser
}

func (p *linkParser) Trigger() []byte {
	return []byte{'['}
}

// unclosedSpan records source offsets [from, to) of a block from which no
// "]]" follows. Any "[[" starting inside it cannot match.
type unclosedSpan struct {
	from, to int
}

var unclosedKey = parser.NewContextKey()

// Parse matches "[[" followed, possibly on a later line of the same
// paragraph, by "]]". The first "]]" closes the link. On no match the
// caller restores the reader position.
func (p *linkParser) Parse(_ ast.Node, block text.Reader, pc parser.Context) ast.Node {
	line, segment := block.PeekLine()
	if !bytes.HasPrefix(line, linkOpen) {
		return nil
	}
	if span, ok := pc.Get(unclosedKey).(unclosedSpan); ok && segment.Start >= span.from && segment.Start < span.to {
		return nil
	}

	lines, end, stop := findClose(block, line)
	if end < 0 {
		pc.Set(unclosedKey, unclosedSpan{from: segment.Start, to: stop})
		return nil
	}

	var inner []byte
	if lines == 0 {
		inner = append(inner, line[len(linkOpen):end]...)
	} else {
		inner = append(inner, line[len(linkOpen):]...)
		for i := 1; i <= lines; i++ {
			block.AdvanceLine()
			l, _ := block.PeekLine()
			if i == lines {
				l = l[:end]
			}
			inner = append(inner, l...)
		}
	}
	block.Advance(end + len(linkClose))

	display, target := splitLink(inner)
	return NewWikiLink(bytes.TrimSpace(display), bytes.TrimSpace(target))
}

// findClose looks for the first "]]" after the opening "[[" of line without
// moving the reader. It returns how many lines past the current one the
// match is on and its offset within that line, or end < 0 together with the
// source offset where the block ends.
func findClose(block text.Reader, line []byte) (lines, end, stop int) {
	savedLine, savedPos := block.Position()
	defer block.SetPosition(savedLine, savedPos)

	_, segment := block.PeekLine()
	stop = segment.Stop
	rest, skip := line[len(linkOpen):], len(linkOpen)
	for {
		if i := bytes.Index(rest, linkClose); i >= 0 {
			return lines, skip + i, stop
		}
		block.AdvanceLine()
		rest, segment = block.PeekLine()
		if rest == nil {
			return lines, -1, stop
		}
		stop = segment.Stop
		lines++
		skip = 0
	}
}

// splitLink splits inner on the first "|". Inside table cells the
// separator is written "\|" so the table does not split the cell there; the
// backslash is dropped.
func splitLink(inner []byte) (display, target []byte) {
	i := bytes.Index(inner, linkSep)
	if i < 0 {
		return inner, inner
	}
	display, target = inner[:i], inner[i+len(linkSep):]
	if i > 0 && inner[i-1] == '\\' {
		display = inner[:i-1]
	}
	return display, target
}

type linkRenderer struct {
	ext string
}

// NewLinkRenderer returns a renderer that writes WikiLink nodes as anchors
// pointing at the canonicalised target with extension ext.
func NewLinkRenderer(ext string) renderer.NodeRenderer {
	return &linkRenderer{ext: ext}
}

func (r *linkRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindWikiLink, r.renderLink)
}

func (r *linkRenderer) renderLink(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*WikiLink)

	_, _ = w.WriteString("<a")
	for _, attr := range n.Attributes() {
		if bytes.Equal(attr.Name, hrefAttr) {
			continue
		}
		_ = w.WriteByte(' ')
		_, _ = w.Write(attr.Name)
		_, _ = w.WriteString(`="`)
		_, _ = w.Write(util.EscapeHTML(attributeValue(attr.Value)))
		_ = w.WriteByte('"')
	}
	_, _ = w.WriteString(` href="`)
	_, _ = w.Write(util.EscapeHTML([]byte(Canonicalise(string(n.Target), r.ext))))
	_, _ = w.WriteString(`">`)
	_, _ = w.Write(util.EscapeHTML(n.Display))
	_, _ = w.WriteString("</a>")
	return ast.WalkSkipChildren, nil
}

func attributeValue(v any) []byte {
	switch typed := v.(type) {
	case []byte:
		return typed
	case string:
		return []byte(typed)
	case nil:
		return nil
	}
	return []byte(fmt.Sprint(v))
}

// LinkExtension registers the wiki-link parser and renderer.
type LinkExtension struct {
	// OutputExtension is appended to canonicalised targets, "html" when empty.
	OutputExtension string
}

// NewLinkExtension returns a LinkExtension producing hrefs ending in ".ext".
func NewLinkExtension(ext string) *LinkExtension {
	return &LinkExtension{OutputExtension: ext}
}

// Extend implements goldmark.Extender.
func (e *LinkExtension) Extend(m goldmark.Markdown) {
	ext := e.OutputExtension
	if ext == "" {
		ext = DefaultOutputExtension
	}
	m.Parser().AddOptions(parser.WithInlineParsers(
		util.Prioritized(NewLinkParser(), priorityLinkParser),
	))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(NewLinkRenderer(ext), priorityLinkRenderer),
	))
}

// Default file extensions.
const (
	DefaultSourceExtension = "md"
	DefaultOutputExtension = "html"
)
