package wiki

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// MarkerChar is the only character allowed on a safe-marker line.
const MarkerChar = '%'

const (
	priorityMarkerParser   = 100
	priorityMarkerRenderer = 500
	prioritySafeFilter     = 100
)

type markerParser struct{}

var defaultMarkerParser = &markerParser{}

// NewMarkerParser returns the block parser for safe-marker lines.
func NewMarkerParser() parser.BlockParser {
	return defaultMarkerParser
}

func (p *markerParser) Trigger() []byte {
	return []byte{MarkerChar}
}

// Open only accepts lines that are direct children of the document.
// Indentation above three columns is rejected by CanAcceptIndentedLine.
func (p *markerParser) Open(parent ast.Node, reader text.Reader, _ parser.Context) (ast.Node, parser.State) {
	if parent.Kind() != ast.KindDocument {
		return nil, parser.NoChildren
	}
	line, segment := reader.PeekLine()
	if !isMarkerLine(line) {
		return nil, parser.NoChildren
	}
	reader.Advance(segment.Len() - 1)
	return NewSafeMarker(), parser.NoChildren
}

func (p *markerParser) Continue(_ ast.Node, _ text.Reader, _ parser.Context) parser.State {
	return parser.Close
}

func (p *markerParser) Close(_ ast.Node, _ text.Reader, _ parser.Context) {}

func (p *markerParser) CanInterruptParagraph() bool {
	return true
}

func (p *markerParser) CanAcceptIndentedLine() bool {
	return false
}

func isMarkerLine(line []byte) bool {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return false
	}
	for _, c := range trimmed {
		if c != MarkerChar {
			return false
		}
	}
	return true
}

// safeFilter removes safe markers from the top level of the document and,
// when filterUnsafe is set, every block outside a marker pair. Visibility
// starts hidden in that mode and flips at each marker; an unmatched final
// marker leaves the rest of the document visible. A document without any
// marker is left untouched in both modes.
type safeFilter struct {
	filterUnsafe bool
}

// NewSafeFilter returns the AST transformer that applies safe markers.
func NewSafeFilter(filterUnsafe bool) parser.ASTTransformer {
	return &safeFilter{filterUnsafe: filterUnsafe}
}

func (f *safeFilter) Transform(doc *ast.Document, _ text.Reader, _ parser.Context) {
	if !hasMarker(doc) {
		return
	}
	visible := !f.filterUnsafe

	var drop []ast.Node
	for child := doc.FirstChild(); child != nil; child = child.NextSibling() {
		if child.Kind() == KindSafeMarker {
			if f.filterUnsafe {
				visible = !visible
			}
			drop = append(drop, child)
			continue
		}
		if !visible {
			drop = append(drop, child)
		}
	}

	for i := len(drop) - 1; i >= 0; i-- {
		doc.RemoveChild(doc, drop[i])
	}
}

func hasMarker(doc *ast.Document) bool {
	for child := doc.FirstChild(); child != nil; child = child.NextSibling() {
		if child.Kind() == KindSafeMarker {
			return true
		}
	}
	return false
}

type markerRenderer struct{}

func (markerRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindSafeMarker, renderMarker)
}

func renderMarker(util.BufWriter, []byte, ast.Node, bool) (ast.WalkStatus, error) {
	panic("wiki: unfiltered safe marker")
}

// SafeExtension registers the safe-marker parser and the filter pass.
type SafeExtension struct {
	// FilterUnsafe drops every top-level block outside %%% pairs. When
	// false the markers themselves are still erased.
	FilterUnsafe bool
}

// NewSafeExtension returns a SafeExtension.
func NewSafeExtension(filterUnsafe bool) *SafeExtension {
	return &SafeExtension{FilterUnsafe: filterUnsafe}
}

// Extend implements goldmark.Extender.
func (e *SafeExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithBlockParsers(util.Prioritized(NewMarkerParser(), priorityMarkerParser)),
		parser.WithASTTransformers(util.Prioritized(NewSafeFilter(e.FilterUnsafe), prioritySafeFilter)),
	)
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(markerRenderer{}, priorityMarkerRenderer),
	))
}
