package wiki

import (
	"fmt"

	"github.com/yuin/goldmark/ast"
)

// KindWikiLink is the ast.NodeKind of WikiLink.
var KindWikiLink = ast.NewNodeKind("WikiLink")

// WikiLink is an inline [[display|target]] reference. Without a "|" both
// fields hold the same text.
type WikiLink struct {
	ast.BaseInline

	// Display is the text shown to the reader. It may be empty.
	Display []byte
	// Target is the raw wiki target, before canonicalisation.
	Target []byte
}

// NewWikiLink returns a WikiLink with the given display text and target.
func NewWikiLink(display, target []byte) *WikiLink {
	return &WikiLink{Display: display, Target: target}
}

// Kind implements ast.Node.
func (n *WikiLink) Kind() ast.NodeKind { return KindWikiLink }

// Text returns the display text so that headings and titles built from
// node text keep the link label.
func (n *WikiLink) Text(_ []byte) []byte { return n.Display }

// Dump implements ast.Node.
func (n *WikiLink) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"Display": string(n.Display),
		"Target":  string(n.Target),
	}, nil)
}

// String returns the link in its explicit [[display|target]] form.
func (n *WikiLink) String() string {
	return fmt.Sprintf("[[%s|%s]]", n.Display, n.Target)
}

// KindSafeMarker is the ast.NodeKind of SafeMarker.
var KindSafeMarker = ast.NewNodeKind("SafeMarker")

// SafeMarker is a top-level line made only of MarkerChar. Markers are
// removed by the filter pass and must never reach the renderer.
type SafeMarker struct {
	ast.BaseBlock
}

// NewSafeMarker returns a new SafeMarker.
func NewSafeMarker() *SafeMarker {
	return &SafeMarker{}
}

// Kind implements ast.Node.
func (n *SafeMarker) Kind() ast.NodeKind { return KindSafeMarker }

// Dump implements ast.Node.
func (n *SafeMarker) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, nil, nil)
}
