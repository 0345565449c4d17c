// Package diag carries advisory, line-oriented diagnostics produced while
// rendering documents. Diagnostics are not log records: they are meant for
// the author of the documents and are printed red when the destination is a
// terminal.
package diag

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Sink receives diagnostics.
type Sink interface {
	Report(msg string)
}

// Writer writes one diagnostic per line to an io.Writer.
// It is safe for concurrent use.
type Writer struct {
	mu    sync.Mutex
	w     io.Writer
	style lipgloss.Style
}

// NewWriter returns a Writer for w. Colour is only emitted when w is a
// terminal; the profile is detected by lipgloss.
func NewWriter(w io.Writer) *Writer {
	r := lipgloss.NewRenderer(w)
	return &Writer{
		w: w,
		style: r.NewStyle().
			Foreground(lipgloss.Color("1")).
			TabWidth(lipgloss.NoTabConversion),
	}
}

// Stderr returns a Writer for the process standard error stream.
func Stderr() *Writer {
	return NewWriter(os.Stderr)
}

// Report writes msg on a single line.
func (d *Writer) Report(msg string) {
	msg = strings.ReplaceAll(msg, "\r", "")
	msg = strings.ReplaceAll(msg, "\n", " ")

	d.mu.Lock()
	defer d.mu.Unlock()
	_, _ = fmt.Fprintln(d.w, d.style.Render(msg))
}

// Collector keeps diagnostics in memory.
type Collector struct {
	mu   sync.Mutex
	msgs []string
}

// Report implements Sink.
func (c *Collector) Report(msg string) {
	c.mu.Lock()
	c.msgs = append(c.msgs, msg)
	c.mu.Unlock()
}

// Messages returns a copy of everything reported so far.
func (c *Collector) Messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.msgs))
	copy(out, c.msgs)
	return out
}

// Len returns the number of collected diagnostics.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

type discard struct{}

func (discard) Report(string) {}

// Discard drops every diagnostic.
var Discard Sink = discard{}
