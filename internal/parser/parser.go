// Package parser splits optional frontmatter from Markdown sources.
package parser

import (
	"bytes"
	"strings"

	"github.com/adrg/frontmatter"
)

// Result holds the output of parsing a Markdown source.
type Result struct {
	Frontmatter map[string]any
	Body        []byte
	Title       string
}

// Parse separates leading frontmatter (YAML between "---" lines, TOML
// between "+++" lines, or JSON) from the Markdown body. Without frontmatter
// the whole input is body. Frontmatter that fails to decode is treated as
// body as well; it never fails the conversion.
func Parse(data []byte) *Result {
	var fm map[string]any
	body, err := frontmatter.Parse(bytes.NewReader(data), &fm)
	if err != nil {
		return &Result{Body: data}
	}
	if len(fm) == 0 {
		fm = nil
	}
	return &Result{
		Frontmatter: fm,
		Body:        body,
		Title:       stringField(fm, "title"),
	}
}

func stringField(fm map[string]any, key string) string {
	if fm == nil {
		return ""
	}
	s, _ := fm[key].(string)
	return strings.TrimSpace(s)
}
