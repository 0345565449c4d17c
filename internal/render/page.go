package render

import (
	"bytes"
	"fmt"
	"html/template"
)

const pageHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
{{.Body}}</body>
</html>
`

var pageTemplate = template.Must(template.New("page").Parse(pageHTML))

// WrapPage embeds a rendered fragment in a minimal HTML5 document.
func WrapPage(title string, body []byte) ([]byte, error) {
	var buf bytes.Buffer
	err := pageTemplate.Execute(&buf, struct {
		Title string
		Body  template.HTML
	}{title, template.HTML(body)})
	if err != nil {
		return nil, fmt.Errorf("render: page: %w", err)
	}
	return buf.Bytes(), nil
}
