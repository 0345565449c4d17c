package wiki

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/starford/wikify/internal/diag"
)

// Runs after the safe filter so hidden blocks are not checked.
const priorityValidator = 200

// RefKind distinguishes the two kinds of checked references.
type RefKind string

// Reference kinds.
const (
	RefWikiLink RefKind = "wiki"
	RefLink     RefKind = "link"
)

// Reference is one link checked by the validator.
type Reference struct {
	Kind RefKind
	// Text is the reference as written: "[[display|target]]" or the link URL.
	Text string
	// Name is the basename looked up in the FileSet.
	Name string
	// Path is Name joined to the validated directory.
	Path     string
	Resolved bool
}

// Diagnostic returns the message reported for an unresolved reference.
func (r Reference) Diagnostic() string {
	if r.Kind == RefWikiLink {
		return fmt.Sprintf("'%s' is not a valid wiki link: '%s' cannot be resolved", r.Text, r.Path)
	}
	return fmt.Sprintf("linked resource '%s' does not exist", r.Text)
}

var referencesKey = parser.NewContextKey()

// References returns the references checked while parsing with pc, in
// document order. It is empty when validation is not enabled.
func References(pc parser.Context) []Reference {
	refs, _ := pc.Get(referencesKey).([]Reference)
	return refs
}

type linkValidator struct {
	files     *FileSet
	dir       string
	sourceExt string
	sink      diag.Sink
}

func (v *linkValidator) Transform(doc *ast.Document, _ text.Reader, pc parser.Context) {
	var refs []Reference
	_ = ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		var ref Reference
		switch n := node.(type) {
		case *WikiLink:
			ref = v.check(RefWikiLink, n.String(), Basename(string(n.Target), v.sourceExt))
		case *ast.Link:
			dest := string(n.Destination)
			name, ok := localName(dest)
			if !ok {
				return ast.WalkContinue, nil
			}
			ref = v.check(RefLink, dest, name)
		default:
			return ast.WalkContinue, nil
		}
		if !ref.Resolved {
			v.sink.Report(ref.Diagnostic())
		}
		refs = append(refs, ref)
		return ast.WalkContinue, nil
	})
	pc.Set(referencesKey, refs)
}

func (v *linkValidator) check(kind RefKind, written, name string) Reference {
	return Reference{
		Kind:     kind,
		Text:     written,
		Name:     name,
		Path:     filepath.Join(v.dir, name),
		Resolved: v.files.Contains(name),
	}
}

// localName returns dest when it is a same-directory reference, that is
// when it contains no "/". The destination is looked up as written.
func localName(dest string) (string, bool) {
	if strings.Contains(dest, "/") {
		return "", false
	}
	return dest, true
}

// ValidateExtension registers the link validator.
type ValidateExtension struct {
	Files *FileSet
	// Dir is the directory Files was listed from; it prefixes reported paths.
	Dir string
	// SourceExtension is the extension wiki targets are resolved with.
	SourceExtension string
	Sink            diag.Sink
}

// NewValidateExtension returns a ValidateExtension reporting to sink.
func NewValidateExtension(files *FileSet, dir, sourceExt string, sink diag.Sink) *ValidateExtension {
	return &ValidateExtension{Files: files, Dir: dir, SourceExtension: sourceExt, Sink: sink}
}

// Extend implements goldmark.Extender.
func (e *ValidateExtension) Extend(m goldmark.Markdown) {
	v := &linkValidator{
		files:     e.Files,
		dir:       e.Dir,
		sourceExt: e.SourceExtension,
		sink:      e.Sink,
	}
	if v.files == nil {
		v.files = NewFileSet()
	}
	if v.sourceExt == "" {
		v.sourceExt = DefaultSourceExtension
	}
	if v.sink == nil {
		v.sink = diag.Discard
	}
	m.Parser().AddOptions(parser.WithASTTransformers(util.Prioritized(v, priorityValidator)))
}
