package build

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/wikify/internal/diag"
	"github.com/starford/wikify/internal/render"
	"github.com/starford/wikify/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newPipeline(t *testing.T, cfg render.Config, sink diag.Sink) *render.Pipeline {
	t.Helper()
	p, err := render.New(cfg, render.WithSink(sink))
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}
	return p
}

func readOut(t *testing.T, root, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, name))
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return string(data)
}

func TestRun_RendersAndCopies(t *testing.T) {
	_, src := testutil.TestSourceDir(t, map[string]string{
		"index.md":  "See [[Other Page]].\n",
		"other.MD":  "# Other\n",
		"image.png": "PNG",
	})
	out := testutil.TestOutputDir(t)

	b, err := New(Config{Workers: 2}, newPipeline(t, render.Config{}, diag.Discard), src, out, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sum, err := b.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Rendered != 2 || sum.Copied != 1 || sum.Failed != 0 {
		t.Errorf("summary = %+v", sum)
	}

	got := readOut(t, out.Root(), "index.html")
	if !strings.Contains(got, `<a href="./other_page.html">Other Page</a>`) {
		t.Errorf("index.html = %q", got)
	}
	if got := readOut(t, out.Root(), "other.html"); got != "<h1>Other</h1>\n" {
		t.Errorf("other.html = %q", got)
	}
	if got := readOut(t, out.Root(), "image.png"); got != "PNG" {
		t.Errorf("image.png = %q", got)
	}
}

func TestRun_OutputExtension(t *testing.T) {
	_, src := testutil.TestSourceDir(t, map[string]string{"a.md": "[[B]]\n"})
	out := testutil.TestOutputDir(t)

	p := newPipeline(t, render.Config{OutputExtension: "htm"}, diag.Discard)
	b, _ := New(Config{OutputExtension: "htm"}, p, src, out, WithLogger(quietLogger()))
	if _, err := b.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := readOut(t, out.Root(), "a.htm"); !strings.Contains(got, `href="./b.htm"`) {
		t.Errorf("a.htm = %q", got)
	}
}

func TestRun_ExtensionsFromPipeline(t *testing.T) {
	_, src := testutil.TestSourceDir(t, map[string]string{"a.txt": "[[B]]\n", "b.md": "copied\n"})
	out := testutil.TestOutputDir(t)

	p := newPipeline(t, render.Config{SourceExtension: "txt", OutputExtension: "xhtml"}, diag.Discard)
	b, _ := New(Config{}, p, src, out, WithLogger(quietLogger()))
	sum, err := b.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Rendered != 1 || sum.Copied != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if got := readOut(t, out.Root(), "a.xhtml"); !strings.Contains(got, `href="./b.xhtml"`) {
		t.Errorf("a.xhtml = %q", got)
	}
}

func TestRun_PageWrapping(t *testing.T) {
	_, src := testutil.TestSourceDir(t, map[string]string{
		"titled.md":   "# Hello <World>\n",
		"untitled.md": "text\n",
	})
	out := testutil.TestOutputDir(t)

	b, _ := New(Config{Page: true}, newPipeline(t, render.Config{}, diag.Discard), src, out, WithLogger(quietLogger()))
	if _, err := b.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := readOut(t, out.Root(), "titled.html"); !strings.Contains(got, "<title>Hello &lt;World&gt;</title>") {
		t.Errorf("titled.html = %q", got)
	}
	if got := readOut(t, out.Root(), "untitled.html"); !strings.Contains(got, "<title>untitled</title>") {
		t.Errorf("untitled.html = %q", got)
	}
}

func TestRun_FailureDoesNotAbort(t *testing.T) {
	dir, src := testutil.TestSourceDir(t, map[string]string{
		"good.md": "ok\n",
	})
	bad := filepath.Join(dir, "bad.md")
	if err := os.WriteFile(bad, []byte("x"), 0o000); err != nil {
		t.Fatal(err)
	}
	if f, err := os.Open(bad); err == nil {
		f.Close()
		t.Skip("running with permissions that ignore file modes")
	}
	out := testutil.TestOutputDir(t)

	b, _ := New(Config{}, newPipeline(t, render.Config{}, diag.Discard), src, out, WithLogger(quietLogger()))
	sum, err := b.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Rendered != 1 || sum.Failed != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if got := readOut(t, out.Root(), "good.html"); got != "<p>ok</p>\n" {
		t.Errorf("good.html = %q", got)
	}
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	dir, src := testutil.TestSourceDir(t, map[string]string{
		"a.md":  "[[Missing]]\n",
		"b.txt": "copy me",
	})
	sink := &diag.Collector{}
	p := newPipeline(t, render.Config{ValidationDir: dir}, sink)

	b, err := New(Config{DryRun: true}, p, src, nil, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sum, err := b.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Diagnostics != 1 || sink.Len() != 1 {
		t.Errorf("diagnostics = %d, sink = %v", sum.Diagnostics, sink.Messages())
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Errorf("dry run changed the input directory: %d entries", len(entries))
	}
}

func TestRun_RecordsIndexAndPrunes(t *testing.T) {
	dir, src := testutil.TestSourceDir(t, map[string]string{
		"a.md": "[[B]] and [[Gone]]\n",
		"b.md": "# Bee\n",
	})
	out := testutil.TestOutputDir(t)
	db := testutil.TestDB(t)

	build := func() *Summary {
		t.Helper()
		p := newPipeline(t, render.Config{ValidationDir: dir}, diag.Discard)
		b, _ := New(Config{}, p, src, out, WithIndex(db), WithLogger(quietLogger()))
		sum, err := b.Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		return sum
	}

	sum := build()
	if sum.Changed != 2 {
		t.Errorf("first build changed = %d, want 2", sum.Changed)
	}
	docs, _ := db.Documents()
	if len(docs) != 2 || docs[1].Title != "Bee" || docs[1].Output != "b.html" {
		t.Fatalf("documents = %+v", docs)
	}
	broken, _ := db.Broken()
	if len(broken) != 1 || broken[0].Source != "a.md" || broken[0].Reference != "[[Gone|Gone]]" {
		t.Fatalf("broken = %+v", broken)
	}

	if err := os.Remove(filepath.Join(dir, "b.md")); err != nil {
		t.Fatal(err)
	}
	sum = build()
	if sum.Changed != 0 {
		t.Errorf("second build changed = %d, want 0", sum.Changed)
	}
	paths, _ := db.AllPaths()
	if _, ok := paths["b.md"]; ok || len(paths) != 1 {
		t.Errorf("paths after prune = %v", paths)
	}
	broken, _ = db.Broken()
	if len(broken) != 2 {
		t.Errorf("broken after removing b.md = %+v", broken)
	}
}

func TestRun_ExcludedFilesNotCopied(t *testing.T) {
	dir, src := testutil.TestSourceDir(t, map[string]string{
		"a.md":         "a\n",
		"build.db":     "sqlite",
		"build.db-wal": "wal",
	})
	out := testutil.TestOutputDir(t)
	db := filepath.Join(dir, "build.db")

	b, _ := New(Config{Exclude: []string{db, db + "-wal"}}, newPipeline(t, render.Config{}, diag.Discard), src, out, WithLogger(quietLogger()))
	sum, err := b.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Rendered != 1 || sum.Copied != 0 {
		t.Errorf("summary = %+v", sum)
	}
	if _, err := os.Stat(filepath.Join(out.Root(), "build.db")); !os.IsNotExist(err) {
		t.Error("build.db must not be copied")
	}
}

func TestNew_RequiresOutput(t *testing.T) {
	_, src := testutil.TestSourceDir(t, nil)
	if _, err := New(Config{}, newPipeline(t, render.Config{}, diag.Discard), src, nil); err == nil {
		t.Error("expected error without output")
	}
}
