package index

import (
	"os"
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "wikify-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents`).Scan(&count); err != nil {
		t.Fatalf("documents table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM links`).Scan(&count); err != nil {
		t.Fatalf("links table missing: %v", err)
	}
}

func TestRecordAndGetChecksum(t *testing.T) {
	db := testDB(t)
	doc := DocumentRow{Path: "hello.md", Output: "hello.html", Title: "Hello", Checksum: "abc123"}
	if err := db.RecordDocument(doc, []LinkRow{{Reference: "[[Other]]", ResolvedPath: "./other.md", Kind: "wiki", OK: true}}); err != nil {
		t.Fatalf("RecordDocument: %v", err)
	}
	cs, err := db.GetChecksum("hello.md")
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}
}

func TestBroken(t *testing.T) {
	db := testDB(t)
	_ = db.RecordDocument(DocumentRow{Path: "b.md", Checksum: "1"}, []LinkRow{
		{Reference: "[[Missing]]", ResolvedPath: "./missing.md", Kind: "wiki"},
		{Reference: "[[Here]]", ResolvedPath: "./here.md", Kind: "wiki", OK: true},
	})
	_ = db.RecordDocument(DocumentRow{Path: "a.md", Checksum: "2"}, []LinkRow{
		{Reference: "img.png", ResolvedPath: "img.png", Kind: "link"},
	})

	broken, err := db.Broken()
	if err != nil {
		t.Fatalf("Broken: %v", err)
	}
	if len(broken) != 2 {
		t.Fatalf("expected 2 broken links, got %d", len(broken))
	}
	if broken[0].Source != "a.md" || broken[0].Kind != "link" {
		t.Errorf("broken[0] = %+v", broken[0])
	}
	if broken[1].Source != "b.md" || broken[1].Reference != "[[Missing]]" || broken[1].OK {
		t.Errorf("broken[1] = %+v", broken[1])
	}
}

func TestDeleteDocument(t *testing.T) {
	db := testDB(t)
	_ = db.RecordDocument(DocumentRow{Path: "del.md", Checksum: "x"}, []LinkRow{{Reference: "[[T]]", ResolvedPath: "./t.md", Kind: "wiki"}})

	if err := db.DeleteDocument("del.md"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	cs, _ := db.GetChecksum("del.md")
	if cs != "" {
		t.Errorf("deleted document still has checksum %q", cs)
	}
	broken, _ := db.Broken()
	if len(broken) != 0 {
		t.Errorf("expected no links after delete, got %d", len(broken))
	}
}

func TestRecordReplacesLinks(t *testing.T) {
	db := testDB(t)
	_ = db.RecordDocument(DocumentRow{Path: "up.md", Title: "Old", Checksum: "1"}, []LinkRow{{Reference: "[[X]]", ResolvedPath: "./x.md", Kind: "wiki"}})
	_ = db.RecordDocument(DocumentRow{Path: "up.md", Title: "New", Checksum: "2"}, []LinkRow{{Reference: "[[Y]]", ResolvedPath: "./y.md", Kind: "wiki"}})

	cs, _ := db.GetChecksum("up.md")
	if cs != "2" {
		t.Errorf("checksum = %q, want %q", cs, "2")
	}
	broken, _ := db.Broken()
	if len(broken) != 1 || broken[0].Reference != "[[Y]]" {
		t.Errorf("broken = %+v, want only [[Y]]", broken)
	}
	docs, _ := db.Documents()
	if len(docs) != 1 || docs[0].Title != "New" {
		t.Errorf("documents = %+v", docs)
	}
}

func TestAllPathsAndDocuments(t *testing.T) {
	db := testDB(t)
	_ = db.RecordDocument(DocumentRow{Path: "z.md", Output: "z.html"}, nil)
	_ = db.RecordDocument(DocumentRow{Path: "a.md", Output: "a.html"}, nil)

	paths, err := db.AllPaths()
	if err != nil {
		t.Fatalf("AllPaths: %v", err)
	}
	if _, ok := paths["z.md"]; !ok || len(paths) != 2 {
		t.Errorf("paths = %v", paths)
	}
	docs, err := db.Documents()
	if err != nil {
		t.Fatalf("Documents: %v", err)
	}
	if len(docs) != 2 || docs[0].Path != "a.md" || docs[1].Output != "z.html" {
		t.Errorf("documents = %+v", docs)
	}
	if docs[0].BuiltAt.IsZero() {
		t.Error("built_at not set")
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestFiles(t *testing.T) {
	got := Files("out/build.db")
	want := []string{"out/build.db", "out/build.db-wal", "out/build.db-shm", "out/build.db-journal"}
	if len(got) != len(want) {
		t.Fatalf("Files = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Files[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
