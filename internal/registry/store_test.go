package registry

import (
	"os"
	"path/filepath"
	"testing"

	"localassist/internal/catalog"
)

func testDescriptor() catalog.Descriptor {
	return catalog.Descriptor{
		Name:      "tiny",
		SizeBytes: 4,
		Category:  catalog.CategoryVision,
		Files:     []string{"tiny.gguf", "mmproj.gguf"},
	}
}

func TestCommitMarksInstalledOnlyWhenAllFilesPresent(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	d := testDescriptor()
	if s.Installed(d) {
		t.Fatalf("expected not installed initially")
	}
	if err := s.Prepare(d); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if err := os.WriteFile(s.PartialPath(d, "tiny.gguf"), []byte("w"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.Commit(d); err == nil {
		t.Fatalf("expected commit to fail with a missing file")
	}
	if s.Installed(d) {
		t.Fatalf("partial model must not be installed")
	}
	if err := os.WriteFile(s.PartialPath(d, "mmproj.gguf"), []byte("p"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.Commit(d); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if !s.Installed(d) {
		t.Fatalf("expected installed after commit")
	}
	if s.Path(d) != filepath.Join(s.Root(), "tiny", "tiny.gguf") {
		t.Fatalf("unexpected path %q", s.Path(d))
	}
}

func TestAbandonRemovesPartialsAndMarker(t *testing.T) {
	s, _ := NewStore(t.TempDir())
	d := testDescriptor()
	_ = s.Prepare(d)
	for _, f := range d.Files {
		_ = os.WriteFile(s.PartialPath(d, f), []byte("x"), 0o644)
	}
	if err := s.Abandon(d); err != nil {
		t.Fatalf("abandon: %v", err)
	}
	for _, f := range d.Files {
		if _, err := os.Stat(s.PartialPath(d, f)); !os.IsNotExist(err) {
			t.Fatalf("partial %s left behind", f)
		}
	}
	if s.Installed(d) {
		t.Fatalf("abandoned model reported installed")
	}
}

func TestScanListsInstalledCatalogModels(t *testing.T) {
	s, _ := NewStore(t.TempDir())
	c := catalog.Builtin()
	d := c.Default(catalog.CategoryAudio)
	_ = s.Prepare(d)
	_ = os.WriteFile(s.FilePath(d, d.Primary()), []byte("x"), 0o644)
	if err := s.Commit(d); err != nil {
		t.Fatalf("commit: %v", err)
	}
	// stray directory unknown to the catalog is ignored
	_ = os.MkdirAll(filepath.Join(s.Root(), "stray"), 0o755)
	names, err := s.Scan(c)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(names) != 1 || names[0] != d.Name {
		t.Fatalf("unexpected names: %v", names)
	}
}

func TestSafeNameStaysInsideRoot(t *testing.T) {
	s, _ := NewStore(t.TempDir())
	d := catalog.Descriptor{Name: "../../etc", Files: []string{"passwd"}}
	if filepath.Dir(s.Dir(d)) != s.Root() {
		t.Fatalf("dir escaped root: %s", s.Dir(d))
	}
}
