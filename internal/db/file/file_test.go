package file

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "current-model.json")

	if err := WriteFileAtomic(path, []byte("v1"), 0o644); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("v2"), 0o644); err != nil {
		t.Fatalf("second write: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "v2" {
		t.Errorf("content = %q, want v2", got)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected only the target file, found %d entries", len(entries))
	}
}

func TestWriteAtomic_FailureKeepsOldFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pointer.json")
	if err := WriteFileAtomic(path, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	err := WriteAtomic(path, 0o644, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected write error, got %v", err)
	}

	got, _ := os.ReadFile(path)
	if string(got) != "old" {
		t.Errorf("content = %q, want old", got)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temp file left behind: %d entries", len(entries))
	}
}

func TestWriteAtomic_MissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "x.json")
	if err := WriteFileAtomic(path, []byte("x"), 0o644); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()

	p, err := UniquePath(dir, "tfidf-rf-2025-01-02-03-04-05", ".model")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(p) != "tfidf-rf-2025-01-02-03-04-05.model" {
		t.Errorf("first = %s", p)
	}
	_ = os.WriteFile(p, nil, 0o644)

	p, _ = UniquePath(dir, "tfidf-rf-2025-01-02-03-04-05", ".model")
	if filepath.Base(p) != "tfidf-rf-2025-01-02-03-04-05-1.model" {
		t.Errorf("second = %s", p)
	}
	_ = os.WriteFile(p, nil, 0o644)

	p, _ = UniquePath(dir, "tfidf-rf-2025-01-02-03-04-05", ".model")
	if filepath.Base(p) != "tfidf-rf-2025-01-02-03-04-05-2.model" {
		t.Errorf("third = %s", p)
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	ok, err := Exists(dir)
	if err != nil || !ok {
		t.Errorf("Exists(dir) = %v, %v", ok, err)
	}
	ok, err = Exists(filepath.Join(dir, "missing"))
	if err != nil || ok {
		t.Errorf("Exists(missing) = %v, %v", ok, err)
	}
}

func TestCopy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.model")
	dst := filepath.Join(dir, "b.model")
	_ = os.WriteFile(src, []byte("RLVM payload"), 0o644)

	if err := Copy(src, dst, 0o644); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	got, _ := os.ReadFile(dst)
	if string(got) != "RLVM payload" {
		t.Errorf("copied %q", got)
	}

	if err := Copy(filepath.Join(dir, "missing"), dst, 0o644); err == nil {
		t.Error("expected error for missing source")
	}
}

func TestWriteAtomic_SyncsParentDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "current-model.json")

	var synced []string
	orig := syncDir
	syncDir = func(d string) error {
		synced = append(synced, d)
		return orig(d)
	}
	t.Cleanup(func() { syncDir = orig })

	if err := WriteFileAtomic(path, []byte(`{}`), 0o644); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}
	if len(synced) != 1 || synced[0] != dir {
		t.Errorf("synced dirs = %v, want [%s]", synced, dir)
	}
}

func TestWriteAtomic_DirSyncFailure(t *testing.T) {
	dir := t.TempDir()
	errSync := errors.New("fsync failed")
	orig := syncDir
	syncDir = func(string) error { return errSync }
	t.Cleanup(func() { syncDir = orig })

	err := WriteFileAtomic(filepath.Join(dir, "m.json"), []byte(`{}`), 0o644)
	if !errors.Is(err, errSync) {
		t.Fatalf("expected sync error, got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if e.Name() != "m.json" {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
}
