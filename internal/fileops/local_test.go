package fileops

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLocalCopy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	writeFile(t, src, "payload")

	l := NewLocal()
	if err := l.Copy(context.Background(), []string{src}, []string{dst}); err != nil {
		t.Fatalf("Copy failed: %v", err)
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read dst: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("dst = %q, want %q", data, "payload")
	}
	// Source stays put; copy is not a rename.
	if _, err := os.Stat(src); err != nil {
		t.Errorf("source should survive copy: %v", err)
	}
}

func TestLocalCopyReplacesDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	writeFile(t, src, "new")
	writeFile(t, dst, "old contents that are longer")

	l := NewLocal()
	if err := l.Copy(context.Background(), []string{src}, []string{dst}); err != nil {
		t.Fatalf("Copy failed: %v", err)
	}
	data, _ := os.ReadFile(dst)
	if string(data) != "new" {
		t.Errorf("dst = %q, want %q", data, "new")
	}
}

func TestLocalCopyMissingSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "nope")
	dst := filepath.Join(dir, "dst")

	l := NewLocal()
	if err := l.Copy(context.Background(), []string{src}, []string{dst}); err != nil {
		t.Fatalf("missing source should not error: %v", err)
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Error("destination should not be created for a missing source")
	}
}

func TestLocalCopyCountMismatch(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	writeFile(t, src, "data")
	dst1 := filepath.Join(dir, "d1")
	dst2 := filepath.Join(dir, "d2")

	l := NewLocal()
	err := l.Copy(context.Background(), []string{src}, []string{dst1, dst2})
	if err == nil {
		t.Fatal("mismatched counts should fail")
	}
	// Fails before any I/O: no destination may exist.
	if _, statErr := os.Stat(dst1); !os.IsNotExist(statErr) {
		t.Error("no destination should be created on count mismatch")
	}
}

func TestLocalRemove(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	writeFile(t, a, "x")
	missing := filepath.Join(dir, "missing")

	l := NewLocal()
	if err := l.Remove(context.Background(), []string{a, missing}); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := os.Stat(a); !os.IsNotExist(err) {
		t.Error("file should be removed")
	}
}

func TestLocalCopyFileScheme(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	writeFile(t, src, "via uri")

	l := NewLocal()
	if err := l.Copy(context.Background(), []string{"file://" + src}, []string{"file://" + dst}); err != nil {
		t.Fatalf("Copy failed: %v", err)
	}
	data, _ := os.ReadFile(dst)
	if string(data) != "via uri" {
		t.Errorf("dst = %q", data)
	}
}
