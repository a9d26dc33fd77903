package pathvalidate

import (
	"path/filepath"
	"testing"
)

func TestResolveRejectsEmptyPath(t *testing.T) {
	if _, err := Resolve("", "/tmp/base"); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestResolveRejectsDotDotComponents(t *testing.T) {
	if _, err := Resolve("../escape.json", "/tmp/base"); err == nil {
		t.Fatal("expected error for a path containing '..'")
	}
}

func TestResolveAcceptsPathWithinBase(t *testing.T) {
	base := t.TempDir()
	resolved, err := Resolve("archive.jsonl", base)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := filepath.Join(base, "archive.jsonl")
	if resolved != want {
		t.Errorf("resolved = %q, want %q", resolved, want)
	}
}

func TestResolveRejectsPathOutsideBase(t *testing.T) {
	base := t.TempDir()
	outside := t.TempDir()
	if _, err := Resolve(filepath.Join(outside, "archive.jsonl"), base); err == nil {
		t.Fatal("expected error for an absolute path outside baseDir and allowDirs")
	}
}

func TestResolveAcceptsPathWithinAllowDir(t *testing.T) {
	base := t.TempDir()
	allowed := t.TempDir()
	path := filepath.Join(allowed, "archive.jsonl")

	resolved, err := Resolve(path, base, allowed)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved != path {
		t.Errorf("resolved = %q, want %q", resolved, path)
	}
}
