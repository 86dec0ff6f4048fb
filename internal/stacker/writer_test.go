package stacker

import (
	"os"
	"path/filepath"
	"testing"
)

func writeAtomic(t *testing.T, dest, body string) {
	t.Helper()
	f, err := createAtomic(dest)
	if err != nil {
		t.Fatalf("createAtomic: %v", err)
	}
	defer f.Abort()
	if _, err := f.Write([]byte(body)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := f.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestAtomicFileNewFileMode(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.gcode")
	writeAtomic(t, dest, "G1 Z1\n")
	info, err := os.Stat(dest)
	if err != nil {
		t.Fatal(err)
	}
	if got := info.Mode().Perm(); got != newFileMode {
		t.Fatalf("mode = %v, want %v", got, newFileMode)
	}
}

func TestAtomicFileKeepsExistingMode(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.gcode")
	if err := os.WriteFile(dest, []byte("old"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(dest, 0o600); err != nil {
		t.Fatal(err)
	}
	writeAtomic(t, dest, "new")
	info, err := os.Stat(dest)
	if err != nil {
		t.Fatal(err)
	}
	if got := info.Mode().Perm(); got != 0o600 {
		t.Fatalf("mode = %v, want 0600", got)
	}
	if got := readFile(t, dest); got != "new" {
		t.Fatalf("content = %q, want %q", got, "new")
	}
}

func TestAtomicFileWritesThroughSymlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real.gcode")
	link := filepath.Join(dir, "link.gcode")
	if err := os.WriteFile(target, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("real.gcode", link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	writeAtomic(t, link, "new")
	info, err := os.Lstat(link)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		t.Fatalf("link was replaced by a regular file")
	}
	if got := readFile(t, target); got != "new" {
		t.Fatalf("target content = %q, want %q", got, "new")
	}
}

func TestAtomicFileRejectsDirectory(t *testing.T) {
	if _, err := createAtomic(t.TempDir()); err == nil {
		t.Fatalf("expected error for directory destination")
	}
}
