package stacker

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

const writeBufferSize = 64 * 1024

// atomicFile buffers writes into a temporary file next to dest. Commit renames
// it into place; Abort removes it and leaves any existing dest untouched.
//
// When dest is a symlink the link target is replaced and the link kept. An
// existing file keeps its permission bits; a new file gets 0644.
type atomicFile struct {
	dest string
	tmp  *os.File
	buf  *bufio.Writer
	done bool
}

var _ io.Writer = (*atomicFile)(nil)

const newFileMode os.FileMode = 0o644

func createAtomic(dest string) (*atomicFile, error) {
	dest, mode, err := resolveDest(dest)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".stacker-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("chmod temp file: %w", err)
	}
	return &atomicFile{dest: dest, tmp: tmp, buf: bufio.NewWriterSize(tmp, writeBufferSize)}, nil
}

// resolveDest follows symlinks at dest and reports the mode to give the
// replacement.
func resolveDest(dest string) (string, os.FileMode, error) {
	info, err := os.Lstat(dest)
	if errors.Is(err, fs.ErrNotExist) {
		return dest, newFileMode, nil
	}
	if err != nil {
		return "", 0, fmt.Errorf("stat output: %w", err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		target, err := filepath.EvalSymlinks(dest)
		if errors.Is(err, fs.ErrNotExist) {
			// Dangling link: create the file it points at.
			link, lerr := os.Readlink(dest)
			if lerr != nil {
				return "", 0, fmt.Errorf("read link %s: %w", dest, lerr)
			}
			if !filepath.IsAbs(link) {
				link = filepath.Join(filepath.Dir(dest), link)
			}
			return link, newFileMode, nil
		}
		if err != nil {
			return "", 0, fmt.Errorf("resolve link %s: %w", dest, err)
		}
		dest = target
		if info, err = os.Stat(dest); err != nil {
			return "", 0, fmt.Errorf("stat output: %w", err)
		}
	}
	if info.IsDir() {
		return "", 0, fmt.Errorf("output %s is a directory", dest)
	}
	return dest, info.Mode().Perm(), nil
}

func (f *atomicFile) Write(p []byte) (int, error) {
	return f.buf.Write(p)
}

func (f *atomicFile) Commit() error {
	if f.done {
		return nil
	}
	f.done = true
	if err := f.buf.Flush(); err != nil {
		f.discard()
		return fmt.Errorf("flush: %w", err)
	}
	if err := f.tmp.Sync(); err != nil {
		f.discard()
		return fmt.Errorf("sync: %w", err)
	}
	if err := f.tmp.Close(); err != nil {
		_ = os.Remove(f.tmp.Name())
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(f.tmp.Name(), f.dest); err != nil {
		_ = os.Remove(f.tmp.Name())
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// Abort is safe to call after Commit.
func (f *atomicFile) Abort() {
	if f.done {
		return
	}
	f.done = true
	f.discard()
}

func (f *atomicFile) discard() {
	_ = f.tmp.Close()
	_ = os.Remove(f.tmp.Name())
}
