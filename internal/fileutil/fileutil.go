package fileutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteFunc streams the content of one file.
type WriteFunc func(io.Writer) error

// WriteFileAtomic writes path through a temp sibling and renames it into place.
func WriteFileAtomic(path string, perm os.FileMode, write WriteFunc) error {
	var batch Batch
	if err := batch.Stage(path, perm, write); err != nil {
		return err
	}
	return batch.Commit()
}

// Batch replaces a group of files so that either every staged file lands or
// none of the previous contents change. Stage writes temp siblings; Commit
// renames them into place and restores the originals if any rename fails.
type Batch struct {
	entries []entry
	done    bool
}

type entry struct {
	tmp    string
	dest   string
	backup string
}

// Stage writes the content for dest into a temp file next to it.
func (b *Batch) Stage(dest string, perm os.FileMode, write WriteFunc) error {
	if b.done {
		return errors.New("fileutil: batch already finished")
	}
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("fileutil: ensure dir %q: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return fmt.Errorf("fileutil: create temp for %q: %w", dest, err)
	}
	tmpName := tmp.Name()
	fail := func(step string, err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("fileutil: %s temp for %q: %w", step, dest, err)
	}
	if err := write(tmp); err != nil {
		return fail("write", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return fail("chmod", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("sync", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("fileutil: close temp for %q: %w", dest, err)
	}
	b.entries = append(b.entries, entry{tmp: tmpName, dest: dest})
	return nil
}

// Len reports how many files are staged.
func (b *Batch) Len() int { return len(b.entries) }

// Commit moves every staged file into place.
func (b *Batch) Commit() error {
	if b.done {
		return errors.New("fileutil: batch already finished")
	}
	b.done = true

	for i := range b.entries {
		e := &b.entries[i]
		if info, err := os.Lstat(e.dest); err == nil {
			if info.IsDir() {
				return b.rollback(i, fmt.Errorf("fileutil: destination %q is a directory", e.dest))
			}
			e.backup = e.tmp + ".orig"
			if err := os.Rename(e.dest, e.backup); err != nil {
				e.backup = ""
				return b.rollback(i, fmt.Errorf("fileutil: set aside %q: %w", e.dest, err))
			}
		}
		if err := os.Rename(e.tmp, e.dest); err != nil {
			if e.backup != "" {
				_ = os.Rename(e.backup, e.dest)
				e.backup = ""
			}
			return b.rollback(i, fmt.Errorf("fileutil: rename into %q: %w", e.dest, err))
		}
	}
	for _, e := range b.entries {
		if e.backup != "" {
			_ = os.Remove(e.backup)
		}
	}
	return nil
}

// rollback undoes entries [0, failed) and removes every remaining temp file.
func (b *Batch) rollback(failed int, cause error) error {
	var errs []error
	for i := failed - 1; i >= 0; i-- {
		e := b.entries[i]
		if e.backup != "" {
			if err := os.Rename(e.backup, e.dest); err != nil {
				errs = append(errs, fmt.Errorf("fileutil: restore %q: %w", e.dest, err))
			}
			continue
		}
		if err := os.Remove(e.dest); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("fileutil: remove %q: %w", e.dest, err))
		}
	}
	for _, e := range b.entries[failed:] {
		_ = os.Remove(e.tmp)
	}
	return errors.Join(append([]error{cause}, errs...)...)
}

// Abort discards every staged temp file. It is a no-op after Commit.
func (b *Batch) Abort() error {
	if b.done {
		return nil
	}
	b.done = true
	var errs []error
	for _, e := range b.entries {
		if err := os.Remove(e.tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
