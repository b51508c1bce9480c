// Package wipe destroys intermediate files so their contents cannot be
// recovered from the working area: each file is overwritten with random
// bytes, flushed to disk, truncated and finally unlinked.
package wipe

import (
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// overwriteChunk bounds the random buffer held in memory per pass.
const overwriteChunk = 64 * 1024

// Eraser overwrites and removes files from the working area.
type Eraser struct {
	log    zerolog.Logger
	passes int
}

// New returns an Eraser performing the given number of overwrite passes
// per file. Passes below one are raised to one.
func New(log zerolog.Logger, passes int) *Eraser {
	if passes < 1 {
		passes = 1
	}
	return &Eraser{
		log:    log.With().Str("component", "wipe").Logger(),
		passes: passes,
	}
}

// Erase overwrites the file at path with random bytes, syncs, truncates
// and removes it. A path that no longer exists is not an error: the file
// may already have been consumed by a rename.
func (e *Eraser) Erase(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("could not open %s for erasure: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("could not stat %s: %w", path, err)
	}
	size := info.Size()

	for pass := 0; pass < e.passes; pass++ {
		if err := overwrite(f, size); err != nil {
			f.Close()
			return fmt.Errorf("overwrite pass %d of %s: %w", pass+1, path, err)
		}
	}
	if err := f.Truncate(0); err != nil {
		f.Close()
		return fmt.Errorf("could not truncate %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("could not sync %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("could not close %s: %w", path, err)
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("could not remove %s: %w", path, err)
	}
	e.log.Debug().Str("path", path).Int64("bytes", size).Int("passes", e.passes).Msg("file erased")
	return nil
}

// overwrite writes size random bytes over the file and syncs them out.
func overwrite(f *os.File, size int64) error {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	buf := make([]byte, overwriteChunk)
	var written int64
	for written < size {
		n := int64(len(buf))
		if size-written < n {
			n = size - written
		}
		if _, err := rand.Read(buf[:n]); err != nil {
			return err
		}
		if _, err := f.Write(buf[:n]); err != nil {
			return err
		}
		written += n
	}
	return f.Sync()
}

// EraseDir erases every regular file under dir, then removes the tree.
// Erasure continues past individual failures so one stubborn file does not
// leave the rest of the working area intact; the first error is returned.
func (e *Eraser) EraseDir(dir string) error {
	var firstErr error
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		if err := e.Erase(path); err != nil && firstErr == nil {
			firstErr = err
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		if firstErr == nil {
			firstErr = err
		}
	}
	if err := os.RemoveAll(dir); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
