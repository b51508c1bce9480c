// Package outpath resolves destination paths for processed media. Every
// resolution yields a fresh, collision-free path inside the output
// directory; the source file is never a candidate destination.
package outpath

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/xid"

	"github.com/doubleangels/redact-sub001/core"
)

// Resolver names output files and remembers the most recent one produced.
type Resolver struct {
	outputDir string

	mu   sync.Mutex
	last string
}

// New returns a Resolver writing into outputDir.
func New(outputDir string) *Resolver {
	return &Resolver{outputDir: outputDir}
}

// Resolve returns the destination path for an item: its sanitized display
// name, a short unique suffix, and the original extension. Identical
// display names resolve to distinct paths, within a batch and across runs.
func (r *Resolver) Resolve(item core.MediaItem) (string, error) {
	name := item.DisplayName
	if name == "" {
		name = filepath.Base(item.Source)
	}
	ext := filepath.Ext(name)
	base := sanitizeName(strings.TrimSuffix(name, ext))
	if ext == "" {
		ext = filepath.Ext(item.Source)
	}

	dst := filepath.Join(r.outputDir, base+"_"+xid.New().String()+ext)
	if sameFile(dst, item.Source) {
		return "", fmt.Errorf("destination %s would overwrite the source", dst)
	}
	return dst, nil
}

// RecordProduced notes a finished output as the most recent handle.
func (r *Resolver) RecordProduced(path string) {
	r.mu.Lock()
	r.last = path
	r.mu.Unlock()
}

// LastProduced returns the most recently produced output path, if any.
func (r *Resolver) LastProduced() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, r.last != ""
}

// sanitizeName reduces a display name to a safe file stem: path separators
// and control characters become underscores, surrounding whitespace is
// trimmed, and an empty result falls back to "media".
func sanitizeName(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == 0:
			b.WriteRune('_')
		case r < 0x20:
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" || out == "." || out == ".." {
		return "media"
	}
	return out
}

func sameFile(a, b string) bool {
	aa, err1 := filepath.Abs(a)
	bb, err2 := filepath.Abs(b)
	if err1 != nil || err2 != nil {
		return a == b
	}
	return aa == bb
}
