// Package core defines the shared types, error taxonomy, configuration,
// and format detection for the metadata-stripping engine.
package core

// Kind is the declared media category of a batch item.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// MediaItem describes one entry of a processing batch. It is assembled by
// the caller and never mutated by the engine.
type MediaItem struct {
	Source      string // Readable locator of the original file
	Kind        Kind   // Declared media category; empty means classify by content
	DisplayName string // Human-facing name used to derive the output name
}

// Outcome is the per-item result of one processing run.
// Err == nil means the item succeeded and Output holds the cleaned file.
type Outcome struct {
	Item   MediaItem
	Output string
	Err    error
}

// Succeeded reports whether the item produced a clean output.
func (o Outcome) Succeeded() bool { return o.Err == nil }

// ProgressFunc receives one call per finished item (success or failure).
// current takes each value 1..total exactly once, in order.
type ProgressFunc func(current, total int, message string)

// CompleteFunc receives the number of successful items, exactly once,
// after the final item.
type CompleteFunc func(successCount int)
