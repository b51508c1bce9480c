package core

import "errors"

// Error taxonomy for per-item failures. All of these are caught at the item
// boundary by the batch coordinator and recorded against that item only;
// they never abort a batch.
var (
	// ErrUnsupportedFormat is returned when the input's container format is
	// not one the engine can rewrite.
	ErrUnsupportedFormat = errors.New("unsupported media format")

	// ErrUnsupportedCodec is returned when a stream's codec configuration
	// cannot be identified with confidence. The engine fails closed rather
	// than risking an unplayable or still-tagged output.
	ErrUnsupportedCodec = errors.New("unsupported codec configuration")

	// ErrCorruptData is returned on structural parse failure of an image
	// container, or when post-write verification finds lingering metadata.
	ErrCorruptData = errors.New("corrupt image data")

	// ErrCorruptContainer is returned on structural parse failure of a
	// video container.
	ErrCorruptContainer = errors.New("corrupt video container")

	// ErrEmptyContainer is returned when a video source holds zero streams
	// of a playable kind.
	ErrEmptyContainer = errors.New("container has no playable streams")
)
