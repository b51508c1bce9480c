// Package imagesan rewrites image containers, removing every metadata
// segment or chunk named by the tag catalog while leaving the compressed
// pixel payload byte-identical.
//
// The strategy is whitelist rewriting: a fresh container is written holding
// only the structural elements a decoder needs, so unknown or vendor-private
// namespaces cannot linger. Every output is verified against the catalog
// before the sanitizer reports success.
package imagesan

import (
	"bytes"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rwcarlsen/goexif/exif"

	"github.com/doubleangels/redact-sub001/core"
)

// Sanitizer strips metadata from image files.
type Sanitizer struct {
	log zerolog.Logger
}

// New returns a Sanitizer logging through the given logger.
func New(log zerolog.Logger) *Sanitizer {
	return &Sanitizer{log: log.With().Str("component", "imagesan").Logger()}
}

// Sanitize rewrites the image at src into dst with all catalog metadata
// removed. On any failure dst is not left behind in a partial state.
func (s *Sanitizer) Sanitize(src, dst string) error {
	format, err := core.DetectFormat(src)
	if err != nil {
		return fmt.Errorf("could not read source %s: %w", src, err)
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("could not read source %s: %w", src, err)
	}

	var out []byte
	switch format {
	case core.FmtJPEG:
		out, err = sanitizeJPEG(data)
	case core.FmtPNG:
		out, err = sanitizePNG(data)
	case core.FmtWebP:
		out, err = sanitizeWebP(data)
	case core.FmtGIF:
		out, err = sanitizeGIF(data)
	default:
		return fmt.Errorf("%w: %s", core.ErrUnsupportedFormat, format)
	}
	if err != nil {
		return err
	}

	if err := verify(format, out); err != nil {
		s.log.Error().Err(err).Str("source", src).Msg("sanitized output failed catalog scan")
		return err
	}

	if err := os.WriteFile(dst, out, 0o644); err != nil {
		os.Remove(dst)
		return fmt.Errorf("could not write output %s: %w", dst, err)
	}

	s.log.Debug().
		Str("source", src).
		Str("output", dst).
		Str("format", string(format)).
		Int("bytes_removed", len(data)-len(out)).
		Msg("image sanitized")
	return nil
}

// verify scans a sanitized container against the catalog: a single hit
// fails the item rather than risking a still-tagged output.
func verify(format core.FormatID, out []byte) error {
	var err error
	switch format {
	case core.FmtJPEG:
		err = scanJPEG(out)
	case core.FmtPNG:
		err = scanPNG(out)
	case core.FmtWebP:
		err = scanWebP(out)
	case core.FmtGIF:
		err = scanGIF(out)
	}
	if err != nil {
		return fmt.Errorf("%w: %s", core.ErrCorruptData, err.Error())
	}

	// Independent check: a successful EXIF decode on the output means the
	// native scan missed a namespace.
	if _, err := exif.Decode(bytes.NewReader(out)); err == nil {
		return fmt.Errorf("%w: output still carries a decodable EXIF block", core.ErrCorruptData)
	}
	return nil
}
