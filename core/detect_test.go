package core_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doubleangels/redact-sub001/core"
)

func TestDetectMagic(t *testing.T) {
	cases := []struct {
		name string
		head []byte
		want core.FormatID
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0x10, 'J', 'F', 'I', 'F', 0, 0}, core.FmtJPEG},
		{"png", []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 13}, core.FmtPNG},
		{"gif", []byte("GIF89a\x01\x00\x01\x00\x00\x00"), core.FmtGIF},
		{"webp", []byte("RIFF\x24\x00\x00\x00WEBP"), core.FmtWebP},
		{"mp4", []byte{0, 0, 0, 0x18, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm'}, core.FmtMP4},
		{"mov", []byte{0, 0, 0, 0x14, 'f', 't', 'y', 'p', 'q', 't', ' ', ' '}, core.FmtMOV},
		{"garbage", []byte("hello world!"), core.FmtUnknown},
		{"short", []byte{0xFF}, core.FmtUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, core.DetectMagic(tc.head))
		})
	}
}

func TestDetectFormatPrefersContentOverExtension(t *testing.T) {
	// A PNG misnamed as .jpg must be classified as PNG.
	path := filepath.Join(t.TempDir(), "misnamed.jpg")
	require.NoError(t, os.WriteFile(path, []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 13, 'I', 'H', 'D', 'R'}, 0o600))

	id, err := core.DetectFormat(path)
	require.NoError(t, err)
	assert.Equal(t, core.FmtPNG, id)
}

func TestDetectFormatFallsBackToExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opaque.mov")
	require.NoError(t, os.WriteFile(path, []byte("no recognizable magic here"), 0o600))

	id, err := core.DetectFormat(path)
	require.NoError(t, err)
	assert.Equal(t, core.FmtMOV, id)
}

func TestKindFor(t *testing.T) {
	assert.Equal(t, core.KindImage, core.KindFor(core.FmtJPEG))
	assert.Equal(t, core.KindImage, core.KindFor(core.FmtWebP))
	assert.Equal(t, core.KindVideo, core.KindFor(core.FmtMP4))
	assert.Equal(t, core.KindVideo, core.KindFor(core.FmtMOV))
	assert.Empty(t, core.KindFor(core.FmtUnknown))
}
