package core

import (
	"bytes"
	"io"
	"os"
	"strings"
)

// FormatID identifies a concrete container format the engine can rewrite.
type FormatID string

const (
	FmtJPEG FormatID = "jpeg"
	FmtPNG  FormatID = "png"
	FmtGIF  FormatID = "gif"
	FmtWebP FormatID = "webp"

	FmtMP4 FormatID = "mp4"
	FmtMOV FormatID = "mov"

	FmtUnknown FormatID = "unknown"
)

// extMap maps lowercase extensions to format IDs, used only when magic-byte
// sniffing is inconclusive.
var extMap = map[string]FormatID{
	".jpg":  FmtJPEG,
	".jpeg": FmtJPEG,
	".png":  FmtPNG,
	".gif":  FmtGIF,
	".webp": FmtWebP,

	".mp4": FmtMP4,
	".m4v": FmtMP4,
	".mov": FmtMOV,
	".qt":  FmtMOV,
}

// DetectFormat returns the FormatID for the given file, first by reading
// magic bytes and falling back to extension. Misnamed files are therefore
// classified by their actual contents.
func DetectFormat(path string) (FormatID, error) {
	f, err := os.Open(path)
	if err != nil {
		return FmtUnknown, err
	}
	defer f.Close()

	buf := make([]byte, 16)
	n, err := io.ReadFull(f, buf)
	if err != nil && n == 0 {
		return FmtUnknown, err
	}
	buf = buf[:n]

	if id := DetectMagic(buf); id != FmtUnknown {
		return id, nil
	}

	dot := strings.LastIndex(path, ".")
	if dot >= 0 {
		ext := strings.ToLower(path[dot:])
		if id, ok := extMap[ext]; ok {
			return id, nil
		}
	}
	return FmtUnknown, nil
}

// DetectMagic sniffs a format from the first bytes of a file. At least 12
// bytes should be provided to distinguish the RIFF and ISO BMFF families.
func DetectMagic(b []byte) FormatID {
	if len(b) < 4 {
		return FmtUnknown
	}
	switch {
	// JPEG: FF D8 FF
	case b[0] == 0xFF && b[1] == 0xD8 && b[2] == 0xFF:
		return FmtJPEG
	// PNG: 89 50 4E 47 0D 0A 1A 0A
	case bytes.HasPrefix(b, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}):
		return FmtPNG
	// GIF: GIF87a or GIF89a
	case bytes.HasPrefix(b, []byte("GIF87a")) || bytes.HasPrefix(b, []byte("GIF89a")):
		return FmtGIF
	// WebP: RIFF????WEBP
	case len(b) >= 12 && bytes.Equal(b[0:4], []byte("RIFF")) && bytes.Equal(b[8:12], []byte("WEBP")):
		return FmtWebP
	// MP4/MOV: ftyp box at offset 4
	case len(b) >= 8 && bytes.Equal(b[4:8], []byte("ftyp")):
		return detectBMFFSubtype(b)
	}
	return FmtUnknown
}

func detectBMFFSubtype(b []byte) FormatID {
	if len(b) < 12 {
		return FmtMP4
	}
	if string(b[8:12]) == "qt  " {
		return FmtMOV
	}
	return FmtMP4
}

// KindFor returns the broad media category for a format.
func KindFor(id FormatID) Kind {
	switch id {
	case FmtJPEG, FmtPNG, FmtGIF, FmtWebP:
		return KindImage
	case FmtMP4, FmtMOV:
		return KindVideo
	default:
		return ""
	}
}
