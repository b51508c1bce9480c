package imagesan

import (
	"bytes"
	"fmt"

	"github.com/doubleangels/redact-sub001/core"
)

const (
	gifExtension   = 0x21
	gifImageSep    = 0x2C
	gifTrailer     = 0x3B
	gifLabelGCE    = 0xF9
	gifLabelText   = 0x01
	gifLabelComm   = 0xFE
	gifLabelAppExt = 0xFF
)

// netscapeAppID is the only application extension retained: it carries the
// animation loop count, which is part of the visible payload.
var netscapeAppID = []byte("NETSCAPE2.0")

// sanitizeGIF walks the GIF block structure, dropping comment extensions
// and every application extension except the NETSCAPE looping block. Image
// descriptors, color tables and LZW data are copied verbatim.
func sanitizeGIF(data []byte) ([]byte, error) {
	if len(data) < 13 || (!bytes.HasPrefix(data, []byte("GIF87a")) && !bytes.HasPrefix(data, []byte("GIF89a"))) {
		return nil, fmt.Errorf("%w: not a valid GIF header", core.ErrCorruptData)
	}

	var out bytes.Buffer
	// Header (6) + logical screen descriptor (7)
	out.Write(data[:13])
	i := 13

	// Global color table
	if data[10]&0x80 != 0 {
		ctSize := 3 * (1 << (int(data[10]&0x07) + 1))
		if i+ctSize > len(data) {
			return nil, fmt.Errorf("%w: truncated global color table", core.ErrCorruptData)
		}
		out.Write(data[i : i+ctSize])
		i += ctSize
	}

	for i < len(data) {
		switch data[i] {
		case gifTrailer:
			out.WriteByte(gifTrailer)
			return out.Bytes(), nil

		case gifImageSep:
			next, err := copyGIFImage(data, i, &out)
			if err != nil {
				return nil, err
			}
			i = next

		case gifExtension:
			if i+1 >= len(data) {
				return nil, fmt.Errorf("%w: truncated extension", core.ErrCorruptData)
			}
			label := data[i+1]
			blockStart := i
			next, body, err := readGIFSubBlocks(data, i+2)
			if err != nil {
				return nil, err
			}
			switch label {
			case gifLabelComm:
				// dropped
			case gifLabelAppExt:
				if bytes.HasPrefix(body, netscapeAppID) {
					out.Write(data[blockStart:next])
				}
			default:
				// Graphic control and plain-text blocks shape rendering.
				out.Write(data[blockStart:next])
			}
			i = next

		default:
			return nil, fmt.Errorf("%w: unexpected block 0x%02X at offset %d", core.ErrCorruptData, data[i], i)
		}
	}
	return nil, fmt.Errorf("%w: missing trailer", core.ErrCorruptData)
}

// copyGIFImage copies an image descriptor, its optional local color table,
// and the LZW-compressed sub-blocks verbatim.
func copyGIFImage(data []byte, i int, out *bytes.Buffer) (int, error) {
	if i+10 > len(data) {
		return 0, fmt.Errorf("%w: truncated image descriptor", core.ErrCorruptData)
	}
	start := i
	flags := data[i+9]
	i += 10
	if flags&0x80 != 0 {
		ctSize := 3 * (1 << (int(flags&0x07) + 1))
		if i+ctSize > len(data) {
			return 0, fmt.Errorf("%w: truncated local color table", core.ErrCorruptData)
		}
		i += ctSize
	}
	if i >= len(data) {
		return 0, fmt.Errorf("%w: missing LZW code size", core.ErrCorruptData)
	}
	i++ // LZW minimum code size
	next, _, err := readGIFSubBlocks(data, i)
	if err != nil {
		return 0, err
	}
	out.Write(data[start:next])
	return next, nil
}

// readGIFSubBlocks walks a sub-block chain starting at i and returns the
// offset past the terminator along with the concatenated payload.
func readGIFSubBlocks(data []byte, i int) (int, []byte, error) {
	var body []byte
	for {
		if i >= len(data) {
			return 0, nil, fmt.Errorf("%w: unterminated sub-blocks", core.ErrCorruptData)
		}
		size := int(data[i])
		i++
		if size == 0 {
			return i, body, nil
		}
		if i+size > len(data) {
			return 0, nil, fmt.Errorf("%w: sub-block overruns file", core.ErrCorruptData)
		}
		body = append(body, data[i:i+size]...)
		i += size
	}
}

// scanGIF reports lingering comment or non-NETSCAPE application extensions.
func scanGIF(data []byte) error {
	if len(data) < 13 {
		return fmt.Errorf("%w: file too short", core.ErrCorruptData)
	}
	i := 13
	if data[10]&0x80 != 0 {
		i += 3 * (1 << (int(data[10]&0x07) + 1))
	}
	for i < len(data) {
		switch data[i] {
		case gifTrailer:
			return nil
		case gifImageSep:
			next, err := copyGIFImage(data, i, &bytes.Buffer{})
			if err != nil {
				return err
			}
			i = next
		case gifExtension:
			if i+1 >= len(data) {
				return fmt.Errorf("%w: truncated extension", core.ErrCorruptData)
			}
			label := data[i+1]
			next, body, err := readGIFSubBlocks(data, i+2)
			if err != nil {
				return err
			}
			if label == gifLabelComm {
				return fmt.Errorf("lingering comment extension")
			}
			if label == gifLabelAppExt && !bytes.HasPrefix(body, netscapeAppID) {
				return fmt.Errorf("lingering application extension")
			}
			i = next
		default:
			return fmt.Errorf("%w: unexpected block 0x%02X", core.ErrCorruptData, data[i])
		}
	}
	return fmt.Errorf("%w: missing trailer", core.ErrCorruptData)
}
