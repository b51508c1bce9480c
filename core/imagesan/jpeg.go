package imagesan

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/doubleangels/redact-sub001/core"
	"github.com/doubleangels/redact-sub001/core/catalog"
)

// jpegSegment is one marker segment. A marker of 0x00 holds the raw
// entropy-coded scan data following SOS.
type jpegSegment struct {
	marker byte
	data   []byte
}

const (
	markerSOI     = 0xD8
	markerEOI     = 0xD9
	markerSOS     = 0xDA
	markerScan    = 0x00 // pseudo-marker for entropy-coded payload
	markerTrailer = 0x02 // pseudo-marker for bytes after EOI
)

func sanitizeJPEG(data []byte) ([]byte, error) {
	segments, err := parseJPEGSegments(data)
	if err != nil {
		return nil, err
	}

	out := make([]jpegSegment, 0, len(segments))
	for _, seg := range segments {
		if _, meta := catalog.JPEGMetaMarkers[seg.marker]; meta {
			continue
		}
		// Vendor trailers after EOI (motion-photo payloads, GPS blobs)
		// are metadata regardless of shape.
		if seg.marker == markerTrailer {
			continue
		}
		out = append(out, seg)
	}
	return writeJPEGSegments(out), nil
}

// parseJPEGSegments splits a JPEG byte stream into marker segments plus the
// trailing entropy-coded payload. Structural damage surfaces as
// ErrCorruptData so a broken file is never partially rewritten.
func parseJPEGSegments(data []byte) ([]jpegSegment, error) {
	if len(data) < 2 || data[0] != 0xFF || data[1] != markerSOI {
		return nil, fmt.Errorf("%w: missing SOI marker", core.ErrCorruptData)
	}
	segs := []jpegSegment{{marker: markerSOI}}

	i := 2
	for i < len(data) {
		if data[i] != 0xFF {
			return nil, fmt.Errorf("%w: expected marker at offset %d", core.ErrCorruptData, i)
		}
		i++
		// Fill bytes: any number of 0xFF may pad a marker.
		for i < len(data) && data[i] == 0xFF {
			i++
		}
		if i >= len(data) {
			return nil, fmt.Errorf("%w: truncated marker", core.ErrCorruptData)
		}
		marker := data[i]
		i++

		if marker == markerEOI {
			segs = append(segs, jpegSegment{marker: markerEOI})
			if i < len(data) {
				segs = append(segs, jpegSegment{marker: markerTrailer, data: append([]byte{}, data[i:]...)})
			}
			break
		}
		// Standalone markers carry no length field.
		if marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7) {
			segs = append(segs, jpegSegment{marker: marker})
			continue
		}

		if i+2 > len(data) {
			return nil, fmt.Errorf("%w: truncated segment length", core.ErrCorruptData)
		}
		segLen := int(binary.BigEndian.Uint16(data[i:i+2])) - 2
		i += 2
		if segLen < 0 || i+segLen > len(data) {
			return nil, fmt.Errorf("%w: segment overruns file", core.ErrCorruptData)
		}
		segs = append(segs, jpegSegment{marker: marker, data: append([]byte{}, data[i:i+segLen]...)})
		i += segLen

		if marker == markerSOS {
			// Entropy-coded scan data runs to the EOI marker and is copied
			// verbatim. Byte stuffing keeps FF D9 out of the stream, so the
			// first occurrence is the real terminator.
			end, err := findScanEnd(data, i)
			if err != nil {
				return nil, err
			}
			segs = append(segs, jpegSegment{marker: markerScan, data: append([]byte{}, data[i:end]...)})
			segs = append(segs, jpegSegment{marker: markerEOI})
			if end+2 < len(data) {
				segs = append(segs, jpegSegment{marker: markerTrailer, data: append([]byte{}, data[end+2:]...)})
			}
			break
		}
	}
	return segs, nil
}

// findScanEnd returns the offset of the EOI marker terminating the scan
// that starts at i.
func findScanEnd(data []byte, i int) (int, error) {
	for j := i; j+1 < len(data); j++ {
		if data[j] == 0xFF && data[j+1] == markerEOI {
			return j, nil
		}
	}
	return 0, fmt.Errorf("%w: missing EOI marker", core.ErrCorruptData)
}

func writeJPEGSegments(segs []jpegSegment) []byte {
	var buf bytes.Buffer
	for _, seg := range segs {
		switch seg.marker {
		case markerSOI, markerEOI:
			buf.Write([]byte{0xFF, seg.marker})
		case markerScan:
			buf.Write(seg.data)
		default:
			buf.WriteByte(0xFF)
			buf.WriteByte(seg.marker)
			length := uint16(len(seg.data) + 2)
			buf.WriteByte(byte(length >> 8))
			buf.WriteByte(byte(length))
			buf.Write(seg.data)
		}
	}
	return buf.Bytes()
}

// scanJPEG reports the first catalog segment found in a sanitized output.
func scanJPEG(data []byte) error {
	segs, err := parseJPEGSegments(data)
	if err != nil {
		return err
	}
	for _, seg := range segs {
		if name, meta := catalog.JPEGMetaMarkers[seg.marker]; meta {
			return fmt.Errorf("lingering %s segment", name)
		}
		if seg.marker == markerTrailer {
			return fmt.Errorf("%d trailer bytes after EOI", len(seg.data))
		}
	}
	return nil
}
