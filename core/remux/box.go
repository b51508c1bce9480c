package remux

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/doubleangels/redact-sub001/core"
)

// bmffBox is one ISO BMFF box held in memory. Only moov subtrees and ftyp
// are materialised like this; mdat payloads are streamed by offset.
type bmffBox struct {
	typ     string
	payload []byte
}

// parseBoxes splits a contiguous byte range into its child boxes.
func parseBoxes(data []byte) ([]bmffBox, error) {
	var boxes []bmffBox
	i := 0
	for i < len(data) {
		if i+8 > len(data) {
			return nil, fmt.Errorf("%w: truncated box header", core.ErrCorruptContainer)
		}
		size := int64(binary.BigEndian.Uint32(data[i : i+4]))
		typ := string(data[i+4 : i+8])
		headerLen := int64(8)

		switch size {
		case 0:
			// Box extends to the end of the enclosing range.
			size = int64(len(data) - i)
		case 1:
			if i+16 > len(data) {
				return nil, fmt.Errorf("%w: truncated largesize header", core.ErrCorruptContainer)
			}
			size = int64(binary.BigEndian.Uint64(data[i+8 : i+16]))
			headerLen = 16
		}
		if size < headerLen || int64(i)+size > int64(len(data)) {
			return nil, fmt.Errorf("%w: box %q overruns parent", core.ErrCorruptContainer, typ)
		}
		boxes = append(boxes, bmffBox{typ: typ, payload: data[int64(i)+headerLen : int64(i)+size]})
		i += int(size)
	}
	return boxes, nil
}

// find returns the first child box of the given type, or nil.
func find(boxes []bmffBox, typ string) *bmffBox {
	for i := range boxes {
		if boxes[i].typ == typ {
			return &boxes[i]
		}
	}
	return nil
}

// packBox serialises a box with a 32-bit size header.
func packBox(typ string, payload []byte) []byte {
	out := make([]byte, 8+len(payload))
	binary.BigEndian.PutUint32(out[0:4], uint32(8+len(payload)))
	copy(out[4:8], typ)
	copy(out[8:], payload)
	return out
}

// packBoxes concatenates serialised child boxes into a parent payload.
func packBoxes(children ...[]byte) []byte {
	var buf bytes.Buffer
	for _, c := range children {
		buf.Write(c)
	}
	return buf.Bytes()
}

// writeBoxHeader writes a box header for a payload of the given length,
// switching to a 64-bit largesize header when the total cannot be
// represented in 32 bits.
func writeBoxHeader(w io.Writer, typ string, payloadLen int64) error {
	if payloadLen+8 <= 0xFFFFFFFF {
		hdr := make([]byte, 8)
		binary.BigEndian.PutUint32(hdr[0:4], uint32(payloadLen+8))
		copy(hdr[4:8], typ)
		_, err := w.Write(hdr)
		return err
	}
	hdr := make([]byte, 16)
	binary.BigEndian.PutUint32(hdr[0:4], 1)
	copy(hdr[4:8], typ)
	binary.BigEndian.PutUint64(hdr[8:16], uint64(payloadLen+16))
	_, err := w.Write(hdr)
	return err
}

// headerLenFor returns the header size writeBoxHeader will emit.
func headerLenFor(payloadLen int64) int64 {
	if payloadLen+8 <= 0xFFFFFFFF {
		return 8
	}
	return 16
}

// zeroFullBoxTimes clears the creation/modification time fields of an
// mvhd, tkhd, or mdhd payload in place. The layouts share a common prefix:
// version(1) flags(3) ctime mtime, with 32-bit times for version 0 and
// 64-bit for version 1.
func zeroFullBoxTimes(payload []byte) error {
	if len(payload) < 4 {
		return fmt.Errorf("%w: short full box", core.ErrCorruptContainer)
	}
	switch payload[0] {
	case 0:
		if len(payload) < 12 {
			return fmt.Errorf("%w: short version 0 header", core.ErrCorruptContainer)
		}
		for i := 4; i < 12; i++ {
			payload[i] = 0
		}
	case 1:
		if len(payload) < 20 {
			return fmt.Errorf("%w: short version 1 header", core.ErrCorruptContainer)
		}
		for i := 4; i < 20; i++ {
			payload[i] = 0
		}
	default:
		return fmt.Errorf("%w: unknown full box version %d", core.ErrCorruptContainer, payload[0])
	}
	return nil
}
