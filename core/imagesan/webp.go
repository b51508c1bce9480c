package imagesan

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/image/riff"

	"github.com/doubleangels/redact-sub001/core"
	"github.com/doubleangels/redact-sub001/core/catalog"
)

var webpFormType = riff.FourCC{'W', 'E', 'B', 'P'}

// vp8x feature flags advertising chunks elsewhere in the container.
const (
	vp8xICC  = 0x20
	vp8xEXIF = 0x08
	vp8xXMP  = 0x04
)

type webpChunk struct {
	id   string
	data []byte
}

// sanitizeWebP rebuilds the RIFF container keeping only bitstream and
// animation chunks. The VP8X feature flags are rewritten so the dropped
// EXIF/XMP/ICC chunks are no longer advertised.
func sanitizeWebP(data []byte) ([]byte, error) {
	chunks, err := readWebPChunks(data)
	if err != nil {
		return nil, err
	}

	var kept []webpChunk
	for _, c := range chunks {
		if !catalog.WebPStructuralChunks[c.id] {
			continue
		}
		if c.id == "VP8X" && len(c.data) >= 1 {
			patched := append([]byte{}, c.data...)
			patched[0] &^= vp8xICC | vp8xEXIF | vp8xXMP
			c.data = patched
		}
		kept = append(kept, c)
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("%w: no image bitstream chunks", core.ErrCorruptData)
	}
	return writeWebPChunks(kept), nil
}

func readWebPChunks(data []byte) ([]webpChunk, error) {
	formType, r, err := riff.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", core.ErrCorruptData, err.Error())
	}
	if formType != webpFormType {
		return nil, fmt.Errorf("%w: RIFF form type is not WEBP", core.ErrCorruptData)
	}

	var chunks []webpChunk
	for {
		chunkID, chunkLen, chunkData, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s", core.ErrCorruptData, err.Error())
		}
		payload := make([]byte, chunkLen)
		if _, err := io.ReadFull(chunkData, payload); err != nil {
			return nil, fmt.Errorf("%w: truncated %s chunk", core.ErrCorruptData, string(chunkID[:]))
		}
		chunks = append(chunks, webpChunk{id: string(chunkID[:]), data: payload})
	}
	return chunks, nil
}

func writeWebPChunks(chunks []webpChunk) []byte {
	var body bytes.Buffer
	for _, c := range chunks {
		body.WriteString(c.id)
		sizeBuf := make([]byte, 4)
		binary.LittleEndian.PutUint32(sizeBuf, uint32(len(c.data)))
		body.Write(sizeBuf)
		body.Write(c.data)
		if len(c.data)%2 != 0 {
			body.WriteByte(0) // RIFF pad byte
		}
	}

	var out bytes.Buffer
	out.WriteString("RIFF")
	totalSize := make([]byte, 4)
	binary.LittleEndian.PutUint32(totalSize, uint32(body.Len()+4))
	out.Write(totalSize)
	out.WriteString("WEBP")
	out.Write(body.Bytes())
	return out.Bytes()
}

// scanWebP reports the first catalog chunk found in a sanitized output.
func scanWebP(data []byte) error {
	chunks, err := readWebPChunks(data)
	if err != nil {
		return err
	}
	for _, c := range chunks {
		if catalog.WebPMetaChunks[c.id] {
			return fmt.Errorf("lingering %s chunk", c.id)
		}
		if c.id == "VP8X" && len(c.data) >= 1 && c.data[0]&(vp8xICC|vp8xEXIF|vp8xXMP) != 0 {
			return fmt.Errorf("VP8X still advertises metadata chunks")
		}
	}
	return nil
}
