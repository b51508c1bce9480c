package imagesan

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/doubleangels/redact-sub001/core"
	"github.com/doubleangels/redact-sub001/core/catalog"
)

var pngSignature = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

type pngChunk struct {
	typ  string
	data []byte
}

// sanitizePNG rewrites a PNG keeping only the structural chunk whitelist.
// IDAT payloads are copied verbatim; chunk CRCs are recomputed on write.
func sanitizePNG(data []byte) ([]byte, error) {
	chunks, err := readPNGChunks(data)
	if err != nil {
		return nil, err
	}

	var kept []pngChunk
	for _, c := range chunks {
		if !catalog.PNGStructuralChunks[c.typ] {
			continue
		}
		kept = append(kept, c)
	}
	return writePNGChunks(kept), nil
}

func readPNGChunks(data []byte) ([]pngChunk, error) {
	if !bytes.HasPrefix(data, pngSignature) {
		return nil, fmt.Errorf("%w: not a valid PNG signature", core.ErrCorruptData)
	}

	var chunks []pngChunk
	i := len(pngSignature)
	sawIHDR, sawIEND := false, false
	for i < len(data) {
		if i+8 > len(data) {
			return nil, fmt.Errorf("%w: truncated chunk header", core.ErrCorruptData)
		}
		length := int(binary.BigEndian.Uint32(data[i : i+4]))
		typ := string(data[i+4 : i+8])
		i += 8
		if length < 0 || i+length+4 > len(data) {
			return nil, fmt.Errorf("%w: chunk %s overruns file", core.ErrCorruptData, typ)
		}
		chunks = append(chunks, pngChunk{typ: typ, data: append([]byte{}, data[i:i+length]...)})
		i += length + 4 // data + CRC

		switch typ {
		case "IHDR":
			sawIHDR = true
		case "IEND":
			sawIEND = true
		}
		if sawIEND {
			break
		}
	}
	if !sawIHDR || !sawIEND {
		return nil, fmt.Errorf("%w: missing IHDR or IEND", core.ErrCorruptData)
	}
	return chunks, nil
}

func writePNGChunks(chunks []pngChunk) []byte {
	var buf bytes.Buffer
	buf.Write(pngSignature)
	for _, c := range chunks {
		lenBuf := make([]byte, 4)
		binary.BigEndian.PutUint32(lenBuf, uint32(len(c.data)))
		buf.Write(lenBuf)
		buf.WriteString(c.typ)
		buf.Write(c.data)

		crc := crc32.NewIEEE()
		crc.Write([]byte(c.typ))
		crc.Write(c.data)
		crcBuf := make([]byte, 4)
		binary.BigEndian.PutUint32(crcBuf, crc.Sum32())
		buf.Write(crcBuf)
	}
	return buf.Bytes()
}

// scanPNG reports the first catalog chunk found in a sanitized output.
func scanPNG(data []byte) error {
	chunks, err := readPNGChunks(data)
	if err != nil {
		return err
	}
	for _, c := range chunks {
		if catalog.PNGMetaChunks[c.typ] {
			return fmt.Errorf("lingering %s chunk", c.typ)
		}
		if !catalog.PNGStructuralChunks[c.typ] {
			return fmt.Errorf("unexpected %s chunk outside the retained set", c.typ)
		}
	}
	return nil
}
