package imagesan_test

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doubleangels/redact-sub001/core"
	"github.com/doubleangels/redact-sub001/core/imagesan"
)

// ─── fixture builders ────────────────────────────────────────────────────

// buildEXIFSegment returns APP1 payload bytes holding a little-endian TIFF
// block with ASCII IFD0 entries, decodable by goexif.
func buildEXIFSegment(fields map[uint16]string) []byte {
	var buf bytes.Buffer
	buf.WriteString("Exif\x00\x00")
	buf.WriteString("II")
	buf.Write([]byte{0x2A, 0x00})
	buf.Write([]byte{0x08, 0x00, 0x00, 0x00})

	type entry struct {
		tag uint16
		val string
	}
	var entries []entry
	for tag, val := range fields {
		entries = append(entries, entry{tag, val})
	}

	numEntries := uint16(len(entries))
	ifdSize := 2 + int(numEntries)*12 + 4
	valOffset := 8 + ifdSize

	var ifd, values bytes.Buffer
	binary.Write(&ifd, binary.LittleEndian, numEntries)
	for _, e := range entries {
		val := e.val + "\x00"
		binary.Write(&ifd, binary.LittleEndian, e.tag)
		binary.Write(&ifd, binary.LittleEndian, uint16(2)) // ASCII
		binary.Write(&ifd, binary.LittleEndian, uint32(len(val)))
		if len(val) <= 4 {
			padded := make([]byte, 4)
			copy(padded, val)
			ifd.Write(padded)
		} else {
			binary.Write(&ifd, binary.LittleEndian, uint32(valOffset+values.Len()))
			values.WriteString(val)
		}
	}
	binary.Write(&ifd, binary.LittleEndian, uint32(0))

	buf.Write(ifd.Bytes())
	buf.Write(values.Bytes())
	return buf.Bytes()
}

func jpegSegment(marker byte, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, marker})
	binary.Write(&buf, binary.BigEndian, uint16(len(payload)+2))
	buf.Write(payload)
	return buf.Bytes()
}

func buildJPEG(withMetadata bool) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xD8}) // SOI
	buf.Write(jpegSegment(0xE0, append([]byte("JFIF\x00"), 1, 2, 0, 0, 1, 0, 1, 0, 0)))
	if withMetadata {
		buf.Write(jpegSegment(0xE1, buildEXIFSegment(map[uint16]string{
			0x010F: "TestCam Industries",
			0x0110: "TC-9000",
		})))
		buf.Write(jpegSegment(0xED, append([]byte("Photoshop 3.0\x00"), 0x38, 0x42, 0x49, 0x4D)))
		buf.Write(jpegSegment(0xFE, []byte("shot on holiday")))
	}
	buf.Write(jpegSegment(0xDB, bytes.Repeat([]byte{0x10}, 64)))          // DQT
	buf.Write(jpegSegment(0xC0, []byte{8, 0, 1, 0, 1, 1, 0x11, 0x11, 0})) // SOF0
	buf.Write(jpegSegment(0xDA, []byte{1, 0, 0x11, 0, 63, 0}))            // SOS
	buf.Write([]byte{0x12, 0x34, 0x56, 0x78})                             // entropy data
	buf.Write([]byte{0xFF, 0xD9})                                         // EOI
	return buf.Bytes()
}

func pngChunk(typ string, data []byte) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, uint32(len(data)))
	buf.WriteString(typ)
	buf.Write(data)
	crc := crc32.NewIEEE()
	crc.Write([]byte(typ))
	crc.Write(data)
	binary.Write(&buf, binary.BigEndian, crc.Sum32())
	return buf.Bytes()
}

func buildPNG(withMetadata bool) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A})
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], 1)
	binary.BigEndian.PutUint32(ihdr[4:8], 1)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 0 // grayscale
	buf.Write(pngChunk("IHDR", ihdr))
	if withMetadata {
		buf.Write(pngChunk("tEXt", []byte("Author\x00somebody")))
		buf.Write(pngChunk("tIME", []byte{0x07, 0xE7, 1, 2, 3, 4, 5}))
		buf.Write(pngChunk("eXIf", buildEXIFSegment(map[uint16]string{0x010F: "TestCam"})[6:]))
	}
	buf.Write(pngChunk("IDAT", []byte{0x78, 0x9C, 0x62, 0x00, 0x01}))
	buf.Write(pngChunk("IEND", nil))
	return buf.Bytes()
}

func webpChunk(id string, data []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(id)
	binary.Write(&buf, binary.LittleEndian, uint32(len(data)))
	buf.Write(data)
	if len(data)%2 != 0 {
		buf.WriteByte(0)
	}
	return buf.Bytes()
}

func buildWebP(withMetadata bool) []byte {
	var body bytes.Buffer
	if withMetadata {
		body.Write(webpChunk("VP8X", []byte{0x08 | 0x04, 0, 0, 0, 0, 0, 0, 0, 0, 0}))
	} else {
		body.Write(webpChunk("VP8X", []byte{0x00, 0, 0, 0, 0, 0, 0, 0, 0, 0}))
	}
	body.Write(webpChunk("VP8 ", []byte{0x9D, 0x01, 0x2A, 0x01, 0x00, 0x01, 0x00}))
	if withMetadata {
		body.Write(webpChunk("EXIF", buildEXIFSegment(map[uint16]string{0x010F: "TestCam"})[6:]))
		body.Write(webpChunk("XMP ", []byte("<x:xmpmeta/>")))
	}

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(body.Len()+4))
	buf.WriteString("WEBP")
	buf.Write(body.Bytes())
	return buf.Bytes()
}

func gifSubBlocks(data []byte) []byte {
	var buf bytes.Buffer
	for len(data) > 0 {
		n := len(data)
		if n > 255 {
			n = 255
		}
		buf.WriteByte(byte(n))
		buf.Write(data[:n])
		data = data[n:]
	}
	buf.WriteByte(0)
	return buf.Bytes()
}

func buildGIF(withMetadata bool) []byte {
	var buf bytes.Buffer
	buf.WriteString("GIF89a")
	buf.Write([]byte{1, 0, 1, 0, 0x00, 0, 0}) // LSD, no global color table
	if withMetadata {
		buf.Write([]byte{0x21, 0xFE})
		buf.Write(gifSubBlocks([]byte("made with TestCam")))
		buf.Write([]byte{0x21, 0xFF})
		buf.Write(gifSubBlocks(append([]byte("XMP DataXMP"), []byte("<x:xmpmeta/>")...)))
	}
	// NETSCAPE loop block stays: part of the visible payload.
	buf.Write([]byte{0x21, 0xFF})
	buf.Write(gifSubBlocks(append([]byte("NETSCAPE2.0"), 0x01, 0x00, 0x00)))
	buf.Write([]byte{0x2C, 0, 0, 0, 0, 1, 0, 1, 0, 0x00}) // image descriptor
	buf.WriteByte(0x02)                                   // LZW min code size
	buf.Write(gifSubBlocks([]byte{0x44, 0x01}))
	buf.WriteByte(0x3B)
	return buf.Bytes()
}

// ─── helpers ─────────────────────────────────────────────────────────────

func sanitizeBytes(t *testing.T, name string, data []byte) []byte {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, name)
	dst := filepath.Join(dir, "clean_"+name)
	require.NoError(t, os.WriteFile(src, data, 0o644))

	s := imagesan.New(zerolog.Nop())
	require.NoError(t, s.Sanitize(src, dst))

	out, err := os.ReadFile(dst)
	require.NoError(t, err)
	return out
}

// ─── tests ───────────────────────────────────────────────────────────────

func TestJPEGStripRemovesAllCatalogSegments(t *testing.T) {
	in := buildJPEG(true)

	// The fixture must actually carry decodable EXIF up front.
	x, err := exif.Decode(bytes.NewReader(in))
	require.NoError(t, err)
	field, err := x.Get(exif.Make)
	require.NoError(t, err)
	assert.Contains(t, field.String(), "TestCam")

	out := sanitizeBytes(t, "photo.jpg", in)

	_, err = exif.Decode(bytes.NewReader(out))
	assert.Error(t, err, "output must not carry decodable EXIF")
	assert.NotContains(t, string(out), "TestCam")
	assert.NotContains(t, string(out), "Photoshop")
	assert.NotContains(t, string(out), "holiday")
}

func TestJPEGPayloadIsBitIdentical(t *testing.T) {
	in := buildJPEG(true)
	out := sanitizeBytes(t, "photo.jpg", in)

	// Stripping only removes whole segments, so the bare fixture must equal
	// the sanitized tagged fixture byte for byte.
	assert.Equal(t, buildJPEG(false), out)
}

func TestJPEGTrailerAfterEOIIsDropped(t *testing.T) {
	// Vendor trailers (motion-photo payloads, GPS blobs) sit after the EOI
	// marker where no segment walk reaches them.
	in := append(buildJPEG(true), []byte("SEFT GPS +48.8583+002.2944")...)

	out := sanitizeBytes(t, "trailer.jpg", in)

	assert.Equal(t, buildJPEG(false), out)
	assert.NotContains(t, string(out), "+48.8583")
}

func TestJPEGMissingEOIIsCorrupt(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "cut.jpg")
	dst := filepath.Join(dir, "clean.jpg")
	in := buildJPEG(false)
	require.NoError(t, os.WriteFile(src, in[:len(in)-2], 0o644))

	err := imagesan.New(zerolog.Nop()).Sanitize(src, dst)
	assert.ErrorIs(t, err, core.ErrCorruptData)
	assert.NoFileExists(t, dst)
}

func TestJPEGSanitizeIsIdempotent(t *testing.T) {
	once := sanitizeBytes(t, "a.jpg", buildJPEG(true))
	twice := sanitizeBytes(t, "b.jpg", once)
	assert.Equal(t, once, twice)
}

func TestPNGStripKeepsOnlyStructuralChunks(t *testing.T) {
	out := sanitizeBytes(t, "pic.png", buildPNG(true))
	assert.Equal(t, buildPNG(false), out)
	assert.NotContains(t, string(out), "somebody")
	assert.NotContains(t, string(out), "TestCam")
}

func TestWebPStripDropsMetadataAndClearsFlags(t *testing.T) {
	out := sanitizeBytes(t, "pic.webp", buildWebP(true))
	assert.NotContains(t, string(out), "TestCam")
	assert.NotContains(t, string(out), "xmpmeta")
	// VP8X flag byte sits right after the chunk header inside the container.
	idx := bytes.Index(out, []byte("VP8X"))
	require.GreaterOrEqual(t, idx, 0)
	assert.Zero(t, out[idx+8]&(0x20|0x08|0x04), "metadata feature flags must be cleared")
	// The bitstream chunk is untouched.
	assert.Contains(t, string(out), "VP8 ")
}

func TestGIFStripDropsCommentsKeepsLoop(t *testing.T) {
	out := sanitizeBytes(t, "anim.gif", buildGIF(true))
	assert.Equal(t, buildGIF(false), out)
	assert.NotContains(t, string(out), "TestCam")
	assert.Contains(t, string(out), "NETSCAPE2.0")
}

func TestUnsupportedFormatFailsClosed(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "image.bmp")
	dst := filepath.Join(dir, "clean.bmp")
	require.NoError(t, os.WriteFile(src, []byte("BM\x00\x00\x00\x00"), 0o644))

	err := imagesan.New(zerolog.Nop()).Sanitize(src, dst)
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)
	assert.NoFileExists(t, dst)
}

func TestCorruptInputProducesNoOutput(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "broken.jpg")
	dst := filepath.Join(dir, "clean.jpg")
	// Valid SOI, then a segment length pointing past EOF.
	require.NoError(t, os.WriteFile(src, []byte{0xFF, 0xD8, 0xFF, 0xE1, 0xFF, 0xFF, 0x00}, 0o644))

	err := imagesan.New(zerolog.Nop()).Sanitize(src, dst)
	assert.ErrorIs(t, err, core.ErrCorruptData)
	assert.NoFileExists(t, dst)
}
