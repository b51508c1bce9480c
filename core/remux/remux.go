// Package remux demultiplexes ISO BMFF containers (MP4, M4V, MOV) into
// their elementary streams and remultiplexes them into a fresh container,
// copying compressed samples verbatim. No decode or re-encode occurs: the
// output carries the original codec configuration, sample ordering, timing
// and sync tables, and nothing else. Every metadata box is left behind.
package remux

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/rs/zerolog"

	"github.com/doubleangels/redact-sub001/core"
	"github.com/doubleangels/redact-sub001/core/catalog"
)

// Remuxer rewrites video containers without their metadata.
type Remuxer struct {
	log zerolog.Logger
}

// New returns a Remuxer logging through the given logger.
func New(log zerolog.Logger) *Remuxer {
	return &Remuxer{log: log.With().Str("component", "remux").Logger()}
}

// chunkRef locates one chunk of sample data in the source file.
type chunkRef struct {
	trackIdx int
	chunkIdx int
	srcOff   uint64
	length   int64
}

// Remux rewrites the video at src into dst. On any failure dst is removed
// rather than left partial.
func (r *Remuxer) Remux(src, dst string) error {
	err := r.remux(src, dst)
	if err != nil {
		os.Remove(dst)
	}
	return err
}

func (r *Remuxer) remux(src, dst string) error {
	format, err := core.DetectFormat(src)
	if err != nil {
		return fmt.Errorf("could not read source %s: %w", src, err)
	}
	if format != core.FmtMP4 && format != core.FmtMOV {
		return fmt.Errorf("%w: %s", core.ErrUnsupportedFormat, format)
	}

	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("could not open source %s: %w", src, err)
	}
	defer f.Close()

	ftyp, moov, err := readTopLevel(f)
	if err != nil {
		return err
	}

	mvhd, tracks, err := parseMoov(moov)
	if err != nil {
		return err
	}
	if len(tracks) == 0 {
		return core.ErrEmptyContainer
	}

	// Gather every chunk and preserve the source interleave order.
	var chunks []chunkRef
	for ti, t := range tracks {
		for ci, off := range t.chunkOffsets {
			chunks = append(chunks, chunkRef{trackIdx: ti, chunkIdx: ci, srcOff: off, length: t.chunkLens[ci]})
		}
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].srcOff < chunks[j].srcOff })

	var mdatLen int64
	for _, c := range chunks {
		mdatLen += c.length
	}

	// Layout: ftyp, mdat, moov. Chunk destinations are known before the
	// moov tables are built.
	ftypBox := packBox("ftyp", ftyp)
	mdatStart := int64(len(ftypBox)) + headerLenFor(mdatLen)

	newOffsets := make([][]uint64, len(tracks))
	for ti, t := range tracks {
		newOffsets[ti] = make([]uint64, len(t.chunkOffsets))
	}
	cursor := uint64(mdatStart)
	for _, c := range chunks {
		newOffsets[c.trackIdx][c.chunkIdx] = cursor
		cursor += uint64(c.length)
	}

	moovChildren := [][]byte{packBox("mvhd", mvhd)}
	for ti, t := range tracks {
		moovChildren = append(moovChildren, t.buildTrak(newOffsets[ti]))
	}
	moovBox := packBox("moov", packBoxes(moovChildren...))

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("could not create output %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := out.Write(ftypBox); err != nil {
		return fmt.Errorf("writing ftyp: %w", err)
	}
	if err := writeBoxHeader(out, "mdat", mdatLen); err != nil {
		return fmt.Errorf("writing mdat header: %w", err)
	}
	for _, c := range chunks {
		section := io.NewSectionReader(f, int64(c.srcOff), c.length)
		if n, err := io.Copy(out, section); err != nil || n != c.length {
			if err == nil {
				err = io.ErrUnexpectedEOF
			}
			return fmt.Errorf("%w: copying chunk at offset %d: %s", core.ErrCorruptContainer, c.srcOff, err.Error())
		}
	}
	if _, err := out.Write(moovBox); err != nil {
		return fmt.Errorf("writing moov: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing output: %w", err)
	}

	if err := scanOutput(dst); err != nil {
		r.log.Error().Err(err).Str("source", src).Msg("remuxed output failed catalog scan")
		return err
	}

	r.log.Debug().
		Str("source", src).
		Str("output", dst).
		Int("tracks", len(tracks)).
		Int("chunks", len(chunks)).
		Msg("container remuxed")
	return nil
}

// readTopLevel streams the top-level boxes of the source, materialising
// ftyp and moov payloads and skipping everything else.
func readTopLevel(f *os.File) (ftyp, moov []byte, err error) {
	info, err := f.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("could not stat source: %w", err)
	}
	fileSize := info.Size()

	var pos int64
	for pos < fileSize {
		hdr := make([]byte, 8)
		if _, err := f.ReadAt(hdr, pos); err != nil {
			return nil, nil, fmt.Errorf("%w: truncated box header", core.ErrCorruptContainer)
		}
		size := int64(binary.BigEndian.Uint32(hdr[0:4]))
		typ := string(hdr[4:8])
		headerLen := int64(8)

		switch size {
		case 0:
			size = fileSize - pos
		case 1:
			ext := make([]byte, 8)
			if _, err := f.ReadAt(ext, pos+8); err != nil {
				return nil, nil, fmt.Errorf("%w: truncated largesize header", core.ErrCorruptContainer)
			}
			size = int64(binary.BigEndian.Uint64(ext))
			headerLen = 16
		}
		if size < headerLen || pos+size > fileSize {
			return nil, nil, fmt.Errorf("%w: box %q overruns file", core.ErrCorruptContainer, typ)
		}

		switch typ {
		case "ftyp", "moov":
			payload := make([]byte, size-headerLen)
			if _, err := f.ReadAt(payload, pos+headerLen); err != nil {
				return nil, nil, fmt.Errorf("%w: truncated %s box", core.ErrCorruptContainer, typ)
			}
			if typ == "ftyp" {
				ftyp = payload
			} else {
				moov = payload
			}
		}
		pos += size
	}

	if ftyp == nil || moov == nil {
		return nil, nil, fmt.Errorf("%w: missing ftyp or moov", core.ErrCorruptContainer)
	}
	return ftyp, moov, nil
}

// parseMoov extracts the zeroed movie header and the playable tracks.
// Everything else under moov (udta, meta, iods) is dropped.
func parseMoov(moov []byte) ([]byte, []*track, error) {
	children, err := parseBoxes(moov)
	if err != nil {
		return nil, nil, err
	}
	mvhdBox := find(children, "mvhd")
	if mvhdBox == nil {
		return nil, nil, fmt.Errorf("%w: moov missing mvhd", core.ErrCorruptContainer)
	}
	mvhd := append([]byte{}, mvhdBox.payload...)
	if err := zeroFullBoxTimes(mvhd); err != nil {
		return nil, nil, err
	}

	var tracks []*track
	for _, c := range children {
		if c.typ != "trak" {
			continue
		}
		t, err := parseTrack(c.payload)
		if err != nil {
			return nil, nil, err
		}
		if t != nil {
			tracks = append(tracks, t)
		}
	}
	return mvhd, tracks, nil
}

// moov subtree containers the output scan recurses into.
var outputContainers = map[string]bool{
	"moov": true,
	"trak": true,
	"edts": true,
	"mdia": true,
	"minf": true,
	"dinf": true,
	"stbl": true,
}

// scanOutput walks the written container and fails if any box outside the
// structural allowlist, or any catalog metadata box, survived the remux.
func scanOutput(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("could not reopen output: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("could not stat output: %w", err)
	}

	var pos int64
	for pos < info.Size() {
		hdr := make([]byte, 8)
		if _, err := f.ReadAt(hdr, pos); err != nil {
			return fmt.Errorf("%w: unreadable output box", core.ErrCorruptContainer)
		}
		size := int64(binary.BigEndian.Uint32(hdr[0:4]))
		typ := string(hdr[4:8])
		headerLen := int64(8)
		if size == 1 {
			ext := make([]byte, 8)
			if _, err := f.ReadAt(ext, pos+8); err != nil {
				return fmt.Errorf("%w: unreadable output box", core.ErrCorruptContainer)
			}
			size = int64(binary.BigEndian.Uint64(ext))
			headerLen = 16
		}
		if size < headerLen || pos+size > info.Size() {
			return fmt.Errorf("%w: output box %q overruns file", core.ErrCorruptContainer, typ)
		}

		if typ == "moov" {
			payload := make([]byte, size-headerLen)
			if _, err := f.ReadAt(payload, pos+headerLen); err != nil {
				return fmt.Errorf("%w: unreadable moov", core.ErrCorruptContainer)
			}
			if err := scanBoxTree("moov", payload); err != nil {
				return err
			}
		} else if typ != "ftyp" && typ != "mdat" {
			return fmt.Errorf("%w: unexpected top-level box %q in output", core.ErrCorruptContainer, typ)
		}
		pos += size
	}
	return nil
}

func scanBoxTree(parent string, payload []byte) error {
	boxes, err := parseBoxes(payload)
	if err != nil {
		return err
	}
	for _, b := range boxes {
		if catalog.MP4MetaBoxes[b.typ] {
			return fmt.Errorf("%w: lingering %q box under %q", core.ErrCorruptContainer, b.typ, parent)
		}
		if !catalog.MP4StructuralBoxes[b.typ] {
			return fmt.Errorf("%w: box %q under %q outside the retained set", core.ErrCorruptContainer, b.typ, parent)
		}
		if outputContainers[b.typ] {
			if err := scanBoxTree(b.typ, b.payload); err != nil {
				return err
			}
		}
	}
	return nil
}
