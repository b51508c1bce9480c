package remux

import (
	"encoding/binary"
	"fmt"

	"github.com/doubleangels/redact-sub001/core"
	"github.com/doubleangels/redact-sub001/core/catalog"
)

// track holds everything retained from one trak subtree: headers with their
// times zeroed, the codec configuration, the timing/sync tables copied
// verbatim, and the parsed chunk layout used to relocate sample data.
type track struct {
	handler string // vide or soun
	codec   string // stsd entry fourcc

	tkhd []byte
	mdhd []byte
	hdlr []byte
	elst []byte // optional edit list
	mhd  bmffBox // vmhd or smhd
	dinf []byte

	stsd []byte
	stts []byte
	ctts []byte // optional
	stss []byte // optional
	stsc []byte
	stsz []byte
	sgpd []byte // optional
	sbgp []byte // optional

	chunkOffsets []uint64 // absolute offsets into the source file
	chunkLens    []int64  // byte length of each chunk
}

// parseTrack extracts a track from a trak payload. Non-playable tracks
// (text, subtitles, hints, timed metadata) return (nil, nil) and are
// dropped by the caller. A playable track with an unrecognised codec is an
// ErrUnsupportedCodec: the engine fails closed rather than emitting a
// stream whose configuration it cannot vouch for.
func parseTrack(trakPayload []byte) (*track, error) {
	children, err := parseBoxes(trakPayload)
	if err != nil {
		return nil, err
	}

	tkhd := find(children, "tkhd")
	mdia := find(children, "mdia")
	if tkhd == nil || mdia == nil {
		return nil, fmt.Errorf("%w: trak missing tkhd or mdia", core.ErrCorruptContainer)
	}

	mdiaChildren, err := parseBoxes(mdia.payload)
	if err != nil {
		return nil, err
	}
	mdhd := find(mdiaChildren, "mdhd")
	hdlr := find(mdiaChildren, "hdlr")
	minf := find(mdiaChildren, "minf")
	if mdhd == nil || hdlr == nil || minf == nil {
		return nil, fmt.Errorf("%w: mdia missing mdhd, hdlr or minf", core.ErrCorruptContainer)
	}
	if len(hdlr.payload) < 12 {
		return nil, fmt.Errorf("%w: short hdlr", core.ErrCorruptContainer)
	}
	handler := string(hdlr.payload[8:12])
	if !catalog.PlayableHandlers[handler] {
		return nil, nil
	}

	minfChildren, err := parseBoxes(minf.payload)
	if err != nil {
		return nil, err
	}
	stbl := find(minfChildren, "stbl")
	dinf := find(minfChildren, "dinf")
	if stbl == nil || dinf == nil {
		return nil, fmt.Errorf("%w: minf missing stbl or dinf", core.ErrCorruptContainer)
	}
	if err := validateDataReferences(dinf.payload); err != nil {
		return nil, err
	}
	var mhd bmffBox
	if v := find(minfChildren, "vmhd"); v != nil {
		mhd = *v
	} else if s := find(minfChildren, "smhd"); s != nil {
		mhd = *s
	} else {
		return nil, fmt.Errorf("%w: minf missing media header", core.ErrCorruptContainer)
	}

	stblChildren, err := parseBoxes(stbl.payload)
	if err != nil {
		return nil, err
	}
	t := &track{
		handler: handler,
		tkhd:    append([]byte{}, tkhd.payload...),
		mdhd:    append([]byte{}, mdhd.payload...),
		hdlr:    append([]byte{}, hdlr.payload...),
		dinf:    append([]byte{}, dinf.payload...),
		mhd:     bmffBox{typ: mhd.typ, payload: append([]byte{}, mhd.payload...)},
	}
	if edts := find(children, "edts"); edts != nil {
		edtsChildren, err := parseBoxes(edts.payload)
		if err != nil {
			return nil, err
		}
		if elst := find(edtsChildren, "elst"); elst != nil {
			t.elst = append([]byte{}, elst.payload...)
		}
	}

	required := map[string]*[]byte{"stsd": &t.stsd, "stts": &t.stts, "stsc": &t.stsc}
	optional := map[string]*[]byte{"ctts": &t.ctts, "stss": &t.stss, "sgpd": &t.sgpd, "sbgp": &t.sbgp}
	for _, c := range stblChildren {
		if dst, ok := required[c.typ]; ok {
			*dst = append([]byte{}, c.payload...)
		} else if dst, ok := optional[c.typ]; ok {
			*dst = append([]byte{}, c.payload...)
		}
	}
	for typ, dst := range required {
		if *dst == nil {
			return nil, fmt.Errorf("%w: stbl missing %s", core.ErrCorruptContainer, typ)
		}
	}

	if err := zeroFullBoxTimes(t.tkhd); err != nil {
		return nil, err
	}
	if err := zeroFullBoxTimes(t.mdhd); err != nil {
		return nil, err
	}

	t.codec, err = stsdEntryFourCC(t.stsd)
	if err != nil {
		return nil, err
	}
	allowed := catalog.VideoSampleEntries
	if handler == "soun" {
		allowed = catalog.AudioSampleEntries
	}
	if !allowed[t.codec] {
		return nil, fmt.Errorf("%w: %s track uses %q", core.ErrUnsupportedCodec, handler, t.codec)
	}

	sizes, err := parseSampleSizes(stblChildren, t)
	if err != nil {
		return nil, err
	}
	if err := t.parseChunkLayout(stblChildren, sizes); err != nil {
		return nil, err
	}
	return t, nil
}

// validateDataReferences requires every dref entry to be a self-contained
// "url " reference (flag 0x000001, no location string). Chunk offsets only
// address the source file itself; a movie whose media data lives in an
// external file would remux into garbage samples, so it fails closed.
func validateDataReferences(dinf []byte) error {
	children, err := parseBoxes(dinf)
	if err != nil {
		return err
	}
	dref := find(children, "dref")
	if dref == nil || len(dref.payload) < 8 {
		return fmt.Errorf("%w: dinf missing dref", core.ErrCorruptContainer)
	}
	entries, err := parseBoxes(dref.payload[8:])
	if err != nil {
		return err
	}
	count := binary.BigEndian.Uint32(dref.payload[4:8])
	if count == 0 || int(count) != len(entries) {
		return fmt.Errorf("%w: dref entry count mismatch", core.ErrCorruptContainer)
	}
	for _, e := range entries {
		if e.typ != "url " || len(e.payload) != 4 || e.payload[3]&0x01 == 0 {
			return fmt.Errorf("%w: external data reference %q", core.ErrUnsupportedCodec, e.typ)
		}
	}
	return nil
}

// stsdEntryFourCC reads the fourcc of the first sample description entry.
func stsdEntryFourCC(stsd []byte) (string, error) {
	if len(stsd) < 16 {
		return "", fmt.Errorf("%w: short stsd", core.ErrCorruptContainer)
	}
	entryCount := binary.BigEndian.Uint32(stsd[4:8])
	if entryCount == 0 {
		return "", fmt.Errorf("%w: stsd holds no sample descriptions", core.ErrCorruptContainer)
	}
	return string(stsd[12:16]), nil
}

// parseSampleSizes reads stsz (or stz2) into a per-sample size slice and
// records the verbatim stsz payload on the track. A stz2 table is
// re-encoded as plain stsz in the output.
func parseSampleSizes(stblChildren []bmffBox, t *track) ([]int64, error) {
	if stsz := find(stblChildren, "stsz"); stsz != nil {
		p := stsz.payload
		if len(p) < 12 {
			return nil, fmt.Errorf("%w: short stsz", core.ErrCorruptContainer)
		}
		t.stsz = append([]byte{}, p...)
		uniform := binary.BigEndian.Uint32(p[4:8])
		count := int(binary.BigEndian.Uint32(p[8:12]))
		sizes := make([]int64, count)
		if uniform != 0 {
			for i := range sizes {
				sizes[i] = int64(uniform)
			}
			return sizes, nil
		}
		if len(p) < 12+4*count {
			return nil, fmt.Errorf("%w: stsz table truncated", core.ErrCorruptContainer)
		}
		for i := range sizes {
			sizes[i] = int64(binary.BigEndian.Uint32(p[12+4*i : 16+4*i]))
		}
		return sizes, nil
	}

	stz2 := find(stblChildren, "stz2")
	if stz2 == nil {
		return nil, fmt.Errorf("%w: stbl missing sample size table", core.ErrCorruptContainer)
	}
	p := stz2.payload
	if len(p) < 12 {
		return nil, fmt.Errorf("%w: short stz2", core.ErrCorruptContainer)
	}
	fieldSize := int(p[7])
	count := int(binary.BigEndian.Uint32(p[8:12]))
	sizes := make([]int64, count)
	for i := 0; i < count; i++ {
		switch fieldSize {
		case 4:
			idx := 12 + i/2
			if idx >= len(p) {
				return nil, fmt.Errorf("%w: stz2 table truncated", core.ErrCorruptContainer)
			}
			if i%2 == 0 {
				sizes[i] = int64(p[idx] >> 4)
			} else {
				sizes[i] = int64(p[idx] & 0x0F)
			}
		case 8:
			if 12+i >= len(p) {
				return nil, fmt.Errorf("%w: stz2 table truncated", core.ErrCorruptContainer)
			}
			sizes[i] = int64(p[12+i])
		case 16:
			if 14+2*i > len(p) {
				return nil, fmt.Errorf("%w: stz2 table truncated", core.ErrCorruptContainer)
			}
			sizes[i] = int64(binary.BigEndian.Uint16(p[12+2*i : 14+2*i]))
		default:
			return nil, fmt.Errorf("%w: stz2 field size %d", core.ErrCorruptContainer, fieldSize)
		}
	}
	t.stsz = buildStsz(sizes)
	return sizes, nil
}

// buildStsz encodes a plain per-sample stsz payload.
func buildStsz(sizes []int64) []byte {
	out := make([]byte, 12+4*len(sizes))
	binary.BigEndian.PutUint32(out[8:12], uint32(len(sizes)))
	for i, s := range sizes {
		binary.BigEndian.PutUint32(out[12+4*i:16+4*i], uint32(s))
	}
	return out
}

// parseChunkLayout resolves stsc + sample sizes + stco/co64 into absolute
// chunk offsets and byte lengths.
func (t *track) parseChunkLayout(stblChildren []bmffBox, sizes []int64) error {
	// Chunk offsets.
	if stco := find(stblChildren, "stco"); stco != nil {
		p := stco.payload
		if len(p) < 8 {
			return fmt.Errorf("%w: short stco", core.ErrCorruptContainer)
		}
		count := int(binary.BigEndian.Uint32(p[4:8]))
		if len(p) < 8+4*count {
			return fmt.Errorf("%w: stco table truncated", core.ErrCorruptContainer)
		}
		t.chunkOffsets = make([]uint64, count)
		for i := range t.chunkOffsets {
			t.chunkOffsets[i] = uint64(binary.BigEndian.Uint32(p[8+4*i : 12+4*i]))
		}
	} else if co64 := find(stblChildren, "co64"); co64 != nil {
		p := co64.payload
		if len(p) < 8 {
			return fmt.Errorf("%w: short co64", core.ErrCorruptContainer)
		}
		count := int(binary.BigEndian.Uint32(p[4:8]))
		if len(p) < 8+8*count {
			return fmt.Errorf("%w: co64 table truncated", core.ErrCorruptContainer)
		}
		t.chunkOffsets = make([]uint64, count)
		for i := range t.chunkOffsets {
			t.chunkOffsets[i] = binary.BigEndian.Uint64(p[8+8*i : 16+8*i])
		}
	} else {
		return fmt.Errorf("%w: stbl missing chunk offset table", core.ErrCorruptContainer)
	}

	// Samples-per-chunk runs.
	p := t.stsc
	if len(p) < 8 {
		return fmt.Errorf("%w: short stsc", core.ErrCorruptContainer)
	}
	runCount := int(binary.BigEndian.Uint32(p[4:8]))
	if len(p) < 8+12*runCount {
		return fmt.Errorf("%w: stsc table truncated", core.ErrCorruptContainer)
	}
	type stscRun struct{ firstChunk, perChunk uint32 }
	runs := make([]stscRun, runCount)
	for i := range runs {
		runs[i] = stscRun{
			firstChunk: binary.BigEndian.Uint32(p[8+12*i : 12+12*i]),
			perChunk:   binary.BigEndian.Uint32(p[12+12*i : 16+12*i]),
		}
	}

	t.chunkLens = make([]int64, len(t.chunkOffsets))
	sample := 0
	for chunk := 0; chunk < len(t.chunkOffsets); chunk++ {
		perChunk := uint32(0)
		for _, r := range runs {
			if uint32(chunk+1) >= r.firstChunk {
				perChunk = r.perChunk
			}
		}
		for s := uint32(0); s < perChunk; s++ {
			if sample >= len(sizes) {
				return fmt.Errorf("%w: sample tables disagree on sample count", core.ErrCorruptContainer)
			}
			t.chunkLens[chunk] += sizes[sample]
			sample++
		}
	}
	if sample != len(sizes) {
		return fmt.Errorf("%w: %d samples mapped to chunks, %d sized", core.ErrCorruptContainer, sample, len(sizes))
	}
	return nil
}

// buildTrak serialises the retained track with relocated chunk offsets.
func (t *track) buildTrak(newOffsets []uint64) []byte {
	stblChildren := [][]byte{packBox("stsd", t.stsd), packBox("stts", t.stts)}
	if t.ctts != nil {
		stblChildren = append(stblChildren, packBox("ctts", t.ctts))
	}
	if t.stss != nil {
		stblChildren = append(stblChildren, packBox("stss", t.stss))
	}
	stblChildren = append(stblChildren,
		packBox("stsc", t.stsc),
		packBox("stsz", t.stsz),
		buildChunkOffsetBox(newOffsets),
	)
	if t.sgpd != nil {
		stblChildren = append(stblChildren, packBox("sgpd", t.sgpd))
	}
	if t.sbgp != nil {
		stblChildren = append(stblChildren, packBox("sbgp", t.sbgp))
	}
	stbl := packBox("stbl", packBoxes(stblChildren...))

	minf := packBox("minf", packBoxes(
		packBox(t.mhd.typ, t.mhd.payload),
		packBox("dinf", t.dinf),
		stbl,
	))
	mdia := packBox("mdia", packBoxes(
		packBox("mdhd", t.mdhd),
		packBox("hdlr", t.hdlr),
		minf,
	))

	trakChildren := [][]byte{packBox("tkhd", t.tkhd)}
	if t.elst != nil {
		trakChildren = append(trakChildren, packBox("edts", packBox("elst", t.elst)))
	}
	trakChildren = append(trakChildren, mdia)
	return packBox("trak", packBoxes(trakChildren...))
}

// buildChunkOffsetBox emits stco when all offsets fit 32 bits, co64 otherwise.
func buildChunkOffsetBox(offsets []uint64) []byte {
	wide := false
	for _, o := range offsets {
		if o > 0xFFFFFFFF {
			wide = true
			break
		}
	}
	if wide {
		payload := make([]byte, 8+8*len(offsets))
		binary.BigEndian.PutUint32(payload[4:8], uint32(len(offsets)))
		for i, o := range offsets {
			binary.BigEndian.PutUint64(payload[8+8*i:16+8*i], o)
		}
		return packBox("co64", payload)
	}
	payload := make([]byte, 8+4*len(offsets))
	binary.BigEndian.PutUint32(payload[4:8], uint32(len(offsets)))
	for i, o := range offsets {
		binary.BigEndian.PutUint32(payload[8+4*i:12+4*i], uint32(o))
	}
	return packBox("stco", payload)
}
