package container

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/abema/go-mp4"
)

// mediaTrack is a track read from an mp4 file.
type mediaTrack struct {
	handler      string
	timescale    uint32
	durations    []uint32
	sync         []uint32
	syncTable    bool
	samples      []Sample
	descriptions [][]byte
	meta         Metadata
}

func (t *mediaTrack) Handler() string           { return t.handler }
func (t *mediaTrack) Timescale() uint32         { return t.timescale }
func (t *mediaTrack) SampleDurations() []uint32 { return t.durations }
func (t *mediaTrack) SyncSamples() []uint32     { return t.sync }
func (t *mediaTrack) HasSyncTable() bool        { return t.syncTable }
func (t *mediaTrack) SampleCount() int          { return len(t.samples) }
func (t *mediaTrack) Sample(i int) Sample       { return t.samples[i] }
func (t *mediaTrack) Descriptions() [][]byte    { return t.descriptions }
func (t *mediaTrack) Metadata() Metadata        { return t.meta }

// LoadFile parses the movie stored at path. The file is only held open while
// parsing; sample data is read again from path when a container is written.
func LoadFile(path string, opts ReadOptions) (*Movie, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f, FileSource(path), opts)
}

// Load parses a movie from r. Sample locations refer to src.
func Load(r io.ReadSeeker, src DataSource, opts ReadOptions) (*Movie, error) {
	br := opts.wrap(r)
	movie := &Movie{}
	sawMoov := false

	_, err := mp4.ReadBoxStructure(br, func(h *mp4.ReadHandle) (interface{}, error) {
		switch h.BoxInfo.Type {
		case mp4.BoxTypeMoov():
			sawMoov = true
			return h.Expand()
		case mp4.BoxTypeTrak():
			track, err := processTrak(br, &h.BoxInfo, src)
			if err != nil {
				return nil, err
			}
			movie.AddTrack(track)
		}
		return nil, nil
	})
	if err != nil {
		return nil, fmt.Errorf("read box structure of %s: %w", src.Name(), err)
	}
	if !sawMoov {
		return nil, fmt.Errorf("%w: %s: moov box not found", ErrMalformed, src.Name())
	}
	return movie, nil
}

var stblPath = mp4.BoxPath{mp4.BoxTypeMdia(), mp4.BoxTypeMinf(), mp4.BoxTypeStbl()}

func stbl(box mp4.BoxType) mp4.BoxPath {
	return append(append(mp4.BoxPath{}, stblPath...), box)
}

func processTrak(r io.ReadSeeker, bi *mp4.BoxInfo, src DataSource) (*mediaTrack, error) {
	bips, err := mp4.ExtractBoxesWithPayload(r, bi, []mp4.BoxPath{
		{mp4.BoxTypeTkhd()},
		{mp4.BoxTypeMdia(), mp4.BoxTypeMdhd()},
		{mp4.BoxTypeMdia(), mp4.BoxTypeHdlr()},
		stbl(mp4.BoxTypeStco()),
		stbl(mp4.BoxTypeCo64()),
		stbl(mp4.BoxTypeStts()),
		stbl(mp4.BoxTypeCtts()),
		stbl(mp4.BoxTypeStsc()),
		stbl(mp4.BoxTypeStsz()),
		stbl(mp4.BoxTypeStss()),
	})
	if err != nil {
		return nil, err
	}
	var tkhd *mp4.Tkhd
	var mdhd *mp4.Mdhd
	var hdlr *mp4.Hdlr
	var stco *mp4.Stco
	var co64 *mp4.Co64
	var stts *mp4.Stts
	var ctts *mp4.Ctts
	var stsc *mp4.Stsc
	var stsz *mp4.Stsz
	var stss *mp4.Stss

	for _, bip := range bips {
		switch bip.Info.Type {
		case mp4.BoxTypeTkhd():
			tkhd = bip.Payload.(*mp4.Tkhd)
		case mp4.BoxTypeMdhd():
			mdhd = bip.Payload.(*mp4.Mdhd)
		case mp4.BoxTypeHdlr():
			hdlr = bip.Payload.(*mp4.Hdlr)
		case mp4.BoxTypeStco():
			stco = bip.Payload.(*mp4.Stco)
		case mp4.BoxTypeCo64():
			co64 = bip.Payload.(*mp4.Co64)
		case mp4.BoxTypeStts():
			stts = bip.Payload.(*mp4.Stts)
		case mp4.BoxTypeCtts():
			ctts = bip.Payload.(*mp4.Ctts)
		case mp4.BoxTypeStsc():
			stsc = bip.Payload.(*mp4.Stsc)
		case mp4.BoxTypeStsz():
			stsz = bip.Payload.(*mp4.Stsz)
		case mp4.BoxTypeStss():
			stss = bip.Payload.(*mp4.Stss)
		}
	}

	if tkhd == nil {
		return nil, fmt.Errorf("%w: tkhd box not found", ErrMalformed)
	}
	if mdhd == nil {
		return nil, fmt.Errorf("%w: track %d: mdhd box not found", ErrMalformed, tkhd.TrackID)
	}
	if hdlr == nil {
		return nil, fmt.Errorf("%w: track %d: hdlr box not found", ErrMalformed, tkhd.TrackID)
	}
	if mdhd.Timescale == 0 {
		return nil, fmt.Errorf("%w: track %d: zero timescale", ErrMalformed, tkhd.TrackID)
	}

	track := &mediaTrack{
		handler:   string(hdlr.HandlerType[:]),
		timescale: mdhd.Timescale,
		meta: Metadata{
			TrackID:  tkhd.TrackID,
			Language: mdhd.Language,
			Width:    tkhd.Width,
			Height:   tkhd.Height,
			Volume:   tkhd.Volume,
			Name:     hdlr.Name,
		},
	}

	track.descriptions, err = readSampleEntries(r, bi)
	if err != nil {
		return nil, fmt.Errorf("track %d: %w", tkhd.TrackID, err)
	}

	if stts == nil {
		return nil, fmt.Errorf("%w: track %d: stts box not found", ErrMalformed, tkhd.TrackID)
	}
	for _, entry := range stts.Entries {
		for i := uint32(0); i < entry.SampleCount; i++ {
			track.durations = append(track.durations, entry.SampleDelta)
		}
	}
	n := len(track.durations)

	if stsz == nil {
		return nil, fmt.Errorf("%w: track %d: stsz box not found", ErrMalformed, tkhd.TrackID)
	}
	sizes := make([]uint32, n)
	if stsz.SampleSize != 0 {
		if int(stsz.SampleCount) != n {
			return nil, fmt.Errorf("%w: track %d: stsz has %d samples, stts has %d", ErrMalformed, tkhd.TrackID, stsz.SampleCount, n)
		}
		for i := range sizes {
			sizes[i] = stsz.SampleSize
		}
	} else {
		if len(stsz.EntrySize) != n {
			return nil, fmt.Errorf("%w: track %d: stsz has %d samples, stts has %d", ErrMalformed, tkhd.TrackID, len(stsz.EntrySize), n)
		}
		copy(sizes, stsz.EntrySize)
	}

	var chunkOffsets []uint64
	if stco != nil {
		for _, offset := range stco.ChunkOffset {
			chunkOffsets = append(chunkOffsets, uint64(offset))
		}
	} else if co64 != nil {
		chunkOffsets = append(chunkOffsets, co64.ChunkOffset...)
	} else if n > 0 {
		return nil, fmt.Errorf("%w: track %d: stco/co64 box not found", ErrMalformed, tkhd.TrackID)
	}

	if stsc == nil && n > 0 {
		return nil, fmt.Errorf("%w: track %d: stsc box not found", ErrMalformed, tkhd.TrackID)
	}
	track.samples = make([]Sample, 0, n)
	if stsc != nil {
		for si, entry := range stsc.Entries {
			if entry.FirstChunk == 0 {
				return nil, fmt.Errorf("%w: track %d: stsc entry %d starts at chunk 0", ErrMalformed, tkhd.TrackID, si)
			}
			end := uint32(len(chunkOffsets))
			if si != len(stsc.Entries)-1 && stsc.Entries[si+1].FirstChunk-1 < end {
				end = stsc.Entries[si+1].FirstChunk - 1
			}
			desc := int(entry.SampleDescriptionIndex) - 1
			if desc < 0 || desc >= len(track.descriptions) {
				return nil, fmt.Errorf("%w: track %d: sample description %d out of range", ErrMalformed, tkhd.TrackID, entry.SampleDescriptionIndex)
			}
			for ci := entry.FirstChunk - 1; ci < end; ci++ {
				offset := chunkOffsets[ci]
				for k := uint32(0); k < entry.SamplesPerChunk && len(track.samples) < n; k++ {
					size := sizes[len(track.samples)]
					track.samples = append(track.samples, Sample{
						Source:      src,
						Offset:      int64(offset),
						Size:        size,
						Description: desc,
					})
					offset += uint64(size)
				}
			}
		}
	}
	if len(track.samples) != n {
		return nil, fmt.Errorf("%w: track %d: chunks hold %d samples, stts has %d", ErrMalformed, tkhd.TrackID, len(track.samples), n)
	}

	if ctts != nil {
		var si int
		for _, entry := range ctts.Entries {
			offset := int32(entry.SampleOffsetV0)
			if ctts.GetVersion() == 1 {
				offset = entry.SampleOffsetV1
			}
			for i := uint32(0); i < entry.SampleCount && si < n; i++ {
				track.samples[si].CompositionOffset = offset
				si++
			}
		}
	}

	if stss != nil {
		track.syncTable = true
		track.sync = make([]uint32, 0, len(stss.SampleNumber))
		for _, num := range stss.SampleNumber {
			if num == 0 || int(num) > n {
				return nil, fmt.Errorf("%w: track %d: sync sample %d out of range", ErrMalformed, tkhd.TrackID, num)
			}
			idx := num - 1
			if k := len(track.sync); k > 0 && track.sync[k-1] >= idx {
				return nil, fmt.Errorf("%w: track %d: sync samples not increasing", ErrMalformed, tkhd.TrackID)
			}
			track.sync = append(track.sync, idx)
		}
	}

	return track, nil
}

// readSampleEntries returns the raw children of the track's stsd box.
func readSampleEntries(r io.ReadSeeker, trak *mp4.BoxInfo) ([][]byte, error) {
	bis, err := mp4.ExtractBox(r, trak, stbl(mp4.BoxTypeStsd()))
	if err != nil {
		return nil, err
	}
	if len(bis) == 0 {
		return nil, fmt.Errorf("%w: stsd box not found", ErrMalformed)
	}
	bi := bis[0]
	if _, err := bi.SeekToPayload(r); err != nil {
		return nil, err
	}
	payload := make([]byte, bi.Size-bi.HeaderSize)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return splitSampleEntries(payload)
}

// splitSampleEntries cuts an stsd payload (version, flags, entry count,
// entries) into its entries.
func splitSampleEntries(payload []byte) ([][]byte, error) {
	if len(payload) < 8 {
		return nil, fmt.Errorf("%w: stsd payload too short", ErrMalformed)
	}
	count := binary.BigEndian.Uint32(payload[4:8])
	rest := payload[8:]
	entries := make([][]byte, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(rest) < 8 {
			return nil, fmt.Errorf("%w: stsd entry %d truncated", ErrMalformed, i)
		}
		size := uint64(binary.BigEndian.Uint32(rest[:4]))
		switch size {
		case 0:
			size = uint64(len(rest))
		case 1:
			if len(rest) < 16 {
				return nil, fmt.Errorf("%w: stsd entry %d truncated", ErrMalformed, i)
			}
			size = binary.BigEndian.Uint64(rest[8:16])
		}
		if size < 8 || size > uint64(len(rest)) {
			return nil, fmt.Errorf("%w: stsd entry %d has size %d", ErrMalformed, i, size)
		}
		entries = append(entries, rest[:size:size])
		rest = rest[size:]
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: stsd has no sample entries", ErrMalformed)
	}
	return entries, nil
}
