package container

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/abema/go-mp4"
)

// MovieTimescale is the timescale of mvhd and tkhd durations in built files.
const MovieTimescale = 1000

var ErrEmptyMovie = errors.New("movie has no tracks")

// Container is a movie laid out for writing: every sample table is computed
// and the interleaving order of the sample data is fixed. Nothing has been
// read from the sample sources yet.
type Container struct {
	tracks   []*trackPlan
	order    []sampleRef
	duration uint64 // in MovieTimescale units
	opts     ReadOptions
}

type sampleRef struct {
	track  int
	sample int
}

type trackPlan struct {
	track         Track
	id            uint32
	duration      uint64 // in MovieTimescale units
	mediaDuration uint64 // in the track's timescale
	stts          []mp4.SttsEntry
	ctts          []mp4.CttsEntry
	signed        bool
	hasStss       bool
	stss          []uint32
	stsc          []mp4.StscEntry
	sizes         []uint32
	offsets       []uint64
}

// Build lays out m for writing. Sample data is read from the track sources
// only by WriteContainer.
func Build(m *Movie, opts ReadOptions) (*Container, error) {
	tracks := m.Tracks()
	if len(tracks) == 0 {
		return nil, ErrEmptyMovie
	}
	c := &Container{opts: opts}
	var times [][]float64
	for i, t := range tracks {
		if t.Timescale() == 0 {
			return nil, fmt.Errorf("%w: track %d has zero timescale", ErrMalformed, i+1)
		}
		plan, err := planTrack(t, uint32(i+1))
		if err != nil {
			return nil, err
		}
		if plan.duration > c.duration {
			c.duration = plan.duration
		}
		c.tracks = append(c.tracks, plan)
		times = append(times, SampleTimes(t))
	}

	for ti, plan := range c.tracks {
		for si := 0; si < plan.track.SampleCount(); si++ {
			c.order = append(c.order, sampleRef{track: ti, sample: si})
		}
	}
	// interleave by decode time, keeping track order on ties
	sort.SliceStable(c.order, func(a, b int) bool {
		ra, rb := c.order[a], c.order[b]
		ta, tb := times[ra.track][ra.sample], times[rb.track][rb.sample]
		if ta != tb {
			return ta < tb
		}
		return ra.track < rb.track
	})
	return c, nil
}

func planTrack(t Track, id uint32) (*trackPlan, error) {
	n := t.SampleCount()
	plan := &trackPlan{
		track:   t,
		id:      id,
		sizes:   make([]uint32, n),
		offsets: make([]uint64, n),
	}

	var total uint64
	for _, d := range t.SampleDurations() {
		total += uint64(d)
		if k := len(plan.stts); k > 0 && plan.stts[k-1].SampleDelta == d {
			plan.stts[k-1].SampleCount++
			continue
		}
		plan.stts = append(plan.stts, mp4.SttsEntry{SampleCount: 1, SampleDelta: d})
	}
	plan.mediaDuration = total
	plan.duration = uint64(math.Round(float64(total) * MovieTimescale / float64(t.Timescale())))

	hasCTS := false
	lastDesc := -1
	for i := 0; i < n; i++ {
		s := t.Sample(i)
		plan.sizes[i] = s.Size
		if s.CompositionOffset != 0 {
			hasCTS = true
		}
		if s.CompositionOffset < 0 {
			plan.signed = true
		}
		if s.Description != lastDesc {
			plan.stsc = append(plan.stsc, mp4.StscEntry{
				FirstChunk:             uint32(i + 1),
				SamplesPerChunk:        1,
				SampleDescriptionIndex: uint32(s.Description + 1),
			})
			lastDesc = s.Description
		}
	}
	if hasCTS {
		for i := 0; i < n; i++ {
			off := t.Sample(i).CompositionOffset
			if k := len(plan.ctts); k > 0 && plan.ctts[k-1].SampleOffsetV1 == off {
				plan.ctts[k-1].SampleCount++
				continue
			}
			plan.ctts = append(plan.ctts, mp4.CttsEntry{SampleCount: 1, SampleOffsetV0: uint32(off), SampleOffsetV1: off})
		}
	}

	sync := t.SyncSamples()
	for i, idx := range sync {
		if int(idx) >= n {
			return nil, fmt.Errorf("%w: track %d: sync sample %d out of range", ErrMalformed, id, idx+1)
		}
		if i > 0 && sync[i-1] >= idx {
			return nil, fmt.Errorf("%w: track %d: sync samples not increasing", ErrMalformed, id)
		}
	}
	if !EverySampleSync(t) {
		plan.hasStss = true
		plan.stss = make([]uint32, len(sync))
		for i, idx := range sync {
			plan.stss[i] = idx + 1
		}
	}
	return plan, nil
}

// WriteContainer writes ftyp, mdat and moov to ws starting at its current
// position. Every source opened for the sample copy is closed before it
// returns.
func (c *Container) WriteContainer(ws io.WriteSeeker) (err error) {
	w := mp4.NewWriter(ws)

	if err := writeBox(w, &mp4.Ftyp{
		MajorBrand:   [4]byte{'i', 's', 'o', 'm'},
		MinorVersion: 512,
		CompatibleBrands: []mp4.CompatibleBrandElem{
			{CompatibleBrand: [4]byte{'i', 's', 'o', 'm'}},
			{CompatibleBrand: [4]byte{'i', 's', 'o', '2'}},
			{CompatibleBrand: [4]byte{'m', 'p', '4', '1'}},
		},
	}, nil); err != nil {
		return err
	}

	readers := newSourcePool(c.opts)
	defer func() {
		if cerr := readers.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	bi, err := w.StartBox(&mp4.BoxInfo{Type: mp4.BoxTypeMdat()})
	if err != nil {
		return err
	}
	offset := bi.Offset + bi.HeaderSize
	for _, ref := range c.order {
		plan := c.tracks[ref.track]
		s := plan.track.Sample(ref.sample)
		r, err := readers.Get(s.Source)
		if err != nil {
			return err
		}
		if _, err := r.Seek(s.Offset, io.SeekStart); err != nil {
			return fmt.Errorf("seek sample %d of track %d in %s: %w", ref.sample, plan.id, s.Source.Name(), err)
		}
		if _, err := io.CopyN(w, r, int64(s.Size)); err != nil {
			return fmt.Errorf("copy sample %d of track %d from %s: %w", ref.sample, plan.id, s.Source.Name(), err)
		}
		plan.offsets[ref.sample] = offset
		offset += uint64(s.Size)
	}
	if _, err := w.EndBox(); err != nil {
		return err
	}

	return writeBox(w, &mp4.Moov{}, func() error {
		if err := writeBox(w, c.mvhd(), nil); err != nil {
			return err
		}
		for _, plan := range c.tracks {
			if err := plan.writeTrak(w); err != nil {
				return err
			}
		}
		return nil
	})
}

var identityMatrix = [9]int32{0x00010000, 0, 0, 0, 0x00010000, 0, 0, 0, 0x40000000}

func (c *Container) mvhd() *mp4.Mvhd {
	mvhd := &mp4.Mvhd{
		Timescale:   MovieTimescale,
		DurationV0:  uint32(c.duration),
		Rate:        0x00010000,
		Volume:      0x0100,
		Matrix:      identityMatrix,
		NextTrackID: uint32(len(c.tracks) + 1),
	}
	if c.duration > math.MaxUint32 {
		mvhd.SetVersion(1)
		mvhd.DurationV1 = c.duration
	}
	return mvhd
}

func (p *trackPlan) writeTrak(w *mp4.Writer) error {
	meta := p.track.Metadata()
	handler := p.track.Handler()

	tkhd := &mp4.Tkhd{
		FullBox:    mp4.FullBox{Flags: [3]byte{0, 0, 3}},
		TrackID:    p.id,
		DurationV0: uint32(p.duration),
		Matrix:     identityMatrix,
	}
	if p.duration > math.MaxUint32 {
		tkhd.SetVersion(1)
		tkhd.DurationV1 = p.duration
	}
	switch handler {
	case HandlerAudio:
		tkhd.Volume = meta.Volume
		if tkhd.Volume == 0 {
			tkhd.Volume = 0x0100
		}
	case HandlerVideo:
		tkhd.Width = meta.Width
		tkhd.Height = meta.Height
	}

	var hdlrType [4]byte
	copy(hdlrType[:], handler)

	return writeBox(w, &mp4.Trak{}, func() error {
		if err := writeBox(w, tkhd, nil); err != nil {
			return err
		}
		return writeBox(w, &mp4.Mdia{}, func() error {
			mdhd := &mp4.Mdhd{
				Timescale:  p.track.Timescale(),
				DurationV0: uint32(p.mediaDuration),
				Language:   meta.Language,
			}
			if p.mediaDuration > math.MaxUint32 {
				mdhd.SetVersion(1)
				mdhd.DurationV1 = p.mediaDuration
			}
			if err := writeBox(w, mdhd, nil); err != nil {
				return err
			}
			if err := writeBox(w, &mp4.Hdlr{HandlerType: hdlrType, Name: handlerName(handler, meta.Name)}, nil); err != nil {
				return err
			}
			return writeBox(w, &mp4.Minf{}, func() error {
				switch handler {
				case HandlerAudio:
					if err := writeBox(w, &mp4.Smhd{}, nil); err != nil {
						return err
					}
				case HandlerVideo:
					if err := writeBox(w, &mp4.Vmhd{FullBox: mp4.FullBox{Flags: [3]byte{0, 0, 1}}}, nil); err != nil {
						return err
					}
				}
				if err := writeBox(w, &mp4.Dinf{}, func() error {
					return writeBox(w, &mp4.Dref{EntryCount: 1}, func() error {
						return writeBox(w, &mp4.Url{FullBox: mp4.FullBox{Flags: [3]byte{0, 0, 1}}}, nil)
					})
				}); err != nil {
					return err
				}
				return writeBox(w, &mp4.Stbl{}, func() error { return p.writeStbl(w) })
			})
		})
	})
}

func (p *trackPlan) writeStbl(w *mp4.Writer) error {
	descs := p.track.Descriptions()
	if err := writeBox(w, &mp4.Stsd{EntryCount: uint32(len(descs))}, func() error {
		for _, d := range descs {
			if _, err := w.Write(d); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}
	if err := writeBox(w, &mp4.Stts{EntryCount: uint32(len(p.stts)), Entries: p.stts}, nil); err != nil {
		return err
	}
	if len(p.ctts) > 0 {
		ctts := &mp4.Ctts{EntryCount: uint32(len(p.ctts)), Entries: p.ctts}
		if p.signed {
			ctts.SetVersion(1)
		}
		if err := writeBox(w, ctts, nil); err != nil {
			return err
		}
	}
	if p.hasStss {
		if err := writeBox(w, &mp4.Stss{EntryCount: uint32(len(p.stss)), SampleNumber: p.stss}, nil); err != nil {
			return err
		}
	}
	if err := writeBox(w, &mp4.Stsc{EntryCount: uint32(len(p.stsc)), Entries: p.stsc}, nil); err != nil {
		return err
	}
	if err := writeBox(w, &mp4.Stsz{SampleCount: uint32(len(p.sizes)), EntrySize: p.sizes}, nil); err != nil {
		return err
	}
	// one sample per chunk
	return writeBox(w, &mp4.Co64{EntryCount: uint32(len(p.offsets)), ChunkOffset: p.offsets}, nil)
}

func writeBox(w *mp4.Writer, box mp4.IImmutableBox, children func() error) error {
	bi, err := w.StartBox(&mp4.BoxInfo{Type: box.GetType()})
	if err != nil {
		return err
	}
	if _, err := mp4.Marshal(w, box, bi.Context); err != nil {
		return fmt.Errorf("marshal %s: %w", box.GetType(), err)
	}
	if children != nil {
		if err := children(); err != nil {
			return err
		}
	}
	_, err = w.EndBox()
	return err
}

func handlerName(handler, name string) string {
	if name != "" {
		return name
	}
	switch handler {
	case HandlerAudio:
		return "SoundHandler"
	case HandlerVideo:
		return "VideoHandler"
	}
	return "Handler"
}
