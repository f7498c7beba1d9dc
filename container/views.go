package container

import (
	"bytes"
	"fmt"
	"sort"
)

// ClippedTrack narrows a track to the inclusive sample window [start, end].
// No sample data is copied.
type ClippedTrack struct {
	src        Track
	start, end int
	sync       []uint32
	syncTable  bool
}

func NewClippedTrack(src Track, start, end int) (*ClippedTrack, error) {
	n := src.SampleCount()
	if start < 0 || end < start || end >= n {
		return nil, fmt.Errorf("%w: [%d, %d] of %d samples", ErrInvalidClip, start, end, n)
	}
	c := &ClippedTrack{src: src, start: start, end: end, syncTable: hasSyncInfo(src)}
	for _, idx := range src.SyncSamples() {
		if int(idx) >= start && int(idx) <= end {
			c.sync = append(c.sync, idx-uint32(start))
		}
	}
	return c, nil
}

// Range returns the window in source sample indices.
func (c *ClippedTrack) Range() (start, end int) { return c.start, c.end }

func (c *ClippedTrack) Handler() string   { return c.src.Handler() }
func (c *ClippedTrack) Timescale() uint32 { return c.src.Timescale() }
func (c *ClippedTrack) SampleDurations() []uint32 {
	return c.src.SampleDurations()[c.start : c.end+1]
}
func (c *ClippedTrack) SyncSamples() []uint32  { return c.sync }
func (c *ClippedTrack) HasSyncTable() bool     { return c.syncTable }
func (c *ClippedTrack) SampleCount() int       { return c.end - c.start + 1 }
func (c *ClippedTrack) Sample(i int) Sample    { return c.src.Sample(c.start + i) }
func (c *ClippedTrack) Descriptions() [][]byte { return c.src.Descriptions() }
func (c *ClippedTrack) Metadata() Metadata     { return c.src.Metadata() }

// AppendTrack plays its constituent tracks back to back.
//
// Constituents must share a handler type. Identical sample descriptions are
// merged; differing ones are kept side by side and referenced per sample.
// Durations and composition offsets of constituents with another timescale
// are converted to the timescale of the first one.
type AppendTrack struct {
	parts        []Track
	firsts       []int   // index of the first sample of each part
	descMap      [][]int // part description index -> merged index
	descriptions [][]byte
	durations    []uint32
	offsets      [][]int32 // rescaled composition offsets, nil for parts in the first timescale
	sync         []uint32
	syncTable    bool
	count        int
}

func NewAppendTrack(tracks ...Track) (*AppendTrack, error) {
	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w: nothing to append", ErrIncompatibleTracks)
	}
	if tracks[0] == nil {
		return nil, fmt.Errorf("%w: track 0 is nil", ErrIncompatibleTracks)
	}
	a := &AppendTrack{parts: append([]Track(nil), tracks...)}
	handler := tracks[0].Handler()
	timescale := tracks[0].Timescale()

	anySync := false
	for i, t := range tracks {
		if t == nil {
			return nil, fmt.Errorf("%w: track %d is nil", ErrIncompatibleTracks, i)
		}
		if t.Handler() != handler {
			return nil, fmt.Errorf("%w: cannot append %q track to %q track", ErrIncompatibleTracks, t.Handler(), handler)
		}
		if hasSyncInfo(t) {
			anySync = true
		}
	}

	for _, t := range tracks {
		a.firsts = append(a.firsts, a.count)

		mapping := make([]int, len(t.Descriptions()))
		for di, desc := range t.Descriptions() {
			mapping[di] = a.addDescription(desc)
		}
		a.descMap = append(a.descMap, mapping)

		a.durations = append(a.durations, rescale(t.SampleDurations(), t.Timescale(), timescale)...)
		a.offsets = append(a.offsets, rescaleOffsets(t, timescale))

		if anySync {
			sync := t.SyncSamples()
			if !hasSyncInfo(t) {
				for i := 0; i < t.SampleCount(); i++ {
					a.sync = append(a.sync, uint32(a.count+i))
				}
			}
			for _, idx := range sync {
				a.sync = append(a.sync, uint32(a.count)+idx)
			}
		}
		a.count += t.SampleCount()
	}
	a.syncTable = anySync
	return a, nil
}

func (a *AppendTrack) addDescription(desc []byte) int {
	for i, d := range a.descriptions {
		if bytes.Equal(d, desc) {
			return i
		}
	}
	a.descriptions = append(a.descriptions, desc)
	return len(a.descriptions) - 1
}

// Parts returns the appended tracks in playback order.
func (a *AppendTrack) Parts() []Track { return a.parts }

func (a *AppendTrack) Handler() string           { return a.parts[0].Handler() }
func (a *AppendTrack) Timescale() uint32         { return a.parts[0].Timescale() }
func (a *AppendTrack) SampleDurations() []uint32 { return a.durations }
func (a *AppendTrack) SyncSamples() []uint32     { return a.sync }
func (a *AppendTrack) HasSyncTable() bool        { return a.syncTable }
func (a *AppendTrack) SampleCount() int          { return a.count }
func (a *AppendTrack) Descriptions() [][]byte    { return a.descriptions }
func (a *AppendTrack) Metadata() Metadata        { return a.parts[0].Metadata() }

func (a *AppendTrack) Sample(i int) Sample {
	p := sort.Search(len(a.firsts), func(k int) bool { return a.firsts[k] > i }) - 1
	s := a.parts[p].Sample(i - a.firsts[p])
	s.Description = a.descMap[p][s.Description]
	if off := a.offsets[p]; off != nil {
		s.CompositionOffset = off[i-a.firsts[p]]
	}
	return s
}

// rescaleOffsets returns the composition offsets of t converted to timescale,
// or nil when t already uses it.
func rescaleOffsets(t Track, timescale uint32) []int32 {
	from := t.Timescale()
	if from == timescale || from == 0 {
		return nil
	}
	out := make([]int32, t.SampleCount())
	for i := range out {
		off := int64(t.Sample(i).CompositionOffset) * int64(timescale)
		half := int64(from) / 2
		if off < 0 {
			half = -half
		}
		out[i] = int32((off + half) / int64(from))
	}
	return out
}

// rescale converts durations from one timescale to another, rounding on the
// running total so the converted track does not drift.
func rescale(durations []uint32, from, to uint32) []uint32 {
	if from == to || from == 0 {
		return durations
	}
	out := make([]uint32, len(durations))
	var total, emitted uint64
	for i, d := range durations {
		total += uint64(d)
		target := (total*uint64(to) + uint64(from)/2) / uint64(from)
		out[i] = uint32(target - emitted)
		emitted = target
	}
	return out
}
