package container

import "errors"

// Handler types of the tracks the editor knows by name.
const (
	HandlerAudio = "soun"
	HandlerVideo = "vide"
)

var (
	ErrMalformed          = errors.New("malformed mp4")
	ErrInvalidClip        = errors.New("invalid clip range")
	ErrIncompatibleTracks = errors.New("incompatible tracks")
)

// Track is the read-only view of a track that the editing operations work on.
// Loaded tracks, clipped tracks and appended tracks all satisfy it.
type Track interface {
	Handler() string
	// Timescale is the number of time units per second.
	Timescale() uint32
	// SampleDurations holds one duration per sample, in timescale units.
	SampleDurations() []uint32
	// SyncSamples lists 0-based sample indices at which decoding may start.
	// An empty list means every sample is a sync sample, unless the track
	// implements SyncTabler and reports a sync table.
	SyncSamples() []uint32
	SampleCount() int
	// Sample locates the data of sample i.
	Sample(i int) Sample
	// Descriptions returns the raw sample entries (stsd children).
	Descriptions() [][]byte
	Metadata() Metadata
}

// SyncTabler is implemented by tracks that can carry a sync table listing no
// samples at all.
type SyncTabler interface {
	HasSyncTable() bool
}

// EverySampleSync reports whether decoding may start at any sample of t.
func EverySampleSync(t Track) bool {
	sync := t.SyncSamples()
	if len(sync) == 0 {
		st, ok := t.(SyncTabler)
		return !ok || !st.HasSyncTable()
	}
	return len(sync) == t.SampleCount()
}

// hasSyncInfo reports whether t carries a sync table, even an empty one.
func hasSyncInfo(t Track) bool {
	if len(t.SyncSamples()) > 0 {
		return true
	}
	st, ok := t.(SyncTabler)
	return ok && st.HasSyncTable()
}

// Sample locates one sample's bytes inside a DataSource.
type Sample struct {
	Source            DataSource
	Offset            int64
	Size              uint32
	CompositionOffset int32
	// Description is a 0-based index into the owning track's Descriptions.
	Description int
}

// Metadata is the header information carried from tkhd/mdhd/hdlr.
type Metadata struct {
	TrackID  uint32
	Language [3]byte // packed ISO-639-2/T as stored in mdhd
	Width    uint32  // 16.16 fixed point
	Height   uint32  // 16.16 fixed point
	Volume   int16   // 8.8 fixed point
	Name     string
}

// Duration returns the track length in seconds.
func Duration(t Track) float64 {
	ts := t.Timescale()
	if ts == 0 {
		return 0
	}
	var total uint64
	for _, d := range t.SampleDurations() {
		total += uint64(d)
	}
	return float64(total) / float64(ts)
}

// SampleTimes returns the start time in seconds of every sample.
func SampleTimes(t Track) []float64 {
	durations := t.SampleDurations()
	times := make([]float64, len(durations))
	ts := float64(t.Timescale())
	var elapsed uint64
	for i, d := range durations {
		times[i] = float64(elapsed) / ts
		elapsed += uint64(d)
	}
	return times
}

// SyncSampleTimes returns the start time in seconds of every sync sample.
// Out of range indices are ignored.
func SyncSampleTimes(t Track) []float64 {
	sync := t.SyncSamples()
	if len(sync) == 0 {
		return nil
	}
	times := SampleTimes(t)
	out := make([]float64, 0, len(sync))
	for _, idx := range sync {
		if int(idx) < len(times) {
			out = append(out, times[idx])
		}
	}
	return out
}

// Movie is an ordered list of tracks. Track order is multiplexing order.
type Movie struct {
	tracks []Track
}

func NewMovie(tracks ...Track) *Movie {
	return &Movie{tracks: append([]Track(nil), tracks...)}
}

func (m *Movie) Tracks() []Track {
	return m.tracks
}

// SetTracks replaces the track list wholesale.
func (m *Movie) SetTracks(tracks []Track) {
	m.tracks = tracks
}

func (m *Movie) AddTrack(t Track) {
	m.tracks = append(m.tracks, t)
}

// Duration returns the length of the longest track in seconds.
func (m *Movie) Duration() float64 {
	var longest float64
	for _, t := range m.tracks {
		if d := Duration(t); d > longest {
			longest = d
		}
	}
	return longest
}
