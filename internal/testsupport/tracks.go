// Package testsupport builds in-memory tracks and movies for tests.
package testsupport

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/bluenviron/mediacommon/v2/pkg/formats/fmp4/seekablebuffer"

	"github.com/mattetti/mp4edit/container"
)

// SampleSize is the payload size of every generated sample.
const SampleSize = 8

// Track is an in-memory container.Track.
type Track struct {
	handler   string
	timescale uint32
	durations []uint32
	sync      []uint32
	entries   [][]byte
	source    *container.BytesSource
	meta      container.Metadata
	cts       []int32
}

func (t *Track) Handler() string           { return t.handler }
func (t *Track) Timescale() uint32         { return t.timescale }
func (t *Track) SampleDurations() []uint32 { return t.durations }
func (t *Track) SyncSamples() []uint32     { return t.sync }
func (t *Track) SampleCount() int          { return len(t.durations) }
func (t *Track) Descriptions() [][]byte    { return t.entries }
func (t *Track) Metadata() container.Metadata {
	return t.meta
}

func (t *Track) Sample(i int) container.Sample {
	s := container.Sample{
		Source: t.source,
		Offset: int64(i * SampleSize),
		Size:   SampleSize,
	}
	if i < len(t.cts) {
		s.CompositionOffset = t.cts[i]
	}
	return s
}

// Payload returns the bytes generated for sample i.
func (t *Track) Payload(i int) []byte {
	return t.source.Data[i*SampleSize : (i+1)*SampleSize]
}

// WithCompositionOffsets sets per-sample composition offsets.
func (t *Track) WithCompositionOffsets(cts ...int32) *Track {
	t.cts = cts
	return t
}

// WithEntry replaces the sample entry.
func (t *Track) WithEntry(entry []byte) *Track {
	t.entries = [][]byte{entry}
	return t
}

// NewTrack builds a track named id. Every sample carries SampleSize bytes
// derived from id and the sample index so tests can tell samples apart.
func NewTrack(id, handler string, timescale uint32, durations []uint32, sync ...uint32) *Track {
	data := make([]byte, 0, len(durations)*SampleSize)
	for i := range durations {
		payload := fmt.Sprintf("%-4.4s%04d", id, i%10000)
		data = append(data, payload[:SampleSize]...)
	}
	codec := "mp4a"
	if handler == container.HandlerVideo {
		codec = "avc1"
	}
	return &Track{
		handler:   handler,
		timescale: timescale,
		durations: durations,
		sync:      sync,
		entries:   [][]byte{SampleEntry(codec, 0)},
		source:    &container.BytesSource{ID: id, Data: data},
		meta:      container.Metadata{Language: [3]byte{21, 14, 4}},
	}
}

// Uniform returns n copies of d.
func Uniform(n int, d uint32) []uint32 {
	out := make([]uint32, n)
	for i := range out {
		out[i] = d
	}
	return out
}

// SampleEntry returns a minimal sample entry box of the given type. tag ends
// up in the reserved bytes so entries with different tags differ.
func SampleEntry(codec string, tag byte) []byte {
	entry := []byte{0, 0, 0, 16}
	entry = append(entry, codec[:4]...)
	entry = append(entry, 0, 0, 0, 0, 0, tag, 0, 1)
	return entry
}

// Encode writes m as an mp4 file in memory.
func Encode(t testing.TB, m *container.Movie) []byte {
	t.Helper()
	c, err := container.Build(m, container.DefaultReadOptions)
	if err != nil {
		t.Fatalf("build container: %v", err)
	}
	var buf seekablebuffer.Buffer
	if err := c.WriteContainer(&buf); err != nil {
		t.Fatalf("write container: %v", err)
	}
	return bytes.Clone(buf.Bytes())
}

// WriteFile writes m as an mp4 file under dir and returns its path.
func WriteFile(t testing.TB, dir, name string, m *container.Movie) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, Encode(t, m), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// ReadSample reads the bytes of sample i of tr.
func ReadSample(t testing.TB, tr container.Track, i int) []byte {
	t.Helper()
	s := tr.Sample(i)
	rc, err := s.Source.Open()
	if err != nil {
		t.Fatalf("open %s: %v", s.Source.Name(), err)
	}
	defer rc.Close()
	buf := make([]byte, s.Size)
	if _, err := rc.Seek(s.Offset, io.SeekStart); err != nil {
		t.Fatalf("seek: %v", err)
	}
	if _, err := io.ReadFull(rc, buf); err != nil {
		t.Fatalf("read: %v", err)
	}
	return buf
}
