package container

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRescale(t *testing.T) {
	for _, ca := range []struct {
		name      string
		durations []uint32
		from, to  uint32
		out       []uint32
	}{
		{"same timescale", []uint32{10, 20}, 1000, 1000, []uint32{10, 20}},
		{"upscale", []uint32{1, 2}, 10, 1000, []uint32{100, 200}},
		{"rounding does not drift", []uint32{1, 1, 1}, 3, 1000, []uint32{333, 334, 333}},
		{"downscale", []uint32{3000, 3000, 3000}, 90000, 1000, []uint32{33, 34, 33}},
	} {
		t.Run(ca.name, func(t *testing.T) {
			out := rescale(ca.durations, ca.from, ca.to)
			require.Equal(t, ca.out, out)
			require.Equal(t, sum(ca.durations)*uint64(ca.to)/uint64(ca.from), sum(out))
		})
	}
}

func TestSplitSampleEntries(t *testing.T) {
	entry := func(codec string, extra ...byte) []byte {
		b := []byte{0, 0, 0, byte(8 + len(extra))}
		b = append(b, codec...)
		return append(b, extra...)
	}
	header := func(count byte) []byte { return []byte{0, 0, 0, 0, 0, 0, 0, count} }

	t.Run("two entries", func(t *testing.T) {
		a, b := entry("mp4a", 1, 2), entry("avc1", 3)
		payload := append(append(header(2), a...), b...)
		entries, err := splitSampleEntries(payload)
		require.NoError(t, err)
		require.Equal(t, [][]byte{a, b}, entries)
	})

	t.Run("size zero runs to the end", func(t *testing.T) {
		payload := append(header(1), 0, 0, 0, 0, 'm', 'p', '4', 'a', 9, 9)
		entries, err := splitSampleEntries(payload)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		require.Len(t, entries[0], 10)
	})

	t.Run("large size", func(t *testing.T) {
		e := []byte{0, 0, 0, 1, 'm', 'p', '4', 'a', 0, 0, 0, 0, 0, 0, 0, 18, 7, 7}
		entries, err := splitSampleEntries(append(header(1), e...))
		require.NoError(t, err)
		require.Equal(t, [][]byte{e}, entries)
	})

	for _, ca := range []struct {
		name    string
		payload []byte
	}{
		{"short payload", []byte{0, 0, 0}},
		{"no entries", header(0)},
		{"truncated entry", append(header(1), 0, 0, 0, 20, 'm', 'p', '4', 'a')},
		{"missing entry", append(header(2), entry("mp4a")...)},
		{"undersized entry", append(header(1), 0, 0, 0, 4, 'm', 'p', '4', 'a')},
	} {
		t.Run(ca.name, func(t *testing.T) {
			_, err := splitSampleEntries(ca.payload)
			require.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestSourcePoolKeysOnSource(t *testing.T) {
	pool := newSourcePool(DefaultReadOptions)
	defer pool.Close()

	first := &BytesSource{ID: "clip", Data: []byte("first")}
	second := &BytesSource{ID: "clip", Data: []byte("other")}
	read := func(src DataSource) string {
		t.Helper()
		r, err := pool.Get(src)
		require.NoError(t, err)
		_, err = r.Seek(0, io.SeekStart)
		require.NoError(t, err)
		buf := make([]byte, 5)
		_, err = io.ReadFull(r, buf)
		require.NoError(t, err)
		return string(buf)
	}

	require.Equal(t, "first", read(first))
	require.Equal(t, "other", read(second))
	require.Equal(t, "first", read(first))
	require.Len(t, pool.readers, 2)
}

func sum(durations []uint32) uint64 {
	var total uint64
	for _, d := range durations {
		total += uint64(d)
	}
	return total
}
