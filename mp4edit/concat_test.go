package mp4edit

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mattetti/mp4edit/container"
	"github.com/mattetti/mp4edit/internal/testsupport"
	"github.com/mattetti/mp4edit/task"
)

func TestConcatenateAudio(t *testing.T) {
	a := testsupport.NewTrack("a1", container.HandlerAudio, 1000, testsupport.Uniform(3, 1000))
	b := testsupport.NewTrack("a2", container.HandlerAudio, 1000, testsupport.Uniform(2, 1000))

	m, err := Concatenate(
		task.Value(container.NewMovie(a)),
		task.Value(container.NewMovie(b)),
	).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, m.Tracks(), 1)
	require.Equal(t, 5.0, m.Duration())

	got := m.Tracks()[0]
	for i := 0; i < 3; i++ {
		require.Equal(t, a.Sample(i), got.Sample(i))
	}
	for i := 0; i < 2; i++ {
		require.Equal(t, b.Sample(i), got.Sample(3+i))
	}
}

func TestConcatenateAudioAndVideo(t *testing.T) {
	movie := func(id string, n int) *container.Movie {
		return container.NewMovie(
			testsupport.NewTrack(id+"v", container.HandlerVideo, 10, testsupport.Uniform(n, 1), 0),
			testsupport.NewTrack(id+"a", container.HandlerAudio, 10, testsupport.Uniform(n, 1)),
		)
	}

	m, err := Concatenate(task.Value(movie("x", 4)), task.Value(movie("y", 6))).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, m.Tracks(), 2)
	require.Equal(t, container.HandlerAudio, m.Tracks()[0].Handler())
	require.Equal(t, container.HandlerVideo, m.Tracks()[1].Handler())
	require.Equal(t, 10, m.Tracks()[1].SampleCount())
	require.Equal(t, []uint32{0, 4}, m.Tracks()[1].SyncSamples())
}

func TestConcatenateUsesFirstTrackOfEachKind(t *testing.T) {
	first := testsupport.NewTrack("a1", container.HandlerAudio, 10, testsupport.Uniform(2, 1))
	second := testsupport.NewTrack("a2", container.HandlerAudio, 10, testsupport.Uniform(5, 1))
	other := testsupport.NewTrack("a3", container.HandlerAudio, 10, testsupport.Uniform(1, 1))

	m, err := Concatenate(
		task.Value(container.NewMovie(first, second)),
		task.Value(container.NewMovie(other)),
	).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, m.Tracks()[0].SampleCount())
}

func TestConcatenateFailure(t *testing.T) {
	errLoad := errors.New("load failed")
	a := testsupport.NewTrack("a", container.HandlerAudio, 10, testsupport.Uniform(2, 1))

	m, err := Concatenate(
		task.Value(container.NewMovie(a)),
		task.Fail[*container.Movie](errLoad),
	).Run(context.Background())
	require.ErrorIs(t, err, errLoad)
	require.Nil(t, m)
}

func TestConcatenateMissingTrack(t *testing.T) {
	full := container.NewMovie(
		testsupport.NewTrack("v", container.HandlerVideo, 10, testsupport.Uniform(2, 1)),
		testsupport.NewTrack("a", container.HandlerAudio, 10, testsupport.Uniform(2, 1)),
	)
	audioOnly := container.NewMovie(testsupport.NewTrack("a2", container.HandlerAudio, 10, testsupport.Uniform(2, 1)))

	_, err := Concatenate(task.Value(full), task.Value(audioOnly)).Run(context.Background())
	require.ErrorIs(t, err, ErrMissingTrack)
}

func TestConcatenateNoTracks(t *testing.T) {
	subtitles := container.NewMovie(testsupport.NewTrack("s", "subt", 10, testsupport.Uniform(2, 1)))

	_, err := Concatenate(task.Value(subtitles), task.Value(container.NewMovie())).Run(context.Background())
	require.ErrorIs(t, err, ErrNoTracks)

	_, err = Concatenate().Run(context.Background())
	require.ErrorIs(t, err, ErrNoTracks)
}

func TestConcatenateSeqIsDeferred(t *testing.T) {
	a := testsupport.NewTrack("a", container.HandlerAudio, 10, testsupport.Uniform(2, 1))
	consumed := false
	seq := func(yield func(task.Task[*container.Movie]) bool) {
		consumed = true
		if !yield(task.Value(container.NewMovie(a))) {
			return
		}
		yield(task.Value(container.NewMovie(a)))
	}

	concat := ConcatenateSeq(seq)
	require.False(t, consumed)

	m, err := concat.Run(context.Background())
	require.NoError(t, err)
	require.True(t, consumed)
	require.Equal(t, 4, m.Tracks()[0].SampleCount())
}

func TestConcatenateInto(t *testing.T) {
	dir := t.TempDir()
	first := testsupport.WriteFile(t, dir, "first.mp4", container.NewMovie(
		testsupport.NewTrack("v1", container.HandlerVideo, 10, testsupport.Uniform(10, 1), 0, 5),
		testsupport.NewTrack("a1", container.HandlerAudio, 1000, testsupport.Uniform(10, 100)),
	))
	second := testsupport.WriteFile(t, dir, "second.mp4", container.NewMovie(
		testsupport.NewTrack("v2", container.HandlerVideo, 10, testsupport.Uniform(5, 1), 0),
		testsupport.NewTrack("a2", container.HandlerAudio, 1000, testsupport.Uniform(5, 100)),
	))
	dest := filepath.Join(dir, "joined.mp4")

	out, err := ConcatenateInto(dest, []task.Task[*container.Movie]{Load(first), Load(second)}).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, dest, out)

	m, err := Load(dest).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, m.Tracks(), 2)
	require.InDelta(t, 1.5, m.Duration(), 1e-9)
	require.Equal(t, []uint32{0, 5, 10}, m.Tracks()[1].SyncSamples())
}
