package container_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mattetti/mp4edit/container"
	"github.com/mattetti/mp4edit/internal/testsupport"
)

func TestClippedTrack(t *testing.T) {
	src := testsupport.NewTrack("v", container.HandlerVideo, 10, []uint32{1, 2, 3, 4, 5, 6}, 0, 2, 4)

	c, err := container.NewClippedTrack(src, 1, 4)
	require.NoError(t, err)

	start, end := c.Range()
	require.Equal(t, 1, start)
	require.Equal(t, 4, end)
	require.Equal(t, 4, c.SampleCount())
	require.Equal(t, []uint32{2, 3, 4, 5}, c.SampleDurations())
	require.Equal(t, []uint32{1, 3}, c.SyncSamples())
	require.Equal(t, src.Sample(1), c.Sample(0))
	require.Equal(t, src.Sample(4), c.Sample(3))
	require.Equal(t, src.Handler(), c.Handler())
	require.Equal(t, src.Timescale(), c.Timescale())
	require.Equal(t, src.Descriptions(), c.Descriptions())
}

func TestClippedTrackSingleSample(t *testing.T) {
	src := testsupport.NewTrack("a", container.HandlerAudio, 10, []uint32{1, 2, 3})

	c, err := container.NewClippedTrack(src, 2, 2)
	require.NoError(t, err)
	require.Equal(t, 1, c.SampleCount())
	require.Equal(t, []uint32{3}, c.SampleDurations())
	require.Empty(t, c.SyncSamples())
	require.True(t, container.EverySampleSync(c))
}

func TestClippedTrackWithoutSyncInWindow(t *testing.T) {
	src := testsupport.NewTrack("v", container.HandlerVideo, 10, testsupport.Uniform(20, 1), 0, 10)

	c, err := container.NewClippedTrack(src, 3, 5)
	require.NoError(t, err)
	require.Empty(t, c.SyncSamples())
	require.True(t, c.HasSyncTable())
	require.False(t, container.EverySampleSync(c))

	// the empty table survives appending
	app, err := container.NewAppendTrack(c)
	require.NoError(t, err)
	require.Empty(t, app.SyncSamples())
	require.False(t, container.EverySampleSync(app))
}

func TestClippedTrackInvalidRange(t *testing.T) {
	src := testsupport.NewTrack("a", container.HandlerAudio, 10, []uint32{1, 2, 3})

	for _, r := range [][2]int{{-1, 1}, {2, 1}, {0, 3}, {3, 3}} {
		_, err := container.NewClippedTrack(src, r[0], r[1])
		require.ErrorIs(t, err, container.ErrInvalidClip, "range %v", r)
	}
}

func TestAppendTrack(t *testing.T) {
	a := testsupport.NewTrack("a1", container.HandlerAudio, 1000, testsupport.Uniform(3, 1000))
	b := testsupport.NewTrack("a2", container.HandlerAudio, 1000, testsupport.Uniform(2, 1000))

	app, err := container.NewAppendTrack(a, b)
	require.NoError(t, err)

	require.Equal(t, container.HandlerAudio, app.Handler())
	require.Equal(t, 5, app.SampleCount())
	require.Equal(t, 5.0, container.Duration(app))
	require.Len(t, app.Descriptions(), 1)
	require.Empty(t, app.SyncSamples())
	require.Equal(t, []container.Track{a, b}, app.Parts())

	for i := 0; i < 3; i++ {
		require.Equal(t, a.Sample(i), app.Sample(i))
	}
	for i := 0; i < 2; i++ {
		require.Equal(t, b.Sample(i), app.Sample(3+i))
	}
}

func TestAppendTrackDescriptions(t *testing.T) {
	a := testsupport.NewTrack("a1", container.HandlerAudio, 1000, testsupport.Uniform(2, 1000)).
		WithEntry(testsupport.SampleEntry("mp4a", 1))
	b := testsupport.NewTrack("a2", container.HandlerAudio, 1000, testsupport.Uniform(2, 1000)).
		WithEntry(testsupport.SampleEntry("mp4a", 2))
	c := testsupport.NewTrack("a3", container.HandlerAudio, 1000, testsupport.Uniform(2, 1000)).
		WithEntry(testsupport.SampleEntry("mp4a", 1))

	app, err := container.NewAppendTrack(a, b, c)
	require.NoError(t, err)
	require.Equal(t, [][]byte{
		testsupport.SampleEntry("mp4a", 1),
		testsupport.SampleEntry("mp4a", 2),
	}, app.Descriptions())

	var descs []int
	for i := 0; i < app.SampleCount(); i++ {
		descs = append(descs, app.Sample(i).Description)
	}
	require.Equal(t, []int{0, 0, 1, 1, 0, 0}, descs)
}

func TestAppendTrackRescales(t *testing.T) {
	a := testsupport.NewTrack("v1", container.HandlerVideo, 1000, []uint32{40, 40})
	b := testsupport.NewTrack("v2", container.HandlerVideo, 90000, []uint32{3600, 3600})

	app, err := container.NewAppendTrack(a, b)
	require.NoError(t, err)
	require.Equal(t, uint32(1000), app.Timescale())
	require.Equal(t, []uint32{40, 40, 40, 40}, app.SampleDurations())
}

func TestAppendTrackRescalesCompositionOffsets(t *testing.T) {
	a := testsupport.NewTrack("v1", container.HandlerVideo, 10, []uint32{1, 1}).
		WithCompositionOffsets(1, 0)
	b := testsupport.NewTrack("v2", container.HandlerVideo, 1000, []uint32{100, 100, 100}).
		WithCompositionOffsets(100, -100, 250)

	app, err := container.NewAppendTrack(a, b)
	require.NoError(t, err)
	require.Equal(t, uint32(10), app.Timescale())

	var cts []int32
	for i := 0; i < app.SampleCount(); i++ {
		cts = append(cts, app.Sample(i).CompositionOffset)
	}
	require.Equal(t, []int32{1, 0, 1, -1, 3}, cts)
}

func TestAppendTrackSyncSamples(t *testing.T) {
	withSync := testsupport.NewTrack("v1", container.HandlerVideo, 10, testsupport.Uniform(4, 1), 0, 2)
	allSync := testsupport.NewTrack("v2", container.HandlerVideo, 10, testsupport.Uniform(2, 1))
	moreSync := testsupport.NewTrack("v3", container.HandlerVideo, 10, testsupport.Uniform(3, 1), 1)

	app, err := container.NewAppendTrack(withSync, allSync, moreSync)
	require.NoError(t, err)
	require.Equal(t, []uint32{0, 2, 4, 5, 7}, app.SyncSamples())
}

func TestAppendTrackErrors(t *testing.T) {
	audio := testsupport.NewTrack("a", container.HandlerAudio, 10, []uint32{1})
	video := testsupport.NewTrack("v", container.HandlerVideo, 10, []uint32{1})

	_, err := container.NewAppendTrack()
	require.ErrorIs(t, err, container.ErrIncompatibleTracks)

	_, err = container.NewAppendTrack(audio, video)
	require.ErrorIs(t, err, container.ErrIncompatibleTracks)

	_, err = container.NewAppendTrack(nil, audio)
	require.ErrorIs(t, err, container.ErrIncompatibleTracks)

	_, err = container.NewAppendTrack(audio, nil)
	require.ErrorIs(t, err, container.ErrIncompatibleTracks)
}

func TestAppendTrackOfEmptyTrack(t *testing.T) {
	empty := testsupport.NewTrack("a", container.HandlerAudio, 10, nil)

	app, err := container.NewAppendTrack(empty)
	require.NoError(t, err)
	require.Zero(t, app.SampleCount())
	require.Zero(t, container.Duration(app))
}
