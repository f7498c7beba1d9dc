package mp4edit

import (
	"github.com/mattetti/mp4edit/container"
	"github.com/mattetti/mp4edit/task"
)

// TrackPredicate reports whether a track should be selected.
type TrackPredicate func(container.Track) bool

var (
	// AudioTrack selects sound tracks.
	AudioTrack = HandlerTrack(container.HandlerAudio)
	// VideoTrack selects video tracks.
	VideoTrack = HandlerTrack(container.HandlerVideo)
)

// HandlerTrack selects tracks whose handler type is handler. An empty
// handler selects nothing.
func HandlerTrack(handler string) TrackPredicate {
	return func(t container.Track) bool {
		return handler != "" && t.Handler() == handler
	}
}

// Select returns the first track of m, in track order, matching pred.
func Select(m *container.Movie, pred TrackPredicate) (container.Track, bool) {
	for _, t := range m.Tracks() {
		if pred(t) {
			return t, true
		}
	}
	return nil, false
}

// SelectTrack is the deferred form of Select. The task yields a nil track
// when nothing matches.
func SelectTrack(m *container.Movie, pred TrackPredicate) task.Task[container.Track] {
	return task.Func(func() (container.Track, error) {
		t, _ := Select(m, pred)
		return t, nil
	})
}

// SelectAudioTrack selects the first audio track of m.
func SelectAudioTrack(m *container.Movie) task.Task[container.Track] {
	return SelectTrack(m, AudioTrack)
}

// SelectVideoTrack selects the first video track of m.
func SelectVideoTrack(m *container.Movie) task.Task[container.Track] {
	return SelectTrack(m, VideoTrack)
}

// SelectTrackByType selects the first track with the given handler type.
func SelectTrackByType(m *container.Movie, handler string) task.Task[container.Track] {
	return SelectTrack(m, HandlerTrack(handler))
}
