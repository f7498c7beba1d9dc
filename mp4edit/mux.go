package mp4edit

import (
	"iter"
	"slices"

	"github.com/mattetti/mp4edit/container"
	"github.com/mattetti/mp4edit/task"
)

// MuxTracks builds a movie holding tracks in the given order. Tracks are not
// checked for compatibility.
func MuxTracks(tracks ...container.Track) *container.Movie {
	movie := container.NewMovie()
	for _, t := range tracks {
		movie.AddTrack(t)
	}
	return movie
}

// Mux is the deferred form of MuxTracks; tracks is only iterated when the
// task runs.
func Mux(tracks iter.Seq[container.Track]) task.Task[*container.Movie] {
	return task.Defer(func() task.Task[*container.Movie] {
		return task.Value(MuxTracks(slices.Collect(tracks)...))
	})
}

// AppendTracks plays tracks back to back as a single track.
func AppendTracks(tracks []container.Track) task.Task[*container.AppendTrack] {
	return task.Func(func() (*container.AppendTrack, error) {
		return container.NewAppendTrack(tracks...)
	})
}
