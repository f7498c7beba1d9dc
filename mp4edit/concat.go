package mp4edit

import (
	"context"
	"fmt"
	"iter"
	"slices"

	"github.com/mattetti/mp4edit/container"
	"github.com/mattetti/mp4edit/internal/logging"
	"github.com/mattetti/mp4edit/task"
)

// Concatenate plays the audio and video of movies back to back.
func Concatenate(movies ...task.Task[*container.Movie]) task.Task[*container.Movie] {
	return ConcatenateSeq(slices.Values(movies))
}

// ConcatenateSeq waits for every movie, then appends the first audio track
// of each movie in order and does the same for video. Any movie failing to
// load fails the whole concatenation.
//
// A stream that no movie carries is left out of the result. A stream that
// only some movies carry fails with ErrMissingTrack, since skipping those
// movies would shift the other stream out of sync.
func ConcatenateSeq(movies iter.Seq[task.Task[*container.Movie]]) task.Task[*container.Movie] {
	return task.Defer(func() task.Task[*container.Movie] {
		return task.Then(task.Join(slices.Collect(movies)), concatenateMovies)
	})
}

// ConcatenateInto concatenates movies and writes the result to dest.
func ConcatenateInto(dest string, movies []task.Task[*container.Movie], opts ...Option) task.Task[string] {
	return Output(Concatenate(movies...), dest, opts...)
}

func concatenateMovies(movies []*container.Movie) task.Task[*container.Movie] {
	return task.Zip(
		appendStream(movies, AudioTrack, "audio"),
		appendStream(movies, VideoTrack, "video"),
		func(audio, video container.Track) (*container.Movie, error) {
			var tracks []container.Track
			if audio != nil {
				tracks = append(tracks, audio)
			}
			if video != nil {
				tracks = append(tracks, video)
			}
			if len(tracks) == 0 {
				return nil, ErrNoTracks
			}
			return MuxTracks(tracks...), nil
		},
	)
}

// appendStream appends the track pred selects in each movie. It yields a nil
// track when no movie has one.
func appendStream(movies []*container.Movie, pred TrackPredicate, kind string) task.Task[container.Track] {
	return func(ctx context.Context) (container.Track, error) {
		var tracks []container.Track
		missing := -1
		for i, m := range movies {
			t, ok := Select(m, pred)
			if !ok {
				if missing < 0 {
					missing = i
				}
				continue
			}
			tracks = append(tracks, t)
		}
		if len(tracks) == 0 {
			return nil, nil
		}
		if missing >= 0 {
			return nil, fmt.Errorf("%w: movie %d has no %s track", ErrMissingTrack, missing, kind)
		}
		appended, err := container.NewAppendTrack(tracks...)
		if err != nil {
			return nil, fmt.Errorf("append %s tracks: %w", kind, err)
		}
		logging.FromContext(ctx).Debug("tracks appended",
			"kind", kind,
			"movies", len(tracks),
			"samples", appended.SampleCount(),
			"duration", container.Duration(appended),
		)
		return appended, nil
	}
}
