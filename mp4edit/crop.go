package mp4edit

import (
	"context"
	"fmt"
	"os"

	"github.com/mattetti/mp4edit/container"
	"github.com/mattetti/mp4edit/internal/logging"
	"github.com/mattetti/mp4edit/task"
)

// CropReport describes how one track was cut.
type CropReport struct {
	Handler        string
	RequestedStart float64
	RequestedEnd   float64
	ActualStart    float64
	ActualEnd      float64
	StartSample    int
	EndSample      int
}

// Crop trims the movie produced by movie to [from, to] seconds. It fails
// with ErrInvalidRange, without running movie, when to < from or to < 0.
func Crop(movie task.Task[*container.Movie], from, to float64) task.Task[*container.Movie] {
	return task.Map(CropWithReport(movie, from, to), resultMovie)
}

// CropWithReport is Crop, also yielding how each track was cut.
func CropWithReport(movie task.Task[*container.Movie], from, to float64) task.Task[CropResult] {
	if err := checkRange(from, to); err != nil {
		return task.Fail[CropResult](err)
	}
	return task.Then(movie, func(m *container.Movie) task.Task[CropResult] {
		return CropMovieReport(m, from, to)
	})
}

// CropFile loads the movie at path and trims it.
func CropFile(path string, from, to float64, opts ...Option) task.Task[*container.Movie] {
	return Crop(Load(path, opts...), from, to)
}

// CropOSFile loads the movie stored in f and trims it.
func CropOSFile(f *os.File, from, to float64, opts ...Option) task.Task[*container.Movie] {
	return Crop(LoadFile(f, opts...), from, to)
}

// CropResult is a cropped movie together with how each track was cut.
type CropResult struct {
	Movie   *container.Movie
	Reports []CropReport
}

// CropMovie replaces the tracks of m by clipped views covering [from, to]
// seconds and yields m.
//
// The range is first aligned on the sync samples of the one track that has
// any: the start moves back to the closest sync sample at or before from, the
// end moves forward to the closest one at or after to. More than one track
// with sync samples fails with ErrAmbiguousCorrection.
func CropMovie(m *container.Movie, from, to float64) task.Task[*container.Movie] {
	return task.Map(CropMovieReport(m, from, to), resultMovie)
}

func resultMovie(r CropResult) (*container.Movie, error) {
	return r.Movie, nil
}

// CropMovieReport is CropMovie, also yielding a report per track.
func CropMovieReport(m *container.Movie, from, to float64) task.Task[CropResult] {
	return func(ctx context.Context) (CropResult, error) {
		if err := checkRange(from, to); err != nil {
			return CropResult{}, err
		}
		tracks := m.Tracks()

		start, end, err := correctTimes(tracks, from, to)
		if err != nil {
			return CropResult{}, err
		}

		log := logging.FromContext(ctx)
		cropped := make([]container.Track, 0, len(tracks))
		var reports []CropReport
		for _, t := range tracks {
			if t.SampleCount() == 0 {
				appended, err := container.NewAppendTrack(t)
				if err != nil {
					return CropResult{}, err
				}
				cropped = append(cropped, appended)
				continue
			}

			first, last := sampleRange(t, start, end)
			clipped, err := container.NewClippedTrack(t, first, last)
			if err != nil {
				return CropResult{}, fmt.Errorf("clip %s track: %w", t.Handler(), err)
			}
			appended, err := container.NewAppendTrack(clipped)
			if err != nil {
				return CropResult{}, err
			}
			cropped = append(cropped, appended)

			report := newCropReport(t, from, to, first, last)
			reports = append(reports, report)
			log.Debug("track cropped",
				"handler", report.Handler,
				"requested_start", report.RequestedStart,
				"actual_start", report.ActualStart,
				"requested_end", report.RequestedEnd,
				"actual_end", report.ActualEnd,
				"samples", fmt.Sprintf("%d-%d", first, last),
			)
		}

		m.SetTracks(cropped)
		return CropResult{Movie: m, Reports: reports}, nil
	}
}

func checkRange(from, to float64) error {
	if to < from {
		return fmt.Errorf("%w: [%g, %g]", ErrInvalidRange, from, to)
	}
	if to < 0 {
		return fmt.Errorf("%w: [%g, %g] ends before the movie starts", ErrInvalidRange, from, to)
	}
	return nil
}

// correctTimes aligns from and to on the sync samples of the movie.
func correctTimes(tracks []container.Track, from, to float64) (float64, float64, error) {
	start, end := from, to
	corrected := false
	for _, t := range tracks {
		if len(t.SyncSamples()) == 0 {
			continue
		}
		// a false positive when several tracks share the same sync
		// positions, e.g. multiple qualities of one video
		if corrected {
			return 0, 0, ErrAmbiguousCorrection
		}
		syncTimes := container.SyncSampleTimes(t)
		start = syncTimeBefore(syncTimes, from)
		end = syncTimeAfter(syncTimes, to, container.Duration(t))
		corrected = true
	}
	return start, end, nil
}

func syncTimeBefore(syncTimes []float64, at float64) float64 {
	var prev float64
	for _, st := range syncTimes {
		if st > at {
			break
		}
		prev = st
	}
	return prev
}

func syncTimeAfter(syncTimes []float64, at, trackEnd float64) float64 {
	for _, st := range syncTimes {
		if st >= at {
			return st
		}
	}
	return trackEnd
}

// sampleRange returns the last samples starting at or before start and end.
// A sample only counts when time advanced past its predecessor, so runs of
// zero-duration samples resolve to their first sample. A start before the
// first sample clamps to 0.
func sampleRange(t container.Track, start, end float64) (int, int) {
	startSample, endSample := -1, -1
	ts := float64(t.Timescale())
	var elapsed uint64
	lastTime := -1.0
	for i, d := range t.SampleDurations() {
		currentTime := float64(elapsed) / ts
		if currentTime > lastTime && currentTime <= start {
			startSample = i
		}
		if currentTime > lastTime && currentTime <= end {
			endSample = i
		}
		lastTime = currentTime
		elapsed += uint64(d)
	}
	if startSample < 0 {
		startSample = 0
	}
	return startSample, endSample
}

func newCropReport(t container.Track, from, to float64, first, last int) CropReport {
	times := container.SampleTimes(t)
	return CropReport{
		Handler:        t.Handler(),
		RequestedStart: from,
		RequestedEnd:   to,
		ActualStart:    times[first],
		ActualEnd:      times[last] + float64(t.SampleDurations()[last])/float64(t.Timescale()),
		StartSample:    first,
		EndSample:      last,
	}
}
