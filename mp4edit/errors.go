package mp4edit

import "errors"

var (
	ErrNotFound            = errors.New("movie not found")
	ErrInvalidRange        = errors.New("the ending time is earlier than the start time")
	ErrAmbiguousCorrection = errors.New("start time already corrected by another track with sync samples")
	ErrMissingTrack        = errors.New("movie is missing a track")
	ErrNoTracks            = errors.New("no audio or video tracks to concatenate")
	ErrDestinationExists   = errors.New("destination already exists")
	ErrDestinationBusy     = errors.New("destination is being written by another process")
)
