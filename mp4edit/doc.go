// Package mp4edit crops and concatenates the tracks of MP4 movies.
//
// Every operation returns a task.Task: building it does no work, running it
// loads, edits or writes. Operations take tasks as input so they chain:
//
//	clip := mp4edit.Crop(mp4edit.Load("in.mp4"), 10, 20)
//	_, err := mp4edit.Output(clip, "out.mp4").Run(ctx)
//
// Edits never copy sample data. Cropped and concatenated movies are made of
// container.ClippedTrack and container.AppendTrack views that point into the
// source files, which are read again when the result is written.
package mp4edit
