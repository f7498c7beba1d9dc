// Command syncpoints prints the times at which the video track of a movie can
// be cut without re-encoding.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/mattetti/mp4edit/container"
	"github.com/mattetti/mp4edit/internal/logging"
	"github.com/mattetti/mp4edit/mp4edit"
	"github.com/mattetti/mp4edit/task"
)

var (
	inputFlag = flag.String("input", "", "Input file")
	debugFlag = flag.Bool("debug", false, "Enable debug mode")
)

func main() {
	flag.Parse()
	if *inputFlag == "" {
		fmt.Println("input file is required")
		flag.Usage()
		os.Exit(1)
	}

	level := "info"
	if *debugFlag {
		level = "debug"
	}
	logger, err := logging.New(logging.Options{Level: level})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	ctx := logging.WithLogger(context.Background(), logger)

	if err := run(ctx, os.Stdout, *inputFlag); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, out io.Writer, input string) error {
	video, err := task.Then(mp4edit.Load(input), mp4edit.SelectVideoTrack).Run(ctx)
	if err != nil {
		return err
	}
	if video == nil {
		return fmt.Errorf("%s has no video track", input)
	}

	times := container.SyncSampleTimes(video)
	if len(times) == 0 {
		fmt.Fprintln(out, "Every sample is a sync sample")
		return nil
	}
	for _, t := range times {
		fmt.Fprintln(out, strconv.FormatFloat(t, 'f', 3, 64))
	}
	fmt.Fprintf(out, "Total sync samples: %d of %d\n", len(times), video.SampleCount())
	return nil
}
