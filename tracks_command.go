package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mattetti/mp4edit/container"
	"github.com/mattetti/mp4edit/mp4edit"
)

func newTracksCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "tracks <file>",
		Short: "List the tracks of a movie",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			movie, err := mp4edit.Load(args[0], ctx.options(cmd)...).Run(ctx.runContext(cmd))
			if err != nil {
				return err
			}
			audio, _ := mp4edit.Select(movie, mp4edit.AudioTrack)
			video, _ := mp4edit.Select(movie, mp4edit.VideoTrack)

			rows := make([][]string, 0, len(movie.Tracks()))
			for i, t := range movie.Tracks() {
				sync := "all"
				if !container.EverySampleSync(t) {
					sync = strconv.Itoa(len(t.SyncSamples()))
				}
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					t.Handler(),
					strconv.FormatUint(uint64(t.Timescale()), 10),
					strconv.Itoa(t.SampleCount()),
					sync,
					formatSeconds(container.Duration(t)),
					strconv.Itoa(len(t.Descriptions())),
					yesNo(t == audio || t == video),
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Track", "Handler", "Timescale", "Samples", "Sync", "Duration", "Entries", "Selected"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft},
			))
			fmt.Fprintf(out, "Duration: %s\n", formatSeconds(movie.Duration()))
			return nil
		},
	}
}
