package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mattetti/mp4edit/container"
	"github.com/mattetti/mp4edit/mp4edit"
	"github.com/mattetti/mp4edit/task"
)

func newConcatCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "concat -o <output> <input>...",
		Short: "Play the audio and video of several movies back to back",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := ctx.options(cmd)
			loads := make([]task.Task[*container.Movie], 0, len(args))
			for _, path := range args {
				loads = append(loads, mp4edit.Load(path, opts...))
			}

			var duration float64
			movie := task.Map(mp4edit.Concatenate(loads...), func(m *container.Movie) (*container.Movie, error) {
				duration = m.Duration()
				return m, nil
			})
			if _, err := mp4edit.Output(movie, output, opts...).Run(ctx.runContext(cmd)); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d inputs, %s)\n", output, len(args), formatSeconds(duration))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file")
	cmd.Flags().Bool("overwrite", true, "Replace an existing destination file")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}
