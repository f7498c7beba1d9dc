package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mattetti/mp4edit/container"
	"github.com/mattetti/mp4edit/mp4edit"
	"github.com/mattetti/mp4edit/task"
)

func newCropCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "crop <input> <from> <to>",
		Short: "Keep the part of a movie between two times, in seconds",
		Long: "Keep the part of a movie between two times, in seconds.\n\n" +
			"The range widens to the surrounding sync samples of the video track so\n" +
			"the result starts on a decodable frame.",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			from, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("parse start time %q: %w", args[1], err)
			}
			to, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("parse end time %q: %w", args[2], err)
			}
			if strings.TrimSpace(output) == "" {
				output = derivedOutputPath(input, "crop")
			}

			opts := ctx.options(cmd)
			var reports []mp4edit.CropReport
			movie := task.Map(mp4edit.CropWithReport(mp4edit.Load(input, opts...), from, to), func(r mp4edit.CropResult) (*container.Movie, error) {
				reports = r.Reports
				return r.Movie, nil
			})
			if _, err := mp4edit.Output(movie, output, opts...).Run(ctx.runContext(cmd)); err != nil {
				return err
			}

			rows := make([][]string, 0, len(reports))
			for _, r := range reports {
				rows = append(rows, []string{
					r.Handler,
					formatSeconds(r.RequestedStart) + " - " + formatSeconds(r.RequestedEnd),
					formatSeconds(r.ActualStart) + " - " + formatSeconds(r.ActualEnd),
					fmt.Sprintf("%d-%d", r.StartSample, r.EndSample),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Handler", "Requested", "Actual", "Samples"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
			))
			fmt.Fprintf(out, "Wrote %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file (default <input>-crop.<ext>)")
	cmd.Flags().Bool("overwrite", true, "Replace an existing destination file")
	return cmd
}

// derivedOutputPath names an output next to input, e.g. in.mp4 -> in-crop.mp4.
func derivedOutputPath(input, suffix string) string {
	ext := filepath.Ext(input)
	base := strings.TrimSuffix(filepath.Base(input), ext)
	return filepath.Join(filepath.Dir(input), fmt.Sprintf("%s-%s%s", base, suffix, ext))
}
