package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reel/internal/engine"
	"reel/internal/media"
)

func newFormatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "formats",
		Short:       "List supported target formats and quality presets",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			formatRows := make([][]string, 0, len(media.Formats()))
			for _, format := range media.Formats() {
				formatRows = append(formatRows, []string{
					format.String(),
					engine.CodecSummary(format),
				})
			}
			fmt.Fprintln(out, renderTable([]string{"Format", "Codecs"}, formatRows))

			qualityRows := make([][]string, 0, len(media.Qualities()))
			for _, quality := range media.Qualities() {
				qualityRows = append(qualityRows, []string{
					quality.String(),
					engine.QualitySummary(quality),
					quality.SimulatedSpeedLabel(),
				})
			}
			fmt.Fprintln(out, renderTable([]string{"Quality", "Tuning", "Simulated speed"}, qualityRows))
			return nil
		},
	}
}
