package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/bhaskara2k/animelista-sub000/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the daemon log",
		RunE: func(cmd *cobra.Command, args []string) error {
			if lines < 0 {
				return fmt.Errorf("--lines must be >= 0")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := cfg.DaemonLogPath()
			out := cmd.OutOrStdout()

			result, err := logs.Tail(path, lines)
			if err != nil {
				return err
			}
			if len(result.Lines) == 0 && !follow {
				fprintf(out, "No log output at %s\n", path)
				return nil
			}
			printLines(out, result.Lines)
			if !follow {
				return nil
			}
			return logs.Follow(cmd.Context(), path, result.Offset, 0, func(batch []string) error {
				printLines(out, batch)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	return cmd
}

func printLines(w io.Writer, lines []string) {
	for _, line := range lines {
		fprintf(w, "%s\n", line)
	}
}
