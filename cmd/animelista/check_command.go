package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/bhaskara2k/animelista-sub000/internal/preflight"
)

var errChecksFailed = errors.New("one or more checks failed")

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check directories, the database and external services",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			if err := ctx.emit(cmd, results, func() error {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, r := range results {
					kind := statusOK
					switch {
					case r.Skipped:
						kind = statusInfo
					case r.Failed():
						kind = statusError
					}
					fprintf(out, "%s\n", renderStatusLine(r.Name, kind, r.Detail, colorize))
				}
				return nil
			}); err != nil {
				return err
			}
			if preflight.AnyFailed(results) {
				return errChecksFailed
			}
			return nil
		},
	}
}
