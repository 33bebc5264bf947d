package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bhaskara2k/animelista-sub000/internal/api"
	"github.com/bhaskara2k/animelista-sub000/internal/tracker"
)

func newTranslateCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "translate <id|title>",
		Short: "Translate a synopsis with the configured LLM",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withTracker(cmd, func(c context.Context, svc *tracker.Service) error {
				entry, err := resolveEntry(c, svc, strings.Join(args, " "))
				if err != nil {
					return err
				}
				translated, err := svc.TranslateSynopsis(c, entry.ID, force)
				if err != nil {
					return err
				}
				return ctx.emit(cmd, api.FromEntry(translated, nil), func() error {
					fprintf(cmd.OutOrStdout(), "%s\n\n%s\n", translated.Title, translated.SynopsisTranslated)
					return nil
				})
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Translate again even when a translation is cached")
	return cmd
}

func newRecommendCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Suggest new titles based on the library",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withTracker(cmd, func(c context.Context, svc *tracker.Service) error {
				recs, err := svc.Recommend(c, limit)
				if err != nil {
					return err
				}
				return ctx.emit(cmd, recs, func() error {
					out := cmd.OutOrStdout()
					if len(recs) == 0 {
						fprintf(out, "No recommendations\n")
						return nil
					}
					rows := make([][]string, 0, len(recs))
					for _, r := range recs {
						rows = append(rows, []string{r.Title, truncate(r.Reason, 80)})
					}
					fprintf(out, "%s\n", renderTable([]column{left("Title"), left("Why")}, rows))
					return nil
				})
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "Number of suggestions")
	return cmd
}
