package main

import (
	"context"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bhaskara2k/animelista-sub000/internal/api"
	"github.com/bhaskara2k/animelista-sub000/internal/services"
	"github.com/bhaskara2k/animelista-sub000/internal/tracker"
)

const maxUpcomingDays = 90

func newAiringCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newUpcomingCommand(ctx),
		newBehindCommand(ctx),
		newNextCommand(ctx),
	}
}

func newUpcomingCommand(ctx *commandContext) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "upcoming",
		Short: "Show episodes airing in the next few days",
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 0 || days > maxUpcomingDays {
				return services.Wrap(services.ErrValidation, "cli", "upcoming", "days must be between 0 and 90", nil)
			}
			return ctx.withTracker(cmd, func(c context.Context, svc *tracker.Service) error {
				items, err := svc.Upcoming(c, days)
				if err != nil {
					return err
				}
				resp := api.UpcomingResponse{Days: days, Items: api.FromUpcoming(items)}
				return ctx.emit(cmd, resp, func() error {
					out := cmd.OutOrStdout()
					if len(items) == 0 {
						fprintf(out, "Nothing airing in the next %d days\n", days)
						return nil
					}
					today := svc.Today()
					rows := make([][]string, 0, len(items))
					for _, item := range items {
						airing := item.Airing
						rows = append(rows, []string{
							formatAiring(&airing, today),
							strconv.FormatInt(item.Entry.ID, 10),
							truncate(item.Entry.Title, 40),
							strconv.Itoa(airing.Episode),
							item.Entry.Status.Label(),
						})
					}
					fprintf(out, "%s\n", renderTable([]column{
						left("Date"), right("ID"), left("Title"), right("Ep"), left("Status"),
					}, rows))
					return nil
				})
			})
		},
	}
	cmd.Flags().IntVarP(&days, "days", "d", 7, "Window size in days")
	return cmd
}

func newBehindCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "behind",
		Short: "Show watching titles with aired but unwatched episodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withTracker(cmd, func(c context.Context, svc *tracker.Service) error {
				items, err := svc.Behind(c)
				if err != nil {
					return err
				}
				return ctx.emit(cmd, api.BehindResponse{Items: api.FromBehind(items)}, func() error {
					out := cmd.OutOrStdout()
					if len(items) == 0 {
						fprintf(out, "All caught up\n")
						return nil
					}
					colorize := shouldColorize(out)
					rows := make([][]string, 0, len(items))
					for _, item := range items {
						rows = append(rows, []string{
							strconv.FormatInt(item.Entry.ID, 10),
							truncate(item.Entry.Title, 40),
							strconv.Itoa(item.Entry.CurrentEpisode),
							strconv.Itoa(item.Expected),
							highlight(strconv.Itoa(item.Behind), statusWarn, colorize),
						})
					}
					fprintf(out, "%s\n", renderTable([]column{
						right("ID"), left("Title"), right("Watched"), right("Aired"), right("Behind"),
					}, rows))
					return nil
				})
			})
		},
	}
}

func newNextCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "next <id|title>",
		Short: "Show when the next episode of a title airs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withTracker(cmd, func(c context.Context, svc *tracker.Service) error {
				entry, err := resolveEntry(c, svc, strings.Join(args, " "))
				if err != nil {
					return err
				}
				next, err := svc.Next(c, entry.ID)
				if err != nil {
					return err
				}
				resp := api.NextResponse{ID: entry.ID, Title: entry.Title, Airing: api.FromAiring(next.Airing)}
				return ctx.emit(cmd, resp, func() error {
					out := cmd.OutOrStdout()
					if next.Airing == nil {
						fprintf(out, "%s: next episode unknown\n", entry.Title)
						return nil
					}
					fprintf(out, "%s: episode %d on %s\n", entry.Title, next.Airing.Episode, formatAiring(next.Airing, svc.Today()))
					return nil
				})
			})
		},
	}
}
