package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bhaskara2k/animelista-sub000/internal/api"
	"github.com/bhaskara2k/animelista-sub000/internal/tracker"
)

const xpBarWidth = 20

func newProfileCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show level, XP and achievements",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withTracker(cmd, func(c context.Context, svc *tracker.Service) error {
				view, err := svc.Profile(c)
				if err != nil {
					return err
				}
				return ctx.emit(cmd, api.FromProfile(view), func() error {
					renderProfile(cmd, view)
					return nil
				})
			})
		},
	}
}

func renderProfile(cmd *cobra.Command, view tracker.ProfileView) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	p := view.Profile
	fprintf(out, "Level %d  %s  %d/%d XP (%d total)\n", p.Level, xpBar(p.XP, view.NextLevelXP), p.XP, view.NextLevelXP, p.TotalXP)
	s := view.Stats
	fprintf(out, "Library: %d titles, %d watching, %d completed, %d episodes watched\n",
		s.Total, s.Watching, s.Completed, s.EpisodesWatched)
	if s.Rated > 0 {
		fprintf(out, "Average rating: %.1f over %d titles\n", s.AverageRating, s.Rated)
	}

	rows := make([][]string, 0, len(view.Achievements))
	for _, a := range view.Achievements {
		state := fmt.Sprintf("%d/%d", min(a.Current, a.Target), a.Target)
		if a.Unlocked {
			state = highlight("unlocked", statusOK, colorize)
		}
		rows = append(rows, []string{a.Title, a.Description, state})
	}
	fprintf(out, "%s\n", renderTable([]column{left("Achievement"), left("Goal"), right("Progress")}, rows))
}

func xpBar(xp, next int) string {
	filled := 0
	if next > 0 {
		filled = min(xpBarWidth, xp*xpBarWidth/next)
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", xpBarWidth-filled) + "]"
}
