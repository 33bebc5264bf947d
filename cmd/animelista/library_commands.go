package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/spf13/cobra"

	"github.com/bhaskara2k/animelista-sub000/internal/api"
	"github.com/bhaskara2k/animelista-sub000/internal/library"
	"github.com/bhaskara2k/animelista-sub000/internal/schedule"
	"github.com/bhaskara2k/animelista-sub000/internal/services"
	"github.com/bhaskara2k/animelista-sub000/internal/tracker"
)

func newLibraryCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newAddCommand(ctx),
		newListCommand(ctx),
		newShowCommand(ctx),
		newRemoveCommand(ctx),
		newProgressCommand(ctx),
		newRateCommand(ctx),
		newScheduleCommand(ctx),
	}
}

type scheduleFlags struct {
	start         string
	weekdays      string
	total           int
	clearTotal      bool
	override        string
	overrideEpisode int
	clearOverride   bool
}

func (f *scheduleFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.start, "start", "", "First air date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.weekdays, "weekdays", "", "Airing weekdays, e.g. \"sun\" or \"1,4\" (0 = Sunday)")
	cmd.Flags().IntVar(&f.total, "total", 0, "Total episode count (at least 1; omit when unknown)")
	cmd.Flags().StringVar(&f.override, "override", "", "One-off date for the next episode (YYYY-MM-DD)")
	cmd.Flags().IntVar(&f.overrideEpisode, "override-episode", 0, "Episode the --override date belongs to (default: the next one)")
}

// apply copies every flag the user set onto s.
func (f *scheduleFlags) apply(cmd *cobra.Command, s *schedule.AiringSchedule) error {
	flags := cmd.Flags()
	if flags.Changed("start") {
		date, err := optionalDate("start", f.start)
		if err != nil {
			return err
		}
		s.StartDate = date
	}
	if flags.Changed("weekdays") {
		set, err := schedule.ParseWeekdays(f.weekdays)
		if err != nil {
			return services.Wrap(services.ErrValidation, "cli", "weekdays", err.Error(), nil)
		}
		s.Weekdays = set
	}
	if flags.Changed("total") {
		if f.total < 1 {
			return services.Wrap(services.ErrValidation, "cli", "total", "total must be >= 1; omit it when unknown", nil)
		}
		total := f.total
		s.TotalEpisodes = &total
	}
	if f.clearTotal {
		s.TotalEpisodes = nil
	}
	if flags.Changed("override-episode") && !flags.Changed("override") {
		return services.Wrap(services.ErrValidation, "cli", "override", "--override-episode needs --override", nil)
	}
	if flags.Changed("override") {
		date, err := optionalDate("override", f.override)
		if err != nil {
			return err
		}
		s.Override = date
		s.OverrideEpisode = nil
		if flags.Changed("override-episode") {
			if f.overrideEpisode < 1 {
				return services.Wrap(services.ErrValidation, "cli", "override", "override episode must be >= 1", nil)
			}
			episode := f.overrideEpisode
			s.OverrideEpisode = &episode
		}
	}
	if f.clearOverride {
		s.Override = nil
		s.OverrideEpisode = nil
	}
	return nil
}

func optionalDate(field, value string) (*civil.Date, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	date, err := schedule.ParseDate(value)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "cli", field, fmt.Sprintf("invalid %s date %q", field, value), err)
	}
	return &date, nil
}

func newAddCommand(ctx *commandContext) *cobra.Command {
	var status string
	var episode int
	var catalogID int64
	var notes string
	var sched scheduleFlags

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a title to the library",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry := &library.Entry{
				Title:          strings.Join(args, " "),
				CurrentEpisode: episode,
				Notes:          notes,
			}
			if status != "" {
				parsed, err := library.ParseStatus(status)
				if err != nil {
					return services.Wrap(services.ErrValidation, "cli", "add", err.Error(), nil)
				}
				entry.Status = parsed
			}
			if catalogID > 0 {
				entry.CatalogID = &catalogID
			}
			airing := entry.Schedule()
			if err := sched.apply(cmd, &airing); err != nil {
				return err
			}
			entry.ApplySchedule(airing)

			return ctx.withTracker(cmd, func(c context.Context, svc *tracker.Service) error {
				added, err := svc.Store().Add(c, entry)
				if err != nil {
					return err
				}
				next, _ := svc.Next(c, added.ID)
				return ctx.emit(cmd, api.FromEntry(added, next.Airing), func() error {
					fprintf(cmd.OutOrStdout(), "Added #%d %s (%s)\n", added.ID, added.Title, added.Status.Label())
					if next.Airing != nil {
						fprintf(cmd.OutOrStdout(), "Next: episode %d on %s\n", next.Airing.Episode, formatAiring(next.Airing, svc.Today()))
					}
					return nil
				})
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Initial status (watching, plan_to_watch, paused, completed, dropped)")
	cmd.Flags().IntVar(&episode, "episode", 0, "Episodes already watched")
	cmd.Flags().Int64Var(&catalogID, "catalog-id", 0, "AniList media id")
	cmd.Flags().StringVar(&notes, "notes", "", "Free-form notes")
	sched.register(cmd)
	return cmd
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var query string
	var sortKey string
	var desc bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List library entries with their next airing",
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseStatuses(statuses)
			if err != nil {
				return services.Wrap(services.ErrValidation, "cli", "list", err.Error(), nil)
			}
			key, err := tracker.ParseSortKey(sortKey)
			if err != nil {
				return err
			}
			return ctx.withTracker(cmd, func(c context.Context, svc *tracker.Service) error {
				items, err := svc.List(c, tracker.ListOptions{Statuses: parsed, Query: query, Sort: key, Desc: desc})
				if err != nil {
					return err
				}
				return ctx.emit(cmd, api.FromListItems(items), func() error {
					return renderList(cmd, items, svc)
				})
			})
		},
	}

	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Filter by status (repeatable or comma separated)")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Filter by title")
	cmd.Flags().StringVar(&sortKey, "sort", "title", "Sort by title, updated, rating, next or progress")
	cmd.Flags().BoolVar(&desc, "desc", false, "Reverse the sort order")
	return cmd
}

func renderList(cmd *cobra.Command, items []tracker.ListItem, svc *tracker.Service) error {
	out := cmd.OutOrStdout()
	if len(items) == 0 {
		fprintf(out, "Library is empty\n")
		return nil
	}
	today := svc.Today()
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		e := item.Entry
		rows = append(rows, []string{
			strconv.FormatInt(e.ID, 10),
			truncate(e.Title, 40),
			e.Status.Label(),
			formatEpisodes(e),
			formatRating(e.Rating),
			e.Weekdays.Label(),
			formatAiring(item.Next, today),
		})
	}
	fprintf(out, "%s\n", renderTable([]column{
		right("ID"), left("Title"), left("Status"), right("Progress"), right("Rating"), left("Airs"), left("Next"),
	}, rows))
	return nil
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id|title>",
		Short: "Show one library entry",
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
				return ctx.emit(cmd, api.FromEntry(entry, next.Airing), func() error {
					renderEntry(cmd, entry, next.Airing, svc.Today())
					return nil
				})
			})
		},
	}
}

func renderEntry(cmd *cobra.Command, e *library.Entry, next *schedule.ProjectedAiring, today civil.Date) {
	out := cmd.OutOrStdout()
	fprintf(out, "#%d %s\n", e.ID, e.Title)
	if e.TitleNative != "" {
		fprintf(out, "  %s\n", e.TitleNative)
	}
	fprintf(out, "  Status:    %s\n", e.Status.Label())
	fprintf(out, "  Progress:  %s\n", formatEpisodes(e))
	fprintf(out, "  Rating:    %s\n", formatRating(e.Rating))
	fprintf(out, "  Start:     %s\n", formatDate(e.StartDate))
	fprintf(out, "  Airs:      %s\n", e.Weekdays.Label())
	if e.NextAiringOverride != nil {
		override := formatDate(e.NextAiringOverride)
		if e.NextAiringOverrideEpisode != nil {
			override += fmt.Sprintf(" (episode %d)", *e.NextAiringOverrideEpisode)
		}
		fprintf(out, "  Override:  %s\n", override)
	}
	fprintf(out, "  Next:      %s\n", formatAiring(next, today))
	if e.CatalogID != nil {
		fprintf(out, "  AniList:   https://anilist.co/anime/%d\n", *e.CatalogID)
	}
	if e.Notes != "" {
		fprintf(out, "  Notes:     %s\n", e.Notes)
	}
	synopsis := e.SynopsisTranslated
	if synopsis == "" {
		synopsis = e.Synopsis
	}
	if synopsis != "" {
		fprintf(out, "\n%s\n", synopsis)
	}
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id|title>",
		Aliases: []string{"rm"},
		Short:   "Remove a title from the library",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withTracker(cmd, func(c context.Context, svc *tracker.Service) error {
				entry, err := resolveEntry(c, svc, strings.Join(args, " "))
				if err != nil {
					return err
				}
				removed, err := svc.Store().Remove(c, entry.ID)
				if err != nil {
					return err
				}
				if !removed {
					return services.Wrap(services.ErrNotFound, "cli", "remove", fmt.Sprintf("entry #%d not found", entry.ID), nil)
				}
				fprintf(cmd.OutOrStdout(), "Removed #%d %s\n", entry.ID, entry.Title)
				return nil
			})
		},
	}
}

// parseEpisodeArg accepts an absolute episode or a "+N" / "-N" step from
// current.
func parseEpisodeArg(value string, current int) (int, error) {
	value = strings.TrimSpace(value)
	relative := strings.HasPrefix(value, "+") || strings.HasPrefix(value, "-")
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, services.Wrap(services.ErrValidation, "cli", "progress", fmt.Sprintf("invalid episode %q", value), nil)
	}
	if relative {
		n += current
	}
	if n < 0 {
		return 0, services.Wrap(services.ErrValidation, "cli", "progress", "episode must be >= 0", nil)
	}
	return n, nil
}

func newProgressCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "progress <id|title> <episode|+N>",
		Short: "Record the last watched episode",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withTracker(cmd, func(c context.Context, svc *tracker.Service) error {
				entry, err := resolveEntry(c, svc, args[0])
				if err != nil {
					return err
				}
				episode, err := parseEpisodeArg(args[1], entry.CurrentEpisode)
				if err != nil {
					return err
				}
				outcome, err := svc.RecordProgress(c, entry.ID, episode)
				if err != nil {
					return err
				}
				next, _ := svc.Next(c, entry.ID)
				resp := api.ProgressResponse{
					Anime:     api.FromEntry(outcome.Entry, next.Airing),
					Completed: outcome.Completed,
					Reward:    api.FromReward(outcome.Reward),
				}
				return ctx.emit(cmd, resp, func() error {
					out := cmd.OutOrStdout()
					fprintf(out, "%s: %s\n", outcome.Entry.Title, formatEpisodes(outcome.Entry))
					if outcome.Completed {
						fprintf(out, "Series completed!\n")
					}
					renderReward(cmd, outcome.Reward)
					return nil
				})
			})
		},
	}
}

func renderReward(cmd *cobra.Command, reward tracker.Reward) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	if reward.XP > 0 {
		fprintf(out, "+%d XP (level %d, %d XP)\n", reward.XP, reward.Profile.Level, reward.Profile.XP)
	}
	if reward.LevelsGained > 0 {
		fprintf(out, "%s\n", highlight(fmt.Sprintf("Level up! Now level %d", reward.Profile.Level), statusOK, colorize))
	}
	for _, a := range reward.Unlocked {
		fprintf(out, "%s\n", highlight("Achievement unlocked: "+a.Title, statusOK, colorize))
	}
}

func newRateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rate <id|title> <1-10>",
		Short: "Rate a completed title",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rating, err := strconv.Atoi(strings.TrimSpace(args[1]))
			if err != nil {
				return services.Wrap(services.ErrValidation, "cli", "rate", fmt.Sprintf("invalid rating %q", args[1]), nil)
			}
			return ctx.withTracker(cmd, func(c context.Context, svc *tracker.Service) error {
				entry, err := resolveEntry(c, svc, args[0])
				if err != nil {
					return err
				}
				outcome, err := svc.Rate(c, entry.ID, rating)
				if err != nil {
					return err
				}
				resp := api.RatingResponse{
					Anime:  api.FromEntry(outcome.Entry, nil),
					Reward: api.FromReward(outcome.Reward),
				}
				return ctx.emit(cmd, resp, func() error {
					fprintf(cmd.OutOrStdout(), "%s rated %s\n", outcome.Entry.Title, formatRating(outcome.Entry.Rating))
					renderReward(cmd, outcome.Reward)
					return nil
				})
			})
		},
	}
}

func newScheduleCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Airing schedule utilities",
	}
	cmd.AddCommand(newScheduleSetCommand(ctx))
	return cmd
}

func newScheduleSetCommand(ctx *commandContext) *cobra.Command {
	var sched scheduleFlags

	cmd := &cobra.Command{
		Use:   "set <id|title>",
		Short: "Edit the airing schedule of an entry",
		Long: "Edit the airing schedule of an entry. Only the flags given are changed; " +
			"--override sets a one-off date for the next episode (or the one named by --override-episode) " +
			"and --clear-override removes it. --clear-total marks the episode count unknown.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withTracker(cmd, func(c context.Context, svc *tracker.Service) error {
				entry, err := resolveEntry(c, svc, strings.Join(args, " "))
				if err != nil {
					return err
				}
				airing := entry.Schedule()
				if err := sched.apply(cmd, &airing); err != nil {
					return err
				}
				updated, err := svc.Store().SetSchedule(c, entry.ID, airing)
				if err != nil {
					return err
				}
				next, err := svc.Next(c, updated.ID)
				if err != nil {
					return err
				}
				return ctx.emit(cmd, api.FromEntry(updated, next.Airing), func() error {
					renderEntry(cmd, updated, next.Airing, svc.Today())
					return nil
				})
			})
		},
	}
	sched.register(cmd)
	cmd.Flags().BoolVar(&sched.clearOverride, "clear-override", false, "Remove the one-off next airing date")
	cmd.Flags().BoolVar(&sched.clearTotal, "clear-total", false, "Mark the total episode count unknown")
	return cmd
}
