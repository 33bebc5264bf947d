package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bhaskara2k/animelista-sub000/internal/api"
	"github.com/bhaskara2k/animelista-sub000/internal/catalog"
	"github.com/bhaskara2k/animelista-sub000/internal/library"
	"github.com/bhaskara2k/animelista-sub000/internal/services"
	"github.com/bhaskara2k/animelista-sub000/internal/tracker"
)

func newCatalogCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newSearchCommand(ctx),
		newImportCommand(ctx),
		newSyncCommand(ctx),
	}
}

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var page, perPage int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search AniList for a title",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := catalog.New(cfg.Catalog.BaseURL,
				catalog.WithRequestsPerMinute(cfg.Catalog.RequestsPerMinute),
				catalog.WithTimeout(time.Duration(cfg.Catalog.TimeoutSeconds)*time.Second),
			)
			if err != nil {
				return err
			}
			result, err := client.Search(cmd.Context(), strings.Join(args, " "), page, perPage)
			if err != nil {
				return err
			}
			return ctx.emit(cmd, result, func() error {
				return renderSearch(cmd, result)
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "Result page")
	cmd.Flags().IntVar(&perPage, "per-page", 10, "Results per page (max 50)")
	return cmd
}

func renderSearch(cmd *cobra.Command, result *catalog.SearchResult) error {
	out := cmd.OutOrStdout()
	if len(result.Media) == 0 {
		fprintf(out, "No matches\n")
		return nil
	}
	rows := make([][]string, 0, len(result.Media))
	for i := range result.Media {
		m := &result.Media[i]
		episodes := "?"
		if m.Episodes != nil {
			episodes = strconv.Itoa(*m.Episodes)
		}
		season := "-"
		if m.Season != "" && m.SeasonYear > 0 {
			season = fmt.Sprintf("%s %d", strings.ToLower(m.Season), m.SeasonYear)
		}
		rows = append(rows, []string{
			strconv.FormatInt(m.ID, 10),
			truncate(catalog.DisplayTitle(m), 44),
			m.Format,
			episodes,
			season,
			strings.ToLower(strings.ReplaceAll(m.Status, "_", " ")),
		})
	}
	fprintf(out, "%s\n", renderTable([]column{
		right("AniList ID"), left("Title"), left("Format"), right("Eps"), left("Season"), left("Status"),
	}, rows))
	info := result.PageInfo
	if info.HasNextPage {
		fprintf(out, "Page %d of %d, use --page %d for more\n", info.CurrentPage, info.LastPage, info.CurrentPage+1)
	}
	return nil
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "import <anilist-id>",
		Short: "Add an AniList title with its airing schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalogID, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil || catalogID <= 0 {
				return services.Wrap(services.ErrValidation, "cli", "import", fmt.Sprintf("invalid AniList id %q", args[0]), nil)
			}
			var parsed library.Status
			if status != "" {
				if parsed, err = library.ParseStatus(status); err != nil {
					return services.Wrap(services.ErrValidation, "cli", "import", err.Error(), nil)
				}
			}
			return ctx.withTracker(cmd, func(c context.Context, svc *tracker.Service) error {
				entry, err := svc.Import(c, catalogID, parsed)
				if err != nil {
					return err
				}
				next, _ := svc.Next(c, entry.ID)
				return ctx.emit(cmd, api.FromEntry(entry, next.Airing), func() error {
					fprintf(cmd.OutOrStdout(), "Imported #%d %s (%s)\n", entry.ID, entry.Title, entry.Status.Label())
					if next.Airing != nil {
						fprintf(cmd.OutOrStdout(), "Next: episode %d on %s\n", next.Airing.Episode, formatAiring(next.Airing, svc.Today()))
					}
					return nil
				})
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Initial status (default plan_to_watch)")
	return cmd
}

func newSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync [id|title]",
		Short: "Refresh airing schedules from AniList",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withTracker(cmd, func(c context.Context, svc *tracker.Service) error {
				out := cmd.OutOrStdout()
				if len(args) > 0 {
					entry, err := resolveEntry(c, svc, strings.Join(args, " "))
					if err != nil {
						return err
					}
					synced, err := svc.SyncEntry(c, entry.ID)
					if err != nil {
						return err
					}
					next, _ := svc.Next(c, synced.ID)
					return ctx.emit(cmd, api.FromEntry(synced, next.Airing), func() error {
						fprintf(out, "Synced #%d %s, next %s\n", synced.ID, synced.Title, formatAiring(next.Airing, svc.Today()))
						return nil
					})
				}
				result, err := svc.Sync(c)
				resp := api.RefreshResponse{Checked: result.Checked, Updated: result.Updated, Failed: result.Failed}
				if err != nil {
					resp.Error = err.Error()
				}
				if emitErr := ctx.emit(cmd, resp, func() error {
					fprintf(out, "Checked %d, updated %d, failed %d\n", result.Checked, result.Updated, result.Failed)
					return nil
				}); emitErr != nil {
					return emitErr
				}
				return err
			})
		},
	}
}
