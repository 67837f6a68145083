package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/stwalsh4118/livetv/internal/catalog"
	"github.com/stwalsh4118/livetv/internal/config"
	"github.com/stwalsh4118/livetv/internal/db"
)

var (
	scheduleFilter string
	schedulePath   string
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Print the program schedule",
	Long:  "Prints the channel lineup with air times and durations, optionally filtered by status (all, live, upcoming, ended).",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := catalog.Filter(scheduleFilter)
		if !filter.IsValid() {
			return fmt.Errorf("invalid filter %q: must be one of all, live, upcoming, ended", scheduleFilter)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if schedulePath != "" {
			cfg.Catalog.Source = config.CatalogSourceFixture
			cfg.Catalog.FixturePath = schedulePath
		}

		provider, closeFn, err := providerFor(cfg)
		if err != nil {
			return err
		}
		defer closeFn()

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		cat, err := catalog.Load(ctx, provider)
		if err != nil {
			return err
		}
		return printSchedule(cmd.OutOrStdout(), cat, filter)
	},
}

func init() {
	scheduleCmd.Flags().StringVarP(&scheduleFilter, "filter", "f", string(catalog.FilterAll), "status filter: all, live, upcoming, ended")
	scheduleCmd.Flags().StringVar(&schedulePath, "lineup", "", "read the lineup from this JSON file instead of the configured source")
}

// providerFor returns the configured lineup source and a cleanup func
func providerFor(cfg *config.Config) (catalog.Provider, func(), error) {
	if cfg.Catalog.Source != config.CatalogSourceDatabase {
		return catalog.NewFixtureProvider(cfg.Catalog.FixturePath), func() {}, nil
	}

	database, err := db.Open(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open catalog database: %w", err)
	}
	return catalog.NewDBProvider(db.NewRepositories(database), 0), func() { _ = database.Close() }, nil
}

func printSchedule(out io.Writer, cat *catalog.Catalog, filter catalog.Filter) error {
	ch := cat.Channel()
	events := cat.Filter(filter)

	fmt.Fprintf(out, "%s (%d of %d events, filter %s)\n\n", ch.Title, len(events), cat.Len(), filter)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSTATUS\tTITLE\tAIRS\tDURATION")
	for i := range events {
		e := &events[i]
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			cat.IndexOf(e.ID)+1, e.Status, e.Title, e.ScheduleString(), e.DurationString())
	}
	return tw.Flush()
}
