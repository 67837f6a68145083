package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/stwalsh4118/livetv/internal/catalog"
	"github.com/stwalsh4118/livetv/internal/db"
)

var seedPath string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Import the fixture lineup into the catalog database",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		path := cfg.Catalog.FixturePath
		if seedPath != "" {
			path = seedPath
		}

		database, err := db.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to open catalog database: %w", err)
		}
		defer func() { _ = database.Close() }()

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		channel, err := catalog.Seed(ctx, database, catalog.NewFixtureProvider(path))
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Seeded %q with %d events into %s\n", channel.Title, len(channel.Events), cfg.Database.Path)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedPath, "lineup", "", "lineup JSON file to import (defaults to the configured fixture, or the embedded lineup)")
}
