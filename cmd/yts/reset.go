package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/franz/yt-schema/internal/store"
	"github.com/franz/yt-schema/internal/util"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop and recreate every table",
	Long: `Drop every table of the schema and create it again, empty.

This is the only way to re-import a channel that is already in the database.
It requires --yes.`,
	RunE: runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)

	resetCmd.Flags().Bool("yes", false, "confirm that all imported data may be deleted")
}

func runReset(cmd *cobra.Command, args []string) error {
	yes, _ := cmd.Flags().GetBool("yes")
	if !yes {
		return fmt.Errorf("refusing to drop all tables without --yes")
	}

	ctx := context.Background()
	cfg := storeConfig()
	return resetStore(ctx, cfg)
}

func resetStore(ctx context.Context, cfg store.Config) error {
	util.InfoLog("Opening %s database: %s", cfg.Kind, redactDSN(cfg.Kind, cfg.DSN))
	st, err := store.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()

	if err := st.Reset(ctx); err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}
	util.SuccessLog("Recreated %d tables", len(st.Registry().Tables()))
	return nil
}
