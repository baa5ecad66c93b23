package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/franz/yt-schema/internal/extract"
	"github.com/franz/yt-schema/internal/ingest"
	"github.com/franz/yt-schema/internal/report"
	"github.com/franz/yt-schema/internal/scan"
	"github.com/franz/yt-schema/internal/store"
	"github.com/franz/yt-schema/internal/util"
)

var importCmd = &cobra.Command{
	Use:   "import <file-or-directory>",
	Short: "Import channel documents into the database",
	Long: `Import one channel document, or every document in a directory whose name
matches --pattern (default *.info.json).

Each document becomes one channels row plus one entries row per video found
anywhere in its playlist tree. With --atomic (the default) a document that
fails halfway leaves nothing behind; other documents in the batch still
import.

Importing a channel that is already in the database fails on the
channels.channel_id unique constraint. Use --reset (or db.reset_on_import) to
start from an empty schema. A document with neither channel_id nor id cannot
be recognized again and is imported as a new channel every time.

The default pattern also matches the info files yt-dlp writes per video.
Such a file has no entries and becomes a channel without videos; yts warns
when that happens.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().String("pattern", scan.DefaultPattern, "file name pattern for directory imports")
	importCmd.Flags().IntP("concurrency", "j", defaultConcurrency, "number of documents imported in parallel")
	importCmd.Flags().Bool("atomic", true, "import each document in one transaction")
	importCmd.Flags().String("timezone", extract.DefaultTimezone, "zone for local timestamps (empty for UTC)")
	importCmd.Flags().Bool("reset", false, "drop and recreate all tables before importing")
	importCmd.Flags().Bool("dry-run", false, "map documents in memory without touching the database")
	importCmd.Flags().Bool("report", true, "write a Markdown summary to artifacts/reports/<timestamp>")

	viper.BindPFlag("import.pattern", importCmd.Flags().Lookup("pattern"))
	viper.BindPFlag("import.concurrency", importCmd.Flags().Lookup("concurrency"))
	viper.BindPFlag("import.atomic", importCmd.Flags().Lookup("atomic"))
	viper.BindPFlag("import.timezone", importCmd.Flags().Lookup("timezone"))
	viper.BindPFlag("db.reset_on_import", importCmd.Flags().Lookup("reset"))
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	target := args[0]
	info, err := os.Stat(target)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", util.ErrNotFound, target)
	}
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", target, err)
	}

	loc, err := loadLocation(viper.GetString("import.timezone"))
	if err != nil {
		return err
	}
	concurrency := GetConfigInt("import.concurrency", defaultConcurrency)
	if concurrency < 0 {
		return fmt.Errorf("%w: import.concurrency must be positive, got %d", util.ErrInvalidConfig, concurrency)
	}
	pattern := GetConfigString("import.pattern", scan.DefaultPattern)
	atomicImport := GetConfigBool("import.atomic")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	writeReport, _ := cmd.Flags().GetBool("report")
	cfg := storeConfig()
	if cfg.Kind == "sqlite" && !dryRun {
		if n, mount := util.SQLiteConcurrency(cfg.DSN, concurrency); n != concurrency {
			util.WarnLog("Database is on a %s mount (%s), importing with a single writer", mount.Protocol, mount.MountPath)
			concurrency = n
		}
	}

	// Create event logger with appropriate log level
	logLevel := report.LevelInfo
	if viper.GetBool("quiet") {
		logLevel = report.LevelWarning
	} else if viper.GetBool("verbose") {
		logLevel = report.LevelDebug
	}
	artifacts := GetConfigString("artifacts", "artifacts")
	logger, err := report.NewEventLogger(artifacts, logLevel)
	if err != nil {
		util.WarnLog("Failed to create event logger: %v", err)
		logger = report.NullLogger()
	}
	defer logger.Close()

	if logger.Path() != "" {
		util.InfoLog("Event log: %s", logger.Path())
	}

	var (
		mem     *store.Memory
		counter report.RowCounter
		backend = cfg.Kind
	)
	if dryRun {
		util.InfoLog("Dry run: documents are mapped in memory only")
		mem = store.NewMemory(nil)
		counter = mem
		backend = "memory"
	} else {
		util.InfoLog("Opening %s database: %s", cfg.Kind, redactDSN(cfg.Kind, cfg.DSN))
		st, err := store.Open(ctx, cfg)
		if err != nil {
			logger.LogError("", err)
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer st.Close()

		if GetConfigBool("db.reset_on_import") {
			util.WarnLog("Dropping and recreating all tables")
			if err := st.Reset(ctx); err != nil {
				return fmt.Errorf("reset failed: %w", err)
			}
			logger.LogReset(cfg.Kind)
		}
		counter = st
	}

	var paths []string
	if info.IsDir() {
		paths, err = scan.Discover(target, pattern)
		if err != nil {
			logger.LogError(target, err)
			return err
		}
	} else {
		paths = []string{target}
	}

	util.InfoLog("Source: %s (%d documents)", target, len(paths))
	util.InfoLog("Concurrency: %d, atomic: %v, timezone: %s", concurrency, atomicImport, loc)
	logger.LogRunStart(target, backend, len(paths))

	scanner := scan.New(&scan.Config{
		Store:       cfg,
		Memory:      mem,
		Importer:    ingest.NewImporter(nil, extract.New(loc)),
		Pattern:     pattern,
		Concurrency: concurrency,
		Atomic:      atomicImport,
		Logger:      logger,
	})

	startTime := time.Now()
	result, runErr := scanner.Import(ctx, paths)
	duration := time.Since(startTime)
	logger.LogRunEnd(result.FilesImported, result.FilesFailed, duration)

	util.InfoLog("")
	util.SuccessLog("=== Import Summary ===")
	util.InfoLog("Total time: %v", duration.Round(time.Millisecond))
	util.InfoLog("  Documents imported: %d", result.FilesImported)
	util.InfoLog("  Entries: %s", humanize.Comma(int64(result.Entries)))
	util.InfoLog("  Rows inserted: %s", humanize.Comma(int64(result.Rows)))
	if result.FilesSkipped > 0 {
		util.WarnLog("  Skipped: %d", result.FilesSkipped)
	}
	if result.FilesFailed > 0 {
		util.WarnLog("  Failed: %d", result.FilesFailed)
	}

	if writeReport {
		if err := writeSummary(context.WithoutCancel(ctx), artifacts, target, backend, logger, result, duration, counter); err != nil {
			util.WarnLog("Failed to write summary report: %v", err)
		}
	}

	if runErr != nil {
		return fmt.Errorf("import interrupted: %w", runErr)
	}
	if result.FilesFailed > 0 {
		return fmt.Errorf("%d of %d documents failed to import", result.FilesFailed, result.FilesFound)
	}
	return nil
}

func writeSummary(ctx context.Context, artifacts, source, backend string, logger *report.EventLogger,
	result *scan.Result, duration time.Duration, counter report.RowCounter) error {
	summary := &report.SummaryReport{
		Duration:      duration,
		RunID:         logger.RunID(),
		FilesFound:    result.FilesFound,
		FilesImported: result.FilesImported,
		FilesFailed:   result.FilesFailed,
		FilesSkipped:  result.FilesSkipped,
		Entries:       result.Entries,
		RowsInserted:  result.Rows,
		SourcePath:    source,
		Backend:       backend,
		EventLogPath:  logger.Path(),
	}
	for _, f := range result.Failures {
		summary.Failures = append(summary.Failures, report.FailedFile{Path: f.Path, Error: f.Err.Error()})
	}

	summary, err := report.GenerateSummaryReport(ctx, summary, counter)
	if err != nil {
		return err
	}

	outputPath := filepath.Join(artifacts, "reports", time.Now().Format("20060102-150405"), "summary.md")
	if err := report.WriteMarkdownReport(summary, outputPath); err != nil {
		return err
	}
	util.InfoLog("Report saved to: %s", outputPath)
	return nil
}
