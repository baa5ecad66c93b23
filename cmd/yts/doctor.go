package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/franz/yt-schema/internal/scan"
	"github.com/franz/yt-schema/internal/schema"
	"github.com/franz/yt-schema/internal/store"
	"github.com/franz/yt-schema/internal/util"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks on the environment and configuration",
	Long: `Run diagnostic checks to ensure yts can operate correctly.

This command checks:
- Built-in SQLite version and registered backends
- The configured import timezone
- Database accessibility, schema and integrity
- The source directory, if given

Use this command to troubleshoot issues before importing.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)

	doctorCmd.Flags().String("src", "", "Source directory to check (optional)")
}

type checkResult struct {
	name    string
	message string
	error   bool
	warning bool
}

func runDoctor(cmd *cobra.Command, args []string) error {
	util.InfoLog("=== yts doctor - System Diagnostics ===")
	util.InfoLog("")

	results := []checkResult{}

	results = append(results, checkSQLite())
	results = append(results, checkBackends(GetConfigString("db.kind", defaultKind)))
	results = append(results, checkTimezone(viper.GetString("import.timezone")))
	results = append(results, checkDatabase(storeConfig()))
	if cfg := storeConfig(); cfg.Kind == "sqlite" {
		results = append(results, checkDatabaseFilesystem(cfg.DSN))
	}

	srcPath, _ := cmd.Flags().GetString("src")
	if srcPath != "" {
		results = append(results, checkSourceDirectory(srcPath, GetConfigString("import.pattern", scan.DefaultPattern)))
	}

	util.InfoLog("")
	util.InfoLog("=== Diagnostic Results ===")
	util.InfoLog("")

	hasErrors := false
	hasWarnings := false

	for _, r := range results {
		symbol := "✓"
		if r.error {
			symbol = "✗"
			hasErrors = true
		} else if r.warning {
			symbol = "⚠"
			hasWarnings = true
		}

		line := fmt.Sprintf("[%s] %s", symbol, r.name)
		if r.message != "" {
			line += fmt.Sprintf(": %s", r.message)
		}

		if r.error {
			util.ErrorLog("%s", line)
		} else if r.warning {
			util.WarnLog("%s", line)
		} else {
			util.SuccessLog("%s", line)
		}
	}

	util.InfoLog("")
	if hasErrors {
		util.ErrorLog("❌ Some critical checks failed. Please resolve errors before importing.")
		return fmt.Errorf("system diagnostics failed")
	} else if hasWarnings {
		util.WarnLog("⚠️  Some checks produced warnings. Review them before proceeding.")
	} else {
		util.SuccessLog("✅ All checks passed! Ready to import.")
	}

	return nil
}

// checkSQLite verifies the embedded SQLite version
func checkSQLite() checkResult {
	version := store.SQLiteVersion()
	if version == "" {
		return checkResult{
			name:    "SQLite",
			error:   true,
			message: "unable to determine version",
		}
	}

	return checkResult{
		name:    "SQLite",
		message: fmt.Sprintf("version %s (built-in)", version),
	}
}

// checkBackends verifies the configured db.kind is compiled in
func checkBackends(kind string) checkResult {
	kinds := store.Kinds()
	for _, k := range kinds {
		if k == kind {
			return checkResult{
				name:    "Backend",
				message: fmt.Sprintf("%s (available: %s)", kind, strings.Join(kinds, ", ")),
			}
		}
	}
	return checkResult{
		name:    "Backend",
		error:   true,
		message: fmt.Sprintf("unknown db.kind %q (available: %s)", kind, strings.Join(kinds, ", ")),
	}
}

// checkTimezone verifies import.timezone resolves
func checkTimezone(name string) checkResult {
	loc, err := loadLocation(name)
	if err != nil {
		return checkResult{
			name:    "Timezone",
			error:   true,
			message: err.Error(),
		}
	}
	if loc == time.UTC {
		return checkResult{
			name:    "Timezone",
			warning: true,
			message: "UTC (upload timestamps will not be localized)",
		}
	}
	return checkResult{
		name:    "Timezone",
		message: loc.String(),
	}
}

// checkDatabase verifies the database is reachable and consistent
func checkDatabase(cfg store.Config) checkResult {
	if cfg.DSN == "" {
		return checkResult{
			name:    "Database",
			warning: true,
			message: "no database specified (use --db flag or config)",
		}
	}

	size := ""
	if cfg.Kind == "" || cfg.Kind == "sqlite" {
		info, err := os.Stat(cfg.DSN)
		if err != nil {
			if os.IsNotExist(err) {
				return checkResult{
					name:    "Database",
					message: fmt.Sprintf("%s (will be created on first import)", cfg.DSN),
				}
			}
			return checkResult{
				name:    "Database",
				error:   true,
				message: fmt.Sprintf("cannot access %s: %v", cfg.DSN, err),
			}
		}
		if !info.Mode().IsRegular() {
			return checkResult{
				name:    "Database",
				error:   true,
				message: fmt.Sprintf("%s is not a regular file", cfg.DSN),
			}
		}
		size = humanize.Bytes(uint64(info.Size())) + ", "
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := store.Open(ctx, cfg)
	if err != nil {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("cannot open %s: %v", redactDSN(cfg.Kind, cfg.DSN), err),
		}
	}
	defer db.Close()

	if err := db.CheckIntegrity(ctx); err != nil {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("integrity check failed: %v", err),
		}
	}

	counts, err := db.CountRows(ctx)
	if err != nil {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("cannot count rows: %v", err),
		}
	}
	var channels, entries int64
	for _, c := range counts {
		switch c.Table {
		case schema.Channels:
			channels = c.Rows
		case schema.Entries:
			entries = c.Rows
		}
	}

	version, _ := db.Version(ctx)
	return checkResult{
		name: "Database",
		message: fmt.Sprintf("%s (%s%d channels, %s entries, server %s)",
			redactDSN(cfg.Kind, cfg.DSN), size, channels, humanize.Comma(entries), version),
	}
}

// checkDatabaseFilesystem warns when a SQLite file sits on a network mount
func checkDatabaseFilesystem(dsn string) checkResult {
	_, info := util.SQLiteConcurrency(dsn, 2)
	if info == nil {
		return checkResult{
			name:    "Database filesystem",
			message: "not applicable",
		}
	}
	if info.IsNetwork {
		return checkResult{
			name:    "Database filesystem",
			warning: true,
			message: fmt.Sprintf("%s mount at %s (WAL unsupported, imports use one writer)", info.Protocol, info.MountPath),
		}
	}
	return checkResult{
		name:    "Database filesystem",
		message: "local",
	}
}

// checkSourceDirectory verifies the source directory holds importable documents
func checkSourceDirectory(path, pattern string) checkResult {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		err = util.ErrNotFound
	}
	if err != nil {
		return checkResult{
			name:    "Source directory",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", path, err),
		}
	}

	if !info.IsDir() {
		return checkResult{
			name:    "Source directory",
			error:   true,
			message: fmt.Sprintf("%s is not a directory", path),
		}
	}

	paths, err := scan.Discover(path, pattern)
	if err != nil {
		return checkResult{
			name:    "Source directory",
			error:   true,
			message: err.Error(),
		}
	}
	if len(paths) == 0 {
		return checkResult{
			name:    "Source directory",
			warning: true,
			message: fmt.Sprintf("%s has no files matching %s", path, pattern),
		}
	}

	where := ""
	if util.IsNetworkPath(path) {
		where = ", network mount"
	}
	return checkResult{
		name:    "Source directory",
		message: fmt.Sprintf("%s (%d documents%s)", path, len(paths), where),
	}
}
