package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/franz/yt-schema/internal/store"
)

// RowCounter reports per-table row counts. *store.Store and *store.Memory
// implement it.
type RowCounter interface {
	CountRows(ctx context.Context) ([]store.TableCount, error)
}

// SummaryReport describes one import run
type SummaryReport struct {
	GeneratedAt time.Time
	Duration    time.Duration
	RunID       string

	// Import statistics
	FilesFound    int
	FilesImported int
	FilesFailed   int
	FilesSkipped  int
	Entries       int
	RowsInserted  int

	// Store contents after the run
	Tables []store.TableCount

	// Details
	TopErrors []ErrorSummary
	Failures  []FailedFile

	// Metadata
	SourcePath   string
	Backend      string
	EventLogPath string
}

// ErrorSummary represents an error with its count
type ErrorSummary struct {
	Error string
	Count int
}

// FailedFile is a document whose import was aborted
type FailedFile struct {
	Path  string
	Error string
}

// GenerateSummaryReport fills in store row counts and error rankings.
// counter may be nil when the store is unavailable.
func GenerateSummaryReport(ctx context.Context, report *SummaryReport, counter RowCounter) (*SummaryReport, error) {
	report.GeneratedAt = time.Now()

	if counter != nil {
		tables, err := counter.CountRows(ctx)
		if err != nil {
			return report, fmt.Errorf("failed to count rows: %w", err)
		}
		report.Tables = tables
	}

	report.TopErrors = gatherTopErrors(report.Failures, 10)
	return report, nil
}

// gatherTopErrors ranks failure messages by frequency
func gatherTopErrors(failures []FailedFile, limit int) []ErrorSummary {
	errorCounts := make(map[string]int)
	for _, f := range failures {
		if f.Error != "" {
			errorCounts[errorClass(f.Error)]++
		}
	}

	errors := make([]ErrorSummary, 0, len(errorCounts))
	for err, count := range errorCounts {
		errors = append(errors, ErrorSummary{Error: err, Count: count})
	}

	sort.Slice(errors, func(i, j int) bool {
		if errors[i].Count != errors[j].Count {
			return errors[i].Count > errors[j].Count
		}
		return errors[i].Error < errors[j].Error
	})

	if len(errors) > limit {
		errors = errors[:limit]
	}
	return errors
}

// errorClass drops the leading JSON path so identical failures at
// different positions group together.
func errorClass(msg string) string {
	if strings.HasPrefix(msg, "$") {
		if i := strings.Index(msg, ": "); i >= 0 {
			return msg[i+2:]
		}
	}
	return msg
}

// WriteMarkdownReport writes the summary report as Markdown
func WriteMarkdownReport(report *SummaryReport, outputPath string) error {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var md strings.Builder

	md.WriteString("# Channel Import - Summary Report\n\n")
	md.WriteString(fmt.Sprintf("**Generated:** %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05")))
	if report.RunID != "" {
		md.WriteString(fmt.Sprintf("**Run:** `%s`\n\n", report.RunID))
	}
	if report.Backend != "" {
		md.WriteString(fmt.Sprintf("**Backend:** %s\n\n", report.Backend))
	}
	if report.EventLogPath != "" {
		md.WriteString(fmt.Sprintf("**Event Log:** `%s`\n\n", report.EventLogPath))
	}

	md.WriteString("---\n\n")

	md.WriteString("## Overview\n\n")
	md.WriteString("| Metric | Value |\n")
	md.WriteString("|--------|-------|\n")
	if report.SourcePath != "" {
		md.WriteString(fmt.Sprintf("| Source | `%s` |\n", truncatePath(report.SourcePath, 60)))
	}
	md.WriteString(fmt.Sprintf("| Files Found | %s |\n", humanize.Comma(int64(report.FilesFound))))
	md.WriteString(fmt.Sprintf("| Files Imported | %s |\n", humanize.Comma(int64(report.FilesImported))))
	if report.FilesFailed > 0 {
		md.WriteString(fmt.Sprintf("| Files Failed | %s |\n", humanize.Comma(int64(report.FilesFailed))))
	}
	if report.FilesSkipped > 0 {
		md.WriteString(fmt.Sprintf("| Files Skipped | %s |\n", humanize.Comma(int64(report.FilesSkipped))))
	}
	md.WriteString(fmt.Sprintf("| Entries | %s |\n", humanize.Comma(int64(report.Entries))))
	md.WriteString(fmt.Sprintf("| Rows Inserted | %s |\n", humanize.Comma(int64(report.RowsInserted))))
	if report.Duration > 0 {
		md.WriteString(fmt.Sprintf("| Duration | %s |\n", report.Duration.Round(time.Millisecond)))
	}
	md.WriteString("\n")

	if len(report.Tables) > 0 {
		md.WriteString("## Tables\n\n")
		md.WriteString("| Table | Rows |\n")
		md.WriteString("|-------|------|\n")
		for _, tc := range report.Tables {
			md.WriteString(fmt.Sprintf("| %s | %s |\n", tc.Table, humanize.Comma(tc.Rows)))
		}
		md.WriteString("\n")
	}

	if len(report.TopErrors) > 0 {
		md.WriteString("## Top Errors\n\n")
		md.WriteString("| Count | Error |\n")
		md.WriteString("|-------|-------|\n")
		for _, err := range report.TopErrors {
			md.WriteString(fmt.Sprintf("| %d | %s |\n", err.Count, err.Error))
		}
		md.WriteString("\n")
	}

	if len(report.Failures) > 0 {
		md.WriteString("## Failed Files\n\n")
		md.WriteString("| File | Error |\n")
		md.WriteString("|------|-------|\n")
		for _, f := range report.Failures {
			md.WriteString(fmt.Sprintf("| `%s` | %s |\n", truncatePath(f.Path, 60), f.Error))
		}
		md.WriteString("\n")
	}

	md.WriteString("---\n\n")
	md.WriteString("*Generated by yts*\n")

	if err := os.WriteFile(outputPath, []byte(md.String()), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}

// truncatePath truncates a file path to a maximum length
func truncatePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	// Truncate from the middle, keeping start and end
	start := maxLen/2 - 2
	end := len(path) - (maxLen/2 - 2)
	return path[:start] + "..." + path[end:]
}
