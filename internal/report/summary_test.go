package report

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/franz/yt-schema/internal/schema"
	"github.com/franz/yt-schema/internal/store"
)

type failingCounter struct{}

func (failingCounter) CountRows(context.Context) ([]store.TableCount, error) {
	return nil, errors.New("database is locked")
}

func TestGenerateSummaryReport(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory(nil)
	id, err := mem.InsertOne(ctx, schema.Channels, schema.Record{"channel_id": "UC1"})
	if err != nil {
		t.Fatalf("InsertOne failed: %v", err)
	}
	if _, err := mem.InsertOne(ctx, schema.Entries, schema.Record{"channel_fk": id, "position": int64(0)}); err != nil {
		t.Fatalf("InsertOne failed: %v", err)
	}

	report, err := GenerateSummaryReport(ctx, &SummaryReport{
		FilesFound:    3,
		FilesImported: 1,
		FilesFailed:   2,
		EventLogPath:  "test-events.jsonl",
		Failures: []FailedFile{
			{Path: "/data/a.info.json", Error: "$.entries[0].formats: expected array, got object"},
			{Path: "/data/b.info.json", Error: "$.entries[4].formats: expected array, got object"},
		},
	}, mem)
	if err != nil {
		t.Fatalf("GenerateSummaryReport failed: %v", err)
	}

	if report.GeneratedAt.IsZero() {
		t.Error("Expected GeneratedAt to be set")
	}
	if len(report.Tables) != len(schema.Default().Tables()) {
		t.Fatalf("Expected a count for every table, got %d", len(report.Tables))
	}
	counts := map[string]int64{}
	for _, tc := range report.Tables {
		counts[tc.Table] = tc.Rows
	}
	if counts[schema.Channels] != 1 || counts[schema.Entries] != 1 || counts[schema.Formats] != 0 {
		t.Errorf("Unexpected table counts: %v", counts)
	}

	if len(report.TopErrors) != 1 {
		t.Fatalf("Expected failures at different paths to group, got %v", report.TopErrors)
	}
	if report.TopErrors[0].Count != 2 || report.TopErrors[0].Error != "expected array, got object" {
		t.Errorf("Unexpected top error: %+v", report.TopErrors[0])
	}
}

func TestGenerateSummaryReport_CounterError(t *testing.T) {
	report := &SummaryReport{FilesFound: 1}
	if _, err := GenerateSummaryReport(context.Background(), report, failingCounter{}); err == nil {
		t.Error("Expected count failure to be returned")
	}
}

func TestGenerateSummaryReport_NoCounter(t *testing.T) {
	report, err := GenerateSummaryReport(context.Background(), &SummaryReport{}, nil)
	if err != nil {
		t.Fatalf("GenerateSummaryReport failed: %v", err)
	}
	if report.Tables != nil || len(report.TopErrors) != 0 {
		t.Errorf("Expected empty report, got %+v", report)
	}
}

func TestGatherTopErrors(t *testing.T) {
	var failures []FailedFile
	for i := 0; i < 15; i++ {
		failures = append(failures, FailedFile{Path: "x", Error: strings.Repeat("e", i+1)})
	}
	failures = append(failures, FailedFile{Path: "y", Error: "eee"}, FailedFile{Path: "z"})

	top := gatherTopErrors(failures, 10)
	if len(top) != 10 {
		t.Fatalf("Expected limit of 10, got %d", len(top))
	}
	if top[0].Error != "eee" || top[0].Count != 2 {
		t.Errorf("Expected most frequent error first, got %+v", top[0])
	}
	if top[1].Error != "e" {
		t.Errorf("Expected ties broken alphabetically, got %+v", top[1])
	}
}

func TestWriteMarkdownReport(t *testing.T) {
	tmpDir := t.TempDir()
	outputPath := filepath.Join(tmpDir, "reports", "summary.md")

	report := &SummaryReport{
		GeneratedAt:   time.Now(),
		Duration:      2500 * time.Millisecond,
		RunID:         "0b4c2b1e-0000-4000-8000-000000000000",
		FilesFound:    12,
		FilesImported: 11,
		FilesFailed:   1,
		Entries:       1234,
		RowsInserted:  56789,
		Tables: []store.TableCount{
			{Table: schema.Channels, Rows: 11},
			{Table: schema.Formats, Rows: 43210},
		},
		TopErrors:    []ErrorSummary{{Error: "unexpected EOF", Count: 1}},
		Failures:     []FailedFile{{Path: "/data/broken.info.json", Error: "unexpected EOF"}},
		SourcePath:   "/data",
		Backend:      "sqlite",
		EventLogPath: "/tmp/events.jsonl",
	}

	if err := WriteMarkdownReport(report, outputPath); err != nil {
		t.Fatalf("WriteMarkdownReport failed: %v", err)
	}

	content, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("Failed to read report: %v", err)
	}
	contentStr := string(content)

	expectedSections := []string{
		"# Channel Import - Summary Report",
		"## Overview",
		"## Tables",
		"## Top Errors",
		"## Failed Files",
		"| Entries | 1,234 |",
		"| Rows Inserted | 56,789 |",
		"| formats | 43,210 |",
		"| Duration | 2.5s |",
		"`/data/broken.info.json`",
		"**Backend:** sqlite",
	}
	for _, section := range expectedSections {
		if !strings.Contains(contentStr, section) {
			t.Errorf("Report missing %q", section)
		}
	}
}

func TestTruncatePath(t *testing.T) {
	testCases := []struct {
		name   string
		path   string
		maxLen int
	}{
		{
			name:   "Short path - no truncation",
			path:   "/data/chan.info.json",
			maxLen: 50,
		},
		{
			name:   "Long path - truncate middle",
			path:   "/very/long/path/to/some/archive/of/channels/UCabcdef.info.json",
			maxLen: 30,
		},
		{
			name:   "Exactly at limit",
			path:   "/data/x.info.json",
			maxLen: 17,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := truncatePath(tc.path, tc.maxLen)

			if len(result) > tc.maxLen {
				t.Errorf("Result length %d exceeds maxLen %d", len(result), tc.maxLen)
			}
			if len(tc.path) > tc.maxLen && !strings.Contains(result, "...") {
				t.Error("Expected truncated path to contain '...'")
			}
			if len(tc.path) <= tc.maxLen && result != tc.path {
				t.Errorf("Short path should not be truncated: expected '%s', got '%s'", tc.path, result)
			}
		})
	}
}

func TestReportWithEmptyData(t *testing.T) {
	tmpDir := t.TempDir()

	report, err := GenerateSummaryReport(context.Background(), &SummaryReport{}, store.NewMemory(nil))
	if err != nil {
		t.Fatalf("GenerateSummaryReport failed: %v", err)
	}

	outputPath := filepath.Join(tmpDir, "empty-summary.md")
	if err := WriteMarkdownReport(report, outputPath); err != nil {
		t.Fatalf("WriteMarkdownReport failed on empty data: %v", err)
	}

	content, _ := os.ReadFile(outputPath)
	if strings.Contains(string(content), "## Failed Files") {
		t.Error("Empty report should not list failed files")
	}
	if !strings.Contains(string(content), "Generated by") {
		t.Error("Report missing footer")
	}
}
