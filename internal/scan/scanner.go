// Package scan imports every channel document in a directory.
package scan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/sourcegraph/conc/pool"

	"github.com/franz/yt-schema/internal/ingest"
	"github.com/franz/yt-schema/internal/report"
	"github.com/franz/yt-schema/internal/store"
	"github.com/franz/yt-schema/internal/util"
)

// DefaultPattern matches the metadata files yt-dlp writes with --write-info-json.
const DefaultPattern = "*.info.json"

// Scanner imports the documents of one directory
type Scanner struct {
	storeCfg    store.Config
	memory      *store.Memory
	importer    *ingest.Importer
	pattern     string
	concurrency int
	atomic      bool
	logger      *report.EventLogger
}

// Config holds scanner configuration
type Config struct {
	// Store is opened once per worker, or once per batch when the backend
	// allows a single writer.
	Store store.Config
	// Memory, when set, replaces Store for every worker (dry run).
	Memory *store.Memory

	Importer    *ingest.Importer
	Pattern     string
	Concurrency int
	// Atomic wraps each document in one transaction so a failed document
	// leaves no rows behind.
	Atomic bool
	Logger *report.EventLogger
}

// New creates a new Scanner
func New(cfg *Config) *Scanner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Pattern == "" {
		cfg.Pattern = DefaultPattern
	}
	if cfg.Importer == nil {
		cfg.Importer = ingest.NewImporter(cfg.Store.Registry, nil)
	}

	return &Scanner{
		storeCfg:    cfg.Store,
		memory:      cfg.Memory,
		importer:    cfg.Importer,
		pattern:     cfg.Pattern,
		concurrency: cfg.Concurrency,
		atomic:      cfg.Atomic,
		logger:      cfg.Logger,
	}
}

// FileResult is the outcome of one document
type FileResult struct {
	Path     string
	Result   *ingest.Result
	Duration time.Duration
	Err      error
}

// Result represents a batch result
type Result struct {
	FilesFound    int
	FilesImported int
	FilesFailed   int
	FilesSkipped  int
	Entries       int
	Rows          int
	Failures      []FileResult
}

// Discover lists the regular files directly under dir whose names match
// pattern, sorted by name.
func Discover(dir, pattern string) ([]string, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("%w: bad pattern %q: %v", util.ErrInvalidConfig, pattern, err)
	}

	ents, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", util.ErrNotFound, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var paths []string
	for _, e := range ents {
		if !e.Type().IsRegular() {
			continue
		}
		if ok, _ := filepath.Match(pattern, e.Name()); ok {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// Run imports every matching document under dir. Per-file failures are
// recorded in the result and do not stop the batch. Cancelling ctx stops
// dispatching new files; a document already being imported is finished.
func (sc *Scanner) Run(ctx context.Context, dir string) (*Result, error) {
	paths, err := Discover(dir, sc.pattern)
	if err != nil {
		return nil, err
	}
	util.InfoLog("Found %d documents matching %s in %s", len(paths), sc.pattern, dir)
	return sc.Import(ctx, paths)
}

// Import imports the given documents in order of dispatch. It follows the
// same failure and cancellation rules as Run.
func (sc *Scanner) Import(ctx context.Context, paths []string) (*Result, error) {
	result := &Result{FilesFound: len(paths)}
	if len(paths) == 0 {
		return result, nil
	}

	var imported, failed, entries, rows atomic.Int64
	var mu sync.Mutex

	isTTY := util.IsTerminal(os.Stdout.Fd())
	var bar *progressbar.ProgressBar
	if isTTY && !util.IsQuiet() {
		bar = progressbar.NewOptions(len(paths),
			progressbar.OptionSetDescription("Importing"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("docs"),
			progressbar.OptionThrottle(200*time.Millisecond),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetRenderBlankState(true),
		)
	}

	record := func(fr FileResult) {
		if fr.Err != nil {
			failed.Add(1)
			util.ErrorLog("Failed to import %s: %v", fr.Path, fr.Err)
			mu.Lock()
			result.Failures = append(result.Failures, fr)
			mu.Unlock()
		} else {
			imported.Add(1)
			entries.Add(int64(fr.Result.Entries))
			rows.Add(int64(fr.Result.Total()))
			if fr.Result.Entries == 0 {
				util.WarnLog("%s has no entries (a single video's info file is imported as an empty channel)", fr.Path)
			}
			util.DebugLog("Imported %s: %d entries, %d rows in %s", fr.Path, fr.Result.Entries, fr.Result.Total(), fr.Duration)
		}
		sc.logImport(fr)

		if bar != nil {
			bar.Describe(fmt.Sprintf("Importing | %d ok | %d failed", imported.Load(), failed.Load()))
			bar.Add(1)
		}
	}

	queue := make(chan string)
	workers := sc.concurrency
	if workers > len(paths) {
		workers = len(paths)
	}

	// A single-writer backend gets one store for the whole batch. Workers
	// still read and decode in parallel; their transactions take turns.
	var (
		shared  *store.Store
		openErr error
	)
	if sc.memory == nil && store.SingleWriter(sc.storeCfg.Kind) {
		shared, openErr = store.Open(ctx, sc.storeCfg)
		if openErr != nil {
			workers = 1
		} else {
			defer shared.Close()
			util.DebugLog("%s allows one writer; %d workers share a connection", shared.Kind(), workers)
		}
	}

	p := pool.New().WithErrors()
	for i := 0; i < workers; i++ {
		p.Go(func() error {
			return sc.worker(ctx, queue, record, shared, openErr)
		})
	}

	dispatched := 0
dispatch:
	for _, path := range paths {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break dispatch
		case queue <- path:
			dispatched++
		}
	}
	close(queue)
	workerErr := p.Wait()

	for _, path := range paths[dispatched:] {
		sc.logger.LogSkip(path, "canceled")
	}

	if bar != nil {
		bar.Finish()
	}

	result.FilesImported = int(imported.Load())
	result.FilesFailed = int(failed.Load())
	result.FilesSkipped = len(paths) - dispatched
	result.Entries = int(entries.Load())
	result.Rows = int(rows.Load())
	sort.Slice(result.Failures, func(i, j int) bool {
		return result.Failures[i].Path < result.Failures[j].Path
	})

	if workerErr != nil {
		return result, workerErr
	}
	if result.FilesSkipped > 0 {
		return result, ctx.Err()
	}

	util.SuccessLog("Import complete: %d imported, %d failed, %d entries, %d rows",
		result.FilesImported, result.FilesFailed, result.Entries, result.Rows)
	return result, nil
}

// worker imports paths until the queue is closed. It uses shared when set,
// otherwise it owns one store connection for its lifetime.
func (sc *Scanner) worker(ctx context.Context, queue <-chan string, record func(FileResult), shared *store.Store, openErr error) error {
	st := shared
	if openErr == nil && st == nil && sc.memory == nil {
		st, openErr = store.Open(ctx, sc.storeCfg)
		if openErr == nil {
			defer st.Close()
		}
	}
	if openErr != nil {
		sc.logger.LogError("", openErr)
		// Drain so the dispatcher never blocks on a dead worker.
		for path := range queue {
			record(FileResult{Path: path, Err: openErr})
		}
		return fmt.Errorf("worker failed to open store: %w", openErr)
	}

	for path := range queue {
		// The document runs to completion even if ctx is cancelled meanwhile.
		record(sc.importFile(context.WithoutCancel(ctx), st, path))
	}
	return nil
}

func (sc *Scanner) importFile(ctx context.Context, st *store.Store, path string) FileResult {
	start := time.Now()
	fr := FileResult{Path: path}

	doc, err := readDocument(path)
	if err != nil {
		fr.Err = err
		fr.Duration = time.Since(start)
		return fr
	}

	switch {
	case st == nil:
		fr.Result, fr.Err = sc.importer.Import(ctx, sc.memory, doc)
	case sc.atomic:
		fr.Err = st.Transaction(ctx, func(tx *store.Tx) error {
			var err error
			fr.Result, err = sc.importer.Import(ctx, tx, doc)
			return err
		})
	default:
		fr.Result, fr.Err = sc.importer.Import(ctx, st, doc)
	}
	fr.Duration = time.Since(start)
	return fr
}

func readDocument(path string) (any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer f.Close()
	return ingest.Decode(f)
}

func (sc *Scanner) logImport(fr FileResult) {
	var (
		channelID string
		n         int
		rows      map[string]int
	)
	if fr.Result != nil && fr.Err == nil {
		n = fr.Result.Entries
		rows = fr.Result.Rows
		channelID = fr.Result.Channel
	}
	if err := sc.logger.LogImport(fr.Path, channelID, n, rows, fr.Duration, fr.Err); err != nil && !errors.Is(err, os.ErrClosed) {
		util.WarnLog("Failed to write event: %v", err)
	}
}
