// Package ingest maps a decoded channel document onto the registry tables.
//
// Every mapper receives its raw sub-node and the id of its already inserted
// owner. A mapper inserts its own row first, then hands the new id to the
// mappers of its children, so no row is ever written before its owner.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/franz/yt-schema/internal/extract"
	"github.com/franz/yt-schema/internal/schema"
	"github.com/franz/yt-schema/internal/util"
	"github.com/franz/yt-schema/internal/walk"
)

// Sink receives mapped rows. *store.Store, *store.Tx and *store.Memory
// implement it.
type Sink interface {
	// InsertOne writes one row and returns its generated id.
	InsertOne(ctx context.Context, table string, rec schema.Record) (int64, error)
	// InsertMany writes rows whose ids nobody needs.
	InsertMany(ctx context.Context, table string, recs []schema.Record) error
}

// Result summarizes one imported document.
type Result struct {
	// ChannelID is the surrogate id of the channels row.
	ChannelID int64
	// Channel is the document's own channel_id, empty when absent.
	Channel string
	// Entries is the number of leaf entries found by the walker.
	Entries int
	// Rows counts inserted rows per table.
	Rows map[string]int
}

// Total returns the number of rows inserted across all tables.
func (r *Result) Total() int {
	n := 0
	for _, c := range r.Rows {
		n += c
	}
	return n
}

// Importer maps whole documents. It holds no per-document state and is safe
// for concurrent use with distinct sinks.
type Importer struct {
	reg *schema.Registry
	ex  *extract.Extractor
}

// NewImporter creates an importer. A nil reg uses schema.Default(); a nil ex
// localizes into extract.DefaultTimezone, falling back to UTC when the zone
// database is unavailable.
func NewImporter(reg *schema.Registry, ex *extract.Extractor) *Importer {
	if reg == nil {
		reg = schema.Default()
	}
	if ex == nil {
		ex = extract.New(defaultLocation())
	}
	return &Importer{reg: reg, ex: ex}
}

// Import maps doc into sink. The first malformed node or insert failure
// aborts the document; rows inserted before it stay unless sink is a
// transaction the caller rolls back.
func (im *Importer) Import(ctx context.Context, sink Sink, doc any) (*Result, error) {
	r := &run{
		ctx:    ctx,
		sink:   sink,
		im:     im,
		result: &Result{Rows: make(map[string]int)},
	}
	if err := r.channel(doc); err != nil {
		return r.result, err
	}
	return r.result, nil
}

// Decode reads one JSON document, keeping numbers as json.Number so integer
// ids and counts survive without float rounding.
func Decode(rd io.Reader) (any, error) {
	dec := json.NewDecoder(rd)
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrMalformed, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after document", util.ErrMalformed)
	}
	return doc, nil
}

// run carries the state of one Import call.
type run struct {
	ctx    context.Context
	sink   Sink
	im     *Importer
	result *Result
}

func (r *run) table(name string) *schema.Table {
	t, err := r.im.reg.Table(name)
	if err != nil {
		// Mappers only name tables declared by the default registry.
		panic(err)
	}
	return t
}

// record extracts the scalar columns of table from raw and merges extra.
func (r *run) record(table string, raw any, path string, extra schema.Record) (schema.Record, error) {
	if _, ok := raw.(map[string]any); !ok {
		return nil, extract.NewShapeError(path, "object", raw)
	}
	rec, err := r.im.ex.Extract(raw, r.table(table))
	if err != nil {
		return nil, err
	}
	for k, v := range extra {
		rec[k] = v
	}
	return rec, nil
}

// one inserts a single row that children will reference.
func (r *run) one(table string, raw any, path string, extra schema.Record) (int64, error) {
	rec, err := r.record(table, raw, path, extra)
	if err != nil {
		return 0, err
	}
	return r.insertOne(table, rec, path)
}

func (r *run) insertOne(table string, rec schema.Record, path string) (int64, error) {
	id, err := r.sink.InsertOne(r.ctx, table, rec)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	r.result.Rows[table]++
	return id, nil
}

// many maps a list of objects into leaf rows with one InsertMany call.
func (r *run) many(table string, raw any, path string, owner schema.Record) error {
	items, err := list(raw, path)
	if err != nil || len(items) == 0 {
		return err
	}
	recs := make([]schema.Record, 0, len(items))
	for i, item := range items {
		rec, err := r.record(table, item, fmt.Sprintf("%s[%d]", path, i), owner)
		if err != nil {
			return err
		}
		recs = append(recs, rec)
	}
	return r.insertMany(table, recs, path)
}

// scalars maps a list of plain values into rows of a single column.
// Null elements are skipped.
func (r *run) scalars(table, column string, raw any, path string, owner schema.Record) error {
	items, err := list(raw, path)
	if err != nil || len(items) == 0 {
		return err
	}
	col, _ := r.table(table).Column(column)

	recs := make([]schema.Record, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		rec := schema.Record{column: r.im.ex.Coerce(col, item)}
		for k, v := range owner {
			rec[k] = v
		}
		recs = append(recs, rec)
	}
	return r.insertMany(table, recs, path)
}

func (r *run) insertMany(table string, recs []schema.Record, path string) error {
	if len(recs) == 0 {
		return nil
	}
	if err := r.sink.InsertMany(r.ctx, table, recs); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	r.result.Rows[table] += len(recs)
	return nil
}

// list returns raw as a list. nil is an empty list.
func list(raw any, path string) ([]any, error) {
	if raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, extract.NewShapeError(path, "array", raw)
	}
	return items, nil
}

// keyed returns the keys of a keyed-map node in sorted order.
func keyed(raw any, path string) (map[string]any, []string, error) {
	if raw == nil {
		return nil, nil, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, nil, extract.NewShapeError(path, "object", raw)
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return m, keys, nil
}

// field reads key from a node already known to be an object, falling back
// to alternates when key is missing or null.
func field(node map[string]any, key string, alternates ...string) (any, string) {
	if v := node[key]; v != nil {
		return v, key
	}
	for _, alt := range alternates {
		if v := node[alt]; v != nil {
			return v, alt
		}
	}
	return nil, key
}

// entries flattens the document and maps every leaf entry.
func (r *run) entries(channelID int64, doc any) error {
	leaves, err := walk.Flatten(doc)
	if err != nil {
		return err
	}
	r.result.Entries = len(leaves)
	for _, leaf := range leaves {
		if err := r.entry(channelID, leaf); err != nil {
			return err
		}
	}
	return nil
}
