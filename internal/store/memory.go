package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/franz/yt-schema/internal/schema"
)

// Row is a record held by Memory with its assigned id.
type Row struct {
	ID     int64
	Record schema.Record
}

// Insert is one entry of Memory's insertion log.
type Insert struct {
	Seq   int
	Table string
	ID    int64
}

// Memory is an in-process sink. It assigns per-table ids starting at 1,
// keeps an ordered insertion log, and enforces the registry's NOT NULL,
// unique and foreign key constraints the way a real backend would.
type Memory struct {
	reg *schema.Registry

	mu     sync.Mutex
	rows   map[string][]Row
	ids    map[string]map[int64]bool
	unique map[string]map[string]bool
	log    []Insert
}

// NewMemory creates an empty sink for reg. A nil reg uses schema.Default().
func NewMemory(reg *schema.Registry) *Memory {
	if reg == nil {
		reg = schema.Default()
	}
	m := &Memory{reg: reg}
	m.Reset()
	return m
}

// Reset discards all rows.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = make(map[string][]Row)
	m.ids = make(map[string]map[int64]bool)
	m.unique = make(map[string]map[string]bool)
	m.log = nil
}

// InsertOne stores rec and returns its id.
func (m *Memory) InsertOne(ctx context.Context, table string, rec schema.Record) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insert(table, rec)
}

// InsertMany stores recs in order. On failure earlier records of the batch
// stay stored.
func (m *Memory) InsertMany(ctx context.Context, table string, recs []schema.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range recs {
		if _, err := m.insert(table, rec); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) insert(table string, rec schema.Record) (int64, error) {
	t, err := m.reg.Table(table)
	if err != nil {
		return 0, err
	}
	if err := m.reg.Validate(table, rec); err != nil {
		return 0, err
	}

	for _, c := range t.AllColumns() {
		v := rec[c.Name]
		if v == nil || c.References == "" {
			continue
		}
		fk, ok := v.(int64)
		if !ok || !m.ids[c.References][fk] {
			return 0, fmt.Errorf("insert into %s: %s=%v does not reference an existing %s row", table, c.Name, v, c.References)
		}
	}

	var keys []string
	for _, c := range t.AllColumns() {
		v := rec[c.Name]
		if !c.Unique || v == nil {
			continue
		}
		key := fmt.Sprintf("%s.%s=%v", table, c.Name, v)
		if m.unique[table][key] {
			return 0, &UniqueViolationError{Table: table, Constraint: table + "." + c.Name}
		}
		keys = append(keys, key)
	}

	if m.unique[table] == nil {
		m.unique[table] = make(map[string]bool)
	}
	for _, k := range keys {
		m.unique[table][k] = true
	}

	id := int64(len(m.rows[table]) + 1)
	stored := make(schema.Record, len(rec))
	for k, v := range rec {
		stored[k] = v
	}
	m.rows[table] = append(m.rows[table], Row{ID: id, Record: stored})
	if m.ids[table] == nil {
		m.ids[table] = make(map[int64]bool)
	}
	m.ids[table][id] = true
	m.log = append(m.log, Insert{Seq: len(m.log), Table: table, ID: id})
	return id, nil
}

// Rows returns a copy of the rows stored for table in insertion order.
func (m *Memory) Rows(table string) []Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Row, len(m.rows[table]))
	copy(out, m.rows[table])
	return out
}

// Log returns the insertion log across all tables.
func (m *Memory) Log() []Insert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Insert, len(m.log))
	copy(out, m.log)
	return out
}

// CountRows mirrors Store.CountRows.
func (m *Memory) CountRows(context.Context) ([]TableCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tables := m.reg.Tables()
	out := make([]TableCount, 0, len(tables))
	for _, t := range tables {
		out = append(out, TableCount{Table: t.Name, Rows: int64(len(m.rows[t.Name]))})
	}
	return out, nil
}
