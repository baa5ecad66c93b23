// Package schema declares the relational tables a channel document maps onto.
//
// The registry is pure data: it knows every table, its scalar columns, where
// each column is sourced from in the JSON document and which table owns it.
// Mappers, the extractor and the store backends all read from it; none of
// them hardcode column lists.
package schema

import (
	"fmt"
	"sort"

	"github.com/franz/yt-schema/internal/util"
)

// NestedKey is the document key that turns a node into a container.
const NestedKey = "entries"

// Kind is the scalar type of a column.
type Kind int

const (
	Text Kind = iota
	Integer
	BigInt
	Float
	Bool
	Timestamp
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Integer:
		return "integer"
	case BigInt:
		return "bigint"
	case Float:
		return "float"
	case Bool:
		return "bool"
	case Timestamp:
		return "timestamp"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Transform is applied to a raw source value before it is stored.
type Transform int

const (
	NoTransform Transform = iota
	// EpochLocal converts epoch seconds into a time in the importer's zone.
	EpochLocal
	// CompactDate parses a YYYYMMDD string into a date.
	CompactDate
)

// Column describes one column of a table.
type Column struct {
	Name string
	// Source is the document key (or dotted path) the value is read from.
	// Empty means the column name itself.
	Source string
	// Alias is tried when Source is absent or null.
	Alias string

	Kind       Kind
	Unique     bool
	NotNull    bool
	Transform  Transform
	References string
}

// SourceKey returns the document key for the column.
func (c Column) SourceKey() string {
	if c.Source == "" {
		return c.Name
	}
	return c.Source
}

// Table describes one relational entity.
type Table struct {
	Name string

	// Owner is the owning table; empty for the document root.
	Owner       string
	OwnerColumn string
	// OwnerUnique allows at most one row per owner.
	OwnerUnique bool

	// Columns are scalar columns extracted from the source node.
	Columns []Column
	// Derived columns are filled in by mappers (positions, map keys, extra links).
	Derived []Column

	// Filled in by New.
	byName  map[string]Column
	notNull []string
}

// IsRoot reports whether the table has no owner.
func (t *Table) IsRoot() bool { return t.Owner == "" }

// OwnerCol returns the owning foreign key column. ok is false for root tables.
func (t *Table) OwnerCol() (Column, bool) {
	if t.IsRoot() {
		return Column{}, false
	}
	return Column{
		Name:       t.OwnerColumn,
		Kind:       BigInt,
		NotNull:    true,
		Unique:     t.OwnerUnique,
		References: t.Owner,
	}, true
}

// AllColumns returns every stored column except the surrogate id:
// owner FK first, then scalar columns, then derived columns.
func (t *Table) AllColumns() []Column {
	out := make([]Column, 0, len(t.Columns)+len(t.Derived)+1)
	if oc, ok := t.OwnerCol(); ok {
		out = append(out, oc)
	}
	out = append(out, t.Columns...)
	out = append(out, t.Derived...)
	return out
}

// ColumnNames returns AllColumns names in order.
func (t *Table) ColumnNames() []string {
	cols := t.AllColumns()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by name, including the owner FK.
func (t *Table) Column(name string) (Column, bool) {
	if t.byName != nil {
		c, ok := t.byName[name]
		return c, ok
	}
	for _, c := range t.AllColumns() {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// UniqueColumns returns the names of single-column unique constraints.
func (t *Table) UniqueColumns() []string {
	var out []string
	for _, c := range t.AllColumns() {
		if c.Unique {
			out = append(out, c.Name)
		}
	}
	return out
}

// Record is one row keyed by column name. A nil value is SQL NULL.
type Record map[string]any

// Values returns the record's values in the order of cols.
func (r Record) Values(cols []string) []any {
	out := make([]any, len(cols))
	for i, c := range cols {
		out[i] = r[c]
	}
	return out
}

// Registry is the ordered set of tables.
type Registry struct {
	tables []*Table
	byName map[string]*Table
}

// New builds a registry. Owners must be declared before the tables they own.
func New(tables ...*Table) (*Registry, error) {
	r := &Registry{byName: make(map[string]*Table, len(tables))}
	for _, t := range tables {
		if t.Name == "" {
			return nil, fmt.Errorf("schema: table with empty name")
		}
		if _, dup := r.byName[t.Name]; dup {
			return nil, fmt.Errorf("schema: duplicate table %q", t.Name)
		}
		if !t.IsRoot() {
			if _, ok := r.byName[t.Owner]; !ok {
				return nil, fmt.Errorf("schema: table %q declared before its owner %q", t.Name, t.Owner)
			}
			if t.OwnerColumn == "" {
				return nil, fmt.Errorf("schema: table %q has owner but no owner column", t.Name)
			}
		}
		cols := t.AllColumns()
		byName := make(map[string]Column, len(cols))
		var notNull []string
		for _, c := range cols {
			if _, dup := byName[c.Name]; dup || c.Name == "id" {
				return nil, fmt.Errorf("schema: table %q repeats column %q", t.Name, c.Name)
			}
			byName[c.Name] = c
			if c.NotNull {
				notNull = append(notNull, c.Name)
			}
			if c.References != "" {
				if _, ok := r.byName[c.References]; !ok {
					return nil, fmt.Errorf("schema: %s.%s references undeclared table %q", t.Name, c.Name, c.References)
				}
			}
		}
		t.byName = byName
		t.notNull = notNull
		r.tables = append(r.tables, t)
		r.byName[t.Name] = t
	}
	return r, nil
}

// MustNew is New that panics on error. Used for the static default registry.
func MustNew(tables ...*Table) *Registry {
	r, err := New(tables...)
	if err != nil {
		panic(err)
	}
	return r
}

// Tables returns tables in creation order (owners before children).
func (r *Registry) Tables() []*Table {
	out := make([]*Table, len(r.tables))
	copy(out, r.tables)
	return out
}

// Names returns table names in creation order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.tables))
	for i, t := range r.tables {
		out[i] = t.Name
	}
	return out
}

// Table looks up a table by name.
func (r *Registry) Table(name string) (*Table, error) {
	t, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", util.ErrUnknownTable, name)
	}
	return t, nil
}

// Children returns tables directly owned by the named table, sorted by name.
func (r *Registry) Children(name string) []*Table {
	var out []*Table
	for _, t := range r.tables {
		if t.Owner == name {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Validate checks a record's shape before insertion: every key must be a
// declared column, the owner FK and NOT NULL columns must be set. Values are
// not type-checked.
func (r *Registry) Validate(table string, rec Record) error {
	t, err := r.Table(table)
	if err != nil {
		return err
	}
	for k := range rec {
		if _, ok := t.byName[k]; !ok {
			return fmt.Errorf("schema: %s has no column %q", table, k)
		}
	}
	for _, name := range t.notNull {
		if rec[name] == nil {
			return fmt.Errorf("schema: %s.%s must not be null", table, name)
		}
	}
	return nil
}
