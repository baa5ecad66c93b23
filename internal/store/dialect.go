package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/franz/yt-schema/internal/schema"
	"github.com/franz/yt-schema/internal/util"
)

// Dialect captures what differs between SQL backends.
type Dialect struct {
	// Driver is the database/sql driver name.
	Driver string
	// DSN normalizes a user-supplied DSN for the driver.
	DSN func(dsn string) string
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
	// ColumnType maps a schema kind to a column type.
	ColumnType func(k schema.Kind) string
	// PrimaryKey is the surrogate id column definition.
	PrimaryKey string
	// Returning selects INSERT ... RETURNING id over LastInsertId.
	Returning bool
	// DropSuffix is appended to DROP TABLE statements.
	DropSuffix string
	// MaxParams bounds bind parameters per statement.
	MaxParams int
	// SingleWriter limits the pool to one connection and serializes
	// transactions. Concurrent importers must share one Store.
	SingleWriter bool
	// UniqueViolation reports whether err is a unique constraint failure
	// and, when known, the violated constraint.
	UniqueViolation func(err error) (string, bool)
	// Integrity runs the backend's consistency checks.
	Integrity func(ctx context.Context, db *sql.DB) error
	// Version reports the server or library version.
	Version func(ctx context.Context, db *sql.DB) (string, error)
}

var (
	dialectMu sync.RWMutex
	dialects  = map[string]*Dialect{}
)

// Register makes a backend available to Open under kind.
// Registering the same kind twice panics.
func Register(kind string, d *Dialect) {
	dialectMu.Lock()
	defer dialectMu.Unlock()

	if kind == "" {
		panic("store: Register called with empty kind")
	}
	if d == nil {
		panic("store: Register called with nil dialect")
	}
	if _, exists := dialects[kind]; exists {
		panic(fmt.Sprintf("store: dialect already registered for kind=%q", kind))
	}
	dialects[kind] = d
}

// Kinds lists registered backend kinds.
func Kinds() []string {
	dialectMu.RLock()
	defer dialectMu.RUnlock()

	out := make([]string, 0, len(dialects))
	for k := range dialects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// SingleWriter reports whether the backend registered under kind allows
// only one writer at a time. An empty kind means sqlite.
func SingleWriter(kind string) bool {
	if kind == "" {
		kind = "sqlite"
	}
	d, err := lookupDialect(kind)
	return err == nil && d.SingleWriter
}

func lookupDialect(kind string) (*Dialect, error) {
	dialectMu.RLock()
	d := dialects[kind]
	dialectMu.RUnlock()

	if d == nil {
		return nil, fmt.Errorf("%w: db.kind=%q (known: %s)", util.ErrUnsupported, kind, strings.Join(Kinds(), ", "))
	}
	return d, nil
}

func quoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
