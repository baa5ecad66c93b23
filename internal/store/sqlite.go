package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite" // SQLite driver
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/franz/yt-schema/internal/schema"
)

// sqlitePragmas are applied to every pooled connection through the DSN.
// busy_timeout covers other processes holding the file lock; writers within
// one process are serialized by Store. _txlock=immediate takes the write
// lock at BEGIN instead of on first write.
var sqlitePragmas = []string{
	"_pragma=busy_timeout(5000)",
	"_pragma=journal_mode(WAL)",
	"_pragma=foreign_keys(1)",
	"_pragma=synchronous(NORMAL)",
	"_pragma=temp_store(MEMORY)",
	"_txlock=immediate",
}

func init() {
	Register("sqlite", &Dialect{
		Driver:       "sqlite",
		DSN:          sqliteDSN,
		Placeholder:  func(int) string { return "?" },
		ColumnType:   sqliteColumnType,
		PrimaryKey:   `"id" INTEGER PRIMARY KEY AUTOINCREMENT`,
		MaxParams:    32766,
		SingleWriter: true,
		UniqueViolation: func(err error) (string, bool) {
			var se *sqlite.Error
			if errors.As(err, &se) {
				switch se.Code() {
				case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
					return sqliteConstraint(se.Error()), true
				}
			}
			if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return sqliteConstraint(err.Error()), true
			}
			return "", false
		},
		Integrity: sqliteIntegrity,
		Version: func(ctx context.Context, db *sql.DB) (string, error) {
			var v string
			err := db.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&v)
			return v, err
		},
	})
}

// sqliteDSN turns a bare path into a file: URI carrying the import pragmas.
// DSNs that already carry a query string are passed through.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "?") {
		return dsn
	}
	if dsn == "" || dsn == ":memory:" {
		dsn = ":memory:"
	}
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	return dsn + "?" + strings.Join(sqlitePragmas, "&")
}

func sqliteColumnType(k schema.Kind) string {
	switch k {
	case schema.Integer, schema.BigInt, schema.Bool:
		return "INTEGER"
	case schema.Float:
		return "REAL"
	case schema.Timestamp:
		return "DATETIME"
	default:
		return "TEXT"
	}
}

// sqliteConstraint pulls "table.column" out of
// "UNIQUE constraint failed: channels.channel_id".
func sqliteConstraint(msg string) string {
	const marker = "constraint failed: "
	i := strings.LastIndex(msg, marker)
	if i < 0 {
		return ""
	}
	rest := msg[i+len(marker):]
	if j := strings.IndexAny(rest, " ("); j >= 0 {
		rest = rest[:j]
	}
	return rest
}

func sqliteIntegrity(ctx context.Context, db *sql.DB) error {
	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check query failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}

	rows, err := db.QueryContext(ctx, "PRAGMA foreign_key_check")
	if err != nil {
		return fmt.Errorf("foreign key check query failed: %w", err)
	}
	defer rows.Close()

	var bad []string
	for rows.Next() {
		var (
			table, parent string
			rowid         sql.NullInt64
			fkid          int64
		)
		if err := rows.Scan(&table, &rowid, &parent, &fkid); err != nil {
			return fmt.Errorf("foreign key check scan failed: %w", err)
		}
		bad = append(bad, fmt.Sprintf("%s row %d -> %s", table, rowid.Int64, parent))
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(bad) > 0 {
		return fmt.Errorf("foreign key check failed: %s", strings.Join(bad, "; "))
	}
	return nil
}

// SQLiteVersion returns the embedded SQLite library version.
func SQLiteVersion() string {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return ""
	}
	defer db.Close()

	var version string
	if err := db.QueryRow("SELECT sqlite_version()").Scan(&version); err != nil {
		return ""
	}
	return version
}
