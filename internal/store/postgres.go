package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"github.com/franz/yt-schema/internal/schema"
)

const pgUniqueViolation = "23505"

func init() {
	Register("postgres", &Dialect{
		Driver:      "pgx",
		DSN:         func(dsn string) string { return dsn },
		Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
		ColumnType:  postgresColumnType,
		PrimaryKey:  `"id" BIGSERIAL PRIMARY KEY`,
		Returning:   true,
		DropSuffix:  " CASCADE",
		MaxParams:   65535,
		UniqueViolation: func(err error) (string, bool) {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
				return pgErr.ConstraintName, true
			}
			return "", false
		},
		Integrity: func(ctx context.Context, db *sql.DB) error {
			var one int
			return db.QueryRowContext(ctx, "SELECT 1").Scan(&one)
		},
		Version: func(ctx context.Context, db *sql.DB) (string, error) {
			var v string
			err := db.QueryRowContext(ctx, "SHOW server_version").Scan(&v)
			return v, err
		},
	})
}

func postgresColumnType(k schema.Kind) string {
	switch k {
	case schema.Integer:
		return "INTEGER"
	case schema.BigInt:
		return "BIGINT"
	case schema.Float:
		return "DOUBLE PRECISION"
	case schema.Bool:
		return "BOOLEAN"
	case schema.Timestamp:
		return "TIMESTAMPTZ"
	default:
		return "TEXT"
	}
}
