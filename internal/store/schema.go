package store

import (
	"fmt"
	"strings"

	"github.com/franz/yt-schema/internal/schema"
)

// createTableSQL renders CREATE TABLE IF NOT EXISTS for t plus one index per
// foreign key column.
func createTableSQL(d *Dialect, t *schema.Table) []string {
	parts := []string{"  " + d.PrimaryKey}
	var fks []string

	for _, c := range t.AllColumns() {
		col := fmt.Sprintf("  %s %s", quoteIdent(c.Name), d.ColumnType(c.Kind))
		if c.NotNull {
			col += " NOT NULL"
		}
		if c.Unique {
			col += " UNIQUE"
		}
		if c.References != "" {
			col += fmt.Sprintf(" REFERENCES %s(%s) ON DELETE CASCADE", quoteIdent(c.References), quoteIdent("id"))
			fks = append(fks, c.Name)
		}
		parts = append(parts, col)
	}

	stmts := []string{fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n%s\n)", quoteIdent(t.Name), strings.Join(parts, ",\n"))}
	for _, fk := range fks {
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s)",
			quoteIdent("idx_"+t.Name+"_"+fk), quoteIdent(t.Name), quoteIdent(fk)))
	}
	return stmts
}

func dropTableSQL(d *Dialect, t *schema.Table) string {
	return "DROP TABLE IF EXISTS " + quoteIdent(t.Name) + d.DropSuffix
}

// insertSQL renders a multi-row INSERT for rows records over cols.
func insertSQL(d *Dialect, table string, cols []string, rows int) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(quoteIdent(table))
	b.WriteString(" (")
	for i, c := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteIdent(c))
	}
	b.WriteString(") VALUES ")

	p := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j := range cols {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(d.Placeholder(p))
			p++
		}
		b.WriteString(")")
	}
	if d.Returning {
		b.WriteString(" RETURNING ")
		b.WriteString(quoteIdent("id"))
	}
	return b.String()
}

// chunkSize is how many rows of width cols fit in one statement.
func chunkSize(d *Dialect, cols int) int {
	if cols == 0 {
		return 1
	}
	n := d.MaxParams / cols
	if n < 1 {
		n = 1
	}
	if n > 500 {
		n = 500
	}
	return n
}
