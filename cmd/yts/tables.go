package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/franz/yt-schema/internal/schema"
	"github.com/franz/yt-schema/internal/store"
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List the schema tables and their row counts",
	Long: `List every table in creation order with its owner and current row count.

With --columns the column list of each table is printed as well.`,
	RunE: runTables,
}

func init() {
	rootCmd.AddCommand(tablesCmd)

	tablesCmd.Flags().Bool("columns", false, "print the columns of each table")
}

func runTables(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	showColumns, _ := cmd.Flags().GetBool("columns")

	st, err := store.Open(ctx, storeConfig())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()

	counts, err := st.CountRows(ctx)
	if err != nil {
		return err
	}
	return printTables(cmd.OutOrStdout(), st.Registry(), counts, showColumns)
}

func printTables(w io.Writer, reg *schema.Registry, counts []store.TableCount, showColumns bool) error {
	rows := make(map[string]int64, len(counts))
	for _, c := range counts {
		rows[c.Table] = c.Rows
	}

	var total int64
	for _, t := range reg.Tables() {
		owner := "-"
		if !t.IsRoot() {
			owner = t.Owner
		}
		fmt.Fprintf(w, "%-22s %-20s %12s\n", t.Name, owner, humanize.Comma(rows[t.Name]))
		if showColumns {
			fmt.Fprintf(w, "    %s\n", strings.Join(t.ColumnNames(), ", "))
		}
		total += rows[t.Name]
	}
	_, err := fmt.Fprintf(w, "%-22s %-20s %12s\n", "total", "", humanize.Comma(total))
	return err
}
