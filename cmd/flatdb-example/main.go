// Command flatdb-example creates a table, fills it and updates it through a
// query result, printing the table after each step.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/zakazai/flatdb"
	"github.com/zakazai/flatdb/internal/types"
)

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "flatdb-example: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	storageType := flag.String("storage", "memory", "Storage backend (memory, json, parquet, hybrid)")
	dataDir := flag.String("data-dir", "", "Data directory for file backends")
	flag.Parse()

	slog.SetDefault(types.InitLogger(types.LogLevelWarning, nil))

	config := flatdb.Config{Storage: *storageType, DataDir: *dataDir, LogLevel: "warn"}
	db, err := flatdb.Open("test", config)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("Failed to close storage", "err", err)
		}
	}()

	tb, err := db.CreateTable("table1", []string{"id", "name"}, []any{0, ""}, "id")
	if err != nil {
		return err
	}
	if _, err := tb.InsertAll(types.Row{1, "Alice"}, types.Row{2, "Bob"}, types.Row{3, "Cindy"}); err != nil {
		return err
	}
	fmt.Println(tb)

	// Rename Cindy to Chloe.
	q, err := tb.Select("name")
	if err != nil {
		return err
	}
	match, err := q.Eq("Cindy")
	if err != nil {
		return err
	}
	if _, err := tb.Update(1, "Chloe", match); err != nil {
		return err
	}
	fmt.Println(tb)

	// Every row.
	if _, err := tb.Update("name", "new_name", nil); err != nil {
		return err
	}
	fmt.Println(tb)

	return tb.Commit()
}
