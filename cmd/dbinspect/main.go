// Package main provides a read-only inspection tool for the MediaKeep
// database: record counts per kind plus the most recently updated
// records, with manifest sanity checks.
//
// Usage:
//
//	DB_PATH=~/MediaKeep/data/mediakeep.db go run ./cmd/dbinspect
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/mediakeepapp/mediakeep-server/internal/domain"
	"github.com/mediakeepapp/mediakeep-server/internal/store/sqlite"
)

func main() {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/MediaKeep/data/mediakeep.db")
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := sqlite.Open(dbPath, logger)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer st.Close()

	ctx := context.Background()

	records, err := st.ListMedia(ctx, "")
	if err != nil {
		log.Fatalf("Failed to list media: %v", err)
	}

	fmt.Println("=== Database Inspection ===")
	fmt.Println()

	counts := map[domain.MediaKind]int{}
	broken := 0
	for _, rec := range records {
		counts[rec.Kind]++
		if err := rec.Validate(); err != nil {
			broken++
			fmt.Printf("INVALID %s (%s): %v\n", rec.ID, rec.Title, err)
		}
	}

	fmt.Printf("Total records: %d\n", len(records))
	for kind, n := range counts {
		fmt.Printf("  %-6s %d\n", kind, n)
	}
	if broken > 0 {
		fmt.Printf("Records failing validation: %d\n", broken)
	}
	fmt.Println()

	limit := 10
	if len(records) < limit {
		limit = len(records)
	}
	fmt.Printf("Most recently updated (%d):\n", limit)
	for _, rec := range records[:limit] {
		items := "items"
		if rec.Kind == domain.KindManga {
			items = "pages"
		}
		fmt.Printf("  %s  %-30q  %s  %d %s  %d bytes\n",
			rec.UpdatedAt.Format("2006-01-02 15:04"),
			rec.Title, rec.Kind, rec.ItemCount, items, rec.TotalSize)
	}
}
