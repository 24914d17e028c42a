// Package main provides a manual scan tool for development: it runs
// the ingestion pipeline over a folder and prints the resulting
// record without starting the server.
//
// Usage:
//
//	go run ./cmd/scan manga  /path/to/library/manga/Title
//	go run ./cmd/scan audio  /path/to/library/audio/Album "Display Title"
package main

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mediakeepapp/mediakeep-server/internal/config"
	"github.com/mediakeepapp/mediakeep-server/internal/scanner"
	"github.com/mediakeepapp/mediakeep-server/internal/store/sqlite"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: scan <manga|audio> <folder-path> [title]")
		os.Exit(1)
	}

	kind := os.Args[1]
	folder := os.Args[2]

	title := filepath.Base(filepath.Clean(folder))
	if len(os.Args) > 3 {
		title = os.Args[3]
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("config load failed", "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.Data.BasePath, 0o755); err != nil {
		logger.Error("data dir unavailable", "error", err)
		os.Exit(1)
	}

	st, err := sqlite.Open(cfg.DatabasePath(), logger)
	if err != nil {
		logger.Error("database open failed", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	// No thumbnail populator: this tool only exercises walking,
	// metadata extraction, and registration.
	s := scanner.New(logger, st, nil, scanner.Options{Workers: 4})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var recID string
	switch kind {
	case "manga":
		recID, err = s.ScanMangaFolder(ctx, folder, title)
	case "audio":
		recID, err = s.ScanAudioFolder(ctx, folder, title, nil)
	default:
		fmt.Printf("unknown kind %q, want manga or audio\n", kind)
		os.Exit(1)
	}
	if err != nil {
		logger.Error("scan failed", "error", err)
		os.Exit(1)
	}

	rec, err := st.GetMedia(ctx, recID)
	if err != nil {
		logger.Error("record lookup failed", "error", err)
		os.Exit(1)
	}

	out, err := json.Marshal(rec, json.Deterministic(true))
	if err != nil {
		logger.Error("encode failed", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
