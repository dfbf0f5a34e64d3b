// Command ingest loads a fiscal-invoice CSV or ZIP archive from the command
// line, prints its metadata and optionally exports or summarizes it.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"nfcli/internal/cache"
	"nfcli/internal/config"
	nfenc "nfcli/internal/encoding"
	"nfcli/internal/exporter"
	"nfcli/internal/ingest"
	"nfcli/internal/services"
)

func main() {
	path := flag.String("in", "", "input file (.csv or .zip)")
	format := flag.String("export", "", "export format: csv, xlsx or zip")
	summary := flag.Bool("summary", false, "print per-column statistics")
	preview := flag.Int("preview", 0, "print the first N rows")
	flag.Parse()

	if *path == "" {
		fmt.Fprintln(os.Stderr, "usage: ingest -in <file> [-export csv|xlsx|zip] [-summary] [-preview N]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	resolver := nfenc.NewResolver()
	resolver.ConfidenceThreshold = cfg.Ingest.ConfidenceThreshold
	resolver.ControlRatioCeiling = cfg.Ingest.ControlRatioCeiling

	loader := ingest.NewLoaderWithResolver(resolver, logger)
	store := cache.NewStore(loader, logger)
	exp := exporter.New(cfg.Paths.ExportDir, logger)
	svc := services.NewTableServiceWithLogger(store, exp, logger)

	ctx := context.Background()

	result, err := svc.Load(ctx, *path)
	if err != nil {
		slog.Error("failed to load source", "path", *path, "error", err)
		os.Exit(1)
	}
	if result.Warning != "" {
		fmt.Fprintf(os.Stderr, "warning: %s\n", result.Warning)
	}
	printJSON(result.Meta)

	if *preview > 0 {
		p, err := svc.Preview(ctx, *path, *preview)
		if err != nil {
			slog.Error("preview failed", "error", err)
			os.Exit(1)
		}
		printJSON(p)
	}

	if *summary {
		s, err := svc.Summary(ctx, *path)
		if err != nil {
			slog.Error("summary failed", "error", err)
			os.Exit(1)
		}
		printJSON(s)
	}

	if *format != "" {
		out, err := svc.Export(ctx, *path, *format)
		if err != nil {
			slog.Error("export failed", "format", *format, "error", err)
			os.Exit(1)
		}
		fmt.Printf("exported to %s\n", out)
	}
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		slog.Error("failed to encode output", "error", err)
		os.Exit(1)
	}
}
