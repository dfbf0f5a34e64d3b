package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"nfcli/internal/ingest"
)

// Exporter writes tables to the export directory.
type Exporter struct {
	exportDir string
	logger    *slog.Logger
}

// New creates an Exporter rooted at exportDir.
func New(exportDir string, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		exportDir: exportDir,
		logger:    logger.With(slog.String("component", "exporter")),
	}
}

// WriteOptions configures CSV writing behavior.
type WriteOptions struct {
	// BOMPrefix adds a UTF-8 BOM so Excel recognizes the encoding.
	BOMPrefix bool
}

// WriteCSV writes the table to name.csv in the export directory and returns
// the full path of the written file.
func (e *Exporter) WriteCSV(name string, t *ingest.Table, options WriteOptions) (string, error) {
	fullPath := e.resolvePath(name, ".csv")

	e.logger.Info("writing CSV file",
		slog.String("path", fullPath),
		slog.Int("rows", len(t.Rows)))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if options.BOMPrefix {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return "", fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(t.ColumnNames()); err != nil {
		return "", fmt.Errorf("failed to write headers: %w", err)
	}
	for i, row := range t.Rows {
		if err := writer.Write(row); err != nil {
			return "", fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	if err := writer.Error(); err != nil {
		return "", err
	}

	return fullPath, nil
}

// resolvePath joins a dataset name with the export directory, sanitizing the
// name down to its base and forcing the extension.
func (e *Exporter) resolvePath(name, ext string) string {
	base := filepath.Base(name)
	if filepath.Ext(base) != "" {
		base = base[:len(base)-len(filepath.Ext(base))]
	}
	return filepath.Join(e.exportDir, base+ext)
}
