package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"nfcli/internal/cache"
	"nfcli/internal/exporter"
	"nfcli/internal/ingest"
)

// Export formats accepted by TableService.Export.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatZIP  = "zip"
)

// LoadResult is the service-level outcome of loading a source: metadata plus
// a non-fatal warning when the merge matched no keys.
type LoadResult struct {
	Meta    ingest.Meta `json:"meta"`
	Warning string      `json:"warning,omitempty"`
}

// PreviewResult carries the leading rows of a table.
type PreviewResult struct {
	Columns []ingest.Column `json:"columns"`
	Rows    [][]string      `json:"rows"`
	Total   int             `json:"total_rows"`
}

// TableService provides table loading, inspection and export on top of the
// cache.
type TableService struct {
	store    *cache.Store
	exporter *exporter.Exporter
	logger   *slog.Logger
}

// NewTableService creates a table service using the default logger.
func NewTableService(store *cache.Store, exp *exporter.Exporter) *TableService {
	return NewTableServiceWithLogger(store, exp, slog.Default())
}

// NewTableServiceWithLogger creates a table service with a specific logger.
func NewTableServiceWithLogger(store *cache.Store, exp *exporter.Exporter, logger *slog.Logger) *TableService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TableService{
		store:    store,
		exporter: exp,
		logger:   logger.With(slog.String("service", "table")),
	}
}

// Load processes the source at path (or serves it from cache) and returns
// its metadata.
func (s *TableService) Load(ctx context.Context, path string) (*LoadResult, error) {
	table, err := s.store.GetOrLoad(ctx, path)
	result := &LoadResult{}

	var emptyJoin *ingest.JoinProducedEmptyResultError
	switch {
	case errors.As(err, &emptyJoin):
		result.Warning = emptyJoin.Error()
	case err != nil:
		return nil, err
	}

	result.Meta = table.Meta
	return result, nil
}

// Preview returns up to rows leading rows of the table at path.
func (s *TableService) Preview(ctx context.Context, path string, rows int) (*PreviewResult, error) {
	table, err := s.getTable(ctx, path)
	if err != nil {
		return nil, err
	}

	n := rows
	if n < 0 {
		n = 0
	}
	if n > len(table.Rows) {
		n = len(table.Rows)
	}
	return &PreviewResult{
		Columns: table.Columns,
		Rows:    table.Rows[:n],
		Total:   len(table.Rows),
	}, nil
}

// Summary returns per-column statistics for the table at path.
func (s *TableService) Summary(ctx context.Context, path string) (*ingest.Summary, error) {
	table, err := s.getTable(ctx, path)
	if err != nil {
		return nil, err
	}
	return ingest.Summarize(table), nil
}

// Export writes the table at path to the export directory in the requested
// format and returns the written file path.
func (s *TableService) Export(ctx context.Context, path, format string) (string, error) {
	table, err := s.getTable(ctx, path)
	if err != nil {
		return "", err
	}

	switch format {
	case FormatCSV:
		return s.exporter.WriteCSV(path, table, exporter.WriteOptions{BOMPrefix: true})
	case FormatXLSX:
		return s.exporter.WriteXLSX(path, table)
	case FormatZIP:
		return s.exporter.WriteBundle(path, table)
	default:
		return "", fmt.Errorf("unsupported export format %q", format)
	}
}

// ClearCache discards every cached table.
func (s *TableService) ClearCache(ctx context.Context) {
	s.store.Clear()
	s.logger.InfoContext(ctx, "cache cleared by request")
}

// Current returns the path of the most recently loaded table.
func (s *TableService) Current(ctx context.Context) (string, bool) {
	return s.store.CurrentPath()
}

// getTable fetches a table, treating an empty-join warning as success.
func (s *TableService) getTable(ctx context.Context, path string) (*ingest.Table, error) {
	table, err := s.store.GetOrLoad(ctx, path)
	var emptyJoin *ingest.JoinProducedEmptyResultError
	if err != nil && !errors.As(err, &emptyJoin) {
		return nil, err
	}
	return table, nil
}
