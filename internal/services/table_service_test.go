package services

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nfcli/internal/cache"
	"nfcli/internal/exporter"
	"nfcli/internal/ingest"
)

func newTestService(t *testing.T) *TableService {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := cache.NewStore(ingest.NewLoader(logger), logger)
	exp := exporter.New(t.TempDir(), logger)
	return NewTableServiceWithLogger(store, exp, logger)
}

func writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadReturnsMetadata(t *testing.T) {
	svc := newTestService(t)
	path := writeCSV(t, "notas.csv", "CHAVE DE ACESSO,VALOR TOTAL\nk1,100\nk2,200\n")

	result, err := svc.Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Meta.RowCount)
	assert.Equal(t, 2, result.Meta.ColumnCount)
	assert.Equal(t, ingest.SourceCSV, result.Meta.Kind)
	assert.Empty(t, result.Warning)
}

func TestPreviewCapsRows(t *testing.T) {
	svc := newTestService(t)
	path := writeCSV(t, "notas.csv", "A,B\n1,2\n3,4\n5,6\n")

	preview, err := svc.Preview(context.Background(), path, 2)
	require.NoError(t, err)

	assert.Len(t, preview.Rows, 2)
	assert.Equal(t, 3, preview.Total)
	assert.Equal(t, "a", preview.Columns[0].Name)
}

func TestPreviewBeyondTableReturnsAll(t *testing.T) {
	svc := newTestService(t)
	path := writeCSV(t, "notas.csv", "A,B\n1,2\n")

	preview, err := svc.Preview(context.Background(), path, 100)
	require.NoError(t, err)
	assert.Len(t, preview.Rows, 1)
}

func TestSummaryComputesNumericColumns(t *testing.T) {
	svc := newTestService(t)
	path := writeCSV(t, "notas.csv", "PRODUTO,VALOR\na,\"1,50\"\nb,\"2,50\"\n")

	summary, err := svc.Summary(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, summary.Columns, 2)
	valor := summary.Columns[1]
	assert.True(t, valor.Numeric)
	assert.InDelta(t, 4.0, valor.Sum, 1e-9)
}

func TestExportFormats(t *testing.T) {
	svc := newTestService(t)
	path := writeCSV(t, "notas.csv", "A,B\n1,2\n")

	for _, format := range []string{FormatCSV, FormatXLSX, FormatZIP} {
		out, err := svc.Export(context.Background(), path, format)
		require.NoError(t, err, format)
		assert.FileExists(t, out)
		assert.Equal(t, "."+format, filepath.Ext(out))
	}

	_, err := svc.Export(context.Background(), path, "pdf")
	assert.Error(t, err)
}

func TestLoadPropagatesUnreadableFile(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Load(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)

	var unreadable *ingest.UnreadableFileError
	assert.ErrorAs(t, err, &unreadable)
}

func TestCurrentAndClearCache(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, ok := svc.Current(ctx)
	assert.False(t, ok)

	path := writeCSV(t, "notas.csv", "A\n1\n")
	_, err := svc.Load(ctx, path)
	require.NoError(t, err)

	current, ok := svc.Current(ctx)
	assert.True(t, ok)
	assert.Equal(t, path, current)

	svc.ClearCache(ctx)
	_, ok = svc.Current(ctx)
	assert.False(t, ok)
}
