package exporter

import (
	"archive/zip"
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"nfcli/internal/ingest"
)

func testTable() *ingest.Table {
	return &ingest.Table{
		Columns: []ingest.Column{
			{Name: "chave_de_acesso", Original: "CHAVE DE ACESSO"},
			{Name: "valor_total", Original: "VALOR TOTAL"},
		},
		Rows: [][]string{
			{"k1", "100,50"},
			{"k2", "“quoted”"},
		},
	}
}

func newTestExporter(t *testing.T) *Exporter {
	t.Helper()
	return New(t.TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestWriteCSVWithBOM(t *testing.T) {
	e := newTestExporter(t)

	path, err := e.WriteCSV("202401_notas", testTable(), WriteOptions{BOMPrefix: true})
	require.NoError(t, err)
	assert.Equal(t, "202401_notas.csv", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "\xEF\xBB\xBF"))

	reader := csv.NewReader(strings.NewReader(strings.TrimPrefix(string(data), "\xEF\xBB\xBF")))
	records, err := reader.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"chave_de_acesso", "valor_total"}, records[0])
	assert.Equal(t, "“quoted”", records[2][1])
}

func TestWriteCSVStripsSourceExtension(t *testing.T) {
	e := newTestExporter(t)

	path, err := e.WriteCSV("/some/dir/202401_NFs.zip", testTable(), WriteOptions{})
	require.NoError(t, err)
	assert.Equal(t, "202401_NFs.csv", filepath.Base(path))
}

func TestWriteXLSX(t *testing.T) {
	e := newTestExporter(t)

	path, err := e.WriteXLSX("dados", testTable())
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"chave_de_acesso", "valor_total"}, rows[0])
	assert.Equal(t, "k1", rows[1][0])
}

func TestWriteBundleContainsBothFormats(t *testing.T) {
	e := newTestExporter(t)

	path, err := e.WriteBundle("dados", testTable())
	require.NoError(t, err)

	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"dados.csv", "dados.xlsx"}, names)
}
