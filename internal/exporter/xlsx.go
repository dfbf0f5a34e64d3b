package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"nfcli/internal/ingest"
)

// sheetName is the single worksheet written into every workbook.
const sheetName = "Dados"

// WriteXLSX writes the table as an Excel workbook to name.xlsx in the export
// directory and returns the full path of the written file.
func (e *Exporter) WriteXLSX(name string, t *ingest.Table) (string, error) {
	fullPath := e.resolvePath(name, ".xlsx")

	e.logger.Info("writing XLSX file",
		slog.String("path", fullPath),
		slog.Int("rows", len(t.Rows)))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return "", fmt.Errorf("failed to remove default sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return "", fmt.Errorf("failed to create stream writer: %w", err)
	}

	if err := writeSheetRow(sw, 1, t.ColumnNames()); err != nil {
		return "", fmt.Errorf("failed to write headers: %w", err)
	}
	for i, row := range t.Rows {
		if err := writeSheetRow(sw, i+2, row); err != nil {
			return "", fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush sheet: %w", err)
	}

	if err := f.SaveAs(fullPath); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}

	return fullPath, nil
}

func writeSheetRow(sw *excelize.StreamWriter, rowNum int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	return sw.SetRow(cell, row)
}
