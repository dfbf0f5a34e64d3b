package exporter

import (
	"archive/zip"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"nfcli/internal/ingest"
)

// WriteBundle writes the table as both CSV and XLSX and packs them into
// name.zip in the export directory. Returns the full path of the archive.
func (e *Exporter) WriteBundle(name string, t *ingest.Table) (string, error) {
	csvPath, err := e.WriteCSV(name, t, WriteOptions{BOMPrefix: true})
	if err != nil {
		return "", err
	}
	xlsxPath, err := e.WriteXLSX(name, t)
	if err != nil {
		return "", err
	}

	fullPath := e.resolvePath(name, ".zip")
	e.logger.Info("writing export bundle", slog.String("path", fullPath))

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create archive: %w", err)
	}
	defer file.Close()

	zw := zip.NewWriter(file)
	for _, member := range []string{csvPath, xlsxPath} {
		if err := addFileToZip(zw, member); err != nil {
			zw.Close()
			return "", fmt.Errorf("failed to add %s: %w", filepath.Base(member), err)
		}
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize archive: %w", err)
	}

	return fullPath, nil
}

func addFileToZip(zw *zip.Writer, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := zw.Create(filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, src)
	return err
}
