package ingest

import (
	"bytes"
	"path/filepath"
	"strings"
	"time"
)

// SourceKind is the closed set of supported source shapes, resolved once at
// ingestion entry and carried in metadata instead of being re-sniffed.
type SourceKind string

const (
	SourceCSV SourceKind = "csv"
	SourceZIP SourceKind = "zip"
)

// zipMagic is the local-file-header signature every ZIP archive starts with.
var zipMagic = []byte{'P', 'K', 0x03, 0x04}

// DetectSourceKind classifies a source by content, falling back to the file
// extension for empty or truncated inputs.
func DetectSourceKind(path string, data []byte) SourceKind {
	if bytes.HasPrefix(data, zipMagic) {
		return SourceZIP
	}
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		return SourceZIP
	}
	return SourceCSV
}

// Column pairs a normalized column name with the original heading it came
// from, kept for presentation purposes.
type Column struct {
	Name     string `json:"name"`
	Original string `json:"original"`
}

// EncodingInfo records the resolver verdict for one source file.
type EncodingInfo struct {
	File       string `json:"file"`
	Charset    string `json:"charset"`
	Confidence int    `json:"confidence"`
	Fallback   bool   `json:"fallback"`
}

// MergeStats describes a header/items join, including the row counts needed
// to surface join-loss diagnostics.
type MergeStats struct {
	KeyColumn  string `json:"key_column"`
	HeaderFile string `json:"header_file"`
	ItemsFile  string `json:"items_file"`
	HeaderRows int    `json:"header_rows"`
	ItemsRows  int    `json:"items_rows"`
	MergedRows int    `json:"merged_rows"`
}

// Meta is the derived metadata record handed to collaborators next to the
// table itself.
type Meta struct {
	Path        string         `json:"path"`
	Kind        SourceKind     `json:"kind"`
	RowCount    int            `json:"row_count"`
	ColumnCount int            `json:"column_count"`
	Encodings   []EncodingInfo `json:"encodings"`
	Merge       *MergeStats    `json:"merge,omitempty"`
	ProcessedAt time.Time      `json:"processed_at"`
}

// Table is the canonical unit of processed data: normalized, uniquely named
// columns and row-major cells, every row exactly len(Columns) wide.
type Table struct {
	Columns []Column   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Meta    Meta       `json:"meta"`
}

// ColumnNames returns the normalized names in column order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// OriginalNames maps each normalized name back to its pre-normalization form.
func (t *Table) OriginalNames() map[string]string {
	m := make(map[string]string, len(t.Columns))
	for _, c := range t.Columns {
		m[c.Name] = c.Original
	}
	return m
}

// ColumnIndex returns the position of the normalized name, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy. The cache hands clones to callers so no
// consumer can mutate the cached master through the reference it holds.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	cp := &Table{
		Columns: append([]Column(nil), t.Columns...),
		Rows:    make([][]string, len(t.Rows)),
		Meta:    t.Meta,
	}
	for i, row := range t.Rows {
		cp.Rows[i] = append([]string(nil), row...)
	}
	cp.Meta.Encodings = append([]EncodingInfo(nil), t.Meta.Encodings...)
	if t.Meta.Merge != nil {
		merge := *t.Meta.Merge
		cp.Meta.Merge = &merge
	}
	return cp
}
