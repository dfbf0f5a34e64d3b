package ingest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"path"
	"regexp"
	"strings"
	"time"
)

// expectedMembers documents the required archive shape in error messages.
var expectedMembers = []string{"{yyyymm}_NFs_Cabecalho.csv", "{yyyymm}_NFs_Itens.csv"}

// memberPattern matches the fixed naming convention of the upstream export:
// a six-digit year-month prefix, then the header or items suffix.
var memberPattern = regexp.MustCompile(`(?i)^\d{6}_NFs_(Cabecalho|Itens)\.csv$`)

// MergeArchive loads the header/items pair from an NF ZIP archive and joins
// them on the access key into a single denormalized table. Each member is
// decoded independently; the two files frequently ship in different
// encodings.
func (l *Loader) MergeArchive(archivePath string, data []byte) (*Table, error) {
	header, items, err := l.extractMembers(archivePath, data)
	if err != nil {
		return nil, err
	}

	headerTbl, err := l.LoadTable(header.name, header.data)
	if err != nil {
		return nil, err
	}
	itemsTbl, err := l.LoadTable(items.name, items.data)
	if err != nil {
		return nil, err
	}

	headerKey := headerTbl.ColumnIndex(JoinKeyColumn)
	itemsKey := itemsTbl.ColumnIndex(JoinKeyColumn)
	if headerKey < 0 || itemsKey < 0 {
		e := &MissingJoinKeyError{Path: archivePath, Key: JoinKeyColumn}
		if headerKey < 0 {
			e.MissingFrom = append(e.MissingFrom, SideHeader)
		}
		if itemsKey < 0 {
			e.MissingFrom = append(e.MissingFrom, SideItems)
		}
		return nil, e
	}

	merged := innerJoin(headerTbl, headerKey, itemsTbl, itemsKey)
	merged.Meta = Meta{
		Path:        archivePath,
		Kind:        SourceZIP,
		RowCount:    len(merged.Rows),
		ColumnCount: len(merged.Columns),
		Encodings:   append(headerTbl.Meta.Encodings, itemsTbl.Meta.Encodings...),
		Merge: &MergeStats{
			KeyColumn:  JoinKeyColumn,
			HeaderFile: header.name,
			ItemsFile:  items.name,
			HeaderRows: len(headerTbl.Rows),
			ItemsRows:  len(itemsTbl.Rows),
			MergedRows: len(merged.Rows),
		},
		ProcessedAt: time.Now().UTC(),
	}

	l.logger.Info("archive merged",
		slog.String("path", archivePath),
		slog.Int("header_rows", len(headerTbl.Rows)),
		slog.Int("items_rows", len(itemsTbl.Rows)),
		slog.Int("merged_rows", len(merged.Rows)))

	if len(merged.Rows) == 0 {
		return merged, &JoinProducedEmptyResultError{
			Path:       archivePath,
			Key:        JoinKeyColumn,
			HeaderRows: len(headerTbl.Rows),
			ItemsRows:  len(itemsTbl.Rows),
		}
	}
	return merged, nil
}

type member struct {
	name string
	data []byte
}

// extractMembers validates archive membership and reads both CSV members.
func (l *Loader) extractMembers(archivePath string, data []byte) (header, items member, err error) {
	zr, zerr := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if zerr != nil {
		return member{}, member{}, &ArchiveStructureError{Path: archivePath, Expected: expectedMembers, Err: zerr}
	}

	var names []string
	var headerFile, itemsFile *zip.File
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		base := path.Base(f.Name)
		names = append(names, base)
		if m := memberPattern.FindStringSubmatch(base); m != nil {
			if strings.EqualFold(m[1], "Cabecalho") {
				headerFile = f
			} else {
				itemsFile = f
			}
		}
	}

	if len(names) != 2 || headerFile == nil || itemsFile == nil {
		return member{}, member{}, &ArchiveStructureError{
			Path:     archivePath,
			Expected: expectedMembers,
			Found:    names,
		}
	}

	header, err = readMember(headerFile)
	if err != nil {
		return member{}, member{}, &ArchiveStructureError{Path: archivePath, Expected: expectedMembers, Found: names, Err: err}
	}
	items, err = readMember(itemsFile)
	if err != nil {
		return member{}, member{}, &ArchiveStructureError{Path: archivePath, Expected: expectedMembers, Found: names, Err: err}
	}
	return header, items, nil
}

func readMember(f *zip.File) (member, error) {
	rc, err := f.Open()
	if err != nil {
		return member{}, fmt.Errorf("opening member %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return member{}, fmt.Errorf("reading member %s: %w", f.Name, err)
	}
	return member{name: path.Base(f.Name), data: data}, nil
}

// innerJoin emits one output row per header/items row pair sharing a key
// value. Header rows are replicated across their matching item rows, items
// keep their original order within a key, and keys present on only one side
// drop out silently; the counts in MergeStats surface the loss.
func innerJoin(header *Table, headerKey int, items *Table, itemsKey int) *Table {
	cols := joinColumns(header, headerKey, items, itemsKey)

	itemsByKey := make(map[string][]int, len(items.Rows))
	for i, row := range items.Rows {
		k := row[itemsKey]
		if k == "" {
			continue
		}
		itemsByKey[k] = append(itemsByKey[k], i)
	}

	var rows [][]string
	for _, hrow := range header.Rows {
		k := hrow[headerKey]
		if k == "" {
			continue
		}
		for _, idx := range itemsByKey[k] {
			irow := items.Rows[idx]
			out := make([]string, 0, len(cols))
			out = append(out, hrow...)
			for j, v := range irow {
				if j == itemsKey {
					continue
				}
				out = append(out, v)
			}
			rows = append(rows, out)
		}
	}

	return &Table{Columns: cols, Rows: rows}
}

// joinColumns builds the merged column set: all header columns (the key in
// its original position), then items columns minus the key. Non-key names
// appearing on both sides get origin suffixes on both occurrences so neither
// stays ambiguous.
func joinColumns(header *Table, headerKey int, items *Table, itemsKey int) []Column {
	collisions := make(map[string]bool)
	itemNames := make(map[string]bool, len(items.Columns))
	for i, c := range items.Columns {
		if i == itemsKey {
			continue
		}
		itemNames[c.Name] = true
	}
	for i, c := range header.Columns {
		if i == headerKey {
			continue
		}
		if itemNames[c.Name] {
			collisions[c.Name] = true
		}
	}

	cols := make([]Column, 0, len(header.Columns)+len(items.Columns)-1)
	seen := make(map[string]bool)
	add := func(c Column, suffix string) {
		name := c.Name
		if suffix != "" {
			name += suffix
		}
		name = dedupeName(name, seen)
		seen[name] = true
		cols = append(cols, Column{Name: name, Original: c.Original})
	}

	for i, c := range header.Columns {
		if i != headerKey && collisions[c.Name] {
			add(c, headerSuffix)
		} else {
			add(c, "")
		}
	}
	for i, c := range items.Columns {
		if i == itemsKey {
			continue
		}
		if collisions[c.Name] {
			add(c, itemsSuffix)
		} else {
			add(c, "")
		}
	}
	return cols
}
