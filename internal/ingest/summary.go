package ingest

import (
	"strconv"
	"strings"
)

// maxSampleValues bounds the distinct values reported per column.
const maxSampleValues = 5

// numericShareThreshold is the fraction of non-empty cells that must parse
// as numbers before a column is summarized numerically.
const numericShareThreshold = 0.9

// ColumnSummary describes one column for collaborators that need a compact
// view of the table (metadata summarizers, prompt builders).
type ColumnSummary struct {
	Name     string   `json:"name"`
	Original string   `json:"original"`
	NonEmpty int      `json:"non_empty"`
	Distinct int      `json:"distinct"`
	Sample   []string `json:"sample,omitempty"`

	Numeric bool    `json:"numeric"`
	Min     float64 `json:"min,omitempty"`
	Max     float64 `json:"max,omitempty"`
	Sum     float64 `json:"sum,omitempty"`
}

// Summary is the compact description of a processed table.
type Summary struct {
	Path     string          `json:"path"`
	Kind     SourceKind      `json:"kind"`
	RowCount int             `json:"row_count"`
	Columns  []ColumnSummary `json:"columns"`
}

// Summarize computes per-column statistics for a table.
func Summarize(t *Table) *Summary {
	s := &Summary{
		Path:     t.Meta.Path,
		Kind:     t.Meta.Kind,
		RowCount: len(t.Rows),
		Columns:  make([]ColumnSummary, len(t.Columns)),
	}

	for i, col := range t.Columns {
		cs := ColumnSummary{Name: col.Name, Original: col.Original}
		distinct := make(map[string]bool)
		var numeric int
		var min, max, sum float64

		for _, row := range t.Rows {
			v := strings.TrimSpace(row[i])
			if v == "" {
				continue
			}
			cs.NonEmpty++
			if !distinct[v] {
				distinct[v] = true
				if len(cs.Sample) < maxSampleValues {
					cs.Sample = append(cs.Sample, v)
				}
			}
			if f, ok := ParseNumber(v); ok {
				if numeric == 0 || f < min {
					min = f
				}
				if numeric == 0 || f > max {
					max = f
				}
				sum += f
				numeric++
			}
		}

		cs.Distinct = len(distinct)
		if cs.NonEmpty > 0 && float64(numeric)/float64(cs.NonEmpty) >= numericShareThreshold {
			cs.Numeric = true
			cs.Min, cs.Max, cs.Sum = min, max, sum
		}
		s.Columns[i] = cs
	}
	return s
}

// ParseNumber parses a cell as a number, accepting both plain decimals and
// the Brazilian convention with "." as thousands separator and "," as the
// decimal mark ("1.234,56").
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimSpace(s)

	if strings.Contains(s, ",") {
		// Brazilian format: strip thousands dots, comma becomes the point.
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
