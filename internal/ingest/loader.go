package ingest

import (
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	nfenc "nfcli/internal/encoding"
)

// Loader parses delimited text into normalized tables. It is stateless apart
// from its injected collaborators and safe for concurrent use.
type Loader struct {
	resolver *nfenc.Resolver
	logger   *slog.Logger
}

// NewLoader creates a loader with the default encoding resolver.
func NewLoader(logger *slog.Logger) *Loader {
	return NewLoaderWithResolver(nfenc.NewResolver(), logger)
}

// NewLoaderWithResolver creates a loader with a specific resolver, letting
// callers tune the detection thresholds from configuration.
func NewLoaderWithResolver(resolver *nfenc.Resolver, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{resolver: resolver, logger: logger}
}

// LoadTable decodes and parses a single CSV source into a Table. It fails
// only with *MalformedInputError; encoding ambiguity is resolved silently
// and recorded in the table metadata.
func (l *Loader) LoadTable(path string, data []byte) (*Table, error) {
	guess := l.resolver.Resolve(data)
	text, err := nfenc.Decode(data, guess.Charset)
	if err != nil {
		// Resolve guarantees a decodable charset; treat a failure here as
		// structurally unparseable input.
		return nil, &MalformedInputError{Path: path, Delimiters: delimiterNames, Err: err}
	}

	l.logger.Debug("encoding resolved",
		slog.String("path", path),
		slog.String("charset", guess.Charset),
		slog.Int("confidence", guess.Confidence),
		slog.Bool("fallback", guess.Fallback))

	records, err := parseDelimited(text)
	if err != nil {
		return nil, &MalformedInputError{Path: path, Delimiters: delimiterNames, Err: err}
	}

	cols := normalizeHeader(records[0])
	rows := squareRows(records[1:], len(cols))

	return &Table{
		Columns: cols,
		Rows:    rows,
		Meta: Meta{
			Path:        path,
			Kind:        SourceCSV,
			RowCount:    len(rows),
			ColumnCount: len(cols),
			Encodings: []EncodingInfo{{
				File:       path,
				Charset:    guess.Charset,
				Confidence: guess.Confidence,
				Fallback:   guess.Fallback,
			}},
			ProcessedAt: time.Now().UTC(),
		},
	}, nil
}

// delimiters in attempt order: comma-delimited double-quote-quoted text
// first, semicolon second because regionally exported spreadsheets use it
// with comma as the decimal separator.
var (
	delimiters     = []rune{',', ';'}
	delimiterNames = []string{",", ";"}
)

var errNoRecords = errors.New("no records found")

// parseDelimited parses text under the standard convention, retrying with a
// semicolon when comma parsing fails or degenerates to a single column.
func parseDelimited(text string) ([][]string, error) {
	var firstErr error
	var single [][]string

	for _, delim := range delimiters {
		r := csv.NewReader(strings.NewReader(text))
		r.Comma = delim
		r.LazyQuotes = true
		r.FieldsPerRecord = -1

		records, err := readAll(r)
		switch {
		case err != nil:
			if firstErr == nil {
				firstErr = err
			}
		case len(records[0]) > 1:
			return records, nil
		case single == nil:
			// keep the single-column parse; it wins only if no other
			// delimiter does better
			single = records
		}
	}

	if single != nil {
		return single, nil
	}
	if firstErr == nil {
		firstErr = errNoRecords
	}
	return nil, firstErr
}

// readAll consumes the reader, skipping fully empty lines and failing when
// no records remain.
func readAll(r *csv.Reader) ([][]string, error) {
	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if isEmptyRecord(rec) {
			continue
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, errNoRecords
	}
	return records, nil
}

func isEmptyRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// squareRows pads or truncates rows to the header width so the row-width
// invariant holds even for ragged exports.
func squareRows(rows [][]string, width int) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		if len(row) == width {
			out[i] = row
			continue
		}
		squared := make([]string, width)
		copy(squared, row)
		out[i] = squared
	}
	return out
}
