package ingest

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// JoinKeyColumn is the normalized name of the fiscal access key present in
// both members of an NF archive. "Chave De Acesso", "CHAVE DE ACESSO" and
// "chave_de_acesso" all normalize to it.
const JoinKeyColumn = "chave_de_acesso"

// Origin suffixes applied to non-key columns whose normalized names collide
// across the two archive members.
const (
	headerSuffix = "_cabecalho"
	itemsSuffix  = "_itens"
)

// accentStripper removes combining marks after NFD decomposition, so
// "EMISSÃO" and "EMISSAO" normalize identically.
var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeColumn makes heterogeneous column headings comparable: quote
// artifacts and surrounding whitespace are stripped, diacritics removed,
// everything casefolded, and runs of whitespace, dashes and punctuation
// collapse to single underscores. The result is a fixed point:
// NormalizeColumn(NormalizeColumn(s)) == NormalizeColumn(s).
func NormalizeColumn(name string) string {
	s := strings.TrimSpace(name)
	s = strings.Trim(s, `"'`)
	s = strings.TrimSpace(s)

	if out, _, err := transform.String(accentStripper, s); err == nil {
		s = out
	}
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	pendingSep := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		case r == '_' || r == '-' || unicode.IsSpace(r):
			pendingSep = true
		default:
			// punctuation and symbols are dropped
		}
	}
	return b.String()
}

// normalizeHeader converts a raw header row into uniquely named Columns.
// Unnamed columns become column_<position>; duplicates after normalization
// get _2, _3, ... suffixes assigned to the later column in original order.
func normalizeHeader(header []string) []Column {
	cols := make([]Column, len(header))
	seen := make(map[string]bool, len(header))

	for i, raw := range header {
		name := NormalizeColumn(raw)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		name = dedupeName(name, seen)
		seen[name] = true
		cols[i] = Column{Name: name, Original: strings.TrimSpace(raw)}
	}
	return cols
}

// dedupeName appends the lowest free numeric suffix, starting at _2.
func dedupeName(name string, seen map[string]bool) string {
	if !seen[name] {
		return name
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s_%d", name, n)
		if !seen[candidate] {
			return candidate
		}
	}
}
