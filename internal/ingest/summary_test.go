package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	data := []byte("CHAVE DE ACESSO,UF,VALOR\nk1,RJ,\"10,50\"\nk2,RJ,5\nk3,DF,\n")

	tbl, err := newTestLoader().LoadTable("resumo.csv", data)
	require.NoError(t, err)

	s := Summarize(tbl)
	assert.Equal(t, 3, s.RowCount)
	require.Len(t, s.Columns, 3)

	uf := s.Columns[1]
	assert.Equal(t, "uf", uf.Name)
	assert.Equal(t, 3, uf.NonEmpty)
	assert.Equal(t, 2, uf.Distinct)
	assert.False(t, uf.Numeric)
	assert.ElementsMatch(t, []string{"RJ", "DF"}, uf.Sample)

	valor := s.Columns[2]
	assert.True(t, valor.Numeric)
	assert.Equal(t, 2, valor.NonEmpty)
	assert.InDelta(t, 5.0, valor.Min, 0.001)
	assert.InDelta(t, 10.5, valor.Max, 0.001)
	assert.InDelta(t, 15.5, valor.Sum, 0.001)
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"100", 100, true},
		{"10.5", 10.5, true},
		{"10,50", 10.5, true},
		{"1.234,56", 1234.56, true},
		{"R$ 99,90", 99.9, true},
		{"-3,14", -3.14, true},
		{"RJ", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseNumber(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		if tt.ok {
			assert.InDelta(t, tt.want, got, 0.0001, "input %q", tt.in)
		}
	}
}

func TestDetectSourceKind(t *testing.T) {
	assert.Equal(t, SourceZIP, DetectSourceKind("x.zip", []byte("PK\x03\x04rest")))
	assert.Equal(t, SourceZIP, DetectSourceKind("notas.ZIP", nil))
	assert.Equal(t, SourceCSV, DetectSourceKind("notas.csv", []byte("A,B\n")))
	// content wins over a lying extension
	assert.Equal(t, SourceZIP, DetectSourceKind("notas.csv", []byte("PK\x03\x04rest")))
}
