package ingest

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildZip assembles an in-memory archive from member name → content.
func buildZip(t *testing.T, members map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range members {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestMergeArchiveEndToEnd(t *testing.T) {
	data := buildZip(t, map[string]string{
		"202401_NFs_Cabecalho.csv": "CHAVE DE ACESSO,UF\nk1,RJ\nk2,DF\n",
		"202401_NFs_Itens.csv":     "CHAVE DE ACESSO,VALOR\nk1,100\nk1,50\nk3,10\n",
	})

	tbl, err := newTestLoader().MergeArchive("202401_NFs.zip", data)
	require.NoError(t, err)

	assert.Equal(t, []string{"chave_de_acesso", "uf", "valor"}, tbl.ColumnNames())
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, []string{"k1", "RJ", "100"}, tbl.Rows[0])
	assert.Equal(t, []string{"k1", "RJ", "50"}, tbl.Rows[1])

	require.NotNil(t, tbl.Meta.Merge)
	assert.Equal(t, 2, tbl.Meta.Merge.HeaderRows)
	assert.Equal(t, 3, tbl.Meta.Merge.ItemsRows)
	assert.Equal(t, 2, tbl.Meta.Merge.MergedRows)
	assert.Equal(t, SourceZIP, tbl.Meta.Kind)
	assert.Len(t, tbl.Meta.Encodings, 2)
}

// Join correctness: header keys {a,b,c}, item rows for keys [a,a,b,d].
// Exactly three merged rows; c and d have no partner and drop out.
func TestMergeArchiveInnerJoinSemantics(t *testing.T) {
	data := buildZip(t, map[string]string{
		"202402_NFs_Cabecalho.csv": "CHAVE DE ACESSO,STATUS\na,ok\nb,ok\nc,ok\n",
		"202402_NFs_Itens.csv":     "CHAVE DE ACESSO,ITEM\na,i1\na,i2\nb,i3\nd,i4\n",
	})

	tbl, err := newTestLoader().MergeArchive("202402_NFs.zip", data)
	require.NoError(t, err)

	require.Len(t, tbl.Rows, 3)
	keyIdx := tbl.ColumnIndex(JoinKeyColumn)
	require.NotEqual(t, -1, keyIdx)
	keys := make([]string, 0, 3)
	for _, row := range tbl.Rows {
		keys = append(keys, row[keyIdx])
	}
	assert.Equal(t, []string{"a", "a", "b"}, keys)
}

// Suffix disambiguation: VALOR exists on both sides, CHAVE is the key and
// appears once, one-sided columns keep their names.
func TestMergeArchiveColumnSuffixes(t *testing.T) {
	data := buildZip(t, map[string]string{
		"202403_NFs_Cabecalho.csv": "CHAVE DE ACESSO,VALOR,STATUS\nk1,9,ok\n",
		"202403_NFs_Itens.csv":     "CHAVE DE ACESSO,VALOR,ITEM\nk1,7,i1\n",
	})

	tbl, err := newTestLoader().MergeArchive("202403_NFs.zip", data)
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"chave_de_acesso", "valor_cabecalho", "status", "valor_itens", "item"},
		tbl.ColumnNames())
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, []string{"k1", "9", "ok", "7", "i1"}, tbl.Rows[0])
}

func TestMergeArchivePerMemberEncodings(t *testing.T) {
	// Header in UTF-8, items in ISO-8859-1; each side resolves on its own.
	data := buildZip(t, map[string]string{
		"202404_NFs_Cabecalho.csv": "CHAVE DE ACESSO,EMISSÃO\nk1,2024\n",
		"202404_NFs_Itens.csv":     "CHAVE DE ACESSO,DESCRI\xC7\xC3O\nk1,ra\xE7\xE3o\n",
	})

	tbl, err := newTestLoader().MergeArchive("202404_NFs.zip", data)
	require.NoError(t, err)

	require.Len(t, tbl.Meta.Encodings, 2)
	assert.NotEqual(t, tbl.Meta.Encodings[0].Charset, tbl.Meta.Encodings[1].Charset)
	assert.Equal(t, "ração", tbl.Rows[0][2])
}

func TestMergeArchiveCaseInsensitiveMemberNames(t *testing.T) {
	data := buildZip(t, map[string]string{
		"202405_nfs_cabecalho.csv": "CHAVE DE ACESSO,UF\nk1,SP\n",
		"202405_NFS_ITENS.CSV":     "CHAVE DE ACESSO,VALOR\nk1,1\n",
	})

	_, err := newTestLoader().MergeArchive("202405_NFs.zip", data)
	require.NoError(t, err)
}

func TestMergeArchiveWrongMemberCount(t *testing.T) {
	data := buildZip(t, map[string]string{
		"202401_NFs_Cabecalho.csv": "CHAVE DE ACESSO\nk1\n",
		"202401_NFs_Itens.csv":     "CHAVE DE ACESSO\nk1\n",
		"extra.csv":                "A\n1\n",
	})

	_, err := newTestLoader().MergeArchive("bad.zip", data)
	var structural *ArchiveStructureError
	require.ErrorAs(t, err, &structural)
	assert.Len(t, structural.Found, 3)
}

func TestMergeArchiveMisspelledMembers(t *testing.T) {
	data := buildZip(t, map[string]string{
		"202401_NFs_Cabecalho.csv": "CHAVE DE ACESSO\nk1\n",
		"202401_NFs_Item.csv":      "CHAVE DE ACESSO\nk1\n", // wrong suffix
	})

	_, err := newTestLoader().MergeArchive("bad.zip", data)
	var structural *ArchiveStructureError
	require.ErrorAs(t, err, &structural)
	assert.Contains(t, structural.Found, "202401_NFs_Item.csv")
}

func TestMergeArchiveNotAZip(t *testing.T) {
	_, err := newTestLoader().MergeArchive("fake.zip", []byte("CHAVE,VALOR\n1,2\n"))

	var structural *ArchiveStructureError
	require.ErrorAs(t, err, &structural)
}

func TestMergeArchiveMissingJoinKey(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		items   string
		missing []Side
	}{
		{
			name:    "missing from items",
			header:  "CHAVE DE ACESSO,UF\nk1,RJ\n",
			items:   "CODIGO,VALOR\n1,2\n",
			missing: []Side{SideItems},
		},
		{
			name:    "missing from header",
			header:  "CODIGO,UF\n1,RJ\n",
			items:   "CHAVE DE ACESSO,VALOR\nk1,2\n",
			missing: []Side{SideHeader},
		},
		{
			name:    "missing from both",
			header:  "CODIGO,UF\n1,RJ\n",
			items:   "CODIGO,VALOR\n1,2\n",
			missing: []Side{SideHeader, SideItems},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := buildZip(t, map[string]string{
				"202401_NFs_Cabecalho.csv": tt.header,
				"202401_NFs_Itens.csv":     tt.items,
			})

			_, err := newTestLoader().MergeArchive("key.zip", data)
			var missing *MissingJoinKeyError
			require.ErrorAs(t, err, &missing)
			assert.Equal(t, JoinKeyColumn, missing.Key)
			assert.Equal(t, tt.missing, missing.MissingFrom)
		})
	}
}

func TestMergeArchiveEmptyJoinIsWarning(t *testing.T) {
	data := buildZip(t, map[string]string{
		"202401_NFs_Cabecalho.csv": "CHAVE DE ACESSO,UF\nk1,RJ\n",
		"202401_NFs_Itens.csv":     "CHAVE DE ACESSO,VALOR\nk9,5\n",
	})

	tbl, err := newTestLoader().MergeArchive("disjoint.zip", data)

	var empty *JoinProducedEmptyResultError
	require.ErrorAs(t, err, &empty)
	assert.Equal(t, 1, empty.HeaderRows)
	assert.Equal(t, 1, empty.ItemsRows)

	// The table is still returned; the condition is a warning, not a failure.
	require.NotNil(t, tbl)
	assert.Empty(t, tbl.Rows)
	assert.Equal(t, 0, tbl.Meta.Merge.MergedRows)
}
