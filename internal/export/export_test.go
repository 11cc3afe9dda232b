package export

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/tablewise/pdf-tables/internal/domain"
	"github.com/tablewise/pdf-tables/internal/observability"
)

func sampleTables() []domain.MergedTable {
	return []domain.MergedTable{
		{Filename: "Page_01_Table_01.csv", CSV: "A,B\n1,2\n3,4\n"},
		{Filename: "Page_03_Table_01.csv", CSV: "X,Y,Z\na,b,c\n"},
	}
}

func TestWriteTables(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tables")
	paths, err := NewExporter(observability.Nop()).WriteTables(dir, sampleTables())

	require.NoError(t, err)
	require.Len(t, paths, 2)

	data, err := os.ReadFile(filepath.Join(dir, "Page_01_Table_01.csv"))
	require.NoError(t, err)
	assert.Equal(t, "A,B\n1,2\n3,4\n", string(data))
}

func TestWriteWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables.xlsx")
	require.NoError(t, NewExporter(observability.Nop()).WriteWorkbook(path, sampleTables()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	require.Len(t, sheets, 2)
	assert.Equal(t, "Page_01_Table_01 (1)", sheets[0])

	rows, err := f.GetRows(sheets[0])
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"A", "B"}, rows[0])
	assert.Equal(t, []string{"3", "4"}, rows[2])
}

func TestWriteWorkbook_BadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables.xlsx")
	err := NewExporter(observability.Nop()).WriteWorkbook(path, []domain.MergedTable{
		{Filename: "Page_01_Table_01.csv", CSV: ""},
	})
	require.Error(t, err)
}

func TestWriteArchive(t *testing.T) {
	dir := t.TempDir()
	imagePath := filepath.Join(dir, "page_001.jpg")
	tokenPath := filepath.Join(dir, "page_001_words.json")
	require.NoError(t, os.WriteFile(imagePath, []byte("jpeg-bytes"), 0o644))
	require.NoError(t, os.WriteFile(tokenPath, []byte(`{"words":[]}`), 0o644))

	pages := []domain.PageResult{
		{Artifact: domain.PageArtifact{PageIndex: 0, ImagePath: imagePath, TokenPath: tokenPath}},
		{Artifact: domain.PageArtifact{PageIndex: 1}, Err: domain.RenderError("degraded", nil)},
	}

	archive := filepath.Join(dir, "results.zip")
	require.NoError(t, NewExporter(observability.Nop()).WriteArchive(archive, pages, sampleTables()))

	zr, err := zip.OpenReader(archive)
	require.NoError(t, err)
	defer zr.Close()

	entries := map[string]string{}
	for _, zf := range zr.File {
		rc, err := zf.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		entries[zf.Name] = string(content)
	}

	assert.Len(t, entries, 4, "degraded page contributes nothing")
	assert.Equal(t, "jpeg-bytes", entries["pages/page_001.jpg"])
	assert.Equal(t, `{"words":[]}`, entries["pages/page_001_words.json"])
	assert.Equal(t, "A,B\n1,2\n3,4\n", entries["tables/Page_01_Table_01.csv"])
	assert.Equal(t, "X,Y,Z\na,b,c\n", entries["tables/Page_03_Table_01.csv"])
}
