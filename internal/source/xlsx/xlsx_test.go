package xlsx_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonesrussell/north-cloud/redirector/internal/mapping"
	"github.com/jonesrussell/north-cloud/redirector/internal/source"
	"github.com/jonesrussell/north-cloud/redirector/internal/source/xlsx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, sheet string, rows [][]string) string {
	t.Helper()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if sheet != "Sheet1" {
		_, err := f.NewSheet(sheet)
		require.NoError(t, err)
	}
	for rowIdx, row := range rows {
		for colIdx, val := range row {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, val))
		}
	}

	path := filepath.Join(t.TempDir(), "redirects.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestSource_FetchRows(t *testing.T) {
	t.Parallel()

	path := writeWorkbook(t, "Sheet1", [][]string{
		{"alias", "target"},
		{"docs", "https://docs.example.com"},
		{"team", "https://team.example.com"},
	})

	src, err := xlsx.New(xlsx.Config{Path: path})
	require.NoError(t, err)

	rows, err := src.FetchRows(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []mapping.Row{
		{Alias: "docs", Target: "https://docs.example.com"},
		{Alias: "team", Target: "https://team.example.com"},
	}, rows)
}

func TestSource_NamedSheetWithFirstRow(t *testing.T) {
	t.Parallel()

	path := writeWorkbook(t, "Links", [][]string{
		{"docs", "https://docs.example.com"},
	})

	src, err := xlsx.New(xlsx.Config{Path: path, Sheet: "Links", IncludeFirstRow: true})
	require.NoError(t, err)

	rows, err := src.FetchRows(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []mapping.Row{{Alias: "docs", Target: "https://docs.example.com"}}, rows)
}

func TestSource_EmptySheet(t *testing.T) {
	t.Parallel()

	path := writeWorkbook(t, "Sheet1", [][]string{{"alias", "target"}})

	src, err := xlsx.New(xlsx.Config{Path: path})
	require.NoError(t, err)

	_, err = src.FetchRows(context.Background())
	require.ErrorIs(t, err, source.ErrNoData)
}

func TestSource_ModifiedTime(t *testing.T) {
	t.Parallel()

	path := writeWorkbook(t, "Sheet1", [][]string{{"a", "b"}})
	stamp := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(path, stamp, stamp))

	src, err := xlsx.New(xlsx.Config{Path: path})
	require.NoError(t, err)

	modified, err := src.ModifiedTime(context.Background())
	require.NoError(t, err)
	assert.True(t, stamp.Equal(modified))
}

func TestSource_MissingFile(t *testing.T) {
	t.Parallel()

	src, err := xlsx.New(xlsx.Config{Path: filepath.Join(t.TempDir(), "missing.xlsx")})
	require.NoError(t, err)

	_, err = src.ModifiedTime(context.Background())
	require.Error(t, err)
	_, err = src.FetchRows(context.Background())
	require.Error(t, err)
}

func TestNew_RequiresPath(t *testing.T) {
	t.Parallel()

	_, err := xlsx.New(xlsx.Config{})
	require.Error(t, err)
}
