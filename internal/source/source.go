// Package source holds what the spreadsheet-backed mapping sources share.
package source

import (
	"errors"

	"github.com/jonesrussell/north-cloud/redirector/internal/mapping"
)

// ErrNoData is returned when a sheet has no rows at all. The scheduler treats
// it like any other fetch failure and keeps the previous mapping.
var ErrNoData = errors.New("source returned no data")

// Column layout: alias in A, target in B. Extra columns are ignored.
const (
	colAlias  = 0
	colTarget = 1
)

// RowsFromCells converts a cell grid into rows. The first row is treated as a
// header and dropped unless includeFirstRow is set. Short rows yield empty
// cells, which mapping.FromRows later skips.
func RowsFromCells(cells [][]string, includeFirstRow bool) ([]mapping.Row, error) {
	if !includeFirstRow && len(cells) > 0 {
		cells = cells[1:]
	}
	if len(cells) == 0 {
		return nil, ErrNoData
	}

	rows := make([]mapping.Row, 0, len(cells))
	for _, c := range cells {
		rows = append(rows, mapping.Row{Alias: cell(c, colAlias), Target: cell(c, colTarget)})
	}
	return rows, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
