// Package xlsx reads the alias mapping from a local Excel workbook.
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jonesrussell/north-cloud/redirector/internal/mapping"
	"github.com/jonesrussell/north-cloud/redirector/internal/source"
	"github.com/xuri/excelize/v2"
)

// Config selects the workbook and sheet.
type Config struct {
	Path string
	// Sheet defaults to the workbook's active sheet.
	Sheet           string
	IncludeFirstRow bool
}

// Source reads a workbook from disk on every fetch. The file's mtime is used
// as the modification time.
type Source struct {
	cfg Config
}

// New returns a Source for cfg.Path. The file need not exist yet.
func New(cfg Config) (*Source, error) {
	if cfg.Path == "" {
		return nil, errors.New("xlsx: path is required")
	}
	return &Source{cfg: cfg}, nil
}

// ModifiedTime implements refresh.Source.
func (s *Source) ModifiedTime(_ context.Context) (time.Time, error) {
	info, err := os.Stat(s.cfg.Path)
	if err != nil {
		return time.Time{}, fmt.Errorf("stat workbook: %w", err)
	}
	return info.ModTime(), nil
}

// FetchRows implements refresh.Source.
func (s *Source) FetchRows(ctx context.Context) ([]mapping.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(s.cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := s.cfg.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	}

	cells, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return source.RowsFromCells(cells, s.cfg.IncludeFirstRow)
}
