// Package sheets reads the alias mapping from a Google Sheets spreadsheet and
// uses the Drive API for its modification time.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jonesrussell/north-cloud/redirector/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/redirector/internal/mapping"
	"github.com/jonesrussell/north-cloud/redirector/internal/source"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// ErrNoData is returned when the sheet range holds no rows.
var ErrNoData = source.ErrNoData

const accessNotConfigured = "accessNotConfigured"

// Config identifies the spreadsheet.
type Config struct {
	SpreadsheetID string
	// Sheet is the tab name; empty means the first tab.
	Sheet           string
	IncludeFirstRow bool
	Auth            AuthConfig
}

// Source implements refresh.Source against Google APIs.
type Source struct {
	cfg    Config
	sheets *sheetsapi.Service
	drive  *drive.Service
	log    logger.Logger

	// Cleared once Drive reports that its API is not enabled for the project.
	checkModified atomic.Bool
}

// New authenticates according to cfg.Auth and builds both API clients.
func New(ctx context.Context, cfg Config, log logger.Logger) (*Source, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("sheets: spreadsheet id is required")
	}

	auth, err := ClientOption(ctx, cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("sheets auth: %w", err)
	}
	return NewWithOptions(ctx, cfg, log, auth)
}

// NewWithOptions builds the API clients from explicit client options.
func NewWithOptions(ctx context.Context, cfg Config, log logger.Logger, opts ...option.ClientOption) (*Source, error) {
	sheetsSvc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}
	driveSvc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive client: %w", err)
	}

	s := &Source{
		cfg:    cfg,
		sheets: sheetsSvc,
		drive:  driveSvc,
		log:    log.With(logger.String("spreadsheet_id", cfg.SpreadsheetID)),
	}
	s.checkModified.Store(true)
	return s, nil
}

// ModifiedTime implements refresh.Source. It returns the zero time once
// modification checks have been disabled.
func (s *Source) ModifiedTime(ctx context.Context) (time.Time, error) {
	if !s.checkModified.Load() {
		return time.Time{}, nil
	}

	f, err := s.drive.Files.Get(s.cfg.SpreadsheetID).
		Fields("modifiedTime").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		if isAccessNotConfigured(err) {
			s.log.Warn("Drive API not enabled for project, skipping modification checks")
			s.checkModified.Store(false)
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("get file metadata: %w", err)
	}

	modified, err := time.Parse(time.RFC3339, f.ModifiedTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse modifiedTime %q: %w", f.ModifiedTime, err)
	}
	return modified, nil
}

// FetchRows implements refresh.Source.
func (s *Source) FetchRows(ctx context.Context) ([]mapping.Row, error) {
	rng := s.readRange()
	resp, err := s.sheets.Spreadsheets.Values.Get(s.cfg.SpreadsheetID, rng).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("get values %s: %w", rng, err)
	}

	cells := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		out := make([]string, len(row))
		for i, v := range row {
			out[i] = fmt.Sprint(v)
		}
		cells = append(cells, out)
	}

	// The range already excludes the header row when it should be skipped.
	return source.RowsFromCells(cells, true)
}

// readRange is A2:B when the header row is skipped and A:B otherwise,
// prefixed with the quoted tab name when one is configured.
func (s *Source) readRange() string {
	rng := "A:B"
	if !s.cfg.IncludeFirstRow {
		rng = "A2:B"
	}
	if s.cfg.Sheet == "" {
		return rng
	}
	return "'" + strings.ReplaceAll(s.cfg.Sheet, "'", "''") + "'!" + rng
}

func isAccessNotConfigured(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) || gerr.Code != http.StatusForbidden {
		return false
	}
	for _, item := range gerr.Errors {
		if item.Reason == accessNotConfigured {
			return true
		}
	}
	return strings.Contains(gerr.Body, accessNotConfigured)
}
