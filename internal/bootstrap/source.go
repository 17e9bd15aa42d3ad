package bootstrap

import (
	"context"
	"fmt"

	"github.com/jonesrussell/north-cloud/redirector/infrastructure/circuitbreaker"
	infralogger "github.com/jonesrussell/north-cloud/redirector/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/redirector/internal/config"
	"github.com/jonesrussell/north-cloud/redirector/internal/metrics"
	"github.com/jonesrussell/north-cloud/redirector/internal/planner"
	"github.com/jonesrussell/north-cloud/redirector/internal/refresh"
	"github.com/jonesrussell/north-cloud/redirector/internal/source"
	"github.com/jonesrussell/north-cloud/redirector/internal/source/sheets"
	"github.com/jonesrussell/north-cloud/redirector/internal/source/xlsx"
	"github.com/jonesrussell/north-cloud/redirector/internal/templates"
)

// SetupSource builds the configured mapping source behind a circuit breaker.
func SetupSource(
	ctx context.Context,
	cfg *config.Config,
	m *metrics.Metrics,
	log infralogger.Logger,
) (*source.Guarded, error) {
	inner, err := newSource(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("create %s source: %w", cfg.Source.Type, err)
	}

	breaker := circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: cfg.Source.CircuitBreaker.FailureThreshold,
		Timeout:          cfg.Source.CircuitBreaker.Timeout,
		OnStateChange: func(from, to circuitbreaker.State) {
			m.ObserveBreaker(from, to)
			log.Warn("Source circuit breaker changed state",
				infralogger.String("from", from.String()),
				infralogger.String("to", to.String()),
			)
		},
	})

	log.Info("Mapping source configured", infralogger.String("type", cfg.Source.Type))
	return source.NewGuarded(inner, breaker), nil
}

func newSource(ctx context.Context, cfg *config.Config, log infralogger.Logger) (refresh.Source, error) {
	switch cfg.Source.Type {
	case config.SourceXLSX:
		return xlsx.New(xlsx.Config{
			Path:            cfg.Source.XLSX.Path,
			Sheet:           cfg.Source.XLSX.Sheet,
			IncludeFirstRow: cfg.Source.IncludeFirstRow,
		})
	case config.SourceGoogleSheets:
		gs := cfg.Source.GoogleSheets
		return sheets.New(ctx, sheets.Config{
			SpreadsheetID:   gs.SpreadsheetID,
			Sheet:           gs.Sheet,
			IncludeFirstRow: cfg.Source.IncludeFirstRow,
			Auth: sheets.AuthConfig{
				Mode:    sheets.AuthMode(gs.AuthMode),
				KeyFile: gs.ServiceAccountKeyFile,
				ServiceAccount: sheets.ServiceAccount{
					ProjectID:    gs.ServiceAccount.ProjectID,
					PrivateKey:   gs.ServiceAccount.PrivateKey,
					PrivateKeyID: gs.ServiceAccount.PrivateKeyID,
					ClientEmail:  gs.ServiceAccount.ClientEmail,
					ClientID:     gs.ServiceAccount.ClientID,
				},
				OAuth2File: gs.OAuth2CredentialsFile,
			},
		}, log)
	default:
		return nil, fmt.Errorf("unknown source type %q", cfg.Source.Type)
	}
}

// SetupPlanner loads the page templates and builds the response planner.
func SetupPlanner(cfg *config.Config) (*planner.Planner, error) {
	set, err := templates.Load(cfg.Templates.Path, templates.Options{
		DefaultLanguage: cfg.Redirect.DefaultLanguage,
		RequireConfirm:  cfg.Redirect.AllowConfirmationPage,
		ConfirmDelay:    cfg.Redirect.ConfirmDelay,
	})
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	p, err := planner.New(planner.Config{
		ConfirmationPagesEnabled: cfg.Redirect.AllowConfirmationPage,
		DefaultLanguage:          cfg.Redirect.DefaultLanguage,
		ConfirmDelay:             cfg.Redirect.ConfirmDelay,
		RedirectStatus:           cfg.Redirect.Status,
		CacheMaxAge:              cfg.CacheMaxAge(),
	}, set)
	if err != nil {
		return nil, fmt.Errorf("create planner: %w", err)
	}
	return p, nil
}
