package source

import (
	"context"
	"time"

	"github.com/jonesrussell/north-cloud/redirector/infrastructure/circuitbreaker"
	"github.com/jonesrussell/north-cloud/redirector/internal/mapping"
	"github.com/jonesrussell/north-cloud/redirector/internal/refresh"
)

// Guarded runs every call to the wrapped source through a circuit breaker so
// that a dead upstream is not hit on every cycle.
type Guarded struct {
	inner   refresh.Source
	breaker *circuitbreaker.Breaker
}

// NewGuarded wraps inner.
func NewGuarded(inner refresh.Source, breaker *circuitbreaker.Breaker) *Guarded {
	return &Guarded{inner: inner, breaker: breaker}
}

// ModifiedTime implements refresh.Source.
func (g *Guarded) ModifiedTime(ctx context.Context) (time.Time, error) {
	var modified time.Time
	err := g.breaker.Execute(ctx, func() error {
		var err error
		modified, err = g.inner.ModifiedTime(ctx)
		return err
	})
	return modified, err
}

// FetchRows implements refresh.Source.
func (g *Guarded) FetchRows(ctx context.Context) ([]mapping.Row, error) {
	var rows []mapping.Row
	err := g.breaker.Execute(ctx, func() error {
		var err error
		rows, err = g.inner.FetchRows(ctx)
		return err
	})
	return rows, err
}

// BreakerState reports the breaker state for status endpoints.
func (g *Guarded) BreakerState() circuitbreaker.State {
	return g.breaker.State()
}
