package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	infralogger "github.com/jonesrussell/north-cloud/redirector/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/redirector/infrastructure/retry"
	"github.com/jonesrussell/north-cloud/redirector/internal/config"
	"github.com/jonesrussell/north-cloud/redirector/internal/storage"
)

const dbPingTimeout = 5 * time.Second

// HitRecording owns the hit buffer, its flusher and the database handle.
// A nil *HitRecording means recording is disabled.
type HitRecording struct {
	buffer *storage.Buffer
	store  *storage.Store
	db     *sql.DB
	log    infralogger.Logger
}

// Buffer returns the buffer handlers send hits to. Nil when disabled.
func (h *HitRecording) Buffer() *storage.Buffer {
	if h == nil {
		return nil
	}
	return h.buffer
}

// DB returns the database handle. Nil when disabled.
func (h *HitRecording) DB() *sql.DB {
	if h == nil {
		return nil
	}
	return h.db
}

// Close flushes pending hits and closes the database.
func (h *HitRecording) Close() {
	if h == nil {
		return
	}
	h.store.Stop()
	if err := h.db.Close(); err != nil {
		h.log.Error("Failed to close database", infralogger.Error(err))
	}
}

// SetupHitRecording connects to PostgreSQL and starts the hit flusher.
// Returns nil when hit recording is disabled.
func SetupHitRecording(ctx context.Context, cfg *config.Config, log infralogger.Logger) (*HitRecording, error) {
	if !cfg.Database.Enabled {
		return nil, nil //nolint:nilnil // disabled
	}

	db, err := connectDatabase(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	buf := storage.NewBuffer(cfg.Database.BufferSize)
	store := storage.NewStore(db, buf, log, cfg.Database.FlushInterval, cfg.Database.FlushThreshold)
	store.Start()

	return &HitRecording{buffer: buf, store: store, db: db, log: log}, nil
}

// connectDatabase opens the database and pings it, retrying while it comes up.
func connectDatabase(ctx context.Context, cfg *config.Config, log infralogger.Logger) (*sql.DB, error) {
	conn := cfg.Database.Connection()
	db, err := sql.Open("postgres", conn.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pingErr := retry.Retry(ctx, retry.DefaultConfig(), func() error {
		pingCtx, cancel := context.WithTimeout(ctx, dbPingTimeout)
		defer cancel()
		return db.PingContext(pingCtx)
	})
	if pingErr != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", pingErr)
	}

	log.Info("Database connected",
		infralogger.String("host", conn.Host),
		infralogger.Int("port", conn.Port),
		infralogger.String("database", conn.Database),
	)
	return db, nil
}
