// Package storage records redirect hits in PostgreSQL through a bounded,
// non-blocking buffer.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	infralogger "github.com/jonesrussell/north-cloud/redirector/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/redirector/internal/domain"
)

const (
	// columnsPerRow is the number of columns inserted per hit row.
	columnsPerRow = 7

	// insertBatchSize is the maximum number of rows per INSERT statement.
	insertBatchSize = 50

	// flushTimeout is the context timeout for each flush operation.
	flushTimeout = 5 * time.Second
)

// Buffer is a channel-based hit buffer. A nil *Buffer drops everything, so
// handlers need not care whether recording is enabled.
type Buffer struct {
	hits   chan domain.RedirectHit
	closed chan struct{}
	once   sync.Once
}

// NewBuffer creates a buffer with a buffered channel of the given capacity.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{
		hits:   make(chan domain.RedirectHit, capacity),
		closed: make(chan struct{}),
	}
}

// Send performs a non-blocking send. It returns false when the buffer is
// full, closed or nil.
func (b *Buffer) Send(hit domain.RedirectHit) bool {
	if b == nil {
		return false
	}
	select {
	case <-b.closed:
		return false
	default:
	}
	select {
	case b.hits <- hit:
		return true
	default:
		return false
	}
}

// Len returns the number of hits waiting in the buffer.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.hits)
}

// Close stops the buffer accepting hits. Safe to call more than once.
func (b *Buffer) Close() {
	b.once.Do(func() {
		close(b.closed)
	})
}

// Store drains a Buffer into the redirect_hits table.
type Store struct {
	db             *sql.DB
	buffer         *Buffer
	log            infralogger.Logger
	flushInterval  time.Duration
	flushThreshold int
	wg             sync.WaitGroup
}

// NewStore creates a Store reading from buffer.
func NewStore(
	db *sql.DB,
	buffer *Buffer,
	log infralogger.Logger,
	flushInterval time.Duration,
	flushThreshold int,
) *Store {
	return &Store{
		db:             db,
		buffer:         buffer,
		log:            log,
		flushInterval:  flushInterval,
		flushThreshold: flushThreshold,
	}
}

// Start launches the flush goroutine.
func (s *Store) Start() {
	s.wg.Go(s.flushLoop)
}

// Stop closes the buffer, flushes what is left and waits for the goroutine.
func (s *Store) Stop() {
	s.buffer.Close()
	s.wg.Wait()
}

func (s *Store) flushLoop() {
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	batch := make([]domain.RedirectHit, 0, s.flushThreshold)

	for {
		select {
		case hit := <-s.buffer.hits:
			batch = append(batch, hit)
			if len(batch) >= s.flushThreshold {
				s.flush(batch)
				batch = make([]domain.RedirectHit, 0, s.flushThreshold)
			}

		case <-ticker.C:
			if len(batch) > 0 {
				s.flush(batch)
				batch = make([]domain.RedirectHit, 0, s.flushThreshold)
			}

		case <-s.buffer.closed:
			batch = s.drain(batch)
			if len(batch) > 0 {
				s.flush(batch)
			}
			return
		}
	}
}

func (s *Store) drain(batch []domain.RedirectHit) []domain.RedirectHit {
	for {
		select {
		case hit := <-s.buffer.hits:
			batch = append(batch, hit)
		default:
			return batch
		}
	}
}

// flush writes batch in chunks of insertBatchSize. Failed chunks are logged
// and dropped.
func (s *Store) flush(batch []domain.RedirectHit) {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	for start := 0; start < len(batch); start += insertBatchSize {
		end := min(start+insertBatchSize, len(batch))

		if err := s.batchInsert(ctx, batch[start:end]); err != nil {
			s.log.Error("Failed to insert redirect hits",
				infralogger.Error(err),
				infralogger.Int("batch_size", end-start),
			)
		}
	}

	s.log.Debug("Flushed redirect hits", infralogger.Int("total", len(batch)))
}

func (s *Store) batchInsert(ctx context.Context, hits []domain.RedirectHit) error {
	if len(hits) == 0 {
		return nil
	}

	args := make([]any, 0, len(hits)*columnsPerRow)
	var sb strings.Builder

	sb.WriteString("INSERT INTO redirect_hits (alias, target, outcome, host, " +
		"user_agent_hash, is_bot, hit_at) VALUES ")

	for i := range hits {
		if i > 0 {
			sb.WriteString(", ")
		}
		writeValueTuple(&sb, i)

		args = append(args,
			hits[i].Alias, hits[i].Target, hits[i].Outcome, hits[i].Host,
			hits[i].UserAgentHash, hits[i].IsBot, hits[i].HitAt,
		)
	}

	if _, err := s.db.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("exec batch insert: %w", err)
	}
	return nil
}

// writeValueTuple writes one ($n, ...) placeholder tuple offset by rowIndex.
func writeValueTuple(sb *strings.Builder, rowIndex int) {
	base := rowIndex * columnsPerRow
	sb.WriteByte('(')
	for col := 1; col <= columnsPerRow; col++ {
		if col > 1 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(sb, "$%d", base+col)
	}
	sb.WriteByte(')')
}
