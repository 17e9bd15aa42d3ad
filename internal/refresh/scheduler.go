// Package refresh keeps the mapping store current by polling a source on a
// fixed interval. Cycles run one at a time on a single goroutine; the next
// one is armed only after the previous one finishes.
package refresh

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonesrussell/north-cloud/redirector/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/redirector/internal/mapping"
	"github.com/jonesrussell/north-cloud/redirector/internal/normalize"
)

// Source is where alias rows come from.
type Source interface {
	// ModifiedTime reports when the data last changed. The zero time means the
	// source cannot tell, and the data is then always treated as changed.
	ModifiedTime(ctx context.Context) (time.Time, error)
	// FetchRows returns every alias/target row.
	FetchRows(ctx context.Context) ([]mapping.Row, error)
}

// Observer is told about every finished cycle. Implementations must not block.
type Observer interface {
	CycleCompleted(result CycleResult)
}

var (
	// ErrAlreadyStarted is returned by a second Start call.
	ErrAlreadyStarted = errors.New("refresh scheduler already started")
	// ErrStopped is returned by Start after Stop.
	ErrStopped = errors.New("refresh scheduler stopped")
)

const (
	defaultInterval     = 300 * time.Second
	defaultCycleTimeout = 60 * time.Second
)

// Config controls the scheduler.
type Config struct {
	// Interval is the delay between the end of one cycle and the start of the next.
	Interval time.Duration
	// CycleTimeout bounds the source calls of a single cycle. Stop does not
	// shorten it.
	CycleTimeout time.Duration
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithObserver registers o for cycle results.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// Scheduler owns the refresh goroutine. Create one with New, call Start once
// and Stop once.
type Scheduler struct {
	src       Source
	pipeline  *normalize.Pipeline
	store     *mapping.Store
	log       logger.Logger
	cfg       Config
	observers []Observer

	state   atomic.Int32
	trigger chan struct{}
	done    chan struct{}

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
}

// New wires a scheduler. Nothing runs until Start.
func New(
	src Source,
	pipeline *normalize.Pipeline,
	store *mapping.Store,
	log logger.Logger,
	cfg Config,
	opts ...Option,
) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.CycleTimeout <= 0 {
		cfg.CycleTimeout = defaultCycleTimeout
	}

	s := &Scheduler{
		src:      src,
		pipeline: pipeline,
		store:    store,
		log:      log,
		cfg:      cfg,
		trigger:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs the first cycle synchronously, then hands off to the background
// loop. A failed first cycle is logged, not returned: the service starts with
// an empty mapping and the next tick tries again. Cancelling ctx stops the
// loop like Stop does.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.stopped:
		s.mu.Unlock()
		return ErrStopped
	case s.started:
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.started = true
	s.cancel = cancel
	s.mu.Unlock()

	s.log.Info("Starting refresh scheduler",
		logger.Duration("interval", s.cfg.Interval),
		logger.Duration("cycle_timeout", s.cfg.CycleTimeout),
	)

	s.runCycle(loopCtx)
	go s.loop(loopCtx)
	return nil
}

// Stop disarms the timer and waits for the loop to exit. A cycle already in
// progress runs to completion first. Stop is idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	started := s.started
	cancel := s.cancel
	s.mu.Unlock()

	if started {
		cancel()
		<-s.done
	}
	s.state.Store(int32(StateStopped))
	s.log.Info("Refresh scheduler stopped")
}

// TriggerRefresh asks the loop to run a cycle now instead of waiting for the
// timer. It never blocks and returns false when a request is already queued
// or the scheduler is not running.
func (s *Scheduler) TriggerRefresh() bool {
	s.mu.Lock()
	running := s.started && !s.stopped
	s.mu.Unlock()
	if !running {
		return false
	}

	select {
	case s.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// State reports the lifecycle state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Interval returns the configured delay between cycles.
func (s *Scheduler) Interval() time.Duration {
	return s.cfg.Interval
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		case <-s.trigger:
			timer.Stop()
		}

		if ctx.Err() != nil {
			return
		}
		s.runCycle(ctx)
		timer.Reset(s.cfg.Interval)
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateRefreshing)) {
		return
	}
	defer s.state.CompareAndSwap(int32(StateRefreshing), int32(StateIdle))

	start := time.Now()

	// Shutdown must not abort source calls halfway; only the cycle timeout can.
	cycleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.CycleTimeout)
	defer cancel()

	result := s.cycle(cycleCtx)
	result.Duration = time.Since(start)

	s.logResult(result)
	for _, o := range s.observers {
		o.CycleCompleted(result)
	}
}

func (s *Scheduler) cycle(ctx context.Context) CycleResult {
	current := s.store.Current()

	modifiedAt, err := s.src.ModifiedTime(ctx)
	switch {
	case err != nil && !current.Loaded():
		// Nothing is served yet, so fetch anyway and publish with an unknown time.
		s.log.Warn("Modification check failed before first load, fetching anyway", logger.Error(err))
		modifiedAt = time.Time{}
	case err != nil:
		return CycleResult{Outcome: OutcomeFailed, Stage: StageCheck, Entries: current.Mapping.Len(), Err: err}
	}

	if current.Loaded() && !changed(current.LastModified, modifiedAt) {
		return CycleResult{Outcome: OutcomeUnchanged, ModifiedAt: modifiedAt, Entries: current.Mapping.Len()}
	}

	rows, err := s.src.FetchRows(ctx)
	if err != nil {
		return CycleResult{Outcome: OutcomeFailed, Stage: StageFetch, Entries: current.Mapping.Len(), Err: err}
	}

	raw, skipped := mapping.FromRows(rows)
	normalized := s.pipeline.Apply(raw)
	s.store.Publish(normalized, modifiedAt)

	return CycleResult{
		Outcome:    OutcomePublished,
		ModifiedAt: modifiedAt,
		Entries:    normalized.Len(),
		Skipped:    skipped,
	}
}

// changed treats an unknown timestamp on either side as a change.
func changed(previous, current time.Time) bool {
	if previous.IsZero() || current.IsZero() {
		return true
	}
	return current.After(previous)
}

func (s *Scheduler) logResult(r CycleResult) {
	switch r.Outcome {
	case OutcomePublished:
		s.log.Info("Alias mapping published",
			logger.Int("entries", r.Entries),
			logger.Int("skipped_rows", r.Skipped),
			logger.Time("modified_at", r.ModifiedAt),
			logger.Duration("duration", r.Duration),
		)
	case OutcomeUnchanged:
		s.log.Debug("Alias mapping unchanged, skipping fetch",
			logger.Time("modified_at", r.ModifiedAt),
		)
	case OutcomeFailed:
		s.log.Error("Alias mapping refresh failed, keeping previous mapping",
			logger.String("stage", string(r.Stage)),
			logger.Duration("duration", r.Duration),
			logger.Error(r.Err),
		)
	}
}
