package refresh

import "time"

// State is the scheduler lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateRefreshing
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRefreshing:
		return "refreshing"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Outcome is how a cycle ended.
type Outcome string

const (
	OutcomePublished Outcome = "published"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeFailed    Outcome = "failed"
)

// Stage names the source call that failed.
type Stage string

const (
	StageCheck Stage = "check"
	StageFetch Stage = "fetch"
)

// CycleResult describes one finished cycle. Entries is the size of the
// mapping being served afterwards.
type CycleResult struct {
	Outcome    Outcome
	Stage      Stage
	Entries    int
	Skipped    int
	ModifiedAt time.Time
	Duration   time.Duration
	Err        error
}
