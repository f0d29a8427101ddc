package domain

import (
	"fmt"
	"time"
)

// EpisodeState tracks where one recovery episode is in its lifecycle.
type EpisodeState string

const (
	StateDetected    EpisodeState = "detected"
	StateAnalyzed    EpisodeState = "analyzed"
	StateExecuting   EpisodeState = "executing"
	StateRecovered   EpisodeState = "recovered"
	StateUnrecovered EpisodeState = "unrecovered"
	StateEscalated   EpisodeState = "escalated"
)

// Terminal reports whether the state ends the episode.
func (s EpisodeState) Terminal() bool {
	switch s {
	case StateRecovered, StateUnrecovered, StateEscalated:
		return true
	}
	return false
}

var episodeTransitions = map[EpisodeState][]EpisodeState{
	StateDetected:  {StateAnalyzed},
	StateAnalyzed:  {StateExecuting, StateEscalated},
	StateExecuting: {StateRecovered, StateUnrecovered},
}

// Episode is one end-to-end handling of a single detected failure.
type Episode struct {
	ID    string
	State EpisodeState
	Ctx   *ErrorContext
}

// Transition advances the episode state, rejecting moves the lifecycle does
// not allow.
func (e *Episode) Transition(next EpisodeState) error {
	for _, allowed := range episodeTransitions[e.State] {
		if allowed == next {
			e.State = next
			return nil
		}
	}
	return fmt.Errorf("invalid episode transition %s -> %s", e.State, next)
}

// AuditEntry is the durable record of an episode. Inserted at detection,
// updated once with the outcome, never deleted.
type AuditEntry struct {
	ID               string
	Timestamp        time.Time
	ErrorType        string
	ErrorMessage     string
	ServiceName      string
	Operation        string
	Severity         Severity
	RecoveryAttempts int
	ContextData      map[string]string
	RecoverySuccess  *bool
	RecoveryStrategy RecoveryStrategy
}
