// Package interview drives the turn-by-turn conversation between the
// simulated respondent and the interviewer, who is either the user (manual
// mode) or the automated moderator (auto mode).
package interview

import (
	"context"
	"time"
)

// TurnStatus is the single source of truth for whose move it is. Exactly one
// value is active at a time, which rules out the impossible flag combinations
// that separate booleans would allow.
type TurnStatus string

const (
	// TurnIdle: nothing in flight. Manual sends are accepted; in auto mode
	// a new moderator turn may be scheduled.
	TurnIdle TurnStatus = "idle"
	// TurnAwaitingRespondent: an interviewer message has been delivered and
	// the respondent's reply is outstanding.
	TurnAwaitingRespondent TurnStatus = "awaiting_respondent"
	// TurnThinking: the auto moderator is composing its next question
	// (includes the pacing delay and any rate-limit cooldown).
	TurnThinking TurnStatus = "thinking"
	// TurnDone: the moderator judged the interview complete. No further
	// automated turns; the user holds the floor.
	TurnDone TurnStatus = "done"
)

// Clock abstracts the pacing and cooldown delays so tests run instantly.
type Clock interface {
	// Sleep blocks for d or until ctx is cancelled, returning ctx.Err() in
	// the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// NewClock returns the wall-clock implementation used outside tests.
func NewClock() Clock {
	return realClock{}
}
