package interview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/apresai/interviewer/internal/backend"
	"github.com/apresai/interviewer/internal/session"
)

const (
	// pacingDelay is the pause before each automated question. It keeps the
	// moderator from hammering the backend and reads as natural pacing.
	pacingDelay = 3 * time.Second
	// rateLimitCooldown is the longer wait before retrying a moderator turn
	// that failed with a rate-limit error.
	rateLimitCooldown = 5 * time.Second
)

// degradedReply is substituted for the respondent when a single chat turn
// fails, so the transcript stays turn-consistent without aborting the session.
const degradedReply = "（受访者暂时没有回应，可能是网络问题。你可以继续提问。） (The respondent didn't reply — likely a connection problem. You can keep asking.)"

// Moderator decides the automated interviewer's next move.
type Moderator interface {
	NextQuestion(ctx context.Context, req backend.ModeratorRequest) (*backend.ModeratorDecision, error)
}

// Config carries the immutable interview inputs.
type Config struct {
	Persona session.Persona
	Guide   []string
	Mode    session.Mode
	Clock   Clock        // nil means wall clock
	Logger  *slog.Logger // nil means slog.Default()
}

// Loop runs one interview. All transcript mutation during the interview
// happens here; the transcript is append-only and handed back to the
// workflow when the user ends the session.
type Loop struct {
	mu         sync.Mutex
	channel    backend.ChatChannel
	moderator  Moderator
	persona    session.Persona
	guide      []string
	mode       session.Mode
	status     TurnStatus
	transcript []session.Message
	opened     bool
	closed     bool
	clock      Clock
	logger     *slog.Logger
	notify     chan struct{}
}

// New creates a loop over an open chat channel.
func New(channel backend.ChatChannel, moderator Moderator, cfg Config) *Loop {
	clock := cfg.Clock
	if clock == nil {
		clock = realClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		channel:   channel,
		moderator: moderator,
		persona:   cfg.Persona,
		guide:     cfg.Guide,
		mode:      cfg.Mode,
		status:    TurnIdle,
		clock:     clock,
		logger:    logger,
		notify:    make(chan struct{}, 1),
	}
}

// Updates signals whenever the transcript, status, or mode changes. The
// channel is never closed; it coalesces bursts into a single tick.
func (l *Loop) Updates() <-chan struct{} {
	return l.notify
}

func (l *Loop) signal() {
	select {
	case l.notify <- struct{}{}:
	default:
	}
}

// Mode returns the current interview mode.
func (l *Loop) Mode() session.Mode {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mode
}

// Status returns the current turn-ownership status.
func (l *Loop) Status() TurnStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// Transcript returns a copy of the transcript so far.
func (l *Loop) Transcript() []session.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]session.Message(nil), l.transcript...)
}

// Close stops the loop from accepting or applying any further results. A
// moderator or chat call still in flight runs to completion but its outcome
// is discarded, so a session that has moved on is never mutated late. A
// final tick is emitted so anyone blocked on Updates wakes up.
func (l *Loop) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.signal()
}

// Closed reports whether Close has been called.
func (l *Loop) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// append adds a message unless the loop is closed. Caller holds the lock.
func (l *Loop) append(msg session.Message) bool {
	if l.closed {
		return false
	}
	l.transcript = append(l.transcript, msg)
	return true
}

// Open runs the scripted opening of an auto-moderated interview: the channel
// is asked for a self-introduction and the reply becomes the first respondent
// message. Guarded so it can only ever happen once per interview.
func (l *Loop) Open(ctx context.Context) error {
	l.mu.Lock()
	if l.opened {
		l.mu.Unlock()
		return errors.New("interview already opened")
	}
	l.opened = true
	l.status = TurnAwaitingRespondent
	l.mu.Unlock()
	l.signal()

	reply, err := l.channel.Introduce(ctx)
	if err != nil {
		l.logger.Warn("introduction failed, substituting placeholder", "error", err)
		reply = degradedReply
	}

	l.mu.Lock()
	l.append(session.NewMessage(session.RoleRespondent, reply, false))
	l.status = TurnIdle
	l.mu.Unlock()
	l.signal()

	l.scheduleModerator(ctx)
	return nil
}

// SendManual delivers a user-typed question. Rejected while a reply is
// outstanding or the moderator is mid-turn; mutual exclusion on the channel
// is structural, not locked.
func (l *Loop) SendManual(ctx context.Context, text string) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return errors.New("interview is over")
	}
	if l.status == TurnAwaitingRespondent || l.status == TurnThinking {
		l.mu.Unlock()
		return fmt.Errorf("cannot send while %s", l.status)
	}
	if !l.append(session.NewMessage(session.RoleInterviewer, text, false)) {
		l.mu.Unlock()
		return errors.New("interview is over")
	}
	prev := l.status
	l.status = TurnAwaitingRespondent
	l.mu.Unlock()
	l.signal()

	reply, err := l.channel.Send(ctx, text)
	if err != nil {
		l.logger.Warn("chat turn failed, substituting placeholder", "error", err)
		reply = degradedReply
	}

	l.mu.Lock()
	l.append(session.NewMessage(session.RoleRespondent, reply, false))
	l.status = prev
	if l.status == TurnAwaitingRespondent {
		l.status = TurnIdle
	}
	l.mu.Unlock()
	l.signal()

	l.scheduleModerator(ctx)
	return nil
}

// ForceManual downgrades the interview to manual mode immediately. A
// moderator turn already in flight is not cancelled; whatever it produces is
// still applied as the final step of that turn, after which no new automated
// turns are scheduled.
func (l *Loop) ForceManual() {
	l.mu.Lock()
	changed := l.mode != session.ModeManual
	l.mode = session.ModeManual
	l.mu.Unlock()
	if changed {
		l.signal()
	}
}

// scheduleModerator re-checks the auto-mode invariant: the moderator acts
// iff the last message is a respondent message and no turn is in flight.
// Idempotent; safe to call after every transcript change.
func (l *Loop) scheduleModerator(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed || l.mode != session.ModeAuto || l.status != TurnIdle {
		return
	}
	last := len(l.transcript) - 1
	if last < 0 || l.transcript[last].Role != session.RoleRespondent {
		return
	}

	l.status = TurnThinking
	go l.runModerator(ctx)
}

// runModerator executes automated turns until the mode drops to manual, the
// moderator declares completion, or a non-rate-limit failure stalls the loop.
// One iteration of the outer for is one moderator turn; the inner loop
// retries the same turn with the same inputs across rate-limit cooldowns.
func (l *Loop) runModerator(ctx context.Context) {
	for {
		l.signal()
		if err := l.clock.Sleep(ctx, pacingDelay); err != nil {
			l.setIdle()
			return
		}

		req := backend.ModeratorRequest{
			Transcript: l.Transcript(),
			Guide:      l.guide,
			Persona:    l.persona,
		}

		var decision *backend.ModeratorDecision
		for {
			var err error
			decision, err = l.moderator.NextQuestion(ctx, req)
			if err == nil {
				break
			}
			if backend.IsRateLimited(err) {
				l.logger.Warn("moderator rate limited, cooling down", "cooldown", rateLimitCooldown)
				if l.clock.Sleep(ctx, rateLimitCooldown) != nil {
					l.setIdle()
					return
				}
				continue
			}
			// Any other failure: go idle without ending the session. The
			// loop stalls until something else (a manual send) moves the
			// transcript again.
			l.logger.Warn("moderator turn failed, going idle", "error", err)
			l.setIdle()
			return
		}

		if decision.Complete {
			l.mu.Lock()
			l.status = TurnDone
			l.mode = session.ModeManual
			l.mu.Unlock()
			l.signal()
			l.logger.Info("moderator declared interview complete")
			return
		}

		l.mu.Lock()
		if !l.append(session.NewMessage(session.RoleInterviewer, decision.Question, true)) {
			l.status = TurnIdle
			l.mu.Unlock()
			return
		}
		l.status = TurnAwaitingRespondent
		l.mu.Unlock()
		l.signal()

		reply, err := l.channel.Send(ctx, decision.Question)
		if err != nil {
			l.logger.Warn("chat turn failed, substituting placeholder", "error", err)
			reply = degradedReply
		}

		l.mu.Lock()
		l.append(session.NewMessage(session.RoleRespondent, reply, false))
		if l.closed || l.mode != session.ModeAuto {
			l.status = TurnIdle
			l.mu.Unlock()
			l.signal()
			return
		}
		l.status = TurnThinking
		l.mu.Unlock()
		l.signal()
	}
}

func (l *Loop) setIdle() {
	l.mu.Lock()
	if l.status == TurnThinking {
		l.status = TurnIdle
	}
	l.mu.Unlock()
	l.signal()
}
