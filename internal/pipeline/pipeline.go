// Package pipeline runs a whole research session unattended: persona,
// guide, a fully auto-moderated interview, summary, and report export, with
// progress reported through a callback. The interactive TUI covers the same
// ground with a human in the loop.
package pipeline

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/apresai/interviewer/internal/backend"
	"github.com/apresai/interviewer/internal/ingest"
	"github.com/apresai/interviewer/internal/interview"
	"github.com/apresai/interviewer/internal/progress"
	"github.com/apresai/interviewer/internal/report"
	"github.com/apresai/interviewer/internal/session"
	"github.com/apresai/interviewer/internal/workflow"
)

// DefaultMaxTurns bounds the automated interview length when the moderator
// never declares completion on its own.
const DefaultMaxTurns = 12

// stallTimeout is the default quiet-loop cutoff. The moderator idles after a
// non-rate-limit failure, and an unattended run has no manual message to
// nudge it with.
const stallTimeout = 90 * time.Second

// Options configures one unattended run.
type Options struct {
	Industry   string
	Audience   string
	Objectives string
	Mandatory  []string
	Materials  []string // file paths / URLs resolved through ingest
	Model      string
	MaxTurns   int
	Output     string // report path (.md); session JSON lands next to it
	Logger     *slog.Logger
	OnProgress progress.Callback
	Clock      interview.Clock    // tests inject a fake
	Service    backend.Service    // tests inject a fake; nil builds from Model

	// StallTimeout is the quiet-loop cutoff before the run gives up on more
	// automated turns and summarizes what it has. Zero means the default.
	StallTimeout time.Duration
}

// Run executes the unattended session and writes the report.
func Run(ctx context.Context, opts Options) error {
	start := time.Now()

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	onProgress := opts.OnProgress
	if onProgress == nil {
		onProgress = progress.NopCallback
	}
	maxTurns := opts.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}

	svc := opts.Service
	if svc == nil {
		var err error
		svc, err = backend.NewService(opts.Model, logger)
		if err != nil {
			return err
		}
	}

	onProgress(progress.NewEvent(progress.PhaseSetup, "Loading reference materials...", 0.02, start))
	materials, err := ingest.LoadAll(ctx, opts.Materials)
	if err != nil {
		return err
	}

	w := workflow.New(svc, logger)

	onProgress(progress.NewEvent(progress.PhasePersona, "Generating persona...", 0.1, start))
	err = w.SubmitInitialConfig(ctx, session.Config{
		Industry:  opts.Industry,
		Audience:  opts.Audience,
		Materials: materials,
	})
	if err != nil {
		return err
	}

	// Unattended runs cannot ask the researcher anything, so clarifying
	// questions are answered with their first offered option.
	if w.Stage() == session.StageClarifying {
		var answers []string
		for _, q := range w.Session().ClarifyingQuestions {
			if len(q.Options) > 0 {
				answers = append(answers, q.Options[0])
			} else {
				answers = append(answers, "No preference")
			}
		}
		if err := w.SubmitClarifications(ctx, answers); err != nil {
			return err
		}
	}

	if err := w.ConfirmProfile(); err != nil {
		return err
	}

	onProgress(progress.NewEvent(progress.PhaseGuide, "Building discussion guide...", 0.25, start))
	if err := w.GenerateGuide(ctx, opts.Objectives, opts.Mandatory); err != nil {
		logger.Warn("guide generation failed, using fallback guide", "error", err)
		// GenerateGuide rolled back to GuideInput; route the fallback guide
		// through the same confirm path the TUI uses.
		if err := confirmFallback(w); err != nil {
			return err
		}
	} else if err := w.ConfirmGuide(w.Session().Guide); err != nil {
		return err
	}

	onProgress(progress.NewEvent(progress.PhaseInterview, "Starting interview...", 0.35, start))
	if err := w.StartInterview(ctx, session.ModeAuto); err != nil {
		return err
	}

	sess := w.Session()
	loop := interview.New(w.Channel(), svc, interview.Config{
		Persona: *sess.Persona,
		Guide:   sess.Guide,
		Mode:    session.ModeAuto,
		Clock:   opts.Clock,
		Logger:  logger,
	})
	if err := loop.Open(ctx); err != nil {
		return err
	}

	stallAfter := opts.StallTimeout
	if stallAfter <= 0 {
		stallAfter = stallTimeout
	}
	if err := watchInterview(ctx, loop, maxTurns, stallAfter, start, onProgress, logger); err != nil {
		return err
	}
	loop.Close()

	// The loop downgrades itself when the moderator declares completion;
	// record that in the session before it is exported.
	if loop.Mode() == session.ModeManual && w.Session().Mode == session.ModeAuto {
		if err := w.SetMode(session.ModeManual); err != nil {
			return err
		}
	}

	onProgress(progress.NewEvent(progress.PhaseSummary, "Summarizing...", 0.85, start))
	if err := w.EndInterview(ctx, loop.Transcript()); err != nil {
		return err
	}

	output := opts.Output
	if output == "" {
		output = time.Now().Format("interview-20060102-1504.md")
	}
	final := w.Session()
	if err := report.SaveMarkdown(final, output); err != nil {
		return err
	}
	jsonPath := strings.TrimSuffix(output, filepath.Ext(output)) + ".json"
	if err := report.SaveJSON(final, jsonPath); err != nil {
		return err
	}

	done := progress.NewEvent(progress.PhaseComplete, "Research complete", 1.0, start)
	done.ReportFile = output
	onProgress(done)
	return nil
}

func confirmFallback(w *workflow.Workflow) error {
	fallback := w.FallbackGuide()
	// The workflow is sitting at GuideInput after the failure.
	if err := w.UseFallbackGuide(fallback); err != nil {
		return err
	}
	return w.ConfirmGuide(fallback)
}

// watchInterview waits for the auto loop to finish: moderator completion,
// the turn cap, cancellation, or a stall. A stall is not fatal; the caller
// still summarizes whatever transcript exists.
func watchInterview(ctx context.Context, loop *interview.Loop, maxTurns int, stallAfter time.Duration, start time.Time, onProgress progress.Callback, logger *slog.Logger) error {
	stall := time.NewTimer(stallAfter)
	defer stall.Stop()

	for {
		turns := automatedTurns(loop.Transcript())
		pct := 0.35 + 0.5*float64(turns)/float64(maxTurns)
		e := progress.NewEvent(progress.PhaseInterview, "Interviewing...", pct, start)
		e.TurnNum = turns
		e.TurnTotal = maxTurns
		onProgress(e)

		if loop.Status() == interview.TurnDone {
			return nil
		}
		if turns >= maxTurns {
			// Cap reached: stop scheduling new turns, then wait out the one
			// still in flight.
			loop.ForceManual()
			if loop.Status() == interview.TurnIdle {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-loop.Updates():
			if !stall.Stop() {
				select {
				case <-stall.C:
				default:
				}
			}
			stall.Reset(stallAfter)
		case <-stall.C:
			// The moderator idles after a non-rate-limit failure and an
			// unattended run has nothing to nudge it with. Keep what was
			// collected rather than discarding the session.
			logger.Warn("interview went quiet, ending with partial transcript", "turns", turns)
			return nil
		}
	}
}

func automatedTurns(transcript []session.Message) int {
	n := 0
	for _, m := range transcript {
		if m.Role == session.RoleInterviewer && m.Automated {
			n++
		}
	}
	return n
}
