// Package workflow implements the state machine that walks a research
// session from setup through persona generation, guide building, the
// interview, and the final summary. All session mutation happens here or in
// the interview loop; views only ever read snapshots.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/apresai/interviewer/internal/backend"
	"github.com/apresai/interviewer/internal/session"
)

// StageError wraps a failure with the stage it happened in.
type StageError struct {
	Stage   session.Stage
	Message string
	Err     error
}

func (e *StageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Stage, e.Message)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// validNext lists the allowed forward edges between stages. Failure rollbacks
// (Researching back to Setup, GuideInput, or Interview) and Reset are also
// legal; they are the recovery edges the table's second halves encode.
var validNext = map[session.Stage][]session.Stage{
	session.StageSetup:         {session.StageResearching},
	session.StageClarifying:    {session.StageResearching},
	session.StageResearching:   {session.StageClarifying, session.StagePreview, session.StageSummary, session.StageSetup, session.StageGuideInput, session.StageGuideReview, session.StageInterview},
	session.StagePreview:       {session.StageGuideInput},
	session.StageGuideInput:    {session.StageResearching, session.StageGuideReview},
	session.StageGuideReview:   {session.StageModeSelection},
	session.StageModeSelection: {session.StageInterview},
	session.StageInterview:     {session.StageResearching},
	session.StageSummary:       {},
}

// Workflow owns one Session and drives it through the stages.
type Workflow struct {
	mu      sync.Mutex
	sess    *session.Session
	svc     backend.Service
	logger  *slog.Logger
	errMsg  string
	channel backend.ChatChannel

	// OnStageChange, when set, is called (outside collaborator calls, inside
	// the workflow lock) after every stage transition.
	OnStageChange func(session.Stage)
}

// New creates a workflow with a fresh session.
func New(svc backend.Service, logger *slog.Logger) *Workflow {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workflow{
		sess:   session.New(),
		svc:    svc,
		logger: logger,
	}
}

// Session returns a snapshot of the current session for rendering and export.
func (w *Workflow) Session() session.Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return snapshot(w.sess)
}

// Stage returns the current stage.
func (w *Workflow) Stage() session.Stage {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sess.Stage
}

// Err returns the single active user-visible error message, or "".
func (w *Workflow) Err() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.errMsg
}

// Channel returns the chat channel opened by StartInterview, or nil.
func (w *Workflow) Channel() backend.ChatChannel {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.channel
}

func allowed(from, to session.Stage) bool {
	for _, next := range validNext[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (w *Workflow) transition(to session.Stage) {
	if !allowed(w.sess.Stage, to) {
		// Reset is the only sanctioned edge outside the table; everything
		// else reaching here is a programming error worth a loud log.
		w.logger.Error("illegal stage transition", "from", w.sess.Stage, "to", to)
	}
	w.sess.Stage = to
	w.logger.Info("stage change", "session", w.sess.ID, "stage", to)
	if w.OnStageChange != nil {
		w.OnStageChange(to)
	}
}

func (w *Workflow) fail(rollback session.Stage, msg string, err error) error {
	w.errMsg = msg
	w.transition(rollback)
	w.logger.Warn("stage rolled back", "session", w.sess.ID, "to", rollback, "error", err)
	return &StageError{Stage: rollback, Message: msg, Err: err}
}

func (w *Workflow) requireStage(want session.Stage, op string) error {
	if w.sess.Stage != want {
		return &StageError{
			Stage:   w.sess.Stage,
			Message: fmt.Sprintf("%s is only valid from the %s stage", op, want),
		}
	}
	return nil
}

// SubmitInitialConfig starts a research run: requirement analysis first, then
// either clarifying questions or direct persona generation. Analyzer failure
// is deliberately swallowed as "no clarification needed" so a flaky analyzer
// cannot block the happy path.
func (w *Workflow) SubmitInitialConfig(ctx context.Context, cfg session.Config) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireStage(session.StageSetup, "submitting the research target"); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.Industry) == "" || strings.TrimSpace(cfg.Audience) == "" {
		return &StageError{Stage: session.StageSetup, Message: "industry and target audience are both required"}
	}

	w.errMsg = ""
	w.sess.Config = cfg
	w.transition(session.StageResearching)

	questions, err := w.svc.AnalyzeRequirements(ctx, cfg.Industry, cfg.Audience)
	if err != nil {
		w.logger.Warn("requirement analysis failed, proceeding without clarification", "error", err)
		questions = nil
	}

	if len(questions) > 0 {
		w.sess.ClarifyingQuestions = questions
		w.transition(session.StageClarifying)
		return nil
	}

	return w.generatePersona(ctx, nil)
}

// SubmitClarifications answers the stored clarifying questions and proceeds
// to persona generation. Every question needs a non-blank answer; incomplete
// submissions are rejected before any backend call.
func (w *Workflow) SubmitClarifications(ctx context.Context, answers []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireStage(session.StageClarifying, "submitting clarifications"); err != nil {
		return err
	}
	if len(answers) != len(w.sess.ClarifyingQuestions) {
		return &StageError{
			Stage:   session.StageClarifying,
			Message: fmt.Sprintf("expected %d answers, got %d", len(w.sess.ClarifyingQuestions), len(answers)),
		}
	}
	for i, a := range answers {
		if strings.TrimSpace(a) == "" {
			return &StageError{
				Stage:   session.StageClarifying,
				Message: fmt.Sprintf("answer %d is empty", i+1),
			}
		}
	}

	w.errMsg = ""
	w.transition(session.StageResearching)
	return w.generatePersona(ctx, answers)
}

// generatePersona runs persona generation from Researching. Caller holds the
// lock and has already transitioned to Researching.
func (w *Workflow) generatePersona(ctx context.Context, clarifications []string) error {
	w.sess.Config.Clarifications = clarifications

	result, err := w.svc.GeneratePersona(ctx, backend.PersonaRequest{
		Industry:       w.sess.Config.Industry,
		Audience:       w.sess.Config.Audience,
		Clarifications: clarifications,
		Materials:      w.sess.Config.Materials,
	})
	if err != nil {
		return w.fail(session.StageSetup, "Persona generation failed. Please try again.", err)
	}

	w.sess.Persona = &result.Persona
	w.sess.GroundingSources = result.Sources
	w.transition(session.StagePreview)
	return nil
}

// ConfirmProfile accepts the generated persona and moves on to guide input.
func (w *Workflow) ConfirmProfile() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireStage(session.StagePreview, "confirming the persona"); err != nil {
		return err
	}
	if w.sess.Persona == nil {
		return &StageError{Stage: session.StagePreview, Message: "no persona to confirm"}
	}

	w.errMsg = ""
	w.transition(session.StageGuideInput)
	return nil
}

// GenerateGuide asks the backend for a discussion guide. On failure the stage
// stays at GuideInput, keeping the persona and config the user already
// confirmed, and FallbackGuide remains available.
func (w *Workflow) GenerateGuide(ctx context.Context, objectives string, mandatory []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireStage(session.StageGuideInput, "generating the guide"); err != nil {
		return err
	}
	if w.sess.Persona == nil {
		return &StageError{Stage: session.StageGuideInput, Message: "no persona available"}
	}

	w.errMsg = ""
	w.sess.Config.Objectives = objectives
	w.sess.Config.MandatoryQuestions = mandatory
	w.transition(session.StageResearching)

	guide, err := w.svc.GenerateGuide(ctx, backend.GuideRequest{
		Industry:           w.sess.Config.Industry,
		Persona:            *w.sess.Persona,
		Objectives:         objectives,
		MandatoryQuestions: mandatory,
	})
	if err != nil {
		return w.fail(session.StageGuideInput, "Guide generation failed. Edit your objectives and retry, or use the fallback guide.", err)
	}

	w.sess.Guide = guide
	w.transition(session.StageGuideReview)
	return nil
}

// FallbackGuide is the minimal guide offered when generation fails.
func (w *Workflow) FallbackGuide() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	industry := w.sess.Config.Industry
	return []string{
		fmt.Sprintf("Tell me about the last time you bought or used a %s product. What was that like?", industry),
		fmt.Sprintf("What frustrates you most about the %s products you use today?", industry),
		fmt.Sprintf("If you could change one thing about how %s products work, what would it be?", industry),
	}
}

// UseFallbackGuide skips generation and moves straight to review with the
// supplied questions. Offered when guide generation has failed.
func (w *Workflow) UseFallbackGuide(guide []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireStage(session.StageGuideInput, "using the fallback guide"); err != nil {
		return err
	}
	if len(guide) == 0 {
		return &StageError{Stage: session.StageGuideInput, Message: "fallback guide is empty"}
	}

	w.errMsg = ""
	w.sess.Guide = append([]string(nil), guide...)
	w.transition(session.StageGuideReview)
	return nil
}

// ConfirmGuide stores the user-edited guide, dropping blank entries, and
// moves to mode selection. The guide is immutable from here on.
func (w *Workflow) ConfirmGuide(final []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireStage(session.StageGuideReview, "confirming the guide"); err != nil {
		return err
	}

	var guide []string
	for _, q := range final {
		if strings.TrimSpace(q) != "" {
			guide = append(guide, strings.TrimSpace(q))
		}
	}
	if len(guide) == 0 {
		return &StageError{Stage: session.StageGuideReview, Message: "the guide needs at least one question"}
	}

	w.errMsg = ""
	w.sess.Guide = guide
	w.transition(session.StageModeSelection)
	return nil
}

// StartInterview opens a chat channel scoped to the persona and enters the
// interview stage. Channel-creation failure keeps the stage at ModeSelection.
func (w *Workflow) StartInterview(ctx context.Context, mode session.Mode) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireStage(session.StageModeSelection, "starting the interview"); err != nil {
		return err
	}
	if w.sess.Persona == nil {
		return &StageError{Stage: session.StageModeSelection, Message: "no persona available"}
	}

	channel, err := w.svc.OpenChannel(ctx, *w.sess.Persona, w.sess.Config.Industry)
	if err != nil {
		w.errMsg = "Could not start the interview. Please try again."
		return &StageError{Stage: session.StageModeSelection, Message: w.errMsg, Err: err}
	}

	w.errMsg = ""
	w.channel = channel
	w.sess.Mode = mode
	w.transition(session.StageInterview)
	return nil
}

// SetMode downgrades the interview mode. Only Auto to Manual is supported;
// there is no way back to Auto once the user takes over.
func (w *Workflow) SetMode(mode session.Mode) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireStage(session.StageInterview, "changing the interview mode"); err != nil {
		return err
	}
	if mode == session.ModeAuto && w.sess.Mode == session.ModeManual {
		return &StageError{Stage: session.StageInterview, Message: "cannot switch back to auto mode"}
	}
	w.sess.Mode = mode
	return nil
}

// EndInterview stores the final transcript and runs summary generation.
// Summary failure returns to the interview with the transcript intact so the
// user can keep going or retry ending.
func (w *Workflow) EndInterview(ctx context.Context, transcript []session.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireStage(session.StageInterview, "ending the interview"); err != nil {
		return err
	}

	w.errMsg = ""
	w.sess.Transcript = transcript
	w.transition(session.StageResearching)

	summary, err := w.svc.Summarize(ctx, backend.SummaryRequest{
		Industry:   w.sess.Config.Industry,
		Persona:    *w.sess.Persona,
		Transcript: transcript,
	})
	if err != nil {
		return w.fail(session.StageInterview, "Summary generation failed. Your transcript is intact — retry ending the interview.", err)
	}

	w.sess.Summary = summary
	w.channel = nil
	w.transition(session.StageSummary)
	return nil
}

// Reset discards the whole session and returns to setup.
func (w *Workflow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.logger.Info("session reset", "session", w.sess.ID)
	w.sess = session.New()
	w.channel = nil
	w.errMsg = ""
	if w.OnStageChange != nil {
		w.OnStageChange(w.sess.Stage)
	}
}

func snapshot(s *session.Session) session.Session {
	out := *s
	out.ClarifyingQuestions = append([]session.ClarifyingQuestion(nil), s.ClarifyingQuestions...)
	out.GroundingSources = append([]session.GroundingSource(nil), s.GroundingSources...)
	out.Guide = append([]string(nil), s.Guide...)
	out.Transcript = append([]session.Message(nil), s.Transcript...)
	if s.Persona != nil {
		p := *s.Persona
		out.Persona = &p
	}
	if s.Summary != nil {
		sum := *s.Summary
		out.Summary = &sum
	}
	return out
}
