package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apresai/interviewer/internal/backend"
	"github.com/apresai/interviewer/internal/interview"
	"github.com/apresai/interviewer/internal/session"
	"github.com/apresai/interviewer/internal/workflow"
)

// stubService answers every capability with canned data. summaryFails makes
// the first N Summarize calls fail before it starts succeeding.
type stubService struct {
	summaryFails int
}

func (s *stubService) AnalyzeRequirements(ctx context.Context, industry, audience string) ([]session.ClarifyingQuestion, error) {
	return nil, nil
}

func (s *stubService) GeneratePersona(ctx context.Context, req backend.PersonaRequest) (*backend.PersonaResult, error) {
	return &backend.PersonaResult{Persona: session.Persona{
		Name:    "Mia",
		Summary: "budget-minded student",
		Profile: "## Mia\nA sophomore who drinks a lot of coffee.",
		Scores:  &session.Scores{Demographics: 4, Psychographics: 3, Behaviors: 4, Needs: 5},
	}}, nil
}

func (s *stubService) GenerateGuide(ctx context.Context, req backend.GuideRequest) ([]string, error) {
	return []string{"How do you brew?"}, nil
}

func (s *stubService) OpenChannel(ctx context.Context, persona session.Persona, industry string) (backend.ChatChannel, error) {
	return stubChatChannel{}, nil
}

func (s *stubService) NextQuestion(ctx context.Context, req backend.ModeratorRequest) (*backend.ModeratorDecision, error) {
	return &backend.ModeratorDecision{Complete: true}, nil
}

func (s *stubService) Summarize(ctx context.Context, req backend.SummaryRequest) (*session.Summary, error) {
	if s.summaryFails > 0 {
		s.summaryFails--
		return nil, errors.New("model unavailable")
	}
	return &session.Summary{Insights: "a", PainPoints: "b", Wants: "c", Verdict: "viable"}, nil
}

type stubChatChannel struct{}

func (stubChatChannel) Introduce(ctx context.Context) (string, error) { return "hi, I'm Mia", nil }
func (stubChatChannel) Send(ctx context.Context, text string) (string, error) {
	return "a reply", nil
}

func workflowAtInterview(t *testing.T, svc backend.Service, mode session.Mode) *workflow.Workflow {
	t.Helper()
	ctx := context.Background()
	wf := workflow.New(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, wf.SubmitInitialConfig(ctx, session.Config{
		Industry: "coffee machines",
		Audience: "college students",
	}))
	require.NoError(t, wf.ConfirmProfile())
	require.NoError(t, wf.GenerateGuide(ctx, "", nil))
	require.NoError(t, wf.ConfirmGuide(wf.Session().Guide))
	require.NoError(t, wf.StartInterview(ctx, mode))
	return wf
}

// modelAtInterview builds the TUI model, syncs it onto the running
// interview, and opens the loop the way the Update cycle would.
func modelAtInterview(t *testing.T, wf *workflow.Workflow, svc backend.Service) interactiveModel {
	t.Helper()
	m := newInteractiveModel(context.Background(), wf, svc)
	model, cmd := m.syncToStage(nil)
	mi := model.(interactiveModel)
	require.NotNil(t, mi.loop)
	model, _ = mi.Update(cmd())
	return model.(interactiveModel)
}

func TestEndInterview_SummaryFailureKeepsInterviewLive(t *testing.T) {
	svc := &stubService{summaryFails: 1}
	wf := workflowAtInterview(t, svc, session.ModeManual)
	m := modelAtInterview(t, wf, svc)

	require.NoError(t, m.loop.SendManual(m.ctx, "What do you brew with?"))

	model, cmd := m.endInterview()
	m = model.(interactiveModel)
	model, _ = m.Update(cmd())
	m = model.(interactiveModel)

	// Summary failed; the workflow rolled back and the conversation can
	// keep going.
	require.Equal(t, session.StageInterview, wf.Stage())
	assert.Equal(t, screenInterview, m.screen)
	assert.NotEmpty(t, m.err)
	require.Len(t, wf.Session().Transcript, 3)
	require.NoError(t, m.loop.SendManual(m.ctx, "One more question"))

	// Retrying the summary succeeds and only then closes the loop.
	loop := m.loop
	model, cmd = m.endInterview()
	m = model.(interactiveModel)
	model, _ = m.Update(cmd())
	m = model.(interactiveModel)

	require.Equal(t, session.StageSummary, wf.Stage())
	assert.Equal(t, screenSummary, m.screen)
	assert.Nil(t, m.loop)
	assert.True(t, loop.Closed())
	require.Len(t, wf.Session().Transcript, 5)
}

func TestLoopTick_RecordsModeDowngrade(t *testing.T) {
	svc := &stubService{}
	wf := workflowAtInterview(t, svc, session.ModeAuto)

	m := newInteractiveModel(context.Background(), wf, svc)
	sess := wf.Session()
	m.loop = interview.New(wf.Channel(), svc, interview.Config{
		Persona: *sess.Persona,
		Guide:   sess.Guide,
		Mode:    session.ModeAuto,
	})
	m.screen = screenInterview

	// The loop drops to manual on its own, as it does when the moderator
	// declares the interview complete.
	m.loop.ForceManual()

	model, _ := m.Update(loopTickMsg{})
	m = model.(interactiveModel)

	assert.Empty(t, m.err)
	assert.Equal(t, session.ModeManual, wf.Session().Mode)
}

func TestLoopTick_StopsAfterClose(t *testing.T) {
	svc := &stubService{}
	wf := workflowAtInterview(t, svc, session.ModeManual)
	m := modelAtInterview(t, wf, svc)

	m.loop.Close()
	_, cmd := m.Update(loopTickMsg{})
	assert.Nil(t, cmd)
}
