package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apresai/interviewer/internal/backend"
	"github.com/apresai/interviewer/internal/progress"
	"github.com/apresai/interviewer/internal/report"
	"github.com/apresai/interviewer/internal/session"
)

type instantClock struct{}

func (instantClock) Sleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

// scriptedService answers every capability from canned data. The moderator
// asks the guide questions in order and then declares completion.
type scriptedService struct {
	mu           sync.Mutex
	questions    []session.ClarifyingQuestion
	guide        []string
	guideErr     error
	asked        int
	moderatorErr error // returned once `asked` reaches failAfter
	failAfter    int
}

func (s *scriptedService) AnalyzeRequirements(ctx context.Context, industry, audience string) ([]session.ClarifyingQuestion, error) {
	return s.questions, nil
}

func (s *scriptedService) GeneratePersona(ctx context.Context, req backend.PersonaRequest) (*backend.PersonaResult, error) {
	return &backend.PersonaResult{Persona: session.Persona{
		Name:    "Mia",
		Summary: "budget-minded student",
		Profile: "## Mia\nA sophomore who drinks a lot of coffee.",
		Scores:  &session.Scores{Demographics: 4, Psychographics: 3, Behaviors: 4, Needs: 5},
	}}, nil
}

func (s *scriptedService) GenerateGuide(ctx context.Context, req backend.GuideRequest) ([]string, error) {
	return s.guide, s.guideErr
}

func (s *scriptedService) OpenChannel(ctx context.Context, persona session.Persona, industry string) (backend.ChatChannel, error) {
	return &scriptedChannel{}, nil
}

func (s *scriptedService) NextQuestion(ctx context.Context, req backend.ModeratorRequest) (*backend.ModeratorDecision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.moderatorErr != nil && s.asked >= s.failAfter {
		return nil, s.moderatorErr
	}
	if s.asked >= len(req.Guide) {
		return &backend.ModeratorDecision{Complete: true}, nil
	}
	q := req.Guide[s.asked]
	s.asked++
	return &backend.ModeratorDecision{Question: q}, nil
}

func (s *scriptedService) Summarize(ctx context.Context, req backend.SummaryRequest) (*session.Summary, error) {
	return &session.Summary{
		Insights:   fmt.Sprintf("transcript had %d messages", len(req.Transcript)),
		PainPoints: "small dorms",
		Wants:      "compact and cheap",
		Verdict:    "viable",
	}, nil
}

type scriptedChannel struct {
	mu      sync.Mutex
	replies int
}

func (c *scriptedChannel) Introduce(ctx context.Context) (string, error) { return "hi, I'm Mia", nil }
func (c *scriptedChannel) Send(ctx context.Context, text string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies++
	return fmt.Sprintf("reply %d", c.replies), nil
}

func testOptions(t *testing.T, svc backend.Service) (Options, string) {
	t.Helper()
	output := filepath.Join(t.TempDir(), "report.md")
	return Options{
		Industry: "coffee machines",
		Audience: "college students",
		Model:    "haiku",
		MaxTurns: 6,
		Output:   output,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:    instantClock{},
		Service:  svc,
	}, output
}

func TestRun_CompletesAndWritesReport(t *testing.T) {
	svc := &scriptedService{guide: []string{"How do you brew?", "What would you change?"}}
	opts, output := testOptions(t, svc)

	var events []progress.Event
	var mu sync.Mutex
	opts.OnProgress = func(e progress.Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	}

	require.NoError(t, Run(context.Background(), opts))

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	md := string(data)
	assert.Contains(t, md, "## Persona: Mia")
	assert.Contains(t, md, "How do you brew?")
	assert.Contains(t, md, "### Verdict\n\nviable")

	jsonPath := filepath.Join(filepath.Dir(output), "report.json")
	sess, err := report.LoadJSON(jsonPath)
	require.NoError(t, err)
	// The moderator declared completion, which downgrades the interview.
	assert.Equal(t, session.ModeManual, sess.Mode)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, progress.PhaseComplete, last.Phase)
	assert.Equal(t, output, last.ReportFile)
}

func TestRun_AnswersClarifyingQuestionsAutomatically(t *testing.T) {
	svc := &scriptedService{
		questions: []session.ClarifyingQuestion{
			{Question: "What price range?", Options: []string{"under $50", "$50-$200"}},
			{Question: "Dorm or apartment?"},
		},
		guide: []string{"How do you brew?"},
	}
	opts, output := testOptions(t, svc)

	require.NoError(t, Run(context.Background(), opts))

	_, err := os.Stat(output)
	require.NoError(t, err)
}

func TestRun_FallsBackWhenGuideGenerationFails(t *testing.T) {
	svc := &scriptedService{guideErr: errors.New("model unavailable")}
	opts, output := testOptions(t, svc)

	require.NoError(t, Run(context.Background(), opts))

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	// The fallback guide is templated on the industry.
	assert.Contains(t, string(data), "coffee machines")
	assert.Contains(t, string(data), "## Discussion Guide")
}

func TestRun_StalledInterviewStillWritesReport(t *testing.T) {
	svc := &scriptedService{
		guide:        []string{"How do you brew?", "What would you change?"},
		moderatorErr: errors.New("backend down"),
		failAfter:    1,
	}
	opts, output := testOptions(t, svc)
	opts.StallTimeout = 50 * time.Millisecond

	require.NoError(t, Run(context.Background(), opts))

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	md := string(data)
	// One automated turn landed before the moderator went quiet; the run
	// still summarizes and exports it.
	assert.Contains(t, md, "How do you brew?")
	assert.Contains(t, md, "### Verdict\n\nviable")

	sess, err := report.LoadJSON(filepath.Join(filepath.Dir(output), "report.json"))
	require.NoError(t, err)
	assert.Equal(t, session.ModeAuto, sess.Mode)
	assert.NotNil(t, sess.Summary)
}

func TestAutomatedTurns(t *testing.T) {
	transcript := []session.Message{
		session.NewMessage(session.RoleRespondent, "hi", false),
		session.NewMessage(session.RoleInterviewer, "q1", true),
		session.NewMessage(session.RoleRespondent, "a1", false),
		session.NewMessage(session.RoleInterviewer, "manual follow-up", false),
	}
	assert.Equal(t, 1, automatedTurns(transcript))
}
