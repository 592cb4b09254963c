package backend

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apresai/interviewer/internal/session"
)

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "bare JSON untouched",
			input: `{"questions": []}`,
			want:  `{"questions": []}`,
		},
		{
			name:  "markdown fence stripped",
			input: "```json\n{\"a\": 1}\n```",
			want:  `{"a": 1}`,
		},
		{
			name:  "fence without language tag",
			input: "```\n{\"a\": 1}\n```",
			want:  `{"a": 1}`,
		},
		{
			name:  "scratchpad removed",
			input: "<scratchpad>thinking about personas</scratchpad>{\"a\": 1}",
			want:  `{"a": 1}`,
		},
		{
			name:  "prose around the object",
			input: "Here is the result:\n{\"a\": 1}\nHope that helps!",
			want:  `{"a": 1}`,
		},
		{
			name:  "scratchpad plus fence plus prose",
			input: "<scratchpad>hmm</scratchpad>Sure:\n```json\n{\"a\": 1}\n```",
			want:  `{"a": 1}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanJSON(tt.input))
		})
	}
}

func TestParseClarifyingQuestions(t *testing.T) {
	text := `{"questions": [
		{"question": "What price range?", "options": ["under $50", "$50-$200"]},
		{"question": "   "},
		{"question": "Where do they live?"}
	]}`

	questions, err := parseClarifyingQuestions(text)
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, "What price range?", questions[0].Question)
	assert.Equal(t, []string{"under $50", "$50-$200"}, questions[0].Options)
	assert.Empty(t, questions[1].Options)
}

func TestParseClarifyingQuestions_EmptyListMeansNoClarification(t *testing.T) {
	questions, err := parseClarifyingQuestions(`{"questions": []}`)
	require.NoError(t, err)
	assert.Empty(t, questions)
}

func TestParsePersona(t *testing.T) {
	text := "```json\n" + `{
		"profile": "## Mia\nA sophomore who drinks a lot of coffee.",
		"name": "Mia",
		"summary": "budget-minded student",
		"scores": {"demographics": 4, "psychographics": 9, "behaviors": -1, "needs": 5},
		"sources": [{"uri": "https://example.com/report", "title": "Campus coffee survey"}, {"uri": ""}]
	}` + "\n```"

	result, err := parsePersona(text)
	require.NoError(t, err)
	assert.Equal(t, "Mia", result.Persona.Name)
	assert.Equal(t, "budget-minded student", result.Persona.Summary)

	// Out-of-range scores clamp to the 0-5 scale.
	require.NotNil(t, result.Persona.Scores)
	assert.Equal(t, 4, result.Persona.Scores.Demographics)
	assert.Equal(t, 5, result.Persona.Scores.Psychographics)
	assert.Equal(t, 0, result.Persona.Scores.Behaviors)

	// Sources without a URI are dropped.
	require.Len(t, result.Sources, 1)
	assert.Equal(t, "Campus coffee survey", result.Sources[0].Title)
}

func TestParsePersona_NameDerivedFromProfile(t *testing.T) {
	result, err := parsePersona(`{"profile": "## Sam Taylor, 24\nLives downtown."}`)
	require.NoError(t, err)
	assert.Equal(t, "Sam Taylor", result.Persona.Name)
}

func TestParsePersona_EmptyProfileRejected(t *testing.T) {
	_, err := parsePersona(`{"profile": "  ", "name": "Mia"}`)
	require.Error(t, err)
}

func TestParseGuide(t *testing.T) {
	guide, err := parseGuide(`{"questions": ["  How do you brew?  ", "", "What would you change?"]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"How do you brew?", "What would you change?"}, guide)

	_, err = parseGuide(`{"questions": ["", "  "]}`)
	require.Error(t, err)
}

func TestParseModeratorDecision(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    *ModeratorDecision
		wantErr bool
	}{
		{
			name:  "ask",
			input: `{"action": "ask", "question": "Why that one?"}`,
			want:  &ModeratorDecision{Question: "Why that one?"},
		},
		{
			name:  "complete",
			input: `{"action": "complete"}`,
			want:  &ModeratorDecision{Complete: true},
		},
		{
			name:    "ask without question",
			input:   `{"action": "ask", "question": " "}`,
			wantErr: true,
		},
		{
			name:    "unknown action",
			input:   `{"action": "ponder"}`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseModeratorDecision(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSummary(t *testing.T) {
	s, err := parseSummary(`{"insights": "price rules", "painPoints": "small dorms", "wants": "compact", "verdict": "viable"}`)
	require.NoError(t, err)
	assert.Equal(t, "viable", s.Verdict)

	_, err = parseSummary(`{"insights": "", "painPoints": "", "wants": "", "verdict": ""}`)
	require.Error(t, err)
}

func testChatPersona() session.Persona {
	return session.Persona{
		Name:    "Mia",
		Profile: "## Mia\nA sophomore who drinks a lot of coffee.",
	}
}

// recordingGenerator captures each call so channel-history behavior can be
// asserted without a live provider.
type recordingGenerator struct {
	calls [][]chatMessage
	reply func(n int) (string, error)
}

func (g *recordingGenerator) complete(ctx context.Context, system string, messages []chatMessage, maxTokens int64) (string, error) {
	g.calls = append(g.calls, append([]chatMessage(nil), messages...))
	return g.reply(len(g.calls))
}

func TestChatChannel_KeepsHistory(t *testing.T) {
	gen := &recordingGenerator{reply: func(n int) (string, error) {
		return fmt.Sprintf("reply %d", n), nil
	}}
	svc := &service{gen: gen, model: "haiku", logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	ch, err := svc.OpenChannel(context.Background(), testChatPersona(), "coffee machines")
	require.NoError(t, err)

	_, err = ch.Send(context.Background(), "first question")
	require.NoError(t, err)
	reply, err := ch.Send(context.Background(), "second question")
	require.NoError(t, err)
	assert.Equal(t, "reply 2", reply)

	// The second call carries the full conversation so far.
	require.Len(t, gen.calls, 2)
	require.Len(t, gen.calls[1], 3)
	assert.Equal(t, "first question", gen.calls[1][0].text)
	assert.Equal(t, "reply 1", gen.calls[1][1].text)
	assert.Equal(t, roleAssistant, gen.calls[1][1].role)
	assert.Equal(t, "second question", gen.calls[1][2].text)
}

func TestChatChannel_FailedTurnLeavesHistoryClean(t *testing.T) {
	gen := &recordingGenerator{reply: func(n int) (string, error) {
		if n <= maxRetries {
			return "", fmt.Errorf("overloaded: %w", ErrRateLimited)
		}
		return "recovered", nil
	}}
	svc := &service{gen: gen, model: "haiku", logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	ch, err := svc.OpenChannel(context.Background(), testChatPersona(), "coffee machines")
	require.NoError(t, err)

	_, err = ch.Send(context.Background(), "first question")
	require.Error(t, err)
	assert.True(t, IsRateLimited(err))

	// The failed turn left nothing behind: the retry sends only the new turn.
	reply, err := ch.Send(context.Background(), "first question")
	require.NoError(t, err)
	assert.Equal(t, "recovered", reply)
	last := gen.calls[len(gen.calls)-1]
	assert.Len(t, last, 1)
}
