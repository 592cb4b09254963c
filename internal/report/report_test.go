package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apresai/interviewer/internal/session"
)

func sampleSession() session.Session {
	sess := *session.New()
	sess.Stage = session.StageSummary
	sess.Config = session.Config{Industry: "coffee machines", Audience: "college students"}
	sess.Persona = &session.Persona{
		Name:    "Mia",
		Summary: "budget-minded student",
		Profile: "## Mia\nA sophomore who drinks a lot of coffee.",
		Scores:  &session.Scores{Demographics: 4, Psychographics: 3, Behaviors: 5, Needs: 2},
	}
	sess.GroundingSources = []session.GroundingSource{
		{URI: "https://example.com/survey", Title: "Campus coffee survey"},
	}
	sess.Guide = []string{"How do you brew?", "What would you change?"}
	sess.Transcript = []session.Message{
		session.NewMessage(session.RoleRespondent, "hi, I'm Mia", false),
		session.NewMessage(session.RoleInterviewer, "How do you brew?", true),
		session.NewMessage(session.RoleRespondent, "in my dorm", false),
		session.NewMessage(session.RoleInterviewer, "why not a cafe?", false),
	}
	sess.Summary = &session.Summary{
		Insights:   "price rules everything",
		PainPoints: "small dorms",
		Wants:      "compact and cheap",
		Verdict:    "viable",
	}
	return sess
}

func TestRenderMarkdown(t *testing.T) {
	out := RenderMarkdown(sampleSession())

	assert.Contains(t, out, "# coffee machines")
	assert.Contains(t, out, "## Persona: Mia")
	assert.Contains(t, out, "| Demographics | ★★★★☆ |")
	assert.Contains(t, out, "| Needs | ★★☆☆☆ |")
	assert.Contains(t, out, "[Campus coffee survey](https://example.com/survey)")
	assert.Contains(t, out, "1. How do you brew?")

	// Automated questions are attributed to the moderator, manual ones to
	// the interviewer.
	assert.Contains(t, out, "**Interviewer (auto)**")
	assert.Contains(t, out, "**Interviewer** (")
	assert.Contains(t, out, "**Respondent**")

	assert.Contains(t, out, "### Verdict\n\nviable")
}

func TestRenderMarkdown_MinimalSession(t *testing.T) {
	sess := *session.New()
	out := RenderMarkdown(sess)

	assert.Contains(t, out, "# Research")
	assert.NotContains(t, out, "## Persona")
	assert.NotContains(t, out, "## Transcript")
	assert.NotContains(t, out, "## Summary")
}

func TestSaveAndLoadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.json")
	sess := sampleSession()

	require.NoError(t, SaveJSON(sess, path))

	loaded, err := LoadJSON(path)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, loaded.ID)
	assert.Equal(t, "Mia", loaded.Persona.Name)
	assert.Len(t, loaded.Transcript, 4)
	assert.Equal(t, "viable", loaded.Summary.Verdict)
}

func TestLoadJSON_RejectsSessionWithoutPersona(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.json")
	sess := *session.New()
	require.NoError(t, SaveJSON(sess, path))

	_, err := LoadJSON(path)
	require.Error(t, err)
}

func TestSaveMarkdown(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.md")
	require.NoError(t, SaveMarkdown(sampleSession(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "## Persona: Mia")
}
