// Package backend defines the contracts the research workflow depends on for
// generative-AI work, plus implementations for Claude (Anthropic), Nova
// (Bedrock Converse), and Gemini. All implementations share the same prompts
// and response parsing; only the transport differs.
package backend

import (
	"context"
	"errors"

	"github.com/apresai/interviewer/internal/session"
)

// ErrRateLimited marks failures caused by provider rate limiting. Callers
// that can wait (the auto-moderator loop) check for it with IsRateLimited
// and retry after a cooldown instead of giving up.
var ErrRateLimited = errors.New("rate limited")

// IsRateLimited reports whether err was caused by provider rate limiting.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// PersonaRequest carries everything persona generation needs.
type PersonaRequest struct {
	Industry       string
	Audience       string
	Clarifications []string
	Materials      []session.ReferenceMaterial
}

// PersonaResult is a generated persona plus any grounding citations.
type PersonaResult struct {
	Persona session.Persona
	Sources []session.GroundingSource
}

// GuideRequest carries the inputs for discussion-guide generation.
type GuideRequest struct {
	Industry           string
	Persona            session.Persona
	Objectives         string
	MandatoryQuestions []string
}

// ModeratorRequest is the full interview state the moderator decides from.
type ModeratorRequest struct {
	Transcript []session.Message
	Guide      []string
	Persona    session.Persona
}

// ModeratorDecision is either the next question to ask or the judgment that
// the interview has naturally covered everything (Complete).
type ModeratorDecision struct {
	Question string
	Complete bool
}

// SummaryRequest carries the inputs for end-of-interview summarization.
type SummaryRequest struct {
	Industry   string
	Persona    session.Persona
	Transcript []session.Message
}

// ChatChannel is one live conversation with a simulated respondent. A channel
// is scoped to a single interview; it keeps the conversation history so each
// reply is consistent with everything said before. Implementations are not
// safe for concurrent sends; the interview loop serializes turns.
type ChatChannel interface {
	// Introduce asks the respondent to introduce themselves. Used once for
	// the scripted opening of an auto-moderated interview.
	Introduce(ctx context.Context) (string, error)

	// Send delivers one interviewer message and returns the respondent reply.
	Send(ctx context.Context, text string) (string, error)
}

// Service is the full set of generative capabilities the workflow uses.
type Service interface {
	// AnalyzeRequirements inspects the initial industry/audience input and
	// returns clarifying questions when it is too vague to research.
	// An empty slice means the input is specific enough.
	AnalyzeRequirements(ctx context.Context, industry, audience string) ([]session.ClarifyingQuestion, error)

	// GeneratePersona builds the synthetic respondent profile.
	GeneratePersona(ctx context.Context, req PersonaRequest) (*PersonaResult, error)

	// GenerateGuide produces an ordered list of interview questions.
	GenerateGuide(ctx context.Context, req GuideRequest) ([]string, error)

	// OpenChannel starts a chat conversation framed as the persona.
	OpenChannel(ctx context.Context, persona session.Persona, industry string) (ChatChannel, error)

	// NextQuestion decides the moderator's next move: deep-dive on a fresh
	// signal, advance to an uncovered guide topic, or declare completion.
	NextQuestion(ctx context.Context, req ModeratorRequest) (*ModeratorDecision, error)

	// Summarize turns a finished transcript into the structured report.
	Summarize(ctx context.Context, req SummaryRequest) (*session.Summary, error)
}
