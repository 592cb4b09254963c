package backend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/apresai/interviewer/internal/session"
)

const (
	temperature    = 0.7
	maxRetries     = 3
	initialBackoff = 1 * time.Second
	backoffMult    = 2
)

// Per-capability output budgets. Persona and summary carry long markdown;
// the rest are short structured answers.
const (
	maxTokensAnalyze   int64 = 1024
	maxTokensPersona   int64 = 4096
	maxTokensGuide     int64 = 2048
	maxTokensChat      int64 = 1024
	maxTokensModerator int64 = 1024
	maxTokensSummary   int64 = 4096
)

const roleAssistant = "assistant"

type chatMessage struct {
	role string // "user" or "assistant"
	text string
}

// generator is the provider-level completion primitive every capability is
// built from: system prompt plus alternating messages in, text out.
type generator interface {
	complete(ctx context.Context, system string, messages []chatMessage, maxTokens int64) (string, error)
}

// ModelNames returns all accepted --model values.
func ModelNames() []string {
	return []string{"haiku", "sonnet", "nova-lite", "gemini-flash", "gemini-pro"}
}

// IsValidModel reports whether the model name is recognized.
func IsValidModel(model string) bool {
	for _, m := range ModelNames() {
		if m == model {
			return true
		}
	}
	return false
}

// NewService builds a Service backed by the provider that owns the given
// model name.
func NewService(model string, logger *slog.Logger) (Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var gen generator
	switch model {
	case "haiku", "sonnet":
		gen = newClaudeGenerator(model)
	case "nova-lite":
		g, err := newNovaGenerator(model)
		if err != nil {
			return nil, err
		}
		gen = g
	case "gemini-flash", "gemini-pro":
		gen = newGeminiGenerator(model)
	default:
		return nil, fmt.Errorf("unknown model %q: must be one of haiku, sonnet, nova-lite, gemini-flash, gemini-pro", model)
	}

	return &service{gen: gen, model: model, logger: logger}, nil
}

type service struct {
	gen    generator
	model  string
	logger *slog.Logger
}

// complete runs one capability call with bounded exponential backoff. The
// last error propagates after exhaustion so callers can still classify it
// (rate limit vs. terminal).
func (s *service) complete(ctx context.Context, op, system string, messages []chatMessage, maxTokens int64) (string, error) {
	var lastErr error
	backoff := initialBackoff

	for attempt := 1; attempt <= maxRetries; attempt++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		text, err := s.gen.complete(ctx, system, messages, maxTokens)
		if err == nil {
			return text, nil
		}

		lastErr = err
		s.logger.Warn("backend call failed",
			"op", op, "model", s.model,
			"attempt", attempt, "max", maxRetries,
			"rate_limited", IsRateLimited(err),
			"error", err)

		if attempt < maxRetries {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= time.Duration(backoffMult)
		}
	}

	return "", fmt.Errorf("%s after %d attempts: %w", op, maxRetries, lastErr)
}

func (s *service) AnalyzeRequirements(ctx context.Context, industry, audience string) ([]session.ClarifyingQuestion, error) {
	user := []chatMessage{{role: "user", text: buildAnalyzePrompt(industry, audience)}}
	text, err := s.complete(ctx, "analyze_requirements", analyzeSystemPrompt, user, maxTokensAnalyze)
	if err != nil {
		return nil, err
	}
	return parseClarifyingQuestions(text)
}

func (s *service) GeneratePersona(ctx context.Context, req PersonaRequest) (*PersonaResult, error) {
	user := []chatMessage{{role: "user", text: buildPersonaPrompt(req)}}
	text, err := s.complete(ctx, "generate_persona", personaSystemPrompt, user, maxTokensPersona)
	if err != nil {
		return nil, err
	}
	return parsePersona(text)
}

func (s *service) GenerateGuide(ctx context.Context, req GuideRequest) ([]string, error) {
	user := []chatMessage{{role: "user", text: buildGuidePrompt(req)}}
	text, err := s.complete(ctx, "generate_guide", guideSystemPrompt, user, maxTokensGuide)
	if err != nil {
		return nil, err
	}
	return parseGuide(text)
}

func (s *service) OpenChannel(ctx context.Context, persona session.Persona, industry string) (ChatChannel, error) {
	if persona.Profile == "" {
		return nil, fmt.Errorf("cannot open chat channel without a persona profile")
	}
	return &chatChannel{
		svc:    s,
		system: buildChatSystemPrompt(persona, industry),
	}, nil
}

func (s *service) NextQuestion(ctx context.Context, req ModeratorRequest) (*ModeratorDecision, error) {
	user := []chatMessage{{role: "user", text: buildModeratorPrompt(req)}}
	text, err := s.complete(ctx, "moderator_decision", moderatorSystemPrompt, user, maxTokensModerator)
	if err != nil {
		return nil, err
	}
	return parseModeratorDecision(text)
}

func (s *service) Summarize(ctx context.Context, req SummaryRequest) (*session.Summary, error) {
	user := []chatMessage{{role: "user", text: buildSummaryPrompt(req)}}
	text, err := s.complete(ctx, "summarize", summarySystemPrompt, user, maxTokensSummary)
	if err != nil {
		return nil, err
	}
	return parseSummary(text)
}

// chatChannel keeps the running conversation history so every reply stays
// consistent with the persona's earlier answers. The interview loop is the
// only caller and it serializes turns, so no locking here.
type chatChannel struct {
	svc     *service
	system  string
	history []chatMessage
}

func (c *chatChannel) Introduce(ctx context.Context) (string, error) {
	return c.Send(ctx, introduceMessage)
}

func (c *chatChannel) Send(ctx context.Context, text string) (string, error) {
	messages := append(append([]chatMessage{}, c.history...), chatMessage{role: "user", text: text})

	reply, err := c.svc.complete(ctx, "chat_turn", c.system, messages, maxTokensChat)
	if err != nil {
		return "", err
	}

	c.history = append(messages, chatMessage{role: roleAssistant, text: reply})
	return reply, nil
}
