package backend

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/apresai/interviewer/internal/session"
)

// Model responses are asked for as raw JSON but arrive wrapped in scratchpad
// tags, markdown fences, or prose often enough that every parser goes through
// the same extraction sequence before unmarshaling.

var scratchpadRe = regexp.MustCompile(`(?s)<scratchpad>.*?</scratchpad>`)

func stripScratchpad(text string) string {
	return scratchpadRe.ReplaceAllString(text, "")
}

var fenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*\n?(.*?)\n?```")

func stripMarkdownFences(text string) string {
	if matches := fenceRe.FindStringSubmatch(text); len(matches) > 1 {
		return matches[1]
	}
	return text
}

func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}

func cleanJSON(text string) string {
	text = stripScratchpad(text)
	text = stripMarkdownFences(text)
	text = extractJSON(text)
	return strings.TrimSpace(text)
}

func truncate(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}

func unmarshalResponse(text string, dest any) error {
	text = cleanJSON(text)
	if text == "" {
		return fmt.Errorf("no JSON content found in response")
	}
	if err := json.Unmarshal([]byte(text), dest); err != nil {
		return fmt.Errorf("invalid JSON: %w\nRaw text (first 500 chars): %s", err, truncate(text, 500))
	}
	return nil
}

type clarifyPayload struct {
	Questions []struct {
		Question string   `json:"question"`
		Options  []string `json:"options"`
	} `json:"questions"`
}

func parseClarifyingQuestions(text string) ([]session.ClarifyingQuestion, error) {
	var p clarifyPayload
	if err := unmarshalResponse(text, &p); err != nil {
		return nil, err
	}
	questions := make([]session.ClarifyingQuestion, 0, len(p.Questions))
	for _, q := range p.Questions {
		if strings.TrimSpace(q.Question) == "" {
			continue
		}
		questions = append(questions, session.ClarifyingQuestion{
			Question: strings.TrimSpace(q.Question),
			Options:  q.Options,
		})
	}
	return questions, nil
}

type personaPayload struct {
	Profile string `json:"profile"`
	Name    string `json:"name"`
	Summary string `json:"summary"`
	Scores  struct {
		Demographics   int `json:"demographics"`
		Psychographics int `json:"psychographics"`
		Behaviors      int `json:"behaviors"`
		Needs          int `json:"needs"`
	} `json:"scores"`
	Sources []struct {
		URI   string `json:"uri"`
		Title string `json:"title"`
	} `json:"sources"`
}

func parsePersona(text string) (*PersonaResult, error) {
	var p personaPayload
	if err := unmarshalResponse(text, &p); err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.Profile) == "" {
		return nil, fmt.Errorf("persona response has empty profile")
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = deriveName(p.Profile)
	}

	result := &PersonaResult{
		Persona: session.Persona{
			Profile: p.Profile,
			Name:    name,
			Summary: strings.TrimSpace(p.Summary),
			Scores: &session.Scores{
				Demographics:   clampScore(p.Scores.Demographics),
				Psychographics: clampScore(p.Scores.Psychographics),
				Behaviors:      clampScore(p.Scores.Behaviors),
				Needs:          clampScore(p.Scores.Needs),
			},
		},
	}
	for _, s := range p.Sources {
		if s.URI == "" {
			continue
		}
		result.Sources = append(result.Sources, session.GroundingSource{URI: s.URI, Title: s.Title})
	}
	return result, nil
}

func clampScore(n int) int {
	if n < 0 {
		return 0
	}
	if n > 5 {
		return 5
	}
	return n
}

// deriveName pulls a display name out of the profile markdown when the model
// did not return one: first non-heading word sequence of the first line.
func deriveName(profile string) string {
	for _, line := range strings.Split(profile, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "#* "))
		if line == "" {
			continue
		}
		if idx := strings.IndexAny(line, ",:;("); idx > 0 {
			line = line[:idx]
		}
		words := strings.Fields(line)
		if len(words) > 4 {
			words = words[:4]
		}
		return strings.Join(words, " ")
	}
	return "Respondent"
}

type guidePayload struct {
	Questions []string `json:"questions"`
}

func parseGuide(text string) ([]string, error) {
	var p guidePayload
	if err := unmarshalResponse(text, &p); err != nil {
		return nil, err
	}
	questions := make([]string, 0, len(p.Questions))
	for _, q := range p.Questions {
		if strings.TrimSpace(q) == "" {
			continue
		}
		questions = append(questions, strings.TrimSpace(q))
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("guide response has no questions")
	}
	return questions, nil
}

type moderatorPayload struct {
	Action   string `json:"action"`
	Question string `json:"question"`
}

func parseModeratorDecision(text string) (*ModeratorDecision, error) {
	var p moderatorPayload
	if err := unmarshalResponse(text, &p); err != nil {
		return nil, err
	}
	switch p.Action {
	case "complete":
		return &ModeratorDecision{Complete: true}, nil
	case "ask":
		if strings.TrimSpace(p.Question) == "" {
			return nil, fmt.Errorf("moderator chose to ask but returned no question")
		}
		return &ModeratorDecision{Question: strings.TrimSpace(p.Question)}, nil
	default:
		return nil, fmt.Errorf("moderator response has unknown action %q", p.Action)
	}
}

type summaryPayload struct {
	Insights   string `json:"insights"`
	PainPoints string `json:"painPoints"`
	Wants      string `json:"wants"`
	Verdict    string `json:"verdict"`
}

func parseSummary(text string) (*session.Summary, error) {
	var p summaryPayload
	if err := unmarshalResponse(text, &p); err != nil {
		return nil, err
	}
	s := &session.Summary{
		Insights:   strings.TrimSpace(p.Insights),
		PainPoints: strings.TrimSpace(p.PainPoints),
		Wants:      strings.TrimSpace(p.Wants),
		Verdict:    strings.TrimSpace(p.Verdict),
	}
	if s.Insights == "" && s.PainPoints == "" && s.Wants == "" && s.Verdict == "" {
		return nil, fmt.Errorf("summary response has no content")
	}
	return s, nil
}
