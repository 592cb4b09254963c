// Package report renders a finished research session into shareable
// artifacts: a JSON session file and a markdown report combining the
// persona, its completeness scores, the guide, the transcript, and the
// summary.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/apresai/interviewer/internal/session"
)

// SaveJSON writes the full session as indented JSON.
func SaveJSON(sess session.Session, path string) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write session to %s: %w", path, err)
	}
	return nil
}

// LoadJSON reads a session previously written by SaveJSON.
func LoadJSON(path string) (session.Session, error) {
	var sess session.Session
	data, err := os.ReadFile(path)
	if err != nil {
		return sess, fmt.Errorf("read session from %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &sess); err != nil {
		return sess, fmt.Errorf("parse session from %s: %w", path, err)
	}
	if sess.Persona == nil {
		return sess, fmt.Errorf("session %s has no persona", path)
	}
	return sess, nil
}

// SaveMarkdown writes the human-readable report.
func SaveMarkdown(sess session.Session, path string) error {
	if err := os.WriteFile(path, []byte(RenderMarkdown(sess)), 0644); err != nil {
		return fmt.Errorf("write report to %s: %w", path, err)
	}
	return nil
}

// RenderMarkdown builds the report text.
func RenderMarkdown(sess session.Session) string {
	var b strings.Builder

	title := sess.Config.Industry
	if title == "" {
		title = "Research"
	}
	fmt.Fprintf(&b, "# %s — Consumer Interview Report\n\n", title)
	fmt.Fprintf(&b, "Target audience: %s\n\n", sess.Config.Audience)

	if sess.Persona != nil {
		fmt.Fprintf(&b, "## Persona: %s\n\n", sess.Persona.Name)
		if sess.Persona.Summary != "" {
			fmt.Fprintf(&b, "> %s\n\n", sess.Persona.Summary)
		}
		if sess.Persona.Scores != nil {
			b.WriteString("| Dimension | Coverage |\n|---|---|\n")
			fmt.Fprintf(&b, "| Demographics | %s |\n", scoreBar(sess.Persona.Scores.Demographics))
			fmt.Fprintf(&b, "| Psychographics | %s |\n", scoreBar(sess.Persona.Scores.Psychographics))
			fmt.Fprintf(&b, "| Behaviors | %s |\n", scoreBar(sess.Persona.Scores.Behaviors))
			fmt.Fprintf(&b, "| Needs | %s |\n\n", scoreBar(sess.Persona.Scores.Needs))
		}
		b.WriteString(sess.Persona.Profile)
		b.WriteString("\n\n")
	}

	if len(sess.GroundingSources) > 0 {
		b.WriteString("### Sources\n\n")
		for _, s := range sess.GroundingSources {
			title := s.Title
			if title == "" {
				title = s.URI
			}
			fmt.Fprintf(&b, "- [%s](%s)\n", title, s.URI)
		}
		b.WriteString("\n")
	}

	if len(sess.Guide) > 0 {
		b.WriteString("## Discussion Guide\n\n")
		for i, q := range sess.Guide {
			fmt.Fprintf(&b, "%d. %s\n", i+1, q)
		}
		b.WriteString("\n")
	}

	if len(sess.Transcript) > 0 {
		b.WriteString("## Transcript\n\n")
		for _, m := range sess.Transcript {
			speaker := "Interviewer"
			if m.Role == session.RoleRespondent {
				speaker = "Respondent"
			} else if m.Automated {
				speaker = "Interviewer (auto)"
			}
			fmt.Fprintf(&b, "**%s** (%s): %s\n\n", speaker, m.At.Format("15:04:05"), m.Text)
		}
	}

	if sess.Summary != nil {
		b.WriteString("## Summary\n\n")
		fmt.Fprintf(&b, "### Key Insights\n\n%s\n\n", sess.Summary.Insights)
		fmt.Fprintf(&b, "### Pain Points\n\n%s\n\n", sess.Summary.PainPoints)
		fmt.Fprintf(&b, "### Wants & Needs\n\n%s\n\n", sess.Summary.Wants)
		fmt.Fprintf(&b, "### Verdict\n\n%s\n", sess.Summary.Verdict)
	}

	return b.String()
}

func scoreBar(n int) string {
	if n < 0 {
		n = 0
	}
	if n > 5 {
		n = 5
	}
	return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
}
