package session

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// Stage identifies which step of the research workflow is active.
type Stage string

const (
	StageSetup         Stage = "setup"
	StageClarifying    Stage = "clarifying"
	StageResearching   Stage = "researching"
	StagePreview       Stage = "preview"
	StageGuideInput    Stage = "guide_input"
	StageGuideReview   Stage = "guide_review"
	StageModeSelection Stage = "mode_selection"
	StageInterview     Stage = "interview"
	StageSummary       Stage = "summary"
)

func (s Stage) String() string {
	return string(s)
}

// Mode selects who asks the questions during the interview.
type Mode string

const (
	ModeManual Mode = "manual"
	ModeAuto   Mode = "auto"
)

// Role identifies the author of a transcript message.
type Role string

const (
	RoleRespondent  Role = "respondent"
	RoleInterviewer Role = "interviewer"
)

// MaterialKind distinguishes pasted text from uploaded files.
type MaterialKind string

const (
	MaterialText MaterialKind = "text"
	MaterialFile MaterialKind = "file"
)

// ReferenceMaterial is background content supplied by the researcher to
// ground persona generation (competitor research, survey data, notes).
type ReferenceMaterial struct {
	ID       string       `json:"id"`
	Kind     MaterialKind `json:"kind"`
	Name     string       `json:"name"`
	Content  string       `json:"content"`
	MIMEType string       `json:"mimeType,omitempty"`
}

// Config holds everything the researcher entered before persona generation.
type Config struct {
	Industry           string              `json:"industry"`
	Audience           string              `json:"audience"`
	Clarifications     []string            `json:"clarifications,omitempty"`
	Objectives         string              `json:"objectives,omitempty"`
	MandatoryQuestions []string            `json:"mandatoryQuestions,omitempty"`
	Materials          []ReferenceMaterial `json:"materials,omitempty"`
}

// ClarifyingQuestion is a follow-up the backend asks when the initial
// audience description is too vague to build a persona from.
type ClarifyingQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options,omitempty"`
}

// Scores rates how completely the persona covers each research dimension,
// each on a 0-5 scale.
type Scores struct {
	Demographics   int `json:"demographics"`
	Psychographics int `json:"psychographics"`
	Behaviors      int `json:"behaviors"`
	Needs          int `json:"needs"`
}

// Persona is the synthetic respondent profile the interview is run against.
type Persona struct {
	Profile   string  `json:"profile"` // full markdown description
	Name      string  `json:"name"`
	Summary   string  `json:"summary"`
	Scores    *Scores `json:"scores,omitempty"`
	AvatarRef string  `json:"avatarRef,omitempty"`
}

// GroundingSource is a citation returned alongside persona generation.
// Advisory only.
type GroundingSource struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// Message is one transcript entry. Automated is only meaningful for
// interviewer messages and marks questions produced by the auto moderator.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	At        time.Time `json:"at"`
	Automated bool      `json:"automated,omitempty"`
}

// Summary is the structured report produced once the interview ends.
type Summary struct {
	Insights   string `json:"insights"`
	PainPoints string `json:"painPoints"`
	Wants      string `json:"wants"`
	Verdict    string `json:"verdict"`
}

// Session is the root aggregate for one research run. It is owned by the
// workflow state machine; nothing outside the workflow and the interview
// loop mutates it.
type Session struct {
	ID                  string               `json:"id"`
	Stage               Stage                `json:"stage"`
	Config              Config               `json:"config"`
	ClarifyingQuestions []ClarifyingQuestion `json:"clarifyingQuestions,omitempty"`
	Persona             *Persona             `json:"persona,omitempty"`
	GroundingSources    []GroundingSource    `json:"groundingSources,omitempty"`
	Guide               []string             `json:"guide,omitempty"`
	Mode                Mode                 `json:"mode"`
	Transcript          []Message            `json:"transcript,omitempty"`
	Summary             *Summary             `json:"summary,omitempty"`
	CreatedAt           time.Time            `json:"createdAt"`
}

// New creates an empty session at the setup stage.
func New() *Session {
	return &Session{
		ID:        NewID(),
		Stage:     StageSetup,
		Mode:      ModeManual,
		CreatedAt: time.Now().UTC(),
	}
}

// NewID returns a fresh ULID for sessions and messages.
func NewID() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// NewMessage builds a transcript message with a fresh ID and timestamp.
func NewMessage(role Role, text string, automated bool) Message {
	return Message{
		ID:        NewID(),
		Role:      role,
		Text:      text,
		At:        time.Now().UTC(),
		Automated: automated,
	}
}

// LastMessage returns the most recent transcript entry, or nil when the
// transcript is empty.
func (s *Session) LastMessage() *Message {
	if len(s.Transcript) == 0 {
		return nil
	}
	return &s.Transcript[len(s.Transcript)-1]
}
