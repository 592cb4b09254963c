package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/apresai/interviewer/internal/backend"
	"github.com/apresai/interviewer/internal/ingest"
	"github.com/apresai/interviewer/internal/interview"
	"github.com/apresai/interviewer/internal/observability"
	"github.com/apresai/interviewer/internal/report"
	"github.com/apresai/interviewer/internal/session"
	"github.com/apresai/interviewer/internal/workflow"
)

// screen tracks which view the TUI is showing. Screens follow the workflow
// stages, with a shared spinner screen for any in-flight backend call.
type screen int

const (
	screenSetup screen = iota
	screenWorking
	screenClarifying
	screenPreview
	screenGuideInput
	screenGuideReview
	screenModeSelect
	screenInterview
	screenSummary
)

// style constants
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4")).
			MarginBottom(1)

	fieldLabelStyle = lipgloss.NewStyle().
			Width(16).
			Align(lipgloss.Right).
			MarginRight(2)

	fieldValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	fieldDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#555555")).
			Italic(true)

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	requiredStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555")).
			Bold(true)

	optionStyle = lipgloss.NewStyle().
			PaddingLeft(4)

	selectedOptionStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#04B575")).
				Bold(true).
				PaddingLeft(2)

	buttonStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 3)

	buttonDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#555555")).
			Padding(0, 3)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555")).
			Bold(true)

	headerBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("#7D56F4")).
			MarginBottom(1)

	interviewerStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#7D56F4")).
				Bold(true)

	respondentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#C0A000"))
)

// field is an editable setup value, either free text or a picked option.
type field struct {
	label    string
	value    string
	options  []fieldOption
	required bool
	cursor   int
}

type fieldOption struct {
	label string
	value string
}

// messages from async commands
type wfDoneMsg struct{ err error }
type loopTickMsg struct{}
type loopOpenedMsg struct{ err error }
type reportSavedMsg struct {
	path string
	err  error
}

// setup field indices
const (
	fldIndustry = 0
	fldAudience = 1
	fldModel    = 2
	fldMaterial = 3
	fldStart    = 4
)

type interactiveModel struct {
	ctx  context.Context
	wf   *workflow.Workflow
	loop *interview.Loop
	svc  backend.Service

	screen     screen
	workingMsg string
	width      int
	height     int
	err        string

	// setup
	fields   []field
	fieldIdx int
	editing  bool

	// clarifying
	clarifyIdx     int
	clarifyCursor  int
	clarifyAnswers []string
	clarifyInput   string

	// guide input
	objectives string
	mandatory  string
	guideIdx   int // 0 objectives, 1 mandatory, 2 generate

	// guide review
	guide       []string
	reviewIdx   int
	reviewInput string

	// mode selection
	modeIdx int

	// interview
	chatInput string

	// summary
	savedPath string

	quitting bool
}

func newInteractiveModel(ctx context.Context, wf *workflow.Workflow, svc backend.Service) interactiveModel {
	fields := []field{
		{label: "Industry", value: flagIndustry, required: true},
		{label: "Audience", value: flagAudience, required: true},
		{
			label: "Model",
			value: flagModel,
			options: []fieldOption{
				{label: "Haiku 4.5 (fast, affordable) (default)", value: "haiku"},
				{label: "Sonnet 4.5 (balanced)", value: "sonnet"},
				{label: "Nova Lite (Bedrock)", value: "nova-lite"},
				{label: "Gemini Flash (fast)", value: "gemini-flash"},
				{label: "Gemini Pro (powerful)", value: "gemini-pro"},
			},
		},
		{label: "Materials", value: strings.Join(flagMaterials, "; ")},
		{label: ">>> Start <<<"},
	}
	for i := range fields {
		for j, opt := range fields[i].options {
			if opt.value == fields[i].value {
				fields[i].cursor = j
				break
			}
		}
	}
	return interactiveModel{
		ctx:    ctx,
		wf:     wf,
		svc:    svc,
		screen: screenSetup,
		fields: fields,
	}
}

func (m interactiveModel) Init() tea.Cmd {
	return nil
}

func (m interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case wfDoneMsg:
		return m.syncToStage(msg.err)

	case loopOpenedMsg:
		if msg.err != nil {
			m.err = msg.err.Error()
		}
		return m, listenLoop(m.loop)

	case loopTickMsg:
		if m.loop == nil || m.loop.Closed() {
			return m, nil
		}
		// The loop downgrades itself when the moderator declares the
		// interview complete; keep the session record in step.
		if m.loop.Mode() == session.ModeManual && m.wf.Session().Mode == session.ModeAuto {
			if err := m.wf.SetMode(session.ModeManual); err != nil {
				m.err = err.Error()
			}
		}
		return m, listenLoop(m.loop)

	case reportSavedMsg:
		if msg.err != nil {
			m.err = msg.err.Error()
		} else {
			m.savedPath = msg.path
			m.err = ""
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			if m.loop != nil {
				m.loop.Close()
			}
			return m, tea.Quit
		}
		switch m.screen {
		case screenSetup:
			return m.updateSetup(msg)
		case screenWorking:
			return m, nil
		case screenClarifying:
			return m.updateClarifying(msg)
		case screenPreview:
			return m.updatePreview(msg)
		case screenGuideInput:
			return m.updateGuideInput(msg)
		case screenGuideReview:
			return m.updateGuideReview(msg)
		case screenModeSelect:
			return m.updateModeSelect(msg)
		case screenInterview:
			return m.updateInterview(msg)
		case screenSummary:
			return m.updateSummary(msg)
		}
	}
	return m, nil
}

// syncToStage picks the screen matching the workflow stage after an async
// workflow call returns. The workflow's own error message takes priority so
// the TUI shows the same text a rollback set.
func (m interactiveModel) syncToStage(err error) (tea.Model, tea.Cmd) {
	m.err = m.wf.Err()
	if err != nil && m.err == "" {
		m.err = err.Error()
	}

	switch m.wf.Stage() {
	case session.StageSetup:
		m.screen = screenSetup
	case session.StageClarifying:
		sess := m.wf.Session()
		m.screen = screenClarifying
		m.clarifyIdx = 0
		m.clarifyCursor = 0
		m.clarifyAnswers = make([]string, len(sess.ClarifyingQuestions))
		m.clarifyInput = ""
	case session.StagePreview:
		m.screen = screenPreview
	case session.StageGuideInput:
		m.screen = screenGuideInput
	case session.StageGuideReview:
		m.screen = screenGuideReview
		m.guide = m.wf.Session().Guide
		m.reviewIdx = 0
	case session.StageModeSelection:
		m.screen = screenModeSelect
	case session.StageInterview:
		if m.loop == nil {
			return m.enterInterview()
		}
		m.screen = screenInterview
	case session.StageSummary:
		if m.loop != nil {
			m.loop.Close()
			m.loop = nil
		}
		m.screen = screenSummary
	}
	return m, nil
}

// working switches to the spinner screen and runs op off the UI goroutine.
func (m interactiveModel) working(msg string, op func() error) (tea.Model, tea.Cmd) {
	m.screen = screenWorking
	m.workingMsg = msg
	m.err = ""
	return m, func() tea.Msg {
		return wfDoneMsg{err: op()}
	}
}

func listenLoop(l *interview.Loop) tea.Cmd {
	return func() tea.Msg {
		<-l.Updates()
		return loopTickMsg{}
	}
}

// --- setup ---

func (m interactiveModel) updateSetup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.editing {
		return m.updateSetupEditing(msg)
	}

	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		if m.fieldIdx > 0 {
			m.fieldIdx--
		}
	case "down", "j":
		if m.fieldIdx < len(m.fields)-1 {
			m.fieldIdx++
		}
	case "enter", " ":
		if m.fieldIdx == fldStart {
			if strings.TrimSpace(m.fields[fldIndustry].value) == "" ||
				strings.TrimSpace(m.fields[fldAudience].value) == "" {
				m.err = "Industry and Audience are required"
				return m, nil
			}
			return m.submitSetup()
		}
		m.editing = true
		m.err = ""
	}
	return m, nil
}

func (m interactiveModel) updateSetupEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := &m.fields[m.fieldIdx]

	if len(f.options) > 0 {
		switch msg.String() {
		case "enter", " ":
			f.value = f.options[f.cursor].value
			m.editing = false
			if m.fieldIdx < len(m.fields)-1 {
				m.fieldIdx++
			}
		case "esc":
			m.editing = false
		case "up", "k":
			if f.cursor > 0 {
				f.cursor--
			}
		case "down", "j":
			if f.cursor < len(f.options)-1 {
				f.cursor++
			}
		}
		return m, nil
	}

	switch msg.String() {
	case "enter":
		m.editing = false
		if m.fieldIdx < len(m.fields)-1 {
			m.fieldIdx++
		}
	case "esc":
		m.editing = false
	case "backspace":
		if len(f.value) > 0 {
			r := []rune(f.value)
			f.value = string(r[:len(r)-1])
		}
	case "ctrl+u":
		f.value = ""
	default:
		if msg.Type == tea.KeyRunes {
			f.value += string(msg.Runes)
		}
	}
	return m, nil
}

func (m interactiveModel) submitSetup() (tea.Model, tea.Cmd) {
	industry := strings.TrimSpace(m.fields[fldIndustry].value)
	audience := strings.TrimSpace(m.fields[fldAudience].value)
	materials := m.fields[fldMaterial].value
	wf, ctx := m.wf, m.ctx

	return m.working("Analyzing your research target...", func() error {
		cfg := session.Config{Industry: industry, Audience: audience}
		if strings.TrimSpace(materials) != "" {
			var sources []string
			for _, s := range strings.Split(materials, ";") {
				if s = strings.TrimSpace(s); s != "" {
					sources = append(sources, s)
				}
			}
			loaded, err := ingest.LoadAll(ctx, sources)
			if err != nil {
				return err
			}
			cfg.Materials = loaded
		}
		return wf.SubmitInitialConfig(ctx, cfg)
	})
}

// --- clarifying ---

func (m interactiveModel) updateClarifying(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sess := m.wf.Session()
	questions := sess.ClarifyingQuestions
	if m.clarifyIdx >= len(questions) {
		return m, nil
	}
	q := questions[m.clarifyIdx]

	if len(q.Options) > 0 {
		switch msg.String() {
		case "up", "k":
			if m.clarifyCursor > 0 {
				m.clarifyCursor--
			}
		case "down", "j":
			if m.clarifyCursor < len(q.Options)-1 {
				m.clarifyCursor++
			}
		case "enter", " ":
			m.clarifyAnswers[m.clarifyIdx] = q.Options[m.clarifyCursor]
			return m.advanceClarifying(len(questions))
		}
		return m, nil
	}

	switch msg.String() {
	case "enter":
		if strings.TrimSpace(m.clarifyInput) == "" {
			m.err = "An answer is required"
			return m, nil
		}
		m.clarifyAnswers[m.clarifyIdx] = strings.TrimSpace(m.clarifyInput)
		m.clarifyInput = ""
		m.err = ""
		return m.advanceClarifying(len(questions))
	case "backspace":
		if len(m.clarifyInput) > 0 {
			r := []rune(m.clarifyInput)
			m.clarifyInput = string(r[:len(r)-1])
		}
	case "ctrl+u":
		m.clarifyInput = ""
	default:
		if msg.Type == tea.KeyRunes {
			m.clarifyInput += string(msg.Runes)
		}
	}
	return m, nil
}

func (m interactiveModel) advanceClarifying(total int) (tea.Model, tea.Cmd) {
	m.clarifyCursor = 0
	if m.clarifyIdx < total-1 {
		m.clarifyIdx++
		return m, nil
	}
	answers := append([]string(nil), m.clarifyAnswers...)
	wf, ctx := m.wf, m.ctx
	return m.working("Building your respondent persona...", func() error {
		return wf.SubmitClarifications(ctx, answers)
	})
}

// --- preview ---

func (m interactiveModel) updatePreview(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if err := m.wf.ConfirmProfile(); err != nil {
			m.err = err.Error()
			return m, nil
		}
		m.guideIdx = 0
		m.screen = screenGuideInput
		m.err = ""
	case "r":
		m.wf.Reset()
		fresh := newInteractiveModel(m.ctx, m.wf, m.svc)
		fresh.width, fresh.height = m.width, m.height
		return fresh, nil
	case "q":
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// --- guide input ---

func (m interactiveModel) updateGuideInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.editing {
		return m.updateGuideInputEditing(msg)
	}

	switch msg.String() {
	case "up", "k":
		if m.guideIdx > 0 {
			m.guideIdx--
		}
	case "down", "j":
		if m.guideIdx < 2 {
			m.guideIdx++
		}
	case "enter", " ":
		if m.guideIdx == 2 {
			return m.generateGuide()
		}
		m.editing = true
		m.err = ""
	case "f":
		// Offered after a generation failure: skip the backend entirely.
		if m.err != "" {
			guide := m.wf.FallbackGuide()
			if err := m.wf.UseFallbackGuide(guide); err != nil {
				m.err = err.Error()
				return m, nil
			}
			return m.syncToStage(nil)
		}
	case "q":
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m interactiveModel) updateGuideInputEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	target := &m.objectives
	if m.guideIdx == 1 {
		target = &m.mandatory
	}

	switch msg.String() {
	case "enter", "esc":
		m.editing = false
		if msg.String() == "enter" && m.guideIdx < 2 {
			m.guideIdx++
		}
	case "backspace":
		if len(*target) > 0 {
			r := []rune(*target)
			*target = string(r[:len(r)-1])
		}
	case "ctrl+u":
		*target = ""
	default:
		if msg.Type == tea.KeyRunes {
			*target += string(msg.Runes)
		}
	}
	return m, nil
}

func (m interactiveModel) generateGuide() (tea.Model, tea.Cmd) {
	objectives := strings.TrimSpace(m.objectives)
	var mandatory []string
	for _, q := range strings.Split(m.mandatory, ";") {
		if q = strings.TrimSpace(q); q != "" {
			mandatory = append(mandatory, q)
		}
	}
	wf, ctx := m.wf, m.ctx
	return m.working("Drafting the discussion guide...", func() error {
		return wf.GenerateGuide(ctx, objectives, mandatory)
	})
}

// --- guide review ---

func (m interactiveModel) updateGuideReview(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.editing {
		switch msg.String() {
		case "enter":
			if strings.TrimSpace(m.reviewInput) != "" {
				if m.reviewIdx < len(m.guide) {
					m.guide[m.reviewIdx] = strings.TrimSpace(m.reviewInput)
				} else {
					m.guide = append(m.guide, strings.TrimSpace(m.reviewInput))
				}
			}
			m.reviewInput = ""
			m.editing = false
		case "esc":
			m.reviewInput = ""
			m.editing = false
		case "backspace":
			if len(m.reviewInput) > 0 {
				r := []rune(m.reviewInput)
				m.reviewInput = string(r[:len(r)-1])
			}
		case "ctrl+u":
			m.reviewInput = ""
		default:
			if msg.Type == tea.KeyRunes {
				m.reviewInput += string(msg.Runes)
			}
		}
		return m, nil
	}

	switch msg.String() {
	case "up", "k":
		if m.reviewIdx > 0 {
			m.reviewIdx--
		}
	case "down", "j":
		if m.reviewIdx < len(m.guide)-1 {
			m.reviewIdx++
		}
	case "e", "enter":
		if m.reviewIdx < len(m.guide) {
			m.reviewInput = m.guide[m.reviewIdx]
			m.editing = true
		}
	case "d":
		if len(m.guide) > 0 && m.reviewIdx < len(m.guide) {
			m.guide = append(m.guide[:m.reviewIdx], m.guide[m.reviewIdx+1:]...)
			if m.reviewIdx >= len(m.guide) && m.reviewIdx > 0 {
				m.reviewIdx--
			}
		}
	case "a":
		m.reviewIdx = len(m.guide)
		m.reviewInput = ""
		m.editing = true
	case "c":
		if err := m.wf.ConfirmGuide(m.guide); err != nil {
			m.err = err.Error()
			return m, nil
		}
		m.err = ""
		m.modeIdx = 0
		m.screen = screenModeSelect
	case "q":
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// --- mode selection ---

func (m interactiveModel) updateModeSelect(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k", "down", "j":
		m.modeIdx = 1 - m.modeIdx
	case "enter", " ":
		mode := session.ModeAuto
		if m.modeIdx == 1 {
			mode = session.ModeManual
		}
		wf, ctx := m.wf, m.ctx
		return m.working("Connecting to your respondent...", func() error {
			return wf.StartInterview(ctx, mode)
		})
	case "q":
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// enterInterview builds the loop over the workflow's freshly opened channel
// and kicks off the scripted introduction.
func (m interactiveModel) enterInterview() (tea.Model, tea.Cmd) {
	sess := m.wf.Session()
	m.loop = interview.New(m.wf.Channel(), m.svc, interview.Config{
		Persona: *sess.Persona,
		Guide:   sess.Guide,
		Mode:    sess.Mode,
	})
	m.screen = screenInterview
	m.chatInput = ""

	// The moderator goroutine outlives individual UI commands; give it a
	// context that keeps the trace linkage but not the command lifetime.
	loop, ctx := m.loop, observability.DetachTraceContext(m.ctx)
	return m, func() tea.Msg {
		return loopOpenedMsg{err: loop.Open(ctx)}
	}
}

// --- interview ---

func (m interactiveModel) updateInterview(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+t":
		m.loop.ForceManual()
		if err := m.wf.SetMode(session.ModeManual); err != nil {
			m.err = err.Error()
		}
		return m, nil

	case "ctrl+e":
		return m.endInterview()

	case "enter":
		text := strings.TrimSpace(m.chatInput)
		if text == "" {
			return m, nil
		}
		loop, ctx := m.loop, m.ctx
		m.chatInput = ""
		m.err = ""
		return m, func() tea.Msg {
			if err := loop.SendManual(ctx, text); err != nil {
				return wfDoneMsg{err: err}
			}
			return nil
		}

	case "backspace":
		if len(m.chatInput) > 0 {
			r := []rune(m.chatInput)
			m.chatInput = string(r[:len(r)-1])
		}
	case "ctrl+u":
		m.chatInput = ""
	default:
		if msg.Type == tea.KeyRunes {
			m.chatInput += string(msg.Runes)
		}
	}
	return m, nil
}

func (m interactiveModel) endInterview() (tea.Model, tea.Cmd) {
	// Snapshot only; the loop stays open so a summary failure rolls back to
	// a live interview. syncToStage closes it once the summary lands.
	transcript := m.loop.Transcript()
	wf, ctx := m.wf, m.ctx
	return m.working("Writing the research summary...", func() error {
		return wf.EndInterview(ctx, transcript)
	})
}

// --- summary ---

func (m interactiveModel) updateSummary(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "s":
		sess := m.wf.Session()
		path := flagOutput
		if path == "" {
			path = time.Now().Format("interview-20060102-1504.md")
		}
		return m, func() tea.Msg {
			if err := report.SaveMarkdown(sess, path); err != nil {
				return reportSavedMsg{err: err}
			}
			jsonPath := strings.TrimSuffix(path, ".md") + ".json"
			if err := report.SaveJSON(sess, jsonPath); err != nil {
				return reportSavedMsg{err: err}
			}
			return reportSavedMsg{path: path}
		}
	case "n":
		m.wf.Reset()
		fresh := newInteractiveModel(m.ctx, m.wf, m.svc)
		fresh.width, fresh.height = m.width, m.height
		return fresh, nil
	case "q":
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// --- views ---

func (m interactiveModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(headerBorder.Render(titleStyle.Render("Interviewer")))
	b.WriteString("\n")

	switch m.screen {
	case screenSetup:
		m.viewSetup(&b)
	case screenWorking:
		fmt.Fprintf(&b, "\n  %s\n", statusStyle.Render(m.workingMsg))
	case screenClarifying:
		m.viewClarifying(&b)
	case screenPreview:
		m.viewPreview(&b)
	case screenGuideInput:
		m.viewGuideInput(&b)
	case screenGuideReview:
		m.viewGuideReview(&b)
	case screenModeSelect:
		m.viewModeSelect(&b)
	case screenInterview:
		m.viewInterview(&b)
	case screenSummary:
		m.viewSummary(&b)
	}

	if m.err != "" {
		b.WriteString("\n" + errorStyle.Render("  Error: "+m.err) + "\n")
	}
	return b.String()
}

func (m interactiveModel) viewSetup(b *strings.Builder) {
	for i, f := range m.fields {
		active := m.fieldIdx == i

		if i == fldStart {
			b.WriteString("\n")
			if active {
				b.WriteString("  " + buttonStyle.Render(" Start "))
			} else {
				b.WriteString("  " + buttonDimStyle.Render(" Start "))
			}
			b.WriteString("\n")
			continue
		}

		cursor := "  "
		if active {
			cursor = cursorStyle.Render("> ")
		}
		label := f.label
		if f.required {
			label += requiredStyle.Render("*")
		}

		var value string
		switch {
		case active && m.editing && len(f.options) == 0:
			value = fieldValueStyle.Render(f.value + "_")
		case f.value == "":
			placeholder := "(not set)"
			if i == fldMaterial {
				placeholder = "(optional: files or URLs, separated by ;)"
			}
			value = fieldDimStyle.Render(placeholder)
		default:
			display := f.value
			for _, opt := range f.options {
				if opt.value == f.value {
					display = opt.label
					break
				}
			}
			value = fieldValueStyle.Render(display)
		}

		b.WriteString(cursor + fieldLabelStyle.Render(label) + " " + value + "\n")

		if active && m.editing && len(f.options) > 0 {
			for j, opt := range f.options {
				if j == f.cursor {
					b.WriteString(selectedOptionStyle.Render("> "+opt.label) + "\n")
				} else {
					b.WriteString(optionStyle.Render("  "+opt.label) + "\n")
				}
			}
		}
	}

	if m.editing {
		b.WriteString(helpStyle.Render("  type or pick | enter to confirm | esc to cancel"))
	} else {
		b.WriteString(helpStyle.Render("  j/k or arrows to navigate | enter to edit | q to quit"))
	}
	b.WriteString("\n")
}

func (m interactiveModel) viewClarifying(b *strings.Builder) {
	sess := m.wf.Session()
	questions := sess.ClarifyingQuestions
	if m.clarifyIdx >= len(questions) {
		return
	}
	q := questions[m.clarifyIdx]

	fmt.Fprintf(b, "  A few questions before we build your respondent (%d/%d):\n\n",
		m.clarifyIdx+1, len(questions))
	b.WriteString("  " + fieldValueStyle.Render(q.Question) + "\n\n")

	if len(q.Options) > 0 {
		for j, opt := range q.Options {
			if j == m.clarifyCursor {
				b.WriteString(selectedOptionStyle.Render("> "+opt) + "\n")
			} else {
				b.WriteString(optionStyle.Render("  "+opt) + "\n")
			}
		}
		b.WriteString(helpStyle.Render("  j/k to pick | enter to answer"))
	} else {
		b.WriteString("  " + fieldValueStyle.Render(m.clarifyInput+"_") + "\n")
		b.WriteString(helpStyle.Render("  type your answer | enter to continue"))
	}
	b.WriteString("\n")
}

func (m interactiveModel) viewPreview(b *strings.Builder) {
	sess := m.wf.Session()
	if sess.Persona == nil {
		return
	}
	p := sess.Persona

	b.WriteString("  " + titleStyle.Render(p.Name) + "\n")
	if p.Summary != "" {
		b.WriteString("  " + p.Summary + "\n\n")
	}
	for _, line := range strings.Split(p.Profile, "\n") {
		b.WriteString("  " + line + "\n")
	}

	if p.Scores != nil {
		b.WriteString("\n")
		rows := []struct {
			label string
			score int
		}{
			{"Demographics", p.Scores.Demographics},
			{"Psychographics", p.Scores.Psychographics},
			{"Behaviors", p.Scores.Behaviors},
			{"Needs", p.Scores.Needs},
		}
		for _, r := range rows {
			bar := strings.Repeat("★", r.score) + strings.Repeat("☆", 5-r.score)
			b.WriteString("  " + fieldLabelStyle.Render(r.label) + " " + statusStyle.Render(bar) + "\n")
		}
	}

	if len(sess.GroundingSources) > 0 {
		b.WriteString("\n  Sources:\n")
		for _, s := range sess.GroundingSources {
			fmt.Fprintf(b, "    - %s (%s)\n", s.Title, s.URI)
		}
	}

	b.WriteString(helpStyle.Render("  enter to accept this respondent | r to start over | q to quit"))
	b.WriteString("\n")
}

func (m interactiveModel) viewGuideInput(b *strings.Builder) {
	b.WriteString("  What should this interview find out?\n\n")

	rows := []struct {
		label, value, placeholder string
	}{
		{"Objectives", m.objectives, "(optional: what you want to learn)"},
		{"Must-ask", m.mandatory, "(optional: questions separated by ;)"},
	}
	for i, r := range rows {
		cursor := "  "
		if m.guideIdx == i {
			cursor = cursorStyle.Render("> ")
		}
		var value string
		switch {
		case m.guideIdx == i && m.editing:
			value = fieldValueStyle.Render(r.value + "_")
		case r.value == "":
			value = fieldDimStyle.Render(r.placeholder)
		default:
			value = fieldValueStyle.Render(r.value)
		}
		b.WriteString(cursor + fieldLabelStyle.Render(r.label) + " " + value + "\n")
	}

	b.WriteString("\n")
	if m.guideIdx == 2 {
		b.WriteString("  " + buttonStyle.Render(" Generate Guide ") + "\n")
	} else {
		b.WriteString("  " + buttonDimStyle.Render(" Generate Guide ") + "\n")
	}

	help := "  j/k to navigate | enter to edit or generate"
	if m.err != "" {
		help += " | f to use the fallback guide"
	}
	b.WriteString(helpStyle.Render(help))
	b.WriteString("\n")
}

func (m interactiveModel) viewGuideReview(b *strings.Builder) {
	b.WriteString("  Discussion guide. Review before the interview:\n\n")

	for i, q := range m.guide {
		cursor := "  "
		if m.reviewIdx == i {
			cursor = cursorStyle.Render("> ")
		}
		if m.reviewIdx == i && m.editing {
			fmt.Fprintf(b, "  %s%d. %s\n", cursor, i+1, fieldValueStyle.Render(m.reviewInput+"_"))
		} else {
			fmt.Fprintf(b, "  %s%d. %s\n", cursor, i+1, q)
		}
	}
	if m.editing && m.reviewIdx >= len(m.guide) {
		fmt.Fprintf(b, "  %s%d. %s\n", cursorStyle.Render("> "), len(m.guide)+1,
			fieldValueStyle.Render(m.reviewInput+"_"))
	}

	if m.editing {
		b.WriteString(helpStyle.Render("  type the question | enter to save | esc to cancel"))
	} else {
		b.WriteString(helpStyle.Render("  e to edit | d to delete | a to add | c to confirm | q to quit"))
	}
	b.WriteString("\n")
}

func (m interactiveModel) viewModeSelect(b *strings.Builder) {
	b.WriteString("  Who asks the questions?\n\n")
	modes := []string{
		"Auto: an AI moderator runs the interview from your guide",
		"Manual: you type every question yourself",
	}
	for i, label := range modes {
		if i == m.modeIdx {
			b.WriteString(selectedOptionStyle.Render("> "+label) + "\n")
		} else {
			b.WriteString(optionStyle.Render("  "+label) + "\n")
		}
	}
	b.WriteString(helpStyle.Render("  j/k to pick | enter to start | q to quit"))
	b.WriteString("\n")
}

func (m interactiveModel) viewInterview(b *strings.Builder) {
	sess := m.wf.Session()
	persona := "Respondent"
	if sess.Persona != nil && sess.Persona.Name != "" {
		persona = sess.Persona.Name
	}

	transcript := m.loop.Transcript()
	visible := transcript
	maxMsgs := 8
	if m.height > 24 {
		maxMsgs = (m.height - 10) / 2
	}
	if len(visible) > maxMsgs {
		visible = visible[len(visible)-maxMsgs:]
	}

	for _, msg := range visible {
		switch msg.Role {
		case session.RoleInterviewer:
			who := "You"
			if msg.Automated {
				who = "Moderator"
			}
			b.WriteString("  " + interviewerStyle.Render(who+":") + " " + msg.Text + "\n\n")
		case session.RoleRespondent:
			b.WriteString("  " + respondentStyle.Render(persona+":") + " " + msg.Text + "\n\n")
		}
	}

	var status string
	switch m.loop.Status() {
	case interview.TurnAwaitingRespondent:
		status = persona + " is typing..."
	case interview.TurnThinking:
		status = "Moderator is thinking..."
	case interview.TurnDone:
		status = "The moderator has covered the guide. Ask follow-ups or end the interview."
	default:
		if m.loop.Mode() == session.ModeAuto {
			status = "Auto interview in progress"
		} else {
			status = "Your turn"
		}
	}
	b.WriteString("  " + statusStyle.Render(status) + "\n\n")

	b.WriteString("  " + fieldValueStyle.Render("> "+m.chatInput+"_") + "\n")

	help := "  enter to send | ctrl+e to end the interview"
	if m.loop.Mode() == session.ModeAuto {
		help += " | ctrl+t to take over"
	}
	b.WriteString(helpStyle.Render(help))
	b.WriteString("\n")
}

func (m interactiveModel) viewSummary(b *strings.Builder) {
	sess := m.wf.Session()
	if sess.Summary == nil {
		return
	}
	s := sess.Summary

	sections := []struct{ title, body string }{
		{"Key Insights", s.Insights},
		{"Pain Points", s.PainPoints},
		{"Wants", s.Wants},
		{"Verdict", s.Verdict},
	}
	for _, sec := range sections {
		if sec.body == "" {
			continue
		}
		b.WriteString("  " + titleStyle.Render(sec.title) + "\n")
		for _, line := range strings.Split(sec.body, "\n") {
			b.WriteString("  " + line + "\n")
		}
		b.WriteString("\n")
	}

	if m.savedPath != "" {
		b.WriteString("  " + fieldValueStyle.Render("Report saved to "+m.savedPath) + "\n")
	}
	b.WriteString(helpStyle.Render("  s to save the report | n for a new session | q to quit"))
	b.WriteString("\n")
}

// runInteractive drives the whole guided session in the terminal.
func runInteractive(cmd *cobra.Command, args []string) error {
	if err := validateCommon(); err != nil {
		return err
	}

	// The TUI owns stdout, so logs go to a file in verbose mode and nowhere
	// otherwise.
	var logOut io.Writer = io.Discard
	if flagVerbose {
		f, err := os.OpenFile("interviewer.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	logger := observability.NewLogger(logOut, flagVerbose)

	svc, err := backend.NewService(flagModel, logger)
	if err != nil {
		return err
	}
	wf := workflow.New(svc, logger)

	p := tea.NewProgram(newInteractiveModel(cmd.Context(), wf, svc), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
