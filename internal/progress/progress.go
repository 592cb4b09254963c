package progress

import "time"

// Phase identifies which part of an unattended research run is active.
type Phase string

const (
	PhaseSetup     Phase = "setup"
	PhasePersona   Phase = "persona"
	PhaseGuide     Phase = "guide"
	PhaseInterview Phase = "interview"
	PhaseSummary   Phase = "summary"
	PhaseComplete  Phase = "complete"
)

// Event carries progress information from the pilot run to the renderer.
type Event struct {
	Phase     Phase
	Message   string
	Percent   float64 // 0.0–1.0
	TurnNum   int
	TurnTotal int
	Elapsed   time.Duration
	Error     error
	// ReportFile is set on PhaseComplete with the exported report path.
	ReportFile string
}

// Callback is the function signature for progress event handlers.
type Callback func(Event)

// NopCallback is a no-op progress callback for tests and silent mode.
func NopCallback(Event) {}

// NewEvent creates an Event with common fields populated.
func NewEvent(phase Phase, msg string, pct float64, start time.Time) Event {
	return Event{
		Phase:   phase,
		Message: msg,
		Percent: pct,
		Elapsed: time.Since(start),
	}
}
