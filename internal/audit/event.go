package audit

import "time"

// EventType tags an audit record.
type EventType string

const (
	TypeRunStarted      EventType = "run.started"
	TypeActionRequested EventType = "action.requested"
	TypePolicyDecision  EventType = "policy.decision"
	TypeActionResult    EventType = "action.result"
	TypeRunFinished     EventType = "run.finished"
)

// Run statuses recorded in run.finished.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// TimestampLayout is ISO-8601 in UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Event is one audit record written as a single JSON line. Which optional
// fields are set depends on Type.
type Event struct {
	Type      EventType `json:"type"`
	RunID     string    `json:"runId"`
	Timestamp string    `json:"timestamp"`

	Prompt  *string `json:"prompt,omitempty"`
	DryRun  *bool   `json:"dryRun,omitempty"`
	Allowed *bool   `json:"allowed,omitempty"`
	Reason  string  `json:"reason,omitempty"`
	Success *bool   `json:"success,omitempty"`
	Action  any     `json:"action,omitempty"`
	Result  any     `json:"result,omitempty"`
	Status  string  `json:"status,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// Time parses Timestamp. The zero time is returned for malformed values.
func (e Event) Time() time.Time {
	t, err := time.Parse(time.RFC3339Nano, e.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// RunStarted records the beginning of a run.
func RunStarted(runID, prompt string, dryRun bool) Event {
	return Event{Type: TypeRunStarted, RunID: runID, Prompt: &prompt, DryRun: &dryRun}
}

// ActionRequested records an action about to be processed.
func ActionRequested(runID string, action any) Event {
	return Event{Type: TypeActionRequested, RunID: runID, Action: action}
}

// PolicyDecision records an allow or deny verdict for a prompt or tool.
func PolicyDecision(runID string, allowed bool, reason string, action any) Event {
	return Event{Type: TypePolicyDecision, RunID: runID, Allowed: &allowed, Reason: reason, Action: action}
}

// ActionResult records the outcome of an action.
func ActionResult(runID string, success bool, result, action any) Event {
	return Event{Type: TypeActionResult, RunID: runID, Success: &success, Result: result, Action: action}
}

// DryRunResult records a tool action skipped because the run is a dry run.
func DryRunResult(runID string, result, action any) Event {
	e := ActionResult(runID, true, result, action)
	dry := true
	e.DryRun = &dry
	return e
}

// RunFinished records the end of a run. runErr may be nil.
func RunFinished(runID string, runErr error) Event {
	e := Event{Type: TypeRunFinished, RunID: runID, Status: StatusOK}
	if runErr != nil {
		e.Status = StatusError
		e.Error = runErr.Error()
	}
	return e
}
