// Package actions defines the action plan a provider returns and the
// validator that turns untrusted provider output into a typed plan.
package actions

import "encoding/json"

// Tool names understood by the runtime.
const (
	ToolHTTPFetch = "http.fetch"
	ToolFSRead    = "fs.read"
)

// Action types.
const (
	TypeRespond = "respond"
	TypeTool    = "tool"
)

// Plan is an ordered list of actions produced by a provider.
type Plan struct {
	Actions []Action `json:"actions"`
}

// Action is either a Respond or a Tool action.
type Action interface {
	Type() string
	isAction()
}

// Respond returns text to the caller without side effects.
type Respond struct {
	Text string
}

func (Respond) Type() string { return TypeRespond }
func (Respond) isAction()    {}

func (r Respond) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}{TypeRespond, r.Text})
}

// Tool requests a side-effecting tool invocation.
type Tool struct {
	Input ToolInput
}

func (Tool) Type() string { return TypeTool }
func (Tool) isAction()    {}

// Name returns the tool name derived from the input variant.
func (t Tool) Name() string {
	if t.Input == nil {
		return ""
	}
	return t.Input.ToolName()
}

func (t Tool) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  string    `json:"type"`
		Tool  string    `json:"tool"`
		Input ToolInput `json:"input"`
	}{TypeTool, t.Name(), t.Input})
}

// ToolInput is either HTTPFetchInput or FSReadInput.
type ToolInput interface {
	ToolName() string
	isToolInput()
}

// HTTPFetchInput is the input of an http.fetch action. Nil limits fall back
// to the policy defaults.
type HTTPFetchInput struct {
	URL       string `json:"url"`
	TimeoutMs *int   `json:"timeoutMs,omitempty"`
	MaxBytes  *int   `json:"maxBytes,omitempty"`
}

func (HTTPFetchInput) ToolName() string { return ToolHTTPFetch }
func (HTTPFetchInput) isToolInput()     {}

// FSReadInput is the input of an fs.read action.
type FSReadInput struct {
	Path     string `json:"path"`
	MaxBytes *int   `json:"maxBytes,omitempty"`
}

func (FSReadInput) ToolName() string { return ToolFSRead }
func (FSReadInput) isToolInput()     {}

// IntPtr is a small helper for building optional limits.
func IntPtr(v int) *int {
	return &v
}
