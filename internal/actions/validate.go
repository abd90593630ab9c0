package actions

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// InvalidPlanError reports why provider output was rejected. Index is -1
// for plan-level problems.
type InvalidPlanError struct {
	Index  int
	Reason string
}

func (e *InvalidPlanError) Error() string {
	if e.Index < 0 {
		return "invalid action plan: " + e.Reason
	}
	return fmt.Sprintf("invalid action plan: actions[%d]: %s", e.Index, e.Reason)
}

// ParseJSON decodes raw provider output and validates it.
func ParseJSON(data []byte) (Plan, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Plan{}, &InvalidPlanError{Index: -1, Reason: fmt.Sprintf("decode json: %v", err)}
	}
	return Validate(raw)
}

// Validate converts an untyped, JSON-shaped value into a Plan. Either the
// whole plan is accepted or none of it is.
func Validate(raw any) (Plan, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return Plan{}, &InvalidPlanError{Index: -1, Reason: "plan must be an object"}
	}
	items, ok := obj["actions"].([]any)
	if !ok {
		return Plan{}, &InvalidPlanError{Index: -1, Reason: "plan requires an actions array"}
	}

	plan := Plan{Actions: make([]Action, 0, len(items))}
	for i, item := range items {
		action, reason := parseAction(item)
		if reason != "" {
			return Plan{}, &InvalidPlanError{Index: i, Reason: reason}
		}
		plan.Actions = append(plan.Actions, action)
	}
	return plan, nil
}

func parseAction(value any) (Action, string) {
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, "action must be an object"
	}

	switch obj["type"] {
	case TypeRespond:
		text, ok := obj["text"].(string)
		if !ok {
			return nil, "respond action requires text"
		}
		return Respond{Text: text}, ""
	case TypeTool:
		name, _ := obj["tool"].(string)
		input, ok := obj["input"].(map[string]any)
		switch name {
		case ToolHTTPFetch, ToolFSRead:
		default:
			return nil, fmt.Sprintf("unsupported tool %q", name)
		}
		if !ok {
			return nil, name + " action requires an input object"
		}
		parsed, reason := parseToolInput(name, input)
		if reason != "" {
			return nil, reason
		}
		return Tool{Input: parsed}, ""
	default:
		return nil, fmt.Sprintf("unknown action type %v", obj["type"])
	}
}

func parseToolInput(name string, obj map[string]any) (ToolInput, string) {
	maxBytes, reason := optionalPositiveInt(obj, name, "maxBytes")
	if reason != "" {
		return nil, reason
	}

	if name == ToolHTTPFetch {
		rawURL, ok := obj["url"].(string)
		if !ok || rawURL == "" {
			return nil, "http.fetch input requires url"
		}
		timeoutMs, reason := optionalPositiveInt(obj, name, "timeoutMs")
		if reason != "" {
			return nil, reason
		}
		return HTTPFetchInput{URL: rawURL, TimeoutMs: timeoutMs, MaxBytes: maxBytes}, ""
	}

	path, ok := obj["path"].(string)
	if !ok || path == "" {
		return nil, "fs.read input requires path"
	}
	return FSReadInput{Path: path, MaxBytes: maxBytes}, ""
}

func optionalPositiveInt(obj map[string]any, tool, key string) (*int, string) {
	value, present := obj[key]
	if !present || value == nil {
		return nil, ""
	}
	n, ok := toPositiveInt(value)
	if !ok {
		return nil, fmt.Sprintf("%s %s must be a positive integer", tool, key)
	}
	return &n, ""
}

func toPositiveInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, v > 0
	case int64:
		return int(v), v > 0 && v <= math.MaxInt32
	case float64:
		if v != math.Trunc(v) || v <= 0 || v > math.MaxInt32 {
			return 0, false
		}
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			f, ferr := v.Float64()
			if ferr != nil {
				return 0, false
			}
			return toPositiveInt(f)
		}
		return int(n), n > 0 && n <= math.MaxInt32
	default:
		return 0, false
	}
}
