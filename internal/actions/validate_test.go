package actions

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_AcceptsMixedPlan(t *testing.T) {
	raw := map[string]any{
		"actions": []any{
			map[string]any{"type": "respond", "text": "hello"},
			map[string]any{"type": "tool", "tool": "http.fetch", "input": map[string]any{
				"url": "https://example.com", "timeoutMs": float64(1500), "maxBytes": float64(10),
			}},
			map[string]any{"type": "tool", "tool": "fs.read", "input": map[string]any{"path": "./notes.txt"}},
		},
	}

	plan, err := Validate(raw)
	require.NoError(t, err)
	require.Len(t, plan.Actions, 3)

	assert.Equal(t, Respond{Text: "hello"}, plan.Actions[0])

	fetch, ok := plan.Actions[1].(Tool)
	require.True(t, ok)
	assert.Equal(t, ToolHTTPFetch, fetch.Name())
	input, ok := fetch.Input.(HTTPFetchInput)
	require.True(t, ok)
	assert.Equal(t, "https://example.com", input.URL)
	require.NotNil(t, input.TimeoutMs)
	assert.Equal(t, 1500, *input.TimeoutMs)
	require.NotNil(t, input.MaxBytes)
	assert.Equal(t, 10, *input.MaxBytes)

	read, ok := plan.Actions[2].(Tool)
	require.True(t, ok)
	assert.Equal(t, FSReadInput{Path: "./notes.txt"}, read.Input)
}

func TestValidate_EmptyActionsIsValid(t *testing.T) {
	plan, err := Validate(map[string]any{"actions": []any{}})
	require.NoError(t, err)
	assert.Empty(t, plan.Actions)
}

func TestValidate_RejectsMalformedPlans(t *testing.T) {
	tests := []struct {
		name      string
		raw       any
		wantIndex int
		wantMsg   string
	}{
		{name: "not an object", raw: "plan", wantIndex: -1, wantMsg: "plan must be an object"},
		{name: "array root", raw: []any{}, wantIndex: -1, wantMsg: "plan must be an object"},
		{name: "missing actions", raw: map[string]any{}, wantIndex: -1, wantMsg: "actions array"},
		{name: "unknown type", raw: plan(map[string]any{"type": "exec"}), wantIndex: 0, wantMsg: "unknown action type"},
		{name: "respond without text", raw: plan(map[string]any{"type": "respond"}), wantIndex: 0, wantMsg: "requires text"},
		{name: "unsupported tool", raw: plan(map[string]any{"type": "tool", "tool": "exec", "input": map[string]any{}}), wantIndex: 0, wantMsg: "unsupported tool"},
		{name: "missing input", raw: plan(map[string]any{"type": "tool", "tool": "fs.read"}), wantIndex: 0, wantMsg: "input object"},
		{name: "empty url", raw: plan(map[string]any{"type": "tool", "tool": "http.fetch", "input": map[string]any{"url": ""}}), wantIndex: 0, wantMsg: "requires url"},
		{name: "empty path", raw: plan(map[string]any{"type": "tool", "tool": "fs.read", "input": map[string]any{"path": ""}}), wantIndex: 0, wantMsg: "requires path"},
		{name: "string timeout", raw: plan(map[string]any{"type": "tool", "tool": "http.fetch", "input": map[string]any{"url": "https://a", "timeoutMs": "5"}}), wantIndex: 0, wantMsg: "timeoutMs must be a positive integer"},
		{name: "zero maxBytes", raw: plan(map[string]any{"type": "tool", "tool": "fs.read", "input": map[string]any{"path": "a", "maxBytes": float64(0)}}), wantIndex: 0, wantMsg: "maxBytes must be a positive integer"},
		{name: "fractional maxBytes", raw: plan(map[string]any{"type": "tool", "tool": "fs.read", "input": map[string]any{"path": "a", "maxBytes": 1.5}}), wantIndex: 0, wantMsg: "maxBytes must be a positive integer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.raw)
			var invalid *InvalidPlanError
			require.True(t, errors.As(err, &invalid), "expected InvalidPlanError, got %v", err)
			assert.Equal(t, tt.wantIndex, invalid.Index)
			assert.Contains(t, invalid.Error(), tt.wantMsg)
		})
	}
}

func TestValidate_IsAllOrNothing(t *testing.T) {
	raw := map[string]any{
		"actions": []any{
			map[string]any{"type": "respond", "text": "ok"},
			map[string]any{"type": "respond"},
		},
	}

	plan, err := Validate(raw)
	require.Error(t, err)
	assert.Empty(t, plan.Actions)
	assert.Contains(t, err.Error(), "actions[1]")
}

func TestParseJSON_UsesIntegerNumbers(t *testing.T) {
	plan, err := ParseJSON([]byte(`{"actions":[{"type":"tool","tool":"fs.read","input":{"path":"a.txt","maxBytes":12}}]}`))
	require.NoError(t, err)

	tool := plan.Actions[0].(Tool)
	input := tool.Input.(FSReadInput)
	require.NotNil(t, input.MaxBytes)
	assert.Equal(t, 12, *input.MaxBytes)
}

func TestParseJSON_RejectsGarbage(t *testing.T) {
	_, err := ParseJSON([]byte(`not json`))
	var invalid *InvalidPlanError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, -1, invalid.Index)
}

func TestActionJSONShape(t *testing.T) {
	data, err := json.Marshal(Tool{Input: HTTPFetchInput{URL: "https://example.com", MaxBytes: IntPtr(5)}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"tool","tool":"http.fetch","input":{"url":"https://example.com","maxBytes":5}}`, string(data))

	data, err = json.Marshal(Respond{Text: "hi"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"respond","text":"hi"}`, string(data))
}

func TestSchema_DescribesPlan(t *testing.T) {
	data, err := Schema()
	require.NoError(t, err)

	text := string(data)
	assert.True(t, strings.Contains(text, `"actions"`))
	assert.True(t, strings.Contains(text, `"http.fetch"`))
	assert.True(t, strings.Contains(text, `"fs.read"`))
}

func plan(action map[string]any) map[string]any {
	return map[string]any{"actions": []any{action}}
}
