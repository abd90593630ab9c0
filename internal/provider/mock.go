package provider

import (
	"context"
	"regexp"

	"github.com/MiBe1991/sentinex/internal/actions"
)

var (
	mockURLPattern  = regexp.MustCompile(`(?i)https?://\S+`)
	mockReadPattern = regexp.MustCompile(`(?i)\bread\s+(\S+)\b`)
)

// Mock is a deterministic provider for local runs and tests. A URL in the
// prompt becomes an http.fetch, "read <path>" becomes an fs.read, and
// anything else is echoed back.
type Mock struct{}

func NewMock() *Mock {
	return &Mock{}
}

func (*Mock) Name() string {
	return NameMock
}

func (*Mock) Generate(_ context.Context, req Request) (any, error) {
	if url := mockURLPattern.FindString(req.Prompt); url != "" {
		return toolPlan(actions.ToolHTTPFetch, map[string]any{"url": url}), nil
	}
	if m := mockReadPattern.FindStringSubmatch(req.Prompt); m != nil {
		return toolPlan(actions.ToolFSRead, map[string]any{"path": m[1]}), nil
	}
	return map[string]any{
		"actions": []any{
			map[string]any{"type": actions.TypeRespond, "text": "Echo: " + req.Prompt},
		},
	}, nil
}

func toolPlan(tool string, input map[string]any) map[string]any {
	return map[string]any{
		"actions": []any{
			map[string]any{"type": actions.TypeTool, "tool": tool, "input": input},
		},
	}
}
