package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/MiBe1991/sentinex/internal/actions"
	"github.com/MiBe1991/sentinex/internal/version"
)

// HTTPFetchResult is returned by http.fetch. Any HTTP status counts as a
// successful fetch; callers inspect Status.
type HTTPFetchResult struct {
	URL         string `json:"url"`
	Status      int    `json:"status"`
	ContentType string `json:"contentType,omitempty"`
	Location    string `json:"location,omitempty"`
	Body        string `json:"body"`
	Truncated   bool   `json:"truncated"`
}

// HTTPFetch performs GET requests.
type HTTPFetch struct {
	client *http.Client
}

// NewHTTPFetch creates the http.fetch executor. A nil client uses a fresh
// client without its own timeout; Limits.Timeout bounds each call.
// Redirects are never followed: only the policy-checked URL is contacted,
// and a 3xx response is returned as the result with its Location.
func NewHTTPFetch(client *http.Client) *HTTPFetch {
	c := &http.Client{}
	if client != nil {
		copied := *client
		c = &copied
	}
	c.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &HTTPFetch{client: c}
}

func (h *HTTPFetch) Info(_ context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: actions.ToolHTTPFetch,
		Desc: "Fetch a URL with HTTP GET and return the status and (possibly truncated) body",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"url":       {Type: schema.String, Desc: "Absolute http or https URL", Required: true},
			"timeoutMs": {Type: schema.Integer, Desc: "Optional timeout in milliseconds"},
			"maxBytes":  {Type: schema.Integer, Desc: "Optional maximum body bytes to return"},
		}),
	}, nil
}

func (h *HTTPFetch) Execute(ctx context.Context, input actions.ToolInput, limits Limits) (any, error) {
	in, ok := input.(actions.HTTPFetchInput)
	if !ok {
		return nil, fmt.Errorf("unexpected input type %T", input)
	}

	rawURL := strings.TrimSpace(in.URL)
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme: %q", parsed.Scheme)
	}

	if limits.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, limits.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", version.UserAgent("http-fetch"))
	if runID := InvocationFromContext(ctx).RunID; runID != "" {
		req.Header.Set(RunIDHeader, runID)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, truncated, err := readLimited(resp.Body, limits.MaxBytes)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return HTTPFetchResult{
		URL:         rawURL,
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Location:    resp.Header.Get("Location"),
		Body:        string(body),
		Truncated:   truncated,
	}, nil
}

// readLimited reads at most maxBytes and reports whether more data existed.
func readLimited(r io.Reader, maxBytes int) ([]byte, bool, error) {
	if maxBytes <= 0 {
		data, err := io.ReadAll(r)
		return data, false, err
	}
	data, err := io.ReadAll(io.LimitReader(r, int64(maxBytes)+1))
	if err != nil {
		return nil, false, err
	}
	if len(data) > maxBytes {
		return data[:maxBytes], true, nil
	}
	return data, false, nil
}
