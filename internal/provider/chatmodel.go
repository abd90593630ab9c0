package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/MiBe1991/sentinex/internal/actions"
)

// ChatModelOptions configures a ChatModel.
type ChatModelOptions struct {
	SystemPrompt string
	// Timeout bounds a single Generate call. Zero means no bound.
	Timeout time.Duration
}

type connectFunc func(ctx context.Context) (model.BaseChatModel, error)

// ChatModel asks an eino chat model for a plan and decodes the JSON object
// in its reply.
type ChatModel struct {
	name    string
	opts    ChatModelOptions
	connect connectFunc

	mu    sync.Mutex
	model model.BaseChatModel
}

// NewChatModel wraps an already constructed model.
func NewChatModel(name string, m model.BaseChatModel, opts ChatModelOptions) *ChatModel {
	return &ChatModel{name: name, opts: opts, model: m}
}

// newLazyChatModel defers model construction, and with it API key lookup,
// to the first Generate call.
func newLazyChatModel(name string, connect connectFunc, opts ChatModelOptions) *ChatModel {
	return &ChatModel{name: name, opts: opts, connect: connect}
}

func (c *ChatModel) Name() string {
	return c.name
}

func (c *ChatModel) Generate(ctx context.Context, req Request) (any, error) {
	m, err := c.resolve(ctx)
	if err != nil {
		return nil, err
	}

	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	messages := make([]*schema.Message, 0, 2)
	if strings.TrimSpace(c.opts.SystemPrompt) != "" {
		messages = append(messages, schema.SystemMessage(c.opts.SystemPrompt))
	}
	messages = append(messages, schema.UserMessage(req.Prompt))

	resp, err := m.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", c.name, withStatus(err))
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return nil, fmt.Errorf("%s response did not include message content", c.name)
	}

	body, err := ExtractJSON(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.name, err)
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var plan any
	if err := dec.Decode(&plan); err != nil {
		return nil, fmt.Errorf("%s JSON parse failed: %w", c.name, err)
	}
	return plan, nil
}

func (c *ChatModel) resolve(ctx context.Context) (model.BaseChatModel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.model != nil {
		return c.model, nil
	}
	if c.connect == nil {
		return nil, fmt.Errorf("%s: no chat model configured", c.name)
	}
	m, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	c.model = m
	return m, nil
}

var fencedJSON = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)\\s*```")

// ErrNoJSON is returned when a model reply contains no JSON object.
var ErrNoJSON = errors.New("response did not contain JSON")

// ExtractJSON returns the JSON object embedded in a model reply: the whole
// reply, the body of a fenced block, or the span between the first '{' and
// the last '}'.
func ExtractJSON(raw string) ([]byte, error) {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		return []byte(trimmed), nil
	}
	if m := fencedJSON.FindStringSubmatch(trimmed); m != nil && strings.TrimSpace(m[1]) != "" {
		return []byte(strings.TrimSpace(m[1])), nil
	}
	first := strings.Index(trimmed, "{")
	last := strings.LastIndex(trimmed, "}")
	if first >= 0 && last > first {
		return []byte(trimmed[first : last+1]), nil
	}
	return nil, ErrNoJSON
}

// BuildSystemPrompt appends the plan schema and tool descriptions to the
// configured system prompt.
func BuildSystemPrompt(base string, infos []*schema.ToolInfo) (string, error) {
	planSchema, err := actions.Schema()
	if err != nil {
		return "", fmt.Errorf("build plan schema: %w", err)
	}

	var b strings.Builder
	b.WriteString(strings.TrimSpace(base))
	b.WriteString("\n\nThe plan must match this JSON schema:\n")
	b.Write(planSchema)
	if len(infos) > 0 {
		b.WriteString("\n\nAvailable tools:\n")
		for _, info := range infos {
			if info == nil {
				continue
			}
			fmt.Fprintf(&b, "- %s: %s\n", info.Name, info.Desc)
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
