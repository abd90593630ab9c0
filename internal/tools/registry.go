package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/MiBe1991/sentinex/internal/actions"
	"github.com/MiBe1991/sentinex/internal/policy"
)

// Limits bound a single tool invocation.
type Limits struct {
	Timeout  time.Duration
	MaxBytes int
}

// Executor performs one kind of tool action. Executors do not consult the
// policy; the runtime has already approved the action.
type Executor interface {
	Info(ctx context.Context) (*schema.ToolInfo, error)
	Execute(ctx context.Context, input actions.ToolInput, limits Limits) (any, error)
}

// Registry manages executors by tool name.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Executor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Executor)}
}

// NewDefaultRegistry registers http.fetch and fs.read. fs.read resolves
// relative paths against workDir.
func NewDefaultRegistry(workDir string) (*Registry, error) {
	r := NewRegistry()
	for _, exec := range []Executor{NewHTTPFetch(nil), NewFSRead(workDir)} {
		if err := r.Register(exec); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds an executor under the name reported by its Info.
func (r *Registry) Register(exec Executor) error {
	info, err := exec.Info(context.Background())
	if err != nil {
		return err
	}
	if info == nil || info.Name == "" {
		return fmt.Errorf("tool info missing name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[info.Name]; exists {
		return fmt.Errorf("tool already registered: %s", info.Name)
	}
	r.tools[info.Name] = exec
	return nil
}

// Get retrieves an executor by name.
func (r *Registry) Get(name string) (Executor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exec, ok := r.tools[name]
	return exec, ok
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Infos returns tool descriptions in name order.
func (r *Registry) Infos(ctx context.Context) ([]*schema.ToolInfo, error) {
	names := r.Names()
	infos := make([]*schema.ToolInfo, 0, len(names))
	for _, name := range names {
		exec, _ := r.Get(name)
		info, err := exec.Info(ctx)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Execute runs a tool action with limits merged from the action and the
// policy defaults. Failures are returned as *ExecutionError.
func (r *Registry) Execute(ctx context.Context, tool actions.Tool, pol policy.Config) (any, error) {
	name := tool.Name()
	exec, ok := r.Get(name)
	if !ok {
		return nil, &ExecutionError{Tool: name, Err: fmt.Errorf("tool not registered")}
	}

	result, err := exec.Execute(ctx, tool.Input, ResolveLimits(tool.Input, pol))
	if err != nil {
		return nil, &ExecutionError{Tool: name, Err: err}
	}
	return result, nil
}

// ResolveLimits prefers per-action overrides and falls back to the policy.
func ResolveLimits(input actions.ToolInput, pol policy.Config) Limits {
	switch in := input.(type) {
	case actions.HTTPFetchInput:
		rule := pol.Allow.Tools.HTTPFetch
		timeoutMs := pick(in.TimeoutMs, rule.TimeoutMs, policy.DefaultHTTPTimeoutMs)
		return Limits{
			Timeout:  time.Duration(timeoutMs) * time.Millisecond,
			MaxBytes: pick(in.MaxBytes, rule.MaxBytes, policy.DefaultMaxBytes),
		}
	case actions.FSReadInput:
		return Limits{
			MaxBytes: pick(in.MaxBytes, pol.Allow.Tools.FSRead.MaxBytes, policy.DefaultMaxBytes),
		}
	default:
		return Limits{}
	}
}

func pick(override *int, configured, fallback int) int {
	if override != nil && *override > 0 {
		return *override
	}
	if configured > 0 {
		return configured
	}
	return fallback
}
