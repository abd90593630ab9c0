package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MiBe1991/sentinex/internal/actions"
	"github.com/MiBe1991/sentinex/internal/approval"
	"github.com/MiBe1991/sentinex/internal/audit"
	"github.com/MiBe1991/sentinex/internal/config"
	"github.com/MiBe1991/sentinex/internal/metrics"
	"github.com/MiBe1991/sentinex/internal/policy"
	"github.com/MiBe1991/sentinex/internal/provider"
	"github.com/MiBe1991/sentinex/internal/tools"
)

const dryRunMarker = "[dry-run]"

// Deps are the collaborators of a Runtime.
type Deps struct {
	Evaluator policy.Evaluator
	Provider  provider.Provider
	Tools     *tools.Registry
	Approver  approval.Approver
	// Config is copied into every run; nil means config.DefaultConfig.
	Config *config.Config
	// Audit may be nil, in which case nothing is recorded.
	Audit   *audit.Writer
	Metrics *metrics.RuntimeMetrics
	Logger  *slog.Logger
	// NewRunID overrides run ID generation.
	NewRunID func() string
}

// Options control a single run.
type Options struct {
	DryRun bool
}

// Result is returned by a successful run.
type Result struct {
	RunID   string
	Outputs []string
}

// RunContext is the per-run state shared by every step of a run. It is
// built once at run start and not modified afterwards.
type RunContext struct {
	RunID  string
	DryRun bool
	Config config.Config
	Policy policy.Config
	Logger *slog.Logger
}

// Runtime drives prompt evaluation, plan generation and the action loop.
// A Runtime is safe for concurrent runs; each run is sequential.
type Runtime struct {
	evaluator policy.Evaluator
	provider  provider.Provider
	tools     *tools.Registry
	approver  approval.Approver
	config    config.Config
	audit     *audit.Writer
	metrics   *metrics.RuntimeMetrics
	logger    *slog.Logger
	newRunID  func() string
	now       func() time.Time
}

// New validates deps and builds a Runtime.
func New(deps Deps) (*Runtime, error) {
	if deps.Provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if deps.Tools == nil {
		return nil, fmt.Errorf("tool registry is required")
	}
	if deps.Approver == nil {
		return nil, fmt.Errorf("approver is required")
	}

	rt := &Runtime{
		evaluator: deps.Evaluator,
		provider:  deps.Provider,
		tools:     deps.Tools,
		approver:  deps.Approver,
		audit:     deps.Audit,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		newRunID:  deps.NewRunID,
		now:       time.Now,
	}
	if deps.Config != nil {
		rt.config = *deps.Config
	} else {
		rt.config = *config.DefaultConfig()
	}
	if rt.audit == nil {
		rt.audit = audit.NewWriter(audit.Options{Enabled: false})
	}
	if rt.logger == nil {
		rt.logger = slog.Default()
	}
	if rt.newRunID == nil {
		rt.newRunID = uuid.NewString
	}
	return rt, nil
}

// Run executes one prompt end to end. Outputs are only returned when every
// action succeeded. A run.finished record is written on every exit path
// once run.started has been recorded, including panics.
func (r *Runtime) Run(ctx context.Context, prompt string, opts Options) (result Result, err error) {
	rc := r.newRunContext(opts)
	result.RunID = rc.RunID

	if err := r.audit.Append(audit.RunStarted(rc.RunID, prompt, rc.DryRun)); err != nil {
		return result, fmt.Errorf("record run start: %w", err)
	}
	rc.Logger.Info("run started",
		"dry_run", rc.DryRun,
		"provider", r.provider.Name(),
		"approval_mode", rc.Config.Approval.Mode,
	)
	start := r.now()

	defer func() {
		if p := recover(); p != nil {
			r.finish(rc, fmt.Errorf("panic: %v", p), start)
			panic(p)
		}
		if finishErr := r.finish(rc, err, start); finishErr != nil {
			err = errors.Join(err, finishErr)
		}
		if err != nil {
			result.Outputs = nil
		}
	}()

	outputs, err := r.execute(ctx, rc, prompt)
	if err != nil {
		return result, err
	}
	result.Outputs = outputs
	return result, nil
}

func (r *Runtime) newRunContext(opts Options) *RunContext {
	runID := r.newRunID()
	return &RunContext{
		RunID:  runID,
		DryRun: opts.DryRun,
		Config: r.config,
		Policy: r.evaluator.Config(),
		Logger: r.logger.With("run_id", runID),
	}
}

func (r *Runtime) finish(rc *RunContext, runErr error, start time.Time) error {
	status := audit.StatusOK
	if runErr != nil {
		status = audit.StatusError
	}
	r.metrics.RecordRun(status)

	attrs := []any{"status", status, "duration_ms", r.now().Sub(start).Milliseconds()}
	if runErr != nil {
		rc.Logger.Warn("run finished", append(attrs, "error", runErr)...)
	} else {
		rc.Logger.Info("run finished", attrs...)
	}

	if err := r.audit.Append(audit.RunFinished(rc.RunID, runErr)); err != nil {
		return fmt.Errorf("record run finish: %w", err)
	}
	return nil
}

func (r *Runtime) execute(ctx context.Context, rc *RunContext, prompt string) ([]string, error) {
	decision := r.evaluator.EvaluatePromptDetailed(prompt)
	r.metrics.RecordDecision(policy.TargetPrompt, decision.Allowed)
	if !decision.Allowed {
		rc.Logger.Warn("prompt denied", "stage", decision.Stage, "reason", decision.Reason)
		if err := r.record(audit.PolicyDecision(rc.RunID, false, decision.Reason, promptAction())); err != nil {
			return nil, err
		}
		return nil, &policy.DeniedError{Target: policy.TargetPrompt, Reason: decision.Reason}
	}

	plan, err := r.generate(ctx, rc, prompt)
	if err != nil {
		return nil, err
	}

	outputs := make([]string, 0, len(plan.Actions))
	for _, action := range plan.Actions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.record(audit.ActionRequested(rc.RunID, action)); err != nil {
			return nil, err
		}

		switch a := action.(type) {
		case actions.Respond:
			outputs = append(outputs, a.Text)
			if err := r.record(audit.ActionResult(rc.RunID, true, a.Text, a)); err != nil {
				return nil, err
			}
		case actions.Tool:
			out, err := r.runTool(ctx, rc, a)
			if err != nil {
				return nil, err
			}
			outputs = append(outputs, out)
		default:
			return nil, fmt.Errorf("unhandled action type %T", action)
		}
	}
	return outputs, nil
}

func (r *Runtime) generate(ctx context.Context, rc *RunContext, prompt string) (actions.Plan, error) {
	start := r.now()
	raw, err := r.provider.Generate(ctx, provider.Request{Prompt: prompt})
	r.metrics.RecordProviderCall(r.provider.Name(), err)
	if err != nil {
		rc.Logger.Warn("plan generation failed", "provider", r.provider.Name(), "error", err)
		var failed *provider.FailedError
		if errors.As(err, &failed) {
			return actions.Plan{}, err
		}
		return actions.Plan{}, &provider.FailedError{Provider: r.provider.Name(), Err: err}
	}

	plan, err := actions.Validate(raw)
	if err != nil {
		rc.Logger.Warn("plan rejected", "error", err)
		return actions.Plan{}, err
	}
	rc.Logger.Debug("plan generated",
		"provider", r.provider.Name(),
		"actions", len(plan.Actions),
		"duration_ms", r.now().Sub(start).Milliseconds(),
	)
	return plan, nil
}

func (r *Runtime) runTool(ctx context.Context, rc *RunContext, action actions.Tool) (string, error) {
	name := action.Name()
	decision := r.evaluator.EvaluateTool(action.Input)
	r.metrics.RecordDecision(name, decision.Allowed)
	rc.Logger.Info("policy decision", "tool", name, "allowed", decision.Allowed, "reason", decision.Reason)
	if err := r.record(audit.PolicyDecision(rc.RunID, decision.Allowed, decision.Reason, action)); err != nil {
		return "", err
	}
	if !decision.Allowed {
		return "", &policy.DeniedError{Target: name, Reason: decision.Reason}
	}

	if rc.DryRun {
		if err := r.record(audit.DryRunResult(rc.RunID, dryRunMarker, action)); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s", dryRunMarker, summary(action)), nil
	}

	approved, err := r.approver.Ask(ctx, fmt.Sprintf("Approve %s?", summary(action)))
	if err != nil {
		return "", fmt.Errorf("approval for %s: %w", name, err)
	}
	if !approved {
		rc.Logger.Warn("approval refused", "tool", name)
		return "", &policy.DeniedError{Target: name, Reason: "denied by user approval"}
	}

	start := r.now()
	toolCtx := tools.WithInvocationContext(ctx, tools.InvocationContext{RunID: rc.RunID})
	result, execErr := r.tools.Execute(toolCtx, action, rc.Policy)
	duration := r.now().Sub(start)
	r.metrics.RecordToolExecution(name, duration, execErr)
	rc.Logger.Info("tool execution finished",
		"tool", name,
		"duration_ms", duration.Milliseconds(),
		"success", execErr == nil,
	)
	if execErr != nil {
		if err := r.record(audit.ActionResult(rc.RunID, false, execErr.Error(), action)); err != nil {
			return "", errors.Join(execErr, err)
		}
		return "", execErr
	}

	if err := r.record(audit.ActionResult(rc.RunID, true, result, action)); err != nil {
		return "", err
	}
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode %s result: %w", name, err)
	}
	return string(out), nil
}

func (r *Runtime) record(event audit.Event) error {
	if err := r.audit.Append(event); err != nil {
		return fmt.Errorf("record %s: %w", event.Type, err)
	}
	return nil
}

func promptAction() map[string]string {
	return map[string]string{"type": policy.TargetPrompt}
}

func summary(action actions.Action) string {
	switch a := action.(type) {
	case actions.Respond:
		return fmt.Sprintf("respond(%q)", a.Text)
	case actions.Tool:
		return fmt.Sprintf("tool(%s)", a.Name())
	default:
		return action.Type()
	}
}
