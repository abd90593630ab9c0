package metrics

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sentinex"

// Tool execution outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
)

// RuntimeMetrics records run, policy and tool metrics on a private
// registry. A nil *RuntimeMetrics is valid and records nothing.
type RuntimeMetrics struct {
	registry *prometheus.Registry

	runs           *prometheus.CounterVec
	decisions      *prometheus.CounterVec
	toolExecutions *prometheus.CounterVec
	toolDuration   *prometheus.HistogramVec
	providerCalls  *prometheus.CounterVec
}

// NewRuntimeMetrics creates and registers all collectors.
func NewRuntimeMetrics() *RuntimeMetrics {
	m := &RuntimeMetrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Completed runs by final status",
			},
			[]string{"status"},
		),
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "policy_decisions_total",
				Help:      "Policy decisions by target and verdict",
			},
			[]string{"target", "allowed"},
		),
		toolExecutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_executions_total",
				Help:      "Tool executions by tool and outcome",
			},
			[]string{"tool", "outcome"},
		),
		toolDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tool_duration_seconds",
				Help:      "Tool execution latency",
				Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"tool"},
		),
		providerCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_calls_total",
				Help:      "Plan generation calls by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
	}
	m.registry.MustRegister(m.runs, m.decisions, m.toolExecutions, m.toolDuration, m.providerCalls)
	return m
}

// Registry exposes the underlying registry.
func (m *RuntimeMetrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRun counts a finished run.
func (m *RuntimeMetrics) RecordRun(status string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(status).Inc()
}

// RecordDecision counts a policy verdict. target is "prompt" or a tool name.
func (m *RuntimeMetrics) RecordDecision(target string, allowed bool) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(target, strconv.FormatBool(allowed)).Inc()
}

// RecordToolExecution counts a tool call and observes its latency.
func (m *RuntimeMetrics) RecordToolExecution(tool string, duration time.Duration, runErr error) {
	if m == nil {
		return
	}
	if duration < 0 {
		duration = 0
	}
	outcome := OutcomeOK
	if runErr != nil {
		outcome = OutcomeError
		if isTimeoutError(runErr) {
			outcome = OutcomeTimeout
		}
	}
	m.toolExecutions.WithLabelValues(tool, outcome).Inc()
	m.toolDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// RecordProviderCall counts one Generate call.
func (m *RuntimeMetrics) RecordProviderCall(provider string, runErr error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if runErr != nil {
		outcome = OutcomeError
	}
	m.providerCalls.WithLabelValues(provider, outcome).Inc()
}

// WriteTextfile writes the registry in the Prometheus text format, for the
// node_exporter textfile collector.
func (m *RuntimeMetrics) WriteTextfile(path string) error {
	if m == nil || strings.TrimSpace(path) == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func isTimeoutError(runErr error) bool {
	if errors.Is(runErr, context.DeadlineExceeded) {
		return true
	}
	lowered := strings.ToLower(runErr.Error())
	return strings.Contains(lowered, "deadline exceeded") ||
		strings.Contains(lowered, "timeout") ||
		strings.Contains(lowered, "timed out")
}
