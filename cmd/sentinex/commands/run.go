package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MiBe1991/sentinex/internal/agent"
	"github.com/MiBe1991/sentinex/internal/approval"
	"github.com/MiBe1991/sentinex/internal/audit"
	"github.com/MiBe1991/sentinex/internal/metrics"
	"github.com/MiBe1991/sentinex/internal/provider"
	"github.com/MiBe1991/sentinex/internal/tools"
)

func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <prompt...>",
		Short: "Run a prompt through policy, the provider and approved tools",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runPrompt,
	}
	cmd.Flags().Bool("dry-run", false, "Evaluate policy without approval or tool execution")
	return cmd
}

func runPrompt(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmdContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	p, err := loadProject()
	if err != nil {
		return err
	}

	dryRun := p.cfg.LLM.DryRunDefault
	if cmd.Flags().Changed("dry-run") {
		dryRun, _ = cmd.Flags().GetBool("dry-run")
	}

	rt, recorder, err := buildRuntime(ctx, p)
	if err != nil {
		return err
	}

	prompt := strings.Join(args, " ")
	fmt.Printf(">>> Prompt: %s\n", prompt)
	result, runErr := rt.Run(ctx, prompt, agent.Options{DryRun: dryRun})
	fmt.Printf("Run ID: %s\n", result.RunID)
	for _, out := range result.Outputs {
		fmt.Printf("Result: %s\n", out)
	}

	if metricsFile := p.metricsPath(); metricsFile != "" {
		if err := recorder.WriteTextfile(metricsFile); err != nil {
			slog.Warn("write metrics failed", "path", metricsFile, "error", err)
		}
	}

	if runErr != nil {
		return fmt.Errorf("run failed: %w", runErr)
	}
	return nil
}

func buildRuntime(ctx context.Context, p *project) (*agent.Runtime, *metrics.RuntimeMetrics, error) {
	registry, err := tools.NewDefaultRegistry(p.dir)
	if err != nil {
		return nil, nil, err
	}
	infos, err := registry.Infos(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("describe tools: %w", err)
	}

	prov, err := provider.New(p.cfg.LLM, provider.WithToolInfos(infos))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create provider: %w", err)
	}

	mode, err := approval.ParseMode(p.cfg.Approval.Mode)
	if err != nil {
		return nil, nil, err
	}
	approver, err := approval.New(mode, os.Stdin, os.Stderr)
	if err != nil {
		return nil, nil, err
	}

	recorder := metrics.NewRuntimeMetrics()
	rt, err := agent.New(agent.Deps{
		Evaluator: p.evaluator,
		Provider:  prov,
		Tools:     registry,
		Approver:  approver,
		Config:    p.cfg,
		Audit:     p.auditWriter(),
		Metrics:   recorder,
		Logger:    slog.Default(),
	})
	if err != nil {
		return nil, nil, err
	}
	return rt, recorder, nil
}

func (p *project) auditWriter() *audit.Writer {
	return audit.NewWriter(audit.Options{
		Enabled:  p.cfg.Audit.Enabled,
		Path:     p.cfg.AuditPath(p.dir),
		MaxBytes: p.cfg.Audit.MaxBytes,
		MaxFiles: p.cfg.Audit.MaxFiles,
	})
}

func (p *project) metricsPath() string {
	file := strings.TrimSpace(p.cfg.Metrics.File)
	if file == "" || filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(p.dir, file)
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
