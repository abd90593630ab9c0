package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/MiBe1991/sentinex/internal/audit"
)

func NewLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Read the audit trail",
	}

	cmd.AddCommand(
		newLogsShowCmd(),
		newLogsExportCmd(),
	)

	return cmd
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("run-id", "", "Only events of this run")
	cmd.Flags().String("type", "", "Only events of this type (e.g. policy.decision)")
	cmd.Flags().String("since", "", "Only events at or after this RFC3339 time")
	cmd.Flags().String("until", "", "Only events at or before this RFC3339 time")
}

func newLogsShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the most recent audit events",
		RunE:  runLogsShow,
	}
	cmd.Flags().Int("limit", 20, "Maximum number of events to show")
	cmd.Flags().Bool("json", false, "Print events as JSON")
	addFilterFlags(cmd)
	return cmd
}

func newLogsExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export audit events to a file",
		RunE:  runLogsExport,
	}
	cmd.Flags().String("output", "", "Destination file (required)")
	cmd.Flags().String("format", "jsonl", "Output format (json|jsonl)")
	addFilterFlags(cmd)
	return cmd
}

func filterFromFlags(cmd *cobra.Command) (audit.Filter, error) {
	runID, _ := cmd.Flags().GetString("run-id")
	eventType, _ := cmd.Flags().GetString("type")
	since, _ := cmd.Flags().GetString("since")
	until, _ := cmd.Flags().GetString("until")
	return audit.ParseFilter(runID, eventType, since, until)
}

func loadEvents(cmd *cobra.Command) (*project, []audit.Event, error) {
	filter, err := filterFromFlags(cmd)
	if err != nil {
		return nil, nil, err
	}
	p, err := loadProject()
	if err != nil {
		return nil, nil, err
	}
	events, err := audit.ReadEvents(p.cfg.AuditPath(p.dir), p.cfg.Audit.MaxFiles)
	if err != nil {
		return nil, nil, fmt.Errorf("read audit log: %w", err)
	}
	return p, filter.Apply(events), nil
}

func runLogsShow(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	asJSON, _ := cmd.Flags().GetBool("json")
	if limit <= 0 {
		limit = 20
	}

	p, events, err := loadEvents(cmd)
	if err != nil {
		return err
	}
	events = audit.Tail(events, limit)

	if asJSON {
		if events == nil {
			events = []audit.Event{}
		}
		data, err := json.MarshalIndent(events, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	if len(events) == 0 {
		path := p.cfg.AuditPath(p.dir)
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			fmt.Printf("No audit log found at %s\n", path)
			return nil
		}
		fmt.Println("No matching audit events.")
		return nil
	}

	rows := make([][]string, 0, len(events))
	for _, e := range events {
		rows = append(rows, []string{e.Timestamp, string(e.Type), e.RunID, eventDetail(e)})
	}
	printTable("Audit Events", []column{
		{title: "TIMESTAMP", width: 24},
		{title: "TYPE", width: 17},
		{title: "RUN ID", width: 36},
		{title: "DETAIL", width: 60},
	}, rows, func(row, col int) lipgloss.TerminalColor {
		if col != 3 {
			return nil
		}
		return detailColor(events[row])
	})
	return nil
}

func eventDetail(e audit.Event) string {
	switch e.Type {
	case audit.TypeRunStarted:
		parts := []string{}
		if e.Prompt != nil {
			parts = append(parts, fmt.Sprintf("prompt=%q", *e.Prompt))
		}
		if e.DryRun != nil && *e.DryRun {
			parts = append(parts, "dry-run")
		}
		return strings.Join(parts, " ")
	case audit.TypePolicyDecision:
		verdict := "denied"
		if e.Allowed != nil && *e.Allowed {
			verdict = "allowed"
		}
		return fmt.Sprintf("%s: %s", verdict, e.Reason)
	case audit.TypeActionRequested:
		return compactJSON(e.Action)
	case audit.TypeActionResult:
		outcome := "failure"
		if e.Success != nil && *e.Success {
			outcome = "success"
		}
		if e.DryRun != nil && *e.DryRun {
			outcome += " (dry-run)"
		}
		return outcome
	case audit.TypeRunFinished:
		if e.Error != "" {
			return fmt.Sprintf("%s: %s", e.Status, e.Error)
		}
		return e.Status
	default:
		return ""
	}
}

func detailColor(e audit.Event) lipgloss.TerminalColor {
	switch {
	case e.Allowed != nil && !*e.Allowed, e.Success != nil && !*e.Success, e.Status == audit.StatusError:
		return errColor
	case e.Allowed != nil, e.Success != nil, e.Status == audit.StatusOK:
		return okColor
	default:
		return dimColor
	}
}

func compactJSON(v any) string {
	if v == nil {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func runLogsExport(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	format, _ := cmd.Flags().GetString("format")
	output = strings.TrimSpace(output)
	if output == "" {
		return fmt.Errorf("--output is required")
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format != "json" && format != "jsonl" {
		return fmt.Errorf("invalid --format value %q: expected json or jsonl", format)
	}

	_, events, err := loadEvents(cmd)
	if err != nil {
		return err
	}

	data, err := encodeEvents(events, format)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(output, data, 0644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Printf("Exported %d event(s) to %s\n", len(events), output)
	return nil
}

func encodeEvents(events []audit.Event, format string) ([]byte, error) {
	if format == "json" {
		if events == nil {
			events = []audit.Event{}
		}
		data, err := json.MarshalIndent(events, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range events {
		if err := enc.Encode(e); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
