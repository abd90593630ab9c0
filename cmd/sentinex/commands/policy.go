package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/MiBe1991/sentinex/internal/actions"
	"github.com/MiBe1991/sentinex/internal/policy"
)

func NewPolicyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect and check the policy",
	}

	cmd.AddCommand(
		newPolicyTestCmd(),
		newPolicyLintCmd(),
	)

	return cmd
}

func newPolicyTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Evaluate a prompt or tool input against the policy",
		Example: `  sentinex policy test --prompt "summarize the report"
  sentinex policy test --tool http.fetch --url https://example.com
  sentinex policy test --tool fs.read --path ./templates/a.txt`,
		RunE: runPolicyTest,
	}
	cmd.Flags().String("prompt", "", "Prompt text to evaluate")
	cmd.Flags().String("tool", "", "Tool to evaluate (http.fetch|fs.read)")
	cmd.Flags().String("url", "", "URL for http.fetch")
	cmd.Flags().String("path", "", "Path for fs.read")
	return cmd
}

func newPolicyLintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Report risky or ineffective policy settings",
		RunE:  runPolicyLint,
	}
	cmd.Flags().Bool("json", false, "Print findings as JSON")
	cmd.Flags().String("fail-on", "error", "Exit non-zero on findings of this severity or worse (error|warn|never)")
	return cmd
}

type policyTestOutput struct {
	Target         string            `json:"target"`
	Input          map[string]string `json:"input,omitempty"`
	Allowed        bool              `json:"allowed"`
	Reason         string            `json:"reason"`
	Stage          policy.Stage      `json:"stage,omitempty"`
	MatchedPattern string            `json:"matchedPattern,omitempty"`
}

func runPolicyTest(cmd *cobra.Command, args []string) error {
	prompt, _ := cmd.Flags().GetString("prompt")
	tool, _ := cmd.Flags().GetString("tool")
	rawURL, _ := cmd.Flags().GetString("url")
	path, _ := cmd.Flags().GetString("path")

	p, err := loadProject()
	if err != nil {
		return err
	}

	var out policyTestOutput
	switch {
	case prompt != "":
		eval := p.evaluator.EvaluatePromptDetailed(prompt)
		out = policyTestOutput{
			Target:         policy.TargetPrompt,
			Allowed:        eval.Allowed,
			Reason:         eval.Reason,
			Stage:          eval.Stage,
			MatchedPattern: eval.MatchedPattern,
		}
	case tool == actions.ToolHTTPFetch && rawURL != "":
		d := p.evaluator.EvaluateTool(actions.HTTPFetchInput{URL: rawURL})
		out = policyTestOutput{Target: tool, Input: map[string]string{"url": rawURL}, Allowed: d.Allowed, Reason: d.Reason}
	case tool == actions.ToolFSRead && path != "":
		d := p.evaluator.EvaluateTool(actions.FSReadInput{Path: path})
		out = policyTestOutput{Target: tool, Input: map[string]string{"path": path}, Allowed: d.Allowed, Reason: d.Reason}
	default:
		return fmt.Errorf("usage: sentinex policy test --prompt <text> | --tool http.fetch --url <url> | --tool fs.read --path <path>")
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func runPolicyLint(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	failOn, _ := cmd.Flags().GetString("fail-on")
	failOn = strings.ToLower(strings.TrimSpace(failOn))
	switch failOn {
	case "error", "warn", "never":
	default:
		return fmt.Errorf("invalid --fail-on value %q: expected error, warn or never", failOn)
	}

	p, err := loadProject()
	if err != nil {
		return err
	}

	findings := policy.Lint(p.policy, policy.WithWorkingDirectory(p.dir))
	errs, warns := policy.CountBySeverity(findings)

	if asJSON {
		if findings == nil {
			findings = []policy.Finding{}
		}
		data, err := json.MarshalIndent(map[string]any{
			"findings": findings,
			"errors":   errs,
			"warnings": warns,
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	} else {
		printFindings(findings)
		fmt.Printf("\n%d error(s), %d warning(s)\n", errs, warns)
	}

	if errs > 0 && failOn != "never" {
		return fmt.Errorf("policy lint failed with %d error(s)", errs)
	}
	if warns > 0 && failOn == "warn" {
		return fmt.Errorf("policy lint failed with %d warning(s)", warns)
	}
	return nil
}

func printFindings(findings []policy.Finding) {
	if len(findings) == 0 {
		fmt.Println("No policy findings.")
		return
	}
	rows := make([][]string, 0, len(findings))
	for _, f := range findings {
		rows = append(rows, []string{string(f.Severity), f.Code, f.Message})
	}
	printTable("Policy Findings", []column{
		{title: "SEVERITY", width: 9},
		{title: "CODE", width: 26},
		{title: "MESSAGE", width: 70},
	}, rows, func(row, col int) lipgloss.TerminalColor {
		if col != 0 {
			return nil
		}
		if findings[row].Severity == policy.SeverityError {
			return errColor
		}
		return warnColor
	})
}
