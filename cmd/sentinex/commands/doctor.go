package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/MiBe1991/sentinex/internal/config"
	"github.com/MiBe1991/sentinex/internal/policy"
	"github.com/MiBe1991/sentinex/internal/provider"
)

type checkStatus string

const (
	checkOK   checkStatus = "ok"
	checkWarn checkStatus = "warn"
	checkFail checkStatus = "fail"
)

type doctorCheck struct {
	Name   string      `json:"name"`
	Status checkStatus `json:"status"`
	Detail string      `json:"detail"`
}

func NewDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check config, policy, provider and audit setup",
		RunE:  runDoctor,
	}
	cmd.Flags().Bool("json", false, "Print checks as JSON")
	cmd.Flags().Bool("strict", false, "Treat warnings as failures")
	return cmd
}

func runDoctor(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	strict, _ := cmd.Flags().GetBool("strict")

	dir, err := resolveProjectDir()
	if err != nil {
		return err
	}
	checks := collectChecks(dir, os.LookupEnv)

	var fails, warns int
	for _, c := range checks {
		switch c.Status {
		case checkFail:
			fails++
		case checkWarn:
			warns++
		}
	}

	if asJSON {
		data, err := json.MarshalIndent(map[string]any{
			"checks":   checks,
			"failures": fails,
			"warnings": warns,
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	} else {
		printChecks(checks)
		fmt.Printf("\n%d failure(s), %d warning(s)\n", fails, warns)
	}

	if fails > 0 {
		return fmt.Errorf("doctor found %d failure(s)", fails)
	}
	if strict && warns > 0 {
		return fmt.Errorf("doctor found %d warning(s) in strict mode", warns)
	}
	return nil
}

func collectChecks(dir string, lookupEnv func(string) (string, bool)) []doctorCheck {
	var checks []doctorCheck

	cfg, err := config.Load(dir)
	if err != nil {
		checks = append(checks, doctorCheck{Name: "config", Status: checkFail, Detail: err.Error()})
		cfg = config.DefaultConfig()
	} else if _, statErr := os.Stat(config.Path(dir)); errors.Is(statErr, fs.ErrNotExist) {
		checks = append(checks, doctorCheck{Name: "config", Status: checkWarn, Detail: "no config file, using defaults (run 'sentinex init')"})
	} else {
		checks = append(checks, doctorCheck{Name: "config", Status: checkOK, Detail: config.Path(dir)})
	}

	checks = append(checks, policyChecks(dir)...)
	checks = append(checks, providerCheck(cfg.LLM, lookupEnv))
	checks = append(checks, auditCheck(cfg, dir))

	if cfg.Approval.Mode == "auto-approve" {
		checks = append(checks, doctorCheck{Name: "approval", Status: checkWarn, Detail: "auto-approve runs every policy-allowed tool without asking"})
	} else {
		checks = append(checks, doctorCheck{Name: "approval", Status: checkOK, Detail: "mode " + cfg.Approval.Mode})
	}
	return checks
}

func policyChecks(dir string) []doctorCheck {
	path := filepath.Join(dir, policy.DefaultPath)
	pol, err := policy.LoadFile(path)
	if err != nil {
		return []doctorCheck{{Name: "policy", Status: checkFail, Detail: err.Error()}}
	}

	var checks []doctorCheck
	if _, statErr := os.Stat(path); errors.Is(statErr, fs.ErrNotExist) {
		checks = append(checks, doctorCheck{Name: "policy", Status: checkWarn, Detail: "no policy file, every prompt and tool is denied"})
	} else {
		checks = append(checks, doctorCheck{Name: "policy", Status: checkOK, Detail: path})
	}

	findings := policy.Lint(pol, policy.WithWorkingDirectory(dir))
	errs, warns := policy.CountBySeverity(findings)
	lint := doctorCheck{Name: "policy lint", Status: checkOK, Detail: "no findings"}
	if len(findings) > 0 {
		codes := make([]string, 0, len(findings))
		for _, f := range findings {
			codes = append(codes, f.Code)
		}
		lint.Detail = fmt.Sprintf("%d error(s), %d warning(s): %s", errs, warns, strings.Join(codes, ", "))
		lint.Status = checkWarn
		if errs > 0 {
			lint.Status = checkFail
		}
	}
	return append(checks, lint)
}

func providerCheck(llm config.LLMConfig, lookupEnv func(string) (string, bool)) doctorCheck {
	switch llm.Provider {
	case provider.NameMock:
		return doctorCheck{Name: "provider", Status: checkOK, Detail: "mock provider"}
	case provider.NameOllama:
		return doctorCheck{Name: "provider", Status: checkOK, Detail: "ollama model " + llm.Model}
	}

	if key, ok := lookupEnv(llm.APIKeyEnv); ok && strings.TrimSpace(key) != "" {
		return doctorCheck{Name: "provider", Status: checkOK, Detail: fmt.Sprintf("%s model %s, key from %s", llm.Provider, llm.Model, llm.APIKeyEnv)}
	}
	detail := fmt.Sprintf("%s API key missing: set %s", llm.Provider, llm.APIKeyEnv)
	if llm.FallbackToMock {
		return doctorCheck{Name: "provider", Status: checkWarn, Detail: detail + " (falls back to mock)"}
	}
	return doctorCheck{Name: "provider", Status: checkFail, Detail: detail}
}

func auditCheck(cfg *config.Config, dir string) doctorCheck {
	if !cfg.Audit.Enabled {
		return doctorCheck{Name: "audit", Status: checkWarn, Detail: "audit trail disabled"}
	}
	path := cfg.AuditPath(dir)
	auditDir := filepath.Dir(path)
	if err := os.MkdirAll(auditDir, 0755); err != nil {
		return doctorCheck{Name: "audit", Status: checkFail, Detail: fmt.Sprintf("cannot create %s: %v", auditDir, err)}
	}
	tmp, err := os.CreateTemp(auditDir, ".doctor-*")
	if err != nil {
		return doctorCheck{Name: "audit", Status: checkFail, Detail: fmt.Sprintf("%s is not writable: %v", auditDir, err)}
	}
	_ = tmp.Close()
	_ = os.Remove(tmp.Name())
	return doctorCheck{Name: "audit", Status: checkOK, Detail: path}
}

func printChecks(checks []doctorCheck) {
	rows := make([][]string, 0, len(checks))
	for _, c := range checks {
		rows = append(rows, []string{c.Name, string(c.Status), c.Detail})
	}
	printTable("Sentinex Doctor", []column{
		{title: "CHECK", width: 12},
		{title: "STATUS", width: 7},
		{title: "DETAIL", width: 80},
	}, rows, func(row, col int) lipgloss.TerminalColor {
		if col != 1 {
			return nil
		}
		switch checks[row].Status {
		case checkFail:
			return errColor
		case checkWarn:
			return warnColor
		default:
			return okColor
		}
	})
}
