package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Severity of a lint finding.
type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warn"
)

// Finding is one lint result.
type Finding struct {
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

var allowAllPrompts = map[string]struct{}{
	".*":      {},
	"^.*$":    {},
	".+":      {},
	"^.+$":    {},
	"(.*)":    {},
	`[\s\S]*`: {},
}

// Lint reports risky or ineffective policy settings. It never changes how
// the policy evaluates.
func Lint(cfg Config, opts ...Option) []Finding {
	e := NewEvaluator(cfg, opts...)
	var findings []Finding
	add := func(code string, sev Severity, format string, args ...any) {
		findings = append(findings, Finding{Code: code, Severity: sev, Message: fmt.Sprintf(format, args...)})
	}

	if cfg.Default == VerdictAllow {
		add("DEFAULT_ALLOW", SeverityWarn, "default is allow: prompts matching no rule are sent to the provider")
	}

	for _, p := range e.denyPrompts {
		if p.err != nil {
			add("INVALID_PROMPT_REGEX", SeverityError, "deny.prompts pattern '%s' does not compile: %v", p.source, p.err)
		}
	}
	for _, p := range e.allowPrompts {
		if p.err != nil {
			add("INVALID_PROMPT_REGEX", SeverityError, "allow.prompts pattern '%s' does not compile: %v", p.source, p.err)
			continue
		}
		if _, ok := allowAllPrompts[strings.TrimSpace(p.source)]; ok {
			add("PROMPT_ALLOW_ALL", SeverityWarn, "allow.prompts pattern '%s' allows every prompt", p.source)
		}
	}

	httpRule := cfg.Allow.Tools.HTTPFetch
	if httpRule.Enabled {
		if len(httpRule.Hosts) == 0 {
			add("HTTP_FETCH_NO_HOSTS", SeverityError, "http.fetch is enabled but allow.tools.http.fetch.hosts is empty")
		}
		for _, host := range httpRule.Hosts {
			if hostTooBroad(host) {
				add("HTTP_FETCH_HOST_TOO_BROAD", SeverityWarn, "http.fetch host '%s' covers a whole top-level domain", host)
			}
		}
	}

	fsRule := cfg.Allow.Tools.FSRead
	if fsRule.Enabled {
		if len(fsRule.Roots) == 0 {
			add("FS_READ_NO_ROOTS", SeverityError, "fs.read is enabled but allow.tools.fs.read.roots is empty")
		}
		broad := broadRoots(e.workDir)
		for _, root := range fsRule.Roots {
			if _, ok := broad[e.ResolvePath(root)]; ok {
				add("FS_READ_ROOT_TOO_BROAD", SeverityWarn, "fs.read root '%s' is too broad", root)
			}
		}
	}

	if cfg.Allow.Tools.Exec.Enabled {
		add("EXEC_ENABLED", SeverityWarn, "exec is enabled but no exec tool exists; the setting has no effect")
	}

	return findings
}

// CountBySeverity tallies findings.
func CountBySeverity(findings []Finding) (errs, warns int) {
	for _, f := range findings {
		switch f.Severity {
		case SeverityError:
			errs++
		case SeverityWarn:
			warns++
		}
	}
	return errs, warns
}

func hostTooBroad(host string) bool {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "*" || host == "*." {
		return true
	}
	if strings.HasPrefix(host, "*.") {
		return !strings.Contains(host[2:], ".")
	}
	return false
}

func broadRoots(workDir string) map[string]struct{} {
	out := map[string]struct{}{
		filepath.Clean(workDir): {},
	}
	volume := filepath.VolumeName(workDir)
	out[volume+string(filepath.Separator)] = struct{}{}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		out[filepath.Clean(home)] = struct{}{}
	}
	return out
}
