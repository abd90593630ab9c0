package policy

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/MiBe1991/sentinex/internal/actions"
)

// EvaluateHTTPFetch checks the target host against the deny and allow lists.
func (e Evaluator) EvaluateHTTPFetch(input actions.HTTPFetchInput) Decision {
	rule := e.cfg.Allow.Tools.HTTPFetch
	if !rule.Enabled {
		return Decision{Allowed: false, Reason: "http.fetch is disabled by policy."}
	}

	parsed, err := url.Parse(strings.TrimSpace(input.URL))
	if err != nil || parsed.Hostname() == "" {
		return Decision{Allowed: false, Reason: "Invalid URL."}
	}
	host := strings.ToLower(parsed.Hostname())

	for _, denied := range e.cfg.Deny.Tools.HTTPFetch.Hosts {
		if hostMatches(denied, host) {
			return Decision{Allowed: false, Reason: fmt.Sprintf("Host '%s' matches deny rule '%s'.", host, denied)}
		}
	}

	if len(rule.Hosts) == 0 {
		return Decision{Allowed: false, Reason: "No http.fetch hosts configured."}
	}
	for _, allowed := range rule.Hosts {
		if hostMatches(allowed, host) {
			return Decision{Allowed: true, Reason: fmt.Sprintf("Host '%s' is allowed by '%s'.", host, allowed)}
		}
	}
	return Decision{Allowed: false, Reason: fmt.Sprintf("Host '%s' is not in allow list.", host)}
}

// EvaluateFSRead checks the resolved path against deny paths and roots.
func (e Evaluator) EvaluateFSRead(input actions.FSReadInput) Decision {
	rule := e.cfg.Allow.Tools.FSRead
	if !rule.Enabled {
		return Decision{Allowed: false, Reason: "fs.read is disabled by policy."}
	}

	target := e.ResolvePath(input.Path)

	for _, denied := range e.cfg.Deny.Tools.FSRead.Paths {
		if pathWithin(target, e.ResolvePath(denied)) {
			return Decision{Allowed: false, Reason: fmt.Sprintf("Requested path is under denied path '%s'.", denied)}
		}
	}

	if len(rule.Roots) == 0 {
		return Decision{Allowed: false, Reason: "No fs.read roots configured."}
	}
	for _, root := range rule.Roots {
		if pathWithin(target, e.ResolvePath(root)) {
			return Decision{Allowed: true, Reason: fmt.Sprintf("Requested path is within allowed root '%s'.", root)}
		}
	}
	return Decision{Allowed: false, Reason: "Requested path is outside allowed roots."}
}

// ResolvePath makes p absolute against the evaluator's working directory.
func (e Evaluator) ResolvePath(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(e.workDir, p)
}

// hostMatches reports whether host equals pattern, or for "*.domain"
// patterns, whether host is a strict subdomain of domain.
func hostMatches(pattern, host string) bool {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	if pattern == "" {
		return false
	}
	if strings.HasPrefix(pattern, "*.") {
		suffix := pattern[1:]
		return len(host) > len(suffix) && strings.HasSuffix(host, suffix)
	}
	return host == pattern
}

func pathWithin(target, root string) bool {
	if target == root {
		return true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(target, prefix)
}
