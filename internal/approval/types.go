package approval

import (
	"context"
	"fmt"
	"strings"
)

// Mode selects how tool actions are approved.
type Mode string

const (
	ModeAutoApprove Mode = "auto-approve"
	ModeAutoDeny    Mode = "auto-deny"
	ModePrompt      Mode = "prompt"
)

// Modes lists every accepted mode.
var Modes = []Mode{ModePrompt, ModeAutoApprove, ModeAutoDeny}

//go:generate mockgen -destination mocks/mock_approver.go -package mocks github.com/MiBe1991/sentinex/internal/approval Approver

// Approver asks whether a policy-allowed tool action may run.
type Approver interface {
	Ask(ctx context.Context, question string) (bool, error)
}

// ParseMode normalizes and validates a mode string.
func ParseMode(raw string) (Mode, error) {
	mode := Mode(strings.ToLower(strings.TrimSpace(raw)))
	for _, m := range Modes {
		if m == mode {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown approval mode %q: expected prompt, auto-approve or auto-deny", raw)
}

// IsAffirmative reports whether an interactive answer approves.
func IsAffirmative(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
