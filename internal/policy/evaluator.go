package policy

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/MiBe1991/sentinex/internal/actions"
)

type pattern struct {
	source string
	re     *regexp.Regexp
	err    error
}

// Evaluator performs pure policy decisions.
type Evaluator struct {
	cfg          Config
	workDir      string
	denyPrompts  []pattern
	allowPrompts []pattern
}

// Option customizes an Evaluator.
type Option func(*Evaluator)

// WithWorkingDirectory sets the directory relative fs.read paths and roots
// are resolved against.
func WithWorkingDirectory(dir string) Option {
	return func(e *Evaluator) {
		if strings.TrimSpace(dir) != "" {
			e.workDir = dir
		}
	}
}

// NewEvaluator builds a deterministic, side-effect free evaluator.
func NewEvaluator(cfg Config, opts ...Option) Evaluator {
	e := Evaluator{
		cfg:          cfg,
		denyPrompts:  compilePatterns(cfg.Deny.Prompts),
		allowPrompts: compilePatterns(cfg.Allow.Prompts),
	}
	if wd, err := os.Getwd(); err == nil {
		e.workDir = wd
	} else {
		e.workDir = "."
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// Config returns the policy the evaluator was built from.
func (e Evaluator) Config() Config {
	return e.cfg
}

// EvaluatePrompt decides whether a prompt may be sent to the provider.
func (e Evaluator) EvaluatePrompt(prompt string) Decision {
	return e.EvaluatePromptDetailed(prompt).Decision
}

// EvaluatePromptDetailed is EvaluatePrompt plus the stage and pattern that
// produced the decision. Any invalid pattern in a list denies the prompt.
func (e Evaluator) EvaluatePromptDetailed(prompt string) PromptEvaluation {
	if p, ok := firstInvalid(e.denyPrompts); ok {
		return PromptEvaluation{
			Decision:       Decision{Allowed: false, Reason: fmt.Sprintf("Invalid regex in deny.prompts: '%s'.", p)},
			Stage:          StageInvalid,
			MatchedPattern: p,
		}
	}
	for _, p := range e.denyPrompts {
		if p.re.MatchString(prompt) {
			return PromptEvaluation{
				Decision:       Decision{Allowed: false, Reason: fmt.Sprintf("Matched prompt deny pattern '%s'.", p.source)},
				Stage:          StageDeny,
				MatchedPattern: p.source,
			}
		}
	}

	if p, ok := firstInvalid(e.allowPrompts); ok {
		return PromptEvaluation{
			Decision:       Decision{Allowed: false, Reason: fmt.Sprintf("Invalid regex in allow.prompts: '%s'.", p)},
			Stage:          StageInvalid,
			MatchedPattern: p,
		}
	}
	for _, p := range e.allowPrompts {
		if p.re.MatchString(prompt) {
			return PromptEvaluation{
				Decision:       Decision{Allowed: true, Reason: fmt.Sprintf("Matched prompt allow pattern '%s'.", p.source)},
				Stage:          StageAllow,
				MatchedPattern: p.source,
			}
		}
	}

	if e.cfg.Default == VerdictAllow {
		return PromptEvaluation{
			Decision: Decision{Allowed: true, Reason: "No match, but policy default is allow."},
			Stage:    StageDefault,
		}
	}
	return PromptEvaluation{
		Decision: Decision{Allowed: false, Reason: "No allow pattern matched and default is deny."},
		Stage:    StageDefault,
	}
}

// EvaluateTool decides whether a tool action may run.
func (e Evaluator) EvaluateTool(input actions.ToolInput) Decision {
	switch in := input.(type) {
	case actions.HTTPFetchInput:
		return e.EvaluateHTTPFetch(in)
	case actions.FSReadInput:
		return e.EvaluateFSRead(in)
	case nil:
		return Decision{Allowed: false, Reason: "Tool input is missing."}
	default:
		return Decision{Allowed: false, Reason: fmt.Sprintf("Tool '%s' is unsupported.", input.ToolName())}
	}
}

func compilePatterns(sources []string) []pattern {
	out := make([]pattern, 0, len(sources))
	for _, src := range sources {
		re, err := regexp.Compile(src)
		out = append(out, pattern{source: src, re: re, err: err})
	}
	return out
}

func firstInvalid(patterns []pattern) (string, bool) {
	for _, p := range patterns {
		if p.err != nil {
			return p.source, true
		}
	}
	return "", false
}
