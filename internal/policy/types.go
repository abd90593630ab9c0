package policy

// Verdict is the fallback outcome when no prompt rule matches.
type Verdict string

const (
	VerdictAllow Verdict = "allow"
	VerdictDeny  Verdict = "deny"
)

// Tool defaults applied when the policy file omits them.
const (
	DefaultHTTPTimeoutMs = 5000
	DefaultMaxBytes      = 64000
)

// Config is the declarative allow/deny policy. It is loaded once and treated
// as read-only for the duration of a run.
type Config struct {
	Version int        `yaml:"version" json:"version"`
	Default Verdict    `yaml:"default" json:"default"`
	Deny    DenyRules  `yaml:"deny" json:"deny"`
	Allow   AllowRules `yaml:"allow" json:"allow"`
}

// DenyRules are evaluated before any allow rule.
type DenyRules struct {
	Prompts []string  `yaml:"prompts" json:"prompts"`
	Tools   DenyTools `yaml:"tools" json:"tools"`
}

// DenyTools holds per-tool deny lists.
type DenyTools struct {
	HTTPFetch HTTPFetchDeny `yaml:"http.fetch" json:"http.fetch"`
	FSRead    FSReadDeny    `yaml:"fs.read" json:"fs.read"`
}

// HTTPFetchDeny lists hosts that may never be fetched.
type HTTPFetchDeny struct {
	Hosts []string `yaml:"hosts" json:"hosts"`
}

// FSReadDeny lists paths that may never be read.
type FSReadDeny struct {
	Paths []string `yaml:"paths" json:"paths"`
}

// AllowRules grant prompts and tools.
type AllowRules struct {
	Prompts []string   `yaml:"prompts" json:"prompts"`
	Tools   AllowTools `yaml:"tools" json:"tools"`
}

// AllowTools holds per-tool grants.
type AllowTools struct {
	HTTPFetch HTTPFetchRule `yaml:"http.fetch" json:"http.fetch"`
	FSRead    FSReadRule    `yaml:"fs.read" json:"fs.read"`
	Exec      ExecRule      `yaml:"exec" json:"exec"`
}

// HTTPFetchRule configures http.fetch.
type HTTPFetchRule struct {
	Enabled   bool     `yaml:"enabled" json:"enabled"`
	Hosts     []string `yaml:"hosts" json:"hosts"`
	TimeoutMs int      `yaml:"timeoutMs" json:"timeoutMs"`
	MaxBytes  int      `yaml:"maxBytes" json:"maxBytes"`
}

// FSReadRule configures fs.read.
type FSReadRule struct {
	Enabled  bool     `yaml:"enabled" json:"enabled"`
	Roots    []string `yaml:"roots" json:"roots"`
	MaxBytes int      `yaml:"maxBytes" json:"maxBytes"`
}

// ExecRule is parsed for forward compatibility. exec is never executable.
type ExecRule struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// Decision is the deterministic policy result. Reason is never empty.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

// Stage identifies which part of prompt evaluation produced a decision.
type Stage string

const (
	StageDeny    Stage = "deny"
	StageAllow   Stage = "allow"
	StageDefault Stage = "default"
	StageInvalid Stage = "invalid"
)

// PromptEvaluation is a prompt decision plus the rule that produced it.
type PromptEvaluation struct {
	Decision
	Stage          Stage  `json:"stage"`
	MatchedPattern string `json:"matchedPattern,omitempty"`
}

// DefaultConfig is the policy used when no policy file exists: nothing is
// allowed.
func DefaultConfig() Config {
	return Config{
		Version: 1,
		Default: VerdictDeny,
		Allow: AllowRules{
			Tools: AllowTools{
				HTTPFetch: HTTPFetchRule{TimeoutMs: DefaultHTTPTimeoutMs, MaxBytes: DefaultMaxBytes},
				FSRead:    FSReadRule{MaxBytes: DefaultMaxBytes},
			},
		},
	}
}
