package commands

import (
	"encoding/json"
	"testing"
)

func TestPolicyTestCommand_Prompt(t *testing.T) {
	dir := initProject(t)

	out, err := execute(t, dir, "policy", "test", "--prompt", "summarize this")
	if err != nil {
		t.Fatalf("policy test error: %v", err)
	}
	var got policyTestOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if got.Target != "prompt" || !got.Allowed || got.Stage != "allow" || got.MatchedPattern != ".*" {
		t.Fatalf("unexpected decision: %+v", got)
	}
}

func TestPolicyTestCommand_Tools(t *testing.T) {
	dir := initProject(t)

	out, err := execute(t, dir, "policy", "test", "--tool", "http.fetch", "--url", "https://evil.example.org/")
	if err != nil {
		t.Fatalf("policy test error: %v", err)
	}
	var got policyTestOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if got.Allowed || got.Input["url"] != "https://evil.example.org/" {
		t.Fatalf("unexpected decision: %+v", got)
	}

	out, err = execute(t, dir, "policy", "test", "--tool", "fs.read", "--path", "templates/a.txt")
	if err != nil {
		t.Fatalf("policy test error: %v", err)
	}
	got = policyTestOutput{}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if !got.Allowed {
		t.Fatalf("expected fs.read within ./templates to be allowed: %+v", got)
	}
}

func TestPolicyTestCommand_Usage(t *testing.T) {
	dir := initProject(t)
	if _, err := execute(t, dir, "policy", "test", "--tool", "http.fetch"); err == nil {
		t.Fatal("expected usage error without --url")
	}
}

func TestPolicyLintCommand_FailOn(t *testing.T) {
	dir := initProject(t)

	out, err := execute(t, dir, "policy", "lint", "--json")
	if err != nil {
		t.Fatalf("lint error: %v", err)
	}
	var report struct {
		Errors   int `json:"errors"`
		Warnings int `json:"warnings"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if report.Errors != 0 || report.Warnings == 0 {
		t.Fatalf("expected warnings only for the starter policy, got %+v", report)
	}

	if _, err := execute(t, dir, "policy", "lint", "--fail-on", "warn"); err == nil {
		t.Fatal("expected --fail-on warn to fail")
	}
	if _, err := execute(t, dir, "policy", "lint", "--fail-on", "sometimes"); err == nil {
		t.Fatal("expected invalid --fail-on to fail")
	}
}

func TestPolicyLintCommand_Errors(t *testing.T) {
	dir := initProject(t)
	writePolicy(t, dir, `version: 1
default: deny
allow:
  prompts:
    - "("
`)
	if _, err := execute(t, dir, "policy", "lint"); err == nil {
		t.Fatal("expected lint errors to fail")
	}
	if _, err := execute(t, dir, "policy", "lint", "--fail-on", "never"); err != nil {
		t.Fatalf("--fail-on never should pass: %v", err)
	}
}
