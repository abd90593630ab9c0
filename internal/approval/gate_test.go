package approval

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

func TestParseMode(t *testing.T) {
	tests := map[string]Mode{
		"prompt":         ModePrompt,
		" Auto-Approve ": ModeAutoApprove,
		"AUTO-DENY":      ModeAutoDeny,
	}
	for raw, want := range tests {
		got, err := ParseMode(raw)
		if err != nil {
			t.Fatalf("ParseMode(%q) error: %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseMode(%q): expected %q, got %q", raw, want, got)
		}
	}
	if _, err := ParseMode("sometimes"); err == nil {
		t.Fatal("expected unknown mode to fail")
	}
}

func TestStaticModesDoNoIO(t *testing.T) {
	var out bytes.Buffer
	approve, err := New(ModeAutoApprove, strings.NewReader(""), &out)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	deny, err := New(ModeAutoDeny, nil, nil)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	if ok, _ := approve.Ask(context.Background(), "run?"); !ok {
		t.Fatal("expected auto-approve to approve")
	}
	if ok, _ := deny.Ask(context.Background(), "run?"); ok {
		t.Fatal("expected auto-deny to refuse")
	}
	if out.Len() != 0 {
		t.Fatalf("expected no output, got %q", out.String())
	}
}

func TestPromptAnswers(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"  Yes  \n", true},
		{"yes", true},
		{"n\n", false},
		{"yeah\n", false},
		{"\n", false},
		{"", false},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		gate, err := New(ModePrompt, strings.NewReader(tt.input), &out)
		if err != nil {
			t.Fatalf("New error: %v", err)
		}
		got, err := gate.Ask(context.Background(), "Allow tool?")
		if err != nil {
			t.Fatalf("input %q: Ask error: %v", tt.input, err)
		}
		if got != tt.want {
			t.Fatalf("input %q: expected %t, got %t", tt.input, tt.want, got)
		}
		if out.String() != "Allow tool? [y/N] " {
			t.Fatalf("unexpected prompt %q", out.String())
		}
	}
}

func TestPromptReadsOneLinePerQuestion(t *testing.T) {
	var out bytes.Buffer
	gate, err := New(ModePrompt, strings.NewReader("y\nn\n"), &out)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	first, _ := gate.Ask(context.Background(), "one?")
	second, _ := gate.Ask(context.Background(), "two?")
	if !first || second {
		t.Fatalf("expected true then false, got %t then %t", first, second)
	}
}

func TestPromptHonorsCancellation(t *testing.T) {
	reader, writer := io.Pipe()
	defer writer.Close()

	gate, err := New(ModePrompt, reader, io.Discard)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	ok, err := gate.Ask(ctx, "waiting?")
	if ok {
		t.Fatal("expected no approval on cancellation")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestPromptReusesPendingReadAfterCancellation(t *testing.T) {
	reader, writer := io.Pipe()
	defer writer.Close()

	gate, err := New(ModePrompt, reader, io.Discard)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := gate.Ask(ctx, "first?"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}

	go func() {
		_, _ = writer.Write([]byte("yes\n"))
	}()

	ctx, cancelWait := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancelWait()
	ok, err := gate.Ask(ctx, "second?")
	if err != nil {
		t.Fatalf("Ask error: %v", err)
	}
	if !ok {
		t.Fatal("expected the next typed line to approve the second question")
	}
}

func TestNew_PromptRequiresIO(t *testing.T) {
	if _, err := New(ModePrompt, nil, io.Discard); err == nil {
		t.Fatal("expected error without input")
	}
}
