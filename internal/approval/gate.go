package approval

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// New builds the approver for mode. in and out are only used in prompt mode.
func New(mode Mode, in io.Reader, out io.Writer) (Approver, error) {
	switch mode {
	case ModeAutoApprove:
		return Static(true), nil
	case ModeAutoDeny:
		return Static(false), nil
	case ModePrompt:
		if in == nil || out == nil {
			return nil, fmt.Errorf("prompt approval requires an input and an output")
		}
		return &Prompt{in: bufio.NewReader(in), out: out}, nil
	default:
		return nil, fmt.Errorf("unknown approval mode %q", mode)
	}
}

// Static answers every question the same way without any I/O.
type Static bool

func (s Static) Ask(ctx context.Context, _ string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return bool(s), nil
}

// Prompt asks on out and reads one line from in. Only "y" and "yes"
// approve; end of input counts as a refusal.
//
// At most one read of in is in flight. When ctx ends before an answer
// arrives, the pending read is kept and the next line typed answers the
// next question.
type Prompt struct {
	mu      sync.Mutex
	in      *bufio.Reader
	out     io.Writer
	pending chan answer
}

type answer struct {
	line string
	err  error
}

func (p *Prompt) Ask(ctx context.Context, question string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := fmt.Fprintf(p.out, "%s [y/N] ", question); err != nil {
		return false, fmt.Errorf("write approval prompt: %w", err)
	}

	if p.pending == nil {
		ch := make(chan answer, 1)
		go func() {
			line, err := p.in.ReadString('\n')
			ch <- answer{line: line, err: err}
		}()
		p.pending = ch
	}

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case a := <-p.pending:
		p.pending = nil
		if a.err != nil && !errors.Is(a.err, io.EOF) {
			return false, fmt.Errorf("read approval answer: %w", a.err)
		}
		return IsAffirmative(a.line), nil
	}
}
