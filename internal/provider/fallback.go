package provider

import (
	"context"
	"errors"
	"strings"
)

// Fallback tries each provider in order and returns the first plan.
type Fallback struct {
	name      string
	providers []Provider
}

func NewFallback(providers ...Provider) *Fallback {
	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, p.Name())
	}
	return &Fallback{name: strings.Join(names, "->"), providers: providers}
}

func (f *Fallback) Name() string {
	return f.name
}

func (f *Fallback) Generate(ctx context.Context, req Request) (any, error) {
	lastErr := errors.New("no provider available")
	for _, p := range f.providers {
		if err := ctx.Err(); err != nil {
			return nil, &FailedError{Provider: f.name, Err: err}
		}
		plan, err := p.Generate(ctx, req)
		if err == nil {
			return plan, nil
		}
		lastErr = err
	}
	return nil, &FailedError{Provider: f.name, Err: lastErr}
}
