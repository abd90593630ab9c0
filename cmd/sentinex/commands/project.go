package commands

import (
	"fmt"

	"github.com/MiBe1991/sentinex/internal/config"
	"github.com/MiBe1991/sentinex/internal/policy"
)

// project is the loaded state of a sentinex project directory.
type project struct {
	dir       string
	cfg       *config.Config
	policy    policy.Config
	evaluator policy.Evaluator
}

func loadProject() (*project, error) {
	dir, err := resolveProjectDir()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	pol, err := policy.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load policy: %w", err)
	}
	return &project{
		dir:       dir,
		cfg:       cfg,
		policy:    pol,
		evaluator: policy.NewEvaluator(pol, policy.WithWorkingDirectory(dir)),
	}, nil
}
