package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/MiBe1991/sentinex/internal/config"
)

var (
	projectDir       string
	logLevelOverride string
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sentinex",
		Short: "Sentinex - policy-gated runtime for LLM action plans",
		Long: `Sentinex evaluates prompts and model-generated action plans against a
declarative allow/deny policy, asks for approval before tools run, and
records every decision in a JSONL audit trail.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			dir, err := resolveProjectDir()
			if err != nil {
				return err
			}
			if err := loadDotEnv(dir); err != nil {
				return err
			}
			switch cmd.Name() {
			case "init", "version", "doctor":
				return configureLogger(config.DefaultConfig(), dir, logLevelOverride)
			}
			cfg, err := config.Load(dir)
			if err != nil {
				return err
			}
			return configureLogger(cfg, dir, logLevelOverride)
		},
	}

	cmd.PersistentFlags().StringVarP(&projectDir, "dir", "C", ".", "Project directory containing .sentinex/")
	cmd.PersistentFlags().StringVar(&logLevelOverride, "log-level", "", "Override log level (debug|info|warn|error)")

	cmd.AddCommand(
		NewInitCmd(),
		NewRunCmd(),
		NewPolicyCmd(),
		NewLogsCmd(),
		NewDoctorCmd(),
		NewVersionCmd(),
	)

	return cmd
}

func resolveProjectDir() (string, error) {
	dir := projectDir
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve project dir: %w", err)
	}
	return abs, nil
}

// loadDotEnv loads dir/.env without overriding variables already set.
func loadDotEnv(dir string) error {
	err := godotenv.Load(filepath.Join(dir, ".env"))
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load .env: %w", err)
}
