package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MiBe1991/sentinex/internal/scaffold"
)

func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create .sentinex/policy.yaml and .sentinex/config.yaml",
		RunE:  runInit,
	}
	cmd.Flags().Bool("force", false, "Overwrite existing files")
	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")
	dir, err := resolveProjectDir()
	if err != nil {
		return err
	}

	res, err := scaffold.Init(dir, force)
	if err != nil {
		return fmt.Errorf("init failed: %w", err)
	}

	if res.CreatedDir {
		fmt.Printf("Created %s/\n", scaffold.Dir)
	}
	for _, f := range res.Written {
		fmt.Printf("Wrote %s\n", f)
	}
	for _, f := range res.Skipped {
		fmt.Printf("Skipped %s (exists, use --force to overwrite)\n", f)
	}
	fmt.Println("\nNext steps:")
	fmt.Printf("1. Review %s/policy.yaml\n", scaffold.Dir)
	fmt.Println("2. Run 'sentinex policy lint'")
	fmt.Println("3. Run 'sentinex run --dry-run \"hello\"'")
	return nil
}
