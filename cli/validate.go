package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fluxgate/decisionengine/project"
)

// NewValidateCmd creates the "validate" subcommand.
func NewValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config.json|yaml>",
		Short: "Decode a project config and report decode/condition errors",
		Args:  cobra.ExactArgs(1),
		RunE:  runValidate,
	}
	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	filePath := args[0]
	out := cmd.OutOrStdout()

	data, err := os.ReadFile(filePath) // #nosec G304 -- path from caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return exitError(exitFileNotFound, "file not found: %s", filePath)
		}
		return fmt.Errorf("reading file: %w", err)
	}

	cfg, err := project.Decode(data, filePath)
	if err != nil {
		fmt.Fprintf(out, "INVALID: %v\n", err)
		return exitError(exitValidation, "validation failed")
	}

	fmt.Fprintf(out, "Valid! %d audiences, %d experiments, %d groups\n",
		len(cfg.Audiences), len(cfg.Experiments), len(cfg.Groups))
	return nil
}
