package cmd

import (
	"fmt"

	"github.com/abdul-hamid-achik/postspec/packages/catalog"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <catalog|directory...>",
	Short: "Validate YAML catalogs",
	Long: `Validate YAML catalogs without executing them. Every problem found is
reported with the case it belongs to.

Examples:
  postspec validate posts.yaml
  postspec validate ./catalogs/`,
	Args: cobra.MinimumNArgs(1),
	RunE: validateCommand,
}

func validateCommand(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	if len(files) == 0 {
		return withExitCode(ExitUsageError, fmt.Errorf("no .yaml or .yml catalogs found"))
	}

	hasErrors := false
	for _, file := range files {
		suite, err := catalog.Load(file)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error in %v\n", err)
			hasErrors = true
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s (%d cases)\n", file, len(suite.Cases))
		}
	}

	if hasErrors {
		return withExitCode(ExitParseError, fmt.Errorf("validation failed"))
	}

	return nil
}
