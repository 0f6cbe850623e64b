package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listBaseURIFlag string

var listCmd = &cobra.Command{
	Use:   "list [catalog|directory...]",
	Short: "List the cases a run would execute",
	Long: `List every case of the built-in suite, or of the given YAML catalogs,
with the URL it requests.

Examples:
  postspec list
  postspec list ./catalogs/`,
	RunE: listCommand,
}

func init() {
	listCmd.Flags().StringVar(&listBaseURIFlag, "base-uri", getEnvString("POSTSPEC_BASE_URI", ""), "Base URI of the API under test (env: POSTSPEC_BASE_URI)")
}

func listCommand(cmd *cobra.Command, args []string) error {
	suites, err := loadSuites(args, listBaseURIFlag)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, suite := range suites {
		fmt.Fprintf(out, "\n%s:\n", suite.Name)
		for _, c := range suite.Cases {
			fmt.Fprintf(out, "  - %s\n", c.Name)
			url, err := c.Request.Expand(c.Params, c.Mode)
			if err != nil {
				url = c.Request.String()
			}
			fmt.Fprintf(out, "    GET %s (%s)\n", url, c.Mode)
			if len(c.Tags) > 0 {
				fmt.Fprintf(out, "    tags: %v\n", c.Tags)
			}
			if c.Skip != "" {
				fmt.Fprintf(out, "    skip: %s\n", c.Skip)
			}
		}
	}

	return nil
}
