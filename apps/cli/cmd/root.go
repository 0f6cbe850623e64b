package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "postspec",
	Short: "Functional tests for a /posts REST API.",
	Long: `postspec runs declarative functional tests against a jsonplaceholder-style
/posts API. Each case pairs a request template and parameter binding with the
status, field values and JSON schema the response must satisfy.

Run the built-in suite against the public API, point it at another base URI,
or describe your own cases in YAML catalogs.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// exitError carries the process exit code for a failed command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func withExitCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

// exitCode maps a command error to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return ExitUsageError
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	var ee *exitError
	// Test failures are already reported by the formatter.
	if !errors.As(err, &ee) || ee.err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(exitCode(err))
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(mockCmd)
	rootCmd.AddCommand(versionCmd)
}
