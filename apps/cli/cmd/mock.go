package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/postspec/packages/mock"
	"github.com/spf13/cobra"
)

var (
	mockPortFlag    int
	mockDelayFlag   string
	mockVerboseFlag bool
)

var mockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Start an in-memory /posts API",
	Long: `Start an HTTP server that serves a jsonplaceholder-style /posts resource
from an in-memory dataset of 100 posts, for running the suite offline.

Routes:
  GET /posts           all posts, filtered by id, userId, title and body
  GET /posts/{id}      one post, or {} when the id is unknown

Examples:
  postspec mock
  postspec mock --port 3000 --delay 100ms
  postspec run --base-uri http://localhost:3000`,
	Args: cobra.NoArgs,
	RunE: mockCommand,
}

func init() {
	mockCmd.Flags().IntVarP(&mockPortFlag, "port", "p", getEnvInt("POSTSPEC_MOCK_PORT", 3000), "Port to run the mock server on (env: POSTSPEC_MOCK_PORT)")
	mockCmd.Flags().StringVarP(&mockDelayFlag, "delay", "d", "0", "Delay to add to all responses (e.g., 100ms, 1s)")
	mockCmd.Flags().BoolVarP(&mockVerboseFlag, "verbose", "v", false, "Enable verbose logging")
}

func mockCommand(cmd *cobra.Command, args []string) error {
	var delay time.Duration
	if mockDelayFlag != "0" {
		var err error
		delay, err = time.ParseDuration(mockDelayFlag)
		if err != nil {
			return withExitCode(ExitUsageError, fmt.Errorf("invalid delay value %q: %w", mockDelayFlag, err))
		}
	}

	server := mock.NewServer(
		mock.WithPort(mockPortFlag),
		mock.WithDelay(delay),
		mock.WithVerbose(mockVerboseFlag),
	)

	fmt.Fprintf(cmd.OutOrStdout(), "Serving %d posts on %d routes\n", len(server.Posts()), len(server.GetRoutes()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.StartWithContext(ctx)
}
