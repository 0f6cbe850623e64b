package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/postspec/packages/core/config"
	"github.com/abdul-hamid-achik/postspec/packages/core/runner"
	"github.com/abdul-hamid-achik/postspec/packages/output"
	"github.com/abdul-hamid-achik/postspec/packages/trace"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [catalog|directory...]",
	Short: "Run the /posts functional tests",
	Long: `Run the built-in /posts suite, or the cases described in YAML catalogs.

Examples:
  postspec run
  postspec run --base-uri http://localhost:3000
  postspec run ./catalogs/ --tags smoke
  postspec run posts.yaml --name "get post by*" -o junit --output-file report.xml
  postspec run --trace --trace-db traces.db
  postspec run posts.yaml --watch`,
	RunE: runCommand,
}

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond

	waitForInterval = 500 * time.Millisecond
)

var (
	configFlag      string
	baseURIFlag     string
	nameFlag        string
	tagsFlag        string
	verboseFlag     bool
	noColorFlag     bool
	outputFlag      string
	outputFileFlag  string
	bailFlag        bool
	timeoutFlag     string
	parallelFlag    bool
	concurrencyFlag int
	watchFlag       bool
	proxyFlag       string
	insecureFlag    bool
	rateLimitFlag   float64
	traceFlag       bool
	traceDBFlag     string
	traceBodiesFlag bool
	waitForFlag     string
	waitTimeoutFlag string
)

// flagEnv names the environment variable backing each overridable flag.
var flagEnv = map[string]string{
	"base-uri":     "POSTSPEC_BASE_URI",
	"output":       "POSTSPEC_OUTPUT",
	"bail":         "POSTSPEC_BAIL",
	"timeout":      "POSTSPEC_TIMEOUT",
	"parallel":     "POSTSPEC_PARALLEL",
	"concurrency":  "POSTSPEC_CONCURRENCY",
	"proxy":        "POSTSPEC_PROXY",
	"insecure":     "POSTSPEC_INSECURE",
	"rate-limit":   "POSTSPEC_RATE_LIMIT",
	"trace-db":     "POSTSPEC_TRACE_DB",
	"trace-bodies": "POSTSPEC_TRACE_BODIES",
	"verbose":      "POSTSPEC_VERBOSE",
	"no-color":     "POSTSPEC_NO_COLOR",
}

func init() {
	// Suite selection
	runCmd.Flags().StringVar(&configFlag, "config", getEnvString("POSTSPEC_CONFIG", ""), "Path to config file (env: POSTSPEC_CONFIG)")
	runCmd.Flags().StringVar(&baseURIFlag, "base-uri", getEnvString("POSTSPEC_BASE_URI", ""), "Base URI of the API under test (env: POSTSPEC_BASE_URI)")
	runCmd.Flags().StringVarP(&nameFlag, "name", "n", "", "Run only cases matching name pattern")
	runCmd.Flags().StringVarP(&tagsFlag, "tags", "t", getEnvString("POSTSPEC_TAGS", ""), "Run only cases with specified tags (comma-separated) (env: POSTSPEC_TAGS)")

	// Output flags
	runCmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", getEnvBool("POSTSPEC_VERBOSE", false), "Verbose output (env: POSTSPEC_VERBOSE)")
	runCmd.Flags().BoolVar(&noColorFlag, "no-color", getEnvBool("POSTSPEC_NO_COLOR", false), "Disable colored output (env: POSTSPEC_NO_COLOR)")
	runCmd.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("POSTSPEC_OUTPUT", "console"), "Output format: console, json, junit, tap, xlsx (env: POSTSPEC_OUTPUT)")
	runCmd.Flags().StringVar(&outputFileFlag, "output-file", getEnvString("POSTSPEC_OUTPUT_FILE", ""), "Write output to file (default: stdout) (env: POSTSPEC_OUTPUT_FILE)")

	// Execution flags
	runCmd.Flags().BoolVar(&bailFlag, "bail", getEnvBool("POSTSPEC_BAIL", false), "Stop on first failure (env: POSTSPEC_BAIL)")
	runCmd.Flags().StringVar(&timeoutFlag, "timeout", getEnvString("POSTSPEC_TIMEOUT", "30s"), "Request timeout (e.g., 30s, 1m) (env: POSTSPEC_TIMEOUT)")
	runCmd.Flags().BoolVarP(&parallelFlag, "parallel", "p", getEnvBool("POSTSPEC_PARALLEL", false), "Run cases in parallel (env: POSTSPEC_PARALLEL)")
	runCmd.Flags().IntVar(&concurrencyFlag, "concurrency", getEnvInt("POSTSPEC_CONCURRENCY", runner.DefaultConcurrency), "Number of concurrent requests when running in parallel (env: POSTSPEC_CONCURRENCY)")
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch catalogs for changes and re-run")
	runCmd.Flags().StringVar(&waitForFlag, "wait-for", getEnvString("POSTSPEC_WAIT_FOR", ""), "URL that must answer 200 before the run starts (env: POSTSPEC_WAIT_FOR)")
	runCmd.Flags().StringVar(&waitTimeoutFlag, "wait-timeout", getEnvString("POSTSPEC_WAIT_TIMEOUT", "30s"), "How long to wait for --wait-for (env: POSTSPEC_WAIT_TIMEOUT)")

	// Network flags
	runCmd.Flags().StringVar(&proxyFlag, "proxy", getEnvString("POSTSPEC_PROXY", ""), "Proxy URL for HTTP requests (env: POSTSPEC_PROXY)")
	runCmd.Flags().BoolVarP(&insecureFlag, "insecure", "k", getEnvBool("POSTSPEC_INSECURE", false), "Disable SSL certificate validation (env: POSTSPEC_INSECURE)")
	runCmd.Flags().Float64Var(&rateLimitFlag, "rate-limit", getEnvFloat("POSTSPEC_RATE_LIMIT", 0), "Maximum requests per second, 0 for unlimited (env: POSTSPEC_RATE_LIMIT)")

	// Tracing flags
	runCmd.Flags().BoolVar(&traceFlag, "trace", getEnvBool("POSTSPEC_TRACE", false), "Print every request and response to stderr (env: POSTSPEC_TRACE)")
	runCmd.Flags().StringVar(&traceDBFlag, "trace-db", getEnvString("POSTSPEC_TRACE_DB", ""), "Record exchanges in a sqlite database (env: POSTSPEC_TRACE_DB)")
	runCmd.Flags().BoolVar(&traceBodiesFlag, "trace-bodies", getEnvBool("POSTSPEC_TRACE_BODIES", true), "Include response bodies in traces (env: POSTSPEC_TRACE_BODIES)")
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// overridden reports whether a flag was given on the command line or
// through its environment variable, so it should win over the config file.
func overridden(cmd *cobra.Command, name string) bool {
	if cmd.Flags().Changed(name) {
		return true
	}
	env, ok := flagEnv[name]
	return ok && os.Getenv(env) != ""
}

// buildConfig loads the config file and applies flag overrides on top.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	fileConfig, err := config.LoadConfig(configFlag)
	if err != nil {
		return nil, err
	}

	flags := &config.Config{}
	if overridden(cmd, "base-uri") {
		flags.BaseURI = baseURIFlag
	}
	if overridden(cmd, "timeout") {
		timeout, err := time.ParseDuration(timeoutFlag)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout value %q: %w (use format like 30s, 1m, 500ms)", timeoutFlag, err)
		}
		if timeout <= 0 {
			return nil, fmt.Errorf("timeout must be positive, got %s", timeoutFlag)
		}
		flags.Timeout = int(timeout.Milliseconds())
	}
	if overridden(cmd, "output") {
		flags.Output = strings.ToLower(outputFlag)
	}
	if overridden(cmd, "proxy") {
		flags.Proxy = proxyFlag
	}
	if overridden(cmd, "concurrency") {
		flags.Concurrency = concurrencyFlag
	}
	if overridden(cmd, "rate-limit") {
		flags.RateLimit = rateLimitFlag
	}
	if overridden(cmd, "trace-db") {
		flags.TraceDB = traceDBFlag
	}
	if overridden(cmd, "insecure") {
		flags.ValidateSSL = config.BoolPtr(!insecureFlag)
	}
	if overridden(cmd, "parallel") {
		flags.Parallel = config.BoolPtr(parallelFlag)
	}
	if overridden(cmd, "bail") {
		flags.Bail = config.BoolPtr(bailFlag)
	}
	if overridden(cmd, "verbose") {
		flags.Verbose = config.BoolPtr(verboseFlag)
	}
	if overridden(cmd, "no-color") {
		flags.NoColor = config.BoolPtr(noColorFlag)
	}
	if overridden(cmd, "trace-bodies") {
		flags.TraceBodies = config.BoolPtr(traceBodiesFlag)
	}

	merged := fileConfig.Merge(flags)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return merged, nil
}

func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// openSinks builds the trace sinks the config asks for; nil means none.
func openSinks(cfg *config.Config, stderr io.Writer) (trace.Sink, error) {
	var sinks []trace.Sink
	if traceFlag {
		sinks = append(sinks, trace.NewWriterSink(
			trace.WithWriter(stderr),
			trace.WithBodies(cfg.GetTraceBodies()),
		))
	}
	if cfg.TraceDB != "" {
		db, err := trace.NewSQLiteSink(cfg.TraceDB, cfg.GetTraceBodies())
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, db)
	}

	switch len(sinks) {
	case 0:
		return nil, nil
	case 1:
		return sinks[0], nil
	default:
		return trace.Multi(sinks...), nil
	}
}

// openOutput returns where results are written. The output file flag wins
// over the configured output directory; binary formats never go to stdout.
func openOutput(cfg *config.Config, stdout io.Writer) (io.Writer, func() error, error) {
	path := outputFileFlag
	if path == "" && cfg.Output != "console" && (cfg.OutputDir != "" || output.Binary(cfg.Output)) {
		if cfg.OutputDir != "" {
			if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("cannot create output directory: %w", err)
			}
		}
		path = filepath.Join(cfg.OutputDir, "postspec-results"+output.Extension(cfg.Output))
	}
	if path == "" {
		return stdout, func() error { return nil }, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot create output file: %w", err)
	}
	return f, f.Close, nil
}

type runTotals struct {
	passed, failed, errored, skipped int
	duration                         time.Duration
}

func (t runTotals) exitErr() error {
	switch {
	case t.failed > 0:
		return withExitCode(ExitTestFailure, nil)
	case t.errored > 0:
		return withExitCode(ExitNetworkError, nil)
	default:
		return nil
	}
}

// runSuites executes every suite in order and flushes the formatter.
func runSuites(ctx context.Context, r *runner.Runner, suites []*runner.Suite, formatter output.Formatter, bail bool) (runTotals, error) {
	var totals runTotals
	start := time.Now()

	for _, suite := range suites {
		result, err := r.RunSuite(ctx, suite)
		if result != nil {
			formatter.FormatResult(result)
			totals.passed += result.Passed
			totals.failed += result.Failed
			totals.errored += result.Errored
			totals.skipped += result.Skipped
		}
		if err != nil {
			formatter.FormatError(err)
			break
		}
		if bail && !result.Success() {
			break
		}
	}

	totals.duration = time.Since(start)
	if flushable, ok := formatter.(output.Flushable); ok {
		if err := flushable.Flush(totals.duration); err != nil {
			return totals, fmt.Errorf("error writing output: %w", err)
		}
	}
	return totals, nil
}

func runCommand(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}

	if watchFlag && len(args) == 0 {
		return withExitCode(ExitUsageError, fmt.Errorf("--watch needs at least one catalog file or directory"))
	}

	suites, err := loadSuites(args, cfg.BaseURI)
	if err != nil {
		return err
	}

	out, closeOut, err := openOutput(cfg, cmd.OutOrStdout())
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}
	defer closeOut()

	newFormatter := func() (output.Formatter, error) {
		return output.New(cfg.Output, out, cfg.GetVerbose(), cfg.GetNoColor())
	}
	formatter, err := newFormatter()
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}

	sink, err := openSinks(cfg, cmd.ErrOrStderr())
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}
	if sink != nil {
		defer sink.Close()
	}

	r := runner.NewRunner(&runner.Config{
		Timeout:        time.Duration(cfg.Timeout) * time.Millisecond,
		FollowRedirect: cfg.GetFollowRedirects(),
		MaxRedirects:   cfg.MaxRedirects,
		SkipSSLVerify:  !cfg.GetValidateSSL(),
		Proxy:          cfg.Proxy,
		Headers:        cfg.Headers,
		RateLimit:      cfg.RateLimit,
		Bail:           cfg.GetBail(),
		NameFilter:     nameFlag,
		TagsFilter:     splitTags(tagsFlag),
		Parallel:       cfg.GetParallel(),
		Concurrency:    cfg.Concurrency,
		Sink:           sink,
		OnSinkError: func(err error) {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: trace: %v\n", err)
		},
	})

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if waitForFlag != "" {
		waitTimeout, err := time.ParseDuration(waitTimeoutFlag)
		if err != nil {
			return withExitCode(ExitUsageError, fmt.Errorf("invalid wait timeout %q: %w", waitTimeoutFlag, err))
		}
		if err := r.WaitFor(ctx, waitForFlag, 200, waitTimeout, waitForInterval); err != nil {
			return withExitCode(ExitNetworkError, err)
		}
	}

	formatter.FormatHeader(version)
	totals, err := runSuites(ctx, r, suites, formatter, cfg.GetBail())
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}

	if !watchFlag {
		return totals.exitErr()
	}

	return watch(ctx, cmd, args, func() {
		suites, err := loadSuites(args, cfg.BaseURI)
		if err != nil {
			formatter.FormatError(err)
			return
		}
		// JSON and JUnit accumulate state, so every re-run gets a fresh formatter.
		formatter, err = newFormatter()
		if err != nil {
			return
		}
		formatter.FormatHeader(version)
		if _, err := runSuites(ctx, r, suites, formatter, cfg.GetBail()); err != nil {
			formatter.FormatError(err)
		}
	})
}

// watch re-runs fn whenever a catalog under args is written, until ctx is
// cancelled.
func watch(ctx context.Context, cmd *cobra.Command, args []string, fn func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	watchedDirs := make(map[string]bool)
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			dir := filepath.Dir(arg)
			if !watchedDirs[dir] {
				if err := watcher.Add(dir); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "failed to watch %s: %v\n", dir, err)
				}
				watchedDirs[dir] = true
			}
			continue
		}
		_ = filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() && !watchedDirs[path] {
				_ = watcher.Add(path)
				watchedDirs[path] = true
			}
			return nil
		})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n\n")

	debounce := time.NewTimer(WatchDebounceDelay)
	debounce.Stop()
	defer debounce.Stop()
	var changed string

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if (event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) && isCatalogFile(event.Name) {
				changed = event.Name
				debounce.Reset(WatchDebounceDelay)
			}

		case <-debounce.C:
			fmt.Fprintf(cmd.OutOrStdout(), "\n\nFile changed: %s\nRe-running tests...\n\n", changed)
			fn()
			fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n")

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "watcher error: %v\n", err)
		}
	}
}
