package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/abdul-hamid-achik/postspec/packages/core/runner"
	"github.com/fatih/color"
)

// formatValue formats a value for display, truncating or summarizing large values
func formatValue(v any, maxLen int) string {
	var str string
	switch val := v.(type) {
	case nil:
		return "null"
	case []any:
		if len(val) > 5 {
			return fmt.Sprintf("[array with %d items]", len(val))
		}
	case map[string]any:
		if len(val) > 5 {
			return fmt.Sprintf("{object with %d keys}", len(val))
		}
	case string:
		str = fmt.Sprintf("%q", val)
	}
	if str == "" {
		if data, err := json.Marshal(v); err == nil {
			str = string(data)
		} else {
			str = fmt.Sprintf("%v", v)
		}
	}
	if len(str) > maxLen {
		return str[:maxLen] + "..."
	}
	return str
}

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

func (f *ConsoleFormatter) FormatResult(result *runner.RunResult) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	magenta := color.New(color.FgMagenta).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(f.writer, "\n%s\n", bold("Running: "+result.Suite))
	if f.verbose && result.RunID != "" {
		fmt.Fprintf(f.writer, "Run ID:  %s\n", result.RunID)
	}
	fmt.Fprintf(f.writer, "\n")

	for _, r := range result.Results {
		switch r.Outcome {
		case runner.OutcomeSkip:
			fmt.Fprintf(f.writer, "  %s %s", yellow("-"), r.Name)
			if r.SkipReason != "" && r.SkipReason != "filtered out" {
				fmt.Fprintf(f.writer, " (%s)", r.SkipReason)
			}
			fmt.Fprintf(f.writer, "\n")
			continue

		case runner.OutcomeError:
			fmt.Fprintf(f.writer, "  %s %s %s\n", magenta("!"), r.Name, magenta(fmt.Sprintf("(error: %v)", r.Error)))
			if f.verbose && r.Request != nil {
				fmt.Fprintf(f.writer, "    GET %s\n", r.Request.BuildURL())
			}
			continue
		}

		symbol := green("✓")
		if r.Outcome == runner.OutcomeFail {
			symbol = red("✗")
		}

		fmt.Fprintf(f.writer, "  %s %s %s\n", symbol, r.Name, cyan(fmt.Sprintf("(%dms)", r.Duration.Milliseconds())))

		if f.verbose && r.Request != nil {
			fmt.Fprintf(f.writer, "    GET %s\n", r.Request.BuildURL())
		}
		if f.verbose && r.Response != nil {
			fmt.Fprintf(f.writer, "    Status: %d\n", r.Response.StatusCode)
		}

		for _, a := range r.Failures() {
			fmt.Fprintf(f.writer, "    %s %s\n", red("→"), a.Subject)
			fmt.Fprintf(f.writer, "      Expected: %s\n", a.Expected)
			fmt.Fprintf(f.writer, "      Actual:   %s\n", formatValue(a.Actual, 100))
			if a.Message != "" {
				fmt.Fprintf(f.writer, "      %s\n", a.Message)
			}
		}
	}

	fmt.Fprintf(f.writer, "\n")
	fmt.Fprintf(f.writer, "Tests: ")
	if result.Passed > 0 {
		fmt.Fprintf(f.writer, "%s, ", green(fmt.Sprintf("%d passed", result.Passed)))
	}
	if result.Failed > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d failed", result.Failed)))
	}
	if result.Errored > 0 {
		fmt.Fprintf(f.writer, "%s, ", magenta(fmt.Sprintf("%d errored", result.Errored)))
	}
	if result.Skipped > 0 {
		fmt.Fprintf(f.writer, "%s, ", yellow(fmt.Sprintf("%d skipped", result.Skipped)))
	}
	total := result.Passed + result.Failed + result.Errored + result.Skipped
	fmt.Fprintf(f.writer, "%d total\n", total)
	fmt.Fprintf(f.writer, "Time:  %dms\n", result.Duration.Milliseconds())
	if f.verbose && result.Latency.Count > 0 {
		fmt.Fprintf(f.writer, "Latency: %s\n", result.Latency)
	}
	fmt.Fprintf(f.writer, "\n")
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", bold("postspec"), version)
}
