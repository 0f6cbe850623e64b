package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/postspec/packages/core/runner"
	"gopkg.in/yaml.v3"
)

// TAPFormatter formats test results in TAP (Test Anything Protocol) format
type TAPFormatter struct {
	writer    io.Writer
	testCount int
	results   []tapResult
}

type tapResult struct {
	number     int
	name       string
	outcome    runner.Outcome
	skipReason string
	diag       *tapDiagnostic
}

// tapDiagnostic is the YAML block attached to a failing test point.
type tapDiagnostic struct {
	Message  string       `yaml:"message,omitempty"`
	Severity string       `yaml:"severity"`
	URL      string       `yaml:"url,omitempty"`
	Failures []tapFailure `yaml:"failures,omitempty"`
}

type tapFailure struct {
	Subject  string `yaml:"subject"`
	Expected string `yaml:"expected"`
	Actual   string `yaml:"actual"`
	Message  string `yaml:"message,omitempty"`
}

type TAPOption func(*TAPFormatter)

func NewTAPFormatter(opts ...TAPOption) *TAPFormatter {
	f := &TAPFormatter{
		writer:  os.Stdout,
		results: make([]tapResult, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func TAPWithWriter(w io.Writer) TAPOption {
	return func(f *TAPFormatter) {
		f.writer = w
	}
}

func (f *TAPFormatter) FormatResult(result *runner.RunResult) {
	for _, r := range result.Results {
		f.testCount++
		tr := tapResult{
			number:     f.testCount,
			name:       r.Name,
			outcome:    r.Outcome,
			skipReason: r.SkipReason,
		}

		url := ""
		if r.Request != nil {
			url = r.Request.BuildURL()
		}

		switch r.Outcome {
		case runner.OutcomeError:
			tr.diag = &tapDiagnostic{
				Message:  r.Error.Error(),
				Severity: "error",
				URL:      url,
			}
		case runner.OutcomeFail:
			tr.diag = &tapDiagnostic{Severity: "fail", URL: url}
			for _, a := range r.Failures() {
				tr.diag.Failures = append(tr.diag.Failures, tapFailure{
					Subject:  a.Subject,
					Expected: a.Expected,
					Actual:   formatValue(a.Actual, 200),
					Message:  a.Message,
				})
			}
		}

		f.results = append(f.results, tr)
	}
}

func (f *TAPFormatter) FormatError(err error) {
	// Errors are included in individual test results
}

func (f *TAPFormatter) FormatHeader(version string) {
	// Header is written in Flush
}

// Flush writes the accumulated TAP output
func (f *TAPFormatter) Flush(totalDuration time.Duration) error {
	fmt.Fprintf(f.writer, "TAP version 13\n")
	fmt.Fprintf(f.writer, "1..%d\n", f.testCount)

	for _, r := range f.results {
		switch r.outcome {
		case runner.OutcomeSkip:
			reason := r.skipReason
			if reason == "" || reason == "filtered out" {
				reason = "SKIP"
			}
			fmt.Fprintf(f.writer, "ok %d - %s # SKIP %s\n", r.number, r.name, reason)
			continue
		case runner.OutcomePass:
			fmt.Fprintf(f.writer, "ok %d - %s\n", r.number, r.name)
			continue
		}

		fmt.Fprintf(f.writer, "not ok %d - %s\n", r.number, r.name)
		if err := f.writeDiagnostic(r.diag); err != nil {
			return err
		}
	}

	fmt.Fprintf(f.writer, "# time %dms\n", totalDuration.Milliseconds())
	return nil
}

func (f *TAPFormatter) writeDiagnostic(d *tapDiagnostic) error {
	if d == nil {
		return nil
	}
	data, err := yaml.Marshal(d)
	if err != nil {
		return fmt.Errorf("encoding TAP diagnostic: %w", err)
	}

	fmt.Fprintf(f.writer, "  ---\n")
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		fmt.Fprintf(f.writer, "  %s\n", line)
	}
	fmt.Fprintf(f.writer, "  ...\n")
	return nil
}
