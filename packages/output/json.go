package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/postspec/packages/core/runner"
)

// JSONOutput represents the complete JSON output structure
type JSONOutput struct {
	Summary  JSONSummary   `json:"summary"`
	Suites   []JSONLatency `json:"suites,omitempty"`
	Tests    []JSONTest    `json:"tests"`
	Duration float64       `json:"duration"`
	Time     string        `json:"time"`
}

// JSONSummary represents the test summary
type JSONSummary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Errored int `json:"errored"`
	Skipped int `json:"skipped"`
}

// JSONLatency is the latency summary of one suite run, in milliseconds.
type JSONLatency struct {
	Suite string  `json:"suite"`
	RunID string  `json:"runId"`
	Count int64   `json:"count"`
	Min   float64 `json:"min"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Max   float64 `json:"max"`
}

// JSONTest represents a single test result
type JSONTest struct {
	Name       string          `json:"name"`
	Suite      string          `json:"suite"`
	Outcome    string          `json:"outcome"`
	Passed     bool            `json:"passed"`
	Skipped    bool            `json:"skipped,omitempty"`
	SkipReason string          `json:"skipReason,omitempty"`
	Duration   float64         `json:"duration"`
	Error      string          `json:"error,omitempty"`
	Request    *JSONRequest    `json:"request,omitempty"`
	Response   *JSONResponse   `json:"response,omitempty"`
	Assertions []JSONAssertion `json:"assertions,omitempty"`
}

// JSONRequest represents request details
type JSONRequest struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
}

// JSONResponse represents response details
type JSONResponse struct {
	StatusCode int               `json:"statusCode"`
	Status     string            `json:"status"`
	Headers    map[string]string `json:"headers,omitempty"`
	Duration   float64           `json:"duration"`
}

// JSONAssertion represents an assertion result
type JSONAssertion struct {
	Subject  string `json:"subject"`
	Expected string `json:"expected"`
	Actual   any    `json:"actual"`
	Passed   bool   `json:"passed"`
	Message  string `json:"message,omitempty"`
}

// JSONFormatter formats test results as JSON
type JSONFormatter struct {
	writer  io.Writer
	results []JSONTest
	suites  []JSONLatency
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer:  os.Stdout,
		results: make([]JSONTest, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

func (f *JSONFormatter) FormatResult(result *runner.RunResult) {
	f.suites = append(f.suites, JSONLatency{
		Suite: result.Suite,
		RunID: result.RunID,
		Count: result.Latency.Count,
		Min:   ms(result.Latency.Min),
		P50:   ms(result.Latency.P50),
		P95:   ms(result.Latency.P95),
		P99:   ms(result.Latency.P99),
		Max:   ms(result.Latency.Max),
	})

	for _, r := range result.Results {
		test := JSONTest{
			Name:     r.Name,
			Suite:    result.Suite,
			Outcome:  r.Outcome.String(),
			Passed:   r.Passed,
			Skipped:  r.Skipped,
			Duration: float64(r.Duration.Milliseconds()),
		}

		if r.SkipReason != "" && r.SkipReason != "filtered out" {
			test.SkipReason = r.SkipReason
		}

		if r.Error != nil {
			test.Error = r.Error.Error()
		}

		if r.Request != nil {
			test.Request = &JSONRequest{
				Method:  r.Request.Method,
				URL:     r.Request.BuildURL(),
				Headers: r.Request.Headers,
			}
		}

		if r.Response != nil {
			test.Response = &JSONResponse{
				StatusCode: r.Response.StatusCode,
				Status:     r.Response.Status,
				Headers:    r.Response.Headers,
				Duration:   float64(r.Response.Duration.Milliseconds()),
			}
		}

		if len(r.Assertions) > 0 {
			test.Assertions = make([]JSONAssertion, len(r.Assertions))
			for i, a := range r.Assertions {
				test.Assertions[i] = JSONAssertion{
					Subject:  a.Subject,
					Expected: a.Expected,
					Actual:   a.Actual,
					Passed:   a.Passed,
					Message:  a.Message,
				}
			}
		}

		f.results = append(f.results, test)
	}
}

func (f *JSONFormatter) FormatError(err error) {
	// Errors are included in individual test results
}

func (f *JSONFormatter) FormatHeader(version string) {
	// No header needed for JSON output
}

// Flush writes the accumulated JSON output
func (f *JSONFormatter) Flush(totalDuration time.Duration) error {
	var summary JSONSummary
	summary.Total = len(f.results)
	for _, t := range f.results {
		switch t.Outcome {
		case "pass":
			summary.Passed++
		case "fail":
			summary.Failed++
		case "error":
			summary.Errored++
		default:
			summary.Skipped++
		}
	}

	output := JSONOutput{
		Summary:  summary,
		Suites:   f.suites,
		Tests:    f.results,
		Duration: float64(totalDuration.Milliseconds()),
		Time:     time.Now().Format(time.RFC3339),
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}
