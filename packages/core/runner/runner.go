package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/abdul-hamid-achik/postspec/packages/assertions"
	"github.com/abdul-hamid-achik/postspec/packages/http"
	"github.com/abdul-hamid-achik/postspec/packages/spec"
	"github.com/abdul-hamid-achik/postspec/packages/stats"
	"github.com/abdul-hamid-achik/postspec/packages/trace"
)

const (
	// DefaultConcurrency is the default number of concurrent requests in parallel mode
	DefaultConcurrency = 5
)

type Runner struct {
	client *http.Client
	config *Config
}

type Config struct {
	Timeout        time.Duration
	FollowRedirect bool
	MaxRedirects   int
	SkipSSLVerify  bool
	Proxy          string
	Headers        map[string]string
	// RateLimit caps outgoing requests per second; zero means unlimited.
	RateLimit   float64
	Bail        bool
	NameFilter  string
	TagsFilter  []string
	Parallel    bool
	Concurrency int
	// Sink receives every exchange before its assertions run.
	Sink        trace.Sink
	OnSinkError func(error)
}

// NewRunner builds the HTTP client once; it is not reconfigured afterwards.
func NewRunner(cfg *Config) *Runner {
	if cfg == nil {
		cfg = &Config{}
	}

	clientOpts := []http.ClientOption{}
	if cfg.Timeout > 0 {
		clientOpts = append(clientOpts, http.WithTimeout(cfg.Timeout))
	}
	clientOpts = append(clientOpts, http.WithFollowRedirects(cfg.FollowRedirect))
	if cfg.MaxRedirects > 0 {
		clientOpts = append(clientOpts, http.WithMaxRedirects(cfg.MaxRedirects))
	}
	if cfg.SkipSSLVerify {
		clientOpts = append(clientOpts, http.WithValidateSSL(false))
	}
	if cfg.Proxy != "" {
		clientOpts = append(clientOpts, http.WithProxy(cfg.Proxy))
	}
	if len(cfg.Headers) > 0 {
		clientOpts = append(clientOpts, http.WithDefaultHeaders(cfg.Headers))
	}
	if cfg.RateLimit > 0 {
		clientOpts = append(clientOpts, http.WithRateLimit(cfg.RateLimit))
	}
	if cfg.Sink != nil {
		clientOpts = append(clientOpts, http.WithFilter(trace.Filter(cfg.Sink, cfg.OnSinkError)))
	}

	return &Runner{
		client: http.NewClient(clientOpts...),
		config: cfg,
	}
}

type RunResult struct {
	Suite    string
	RunID    string
	Results  []*RequestResult
	Duration time.Duration
	Passed   int
	Failed   int
	Errored  int
	Skipped  int
	Latency  stats.Summary
}

// Success reports whether no case failed or errored.
func (r *RunResult) Success() bool {
	return r.Failed == 0 && r.Errored == 0
}

type RequestResult struct {
	Name       string
	Outcome    Outcome
	Passed     bool
	Skipped    bool
	SkipReason string
	Duration   time.Duration
	Request    *http.Request
	Response   *http.Response
	Assertions []*assertions.Result
	Error      error
}

// Failures returns the assertions that did not pass.
func (r *RequestResult) Failures() []*assertions.Result {
	var failed []*assertions.Result
	for _, a := range r.Assertions {
		if !a.Passed {
			failed = append(failed, a)
		}
	}
	return failed
}

// Execute performs one GET built from reqSpec and params and verifies the
// response against respSpec. Transport and URL problems produce an error
// outcome; assertion mismatches produce a fail outcome listing every
// mismatch.
func (r *Runner) Execute(ctx context.Context, reqSpec spec.RequestSpec, respSpec spec.ResponseSpec, params spec.Params, mode spec.ParamMode) *RequestResult {
	if trace.RunID(ctx) == "" {
		ctx = trace.WithRunID(ctx, trace.NewRunID())
	}

	result := &RequestResult{}
	start := time.Now()

	url, err := reqSpec.Expand(params, mode)
	if err != nil {
		result.Outcome = OutcomeError
		result.Error = fmt.Errorf("building request URL: %w", err)
		return result
	}

	httpReq := http.NewRequest("GET", url)
	mime := reqSpec.ContentType().MIME()
	httpReq.SetHeader("Content-Type", mime)
	httpReq.SetHeader("Accept", mime)
	result.Request = httpReq

	resp, err := r.client.Do(ctx, httpReq)
	result.Duration = time.Since(start)

	if err != nil {
		result.Outcome = OutcomeError
		result.Error = err
		return result
	}
	result.Response = resp

	result.Assertions = respSpec.Verify(resp)
	result.Passed = true
	for _, a := range result.Assertions {
		if !a.Passed {
			result.Passed = false
			break
		}
	}
	if result.Passed {
		result.Outcome = OutcomePass
	} else {
		result.Outcome = OutcomeFail
	}

	return result
}

// RunCase executes a single case with its name attached to the context.
func (r *Runner) RunCase(ctx context.Context, c *Case) *RequestResult {
	if c.Skip != "" {
		return skipped(c.Name, c.Skip)
	}

	result := r.Execute(trace.WithCase(ctx, c.Name), c.Request, c.Response, c.Params, c.Mode)
	result.Name = c.Name
	return result
}

func (r *Runner) RunSuite(ctx context.Context, suite *Suite) (*RunResult, error) {
	if suite == nil {
		return nil, errors.New("suite is nil")
	}

	start := time.Now()
	result := &RunResult{
		Suite: suite.Name,
		RunID: trace.NewRunID(),
	}
	ctx = trace.WithRunID(ctx, result.RunID)
	latency := stats.NewLatency()

	var selected []*Case
	for _, c := range suite.Cases {
		if !r.shouldRun(c) {
			result.Results = append(result.Results, skipped(c.Name, "filtered out"))
			result.Skipped++
			continue
		}
		selected = append(selected, c)
	}

	var results []*RequestResult
	if r.config.Parallel {
		results = r.runParallel(ctx, selected)
	} else {
		results = r.runSequential(ctx, selected)
	}

	for _, res := range results {
		result.Results = append(result.Results, res)
		switch res.Outcome {
		case OutcomePass:
			result.Passed++
		case OutcomeFail:
			result.Failed++
		case OutcomeError:
			result.Errored++
		case OutcomeSkip:
			result.Skipped++
		}
		if res.Response != nil {
			latency.Record(res.Response.Duration)
		}
	}

	result.Latency = latency.Summary()
	result.Duration = time.Since(start)
	return result, ctx.Err()
}

func (r *Runner) runSequential(ctx context.Context, cases []*Case) []*RequestResult {
	results := make([]*RequestResult, 0, len(cases))
	halted := ""

	for _, c := range cases {
		if halted == "" && ctx.Err() != nil {
			halted = "cancelled"
		}
		if halted != "" {
			results = append(results, skipped(c.Name, halted))
			continue
		}

		res := r.RunCase(ctx, c)
		results = append(results, res)

		if r.config.Bail && (res.Outcome == OutcomeFail || res.Outcome == OutcomeError) {
			halted = "bail: previous case failed"
		}
	}
	return results
}

func (r *Runner) runParallel(ctx context.Context, cases []*Case) []*RequestResult {
	concurrency := r.config.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	results := make([]*RequestResult, len(cases))
	var wg sync.WaitGroup
	var bailed atomic.Bool
	sem := make(chan struct{}, concurrency)

	for i, c := range cases {
		wg.Add(1)
		sem <- struct{}{} // acquire semaphore

		go func(idx int, tc *Case) {
			defer wg.Done()
			defer func() { <-sem }() // release semaphore

			switch {
			case bailed.Load():
				results[idx] = skipped(tc.Name, "bail: previous case failed")
				return
			case ctx.Err() != nil:
				results[idx] = skipped(tc.Name, "cancelled")
				return
			}

			res := r.RunCase(ctx, tc)
			if r.config.Bail && (res.Outcome == OutcomeFail || res.Outcome == OutcomeError) {
				bailed.Store(true)
			}
			results[idx] = res
		}(i, c)
	}

	wg.Wait()
	return results
}

func (r *Runner) shouldRun(c *Case) bool {
	if r.config.NameFilter != "" {
		if c.Name == "" || !matchesPattern(c.Name, r.config.NameFilter) {
			return false
		}
	}

	if len(r.config.TagsFilter) > 0 {
		if !hasAnyTag(c.Tags, r.config.TagsFilter) {
			return false
		}
	}

	return true
}

func skipped(name, reason string) *RequestResult {
	return &RequestResult{
		Name:       name,
		Outcome:    OutcomeSkip,
		Skipped:    true,
		SkipReason: reason,
	}
}

func matchesPattern(name, pattern string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}

	if pattern[0] == '*' && pattern[len(pattern)-1] == '*' {
		substr := pattern[1 : len(pattern)-1]
		for i := 0; i <= len(name)-len(substr); i++ {
			if name[i:i+len(substr)] == substr {
				return true
			}
		}
		return false
	}

	if pattern[0] == '*' {
		suffix := pattern[1:]
		return len(name) >= len(suffix) && name[len(name)-len(suffix):] == suffix
	}

	if pattern[len(pattern)-1] == '*' {
		prefix := pattern[:len(pattern)-1]
		return len(name) >= len(prefix) && name[:len(prefix)] == prefix
	}

	return name == pattern
}

func hasAnyTag(tags []string, filters []string) bool {
	for _, filter := range filters {
		for _, tag := range tags {
			if tag == filter {
				return true
			}
		}
	}
	return false
}
