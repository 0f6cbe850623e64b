package runner

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/postspec/packages/assertions"
	"github.com/abdul-hamid-achik/postspec/packages/mock"
	"github.com/abdul-hamid-achik/postspec/packages/spec"
	"github.com/abdul-hamid-achik/postspec/packages/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu      sync.Mutex
	entries []trace.Entry
}

func (s *recordingSink) Record(_ context.Context, e trace.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return nil
}

func (s *recordingSink) Close() error { return nil }

func mockAPI(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(mock.NewServer().Handler())
	t.Cleanup(srv.Close)
	return srv
}

func postByID(baseURI string) spec.RequestSpec {
	return spec.NewRequestSpec(baseURI, spec.ContentTypeJSON, "/posts/{id}")
}

func TestNewRunner(t *testing.T) {
	t.Run("with nil config", func(t *testing.T) {
		r := NewRunner(nil)
		assert.NotNil(t, r)
		assert.NotNil(t, r.client)
		assert.NotNil(t, r.config)
	})

	t.Run("with custom config", func(t *testing.T) {
		cfg := &Config{
			Parallel:    true,
			Concurrency: 10,
			RateLimit:   5,
		}
		r := NewRunner(cfg)
		assert.NotNil(t, r)
		assert.True(t, r.config.Parallel)
		assert.Equal(t, 10, r.config.Concurrency)
	})
}

func TestRunner_Execute_Pass(t *testing.T) {
	srv := mockAPI(t)
	r := NewRunner(&Config{})

	resp := spec.WithFieldsAndBody(
		map[string]assertions.Predicate{
			"id":     assertions.Equal(1),
			"userId": assertions.Equal(1),
			"title":  assertions.Equal(mock.FirstPostTitle),
		},
		assertions.MatchesSchema(assertions.SchemaOnePost),
		200,
	)

	result := r.Execute(context.Background(), postByID(srv.URL), resp, spec.Params{"id": 1}, spec.ParamPath)

	require.NoError(t, result.Error)
	assert.Equal(t, OutcomePass, result.Outcome)
	assert.True(t, result.Passed)
	assert.Len(t, result.Assertions, 5)
	assert.Empty(t, result.Failures())
	assert.Equal(t, srv.URL+"/posts/1", result.Request.URL)
}

func TestRunner_Execute_FailReportsEveryMismatch(t *testing.T) {
	srv := mockAPI(t)
	r := NewRunner(&Config{})

	resp := spec.WithFieldsAndBody(
		map[string]assertions.Predicate{
			"id":     assertions.Equal(2),
			"userId": assertions.Equal(5),
		},
		assertions.MatchesSchema(assertions.SchemaManyPosts),
		201,
	)

	result := r.Execute(context.Background(), postByID(srv.URL), resp, spec.Params{"id": 1}, spec.ParamPath)

	require.NoError(t, result.Error)
	assert.Equal(t, OutcomeFail, result.Outcome)
	assert.False(t, result.Passed)

	failures := result.Failures()
	require.Len(t, failures, 4)
	assert.Equal(t, "status", failures[0].Subject)
	assert.Equal(t, "id", failures[1].Subject)
	assert.Equal(t, "userId", failures[2].Subject)
	assert.Equal(t, "body", failures[3].Subject)
}

func TestRunner_Execute_MalformedBodyIsMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>oops</html>"))
	}))
	defer srv.Close()

	r := NewRunner(&Config{})
	resp := spec.WithFieldsAndBody(
		map[string]assertions.Predicate{"id": assertions.Equal(1)},
		assertions.MatchesSchema(assertions.SchemaOnePost),
		200,
	)

	result := r.Execute(context.Background(), postByID(srv.URL), resp, spec.Params{"id": 1}, spec.ParamPath)

	require.NoError(t, result.Error)
	assert.Equal(t, OutcomeFail, result.Outcome)
	require.Len(t, result.Failures(), 2)
	assert.Contains(t, result.Failures()[0].Message, "not JSON")
}

func TestRunner_Execute_SetsContentHeaders(t *testing.T) {
	var contentType, accept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		accept = r.Header.Get("Accept")
		_, _ = w.Write([]byte("{}"))
	}))
	defer srv.Close()

	r := NewRunner(&Config{})
	req := spec.NewRequestSpec(srv.URL, spec.ContentTypeJSON, "/posts")
	result := r.Execute(context.Background(), req, spec.WithBodyCheck(assertions.Is("{}"), 200), nil, spec.ParamNone)

	assert.Equal(t, OutcomePass, result.Outcome)
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "application/json", accept)
}

func TestRunner_Execute_ErrorOutcomes(t *testing.T) {
	closed := httptest.NewServer(http.NotFoundHandler())
	closedURL := closed.URL
	closed.Close()

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()

	anything := spec.WithBodyCheck(assertions.Is("{}"), 200)

	t.Run("unbound placeholder", func(t *testing.T) {
		r := NewRunner(&Config{})
		result := r.Execute(context.Background(), postByID("http://localhost"), anything, spec.Params{}, spec.ParamPath)

		assert.Equal(t, OutcomeError, result.Outcome)
		assert.True(t, errors.Is(result.Error, spec.ErrUnboundPlaceholder))
		assert.Nil(t, result.Request)
	})

	t.Run("invalid base uri", func(t *testing.T) {
		r := NewRunner(&Config{})
		req := spec.NewRequestSpec("ftp://example.com", spec.ContentTypeJSON, "/posts")
		result := r.Execute(context.Background(), req, anything, nil, spec.ParamNone)

		assert.Equal(t, OutcomeError, result.Outcome)
		assert.Error(t, result.Error)
	})

	t.Run("connection refused", func(t *testing.T) {
		r := NewRunner(&Config{})
		req := spec.NewRequestSpec(closedURL, spec.ContentTypeJSON, "/posts")
		result := r.Execute(context.Background(), req, anything, nil, spec.ParamNone)

		assert.Equal(t, OutcomeError, result.Outcome)
		assert.Error(t, result.Error)
		assert.Nil(t, result.Response)
		assert.Empty(t, result.Assertions)
	})

	t.Run("timeout", func(t *testing.T) {
		r := NewRunner(&Config{Timeout: 50 * time.Millisecond})
		req := spec.NewRequestSpec(slow.URL, spec.ContentTypeJSON, "/posts")
		result := r.Execute(context.Background(), req, anything, nil, spec.ParamNone)

		assert.Equal(t, OutcomeError, result.Outcome)
		assert.Error(t, result.Error)
	})
}

func TestRunner_Execute_Idempotent(t *testing.T) {
	srv := mockAPI(t)
	r := NewRunner(&Config{})
	req := spec.NewRequestSpec(srv.URL, spec.ContentTypeJSON, "/posts?userId={userId}")
	resp := spec.WithFieldsAndBody(
		map[string]assertions.Predicate{"userId": assertions.EveryItem(assertions.Equal(2))},
		assertions.MatchesSchema(assertions.SchemaManyPosts),
		200,
	)

	first := r.Execute(context.Background(), req, resp, spec.Params{"userId": 2}, spec.ParamQuery)
	second := r.Execute(context.Background(), req, resp, spec.Params{"userId": 2}, spec.ParamQuery)

	assert.Equal(t, OutcomePass, first.Outcome)
	assert.Equal(t, first.Outcome, second.Outcome)
	assert.Equal(t, first.Response.Body, second.Response.Body)
}

func TestRunner_Execute_TracesExchange(t *testing.T) {
	srv := mockAPI(t)
	sink := &recordingSink{}
	r := NewRunner(&Config{Sink: sink})

	ctx := trace.WithCase(trace.WithRunID(context.Background(), "run-1"), "get post")
	r.Execute(ctx, postByID(srv.URL), spec.WithBodyCheck(assertions.MatchesSchema(assertions.SchemaOnePost), 200), spec.Params{"id": 1}, spec.ParamPath)

	require.Len(t, sink.entries, 1)
	e := sink.entries[0]
	assert.Equal(t, "run-1", e.RunID)
	assert.Equal(t, "get post", e.Case)
	assert.Equal(t, srv.URL+"/posts/1", e.URL)
	assert.Equal(t, 200, e.StatusCode)
	assert.NotEmpty(t, e.Body)
}

func newSuite(baseURI string) *Suite {
	req := postByID(baseURI)
	return &Suite{
		Name: "posts",
		Cases: []*Case{
			{
				Name:     "valid id",
				Tags:     []string{"smoke"},
				Request:  req,
				Params:   spec.Params{"id": 1},
				Mode:     spec.ParamPath,
				Response: spec.WithBodyCheck(assertions.MatchesSchema(assertions.SchemaOnePost), 200),
			},
			{
				Name:     "invalid id",
				Request:  req,
				Params:   spec.Params{"id": 9999},
				Mode:     spec.ParamPath,
				Response: spec.WithBodyCheck(assertions.Is("{}"), 200),
			},
			{
				Name:     "wrong expectation",
				Tags:     []string{"smoke"},
				Request:  req,
				Params:   spec.Params{"id": 2},
				Mode:     spec.ParamPath,
				Response: spec.WithBodyCheck(assertions.Is("{}"), 200),
			},
			{
				Name:     "skipped",
				Skip:     "not ready",
				Request:  req,
				Params:   spec.Params{"id": 3},
				Mode:     spec.ParamPath,
				Response: spec.WithBodyCheck(assertions.Is("{}"), 200),
			},
			{
				Name:     "unbound",
				Request:  req,
				Mode:     spec.ParamPath,
				Response: spec.WithBodyCheck(assertions.Is("{}"), 200),
			},
		},
	}
}

func TestRunner_RunSuite(t *testing.T) {
	srv := mockAPI(t)
	sink := &recordingSink{}
	r := NewRunner(&Config{Sink: sink})

	result, err := r.RunSuite(context.Background(), newSuite(srv.URL))
	require.NoError(t, err)

	assert.Equal(t, "posts", result.Suite)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 2, result.Passed)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Errored)
	assert.Equal(t, 1, result.Skipped)
	assert.False(t, result.Success())
	require.Len(t, result.Results, 5)

	assert.Equal(t, "skipped", result.Results[3].Name)
	assert.Equal(t, "not ready", result.Results[3].SkipReason)
	assert.Equal(t, int64(3), result.Latency.Count)

	require.Len(t, sink.entries, 3)
	for _, e := range sink.entries {
		assert.Equal(t, result.RunID, e.RunID)
	}
	assert.Equal(t, "valid id", sink.entries[0].Case)
}

func TestRunner_RunSuite_NilSuite(t *testing.T) {
	_, err := NewRunner(nil).RunSuite(context.Background(), nil)
	assert.Error(t, err)
}

func TestRunner_NameFilter(t *testing.T) {
	srv := mockAPI(t)
	r := NewRunner(&Config{NameFilter: "*id"})

	result, err := r.RunSuite(context.Background(), newSuite(srv.URL))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Passed)
	assert.Equal(t, 3, result.Skipped)
	assert.True(t, result.Success())
}

func TestRunner_TagsFilter(t *testing.T) {
	srv := mockAPI(t)
	r := NewRunner(&Config{TagsFilter: []string{"smoke"}})

	result, err := r.RunSuite(context.Background(), newSuite(srv.URL))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 3, result.Skipped)
}

func TestRunner_Bail(t *testing.T) {
	srv := mockAPI(t)
	r := NewRunner(&Config{Bail: true})

	result, err := r.RunSuite(context.Background(), newSuite(srv.URL))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Passed)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 0, result.Errored)
	assert.Equal(t, 2, result.Skipped)
	assert.Equal(t, "bail: previous case failed", result.Results[4].SkipReason)
}

func TestRunner_Parallel(t *testing.T) {
	srv := mockAPI(t)
	r := NewRunner(&Config{Parallel: true, Concurrency: 3})

	result, err := r.RunSuite(context.Background(), newSuite(srv.URL))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Passed)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Errored)
	assert.Equal(t, 1, result.Skipped)

	names := make([]string, len(result.Results))
	for i, res := range result.Results {
		names[i] = res.Name
	}
	assert.Equal(t, []string{"valid id", "invalid id", "wrong expectation", "skipped", "unbound"}, names)
}

func TestRunner_RunSuite_Cancelled(t *testing.T) {
	srv := mockAPI(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := NewRunner(&Config{}).RunSuite(ctx, newSuite(srv.URL))
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Equal(t, 5, result.Skipped)
}

func TestRunner_WaitFor(t *testing.T) {
	srv := mockAPI(t)
	r := NewRunner(&Config{})

	err := r.WaitFor(context.Background(), srv.URL+"/posts/1", 200, time.Second, 10*time.Millisecond)
	assert.NoError(t, err)

	err = r.WaitFor(context.Background(), srv.URL+"/nope", 200, 100*time.Millisecond, 20*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "got status 404")
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "pass", OutcomePass.String())
	assert.Equal(t, "fail", OutcomeFail.String())
	assert.Equal(t, "error", OutcomeError.String())
	assert.Equal(t, "skip", OutcomeSkip.String())
}

func TestSuiteFind(t *testing.T) {
	s := newSuite("http://localhost")
	c, ok := s.Find("invalid id")
	require.True(t, ok)
	assert.Equal(t, spec.Params{"id": 9999}, c.Params)

	_, ok = s.Find("missing")
	assert.False(t, ok)
}

func TestMatchesPattern(t *testing.T) {
	tests := []struct {
		name     string
		pattern  string
		expected bool
	}{
		{"exact match", "testName", true},
		{"prefix match", "test*", true},
		{"suffix match", "*Name", true},
		{"contains match", "*stNa*", true},
		{"no match", "other*", false},
		{"empty pattern", "", true},
		{"wildcard", "*", true},
	}

	for _, tt := range tests {
		t.Run(tt.name+" - "+tt.pattern, func(t *testing.T) {
			result := matchesPattern("testName", tt.pattern)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestHasAnyTag(t *testing.T) {
	tests := []struct {
		tags     []string
		filters  []string
		expected bool
	}{
		{[]string{"smoke", "api"}, []string{"smoke"}, true},
		{[]string{"smoke", "api"}, []string{"integration"}, false},
		{[]string{"smoke", "api"}, []string{"smoke", "integration"}, true},
		{[]string{}, []string{"smoke"}, false},
		{[]string{"smoke"}, []string{}, false},
	}

	for _, tt := range tests {
		result := hasAnyTag(tt.tags, tt.filters)
		assert.Equal(t, tt.expected, result)
	}
}

func TestSuiteRebase(t *testing.T) {
	s := newSuite("http://old.example")
	rebased := s.Rebase("http://new.example")

	require.Len(t, rebased.Cases, len(s.Cases))
	assert.Equal(t, "http://new.example", rebased.Cases[0].Request.BaseURI())
	assert.Equal(t, "http://old.example", s.Cases[0].Request.BaseURI())
	assert.Equal(t, s.Cases[0].Name, rebased.Cases[0].Name)
}
