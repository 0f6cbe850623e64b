package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/posts/1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id": 1}`))
	}))
	defer server.Close()

	client := NewClient()
	resp, err := client.Get(context.Background(), server.URL+"/posts/1", nil)

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header("Content-Type"))
	assert.True(t, resp.HasJSONBody())
	assert.Contains(t, resp.BodyString(), `"id"`)
}

func TestClient_QueryParams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("userId"))
		assert.Equal(t, "a b", r.URL.Query().Get("title"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	req := NewRequest("GET", server.URL+"/posts").
		SetQueryParam("userId", "1").
		SetQueryParam("title", "a b")

	resp, err := NewClient().Do(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestClient_WithTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(WithTimeout(50 * time.Millisecond))
	_, err := client.Get(context.Background(), server.URL, nil)

	assert.Error(t, err)
}

func TestClient_WithDefaultHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "custom-agent", r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(WithDefaultHeaders(map[string]string{
		"Accept":     "application/json",
		"User-Agent": "custom-agent",
	}))
	resp, err := client.Get(context.Background(), server.URL, nil)

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestClient_FollowRedirects(t *testing.T) {
	redirectCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/final" {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`final`))
			return
		}
		redirectCount++
		http.Redirect(w, r, "/final", http.StatusFound)
	}))
	defer server.Close()

	client := NewClient(WithFollowRedirects(true))
	resp, err := client.Get(context.Background(), server.URL+"/redirect", nil)

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "final", resp.BodyString())
	assert.Equal(t, 1, redirectCount)
}

func TestClient_NoFollowRedirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusFound)
	}))
	defer server.Close()

	client := NewClient(WithFollowRedirects(false))
	resp, err := client.Get(context.Background(), server.URL+"/redirect", nil)

	require.NoError(t, err)
	assert.Equal(t, 302, resp.StatusCode)
}

func TestClient_Filters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	var mu sync.Mutex
	var seen []string
	filter := func(ctx context.Context, req *Request, resp *Response, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			seen = append(seen, "error")
			return
		}
		seen = append(seen, resp.BodyString())
	}

	client := NewClient(WithFilter(filter))

	_, err := client.Get(context.Background(), server.URL+"/posts", nil)
	require.NoError(t, err)

	_, err = client.Get(context.Background(), "ftp://example.com", nil)
	require.Error(t, err)

	assert.Equal(t, []string{"[]", "error"}, seen)
}

func TestClient_WithRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(WithRateLimit(10))

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.Get(context.Background(), server.URL, nil)
		require.NoError(t, err)
	}
	// burst of 1 at 10 rps: the 2nd and 3rd requests wait ~100ms each
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestClient_RateLimitHonorsContext(t *testing.T) {
	client := NewClient(WithRateLimit(0.001))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Get(ctx, "http://127.0.0.1:1", nil)
	assert.Error(t, err)
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid http URL",
			url:     "http://example.com/path",
			wantErr: false,
		},
		{
			name:    "valid https URL",
			url:     "https://jsonplaceholder.typicode.com/posts",
			wantErr: false,
		},
		{
			name:    "invalid scheme",
			url:     "ftp://example.com",
			wantErr: true,
			errMsg:  "unsupported URL scheme",
		},
		{
			name:    "missing scheme",
			url:     "example.com/path",
			wantErr: true,
			errMsg:  "unsupported URL scheme",
		},
		{
			name:    "missing host",
			url:     "http:///path",
			wantErr: true,
			errMsg:  "URL must have a host",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestResponse_HasJSONBody(t *testing.T) {
	tests := []struct {
		body     string
		expected bool
	}{
		{`{}`, true},
		{`[]`, true},
		{`[{"id": 1}]`, true},
		{``, false},
		{`<html></html>`, false},
		{`{"id": `, false},
	}

	for _, tt := range tests {
		resp := &Response{Body: []byte(tt.body)}
		assert.Equal(t, tt.expected, resp.HasJSONBody(), "Body: %q", tt.body)
	}
}

func TestResponse_IsJSON(t *testing.T) {
	tests := []struct {
		contentType string
		expected    bool
	}{
		{"application/json", true},
		{"application/json; charset=utf-8", true},
		{"text/html", false},
		{"", false},
	}

	for _, tt := range tests {
		resp := &Response{Headers: map[string]string{"Content-Type": tt.contentType}}
		assert.Equal(t, tt.expected, resp.IsJSON(), "Content-Type: %s", tt.contentType)
	}
}

func TestRequest_Curl(t *testing.T) {
	req := NewRequest("GET", "http://localhost:3000/posts/1")
	req.SetHeader("Content-Type", "application/json")
	req.SetHeader("Accept", "application/json")

	assert.Equal(t,
		`curl -H 'Accept: application/json' -H 'Content-Type: application/json' http://localhost:3000/posts/1`,
		req.Curl())

	query := NewRequest("HEAD", "http://localhost:3000/posts?title=it's")
	assert.Equal(t, `curl -X HEAD 'http://localhost:3000/posts?title=it'"'"'s'`, query.Curl())
}
