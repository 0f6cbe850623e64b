// Package mock provides an in-memory fake of a jsonplaceholder-style /posts
// API for offline runs and tests.
package mock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
)

// FilterFields are the query parameters /posts filters on. Others are
// ignored.
var FilterFields = []string{"id", "userId", "title", "body"}

// Server is a mock HTTP server serving the posts resource
type Server struct {
	router  *Router
	port    int
	delay   time.Duration
	verbose bool
	posts   []Post
	raw     [][]byte
}

// Option is a functional option for Server
type Option func(*Server)

// WithPort sets the server port
func WithPort(port int) Option {
	return func(s *Server) {
		s.port = port
	}
}

// WithDelay adds a delay to all responses
func WithDelay(delay time.Duration) Option {
	return func(s *Server) {
		s.delay = delay
	}
}

// WithVerbose enables verbose logging
func WithVerbose(verbose bool) Option {
	return func(s *Server) {
		s.verbose = verbose
	}
}

// WithPosts replaces the built-in dataset.
func WithPosts(posts []Post) Option {
	return func(s *Server) {
		s.posts = posts
	}
}

// NewServer creates a new mock server
func NewServer(opts ...Option) *Server {
	s := &Server{
		router: NewRouter(),
		port:   3000,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.posts == nil {
		s.posts = DefaultPosts()
	}

	s.raw = make([][]byte, len(s.posts))
	for i, p := range s.posts {
		// Post has only string and int fields; Marshal cannot fail.
		s.raw[i], _ = json.Marshal(p)
	}

	s.router.Handle(http.MethodGet, "/posts", "list posts", s.listPosts)
	s.router.Handle(http.MethodGet, "/posts/{id}", "get post", s.getPost)
	return s
}

// Handler returns the server's HTTP handler, for use with httptest.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.handleRequest)
}

// Posts returns the dataset being served.
func (s *Server) Posts() []Post {
	return s.posts
}

// GetRoutes returns all registered routes
func (s *Server) GetRoutes() []*Route {
	return s.router.routes
}

// Start starts the mock server
func (s *Server) Start() error {
	return s.StartWithContext(context.Background())
}

// StartWithContext starts the server with context for graceful shutdown
func (s *Server) StartWithContext(ctx context.Context) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Printf("Mock server starting on http://localhost:%d", s.port)
	log.Printf("Posts loaded: %d", len(s.posts))

	if s.verbose {
		for _, route := range s.router.routes {
			log.Printf("  %s %s (%s)", route.Method, route.PathPattern, route.Name)
		}
	}

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	route, params := s.router.Match(r.Method, r.URL.Path)
	if route == nil {
		if s.verbose {
			log.Printf("%s %s -> 404 Not Found (%s)", r.Method, r.URL.Path, time.Since(start))
		}
		http.NotFound(w, r)
		return
	}

	route.Handler(w, r, params)

	if s.verbose {
		log.Printf("%s %s -> %s (%s)", r.Method, r.URL.RequestURI(), route.Name, time.Since(start))
	}
}

// listPosts returns every post matching all filters. A filter matches when
// the field's string form equals one of the given values, so an ill-typed
// or unknown value yields an empty list.
func (s *Server) listPosts(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	query := r.URL.Query()

	out := []byte{'['}
	n := 0
	for _, raw := range s.raw {
		if !matchesFilters(raw, query) {
			continue
		}
		if n > 0 {
			out = append(out, ',')
		}
		out = append(out, raw...)
		n++
	}
	out = append(out, ']')

	writeJSON(w, out)
}

func matchesFilters(raw []byte, query map[string][]string) bool {
	for _, field := range FilterFields {
		values, ok := query[field]
		if !ok {
			continue
		}
		actual := gjson.GetBytes(raw, field).String()

		matched := false
		for _, v := range values {
			if v == actual {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// getPost answers unknown and non-numeric ids with an empty object and
// status 200, as the public API does.
func (s *Server) getPost(w http.ResponseWriter, _ *http.Request, params map[string]string) {
	id, err := strconv.Atoi(params["id"])
	if err == nil {
		for i, p := range s.posts {
			if p.ID == id {
				writeJSON(w, s.raw[i])
				return
			}
		}
	}
	writeJSON(w, []byte("{}"))
}

func writeJSON(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
