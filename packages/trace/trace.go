// Package trace records request/response exchanges for diagnosis.
//
// Sinks are installed once as HTTP client filters. The run ID and case name
// travel in the request context, so a sink can attribute every exchange
// without the executor knowing which sinks exist.
package trace

import (
	"context"
	"errors"
	"time"

	"github.com/abdul-hamid-achik/postspec/packages/http"
	"github.com/google/uuid"
)

// Entry is one captured exchange.
type Entry struct {
	RunID      string
	Case       string
	Time       time.Time
	Method     string
	URL        string
	// Curl is a shell command reproducing the request.
	Curl       string
	StatusCode int
	Duration   time.Duration
	Body       []byte
	Error      string
}

type Sink interface {
	Record(ctx context.Context, entry Entry) error
	Close() error
}

type contextKey int

const (
	runIDKey contextKey = iota
	caseKey
)

// NewRunID returns a fresh identifier for one suite run.
func NewRunID() string {
	return uuid.New().String()
}

func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

func WithCase(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, caseKey, name)
}

func RunID(ctx context.Context) string {
	v, _ := ctx.Value(runIDKey).(string)
	return v
}

func CaseName(ctx context.Context) string {
	v, _ := ctx.Value(caseKey).(string)
	return v
}

// NewEntry builds an entry from a finished exchange and the context it ran
// in.
func NewEntry(ctx context.Context, req *http.Request, resp *http.Response, err error) Entry {
	entry := Entry{
		RunID: RunID(ctx),
		Case:  CaseName(ctx),
		Time:  time.Now(),
	}
	if req != nil {
		entry.Method = req.Method
		entry.URL = req.BuildURL()
		entry.Curl = req.Curl()
	}
	if resp != nil {
		entry.StatusCode = resp.StatusCode
		entry.Duration = resp.Duration
		entry.Body = resp.Body
	}
	if err != nil {
		entry.Error = err.Error()
	}
	return entry
}

// Filter adapts a sink to an HTTP client filter. Sink failures go to onError
// and never affect the exchange.
func Filter(sink Sink, onError func(error)) http.Filter {
	return func(ctx context.Context, req *http.Request, resp *http.Response, err error) {
		if recErr := sink.Record(ctx, NewEntry(ctx, req, resp, err)); recErr != nil && onError != nil {
			onError(recErr)
		}
	}
}

type multiSink []Sink

// Multi fans entries out to every sink.
func Multi(sinks ...Sink) Sink {
	return multiSink(sinks)
}

func (m multiSink) Record(ctx context.Context, entry Entry) error {
	var errs []error
	for _, s := range m {
		if err := s.Record(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multiSink) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
