package trace

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/tidwall/gjson"
)

// WriterSink prints each exchange and its body to a writer.
type WriterSink struct {
	mu      sync.Mutex
	writer  io.Writer
	bodies  bool
	maxBody int
}

type WriterOption func(*WriterSink)

func NewWriterSink(opts ...WriterOption) *WriterSink {
	s := &WriterSink{
		writer:  os.Stderr,
		bodies:  true,
		maxBody: 64 * 1024,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func WithWriter(w io.Writer) WriterOption {
	return func(s *WriterSink) {
		s.writer = w
	}
}

// WithBodies toggles printing response bodies.
func WithBodies(enabled bool) WriterOption {
	return func(s *WriterSink) {
		s.bodies = enabled
	}
}

// WithMaxBody truncates printed bodies to n bytes.
func WithMaxBody(n int) WriterOption {
	return func(s *WriterSink) {
		s.maxBody = n
	}
}

func (s *WriterSink) Record(_ context.Context, entry Entry) error {
	dim := color.New(color.Faint).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.Case != "" {
		fmt.Fprintf(s.writer, "%s %s\n", dim("trace"), entry.Case)
	}
	fmt.Fprintf(s.writer, "  → %s %s\n", entry.Method, entry.URL)
	if entry.Curl != "" {
		fmt.Fprintf(s.writer, "    %s\n", dim("$ "+entry.Curl))
	}

	if entry.Error != "" {
		fmt.Fprintf(s.writer, "  %s %s\n", red("← error:"), entry.Error)
		return nil
	}

	status := fmt.Sprintf("%d", entry.StatusCode)
	switch {
	case entry.StatusCode >= 500:
		status = red(status)
	case entry.StatusCode >= 400:
		status = yellow(status)
	default:
		status = green(status)
	}
	fmt.Fprintf(s.writer, "  ← %s (%dms)\n", status, entry.Duration.Milliseconds())

	if s.bodies && len(entry.Body) > 0 {
		fmt.Fprintf(s.writer, "%s\n", s.formatBody(entry.Body))
	}
	return nil
}

func (s *WriterSink) formatBody(body []byte) string {
	text := string(body)
	if gjson.ValidBytes(body) {
		text = gjson.GetBytes(body, "@pretty").Raw
	}
	if s.maxBody > 0 && len(text) > s.maxBody {
		text = text[:s.maxBody] + fmt.Sprintf("\n... (%d bytes truncated)", len(text)-s.maxBody)
	}
	return text
}

func (s *WriterSink) Close() error {
	return nil
}
