// Package stats aggregates response latencies of a suite run.
package stats

import (
	"fmt"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const (
	// Latencies are tracked in microseconds, 1us to 60s, 3 significant digits.
	minLatencyUs = 1
	maxLatencyUs = 60_000_000
	sigFigs      = 3
)

// Latency collects response times. It is safe for concurrent use.
type Latency struct {
	mu        sync.Mutex
	histogram *hdrhistogram.Histogram
}

func NewLatency() *Latency {
	return &Latency{
		histogram: hdrhistogram.New(minLatencyUs, maxLatencyUs, sigFigs),
	}
}

// Record adds one observation. Values outside the tracked range are clamped.
func (l *Latency) Record(d time.Duration) {
	us := d.Microseconds()
	if us < minLatencyUs {
		us = minLatencyUs
	}
	if us > maxLatencyUs {
		us = maxLatencyUs
	}

	l.mu.Lock()
	_ = l.histogram.RecordValue(us)
	l.mu.Unlock()
}

type Summary struct {
	Count int64
	Min   time.Duration
	Max   time.Duration
	Mean  time.Duration
	P50   time.Duration
	P95   time.Duration
	P99   time.Duration
}

func (s Summary) String() string {
	if s.Count == 0 {
		return "no samples"
	}
	return fmt.Sprintf("n=%d min=%s p50=%s p95=%s p99=%s max=%s",
		s.Count, round(s.Min), round(s.P50), round(s.P95), round(s.P99), round(s.Max))
}

func (l *Latency) Summary() Summary {
	l.mu.Lock()
	defer l.mu.Unlock()

	h := l.histogram
	if h.TotalCount() == 0 {
		return Summary{}
	}
	return Summary{
		Count: h.TotalCount(),
		Min:   usToDuration(h.Min()),
		Max:   usToDuration(h.Max()),
		Mean:  time.Duration(h.Mean()) * time.Microsecond,
		P50:   usToDuration(h.ValueAtQuantile(50)),
		P95:   usToDuration(h.ValueAtQuantile(95)),
		P99:   usToDuration(h.ValueAtQuantile(99)),
	}
}

func usToDuration(us int64) time.Duration {
	return time.Duration(us) * time.Microsecond
}

func round(d time.Duration) time.Duration {
	if d >= time.Second {
		return d.Round(time.Millisecond)
	}
	return d.Round(time.Microsecond)
}
