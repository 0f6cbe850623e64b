package stats

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLatencyEmpty(t *testing.T) {
	l := NewLatency()
	s := l.Summary()

	assert.Equal(t, int64(0), s.Count)
	assert.Equal(t, "no samples", s.String())
}

func TestLatencySummary(t *testing.T) {
	l := NewLatency()
	for i := 1; i <= 100; i++ {
		l.Record(time.Duration(i) * time.Millisecond)
	}

	s := l.Summary()
	assert.Equal(t, int64(100), s.Count)
	assert.InDelta(t, float64(time.Millisecond), float64(s.Min), float64(time.Millisecond)/100)
	assert.InDelta(t, float64(100*time.Millisecond), float64(s.Max), float64(time.Millisecond))
	assert.InDelta(t, float64(50*time.Millisecond), float64(s.P50), float64(time.Millisecond))
	assert.InDelta(t, float64(95*time.Millisecond), float64(s.P95), float64(time.Millisecond))
	assert.InDelta(t, float64(99*time.Millisecond), float64(s.P99), float64(time.Millisecond))
	assert.Contains(t, s.String(), "n=100")
}

func TestLatencyClampsOutOfRange(t *testing.T) {
	l := NewLatency()
	l.Record(0)
	l.Record(2 * time.Minute)

	s := l.Summary()
	assert.Equal(t, int64(2), s.Count)
	assert.Equal(t, time.Microsecond, s.Min)
	assert.InDelta(t, float64(time.Minute), float64(s.Max), float64(100*time.Millisecond))
}

func TestLatencyConcurrentRecord(t *testing.T) {
	l := NewLatency()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				l.Record(time.Millisecond)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(500), l.Summary().Count)
}
