package runner

import (
	"context"
	"fmt"
	"time"
)

// WaitFor polls url until it answers with the expected status or the
// timeout elapses.
func (r *Runner) WaitFor(ctx context.Context, url string, expectedStatus int, timeout, interval time.Duration) error {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr error
	var lastStatus int

	for {
		resp, err := r.client.Get(ctx, url, nil)
		if err == nil {
			lastStatus = resp.StatusCode
			if resp.StatusCode == expectedStatus {
				return nil
			}
		} else {
			lastErr = err
		}

		select {
		case <-ctx.Done():
			if lastStatus != 0 {
				return fmt.Errorf("service %s not ready after %v: got status %d, expected %d",
					url, timeout, lastStatus, expectedStatus)
			}
			return fmt.Errorf("service %s not ready after %v: %v", url, timeout, lastErr)
		case <-ticker.C:
		}
	}
}
