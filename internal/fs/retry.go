package fs

import (
	"context"
	"fmt"
	"time"
)

const (
	maxRetries = 5
	baseDelay  = 100 * time.Millisecond
)

// retry runs fn with exponential backoff while it fails with a transient error.
func retry(ctx context.Context, opName string, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if !isTransient(err) {
			return fmt.Errorf("%s failed: %w", opName, err)
		}

		if attempt == maxRetries {
			break
		}

		t := time.NewTimer(baseDelay * (1 << (attempt - 1)))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}

	return fmt.Errorf("%s failed after %d retries: %w", opName, maxRetries, lastErr)
}
