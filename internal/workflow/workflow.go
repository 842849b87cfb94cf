// Package workflow implements the three pipeline stages and the status
// reader that the dashboard polls.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/reliefmesh/reliefmesh/internal/store"
)

// Collections names the record collections the stages read and write.
type Collections struct {
	Requests  string
	Reports   string
	Plans     string
	Inventory string
}

// BackoffFactory builds a fresh backoff policy per retry loop. Injected so
// tests can run the loop with zero delay and a deterministic attempt count.
type BackoffFactory func() backoff.BackOff

// NewBackoffFactory returns the production policy: maxAttempts total read
// attempts with exponential delays starting at initial and multiplied each
// attempt, no jitter.
func NewBackoffFactory(initial time.Duration, multiplier float64, maxAttempts int) BackoffFactory {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = initial
		b.Multiplier = multiplier
		b.RandomizationFactor = 0
		b.MaxInterval = 10 * time.Minute
		b.MaxElapsedTime = 0
		return backoff.WithMaxRetries(b, uint64(maxAttempts-1))
	}
}

// errNotVisible marks a read that found no document yet. Retried: the
// predecessor's write may simply not have become visible to this reader.
var errNotVisible = errors.New("document not yet visible")

// fetchDocument reads collection/id, retrying under the given policy while
// the document is absent or the store errors. Returns the raw document and
// the number of attempts made.
func fetchDocument(ctx context.Context, s store.DocumentStore, collection, id string, policy BackoffFactory) (json.RawMessage, int, error) {
	var raw json.RawMessage
	attempts := 0

	op := func() error {
		attempts++
		got, err := s.Get(ctx, collection, id)
		if err != nil {
			return err
		}
		if got == nil {
			return errNotVisible
		}
		raw = got
		return nil
	}

	err := backoff.Retry(op, backoff.WithContext(policy(), ctx))
	if err != nil {
		if errors.Is(err, errNotVisible) {
			return nil, attempts, fmt.Errorf("%s/%s absent after %d attempts: %w", collection, id, attempts, err)
		}
		return nil, attempts, fmt.Errorf("failed to read %s/%s after %d attempts: %w", collection, id, attempts, err)
	}
	return raw, attempts, nil
}

func timestamp(now func() time.Time) string {
	return now().UTC().Format(time.RFC3339)
}
