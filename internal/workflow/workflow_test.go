package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBackoffFactory(t *testing.T) {
	// 5 total attempts means 4 doubling delays between them, no jitter.
	// There is no wasted sleep after the final attempt.
	b := NewBackoffFactory(2*time.Second, 2, 5)()

	var delays []time.Duration
	for {
		d := b.NextBackOff()
		if d == backoff.Stop {
			break
		}
		delays = append(delays, d)
	}
	assert.Equal(t, []time.Duration{
		2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second,
	}, delays)
}

func TestFetchDocumentContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := newMemStore()
	_, _, err := fetchDocument(ctx, s, "RescueRequests", "R1",
		NewBackoffFactory(time.Hour, 2, 5))
	require.Error(t, err)
	// The cancelled context stops the loop rather than sleeping out the
	// full schedule.
	assert.LessOrEqual(t, s.getCount[key("RescueRequests", "R1")], 1)
}
