package utils

import (
	"context"
	"time"
)

// UploadBackoff is the fixed retry schedule for the Delivery stage's
// upload calls (§4.7): three attempts, pausing 5s/10s/20s between them.
var UploadBackoff = []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second}

// withJitter adds up to 20% random delay on top of d, so that many
// requests backing off on the same schedule don't retry in lockstep.
func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	maxJitterMs := int(d.Milliseconds()) / 5
	if maxJitterMs <= 0 {
		return d
	}
	return d + time.Duration(RandomInt(maxJitterMs))*time.Millisecond
}

// Retry runs attempt up to len(backoff)+1 times, sleeping backoff[i]
// between attempt i and i+1. shouldRetry classifies the returned error;
// when it reports false, or the attempts are exhausted, Retry returns
// immediately. ctx cancellation aborts a pending sleep early.
func Retry(ctx context.Context, backoff []time.Duration, shouldRetry func(error) bool, attempt func(attemptIndex int) error) error {
	var lastErr error
	for i := 0; ; i++ {
		lastErr = attempt(i)
		if lastErr == nil {
			return nil
		}
		if i >= len(backoff) || !shouldRetry(lastErr) {
			return lastErr
		}
		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(withJitter(backoff[i])):
		}
	}
}
