package httpclient

import (
	"context"
	"fmt"
	"time"
)

const (
	// Responses shorter than this are treated as empty shells worth retrying
	// (interstitials, truncated bodies).
	minUsefulBodyBytes = 100
)

// RetryPolicy controls which failures the retrying client considers transient.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// Backoff is the fixed delay between attempts.
	Backoff time.Duration
	// RetryBlocking retries 403/429 responses. Discovery fetches want this
	// (listing sites throttle aggressively); analysis fetches must not hammer
	// an origin that has already said no.
	RetryBlocking bool
}

// DefaultDiscoveryPolicy is the retry policy for listing-page fetches.
func DefaultDiscoveryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Backoff: 3 * time.Second, RetryBlocking: true}
}

// DefaultAnalysisPolicy is the retry policy for single-page content fetches.
func DefaultAnalysisPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Backoff: 2 * time.Second, RetryBlocking: false}
}

// RetryClient decorates a Client with retry-on-transient-failure behavior.
type RetryClient struct {
	inner  Client
	policy RetryPolicy
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRetryClient wraps inner with the given retry policy.
func NewRetryClient(inner Client, policy RetryPolicy) *RetryClient {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	return &RetryClient{inner: inner, policy: policy, sleep: sleepCtx}
}

// Get issues the request, retrying transient failures up to the policy budget.
func (r *RetryClient) Get(ctx context.Context, url string, headers map[string]string) (Response, error) {
	var lastErr error

	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		if attempt > 1 && r.policy.Backoff > 0 {
			if err := r.sleep(ctx, r.policy.Backoff); err != nil {
				return nil, err
			}
		}

		resp, err := r.inner.Get(ctx, url, headers)
		if err != nil {
			lastErr = fmt.Errorf("fetch %s: %w", url, err)
			continue
		}

		code := resp.StatusCode()
		switch {
		case code >= 200 && code < 300:
			if len(resp.Body()) < minUsefulBodyBytes {
				lastErr = fmt.Errorf("fetch %s: body too short (%d bytes)", url, len(resp.Body()))
				continue
			}
			return resp, nil
		case code == 403 || code == 429:
			if !r.policy.RetryBlocking {
				return nil, fmt.Errorf("fetch %s: blocked with status %d", url, code)
			}
			lastErr = fmt.Errorf("fetch %s: status %d", url, code)
		case code >= 500:
			lastErr = fmt.Errorf("fetch %s: status %d", url, code)
		default:
			return nil, fmt.Errorf("fetch %s: status %d", url, code)
		}
	}

	return nil, lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
