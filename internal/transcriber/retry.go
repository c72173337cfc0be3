package transcriber

import (
	"context"
	"fmt"
	"time"
)

type Outcome int

const (
	OutcomeSucceeded Outcome = iota
	OutcomeRateLimited
	OutcomeRejected
	OutcomeNetworkError
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeRejected:
		return "rejected"
	case OutcomeNetworkError:
		return "network_error"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Attempt is what a single call to the remote API produced.
type Attempt struct {
	Outcome    Outcome
	Text       string
	StatusCode int
	// RetryAfter is the server-requested delay for OutcomeRateLimited; zero selects the policy default.
	RetryAfter time.Duration
	Err        error
}

type SleepFunc func(ctx context.Context, d time.Duration) error

type BackoffFunc func(outcome Outcome, attempt int, wait time.Duration)

const (
	DefaultMaxRetries        = 5
	DefaultAttemptDelay      = time.Second
	DefaultRetryAfter        = 30 * time.Second
	DefaultRejectedBackoff   = 5 * time.Second
	DefaultNetworkBackoff    = 5 * time.Second
	DefaultMaxNetworkBackoff = 60 * time.Second
)

type RetryPolicy struct {
	MaxRetries        int
	AttemptDelay      time.Duration
	DefaultRetryAfter time.Duration
	RejectedBackoff   time.Duration
	NetworkBackoff    time.Duration
	MaxNetworkBackoff time.Duration

	Sleep     SleepFunc
	OnBackoff BackoffFunc
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        DefaultMaxRetries,
		AttemptDelay:      DefaultAttemptDelay,
		DefaultRetryAfter: DefaultRetryAfter,
		RejectedBackoff:   DefaultRejectedBackoff,
		NetworkBackoff:    DefaultNetworkBackoff,
		MaxNetworkBackoff: DefaultMaxNetworkBackoff,
		Sleep:             SleepContext,
	}
}

// Do runs attempt until it succeeds or the policy gives up.
//
// Every attempt is preceded by AttemptDelay. A rate-limited attempt waits for the
// server's Retry-After, a rejected attempt waits RejectedBackoff*(n+1), and a network
// error waits min(NetworkBackoff*2^n, MaxNetworkBackoff). A network error on the last
// attempt fails the whole call; running out of attempts otherwise yields StatusExhausted.
func (p RetryPolicy) Do(ctx context.Context, attempt func(ctx context.Context, n int) Attempt) Result {
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	var last Attempt
	for n := 0; n < p.MaxRetries; n++ {
		if err := sleep(ctx, p.AttemptDelay); err != nil {
			return Result{Status: StatusFailed, Attempts: n, StatusCode: last.StatusCode, Err: err}
		}

		last = attempt(ctx, n)
		attempts := n + 1

		var wait time.Duration
		switch last.Outcome {
		case OutcomeSucceeded:
			return Result{Text: last.Text, Status: StatusTranscribed, Attempts: attempts, StatusCode: last.StatusCode}
		case OutcomeRateLimited:
			wait = last.RetryAfter
			if wait <= 0 {
				wait = p.DefaultRetryAfter
			}
		case OutcomeRejected:
			wait = p.RejectedBackoff * time.Duration(n+1)
		case OutcomeNetworkError:
			if n >= p.MaxRetries-1 {
				return Result{Status: StatusFailed, Attempts: attempts, Err: fmt.Errorf("%w after %d attempts: %w", ErrNetwork, attempts, last.Err)}
			}
			wait = p.networkBackoff(n)
		default:
			return Result{Status: StatusFailed, Attempts: attempts, StatusCode: last.StatusCode, Err: last.Err}
		}

		if p.OnBackoff != nil {
			p.OnBackoff(last.Outcome, attempts, wait)
		}
		if err := sleep(ctx, wait); err != nil {
			return Result{Status: StatusFailed, Attempts: attempts, StatusCode: last.StatusCode, Err: err}
		}
	}

	err := fmt.Errorf("%w after %d attempts", ErrRetriesExhausted, p.MaxRetries)
	if last.Err != nil {
		err = fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, p.MaxRetries, last.Err)
	}
	return Result{Status: StatusExhausted, Attempts: max(p.MaxRetries, 0), StatusCode: last.StatusCode, Err: err}
}

func (p RetryPolicy) networkBackoff(n int) time.Duration {
	wait := p.NetworkBackoff
	for i := 0; i < n && wait < p.MaxNetworkBackoff; i++ {
		wait *= 2
	}
	return min(wait, p.MaxNetworkBackoff)
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
