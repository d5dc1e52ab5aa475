package gate

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// ErrTimeout is returned by WaitForDecision when timeout elapses with no
// decision recorded. Per spec.md §4.6, a timeout produces a null
// decision and it is the caller's policy to handle it (typically
// converting it to a reject).
var ErrTimeout = fmt.Errorf("gate: wait for decision: timeout")

// WaitForDecision polls the decision artifact at pollInterval cadence
// until a decision appears, ctx is canceled, or timeout elapses (zero
// timeout waits indefinitely). Polling is paced with a token-bucket
// limiter rather than a bare sleep loop so callers waiting on several
// gates concurrently share a predictable poll budget.
func WaitForDecision(ctx context.Context, root, runID, gateID string, pollInterval, timeout time.Duration) (*DecisionRecord, error) {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	limiter := rate.NewLimiter(rate.Every(pollInterval), 1)
	for {
		dec, ok, err := ReadDecision(root, runID, gateID)
		if err != nil {
			return nil, err
		}
		if ok {
			return dec, nil
		}

		if err := limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: gate %s", ErrTimeout, gateID)
			}
			return nil, err
		}
	}
}
