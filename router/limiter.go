package router

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// LimitedRegistry wraps a Registry with a per-model token-bucket
// limiter, an extension beyond spec.md's pure selection algorithm: every
// pack repo that talks to a live provider paces outbound calls next to
// the client, so the router does the same for the model it selects.
type LimitedRegistry struct {
	Registry

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	newLimit func(modelID string) *rate.Limiter
}

// NewLimitedRegistry wraps reg, constructing a limiter for model id on
// first use via newLimit. A nil newLimit disables limiting entirely
// (Wait always returns immediately).
func NewLimitedRegistry(reg Registry, newLimit func(modelID string) *rate.Limiter) *LimitedRegistry {
	return &LimitedRegistry{Registry: reg, limiters: make(map[string]*rate.Limiter), newLimit: newLimit}
}

// SelectAndWait selects a model via Select, then blocks on that model's
// limiter (if configured) before returning.
func (r *LimitedRegistry) SelectAndWait(ctx context.Context, req Request) (Decision, error) {
	decision, err := r.Select(req)
	if err != nil {
		return Decision{}, err
	}
	if r.newLimit == nil {
		return decision, nil
	}

	r.mu.Lock()
	limiter, ok := r.limiters[decision.Model.ID]
	if !ok {
		limiter = r.newLimit(decision.Model.ID)
		r.limiters[decision.Model.ID] = limiter
	}
	r.mu.Unlock()

	if limiter == nil {
		return decision, nil
	}
	if err := limiter.Wait(ctx); err != nil {
		return Decision{}, err
	}
	return decision, nil
}
