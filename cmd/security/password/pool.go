package password

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/semaphore"
)

// Pool runs Verify under a fixed concurrency budget.
// Argon2id allocates MemoryKiB per call; without a cap, a burst of publish
// requests would multiply that by the number of in-flight handlers.
type Pool struct {
	cfg Config
	sem *semaphore.Weighted

	// observe, when set, receives the wall time of each verification.
	observe func(seconds float64)
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithObserver registers a callback fed with each verification's duration.
func WithObserver(fn func(seconds float64)) PoolOption {
	return func(p *Pool) { p.observe = fn }
}

// NewPool returns a pool allowing at most workers concurrent verifications.
// workers <= 0 means runtime.NumCPU().
func NewPool(cfg Config, workers int, opts ...PoolOption) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	p := &Pool{cfg: cfg, sem: semaphore.NewWeighted(int64(workers))}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Config returns the hashing config the pool verifies with.
func (p *Pool) Config() Config { return p.cfg }

// Verify waits for a slot (honouring ctx) and then runs Config.Verify.
// Once a verification has started it runs to completion.
func (p *Pool) Verify(ctx context.Context, encodedHash, password string) (bool, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer p.sem.Release(1)

	if p.observe == nil {
		return p.cfg.Verify(encodedHash, password)
	}

	start := time.Now()
	ok, err := p.cfg.Verify(encodedHash, password)
	p.observe(time.Since(start).Seconds())
	return ok, err
}
