package exercise

import (
	"context"
	"sync"
	"time"
)

const defaultSaveTimeout = 10 * time.Second

// persister runs snapshot and session writes off the shot path. Each run is
// bounded by timeout and outlives the caller's cancellation.
type persister struct {
	wg      sync.WaitGroup
	timeout time.Duration
}

func newPersister(timeout time.Duration) *persister {
	if timeout <= 0 {
		timeout = defaultSaveTimeout
	}
	return &persister{timeout: timeout}
}

func (p *persister) run(ctx context.Context, fn func(ctx context.Context)) {
	ctx = context.WithoutCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		fn(ctx)
	}()
}

// wait blocks until every started write has returned.
func (p *persister) wait() { p.wg.Wait() }
