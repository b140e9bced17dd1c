package scanengine

import (
	"context"
	"fmt"
	"sync"
)

// Pool is a named counting semaphore partitioning FD usage across probe classes. Acquiring blocks
// (cooperatively, via ctx) when no token is free; Release is the caller's responsibility on every
// probe exit path - scanengine guarantees this for probes it runs.
type Pool struct {
	name   string
	size   int
	tokens chan struct{}

	mu      sync.Mutex
	waiting int
}

// NewPool constructs a Pool with size tokens available for concurrent acquisition.
func NewPool(name string, size int) *Pool {
	p := &Pool{name: name, size: size, tokens: make(chan struct{}, size)}
	for i := 0; i < size; i++ {
		p.tokens <- struct{}{}
	}
	return p
}

// Acquire blocks until a token is available or ctx is done, whichever happens first. Acquisition
// is itself cancellable, per the scan engine's cancellation semantics.
func (p *Pool) Acquire(ctx context.Context) error {
	p.mu.Lock()
	p.waiting++
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.waiting--
		p.mu.Unlock()
	}()

	select {
	case <-p.tokens:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a token to the pool. Calling Release without a matching Acquire is a programming
// error and panics.
func (p *Pool) Release() {
	select {
	case p.tokens <- struct{}{}:
	default:
		panic(fmt.Sprintf("scanengine: Pool %q Release without matching Acquire", p.name))
	}
}

// Name returns the pool's configured name.
func (p *Pool) Name() string {
	return p.name
}

// Free returns the count of currently unused tokens.
func (p *Pool) Free() int {
	return len(p.tokens)
}

// Queued returns the count of goroutines currently blocked in Acquire. Only meaningful when Free()
// is zero; a pool with free tokens has no queue.
func (p *Pool) Queued() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.tokens) > 0 {
		return 0
	}
	return p.waiting
}

// Size returns the configured token count.
func (p *Pool) Size() int {
	return p.size
}
