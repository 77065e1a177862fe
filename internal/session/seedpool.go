package session

import (
	"context"
	"sync"
)

// Seed is a place from which already-uploaded content can be fetched.
type Seed struct {
	User     string
	Host     string
	Password string
	Path     string
}

// URI renders the seed as an scp source: user@host:path.
func (s Seed) URI() string { return s.User + "@" + s.Host + ":" + s.Path }

// SeedPool is a FIFO queue of seeds for one content hash. Take blocks until
// a seed is available; there is no timeout.
type SeedPool struct {
	mu      sync.Mutex
	seeds   []Seed
	waiters []chan Seed
}

func newSeedPool() *SeedPool { return &SeedPool{} }

// Add queues s, handing it straight to the oldest waiter if there is one.
func (p *SeedPool) Add(s Seed) {
	p.mu.Lock()
	p.addLocked(s)
	p.mu.Unlock()
}

func (p *SeedPool) addLocked(s Seed) {
	if len(p.waiters) > 0 {
		w := p.waiters[0]
		p.waiters = p.waiters[1:]
		w <- s
		return
	}
	p.seeds = append(p.seeds, s)
}

// Take removes and returns the oldest seed, blocking while the pool is
// empty. Only ctx cancellation ends the wait early.
func (p *SeedPool) Take(ctx context.Context) (Seed, error) {
	p.mu.Lock()
	if len(p.seeds) > 0 {
		s := p.seeds[0]
		p.seeds = p.seeds[1:]
		p.mu.Unlock()
		return s, nil
	}
	w := make(chan Seed, 1)
	p.waiters = append(p.waiters, w)
	p.mu.Unlock()

	select {
	case s := <-w:
		return s, nil
	case <-ctx.Done():
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for i, other := range p.waiters {
		if other == w {
			p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
			return Seed{}, ctx.Err()
		}
	}
	// A seed was handed over while we were giving up; pass it on.
	p.addLocked(<-w)
	return Seed{}, ctx.Err()
}

// Len reports the number of queued seeds.
func (p *SeedPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.seeds)
}
