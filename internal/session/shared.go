package session

import (
	"sync"

	"ssh-helper/internal/configtree"
)

// Shared is the per-run registry read and extended by every host worker.
// The pool and gate maps only grow; entries are created on first use.
type Shared struct {
	ID      string
	Scripts *configtree.List

	mu    sync.Mutex
	pools map[string]*SeedPool
	gates map[*configtree.Map]*MonitorGate
}

// New returns the shared state for session id running scripts.
func New(id string, scripts *configtree.List) *Shared {
	if scripts == nil {
		scripts = configtree.NewList()
	}
	return &Shared{
		ID:      id,
		Scripts: scripts,
		pools:   make(map[string]*SeedPool),
		gates:   make(map[*configtree.Map]*MonitorGate),
	}
}

// Seeds returns the pool for hash. existed is false for exactly one caller
// per hash: the one expected to upload from the origin and seed the pool.
func (s *Shared) Seeds(hash string) (existed bool, pool *SeedPool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.pools[hash]; ok {
		return true, p
	}
	p := newSeedPool()
	s.pools[hash] = p
	return false, p
}

// Gate returns the gate of the monitor node, creating it with capacity
// permits on first use. Later calls ignore capacity.
func (s *Shared) Gate(node *configtree.Map, capacity int64) *MonitorGate {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.gates[node]; ok {
		return g
	}
	g := newMonitorGate(capacity)
	s.gates[node] = g
	return g
}
