package session

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// MonitorGate admits at most Capacity holders at a time into the locked
// section of a monitor node.
type MonitorGate struct {
	capacity int64
	sem      *semaphore.Weighted
}

func newMonitorGate(n int64) *MonitorGate {
	return &MonitorGate{capacity: n, sem: semaphore.NewWeighted(n)}
}

// Capacity is the number of permits the gate was created with.
func (g *MonitorGate) Capacity() int64 { return g.capacity }

// TryEnter takes a permit if one is free.
func (g *MonitorGate) TryEnter() bool { return g.sem.TryAcquire(1) }

// Enter waits for a permit. It only fails when ctx is done.
func (g *MonitorGate) Enter(ctx context.Context) error { return g.sem.Acquire(ctx, 1) }

// Leave returns a permit taken by TryEnter or Enter.
func (g *MonitorGate) Leave() { g.sem.Release(1) }
