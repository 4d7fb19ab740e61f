// Package keylock is an in-process lock manager with the same acquire/release
// contract as the redis-backed one, for single-node deployments and tests.
package keylock

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value    string
	deadline time.Time
}

type KeyLock struct {
	mu    sync.Mutex
	held  map[string]entry
	clock func() time.Time
}

func New() *KeyLock {
	return &KeyLock{held: make(map[string]entry), clock: time.Now}
}

// NewWithClock injects the time source; tests use it to force expiries.
func NewWithClock(clock func() time.Time) *KeyLock {
	return &KeyLock{held: make(map[string]entry), clock: clock}
}

// AcquireLock grants the key to value for ttl if it is free or expired.
// Non-blocking, mirroring redis SET NX.
func (l *KeyLock) AcquireLock(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if cur, ok := l.held[key]; ok && now.Before(cur.deadline) {
		return false, nil
	}
	l.held[key] = entry{value: value, deadline: now.Add(ttl)}
	return true, nil
}

// ReleaseLock frees the key only if still held under the same value.
func (l *KeyLock) ReleaseLock(_ context.Context, key, value string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cur, ok := l.held[key]; ok && cur.value == value {
		delete(l.held, key)
	}
	return nil
}
