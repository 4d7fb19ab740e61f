package keylock

import (
	"context"
	"testing"
	"time"
)

func TestAcquireIsExclusive(t *testing.T) {
	l := New()
	ctx := context.Background()

	ok, err := l.AcquireLock(ctx, "k", "a", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	ok, _ = l.AcquireLock(ctx, "k", "b", time.Minute)
	if ok {
		t.Fatal("second holder acquired a held lock")
	}

	if err := l.ReleaseLock(ctx, "k", "a"); err != nil {
		t.Fatalf("release: %v", err)
	}
	ok, _ = l.AcquireLock(ctx, "k", "b", time.Minute)
	if !ok {
		t.Fatal("acquire after release failed")
	}
}

func TestReleaseChecksHolder(t *testing.T) {
	l := New()
	ctx := context.Background()

	l.AcquireLock(ctx, "k", "a", time.Minute)
	// A stale holder with the wrong value must not free the lock.
	l.ReleaseLock(ctx, "k", "b")

	ok, _ := l.AcquireLock(ctx, "k", "c", time.Minute)
	if ok {
		t.Fatal("wrong-value release freed the lock")
	}
}

func TestExpiredLockIsReacquirable(t *testing.T) {
	now := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	l := NewWithClock(func() time.Time { return now })
	ctx := context.Background()

	l.AcquireLock(ctx, "k", "a", time.Second)
	now = now.Add(2 * time.Second)

	ok, _ := l.AcquireLock(ctx, "k", "b", time.Second)
	if !ok {
		t.Fatal("expired lock not reacquirable")
	}

	// The original holder's release must not free the new holder's lock.
	l.ReleaseLock(ctx, "k", "a")
	ok, _ = l.AcquireLock(ctx, "k", "c", time.Second)
	if ok {
		t.Fatal("stale release freed the new holder's lock")
	}
}

func TestIndependentKeys(t *testing.T) {
	l := New()
	ctx := context.Background()

	l.AcquireLock(ctx, "k1", "a", time.Minute)
	ok, _ := l.AcquireLock(ctx, "k2", "a", time.Minute)
	if !ok {
		t.Fatal("distinct keys must not contend")
	}
}
