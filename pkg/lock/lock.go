// Package lock serialises writers that must not run their check-and-write
// sections concurrently. Keys identify the contended resource (a capacity pool).
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrLockHeld = errors.New("lock is held by another writer")

// Release gives the lock back. Calling it more than once is a no-op.
type Release func()

type Locker interface {
	// Acquire blocks until the lock for key is held or ctx is done.
	Acquire(ctx context.Context, key string) (Release, error)
}

// TryLocker makes a single attempt. acquired is false when someone else holds
// the lock; err is reserved for backend failures.
type TryLocker interface {
	TryAcquire(ctx context.Context, key string) (release Release, acquired bool, err error)
}

type polling struct {
	locker   TryLocker
	interval time.Duration
	wait     time.Duration
}

// Polling turns a TryLocker into a Locker that retries every interval for at
// most wait. A zero wait makes a single attempt.
func Polling(locker TryLocker, interval, wait time.Duration) Locker {
	if interval <= 0 {
		interval = 25 * time.Millisecond
	}
	return &polling{locker: locker, interval: interval, wait: wait}
}

func (p *polling) Acquire(ctx context.Context, key string) (Release, error) {
	deadline := time.Now().Add(p.wait)
	for {
		release, acquired, err := p.locker.TryAcquire(ctx, key)
		if err != nil {
			return nil, err
		}
		if acquired {
			return release, nil
		}
		if !time.Now().Add(p.interval).Before(deadline) {
			return nil, ErrLockHeld
		}

		timer := time.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %w", ErrLockHeld, ctx.Err())
		case <-timer.C:
		}
	}
}
