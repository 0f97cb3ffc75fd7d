package lock

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeTryLocker struct {
	busyFor  int
	attempts int
	err      error
	released int
}

func (f *fakeTryLocker) TryAcquire(ctx context.Context, key string) (Release, bool, error) {
	f.attempts++
	if f.err != nil {
		return nil, false, f.err
	}
	if f.attempts <= f.busyFor {
		return nil, false, nil
	}
	return func() { f.released++ }, true, nil
}

func TestPolling_Acquire(t *testing.T) {
	backendErr := errors.New("connection refused")

	tests := []struct {
		name         string
		locker       *fakeTryLocker
		wait         time.Duration
		wantErr      error
		wantAttempts int
	}{
		{
			name:         "free on first attempt",
			locker:       &fakeTryLocker{},
			wait:         time.Second,
			wantAttempts: 1,
		},
		{
			name:         "acquired after retries",
			locker:       &fakeTryLocker{busyFor: 2},
			wait:         time.Second,
			wantAttempts: 3,
		},
		{
			name:         "zero wait fails fast",
			locker:       &fakeTryLocker{busyFor: 5},
			wait:         0,
			wantErr:      ErrLockHeld,
			wantAttempts: 1,
		},
		{
			name:         "backend error is returned",
			locker:       &fakeTryLocker{err: backendErr},
			wait:         time.Second,
			wantErr:      backendErr,
			wantAttempts: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := Polling(tt.locker, time.Millisecond, tt.wait)

			release, err := l.Acquire(context.Background(), "pool")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Acquire() error = %v, want %v", err, tt.wantErr)
				}
			} else {
				if err != nil {
					t.Fatalf("Acquire() unexpected error = %v", err)
				}
				release()
				if tt.locker.released != 1 {
					t.Errorf("released = %d, want 1", tt.locker.released)
				}
			}
			if tt.locker.attempts != tt.wantAttempts {
				t.Errorf("attempts = %d, want %d", tt.locker.attempts, tt.wantAttempts)
			}
		})
	}
}

func TestPolling_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l := Polling(&fakeTryLocker{busyFor: 100}, 10*time.Millisecond, time.Minute)
	_, err := l.Acquire(ctx, "pool")
	if !errors.Is(err, ErrLockHeld) || !errors.Is(err, context.Canceled) {
		t.Errorf("Acquire() error = %v, want ErrLockHeld wrapping context.Canceled", err)
	}
}
