package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/maidlink/paycore/internal/config"
	idemdomain "github.com/maidlink/paycore/internal/idempotency/domain"
	"go.uber.org/zap"
)

type stubIdempotency struct {
	cleanupCalls int
}

func (s *stubIdempotency) Ensure(context.Context, idemdomain.EnsureRequest) (*idemdomain.EnsureResult, error) {
	return nil, nil
}

func (s *stubIdempotency) UpdateStatus(context.Context, idemdomain.UpdateStatusRequest) error {
	return nil
}

func (s *stubIdempotency) CleanupExpired(context.Context) (int64, error) {
	s.cleanupCalls++
	return 3, nil
}

func (s *stubIdempotency) CleanupExpiredForUser(context.Context, string, int) (int64, error) {
	return 0, nil
}

func TestSweepWithoutLocker(t *testing.T) {
	stub := &stubIdempotency{}
	s := New(Params{
		Config:      config.Config{CleanupInterval: time.Hour},
		Log:         zap.NewNop(),
		Locker:      nil,
		Idempotency: stub,
	})

	// No redis configured means single-replica mode: the sweep runs unguarded.
	s.sweep(context.Background())
	s.sweep(context.Background())

	if stub.cleanupCalls != 2 {
		t.Fatalf("cleanup calls = %d, want 2", stub.cleanupCalls)
	}
}

func TestNilLockerAlwaysAcquires(t *testing.T) {
	var l *Locker

	token, acquired, err := l.TryLock(context.Background(), "paycore:test", time.Minute)
	if err != nil {
		t.Fatalf("try lock: %v", err)
	}
	if !acquired {
		t.Fatal("nil locker must report acquired")
	}
	if err := l.Release(context.Background(), "paycore:test", token); err != nil {
		t.Fatalf("release: %v", err)
	}
}

func TestNewLockerWithoutRedis(t *testing.T) {
	if l := NewLocker(config.Config{}); l != nil {
		t.Fatal("empty redis address must yield a nil locker")
	}
}
