package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/maidlink/paycore/internal/clock"
	"github.com/maidlink/paycore/internal/config"
	"github.com/maidlink/paycore/internal/idempotency/domain"
	"github.com/maidlink/paycore/internal/idempotency/repository"
	"github.com/maidlink/paycore/internal/idempotency/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
		`CREATE TABLE idempotency_records (
			id BIGINT PRIMARY KEY,
			key TEXT NOT NULL,
			user_id TEXT NOT NULL,
			operation TEXT NOT NULL,
			amount BIGINT NOT NULL,
			status TEXT NOT NULL,
			result TEXT,
			external_payment_ref TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_idempotency_records_key ON idempotency_records(key)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func newService(t *testing.T, db *gorm.DB, clk clock.Clock) domain.Service {
	t.Helper()

	node, err := snowflake.NewNode(10)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	return service.New(service.Params{
		Config: config.Config{CleanupRetention: 24 * time.Hour},
		DB:     db,
		Log:    zap.NewNop(),
		Clock:  clk,
		GenID:  node,
		Repo:   repository.Provide(),
	})
}

func TestDeriveKeyDeterministic(t *testing.T) {
	a := domain.DeriveKey("user-1", domain.OperationChargeContactFee, 1, "maid-9")
	b := domain.DeriveKey("user-1", domain.OperationChargeContactFee, 1, "maid-9")
	if a != b {
		t.Fatalf("same inputs derived different keys: %s vs %s", a, b)
	}
	if c := domain.DeriveKey("user-1", domain.OperationChargeContactFee, 1, "maid-8"); c == a {
		t.Fatal("different context must derive a different key")
	}
	if len(a) != 64 {
		t.Fatalf("key length = %d, want 64 hex chars", len(a))
	}
}

func TestEnsureReplayReturnsStoredResult(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := newService(t, db, clk)
	ctx := context.Background()

	req := domain.EnsureRequest{
		UserID:    "user-1",
		Operation: domain.OperationPurchaseCredits,
		Amount:    50,
		Context:   "session-token-1",
	}
	first, err := svc.Ensure(ctx, req)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if first.IsDuplicate {
		t.Fatal("first ensure reported as duplicate")
	}
	if first.Status != domain.StatusPending {
		t.Fatalf("status = %s, want pending", first.Status)
	}

	// A pending row is not a duplicate yet: no side effect finished, the
	// caller may retry against the same key.
	replayed, err := svc.Ensure(ctx, req)
	if err != nil {
		t.Fatalf("replay ensure: %v", err)
	}
	if replayed.IsDuplicate {
		t.Fatal("pending replay must not report duplicate")
	}
	if replayed.Status != domain.StatusPending {
		t.Fatalf("replay status = %s, want pending", replayed.Status)
	}
	if replayed.Key != first.Key {
		t.Fatalf("replay key = %s, want %s", replayed.Key, first.Key)
	}
	if replayed.ExistingResult != nil {
		t.Fatal("pending record must not expose a result")
	}

	err = svc.UpdateStatus(ctx, domain.UpdateStatusRequest{
		UserID: "user-1",
		Key:    first.Key,
		Status: domain.StatusCompleted,
		Result: map[string]any{"credits_balance": float64(150)},
	})
	if err != nil {
		t.Fatalf("update status: %v", err)
	}

	completed, err := svc.Ensure(ctx, req)
	if err != nil {
		t.Fatalf("ensure after completion: %v", err)
	}
	if !completed.IsDuplicate {
		t.Fatal("completed replay must report duplicate")
	}
	if completed.Status != domain.StatusCompleted {
		t.Fatalf("status = %s, want completed", completed.Status)
	}
	if completed.ExistingResult == nil {
		t.Fatal("completed record must expose the stored result")
	}
	// The stored result round-trips through JSON, so compare the rendered
	// number rather than assuming a concrete numeric type.
	if got := fmt.Sprintf("%v", completed.ExistingResult["credits_balance"]); got != "150" {
		t.Fatalf("credits_balance = %v, want 150", got)
	}
}

func TestUpdateStatusTerminalGuard(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := newService(t, db, clk)
	ctx := context.Background()

	ensured, err := svc.Ensure(ctx, domain.EnsureRequest{
		UserID:    "user-1",
		Operation: domain.OperationPurchaseCredits,
		Amount:    10,
		Context:   "token-a",
	})
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}

	if err := svc.UpdateStatus(ctx, domain.UpdateStatusRequest{
		UserID: "user-1",
		Key:    ensured.Key,
		Status: domain.StatusCompleted,
	}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	// Terminal rows never regress.
	err = svc.UpdateStatus(ctx, domain.UpdateStatusRequest{
		UserID: "user-1",
		Key:    ensured.Key,
		Status: domain.StatusProcessing,
	})
	if !errors.Is(err, domain.ErrInvalidStatus) {
		t.Fatalf("err = %v, want ErrInvalidStatus", err)
	}

	// Re-asserting the same terminal state is a harmless replay.
	if err := svc.UpdateStatus(ctx, domain.UpdateStatusRequest{
		UserID: "user-1",
		Key:    ensured.Key,
		Status: domain.StatusCompleted,
	}); err != nil {
		t.Fatalf("re-assert completed: %v", err)
	}
}

func TestUpdateStatusOwnership(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := newService(t, db, clk)
	ctx := context.Background()

	ensured, err := svc.Ensure(ctx, domain.EnsureRequest{
		UserID:    "user-1",
		Operation: domain.OperationPurchaseCredits,
		Amount:    10,
		Context:   "token-b",
	})
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}

	err = svc.UpdateStatus(ctx, domain.UpdateStatusRequest{
		UserID: "user-2",
		Key:    ensured.Key,
		Status: domain.StatusProcessing,
	})
	if !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("err = %v, want ErrPermissionDenied", err)
	}

	// Webhook and scheduler paths bypass ownership.
	if err := svc.UpdateStatus(ctx, domain.UpdateStatusRequest{
		Key:      ensured.Key,
		Status:   domain.StatusProcessing,
		Internal: true,
	}); err != nil {
		t.Fatalf("internal update: %v", err)
	}
}

func TestCleanupExpiredForUser(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := newService(t, db, clk)
	ctx := context.Background()

	if _, err := svc.Ensure(ctx, domain.EnsureRequest{
		UserID:    "user-1",
		Operation: domain.OperationPurchaseCredits,
		Amount:    10,
		Context:   "old",
	}); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if _, err := svc.Ensure(ctx, domain.EnsureRequest{
		UserID:    "user-2",
		Operation: domain.OperationPurchaseCredits,
		Amount:    10,
		Context:   "old",
	}); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	clk.Advance(48 * time.Hour)

	if _, err := svc.CleanupExpiredForUser(ctx, "user-1", 0); !errors.Is(err, domain.ErrInvalidMaxAge) {
		t.Fatalf("err = %v, want ErrInvalidMaxAge", err)
	}
	if _, err := svc.CleanupExpiredForUser(ctx, "user-1", 200); !errors.Is(err, domain.ErrInvalidMaxAge) {
		t.Fatalf("err = %v, want ErrInvalidMaxAge", err)
	}

	removed, err := svc.CleanupExpiredForUser(ctx, "user-1", 24)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}

	// The other user's record is untouched.
	var count int64
	if err := db.Raw(`SELECT COUNT(*) FROM idempotency_records WHERE user_id = ?`, "user-2").Scan(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("user-2 records = %d, want 1", count)
	}
}

func TestCleanupExpiredGlobal(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := newService(t, db, clk)
	ctx := context.Background()

	if _, err := svc.Ensure(ctx, domain.EnsureRequest{
		UserID:    "user-1",
		Operation: domain.OperationChargeContactFee,
		Amount:    1,
		Context:   "maid-1",
	}); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	// Inside the retention window nothing is removed.
	removed, err := svc.CleanupExpired(ctx)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 0 {
		t.Fatalf("removed = %d, want 0", removed)
	}

	clk.Advance(25 * time.Hour)
	removed, err = svc.CleanupExpired(ctx)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
}
