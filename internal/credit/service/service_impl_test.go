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
	"github.com/maidlink/paycore/internal/credit/domain"
	"github.com/maidlink/paycore/internal/credit/repository"
	"github.com/maidlink/paycore/internal/credit/service"
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
		`CREATE TABLE credit_balances (
			user_id TEXT PRIMARY KEY,
			balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE credit_transactions (
			id BIGINT PRIMARY KEY,
			user_id TEXT NOT NULL,
			amount BIGINT NOT NULL,
			type TEXT NOT NULL,
			description TEXT,
			external_payment_ref TEXT,
			created_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_credit_transactions_payment_ref
			ON credit_transactions(external_payment_ref)
			WHERE external_payment_ref IS NOT NULL`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newCreditService(t *testing.T, db *gorm.DB) domain.Service {
	t.Helper()

	node, err := snowflake.NewNode(10)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	return service.New(service.Params{
		DB:    db,
		Log:   zap.NewNop(),
		Clock: clock.NewFakeClock(testNow),
		GenID: node,
		Repo:  repository.Provide(),
	})
}

func TestGrantCreditsBalance(t *testing.T) {
	db := setupTestDB(t)
	svc := newCreditService(t, db)
	ctx := context.Background()

	resp, err := svc.Grant(ctx, domain.GrantRequest{
		UserID:      "sponsor-1",
		Amount:      50,
		Type:        domain.TransactionTypePurchase,
		Description: "Credit purchase",
	})
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	if resp.Balance != 50 {
		t.Fatalf("balance = %d, want 50", resp.Balance)
	}
	if resp.TransactionID == "" {
		t.Fatal("expected transaction id")
	}
	if resp.AlreadyApplied {
		t.Fatal("first grant reported as already applied")
	}

	balance, err := svc.Balance(ctx, "sponsor-1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 50 {
		t.Fatalf("stored balance = %d, want 50", balance)
	}
}

func TestGrantDuplicateExternalRef(t *testing.T) {
	db := setupTestDB(t)
	svc := newCreditService(t, db)
	ctx := context.Background()

	ref := "pi_test_123"
	first, err := svc.Grant(ctx, domain.GrantRequest{
		UserID:             "sponsor-1",
		Amount:             100,
		Type:               domain.TransactionTypePurchase,
		ExternalPaymentRef: &ref,
	})
	if err != nil {
		t.Fatalf("first grant: %v", err)
	}

	second, err := svc.Grant(ctx, domain.GrantRequest{
		UserID:             "sponsor-1",
		Amount:             100,
		Type:               domain.TransactionTypePurchase,
		ExternalPaymentRef: &ref,
	})
	if err != nil {
		t.Fatalf("second grant: %v", err)
	}
	if !second.AlreadyApplied {
		t.Fatal("second grant with same reference must report already applied")
	}
	if second.TransactionID != first.TransactionID {
		t.Fatalf("transaction id = %s, want %s", second.TransactionID, first.TransactionID)
	}
	if second.Balance != 100 {
		t.Fatalf("balance after replay = %d, want 100", second.Balance)
	}

	balance, err := svc.Balance(ctx, "sponsor-1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 100 {
		t.Fatalf("balance = %d, want 100 (no double credit)", balance)
	}
}

func TestGrantStampsClockTime(t *testing.T) {
	db := setupTestDB(t)
	svc := newCreditService(t, db)
	ctx := context.Background()

	if _, err := svc.Grant(ctx, domain.GrantRequest{
		UserID: "sponsor-1",
		Amount: 10,
		Type:   domain.TransactionTypeGrant,
	}); err != nil {
		t.Fatalf("grant: %v", err)
	}

	statement, err := svc.Statement(ctx, domain.StatementRequest{UserID: "sponsor-1"})
	if err != nil {
		t.Fatalf("statement: %v", err)
	}
	if len(statement.Transactions) != 1 {
		t.Fatalf("transactions = %d, want 1", len(statement.Transactions))
	}
	if got := statement.Transactions[0].CreatedAt.UTC(); !got.Equal(testNow) {
		t.Fatalf("created_at = %v, want %v", got, testNow)
	}
}

func TestGrantValidation(t *testing.T) {
	db := setupTestDB(t)
	svc := newCreditService(t, db)
	ctx := context.Background()

	_, err := svc.Grant(ctx, domain.GrantRequest{UserID: " ", Amount: 10, Type: domain.TransactionTypeGrant})
	if !errors.Is(err, domain.ErrInvalidUser) {
		t.Fatalf("err = %v, want ErrInvalidUser", err)
	}

	_, err = svc.Grant(ctx, domain.GrantRequest{UserID: "u1", Amount: 0, Type: domain.TransactionTypeGrant})
	if !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("err = %v, want ErrInvalidAmount", err)
	}

	_, err = svc.Grant(ctx, domain.GrantRequest{UserID: "u1", Amount: 10, Type: "refund"})
	if !errors.Is(err, domain.ErrInvalidType) {
		t.Fatalf("err = %v, want ErrInvalidType", err)
	}
}

func TestBalanceUnknownUser(t *testing.T) {
	db := setupTestDB(t)
	svc := newCreditService(t, db)

	balance, err := svc.Balance(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 0 {
		t.Fatalf("balance = %d, want 0", balance)
	}
}

func TestStatementPagination(t *testing.T) {
	db := setupTestDB(t)
	svc := newCreditService(t, db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Grant(ctx, domain.GrantRequest{
			UserID:      "sponsor-1",
			Amount:      int64(10 + i),
			Type:        domain.TransactionTypeGrant,
			Description: "Seed grant",
		})
		if err != nil {
			t.Fatalf("seed grant %d: %v", i, err)
		}
	}

	page1, err := svc.Statement(ctx, domain.StatementRequest{UserID: "sponsor-1", PageSize: 2})
	if err != nil {
		t.Fatalf("statement: %v", err)
	}
	if len(page1.Transactions) != 2 {
		t.Fatalf("page 1 size = %d, want 2", len(page1.Transactions))
	}
	if !page1.HasMore || page1.NextPageToken == "" {
		t.Fatal("expected more pages with a next token")
	}
	// Newest first.
	if page1.Transactions[0].Amount != 12 {
		t.Fatalf("first item amount = %d, want 12", page1.Transactions[0].Amount)
	}

	page2, err := svc.Statement(ctx, domain.StatementRequest{
		UserID:    "sponsor-1",
		PageSize:  2,
		PageToken: page1.NextPageToken,
	})
	if err != nil {
		t.Fatalf("statement page 2: %v", err)
	}
	if len(page2.Transactions) != 1 {
		t.Fatalf("page 2 size = %d, want 1", len(page2.Transactions))
	}
	if page2.HasMore {
		t.Fatal("unexpected extra page")
	}
	if page2.Transactions[0].Amount != 10 {
		t.Fatalf("oldest item amount = %d, want 10", page2.Transactions[0].Amount)
	}
}

func TestTransactionSumMatchesBalance(t *testing.T) {
	db := setupTestDB(t)
	svc := newCreditService(t, db)
	repo := repository.Provide()
	ctx := context.Background()

	if _, err := svc.Grant(ctx, domain.GrantRequest{UserID: "u1", Amount: 50, Type: domain.TransactionTypePurchase}); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if _, err := svc.Grant(ctx, domain.GrantRequest{UserID: "u1", Amount: 30, Type: domain.TransactionTypeGrant}); err != nil {
		t.Fatalf("grant: %v", err)
	}

	sum, err := repo.SumTransactions(ctx, db, "u1")
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	balance, err := svc.Balance(ctx, "u1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if sum != balance || sum != 80 {
		t.Fatalf("sum = %d, balance = %d, want both 80", sum, balance)
	}
}
