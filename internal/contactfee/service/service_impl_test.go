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
	"github.com/maidlink/paycore/internal/contactfee/domain"
	"github.com/maidlink/paycore/internal/contactfee/repository"
	"github.com/maidlink/paycore/internal/contactfee/service"
	creditdomain "github.com/maidlink/paycore/internal/credit/domain"
	creditrepository "github.com/maidlink/paycore/internal/credit/repository"
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
		`CREATE TABLE contact_fees (
			id BIGINT PRIMARY KEY,
			sponsor_id TEXT NOT NULL,
			maid_id TEXT NOT NULL,
			credits_charged BIGINT NOT NULL,
			contact_message TEXT,
			transaction_id BIGINT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_contact_fees_pair ON contact_fees(sponsor_id, maid_id)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

type fixture struct {
	svc     domain.Service
	credits creditdomain.Repository
	db      *gorm.DB
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithRepo(t, repository.Provide())
}

func newFixtureWithRepo(t *testing.T, repo domain.Repository) *fixture {
	t.Helper()

	db := setupTestDB(t)
	node, err := snowflake.NewNode(10)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	credits := creditrepository.Provide()
	svc := service.New(service.Params{
		DB:      db,
		Log:     zap.NewNop(),
		Clock:   clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		GenID:   node,
		Repo:    repo,
		Credits: credits,
		Metrics: nil,
	})
	return &fixture{svc: svc, credits: credits, db: db}
}

func (f *fixture) seedBalance(t *testing.T, userID string, amount int64) {
	t.Helper()
	ctx := context.Background()
	if err := f.credits.UpsertZero(ctx, f.db, userID); err != nil {
		t.Fatalf("seed balance: %v", err)
	}
	if err := f.credits.Increment(ctx, f.db, userID, amount); err != nil {
		t.Fatalf("seed balance: %v", err)
	}
}

func TestChargeInsufficientCredits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.svc.Charge(ctx, domain.ChargeRequest{SponsorID: "sponsor-1", MaidID: "maid-1"})
	if err != nil {
		t.Fatalf("charge: %v", err)
	}
	if !resp.InsufficientCredits || resp.Success {
		t.Fatalf("resp = %+v, want insufficient credits", resp)
	}

	// The rolled-back transaction must leave no fee row behind.
	var count int64
	if err := f.db.Raw(`SELECT COUNT(*) FROM contact_fees`).Scan(&count).Error; err != nil {
		t.Fatalf("count fees: %v", err)
	}
	if count != 0 {
		t.Fatalf("fee rows = %d, want 0", count)
	}
}

func TestChargeThenRepeat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedBalance(t, "sponsor-1", 5)

	first, err := f.svc.Charge(ctx, domain.ChargeRequest{
		SponsorID:      "sponsor-1",
		MaidID:         "maid-1",
		ContactMessage: "Hello, are you available in April?",
	})
	if err != nil {
		t.Fatalf("charge: %v", err)
	}
	if !first.Success || first.AlreadyContacted {
		t.Fatalf("first charge = %+v, want fresh success", first)
	}
	if first.NewBalance != 4 {
		t.Fatalf("new balance = %d, want 4", first.NewBalance)
	}
	if first.TransactionID == "" {
		t.Fatal("expected transaction id")
	}

	second, err := f.svc.Charge(ctx, domain.ChargeRequest{SponsorID: "sponsor-1", MaidID: "maid-1"})
	if err != nil {
		t.Fatalf("repeat charge: %v", err)
	}
	if !second.Success || !second.AlreadyContacted {
		t.Fatalf("repeat charge = %+v, want already contacted", second)
	}

	// Exactly one debit for the pair.
	var sum int64
	if err := f.db.Raw(`SELECT COALESCE(SUM(amount), 0) FROM credit_transactions WHERE user_id = ?`, "sponsor-1").Scan(&sum).Error; err != nil {
		t.Fatalf("sum: %v", err)
	}
	if sum != -1 {
		t.Fatalf("transaction sum = %d, want -1", sum)
	}
}

// blindRepo never sees existing pairs, forcing every charge through the
// transaction the way a concurrent caller that raced past the fast-path read
// would.
type blindRepo struct {
	domain.Repository
}

func (r *blindRepo) FindByPair(context.Context, *gorm.DB, string, string) (*domain.ContactFee, error) {
	return nil, nil
}

func TestChargeConflictInsideTransaction(t *testing.T) {
	f := newFixtureWithRepo(t, &blindRepo{Repository: repository.Provide()})
	ctx := context.Background()
	f.seedBalance(t, "sponsor-1", 5)

	first, err := f.svc.Charge(ctx, domain.ChargeRequest{SponsorID: "sponsor-1", MaidID: "maid-1"})
	if err != nil {
		t.Fatalf("charge: %v", err)
	}
	if !first.Success || first.AlreadyContacted {
		t.Fatalf("first charge = %+v, want fresh success", first)
	}

	// The repeat skips the fast-path read and hits the unique pair index
	// inside the transaction; the decrement must roll back with it.
	second, err := f.svc.Charge(ctx, domain.ChargeRequest{SponsorID: "sponsor-1", MaidID: "maid-1"})
	if err != nil {
		t.Fatalf("repeat charge: %v", err)
	}
	if !second.Success || !second.AlreadyContacted {
		t.Fatalf("repeat charge = %+v, want already contacted", second)
	}

	balance, err := f.credits.FindBalance(ctx, f.db, "sponsor-1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Balance != 4 {
		t.Fatalf("balance = %d, want 4", balance.Balance)
	}

	var count int64
	if err := f.db.Raw(`SELECT COUNT(*) FROM contact_fees`).Scan(&count).Error; err != nil {
		t.Fatalf("count fees: %v", err)
	}
	if count != 1 {
		t.Fatalf("fee rows = %d, want 1", count)
	}
	var sum int64
	if err := f.db.Raw(`SELECT COALESCE(SUM(amount), 0) FROM credit_transactions WHERE user_id = ?`, "sponsor-1").Scan(&sum).Error; err != nil {
		t.Fatalf("sum: %v", err)
	}
	if sum != -1 {
		t.Fatalf("transaction sum = %d, want -1", sum)
	}
}

func TestChargeCustomAmount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedBalance(t, "sponsor-1", 5)

	resp, err := f.svc.Charge(ctx, domain.ChargeRequest{
		SponsorID:     "sponsor-1",
		MaidID:        "maid-2",
		CreditsAmount: 2,
	})
	if err != nil {
		t.Fatalf("charge: %v", err)
	}
	if resp.NewBalance != 3 {
		t.Fatalf("new balance = %d, want 3", resp.NewBalance)
	}
}

func TestChargeDistinctPairs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedBalance(t, "sponsor-1", 5)

	for i, maidID := range []string{"maid-1", "maid-2", "maid-3"} {
		resp, err := f.svc.Charge(ctx, domain.ChargeRequest{SponsorID: "sponsor-1", MaidID: maidID})
		if err != nil {
			t.Fatalf("charge %d: %v", i, err)
		}
		if !resp.Success || resp.AlreadyContacted {
			t.Fatalf("charge %d = %+v, want fresh success", i, resp)
		}
	}

	balance, err := f.credits.FindBalance(ctx, f.db, "sponsor-1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Balance != 2 {
		t.Fatalf("balance = %d, want 2", balance.Balance)
	}
}

func TestChargeValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Charge(ctx, domain.ChargeRequest{SponsorID: "", MaidID: "maid-1"})
	if !errors.Is(err, domain.ErrInvalidSponsor) {
		t.Fatalf("err = %v, want ErrInvalidSponsor", err)
	}

	_, err = f.svc.Charge(ctx, domain.ChargeRequest{SponsorID: "sponsor-1", MaidID: " "})
	if !errors.Is(err, domain.ErrInvalidMaid) {
		t.Fatalf("err = %v, want ErrInvalidMaid", err)
	}

	_, err = f.svc.Charge(ctx, domain.ChargeRequest{SponsorID: "sponsor-1", MaidID: "maid-1", CreditsAmount: -3})
	if !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("err = %v, want ErrInvalidAmount", err)
	}
}
