package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/maidlink/paycore/internal/clock"
	"github.com/maidlink/paycore/internal/contactfee/domain"
	creditdomain "github.com/maidlink/paycore/internal/credit/domain"
	"github.com/maidlink/paycore/internal/observability/metrics"
	"github.com/maidlink/paycore/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Sentinels used to abort the charge transaction; translated back into
// response fields before returning.
var (
	errInsufficient     = errors.New("insufficient")
	errAlreadyContacted = errors.New("already_contacted")
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	GenID   *snowflake.Node
	Repo    domain.Repository
	Credits creditdomain.Repository
	Metrics *metrics.Metrics
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	genID   *snowflake.Node
	repo    domain.Repository
	credits creditdomain.Repository
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("contactfee.service"),
		clock:   p.Clock,
		genID:   p.GenID,
		repo:    p.Repo,
		credits: p.Credits,
		metrics: p.Metrics,
	}
}

func (s *Service) Charge(ctx context.Context, req domain.ChargeRequest) (*domain.ChargeResponse, error) {
	sponsorID := strings.TrimSpace(req.SponsorID)
	if sponsorID == "" {
		return nil, domain.ErrInvalidSponsor
	}
	maidID := strings.TrimSpace(req.MaidID)
	if maidID == "" {
		return nil, domain.ErrInvalidMaid
	}
	credits := req.CreditsAmount
	if credits == 0 {
		credits = 1
	}
	if credits < 0 {
		return nil, domain.ErrInvalidAmount
	}

	// Fast path. The unique pair index inside the transaction below remains
	// the authoritative duplicate guard; this read only avoids burning a
	// balance round-trip on the common repeat call.
	existing, err := s.repo.FindByPair(ctx, s.db, sponsorID, maidID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &domain.ChargeResponse{Success: true, AlreadyContacted: true}, nil
	}

	txnID := s.genID.Generate()
	var newBalance int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.credits.UpsertZero(ctx, tx, sponsorID); err != nil {
			return err
		}

		affected, err := s.credits.DecrementIfSufficient(ctx, tx, sponsorID, credits)
		if err != nil {
			return err
		}
		if affected == 0 {
			return errInsufficient
		}

		now := s.clock.Now().UTC()
		txn := &creditdomain.CreditTransaction{
			ID:          txnID,
			UserID:      sponsorID,
			Amount:      -credits,
			Type:        creditdomain.TransactionTypeCharge,
			Description: fmt.Sprintf("Contact fee for maid %s", maidID),
			CreatedAt:   now,
		}
		if err := s.credits.InsertTransaction(ctx, tx, txn); err != nil {
			return err
		}

		fee := &domain.ContactFee{
			ID:             s.genID.Generate(),
			SponsorID:      sponsorID,
			MaidID:         maidID,
			CreditsCharged: credits,
			ContactMessage: strings.TrimSpace(req.ContactMessage),
			TransactionID:  txnID,
			CreatedAt:      now,
		}
		if err := s.repo.Insert(ctx, tx, fee); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return errAlreadyContacted
			}
			return err
		}

		balance, err := s.credits.FindBalance(ctx, tx, sponsorID)
		if err != nil {
			return err
		}
		if balance != nil {
			newBalance = balance.Balance
		}
		return nil
	})
	switch {
	case errors.Is(err, errInsufficient):
		s.metrics.RecordInsufficientCredits(ctx)
		return &domain.ChargeResponse{InsufficientCredits: true}, nil
	case errors.Is(err, errAlreadyContacted):
		// Lost the race to a concurrent charge for the same pair. The
		// rollback undid the decrement, so nothing was double-charged.
		return &domain.ChargeResponse{Success: true, AlreadyContacted: true}, nil
	case err != nil:
		return nil, err
	}

	s.metrics.RecordContactFee(ctx)
	s.log.Info("contact fee charged",
		zap.String("sponsor_id", sponsorID),
		zap.String("maid_id", maidID),
		zap.Int64("credits", credits),
	)
	return &domain.ChargeResponse{
		Success:       true,
		NewBalance:    newBalance,
		TransactionID: txnID.String(),
	}, nil
}
