package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/maidlink/paycore/internal/clock"
	"github.com/maidlink/paycore/internal/credit/domain"
	"github.com/maidlink/paycore/pkg/db"
	"github.com/maidlink/paycore/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("credit.service"),
		clock: p.Clock,
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Grant(ctx context.Context, req domain.GrantRequest) (*domain.GrantResponse, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, domain.ErrInvalidUser
	}
	if req.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	txnType, err := normalizeType(req.Type)
	if err != nil {
		return nil, err
	}

	txnID := s.genID.Generate()
	var resp *domain.GrantResponse
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.UpsertZero(ctx, tx, userID); err != nil {
			return err
		}

		now := s.clock.Now().UTC()
		txn := &domain.CreditTransaction{
			ID:                 txnID,
			UserID:             userID,
			Amount:             req.Amount,
			Type:               txnType,
			Description:        strings.TrimSpace(req.Description),
			ExternalPaymentRef: req.ExternalPaymentRef,
			CreatedAt:          now,
		}
		// The transaction row goes in before the balance moves so that a
		// duplicate external reference aborts without mutating the balance.
		if err := s.repo.InsertTransaction(ctx, tx, txn); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrAlreadyApplied
			}
			return err
		}

		if err := s.repo.Increment(ctx, tx, userID, req.Amount); err != nil {
			return err
		}

		balance, err := s.repo.FindBalance(ctx, tx, userID)
		if err != nil {
			return err
		}
		if balance == nil {
			return domain.ErrInvalidUser
		}

		resp = &domain.GrantResponse{
			Balance:       balance.Balance,
			TransactionID: txnID.String(),
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyApplied) && req.ExternalPaymentRef != nil {
			return s.alreadyApplied(ctx, *req.ExternalPaymentRef)
		}
		return nil, err
	}

	return resp, nil
}

// alreadyApplied reconstructs the outcome of the first grant for a reference
// that was applied by the other completion path.
func (s *Service) alreadyApplied(ctx context.Context, ref string) (*domain.GrantResponse, error) {
	existing, err := s.repo.FindTransactionByRef(ctx, s.db, ref)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, domain.ErrAlreadyApplied
	}
	balance, err := s.repo.FindBalance(ctx, s.db, existing.UserID)
	if err != nil {
		return nil, err
	}
	var current int64
	if balance != nil {
		current = balance.Balance
	}
	return &domain.GrantResponse{
		Balance:        current,
		TransactionID:  existing.ID.String(),
		AlreadyApplied: true,
	}, nil
}

func (s *Service) Balance(ctx context.Context, userID string) (int64, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, domain.ErrInvalidUser
	}
	balance, err := s.repo.FindBalance(ctx, s.db, userID)
	if err != nil {
		return 0, err
	}
	if balance == nil {
		return 0, nil
	}
	return balance.Balance, nil
}

func (s *Service) Statement(ctx context.Context, req domain.StatementRequest) (*domain.StatementResponse, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, domain.ErrInvalidUser
	}

	pageSize := req.PageSize
	if pageSize <= 0 || pageSize > 250 {
		pageSize = 25
	}

	var afterID int64
	if token := strings.TrimSpace(req.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return nil, domain.ErrInvalidUser
		}
		afterID, _ = strconv.ParseInt(cursor.ID, 10, 64)
	}

	items, err := s.repo.ListTransactions(ctx, s.db, userID, afterID, pageSize+1)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > pageSize
	if hasMore {
		items = items[:pageSize]
	}

	resp := &domain.StatementResponse{
		Transactions: make([]domain.TransactionView, 0, len(items)),
		HasMore:      hasMore,
	}
	for _, item := range items {
		resp.Transactions = append(resp.Transactions, domain.TransactionView{
			ID:                 item.ID.String(),
			Amount:             item.Amount,
			Type:               item.Type,
			Description:        item.Description,
			ExternalPaymentRef: item.ExternalPaymentRef,
			CreatedAt:          item.CreatedAt,
		})
	}
	if hasMore && len(items) > 0 {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID: items[len(items)-1].ID.String(),
		})
		if err == nil {
			resp.NextPageToken = token
		}
	}

	return resp, nil
}

func normalizeType(value domain.TransactionType) (domain.TransactionType, error) {
	switch domain.TransactionType(strings.ToLower(strings.TrimSpace(string(value)))) {
	case domain.TransactionTypePurchase:
		return domain.TransactionTypePurchase, nil
	case domain.TransactionTypeCharge:
		return domain.TransactionTypeCharge, nil
	case domain.TransactionTypeGrant:
		return domain.TransactionTypeGrant, nil
	default:
		return "", domain.ErrInvalidType
	}
}
