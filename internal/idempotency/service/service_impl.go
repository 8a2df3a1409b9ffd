package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/maidlink/paycore/internal/clock"
	"github.com/maidlink/paycore/internal/config"
	"github.com/maidlink/paycore/internal/idempotency/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	minCleanupAgeHours = 1
	maxCleanupAgeHours = 168
)

type Params struct {
	fx.In

	Config config.Config
	DB     *gorm.DB
	Log    *zap.Logger
	Clock  clock.Clock
	GenID  *snowflake.Node
	Repo   domain.Repository
}

type Service struct {
	cfg   config.Config
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		cfg:   p.Config,
		db:    p.DB,
		log:   p.Log.Named("idempotency.service"),
		clock: p.Clock,
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Ensure(ctx context.Context, req domain.EnsureRequest) (*domain.EnsureResult, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, domain.ErrInvalidUser
	}
	if !domain.ValidOperation(req.Operation) {
		return nil, domain.ErrInvalidOperation
	}

	key := strings.TrimSpace(req.Key)
	if key == "" {
		key = domain.DeriveKey(userID, req.Operation, req.Amount, req.Context)
	}

	now := s.clock.Now().UTC()
	record := &domain.IdempotencyRecord{
		ID:        s.genID.Generate(),
		Key:       key,
		UserID:    userID,
		Operation: req.Operation,
		Amount:    req.Amount,
		Status:    domain.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	created, err := s.repo.Insert(ctx, s.db, record)
	if err != nil {
		return nil, err
	}
	if created {
		return &domain.EnsureResult{Key: key, Status: domain.StatusPending}, nil
	}

	// Lost the insert race or the call is a replay; either way the existing
	// row is authoritative.
	existing, err := s.repo.FindByKey(ctx, s.db, key)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, domain.ErrNotFound
	}

	// Only a completed row is a duplicate the caller must not re-execute; a
	// pending or processing row means no side effect finished, so the caller
	// may retry against the same key.
	result := &domain.EnsureResult{
		Key:         key,
		IsDuplicate: existing.Status == domain.StatusCompleted,
		Status:      existing.Status,
	}
	if existing.Status == domain.StatusCompleted && existing.Result != nil {
		result.ExistingResult = map[string]any(existing.Result)
	}
	return result, nil
}

func (s *Service) UpdateStatus(ctx context.Context, req domain.UpdateStatusRequest) error {
	key := strings.TrimSpace(req.Key)
	if key == "" {
		return domain.ErrInvalidKey
	}
	if !domain.ValidStatus(req.Status) {
		return domain.ErrInvalidStatus
	}

	existing, err := s.repo.FindByKey(ctx, s.db, key)
	if err != nil {
		return err
	}
	if existing == nil {
		return domain.ErrNotFound
	}
	if !req.Internal && existing.UserID != strings.TrimSpace(req.UserID) {
		return domain.ErrPermissionDenied
	}

	affected, err := s.repo.UpdateStatus(ctx, s.db, key, req.Status, req.ExternalPaymentRef, req.Result, s.clock.Now().UTC())
	if err != nil {
		return err
	}
	if affected == 0 {
		// Row already terminal. Re-asserting the same terminal state is a
		// harmless replay; anything else is a rejected regression.
		if existing.Status.Terminal() && existing.Status == req.Status {
			return nil
		}
		return domain.ErrInvalidStatus
	}
	return nil
}

func (s *Service) CleanupExpired(ctx context.Context) (int64, error) {
	before := s.clock.Now().UTC().Add(-s.cfg.CleanupRetention)
	removed, err := s.repo.DeleteOlderThan(ctx, s.db, before)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.log.Info("expired idempotency records removed",
			zap.Int64("count", removed),
			zap.Time("before", before),
		)
	}
	return removed, nil
}

func (s *Service) CleanupExpiredForUser(ctx context.Context, userID string, maxAgeHours int) (int64, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, domain.ErrInvalidUser
	}
	if maxAgeHours < minCleanupAgeHours || maxAgeHours > maxCleanupAgeHours {
		return 0, domain.ErrInvalidMaxAge
	}
	before := s.clock.Now().UTC().Add(-time.Duration(maxAgeHours) * time.Hour)
	return s.repo.DeleteOlderThanForUser(ctx, s.db, userID, before)
}
