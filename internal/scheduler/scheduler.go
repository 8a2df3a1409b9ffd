// Package scheduler runs the periodic idempotency cleanup sweep under an fx
// lifecycle, guarded by a redis lock when one is configured.
package scheduler

import (
	"context"
	"time"

	"github.com/maidlink/paycore/internal/config"
	idemdomain "github.com/maidlink/paycore/internal/idempotency/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const cleanupLockKey = "paycore:cleanup:idempotency"

type Params struct {
	fx.In

	Config      config.Config
	Log         *zap.Logger
	Locker      *Locker `optional:"true"`
	Idempotency idemdomain.Service
}

type Scheduler struct {
	cfg         config.Config
	log         *zap.Logger
	locker      *Locker
	idempotency idemdomain.Service

	cancel context.CancelFunc
	done   chan struct{}
}

func New(p Params) *Scheduler {
	return &Scheduler{
		cfg:         p.Config,
		log:         p.Log.Named("scheduler"),
		locker:      p.Locker,
		idempotency: p.Idempotency,
	}
}

func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx)
}

func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	interval := s.cfg.CleanupInterval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info("cleanup scheduler started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			s.log.Info("cleanup scheduler stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	token, acquired, err := s.locker.TryLock(ctx, cleanupLockKey, s.cfg.CleanupInterval)
	if err != nil {
		s.log.Warn("cleanup lock unavailable", zap.Error(err))
		return
	}
	if !acquired {
		return
	}
	defer func() {
		if err := s.locker.Release(ctx, cleanupLockKey, token); err != nil {
			s.log.Warn("cleanup lock release failed", zap.Error(err))
		}
	}()

	removed, err := s.idempotency.CleanupExpired(ctx)
	if err != nil {
		s.log.Error("cleanup sweep failed", zap.Error(err))
		return
	}
	s.log.Debug("cleanup sweep finished", zap.Int64("removed", removed))
}

func registerHooks(lc fx.Lifecycle, s *Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			s.Stop()
			return nil
		},
	})
}

var Module = fx.Module("scheduler",
	fx.Provide(NewLocker),
	fx.Provide(New),
	fx.Invoke(registerHooks),
)
