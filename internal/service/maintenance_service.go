// FILE: internal/service/maintenance_service.go
package service

import (
	"context"
	"time"

	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/repository/unitofwork"
)

// IMaintenanceService sweeps expired sessions and stale reset tokens.
// Sweep errors are logged and swallowed, the loop never dies.
type IMaintenanceService interface {
	Start(ctx context.Context)
	Stop()
	RunOnce(ctx context.Context) error
}

type maintenanceService struct {
	uowFactory unitofwork.RepositoryFactory
	log        logger.ILogger
	interval   time.Duration
	cancel     context.CancelFunc
	done       chan struct{}
}

func NewMaintenanceService(uowFactory unitofwork.RepositoryFactory, log logger.ILogger, interval time.Duration) IMaintenanceService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &maintenanceService{
		uowFactory: uowFactory,
		log:        log,
		interval:   interval,
	}
}

func (s *maintenanceService) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.RunOnce(ctx); err != nil {
					s.log.Error("maintenance", "cleanup sweep failed", map[string]interface{}{
						"error": err.Error(),
					})
				}
			}
		}
	}()
}

func (s *maintenanceService) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (s *maintenanceService) RunOnce(ctx context.Context) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	now := time.Now()

	sessions, err := uow.UserRepository().DeleteExpiredSessions(ctx, now)
	if err != nil {
		return err
	}

	tokens, err := uow.UserRepository().DeleteStaleResetTokens(ctx, now)
	if err != nil {
		return err
	}

	if sessions > 0 || tokens > 0 {
		s.log.Info("maintenance", "cleanup sweep completed", map[string]interface{}{
			"expired_sessions":   sessions,
			"stale_reset_tokens": tokens,
		})
	}
	return nil
}
