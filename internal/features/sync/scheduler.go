package sync

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler wakes up periodically and kicks off every mapping whose
// hourly or daily window has elapsed. Manual mappings are never touched.
type Scheduler struct {
	service SyncService
	logger  *zap.Logger
	cron    *cron.Cron
}

func NewScheduler(service SyncService, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		service: service,
		logger:  logger,
		cron:    cron.New(),
	}
}

func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc("@every 5m", func() {
		if err := s.service.ProcessScheduledSyncs(context.Background()); err != nil {
			s.logger.Error("Scheduled sync pass failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("Sync scheduler started")
	return nil
}

func (s *Scheduler) Stop() error {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Sync scheduler stopped")
	return nil
}
