// Package jobs runs the periodic sweeps the dashboard otherwise only does
// lazily on each read: expired device bans and stale presence rows.
package jobs

import (
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"keydesk/internal/models"
)

type Scheduler struct {
	cron *cron.Cron
	db   *gorm.DB
	lg   *zap.SugaredLogger
}

func NewScheduler(db *gorm.DB, lg *zap.SugaredLogger) *Scheduler {
	return &Scheduler{cron: cron.New(), db: db, lg: lg}
}

func (s *Scheduler) Start() {
	s.cron.AddFunc("* * * * *", func() {
		res := s.db.Where("last_seen < ?", time.Now().Add(-2*time.Minute)).Delete(&models.OnlineDevice{})
		if res.Error != nil {
			s.lg.Warnw("stale presence sweep failed", "error", res.Error)
		} else if res.RowsAffected > 0 {
			s.lg.Debugw("stale presence swept", "rows", res.RowsAffected)
		}
	})
	s.cron.AddFunc("*/5 * * * *", func() {
		res := s.db.Where("banned_until < ?", time.Now()).Delete(&models.BannedDevice{})
		if res.Error != nil {
			s.lg.Warnw("expired ban sweep failed", "error", res.Error)
		} else if res.RowsAffected > 0 {
			s.lg.Infow("expired bans swept", "rows", res.RowsAffected)
		}
	})
	s.cron.Start()
	s.lg.Infow("sweep scheduler started")
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.lg.Infow("sweep scheduler stopped")
}
