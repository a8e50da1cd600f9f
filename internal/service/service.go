// Package service schedules background maintenance: pruning old
// terminal jobs from the registry and sweeping their artifacts off
// disk.
package service

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/MimeLyc/contextual-comic-translator/internal/artifact"
	"github.com/MimeLyc/contextual-comic-translator/internal/config"
	"github.com/MimeLyc/contextual-comic-translator/internal/jobs"
	"github.com/MimeLyc/contextual-comic-translator/pkg/icron"
	"github.com/MimeLyc/contextual-comic-translator/pkg/log"
	"github.com/robfig/cron/v3"
)

const defaultMaxAge = 72 * time.Hour

type retentionService struct {
	cfg      config.RetentionConfig
	cronExpr string
	cron     *cron.Cron
	store    *jobs.Store
	files    *artifact.Store
}

func NewRunnableRetentionService(
	cfg config.RetentionConfig,
	cron *cron.Cron,
	store *jobs.Store,
	files *artifact.Store,
) retentionService {
	return retentionService{
		cfg:      cfg,
		cronExpr: cfg.CronExpr,
		cron:     cron,
		store:    store,
		files:    files,
	}
}

var singleflightGroup singleflight.Group

func (s retentionService) Schedule(
	ctx context.Context,
) error {
	if s.cronExpr == "" {
		log.Info("Retention sweeps disabled")
		return nil
	}
	log.Info("Run RetentionService")

	if info, err := icron.GetTriggerInfo(s.cronExpr, time.Now()); err == nil {
		log.Info("Retention sweep scheduled, next run at %v (every %v)", info.Next, info.Interval)
	}

	runFunc := func() {
		_, _, _ = singleflightGroup.Do("sweep", func() (any, error) {
			s.run(ctx)
			return nil, nil
		})
	}
	_, err := s.cron.AddFunc(s.cronExpr, runFunc)
	return err
}

// run prunes terminal jobs past the retention age and removes their
// artifacts, then sweeps stray files left behind by crashed jobs that
// the registry no longer knows about.
func (s retentionService) run(
	_ context.Context,
) {
	maxAge := s.maxAge()

	pruned := s.store.PruneOlderThan(maxAge)
	for _, job := range pruned {
		log.Info("Pruned job %s (%s, last updated %v)", job.ID, job.Status, job.UpdatedAt)
		s.files.CleanupJob(job.ID, job.InputPath)
	}

	strays := s.files.SweepOlderThan(time.Now().Add(-maxAge))
	if len(pruned) > 0 || strays > 0 {
		log.Info("Retention sweep removed %d jobs and %d stray files", len(pruned), strays)
	}
}

func (s retentionService) maxAge() time.Duration {
	if s.cfg.MaxAgeHours <= 0 {
		return defaultMaxAge
	}
	return time.Duration(s.cfg.MaxAgeHours) * time.Hour
}
