package bootstrap

import (
	"fmt"

	"github.com/dojo-hub/dojo-community-hub/config"
	"github.com/dojo-hub/dojo-community-hub/internal/infrastructure/scheduler"
	"github.com/dojo-hub/dojo-community-hub/internal/infrastructure/scheduler/jobs"
	"github.com/dojo-hub/dojo-community-hub/pkg/timeutil"
)

// NewScheduler registers the maintenance jobs that apply to this setup.
// The draft purge runs only for in-memory drafts; Redis expires keys itself.
func (a *App) NewScheduler(clock timeutil.Clock) (*scheduler.Scheduler, error) {
	cfg := a.Config.Scheduler
	schedCfg := scheduler.Config{Logger: a.log, Tick: cfg.Tick}
	if clock != nil {
		schedCfg.Now = clock.Now
	}
	s := scheduler.New(schedCfg)

	if a.Store.Purger != nil {
		job := jobs.NewPurgeDraftsJob(a.Store.Purger, a.log)
		if err := s.Register(job, scheduler.Every(cfg.DraftPurgeInterval)); err != nil {
			return nil, fmt.Errorf("register %s: %w", job.Name(), err)
		}
	}

	if a.Config.Features.IsEnabled(config.FeatureGradingDigest) {
		job := jobs.NewGradingDigestJob(a.Store.Students, a.log, nil)
		if err := s.Register(job, scheduler.Every(cfg.DigestInterval)); err != nil {
			return nil, fmt.Errorf("register %s: %w", job.Name(), err)
		}
	}
	return s, nil
}
