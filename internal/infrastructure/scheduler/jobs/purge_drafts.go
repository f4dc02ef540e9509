// Package jobs contains the scheduled jobs of Dojo Community Hub.
package jobs

import (
	"context"
	"fmt"

	"github.com/dojo-hub/dojo-community-hub/pkg/logger"
)

// DraftPurger removes expired import drafts.
type DraftPurger interface {
	Purge(ctx context.Context) (int, error)
}

// PurgeDraftsJob sweeps expired drafts out of a store that does not expire
// entries on its own.
type PurgeDraftsJob struct {
	store DraftPurger
	log   *logger.Logger
}

// NewPurgeDraftsJob creates the job.
func NewPurgeDraftsJob(store DraftPurger, log *logger.Logger) *PurgeDraftsJob {
	if log == nil {
		log = logger.Nop()
	}
	return &PurgeDraftsJob{store: store, log: log}
}

// Name returns the job name.
func (j *PurgeDraftsJob) Name() string { return "purge_import_drafts" }

// Run purges once.
func (j *PurgeDraftsJob) Run(ctx context.Context) error {
	n, err := j.store.Purge(ctx)
	if err != nil {
		return fmt.Errorf("purge_import_drafts: %w", err)
	}
	if n > 0 {
		j.log.Info("expired import drafts purged", logger.Int("count", n))
	}
	return nil
}
