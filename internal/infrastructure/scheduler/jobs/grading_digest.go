package jobs

import (
	"context"
	"fmt"
	"sort"

	"github.com/dojo-hub/dojo-community-hub/internal/domain/student"
	"github.com/dojo-hub/dojo-community-hub/pkg/logger"
)

// GradingDigest is the number of students waiting for grading, per location.
type GradingDigest struct {
	Total      int
	ByLocation map[string]int
	Locations  []string
}

// GradingDigestJob summarizes who is flagged ready for grading so instructors
// can plan the next grading day.
type GradingDigestJob struct {
	repo   student.Repository
	log    *logger.Logger
	notify func(GradingDigest)
}

// NewGradingDigestJob creates the job. notify may be nil.
func NewGradingDigestJob(repo student.Repository, log *logger.Logger, notify func(GradingDigest)) *GradingDigestJob {
	if log == nil {
		log = logger.Nop()
	}
	return &GradingDigestJob{repo: repo, log: log, notify: notify}
}

// Name returns the job name.
func (j *GradingDigestJob) Name() string { return "grading_digest" }

// Run builds the digest and logs it.
func (j *GradingDigestJob) Run(ctx context.Context) error {
	digest, err := j.Build(ctx)
	if err != nil {
		return err
	}

	j.log.Info("grading digest",
		logger.Int("ready", digest.Total),
		logger.Any("by_location", digest.ByLocation),
	)
	if j.notify != nil {
		j.notify(digest)
	}
	return nil
}

// Build collects the ready-for-grading students.
func (j *GradingDigestJob) Build(ctx context.Context) (GradingDigest, error) {
	ready, err := j.repo.List(ctx, student.ListOptions{ReadyOnly: true})
	if err != nil {
		return GradingDigest{}, fmt.Errorf("grading_digest: failed to list students: %w", err)
	}

	digest := GradingDigest{Total: len(ready), ByLocation: make(map[string]int)}
	for _, s := range ready {
		digest.ByLocation[s.Location]++
	}
	for loc := range digest.ByLocation {
		digest.Locations = append(digest.Locations, loc)
	}
	sort.Strings(digest.Locations)
	return digest, nil
}
