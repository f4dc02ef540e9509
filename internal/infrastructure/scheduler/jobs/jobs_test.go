package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dojo-hub/dojo-community-hub/internal/domain/roster"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/student"
	"github.com/dojo-hub/dojo-community-hub/internal/infrastructure/persistence/memory"
	"github.com/dojo-hub/dojo-community-hub/pkg/timeutil"
)

type failingPurger struct{}

func (failingPurger) Purge(context.Context) (int, error) { return 0, errors.New("locked") }

func TestPurgeDraftsJob(t *testing.T) {
	clock := timeutil.NewFixedClock(timeutil.Date(2026, 3, 1))
	store := memory.NewDraftStore(memory.OpenWithClock(clock))
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, &roster.Batch{ID: "b-1"}, time.Minute))
	clock.Advance(time.Hour)

	job := NewPurgeDraftsJob(store, nil)
	assert.Equal(t, "purge_import_drafts", job.Name())
	require.NoError(t, job.Run(ctx))

	n, err := store.Purge(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "already purged")

	assert.ErrorContains(t, NewPurgeDraftsJob(failingPurger{}, nil).Run(ctx), "locked")
}

func TestGradingDigestJob(t *testing.T) {
	repo := memory.NewStudentRepository(memory.Open())
	ctx := context.Background()
	require.NoError(t, repo.SaveStudents(ctx, []*student.Student{
		{ID: "1", Name: "Ana", Location: "Harbor", IsReadyForGrading: true},
		{ID: "2", Name: "Ben", Location: "Downtown", IsReadyForGrading: true},
		{ID: "3", Name: "Cai", Location: "Downtown", IsReadyForGrading: true},
		{ID: "4", Name: "Dee", Location: "Downtown"},
	}))

	var got GradingDigest
	job := NewGradingDigestJob(repo, nil, func(d GradingDigest) { got = d })
	require.NoError(t, job.Run(ctx))

	assert.Equal(t, 3, got.Total)
	assert.Equal(t, []string{"Downtown", "Harbor"}, got.Locations)
	assert.Equal(t, 2, got.ByLocation["Downtown"])
}
