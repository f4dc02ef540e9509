package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dojo-hub/dojo-community-hub/config"
	"github.com/dojo-hub/dojo-community-hub/internal/application/command"
	"github.com/dojo-hub/dojo-community-hub/internal/application/query"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/roster"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/student"
	"github.com/dojo-hub/dojo-community-hub/internal/interface/http/handlers"
	"github.com/dojo-hub/dojo-community-hub/pkg/timeutil"
)

const rosterText = "Name,Age,Birthday,Gender,Belt,Stripes\nAna,9,2016-04-02,F,Yellow,2\nBen,10,,M,Green,1\n"

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	dojo, err := (&config.DojoFile{
		Locations: []config.LocationEntry{{Name: "Downtown", Classes: []string{"Juniors"}}},
	}).Build()
	require.NoError(t, err)

	return &config.Config{
		App:      config.AppConfig{Name: "dojo-community-hub", Environment: config.EnvDevelopment},
		Import:   config.ImportConfig{DraftTTL: command.DefaultDraftTTL},
		Dojo:     dojo,
		Features: config.LoadFeatureFlags(nil),
	}
}

func build(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	app, err := Build(context.Background(), cfg, nil, Options{
		Clock: timeutil.NewFixedClock(timeutil.Date(2026, 3, 2)),
	})
	require.NoError(t, err)
	t.Cleanup(app.Close)
	return app
}

func TestBuild_MemoryBackends(t *testing.T) {
	app := build(t, memoryConfig(t))

	assert.Nil(t, app.Store.Postgres)
	assert.Nil(t, app.Store.Redis)
	require.NotNil(t, app.Store.Memory)
	assert.NotNil(t, app.Store.Purger)

	hc := handlers.NewCompositeHealthChecker("test")
	app.Store.RegisterHealthChecks(hc)
	status := hc.Check(context.Background())
	assert.True(t, status.Healthy)
	assert.Empty(t, status.Checks)
}

func TestBuild_ImportAndRosterRoundTrip(t *testing.T) {
	app := build(t, memoryConfig(t))
	ctx := context.Background()

	preview, err := app.PreviewImport.Handle(ctx, command.PreviewImportCommand{
		Raw:      rosterText,
		Defaults: roster.Defaults{Location: "Downtown"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, preview.Report.ValidCount)

	committed, err := app.CommitImport.Handle(ctx, command.CommitImportCommand{
		BatchID:         preview.Batch.ID,
		WelcomeMessages: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, committed.Imported)
	assert.Len(t, committed.Welcome, 2)

	got, err := app.GetRoster.Handle(ctx, query.GetRosterQuery{Location: "Downtown"})
	require.NoError(t, err)
	assert.Equal(t, 2, got.Total)
	for _, s := range got.Students {
		assert.Equal(t, "Juniors", s.Class)
	}

	assert.Positive(t, app.Bus.Metrics().Snapshot().TotalPublished)
}

func TestBuild_WelcomeMessagesFollowFeatureFlag(t *testing.T) {
	cfg := memoryConfig(t)
	require.NoError(t, cfg.Features.DisableFeature(config.FeatureWelcomeMessages))
	app := build(t, cfg)
	ctx := context.Background()

	preview, err := app.PreviewImport.Handle(ctx, command.PreviewImportCommand{Raw: rosterText})
	require.NoError(t, err)

	committed, err := app.CommitImport.Handle(ctx, command.CommitImportCommand{
		BatchID:         preview.Batch.ID,
		WelcomeMessages: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, committed.Imported)
	assert.Empty(t, committed.Welcome)
}

func TestNewTextGenerator_StaticWithoutAPIKey(t *testing.T) {
	cfg := memoryConfig(t)
	gen, err := NewTextGenerator(context.Background(), cfg, nil)
	require.NoError(t, err)

	text, err := gen.Generate(context.Background(), student.TextPromotionMessage, map[string]string{
		"name": "Ana", "to_belt": "Green",
	})
	require.NoError(t, err)
	assert.Equal(t, "Congratulations Ana on earning the Green belt!", text)

	require.NoError(t, cfg.Features.DisableFeature(config.FeaturePromotionMessages))
	text, err = gen.Generate(context.Background(), student.TextPromotionMessage, map[string]string{"name": "Ana"})
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestRedisConfigMapping(t *testing.T) {
	rc := redisConfig(config.RedisConfig{Host: "cache.local", Port: 6380, KeyPrefix: "club:"})
	assert.Equal(t, "cache.local:6380", rc.Addr())
	assert.Equal(t, "club:", rc.KeyPrefix)

	pc := postgresConfig(config.DatabaseConfig{URL: "postgres://u@h/db", MaxConns: 4})
	assert.Equal(t, "postgres://u@h/db", pc.URL)
	assert.EqualValues(t, 4, pc.MaxConns)
}

func TestNewScheduler_RegistersMemoryJobs(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Scheduler = config.SchedulerConfig{Enabled: true, DraftPurgeInterval: time.Minute, DigestInterval: time.Hour}
	app := build(t, cfg)

	s, err := app.NewScheduler(timeutil.NewFixedClock(timeutil.Date(2026, 3, 2)))
	require.NoError(t, err)

	names := make([]string, 0)
	for _, j := range s.Jobs() {
		names = append(names, j.Name)
	}
	assert.ElementsMatch(t, []string{"purge_import_drafts", "grading_digest"}, names)

	res, err := s.RunNow(context.Background(), "grading_digest")
	require.NoError(t, err)
	assert.True(t, res.Success())
}

func TestNewScheduler_DigestFollowsFeatureFlag(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Scheduler = config.SchedulerConfig{Enabled: true, DraftPurgeInterval: time.Minute, DigestInterval: time.Hour}
	require.NoError(t, cfg.Features.DisableFeature(config.FeatureGradingDigest))
	app := build(t, cfg)

	s, err := app.NewScheduler(nil)
	require.NoError(t, err)
	require.Len(t, s.Jobs(), 1)
	assert.Equal(t, "purge_import_drafts", s.Jobs()[0].Name)
}
