// Package bootstrap wires configuration into the storage, messaging, text
// generation and application layers. Both the HTTP server and dojoctl start
// from Build.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dojo-hub/dojo-community-hub/config"
	"github.com/dojo-hub/dojo-community-hub/internal/application/command"
	"github.com/dojo-hub/dojo-community-hub/internal/application/query"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/roster"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/student"
	"github.com/dojo-hub/dojo-community-hub/internal/infrastructure/external/textgen"
	"github.com/dojo-hub/dojo-community-hub/internal/infrastructure/messaging"
	"github.com/dojo-hub/dojo-community-hub/internal/infrastructure/spreadsheet"
	"github.com/dojo-hub/dojo-community-hub/pkg/logger"
	"github.com/dojo-hub/dojo-community-hub/pkg/timeutil"
)

// App holds every wired component.
type App struct {
	Config *config.Config
	Store  *Store
	Bus    *messaging.InMemoryEventBus
	Text   student.TextGenerator

	Pipeline *roster.Pipeline

	// Commands
	CommitSession  *command.CommitSessionHandler
	SetReadiness   *command.SetReadinessHandler
	PromoteStudent *command.PromoteStudentHandler
	PreviewImport  *command.PreviewImportHandler
	EditImportRow  *command.EditImportRowHandler
	CommitImport   *command.CommitImportHandler

	// Queries
	GetProgress *query.GetStudentProgressHandler
	GetRoster   *query.GetRosterHandler

	log *logger.Logger
}

// Options tweaks Build, mostly for tests and the CLI.
type Options struct {
	// Clock defaults to the system clock.
	Clock timeutil.Clock

	// SkipMigrations leaves the schema alone even when AutoMigrate is on.
	SkipMigrations bool
}

// Build connects storage and assembles the handlers. Close releases
// everything Build opened.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger, opts Options) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.SystemClock{}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 1. STORAGE
	// ─────────────────────────────────────────────────────────────────────────
	store, err := OpenStore(ctx, cfg, log, opts)
	if err != nil {
		return nil, err
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	bus := NewEventBus(cfg, store, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. TEXT GENERATION
	// ─────────────────────────────────────────────────────────────────────────
	text, err := NewTextGenerator(ctx, cfg, log)
	if err != nil {
		_ = bus.Close()
		store.Close()
		return nil, err
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	dojo := cfg.Dojo
	pipeline := roster.NewPipeline(dojo.Ledger, dojo.Policy, dojo.Directory)

	var decoder command.FileDecoder
	if cfg.Features.IsEnabled(config.FeatureSpreadsheets) {
		decoder = spreadsheet.Decode
	}

	importCfg := command.ImportHandlerConfig{
		Pipeline:       pipeline,
		Drafts:         store.Drafts,
		StudentRepo:    store.Students,
		Decoder:        decoder,
		TextGenerator:  text,
		EventPublisher: bus,
		Clock:          opts.Clock,
		Logger:         log,
		DraftTTL:       cfg.Import.DraftTTL,
		TextTimeout:    cfg.TextGen.Timeout,
	}

	app := &App{
		Config:   cfg,
		Store:    store,
		Bus:      bus,
		Text:     text,
		Pipeline: pipeline,

		CommitSession: command.NewCommitSessionHandler(command.CommitSessionHandlerConfig{
			StudentRepo:    store.Students,
			Policy:         dojo.Policy,
			Ledger:         dojo.Ledger,
			TextGenerator:  text,
			EventPublisher: bus,
			Clock:          opts.Clock,
			Logger:         log,
			TextTimeout:    cfg.TextGen.Timeout,
		}),
		SetReadiness: command.NewSetReadinessHandler(store.Students, dojo.Policy, bus, log),
		PromoteStudent: command.NewPromoteStudentHandler(command.PromoteStudentHandlerConfig{
			StudentRepo:    store.Students,
			Ledger:         dojo.Ledger,
			TextGenerator:  text,
			EventPublisher: bus,
			Clock:          opts.Clock,
			Logger:         log,
			TextTimeout:    cfg.TextGen.Timeout,
		}),
		PreviewImport: command.NewPreviewImportHandler(importCfg),
		EditImportRow: command.NewEditImportRowHandler(importCfg),
		CommitImport:  command.NewCommitImportHandler(importCfg),

		GetProgress: query.NewGetStudentProgressHandler(store.Students, dojo.Ledger, dojo.Policy),
		GetRoster:   query.NewGetRosterHandler(store.Students, dojo.Ledger, dojo.Policy),

		log: log,
	}

	log.Info("application wired",
		logger.Bool("postgres", store.Postgres != nil),
		logger.Bool("redis", store.Redis != nil),
		logger.Int("belts", dojo.Ledger.Len()),
		logger.Int("locations", len(dojo.Directory.Locations())),
		logger.Strings("features", cfg.Features.EnabledNames()),
	)
	return app, nil
}

// Close drains the event bus, then closes storage.
func (a *App) Close() {
	if err := a.Bus.Close(); err != nil {
		a.log.Warn("failed to close event bus", logger.Err(err))
	}
	a.Store.Close()
}

// NewEventBus creates the bus with the audit trail and, when Redis is up and
// forwarding is on, the Redis forwarder.
func NewEventBus(cfg *config.Config, store *Store, log *logger.Logger) *messaging.InMemoryEventBus {
	busCfg := messaging.DefaultInMemoryEventBusConfig()
	busCfg.Logger = log
	busCfg.Middlewares = []messaging.Middleware{
		messaging.RecoveryMiddleware(log),
		messaging.LoggingMiddleware(log),
	}
	bus := messaging.NewInMemoryEventBus(busCfg)

	// Subscribe only fails on a closed bus.
	_ = bus.SubscribeAll(messaging.AuditHandler(log))
	if store.Redis != nil && cfg.Features.IsEnabled(config.FeatureEventForwarding) {
		forwarder := messaging.NewRedisForwarder(store.Redis.Client(), cfg.Redis.EventChannel)
		_ = bus.SubscribeAll(forwarder.Handle)
		log.Info("forwarding domain events to redis", logger.String("channel", cfg.Redis.EventChannel))
	}
	return bus
}

// NewTextGenerator returns Gemini (or the static templates without an API
// key), gated per text kind by the feature flags.
func NewTextGenerator(ctx context.Context, cfg *config.Config, log *logger.Logger) (student.TextGenerator, error) {
	tg := textgen.DefaultConfig()
	tg.APIKey = cfg.TextGen.APIKey
	if cfg.TextGen.Model != "" {
		tg.Model = cfg.TextGen.Model
	}
	if cfg.TextGen.Timeout > 0 {
		tg.Timeout = cfg.TextGen.Timeout
	}
	if cfg.TextGen.RequestsPerSecond > 0 {
		tg.RequestsPerSecond = cfg.TextGen.RequestsPerSecond
	}
	if cfg.TextGen.Burst > 0 {
		tg.Burst = cfg.TextGen.Burst
	}
	tg.Temperature = float32(cfg.TextGen.Temperature)

	gen, err := textgen.New(ctx, tg, log)
	if err != nil {
		return nil, fmt.Errorf("text generator: %w", err)
	}

	flags := cfg.Features
	return textgen.NewGatedGenerator(gen, func(kind student.TextKind) bool {
		switch kind {
		case student.TextParentFeedback:
			return flags.IsEnabled(config.FeatureSessionFeedback)
		case student.TextWelcomeEmail:
			return flags.IsEnabled(config.FeatureWelcomeMessages)
		case student.TextPromotionMessage:
			return flags.IsEnabled(config.FeaturePromotionMessages)
		default:
			return false
		}
	}), nil
}
