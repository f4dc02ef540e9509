// Package main - точка входа HTTP-сервера Dojo Community Hub.
//
// Сервер обслуживает экран тренера (сессии, прогресс, готовность к аттестации,
// повышение пояса) и импорт списка учеников для администратора.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dojo-hub/dojo-community-hub/config"
	"github.com/dojo-hub/dojo-community-hub/internal/bootstrap"
	"github.com/dojo-hub/dojo-community-hub/internal/infrastructure/scheduler"
	"github.com/dojo-hub/dojo-community-hub/internal/infrastructure/spreadsheet"
	httpserver "github.com/dojo-hub/dojo-community-hub/internal/interface/http"
	"github.com/dojo-hub/dojo-community-hub/internal/interface/http/handlers"
	"github.com/dojo-hub/dojo-community-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	defer func() { _ = log.Sync() }()
	log.Info("starting Dojo Community Hub",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.Bool("postgres", cfg.UsesPostgres()),
		logger.Bool("redis", cfg.UsesRedis()),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ХРАНИЛИЩЕ, СОБЫТИЯ, ГЕНЕРАЦИЯ ТЕКСТА, USE CASES
	// ─────────────────────────────────────────────────────────────────────────
	app, err := bootstrap.Build(ctx, cfg, log, bootstrap.Options{})
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing storage and event bus...")
		app.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 4. HEALTH CHECKS
	// ─────────────────────────────────────────────────────────────────────────
	health := handlers.NewCompositeHealthChecker(cfg.App.Version)
	app.Store.RegisterHealthChecks(health)

	// ─────────────────────────────────────────────────────────────────────────
	// 5. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	httpServer := httpserver.NewServer(httpConfig(cfg.HTTP), httpserver.Dependencies{
		CommitSession:  app.CommitSession,
		SetReadiness:   app.SetReadiness,
		PromoteStudent: app.PromoteStudent,
		PreviewImport:  app.PreviewImport,
		EditImportRow:  app.EditImportRow,
		CommitImport:   app.CommitImport,
		GetProgress:    app.GetProgress,
		GetRoster:      app.GetRoster,
		Ledger:         cfg.Dojo.Ledger,
		Drafts:         app.Store.Drafts,
		Template:       spreadsheet.Template,
		HealthChecker:  health,
		Logger:         log,
	})

	// ─────────────────────────────────────────────────────────────────────────
	// 6. SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = app.NewScheduler(nil)
		if err != nil {
			return fmt.Errorf("failed to set up scheduler: %w", err)
		}
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ЗАПУСК И GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	errCh := httpServer.StartAsync()
	log.Info("Dojo Community Hub is running", logger.String("http_address", httpConfig(cfg.HTTP).Address()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err, ok := <-errCh:
		if ok && err != nil {
			log.Error("http server error", logger.Err(err))
			runErr = err
		}
	}

	log.Info("starting graceful shutdown...", logger.Duration("timeout", cfg.App.ShutdownTimeout))
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	// 1. Перестаём принимать запросы
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", logger.Err(err))
		runErr = errors.Join(runErr, err)
	}

	// 2. Останавливаем фоновые задачи
	if sched != nil {
		if err := sched.Stop(); err != nil && !errors.Is(err, scheduler.ErrSchedulerNotRunning) {
			log.Error("failed to stop scheduler", logger.Err(err))
		}
	}

	// 3. Event bus и хранилище закроются через defer

	if runErr != nil {
		log.Warn("shutdown completed with errors")
		return runErr
	}
	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger настраивает структурированное логирование: JSON по умолчанию,
// console для разработки, если LOG_FORMAT не задан явно.
func setupLogger(cfg *config.Config) *logger.Logger {
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	if cfg.App.Debug {
		opts.Level = logger.LevelDebug
	}
	opts.Format = cfg.Observability.LogFormat
	if os.Getenv("LOG_FORMAT") == "" && cfg.IsDevelopment() {
		opts.Format = "console"
	}
	return logger.New(opts).With(logger.String("app", cfg.App.Name))
}

func httpConfig(c config.HTTPConfig) httpserver.Config {
	hc := httpserver.DefaultConfig()
	hc.Host = c.Host
	hc.Port = c.Port
	hc.ReadTimeout = c.ReadTimeout
	hc.WriteTimeout = c.WriteTimeout
	hc.IdleTimeout = c.IdleTimeout
	hc.RequestTimeout = c.RequestTimeout
	if c.BodyLimit > 0 {
		hc.BodyLimit = c.BodyLimit
	}
	hc.EnableCORS = c.EnableCORS
	if len(c.AllowedOrigins) > 0 {
		hc.AllowedOrigins = c.AllowedOrigins
	}
	if c.APIKeyHeader != "" {
		hc.APIKeyHeader = c.APIKeyHeader
	}
	hc.APIKeys = c.APIKeys
	return hc
}
