package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/dojo-hub/dojo-community-hub/config"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/roster"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/student"
	"github.com/dojo-hub/dojo-community-hub/internal/infrastructure/persistence/memory"
	"github.com/dojo-hub/dojo-community-hub/internal/infrastructure/persistence/postgres"
	"github.com/dojo-hub/dojo-community-hub/internal/infrastructure/persistence/redis"
	"github.com/dojo-hub/dojo-community-hub/internal/infrastructure/scheduler/jobs"
	"github.com/dojo-hub/dojo-community-hub/internal/interface/http/handlers"
	"github.com/dojo-hub/dojo-community-hub/pkg/logger"
	"github.com/dojo-hub/dojo-community-hub/pkg/timeutil"
)

// Store is the storage picked from configuration: Postgres or memory for
// students, Redis or memory for import drafts, with a Redis read-through
// cache in front of students when Redis is up.
type Store struct {
	Students student.Repository
	Drafts   roster.DraftStore

	// Purger is set when drafts live in memory and need sweeping.
	Purger jobs.DraftPurger

	Postgres *postgres.Connection
	Redis    *redis.Cache
	Memory   *memory.DB
}

// OpenStore connects the configured backends. A Redis that cannot be reached
// is logged and replaced by memory; a Postgres failure is fatal.
func OpenStore(ctx context.Context, cfg *config.Config, log *logger.Logger, opts Options) (*Store, error) {
	s := &Store{}
	if opts.Clock == nil {
		opts.Clock = timeutil.SystemClock{}
	}

	var students student.Repository
	if cfg.UsesPostgres() {
		conn, err := OpenPostgres(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		s.Postgres = conn

		if cfg.Database.AutoMigrate && !opts.SkipMigrations {
			applied, err := postgres.NewMigrator(conn).Migrate(ctx)
			if err != nil {
				conn.Close()
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
			log.Info("migrations completed", logger.Int("applied", applied))
		}
		students = postgres.NewStudentRepository(conn)
	}

	if cfg.UsesRedis() {
		cache, err := redis.NewCache(ctx, redisConfig(cfg.Redis), log)
		if err != nil {
			log.Warn("failed to connect to Redis, using in-memory drafts", logger.Err(err))
		} else {
			s.Redis = cache
		}
	}

	if students == nil || s.Redis == nil {
		s.Memory = memory.OpenWithClock(opts.Clock)
	}
	if students == nil {
		students = memory.NewStudentRepository(s.Memory)
	}

	if s.Redis != nil {
		s.Drafts = redis.NewDraftStore(s.Redis)
		students = redis.NewCachedStudentRepository(students, s.Redis, log)
	} else {
		drafts := memory.NewDraftStore(s.Memory)
		s.Drafts = drafts
		s.Purger = drafts
	}
	s.Students = students
	return s, nil
}

// OpenPostgres connects to the configured database.
func OpenPostgres(ctx context.Context, cfg *config.Config, log *logger.Logger) (*postgres.Connection, error) {
	if !cfg.UsesPostgres() {
		return nil, errors.New("DATABASE_URL is not set")
	}
	conn, err := postgres.NewConnection(ctx, postgresConfig(cfg.Database), log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return conn, nil
}

// RegisterHealthChecks adds a ping check per connected backend.
func (s *Store) RegisterHealthChecks(hc *handlers.CompositeHealthChecker) {
	if s.Postgres != nil {
		hc.AddCheck("postgres", handlers.NewPingCheck(s.Postgres))
	}
	if s.Redis != nil {
		hc.AddCheck("redis", handlers.NewPingCheck(s.Redis))
	}
}

// Close releases the connections.
func (s *Store) Close() {
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
	if s.Postgres != nil {
		s.Postgres.Close()
	}
}

func postgresConfig(c config.DatabaseConfig) postgres.Config {
	pc := postgres.DefaultConfig()
	pc.URL = c.URL
	if c.MaxConns > 0 {
		pc.MaxConns = int32(c.MaxConns)
	}
	if c.MinConns >= 0 {
		pc.MinConns = int32(c.MinConns)
	}
	if c.ConnMaxLifetime > 0 {
		pc.MaxConnLifetime = c.ConnMaxLifetime
	}
	if c.ConnMaxIdleTime > 0 {
		pc.MaxConnIdleTime = c.ConnMaxIdleTime
	}
	if c.ConnectTimeout > 0 {
		pc.ConnectTimeout = c.ConnectTimeout
	}
	return pc
}

func redisConfig(c config.RedisConfig) redis.Config {
	rc := redis.DefaultConfig()
	rc.URL = c.URL
	if c.Host != "" {
		rc.Host = c.Host
	}
	if c.Port > 0 {
		rc.Port = c.Port
	}
	rc.Password = c.Password
	rc.DB = c.DB
	if c.PoolSize > 0 {
		rc.PoolSize = c.PoolSize
	}
	rc.MinIdleConns = c.MinIdleConns
	if c.DialTimeout > 0 {
		rc.DialTimeout = c.DialTimeout
	}
	if c.ReadTimeout > 0 {
		rc.ReadTimeout = c.ReadTimeout
	}
	if c.WriteTimeout > 0 {
		rc.WriteTimeout = c.WriteTimeout
	}
	if c.KeyPrefix != "" {
		rc.KeyPrefix = c.KeyPrefix
	}
	return rc
}
