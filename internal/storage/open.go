package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-redis/redis/v8"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	BackendMemory   = "memory"
	BackendBolt     = "bolt"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
)

type Options struct {
	Backend string

	BoltPath      string
	DatabaseURL   string
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Open builds the configured slot. The returned close func is never nil.
func Open(ctx context.Context, opts Options, log *zap.Logger) (Slot, func() error, error) {
	if log == nil {
		log = zap.NewNop()
	}
	noop := func() error { return nil }

	switch opts.Backend {
	case BackendMemory:
		return NewMemSlot(), noop, nil

	case BackendBolt, "":
		s, err := OpenBoltSlot(opts.BoltPath)
		if err != nil {
			return nil, noop, err
		}
		log.Info("storage: bolt slot opened", zap.String("path", opts.BoltPath))
		return s, s.Close, nil

	case BackendPostgres:
		db, err := sql.Open("pgx", opts.DatabaseURL)
		if err != nil {
			return nil, noop, fmt.Errorf("open postgres: %w", err)
		}
		s := NewPostgresSlot(db)
		if err := s.EnsureSchema(ctx); err != nil {
			// Get treats a missing table as absent, so keep going.
			log.Warn("storage: kv_slots schema not ensured", zap.Error(err))
		}
		return s, db.Close, nil

	case BackendSQLite:
		db, err := gorm.Open(sqlite.Open(opts.SQLitePath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return nil, noop, fmt.Errorf("open sqlite %s: %w", opts.SQLitePath, err)
		}
		s, err := NewGormSlot(db)
		if err != nil {
			return nil, noop, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, noop, err
		}
		return s, sqlDB.Close, nil

	case BackendRedis:
		s := NewRedisSlot(redis.NewClient(&redis.Options{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
		}))
		return s, s.Close, nil

	default:
		return nil, noop, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}
