// Package app assembles backends shared by the api and worker commands.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/churchevent-ux/registerform--event-final/internal/attendance"
	"github.com/churchevent-ux/registerform--event-final/internal/category"
	"github.com/churchevent-ux/registerform--event-final/internal/config"
	"github.com/churchevent-ux/registerform--event-final/internal/feed"
	"github.com/churchevent-ux/registerform--event-final/internal/identifier"
	"github.com/churchevent-ux/registerform--event-final/internal/notify"
	"github.com/churchevent-ux/registerform--event-final/internal/queue"
	"github.com/churchevent-ux/registerform--event-final/internal/store"
)

// Backend names accepted by QUEUE_BACKEND, FEED_BACKEND and ID_COUNTER.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Infra holds the opened connections and the backends built on them.
type Infra struct {
	DB      *store.DB
	Redis   *store.Redis
	Broker  feed.Broker
	Queue   queue.Queue
	Counter identifier.Counter
}

// Open connects to Postgres and Redis, applies migrations and picks the configured backends.
func Open(ctx context.Context, cfg config.App, log *zap.Logger) (*Infra, error) {
	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	if err := store.Migrate(ctx, db.Client); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	rdb := store.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
	if !rdb.Healthy(ctx) {
		log.Warn("redis not reachable", zap.String("addr", cfg.RedisAddr))
	}

	in := &Infra{DB: db, Redis: rdb}
	switch cfg.FeedBackend {
	case BackendMemory:
		in.Broker = feed.NewMemory()
	default:
		in.Broker = feed.NewRedisBroker(rdb.Client, "")
	}
	switch cfg.QueueBackend {
	case BackendMemory:
		in.Queue = queue.NewInMemory(256)
	default:
		in.Queue = queue.NewRedisQueue(rdb.Client, "")
	}
	switch cfg.IDCounter {
	case BackendRedis:
		in.Counter = identifier.NewRedisCounter(rdb.Client, "")
	default:
		in.Counter = identifier.NewPostgresCounter(db.Client)
	}
	log.Info("backends ready",
		zap.String("feed", cfg.FeedBackend),
		zap.String("queue", cfg.QueueBackend),
		zap.String("id_counter", cfg.IDCounter))
	return in, nil
}

// Close releases every connection.
func (in *Infra) Close() {
	_ = in.Redis.Close()
	_ = in.DB.Close()
}

// Profiles returns the built-in category bands, overridden from the configured YAML file.
func Profiles(cfg config.App) (category.Profiles, error) {
	if cfg.BandsFile == "" {
		return category.Defaults(), nil
	}
	return category.LoadProfiles(cfg.BandsFile)
}

// ScanClock builds the automatic scan mode schedule.
func ScanClock(cfg config.App) (attendance.ScanClock, error) {
	in, err := config.ClockOffset(cfg.ScanSignInBefore)
	if err != nil {
		return attendance.ScanClock{}, err
	}
	out, err := config.ClockOffset(cfg.ScanSignOutFrom)
	if err != nil {
		return attendance.ScanClock{}, err
	}
	if out <= in {
		return attendance.ScanClock{}, fmt.Errorf("sign-out time %s must be after sign-in cutoff %s", cfg.ScanSignOutFrom, cfg.ScanSignInBefore)
	}
	return attendance.ScanClock{SignInBefore: in, SignOutFrom: out, Location: cfg.Location()}, nil
}

// Sink always logs and also posts to Telegram when a bot token is configured.
func Sink(cfg config.App, log *zap.Logger) notify.Sink {
	sinks := notify.Fanout{notify.NewLogSink(log)}
	if cfg.TelegramToken == "" {
		return sinks
	}
	tg, err := notify.NewTelegramSink(cfg.TelegramToken, cfg.TelegramChatID)
	if err != nil {
		log.Warn("telegram sink disabled", zap.Error(err))
		return sinks
	}
	return append(sinks, tg)
}
