package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/churchevent-ux/registerform--event-final/internal/app"
	"github.com/churchevent-ux/registerform--event-final/internal/attendance"
	"github.com/churchevent-ux/registerform--event-final/internal/config"
	"github.com/churchevent-ux/registerform--event-final/internal/jobs"
	"github.com/churchevent-ux/registerform--event-final/internal/logging"
	"github.com/churchevent-ux/registerform--event-final/internal/notify"
	"github.com/churchevent-ux/registerform--event-final/internal/observability"
	"github.com/churchevent-ux/registerform--event-final/internal/queue"
)

// Worker delivers queued presence signals to operators and raises long-break alerts.
func main() {
	cfg := config.Load()

	lg, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer lg.Closer()
	logger := lg.Named("worker")

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, cfg.Release)
	if err != nil {
		logger.Warn("sentry init failed", zap.Error(err))
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	infra, err := app.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
	defer infra.Close()

	sink := app.Sink(cfg, logger.Named("notify"))
	repo := attendance.NewRepository(infra.DB.Client)

	runner := jobs.New(ctx, logger.Named("jobs"))
	alert := &jobs.LongBreakAlert{
		Source:   repo,
		Publish:  queue.SignalPublisher(infra.Queue),
		Limit:    cfg.BreakAlertAfter,
		Location: cfg.Location(),
	}
	runner.Every(cfg.BreakCheckEvery, "long_break_alert", alert.Run)

	messages, err := infra.Queue.Consume(ctx)
	if err != nil {
		logger.Fatal("queue consume init failed", zap.Error(err))
	}

	logger.Info("worker started, waiting for messages")
	for msg := range messages {
		s, err := queue.DecodeSignal(msg)
		if err != nil {
			logger.Warn("dropping message", zap.String("type", msg.Type), zap.Error(err))
			continue
		}
		if err := sink.Send(ctx, notify.FromSignal(s)); err != nil {
			observability.CaptureErr(err)
			logger.Warn("notification failed", zap.String("type", s.Type), zap.Error(err))
			continue
		}
		logger.Debug("signal delivered", zap.String("type", s.Type), zap.String("student_id", s.Identifier))
	}

	runner.Wait()
	logger.Info("worker stopped")
}
