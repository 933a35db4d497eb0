package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/churchevent-ux/registerform--event-final/internal/app"
	"github.com/churchevent-ux/registerform--event-final/internal/attendance"
	"github.com/churchevent-ux/registerform--event-final/internal/auth"
	"github.com/churchevent-ux/registerform--event-final/internal/category"
	"github.com/churchevent-ux/registerform--event-final/internal/cloudinary"
	"github.com/churchevent-ux/registerform--event-final/internal/config"
	"github.com/churchevent-ux/registerform--event-final/internal/httpapi"
	"github.com/churchevent-ux/registerform--event-final/internal/httpmiddleware"
	"github.com/churchevent-ux/registerform--event-final/internal/identifier"
	"github.com/churchevent-ux/registerform--event-final/internal/logging"
	"github.com/churchevent-ux/registerform--event-final/internal/notify"
	"github.com/churchevent-ux/registerform--event-final/internal/observability"
	"github.com/churchevent-ux/registerform--event-final/internal/presence"
	"github.com/churchevent-ux/registerform--event-final/internal/queue"
	"github.com/churchevent-ux/registerform--event-final/internal/settings"
	"github.com/churchevent-ux/registerform--event-final/internal/team"
	"github.com/churchevent-ux/registerform--event-final/internal/volunteer"
)

func main() {
	cfg := config.Load()

	lg, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer lg.Closer()

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, cfg.Release)
	if err != nil {
		lg.Base.Warn("sentry init failed", zap.Error(err))
	}
	defer flush()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, lg.Named("api")); err != nil {
		observability.CaptureErr(err)
		lg.Base.Fatal("http server failed", zap.Error(err))
	}
}

func runHTTP(cfg config.App, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	infra, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer infra.Close()

	profiles, err := app.Profiles(cfg)
	if err != nil {
		return err
	}
	clock, err := app.ScanClock(cfg)
	if err != nil {
		return err
	}
	loc := cfg.Location()

	repo := attendance.NewRepository(infra.DB.Client)
	att := attendance.NewService(repo, identifier.NewSequence(infra.Counter, repo.LatestIdentifier), attendance.Options{
		Bands:       profiles.Get(cfg.RegistrationProfile),
		Broker:      infra.Broker,
		Clock:       clock,
		DedupWindow: cfg.ScanDedupWindow,
		Logger:      logger.Named("attendance"),
	})
	vols := volunteer.NewService(volunteer.NewRepository(infra.DB.Client), infra.Counter, infra.Broker, logger.Named("volunteer"))
	teams := team.NewService(team.NewRepository(infra.DB.Client), profiles.Get(category.ProfileTeam), infra.Broker, logger.Named("team"))
	users := settings.NewService(settings.NewRepository(infra.DB.Client), logger.Named("settings"))
	if err := users.EnsureSuperAdmin(ctx, cfg.SuperAdminEmail, cfg.SuperAdminPassword); err != nil {
		return err
	}

	sink := app.Sink(cfg, logger.Named("notify"))
	otp := auth.NewOTP(auth.NewRedisCodeStore(infra.Redis.Client), notify.OTPDelivery(sink), cfg.OTPTTL)

	if cfg.QueueBackend == app.BackendMemory {
		go drainInProcess(ctx, infra.Queue, sink, logger)
	}

	var opts []presence.ReducerOption
	if cfg.DetectByIdentifier {
		opts = append(opts, presence.DetectByIdentifier())
	}
	monitor := presence.NewMonitor(presence.MonitorConfig{
		Broker:   infra.Broker,
		Source:   att,
		Location: loc,
		Publish:  queue.SignalPublisher(infra.Queue),
		Logger:   logger.Named("monitor"),
		Options:  opts,
	})
	if err := monitor.Start(ctx); err != nil {
		return err
	}
	defer monitor.Stop()

	var uploader httpapi.Uploader
	if c := cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder); c != nil {
		uploader = c
		logger.Info("cloudinary configured", zap.String("cloud", cfg.CloudinaryCloudName))
	}

	h := httpapi.New(httpapi.Deps{
		Attendance: att,
		Volunteers: vols,
		Teams:      teams,
		Settings:   users,
		Signer:     auth.NewSigner(cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL),
		OTP:        otp,
		Monitor:    monitor,
		Uploader:   uploader,
		CardBands:  profiles.Get(category.ProfileIDCard),
		Profiles:   profiles,
		Profile:    cfg.RegistrationProfile,
		Location:   loc,
		BreakLimit: cfg.BreakAlertAfter,
		Health: map[string]httpapi.HealthCheck{
			"db":    func(ctx context.Context) bool { return infra.DB.Ping(ctx) == nil },
			"redis": infra.Redis.Healthy,
		},
		Logger: logger,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(logger.Named("http"), "/healthz", "/metrics"))
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin, httpmiddleware.RouteAndIP).GinMiddleware())
	h.Routes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server forced shutdown", zap.Error(err))
	}
	logger.Info("server exited")
	return nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Disposition", "X-Card-URL"},
		MaxAge:        24 * time.Hour,
	}
	if len(origins) == 1 && origins[0] == "*" {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

// drainInProcess delivers queued signals when no separate worker shares the queue.
func drainInProcess(ctx context.Context, q queue.Queue, sink notify.Sink, logger *zap.Logger) {
	msgs, err := q.Consume(ctx)
	if err != nil {
		logger.Error("queue consume failed", zap.Error(err))
		return
	}
	for msg := range msgs {
		s, err := queue.DecodeSignal(msg)
		if err != nil {
			logger.Warn("dropping message", zap.Error(err))
			continue
		}
		if err := sink.Send(ctx, notify.FromSignal(s)); err != nil {
			logger.Warn("notification failed", zap.String("type", s.Type), zap.Error(err))
		}
	}
}
