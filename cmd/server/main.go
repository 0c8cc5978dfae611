package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"inkpost/internal/awsclient"
	"inkpost/internal/backup"
	"inkpost/internal/config"
	"inkpost/internal/credential"
	apphttp "inkpost/internal/http"
	"inkpost/internal/metrics"
	"inkpost/internal/repository/sqlite"
	"inkpost/internal/service"
	"inkpost/internal/session"
	"inkpost/internal/weather"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warnf("unknown log level %q, using info", cfg.Log.Level)
	}

	if strings.TrimSpace(cfg.Auth.SessionSecret) == "" {
		logger.Fatalf("auth session secret is required")
	}
	if strings.TrimSpace(cfg.Auth.RegisterPassword) == "" {
		logger.Warn("auth registration password is empty, registration is open")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	userRepo := sqlite.NewUserRepository(db)
	postRepo := sqlite.NewPostRepository(db)
	weatherRepo := sqlite.NewWeatherRepository(db)
	if err := sqlite.InitAll(ctx, userRepo, postRepo, weatherRepo); err != nil {
		logger.Fatalf("init repositories: %v", err)
	}

	hasher, err := credential.NewHasher(cfg.Auth.HashAlgorithm)
	if err != nil {
		logger.Fatalf("password hasher: %v", err)
	}
	userService, err := service.NewUserService(service.UserServiceConfig{
		Users:          userRepo,
		Hasher:         hasher,
		RegisterSecret: cfg.Auth.RegisterPassword,
		Logger:         logger,
	})
	if err != nil {
		logger.Fatalf("user service: %v", err)
	}
	gate := session.NewGate(userService, userService, logger)
	postService := service.NewPostService(postRepo, gate, logger)

	store, err := buildSessionStore(ctx, cfg)
	if err != nil {
		logger.Fatalf("session store: %v", err)
	}
	defer store.Close()
	tokens, err := session.NewTokenCodec(cfg.Auth.SessionSecret, cfg.SessionTTL())
	if err != nil {
		logger.Fatalf("session tokens: %v", err)
	}

	m := metrics.New()
	weatherService := service.NewWeatherService(service.WeatherServiceConfig{
		Readings: weatherRepo,
		Fetcher:  weather.NewClient(cfg.Weather.BaseURL, time.Duration(cfg.Weather.TimeoutSeconds)*time.Second),
		Location: weather.Location{
			City:      cfg.Weather.City,
			Latitude:  cfg.Weather.Latitude,
			Longitude: cfg.Weather.Longitude,
		},
		HistoryLimit: cfg.Weather.HistoryLimit,
		OnFetch:      m.ObserveWeatherFetch,
	})

	var poller *weather.Poller
	if cfg.Weather.IntervalMinutes > 0 {
		poller = weather.NewPoller(weather.PollerConfig{
			Interval:     time.Duration(cfg.Weather.IntervalMinutes) * time.Minute,
			FetchOnStart: true,
			Logger:       logger,
		}, weatherService)
		if err := poller.Start(ctx); err != nil {
			logger.Fatalf("start weather poller: %v", err)
		}
	}

	backups, err := buildBackups(ctx, cfg, db, logger)
	if err != nil {
		logger.Fatalf("setup backups: %v", err)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(apphttp.Config{
		Users:          userService,
		Posts:          postService,
		Weather:        weatherService,
		Gate:           gate,
		Sessions:       session.NewManager(store, tokens),
		Limiter:        apphttp.NewLoginLimiter(cfg.Auth.LoginPerMinute, cfg.Auth.LoginBurst),
		Metrics:        m,
		Logger:         logger,
		AllowedOrigins: cfg.Origins(),
		CookieSecure:   cfg.Auth.CookieSecure,
		WeatherHistory: cfg.Weather.HistoryLimit,
	})
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	if poller != nil {
		poller.Shutdown()
	}
	if backups != nil {
		backups.Shutdown()
	}

	logger.Info("bye")
}

func buildSessionStore(ctx context.Context, cfg config.Config) (session.Store, error) {
	if cfg.Session.Backend == "redis" {
		rdb, err := session.DialRedis(ctx, cfg.Session.RedisAddr, cfg.Session.RedisPassword, cfg.Session.RedisDB)
		if err != nil {
			return nil, err
		}
		return session.NewRedisStore(rdb), nil
	}
	return session.NewMemoryStore(cfg.SessionTTL())
}

// buildBackups returns nil when no bucket or interval is configured.
func buildBackups(ctx context.Context, cfg config.Config, db *sql.DB, logger *logrus.Logger) (*backup.Manager, error) {
	if cfg.Storage.Bucket == "" || cfg.Backup.IntervalMinutes <= 0 {
		return nil, nil
	}
	store, err := awsclient.NewStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	mgr, err := backup.NewManager(backup.Config{
		Bucket:    cfg.Storage.Bucket,
		KeyPrefix: cfg.Storage.KeyPrefix,
		Keep:      cfg.Backup.Keep,
		Interval:  time.Duration(cfg.Backup.IntervalMinutes) * time.Minute,
		Logger:    logger,
	}, store, func(ctx context.Context, dest string) error {
		return sqlite.Snapshot(ctx, db, dest)
	})
	if err != nil {
		return nil, err
	}
	if err := mgr.Start(ctx); err != nil {
		return nil, fmt.Errorf("start backup scheduler: %w", err)
	}
	logger.Infof("using s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return mgr, nil
}
