package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"paperflow_go_backend/cmd/api/config"
	"paperflow_go_backend/internal/api"
	"paperflow_go_backend/internal/database"
	"paperflow_go_backend/internal/manuscript"
	"paperflow_go_backend/internal/metrics"
	"paperflow_go_backend/internal/seed"
	"paperflow_go_backend/internal/services"
	"paperflow_go_backend/internal/utils/broker"
	"paperflow_go_backend/internal/wsocket"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		zlog.Fatal().Err(err).Msg("Invalid configuration")
	}

	logger := newLogger(cfg)
	zlog.Logger = logger
	if envErr != nil {
		logger.Info().Msg("No .env file found")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("Server stopped with error")
	}
	logger.Info().Msg("Server stopped")
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	var logger zerolog.Logger
	if cfg.LogFormat == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Str("service", "paperflow").Logger()
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	files, closeFiles, err := openFileStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFiles()

	if cfg.SeedFile != "" {
		fixture, err := seed.LoadFile(cfg.SeedFile)
		if err != nil {
			return err
		}
		if _, err := seed.Apply(ctx, store, fixture, logger); err != nil {
			return err
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	messageBroker := broker.NewBroker()
	notifier := services.MultiNotifier{services.NewBrokerNotifier(messageBroker, logger)}
	var mailer *services.MailNotifier
	if cfg.MailEnabled() {
		mailer = services.NewMailNotifier(services.NewSMTPDialer(cfg.SMTP), cfg.SMTP.From, cfg.MailQueue, logger)
		notifier = append(notifier, mailer)
		logger.Info().Str("host", cfg.SMTP.Host).Msg("Email notifications enabled")
	}

	// Initialize internal services
	userService := services.NewUserService(store, logger)
	paperService := services.NewPaperService(store, files, manuscript.NewInspector(cfg.MaxUploadBytes), notifier, m, logger)
	assignmentService := services.NewAssignmentService(store, notifier, m, logger)
	reviewService := services.NewReviewService(store, notifier, m, logger, cfg.ReviewMinCommentLength)
	scoreService := services.NewScoreService(store)
	conferenceService := services.NewConferenceService(store, logger)

	if logger.GetLevel() > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), api.RequestLogger(logger))
	r.MaxMultipartMemory = cfg.MaxUploadBytes + 1<<20

	// CORS middleware configuration
	r.Use(cors.New(cfg.CORS()))

	wsHandler := wsocket.NewHandler(messageBroker, wsocket.NewUpgrader(cfg.WSAllowedOrigins), cfg.WSPingInterval, logger)

	api.SetupRoutes(r, api.Dependencies{
		Users:          userService,
		Papers:         paperService,
		Assignments:    assignmentService,
		Reviews:        reviewService,
		Scores:         scoreService,
		Conferences:    conferenceService,
		JWTSecret:      cfg.JWTSecret,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Events:         wsHandler,
		Gatherer:       reg,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("port", cfg.Port).Str("store", cfg.StoreBackend).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if mailer != nil {
		g.Go(func() error { return mailer.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openStore(cfg *config.Config) (services.Store, func(), error) {
	if cfg.StoreBackend == config.StoreBackendMemory {
		return services.NewMemoryStore(), func() {}, nil
	}
	db, err := database.InitDB(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	return services.NewGormStore(db), func() { _ = sqlDB.Close() }, nil
}

func openFileStorage(ctx context.Context, cfg *config.Config) (services.FileStorage, func(), error) {
	if cfg.StorageBackend == config.StorageBackendGCS {
		gcs, err := services.NewGCSService(ctx, cfg.GCSBucketName)
		if err != nil {
			return nil, nil, fmt.Errorf("creating GCS service: %w", err)
		}
		return gcs, func() { _ = gcs.Close() }, nil
	}
	local, err := services.NewLocalFileStorage(cfg.UploadDir)
	if err != nil {
		return nil, nil, err
	}
	return local, func() {}, nil
}
