package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/app"
	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/config"
	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/database"
	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/handler"
	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/middleware"
	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/queue"
	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/repository"
	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/router"
	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := app.NewLogger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DB)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	if cfg.DB.Migrate {
		if err := database.Migrate(ctx, db, logger); err != nil {
			logger.Fatal("migrate", zap.Error(err))
		}
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		logger.Warn("redis unavailable, rate limiting and hours cache disabled")
	} else {
		defer rdb.Close()
	}

	policy, err := service.ParseTransitionPolicy(cfg.Booking.TransitionPolicy)
	if err != nil {
		logger.Fatal("booking config", zap.Error(err))
	}

	repos := repository.NewRepositories(db)
	settings := service.NewSettingsService(repos.Settings)
	opts := []service.EngineOption{
		service.WithSlotStep(cfg.Booking.SlotStep()),
		service.WithLocation(cfg.Booking.Location()),
		service.WithTransitionPolicy(policy),
		service.WithCustomerReceipts(cfg.Booking.SendCustomerReceipts),
		service.WithAuditSink(service.NewRepositoryAuditSink(repos.Audit)),
	}

	if cfg.RabbitMQ.Enabled {
		pub := queue.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue, logger)
		defer pub.Close()
		opts = append(opts, service.WithNotifier(pub))

		if cfg.RabbitMQ.Consume {
			consumer := queue.NewConsumer(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue, cfg.RabbitMQ.OutboxPath, logger)
			go func() {
				if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("notification consumer stopped", zap.Error(err))
				}
			}()
		}
	}

	engine := service.NewEngine(repos, repository.NewMySQLTxManager(db), settings, logger, opts...)
	calendar := service.NewCalendar(engine)

	scheduler := app.NewScheduler(engine, cfg.Booking.SweepInterval, logger)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(logger))

	router.RegisterRoutes(e, handler.Health(db))
	router.RegisterAuth(e, handler.NewAuthHandler(cfg.Auth, repository.NewUserRepo(db), repository.NewTokenRepo(db), logger), cfg.Auth.JWTSecret)
	router.RegisterPublic(e,
		handler.NewPublicHandler(engine, calendar, logger),
		middleware.NewTokenBucket(cfg.RateLimit, rdb, logger),
		middleware.NewRedisCache(cfg.Cache, rdb),
	)
	router.RegisterStaff(e,
		handler.NewStaffHandler(engine, repos.Audit, logger),
		handler.NewScheduleHandler(calendar, settings, cfg.Booking.SlotStep(), logger),
		cfg.Auth.JWTSecret,
	)

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
