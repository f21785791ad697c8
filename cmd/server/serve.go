package main

import (
    "context"
    "errors"
    "net/http"
    "os"
    "os/signal"
    "path/filepath"
    "syscall"
    "time"

    "github.com/spf13/afero"
    "github.com/spf13/cobra"

    "github.com/iliyamo/car-rental/internal/config"
    "github.com/iliyamo/car-rental/internal/database"
    "github.com/iliyamo/car-rental/internal/handler"
    "github.com/iliyamo/car-rental/internal/logging"
    "github.com/iliyamo/car-rental/internal/queue"
    "github.com/iliyamo/car-rental/internal/repository"
    "github.com/iliyamo/car-rental/internal/router"
    "github.com/iliyamo/car-rental/internal/service"
    "github.com/iliyamo/car-rental/internal/storage"
)

const bookingLogFile = "logs/booking.log"

func serveCmd() *cobra.Command {
    var migrate bool
    cmd := &cobra.Command{
        Use:   "serve",
        Short: "Run the HTTP API",
        RunE: func(cmd *cobra.Command, _ []string) error {
            return serve(migrate)
        },
    }
    cmd.Flags().BoolVar(&migrate, "migrate", true, "apply the schema on start")
    return cmd
}

func serve(migrate bool) error {
    cfg := config.Load()
    logger := logging.New(cfg.Env)

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    db, err := database.Open(cfg)
    if err != nil {
        return err
    }
    defer db.Close()
    if migrate {
        if err := database.Migrate(ctx, db); err != nil {
            return err
        }
    }

    rdb := config.NewRedisClient()
    if rdb == nil {
        logger.Warn().Msg("redis unavailable, caching and rate limiting disabled")
    } else {
        defer rdb.Close()
    }

    fs := afero.NewOsFs()
    images, err := storage.NewImageStore(fs, cfg.UploadDir, cfg.UploadMaxBytes)
    if err != nil {
        return err
    }

    var events service.EventPublisher = service.NopPublisher{}
    if cfg.QueueEnabled {
        events = service.NewAMQPPublisher(cfg.AMQPURL, logger)
        if err := fs.MkdirAll(filepath.Dir(bookingLogFile), 0o755); err != nil {
            return err
        }
        f, err := fs.OpenFile(bookingLogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
        if err != nil {
            return err
        }
        defer f.Close()
        go func() {
            if err := queue.StartBookingConsumer(ctx, cfg.AMQPURL, f, logger); err != nil && !errors.Is(err, context.Canceled) {
                logger.Error().Err(err).Msg("booking consumer stopped")
            }
        }()
    }

    users := repository.NewUserRepo(db)
    tokens := repository.NewTokenRepo(db)
    cars := repository.NewCarRepo(db)
    bookingRepo := repository.NewBookingRepo(db)
    bookings := service.NewBookingService(bookingRepo, cars, logger, service.WithPublisher(events))

    e := router.New(router.Deps{
        Cfg:       cfg,
        Log:       logger,
        Auth:      handler.NewAuthHandler(cfg, users, tokens),
        Cars:      handler.NewCarHandler(cars, images, bookings),
        Bookings:  handler.NewBookingHandler(bookings),
        Dashboard: handler.NewDashboardHandler(repository.NewDashboardRepo(db)),
        Redis:     rdb,
        RateLimit: config.LoadRateLimitConfig(),
        Cache:     config.LoadCacheConfig(),
    })

    addr := ":" + cfg.Port
    go func() {
        logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
        if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
            logger.Error().Err(err).Msg("server error")
            stop()
        }
    }()

    <-ctx.Done()
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    logger.Info().Msg("shutting down")
    return e.Shutdown(shutdownCtx)
}
