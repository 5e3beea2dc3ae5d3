package main // Entry point package

import (
    "context"
    "errors"
    "log/slog"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/joho/godotenv"                      // loads .env for local runs
    "github.com/labstack/echo/v4"                   // Echo web framework
    echomw "github.com/labstack/echo/v4/middleware" // Echo's stock middleware
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/collectors"

    "github.com/iliyamo/parkall/internal/auth"
    "github.com/iliyamo/parkall/internal/config"   // Internal config loader
    "github.com/iliyamo/parkall/internal/database" // MySQL connection and migrations
    "github.com/iliyamo/parkall/internal/handler"
    "github.com/iliyamo/parkall/internal/logger"
    "github.com/iliyamo/parkall/internal/metrics"
    "github.com/iliyamo/parkall/internal/middleware"
    "github.com/iliyamo/parkall/internal/parking"
    "github.com/iliyamo/parkall/internal/queue"
    "github.com/iliyamo/parkall/internal/repository"
    "github.com/iliyamo/parkall/internal/router" // Internal router setup
    "github.com/iliyamo/parkall/internal/storage"
)

// stores groups the persistence collaborators of both services.
type stores struct {
    spots       parking.SpotStore
    users       auth.ProfileStore
    directory   parking.UserDirectory
    history     parking.ReservationLog
    credentials auth.CredentialStore
    pinger      handler.Pinger
    close       func()
}

func main() {
    _ = godotenv.Load()      // .env is optional
    cfg := config.MustLoad() // Load environment config
    log := logger.SetupDefault(os.Stdout, logger.ParseLevel(cfg.LogLevel))

    st, err := openStores(cfg, log)
    if err != nil {
        log.Error("open store", "driver", cfg.StoreDriver, "error", err)
        os.Exit(1)
    }
    defer st.close()

    reg := prometheus.NewRegistry()
    reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
    collector := metrics.NewCollector(reg)

    images, uploadsDir, err := openImageStore(cfg)
    if err != nil {
        log.Error("open image store", "kind", cfg.ImageStore, "error", err)
        os.Exit(1)
    }

    deps := parking.Deps{
        Spots:   st.spots,
        Users:   st.directory,
        History: st.history,
        Images:  images,
        Metrics: collector,
        Logger:  log,
    }
    if cfg.EventsEnabled {
        deps.Events = queue.NewPublisher(cfg.RabbitMQURL, log)
    }
    svc := parking.NewService(deps)

    authSvc := &auth.Service{
        Identities: auth.NewLocalProvider(st.credentials, cfg.BcryptCost),
        Profiles:   st.users,
        Secret:     cfg.JWTSecret,
        TTLMin:     cfg.AccessTTLMin,
        Logger:     log,
    }

    rdb := config.NewRedisClient() // nil when Redis is disabled or unreachable
    if rdb == nil {
        log.Warn("redis unavailable; rate limiting and listing cache disabled")
    } else {
        defer rdb.Close()
    }

    e := echo.New() // Create Echo instance
    e.HideBanner = true
    e.Use(echomw.Recover())
    e.Use(echomw.CORS())
    e.Use(middleware.RequestLogger(log, collector))
    e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

    showDetail := !cfg.IsProd()
    router.RegisterRoutes(e, st.pinger, reg, uploadsDir) // Register application routes
    router.RegisterAuth(e, handler.NewAuthHandler(authSvc, log, showDetail), cfg.JWTSecret)
    router.RegisterParking(e, handler.NewParkingHandler(svc, images, cfg.MaxUploadBytes, log, showDetail), router.ParkingOptions{
        AuthRequired: cfg.AuthRequired,
        JWTSecret:    cfg.JWTSecret,
        Redis:        rdb,
        Cache:        config.LoadCacheConfig(),
    })

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    addr := ":" + cfg.Port // Address string with port
    go func() {
        log.Info("listening", "addr", addr, "env", cfg.Env, "store", cfg.StoreDriver, "auth_required", cfg.AuthRequired)
        if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
            log.Error("server stopped", "error", err)
            stop()
        }
    }()

    <-ctx.Done()
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    if err := e.Shutdown(shutdownCtx); err != nil {
        log.Error("shutdown", "error", err)
    }
    log.Info("server stopped")
}

// openStores connects the configured store driver.  The mysql driver
// applies the embedded migrations first when MIGRATE_ON_START is set.
func openStores(cfg config.Config, log *slog.Logger) (*stores, error) {
    if cfg.StoreDriver == config.DriverMemory {
        m := repository.NewMemoryStore()
        log.Warn("using in-memory store; data is lost on restart")
        return &stores{
            spots:       m.Spots(),
            users:       m.Users(),
            directory:   m.Users(),
            history:     m.Reservations(),
            credentials: m.Credentials(),
            close:       func() {},
        }, nil
    }

    settings := database.Settings{User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName}
    if cfg.MigrateOnStart {
        if err := database.RunMigrations(settings.MigrateURL()); err != nil {
            return nil, err
        }
        log.Info("migrations applied")
    }
    db, err := database.Open(settings)
    if err != nil {
        return nil, err
    }
    users := repository.NewUserRepo(db)
    return &stores{
        spots:       repository.NewSpotRepo(db),
        users:       users,
        directory:   users,
        history:     repository.NewReservationRepo(db),
        credentials: repository.NewCredentialRepo(db),
        pinger:      db,
        close:       func() { _ = db.Close() },
    }, nil
}

// openImageStore returns the configured image store and, for the disk
// store, the directory served under /uploads.
func openImageStore(cfg config.Config) (storage.ImageStore, string, error) {
    if cfg.ImageStore == config.ImageStoreS3 {
        ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
        defer cancel()
        s3, err := storage.NewS3Store(ctx, cfg.S3Bucket, cfg.S3Prefix)
        if err != nil {
            return nil, "", err
        }
        return s3, "", nil
    }
    return storage.NewDiskStore(cfg.UploadsDir), cfg.UploadsDir, nil
}
