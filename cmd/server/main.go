package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/clinic-queue/internal/config"
	"github.com/iliyamo/clinic-queue/internal/database"
	"github.com/iliyamo/clinic-queue/internal/handler"
	"github.com/iliyamo/clinic-queue/internal/lock"
	"github.com/iliyamo/clinic-queue/internal/logger"
	"github.com/iliyamo/clinic-queue/internal/middleware"
	"github.com/iliyamo/clinic-queue/internal/queue"
	"github.com/iliyamo/clinic-queue/internal/repository"
	"github.com/iliyamo/clinic-queue/internal/router"
	"github.com/iliyamo/clinic-queue/internal/service"
)

// store is what the services need from the persistence layer.
type store interface {
	repository.Store
	repository.UserStore
}

func main() {
	cfg := config.Load()
	zl, err := logger.New(cfg.IsProduction())
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, db, err := openStore(ctx, cfg)
	if err != nil {
		zl.Fatal("open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	if db != nil {
		defer db.Close()
	}
	zl.Info("store ready", zap.String("driver", cfg.StoreDriver))

	var rdb *redis.Client
	if rcfg := config.LoadRedisConfig(); rcfg.Enabled {
		if rdb, err = config.NewRedisClient(rcfg); err != nil {
			zl.Warn("redis unavailable; using in-process lock and rate limiter", zap.Error(err))
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	bcfg := config.LoadBookingConfig()
	var locker lock.Locker = lock.NewLocal()
	if bcfg.LockBackend == config.LockRedis {
		if rdb != nil {
			locker = lock.NewRedis(rdb, bcfg.LockPrefix, bcfg.LockTTL)
		} else {
			zl.Warn("LOCK_BACKEND=redis but redis is not reachable; falling back to local lock")
		}
	}

	acfg := config.LoadAMQPConfig()
	var pub service.EventPublisher
	if acfg.PublishEnabled {
		pub = queue.NewPublisher(acfg.URL, acfg.Queue, zl)
	}

	auth := service.NewAuthService(st, cfg.JWTSecret, cfg.AccessTTLMin, cfg.BcryptCost, zl)
	registry := service.NewRegistry(st, zl)
	query := service.NewQueryService(registry, st)
	bookings := service.NewBookingService(st, locker, bcfg, pub, zl)

	if cfg.AdminEmail != "" {
		if err := auth.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			zl.Fatal("bootstrap admin", zap.Error(err))
		}
	}
	if cfg.SeedDemo {
		n, err := registry.SeedDemo(ctx)
		if err != nil {
			zl.Fatal("seed demo sessions", zap.Error(err))
		}
		zl.Info("demo sessions seeded", zap.Int("created", n))
	}

	if acfg.ConsumerEnabled {
		go func() {
			if err := queue.StartBookingConsumer(ctx, acfg.URL, acfg.Queue, acfg.LogDir, zl); err != nil && !errors.Is(err, context.Canceled) {
				zl.Error("booking consumer stopped", zap.Error(err))
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(zl))
	e.Use(middleware.NewRateLimiter(config.LoadRateLimitConfig(), rdb, zl))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(auth, zl), cfg.JWTSecret)
	sessions := handler.NewSessionHandler(registry, query, zl)
	router.RegisterPublic(e, sessions)
	router.RegisterAdmin(e, sessions, cfg.JWTSecret)
	router.RegisterPatient(e, handler.NewBookingHandler(bookings, query, zl), cfg.JWTSecret)

	addr := ":" + cfg.Port
	go func() {
		zl.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zl.Error("http shutdown", zap.Error(err))
	}
	bookings.Wait()
}

// openStore builds the configured store.  db is nil for the memory driver.
func openStore(ctx context.Context, cfg config.Config) (store, *sql.DB, error) {
	var (
		db      *sql.DB
		dialect string
		err     error
	)
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return repository.NewMemoryStore(), nil, nil
	case config.DriverSQLite:
		db, err = database.OpenSQLite(cfg.SQLitePath)
		dialect = database.SQLite
	default:
		db, err = database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		dialect = database.MySQL
	}
	if err != nil {
		return nil, nil, err
	}
	if err := database.EnsureSchema(ctx, db, dialect); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return repository.NewSQLStore(db, dialect), db, nil
}
