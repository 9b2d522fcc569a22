package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/angeldev7/clinic-scheduling/internal/api"
	"github.com/angeldev7/clinic-scheduling/internal/appointment"
	"github.com/angeldev7/clinic-scheduling/internal/availability"
	"github.com/angeldev7/clinic-scheduling/internal/booking"
	"github.com/angeldev7/clinic-scheduling/internal/config"
	"github.com/angeldev7/clinic-scheduling/internal/db"
	"github.com/angeldev7/clinic-scheduling/internal/logging"
	redisclient "github.com/angeldev7/clinic-scheduling/internal/redis"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr).With().Timestamp().Logger()
		bootLog.Fatal().Err(err).Msg("config load error")
	}

	logger := logging.New(cfg.Env, cfg.LogLevel)
	logger.Info().
		Str("env", cfg.Env).
		Str("http_port", cfg.HTTPPort).
		Str("timezone", cfg.Timezone).
		Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	journals := booking.MultiJournal{booking.NewLogJournal(logger)}

	var pgPool *pgxpool.Pool
	if cfg.PostgresDSN != "" {
		pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
		pgPool, err = db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
		cancelPg()
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection error")
		}
		defer pgPool.Close()

		pgJournal := booking.NewPgJournal(pgPool)
		if err := pgJournal.EnsureSchema(rootCtx); err != nil {
			logger.Fatal().Err(err).Msg("postgres schema error")
		}
		journals = append(journals, pgJournal)
		logger.Info().Msg("connected to Postgres")
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb, err = redisclient.NewRedisClient(rootCtx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection error")
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Error().Err(err).Msg("error closing redis")
			}
		}()

		journals = append(journals, redisclient.NewStreamJournal(rdb, cfg.RedisStream, redisclient.DefaultStreamMaxLen))
		logger.Info().Str("stream", cfg.RedisStream).Msg("connected to Redis")
	}

	clock := appointment.SystemClock{}
	svc := booking.NewService(availability.NewEngine(clock), booking.NewRegistry(), clock, journals, logger)

	if cfg.SeedDemo {
		err := booking.SeedDemo(rootCtx, svc, booking.DemoOptions{
			ExtraPatients: cfg.DemoPatients,
			Location:      cfg.Location(),
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("demo seed error")
		}
	}

	srv := newServer(cfg, svc, pgPool, rdb, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-rootCtx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server error")
		}
	}

	logger.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func newServer(cfg config.Config, svc *booking.Service, pgPool *pgxpool.Pool, rdb *redis.Client, logger zerolog.Logger) *http.Server {
	return &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: api.NewRouter(api.RouterConfig{
			Service:  svc,
			PgPool:   pgPool,
			Redis:    rdb,
			Logger:   logger,
			Env:      cfg.Env,
			Version:  version,
			Location: cfg.Location(),
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}
}
