package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/avstrong/roomdesk/internal/cache"
	"github.com/avstrong/roomdesk/internal/config"
	"github.com/avstrong/roomdesk/internal/daterange"
	"github.com/avstrong/roomdesk/internal/desk"
	"github.com/avstrong/roomdesk/internal/idgen/simple"
	"github.com/avstrong/roomdesk/internal/logger"
	"github.com/avstrong/roomdesk/internal/migration"
	"github.com/avstrong/roomdesk/internal/remote"
	"github.com/avstrong/roomdesk/internal/storage/memory"
	"github.com/avstrong/roomdesk/internal/tracing"
	"github.com/avstrong/roomdesk/internal/transport/web"
)

//nolint:funlen,cyclop
func Run(l *logger.Logger, conf *config.Config) error {
	ctx, cancel := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGHUP,
	)
	defer cancel()

	shutdownTracing, err := tracing.Setup(conf.JaegerEndpoint)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}

	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			l.LogErrorf("Failed to flush traces: %v", err.Error())
		}
	}()

	surcharges, err := conf.Surcharges()
	if err != nil {
		return fmt.Errorf("parse meal plan surcharges: %w", err)
	}

	backend, err := newBackend(ctx, l, conf)
	if err != nil {
		return err
	}

	snapshots, closeCache, err := newCache(ctx, conf)
	if err != nil {
		return err
	}
	defer closeCache()

	deskManager := desk.New(desk.Config{
		L:          l.With("component", "desk"),
		Gateway:    backend,
		Cache:      snapshots,
		Surcharges: surcharges,
		Now:        time.Now,
	})

	webConf := web.Conf{
		L:                 l.With("component", "web"),
		ServerLogger:      l.StdLog(),
		Host:              conf.Host,
		Port:              conf.Port,
		ReadHeaderTimeout: conf.ReadHeaderTimeout,
		LivenessEndpoint:  conf.LivenessEndpoint,
		RateLimitPerMin:   conf.RateLimitPerMin,
		RateLimitBurst:    conf.RateLimitBurst,
	}

	srv, err := web.New(ctx, webConf, deskManager)
	if err != nil {
		return fmt.Errorf("init http server: %w", err)
	}

	//nolint:contextcheck
	go func() {
		<-ctx.Done()

		ctx, cancel := context.WithTimeout(context.Background(), conf.ShutdownTimeout)
		defer cancel()

		if err := srv.Srv().Shutdown(ctx); err != nil {
			l.LogErrorf("Failed to stop http server: %v", err.Error())
		}
	}()

	l.LogInfo("Application is running on %v:%v...", webConf.Host, webConf.Port)

	if err := srv.Srv().ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		l.LogErrorf("Failed to run http server: %v", err.Error())

		cancel()
	}

	l.LogInfo("Application stopped gracefully")

	return nil
}

// newBackend talks to the hosted API when one is configured and otherwise
// serves a seeded in-process backend.
func newBackend(ctx context.Context, l *logger.Logger, conf *config.Config) (desk.Gateway, error) {
	if conf.APIBaseURL != "" {
		client, err := remote.New(remote.Config{
			L:       l.With("component", "remote"),
			BaseURL: conf.APIBaseURL,
			Token:   conf.APIToken,
			Timeout: conf.APITimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("init remote client: %w", err)
		}

		l.LogInfo("Using hotel API at %s", conf.APIBaseURL)

		return client, nil
	}

	surcharges, err := conf.Surcharges()
	if err != nil {
		return nil, fmt.Errorf("parse meal plan surcharges: %w", err)
	}

	storage := memory.New(memory.Config{
		L:          l.With("component", "storage"),
		IDGen:      simple.New(migration.MaxSeededBookingID),
		Surcharges: surcharges,
	})

	if err := migration.Up(ctx, l, storage, daterange.FromTime(time.Now().UTC())); err != nil {
		return nil, fmt.Errorf("up seed migration: %w", err)
	}

	l.LogInfo("Seed migration has been applied, using in-process backend")

	return storage, nil
}

func newCache(ctx context.Context, conf *config.Config) (desk.Cache, func(), error) {
	switch conf.CacheDriver {
	case config.CacheRedis:
		c, err := cache.NewRedis(ctx, cache.RedisConfig{
			Addr:     conf.RedisAddr,
			Password: conf.RedisPassword,
			DB:       conf.RedisDB,
			TTL:      conf.CacheTTL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("init redis cache: %w", err)
		}

		return c, func() { _ = c.Close() }, nil
	case config.CacheNone:
		return cache.Noop{}, func() {}, nil
	default:
		return cache.NewLocal(conf.CacheTTL), func() {}, nil
	}
}
