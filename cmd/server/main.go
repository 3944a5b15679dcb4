// Package main runs the cartoon recommendation bot HTTP server.
//
// @title          Cartoon Bot API
// @version        1.0
// @description    Recommends age-appropriate cartoons to parents. Chat transports post inbound events to /events and relay the replies; the REST endpoints expose recommendations, reactions, favorites and administrator tools directly.
// @BasePath       /api/v1
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	_ "github.com/tbourn/go-cartoon-bot/docs" // swagger spec
	"github.com/tbourn/go-cartoon-bot/internal/catalog"
	"github.com/tbourn/go-cartoon-bot/internal/config"
	httpapi "github.com/tbourn/go-cartoon-bot/internal/http"
	"github.com/tbourn/go-cartoon-bot/internal/observability"
	"github.com/tbourn/go-cartoon-bot/internal/repo"
	"github.com/tbourn/go-cartoon-bot/internal/services"
	"github.com/tbourn/go-cartoon-bot/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = ""

func main() {
	cfg := config.MustLoad()
	ver := sysutil.FirstNonEmpty(version, os.Getenv("APP_VERSION"), "dev")
	sysutil.SetupLogger(os.Stdout, sysutil.LogOptions{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: cfg.OTEL.ServiceName,
		Version: ver,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.OTEL, ver)
	if err != nil {
		log.Fatal().Err(err).Msg("tracing setup failed")
	}

	db, err := repo.Open(cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DB.Driver).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	cat := newCatalog(ctx, cfg)

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	bot := httpapi.RegisterRoutes(r, db, cat, cfg)

	janitor := &services.Janitor{DB: db, Throttle: bot.Throttle, Every: 10 * time.Minute}
	go janitor.Run(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("base_path", cfg.APIBasePath).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("tracer shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("bye")
}

// newCatalog layers TMDB access: breaker when enabled, then the degrade
// rules of catalog.Client with an optional Redis page-count cache.
func newCatalog(ctx context.Context, cfg config.Config) *catalog.Client {
	if cfg.TMDB.APIKey == "" {
		log.Warn().Msg("TMDB_API_KEY is empty; catalog requests will fail")
	}

	var src catalog.Source = catalog.NewTMDB(catalog.TMDBOptions{
		APIKey:   cfg.TMDB.APIKey,
		BaseURL:  cfg.TMDB.BaseURL,
		Language: cfg.TMDB.Language,
		Timeout:  cfg.TMDB.Timeout,
	})
	if cfg.TMDB.Breaker {
		src = catalog.NewBreaker(src, catalog.BreakerSettings{})
	}

	opts := catalog.ClientOptions{
		ImageBaseURL: cfg.TMDB.ImageBaseURL,
		CountTTL:     cfg.Redis.PageCountTTL,
	}
	if cfg.Redis.Addr != "" {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		rdb, err := catalog.NewRedis(pingCtx, cfg.Redis)
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, page counts will not be cached")
		} else {
			opts.Counts = catalog.NewRedisCountCache(rdb, "")
		}
	}
	return catalog.NewClient(src, opts)
}
