package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"paidreviews/internal/adapters/gateway"
	server "paidreviews/internal/adapters/http_server"
	"paidreviews/internal/adapters/manifest"
	"paidreviews/internal/adapters/observability"
	redisad "paidreviews/internal/adapters/redis"
	"paidreviews/internal/adapters/stream"
	"paidreviews/internal/app"
	"paidreviews/internal/domain"
	"paidreviews/internal/shared"
	mysqlrepo "paidreviews/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	gw, err := gateway.New(cfg.GatewayBase, cfg.GatewayKey, cfg.GatewayRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("gateway client init failed")
	}
	var tagSrc domain.TagSource
	if cfg.TagManifestURL != "" {
		tagSrc = manifest.New(cfg.TagManifestURL, 2)
	}

	q := app.NewQueryService(repo, cache, cfg.CacheTTL)
	reviews := app.NewReviewService(repo, repo, gw, cache)
	settings := app.NewSettingsService(repo, tagSrc)
	rec := app.NewReconciler(repo, repo, gw, cache, cfg.TributeAddress)

	// one consumer per process; the group id keeps restarts from
	// re-delivering events already committed
	consumer := stream.NewConsumer(stream.ConsumerConfig{
		Brokers: cfg.KafkaBrokers,
		GroupID: cfg.KafkaGroup,
		Topic:   cfg.KafkaTopic,
	}, rec.HandlePayment)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Q: q, Reviews: reviews, Settings: settings})

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return consumer.Run(ctx)
	})
	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("shutdown complete")
}
