// Command server runs the HTTP API configured from the environment only.
// The user dictionary always lives in Redis here, on localhost by default.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"speller/internal/archive"
	"speller/internal/config"
	"speller/internal/corrector"
	"speller/internal/metrics"
	"speller/internal/server"
	"speller/internal/speller"
	"speller/internal/userdict"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		zap.NewExample().Fatal("config error", zap.Error(err))
	}
	log, err := cfg.NewLogger()
	if err != nil {
		zap.NewExample().Fatal("logger error", zap.Error(err))
	}
	defer log.Sync()
	archive.SetLogger(log)

	if cfg.Archive == "" {
		log.Fatal("SPELLER_ARCHIVE is required")
	}
	sp, err := speller.Open(cfg.Archive, cfg.SpellerOptions(log)...)
	if err != nil {
		log.Fatal("init error", zap.Error(err))
	}
	defer sp.Close()

	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis unreachable, user words will fail until it is up",
			zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}

	dict := userdict.NewRedis(client, sp.Locale())
	sc := corrector.NewSpellCorrector(cfg.CorrectorConfig(), sp, dict, log)

	opts := []server.Option{server.WithLogger(log)}
	if cfg.Metrics.Enabled {
		opts = append(opts, server.WithMetrics(metrics.NewCollector(prometheus.NewRegistry()), cfg.Metrics.Path))
	}
	if err := server.New(sc, opts...).ListenAndServe(ctx, cfg.HTTP.Addr); err != nil {
		log.Error("server stopped", zap.Error(err))
	}
}
