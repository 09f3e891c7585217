package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	hcache "github.com/radieske/suibets-platform/internal/bet-service/cache"
	"github.com/radieske/suibets-platform/internal/bet-service/mirror"
	kpub "github.com/radieske/suibets-platform/internal/bet-service/producer"
	"github.com/radieske/suibets-platform/internal/bet-service/repo"
	"github.com/radieske/suibets-platform/internal/reconciler"
	"github.com/radieske/suibets-platform/internal/shared/cache"
	"github.com/radieske/suibets-platform/internal/shared/config"
	"github.com/radieske/suibets-platform/internal/shared/db"
	"github.com/radieske/suibets-platform/internal/shared/kafka"
	"github.com/radieske/suibets-platform/internal/shared/logger"
	"github.com/radieske/suibets-platform/internal/shared/metrics"
	"github.com/radieske/suibets-platform/internal/sui/rpc"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Postgres: mesmo espelho do bet-service
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()
	if err := db.EnsureSchema(ctx, pg); err != nil {
		log.Fatal("schema", zap.Error(err))
	}

	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	// Kafka consumer: bet_mirror_pending
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicMirrorPending, cfg.KafkaGroupReconciler)
	defer reader.Close()

	// Kafka producers: bet_mirrored e, opcionalmente, DLQ
	mirroredWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetMirrored)
	defer mirroredWriter.Close()

	var dlq kafka.MessageWriter
	if cfg.TopicMirrorPendingDLQ != "" {
		w := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicMirrorPendingDLQ)
		defer w.Close()
		dlq = w
	}

	repository := repo.NewPostgres(pg)
	writer := mirror.New(repository, hcache.New(rdb, cfg.WalletHistoryCacheTTL), kpub.NewKafkaPublisher(mirroredWriter, nil), log)

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, metrics.All(
		metrics.Check{Name: "pg", Fn: pg.PingContext},
		metrics.Check{Name: "redis", Fn: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
	), log)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	g, gctx := errgroup.WithContext(ctx)

	consumer := reconciler.NewPendingConsumer(reader, dlq, writer, log)
	g.Go(func() error { return consumer.Run(gctx) })

	// varredura periódica chain -> espelho
	if chain := cfg.Chain(); chain.Validate() == nil && cfg.ReconcileInterval > 0 {
		suiClient := rpc.NewClient(chain.RPCURL, log, rpc.Options{RPS: cfg.SuiRPCRPS})
		svc := reconciler.New(suiClient, repository, writer, chain, cfg.ReconcileConcurrency, log)
		g.Go(func() error {
			svc.RunPeriodic(gctx, cfg.ReconcileInterval)
			return nil
		})
	} else {
		log.Warn("periodic reconciliation disabled", zap.Error(chain.Validate()))
	}

	log.Info("bet-reconciler started",
		zap.String("consume", cfg.TopicMirrorPending),
		zap.String("dlq", cfg.TopicMirrorPendingDLQ),
		zap.Duration("sweep_interval", cfg.ReconcileInterval),
	)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("bet-reconciler stopped", zap.Error(err))
	}
}
