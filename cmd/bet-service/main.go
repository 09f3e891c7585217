package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	hcache "github.com/radieske/suibets-platform/internal/bet-service/cache"
	bhttp "github.com/radieske/suibets-platform/internal/bet-service/http"
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

	// Postgres + schema do espelho
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg", zap.Error(err))
	}
	defer pg.Close()
	if err := db.EnsureSchema(ctx, pg); err != nil {
		log.Fatal("schema", zap.Error(err))
	}

	// Redis (cache do histórico por carteira)
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	// Kafka writers: bet_mirrored e bet_mirror_pending
	mirroredWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetMirrored)
	defer mirroredWriter.Close()
	pendingWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicMirrorPending)
	defer pendingWriter.Close()

	// deps
	repository := repo.NewPostgres(pg)
	history := hcache.New(rdb, cfg.WalletHistoryCacheTTL)
	publ := kpub.NewKafkaPublisher(mirroredWriter, pendingWriter)
	writer := mirror.New(repository, history, publ, log)

	// reconciliação sob demanda só quando o pacote do contrato está configurado
	var rec bhttp.Reconciler
	if chain := cfg.Chain(); chain.Validate() == nil {
		suiClient := rpc.NewClient(chain.RPCURL, log, rpc.Options{RPS: cfg.SuiRPCRPS})
		rec = reconciler.New(suiClient, repository, writer, chain, cfg.ReconcileConcurrency, log)
	} else {
		log.Warn("sui contract not configured; /wallets/{address}/reconcile disabled")
	}

	api := &bhttp.Server{
		Log:            log,
		Store:          repository,
		Mirror:         writer,
		Cache:          history,
		Pending:        publ,
		Reconciler:     rec,
		AllowedOrigins: strings.Split(cfg.CORSAllowedOrigins, ","),
	}
	apiSrv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// metrics/health
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, metrics.All(
		metrics.Check{Name: "pg", Fn: pg.PingContext},
		metrics.Check{Name: "redis", Fn: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
	), log)

	go func() {
		log.Info("bet-service listening", zap.String("addr", apiSrv.Addr))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("api", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
}
