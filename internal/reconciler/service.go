// Package reconciler compara os objetos Bet de uma carteira na chain com o
// espelho no Postgres e recria as linhas que faltam.
package reconciler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/radieske/suibets-platform/internal/bet-service/dto"
	"github.com/radieske/suibets-platform/internal/bet-service/mirror"
	"github.com/radieske/suibets-platform/internal/bet-service/repo"
	"github.com/radieske/suibets-platform/internal/shared/metrics"
	"github.com/radieske/suibets-platform/internal/sui"
	"github.com/radieske/suibets-platform/internal/sui/rpc"
	"github.com/radieske/suibets-platform/pkg/betmath"
)

type ChainReader interface {
	GetOwnedObjects(ctx context.Context, owner, structType string) ([]rpc.ObjectData, error)
	GetTransactionBlock(ctx context.Context, digest string, opts rpc.TransactionBlockOptions) (*rpc.TransactionBlock, error)
}

type Store interface {
	MirrorKeysByWallet(ctx context.Context, wallet string) (repo.MirrorKeys, error)
	ListWallets(ctx context.Context) ([]string, error)
}

type BetWriter interface {
	WriteBet(ctx context.Context, req dto.PlaceBetRequest) (*mirror.Result, error)
}

// Report resume uma passada sobre uma carteira.
type Report struct {
	Wallet     string
	OnChain    int
	Mirrored   int
	Restored   int
	Mismatches int
	Skipped    int
}

type Service struct {
	chain       ChainReader
	store       Store
	writer      BetWriter
	cfg         sui.Config
	concurrency int
	log         *zap.Logger
}

func New(chain ChainReader, store Store, writer BetWriter, cfg sui.Config, concurrency int, log *zap.Logger) *Service {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Service{chain: chain, store: store, writer: writer, cfg: cfg, concurrency: concurrency, log: log}
}

// ReconcileWallet lê os objetos Bet do dono e garante uma linha espelho por
// objeto. Linhas existentes nunca são alteradas, só contadas; uma linha só é
// recriada a partir do digest de criação do objeto.
func (s *Service) ReconcileWallet(ctx context.Context, wallet string) (*Report, error) {
	wallet = mirror.NormalizeWallet(wallet)
	rep := &Report{Wallet: wallet}
	metrics.ReconcileRuns.Inc()

	objs, err := s.chain.GetOwnedObjects(ctx, wallet, s.cfg.BetObjectType())
	if err != nil {
		metrics.ReconcileErrors.WithLabelValues("chain").Inc()
		return nil, err
	}
	known, err := s.store.MirrorKeysByWallet(ctx, wallet)
	if err != nil {
		metrics.ReconcileErrors.WithLabelValues("store").Inc()
		return nil, err
	}

	for _, obj := range objs {
		cb, err := ParseChainBet(obj, s.cfg.TokenCoinType)
		if err != nil {
			rep.Skipped++
			metrics.ReconcileErrors.WithLabelValues("parse").Inc()
			s.log.Warn("skip bet object", zap.String("object_id", obj.ObjectID), zap.Error(err))
			continue
		}
		rep.OnChain++

		// o objeto já tem linha, mesmo que previousTransaction tenha mudado
		if known.Has("", cb.ObjectID) {
			rep.Mirrored++
			continue
		}

		// parlays não carregam as pernas no objeto; sem a linha original não há
		// como recriar
		if cb.IsParlay() {
			if known.Has(cb.TxDigest, "") {
				rep.Mirrored++
			} else {
				rep.Skipped++
			}
			continue
		}

		if !cb.CreationDigest && !known.Has(cb.TxDigest, "") {
			created, err := s.createdIn(ctx, cb)
			if err != nil {
				metrics.ReconcileErrors.WithLabelValues("chain").Inc()
				return rep, err
			}
			if !created {
				rep.Skipped++
				metrics.ReconcileErrors.WithLabelValues("digest").Inc()
				s.log.Warn("creation digest unknown, bet object not restored",
					zap.String("object_id", cb.ObjectID), zap.String("previous_tx", cb.TxDigest))
				continue
			}
		}

		objectID := cb.ObjectID
		res, err := s.writer.WriteBet(ctx, dto.PlaceBetRequest{
			WalletAddress: wallet,
			EventID:       cb.EventID,
			MarketID:      cb.MarketID,
			Prediction:    cb.Prediction,
			BetAmount:     betmath.FromUnits(cb.StakeUnits),
			Odds:          betmath.BpsToOdds(cb.OddsBps),
			FeeCurrency:   string(cb.Currency),
			TxHash:        cb.TxDigest,
			OnChainBetID:  &objectID,
		})
		switch {
		case errors.Is(err, repo.ErrMirrorMismatch):
			rep.Mismatches++
			metrics.ReconcileMismatches.Inc()
			s.log.Warn("mirror row differs from chain",
				zap.String("tx_hash", cb.TxDigest), zap.String("object_id", cb.ObjectID))
		case err != nil:
			metrics.ReconcileErrors.WithLabelValues("write").Inc()
			return rep, err
		case res.Created:
			rep.Restored++
			metrics.ReconcileRestored.Inc()
			s.log.Info("mirror row restored", zap.String("tx_hash", cb.TxDigest))
		default:
			rep.Mirrored++
		}
	}
	return rep, nil
}

// createdIn confere se o objeto foi criado pela transação cb.TxDigest.
func (s *Service) createdIn(ctx context.Context, cb ChainBet) (bool, error) {
	tb, err := s.chain.GetTransactionBlock(ctx, cb.TxDigest, rpc.TransactionBlockOptions{ShowObjectChanges: true})
	if err != nil {
		return false, err
	}
	for _, ch := range tb.ObjectChanges {
		if ch.Type == "created" && ch.ObjectID == cb.ObjectID {
			return true, nil
		}
	}
	return false, nil
}

// SweepAll reconcilia todas as carteiras conhecidas, com no máximo
// concurrency em paralelo. Falha de uma carteira não interrompe as outras.
func (s *Service) SweepAll(ctx context.Context) ([]*Report, error) {
	wallets, err := s.store.ListWallets(ctx)
	if err != nil {
		metrics.ReconcileErrors.WithLabelValues("store").Inc()
		return nil, err
	}

	reports := make([]*Report, len(wallets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, w := range wallets {
		i, w := i, w
		g.Go(func() error {
			rep, err := s.ReconcileWallet(gctx, w)
			if err != nil {
				s.log.Error("reconcile wallet", zap.String("wallet", w), zap.Error(err))
				return nil
			}
			reports[i] = rep
			return nil
		})
	}
	_ = g.Wait()
	return reports, ctx.Err()
}

// RunPeriodic executa SweepAll a cada interval até o ctx ser cancelado.
func (s *Service) RunPeriodic(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		start := time.Now()
		reports, err := s.SweepAll(ctx)
		if err != nil && ctx.Err() == nil {
			s.log.Error("reconcile sweep", zap.Error(err))
		}
		var restored, mismatches int
		for _, r := range reports {
			if r != nil {
				restored += r.Restored
				mismatches += r.Mismatches
			}
		}
		s.log.Info("reconcile sweep done",
			zap.Int("wallets", len(reports)),
			zap.Int("restored", restored),
			zap.Int("mismatches", mismatches),
			zap.Duration("took", time.Since(start)),
		)

		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
