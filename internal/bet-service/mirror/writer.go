// Package mirror grava a cópia off-chain de apostas já confirmadas on-chain.
// É usado pelo handler HTTP e pelo bet-reconciler.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/suibets-platform/internal/bet-service/dto"
	"github.com/radieske/suibets-platform/internal/bet-service/repo"
	"github.com/radieske/suibets-platform/internal/shared/metrics"
	"github.com/radieske/suibets-platform/pkg/betmath"
	"github.com/radieske/suibets-platform/pkg/contracts/events"
)

// ErrInvalid marca requisições rejeitadas antes de tocar o banco.
var ErrInvalid = errors.New("invalid mirror request")

type Store interface {
	UpsertBet(ctx context.Context, b *repo.Bet) (*repo.Bet, bool, error)
	UpsertParlay(ctx context.Context, p *repo.Parlay) (*repo.Parlay, bool, error)
}

type Invalidator interface {
	Invalidate(ctx context.Context, wallet string) error
}

type Publisher interface {
	PublishBetMirrored(ctx context.Context, e events.BetMirrored) error
}

type Writer struct {
	store Store
	cache Invalidator
	publ  Publisher
	log   *zap.Logger
}

// New aceita cache e publisher nil (ex.: testes, reconciler sem Kafka).
func New(store Store, cache Invalidator, publ Publisher, log *zap.Logger) *Writer {
	return &Writer{store: store, cache: cache, publ: publ, log: log}
}

// Result descreve o efeito da escrita; Created=false é duplicata idempotente.
type Result struct {
	Created bool
	Bet     *repo.Bet
	Parlay  *repo.Parlay
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// NormalizeWallet: endereços Sui são hex; o espelho guarda em minúsculas.
func NormalizeWallet(w string) string { return strings.ToLower(strings.TrimSpace(w)) }

func currency(s string) (string, error) {
	if s == "" {
		return string(betmath.CurrencySUI), nil
	}
	c, err := betmath.ParseCurrency(s)
	if err != nil {
		return "", invalid("%v", err)
	}
	return string(c), nil
}

// BetFromRequest valida e converte o corpo do POST /bets na linha espelho.
func BetFromRequest(req dto.PlaceBetRequest) (*repo.Bet, error) {
	switch {
	case strings.TrimSpace(req.WalletAddress) == "":
		return nil, invalid("walletAddress is required")
	case req.TxHash == "":
		return nil, invalid("txHash is required")
	case req.EventID == "" || req.MarketID == "" || req.Prediction == "":
		return nil, invalid("eventId, marketId and prediction are required")
	case !req.BetAmount.IsPositive():
		return nil, invalid("betAmount must be positive")
	case req.Odds.LessThanOrEqual(decimal.NewFromInt(1)):
		return nil, invalid("odds must be greater than 1")
	}
	cur, err := currency(req.FeeCurrency)
	if err != nil {
		return nil, err
	}
	return &repo.Bet{
		WalletAddress:   NormalizeWallet(req.WalletAddress),
		EventID:         req.EventID,
		MarketID:        req.MarketID,
		OutcomeID:       req.OutcomeID,
		Prediction:      req.Prediction,
		BetAmount:       req.BetAmount,
		Odds:            req.Odds,
		PotentialPayout: betmath.Payout(req.BetAmount, req.Odds),
		FeeCurrency:     cur,
		TxHash:          req.TxHash,
		OnChainBetID:    nonEmpty(req.OnChainBetID),
	}, nil
}

// ParlayFromRequest valida as pernas e recalcula odds combinadas e payout.
func ParlayFromRequest(req dto.PlaceParlayRequest) (*repo.Parlay, error) {
	switch {
	case strings.TrimSpace(req.WalletAddress) == "":
		return nil, invalid("walletAddress is required")
	case req.TxHash == "":
		return nil, invalid("txHash is required")
	case !req.TotalStake.IsPositive():
		return nil, invalid("totalStake must be positive")
	}
	cur, err := currency(req.FeeCurrency)
	if err != nil {
		return nil, err
	}

	odds := make([]decimal.Decimal, len(req.Legs))
	legs := make([]repo.Leg, len(req.Legs))
	for i, l := range req.Legs {
		if l.EventID == "" || l.Prediction == "" {
			return nil, invalid("leg %d: eventId and prediction are required", i)
		}
		odds[i] = l.Odds
		legs[i] = repo.Leg{
			Index:      i,
			EventID:    l.EventID,
			MarketID:   l.MarketID,
			OutcomeID:  l.OutcomeID,
			Prediction: l.Prediction,
			Odds:       l.Odds,
		}
	}
	combined, err := betmath.ParlayOdds(odds)
	if err != nil {
		return nil, invalid("%v", err)
	}
	return &repo.Parlay{
		WalletAddress:   NormalizeWallet(req.WalletAddress),
		TotalStake:      req.TotalStake,
		CombinedOdds:    combined,
		PotentialPayout: betmath.Payout(req.TotalStake, combined),
		FeeCurrency:     cur,
		TxHash:          req.TxHash,
		OnChainBetID:    nonEmpty(req.OnChainBetID),
		Legs:            legs,
	}, nil
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

// WriteBet grava (ou reencontra) a linha espelho. ErrInvalid e
// repo.ErrMirrorMismatch são erros do cliente; o resto é falha de escrita.
func (w *Writer) WriteBet(ctx context.Context, req dto.PlaceBetRequest) (*Result, error) {
	bet, err := BetFromRequest(req)
	if err != nil {
		metrics.MirrorWrites.WithLabelValues(events.KindBet, "invalid").Inc()
		return nil, err
	}
	stored, created, err := w.store.UpsertBet(ctx, bet)
	if err != nil {
		metrics.MirrorWrites.WithLabelValues(events.KindBet, resultLabel(err)).Inc()
		return nil, err
	}
	metrics.MirrorWrites.WithLabelValues(events.KindBet, createdLabel(created)).Inc()

	w.after(ctx, stored.WalletAddress)
	if created {
		w.publish(ctx, events.BetMirrored{
			BetID:        stored.ID,
			Kind:         events.KindBet,
			Wallet:       stored.WalletAddress,
			EventID:      stored.EventID,
			BetAmount:    stored.BetAmount.String(),
			Odds:         stored.Odds.InexactFloat64(),
			FeeCurrency:  stored.FeeCurrency,
			TxHash:       stored.TxHash,
			OnChainBetID: deref(stored.OnChainBetID),
		})
	}
	return &Result{Created: created, Bet: stored}, nil
}

func (w *Writer) WriteParlay(ctx context.Context, req dto.PlaceParlayRequest) (*Result, error) {
	pl, err := ParlayFromRequest(req)
	if err != nil {
		metrics.MirrorWrites.WithLabelValues(events.KindParlay, "invalid").Inc()
		return nil, err
	}
	stored, created, err := w.store.UpsertParlay(ctx, pl)
	if err != nil {
		metrics.MirrorWrites.WithLabelValues(events.KindParlay, resultLabel(err)).Inc()
		return nil, err
	}
	metrics.MirrorWrites.WithLabelValues(events.KindParlay, createdLabel(created)).Inc()

	w.after(ctx, stored.WalletAddress)
	if created {
		w.publish(ctx, events.BetMirrored{
			BetID:        stored.ID,
			Kind:         events.KindParlay,
			Wallet:       stored.WalletAddress,
			BetAmount:    stored.TotalStake.String(),
			Odds:         stored.CombinedOdds.InexactFloat64(),
			FeeCurrency:  stored.FeeCurrency,
			TxHash:       stored.TxHash,
			OnChainBetID: deref(stored.OnChainBetID),
		})
	}
	return &Result{Created: created, Parlay: stored}, nil
}

// IsClientError separa erros de requisição (400/409) de falhas de escrita.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalid) || errors.Is(err, repo.ErrMirrorMismatch)
}

func (w *Writer) after(ctx context.Context, wallet string) {
	if w.cache == nil {
		return
	}
	if err := w.cache.Invalidate(ctx, wallet); err != nil {
		w.log.Warn("history cache invalidate", zap.String("wallet", wallet), zap.Error(err))
	}
}

func (w *Writer) publish(ctx context.Context, e events.BetMirrored) {
	if w.publ == nil {
		return
	}
	if err := w.publ.PublishBetMirrored(ctx, e); err != nil {
		w.log.Warn("publish bet_mirrored", zap.String("tx_hash", e.TxHash), zap.Error(err))
	}
}

func resultLabel(err error) string {
	if errors.Is(err, repo.ErrMirrorMismatch) {
		return "mismatch"
	}
	return "failed"
}

func createdLabel(created bool) string {
	if created {
		return "created"
	}
	return "duplicate"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
