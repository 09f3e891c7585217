// Package placement conduz uma tentativa de aposta de ponta a ponta:
// monta a transação, pede assinatura à carteira, confirma on-chain e grava o
// espelho no bet-service.
package placement

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/suibets-platform/internal/bet-chain/confirm"
	"github.com/radieske/suibets-platform/internal/bet-chain/txbuilder"
	"github.com/radieske/suibets-platform/internal/bet-service/dto"
	"github.com/radieske/suibets-platform/internal/shared/logger"
	"github.com/radieske/suibets-platform/internal/shared/metrics"
	"github.com/radieske/suibets-platform/pkg/betmath"
)

type State string

const (
	StateBuilding      State = "building"
	StateSigned        State = "signed"
	StateSubmitted     State = "submitted"
	StateConfirmed     State = "confirmed-on-chain"
	StateMirrored      State = "mirrored"
	StateFailedOnChain State = "failed-on-chain"
	StateMirrorFailed  State = "mirror-write-failed"

	// a transação nunca chegou à chain (validação, assinatura, sem digest)
	StateAborted State = "aborted"
)

const mirrorPendingWarning = "bet confirmed on-chain; history sync pending"

type Builder interface {
	BuildBet(ctx context.Context, req txbuilder.BetRequest) (*txbuilder.Transaction, error)
	BuildParlay(ctx context.Context, req txbuilder.ParlayRequest) (*txbuilder.Transaction, error)
}

type Submitter interface {
	Submit(ctx context.Context, tx *txbuilder.Transaction) (*confirm.Confirmation, error)
}

type Mirror interface {
	MirrorBet(ctx context.Context, req dto.PlaceBetRequest) (*MirrorResult, error)
	MirrorParlay(ctx context.Context, req dto.PlaceParlayRequest) (*MirrorResult, error)
}

// Outcome é o resultado visível de uma tentativa. Em StateMirrorFailed a
// aposta foi feita: Digest é a prova e SyncPending sinaliza o espelho adiado.
type Outcome struct {
	AttemptID   string
	State       State
	Transitions []State
	Digest      string
	BetObjectID *string
	Bet         *dto.BetResponse
	Parlay      *dto.ParlayResponse
	SyncPending bool
	Warning     string
}

func (o *Outcome) move(s State) {
	o.State = s
	o.Transitions = append(o.Transitions, s)
}

// Placed diz se o stake está on-chain.
func (o *Outcome) Placed() bool {
	return o.State == StateMirrored || o.State == StateMirrorFailed
}

type Service struct {
	builder   Builder
	submitter Submitter
	mirror    Mirror
	log       *zap.Logger
}

func New(b Builder, s Submitter, m Mirror, log *zap.Logger) *Service {
	return &Service{builder: b, submitter: s, mirror: m, log: log}
}

// BetInput é o que o usuário escolheu para uma aposta simples.
type BetInput struct {
	Bet       txbuilder.BetRequest
	OutcomeID string
}

// PlaceBet executa uma tentativa. O erro só é não-nil quando a aposta não foi
// feita; falha no espelho volta como Outcome com SyncPending.
func (s *Service) PlaceBet(ctx context.Context, in BetInput) (*Outcome, error) {
	out, log := s.start(in.Bet.Sender)
	if in.Bet.Currency == "" {
		in.Bet.Currency = betmath.CurrencySUI
	}

	tx, err := s.builder.BuildBet(ctx, in.Bet)
	if err != nil {
		return s.abort(out, log, err)
	}
	conf, err := s.submit(ctx, out, log, tx)
	if err != nil {
		return out, err
	}

	// o espelho grava o que foi para a chain: stake em unidades e odd em bps
	res, err := s.mirror.MirrorBet(ctx, dto.PlaceBetRequest{
		WalletAddress: in.Bet.Sender,
		EventID:       in.Bet.EventID,
		MarketID:      in.Bet.MarketID,
		OutcomeID:     in.OutcomeID,
		BetAmount:     betmath.FromUnits(tx.Summary.StakeUnits),
		Odds:          betmath.BpsToOdds(tx.Summary.OddsBps),
		Prediction:    in.Bet.Prediction,
		FeeCurrency:   strings.ToUpper(string(in.Bet.Currency)),
		TxHash:        conf.Digest,
		OnChainBetID:  conf.BetObjectID,
	})
	s.finish(out, log, res, err)
	if res != nil {
		out.Bet = res.Bet
	}
	return out, nil
}

// PlaceParlay segue o mesmo fluxo com stake único sobre as pernas combinadas.
func (s *Service) PlaceParlay(ctx context.Context, req txbuilder.ParlayRequest) (*Outcome, error) {
	out, log := s.start(req.Sender)
	if req.Currency == "" {
		req.Currency = betmath.CurrencySUI
	}

	tx, err := s.builder.BuildParlay(ctx, req)
	if err != nil {
		return s.abort(out, log, err)
	}
	conf, err := s.submit(ctx, out, log, tx)
	if err != nil {
		return out, err
	}

	legs := make([]dto.ParlayLeg, len(req.Legs))
	for i, l := range req.Legs {
		legs[i] = dto.ParlayLeg{EventID: l.EventID, MarketID: l.MarketID, Prediction: l.Prediction, Odds: l.Odds}
	}
	res, err := s.mirror.MirrorParlay(ctx, dto.PlaceParlayRequest{
		WalletAddress: req.Sender,
		TotalStake:    betmath.FromUnits(tx.Summary.StakeUnits),
		FeeCurrency:   strings.ToUpper(string(req.Currency)),
		TxHash:        conf.Digest,
		OnChainBetID:  conf.BetObjectID,
		Legs:          legs,
	})
	s.finish(out, log, res, err)
	if res != nil {
		out.Parlay = res.Parlay
	}
	return out, nil
}

// PlaceBetWithRetry refaz build e envio quando a chain rejeita a moeda por
// versão desatualizada (gasto concorrente da mesma carteira).
func (s *Service) PlaceBetWithRetry(ctx context.Context, in BetInput, attempts int) (*Outcome, error) {
	return s.withRetry(attempts, func() (*Outcome, error) { return s.PlaceBet(ctx, in) })
}

// PlaceParlayWithRetry é o PlaceBetWithRetry das combinadas.
func (s *Service) PlaceParlayWithRetry(ctx context.Context, req txbuilder.ParlayRequest, attempts int) (*Outcome, error) {
	return s.withRetry(attempts, func() (*Outcome, error) { return s.PlaceParlay(ctx, req) })
}

func (s *Service) withRetry(attempts int, place func() (*Outcome, error)) (*Outcome, error) {
	if attempts <= 0 {
		attempts = 1
	}
	var (
		out *Outcome
		err error
	)
	for i := 0; i < attempts; i++ {
		out, err = place()
		if err == nil || !confirm.Retryable(err) {
			return out, err
		}
		s.log.Warn("stale coin object, rebuilding",
			zap.String("attempt_id", out.AttemptID), zap.Int("try", i+1), zap.Error(err))
	}
	return out, err
}

func (s *Service) start(wallet string) (*Outcome, *zap.Logger) {
	out := &Outcome{AttemptID: uuid.NewString()}
	out.move(StateBuilding)
	return out, logger.Attempt(s.log, out.AttemptID, wallet)
}

func (s *Service) abort(out *Outcome, log *zap.Logger, err error) (*Outcome, error) {
	out.move(StateAborted)
	metrics.Placements.WithLabelValues(string(StateAborted)).Inc()
	log.Warn("placement aborted", zap.String("kind", string(confirm.Classify(err))), zap.Error(err))
	return out, err
}

// submit cobre signed → submitted → confirmed-on-chain.
func (s *Service) submit(ctx context.Context, out *Outcome, log *zap.Logger, tx *txbuilder.Transaction) (*confirm.Confirmation, error) {
	conf, err := s.submitter.Submit(ctx, tx)
	var onChain *confirm.OnChainError
	switch {
	case errors.As(err, &onChain):
		out.move(StateSigned)
		out.move(StateSubmitted)
		out.Digest = onChain.Digest
		out.move(StateFailedOnChain)
		metrics.Placements.WithLabelValues(string(StateFailedOnChain)).Inc()
		log.Warn("bet failed on-chain", zap.String("digest", onChain.Digest), zap.String("error", onChain.Message))
		return nil, err
	case errors.Is(err, confirm.ErrNoDigest):
		out.move(StateSigned)
		_, err = s.abort(out, log, err)
		return nil, err
	case errors.Is(err, confirm.ErrConfirmationGap) && conf != nil:
		log.Warn("bet object not linked", zap.String("digest", conf.Digest), zap.Error(err))
		out.Warning = "bet placed; on-chain object id not confirmed yet"
	case err != nil:
		_, err = s.abort(out, log, err)
		return nil, err
	}

	out.move(StateSigned)
	out.move(StateSubmitted)
	out.move(StateConfirmed)
	out.Digest = conf.Digest
	out.BetObjectID = conf.BetObjectID
	log.Info("bet confirmed on-chain", zap.String("digest", conf.Digest), zap.Stringp("bet_object_id", conf.BetObjectID))
	return conf, nil
}

// finish aplica a política do espelho: qualquer falha aqui é aviso, não erro.
func (s *Service) finish(out *Outcome, log *zap.Logger, res *MirrorResult, err error) {
	switch {
	case err != nil:
		out.move(StateMirrorFailed)
		out.SyncPending = true
		out.Warning = mirrorPendingWarning
		log.Error("mirror write failed", zap.String("digest", out.Digest), zap.Error(fmt.Errorf("%w: %v", confirm.ErrMirror, err)))
	case res.SyncPending:
		out.move(StateMirrorFailed)
		out.SyncPending = true
		out.Warning = res.Warning
		if out.Warning == "" {
			out.Warning = mirrorPendingWarning
		}
		log.Warn("mirror deferred by bet-service", zap.String("digest", out.Digest))
	default:
		out.move(StateMirrored)
		log.Info("bet mirrored", zap.String("digest", out.Digest))
	}
	metrics.Placements.WithLabelValues(string(out.State)).Inc()
}
