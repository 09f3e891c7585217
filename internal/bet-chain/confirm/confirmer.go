// Package confirm envia a transação pela carteira e extrai o id do objeto Bet
// criado.
package confirm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/suibets-platform/internal/bet-chain/txbuilder"
	"github.com/radieske/suibets-platform/internal/shared/metrics"
	"github.com/radieske/suibets-platform/internal/sui"
	"github.com/radieske/suibets-platform/internal/sui/rpc"
)

type ExecOptions struct {
	ShowEffects       bool `json:"showEffects"`
	ShowObjectChanges bool `json:"showObjectChanges"`
	ShowEvents        bool `json:"showEvents"`
}

// ExecResult é o que a carteira devolve depois de assinar e executar.
type ExecResult struct {
	Digest        string             `json:"digest"`
	Effects       *rpc.Effects       `json:"effects,omitempty"`
	ObjectChanges []rpc.ObjectChange `json:"objectChanges,omitempty"`
}

// Signer é a capacidade de assinatura da carteira do usuário. A chave privada
// nunca passa por aqui.
type Signer interface {
	SignAndExecute(ctx context.Context, tx *txbuilder.Transaction, opts ExecOptions) (*ExecResult, error)
}

type ChainReader interface {
	WaitForTransaction(ctx context.Context, digest string, opts rpc.TransactionBlockOptions) (*rpc.TransactionBlock, error)
}

// Confirmation: BetObjectID nil significa aposta executada mas ainda não
// vinculada ao objeto on-chain.
type Confirmation struct {
	Digest      string
	BetObjectID *string
}

type Confirmer struct {
	signer  Signer
	chain   ChainReader
	cfg     sui.Config
	timeout time.Duration
	log     *zap.Logger
}

func New(signer Signer, chain ChainReader, cfg sui.Config, timeout time.Duration, log *zap.Logger) *Confirmer {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Confirmer{signer: signer, chain: chain, cfg: cfg, timeout: timeout, log: log}
}

// Submit assina, executa e confirma. Em ErrConfirmationGap a Confirmation
// retornada continua válida (digest preenchido).
func (c *Confirmer) Submit(ctx context.Context, tx *txbuilder.Transaction) (*Confirmation, error) {
	res, err := c.signer.SignAndExecute(ctx, tx, ExecOptions{ShowEffects: true, ShowObjectChanges: true, ShowEvents: true})
	if err != nil {
		return nil, signingError(err)
	}
	if res == nil || res.Digest == "" {
		return nil, ErrNoDigest
	}
	log := c.log.With(zap.String("digest", res.Digest))

	if res.Effects != nil && res.Effects.Status.Status == "failure" {
		log.Warn("transaction failed on-chain", zap.String("error", res.Effects.Status.Error))
		return nil, &OnChainError{Digest: res.Digest, Message: res.Effects.Status.Error}
	}

	conf := &Confirmation{Digest: res.Digest}
	if id := c.findBetObject(res.ObjectChanges); id != "" {
		conf.BetObjectID = &id
		return conf, nil
	}

	// fallback: a carteira nem sempre devolve objectChanges
	tb, err := c.wait(ctx, res.Digest)
	if err != nil {
		metrics.ConfirmFallbacks.WithLabelValues("error").Inc()
		log.Warn("bet object lookup failed", zap.Error(err))
		return conf, fmt.Errorf("%w: %w", ErrConfirmationGap, err)
	}
	if tb.Effects != nil && tb.Effects.Status.Status == "failure" {
		return nil, &OnChainError{Digest: res.Digest, Message: tb.Effects.Status.Error}
	}
	if id := c.findBetObject(tb.ObjectChanges); id != "" {
		metrics.ConfirmFallbacks.WithLabelValues("found").Inc()
		conf.BetObjectID = &id
		return conf, nil
	}
	metrics.ConfirmFallbacks.WithLabelValues("unlinked").Inc()
	log.Info("bet placed without linked object id")
	return conf, nil
}

func (c *Confirmer) wait(ctx context.Context, digest string) (*rpc.TransactionBlock, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	tb, err := c.chain.WaitForTransaction(ctx, digest, rpc.TransactionBlockOptions{ShowEffects: true, ShowObjectChanges: true})
	if err != nil {
		return nil, err
	}
	if tb == nil {
		return nil, errors.New("empty transaction block")
	}
	return tb, nil
}

func (c *Confirmer) findBetObject(changes []rpc.ObjectChange) string {
	for _, ch := range changes {
		if ch.Type == "created" && c.cfg.IsBetObjectType(ch.ObjectType) {
			return ch.ObjectID
		}
	}
	return ""
}
