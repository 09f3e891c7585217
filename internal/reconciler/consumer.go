package reconciler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/suibets-platform/internal/bet-service/dto"
	"github.com/radieske/suibets-platform/internal/bet-service/mirror"
	"github.com/radieske/suibets-platform/internal/shared/kafka"
	"github.com/radieske/suibets-platform/pkg/contracts/events"
)

// MirrorWriter é o mirror.Writer visto pelo consumer.
type MirrorWriter interface {
	WriteBet(ctx context.Context, req dto.PlaceBetRequest) (*mirror.Result, error)
	WriteParlay(ctx context.Context, req dto.PlaceParlayRequest) (*mirror.Result, error)
}

var (
	errUnknownKind = errors.New("unknown mirror kind")
	errNoDLQ       = errors.New("no dlq configured")

	// ErrUndelivered: a escrita falhou e a mensagem não foi para a DLQ. Run para
	// sem commitar o offset, e a mensagem volta quando o worker reiniciar.
	ErrUndelivered = errors.New("mirror pending not applied nor dead-lettered")
)

// PendingConsumer refaz o upsert de apostas que ficaram on-chain sem espelho.
type PendingConsumer struct {
	reader  kafka.MessageReader
	dlq     kafka.MessageWriter // opcional
	writer  MirrorWriter
	log     *zap.Logger
	retries int
	backoff time.Duration
}

func NewPendingConsumer(r kafka.MessageReader, dlq kafka.MessageWriter, w MirrorWriter, log *zap.Logger) *PendingConsumer {
	return &PendingConsumer{reader: r, dlq: dlq, writer: w, log: log, retries: 3, backoff: 300 * time.Millisecond}
}

// Run consome até o ctx ser cancelado. O offset só é commitado depois que a
// mensagem foi espelhada ou enviada para a DLQ.
func (c *PendingConsumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Warn("kafka fetch", zap.Error(err))
			if !sleep(ctx, time.Second) {
				return ctx.Err()
			}
			continue
		}

		if err := c.Handle(ctx, msg); err != nil {
			return err
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.log.Warn("kafka commit", zap.Error(err))
		}
	}
}

// Handle processa uma mensagem bet_mirror_pending. Retorna erro quando o ctx é
// cancelado no meio dos retries ou quando uma falha de escrita não pôde ir
// para a DLQ; nos dois casos a mensagem não é commitada. Mensagens que nunca
// vão ser aceitas (envelope ou payload inválido) são descartadas sem DLQ.
func (c *PendingConsumer) Handle(ctx context.Context, msg kafkago.Message) error {
	var ev events.MirrorPending
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		c.log.Error("unmarshal mirror_pending", zap.Error(err))
		if err := c.deadLetter(ctx, msg.Key, msg.Value); err != nil {
			c.log.Error("malformed mirror_pending dropped", zap.ByteString("key", msg.Key), zap.Error(err))
		}
		return nil
	}
	log := c.log.With(zap.String("tx_hash", ev.TxHash), zap.String("kind", ev.Kind))

	err, attempts := c.apply(ctx, ev), 1
	// retry simples: só falhas de escrita, erros do cliente vão direto pra DLQ
	for i := 0; err != nil && !mirror.IsClientError(err) && !errors.Is(err, errUnknownKind) && i < c.retries; i++ {
		if !sleep(ctx, time.Duration(i+1)*c.backoff) {
			return ctx.Err()
		}
		err = c.apply(ctx, ev)
		attempts++
	}
	if err != nil {
		log.Error("mirror pending failed", zap.Error(err))
		ev.Attempts += attempts
		ev.Reason = err.Error()
		b, _ := json.Marshal(ev)
		dlqErr := c.deadLetter(ctx, []byte(ev.TxHash), b)
		switch {
		case dlqErr == nil:
		case mirror.IsClientError(err) || errors.Is(err, errUnknownKind):
			log.Error("rejected mirror_pending dropped", zap.Error(dlqErr))
		default:
			return fmt.Errorf("%w: tx %s: %v (%v)", ErrUndelivered, ev.TxHash, err, dlqErr)
		}
		return nil
	}
	log.Info("mirror pending applied")
	return nil
}

func (c *PendingConsumer) apply(ctx context.Context, ev events.MirrorPending) error {
	switch ev.Kind {
	case events.KindBet, "":
		var req dto.PlaceBetRequest
		if err := json.Unmarshal(ev.Payload, &req); err != nil {
			return fmt.Errorf("%w: %v", mirror.ErrInvalid, err)
		}
		_, err := c.writer.WriteBet(ctx, req)
		return err
	case events.KindParlay:
		var req dto.PlaceParlayRequest
		if err := json.Unmarshal(ev.Payload, &req); err != nil {
			return fmt.Errorf("%w: %v", mirror.ErrInvalid, err)
		}
		_, err := c.writer.WriteParlay(ctx, req)
		return err
	default:
		return fmt.Errorf("%w: %q", errUnknownKind, ev.Kind)
	}
}

func (c *PendingConsumer) deadLetter(ctx context.Context, key, value []byte) error {
	if c.dlq == nil {
		return errNoDLQ
	}
	if err := kafka.WriteJSON(ctx, c.dlq, string(key), value); err != nil {
		return fmt.Errorf("dlq write: %w", err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
