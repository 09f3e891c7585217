package producer

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/radieske/suibets-platform/internal/shared/kafka"
	"github.com/radieske/suibets-platform/pkg/contracts/events"
)

// KafkaPublisher publica nos tópicos bet_mirrored e bet_mirror_pending.
// A chave da mensagem é sempre o tx digest.
type KafkaPublisher struct {
	Mirrored kafka.MessageWriter
	Pending  kafka.MessageWriter
}

func NewKafkaPublisher(mirrored, pending kafka.MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{Mirrored: mirrored, Pending: pending}
}

func (p *KafkaPublisher) PublishBetMirrored(ctx context.Context, e events.BetMirrored) error {
	if e.EventUUID == "" {
		e.EventUUID = uuid.NewString()
	}
	e.TsUnixMs = time.Now().UnixMilli()
	return kafka.Publish(ctx, p.Mirrored, e.TxHash, e)
}

func (p *KafkaPublisher) PublishMirrorPending(ctx context.Context, e events.MirrorPending) error {
	if e.EventUUID == "" {
		e.EventUUID = uuid.NewString()
	}
	if e.Ts.IsZero() {
		e.Ts = time.Now().UTC()
	}
	return kafka.Publish(ctx, p.Pending, e.TxHash, e)
}
