package events

import (
	"encoding/json"
	"time"
)

const (
	KindBet    = "bet"
	KindParlay = "parlay"
)

// MirrorPending é emitido quando a transação já está on-chain mas a escrita
// no Postgres falhou. Payload carrega o corpo original da requisição (bet ou
// parlay) para que o bet-reconciler refaça o upsert.
type MirrorPending struct {
	EventUUID string          `json:"event_uuid"`
	Kind      string          `json:"kind"`
	Wallet    string          `json:"wallet"`
	TxHash    string          `json:"tx_hash"`
	Reason    string          `json:"reason,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	Attempts  int             `json:"attempts"`
	Ts        time.Time       `json:"ts"`
}
