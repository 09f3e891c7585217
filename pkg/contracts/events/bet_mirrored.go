package events

// Evento publicado no tópico "bet_mirrored" após a linha espelho ser criada.
type BetMirrored struct {
	EventUUID    string  `json:"event_uuid"`
	BetID        int64   `json:"bet_id"`
	Kind         string  `json:"kind"` // "bet" | "parlay"
	Wallet       string  `json:"wallet"`
	EventID      string  `json:"event_id"`
	BetAmount    string  `json:"bet_amount"` // decimal em unidades do usuário
	Odds         float64 `json:"odds"`
	FeeCurrency  string  `json:"fee_currency"`
	TxHash       string  `json:"tx_hash"`
	OnChainBetID string  `json:"on_chain_bet_id,omitempty"`
	TsUnixMs     int64   `json:"ts_unix_ms"`
}
