package dto

import "time"

type BetResponse struct {
	ID              int64      `json:"id"`
	WalletAddress   string     `json:"walletAddress"`
	EventID         string     `json:"eventId"`
	MarketID        string     `json:"marketId"`
	OutcomeID       string     `json:"outcomeId"`
	Prediction      string     `json:"prediction"`
	BetAmount       float64    `json:"betAmount"`
	Odds            float64    `json:"odds"`
	PotentialPayout float64    `json:"potentialPayout"`
	FeeCurrency     string     `json:"feeCurrency"`
	Status          string     `json:"status"`
	TxHash          string     `json:"txHash"`
	OnChainBetID    *string    `json:"onChainBetId"`
	PlacedAt        time.Time  `json:"placedAt"`
	SettledAt       *time.Time `json:"settledAt,omitempty"`
}

type LegResponse struct {
	EventID    string  `json:"eventId"`
	MarketID   string  `json:"marketId"`
	OutcomeID  string  `json:"outcomeId"`
	Prediction string  `json:"prediction"`
	Odds       float64 `json:"odds"`
}

type ParlayResponse struct {
	ID              int64         `json:"id"`
	WalletAddress   string        `json:"walletAddress"`
	TotalStake      float64       `json:"totalStake"`
	CombinedOdds    float64       `json:"combinedOdds"`
	PotentialPayout float64       `json:"potentialPayout"`
	FeeCurrency     string        `json:"feeCurrency"`
	Status          string        `json:"status"`
	TxHash          string        `json:"txHash"`
	OnChainBetID    *string       `json:"onChainBetId"`
	PlacedAt        time.Time     `json:"placedAt"`
	SettledAt       *time.Time    `json:"settledAt,omitempty"`
	Legs            []LegResponse `json:"legs"`
}

// WalletHistoryResponse é o que GET /bets?wallet= devolve (e o que fica no cache).
type WalletHistoryResponse struct {
	WalletAddress string           `json:"walletAddress"`
	Bets          []BetResponse    `json:"bets"`
	Parlays       []ParlayResponse `json:"parlays"`
}

// SyncPendingResponse: a aposta está on-chain mas o espelho não foi gravado.
// Não é erro; o txHash é a prova da aposta.
type SyncPendingResponse struct {
	SyncPending bool   `json:"syncPending"`
	TxHash      string `json:"txHash"`
	Warning     string `json:"warning"`
}

type ReconcileResponse struct {
	WalletAddress string `json:"walletAddress"`
	OnChain       int    `json:"onChain"`
	Mirrored      int    `json:"mirrored"`
	Restored      int    `json:"restored"`
	Mismatches    int    `json:"mismatches"`
	Skipped       int    `json:"skipped"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
