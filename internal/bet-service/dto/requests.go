package dto

import "github.com/shopspring/decimal"

// PlaceBetRequest é o corpo do POST /bets, enviado depois que a transação foi
// confirmada on-chain. betAmount e odds aceitam número ou string JSON.
type PlaceBetRequest struct {
	WalletAddress string          `json:"walletAddress"`
	EventID       string          `json:"eventId"`
	MarketID      string          `json:"marketId"`
	OutcomeID     string          `json:"outcomeId"`
	BetAmount     decimal.Decimal `json:"betAmount"`
	Odds          decimal.Decimal `json:"odds"`
	Prediction    string          `json:"prediction"`
	FeeCurrency   string          `json:"feeCurrency"` // "SUI" | "SBETS"; vazio = SUI
	TxHash        string          `json:"txHash"`
	OnChainBetID  *string         `json:"onChainBetId"`
}

type ParlayLeg struct {
	EventID    string          `json:"eventId"`
	MarketID   string          `json:"marketId"`
	OutcomeID  string          `json:"outcomeId"`
	Prediction string          `json:"prediction"`
	Odds       decimal.Decimal `json:"odds"`
}

// PlaceParlayRequest: combinedOdds é recalculado no servidor a partir das pernas.
type PlaceParlayRequest struct {
	WalletAddress string          `json:"walletAddress"`
	TotalStake    decimal.Decimal `json:"totalStake"`
	FeeCurrency   string          `json:"feeCurrency"`
	TxHash        string          `json:"txHash"`
	OnChainBetID  *string         `json:"onChainBetId"`
	Legs          []ParlayLeg     `json:"legs"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"` // won | lost | void | cashed_out
	Reason string `json:"reason,omitempty"`
}
