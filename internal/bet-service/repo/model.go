package repo

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPending   = "pending"
	StatusWon       = "won"
	StatusLost      = "lost"
	StatusVoid      = "void"
	StatusCashedOut = "cashed_out"
)

// Bet é a linha espelho de uma aposta simples; TxHash é a chave natural.
type Bet struct {
	ID              int64
	WalletAddress   string
	EventID         string
	MarketID        string
	OutcomeID       string
	Prediction      string
	BetAmount       decimal.Decimal
	Odds            decimal.Decimal
	PotentialPayout decimal.Decimal
	FeeCurrency     string
	Status          string
	TxHash          string
	OnChainBetID    *string
	PlacedAt        time.Time
	SettledAt       *time.Time
}

type Leg struct {
	ID         int64
	ParlayID   int64
	Index      int
	EventID    string
	MarketID   string
	OutcomeID  string
	Prediction string
	Odds       decimal.Decimal
}

type Parlay struct {
	ID              int64
	WalletAddress   string
	TotalStake      decimal.Decimal
	CombinedOdds    decimal.Decimal
	PotentialPayout decimal.Decimal
	FeeCurrency     string
	Status          string
	TxHash          string
	OnChainBetID    *string
	PlacedAt        time.Time
	SettledAt       *time.Time
	Legs            []Leg
}

// MirrorKeys são as chaves de dedup já espelhadas de uma carteira: digests e
// ids de objeto on-chain.
type MirrorKeys struct {
	TxHashes  map[string]struct{}
	ObjectIDs map[string]struct{}
}

func NewMirrorKeys() MirrorKeys {
	return MirrorKeys{TxHashes: map[string]struct{}{}, ObjectIDs: map[string]struct{}{}}
}

// Has é verdadeiro se o digest ou o objeto já têm linha no espelho.
func (k MirrorKeys) Has(txHash, objectID string) bool {
	if _, ok := k.TxHashes[txHash]; ok && txHash != "" {
		return true
	}
	_, ok := k.ObjectIDs[objectID]
	return ok && objectID != ""
}
