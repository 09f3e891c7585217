package reconciler

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/radieske/suibets-platform/internal/sui/rpc"
	"github.com/radieske/suibets-platform/pkg/betmath"
)

// ChainBet é o objeto Bet lido da chain, com os campos que o espelho precisa.
// Sem o campo tx_digest no struct Move, TxDigest é o previousTransaction do
// objeto, que deixa de ser o digest de criação quando o contrato liquida a
// aposta; CreationDigest diz se o digest veio do próprio objeto.
type ChainBet struct {
	ObjectID       string
	TxDigest       string
	CreationDigest bool
	EventID        string
	MarketID       string
	Prediction     string
	StakeUnits     uint64
	OddsBps        uint64
	Currency       betmath.Currency
}

// IsParlay: apostas combinadas usam o market sintético "parlay".
func (b ChainBet) IsParlay() bool { return b.MarketID == "parlay" }

// nomes aceitos para cada campo do struct Move
var (
	fieldEvent      = []string{"event_id"}
	fieldMarket     = []string{"market_id"}
	fieldPrediction = []string{"prediction"}
	fieldStake      = []string{"stake", "stake_amount", "amount"}
	fieldOdds       = []string{"odds", "odds_bps"}
	fieldDigest     = []string{"tx_digest"}
)

// ParseChainBet extrai os campos do conteúdo Move. vector<u8> chega como
// string ou array de números; u64 chega como string decimal.
func ParseChainBet(obj rpc.ObjectData, tokenCoinType string) (ChainBet, error) {
	if obj.Content == nil || len(obj.Content.Fields) == 0 {
		return ChainBet{}, fmt.Errorf("object %s has no move content", obj.ObjectID)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(obj.Content.Fields, &fields); err != nil {
		return ChainBet{}, fmt.Errorf("object %s fields: %w", obj.ObjectID, err)
	}

	b := ChainBet{ObjectID: obj.ObjectID, TxDigest: obj.PreviousTransaction, Currency: betmath.CurrencySUI}
	var err error
	if b.EventID, err = bytesField(fields, fieldEvent); err != nil {
		return ChainBet{}, fmt.Errorf("object %s: %w", obj.ObjectID, err)
	}
	if b.MarketID, err = bytesField(fields, fieldMarket); err != nil {
		return ChainBet{}, fmt.Errorf("object %s: %w", obj.ObjectID, err)
	}
	if b.Prediction, err = bytesField(fields, fieldPrediction); err != nil {
		return ChainBet{}, fmt.Errorf("object %s: %w", obj.ObjectID, err)
	}
	if b.StakeUnits, err = u64Field(fields, fieldStake); err != nil {
		return ChainBet{}, fmt.Errorf("object %s: %w", obj.ObjectID, err)
	}
	if b.OddsBps, err = u64Field(fields, fieldOdds); err != nil {
		return ChainBet{}, fmt.Errorf("object %s: %w", obj.ObjectID, err)
	}
	if d, err := bytesField(fields, fieldDigest); err == nil && d != "" {
		b.TxDigest, b.CreationDigest = d, true
	}
	if tokenCoinType != "" && isTokenBet(obj.Type, tokenCoinType) {
		b.Currency = betmath.CurrencySBETS
	}
	if b.TxDigest == "" {
		return ChainBet{}, fmt.Errorf("object %s: no transaction digest", obj.ObjectID)
	}
	return b, nil
}

func isTokenBet(objType, tokenCoinType string) bool {
	return strings.HasSuffix(objType, "<"+tokenCoinType+">")
}

func lookup(fields map[string]json.RawMessage, names []string) (json.RawMessage, string, bool) {
	for _, n := range names {
		if raw, ok := fields[n]; ok {
			return raw, n, true
		}
	}
	return nil, names[0], false
}

func bytesField(fields map[string]json.RawMessage, names []string) (string, error) {
	raw, name, ok := lookup(fields, names)
	if !ok {
		return "", fmt.Errorf("missing field %s", name)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var nums []uint8
	if err := json.Unmarshal(raw, &nums); err != nil {
		return "", fmt.Errorf("field %s: expected string or byte array", name)
	}
	return string(nums), nil
}

func u64Field(fields map[string]json.RawMessage, names []string) (uint64, error) {
	raw, name, ok := lookup(fields, names)
	if !ok {
		return 0, fmt.Errorf("missing field %s", name)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("field %s: %w", name, err)
		}
		return v, nil
	}
	var v uint64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("field %s: expected u64", name)
	}
	return v, nil
}
