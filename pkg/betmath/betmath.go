// Package betmath concentra a aritmética de ponto fixo usada entre o cliente,
// o contrato on-chain e o espelho relacional.
package betmath

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// CoinDecimals é a escala de todas as moedas aceitas (SUI e SBETS).
const CoinDecimals = 9

var (
	ErrNegativeAmount = errors.New("amount must not be negative")
	ErrAmountOverflow = errors.New("amount overflows u64")
	ErrParlayLegs     = errors.New("parlay requires at least 2 legs")
	ErrInvalidOdds    = errors.New("odds must be greater than 1")
)

var hundred = decimal.NewFromInt(100)

// ToUnits converte um valor em unidades do usuário para a menor unidade da moeda:
// round(amount × 10^9).
func ToUnits(amount decimal.Decimal) (uint64, error) {
	if amount.IsNegative() {
		return 0, ErrNegativeAmount
	}
	units := amount.Shift(CoinDecimals).Round(0).BigInt()
	if !units.IsUint64() {
		return 0, fmt.Errorf("%w: %s", ErrAmountOverflow, amount.String())
	}
	return units.Uint64(), nil
}

// FromUnits faz o caminho inverso de ToUnits.
func FromUnits(units uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(units), -CoinDecimals)
}

// OddsToBps converte odd decimal em basis points: floor(odds × 100).
func OddsToBps(odds decimal.Decimal) uint64 {
	bps := odds.Mul(hundred).Floor()
	if bps.IsNegative() {
		return 0
	}
	return uint64(bps.IntPart())
}

// BpsToOdds converte basis points de volta para odd decimal.
func BpsToOdds(bps uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(bps), -2)
}

// ParlayOdds retorna o produto das odds das pernas.
func ParlayOdds(legs []decimal.Decimal) (decimal.Decimal, error) {
	if len(legs) < 2 {
		return decimal.Zero, ErrParlayLegs
	}
	combined := decimal.NewFromInt(1)
	for i, o := range legs {
		if o.LessThanOrEqual(decimal.NewFromInt(1)) {
			return decimal.Zero, fmt.Errorf("leg %d: %w", i, ErrInvalidOdds)
		}
		combined = combined.Mul(o)
	}
	return combined, nil
}

// Payout retorna stake × odds com a escala da moeda.
func Payout(stake, odds decimal.Decimal) decimal.Decimal {
	return stake.Mul(odds).Round(CoinDecimals)
}
