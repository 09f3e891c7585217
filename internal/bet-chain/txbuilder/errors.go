package txbuilder

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/radieske/suibets-platform/pkg/betmath"
)

// ErrValidation é a raiz de todo erro detectado antes de qualquer chamada de rede
// (ou logo após a consulta de moedas). Nunca é retentado.
var ErrValidation = errors.New("validation failed")

var (
	ErrUnsupportedCurrency = fmt.Errorf("%w: %w", ErrValidation, betmath.ErrUnsupportedCurrency)
	ErrStakeOutOfBounds    = fmt.Errorf("%w: stake out of bounds", ErrValidation)
	ErrInvalidOdds         = fmt.Errorf("%w: odds must be greater than 1", ErrValidation)
	ErrMissingField        = fmt.Errorf("%w: missing required field", ErrValidation)
	ErrCoinRequired        = fmt.Errorf("%w: coin object id is required for token bets", ErrValidation)
	ErrCoinNotFound        = fmt.Errorf("%w: coin object not owned by sender", ErrValidation)
	ErrParlayLegs          = fmt.Errorf("%w: %w", ErrValidation, betmath.ErrParlayLegs)
	ErrInsufficientBalance = fmt.Errorf("%w: insufficient balance", ErrValidation)
)

// InsufficientBalanceError informa o valor exigido (stake + margem de gas) e o
// maior saldo disponível, ambos em unidades do usuário.
type InsufficientBalanceError struct {
	Currency  betmath.Currency
	CoinID    string
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	msg := fmt.Sprintf("insufficient balance: required %s %s, available %s %s",
		e.Required.String(), e.Currency, e.Available.String(), e.Currency)
	if e.CoinID != "" {
		msg += " (coin " + e.CoinID + ")"
	}
	return msg
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }
