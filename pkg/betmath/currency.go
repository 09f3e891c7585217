package betmath

import (
	"errors"
	"fmt"
	"strings"
)

// Currency seleciona a moeda usada para financiar a aposta.
type Currency string

const (
	CurrencySUI   Currency = "SUI"   // nativa, também paga gas
	CurrencySBETS Currency = "SBETS" // token da plataforma
)

var ErrUnsupportedCurrency = errors.New("unsupported currency")

// ParseCurrency aceita o seletor sem diferenciar maiúsculas.
func ParseCurrency(s string) (Currency, error) {
	switch Currency(strings.ToUpper(strings.TrimSpace(s))) {
	case CurrencySUI:
		return CurrencySUI, nil
	case CurrencySBETS:
		return CurrencySBETS, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnsupportedCurrency, s)
}

func (c Currency) Native() bool { return c == CurrencySUI }
