package confirm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/radieske/suibets-platform/internal/bet-chain/txbuilder"
)

var (
	// ErrSigning cobre rejeição do usuário e falhas da carteira antes da submissão.
	ErrSigning = errors.New("wallet signing failed")
	// ErrNoDigest: a carteira respondeu sem digest; nada pode ser espelhado.
	ErrNoDigest = errors.New("no transaction digest returned")
	// ErrStaleObject: uma moeda de entrada foi consumida por outra transação.
	// A aposta pode ser reconstruída e reenviada.
	ErrStaleObject = errors.New("stale object reference")
	// ErrConfirmationGap: a transação executou mas o id do objeto Bet não pôde
	// ser obtido. Não é fatal.
	ErrConfirmationGap = errors.New("bet object id not confirmed")
	// ErrMirror: a escrita no espelho falhou depois da confirmação on-chain.
	ErrMirror = errors.New("mirror write failed")
)

// OnChainError carrega a mensagem de falha dos effects sem alteração.
type OnChainError struct {
	Digest  string
	Message string
}

func (e *OnChainError) Error() string {
	return fmt.Sprintf("transaction %s failed on-chain: %s", e.Digest, e.Message)
}

// Is permite errors.Is(err, ErrStaleObject) quando a falha on-chain é de versão.
func (e *OnChainError) Is(target error) bool {
	return target == ErrStaleObject && isStaleMessage(e.Message)
}

// Retryable indica que reconstruir a transação com moedas atuais pode resolver.
func (e *OnChainError) Retryable() bool { return isStaleMessage(e.Message) }

var staleMarkers = []string{
	"not available for consumption",
	"stale",
	"objectversionunavailableforconsumption",
	"object version mismatch",
}

func isStaleMessage(msg string) bool {
	m := strings.ToLower(msg)
	for _, s := range staleMarkers {
		if strings.Contains(m, s) {
			return true
		}
	}
	return false
}

// signingError preserva a causa e marca mensagens de objeto obsoleto.
func signingError(err error) error {
	if isStaleMessage(err.Error()) {
		return fmt.Errorf("%w: %w: %w", ErrSigning, ErrStaleObject, err)
	}
	return fmt.Errorf("%w: %w", ErrSigning, err)
}

type Kind string

const (
	KindNone            Kind = ""
	KindValidation      Kind = "validation"
	KindSigning         Kind = "signing"
	KindSubmission      Kind = "submission"
	KindOnChain         Kind = "on-chain"
	KindStaleObject     Kind = "stale-object"
	KindConfirmationGap Kind = "confirmation-gap"
	KindMirror          Kind = "mirror"
	KindUnknown         Kind = "unknown"
)

// Classify mapeia qualquer erro do fluxo de aposta para uma categoria.
func Classify(err error) Kind {
	var onChain *OnChainError
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrStaleObject):
		return KindStaleObject
	case errors.Is(err, txbuilder.ErrValidation):
		return KindValidation
	case errors.As(err, &onChain):
		return KindOnChain
	case errors.Is(err, ErrSigning):
		return KindSigning
	case errors.Is(err, ErrNoDigest):
		return KindSubmission
	case errors.Is(err, ErrConfirmationGap):
		return KindConfirmationGap
	case errors.Is(err, ErrMirror):
		return KindMirror
	}
	return KindUnknown
}

// Retryable: só objetos obsoletos justificam reconstruir e reenviar.
func Retryable(err error) bool { return Classify(err) == KindStaleObject }
