// Package sui descreve a configuração de rede e de contrato usada pelo builder,
// pelo confirmer e pelo reconciler. É sempre passada explicitamente.
package sui

import (
	"errors"
	"fmt"
	"strings"
)

type Network string

const (
	Mainnet  Network = "mainnet"
	Testnet  Network = "testnet"
	Devnet   Network = "devnet"
	Localnet Network = "localnet"
)

// NativeCoinType é o tipo Move da moeda nativa (usada também para gas).
const NativeCoinType = "0x2::sui::SUI"

// DefaultClockObjectID é o objeto compartilhado Clock do sistema.
const DefaultClockObjectID = "0x6"

const bettingModule = "betting"

var ErrInvalidConfig = errors.New("invalid sui config")

// Config identifica o pacote de apostas e os objetos compartilhados que toda
// chamada ao contrato referencia.
type Config struct {
	Network          Network
	RPCURL           string
	PackageID        string
	PlatformObjectID string
	ClockObjectID    string
	TokenCoinType    string // ex: "<pkg>::sbets::SBETS"
}

// DefaultRPCURL retorna o fullnode público da rede.
func DefaultRPCURL(n Network) string {
	switch n {
	case Mainnet:
		return "https://fullnode.mainnet.sui.io:443"
	case Devnet:
		return "https://fullnode.devnet.sui.io:443"
	case Localnet:
		return "http://127.0.0.1:9000"
	default:
		return "https://fullnode.testnet.sui.io:443"
	}
}

// Validate garante que os identificadores obrigatórios estão presentes.
func (c Config) Validate() error {
	var missing []string
	if c.PackageID == "" {
		missing = append(missing, "packageId")
	}
	if c.PlatformObjectID == "" {
		missing = append(missing, "platformObjectId")
	}
	if c.ClockObjectID == "" {
		missing = append(missing, "clockObjectId")
	}
	switch c.Network {
	case Mainnet, Testnet, Devnet, Localnet:
	default:
		return fmt.Errorf("%w: unknown network %q", ErrInvalidConfig, c.Network)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidConfig, strings.Join(missing, ", "))
	}
	return nil
}

// PlaceBetTarget é a função Move chamada para registrar a aposta.
func (c Config) PlaceBetTarget() string {
	return c.PackageID + "::" + bettingModule + "::place_bet"
}

// BetObjectType é o tipo do objeto Bet criado pelo contrato.
func (c Config) BetObjectType() string {
	return c.PackageID + "::" + bettingModule + "::Bet"
}

// IsBetObjectType aceita o tipo exato ou a forma genérica Bet<...>.
func (c Config) IsBetObjectType(t string) bool {
	want := c.BetObjectType()
	return t == want || strings.HasPrefix(t, want+"<")
}
