package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/suibets-platform/internal/sui"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SERVICE_NAME", "bet-service")

	cfg := Load()
	assert.Equal(t, "8083", cfg.HTTPPort)
	assert.Equal(t, "9099", cfg.MetricsPort)
	assert.Equal(t, "bet_mirrored", cfg.TopicBetMirrored)
	assert.Equal(t, "bet_mirror_pending", cfg.TopicMirrorPending)
	assert.Equal(t, uint64(50_000_000), cfg.GasBudgetMist)
	assert.Equal(t, "0.03", cfg.GasMarginSUI.String())
	assert.Equal(t, sui.DefaultRPCURL(sui.Testnet), cfg.SuiRPCURL)
	assert.Equal(t, 10*time.Minute, cfg.ReconcileInterval)
}

func TestLoad_ReconcilerPorts(t *testing.T) {
	t.Setenv("SERVICE_NAME", "bet-reconciler")

	cfg := Load()
	assert.Empty(t, cfg.HTTPPort)
	assert.Equal(t, "9100", cfg.MetricsPort)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("GAS_MARGIN_SUI", "abc")
	t.Setenv("RECONCILE_INTERVAL", "soon")
	t.Setenv("RECONCILE_CONCURRENCY", "x")

	cfg := Load()
	assert.Equal(t, "0.03", cfg.GasMarginSUI.String())
	assert.Equal(t, 10*time.Minute, cfg.ReconcileInterval)
	assert.Equal(t, 4, cfg.ReconcileConcurrency)
}

func TestChain(t *testing.T) {
	t.Setenv("SUI_NETWORK", "mainnet")
	t.Setenv("SUI_PACKAGE_ID", "0xpkg")
	t.Setenv("SUI_PLATFORM_OBJECT_ID", "0xplatform")
	t.Setenv("SBETS_COIN_TYPE", "0xpkg::sbets::SBETS")

	chain := Load().Chain()
	require.NoError(t, chain.Validate())
	assert.Equal(t, sui.Mainnet, chain.Network)
	assert.Equal(t, "https://fullnode.mainnet.sui.io:443", chain.RPCURL)
	assert.Equal(t, "0x6", chain.ClockObjectID)
	assert.Equal(t, "0xpkg::sbets::SBETS", chain.TokenCoinType)
}
