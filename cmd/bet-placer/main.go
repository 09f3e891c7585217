// bet-placer faz uma aposta pela linha de comando: monta a transação, pede a
// assinatura à ponte da carteira, confirma on-chain e grava o espelho.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/suibets-platform/internal/bet-chain/confirm"
	"github.com/radieske/suibets-platform/internal/bet-chain/placement"
	"github.com/radieske/suibets-platform/internal/bet-chain/txbuilder"
	"github.com/radieske/suibets-platform/internal/bet-chain/walletbridge"
	"github.com/radieske/suibets-platform/internal/shared/config"
	"github.com/radieske/suibets-platform/internal/shared/logger"
	"github.com/radieske/suibets-platform/internal/sui/rpc"
	"github.com/radieske/suibets-platform/pkg/betmath"
)

func main() {
	var (
		wallet     = flag.String("wallet", "", "endereço do apostador")
		event      = flag.String("event", "", "id do evento")
		market     = flag.String("market", "", "id do mercado")
		prediction = flag.String("prediction", "", "palpite")
		outcome    = flag.String("outcome", "", "id do outcome (só no espelho)")
		stake      = flag.String("stake", "", "stake em unidades do usuário, ex: 2.5")
		odds       = flag.String("odds", "", "odd decimal, ex: 3.25")
		currency   = flag.String("currency", "SUI", "SUI | SBETS")
		coin       = flag.String("coin", "", "coin object id (obrigatório para SBETS)")
		blob       = flag.String("blob", "", "referência off-chain opcional")
		legs       = flag.String("legs", "", "parlay: event:market:prediction:odds separados por vírgula")
		retries    = flag.Int("retries", 3, "tentativas em caso de stale object")
	)
	flag.Parse()

	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "bet-placer"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	chain := cfg.Chain()
	if err := chain.Validate(); err != nil {
		log.Fatal("sui config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	suiClient := rpc.NewClient(chain.RPCURL, log, rpc.Options{RPS: cfg.SuiRPCRPS, WaitTimeout: cfg.SuiConfirmTimeout})
	builder := txbuilder.New(chain, suiClient, txbuilder.Limits{
		SUI:       txbuilder.Bounds{Min: cfg.SUIMinStake, Max: cfg.SUIMaxStake},
		SBETS:     txbuilder.Bounds{Min: cfg.SBETSMinStake, Max: cfg.SBETSMaxStake},
		GasMargin: cfg.GasMarginSUI,
		GasBudget: cfg.GasBudgetMist,
	})
	confirmer := confirm.New(walletbridge.New(cfg.WalletBridgeURL, cfg.WalletBridgeTimeout), suiClient, chain, cfg.SuiConfirmTimeout, log)
	svc := placement.New(builder, confirmer, placement.NewMirrorClient(cfg.BetServiceURL), log)

	stakeDec, err := decimal.NewFromString(*stake)
	if err != nil {
		fatalf("invalid -stake %q", *stake)
	}

	var out *placement.Outcome
	if *legs != "" {
		parsed, err := parseLegs(*legs)
		if err != nil {
			fatalf("%v", err)
		}
		out, err = svc.PlaceParlayWithRetry(ctx, txbuilder.ParlayRequest{
			Sender:       *wallet,
			Legs:         parsed,
			Stake:        stakeDec,
			Currency:     betmath.Currency(*currency),
			CoinObjectID: *coin,
		}, *retries)
		report(out, err)
		return
	}

	oddsDec, err := decimal.NewFromString(*odds)
	if err != nil {
		fatalf("invalid -odds %q", *odds)
	}
	out, err = svc.PlaceBetWithRetry(ctx, placement.BetInput{
		Bet: txbuilder.BetRequest{
			Sender:       *wallet,
			EventID:      *event,
			MarketID:     *market,
			Prediction:   *prediction,
			Stake:        stakeDec,
			Odds:         oddsDec,
			Currency:     betmath.Currency(*currency),
			BlobID:       *blob,
			CoinObjectID: *coin,
		},
		OutcomeID: *outcome,
	}, *retries)
	report(out, err)
}

func parseLegs(s string) ([]txbuilder.Leg, error) {
	var out []txbuilder.Leg
	for _, raw := range strings.Split(s, ",") {
		parts := strings.Split(strings.TrimSpace(raw), ":")
		if len(parts) != 4 {
			return nil, fmt.Errorf("invalid leg %q: want event:market:prediction:odds", raw)
		}
		o, err := decimal.NewFromString(parts[3])
		if err != nil {
			return nil, fmt.Errorf("invalid leg odds %q", parts[3])
		}
		out = append(out, txbuilder.Leg{EventID: parts[0], MarketID: parts[1], Prediction: parts[2], Odds: o})
	}
	return out, nil
}

// report imprime o Outcome em JSON; sai com 1 só quando a aposta não foi feita.
func report(out *placement.Outcome, err error) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if out != nil {
		_ = enc.Encode(out)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "bet not placed (%s): %v\n", confirm.Classify(err), err)
		os.Exit(1)
	}
	if out.SyncPending {
		fmt.Fprintf(os.Stderr, "warning: %s (tx %s)\n", out.Warning, out.Digest)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(2)
}
