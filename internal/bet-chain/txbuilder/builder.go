// Package txbuilder monta, sem efeitos colaterais, a transação que trava o stake
// do apostador no contrato de apostas.
package txbuilder

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/radieske/suibets-platform/internal/sui"
	"github.com/radieske/suibets-platform/internal/sui/rpc"
	"github.com/radieske/suibets-platform/pkg/betmath"
)

// CoinReader é a única consulta de rede que o builder faz.
type CoinReader interface {
	GetCoins(ctx context.Context, owner, coinType string) ([]rpc.Coin, error)
}

// Bounds limita o stake por moeda, em unidades do usuário.
type Bounds struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

type Limits struct {
	SUI       Bounds
	SBETS     Bounds
	GasMargin decimal.Decimal // SUI reservado além do stake na moeda que financia a aposta
	GasBudget uint64          // MIST; fixo, sem estimativa automática
}

func DefaultLimits() Limits {
	return Limits{
		SUI:       Bounds{Min: decimal.RequireFromString("0.05"), Max: decimal.NewFromInt(1000)},
		SBETS:     Bounds{Min: decimal.NewFromInt(100), Max: decimal.NewFromInt(10_000_000)},
		GasMargin: decimal.RequireFromString("0.03"),
		GasBudget: 50_000_000,
	}
}

func (l Limits) bounds(c betmath.Currency) Bounds {
	if c == betmath.CurrencySBETS {
		return l.SBETS
	}
	return l.SUI
}

// BetRequest descreve uma aposta simples já validada pela UI.
type BetRequest struct {
	Sender       string
	EventID      string
	MarketID     string
	Prediction   string
	Stake        decimal.Decimal // unidades do usuário
	Odds         decimal.Decimal // odd decimal
	Currency     betmath.Currency
	BlobID       string // referência opcional a conteúdo off-chain
	CoinObjectID string // obrigatório para SBETS; opcional para SUI
}

type Leg struct {
	EventID    string
	MarketID   string
	Prediction string
	Odds       decimal.Decimal
}

type ParlayRequest struct {
	Sender       string
	Legs         []Leg
	Stake        decimal.Decimal
	Currency     betmath.Currency
	CoinObjectID string
}

const (
	parlayMarketID  = "parlay"
	parlaySeparator = "|"
)

type Builder struct {
	cfg    sui.Config
	coins  CoinReader
	limits Limits
}

func New(cfg sui.Config, coins CoinReader, limits Limits) *Builder {
	return &Builder{cfg: cfg, coins: coins, limits: limits}
}

// BuildBet valida a requisição e só então consulta moedas e monta a transação.
func (b *Builder) BuildBet(ctx context.Context, req BetRequest) (*Transaction, error) {
	cur, err := betmath.ParseCurrency(string(req.Currency))
	if err != nil {
		return nil, fmt.Errorf("%w %q", ErrUnsupportedCurrency, req.Currency)
	}
	req.Currency = cur
	if err := b.validate(req); err != nil {
		return nil, err
	}
	return b.build(ctx, req)
}

// BuildParlay combina as pernas num único place_bet: ids concatenados e odds
// multiplicadas.
func (b *Builder) BuildParlay(ctx context.Context, req ParlayRequest) (*Transaction, error) {
	if len(req.Legs) < 2 {
		return nil, ErrParlayLegs
	}
	var (
		events      = make([]string, len(req.Legs))
		predictions = make([]string, len(req.Legs))
		odds        = make([]decimal.Decimal, len(req.Legs))
	)
	for i, l := range req.Legs {
		if l.EventID == "" || l.Prediction == "" {
			return nil, fmt.Errorf("%w: leg %d event/prediction", ErrMissingField, i)
		}
		if l.Odds.LessThanOrEqual(decimal.NewFromInt(1)) {
			return nil, fmt.Errorf("%w: leg %d odds %s", ErrInvalidOdds, i, l.Odds)
		}
		events[i] = l.EventID
		predictions[i] = l.Prediction
		odds[i] = l.Odds
	}
	combined, err := betmath.ParlayOdds(odds)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	single := BetRequest{
		Sender:       req.Sender,
		EventID:      strings.Join(events, parlaySeparator),
		MarketID:     parlayMarketID,
		Prediction:   strings.Join(predictions, parlaySeparator),
		Stake:        req.Stake,
		Odds:         combined,
		Currency:     req.Currency,
		CoinObjectID: req.CoinObjectID,
	}
	return b.BuildBet(ctx, single)
}

func (b *Builder) validate(req BetRequest) error {
	if !req.Currency.Native() && b.cfg.TokenCoinType == "" {
		return fmt.Errorf("%w: %s coin type not configured", ErrUnsupportedCurrency, req.Currency)
	}
	switch {
	case req.Sender == "":
		return fmt.Errorf("%w: sender", ErrMissingField)
	case req.EventID == "":
		return fmt.Errorf("%w: eventId", ErrMissingField)
	case req.MarketID == "":
		return fmt.Errorf("%w: marketId", ErrMissingField)
	case req.Prediction == "":
		return fmt.Errorf("%w: prediction", ErrMissingField)
	}
	if req.Odds.LessThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: got %s", ErrInvalidOdds, req.Odds)
	}
	bounds := b.limits.bounds(req.Currency)
	if req.Stake.LessThan(bounds.Min) || req.Stake.GreaterThan(bounds.Max) {
		return fmt.Errorf("%w: %s %s outside [%s, %s]",
			ErrStakeOutOfBounds, req.Stake, req.Currency, bounds.Min, bounds.Max)
	}
	if !req.Currency.Native() && req.CoinObjectID == "" {
		return ErrCoinRequired
	}
	return nil
}

func (b *Builder) coinType(c betmath.Currency) string {
	if c.Native() {
		return sui.NativeCoinType
	}
	return b.cfg.TokenCoinType
}

func (b *Builder) build(ctx context.Context, req BetRequest) (*Transaction, error) {
	stakeUnits, err := betmath.ToUnits(req.Stake)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	oddsBps := betmath.OddsToBps(req.Odds)

	coinType := b.coinType(req.Currency)
	coins, err := b.coins.GetCoins(ctx, req.Sender, coinType)
	if err != nil {
		return nil, fmt.Errorf("lookup %s coins: %w", req.Currency, err)
	}

	required := req.Stake
	if req.Currency.Native() {
		required = required.Add(b.limits.GasMargin)
	}
	stakeCoin, err := selectCoin(coins, req.CoinObjectID, required, req.Currency)
	if err != nil {
		return nil, err
	}

	tx := &Transaction{
		Sender:    req.Sender,
		GasBudget: b.limits.GasBudget,
		Summary: Summary{
			EventID:     req.EventID,
			MarketID:    req.MarketID,
			Prediction:  req.Prediction,
			StakeUnits:  stakeUnits,
			OddsBps:     oddsBps,
			Currency:    string(req.Currency),
			CoinType:    coinType,
			StakeCoinID: stakeCoin.CoinObjectID,
			BlobID:      req.BlobID,
		},
	}
	var coinArg Argument
	if req.Currency.Native() {
		tx.GasPayment = gasPayment(coins, stakeCoin.CoinObjectID, b.limits.GasBudget)
	}
	if req.Currency.Native() && tx.GasPayment == nil {
		// as outras moedas não cobrem o orçamento: a moeda do stake paga o gas e
		// o split sai do GasCoin. O saldo já cobre stake + margem de gas.
		tx.GasPayment = []ObjectRef{{ObjectID: stakeCoin.CoinObjectID, Version: stakeCoin.Version, Digest: stakeCoin.Digest}}
		coinArg = Argument{Kind: ArgGasCoin}
	} else {
		coinArg = tx.addObject(stakeCoin.CoinObjectID)
	}
	amountArg := tx.addPure(TypeU64, EncodeU64(stakeUnits))
	split := tx.addCommand(Command{
		Kind:       CmdSplitCoins,
		SplitCoins: &SplitCoins{Coin: coinArg, Amounts: []Argument{amountArg}},
	})

	args := []Argument{
		tx.addObject(b.cfg.PlatformObjectID),
		split,
		tx.addPure(TypeVecU8, EncodeBytes([]byte(req.EventID))),
		tx.addPure(TypeVecU8, EncodeBytes([]byte(req.MarketID))),
		tx.addPure(TypeVecU8, EncodeBytes([]byte(req.Prediction))),
		tx.addPure(TypeU64, EncodeU64(oddsBps)),
		tx.addPure(TypeVecU8, EncodeBytes([]byte(req.BlobID))),
		tx.addObject(b.cfg.ClockObjectID),
	}
	tx.addCommand(Command{
		Kind: CmdMoveCall,
		MoveCall: &MoveCall{
			Target:        b.cfg.PlaceBetTarget(),
			TypeArguments: []string{coinType},
			Arguments:     args,
		},
	})
	return tx, nil
}

// selectCoin usa a moeda indicada pelo chamador ou, sem indicação, a de maior
// saldo. Exige saldo >= required.
func selectCoin(coins []rpc.Coin, wantID string, required decimal.Decimal, cur betmath.Currency) (rpc.Coin, error) {
	var (
		best      rpc.Coin
		bestUnits uint64
		found     bool
	)
	for _, c := range coins {
		if wantID != "" && c.CoinObjectID != wantID {
			continue
		}
		units, err := c.BalanceUnits()
		if err != nil {
			return rpc.Coin{}, err
		}
		if !found || units > bestUnits {
			best, bestUnits, found = c, units, true
		}
	}
	if !found {
		if wantID != "" {
			return rpc.Coin{}, fmt.Errorf("%w: %s", ErrCoinNotFound, wantID)
		}
		return rpc.Coin{}, &InsufficientBalanceError{Currency: cur, Required: required, Available: decimal.Zero}
	}

	available := betmath.FromUnits(bestUnits)
	if available.LessThan(required) {
		return rpc.Coin{}, &InsufficientBalanceError{
			Currency:  cur,
			CoinID:    best.CoinObjectID,
			Required:  required,
			Available: available,
		}
	}
	return best, nil
}

// gasPayment separa as demais moedas SUI para pagar gas, quando somam o
// orçamento; caso contrário retorna nil.
func gasPayment(coins []rpc.Coin, stakeCoinID string, budget uint64) []ObjectRef {
	others := make([]rpc.Coin, 0, len(coins))
	for _, c := range coins {
		if c.CoinObjectID != stakeCoinID {
			others = append(others, c)
		}
	}
	sort.SliceStable(others, func(i, j int) bool {
		a, _ := others[i].BalanceUnits()
		b, _ := others[j].BalanceUnits()
		return a > b
	})

	var (
		refs  []ObjectRef
		total uint64
	)
	for _, c := range others {
		units, _ := c.BalanceUnits()
		refs = append(refs, ObjectRef{ObjectID: c.CoinObjectID, Version: c.Version, Digest: c.Digest})
		total += units
		if total >= budget {
			return refs
		}
	}
	return nil
}
