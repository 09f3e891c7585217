package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrMirrorMismatch    = errors.New("mirror row does not match request")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Postgres implementa o espelho de apostas em banco Postgres
type Postgres struct{ db *sql.DB }

// NewPostgres retorna uma instância do repositório de apostas
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

type scanner interface {
	Scan(dest ...any) error
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

const betColumns = `id, wallet_address, event_id, market_id, outcome_id, prediction,
	bet_amount, odds, potential_payout, fee_currency, status, tx_hash, on_chain_bet_id,
	placed_at, settled_at`

const parlayColumns = `id, wallet_address, total_stake, combined_odds, potential_payout,
	fee_currency, status, tx_hash, on_chain_bet_id, placed_at, settled_at`

func scanBet(s scanner, extra ...any) (*Bet, error) {
	var (
		b       Bet
		onChain sql.NullString
		settled sql.NullTime
	)
	dest := []any{
		&b.ID, &b.WalletAddress, &b.EventID, &b.MarketID, &b.OutcomeID, &b.Prediction,
		&b.BetAmount, &b.Odds, &b.PotentialPayout, &b.FeeCurrency, &b.Status, &b.TxHash, &onChain,
		&b.PlacedAt, &settled,
	}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if onChain.Valid {
		b.OnChainBetID = &onChain.String
	}
	if settled.Valid {
		b.SettledAt = &settled.Time
	}
	return &b, nil
}

func scanParlay(s scanner, extra ...any) (*Parlay, error) {
	var (
		p       Parlay
		onChain sql.NullString
		settled sql.NullTime
	)
	dest := []any{
		&p.ID, &p.WalletAddress, &p.TotalStake, &p.CombinedOdds, &p.PotentialPayout,
		&p.FeeCurrency, &p.Status, &p.TxHash, &onChain, &p.PlacedAt, &settled,
	}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if onChain.Valid {
		p.OnChainBetID = &onChain.String
	}
	if settled.Valid {
		p.SettledAt = &settled.Time
	}
	return &p, nil
}

// UpsertBet grava a aposta uma única vez por tx_hash. Uma segunda chamada com o
// mesmo digest devolve a linha existente (created=false), apenas completando o
// on_chain_bet_id se ele ainda estava nulo. Divergência é verificada com a linha
// travada, antes de qualquer escrita.
func (p *Postgres) UpsertBet(ctx context.Context, b *Bet) (*Bet, bool, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback() //nolint:errcheck

	out, err := scanBet(tx.QueryRowContext(ctx, `
		INSERT INTO bets (wallet_address, event_id, market_id, outcome_id, prediction,
			bet_amount, odds, potential_payout, fee_currency, status, tx_hash, on_chain_bet_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,'pending',$10,$11)
		ON CONFLICT (tx_hash) DO NOTHING
		RETURNING `+betColumns,
		b.WalletAddress, b.EventID, b.MarketID, b.OutcomeID, b.Prediction,
		b.BetAmount, b.Odds, b.PotentialPayout, b.FeeCurrency, b.TxHash, b.OnChainBetID,
	))
	switch {
	case err == nil:
		if err := tx.Commit(); err != nil {
			return nil, false, fmt.Errorf("commit bet %s: %w", b.TxHash, err)
		}
		return out, true, nil
	case !errors.Is(err, sql.ErrNoRows):
		return nil, false, writeErr("upsert bet", b.TxHash, err)
	}

	out, err = scanBet(tx.QueryRowContext(ctx,
		`SELECT `+betColumns+` FROM bets WHERE tx_hash = $1 FOR UPDATE`, b.TxHash))
	if err != nil {
		return nil, false, fmt.Errorf("load bet %s: %w", b.TxHash, err)
	}
	if !sameBet(out, b) {
		return out, false, fmt.Errorf("%w: tx %s stored as %s@%s, got %s@%s", ErrMirrorMismatch,
			b.TxHash, out.BetAmount, out.Odds, b.BetAmount, b.Odds)
	}
	if out.OnChainBetID == nil && b.OnChainBetID != nil {
		if _, err := tx.ExecContext(ctx,
			`UPDATE bets SET on_chain_bet_id = $2 WHERE id = $1`, out.ID, *b.OnChainBetID); err != nil {
			return nil, false, writeErr("link bet", b.TxHash, err)
		}
		id := *b.OnChainBetID
		out.OnChainBetID = &id
	}
	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit bet %s: %w", b.TxHash, err)
	}
	return out, false, nil
}

func sameBet(stored, req *Bet) bool {
	return strings.EqualFold(stored.WalletAddress, req.WalletAddress) &&
		stored.BetAmount.Equal(req.BetAmount) &&
		stored.Odds.Equal(req.Odds) &&
		sameObject(stored.OnChainBetID, req.OnChainBetID)
}

func sameParlay(stored, req *Parlay) bool {
	return strings.EqualFold(stored.WalletAddress, req.WalletAddress) &&
		stored.TotalStake.Equal(req.TotalStake) &&
		stored.CombinedOdds.Equal(req.CombinedOdds) &&
		sameObject(stored.OnChainBetID, req.OnChainBetID)
}

// sameObject: um id nulo de qualquer lado não conflita.
func sameObject(stored, req *string) bool {
	return stored == nil || req == nil || *stored == *req
}

// writeErr traduz a violação do índice único de on_chain_bet_id: o objeto já
// está espelhado sob outro digest.
func writeErr(op, txHash string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" && strings.HasSuffix(pqErr.Constraint, "on_chain_bet_id_key") {
		return fmt.Errorf("%w: %s %s: object already mirrored under another digest", ErrMirrorMismatch, op, txHash)
	}
	return fmt.Errorf("%s %s: %w", op, txHash, err)
}

// UpsertParlay segue a mesma regra do UpsertBet; as pernas só são gravadas
// quando a linha pai é criada, na mesma transação SQL.
func (p *Postgres) UpsertParlay(ctx context.Context, pl *Parlay) (*Parlay, bool, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback() //nolint:errcheck

	out, err := scanParlay(tx.QueryRowContext(ctx, `
		INSERT INTO parlays (wallet_address, total_stake, combined_odds, potential_payout,
			fee_currency, status, tx_hash, on_chain_bet_id)
		VALUES ($1,$2,$3,$4,$5,'pending',$6,$7)
		ON CONFLICT (tx_hash) DO NOTHING
		RETURNING `+parlayColumns,
		pl.WalletAddress, pl.TotalStake, pl.CombinedOdds, pl.PotentialPayout,
		pl.FeeCurrency, pl.TxHash, pl.OnChainBetID,
	))
	inserted := err == nil
	switch {
	case inserted:
		for i, l := range pl.Legs {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO bet_legs (parlay_id, leg_index, event_id, market_id, outcome_id, prediction, odds)
				VALUES ($1,$2,$3,$4,$5,$6,$7)`,
				out.ID, i, l.EventID, l.MarketID, l.OutcomeID, l.Prediction, l.Odds,
			); err != nil {
				return nil, false, fmt.Errorf("insert leg %d: %w", i, err)
			}
			l.ParlayID, l.Index = out.ID, i
			out.Legs = append(out.Legs, l)
		}
	case errors.Is(err, sql.ErrNoRows):
		out, err = scanParlay(tx.QueryRowContext(ctx,
			`SELECT `+parlayColumns+` FROM parlays WHERE tx_hash = $1 FOR UPDATE`, pl.TxHash))
		if err != nil {
			return nil, false, fmt.Errorf("load parlay %s: %w", pl.TxHash, err)
		}
		if !sameParlay(out, pl) {
			return out, false, fmt.Errorf("%w: parlay tx %s", ErrMirrorMismatch, pl.TxHash)
		}
		if out.OnChainBetID == nil && pl.OnChainBetID != nil {
			if _, err := tx.ExecContext(ctx,
				`UPDATE parlays SET on_chain_bet_id = $2 WHERE id = $1`, out.ID, *pl.OnChainBetID); err != nil {
				return nil, false, writeErr("link parlay", pl.TxHash, err)
			}
			id := *pl.OnChainBetID
			out.OnChainBetID = &id
		}
		legs, err := legsFor(ctx, tx, []int64{out.ID})
		if err != nil {
			return nil, false, err
		}
		out.Legs = legs[out.ID]
	default:
		return nil, false, writeErr("upsert parlay", pl.TxHash, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit parlay %s: %w", pl.TxHash, err)
	}
	return out, inserted, nil
}

func legsFor(ctx context.Context, q querier, parlayIDs []int64) (map[int64][]Leg, error) {
	out := make(map[int64][]Leg, len(parlayIDs))
	if len(parlayIDs) == 0 {
		return out, nil
	}
	rows, err := q.QueryContext(ctx, `
		SELECT id, parlay_id, leg_index, event_id, market_id, outcome_id, prediction, odds
		FROM bet_legs
		WHERE parlay_id = ANY($1)
		ORDER BY parlay_id, leg_index`, pq.Array(parlayIDs))
	if err != nil {
		return nil, fmt.Errorf("load legs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l Leg
		if err := rows.Scan(&l.ID, &l.ParlayID, &l.Index, &l.EventID, &l.MarketID, &l.OutcomeID, &l.Prediction, &l.Odds); err != nil {
			return nil, err
		}
		out[l.ParlayID] = append(out[l.ParlayID], l)
	}
	return out, rows.Err()
}

// ListByWallet retorna as apostas simples mais recentes da carteira.
func (p *Postgres) ListByWallet(ctx context.Context, wallet string, limit int) ([]Bet, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+betColumns+`
		FROM bets
		WHERE wallet_address = $1
		ORDER BY placed_at DESC, id DESC
		LIMIT $2`, wallet, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (p *Postgres) ListParlaysByWallet(ctx context.Context, wallet string, limit int) ([]Parlay, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+parlayColumns+`
		FROM parlays
		WHERE wallet_address = $1
		ORDER BY placed_at DESC, id DESC
		LIMIT $2`, wallet, limit)
	if err != nil {
		return nil, err
	}
	var (
		out []Parlay
		ids []int64
	)
	for rows.Next() {
		pl, err := scanParlay(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, *pl)
		ids = append(ids, pl.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	legs, err := legsFor(ctx, p.db, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Legs = legs[out[i].ID]
	}
	return out, nil
}

func (p *Postgres) GetByID(ctx context.Context, id int64) (*Bet, error) {
	b, err := scanBet(p.db.QueryRowContext(ctx, `SELECT `+betColumns+` FROM bets WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

func (p *Postgres) GetParlay(ctx context.Context, id int64) (*Parlay, error) {
	pl, err := scanParlay(p.db.QueryRowContext(ctx, `SELECT `+parlayColumns+` FROM parlays WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	legs, err := legsFor(ctx, p.db, []int64{pl.ID})
	if err != nil {
		return nil, err
	}
	pl.Legs = legs[pl.ID]
	return pl, nil
}

// CanTransition: só apostas pendentes mudam de status; nada volta para pending.
func CanTransition(from, to string) bool {
	if from != StatusPending {
		return false
	}
	switch to {
	case StatusWon, StatusLost, StatusVoid, StatusCashedOut:
		return true
	}
	return false
}

// UpdateStatus liquida a aposta e registra a transição em bet_transactions.
func (p *Postgres) UpdateStatus(ctx context.Context, id int64, status, reason string) (*Bet, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck

	var current string
	err = tx.QueryRowContext(ctx, `SELECT status FROM bets WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !CanTransition(current, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, status)
	}

	b, err := scanBet(tx.QueryRowContext(ctx, `
		UPDATE bets SET status = $2, settled_at = NOW()
		WHERE id = $1
		RETURNING `+betColumns, id, status))
	if err != nil {
		return nil, fmt.Errorf("update bet %d: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO bet_transactions (bet_id, old_status, new_status, reason, created_at)
		VALUES ($1,$2,$3,$4,NOW())`, id, current, status, reason); err != nil {
		return nil, fmt.Errorf("bet_tx insert: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return b, nil
}

// MirrorKeysByWallet lista digests e ids de objeto já espelhados da carteira
// (apostas simples e parlays).
func (p *Postgres) MirrorKeysByWallet(ctx context.Context, wallet string) (MirrorKeys, error) {
	keys := NewMirrorKeys()
	rows, err := p.db.QueryContext(ctx, `
		SELECT tx_hash, on_chain_bet_id FROM bets WHERE wallet_address = $1
		UNION ALL
		SELECT tx_hash, on_chain_bet_id FROM parlays WHERE wallet_address = $1`, wallet)
	if err != nil {
		return keys, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			h       string
			onChain sql.NullString
		)
		if err := rows.Scan(&h, &onChain); err != nil {
			return keys, err
		}
		keys.TxHashes[h] = struct{}{}
		if onChain.Valid && onChain.String != "" {
			keys.ObjectIDs[onChain.String] = struct{}{}
		}
	}
	return keys, rows.Err()
}

// ListWallets retorna as carteiras conhecidas pelo espelho.
func (p *Postgres) ListWallets(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT wallet_address FROM bets
		UNION
		SELECT wallet_address FROM parlays`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
