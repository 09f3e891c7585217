package repo

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	betCols    = []string{"id", "wallet_address", "event_id", "market_id", "outcome_id", "prediction", "bet_amount", "odds", "potential_payout", "fee_currency", "status", "tx_hash", "on_chain_bet_id", "placed_at", "settled_at"}
	parlayCols = []string{"id", "wallet_address", "total_stake", "combined_odds", "potential_payout", "fee_currency", "status", "tx_hash", "on_chain_bet_id", "placed_at", "settled_at"}
	legCols    = []string{"id", "parlay_id", "leg_index", "event_id", "market_id", "outcome_id", "prediction", "odds"}
	placedAt   = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func newMock(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewPostgres(conn), mock
}

func strPtr(s string) *string { return &s }

func sampleBet() *Bet {
	return &Bet{
		WalletAddress:   "0xabc",
		EventID:         "evt-42",
		MarketID:        "winner",
		Prediction:      "home",
		BetAmount:       decimal.NewFromInt(2),
		Odds:            decimal.RequireFromString("3.25"),
		PotentialPayout: decimal.RequireFromString("6.5"),
		FeeCurrency:     "SUI",
		TxHash:          "D1",
		OnChainBetID:    strPtr("0xbet"),
	}
}

func betRow(id int64, amount, odds string, onChain driver.Value) []driver.Value {
	return []driver.Value{id, "0xabc", "evt-42", "winner", "", "home", amount, odds, "6.5", "SUI", "pending", "D1", onChain, placedAt, nil}
}

func TestUpsertBet_Created(t *testing.T) {
	p, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (tx_hash) DO NOTHING")).
		WithArgs("0xabc", "evt-42", "winner", "", "home", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "SUI", "D1", "0xbet").
		WillReturnRows(sqlmock.NewRows(betCols).AddRow(betRow(7, "2", "3.25", "0xbet")...))
	mock.ExpectCommit()

	b, created, err := p.UpsertBet(context.Background(), sampleBet())
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(7), b.ID)
	assert.Equal(t, StatusPending, b.Status)
	assert.True(t, b.Odds.Equal(decimal.RequireFromString("3.25")))
	require.NotNil(t, b.OnChainBetID)
	assert.Equal(t, "0xbet", *b.OnChainBetID)
	assert.Nil(t, b.SettledAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func expectExisting(mock sqlmock.Sqlmock, row []driver.Value) {
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO bets").WillReturnRows(sqlmock.NewRows(betCols))
	mock.ExpectQuery(regexp.QuoteMeta("FROM bets WHERE tx_hash = $1 FOR UPDATE")).
		WithArgs("D1").
		WillReturnRows(sqlmock.NewRows(betCols).AddRow(row...))
}

func TestUpsertBet_DuplicateReturnsExisting(t *testing.T) {
	p, mock := newMock(t)
	expectExisting(mock, betRow(7, "2.000000000", "3.2500", "0xbet"))
	mock.ExpectCommit()

	b, created, err := p.UpsertBet(context.Background(), sampleBet())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(7), b.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertBet_DuplicateLinksObjectID(t *testing.T) {
	p, mock := newMock(t)
	expectExisting(mock, betRow(7, "2", "3.25", nil))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bets SET on_chain_bet_id = $2 WHERE id = $1")).
		WithArgs(int64(7), "0xbet").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	b, created, err := p.UpsertBet(context.Background(), sampleBet())
	require.NoError(t, err)
	assert.False(t, created)
	require.NotNil(t, b.OnChainBetID)
	assert.Equal(t, "0xbet", *b.OnChainBetID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertBet_DuplicateMismatchWritesNothing(t *testing.T) {
	p, mock := newMock(t)
	expectExisting(mock, betRow(7, "5", "3.25", nil))
	// nenhum UPDATE nem COMMIT: a transação é desfeita
	mock.ExpectRollback()

	b, created, err := p.UpsertBet(context.Background(), sampleBet())
	assert.ErrorIs(t, err, ErrMirrorMismatch)
	assert.False(t, created)
	require.NotNil(t, b)
	assert.Nil(t, b.OnChainBetID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertBet_DifferentObjectIDIsMismatch(t *testing.T) {
	p, mock := newMock(t)
	expectExisting(mock, betRow(7, "2", "3.25", "0xother"))
	mock.ExpectRollback()

	_, _, err := p.UpsertBet(context.Background(), sampleBet())
	assert.ErrorIs(t, err, ErrMirrorMismatch)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertBet_ObjectMirroredUnderOtherDigest(t *testing.T) {
	p, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO bets").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "bets_on_chain_bet_id_key"})
	mock.ExpectRollback()

	_, _, err := p.UpsertBet(context.Background(), sampleBet())
	assert.ErrorIs(t, err, ErrMirrorMismatch)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertBet_DBError(t *testing.T) {
	p, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO bets").WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	_, _, err := p.UpsertBet(context.Background(), sampleBet())
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.NotErrorIs(t, err, ErrMirrorMismatch)
}

func sampleParlay() *Parlay {
	return &Parlay{
		WalletAddress:   "0xabc",
		TotalStake:      decimal.NewFromInt(10),
		CombinedOdds:    decimal.RequireFromString("5.67"),
		PotentialPayout: decimal.RequireFromString("56.7"),
		FeeCurrency:     "SUI",
		TxHash:          "P1",
		Legs: []Leg{
			{EventID: "e1", MarketID: "mw", Prediction: "home", Odds: decimal.RequireFromString("1.8")},
			{EventID: "e2", MarketID: "mw", Prediction: "away", Odds: decimal.RequireFromString("2.1")},
		},
	}
}

func parlayRow(stake string) []driver.Value {
	return []driver.Value{3, "0xabc", stake, "5.67", "56.7", "SUI", "pending", "P1", nil, placedAt, nil}
}

func TestUpsertParlay_CreatedInsertsLegs(t *testing.T) {
	p, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO parlays")).
		WillReturnRows(sqlmock.NewRows(parlayCols).AddRow(parlayRow("10")...))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bet_legs")).
		WithArgs(int64(3), 0, "e1", "mw", "", "home", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bet_legs")).
		WithArgs(int64(3), 1, "e2", "mw", "", "away", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	pl, created, err := p.UpsertParlay(context.Background(), sampleParlay())
	require.NoError(t, err)
	assert.True(t, created)
	require.Len(t, pl.Legs, 2)
	assert.Equal(t, int64(3), pl.Legs[1].ParlayID)
	assert.Equal(t, 1, pl.Legs[1].Index)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertParlay_DuplicateSkipsLegs(t *testing.T) {
	p, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO parlays")).
		WillReturnRows(sqlmock.NewRows(parlayCols))
	mock.ExpectQuery(regexp.QuoteMeta("FROM parlays WHERE tx_hash = $1 FOR UPDATE")).
		WithArgs("P1").
		WillReturnRows(sqlmock.NewRows(parlayCols).AddRow(parlayRow("10")...))
	mock.ExpectQuery(regexp.QuoteMeta("FROM bet_legs")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(legCols).
			AddRow(1, 3, 0, "e1", "mw", "", "home", "1.8").
			AddRow(2, 3, 1, "e2", "mw", "", "away", "2.1"))
	mock.ExpectCommit()

	pl, created, err := p.UpsertParlay(context.Background(), sampleParlay())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Len(t, pl.Legs, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertParlay_LegFailureRollsBack(t *testing.T) {
	p, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO parlays").
		WillReturnRows(sqlmock.NewRows(parlayCols).AddRow(parlayRow("10")...))
	mock.ExpectExec("INSERT INTO bet_legs").WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	_, _, err := p.UpsertParlay(context.Background(), sampleParlay())
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertParlay_DuplicateMismatchWritesNothing(t *testing.T) {
	p, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO parlays").WillReturnRows(sqlmock.NewRows(parlayCols))
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows(parlayCols).AddRow(parlayRow("4")...))
	mock.ExpectRollback()

	_, created, err := p.UpsertParlay(context.Background(), sampleParlay())
	assert.ErrorIs(t, err, ErrMirrorMismatch)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_NotFound(t *testing.T) {
	p, mock := newMock(t)
	mock.ExpectQuery("FROM bets WHERE id").WithArgs(int64(99)).WillReturnError(sql.ErrNoRows)

	_, err := p.GetByID(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListByWallet(t *testing.T) {
	p, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE wallet_address = $1")).
		WithArgs("0xabc", 50).
		WillReturnRows(sqlmock.NewRows(betCols).
			AddRow(betRow(2, "2", "3.25", nil)...).
			AddRow(betRow(1, "1", "2", "0xbet")...))

	bets, err := p.ListByWallet(context.Background(), "0xabc", 50)
	require.NoError(t, err)
	require.Len(t, bets, 2)
	assert.Equal(t, int64(2), bets[0].ID)
	assert.Nil(t, bets[0].OnChainBetID)
}

func TestListParlaysByWallet_LoadsLegs(t *testing.T) {
	p, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM parlays")).
		WithArgs("0xabc", 20).
		WillReturnRows(sqlmock.NewRows(parlayCols).AddRow(parlayRow("10")...))
	mock.ExpectQuery(regexp.QuoteMeta("parlay_id = ANY($1)")).
		WillReturnRows(sqlmock.NewRows(legCols).AddRow(1, 3, 0, "e1", "mw", "", "home", "1.8"))

	pls, err := p.ListParlaysByWallet(context.Background(), "0xabc", 20)
	require.NoError(t, err)
	require.Len(t, pls, 1)
	require.Len(t, pls[0].Legs, 1)
	assert.Equal(t, "e1", pls[0].Legs[0].EventID)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusWon))
	assert.True(t, CanTransition(StatusPending, StatusCashedOut))
	assert.False(t, CanTransition(StatusWon, StatusLost))
	assert.False(t, CanTransition(StatusPending, StatusPending))
	assert.False(t, CanTransition(StatusPending, "deleted"))
}

func TestUpdateStatus(t *testing.T) {
	p, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM bets WHERE id = $1 FOR UPDATE")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("pending"))
	settled := placedAt.Add(time.Hour)
	row := betRow(7, "2", "3.25", "0xbet")
	row[10], row[14] = "won", settled
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE bets SET status = $2")).
		WithArgs(int64(7), "won").
		WillReturnRows(sqlmock.NewRows(betCols).AddRow(row...))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bet_transactions")).
		WithArgs(int64(7), "pending", "won", "settled by oracle").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	b, err := p.UpdateStatus(context.Background(), 7, StatusWon, "settled by oracle")
	require.NoError(t, err)
	assert.Equal(t, StatusWon, b.Status)
	require.NotNil(t, b.SettledAt)
	assert.Equal(t, settled, *b.SettledAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus_RejectsSettledBet(t *testing.T) {
	p, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM bets").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("lost"))
	mock.ExpectRollback()

	_, err := p.UpdateStatus(context.Background(), 7, StatusWon, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMirrorKeysByWallet(t *testing.T) {
	p, mock := newMock(t)
	mock.ExpectQuery("UNION ALL").WithArgs("0xabc").
		WillReturnRows(sqlmock.NewRows([]string{"tx_hash", "on_chain_bet_id"}).
			AddRow("D1", "0xb1").
			AddRow("D2", nil).
			AddRow("P1", "0xp1"))

	keys, err := p.MirrorKeysByWallet(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Len(t, keys.TxHashes, 3)
	assert.Len(t, keys.ObjectIDs, 2)
	assert.True(t, keys.Has("S1", "0xb1"))
	assert.True(t, keys.Has("D2", "0xnew"))
	assert.False(t, keys.Has("S9", "0xnew"))
	assert.False(t, keys.Has("", ""))
}

func TestListWallets(t *testing.T) {
	p, mock := newMock(t)
	mock.ExpectQuery("SELECT wallet_address FROM bets").
		WillReturnRows(sqlmock.NewRows([]string{"wallet_address"}).AddRow("0xabc").AddRow("0xdef"))

	ws, err := p.ListWallets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"0xabc", "0xdef"}, ws)
}
