package placement

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/suibets-platform/internal/bet-service/dto"
)

func replying(t *testing.T, status int, body any) *MirrorClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return NewMirrorClient(srv.URL)
}

func TestMirrorClient_Statuses(t *testing.T) {
	req := dto.PlaceBetRequest{TxHash: "D1", BetAmount: decimal.NewFromInt(2)}

	res, err := replying(t, http.StatusOK, dto.BetResponse{ID: 3, Status: "pending"}).MirrorBet(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, res.SyncPending)
	require.NotNil(t, res.Bet)
	assert.Equal(t, int64(3), res.Bet.ID)

	res, err = replying(t, http.StatusAccepted, dto.SyncPendingResponse{SyncPending: true, TxHash: "D1", Warning: "later"}).
		MirrorBet(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.SyncPending)
	assert.Equal(t, "later", res.Warning)
	assert.Nil(t, res.Bet)

	_, err = replying(t, http.StatusConflict, dto.ErrorResponse{Error: "mirror row differs"}).MirrorBet(context.Background(), req)
	assert.EqualError(t, err, "mirror http 409: mirror row differs")
}

func TestMirrorClient_ParlayPath(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(dto.ParlayResponse{ID: 9, Legs: []dto.LegResponse{{EventID: "e1"}, {EventID: "e2"}}})
	}))
	defer srv.Close()

	res, err := NewMirrorClient(srv.URL).MirrorParlay(context.Background(), dto.PlaceParlayRequest{TxHash: "P1"})
	require.NoError(t, err)
	assert.Equal(t, "/parlays", path)
	require.NotNil(t, res.Parlay)
	assert.Len(t, res.Parlay.Legs, 2)
}
