package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/suibets-platform/internal/shared/metrics"
)

func newTestClient(t *testing.T, handler func(req Request) (any, *RPCError)) *Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "2.0", req.JSONRPC)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		result, rpcErr := handler(req)
		resp := Response{JSONRPC: "2.0", ID: req.ID, Error: rpcErr}
		if rpcErr == nil {
			raw, err := json.Marshal(result)
			require.NoError(t, err)
			resp.Result = raw
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(server.Close)
	return NewClient(server.URL, zap.NewNop(), Options{
		RPS:          1000,
		WaitTimeout:  200 * time.Millisecond,
		PollInterval: 10 * time.Millisecond,
	})
}

func TestCall_RPCError(t *testing.T) {
	client := newTestClient(t, func(Request) (any, *RPCError) {
		return nil, &RPCError{Code: -32602, Message: "Invalid params"}
	})

	_, err := client.call(context.Background(), "suix_getCoins", nil)
	require.Error(t, err)
	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32602, rpcErr.Code)
}

func TestCall_ObservesLatencyPerMethod(t *testing.T) {
	client := newTestClient(t, func(Request) (any, *RPCError) {
		return map[string]any{}, nil
	})

	_, err := client.call(context.Background(), "sui_getChainIdentifier", nil)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, testutil.CollectAndCount(metrics.SuiRPCDuration, "suibets_sui_rpc_request_duration_seconds"), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SuiRPCRequests.WithLabelValues("sui_getChainIdentifier", "ok")))
}

func TestCall_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("bad gateway"))
	}))
	defer server.Close()

	client := NewClient(server.URL, zap.NewNop(), Options{})
	_, err := client.call(context.Background(), "sui_getTransactionBlock", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http status 502")
}

func TestGetCoins_Paginates(t *testing.T) {
	next := "cursor-1"
	client := newTestClient(t, func(req Request) (any, *RPCError) {
		assert.Equal(t, "suix_getCoins", req.Method)
		require.Len(t, req.Params, 4)
		assert.Equal(t, "0xowner", req.Params[0])
		assert.Equal(t, "0x2::sui::SUI", req.Params[1])
		if req.Params[2] == nil {
			return CoinPage{
				Data:        []Coin{{CoinObjectID: "0xA", Balance: "5000000000"}},
				NextCursor:  &next,
				HasNextPage: true,
			}, nil
		}
		assert.Equal(t, next, req.Params[2])
		return CoinPage{Data: []Coin{{CoinObjectID: "0xB", Balance: "10000000"}}}, nil
	})

	coins, err := client.GetCoins(context.Background(), "0xowner", "0x2::sui::SUI")
	require.NoError(t, err)
	require.Len(t, coins, 2)
	assert.Equal(t, "0xA", coins[0].CoinObjectID)

	units, err := coins[1].BalanceUnits()
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000_000), units)
}

func TestCoin_BalanceUnitsInvalid(t *testing.T) {
	_, err := Coin{CoinObjectID: "0xA", Balance: "lots"}.BalanceUnits()
	assert.Error(t, err)
}

func TestGetTransactionBlock(t *testing.T) {
	client := newTestClient(t, func(req Request) (any, *RPCError) {
		assert.Equal(t, "sui_getTransactionBlock", req.Method)
		assert.Equal(t, "D1", req.Params[0])
		opts := req.Params[1].(map[string]interface{})
		assert.Equal(t, true, opts["showEffects"])
		assert.Equal(t, true, opts["showObjectChanges"])
		return TransactionBlock{
			Digest:  "D1",
			Effects: &Effects{Status: ExecutionStatus{Status: "success"}},
			ObjectChanges: []ObjectChange{
				{Type: "created", ObjectType: "0xabc::betting::Bet", ObjectID: "0xbet"},
			},
		}, nil
	})

	tx, err := client.GetTransactionBlock(context.Background(), "D1", TransactionBlockOptions{ShowEffects: true, ShowObjectChanges: true})
	require.NoError(t, err)
	assert.Equal(t, "success", tx.Effects.Status.Status)
	require.Len(t, tx.ObjectChanges, 1)
	assert.Equal(t, "0xbet", tx.ObjectChanges[0].ObjectID)
}

func TestWaitForTransaction_PollsUntilIndexed(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(req Request) (any, *RPCError) {
		if calls.Add(1) < 3 {
			return nil, &RPCError{Code: -32602, Message: "Could not find the referenced transaction"}
		}
		return TransactionBlock{Digest: "D2"}, nil
	})

	tx, err := client.WaitForTransaction(context.Background(), "D2", TransactionBlockOptions{ShowEffects: true})
	require.NoError(t, err)
	assert.Equal(t, "D2", tx.Digest)
	assert.Equal(t, int32(3), calls.Load())
}

func TestWaitForTransaction_Bounded(t *testing.T) {
	client := newTestClient(t, func(req Request) (any, *RPCError) {
		return nil, &RPCError{Code: -32602, Message: "Could not find the referenced transaction"}
	})

	start := time.Now()
	_, err := client.WaitForTransaction(context.Background(), "D3", TransactionBlockOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestGetOwnedObjects(t *testing.T) {
	client := newTestClient(t, func(req Request) (any, *RPCError) {
		assert.Equal(t, "suix_getOwnedObjects", req.Method)
		query := req.Params[1].(map[string]interface{})
		filter := query["filter"].(map[string]interface{})
		assert.Equal(t, "0xabc::betting::Bet", filter["StructType"])
		return ObjectPage{Data: []ObjectResponse{
			{Data: &ObjectData{ObjectID: "0xbet1", PreviousTransaction: "D1", Content: &MoveContent{DataType: "moveObject", Fields: json.RawMessage(`{"stake":"2000000000"}`)}}},
			{Error: json.RawMessage(`{"code":"deleted"}`)},
		}}, nil
	})

	objs, err := client.GetOwnedObjects(context.Background(), "0xowner", "0xabc::betting::Bet")
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.Equal(t, "0xbet1", objs[0].ObjectID)
	assert.Equal(t, "D1", objs[0].PreviousTransaction)
}
