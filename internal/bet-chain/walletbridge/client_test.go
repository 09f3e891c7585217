package walletbridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/suibets-platform/internal/bet-chain/confirm"
	"github.com/radieske/suibets-platform/internal/bet-chain/txbuilder"
)

func TestSignAndExecute_OK(t *testing.T) {
	var got signRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sign-and-execute", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"digest":"D1","effects":{"status":{"status":"success"}},
			"objectChanges":[{"type":"created","objectType":"0xpkg::betting::Bet","objectId":"0xbet"}]}`))
	}))
	defer srv.Close()

	tx := &txbuilder.Transaction{Sender: "0xabc", GasBudget: 10}
	res, err := New(srv.URL, 0).SignAndExecute(context.Background(), tx, confirm.ExecOptions{ShowEffects: true})
	require.NoError(t, err)

	assert.Equal(t, "D1", res.Digest)
	assert.Equal(t, "success", res.Effects.Status.Status)
	require.Len(t, res.ObjectChanges, 1)
	assert.Equal(t, "0xbet", res.ObjectChanges[0].ObjectID)
	assert.Equal(t, "0xabc", got.Transaction.Sender)
	assert.True(t, got.Options.ShowEffects)
}

func TestSignAndExecute_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"user rejected the request"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, 0).SignAndExecute(context.Background(), &txbuilder.Transaction{}, confirm.ExecOptions{})
	assert.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "user rejected the request")
}

func TestSignAndExecute_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL, 0).SignAndExecute(context.Background(), &txbuilder.Transaction{}, confirm.ExecOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 502")
}
