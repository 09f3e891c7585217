package confirm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/radieske/suibets-platform/internal/bet-chain/txbuilder"
	"github.com/radieske/suibets-platform/internal/sui"
	"github.com/radieske/suibets-platform/internal/sui/rpc"
)

const betType = "0xpkg::betting::Bet"

type fakeSigner struct {
	res   *ExecResult
	err   error
	calls int
}

func (f *fakeSigner) SignAndExecute(context.Context, *txbuilder.Transaction, ExecOptions) (*ExecResult, error) {
	f.calls++
	return f.res, f.err
}

type fakeChain struct {
	tb    *rpc.TransactionBlock
	err   error
	calls int
}

func (f *fakeChain) WaitForTransaction(ctx context.Context, _ string, _ rpc.TransactionBlockOptions) (*rpc.TransactionBlock, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.tb, nil
}

func newConfirmer(t *testing.T, s Signer, c ChainReader) *Confirmer {
	cfg := sui.Config{Network: sui.Testnet, PackageID: "0xpkg", PlatformObjectID: "0xp", ClockObjectID: "0x6"}
	return New(s, c, cfg, time.Second, zaptest.NewLogger(t))
}

func success() *rpc.Effects {
	return &rpc.Effects{Status: rpc.ExecutionStatus{Status: "success"}}
}

func TestSubmit_FastPath(t *testing.T) {
	signer := &fakeSigner{res: &ExecResult{
		Digest:  "D1",
		Effects: success(),
		ObjectChanges: []rpc.ObjectChange{
			{Type: "mutated", ObjectType: "0x2::coin::Coin<0x2::sui::SUI>", ObjectID: "0xcoin"},
			{Type: "created", ObjectType: "0x2::coin::Coin<0x2::sui::SUI>", ObjectID: "0xsplit"},
			{Type: "created", ObjectType: betType, ObjectID: "0xbet"},
		},
	}}
	chain := &fakeChain{}

	conf, err := newConfirmer(t, signer, chain).Submit(context.Background(), &txbuilder.Transaction{})
	require.NoError(t, err)
	assert.Equal(t, "D1", conf.Digest)
	require.NotNil(t, conf.BetObjectID)
	assert.Equal(t, "0xbet", *conf.BetObjectID)
	assert.Zero(t, chain.calls)
}

func TestSubmit_FallbackFindsObject(t *testing.T) {
	signer := &fakeSigner{res: &ExecResult{Digest: "D2"}}
	chain := &fakeChain{tb: &rpc.TransactionBlock{
		Digest:        "D2",
		Effects:       success(),
		ObjectChanges: []rpc.ObjectChange{{Type: "created", ObjectType: betType + "<0x2::sui::SUI>", ObjectID: "0xbet2"}},
	}}

	conf, err := newConfirmer(t, signer, chain).Submit(context.Background(), &txbuilder.Transaction{})
	require.NoError(t, err)
	require.NotNil(t, conf.BetObjectID)
	assert.Equal(t, "0xbet2", *conf.BetObjectID)
	assert.Equal(t, 1, chain.calls)
}

func TestSubmit_UnlinkedWhenNoBetCreated(t *testing.T) {
	signer := &fakeSigner{res: &ExecResult{Digest: "D3", Effects: success()}}
	chain := &fakeChain{tb: &rpc.TransactionBlock{Digest: "D3", Effects: success()}}

	conf, err := newConfirmer(t, signer, chain).Submit(context.Background(), &txbuilder.Transaction{})
	require.NoError(t, err)
	assert.Equal(t, "D3", conf.Digest)
	assert.Nil(t, conf.BetObjectID)
}

func TestSubmit_FallbackErrorIsConfirmationGap(t *testing.T) {
	signer := &fakeSigner{res: &ExecResult{Digest: "D4", Effects: success()}}
	chain := &fakeChain{err: context.DeadlineExceeded}

	conf, err := newConfirmer(t, signer, chain).Submit(context.Background(), &txbuilder.Transaction{})
	require.ErrorIs(t, err, ErrConfirmationGap)
	require.NotNil(t, conf)
	assert.Equal(t, "D4", conf.Digest)
	assert.Nil(t, conf.BetObjectID)
	assert.Equal(t, KindConfirmationGap, Classify(err))
}

func TestSubmit_NoDigest(t *testing.T) {
	signer := &fakeSigner{res: &ExecResult{Effects: success()}}

	conf, err := newConfirmer(t, signer, &fakeChain{}).Submit(context.Background(), &txbuilder.Transaction{})
	assert.Nil(t, conf)
	assert.ErrorIs(t, err, ErrNoDigest)
	assert.Equal(t, KindSubmission, Classify(err))
}

func TestSubmit_OnChainFailureVerbatim(t *testing.T) {
	msg := "MoveAbort(MoveLocation { module: betting, function: 2 }, 7) in command 1"
	signer := &fakeSigner{res: &ExecResult{
		Digest:  "D5",
		Effects: &rpc.Effects{Status: rpc.ExecutionStatus{Status: "failure", Error: msg}},
	}}
	chain := &fakeChain{}

	conf, err := newConfirmer(t, signer, chain).Submit(context.Background(), &txbuilder.Transaction{})
	assert.Nil(t, conf)
	var oc *OnChainError
	require.ErrorAs(t, err, &oc)
	assert.Equal(t, msg, oc.Message)
	assert.False(t, oc.Retryable())
	assert.Equal(t, KindOnChain, Classify(err))
	assert.Zero(t, chain.calls)
}

func TestSubmit_StaleObjectIsRetryable(t *testing.T) {
	signer := &fakeSigner{res: &ExecResult{
		Digest: "D6",
		Effects: &rpc.Effects{Status: rpc.ExecutionStatus{
			Status: "failure",
			Error:  "Object 0xcoin version 12 is not available for consumption, current version: 13",
		}},
	}}

	_, err := newConfirmer(t, signer, &fakeChain{}).Submit(context.Background(), &txbuilder.Transaction{})
	assert.ErrorIs(t, err, ErrStaleObject)
	assert.True(t, Retryable(err))
}

func TestSubmit_SignerErrors(t *testing.T) {
	rejected := &fakeSigner{err: errors.New("user rejected the request")}
	_, err := newConfirmer(t, rejected, &fakeChain{}).Submit(context.Background(), &txbuilder.Transaction{})
	assert.ErrorIs(t, err, ErrSigning)
	assert.Equal(t, KindSigning, Classify(err))
	assert.False(t, Retryable(err))

	stale := &fakeSigner{err: errors.New("dry run: stale object version")}
	_, err = newConfirmer(t, stale, &fakeChain{}).Submit(context.Background(), &txbuilder.Transaction{})
	assert.ErrorIs(t, err, ErrSigning)
	assert.Equal(t, KindStaleObject, Classify(err))
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{nil, KindNone},
		{txbuilder.ErrStakeOutOfBounds, KindValidation},
		{&txbuilder.InsufficientBalanceError{}, KindValidation},
		{fmt.Errorf("post: %w", ErrMirror), KindMirror},
		{errors.New("x"), KindUnknown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.err), "%v", tc.err)
	}
}
