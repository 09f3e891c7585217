package placement

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/radieske/suibets-platform/internal/bet-service/dto"
)

// MirrorResult é a resposta do bet-service a um POST /bets ou /parlays.
// SyncPending=true significa 202: aposta on-chain, espelho adiado.
type MirrorResult struct {
	Bet         *dto.BetResponse
	Parlay      *dto.ParlayResponse
	SyncPending bool
	Warning     string
}

// MirrorClient fala com o bet-service.
type MirrorClient struct {
	BaseURL string
	HTTP    *http.Client
}

func NewMirrorClient(base string) *MirrorClient {
	return &MirrorClient{
		BaseURL: base,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *MirrorClient) MirrorBet(ctx context.Context, req dto.PlaceBetRequest) (*MirrorResult, error) {
	var bet dto.BetResponse
	res, err := c.post(ctx, "/bets", req, &bet)
	if err != nil {
		return nil, err
	}
	if !res.SyncPending {
		res.Bet = &bet
	}
	return res, nil
}

func (c *MirrorClient) MirrorParlay(ctx context.Context, req dto.PlaceParlayRequest) (*MirrorResult, error) {
	var p dto.ParlayResponse
	res, err := c.post(ctx, "/parlays", req, &p)
	if err != nil {
		return nil, err
	}
	if !res.SyncPending {
		res.Parlay = &p
	}
	return res, nil
}

func (c *MirrorClient) post(ctx context.Context, path string, in, out any) (*MirrorResult, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusAccepted:
		var sp dto.SyncPendingResponse
		if err := json.NewDecoder(res.Body).Decode(&sp); err != nil {
			return nil, err
		}
		return &MirrorResult{SyncPending: true, Warning: sp.Warning}, nil
	case res.StatusCode >= 300:
		var e dto.ErrorResponse
		raw, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			return nil, fmt.Errorf("mirror http %d: %s", res.StatusCode, e.Error)
		}
		return nil, fmt.Errorf("mirror http %d", res.StatusCode)
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return nil, err
	}
	return &MirrorResult{}, nil
}
