// Package walletbridge fala com a ponte de assinatura da carteira do usuário
// (extensão/dapp-kit exposto localmente). Implementa confirm.Signer.
package walletbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/radieske/suibets-platform/internal/bet-chain/confirm"
	"github.com/radieske/suibets-platform/internal/bet-chain/txbuilder"
)

// ErrRejected: o usuário recusou a assinatura.
var ErrRejected = errors.New("user rejected signing")

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(base string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 2 * time.Minute // o usuário precisa de tempo para aprovar
	}
	return &Client{
		BaseURL: base,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type signRequest struct {
	Transaction *txbuilder.Transaction `json:"transaction"`
	Options     confirm.ExecOptions    `json:"options"`
}

type errorBody struct {
	Error string `json:"error"`
}

func (c *Client) SignAndExecute(ctx context.Context, tx *txbuilder.Transaction, opts confirm.ExecOptions) (*confirm.ExecResult, error) {
	body, err := json.Marshal(signRequest{Transaction: tx, Options: opts})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/sign-and-execute", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if res.StatusCode >= 300 {
		var eb errorBody
		_ = json.Unmarshal(raw, &eb)
		if res.StatusCode == http.StatusForbidden {
			return nil, fmt.Errorf("%w: %s", ErrRejected, eb.Error)
		}
		if eb.Error != "" {
			return nil, fmt.Errorf("wallet bridge http %d: %s", res.StatusCode, eb.Error)
		}
		return nil, fmt.Errorf("wallet bridge http %d", res.StatusCode)
	}

	var out confirm.ExecResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode wallet response: %w", err)
	}
	return &out, nil
}
