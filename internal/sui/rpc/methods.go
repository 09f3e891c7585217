package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	pageLimit = 50
	maxPages  = 40
)

// GetCoins retorna todas as moedas de coinType pertencentes a owner.
func (c *Client) GetCoins(ctx context.Context, owner, coinType string) ([]Coin, error) {
	var (
		out    []Coin
		cursor *string
	)
	for page := 0; page < maxPages; page++ {
		params := []interface{}{owner, coinType, cursor, pageLimit}
		result, err := c.call(ctx, "suix_getCoins", params)
		if err != nil {
			return nil, fmt.Errorf("suix_getCoins: %w", err)
		}
		var p CoinPage
		if err := json.Unmarshal(result, &p); err != nil {
			return nil, fmt.Errorf("unmarshal coins: %w", err)
		}
		out = append(out, p.Data...)
		if !p.HasNextPage || p.NextCursor == nil {
			return out, nil
		}
		cursor = p.NextCursor
	}
	c.log.Warn("coin listing truncated", zap.String("owner", owner), zap.Int("coins", len(out)))
	return out, nil
}

// GetTransactionBlock busca uma transação já executada pelo digest.
func (c *Client) GetTransactionBlock(ctx context.Context, digest string, opts TransactionBlockOptions) (*TransactionBlock, error) {
	result, err := c.call(ctx, "sui_getTransactionBlock", []interface{}{digest, opts})
	if err != nil {
		return nil, fmt.Errorf("sui_getTransactionBlock(%s): %w", digest, err)
	}
	var tx TransactionBlock
	if err := json.Unmarshal(result, &tx); err != nil {
		return nil, fmt.Errorf("unmarshal transaction block: %w", err)
	}
	return &tx, nil
}

// WaitForTransaction consulta o digest até o fullnode indexar a transação.
// A espera é limitada pelo WaitTimeout do cliente (ou pelo ctx, se menor).
func (c *Client) WaitForTransaction(ctx context.Context, digest string, opts TransactionBlockOptions) (*TransactionBlock, error) {
	ctx, cancel := context.WithTimeout(ctx, c.waitTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		tx, err := c.GetTransactionBlock(ctx, digest, opts)
		if err == nil {
			return tx, nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait for transaction %s: %w", digest, errors.Join(ctx.Err(), lastErr))
		case <-ticker.C:
		}
	}
}

// GetOwnedObjects lista objetos do tipo structType pertencentes a owner,
// com conteúdo Move e a transação anterior.
func (c *Client) GetOwnedObjects(ctx context.Context, owner, structType string) ([]ObjectData, error) {
	query := map[string]interface{}{
		"filter": map[string]string{"StructType": structType},
		"options": map[string]bool{
			"showType":                true,
			"showContent":             true,
			"showPreviousTransaction": true,
		},
	}

	var (
		out    []ObjectData
		cursor *string
	)
	for page := 0; page < maxPages; page++ {
		result, err := c.call(ctx, "suix_getOwnedObjects", []interface{}{owner, query, cursor, pageLimit})
		if err != nil {
			return nil, fmt.Errorf("suix_getOwnedObjects: %w", err)
		}
		var p ObjectPage
		if err := json.Unmarshal(result, &p); err != nil {
			return nil, fmt.Errorf("unmarshal owned objects: %w", err)
		}
		for _, o := range p.Data {
			if o.Data != nil {
				out = append(out, *o.Data)
			}
		}
		if !p.HasNextPage || p.NextCursor == nil {
			return out, nil
		}
		cursor = p.NextCursor
	}
	c.log.Warn("owned objects listing truncated", zap.String("owner", owner), zap.Int("objects", len(out)))
	return out, nil
}
