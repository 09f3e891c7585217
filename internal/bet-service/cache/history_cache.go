package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// HistoryCache guarda o histórico de apostas por carteira (read-through).
// Cada carteira tem um contador de geração; a página fica na chave da geração
// lida antes da consulta ao banco. Invalidate incrementa a geração, então uma
// página montada antes de uma escrita nunca volta a ser servida.
type HistoryCache struct {
	R   *redis.Client
	TTL time.Duration
}

func New(r *redis.Client, ttl time.Duration) *HistoryCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &HistoryCache{R: r, TTL: ttl}
}

func keyGen(wallet string) string { return "bets:wallet:" + strings.ToLower(wallet) + ":gen" }

func keyPage(wallet string, gen int64) string {
	return "bets:wallet:" + strings.ToLower(wallet) + ":" + strconv.FormatInt(gen, 10)
}

// Get devolve a geração atual da carteira junto com o acerto; o chamador
// passa essa geração para Set.
func (c *HistoryCache) Get(ctx context.Context, wallet string, dst any) (int64, bool, error) {
	gen, err := c.R.Get(ctx, keyGen(wallet)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, false, err
	}
	b, err := c.R.Get(ctx, keyPage(wallet, gen)).Bytes()
	if errors.Is(err, redis.Nil) {
		return gen, false, nil
	}
	if err != nil {
		return gen, false, err
	}
	return gen, true, json.Unmarshal(b, dst)
}

func (c *HistoryCache) Set(ctx context.Context, wallet string, gen int64, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, keyPage(wallet, gen), b, c.TTL).Err()
}

func (c *HistoryCache) Invalidate(ctx context.Context, wallet string) error {
	return c.R.Incr(ctx, keyGen(wallet)).Err()
}
