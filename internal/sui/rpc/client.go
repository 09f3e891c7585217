package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/radieske/suibets-platform/internal/shared/metrics"
)

// Options ajusta timeouts e limites do cliente; zero usa os defaults.
type Options struct {
	RPS          float64       // requisições por segundo ao fullnode
	HTTPTimeout  time.Duration // timeout por requisição
	WaitTimeout  time.Duration // limite do WaitForTransaction
	PollInterval time.Duration // intervalo entre consultas no WaitForTransaction
}

const (
	defaultRPS          = 20
	defaultHTTPTimeout  = 30 * time.Second
	defaultWaitTimeout  = 60 * time.Second
	defaultPollInterval = 500 * time.Millisecond
)

// Client fala JSON-RPC com um fullnode Sui.
type Client struct {
	httpClient   *http.Client
	rpcURL       string
	requestID    atomic.Int64
	limiter      *rate.Limiter
	waitTimeout  time.Duration
	pollInterval time.Duration
	log          *zap.Logger
}

func NewClient(rpcURL string, log *zap.Logger, opts Options) *Client {
	if opts.RPS <= 0 {
		opts.RPS = defaultRPS
	}
	if opts.HTTPTimeout <= 0 {
		opts.HTTPTimeout = defaultHTTPTimeout
	}
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = defaultWaitTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	return &Client{
		httpClient:   &http.Client{Timeout: opts.HTTPTimeout},
		rpcURL:       rpcURL,
		limiter:      rate.NewLimiter(rate.Limit(opts.RPS), int(opts.RPS)+1),
		waitTimeout:  opts.WaitTimeout,
		pollInterval: opts.PollInterval,
		log:          log,
	}
}

func (c *Client) call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	req := Request{
		JSONRPC: "2.0",
		ID:      int(c.requestID.Add(1)),
		Method:  method,
		Params:  params,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	metrics.SuiRPCDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SuiRPCRequests.WithLabelValues(method, "transport_error").Inc()
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		metrics.SuiRPCRequests.WithLabelValues(method, "http_error").Inc()
		return nil, fmt.Errorf("http status %d: %s", resp.StatusCode, string(respBody))
	}

	var rpcResp Response
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if rpcResp.Error != nil {
		metrics.SuiRPCRequests.WithLabelValues(method, "rpc_error").Inc()
		return nil, rpcResp.Error
	}

	metrics.SuiRPCRequests.WithLabelValues(method, "ok").Inc()
	return rpcResp.Result, nil
}
