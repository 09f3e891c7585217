package rpc

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// JSON-RPC request/response

type Request struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error,omitempty"`
}

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// suix_getCoins
type Coin struct {
	CoinType            string `json:"coinType"`
	CoinObjectID        string `json:"coinObjectId"`
	Version             string `json:"version"`
	Digest              string `json:"digest"`
	Balance             string `json:"balance"`
	PreviousTransaction string `json:"previousTransaction"`
}

// BalanceUnits retorna o saldo na menor unidade (MIST para SUI).
func (c Coin) BalanceUnits() (uint64, error) {
	v, err := strconv.ParseUint(c.Balance, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("coin %s balance %q: %w", c.CoinObjectID, c.Balance, err)
	}
	return v, nil
}

type CoinPage struct {
	Data        []Coin  `json:"data"`
	NextCursor  *string `json:"nextCursor"`
	HasNextPage bool    `json:"hasNextPage"`
}

// sui_getTransactionBlock / sui_executeTransactionBlock
type TransactionBlockOptions struct {
	ShowInput         bool `json:"showInput,omitempty"`
	ShowEffects       bool `json:"showEffects,omitempty"`
	ShowEvents        bool `json:"showEvents,omitempty"`
	ShowObjectChanges bool `json:"showObjectChanges,omitempty"`
}

type TransactionBlock struct {
	Digest        string         `json:"digest"`
	Effects       *Effects       `json:"effects,omitempty"`
	ObjectChanges []ObjectChange `json:"objectChanges,omitempty"`
	TimestampMs   string         `json:"timestampMs,omitempty"`
	Checkpoint    string         `json:"checkpoint,omitempty"`
}

type Effects struct {
	Status ExecutionStatus `json:"status"`
}

type ExecutionStatus struct {
	Status string `json:"status"` // success | failure
	Error  string `json:"error,omitempty"`
}

// ObjectChange.Type: created | mutated | deleted | wrapped | published | transferred
type ObjectChange struct {
	Type       string          `json:"type"`
	Sender     string          `json:"sender,omitempty"`
	Owner      json.RawMessage `json:"owner,omitempty"`
	ObjectType string          `json:"objectType,omitempty"`
	ObjectID   string          `json:"objectId,omitempty"`
	Version    string          `json:"version,omitempty"`
	Digest     string          `json:"digest,omitempty"`
}

// suix_getOwnedObjects
type ObjectResponse struct {
	Data  *ObjectData     `json:"data,omitempty"`
	Error json.RawMessage `json:"error,omitempty"`
}

type ObjectData struct {
	ObjectID            string       `json:"objectId"`
	Version             string       `json:"version"`
	Digest              string       `json:"digest"`
	Type                string       `json:"type,omitempty"`
	PreviousTransaction string       `json:"previousTransaction,omitempty"`
	Content             *MoveContent `json:"content,omitempty"`
}

type MoveContent struct {
	DataType string          `json:"dataType"`
	Type     string          `json:"type"`
	Fields   json.RawMessage `json:"fields"`
}

type ObjectPage struct {
	Data        []ObjectResponse `json:"data"`
	NextCursor  *string          `json:"nextCursor"`
	HasNextPage bool             `json:"hasNextPage"`
}
