package txbuilder

import (
	"encoding/binary"
	"fmt"
)

// Transaction é uma programmable transaction ainda não assinada. Os argumentos
// puros carregam bytes BCS junto com o tipo Move, para que a carteira consiga
// decodificá-los sem adivinhar.
type Transaction struct {
	Sender     string      `json:"sender"`
	GasBudget  uint64      `json:"gasBudget"`
	GasPayment []ObjectRef `json:"gasPayment,omitempty"`
	Inputs     []Input     `json:"inputs"`
	Commands   []Command   `json:"commands"`
	Summary    Summary     `json:"summary"`
}

// Summary repete os parâmetros da aposta já convertidos para o formato on-chain.
type Summary struct {
	EventID     string `json:"eventId"`
	MarketID    string `json:"marketId"`
	Prediction  string `json:"prediction"`
	StakeUnits  uint64 `json:"stakeUnits"`
	OddsBps     uint64 `json:"oddsBps"`
	Currency    string `json:"currency"`
	CoinType    string `json:"coinType"`
	StakeCoinID string `json:"stakeCoinId"`
	BlobID      string `json:"blobId,omitempty"`
}

type ObjectRef struct {
	ObjectID string `json:"objectId"`
	Version  string `json:"version"`
	Digest   string `json:"digest"`
}

type InputKind string

const (
	InputObject InputKind = "object"
	InputPure   InputKind = "pure"
)

const (
	TypeU64     = "u64"
	TypeVecU8   = "vector<u8>"
	TypeAddress = "address"
)

type Input struct {
	Kind     InputKind `json:"kind"`
	ObjectID string    `json:"objectId,omitempty"`
	Type     string    `json:"type,omitempty"`
	BCS      []byte    `json:"bcs,omitempty"`
}

type ArgumentKind string

const (
	ArgInput   ArgumentKind = "Input"
	ArgResult  ArgumentKind = "Result"
	ArgGasCoin ArgumentKind = "GasCoin"
)

type Argument struct {
	Kind  ArgumentKind `json:"kind"`
	Index uint16       `json:"index"`
}

const (
	CmdSplitCoins = "SplitCoins"
	CmdMoveCall   = "MoveCall"
)

type Command struct {
	Kind       string      `json:"kind"`
	SplitCoins *SplitCoins `json:"splitCoins,omitempty"`
	MoveCall   *MoveCall   `json:"moveCall,omitempty"`
}

type SplitCoins struct {
	Coin    Argument   `json:"coin"`
	Amounts []Argument `json:"amounts"`
}

type MoveCall struct {
	Target        string     `json:"target"`
	TypeArguments []string   `json:"typeArguments,omitempty"`
	Arguments     []Argument `json:"arguments"`
}

func (t *Transaction) addObject(id string) Argument {
	t.Inputs = append(t.Inputs, Input{Kind: InputObject, ObjectID: id})
	return Argument{Kind: ArgInput, Index: uint16(len(t.Inputs) - 1)}
}

func (t *Transaction) addPure(typ string, bcs []byte) Argument {
	t.Inputs = append(t.Inputs, Input{Kind: InputPure, Type: typ, BCS: bcs})
	return Argument{Kind: ArgInput, Index: uint16(len(t.Inputs) - 1)}
}

func (t *Transaction) addCommand(c Command) Argument {
	t.Commands = append(t.Commands, c)
	return Argument{Kind: ArgResult, Index: uint16(len(t.Commands) - 1)}
}

// EncodeU64 serializa um u64 em BCS (little endian, 8 bytes).
func EncodeU64(v uint64) []byte {
	return binary.LittleEndian.AppendUint64(make([]byte, 0, 8), v)
}

// EncodeBytes serializa vector<u8> em BCS: tamanho ULEB128 seguido dos bytes.
func EncodeBytes(b []byte) []byte {
	out := binary.AppendUvarint(make([]byte, 0, len(b)+binary.MaxVarintLen32), uint64(len(b)))
	return append(out, b...)
}

// DecodeU64 lê um argumento puro u64.
func DecodeU64(in Input) (uint64, error) {
	if in.Kind != InputPure || in.Type != TypeU64 || len(in.BCS) != 8 {
		return 0, fmt.Errorf("input is not a pure u64: kind=%s type=%s len=%d", in.Kind, in.Type, len(in.BCS))
	}
	return binary.LittleEndian.Uint64(in.BCS), nil
}

// DecodeBytes lê um argumento puro vector<u8>.
func DecodeBytes(in Input) ([]byte, error) {
	if in.Kind != InputPure || in.Type != TypeVecU8 {
		return nil, fmt.Errorf("input is not a pure vector<u8>: kind=%s type=%s", in.Kind, in.Type)
	}
	n, sz := binary.Uvarint(in.BCS)
	if sz <= 0 || uint64(len(in.BCS)-sz) != n {
		return nil, fmt.Errorf("malformed vector<u8> length prefix")
	}
	return in.BCS[sz:], nil
}
