// Package starkcounter defines the shared types used to talk to a counter
// contract on a StarkNet-compatible network.
package starkcounter

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
)

// NotFound is returned by API methods if the requested item does not exist.
var NotFound = errors.New("not found")

// Call is a single contract invocation inside a transaction batch.
type Call struct {
	To         *Felt   `json:"contract_address"`
	Entrypoint string  `json:"entry_point"`
	Calldata   []*Felt `json:"calldata"`
}

// Selector returns the entry point selector of the call's function.
func (c Call) Selector() *Felt {
	return Selector(c.Entrypoint)
}

// ExecuteOptions carries the explicit fee/version configuration used when a
// batch is executed directly by the account.
type ExecuteOptions struct {
	Version string `json:"version,omitempty"`
	MaxFee  *Felt  `json:"max_fee,omitempty"`
}

// InvokeResult is the response to an accepted invoke transaction.
type InvokeResult struct {
	TransactionHash *Felt `json:"transaction_hash"`
}

// BlockID selects a block by tag, number or hash. The zero value is "latest".
type BlockID struct {
	Tag    string
	Number *uint64
	Hash   *Felt
}

var (
	LatestBlock  = BlockID{Tag: "latest"}
	PendingBlock = BlockID{Tag: "pending"}
)

// BlockNumber selects a block by height.
func BlockNumber(n uint64) BlockID {
	return BlockID{Number: &n}
}

func (b BlockID) MarshalJSON() ([]byte, error) {
	switch {
	case b.Hash != nil:
		return json.Marshal(map[string]*Felt{"block_hash": b.Hash})
	case b.Number != nil:
		return json.Marshal(map[string]uint64{"block_number": *b.Number})
	case b.Tag != "":
		return json.Marshal(b.Tag)
	default:
		return json.Marshal(LatestBlock.Tag)
	}
}

func (b BlockID) String() string {
	switch {
	case b.Hash != nil:
		return b.Hash.Hex()
	case b.Number != nil:
		return strconv.FormatUint(*b.Number, 10)
	case b.Tag != "":
		return b.Tag
	default:
		return LatestBlock.Tag
	}
}

// EventFilter selects emitted events. Keys is matched positionally; an empty
// inner slice matches any key at that position.
type EventFilter struct {
	FromBlock         *BlockID
	ToBlock           *BlockID
	Address           *Felt
	Keys              [][]*Felt
	ChunkSize         int
	ContinuationToken string
}

// EmittedEvent is an event together with the location it was emitted at.
type EmittedEvent struct {
	FromAddress     *Felt   `json:"from_address"`
	Keys            []*Felt `json:"keys"`
	Data            []*Felt `json:"data"`
	BlockHash       *Felt   `json:"block_hash,omitempty"`
	BlockNumber     uint64  `json:"block_number,omitempty"`
	TransactionHash *Felt   `json:"transaction_hash"`
}

// ContractCaller executes read-only contract calls.
type ContractCaller interface {
	Call(ctx context.Context, call Call, block BlockID) ([]*Felt, error)
}
