// Package starkclient provides a client for the StarkNet JSON-RPC API.
package starkclient

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/metrics"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/tos-network/starkcounter"
	"golang.org/x/time/rate"
)

// Error codes defined by the StarkNet JSON-RPC specification.
const (
	ErrCodeContractNotFound    = 20
	ErrCodeBlockNotFound       = 24
	ErrCodeTxnHashNotFound     = 29
	ErrCodeInvalidContinuation = 33
	ErrCodeContractError       = 40
	ErrCodeTxnExecutionError   = 41
)

// Transaction execution and finality statuses.
const (
	ExecutionSucceeded = "SUCCEEDED"
	ExecutionReverted  = "REVERTED"

	FinalityReceived     = "RECEIVED"
	FinalityRejected     = "REJECTED"
	FinalityAcceptedOnL2 = "ACCEPTED_ON_L2"
	FinalityAcceptedOnL1 = "ACCEPTED_ON_L1"
)

var (
	requestMeter = metrics.NewRegisteredMeter("starkclient/requests", nil)
	errorMeter   = metrics.NewRegisteredMeter("starkclient/errors", nil)
	requestTimer = metrics.NewRegisteredTimer("starkclient/duration", nil)
)

// Client defines typed wrappers for the StarkNet RPC API.
type Client struct {
	c       *rpc.Client
	limiter *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithRateLimit caps outgoing requests to rps per second with the given burst.
// Public RPC providers throttle aggressively, so polling clients should set it.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps > 0 {
			if burst < 1 {
				burst = 1
			}
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// FeePayment is the fee charged for a transaction.
type FeePayment struct {
	Amount *starkcounter.Felt `json:"amount"`
	Unit   string             `json:"unit"`
}

// Event is an event emitted during transaction execution.
type Event struct {
	FromAddress *starkcounter.Felt   `json:"from_address"`
	Keys        []*starkcounter.Felt `json:"keys"`
	Data        []*starkcounter.Felt `json:"data"`
}

// Receipt is the execution record of a transaction.
type Receipt struct {
	TransactionHash *starkcounter.Felt `json:"transaction_hash"`
	Type            string             `json:"type"`
	ExecutionStatus string             `json:"execution_status"`
	FinalityStatus  string             `json:"finality_status"`
	RevertReason    string             `json:"revert_reason,omitempty"`
	BlockHash       *starkcounter.Felt `json:"block_hash,omitempty"`
	BlockNumber     uint64             `json:"block_number,omitempty"`
	ActualFee       *FeePayment        `json:"actual_fee,omitempty"`
	Events          []Event            `json:"events"`
}

// Succeeded reports whether the transaction executed without reverting.
func (r *Receipt) Succeeded() bool {
	return r != nil && r.ExecutionStatus == ExecutionSucceeded
}

// TransactionStatus is the lightweight status returned before a receipt exists.
type TransactionStatus struct {
	FinalityStatus  string `json:"finality_status"`
	ExecutionStatus string `json:"execution_status,omitempty"`
	FailureReason   string `json:"failure_reason,omitempty"`
}

// EventsPage is one page of starknet_getEvents results.
type EventsPage struct {
	Events            []starkcounter.EmittedEvent `json:"events"`
	ContinuationToken string                      `json:"continuation_token,omitempty"`
}

// Dial connects a client to the given URL.
func Dial(rawurl string, opts ...Option) (*Client, error) {
	return DialContext(context.Background(), rawurl, opts...)
}

func DialContext(ctx context.Context, rawurl string, opts ...Option) (*Client, error) {
	c, err := rpc.DialContext(ctx, rawurl)
	if err != nil {
		return nil, err
	}
	return NewClient(c, opts...), nil
}

// NewClient creates a client that uses the given RPC client.
func NewClient(c *rpc.Client, opts ...Option) *Client {
	ec := &Client{c: c}
	for _, opt := range opts {
		opt(ec)
	}
	return ec
}

func (ec *Client) Close() {
	ec.c.Close()
}

// RPC returns the underlying RPC client.
func (ec *Client) RPC() *rpc.Client {
	return ec.c
}

func (ec *Client) call(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	if ec.limiter != nil {
		if err := ec.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	start := time.Now()
	requestMeter.Mark(1)
	err := ec.c.CallContext(ctx, result, method, args...)
	requestTimer.UpdateSince(start)
	if err != nil {
		errorMeter.Mark(1)
	}
	return err
}

// ChainID retrieves the chain identifier used for transaction replay protection.
func (ec *Client) ChainID(ctx context.Context) (*starkcounter.Felt, error) {
	var id starkcounter.Felt
	if err := ec.call(ctx, &id, "starknet_chainId"); err != nil {
		return nil, err
	}
	return &id, nil
}

// SpecVersion returns the JSON-RPC specification version implemented by the node.
func (ec *Client) SpecVersion(ctx context.Context) (string, error) {
	var version string
	err := ec.call(ctx, &version, "starknet_specVersion")
	return version, err
}

// BlockNumber returns the most recent block number.
func (ec *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var number uint64
	err := ec.call(ctx, &number, "starknet_blockNumber")
	return number, err
}

// Call executes a read-only contract call at the given block and returns the
// raw result felts.
func (ec *Client) Call(ctx context.Context, call starkcounter.Call, block starkcounter.BlockID) ([]*starkcounter.Felt, error) {
	var result []*starkcounter.Felt
	if err := ec.call(ctx, &result, "starknet_call", toCallArg(call), block); err != nil {
		return nil, err
	}
	return result, nil
}

// Nonce returns the nonce of a contract at the given block.
func (ec *Client) Nonce(ctx context.Context, address *starkcounter.Felt, block starkcounter.BlockID) (*starkcounter.Felt, error) {
	var nonce starkcounter.Felt
	if err := ec.call(ctx, &nonce, "starknet_getNonce", block, address); err != nil {
		return nil, err
	}
	return &nonce, nil
}

// TransactionReceipt returns the receipt of a transaction by transaction hash.
// Transactions the node has not seen yet yield starkcounter.NotFound.
func (ec *Client) TransactionReceipt(ctx context.Context, txHash *starkcounter.Felt) (*Receipt, error) {
	var r *Receipt
	err := ec.call(ctx, &r, "starknet_getTransactionReceipt", txHash)
	if err != nil {
		return nil, notFound(err)
	}
	if r == nil {
		return nil, starkcounter.NotFound
	}
	return r, nil
}

// TransactionStatus returns the finality and execution status of a transaction.
func (ec *Client) TransactionStatus(ctx context.Context, txHash *starkcounter.Felt) (*TransactionStatus, error) {
	var s *TransactionStatus
	err := ec.call(ctx, &s, "starknet_getTransactionStatus", txHash)
	if err != nil {
		return nil, notFound(err)
	}
	if s == nil {
		return nil, starkcounter.NotFound
	}
	return s, nil
}

// Events returns one page of events matching the filter. Pass the returned
// continuation token back in the filter to fetch the next page.
func (ec *Client) Events(ctx context.Context, q starkcounter.EventFilter) (*EventsPage, error) {
	var page EventsPage
	if err := ec.call(ctx, &page, "starknet_getEvents", toFilterArg(q)); err != nil {
		return nil, err
	}
	return &page, nil
}

func notFound(err error) error {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == ErrCodeTxnHashNotFound {
		return starkcounter.NotFound
	}
	return err
}

func toCallArg(call starkcounter.Call) interface{} {
	calldata := call.Calldata
	if calldata == nil {
		calldata = []*starkcounter.Felt{}
	}
	return map[string]interface{}{
		"contract_address":     call.To,
		"entry_point_selector": call.Selector(),
		"calldata":             calldata,
	}
}

func toFilterArg(q starkcounter.EventFilter) interface{} {
	arg := map[string]interface{}{}
	if q.FromBlock != nil {
		arg["from_block"] = *q.FromBlock
	}
	if q.ToBlock != nil {
		arg["to_block"] = *q.ToBlock
	}
	if q.Address != nil {
		arg["address"] = q.Address
	}
	if len(q.Keys) > 0 {
		arg["keys"] = q.Keys
	}
	if q.ChunkSize > 0 {
		arg["chunk_size"] = q.ChunkSize
	}
	if q.ContinuationToken != "" {
		arg["continuation_token"] = q.ContinuationToken
	}
	return arg
}
