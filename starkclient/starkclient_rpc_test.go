package starkclient

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/tos-network/starkcounter"
)

type rpcTestError struct {
	msg  string
	code int
	data interface{}
}

func (e rpcTestError) Error() string          { return e.msg }
func (e rpcTestError) ErrorCode() int         { return e.code }
func (e rpcTestError) ErrorData() interface{} { return e.data }

type callRequest struct {
	ContractAddress    *starkcounter.Felt   `json:"contract_address"`
	EntryPointSelector *starkcounter.Felt   `json:"entry_point_selector"`
	Calldata           []*starkcounter.Felt `json:"calldata"`
}

type eventsRequest struct {
	FromBlock         json.RawMessage        `json:"from_block"`
	Address           *starkcounter.Felt     `json:"address"`
	Keys              [][]*starkcounter.Felt `json:"keys"`
	ChunkSize         int                    `json:"chunk_size"`
	ContinuationToken string                 `json:"continuation_token"`
}

type rpcTestService struct {
	lastCall      callRequest
	lastCallBlock string
	lastNonceAddr *starkcounter.Felt
	lastEvents    []eventsRequest
	receipts      map[string]*Receipt
}

func (s *rpcTestService) ChainId() *starkcounter.Felt {
	return starkcounter.MustParseFelt("0x534e5f5345504f4c4941")
}

func (s *rpcTestService) SpecVersion() string { return "0.7.1" }

func (s *rpcTestService) BlockNumber() uint64 { return 4242 }

func (s *rpcTestService) Call(req callRequest, block json.RawMessage) ([]*starkcounter.Felt, error) {
	s.lastCall = req
	s.lastCallBlock = string(block)
	if req.ContractAddress.IsZero() {
		return nil, rpcTestError{msg: "Contract not found", code: ErrCodeContractNotFound}
	}
	return []*starkcounter.Felt{starkcounter.NewFelt(7)}, nil
}

func (s *rpcTestService) GetNonce(block json.RawMessage, address *starkcounter.Felt) *starkcounter.Felt {
	s.lastNonceAddr = address
	return starkcounter.NewFelt(3)
}

func (s *rpcTestService) GetTransactionReceipt(hash *starkcounter.Felt) (*Receipt, error) {
	if r, ok := s.receipts[hash.Hex()]; ok {
		return r, nil
	}
	return nil, rpcTestError{msg: "Transaction hash not found", code: ErrCodeTxnHashNotFound}
}

func (s *rpcTestService) GetTransactionStatus(hash *starkcounter.Felt) (*TransactionStatus, error) {
	r, ok := s.receipts[hash.Hex()]
	if !ok {
		return nil, rpcTestError{msg: "Transaction hash not found", code: ErrCodeTxnHashNotFound}
	}
	return &TransactionStatus{FinalityStatus: r.FinalityStatus, ExecutionStatus: r.ExecutionStatus}, nil
}

func (s *rpcTestService) GetEvents(filter eventsRequest) (*EventsPage, error) {
	s.lastEvents = append(s.lastEvents, filter)
	switch filter.ContinuationToken {
	case "":
		return &EventsPage{
			Events: []starkcounter.EmittedEvent{{
				FromAddress:     filter.Address,
				Keys:            []*starkcounter.Felt{starkcounter.NewFelt(1)},
				Data:            []*starkcounter.Felt{starkcounter.NewFelt(0), starkcounter.NewFelt(1)},
				BlockNumber:     10,
				TransactionHash: starkcounter.NewFelt(0xaa),
			}},
			ContinuationToken: "page-2",
		}, nil
	case "page-2":
		return &EventsPage{
			Events: []starkcounter.EmittedEvent{{
				FromAddress:     filter.Address,
				Keys:            []*starkcounter.Felt{starkcounter.NewFelt(1)},
				Data:            []*starkcounter.Felt{starkcounter.NewFelt(1), starkcounter.NewFelt(2)},
				BlockNumber:     11,
				TransactionHash: starkcounter.NewFelt(0xbb),
			}},
		}, nil
	}
	return nil, rpcTestError{msg: "Invalid continuation token", code: ErrCodeInvalidContinuation}
}

func newRPCTestClient(t *testing.T, opts ...Option) (*Client, *rpcTestService) {
	t.Helper()
	server := rpc.NewServer()
	service := &rpcTestService{receipts: make(map[string]*Receipt)}
	if err := server.RegisterName("starknet", service); err != nil {
		t.Fatalf("failed to register starknet service: %v", err)
	}
	raw := rpc.DialInProc(server)
	client := NewClient(raw, opts...)
	t.Cleanup(func() {
		raw.Close()
		server.Stop()
	})
	return client, service
}

func TestChainAndBlock(t *testing.T) {
	client, _ := newRPCTestClient(t)
	ctx := context.Background()

	id, err := client.ChainID(ctx)
	if err != nil {
		t.Fatalf("ChainID error: %v", err)
	}
	if id.Hex() != "0x534e5f5345504f4c4941" {
		t.Fatalf("unexpected chain id: %v", id)
	}
	number, err := client.BlockNumber(ctx)
	if err != nil || number != 4242 {
		t.Fatalf("BlockNumber = %d, %v", number, err)
	}
	version, err := client.SpecVersion(ctx)
	if err != nil || version != "0.7.1" {
		t.Fatalf("SpecVersion = %q, %v", version, err)
	}
}

func TestCallAndNonce(t *testing.T) {
	client, svc := newRPCTestClient(t)
	ctx := context.Background()

	contract := starkcounter.NewFelt(0x1234)
	result, err := client.Call(ctx, starkcounter.Call{To: contract, Entrypoint: "get_counter"}, starkcounter.LatestBlock)
	if err != nil {
		t.Fatalf("Call error: %v", err)
	}
	if len(result) != 1 || result[0].Uint64() != 7 {
		t.Fatalf("unexpected call result: %v", result)
	}
	if svc.lastCall.ContractAddress.Cmp(contract) != 0 {
		t.Fatalf("unexpected contract address: %v", svc.lastCall.ContractAddress)
	}
	if svc.lastCall.EntryPointSelector.Hex() != "0x3370263ab53343580e77063a719a5865004caff7f367ec136a6cdd34b6786ca" {
		t.Fatalf("unexpected selector: %v", svc.lastCall.EntryPointSelector)
	}
	if svc.lastCall.Calldata == nil || len(svc.lastCall.Calldata) != 0 {
		t.Fatalf("calldata should be sent as an empty array, have %v", svc.lastCall.Calldata)
	}
	if svc.lastCallBlock != `"latest"` {
		t.Fatalf("unexpected block id: %s", svc.lastCallBlock)
	}

	if _, err := client.Call(ctx, starkcounter.Call{To: starkcounter.NewFelt(0), Entrypoint: "get_counter"}, starkcounter.BlockNumber(9)); err == nil {
		t.Fatal("expected contract not found error")
	}
	if svc.lastCallBlock != `{"block_number":9}` {
		t.Fatalf("unexpected block id: %s", svc.lastCallBlock)
	}

	nonce, err := client.Nonce(ctx, contract, starkcounter.PendingBlock)
	if err != nil || nonce.Uint64() != 3 {
		t.Fatalf("Nonce = %v, %v", nonce, err)
	}
	if svc.lastNonceAddr.Cmp(contract) != 0 {
		t.Fatalf("unexpected nonce address: %v", svc.lastNonceAddr)
	}
}

func TestTransactionReceipt(t *testing.T) {
	client, svc := newRPCTestClient(t)
	ctx := context.Background()

	hash := starkcounter.NewFelt(0xfeed)
	if _, err := client.TransactionReceipt(ctx, hash); !errors.Is(err, starkcounter.NotFound) {
		t.Fatalf("unknown receipt error = %v, want NotFound", err)
	}
	if _, err := client.TransactionStatus(ctx, hash); !errors.Is(err, starkcounter.NotFound) {
		t.Fatalf("unknown status error = %v, want NotFound", err)
	}

	svc.receipts[hash.Hex()] = &Receipt{
		TransactionHash: hash,
		Type:            "INVOKE",
		ExecutionStatus: ExecutionSucceeded,
		FinalityStatus:  FinalityAcceptedOnL2,
		BlockNumber:     12,
		ActualFee:       &FeePayment{Amount: starkcounter.NewFelt(100), Unit: "FRI"},
		Events:          []Event{{FromAddress: starkcounter.NewFelt(1), Keys: []*starkcounter.Felt{}, Data: []*starkcounter.Felt{}}},
	}
	receipt, err := client.TransactionReceipt(ctx, hash)
	if err != nil {
		t.Fatalf("TransactionReceipt error: %v", err)
	}
	if !receipt.Succeeded() || receipt.BlockNumber != 12 || len(receipt.Events) != 1 {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}
	if receipt.ActualFee == nil || receipt.ActualFee.Amount.Uint64() != 100 {
		t.Fatalf("unexpected fee: %+v", receipt.ActualFee)
	}
	status, err := client.TransactionStatus(ctx, hash)
	if err != nil || status.FinalityStatus != FinalityAcceptedOnL2 {
		t.Fatalf("TransactionStatus = %+v, %v", status, err)
	}

	svc.receipts[hash.Hex()].ExecutionStatus = ExecutionReverted
	receipt, err = client.TransactionReceipt(ctx, hash)
	if err != nil || receipt.Succeeded() {
		t.Fatalf("reverted receipt should not succeed: %+v, %v", receipt, err)
	}
}

func TestEventsPaging(t *testing.T) {
	client, svc := newRPCTestClient(t)
	ctx := context.Background()

	from := starkcounter.BlockNumber(5)
	filter := starkcounter.EventFilter{
		FromBlock: &from,
		Address:   starkcounter.NewFelt(0x1234),
		Keys:      [][]*starkcounter.Felt{{starkcounter.Selector("CounterChanged")}},
		ChunkSize: 1,
	}
	var blocks []uint64
	for {
		page, err := client.Events(ctx, filter)
		if err != nil {
			t.Fatalf("Events error: %v", err)
		}
		for _, ev := range page.Events {
			blocks = append(blocks, ev.BlockNumber)
		}
		if page.ContinuationToken == "" {
			break
		}
		filter.ContinuationToken = page.ContinuationToken
	}
	if len(blocks) != 2 || blocks[0] != 10 || blocks[1] != 11 {
		t.Fatalf("unexpected event blocks: %v", blocks)
	}
	first := svc.lastEvents[0]
	if string(first.FromBlock) != `{"block_number":5}` || first.ChunkSize != 1 {
		t.Fatalf("unexpected filter: %+v", first)
	}
	if len(first.Keys) != 1 || first.Keys[0][0].Cmp(starkcounter.Selector("CounterChanged")) != 0 {
		t.Fatalf("unexpected keys: %v", first.Keys)
	}

	filter.ContinuationToken = "bogus"
	_, err := client.Events(ctx, filter)
	var rpcErr rpc.Error
	if !errors.As(err, &rpcErr) || rpcErr.ErrorCode() != ErrCodeInvalidContinuation {
		t.Fatalf("Events error = %v, want code %d", err, ErrCodeInvalidContinuation)
	}
}

func TestRateLimit(t *testing.T) {
	client, _ := newRPCTestClient(t, WithRateLimit(1000, 0))
	if client.limiter == nil || client.limiter.Burst() != 1 {
		t.Fatalf("limiter not configured: %+v", client.limiter)
	}
	if _, err := client.BlockNumber(context.Background()); err != nil {
		t.Fatalf("BlockNumber error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.BlockNumber(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled call error = %v", err)
	}

	unlimited, _ := newRPCTestClient(t, WithRateLimit(0, 5))
	if unlimited.limiter != nil {
		t.Fatal("zero rate should disable limiting")
	}
}
