package counter

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tos-network/starkcounter"
	"github.com/tos-network/starkcounter/contractvalue"
	"github.com/tos-network/starkcounter/token"
)

// mapCaller answers view calls from a table keyed by contract and entry point.
type mapCaller struct {
	mu      sync.Mutex
	results map[string][]*starkcounter.Felt
	err     error
	calls   int32
	gate    chan struct{}
}

func newMapCaller() *mapCaller {
	return &mapCaller{results: make(map[string][]*starkcounter.Felt)}
}

func key(to *starkcounter.Felt, fn string) string { return to.Hex() + "/" + fn }

func (m *mapCaller) set(to *starkcounter.Felt, fn string, out ...*starkcounter.Felt) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[key(to, fn)] = out
}

func (m *mapCaller) Call(ctx context.Context, call starkcounter.Call, block starkcounter.BlockID) ([]*starkcounter.Felt, error) {
	atomic.AddInt32(&m.calls, 1)
	if m.gate != nil {
		<-m.gate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out, ok := m.results[key(call.To, call.Entrypoint)]
	if !ok {
		return nil, errors.New("entry point not found: " + call.Entrypoint)
	}
	return out, nil
}

var counterAddr = starkcounter.NewFelt(0xc0)

func TestContractReads(t *testing.T) {
	caller := newMapCaller()
	caller.set(counterAddr, GetCounterFn, starkcounter.NewFelt(41))
	caller.set(counterAddr, OwnerFn, starkcounter.NewFelt(0xabc))
	c := NewContract(counterAddr, caller)
	ctx := context.Background()

	v, err := c.Value(ctx)
	require.NoError(t, err)
	assert.Equal(t, "41", contractvalue.ToDisplayString(v, "?"))

	n, err := c.Counter(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(41), n.Int64())

	owner, err := c.Owner(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0xabc", owner.Hex())

	caller.set(counterAddr, GetCounterFn)
	_, err = c.Counter(ctx)
	assert.Error(t, err)

	caller.err = errors.New("rpc down")
	_, err = c.Value(ctx)
	assert.ErrorContains(t, err, "get_counter: rpc down")
}

func TestContractReadsCoalesce(t *testing.T) {
	caller := newMapCaller()
	caller.set(counterAddr, GetCounterFn, starkcounter.NewFelt(7))
	caller.gate = make(chan struct{})
	c := NewContract(counterAddr, caller)

	var wg sync.WaitGroup
	results := make([]*big.Int, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = c.Counter(context.Background())
		}(i)
	}
	// Let the goroutines pile up behind the first call.
	time.Sleep(50 * time.Millisecond)
	close(caller.gate)
	wg.Wait()

	for i, r := range results {
		require.NotNil(t, r, "reader %d", i)
		assert.Equal(t, int64(7), r.Int64())
	}
	assert.Less(t, atomic.LoadInt32(&caller.calls), int32(len(results)))
}

func TestWriteCalls(t *testing.T) {
	c := NewContract(counterAddr, nil)
	for fn, call := range map[string]starkcounter.Call{
		IncreaseFn: c.IncreaseCall(),
		DecreaseFn: c.DecreaseCall(),
		ResetFn:    c.ResetCall(),
	} {
		assert.Equal(t, fn, call.Entrypoint)
		assert.Equal(t, 0, call.To.Cmp(counterAddr))
		assert.NotNil(t, call.Calldata)
		assert.Empty(t, call.Calldata)
	}
	set := c.SetCall(12)
	assert.Equal(t, SetFn, set.Entrypoint)
	require.Len(t, set.Calldata, 1)
	assert.Equal(t, uint64(12), set.Calldata[0].Uint64())
}

func TestCanDecrease(t *testing.T) {
	assert.False(t, CanDecrease(contractvalue.Null()))
	assert.False(t, CanDecrease(contractvalue.Int(0)))
	assert.False(t, CanDecrease(contractvalue.String("garbage")))
	assert.True(t, CanDecrease(contractvalue.Array(contractvalue.Int(1))))

	assert.ErrorIs(t, ValidateDecrease(contractvalue.Null()), ErrUnknownValue)
	assert.ErrorIs(t, ValidateDecrease(contractvalue.Int(0)), ErrCounterZero)
	assert.NoError(t, ValidateDecrease(contractvalue.Int(3)))
}

func TestParseCounterInput(t *testing.T) {
	tests := []struct {
		in   string
		want uint32
		ok   bool
	}{
		{"0", 0, true},
		{" 42 ", 42, true},
		{"4294967295", 4294967295, true},
		{"4294967296", 0, false},
		{"-1", 0, false},
		{"1.5", 0, false},
		{"", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		have, err := ParseCounterInput(tt.in)
		if tt.ok {
			require.NoError(t, err, "input %q", tt.in)
			assert.Equal(t, tt.want, have)
		} else {
			assert.ErrorIs(t, err, ErrInvalidValue, "input %q", tt.in)
		}
	}
}

func TestValidateSet(t *testing.T) {
	owner := contractvalue.String("0x0abc")
	me := contractvalue.Felt(starkcounter.NewFelt(0xabc))
	other := contractvalue.String("0xdef")
	current := contractvalue.Array(contractvalue.Int(5))

	assert.True(t, IsOwner(me, owner))
	assert.True(t, IsOwner(contractvalue.String("2748"), owner))
	assert.False(t, IsOwner(contractvalue.Null(), owner))
	assert.False(t, IsOwner(me, contractvalue.String("not an address")))

	tests := []struct {
		input   string
		current contractvalue.Value
		account contractvalue.Value
		want    uint32
		err     error
	}{
		{"7", current, me, 7, nil},
		{"7", current, other, 0, ErrNotOwner},
		{"x", current, me, 0, ErrInvalidValue},
		{"5", current, me, 0, ErrUnchanged},
		{"5", contractvalue.Null(), me, 0, ErrUnknownValue},
	}
	for i, tt := range tests {
		have, err := ValidateSet(tt.input, tt.current, tt.account, owner)
		if tt.err != nil {
			assert.ErrorIs(t, err, tt.err, "test %d", i)
			continue
		}
		require.NoError(t, err, "test %d", i)
		assert.Equal(t, tt.want, have)
	}
}

func TestPrepareReset(t *testing.T) {
	strkAddr := starkcounter.NewFelt(0x57)
	account := starkcounter.NewFelt(0xacc)
	caller := newMapCaller()
	strk := token.NewERC20(strkAddr, "STRK", 18, caller)
	c := NewContract(counterAddr, caller)
	fee, err := ResetFee("1", 18)
	require.NoError(t, err)
	ctx := context.Background()

	oneToken := starkcounter.MustParseFelt("0xde0b6b3a7640000")
	justShort := starkcounter.MustParseFelt("0xde0b6b3a763ffff")
	zero := starkcounter.NewFelt(0)

	// One base unit short of the fee.
	caller.set(strkAddr, "balance_of", justShort, zero)
	_, err = c.PrepareReset(ctx, account, strk, fee)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	// Exactly the fee, no allowance yet.
	caller.set(strkAddr, "balance_of", oneToken, zero)
	caller.set(strkAddr, "allowance", zero, zero)
	calls, err := c.PrepareReset(ctx, account, strk, fee)
	require.NoError(t, err)
	require.Len(t, calls, 2)
	assert.Equal(t, "approve", calls[0].Entrypoint)
	assert.Equal(t, 0, calls[0].Calldata[0].Cmp(counterAddr))
	assert.Equal(t, ResetFn, calls[1].Entrypoint)

	// Allowance already covers the fee.
	caller.set(strkAddr, "allowance", oneToken, zero)
	calls, err = c.PrepareReset(ctx, account, strk, fee)
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, ResetFn, calls[0].Entrypoint)

	_, err = c.PrepareReset(ctx, nil, strk, fee)
	assert.ErrorIs(t, err, ErrNoAccount)

	_, err = ResetFee("lots", 18)
	assert.Error(t, err)
}
