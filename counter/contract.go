// Package counter binds the on-chain counter contract: reads, write calls,
// the guards applied before writes and the CounterChanged event history.
package counter

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/tos-network/starkcounter"
	"github.com/tos-network/starkcounter/contractvalue"
	"github.com/tos-network/starkcounter/token"
	"golang.org/x/sync/singleflight"
)

// Contract entry points.
const (
	GetCounterFn = "get_counter"
	OwnerFn      = "owner"
	IncreaseFn   = "increase_counter"
	DecreaseFn   = "decrease_counter"
	ResetFn      = "reset_counter"
	SetFn        = "set_counter"
)

var (
	ErrNotOwner            = errors.New("only the owner can set the counter value")
	ErrUnchanged           = errors.New("value hasn't changed")
	ErrInvalidValue        = errors.New("enter a valid non-negative integer")
	ErrUnknownValue        = errors.New("current counter value is unknown")
	ErrCounterZero         = errors.New("counter is already 0")
	ErrInsufficientBalance = errors.New("insufficient balance for reset fee")
	ErrNoAccount           = errors.New("no account connected")
)

// Contract is a binding to a deployed counter contract.
type Contract struct {
	Address *starkcounter.Felt

	caller starkcounter.ContractCaller
	block  starkcounter.BlockID
	reads  singleflight.Group
}

// NewContract binds the counter deployed at address. Reads go to the latest
// block.
func NewContract(address *starkcounter.Felt, caller starkcounter.ContractCaller) *Contract {
	return &Contract{Address: address, caller: caller, block: starkcounter.LatestBlock}
}

// read performs a view call. Identical reads issued while one is outstanding
// share its result.
func (c *Contract) read(ctx context.Context, fn string) ([]*starkcounter.Felt, error) {
	v, err, _ := c.reads.Do(fn, func() (interface{}, error) {
		return c.caller.Call(ctx, starkcounter.Call{To: c.Address, Entrypoint: fn}, c.block)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	return v.([]*starkcounter.Felt), nil
}

// Value returns the raw get_counter result.
func (c *Contract) Value(ctx context.Context) (contractvalue.Value, error) {
	out, err := c.read(ctx, GetCounterFn)
	if err != nil {
		return contractvalue.Null(), err
	}
	return contractvalue.Felts(out), nil
}

// Counter returns the counter value.
func (c *Contract) Counter(ctx context.Context) (*big.Int, error) {
	v, err := c.Value(ctx)
	if err != nil {
		return nil, err
	}
	if v.Len() == 0 {
		return nil, fmt.Errorf("%s: empty result", GetCounterFn)
	}
	return contractvalue.ToSafeBigInt(v), nil
}

// Owner returns the address of the contract owner.
func (c *Contract) Owner(ctx context.Context) (*starkcounter.Felt, error) {
	out, err := c.read(ctx, OwnerFn)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: empty result", OwnerFn)
	}
	return out[0], nil
}

func (c *Contract) call(fn string, args ...*starkcounter.Felt) starkcounter.Call {
	if args == nil {
		args = []*starkcounter.Felt{}
	}
	return starkcounter.Call{To: c.Address, Entrypoint: fn, Calldata: args}
}

func (c *Contract) IncreaseCall() starkcounter.Call { return c.call(IncreaseFn) }
func (c *Contract) DecreaseCall() starkcounter.Call { return c.call(DecreaseFn) }
func (c *Contract) ResetCall() starkcounter.Call    { return c.call(ResetFn) }

func (c *Contract) SetCall(v uint32) starkcounter.Call {
	return c.call(SetFn, starkcounter.NewFelt(uint64(v)))
}

// CanDecrease reports whether a decrease may be offered for the displayed
// counter value. Unknown values and zero disable it.
func CanDecrease(current contractvalue.Value) bool {
	if current.IsNull() {
		return false
	}
	return contractvalue.ToSafeBigInt(current).Sign() > 0
}

// ParseCounterInput parses a user-supplied counter value. Only non-negative
// integers that fit a u32 are accepted.
func ParseCounterInput(input string) (uint32, error) {
	s := strings.TrimSpace(input)
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidValue, input)
	}
	return uint32(n), nil
}

// IsOwner reports whether account and owner denote the same address. Both
// are normalized to integers, so "0x0abc", "0xabc" and "2748" compare equal.
// Unknown values are never the owner.
func IsOwner(account, owner contractvalue.Value) bool {
	a, ok := contractvalue.ToHexString(account)
	if !ok {
		return false
	}
	o, ok := contractvalue.ToHexString(owner)
	if !ok {
		return false
	}
	return a == o
}

// ValidateSet checks a set_counter request and returns the value to send.
func ValidateSet(input string, current, account, owner contractvalue.Value) (uint32, error) {
	if !IsOwner(account, owner) {
		return 0, ErrNotOwner
	}
	v, err := ParseCounterInput(input)
	if err != nil {
		return 0, err
	}
	if current.IsNull() {
		return 0, ErrUnknownValue
	}
	cur := contractvalue.ToSafeBigInt(current)
	if cur.IsUint64() && cur.Uint64() == uint64(v) {
		return 0, ErrUnchanged
	}
	return v, nil
}

// ValidateDecrease checks that a decrease would not underflow.
func ValidateDecrease(current contractvalue.Value) error {
	if current.IsNull() {
		return ErrUnknownValue
	}
	if !CanDecrease(current) {
		return ErrCounterZero
	}
	return nil
}

// PrepareReset builds the reset batch for account. Resetting costs fee base
// units of the payment token, pulled by the contract, so the balance must
// cover it and an approve call is prepended when the current allowance is
// short.
func (c *Contract) PrepareReset(ctx context.Context, account *starkcounter.Felt, pay *token.ERC20, fee *big.Int) ([]starkcounter.Call, error) {
	if account == nil {
		return nil, ErrNoAccount
	}
	balance, err := pay.BalanceOf(ctx, account)
	if err != nil {
		return nil, err
	}
	if !token.Sufficient(balance, fee) {
		return nil, fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, pay.Format(balance), pay.Format(fee))
	}
	allowance, err := pay.Allowance(ctx, account, c.Address)
	if err != nil {
		return nil, err
	}
	var calls []starkcounter.Call
	if !token.Sufficient(allowance, fee) {
		approve, err := pay.ApproveCall(c.Address, fee)
		if err != nil {
			return nil, err
		}
		calls = append(calls, approve)
	}
	return append(calls, c.ResetCall()), nil
}

// ResetFee returns the reset fee in base units for a fee given in whole
// tokens.
func ResetFee(tokens string, decimals uint8) (*big.Int, error) {
	fee, err := token.ParseUnits(tokens, decimals)
	if err != nil {
		return nil, fmt.Errorf("invalid reset fee %q: %w", tokens, err)
	}
	return fee, nil
}

func feltToU32(f *starkcounter.Felt) (uint32, bool) {
	if f == nil || !f.IsUint64() || f.Uint64() > math.MaxUint32 {
		return 0, false
	}
	return uint32(f.Uint64()), true
}
