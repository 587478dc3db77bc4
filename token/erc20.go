package token

import (
	"context"
	"fmt"
	"math/big"

	"github.com/tos-network/starkcounter"
)

// ERC20 is a read/write binding for a StarkNet ERC20 token contract.
type ERC20 struct {
	Address  *starkcounter.Felt
	Symbol   string
	Decimals uint8

	caller starkcounter.ContractCaller
}

// NewERC20 binds the token at address using caller for reads.
func NewERC20(address *starkcounter.Felt, symbol string, decimals uint8, caller starkcounter.ContractCaller) *ERC20 {
	return &ERC20{Address: address, Symbol: symbol, Decimals: decimals, caller: caller}
}

// BalanceOf returns the balance of owner in base units.
func (t *ERC20) BalanceOf(ctx context.Context, owner *starkcounter.Felt) (*big.Int, error) {
	return t.readAmount(ctx, "balance_of", owner)
}

// Allowance returns how much spender may transfer on behalf of owner.
func (t *ERC20) Allowance(ctx context.Context, owner, spender *starkcounter.Felt) (*big.Int, error) {
	return t.readAmount(ctx, "allowance", owner, spender)
}

// ApproveCall builds the call authorizing spender to move amount base units.
func (t *ERC20) ApproveCall(spender *starkcounter.Felt, amount *big.Int) (starkcounter.Call, error) {
	low, high, err := SplitU256(amount)
	if err != nil {
		return starkcounter.Call{}, err
	}
	return starkcounter.Call{
		To:         t.Address,
		Entrypoint: "approve",
		Calldata:   []*starkcounter.Felt{spender, low, high},
	}, nil
}

// Format renders base units with the token symbol, e.g. "1.5 STRK".
func (t *ERC20) Format(v *big.Int) string {
	return FormatUnits(v, t.Decimals) + " " + t.Symbol
}

func (t *ERC20) readAmount(ctx context.Context, entrypoint string, args ...*starkcounter.Felt) (*big.Int, error) {
	out, err := t.caller.Call(ctx, starkcounter.Call{
		To:         t.Address,
		Entrypoint: entrypoint,
		Calldata:   args,
	}, starkcounter.LatestBlock)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", t.Symbol, entrypoint, err)
	}
	switch len(out) {
	case 1:
		return out[0].Big(), nil
	case 2:
		v, err := U256(out[0], out[1])
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", t.Symbol, entrypoint, err)
		}
		return v.ToBig(), nil
	default:
		return nil, fmt.Errorf("%s %s: unexpected result length %d", t.Symbol, entrypoint, len(out))
	}
}
