package counter

import (
	"context"
	"errors"
	"math/big"

	"github.com/tos-network/starkcounter"
	"github.com/tos-network/starkcounter/accounts"
	"github.com/tos-network/starkcounter/contractvalue"
	"github.com/tos-network/starkcounter/token"
	"github.com/tos-network/starkcounter/transactor"
)

// Actions runs the counter's write paths: guards first, then submission
// through the transactor.
type Actions struct {
	Contract   *Contract
	Transactor *transactor.Transactor
	Signer     accounts.Signer // nil when no account is connected

	// Pay and ResetFee configure the fee charged by reset_counter.
	Pay      *token.ERC20
	ResetFee *big.Int

	Options *transactor.SubmitOptions
}

func (a *Actions) submit(ctx context.Context, calls ...starkcounter.Call) (*starkcounter.Felt, error) {
	return a.Transactor.Submit(ctx, calls, a.Signer, a.Options)
}

func (a *Actions) account() contractvalue.Value {
	if a.Signer == nil {
		return contractvalue.Null()
	}
	return contractvalue.Felt(a.Signer.Address())
}

// Increase submits increase_counter.
func (a *Actions) Increase(ctx context.Context) (*starkcounter.Felt, error) {
	return a.submit(ctx, a.Contract.IncreaseCall())
}

// Decrease submits decrease_counter unless the counter is zero or unknown.
func (a *Actions) Decrease(ctx context.Context) (*starkcounter.Felt, error) {
	if a.Signer == nil {
		return a.submit(ctx, a.Contract.DecreaseCall())
	}
	current, err := a.Contract.Value(ctx)
	if err != nil {
		current = contractvalue.Null()
	}
	if err := ValidateDecrease(current); err != nil {
		return nil, err
	}
	return a.submit(ctx, a.Contract.DecreaseCall())
}

// Reset submits reset_counter, approving the fee first when needed.
func (a *Actions) Reset(ctx context.Context) (*starkcounter.Felt, error) {
	if a.Signer == nil || a.Pay == nil {
		return a.submit(ctx, a.Contract.ResetCall())
	}
	calls, err := a.Contract.PrepareReset(ctx, a.Signer.Address(), a.Pay, a.ResetFee)
	if err != nil {
		return nil, err
	}
	return a.submit(ctx, calls...)
}

// Set submits set_counter with the parsed input. Only the owner may set the
// counter, and only to a different value.
func (a *Actions) Set(ctx context.Context, input string) (*starkcounter.Felt, error) {
	if a.Signer == nil {
		v, err := ParseCounterInput(input)
		if err != nil {
			return nil, err
		}
		return a.submit(ctx, a.Contract.SetCall(v))
	}
	current, err := a.Contract.Value(ctx)
	if err != nil {
		current = contractvalue.Null()
	}
	owner := contractvalue.Null()
	if o, err := a.Contract.Owner(ctx); err == nil {
		owner = contractvalue.Felt(o)
	}
	v, err := ValidateSet(input, current, a.account(), owner)
	if err != nil {
		return nil, err
	}
	return a.submit(ctx, a.Contract.SetCall(v))
}

// IsGuardError reports whether err was raised by a local check before
// anything was submitted.
func IsGuardError(err error) bool {
	for _, guard := range []error{ErrNotOwner, ErrUnchanged, ErrInvalidValue, ErrUnknownValue, ErrCounterZero, ErrInsufficientBalance, ErrNoAccount} {
		if errors.Is(err, guard) {
			return true
		}
	}
	return false
}
