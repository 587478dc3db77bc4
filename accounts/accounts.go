// Package accounts defines the signer abstraction used to submit transactions
// and a JSON-RPC wallet back end implementing it.
package accounts

import (
	"context"
	"errors"

	"github.com/tos-network/starkcounter"
)

var (
	// ErrUserRejected is returned when the user declines to sign.
	ErrUserRejected = errors.New("accounts: user refused operation")

	// ErrNoAccount is returned when the signer exposes no account.
	ErrNoAccount = errors.New("accounts: no account available")

	// ErrUnsupportedScheme is returned when a signer URL names an unknown transport.
	ErrUnsupportedScheme = errors.New("accounts: unsupported signer scheme")
)

// Signer is an account able to sign and broadcast invoke transactions.
type Signer interface {
	// URL retrieves the canonical path under which this signer is reachable.
	URL() URL

	// Address returns the account address, or nil if it is not yet known.
	Address() *starkcounter.Felt

	// ChainID returns the chain the signer is connected to.
	ChainID(ctx context.Context) (*starkcounter.Felt, error)

	// SendBatch hands the batch to the signer and lets it choose fee and
	// version parameters.
	SendBatch(ctx context.Context, calls []starkcounter.Call) (*starkcounter.InvokeResult, error)

	// Execute signs and sends the batch with explicit parameters. A nil opts
	// lets the account pick its own fee.
	Execute(ctx context.Context, calls []starkcounter.Call, opts *starkcounter.ExecuteOptions) (*starkcounter.InvokeResult, error)
}
