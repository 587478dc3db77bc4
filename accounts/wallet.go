package accounts

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/tos-network/starkcounter"
	"github.com/tos-network/starkcounter/params"
)

// Wallet API error codes.
const (
	ErrCodeNotERC20         = 111
	ErrCodeUnlistedNetwork  = 112
	ErrCodeUserRefusedOp    = 113
	ErrCodeInvalidPayload   = 114
	ErrCodeAlreadyDeployed  = 115
	ErrCodeAPIVersion       = 162
	ErrCodeUnknownWalletErr = 163
)

// WalletSigner talks to a wallet exposing the StarkNet wallet JSON-RPC API
// (wallet_requestAccounts, wallet_requestChainId, wallet_addInvokeTransaction).
type WalletSigner struct {
	c   *rpc.Client
	url URL

	mu      sync.Mutex
	address *starkcounter.Felt
}

// DialWallet connects to a wallet endpoint and requests its accounts.
func DialWallet(ctx context.Context, rawurl string) (*WalletSigner, error) {
	url, err := parseURL(rawurl)
	if err != nil {
		return nil, err
	}
	switch url.Scheme {
	case "http", "https", "ws", "wss", "ipc":
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, url.Scheme)
	}
	endpoint := rawurl
	if url.Scheme == "ipc" {
		endpoint = url.Path
	}
	c, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	w := NewWalletSigner(c, url)
	if _, err := w.RequestAccounts(ctx, false); err != nil {
		c.Close()
		return nil, err
	}
	return w, nil
}

// NewWalletSigner wraps an established RPC connection to a wallet.
func NewWalletSigner(c *rpc.Client, url URL) *WalletSigner {
	return &WalletSigner{c: c, url: url}
}

func (w *WalletSigner) URL() URL { return w.url }

func (w *WalletSigner) Address() *starkcounter.Felt {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.address
}

// Close releases the wallet connection.
func (w *WalletSigner) Close() { w.c.Close() }

// RequestAccounts asks the wallet for its accounts. In silent mode the wallet
// must not prompt the user. The first account becomes the signing address.
func (w *WalletSigner) RequestAccounts(ctx context.Context, silent bool) ([]*starkcounter.Felt, error) {
	var accounts []*starkcounter.Felt
	arg := map[string]interface{}{"silent_mode": silent}
	if err := w.c.CallContext(ctx, &accounts, "wallet_requestAccounts", arg); err != nil {
		return nil, walletError(err)
	}
	if len(accounts) == 0 || accounts[0] == nil {
		return nil, ErrNoAccount
	}
	w.mu.Lock()
	w.address = accounts[0]
	w.mu.Unlock()
	log.Debug("Wallet account selected", "url", w.url, "address", accounts[0])
	return accounts, nil
}

func (w *WalletSigner) ChainID(ctx context.Context) (*starkcounter.Felt, error) {
	var id starkcounter.Felt
	if err := w.c.CallContext(ctx, &id, "wallet_requestChainId"); err != nil {
		return nil, walletError(err)
	}
	return &id, nil
}

func (w *WalletSigner) SendBatch(ctx context.Context, calls []starkcounter.Call) (*starkcounter.InvokeResult, error) {
	return w.invoke(ctx, invokeArgs{Calls: calls})
}

// Execute sends the batch with opts. Without options the request still names
// the transaction version, leaving the fee to the wallet, so it never repeats
// the SendBatch request. A request that timed out may still have been
// broadcast by the wallet; callers retrying after a timeout can send a second
// transaction.
func (w *WalletSigner) Execute(ctx context.Context, calls []starkcounter.Call, opts *starkcounter.ExecuteOptions) (*starkcounter.InvokeResult, error) {
	args := invokeArgs{Calls: calls, Version: params.DefaultTxVersion}
	if opts != nil {
		args.Version = opts.Version
		args.MaxFee = opts.MaxFee
	}
	return w.invoke(ctx, args)
}

type invokeArgs struct {
	Calls   []starkcounter.Call `json:"calls"`
	Version string              `json:"version,omitempty"`
	MaxFee  *starkcounter.Felt  `json:"max_fee,omitempty"`
}

func (w *WalletSigner) invoke(ctx context.Context, args invokeArgs) (*starkcounter.InvokeResult, error) {
	if len(args.Calls) == 0 {
		return nil, errors.New("accounts: empty call batch")
	}
	var result starkcounter.InvokeResult
	if err := w.c.CallContext(ctx, &result, "wallet_addInvokeTransaction", args); err != nil {
		return nil, walletError(err)
	}
	if result.TransactionHash == nil {
		return nil, errors.New("accounts: wallet returned no transaction hash")
	}
	return &result, nil
}

// walletError maps a user refusal onto ErrUserRejected and keeps every other
// error as returned by the wallet.
func walletError(err error) error {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == ErrCodeUserRefusedOp {
		return fmt.Errorf("%w: %w", ErrUserRejected, err)
	}
	return err
}
