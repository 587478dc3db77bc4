package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"runtime"

	"github.com/ethereum/go-ethereum/log"
	"github.com/tos-network/starkcounter"
	"github.com/tos-network/starkcounter/cmd/utils"
	"github.com/tos-network/starkcounter/contractvalue"
	"github.com/tos-network/starkcounter/counter"
	"github.com/tos-network/starkcounter/params"
	"github.com/tos-network/starkcounter/transactor"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

var (
	statusCommand = &cli.Command{
		Action: status,
		Name:   "status",
		Usage:  "Show the counter value, its owner and the connected account",
		Description: `
Reads the counter, the contract owner and the chain head in parallel. When a
wallet is configured the account and its balance of the network currency are
shown as well.`,
	}
	increaseCommand = &cli.Command{
		Action: increase,
		Name:   "increase",
		Usage:  "Increase the counter by one",
	}
	decreaseCommand = &cli.Command{
		Action: decrease,
		Name:   "decrease",
		Usage:  "Decrease the counter by one",
		Description: `
Refused locally when the counter is already 0.`,
	}
	resetCommand = &cli.Command{
		Action: reset,
		Name:   "reset",
		Usage:  "Reset the counter to 0, paying the reset fee",
		Description: `
The reset fee is paid in the network currency. An approve call is added to the
transaction when the contract's allowance does not cover it. On a terminal the
fee has to be confirmed first unless --yes is given.`,
	}
	setCommand = &cli.Command{
		Action:    set,
		Name:      "set",
		Usage:     "Set the counter to a value (owner only)",
		ArgsUsage: "<value>",
	}
	versionCommand = &cli.Command{
		Action:    version,
		Name:      "version",
		Usage:     "Print version numbers",
		ArgsUsage: " ",
		Description: `
The output of this command is supposed to be machine-readable.
`,
	}
)

// statusInfo is the output of the status command.
type statusInfo struct {
	Network     string              `json:"network"`
	ChainID     *starkcounter.Felt  `json:"chain_id,omitempty"`
	Head        uint64              `json:"head"`
	Contract    *starkcounter.Felt  `json:"contract"`
	Value       string              `json:"value"`
	Raw         contractvalue.Value `json:"raw"`
	Owner       *starkcounter.Felt  `json:"owner,omitempty"`
	Account     *starkcounter.Felt  `json:"account,omitempty"`
	IsOwner     bool                `json:"is_owner"`
	Balance     string              `json:"balance,omitempty"`
	ResetFee    string              `json:"reset_fee"`
	CanDecrease bool                `json:"can_decrease"`
}

func status(ctx *cli.Context) error {
	b, err := newBackend(ctx, backendOptions{wallet: true})
	if err != nil {
		return err
	}
	defer b.Close()

	info := statusInfo{
		Network:  b.network.Name,
		Contract: b.contract.Address,
		ResetFee: b.actions.Pay.Format(b.actions.ResetFee),
	}
	var (
		value   contractvalue.Value
		balance *big.Int
	)
	g, gctx := errgroup.WithContext(ctx.Context)
	g.Go(func() (err error) {
		value, err = b.contract.Value(gctx)
		return err
	})
	g.Go(func() (err error) {
		info.Head, err = b.client.BlockNumber(gctx)
		return err
	})
	g.Go(func() error {
		id, err := b.client.ChainID(gctx)
		if err != nil {
			log.Warn("Failed to query chain id", "err", err)
			return nil
		}
		info.ChainID = id
		return nil
	})
	g.Go(func() error {
		owner, err := b.contract.Owner(gctx)
		if err != nil {
			log.Warn("Failed to read counter owner", "err", err)
			return nil
		}
		info.Owner = owner
		return nil
	})
	if b.wallet != nil {
		info.Account = b.wallet.Address()
		g.Go(func() (err error) {
			balance, err = b.actions.Pay.BalanceOf(gctx, info.Account)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	info.Raw = value
	info.Value = contractvalue.ToDisplayString(value, "unknown")
	info.CanDecrease = counter.CanDecrease(value)
	info.IsOwner = counter.IsOwner(contractvalue.Felt(info.Account), contractvalue.Felt(info.Owner))
	if balance != nil {
		info.Balance = b.actions.Pay.Format(balance)
	}

	if ctx.Bool(utils.JSONFlag.Name) {
		return printJSON(ctx, info)
	}
	w := ctx.App.Writer
	fmt.Fprintf(w, "Network:   %s (%s)\n", info.Network, params.ChainName(info.ChainID))
	fmt.Fprintf(w, "Head:      %d\n", info.Head)
	fmt.Fprintf(w, "Contract:  %s\n", info.Contract.Hex())
	if link := params.BlockExplorerAddressLink(b.network, info.Contract); link != "" {
		fmt.Fprintf(w, "Explorer:  %s\n", link)
	}
	fmt.Fprintf(w, "Counter:   %s\n", info.Value)
	fmt.Fprintf(w, "Owner:     %s\n", contractvalue.FormatAddress(contractvalue.Felt(info.Owner)))
	if info.Account != nil {
		fmt.Fprintf(w, "Account:   %s (owner: %t)\n", contractvalue.FormatAddress(contractvalue.Felt(info.Account)), info.IsOwner)
		fmt.Fprintf(w, "Balance:   %s\n", info.Balance)
	}
	fmt.Fprintf(w, "Reset fee: %s\n", info.ResetFee)
	return nil
}

func writeBackend(ctx *cli.Context) (*backend, error) {
	b, err := newBackend(ctx, backendOptions{wallet: true})
	if err != nil {
		return nil, err
	}
	if b.wallet == nil {
		log.Warn("No wallet configured, transactions cannot be signed", "flag", utils.WalletFlag.Name)
	}
	return b, nil
}

func runAction(ctx *cli.Context, action func(c context.Context, a *counter.Actions) (*starkcounter.Felt, error)) error {
	b, err := writeBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close()
	return b.submit(ctx, func(c context.Context) (*starkcounter.Felt, error) {
		return action(c, b.actions)
	})
}

func increase(ctx *cli.Context) error {
	return runAction(ctx, func(c context.Context, a *counter.Actions) (*starkcounter.Felt, error) {
		return a.Increase(c)
	})
}

func decrease(ctx *cli.Context) error {
	return runAction(ctx, func(c context.Context, a *counter.Actions) (*starkcounter.Felt, error) {
		return a.Decrease(c)
	})
}

var errResetCancelled = errors.New("reset cancelled")

func reset(ctx *cli.Context) error {
	b, err := writeBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	if b.wallet != nil && !ctx.Bool(utils.YesFlag.Name) && utils.IsInteractive() {
		ok, err := utils.Confirm(fmt.Sprintf("Pay %s to reset the counter?", b.actions.Pay.Format(b.actions.ResetFee)))
		if err != nil {
			return err
		}
		if !ok {
			return errResetCancelled
		}
	}
	return b.submit(ctx, b.actions.Reset)
}

func set(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("set requires exactly one argument: the new counter value")
	}
	input := ctx.Args().First()
	return runAction(ctx, func(c context.Context, a *counter.Actions) (*starkcounter.Felt, error) {
		return a.Set(c, input)
	})
}

// printResult prints the final state of a submission.
func printResult(ctx *cli.Context, state transactor.State) error {
	if ctx.Bool(utils.JSONFlag.Name) {
		return printJSON(ctx, state)
	}
	w := ctx.App.Writer
	fmt.Fprintf(w, "Transaction: %s\n", state.Hash.Hex())
	if state.Link != "" {
		fmt.Fprintf(w, "Explorer:    %s\n", state.Link)
	}
	fmt.Fprintf(w, "Status:      %s\n", state.Status)
	return nil
}

func printJSON(ctx *cli.Context, v interface{}) error {
	enc := json.NewEncoder(ctx.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func version(ctx *cli.Context) error {
	w := ctx.App.Writer
	fmt.Fprintln(w, "Counterctl")
	fmt.Fprintln(w, "Version:", params.VersionWithMeta)
	if gitCommit != "" {
		fmt.Fprintln(w, "Git Commit:", gitCommit)
	}
	if gitDate != "" {
		fmt.Fprintln(w, "Git Commit Date:", gitDate)
	}
	fmt.Fprintln(w, "Architecture:", runtime.GOARCH)
	fmt.Fprintln(w, "Go Version:", runtime.Version())
	fmt.Fprintln(w, "Operating System:", runtime.GOOS)
	return nil
}
