package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ethereum/go-ethereum/log"
	"github.com/tos-network/starkcounter"
	"github.com/tos-network/starkcounter/accounts"
	"github.com/tos-network/starkcounter/cmd/utils"
	"github.com/tos-network/starkcounter/counter"
	"github.com/tos-network/starkcounter/eventdb"
	"github.com/tos-network/starkcounter/notify"
	"github.com/tos-network/starkcounter/params"
	"github.com/tos-network/starkcounter/starkclient"
	"github.com/tos-network/starkcounter/token"
	"github.com/tos-network/starkcounter/transactor"
	"github.com/urfave/cli/v2"
)

// backend wires the RPC client, the optional wallet and the counter bindings
// for one command invocation.
type backend struct {
	cfg      counterConfig
	network  *params.Network
	client   *starkclient.Client
	wallet   *accounts.WalletSigner
	recorder *notify.Recorder
	tx       *transactor.Transactor
	contract *counter.Contract
	feed     *counter.Feed
	actions  *counter.Actions
	db       *eventdb.Database // nil without --datadir
}

type backendOptions struct {
	wallet bool // connect the configured wallet
	record bool // keep notifications in memory for the gateway
}

func newBackend(ctx *cli.Context, opts backendOptions) (*backend, error) {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return nil, err
	}
	network, err := cfg.Chain.network()
	if err != nil {
		return nil, err
	}
	address, err := cfg.Chain.contract()
	if err != nil {
		return nil, err
	}
	b := &backend{cfg: cfg, network: network}

	b.client, err = starkclient.DialContext(ctx.Context, network.RPCURL, starkclient.WithRateLimit(cfg.Chain.RateLimit, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", network.RPCURL, err)
	}
	log.Debug("Connected to StarkNet node", "network", network.Name, "url", network.RPCURL)

	var signer accounts.Signer
	if opts.wallet && cfg.Chain.Wallet != "" {
		b.wallet, err = accounts.DialWallet(ctx.Context, cfg.Chain.Wallet)
		if err != nil {
			b.client.Close()
			return nil, fmt.Errorf("failed to connect wallet: %w", err)
		}
		signer = b.wallet
		log.Info("Wallet connected", "url", b.wallet.URL().TerminalString(), "account", b.wallet.Address())
	}

	var notifier notify.Notifier = notify.NewConsoleWriter(ctx.App.ErrWriter, utils.UseColor(ctx))
	if opts.record {
		b.recorder = notify.NewRecorder()
		notifier = notify.NewMulti(notifier, b.recorder)
	}
	interval := cfg.Chain.PollInterval
	if network.Name == params.DevnetNetwork.Name || network.Name == params.MainnetForkNetwork.Name {
		if !ctx.IsSet(utils.PollIntervalFlag.Name) && interval == params.DefaultPollingInterval {
			interval = params.DevnetPollingInterval
		}
	}
	b.tx = transactor.New(notifier, transactor.NewPollingObserver(b.client, interval), transactor.Config{
		Network: network,
	})
	b.contract = counter.NewContract(address, b.client)
	feedcfg := counter.FeedConfig{
		FromBlock:    cfg.Chain.FromBlock,
		PollInterval: interval,
	}
	if cfg.DataDir != "" {
		b.db, err = eventdb.New(filepath.Join(cfg.DataDir, "eventdb"), 0, 0)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to open event database: %w", err)
		}
		feedcfg.Store = b.db
	}
	b.feed = counter.NewFeed(b.client, address, feedcfg)
	if _, err := b.feed.Restore(); err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to restore counter events: %w", err)
	}

	fee, err := counter.ResetFee(cfg.Chain.ResetFee, network.Currency.Decimals)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.actions = &counter.Actions{
		Contract:   b.contract,
		Transactor: b.tx,
		Signer:     signer,
		Pay:        token.NewERC20(network.Currency.Address, network.Currency.Symbol, network.Currency.Decimals, b.client),
		ResetFee:   fee,
		Options:    &transactor.SubmitOptions{DirectExecute: ctx.Bool(utils.DirectExecuteFlag.Name)},
	}
	return b, nil
}

func (b *backend) Close() {
	b.tx.Close()
	if b.wallet != nil {
		b.wallet.Close()
	}
	b.client.Close()
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			log.Warn("Failed to close event database", "err", err)
		}
	}
}

// submit runs a write action and, unless --nowait is given, waits for its
// receipt.
func (b *backend) submit(ctx *cli.Context, action func(context.Context) (*starkcounter.Felt, error)) error {
	hash, err := action(ctx.Context)
	if err != nil {
		return err
	}
	if !ctx.Bool(utils.NoWaitFlag.Name) {
		if err := b.tx.Wait(ctx.Context); err != nil {
			return err
		}
	}
	// The transactor forgets the hash once the transaction is final.
	state := b.tx.State()
	if state.Hash == nil {
		state.Hash, state.Link = hash, params.BlockExplorerTxLink(b.network, hash)
	}
	return printResult(ctx, state)
}
