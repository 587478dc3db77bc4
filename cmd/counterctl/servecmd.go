package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/tos-network/starkcounter/cmd/utils"
	"github.com/tos-network/starkcounter/internal/api"
	"github.com/tos-network/starkcounter/metrics"
	"github.com/urfave/cli/v2"
)

var serveCommand = &cli.Command{
	Action: serve,
	Name:   "serve",
	Usage:  "Run the HTTP and WebSocket gateway",
	Flags:  utils.GatewayFlags,
	Description: `
Serves the counter state, the change feed and the write actions over HTTP for a
browser front end, and pushes transaction status and new events over
WebSocket at /api/ws. Transactions are signed by the configured wallet.

With --http.jwtsecret, POST requests must carry an HS256 bearer token signed
with the secret and issued within the last minute. The secret file is created
if it does not exist.`,
}

func serve(ctx *cli.Context) error {
	b, err := newBackend(ctx, backendOptions{wallet: true, record: true})
	if err != nil {
		return err
	}
	defer b.Close()

	metrics.Setup(b.cfg.Metrics)
	if srv := metrics.StartServer(b.cfg.Metrics); srv != nil {
		defer srv.Close()
	}

	gwcfg := b.cfg.Gateway
	gwcfg.Metrics = b.cfg.Metrics.Enabled
	var opts []api.Option
	if gwcfg.JWTSecret != "" {
		secret, err := api.ObtainJWTSecret(gwcfg.JWTSecret)
		if err != nil {
			return err
		}
		opts = append(opts, api.WithJWTSecret(secret))
	}
	gateway := api.New(gwcfg, api.Backend{
		Network:       b.network,
		Actions:       b.actions,
		Feed:          b.feed,
		Notifications: b.recorder,
	}, opts...)

	sigctx, stop := signal.NotifyContext(ctx.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = gateway.Run(sigctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	log.Info("Gateway shut down")
	return err
}
