// Copyright 2015 The go-ethereum Authors
// This file is part of go-ethereum.
//
// go-ethereum is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-ethereum is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-ethereum. If not, see <http://www.gnu.org/licenses/>.

// Package utils contains internal helper functions for counterctl commands.
package utils

import (
	"net"
	"strconv"
	"strings"

	"github.com/tos-network/starkcounter/internal/api"
	"github.com/tos-network/starkcounter/internal/flags"
	"github.com/tos-network/starkcounter/metrics"
	"github.com/tos-network/starkcounter/params"
	"github.com/urfave/cli/v2"
)

var (
	// General settings
	ConfigFileFlag = &cli.StringFlag{
		Name:     "config",
		Usage:    "TOML configuration file",
		Category: flags.MiscCategory,
	}
	JSONFlag = &cli.BoolFlag{
		Name:     "json",
		Usage:    "Print command output as JSON",
		Category: flags.MiscCategory,
	}
	DataDirFlag = &cli.StringFlag{
		Name:     "datadir",
		Usage:    "Directory keeping the counter event history between runs (empty = memory only)",
		Category: flags.MiscCategory,
	}

	// Network settings
	NetworkFlag = &cli.StringFlag{
		Name:     "network",
		Usage:    "Target network (" + strings.Join(params.NetworkNames(), ", ") + ")",
		Value:    params.DefaultNetwork.Name,
		EnvVars:  []string{"COUNTER_NETWORK"},
		Category: flags.NetworkCategory,
	}
	RPCURLFlag = &cli.StringFlag{
		Name:     "rpc",
		Usage:    "StarkNet JSON-RPC endpoint, overriding the network default",
		Category: flags.NetworkCategory,
	}
	RPCRateLimitFlag = &cli.Float64Flag{
		Name:     "rpc.ratelimit",
		Usage:    "Maximum RPC requests per second (0 = unlimited)",
		Category: flags.NetworkCategory,
	}
	ContractFlag = &cli.StringFlag{
		Name:     "contract",
		Usage:    "Address of the counter contract",
		EnvVars:  []string{"COUNTER_CONTRACT"},
		Category: flags.NetworkCategory,
	}
	FromBlockFlag = &cli.Uint64Flag{
		Name:     "fromblock",
		Usage:    "First block scanned for CounterChanged events",
		Category: flags.NetworkCategory,
	}
	PollIntervalFlag = &cli.DurationFlag{
		Name:     "poll",
		Usage:    "Interval between receipt and event polls",
		Value:    params.DefaultPollingInterval,
		Category: flags.NetworkCategory,
	}

	// Account settings
	WalletFlag = &cli.StringFlag{
		Name:     "wallet",
		Usage:    "Wallet JSON-RPC endpoint (http, ws or ipc) used to sign transactions",
		EnvVars:  []string{"COUNTER_WALLET"},
		Category: flags.AccountCategory,
	}

	// Transaction settings
	NoWaitFlag = &cli.BoolFlag{
		Name:     "nowait",
		Usage:    "Return once the transaction is submitted instead of waiting for its receipt",
		Category: flags.TransactionCategory,
	}
	DirectExecuteFlag = &cli.BoolFlag{
		Name:     "direct",
		Usage:    "Skip the wallet's batch path and execute with explicit fee options",
		Category: flags.TransactionCategory,
	}
	ResetFeeFlag = &cli.StringFlag{
		Name:     "resetfee",
		Usage:    "Fee charged by reset_counter, in whole tokens of the network currency",
		Value:    params.DefaultResetFee,
		Category: flags.TransactionCategory,
	}
	YesFlag = &cli.BoolFlag{
		Name:     "yes",
		Aliases:  []string{"y"},
		Usage:    "Do not ask for confirmation before paying the reset fee",
		Category: flags.TransactionCategory,
	}

	// Gateway settings
	HTTPListenAddrFlag = &cli.StringFlag{
		Name:     "http.addr",
		Usage:    "HTTP gateway listening interface",
		Value:    "127.0.0.1",
		Category: flags.APICategory,
	}
	HTTPPortFlag = &cli.IntFlag{
		Name:     "http.port",
		Usage:    "HTTP gateway listening port",
		Value:    8550,
		Category: flags.APICategory,
	}
	HTTPCORSDomainFlag = &cli.StringFlag{
		Name:     "http.corsdomain",
		Usage:    "Comma separated list of domains from which to accept cross origin requests (browser enforced)",
		Category: flags.APICategory,
	}
	HTTPJWTSecretFlag = &cli.StringFlag{
		Name:     "http.jwtsecret",
		Usage:    "Path to a hex encoded 32 byte secret; when set, write requests need an HS256 bearer token",
		Category: flags.APICategory,
	}

	// Logging
	VerbosityFlag = &cli.IntFlag{
		Name:     "verbosity",
		Usage:    "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value:    3,
		Category: flags.LoggingCategory,
	}
	VmoduleFlag = &cli.StringFlag{
		Name:     "vmodule",
		Usage:    "Per-module verbosity: comma-separated list of <pattern>=<level> (e.g. transactor/*=5,starkclient=4)",
		Category: flags.LoggingCategory,
	}
	LogJSONFlag = &cli.BoolFlag{
		Name:     "log.json",
		Usage:    "Format logs with JSON",
		Category: flags.LoggingCategory,
	}
	NoColorFlag = &cli.BoolFlag{
		Name:     "nocolor",
		Usage:    "Disable colored terminal output",
		Category: flags.LoggingCategory,
	}

	// Metrics flags
	MetricsEnabledFlag = &cli.BoolFlag{
		Name:     "metrics",
		Usage:    "Enable metrics collection and reporting",
		Category: flags.MetricsCategory,
	}

	// MetricsHTTPFlag defines the endpoint for a stand-alone metrics HTTP endpoint.
	// Without it metrics are only served by the gateway.
	MetricsHTTPFlag = &cli.StringFlag{
		Name:     "metrics.addr",
		Usage:    "Enable stand-alone metrics HTTP server listening interface",
		Value:    metrics.DefaultConfig.HTTP,
		Category: flags.MetricsCategory,
	}
	MetricsPortFlag = &cli.IntFlag{
		Name:     "metrics.port",
		Usage:    "Metrics HTTP server listening port",
		Value:    metrics.DefaultConfig.Port,
		Category: flags.MetricsCategory,
	}
)

var (
	// NetworkFlags select the chain and contract.
	NetworkFlags = []cli.Flag{
		NetworkFlag,
		RPCURLFlag,
		RPCRateLimitFlag,
		ContractFlag,
		FromBlockFlag,
		PollIntervalFlag,
	}
	// TransactionFlags tune writes.
	TransactionFlags = []cli.Flag{
		WalletFlag,
		NoWaitFlag,
		DirectExecuteFlag,
		ResetFeeFlag,
		YesFlag,
	}
	// GatewayFlags configure the serve command.
	GatewayFlags = []cli.Flag{
		HTTPListenAddrFlag,
		HTTPPortFlag,
		HTTPCORSDomainFlag,
		HTTPJWTSecretFlag,
	}
	// LoggingFlags configure the root logger.
	LoggingFlags = []cli.Flag{
		VerbosityFlag,
		VmoduleFlag,
		LogJSONFlag,
		NoColorFlag,
	}
	// MetricsFlags configure metric collection.
	MetricsFlags = []cli.Flag{
		MetricsEnabledFlag,
		MetricsHTTPFlag,
		MetricsPortFlag,
	}
)

// SplitAndTrim splits input separated by a comma
// and trims excessive white space from the substrings.
func SplitAndTrim(input string) (ret []string) {
	l := strings.Split(input, ",")
	for _, r := range l {
		if r = strings.TrimSpace(r); r != "" {
			ret = append(ret, r)
		}
	}
	return ret
}

// SetGatewayConfig applies gateway-related command line flags to the config.
func SetGatewayConfig(ctx *cli.Context, cfg *api.Config) {
	if ctx.IsSet(HTTPListenAddrFlag.Name) || ctx.IsSet(HTTPPortFlag.Name) || cfg.Addr == "" {
		cfg.Addr = net.JoinHostPort(ctx.String(HTTPListenAddrFlag.Name), strconv.Itoa(ctx.Int(HTTPPortFlag.Name)))
	}
	if ctx.IsSet(HTTPCORSDomainFlag.Name) {
		cfg.CORSOrigins = SplitAndTrim(ctx.String(HTTPCORSDomainFlag.Name))
	}
	if ctx.IsSet(HTTPJWTSecretFlag.Name) {
		cfg.JWTSecret = ctx.String(HTTPJWTSecretFlag.Name)
	}
}

// SetMetricsConfig applies metrics-related command line flags to the config.
func SetMetricsConfig(ctx *cli.Context, cfg *metrics.Config) {
	if ctx.IsSet(MetricsEnabledFlag.Name) {
		cfg.Enabled = ctx.Bool(MetricsEnabledFlag.Name)
	}
	if ctx.IsSet(MetricsHTTPFlag.Name) {
		cfg.HTTP = ctx.String(MetricsHTTPFlag.Name)
	}
	if ctx.IsSet(MetricsPortFlag.Name) {
		cfg.Port = ctx.Int(MetricsPortFlag.Name)
	}
}
