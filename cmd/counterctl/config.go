// Copyright 2017 The go-ethereum Authors
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

package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"
	"time"
	"unicode"

	"github.com/naoina/toml"
	"github.com/tos-network/starkcounter"
	"github.com/tos-network/starkcounter/cmd/utils"
	"github.com/tos-network/starkcounter/internal/api"
	"github.com/tos-network/starkcounter/metrics"
	"github.com/tos-network/starkcounter/params"
	"github.com/urfave/cli/v2"
)

var (
	dumpConfigCommand = &cli.Command{
		Action:      dumpConfig,
		Name:        "dumpconfig",
		Usage:       "Export configuration values in a TOML format",
		ArgsUsage:   "<dumpfile (optional)>",
		Flags:       flagsWithoutLogging(),
		Description: `Export configuration values in TOML format (to stdout by default).`,
	}
)

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://godoc.org/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

// chainConfig selects the chain, the contract and the way it is reached.
type chainConfig struct {
	Network      string
	RPCURL       string  `toml:",omitempty"`
	RateLimit    float64 `toml:",omitempty"`
	Contract     string
	FromBlock    uint64
	PollInterval time.Duration
	Wallet       string `toml:",omitempty"`
	ResetFee     string
}

type counterConfig struct {
	DataDir string `toml:",omitempty"`
	Chain   chainConfig
	Gateway api.Config
	Metrics metrics.Config
}

func defaultConfig() counterConfig {
	return counterConfig{
		Chain: chainConfig{
			Network:      params.DefaultNetwork.Name,
			PollInterval: params.DefaultPollingInterval,
			ResetFee:     params.DefaultResetFee,
		},
		Gateway: api.DefaultConfig,
		Metrics: metrics.DefaultConfig,
	}
}

func loadConfig(file string, cfg *counterConfig) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

// makeConfig loads the configuration file, if any, and applies the command
// line flags on top of it.
func makeConfig(ctx *cli.Context) (counterConfig, error) {
	cfg := defaultConfig()
	if file := ctx.String(utils.ConfigFileFlag.Name); file != "" {
		if err := loadConfig(file, &cfg); err != nil {
			return cfg, err
		}
	}
	if ctx.IsSet(utils.DataDirFlag.Name) {
		cfg.DataDir = ctx.String(utils.DataDirFlag.Name)
	}
	setChainConfig(ctx, &cfg.Chain)
	utils.SetGatewayConfig(ctx, &cfg.Gateway)
	utils.SetMetricsConfig(ctx, &cfg.Metrics)
	return cfg, nil
}

func setChainConfig(ctx *cli.Context, cfg *chainConfig) {
	if ctx.IsSet(utils.NetworkFlag.Name) || cfg.Network == "" {
		cfg.Network = ctx.String(utils.NetworkFlag.Name)
	}
	if ctx.IsSet(utils.RPCURLFlag.Name) {
		cfg.RPCURL = ctx.String(utils.RPCURLFlag.Name)
	}
	if ctx.IsSet(utils.RPCRateLimitFlag.Name) {
		cfg.RateLimit = ctx.Float64(utils.RPCRateLimitFlag.Name)
	}
	if ctx.IsSet(utils.ContractFlag.Name) {
		cfg.Contract = ctx.String(utils.ContractFlag.Name)
	}
	if ctx.IsSet(utils.FromBlockFlag.Name) {
		cfg.FromBlock = ctx.Uint64(utils.FromBlockFlag.Name)
	}
	if ctx.IsSet(utils.PollIntervalFlag.Name) {
		cfg.PollInterval = ctx.Duration(utils.PollIntervalFlag.Name)
	}
	if ctx.IsSet(utils.WalletFlag.Name) {
		cfg.Wallet = ctx.String(utils.WalletFlag.Name)
	}
	if ctx.IsSet(utils.ResetFeeFlag.Name) {
		cfg.ResetFee = ctx.String(utils.ResetFeeFlag.Name)
	}
}

// network resolves the configured network, applying the RPC override.
func (c *chainConfig) network() (*params.Network, error) {
	n, err := params.LookupNetwork(c.Network)
	if err != nil {
		return nil, err
	}
	if c.RPCURL != "" {
		n = n.Copy()
		n.RPCURL = c.RPCURL
	}
	return n, nil
}

func (c *chainConfig) contract() (*starkcounter.Felt, error) {
	if c.Contract == "" {
		return nil, fmt.Errorf("no counter contract configured, use --%s", utils.ContractFlag.Name)
	}
	addr, err := starkcounter.ParseFelt(c.Contract)
	if err != nil {
		return nil, fmt.Errorf("invalid contract address %q: %w", c.Contract, err)
	}
	return addr, nil
}

// dumpConfig is the dumpconfig command.
func dumpConfig(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	out, err := tomlSettings.Marshal(&cfg)
	if err != nil {
		return err
	}

	dump := ctx.App.Writer
	if ctx.NArg() > 0 {
		f, err := os.OpenFile(ctx.Args().Get(0), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer f.Close()
		dump = f
	}
	_, err = dump.Write(out)
	return err
}
