// Copyright 2016 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package params

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/tos-network/starkcounter"
)

// Chain identifiers are the ASCII network names encoded as felts.
var (
	MainnetChainID = starkcounter.MustParseFelt("0x534e5f4d41494e")       // SN_MAIN
	SepoliaChainID = starkcounter.MustParseFelt("0x534e5f5345504f4c4941") // SN_SEPOLIA
)

// Token contracts deployed at the same address on every public network and on
// devnet.
var (
	STRKTokenAddress = starkcounter.MustParseFelt("0x04718f5a0fc34cc1af16a1cdee98ffb20c31f5cd61d6ab07201858f4287c938d")
	ETHTokenAddress  = starkcounter.MustParseFelt("0x049d36570d4e46f48e99674bd3fcc84644ddd6b96f7c741b1562b82f9e004dc7")
)

// Currency describes a fungible token used for fees or payments.
type Currency struct {
	Address  *starkcounter.Felt
	Name     string
	Symbol   string
	Decimals uint8
}

// Network describes a chain the counter can be deployed on.
type Network struct {
	Name        string // short name used by explorers and the CLI
	DisplayName string
	ChainID     *starkcounter.Felt
	RPCURL      string
	ExplorerURL string // empty when the network has no block explorer
	Testnet     bool
	Currency    Currency
}

var strk = Currency{
	Address:  STRKTokenAddress,
	Name:     "STRK",
	Symbol:   "STRK",
	Decimals: 18,
}

var (
	// DevnetNetwork is a local starknet-devnet instance.
	DevnetNetwork = &Network{
		Name:        "devnet",
		DisplayName: "Starknet Devnet",
		ChainID:     SepoliaChainID,
		RPCURL:      envOr("DEVNET_PROVIDER_URL", "http://127.0.0.1:5050") + "/rpc",
		Testnet:     true,
		Currency:    strk,
	}

	// MainnetForkNetwork is a devnet forked from mainnet, reporting the mainnet
	// chain id.
	MainnetForkNetwork = &Network{
		Name:        "mainnetFork",
		DisplayName: "Starknet Devnet",
		ChainID:     MainnetChainID,
		RPCURL:      envOr("DEVNET_PROVIDER_URL", "http://127.0.0.1:5050") + "/rpc",
		Testnet:     true,
		Currency:    strk,
	}

	// SepoliaNetwork is the public Starknet testnet.
	SepoliaNetwork = &Network{
		Name:        "sepolia",
		DisplayName: "Starknet Sepolia Testnet",
		ChainID:     SepoliaChainID,
		RPCURL:      envOr("SEPOLIA_PROVIDER_URL", "https://starknet-sepolia.public.blastapi.io/rpc/v0_7"),
		ExplorerURL: "https://sepolia.voyager.online",
		Testnet:     true,
		Currency:    strk,
	}

	// MainnetNetwork is Starknet mainnet.
	MainnetNetwork = &Network{
		Name:        "mainnet",
		DisplayName: "Starknet Mainnet",
		ChainID:     MainnetChainID,
		RPCURL:      envOr("MAINNET_PROVIDER_URL", "https://starknet-mainnet.public.blastapi.io/rpc/v0_7"),
		ExplorerURL: "https://voyager.online",
		Currency:    strk,
	}
)

// Networks maps the names accepted by the CLI to their definitions.
var Networks = map[string]*Network{
	"devnet":      DevnetNetwork,
	"mainnetFork": MainnetForkNetwork,
	"sepolia":     SepoliaNetwork,
	"mainnet":     MainnetNetwork,
}

// DefaultNetwork is the network targeted when none is configured.
var DefaultNetwork = SepoliaNetwork

// NetworkNames returns the accepted network names in sorted order.
func NetworkNames() []string {
	names := make([]string, 0, len(Networks))
	for name := range Networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupNetwork resolves a network by name, case-insensitively.
func LookupNetwork(name string) (*Network, error) {
	for key, n := range Networks {
		if strings.EqualFold(key, strings.TrimSpace(name)) {
			return n, nil
		}
	}
	return nil, fmt.Errorf("unknown network %q (known: %s)", name, strings.Join(NetworkNames(), ", "))
}

// Copy returns a shallow copy that can be modified without touching the
// built-in definition.
func (n *Network) Copy() *Network {
	cpy := *n
	return &cpy
}

// ChainName decodes the chain id into its ASCII name, e.g. SN_SEPOLIA.
func ChainName(id *starkcounter.Felt) string {
	if id == nil {
		return ""
	}
	raw := id.Big().Bytes()
	for _, c := range raw {
		if c < 0x20 || c > 0x7e {
			return id.Hex()
		}
	}
	return string(raw)
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
