package params

import (
	"strings"

	"github.com/tos-network/starkcounter"
)

// BlockExplorerTxLink returns the explorer page of a transaction, or an empty
// string when the network has no explorer.
func BlockExplorerTxLink(network *Network, txHash *starkcounter.Felt) string {
	if network == nil || network.ExplorerURL == "" || txHash == nil {
		return ""
	}
	return strings.TrimRight(network.ExplorerURL, "/") + "/tx/" + txHash.Hex()
}

// BlockExplorerAddressLink returns the explorer page of a contract or account.
func BlockExplorerAddressLink(network *Network, address *starkcounter.Felt) string {
	if network == nil || network.ExplorerURL == "" || address == nil {
		return ""
	}
	return strings.TrimRight(network.ExplorerURL, "/") + "/contract/" + address.Hex()
}
