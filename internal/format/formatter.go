/*

This file contains display helpers for raw transaction results: shortened
transaction identifiers and block-explorer links. Everything here is pure
templating; malformed identifiers are rendered best-effort, never rejected.

*/

package format

import (
	"fmt"

	"github.com/agrostake/aic/internal/config"
	"github.com/agrostake/aic/internal/types"
)

const (
	shortenThreshold = 12
	shortenHead      = 6
	shortenTail      = 4
)

// Shorten abbreviates a transaction identifier for display. Identifiers of
// twelve characters or fewer are returned unchanged; longer ones keep the
// first six and last four characters joined by an ellipsis.
func Shorten(id string) string {
	if len(id) <= shortenThreshold {
		return id
	}
	return id[:shortenHead] + "…" + id[len(id)-shortenTail:]
}

// ExplorerURL renders the block-explorer link for a transaction on the given
// network. The link is for human navigation only; nothing in the core ever
// fetches it.
func ExplorerURL(id string, network types.Network) string {
	host := config.ExplorerHosts[string(network)]
	if host == "" {
		// Unknown networks fall back to the testnet explorer rather than
		// producing a dead link.
		host = config.ExplorerHosts[string(types.NetworkTestnet)]
	}
	if host == "" {
		host = "explorer.agrostake.io"
	}
	return fmt.Sprintf("https://%s/%s/tx/%s", host, network, id)
}
