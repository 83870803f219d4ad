package cementer

import (
	"github.com/certen/ledgercore/pkg/blocks"
	"github.com/ethereum/go-ethereum/common"
)

// sourceHashOf returns the send hash a receive-shaped block claims, the
// cross-account edge cementing a receive must also cement.
func sourceHashOf(blk blocks.Block) common.Hash {
	switch b := blk.(type) {
	case *blocks.ReceiveBlock:
		return b.Source
	case *blocks.OpenBlock:
		return b.Source
	case *blocks.StateBlock:
		return b.Link
	default:
		return common.Hash{}
	}
}
