package blocks

import "github.com/ethereum/go-ethereum/common"

// BurnAccount is the well-known account that can never be opened: it
// exists only as a sink, so that sends to it provably remove funds from
// circulation rather than merely looking unclaimed.
var BurnAccount = common.Hash{} // all-zero account

// IsBurnAccount reports whether account is the designated burn account.
func IsBurnAccount(account common.Hash) bool {
	return account == BurnAccount
}
