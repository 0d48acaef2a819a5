package types

import "math/big"

// Account holds the native-currency balance and replay nonce for an address.
// Bonds posted by stakers move between these records and the mining module
// vault; no other native balance bookkeeping exists.
type Account struct {
	Nonce   uint64
	Balance *big.Int
}

// NewAccount returns an account with a zeroed balance.
func NewAccount() *Account {
	return &Account{Balance: big.NewInt(0)}
}
