package state

import (
	"fmt"
	"math/big"

	"minechain/core/types"
)

var accountPrefix = []byte("account:")

func accountKey(addr []byte) []byte {
	buf := make([]byte, len(accountPrefix)+len(addr))
	copy(buf, accountPrefix)
	copy(buf[len(accountPrefix):], addr)
	return buf
}

// GetAccount loads the native-currency account for the address. Missing
// accounts materialise as zero-balance records so callers never see nil.
func (m *Manager) GetAccount(addr []byte) (*types.Account, error) {
	if len(addr) == 0 {
		return nil, fmt.Errorf("account: address must not be empty")
	}
	var stored types.Account
	ok, err := m.KVGet(accountKey(addr), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return types.NewAccount(), nil
	}
	if stored.Balance == nil {
		stored.Balance = big.NewInt(0)
	}
	return &stored, nil
}

// PutAccount persists the native-currency account for the address.
func (m *Manager) PutAccount(addr []byte, account *types.Account) error {
	if len(addr) == 0 {
		return fmt.Errorf("account: address must not be empty")
	}
	if account == nil {
		return fmt.Errorf("account: record required")
	}
	stored := types.Account{Nonce: account.Nonce, Balance: account.Balance}
	if stored.Balance == nil {
		stored.Balance = big.NewInt(0)
	}
	if stored.Balance.Sign() < 0 {
		return fmt.Errorf("account: negative balance not allowed")
	}
	return m.KVPut(accountKey(addr), &stored)
}
