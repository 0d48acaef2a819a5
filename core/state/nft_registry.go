package state

import (
	"fmt"

	"minechain/native/nft"
)

// NFTCollectionGet loads the collection record for the symbol. A missing
// record returns (nil, false, nil).
func (m *Manager) NFTCollectionGet(symbol string) (*nft.Collection, bool, error) {
	if m == nil {
		return nil, false, fmt.Errorf("nft: state manager not initialised")
	}
	var stored nft.Collection
	ok, err := m.KVGet(nft.CollectionStorageKey(symbol), &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &stored, true, nil
}

// NFTCollectionPut persists the collection record.
func (m *Manager) NFTCollectionPut(collection *nft.Collection) error {
	if m == nil {
		return fmt.Errorf("nft: state manager not initialised")
	}
	if collection == nil {
		return fmt.Errorf("nft: collection record required")
	}
	return m.KVPut(nft.CollectionStorageKey(collection.Symbol), collection)
}

// NFTOwnerGet resolves the owner of a token. A missing record returns
// (zero, false, nil).
func (m *Manager) NFTOwnerGet(symbol string, id uint64) ([20]byte, bool, error) {
	var owner [20]byte
	if m == nil {
		return owner, false, fmt.Errorf("nft: state manager not initialised")
	}
	var stored [20]byte
	ok, err := m.KVGet(nft.OwnerStorageKey(symbol, id), &stored)
	if err != nil || !ok {
		return owner, ok, err
	}
	return stored, true, nil
}

// NFTOwnerPut records the owner of a token.
func (m *Manager) NFTOwnerPut(symbol string, id uint64, owner [20]byte) error {
	if m == nil {
		return fmt.Errorf("nft: state manager not initialised")
	}
	return m.KVPut(nft.OwnerStorageKey(symbol, id), &owner)
}

// NFTBalanceGet returns the number of tokens held by the address in the
// collection.
func (m *Manager) NFTBalanceGet(symbol string, addr [20]byte) (uint64, error) {
	if m == nil {
		return 0, fmt.Errorf("nft: state manager not initialised")
	}
	var stored uint64
	ok, err := m.KVGet(nft.BalanceStorageKey(symbol, addr), &stored)
	if err != nil || !ok {
		return 0, err
	}
	return stored, nil
}

// NFTBalanceSet stores the holder balance for the address in the collection.
func (m *Manager) NFTBalanceSet(symbol string, addr [20]byte, balance uint64) error {
	if m == nil {
		return fmt.Errorf("nft: state manager not initialised")
	}
	return m.KVPut(nft.BalanceStorageKey(symbol, addr), balance)
}
