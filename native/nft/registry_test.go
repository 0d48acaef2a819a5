package nft

import (
	"errors"
	"fmt"
	"testing"
)

type memRegistryState struct {
	collections map[string]*Collection
	owners      map[string][20]byte
	balances    map[string]uint64
}

func newMemRegistryState() *memRegistryState {
	return &memRegistryState{
		collections: make(map[string]*Collection),
		owners:      make(map[string][20]byte),
		balances:    make(map[string]uint64),
	}
}

func memOwnerKey(symbol string, id uint64) string {
	return fmt.Sprintf("%s|%d", symbol, id)
}

func memBalanceKey(symbol string, addr [20]byte) string {
	return fmt.Sprintf("%s|%x", symbol, addr[:])
}

func (m *memRegistryState) NFTCollectionGet(symbol string) (*Collection, bool, error) {
	collection, ok := m.collections[symbol]
	if !ok {
		return nil, false, nil
	}
	out := *collection
	return &out, true, nil
}

func (m *memRegistryState) NFTCollectionPut(collection *Collection) error {
	out := *collection
	m.collections[collection.Symbol] = &out
	return nil
}

func (m *memRegistryState) NFTOwnerGet(symbol string, id uint64) ([20]byte, bool, error) {
	owner, ok := m.owners[memOwnerKey(symbol, id)]
	return owner, ok, nil
}

func (m *memRegistryState) NFTOwnerPut(symbol string, id uint64, owner [20]byte) error {
	m.owners[memOwnerKey(symbol, id)] = owner
	return nil
}

func (m *memRegistryState) NFTBalanceGet(symbol string, addr [20]byte) (uint64, error) {
	return m.balances[memBalanceKey(symbol, addr)], nil
}

func (m *memRegistryState) NFTBalanceSet(symbol string, addr [20]byte, balance uint64) error {
	m.balances[memBalanceKey(symbol, addr)] = balance
	return nil
}

func testAddr(b byte) [20]byte {
	var out [20]byte
	out[19] = b
	return out
}

func newTestRegistry() *Registry {
	registry := NewRegistry()
	registry.SetState(newMemRegistryState())
	return registry
}

func TestCreateCollectionValidation(t *testing.T) {
	registry := newTestRegistry()
	minter := testAddr(0x01)

	if err := registry.CreateCollection("", "Miners", minter); !errors.Is(err, ErrInvalidCollection) {
		t.Fatalf("expected ErrInvalidCollection for empty symbol, got %v", err)
	}
	if err := registry.CreateCollection("MINERS", "", minter); !errors.Is(err, ErrInvalidCollection) {
		t.Fatalf("expected ErrInvalidCollection for empty name, got %v", err)
	}
	if err := registry.CreateCollection("MINERS", "Miners", [20]byte{}); !errors.Is(err, ErrZeroAddress) {
		t.Fatalf("expected ErrZeroAddress, got %v", err)
	}
	if err := registry.CreateCollection("MINERS", "Miners", minter); err != nil {
		t.Fatalf("create collection: %v", err)
	}
	if err := registry.CreateCollection("miners", "Miners", minter); !errors.Is(err, ErrCollectionExists) {
		t.Fatalf("symbols are case-insensitive, expected ErrCollectionExists, got %v", err)
	}
}

func TestMintIssuesSequentialIDs(t *testing.T) {
	registry := newTestRegistry()
	minter := testAddr(0x01)
	holder := testAddr(0x02)
	if err := registry.CreateCollection("MINERS", "Miners", minter); err != nil {
		t.Fatalf("create collection: %v", err)
	}

	if _, err := registry.Mint("MINERS", holder, holder); !errors.Is(err, ErrNotMinter) {
		t.Fatalf("expected ErrNotMinter, got %v", err)
	}
	if _, err := registry.Mint("GHOST", minter, holder); !errors.Is(err, ErrCollectionNotFound) {
		t.Fatalf("expected ErrCollectionNotFound, got %v", err)
	}

	first, err := registry.Mint("MINERS", minter, holder)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	second, err := registry.Mint("MINERS", minter, holder)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if first != 1 || second != 2 {
		t.Fatalf("ids = %d, %d, want 1, 2", first, second)
	}
	balance, err := registry.BalanceOf("MINERS", holder)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 2 {
		t.Fatalf("balance = %d, want 2", balance)
	}
}

func TestTransferMovesOwnership(t *testing.T) {
	registry := newTestRegistry()
	minter := testAddr(0x01)
	holder := testAddr(0x02)
	buyer := testAddr(0x03)
	if err := registry.CreateCollection("MINERS", "Miners", minter); err != nil {
		t.Fatalf("create collection: %v", err)
	}
	id, err := registry.Mint("MINERS", minter, holder)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	if err := registry.Transfer("MINERS", buyer, buyer, id); !errors.Is(err, ErrNotTokenOwner) {
		t.Fatalf("expected ErrNotTokenOwner, got %v", err)
	}
	if err := registry.Transfer("MINERS", holder, buyer, 99); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
	if err := registry.Transfer("MINERS", holder, buyer, id); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	owner, err := registry.OwnerOf("MINERS", id)
	if err != nil {
		t.Fatalf("owner of: %v", err)
	}
	if owner != buyer {
		t.Fatalf("owner = %x, want buyer", owner)
	}
	fromBalance, _ := registry.BalanceOf("MINERS", holder)
	toBalance, _ := registry.BalanceOf("MINERS", buyer)
	if fromBalance != 0 || toBalance != 1 {
		t.Fatalf("balances = %d/%d, want 0/1", fromBalance, toBalance)
	}
}
