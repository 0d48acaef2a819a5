package nft

import (
	"strings"
)

type registryState interface {
	NFTCollectionGet(symbol string) (*Collection, bool, error)
	NFTCollectionPut(collection *Collection) error
	NFTOwnerGet(symbol string, id uint64) ([20]byte, bool, error)
	NFTOwnerPut(symbol string, id uint64, owner [20]byte) error
	NFTBalanceGet(symbol string, addr [20]byte) (uint64, error)
	NFTBalanceSet(symbol string, addr [20]byte, balance uint64) error
}

// Registry implements the non-fungible collection ledger: collection
// creation, authority-gated minting and owner-driven transfers. The mining
// engine consumes it read-only for staked assets and write-only (mint) for
// bonus assets.
type Registry struct {
	state registryState
}

// NewRegistry constructs an NFT registry without a state backend; callers wire
// one via SetState before use.
func NewRegistry() *Registry {
	return &Registry{}
}

// SetState configures the state backend used by the registry.
func (r *Registry) SetState(state registryState) { r.state = state }

func isZeroAddress(addr [20]byte) bool {
	return addr == [20]byte{}
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// CreateCollection registers a new collection with the provided mint
// authority. Symbols are case-insensitive and must be unique.
func (r *Registry) CreateCollection(symbol, name string, minter [20]byte) error {
	if r == nil || r.state == nil {
		return ErrInvalidCollection
	}
	normalized := normalizeSymbol(symbol)
	if normalized == "" || strings.TrimSpace(name) == "" {
		return ErrInvalidCollection
	}
	if isZeroAddress(minter) {
		return ErrZeroAddress
	}
	if _, ok, err := r.state.NFTCollectionGet(normalized); err != nil {
		return err
	} else if ok {
		return ErrCollectionExists
	}
	return r.state.NFTCollectionPut(&Collection{
		Symbol: normalized,
		Name:   strings.TrimSpace(name),
		Minter: minter,
		NextID: 1,
	})
}

// Mint issues a fresh token id in the collection to the recipient. Only the
// collection's mint authority may call it.
func (r *Registry) Mint(symbol string, caller, to [20]byte) (uint64, error) {
	if r == nil || r.state == nil {
		return 0, ErrCollectionNotFound
	}
	if isZeroAddress(to) {
		return 0, ErrZeroAddress
	}
	normalized := normalizeSymbol(symbol)
	collection, ok, err := r.state.NFTCollectionGet(normalized)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrCollectionNotFound
	}
	if collection.Minter != caller {
		return 0, ErrNotMinter
	}
	id := collection.NextID
	collection.NextID++
	if err := r.state.NFTCollectionPut(collection); err != nil {
		return 0, err
	}
	if err := r.state.NFTOwnerPut(normalized, id, to); err != nil {
		return 0, err
	}
	balance, err := r.state.NFTBalanceGet(normalized, to)
	if err != nil {
		return 0, err
	}
	if err := r.state.NFTBalanceSet(normalized, to, balance+1); err != nil {
		return 0, err
	}
	return id, nil
}

// Transfer moves a token to a new owner. The caller must be the current owner.
func (r *Registry) Transfer(symbol string, caller, to [20]byte, id uint64) error {
	if r == nil || r.state == nil {
		return ErrCollectionNotFound
	}
	if isZeroAddress(to) {
		return ErrZeroAddress
	}
	normalized := normalizeSymbol(symbol)
	owner, ok, err := r.state.NFTOwnerGet(normalized, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTokenNotFound
	}
	if owner != caller {
		return ErrNotTokenOwner
	}
	if err := r.state.NFTOwnerPut(normalized, id, to); err != nil {
		return err
	}
	fromBalance, err := r.state.NFTBalanceGet(normalized, owner)
	if err != nil {
		return err
	}
	if fromBalance > 0 {
		if err := r.state.NFTBalanceSet(normalized, owner, fromBalance-1); err != nil {
			return err
		}
	}
	toBalance, err := r.state.NFTBalanceGet(normalized, to)
	if err != nil {
		return err
	}
	return r.state.NFTBalanceSet(normalized, to, toBalance+1)
}

// OwnerOf resolves the current owner of a token.
func (r *Registry) OwnerOf(symbol string, id uint64) ([20]byte, error) {
	var zero [20]byte
	if r == nil || r.state == nil {
		return zero, ErrCollectionNotFound
	}
	owner, ok, err := r.state.NFTOwnerGet(normalizeSymbol(symbol), id)
	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, ErrTokenNotFound
	}
	return owner, nil
}

// BalanceOf returns the number of tokens the address holds in the collection.
func (r *Registry) BalanceOf(symbol string, addr [20]byte) (uint64, error) {
	if r == nil || r.state == nil {
		return 0, ErrCollectionNotFound
	}
	return r.state.NFTBalanceGet(normalizeSymbol(symbol), addr)
}

// Collection loads the collection record for the symbol.
func (r *Registry) Collection(symbol string) (*Collection, bool, error) {
	if r == nil || r.state == nil {
		return nil, false, ErrCollectionNotFound
	}
	return r.state.NFTCollectionGet(normalizeSymbol(symbol))
}
