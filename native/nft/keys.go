package nft

import "encoding/binary"

var (
	collectionPrefix = []byte("nft/collection/")
	ownerPrefix      = []byte("nft/owner/")
	balancePrefix    = []byte("nft/balance/")
)

func collectionKey(symbol string) []byte {
	key := make([]byte, len(collectionPrefix)+len(symbol))
	copy(key, collectionPrefix)
	copy(key[len(collectionPrefix):], symbol)
	return key
}

func ownerKey(symbol string, id uint64) []byte {
	key := make([]byte, len(ownerPrefix)+len(symbol)+1+8)
	copy(key, ownerPrefix)
	copy(key[len(ownerPrefix):], symbol)
	key[len(ownerPrefix)+len(symbol)] = '/'
	binary.BigEndian.PutUint64(key[len(ownerPrefix)+len(symbol)+1:], id)
	return key
}

func balanceKey(symbol string, addr [20]byte) []byte {
	key := make([]byte, len(balancePrefix)+len(symbol)+1+len(addr))
	copy(key, balancePrefix)
	copy(key[len(balancePrefix):], symbol)
	key[len(balancePrefix)+len(symbol)] = '/'
	copy(key[len(balancePrefix)+len(symbol)+1:], addr[:])
	return key
}

// CollectionStorageKey returns the raw storage key for a collection record.
func CollectionStorageKey(symbol string) []byte {
	return collectionKey(symbol)
}

// OwnerStorageKey returns the raw storage key for a token ownership record.
func OwnerStorageKey(symbol string, id uint64) []byte {
	return ownerKey(symbol, id)
}

// BalanceStorageKey returns the raw storage key for a holder balance record.
func BalanceStorageKey(symbol string, addr [20]byte) []byte {
	return balanceKey(symbol, addr)
}
