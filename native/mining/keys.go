package mining

import "encoding/binary"

var (
	incentivePrefix   = []byte("mining/incentive/")
	positionPrefix    = []byte("mining/position/")
	stakeEntryPrefix  = []byte("mining/stake/")
	minerTimePrefix   = []byte("mining/miner/")
	minerStakesPrefix = []byte("mining/stakes/")
	feeKeyBytes       = []byte("mining/fee")
)

func incentiveKey(id IncentiveID) []byte {
	key := make([]byte, len(incentivePrefix)+len(id))
	copy(key, incentivePrefix)
	copy(key[len(incentivePrefix):], id[:])
	return key
}

func positionKey(id IncentiveID, addr [20]byte) []byte {
	key := make([]byte, len(positionPrefix)+len(id)+len(addr))
	copy(key, positionPrefix)
	copy(key[len(positionPrefix):], id[:])
	copy(key[len(positionPrefix)+len(id):], addr[:])
	return key
}

func stakeEntryKey(id IncentiveID, nftID uint64) []byte {
	key := make([]byte, len(stakeEntryPrefix)+len(id)+8)
	copy(key, stakeEntryPrefix)
	copy(key[len(stakeEntryPrefix):], id[:])
	binary.BigEndian.PutUint64(key[len(stakeEntryPrefix)+len(id):], nftID)
	return key
}

func minerTimeKey(addr [20]byte) []byte {
	key := make([]byte, len(minerTimePrefix)+len(addr))
	copy(key, minerTimePrefix)
	copy(key[len(minerTimePrefix):], addr[:])
	return key
}

func minerStakesKey(addr [20]byte) []byte {
	key := make([]byte, len(minerStakesPrefix)+len(addr))
	copy(key, minerStakesPrefix)
	copy(key[len(minerStakesPrefix):], addr[:])
	return key
}

// IncentiveStorageKey returns the raw storage key for a program record.
func IncentiveStorageKey(id IncentiveID) []byte {
	return incentiveKey(id)
}

// PositionStorageKey returns the raw storage key for a staker position.
func PositionStorageKey(id IncentiveID, addr [20]byte) []byte {
	return positionKey(id, addr)
}

// StakeEntryStorageKey returns the raw storage key for a stake entry.
func StakeEntryStorageKey(id IncentiveID, nftID uint64) []byte {
	return stakeEntryKey(id, nftID)
}

// MinerTimeStorageKey returns the raw storage key for the cross-program
// mining-time accumulator of an address.
func MinerTimeStorageKey(addr [20]byte) []byte {
	return minerTimeKey(addr)
}

// StakeCountStorageKey returns the raw storage key for the cross-program
// active stake count of an address.
func StakeCountStorageKey(addr [20]byte) []byte {
	return minerStakesKey(addr)
}

// FeeStorageKey returns the raw storage key for the protocol fee record.
func FeeStorageKey() []byte {
	return append([]byte(nil), feeKeyBytes...)
}
