package mining

import (
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// IncentiveID uniquely identifies an incentive program. It is the keccak256
// hash of the RLP encoding of the program's IncentiveKey, so two keys with
// identical field values always resolve to the same id and the registry needs
// no allocator.
type IncentiveID [32]byte

// IncentiveKey carries the immutable configuration of an incentive program.
// The key is never stored; callers recompute it and pass it to every
// operation. The key itself is the program's identity.
type IncentiveKey struct {
	StakeCollection string
	RewardToken     string
	BonusCollection string
	StartTime       uint64
	EndTime         uint64
	BondAmount      *big.Int
	RefundRecipient [20]byte
}

// ID derives the deterministic program identifier from the key's fields.
// RLP encodes the struct in declared field order, so the hash is stable across
// processes. Encoding a fully typed key cannot fail.
func (k IncentiveKey) ID() IncentiveID {
	normalized := k
	if normalized.BondAmount == nil {
		normalized.BondAmount = big.NewInt(0)
	}
	encoded, err := rlp.EncodeToBytes(normalized)
	if err != nil {
		panic(err)
	}
	var id IncentiveID
	copy(id[:], ethcrypto.Keccak256(encoded))
	return id
}

// Incentive is the mutable ledger record of a program. It is created once at
// funding time and mutated by every stake, unstake, slash, claim and refund
// touching it, but never deleted: ended programs stay queryable for
// settlement.
type Incentive struct {
	RewardRate          *big.Int
	RewardPerShare      *big.Int
	NumberOfStakes      uint64
	LastUpdateTime      uint64
	AccruedRefund       *big.Int
	MiningTimeThreshold uint64
}

// StakerPosition tracks one address inside one program: the start of the
// current unbroken staking streak, the reward-per-share snapshot last observed
// by the address, the accumulated unclaimed reward and the number of NFTs the
// address currently has registered. Fields zero out rather than the record
// being deleted, so re-staking after a full withdrawal starts a fresh streak.
type StakerPosition struct {
	StartedStaking     uint64
	RewardPerSharePaid *big.Int
	Reward             *big.Int
	NumberOfStakes     uint64
}

// StakeRequest names one registration inside a batch stake call.
type StakeRequest struct {
	Key   IncentiveKey
	NftID uint64
}

// ProtocolFee is the process-wide creation fee configuration, expressed in
// parts per thousand of the funded reward amount.
type ProtocolFee struct {
	RatePermille uint32
	Recipient    [20]byte
}
