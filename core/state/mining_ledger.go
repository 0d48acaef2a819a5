package state

import (
	"fmt"
	"math/big"

	"minechain/native/mining"
)

func normalizeBig(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// MiningIncentiveGet loads the program record for the id. A missing record
// returns (nil, false, nil).
func (m *Manager) MiningIncentiveGet(id mining.IncentiveID) (*mining.Incentive, bool, error) {
	if m == nil {
		return nil, false, fmt.Errorf("mining: state manager not initialised")
	}
	var stored mining.Incentive
	ok, err := m.KVGet(mining.IncentiveStorageKey(id), &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	stored.RewardRate = normalizeBig(stored.RewardRate)
	stored.RewardPerShare = normalizeBig(stored.RewardPerShare)
	stored.AccruedRefund = normalizeBig(stored.AccruedRefund)
	return &stored, true, nil
}

// MiningIncentivePut persists the program record for the id.
func (m *Manager) MiningIncentivePut(id mining.IncentiveID, incentive *mining.Incentive) error {
	if m == nil {
		return fmt.Errorf("mining: state manager not initialised")
	}
	if incentive == nil {
		return fmt.Errorf("mining: incentive record required")
	}
	stored := mining.Incentive{
		RewardRate:          normalizeBig(incentive.RewardRate),
		RewardPerShare:      normalizeBig(incentive.RewardPerShare),
		NumberOfStakes:      incentive.NumberOfStakes,
		LastUpdateTime:      incentive.LastUpdateTime,
		AccruedRefund:       normalizeBig(incentive.AccruedRefund),
		MiningTimeThreshold: incentive.MiningTimeThreshold,
	}
	return m.KVPut(mining.IncentiveStorageKey(id), &stored)
}

// MiningPositionGet loads the staker position for (id, addr). A missing record
// returns (nil, false, nil); callers materialise fresh zeroed positions.
func (m *Manager) MiningPositionGet(id mining.IncentiveID, addr [20]byte) (*mining.StakerPosition, bool, error) {
	if m == nil {
		return nil, false, fmt.Errorf("mining: state manager not initialised")
	}
	var stored mining.StakerPosition
	ok, err := m.KVGet(mining.PositionStorageKey(id, addr), &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	stored.RewardPerSharePaid = normalizeBig(stored.RewardPerSharePaid)
	stored.Reward = normalizeBig(stored.Reward)
	return &stored, true, nil
}

// MiningPositionPut persists the staker position for (id, addr).
func (m *Manager) MiningPositionPut(id mining.IncentiveID, addr [20]byte, position *mining.StakerPosition) error {
	if m == nil {
		return fmt.Errorf("mining: state manager not initialised")
	}
	if position == nil {
		return fmt.Errorf("mining: position record required")
	}
	stored := mining.StakerPosition{
		StartedStaking:     position.StartedStaking,
		RewardPerSharePaid: normalizeBig(position.RewardPerSharePaid),
		Reward:             normalizeBig(position.Reward),
		NumberOfStakes:     position.NumberOfStakes,
	}
	return m.KVPut(mining.PositionStorageKey(id, addr), &stored)
}

// MiningStakeOwnerGet resolves the registered staker for (id, nftID).
func (m *Manager) MiningStakeOwnerGet(id mining.IncentiveID, nftID uint64) ([20]byte, bool, error) {
	var owner [20]byte
	if m == nil {
		return owner, false, fmt.Errorf("mining: state manager not initialised")
	}
	var stored [20]byte
	ok, err := m.KVGet(mining.StakeEntryStorageKey(id, nftID), &stored)
	if err != nil || !ok {
		return owner, ok, err
	}
	return stored, true, nil
}

// MiningStakeOwnerPut records the staker for (id, nftID).
func (m *Manager) MiningStakeOwnerPut(id mining.IncentiveID, nftID uint64, owner [20]byte) error {
	if m == nil {
		return fmt.Errorf("mining: state manager not initialised")
	}
	return m.KVPut(mining.StakeEntryStorageKey(id, nftID), &owner)
}

// MiningStakeOwnerDelete clears the stake entry for (id, nftID).
func (m *Manager) MiningStakeOwnerDelete(id mining.IncentiveID, nftID uint64) error {
	if m == nil {
		return fmt.Errorf("mining: state manager not initialised")
	}
	return m.KVDelete(mining.StakeEntryStorageKey(id, nftID))
}

// MiningTimeGet loads the cross-program mining-time accumulator for an address.
func (m *Manager) MiningTimeGet(addr [20]byte) (uint64, error) {
	if m == nil {
		return 0, fmt.Errorf("mining: state manager not initialised")
	}
	var stored uint64
	ok, err := m.KVGet(mining.MinerTimeStorageKey(addr), &stored)
	if err != nil || !ok {
		return 0, err
	}
	return stored, nil
}

// MiningTimeSet stores the cross-program mining-time accumulator for an address.
func (m *Manager) MiningTimeSet(addr [20]byte, value uint64) error {
	if m == nil {
		return fmt.Errorf("mining: state manager not initialised")
	}
	return m.KVPut(mining.MinerTimeStorageKey(addr), value)
}

// MiningStakeCountGet loads the cross-program active stake count for an
// address. The count gates the mining-time reset when it drops to zero.
func (m *Manager) MiningStakeCountGet(addr [20]byte) (uint64, error) {
	if m == nil {
		return 0, fmt.Errorf("mining: state manager not initialised")
	}
	var stored uint64
	ok, err := m.KVGet(mining.StakeCountStorageKey(addr), &stored)
	if err != nil || !ok {
		return 0, err
	}
	return stored, nil
}

// MiningStakeCountSet stores the cross-program active stake count for an address.
func (m *Manager) MiningStakeCountSet(addr [20]byte, value uint64) error {
	if m == nil {
		return fmt.Errorf("mining: state manager not initialised")
	}
	return m.KVPut(mining.StakeCountStorageKey(addr), value)
}

// MiningFeeGet loads the protocol fee configuration. A missing record returns
// (nil, false, nil), meaning no fee is charged.
func (m *Manager) MiningFeeGet() (*mining.ProtocolFee, bool, error) {
	if m == nil {
		return nil, false, fmt.Errorf("mining: state manager not initialised")
	}
	var stored mining.ProtocolFee
	ok, err := m.KVGet(mining.FeeStorageKey(), &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &stored, true, nil
}

// MiningFeePut persists the protocol fee configuration.
func (m *Manager) MiningFeePut(fee *mining.ProtocolFee) error {
	if m == nil {
		return fmt.Errorf("mining: state manager not initialised")
	}
	if fee == nil {
		return fmt.Errorf("mining: fee record required")
	}
	return m.KVPut(mining.FeeStorageKey(), fee)
}
