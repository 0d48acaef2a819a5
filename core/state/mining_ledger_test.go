package state

import (
	"math/big"
	"testing"

	"minechain/core/types"
	"minechain/native/mining"
	"minechain/storage"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(storage.NewMemDB())
}

func testID(b byte) mining.IncentiveID {
	var id mining.IncentiveID
	id[31] = b
	return id
}

func testAddr(b byte) [20]byte {
	var addr [20]byte
	addr[19] = b
	return addr
}

func TestMiningIncentiveRoundTrip(t *testing.T) {
	manager := newTestManager(t)
	id := testID(0x01)

	if _, ok, err := manager.MiningIncentiveGet(id); err != nil || ok {
		t.Fatalf("missing incentive: ok=%v err=%v", ok, err)
	}

	incentive := &mining.Incentive{
		RewardRate:          big.NewInt(900),
		RewardPerShare:      new(big.Int).Mul(big.NewInt(123), mining.Precision),
		NumberOfStakes:      3,
		LastUpdateTime:      1700,
		AccruedRefund:       big.NewInt(200_000),
		MiningTimeThreshold: 250,
	}
	if err := manager.MiningIncentivePut(id, incentive); err != nil {
		t.Fatalf("put incentive: %v", err)
	}

	loaded, ok, err := manager.MiningIncentiveGet(id)
	if err != nil || !ok {
		t.Fatalf("get incentive: ok=%v err=%v", ok, err)
	}
	if loaded.RewardRate.Cmp(incentive.RewardRate) != 0 {
		t.Fatalf("reward rate = %s, want %s", loaded.RewardRate, incentive.RewardRate)
	}
	if loaded.RewardPerShare.Cmp(incentive.RewardPerShare) != 0 {
		t.Fatalf("reward per share = %s, want %s", loaded.RewardPerShare, incentive.RewardPerShare)
	}
	if loaded.NumberOfStakes != 3 || loaded.LastUpdateTime != 1700 || loaded.MiningTimeThreshold != 250 {
		t.Fatalf("scalar fields did not survive the round trip: %+v", loaded)
	}
	if loaded.AccruedRefund.Cmp(incentive.AccruedRefund) != 0 {
		t.Fatalf("accrued refund = %s, want %s", loaded.AccruedRefund, incentive.AccruedRefund)
	}
}

func TestMiningIncentiveNormalizesNilAmounts(t *testing.T) {
	manager := newTestManager(t)
	id := testID(0x02)
	if err := manager.MiningIncentivePut(id, &mining.Incentive{NumberOfStakes: 1}); err != nil {
		t.Fatalf("put incentive: %v", err)
	}
	loaded, ok, err := manager.MiningIncentiveGet(id)
	if err != nil || !ok {
		t.Fatalf("get incentive: ok=%v err=%v", ok, err)
	}
	if loaded.RewardRate == nil || loaded.RewardPerShare == nil || loaded.AccruedRefund == nil {
		t.Fatalf("nil amounts must come back as zero values: %+v", loaded)
	}
}

func TestMiningPositionRoundTrip(t *testing.T) {
	manager := newTestManager(t)
	id := testID(0x03)
	addr := testAddr(0x07)

	if _, ok, err := manager.MiningPositionGet(id, addr); err != nil || ok {
		t.Fatalf("missing position: ok=%v err=%v", ok, err)
	}

	position := &mining.StakerPosition{
		StartedStaking:     1500,
		RewardPerSharePaid: new(big.Int).Mul(big.NewInt(77), mining.Precision),
		Reward:             big.NewInt(650_000),
		NumberOfStakes:     2,
	}
	if err := manager.MiningPositionPut(id, addr, position); err != nil {
		t.Fatalf("put position: %v", err)
	}

	loaded, ok, err := manager.MiningPositionGet(id, addr)
	if err != nil || !ok {
		t.Fatalf("get position: ok=%v err=%v", ok, err)
	}
	if loaded.StartedStaking != 1500 || loaded.NumberOfStakes != 2 {
		t.Fatalf("scalar fields did not survive the round trip: %+v", loaded)
	}
	if loaded.RewardPerSharePaid.Cmp(position.RewardPerSharePaid) != 0 {
		t.Fatalf("snapshot = %s, want %s", loaded.RewardPerSharePaid, position.RewardPerSharePaid)
	}
	if loaded.Reward.Cmp(position.Reward) != 0 {
		t.Fatalf("reward = %s, want %s", loaded.Reward, position.Reward)
	}
}

func TestMiningStakeOwnerLifecycle(t *testing.T) {
	manager := newTestManager(t)
	id := testID(0x04)
	owner := testAddr(0x09)

	if _, ok, err := manager.MiningStakeOwnerGet(id, 7); err != nil || ok {
		t.Fatalf("missing stake entry: ok=%v err=%v", ok, err)
	}
	if err := manager.MiningStakeOwnerPut(id, 7, owner); err != nil {
		t.Fatalf("put stake entry: %v", err)
	}
	loaded, ok, err := manager.MiningStakeOwnerGet(id, 7)
	if err != nil || !ok {
		t.Fatalf("get stake entry: ok=%v err=%v", ok, err)
	}
	if loaded != owner {
		t.Fatalf("owner = %x, want %x", loaded, owner)
	}

	// The same nft id under a different incentive is a distinct entry.
	if _, ok, _ := manager.MiningStakeOwnerGet(testID(0x05), 7); ok {
		t.Fatalf("stake entries must be scoped to the incentive id")
	}

	if err := manager.MiningStakeOwnerDelete(id, 7); err != nil {
		t.Fatalf("delete stake entry: %v", err)
	}
	if _, ok, _ := manager.MiningStakeOwnerGet(id, 7); ok {
		t.Fatalf("stake entry must be gone after delete")
	}
}

func TestMiningTimeRoundTrip(t *testing.T) {
	manager := newTestManager(t)
	addr := testAddr(0x0A)

	value, err := manager.MiningTimeGet(addr)
	if err != nil {
		t.Fatalf("get mining time: %v", err)
	}
	if value != 0 {
		t.Fatalf("fresh accumulator = %d, want 0", value)
	}
	if err := manager.MiningTimeSet(addr, 12345); err != nil {
		t.Fatalf("set mining time: %v", err)
	}
	value, err = manager.MiningTimeGet(addr)
	if err != nil {
		t.Fatalf("get mining time: %v", err)
	}
	if value != 12345 {
		t.Fatalf("accumulator = %d, want 12345", value)
	}
	if err := manager.MiningTimeSet(addr, 0); err != nil {
		t.Fatalf("zero mining time: %v", err)
	}
	value, _ = manager.MiningTimeGet(addr)
	if value != 0 {
		t.Fatalf("accumulator = %d, want 0 after reset", value)
	}
}

func TestMiningStakeCountRoundTrip(t *testing.T) {
	manager := newTestManager(t)
	addr := testAddr(0x0B)

	count, err := manager.MiningStakeCountGet(addr)
	if err != nil {
		t.Fatalf("get stake count: %v", err)
	}
	if count != 0 {
		t.Fatalf("fresh stake count = %d, want 0", count)
	}
	if err := manager.MiningStakeCountSet(addr, 3); err != nil {
		t.Fatalf("set stake count: %v", err)
	}
	count, err = manager.MiningStakeCountGet(addr)
	if err != nil {
		t.Fatalf("get stake count: %v", err)
	}
	if count != 3 {
		t.Fatalf("stake count = %d, want 3", count)
	}
}

func TestMiningFeeRoundTrip(t *testing.T) {
	manager := newTestManager(t)

	if _, ok, err := manager.MiningFeeGet(); err != nil || ok {
		t.Fatalf("missing fee: ok=%v err=%v", ok, err)
	}
	fee := &mining.ProtocolFee{RatePermille: 25, Recipient: testAddr(0x0B)}
	if err := manager.MiningFeePut(fee); err != nil {
		t.Fatalf("put fee: %v", err)
	}
	loaded, ok, err := manager.MiningFeeGet()
	if err != nil || !ok {
		t.Fatalf("get fee: ok=%v err=%v", ok, err)
	}
	if loaded.RatePermille != 25 || loaded.Recipient != fee.Recipient {
		t.Fatalf("fee = %+v, want %+v", loaded, fee)
	}
}

func TestAccountRoundTrip(t *testing.T) {
	manager := newTestManager(t)
	addr := testAddr(0x0C)

	account, err := manager.GetAccount(addr[:])
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if account.Balance == nil || account.Balance.Sign() != 0 {
		t.Fatalf("fresh account must have a zero balance: %+v", account)
	}

	account.Balance = big.NewInt(5000)
	account.Nonce = 3
	if err := manager.PutAccount(addr[:], account); err != nil {
		t.Fatalf("put account: %v", err)
	}
	loaded, err := manager.GetAccount(addr[:])
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if loaded.Balance.Cmp(big.NewInt(5000)) != 0 || loaded.Nonce != 3 {
		t.Fatalf("account = %+v, want balance 5000 nonce 3", loaded)
	}

	negative := &types.Account{Balance: big.NewInt(-1)}
	if err := manager.PutAccount(addr[:], negative); err == nil {
		t.Fatalf("negative balances must be rejected")
	}
}

func TestRoleRegistry(t *testing.T) {
	manager := newTestManager(t)
	addr := testAddr(0x0D)

	if manager.HasRole(mining.RoleAdmin, addr[:]) {
		t.Fatalf("fresh address must not hold the admin role")
	}
	if err := manager.SetRole(mining.RoleAdmin, addr[:]); err != nil {
		t.Fatalf("set role: %v", err)
	}
	if !manager.HasRole(mining.RoleAdmin, addr[:]) {
		t.Fatalf("address must hold the admin role after grant")
	}
	other := testAddr(0x0E)
	if manager.HasRole(mining.RoleAdmin, other[:]) {
		t.Fatalf("unrelated address must not hold the role")
	}
}
