package events

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"minechain/core/types"
	"minechain/crypto"
)

const (
	// TypeMiningIncentiveCreated is emitted when a new incentive program is funded.
	TypeMiningIncentiveCreated = "mining.incentiveCreated"
	// TypeMiningStaked captures an NFT registration into an incentive program.
	TypeMiningStaked = "mining.staked"
	// TypeMiningUnstaked captures a voluntary deregistration and bond release.
	TypeMiningUnstaked = "mining.unstaked"
	// TypeMiningSlashed is emitted when a stale registration forfeits its bond.
	TypeMiningSlashed = "mining.slashed"
	// TypeMiningRewardsClaimed is emitted when streamed rewards are paid out.
	TypeMiningRewardsClaimed = "mining.rewardsClaimed"
	// TypeMiningRefundClaimed captures a zero-participant refund payout.
	TypeMiningRefundClaimed = "mining.refundClaimed"
	// TypeMiningBonusMinted signals a mining-time threshold crossing.
	TypeMiningBonusMinted = "mining.bonusMinted"
	// TypeMiningFeeUpdated is emitted when governance retunes the protocol fee.
	TypeMiningFeeUpdated = "mining.feeUpdated"
)

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func formatAddr(a [20]byte) string {
	return crypto.MustNewAddress(crypto.MinePrefix, a[:]).String()
}

// IncentiveCreated captures the immutable configuration of a freshly funded program.
type IncentiveCreated struct {
	ID           [32]byte
	Creator      [20]byte
	RewardAmount *big.Int
	Fee          *big.Int
	RewardRate   *big.Int
	StartTime    uint64
	EndTime      uint64
}

// EventType satisfies the Event interface.
func (IncentiveCreated) EventType() string { return TypeMiningIncentiveCreated }

// Event converts the structured payload into a broadcastable event.
func (e IncentiveCreated) Event() *types.Event {
	return &types.Event{Type: TypeMiningIncentiveCreated, Attributes: map[string]string{
		"incentiveId":  hex.EncodeToString(e.ID[:]),
		"creator":      formatAddr(e.Creator),
		"rewardAmount": formatAmount(e.RewardAmount),
		"fee":          formatAmount(e.Fee),
		"rewardRate":   formatAmount(e.RewardRate),
		"startTime":    strconv.FormatUint(e.StartTime, 10),
		"endTime":      strconv.FormatUint(e.EndTime, 10),
	}}
}

// Staked records an NFT registration and the bond locked alongside it.
type Staked struct {
	ID     [32]byte
	Staker [20]byte
	NftID  uint64
	Bond   *big.Int
}

// EventType satisfies the Event interface.
func (Staked) EventType() string { return TypeMiningStaked }

// Event converts the structured payload into a broadcastable event.
func (e Staked) Event() *types.Event {
	return &types.Event{Type: TypeMiningStaked, Attributes: map[string]string{
		"incentiveId": hex.EncodeToString(e.ID[:]),
		"staker":      formatAddr(e.Staker),
		"nftId":       strconv.FormatUint(e.NftID, 10),
		"bond":        formatAmount(e.Bond),
	}}
}

// Unstaked records a voluntary deregistration.
type Unstaked struct {
	ID            [32]byte
	Staker        [20]byte
	NftID         uint64
	BondRecipient [20]byte
	Bond          *big.Int
}

// EventType satisfies the Event interface.
func (Unstaked) EventType() string { return TypeMiningUnstaked }

// Event converts the structured payload into a broadcastable event.
func (e Unstaked) Event() *types.Event {
	return &types.Event{Type: TypeMiningUnstaked, Attributes: map[string]string{
		"incentiveId":   hex.EncodeToString(e.ID[:]),
		"staker":        formatAddr(e.Staker),
		"nftId":         strconv.FormatUint(e.NftID, 10),
		"bondRecipient": formatAddr(e.BondRecipient),
		"bond":          formatAmount(e.Bond),
	}}
}

// Slashed records a stale registration losing its bond to a third party.
type Slashed struct {
	ID            [32]byte
	Staker        [20]byte
	NftID         uint64
	BondRecipient [20]byte
	Bond          *big.Int
}

// EventType satisfies the Event interface.
func (Slashed) EventType() string { return TypeMiningSlashed }

// Event converts the structured payload into a broadcastable event.
func (e Slashed) Event() *types.Event {
	return &types.Event{Type: TypeMiningSlashed, Attributes: map[string]string{
		"incentiveId":   hex.EncodeToString(e.ID[:]),
		"staker":        formatAddr(e.Staker),
		"nftId":         strconv.FormatUint(e.NftID, 10),
		"bondRecipient": formatAddr(e.BondRecipient),
		"bond":          formatAmount(e.Bond),
	}}
}

// RewardsClaimed records a streamed reward payout.
type RewardsClaimed struct {
	ID        [32]byte
	Staker    [20]byte
	Recipient [20]byte
	Amount    *big.Int
}

// EventType satisfies the Event interface.
func (RewardsClaimed) EventType() string { return TypeMiningRewardsClaimed }

// Event converts the structured payload into a broadcastable event.
func (e RewardsClaimed) Event() *types.Event {
	return &types.Event{Type: TypeMiningRewardsClaimed, Attributes: map[string]string{
		"incentiveId": hex.EncodeToString(e.ID[:]),
		"staker":      formatAddr(e.Staker),
		"recipient":   formatAddr(e.Recipient),
		"amount":      formatAmount(e.Amount),
	}}
}

// RefundClaimed records a zero-participant refund payout.
type RefundClaimed struct {
	ID        [32]byte
	Recipient [20]byte
	Amount    *big.Int
}

// EventType satisfies the Event interface.
func (RefundClaimed) EventType() string { return TypeMiningRefundClaimed }

// Event converts the structured payload into a broadcastable event.
func (e RefundClaimed) Event() *types.Event {
	return &types.Event{Type: TypeMiningRefundClaimed, Attributes: map[string]string{
		"incentiveId": hex.EncodeToString(e.ID[:]),
		"recipient":   formatAddr(e.Recipient),
		"amount":      formatAmount(e.Amount),
	}}
}

// BonusMinted records a bonus NFT issuance triggered by a claim.
type BonusMinted struct {
	ID         [32]byte
	Staker     [20]byte
	Recipient  [20]byte
	BonusNftID uint64
	MinedTime  uint64
}

// EventType satisfies the Event interface.
func (BonusMinted) EventType() string { return TypeMiningBonusMinted }

// Event converts the structured payload into a broadcastable event.
func (e BonusMinted) Event() *types.Event {
	return &types.Event{Type: TypeMiningBonusMinted, Attributes: map[string]string{
		"incentiveId": hex.EncodeToString(e.ID[:]),
		"staker":      formatAddr(e.Staker),
		"recipient":   formatAddr(e.Recipient),
		"bonusNftId":  strconv.FormatUint(e.BonusNftID, 10),
		"minedTime":   strconv.FormatUint(e.MinedTime, 10),
	}}
}

// FeeUpdated records a protocol fee reconfiguration.
type FeeUpdated struct {
	RatePermille uint32
	Recipient    [20]byte
}

// EventType satisfies the Event interface.
func (FeeUpdated) EventType() string { return TypeMiningFeeUpdated }

// Event converts the structured payload into a broadcastable event.
func (e FeeUpdated) Event() *types.Event {
	return &types.Event{Type: TypeMiningFeeUpdated, Attributes: map[string]string{
		"ratePermille": strconv.FormatUint(uint64(e.RatePermille), 10),
		"recipient":    formatAddr(e.Recipient),
	}}
}
