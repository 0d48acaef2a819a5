package mining

import "math/big"

// Precision is the fixed-point scaling constant applied to the reward-per-share
// accumulator. 1e27 keeps division truncation negligible next to realistic
// reward magnitudes.
var Precision = new(big.Int).Exp(big.NewInt(10), big.NewInt(27), nil)

// settleIncentive advances the program accumulator to min(now, endTime).
// While at least one NFT is staked the accumulator grows by
// elapsed*rate*Precision/stakes; with zero stakes the streamed amount is
// earmarked as refund instead of being lost. Calling it twice at the same
// timestamp is a no-op, and it never advances past the program end.
func settleIncentive(incentive *Incentive, endTime, now uint64) {
	if incentive == nil {
		return
	}
	if incentive.RewardPerShare == nil {
		incentive.RewardPerShare = big.NewInt(0)
	}
	if incentive.AccruedRefund == nil {
		incentive.AccruedRefund = big.NewInt(0)
	}
	target := now
	if endTime < target {
		target = endTime
	}
	if target <= incentive.LastUpdateTime {
		return
	}
	elapsed := new(big.Int).SetUint64(target - incentive.LastUpdateTime)
	streamed := elapsed.Mul(elapsed, incentive.RewardRate)
	if incentive.NumberOfStakes == 0 {
		incentive.AccruedRefund = new(big.Int).Add(incentive.AccruedRefund, streamed)
	} else {
		growth := streamed.Mul(streamed, Precision)
		growth = growth.Quo(growth, new(big.Int).SetUint64(incentive.NumberOfStakes))
		incentive.RewardPerShare = new(big.Int).Add(incentive.RewardPerShare, growth)
	}
	incentive.LastUpdateTime = target
}

// settlePosition folds the accumulator delta since the position's last
// snapshot into its unclaimed reward, using the position's pre-mutation stake
// count, then moves the snapshot forward. Must run before the count changes.
func settlePosition(incentive *Incentive, position *StakerPosition) {
	if incentive == nil || position == nil {
		return
	}
	if position.Reward == nil {
		position.Reward = big.NewInt(0)
	}
	if position.RewardPerSharePaid == nil {
		position.RewardPerSharePaid = big.NewInt(0)
	}
	if incentive.RewardPerShare == nil {
		incentive.RewardPerShare = big.NewInt(0)
	}
	delta := new(big.Int).Sub(incentive.RewardPerShare, position.RewardPerSharePaid)
	if delta.Sign() > 0 && position.NumberOfStakes > 0 {
		owed := delta.Mul(delta, new(big.Int).SetUint64(position.NumberOfStakes))
		owed = owed.Quo(owed, Precision)
		position.Reward = new(big.Int).Add(position.Reward, owed)
	}
	position.RewardPerSharePaid = new(big.Int).Set(incentive.RewardPerShare)
}

// accrueStreak returns the mining-time accumulator advanced by the position's
// running streak: count * (now - start). The streak itself is reset by the
// caller, which decides whether a new one begins.
func accrueStreak(position *StakerPosition, now, minedTime uint64) uint64 {
	if position == nil || position.NumberOfStakes == 0 || position.StartedStaking == 0 {
		return minedTime
	}
	if now <= position.StartedStaking {
		return minedTime
	}
	return minedTime + position.NumberOfStakes*(now-position.StartedStaking)
}
