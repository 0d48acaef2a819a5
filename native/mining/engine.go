package mining

import (
	"math/big"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"minechain/core/events"
	"minechain/core/types"
	nativecommon "minechain/native/common"
)

const moduleName = "mining"

// RoleAdmin gates incentive creation and protocol fee updates. All other
// operations are open to any caller; authorization is enforced purely through
// ownership and stake-record checks.
const RoleAdmin = "ROLE_MINING_ADMIN"

// VaultAddress is the module account custodying posted bonds and the reward
// token funding of every program. Derived, so no key exists for it.
var VaultAddress = func() [20]byte {
	var addr [20]byte
	copy(addr[:], ethcrypto.Keccak256([]byte("minechain/mining/vault"))[12:])
	return addr
}()

type engineState interface {
	MiningIncentiveGet(id IncentiveID) (*Incentive, bool, error)
	MiningIncentivePut(id IncentiveID, incentive *Incentive) error
	MiningPositionGet(id IncentiveID, addr [20]byte) (*StakerPosition, bool, error)
	MiningPositionPut(id IncentiveID, addr [20]byte, position *StakerPosition) error
	MiningStakeOwnerGet(id IncentiveID, nftID uint64) ([20]byte, bool, error)
	MiningStakeOwnerPut(id IncentiveID, nftID uint64, owner [20]byte) error
	MiningStakeOwnerDelete(id IncentiveID, nftID uint64) error
	MiningTimeGet(addr [20]byte) (uint64, error)
	MiningTimeSet(addr [20]byte, value uint64) error
	MiningStakeCountGet(addr [20]byte) (uint64, error)
	MiningStakeCountSet(addr [20]byte, value uint64) error
	MiningFeeGet() (*ProtocolFee, bool, error)
	MiningFeePut(fee *ProtocolFee) error
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
	HasRole(role string, addr []byte) bool
}

// NFTRegistry is the external asset registry consumed by the engine: OwnerOf
// for staleness checks on staked collections, Mint for bonus issuance. The
// engine never transfers staked assets; custody stays with the holder.
type NFTRegistry interface {
	OwnerOf(collection string, nftID uint64) ([20]byte, error)
	Mint(collection string, caller, to [20]byte) (uint64, error)
}

// TokenLedger moves reward tokens with exact accounting. A failed transfer
// aborts the surrounding operation; BalanceOf backs the precheck that keeps
// such a failure from stranding partial state.
type TokenLedger interface {
	Transfer(symbol string, from, to [20]byte, amount *big.Int) error
	BalanceOf(symbol string, addr [20]byte) (*big.Int, error)
}

// Engine orchestrates the optimistic NFT staking ledger: incentive programs
// with streaming reward accrual, bond custody, permissionless slashing of
// stale registrations and the cross-program mining-time counter.
type Engine struct {
	state       engineState
	collections NFTRegistry
	tokens      TokenLedger
	emitter     events.Emitter
	pauses      nativecommon.PauseView
	nowFn       func() uint64
	locked      bool
}

// NewEngine creates a mining engine with a no-op emitter and wall-clock time
// source. Callers wire state and collaborators before use.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() uint64 { return uint64(time.Now().Unix()) },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetCollections wires the NFT registry collaborator.
func (e *Engine) SetCollections(registry NFTRegistry) { e.collections = registry }

// SetTokens wires the fungible token ledger collaborator.
func (e *Engine) SetTokens(ledger TokenLedger) { e.tokens = ledger }

// SetPauses wires the governance pause view.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the ledger time source. Primarily intended for tests
// to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() uint64) {
	if now == nil {
		e.nowFn = func() uint64 { return uint64(time.Now().Unix()) }
		return
	}
	e.nowFn = now
}

func (e *Engine) now() uint64 {
	if e == nil || e.nowFn == nil {
		return uint64(time.Now().Unix())
	}
	return e.nowFn()
}

func (e *Engine) emit(event events.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(event)
}

// enter arms the reentrancy latch: a second top-level mutating operation on
// the same engine while one is in flight is rejected outright.
func (e *Engine) enter() error {
	if e.locked {
		return ErrReentrantCall
	}
	e.locked = true
	return nil
}

func (e *Engine) exit() { e.locked = false }

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.collections == nil {
		return errNilCollections
	}
	if e.tokens == nil {
		return errNilTokens
	}
	return nativecommon.Guard(e.pauses, moduleName)
}

func normalizeAmount(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func (e *Engine) loadIncentive(id IncentiveID) (*Incentive, error) {
	incentive, ok, err := e.state.MiningIncentiveGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrIncentiveNotFound
	}
	return incentive, nil
}

func (e *Engine) loadPosition(id IncentiveID, addr [20]byte) (*StakerPosition, error) {
	position, ok, err := e.state.MiningPositionGet(id, addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		position = &StakerPosition{
			RewardPerSharePaid: big.NewInt(0),
			Reward:             big.NewInt(0),
		}
	}
	return position, nil
}

// transferNative moves native currency between ledger accounts. Bond custody
// runs entirely through these records and the module vault.
func (e *Engine) transferNative(from, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 || from == to {
		return nil
	}
	fromAcc, err := e.state.GetAccount(from[:])
	if err != nil {
		return err
	}
	if fromAcc.Balance == nil || fromAcc.Balance.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	toAcc, err := e.state.GetAccount(to[:])
	if err != nil {
		return err
	}
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amount)
	if toAcc.Balance == nil {
		toAcc.Balance = big.NewInt(0)
	}
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, amount)
	if err := e.state.PutAccount(from[:], fromAcc); err != nil {
		return err
	}
	return e.state.PutAccount(to[:], toAcc)
}

// checkNativeFunds verifies a pending native transfer before the operation's
// first state write. Every transfer an operation performs is prechecked up
// front, so it cannot fail after ledger records have been persisted.
func (e *Engine) checkNativeFunds(from [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	account, err := e.state.GetAccount(from[:])
	if err != nil {
		return err
	}
	if account.Balance == nil || account.Balance.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	return nil
}

// checkTokenFunds is the reward-token counterpart of checkNativeFunds.
func (e *Engine) checkTokenFunds(symbol string, from [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	balance, err := e.tokens.BalanceOf(symbol, from)
	if err != nil {
		return err
	}
	if balance == nil || balance.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	return nil
}

// CreateIncentive funds a new program. Admin-only. The protocol fee is
// deducted exactly once, here; the remainder streams at a fixed per-second
// rate over the key's window.
func (e *Engine) CreateIncentive(creator [20]byte, key IncentiveKey, rewardAmount *big.Int, miningTimeThreshold uint64) (IncentiveID, error) {
	var id IncentiveID
	if err := e.ready(); err != nil {
		return id, err
	}
	if err := e.enter(); err != nil {
		return id, err
	}
	defer e.exit()

	if !e.state.HasRole(RoleAdmin, creator[:]) {
		return id, ErrUnauthorized
	}
	now := e.now()
	if key.StartTime >= key.EndTime || key.EndTime <= now {
		return id, ErrInvalidWindow
	}
	if rewardAmount == nil || rewardAmount.Sign() <= 0 {
		return id, ErrInvalidReward
	}
	if key.BondAmount != nil && key.BondAmount.Sign() < 0 {
		return id, ErrWrongBond
	}
	if key.RefundRecipient == ([20]byte{}) {
		return id, ErrInvalidRecipient
	}
	id = key.ID()
	if _, ok, err := e.state.MiningIncentiveGet(id); err != nil {
		return id, err
	} else if ok {
		return id, ErrIncentiveExists
	}

	fee := big.NewInt(0)
	var feeRecipient [20]byte
	if feeInfo, ok, err := e.state.MiningFeeGet(); err != nil {
		return id, err
	} else if ok && feeInfo.RatePermille > 0 {
		fee = new(big.Int).Mul(rewardAmount, new(big.Int).SetUint64(uint64(feeInfo.RatePermille)))
		fee = fee.Quo(fee, big.NewInt(1000))
		feeRecipient = feeInfo.Recipient
		if fee.Sign() > 0 && feeRecipient == [20]byte{} {
			return id, ErrFeeRecipientUnset
		}
	}
	funding := new(big.Int).Sub(rewardAmount, fee)
	duration := new(big.Int).SetUint64(key.EndTime - key.StartTime)
	rate := new(big.Int).Quo(funding, duration)
	if rate.Sign() == 0 {
		return id, ErrZeroRewardRate
	}
	if err := e.checkTokenFunds(key.RewardToken, creator, rewardAmount); err != nil {
		return id, err
	}

	incentive := &Incentive{
		RewardRate:          rate,
		RewardPerShare:      big.NewInt(0),
		LastUpdateTime:      key.StartTime,
		AccruedRefund:       big.NewInt(0),
		MiningTimeThreshold: miningTimeThreshold,
	}
	if err := e.state.MiningIncentivePut(id, incentive); err != nil {
		return id, err
	}

	if err := e.tokens.Transfer(key.RewardToken, creator, VaultAddress, funding); err != nil {
		return id, err
	}
	if fee.Sign() > 0 {
		if err := e.tokens.Transfer(key.RewardToken, creator, feeRecipient, fee); err != nil {
			return id, err
		}
	}

	e.emit(events.IncentiveCreated{
		ID:           id,
		Creator:      creator,
		RewardAmount: normalizeAmount(rewardAmount),
		Fee:          fee,
		RewardRate:   new(big.Int).Set(rate),
		StartTime:    key.StartTime,
		EndTime:      key.EndTime,
	})
	return id, nil
}

// SetProtocolFee reconfigures the creation fee. Admin-only; applies to future
// programs only, never retroactively.
func (e *Engine) SetProtocolFee(caller [20]byte, ratePermille uint32, recipient [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := e.enter(); err != nil {
		return err
	}
	defer e.exit()

	if !e.state.HasRole(RoleAdmin, caller[:]) {
		return ErrUnauthorized
	}
	if ratePermille > 1000 {
		return ErrFeeRateTooHigh
	}
	if ratePermille > 0 && recipient == [20]byte{} {
		return ErrFeeRecipientUnset
	}
	if err := e.state.MiningFeePut(&ProtocolFee{RatePermille: ratePermille, Recipient: recipient}); err != nil {
		return err
	}
	e.emit(events.FeeUpdated{RatePermille: ratePermille, Recipient: recipient})
	return nil
}

// stakeOne applies a single registration: settles accrual with pre-mutation
// counts, folds the owner's running streak into the mining-time accumulator,
// restarts the streak and writes the stake entry. Bond movement is left to
// the caller so batch registrations can post one combined transfer.
func (e *Engine) stakeOne(key IncentiveKey, id IncentiveID, nftID uint64, now uint64) ([20]byte, error) {
	var zero [20]byte
	incentive, err := e.loadIncentive(id)
	if err != nil {
		return zero, err
	}
	if _, ok, err := e.state.MiningStakeOwnerGet(id, nftID); err != nil {
		return zero, err
	} else if ok {
		return zero, ErrAlreadyStaked
	}
	owner, err := e.collections.OwnerOf(key.StakeCollection, nftID)
	if err != nil {
		return zero, err
	}

	settleIncentive(incentive, key.EndTime, now)
	position, err := e.loadPosition(id, owner)
	if err != nil {
		return zero, err
	}
	settlePosition(incentive, position)

	minedTime, err := e.state.MiningTimeGet(owner)
	if err != nil {
		return zero, err
	}
	if err := e.state.MiningTimeSet(owner, accrueStreak(position, now, minedTime)); err != nil {
		return zero, err
	}
	stakeCount, err := e.state.MiningStakeCountGet(owner)
	if err != nil {
		return zero, err
	}
	if err := e.state.MiningStakeCountSet(owner, stakeCount+1); err != nil {
		return zero, err
	}

	position.StartedStaking = now
	position.NumberOfStakes++
	incentive.NumberOfStakes++

	if err := e.state.MiningIncentivePut(id, incentive); err != nil {
		return zero, err
	}
	if err := e.state.MiningPositionPut(id, owner, position); err != nil {
		return zero, err
	}
	if err := e.state.MiningStakeOwnerPut(id, nftID, owner); err != nil {
		return zero, err
	}
	return owner, nil
}

// Stake registers one NFT into a program. The caller posts exactly the
// program's bond; the registrant recorded is the asset's current external
// owner, so anyone may pay the bond on an owner's behalf.
func (e *Engine) Stake(caller [20]byte, key IncentiveKey, nftID uint64, value *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.enter(); err != nil {
		return err
	}
	defer e.exit()

	bond := normalizeAmount(key.BondAmount)
	if normalizeAmount(value).Cmp(bond) != 0 {
		return ErrWrongBond
	}
	if err := e.checkNativeFunds(caller, bond); err != nil {
		return err
	}
	id := key.ID()
	owner, err := e.stakeOne(key, id, nftID, e.now())
	if err != nil {
		return err
	}
	if err := e.transferNative(caller, VaultAddress, bond); err != nil {
		return err
	}
	e.emit(events.Staked{ID: id, Staker: owner, NftID: nftID, Bond: bond})
	return nil
}

// StakeBatch registers several NFTs in array order with one combined bond
// transfer. The aggregate value must match the sum of the entries' bonds
// exactly, and every entry is validated up front so a failure registers
// nothing.
func (e *Engine) StakeBatch(caller [20]byte, requests []StakeRequest, value *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.enter(); err != nil {
		return err
	}
	defer e.exit()

	if len(requests) == 0 {
		return ErrEmptyBatch
	}
	total := big.NewInt(0)
	for _, req := range requests {
		total = total.Add(total, normalizeAmount(req.Key.BondAmount))
	}
	if normalizeAmount(value).Cmp(total) != 0 {
		return ErrWrongBond
	}

	type batchEntry struct {
		id    IncentiveID
		nftID uint64
	}
	seen := make(map[batchEntry]struct{}, len(requests))
	for _, req := range requests {
		id := req.Key.ID()
		entry := batchEntry{id: id, nftID: req.NftID}
		if _, dup := seen[entry]; dup {
			return ErrAlreadyStaked
		}
		seen[entry] = struct{}{}
		if _, err := e.loadIncentive(id); err != nil {
			return err
		}
		if _, ok, err := e.state.MiningStakeOwnerGet(id, req.NftID); err != nil {
			return err
		} else if ok {
			return ErrAlreadyStaked
		}
		if _, err := e.collections.OwnerOf(req.Key.StakeCollection, req.NftID); err != nil {
			return err
		}
	}
	if err := e.checkNativeFunds(caller, total); err != nil {
		return err
	}

	now := e.now()
	staked := make([]events.Staked, 0, len(requests))
	for _, req := range requests {
		id := req.Key.ID()
		owner, err := e.stakeOne(req.Key, id, req.NftID, now)
		if err != nil {
			return err
		}
		staked = append(staked, events.Staked{
			ID:     id,
			Staker: owner,
			NftID:  req.NftID,
			Bond:   normalizeAmount(req.Key.BondAmount),
		})
	}
	if err := e.transferNative(caller, VaultAddress, total); err != nil {
		return err
	}
	for _, evt := range staked {
		e.emit(evt)
	}
	return nil
}

// unstakeOne removes a registration: settles accrual with pre-mutation
// counts, folds the streak into the mining-time accumulator, decrements
// counts and deletes the entry. The freed bond stays in the vault for the
// caller to route.
func (e *Engine) unstakeOne(key IncentiveKey, id IncentiveID, nftID uint64, staker [20]byte, now uint64) error {
	incentive, err := e.loadIncentive(id)
	if err != nil {
		return err
	}
	settleIncentive(incentive, key.EndTime, now)
	position, err := e.loadPosition(id, staker)
	if err != nil {
		return err
	}
	settlePosition(incentive, position)

	minedTime, err := e.state.MiningTimeGet(staker)
	if err != nil {
		return err
	}
	if err := e.state.MiningTimeSet(staker, accrueStreak(position, now, minedTime)); err != nil {
		return err
	}
	stakeCount, err := e.state.MiningStakeCountGet(staker)
	if err != nil {
		return err
	}
	if stakeCount > 0 {
		if err := e.state.MiningStakeCountSet(staker, stakeCount-1); err != nil {
			return err
		}
	}

	if position.NumberOfStakes > 0 {
		position.NumberOfStakes--
	}
	if position.NumberOfStakes == 0 {
		position.StartedStaking = 0
	} else {
		position.StartedStaking = now
	}
	if incentive.NumberOfStakes > 0 {
		incentive.NumberOfStakes--
	}

	if err := e.state.MiningIncentivePut(id, incentive); err != nil {
		return err
	}
	if err := e.state.MiningPositionPut(id, staker, position); err != nil {
		return err
	}
	return e.state.MiningStakeOwnerDelete(id, nftID)
}

// Unstake deregisters an NFT and releases its bond to bondRecipient. The
// caller must be both the registrant on record and the asset's present
// external owner; when ownership has moved, only slashing applies. A
// deregistration that drops the caller to zero registered assets across all
// programs zeroes the mining-time accumulator.
func (e *Engine) Unstake(caller [20]byte, key IncentiveKey, nftID uint64, bondRecipient [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.enter(); err != nil {
		return err
	}
	defer e.exit()

	id := key.ID()
	staker, ok, err := e.state.MiningStakeOwnerGet(id, nftID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNothingStaked
	}
	if staker != caller {
		return ErrNotStaker
	}
	owner, err := e.collections.OwnerOf(key.StakeCollection, nftID)
	if err != nil {
		return err
	}
	if owner != caller {
		return ErrNotOwner
	}
	bond := normalizeAmount(key.BondAmount)
	if err := e.checkNativeFunds(VaultAddress, bond); err != nil {
		return err
	}
	if err := e.unstakeOne(key, id, nftID, staker, e.now()); err != nil {
		return err
	}
	remaining, err := e.state.MiningStakeCountGet(staker)
	if err != nil {
		return err
	}
	if remaining == 0 {
		if err := e.state.MiningTimeSet(staker, 0); err != nil {
			return err
		}
	}
	if err := e.transferNative(VaultAddress, bondRecipient, bond); err != nil {
		return err
	}
	e.emit(events.Unstaked{ID: id, Staker: staker, NftID: nftID, BondRecipient: bondRecipient, Bond: bond})
	return nil
}

// Restake atomically deregisters fromNftID out of fromKey and registers
// toNftID into toKey, reusing the freed bond. The source bond must cover the
// destination bond; any surplus is paid to bondRecipient. The swap never
// leaves the caller at zero registered assets, so mining-time is preserved.
func (e *Engine) Restake(caller [20]byte, fromKey IncentiveKey, fromNftID uint64, toKey IncentiveKey, toNftID uint64, bondRecipient [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.enter(); err != nil {
		return err
	}
	defer e.exit()

	fromBond := normalizeAmount(fromKey.BondAmount)
	toBond := normalizeAmount(toKey.BondAmount)
	if fromBond.Cmp(toBond) < 0 {
		return ErrBondTooSmall
	}

	fromID := fromKey.ID()
	toID := toKey.ID()

	staker, ok, err := e.state.MiningStakeOwnerGet(fromID, fromNftID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNothingStaked
	}
	if staker != caller {
		return ErrNotStaker
	}
	owner, err := e.collections.OwnerOf(fromKey.StakeCollection, fromNftID)
	if err != nil {
		return err
	}
	if owner != caller {
		return ErrNotOwner
	}
	if _, err := e.loadIncentive(toID); err != nil {
		return err
	}
	if _, ok, err := e.state.MiningStakeOwnerGet(toID, toNftID); err != nil {
		return err
	} else if ok {
		return ErrAlreadyStaked
	}

	surplus := new(big.Int).Sub(fromBond, toBond)
	if err := e.checkNativeFunds(VaultAddress, surplus); err != nil {
		return err
	}

	now := e.now()
	if err := e.unstakeOne(fromKey, fromID, fromNftID, staker, now); err != nil {
		return err
	}
	newStaker, err := e.stakeOne(toKey, toID, toNftID, now)
	if err != nil {
		return err
	}

	if err := e.transferNative(VaultAddress, bondRecipient, surplus); err != nil {
		return err
	}
	e.emit(events.Unstaked{ID: fromID, Staker: staker, NftID: fromNftID, BondRecipient: bondRecipient, Bond: fromBond})
	e.emit(events.Staked{ID: toID, Staker: newStaker, NftID: toNftID, Bond: toBond})
	return nil
}

// IsStale reports whether the registration for (key, nftID) can be slashed:
// a registrant is on record and no longer owns the asset externally.
func (e *Engine) IsStale(key IncentiveKey, nftID uint64) (bool, error) {
	if e == nil || e.state == nil {
		return false, errNilState
	}
	if e.collections == nil {
		return false, errNilCollections
	}
	staker, ok, err := e.state.MiningStakeOwnerGet(key.ID(), nftID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, ErrNothingStaked
	}
	owner, err := e.collections.OwnerOf(key.StakeCollection, nftID)
	if err != nil {
		return false, err
	}
	return owner != staker, nil
}

// Slash seizes the bond of a stale registration. Permissionless: any caller
// who proves the registrant no longer owns the asset routes the bond to
// bondRecipient. The registrant's mining-time accumulator is zeroed, which
// voluntary unstaking never does.
func (e *Engine) Slash(caller [20]byte, key IncentiveKey, nftID uint64, bondRecipient [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.enter(); err != nil {
		return err
	}
	defer e.exit()

	id := key.ID()
	staker, ok, err := e.state.MiningStakeOwnerGet(id, nftID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNothingStaked
	}
	owner, err := e.collections.OwnerOf(key.StakeCollection, nftID)
	if err != nil {
		return err
	}
	if owner == staker {
		return ErrNotStale
	}
	bond := normalizeAmount(key.BondAmount)
	if err := e.checkNativeFunds(VaultAddress, bond); err != nil {
		return err
	}

	now := e.now()
	incentive, err := e.loadIncentive(id)
	if err != nil {
		return err
	}
	settleIncentive(incentive, key.EndTime, now)
	position, err := e.loadPosition(id, staker)
	if err != nil {
		return err
	}
	settlePosition(incentive, position)

	if position.NumberOfStakes > 0 {
		position.NumberOfStakes--
	}
	if position.NumberOfStakes == 0 {
		position.StartedStaking = 0
	} else {
		position.StartedStaking = now
	}
	if incentive.NumberOfStakes > 0 {
		incentive.NumberOfStakes--
	}

	if err := e.state.MiningTimeSet(staker, 0); err != nil {
		return err
	}
	stakeCount, err := e.state.MiningStakeCountGet(staker)
	if err != nil {
		return err
	}
	if stakeCount > 0 {
		if err := e.state.MiningStakeCountSet(staker, stakeCount-1); err != nil {
			return err
		}
	}
	if err := e.state.MiningIncentivePut(id, incentive); err != nil {
		return err
	}
	if err := e.state.MiningPositionPut(id, staker, position); err != nil {
		return err
	}
	if err := e.state.MiningStakeOwnerDelete(id, nftID); err != nil {
		return err
	}

	if err := e.transferNative(VaultAddress, bondRecipient, bond); err != nil {
		return err
	}
	e.emit(events.Slashed{ID: id, Staker: staker, NftID: nftID, BondRecipient: bondRecipient, Bond: bond})
	return nil
}

// Claim settles and pays out the caller's accrued reward to recipient, then
// checks the cross-program mining-time accumulator against the program's
// threshold: crossing it resets the accumulator and mints one bonus NFT to
// the recipient in the same operation. The bool reports whether a bonus was
// minted.
func (e *Engine) Claim(caller [20]byte, key IncentiveKey, recipient [20]byte) (*big.Int, bool, error) {
	if err := e.ready(); err != nil {
		return nil, false, err
	}
	if err := e.enter(); err != nil {
		return nil, false, err
	}
	defer e.exit()

	if recipient == ([20]byte{}) {
		return nil, false, ErrInvalidRecipient
	}
	id := key.ID()
	incentive, err := e.loadIncentive(id)
	if err != nil {
		return nil, false, err
	}
	now := e.now()
	settleIncentive(incentive, key.EndTime, now)
	position, err := e.loadPosition(id, caller)
	if err != nil {
		return nil, false, err
	}
	settlePosition(incentive, position)

	reward := position.Reward
	position.Reward = big.NewInt(0)
	if err := e.checkTokenFunds(key.RewardToken, VaultAddress, reward); err != nil {
		return nil, false, err
	}

	minedTime, err := e.state.MiningTimeGet(caller)
	if err != nil {
		return nil, false, err
	}
	minedTime = accrueStreak(position, now, minedTime)
	if position.NumberOfStakes > 0 {
		position.StartedStaking = now
	} else {
		position.StartedStaking = 0
	}

	mintBonus := incentive.MiningTimeThreshold > 0 && minedTime >= incentive.MiningTimeThreshold
	storedTime := minedTime
	if mintBonus {
		storedTime = 0
	}

	if err := e.state.MiningTimeSet(caller, storedTime); err != nil {
		return nil, false, err
	}
	if err := e.state.MiningIncentivePut(id, incentive); err != nil {
		return nil, false, err
	}
	if err := e.state.MiningPositionPut(id, caller, position); err != nil {
		return nil, false, err
	}

	if reward.Sign() > 0 {
		if err := e.tokens.Transfer(key.RewardToken, VaultAddress, recipient, reward); err != nil {
			return nil, false, err
		}
	}
	e.emit(events.RewardsClaimed{ID: id, Staker: caller, Recipient: recipient, Amount: reward})

	if mintBonus {
		bonusID, err := e.collections.Mint(key.BonusCollection, VaultAddress, recipient)
		if err != nil {
			return nil, false, err
		}
		e.emit(events.BonusMinted{ID: id, Staker: caller, Recipient: recipient, BonusNftID: bonusID, MinedTime: minedTime})
	}
	return reward, mintBonus, nil
}

// ClaimRefund pays the reward streamed during zero-participant intervals to
// the program's fixed refund recipient. Callable by anyone.
func (e *Engine) ClaimRefund(key IncentiveKey) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.exit()

	id := key.ID()
	incentive, err := e.loadIncentive(id)
	if err != nil {
		return nil, err
	}
	settleIncentive(incentive, key.EndTime, e.now())

	refund := incentive.AccruedRefund
	incentive.AccruedRefund = big.NewInt(0)
	if err := e.checkTokenFunds(key.RewardToken, VaultAddress, refund); err != nil {
		return nil, err
	}
	if err := e.state.MiningIncentivePut(id, incentive); err != nil {
		return nil, err
	}
	if refund.Sign() > 0 {
		if err := e.tokens.Transfer(key.RewardToken, VaultAddress, key.RefundRecipient, refund); err != nil {
			return nil, err
		}
	}
	e.emit(events.RefundClaimed{ID: id, Recipient: key.RefundRecipient, Amount: refund})
	return refund, nil
}

// IncentiveByKey loads the stored program record for the key.
func (e *Engine) IncentiveByKey(key IncentiveKey) (*Incentive, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, errNilState
	}
	return e.state.MiningIncentiveGet(key.ID())
}

// Position loads the stored staker position for (key, addr).
func (e *Engine) Position(key IncentiveKey, addr [20]byte) (*StakerPosition, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, errNilState
	}
	return e.state.MiningPositionGet(key.ID(), addr)
}

// StakeOwner resolves the registrant on record for (key, nftID).
func (e *Engine) StakeOwner(key IncentiveKey, nftID uint64) ([20]byte, bool, error) {
	var zero [20]byte
	if e == nil || e.state == nil {
		return zero, false, errNilState
	}
	return e.state.MiningStakeOwnerGet(key.ID(), nftID)
}

// MinedTime returns the stored cross-program mining-time accumulator for an
// address. Running streaks are folded in lazily by the next mutating
// operation.
func (e *Engine) MinedTime(addr [20]byte) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	return e.state.MiningTimeGet(addr)
}

// PendingReward computes the reward the address could claim right now without
// mutating any state.
func (e *Engine) PendingReward(key IncentiveKey, addr [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	id := key.ID()
	incentive, err := e.loadIncentive(id)
	if err != nil {
		return nil, err
	}
	settleIncentive(incentive, key.EndTime, e.now())
	position, err := e.loadPosition(id, addr)
	if err != nil {
		return nil, err
	}
	settlePosition(incentive, position)
	return position.Reward, nil
}

// ProtocolFeeInfo returns the current creation fee configuration.
func (e *Engine) ProtocolFeeInfo() (*ProtocolFee, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, errNilState
	}
	return e.state.MiningFeeGet()
}
