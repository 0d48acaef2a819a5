package mining

import "errors"

var (
	ErrUnauthorized       = errors.New("mining: unauthorized")
	ErrIncentiveExists    = errors.New("mining: incentive already exists")
	ErrIncentiveNotFound  = errors.New("mining: incentive not found")
	ErrInvalidWindow      = errors.New("mining: degenerate incentive window")
	ErrZeroRewardRate     = errors.New("mining: reward rate truncates to zero")
	ErrInvalidReward      = errors.New("mining: reward amount must be positive")
	ErrFeeRecipientUnset  = errors.New("mining: protocol fee recipient not configured")
	ErrFeeRateTooHigh     = errors.New("mining: protocol fee rate above 1000 permille")
	ErrWrongBond          = errors.New("mining: incorrect bond amount")
	ErrInvalidRecipient   = errors.New("mining: zero recipient address")
	ErrInsufficientFunds  = errors.New("mining: insufficient funds for bond")
	ErrAlreadyStaked      = errors.New("mining: nft already staked in incentive")
	ErrEmptyBatch         = errors.New("mining: empty batch")
	ErrNothingStaked      = errors.New("mining: nothing staked for nft")
	ErrNotStaker          = errors.New("mining: caller is not the registered staker")
	ErrNotOwner           = errors.New("mining: caller no longer owns the nft")
	ErrNotStale           = errors.New("mining: registration is not stale")
	ErrBondTooSmall       = errors.New("mining: freed bond smaller than destination bond")
	ErrReentrantCall      = errors.New("mining: operation already in progress")
	errNilState           = errors.New("mining: state not configured")
	errNilCollections     = errors.New("mining: nft registry not configured")
	errNilTokens          = errors.New("mining: token ledger not configured")
)
