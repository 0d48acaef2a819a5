package nft

import "errors"

var (
	ErrCollectionExists   = errors.New("nft: collection already exists")
	ErrCollectionNotFound = errors.New("nft: collection not found")
	ErrInvalidCollection  = errors.New("nft: invalid collection")
	ErrTokenNotFound      = errors.New("nft: token not found")
	ErrNotTokenOwner      = errors.New("nft: caller does not own token")
	ErrNotMinter          = errors.New("nft: caller is not the collection minter")
	ErrZeroAddress        = errors.New("nft: zero address")
)
