package nft

// Collection captures the on-ledger configuration of a non-fungible
// collection. NextID is the counter used to issue fresh token ids; ids start
// at 1 so a zero id is never a valid token.
type Collection struct {
	Symbol string
	Name   string
	Minter [20]byte
	NextID uint64
}
