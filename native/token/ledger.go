package token

import (
	"bytes"
	"errors"
	"math/big"
	"strings"
)

var (
	ErrTokenNotFound       = errors.New("token: token not registered")
	ErrInvalidAmount       = errors.New("token: amount must be positive")
	ErrInsufficientBalance = errors.New("token: insufficient balance")
	ErrNotMintAuthority    = errors.New("token: caller is not the mint authority")
	ErrZeroAddress         = errors.New("token: zero address")
	errNilState            = errors.New("token: state not configured")
)

type ledgerState interface {
	TokenExists(symbol string) bool
	TokenMintAuthority(symbol string) ([]byte, error)
	Balance(addr []byte, symbol string) (*big.Int, error)
	SetBalance(addr []byte, symbol string, amount *big.Int) error
}

// Ledger implements exact-accounting transfers and authority-gated minting for
// registered fungible tokens. The mining engine relies on it for reward
// funding and payouts; a failed transfer aborts the whole operation upstream.
type Ledger struct {
	state ledgerState
}

// NewLedger constructs a token ledger without a state backend; callers wire
// one via SetState before use.
func NewLedger() *Ledger {
	return &Ledger{}
}

// SetState configures the state backend used by the ledger.
func (l *Ledger) SetState(state ledgerState) { l.state = state }

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func isZeroAddress(addr [20]byte) bool {
	return addr == [20]byte{}
}

// Mint creates new supply for the recipient. Only the registered mint
// authority of the token may call it.
func (l *Ledger) Mint(symbol string, caller, to [20]byte, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if isZeroAddress(to) {
		return ErrZeroAddress
	}
	normalized := normalizeSymbol(symbol)
	if !l.state.TokenExists(normalized) {
		return ErrTokenNotFound
	}
	authority, err := l.state.TokenMintAuthority(normalized)
	if err != nil {
		return err
	}
	if len(authority) == 0 || !bytes.Equal(authority, caller[:]) {
		return ErrNotMintAuthority
	}
	balance, err := l.state.Balance(to[:], normalized)
	if err != nil {
		return err
	}
	return l.state.SetBalance(to[:], normalized, new(big.Int).Add(balance, amount))
}

// Transfer moves tokens between accounts with exact accounting: either the
// full amount moves or the call fails and nothing does.
func (l *Ledger) Transfer(symbol string, from, to [20]byte, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if amount.Sign() == 0 {
		return nil
	}
	if isZeroAddress(to) {
		return ErrZeroAddress
	}
	normalized := normalizeSymbol(symbol)
	if !l.state.TokenExists(normalized) {
		return ErrTokenNotFound
	}
	fromBalance, err := l.state.Balance(from[:], normalized)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	if from == to {
		return nil
	}
	toBalance, err := l.state.Balance(to[:], normalized)
	if err != nil {
		return err
	}
	if err := l.state.SetBalance(from[:], normalized, new(big.Int).Sub(fromBalance, amount)); err != nil {
		return err
	}
	return l.state.SetBalance(to[:], normalized, new(big.Int).Add(toBalance, amount))
}

// BalanceOf returns the balance of the address for the token.
func (l *Ledger) BalanceOf(symbol string, addr [20]byte) (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	return l.state.Balance(addr[:], normalizeSymbol(symbol))
}
