package asset

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	ErrTransferFailed      = errors.New("asset: transfer failed")
	ErrInsufficientBalance = errors.New("asset: insufficient balance")
	ErrUnknownAsset        = errors.New("asset: unknown asset")
)

// Token is the fungible-asset custody interface pools and the router consume.
// Implementations report balances and move funds between holders; any failure
// is reported through the error return, never through partial transfers.
type Token interface {
	Address() common.Address
	BalanceOf(holder common.Address) (*uint256.Int, error)
	Transfer(from, to common.Address, amount *uint256.Int) error
}

// Reverter is implemented by tokens whose balance changes can be rolled
// back. Pools use it to discard custody effects of a failed operation, or to
// release the snapshot once the operation commits.
type Reverter interface {
	Snapshot() int
	RevertTo(snap int)
	Release()
}

// SafeTransfer moves amount between holders and folds every token-side
// failure into ErrTransferFailed.
func SafeTransfer(token Token, from, to common.Address, amount *uint256.Int) error {
	if err := token.Transfer(from, to, amount); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrTransferFailed, token.Address(), err)
	}
	return nil
}

// Book resolves asset identifiers to their token implementations.
type Book struct {
	tokens map[common.Address]Token
}

func NewBook() *Book {
	return &Book{tokens: make(map[common.Address]Token)}
}

// Register adds a token to the book, replacing any previous entry for the
// same address.
func (b *Book) Register(token Token) {
	b.tokens[token.Address()] = token
}

// Get returns the token registered under addr.
func (b *Book) Get(addr common.Address) (Token, error) {
	token, ok := b.tokens[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAsset, addr)
	}
	return token, nil
}

// Len returns the number of registered tokens.
func (b *Book) Len() int {
	return len(b.tokens)
}
