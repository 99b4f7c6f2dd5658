package pool

import (
	"errors"
	"testing"

	"poolEngine/internal/asset"
)

func TestClaimBookMintBurn(t *testing.T) {
	book := NewClaimBook()
	book.mint(alice, u(500))
	book.mint(bob, u(200))

	if book.Supply().Uint64() != 700 {
		t.Fatalf("supply mismatch: %s", book.Supply().Dec())
	}
	if err := book.burn(alice, u(300)); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if book.BalanceOf(alice).Uint64() != 200 {
		t.Fatalf("balance mismatch: %s", book.BalanceOf(alice).Dec())
	}
	if err := book.burn(bob, u(201)); !errors.Is(err, asset.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestClaimBookTransfer(t *testing.T) {
	book := NewClaimBook()
	book.mint(alice, u(100))
	if err := book.transfer(alice, bob, u(40)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if book.BalanceOf(alice).Uint64() != 60 || book.BalanceOf(bob).Uint64() != 40 {
		t.Fatalf("balances mismatch: %s / %s", book.BalanceOf(alice).Dec(), book.BalanceOf(bob).Dec())
	}
	if err := book.transfer(bob, alice, u(41)); !errors.Is(err, asset.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestClaimBookRevert(t *testing.T) {
	book := NewClaimBook()
	book.mint(alice, u(100))

	snap := book.Snapshot()
	book.mint(bob, u(50))
	if err := book.transfer(alice, bob, u(25)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if err := book.burn(alice, u(10)); err != nil {
		t.Fatalf("burn: %v", err)
	}

	book.RevertTo(snap)
	if book.BalanceOf(alice).Uint64() != 100 {
		t.Fatalf("alice not restored: %s", book.BalanceOf(alice).Dec())
	}
	if !book.BalanceOf(bob).IsZero() {
		t.Fatalf("bob not restored: %s", book.BalanceOf(bob).Dec())
	}
	if book.Supply().Uint64() != 100 {
		t.Fatalf("supply not restored: %s", book.Supply().Dec())
	}
}
