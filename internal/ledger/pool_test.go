package ledger

import (
	"errors"
	"testing"
	"time"
)

func TestDeposit_FirstDepositMintsScaledShares(t *testing.T) {
	l, _, _ := newTestLedger(t)

	shares, err := l.Deposit("alice", "usdc", newInt(1_000))
	if err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	want := newInt(1_000).Mul(shareScale())
	if !shares.Equal(want) {
		t.Errorf("expected %s shares, got %s", want, shares)
	}

	price, err := l.PricePerShare("usdc")
	if err != nil {
		t.Fatalf("price per share: %v", err)
	}
	if !price.Equal(oneDec()) {
		t.Errorf("expected price 1 after first deposit, got %s", price)
	}
}

func TestDeposit_ProportionalIssuanceAfterGrowth(t *testing.T) {
	l, clock, _ := newTestLedger(t)

	if _, err := l.Deposit("alice", "usdc", newInt(1_000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := l.FundReserve(testOperator, newInt(100)); err != nil {
		t.Fatalf("fund reserve: %v", err)
	}

	// One year at 4.20%: pool principal 1000 -> 1042, shares unchanged.
	clock.Advance(365 * 24 * time.Hour)
	if _, err := l.AccrueYield(); err != nil {
		t.Fatalf("accrue: %v", err)
	}

	shares, err := l.Deposit("bob", "usdc", newInt(521))
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	// 521 * 1_000_000_000 / 1042 = 500_000_000 exactly.
	if !shares.Equal(newInt(500_000_000)) {
		t.Errorf("expected 500000000 shares for bob, got %s", shares)
	}

	// Bob exits at the price he entered; alice captured all the growth.
	bobOut, err := l.Withdraw("bob", "usdc", shares)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if !bobOut.Equal(newInt(521)) {
		t.Errorf("expected bob to withdraw 521, got %s", bobOut)
	}
	aliceShares, _ := l.UserBalanceOf("alice", "usdc")
	aliceOut, err := l.Withdraw("alice", "usdc", aliceShares)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if !aliceOut.Equal(newInt(1_042)) {
		t.Errorf("expected alice to withdraw 1042, got %s", aliceOut)
	}
}

func TestDeposit_Validation(t *testing.T) {
	l, _, _ := newTestLedger(t)

	if _, err := l.Deposit("", "usdc", newInt(100)); !errors.Is(err, ErrValidation) {
		t.Errorf("empty user: expected validation error, got %v", err)
	}
	if _, err := l.Deposit("alice", "usdc", newInt(0)); !errors.Is(err, ErrValidation) {
		t.Errorf("zero amount: expected validation error, got %v", err)
	}
	if _, err := l.Deposit("alice", "usdc", newInt(-5)); !errors.Is(err, ErrValidation) {
		t.Errorf("negative amount: expected validation error, got %v", err)
	}
	if _, err := l.Deposit("alice", "doge", newInt(100)); !errors.Is(err, ErrValidation) {
		t.Errorf("unsupported asset: expected validation error, got %v", err)
	}
}

func TestDeposit_FailureLeavesNoTrace(t *testing.T) {
	l, _, _ := newTestLedger(t)

	if _, err := l.Deposit("alice", "doge", newInt(100)); err == nil {
		t.Fatal("expected unsupported asset to fail")
	}
	snap := l.Snapshot()
	if len(snap.Balances) != 0 {
		t.Errorf("failed deposit created %d balance records", len(snap.Balances))
	}
	if len(snap.Points) != 0 {
		t.Errorf("failed deposit created %d points records", len(snap.Points))
	}
}

func TestWithdraw_InsufficientShares(t *testing.T) {
	l, _, _ := newTestLedger(t)

	if _, err := l.Deposit("alice", "usdc", newInt(100)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	shares, _ := l.UserBalanceOf("alice", "usdc")

	_, err := l.Withdraw("alice", "usdc", shares.AddRaw(1))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("expected insufficient balance error, got %v", err)
	}
	_, err = l.Withdraw("bob", "usdc", newInt(1))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("no balance record: expected insufficient balance error, got %v", err)
	}
}

func TestWithdraw_FullExitEmptiesPool(t *testing.T) {
	l, _, _ := newTestLedger(t)

	if _, err := l.Deposit("alice", "usdc", newInt(777)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	shares, _ := l.UserBalanceOf("alice", "usdc")
	amount, err := l.Withdraw("alice", "usdc", shares)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if !amount.Equal(newInt(777)) {
		t.Errorf("expected full principal 777 back, got %s", amount)
	}

	price, err := l.PricePerShare("usdc")
	if err != nil {
		t.Fatalf("price per share: %v", err)
	}
	if !price.Equal(oneDec()) {
		t.Errorf("empty pool should price at 1, got %s", price)
	}
}

func TestUserValue_TracksPoolGrowth(t *testing.T) {
	l, clock, _ := newTestLedger(t)

	if _, err := l.Deposit("alice", "usdc", newInt(1_000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := l.FundReserve(testOperator, newInt(100)); err != nil {
		t.Fatalf("fund reserve: %v", err)
	}
	clock.Advance(365 * 24 * time.Hour)
	if _, err := l.AccrueYield(); err != nil {
		t.Fatalf("accrue: %v", err)
	}

	value, err := l.UserValue("alice", "usdc")
	if err != nil {
		t.Fatalf("user value: %v", err)
	}
	if !value.Equal(newInt(1_042)) {
		t.Errorf("expected alice's value 1042 after accrual, got %s", value)
	}
}
