package ledger

import (
	"errors"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/solstice-fi/svm/internal/types"
)

func TestCreateLock_TermsAndMultipliers(t *testing.T) {
	l, _, _ := newTestLedger(t)

	cases := []struct {
		months     int
		multiplier string
	}{
		{1, "1.5"},
		{3, "2"},
		{12, "3"},
	}
	for _, tc := range cases {
		lock, err := l.CreateLock("alice", "usdc", newInt(1_000), tc.months)
		if err != nil {
			t.Fatalf("create %d-month lock: %v", tc.months, err)
		}
		want := sdkmath.LegacyMustNewDecFromStr(tc.multiplier)
		if !lock.PointsMultiplier.Equal(want) {
			t.Errorf("%d months: expected multiplier %s, got %s", tc.months, want, lock.PointsMultiplier)
		}
		wantUnlock := lock.CreatedAt.Add(time.Duration(tc.months) * 30 * 24 * time.Hour)
		if !lock.UnlockAt.Equal(wantUnlock) {
			t.Errorf("%d months: expected unlock at %s, got %s", tc.months, wantUnlock, lock.UnlockAt)
		}
		if lock.State != types.LockActive {
			t.Errorf("new lock should be active, got %s", lock.State)
		}
	}
}

func TestCreateLock_Validation(t *testing.T) {
	l, _, _ := newTestLedger(t)

	if _, err := l.CreateLock("alice", "usdc", newInt(1_000), 6); !errors.Is(err, ErrValidation) {
		t.Errorf("unsupported term: expected validation error, got %v", err)
	}
	if _, err := l.CreateLock("alice", "usdc", newInt(99), 1); !errors.Is(err, ErrValidation) {
		t.Errorf("below minimum principal: expected validation error, got %v", err)
	}
	if _, err := l.CreateLock("alice", "doge", newInt(1_000), 1); !errors.Is(err, ErrValidation) {
		t.Errorf("unsupported asset: expected validation error, got %v", err)
	}
	if _, err := l.CreateLock("", "usdc", newInt(1_000), 1); !errors.Is(err, ErrValidation) {
		t.Errorf("empty user: expected validation error, got %v", err)
	}
}

func TestWithdrawLock_BeforeMaturityRejected(t *testing.T) {
	l, clock, _ := newTestLedger(t)

	lock, err := l.CreateLock("alice", "usdc", newInt(1_000), 1)
	if err != nil {
		t.Fatalf("create lock: %v", err)
	}
	clock.Advance(29 * 24 * time.Hour)
	if _, err := l.WithdrawLock("alice", lock.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected invalid state before maturity, got %v", err)
	}
}

func TestWithdrawLock_PaysPrincipalPlusYield(t *testing.T) {
	l, clock, _ := newTestLedger(t)

	lock, err := l.CreateLock("alice", "usdc", newInt(1_000), 1)
	if err != nil {
		t.Fatalf("create lock: %v", err)
	}
	if err := l.FundReserve(testOperator, newInt(100)); err != nil {
		t.Fatalf("fund reserve: %v", err)
	}

	// A full year of 4.20% on 1000 locked is 42.
	clock.Advance(365 * 24 * time.Hour)
	if _, err := l.AccrueYield(); err != nil {
		t.Fatalf("accrue: %v", err)
	}

	payout, err := l.WithdrawLock("alice", lock.ID)
	if err != nil {
		t.Fatalf("withdraw lock: %v", err)
	}
	if !payout.Equal(newInt(1_042)) {
		t.Errorf("expected payout 1042, got %s", payout)
	}

	stored, err := l.LockByID(lock.ID)
	if err != nil {
		t.Fatalf("lock by id: %v", err)
	}
	if stored.State != types.LockWithdrawnFull {
		t.Errorf("expected state %s, got %s", types.LockWithdrawnFull, stored.State)
	}
}

func TestEarlyWithdrawLock_PenaltyAndForfeit(t *testing.T) {
	l, clock, _ := newTestLedger(t)

	// Bob holds the flexible pool that receives the forfeit.
	if _, err := l.Deposit("bob", "usdc", newInt(1_000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	lock, err := l.CreateLock("alice", "usdc", newInt(1_000), 12)
	if err != nil {
		t.Fatalf("create lock: %v", err)
	}

	clock.Advance(10 * 24 * time.Hour)
	payout, err := l.EarlyWithdrawLock("alice", lock.ID)
	if err != nil {
		t.Fatalf("early withdraw: %v", err)
	}
	if !payout.Equal(newInt(750)) {
		t.Errorf("expected 75%% payout of 750, got %s", payout)
	}

	// The forfeited 250 raises the remaining flexible holders' value.
	bobValue, err := l.UserValue("bob", "usdc")
	if err != nil {
		t.Fatalf("user value: %v", err)
	}
	if !bobValue.Equal(newInt(1_250)) {
		t.Errorf("expected bob's value 1250 after forfeit credit, got %s", bobValue)
	}

	stored, _ := l.LockByID(lock.ID)
	if stored.State != types.LockWithdrawnEarly {
		t.Errorf("expected state %s, got %s", types.LockWithdrawnEarly, stored.State)
	}
}

func TestEarlyWithdrawLock_ReturnsAccruedYieldToReserve(t *testing.T) {
	l, clock, _ := newTestLedger(t)

	lock, err := l.CreateLock("alice", "usdc", newInt(1_000), 12)
	if err != nil {
		t.Fatalf("create lock: %v", err)
	}
	if err := l.FundReserve(testOperator, newInt(100)); err != nil {
		t.Fatalf("fund reserve: %v", err)
	}
	clock.Advance(365 * 24 * time.Hour)
	if _, err := l.AccrueYield(); err != nil {
		t.Fatalf("accrue: %v", err)
	}
	// Reserve paid out 42 to the lock.
	if got := l.ReserveState().ReserveBalance; !got.Equal(newInt(58)) {
		t.Fatalf("expected reserve 58 after accrual, got %s", got)
	}

	if _, err := l.EarlyWithdrawLock("alice", lock.ID); err != nil {
		t.Fatalf("early withdraw: %v", err)
	}
	if got := l.ReserveState().ReserveBalance; !got.Equal(newInt(100)) {
		t.Errorf("expected unpaid yield returned to reserve (100), got %s", got)
	}
}

func TestEarlyWithdrawLock_AfterMaturityRejected(t *testing.T) {
	l, clock, _ := newTestLedger(t)

	lock, err := l.CreateLock("alice", "usdc", newInt(1_000), 1)
	if err != nil {
		t.Fatalf("create lock: %v", err)
	}
	clock.Advance(31 * 24 * time.Hour)
	if _, err := l.EarlyWithdrawLock("alice", lock.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected invalid state after maturity, got %v", err)
	}
}

func TestWithdrawLock_TerminalStateRejected(t *testing.T) {
	l, clock, _ := newTestLedger(t)

	lock, err := l.CreateLock("alice", "usdc", newInt(1_000), 1)
	if err != nil {
		t.Fatalf("create lock: %v", err)
	}
	clock.Advance(31 * 24 * time.Hour)
	if _, err := l.WithdrawLock("alice", lock.ID); err != nil {
		t.Fatalf("withdraw lock: %v", err)
	}
	if _, err := l.WithdrawLock("alice", lock.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("second withdrawal: expected invalid state, got %v", err)
	}
}

func TestWithdrawLock_OwnershipAndExistence(t *testing.T) {
	l, clock, _ := newTestLedger(t)

	lock, err := l.CreateLock("alice", "usdc", newInt(1_000), 1)
	if err != nil {
		t.Fatalf("create lock: %v", err)
	}
	clock.Advance(31 * 24 * time.Hour)

	if _, err := l.WithdrawLock("mallory", lock.ID); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("wrong owner: expected unauthorized, got %v", err)
	}
	if _, err := l.WithdrawLock("alice", 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown lock: expected not found, got %v", err)
	}
}

func TestLocksOf_ReturnsOwnedLocksInOrder(t *testing.T) {
	l, _, _ := newTestLedger(t)

	first, _ := l.CreateLock("alice", "usdc", newInt(1_000), 1)
	second, _ := l.CreateLock("alice", "usdt", newInt(2_000), 3)
	if _, err := l.CreateLock("bob", "usdc", newInt(500), 1); err != nil {
		t.Fatalf("create lock: %v", err)
	}

	locks := l.LocksOf("alice")
	if len(locks) != 2 {
		t.Fatalf("expected 2 locks for alice, got %d", len(locks))
	}
	if locks[0].ID != first.ID || locks[1].ID != second.ID {
		t.Errorf("locks out of creation order: %d, %d", locks[0].ID, locks[1].ID)
	}
}
