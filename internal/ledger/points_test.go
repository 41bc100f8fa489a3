package ledger

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
)

func TestPoints_TokenDaysOnFlexibleBalance(t *testing.T) {
	l, clock, _ := newTestLedger(t)

	if _, err := l.Deposit("alice", "usdc", newInt(1_000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	clock.Advance(10 * 24 * time.Hour)

	ps, err := l.SettlePoints("alice")
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	// 1000 tokens held 10 days at 1x.
	if !ps.PermanentPoints.Equal(sdkmath.LegacyNewDec(10_000)) {
		t.Errorf("expected 10000 points, got %s", ps.PermanentPoints)
	}
}

func TestPoints_LockMultiplierWeighting(t *testing.T) {
	l, clock, _ := newTestLedger(t)

	if _, err := l.Deposit("alice", "usdc", newInt(500)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := l.CreateLock("alice", "usdc", newInt(1_000), 1); err != nil {
		t.Fatalf("create lock: %v", err)
	}
	clock.Advance(10 * 24 * time.Hour)

	ps, err := l.SettlePoints("alice")
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	// 500 flexible at 1x plus 1000 locked at 1.5x, over 10 days.
	if !ps.PermanentPoints.Equal(sdkmath.LegacyNewDec(20_000)) {
		t.Errorf("expected 20000 points, got %s", ps.PermanentPoints)
	}
}

func TestPoints_PermanentAfterFullWithdrawal(t *testing.T) {
	l, clock, _ := newTestLedger(t)

	if _, err := l.Deposit("alice", "usdc", newInt(1_000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	clock.Advance(10 * 24 * time.Hour)
	shares, _ := l.UserBalanceOf("alice", "usdc")
	if _, err := l.Withdraw("alice", "usdc", shares); err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	clock.Advance(30 * 24 * time.Hour)
	ps, err := l.SettlePoints("alice")
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	// The 10 holding days stay earned; the empty 30 days add nothing.
	if !ps.PermanentPoints.Equal(sdkmath.LegacyNewDec(10_000)) {
		t.Errorf("expected points to stay at 10000, got %s", ps.PermanentPoints)
	}
}

func TestPoints_SettlementBeforeBalanceChange(t *testing.T) {
	l, clock, _ := newTestLedger(t)

	if _, err := l.Deposit("alice", "usdc", newInt(1_000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	clock.Advance(10 * 24 * time.Hour)

	// The second deposit settles the trailing window against the old balance.
	if _, err := l.Deposit("alice", "usdc", newInt(9_000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	ps := l.PointsOf("alice")
	if !ps.PermanentPoints.Equal(sdkmath.LegacyNewDec(10_000)) {
		t.Errorf("expected 10000 points settled at old balance, got %s", ps.PermanentPoints)
	}
}

func TestReferral_BonusAtSilverTier(t *testing.T) {
	l, clock, _ := newTestLedger(t)

	// Five active referees put the referrer at Silver (0.1x).
	for i := 0; i < 5; i++ {
		referee := fmt.Sprintf("referee-%d", i)
		if err := l.RegisterReferral("ref", referee); err != nil {
			t.Fatalf("register: %v", err)
		}
		if _, err := l.Deposit(referee, "usdc", newInt(100)); err != nil {
			t.Fatalf("deposit: %v", err)
		}
	}
	clock.Advance(10 * 24 * time.Hour)

	ps, err := l.SettlePoints("referee-0")
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	// 100 tokens for 10 days.
	if !ps.PermanentPoints.Equal(sdkmath.LegacyNewDec(1_000)) {
		t.Fatalf("expected referee delta 1000, got %s", ps.PermanentPoints)
	}

	// Bonus = 1000 * 10% rate * 0.1 tier = 10.
	refPoints := l.PointsOf("ref")
	if !refPoints.PermanentPoints.Equal(sdkmath.LegacyNewDec(10)) {
		t.Errorf("expected referrer bonus 10, got %s", refPoints.PermanentPoints)
	}

	stats, err := l.ReferralStats("ref")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalReferrals != 5 || stats.ActiveReferrals != 5 {
		t.Errorf("expected 5/5 referrals, got %d/%d", stats.TotalReferrals, stats.ActiveReferrals)
	}
	if stats.Tier != "Silver" {
		t.Errorf("expected Silver tier, got %s", stats.Tier)
	}
	if !stats.ReferralPointsEarned.Equal(sdkmath.LegacyNewDec(10)) {
		t.Errorf("expected referral points earned 10, got %s", stats.ReferralPointsEarned)
	}
}

func TestReferral_BronzeTierEarnsNoBonus(t *testing.T) {
	l, clock, _ := newTestLedger(t)

	if err := l.RegisterReferral("ref", "alice"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := l.Deposit("alice", "usdc", newInt(1_000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	clock.Advance(10 * 24 * time.Hour)
	if _, err := l.SettlePoints("alice"); err != nil {
		t.Fatalf("settle: %v", err)
	}

	// A single active referral is Bronze: 0x bonus.
	refPoints := l.PointsOf("ref")
	if !refPoints.PermanentPoints.IsZero() {
		t.Errorf("expected no bonus at Bronze, got %s", refPoints.PermanentPoints)
	}
}

func TestRegisterReferral_SelfAndDuplicateRejected(t *testing.T) {
	l, _, _ := newTestLedger(t)

	if err := l.RegisterReferral("alice", "Alice"); !errors.Is(err, ErrSelfReferral) {
		t.Errorf("expected self referral error, got %v", err)
	}
	if err := l.RegisterReferral("ref", "alice"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := l.RegisterReferral("other", "alice"); !errors.Is(err, ErrDuplicateReferral) {
		t.Errorf("expected duplicate referral error, got %v", err)
	}
	if err := l.RegisterReferral("", "alice"); !errors.Is(err, ErrValidation) {
		t.Errorf("expected validation error for empty referrer, got %v", err)
	}
}

func TestGenerateReferralCode_IdempotentAndWellFormed(t *testing.T) {
	l, _, _ := newTestLedger(t)

	code, err := l.GenerateReferralCode("alice")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(code) != codeLength {
		t.Fatalf("expected %d-character code, got %q", codeLength, code)
	}
	for _, c := range code {
		if !strings.ContainsRune(codeAlphabet, c) {
			t.Errorf("code %q contains out-of-alphabet character %q", code, c)
		}
	}

	again, err := l.GenerateReferralCode("alice")
	if err != nil {
		t.Fatalf("generate again: %v", err)
	}
	if again != code {
		t.Errorf("expected idempotent code, got %q then %q", code, again)
	}
}

func TestResolveReferralCode_RoundTrip(t *testing.T) {
	l, _, _ := newTestLedger(t)

	code, err := l.GenerateReferralCode("alice")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	addr, err := l.ResolveReferralCode(code)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if addr != "alice" {
		t.Errorf("expected alice, got %s", addr)
	}

	// Lookup is case-insensitive.
	addr, err = l.ResolveReferralCode(strings.ToLower(code))
	if err != nil {
		t.Fatalf("lowercase resolve: %v", err)
	}
	if addr != "alice" {
		t.Errorf("expected alice from lowercase code, got %s", addr)
	}
}

func TestResolveReferralCode_Validation(t *testing.T) {
	l, _, _ := newTestLedger(t)

	if _, err := l.ResolveReferralCode("SHORT"); !errors.Is(err, ErrValidation) {
		t.Errorf("wrong length: expected validation error, got %v", err)
	}
	if _, err := l.ResolveReferralCode("ABCDEFG0"); !errors.Is(err, ErrValidation) {
		t.Errorf("excluded glyph: expected validation error, got %v", err)
	}
	if _, err := l.ResolveReferralCode("ABCDEFGH"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown code: expected not found, got %v", err)
	}
}

func TestTierForCount_Boundaries(t *testing.T) {
	cases := []struct {
		count int
		tier  string
	}{
		{0, "Bronze"},
		{4, "Bronze"},
		{5, "Silver"},
		{9, "Silver"},
		{10, "Gold"},
		{19, "Gold"},
		{20, "Platinum"},
		{49, "Platinum"},
		{50, "Diamond"},
		{100, "Diamond"},
	}
	for _, tc := range cases {
		if got := tierForCount(tc.count); got.Name != tc.tier {
			t.Errorf("%d active referrals: expected %s, got %s", tc.count, tc.tier, got.Name)
		}
	}
}

func TestReferralStats_ActiveCountExcludesExitedReferees(t *testing.T) {
	l, _, _ := newTestLedger(t)

	if err := l.RegisterReferral("ref", "alice"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := l.RegisterReferral("ref", "bob"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := l.Deposit("alice", "usdc", newInt(100)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := l.Deposit("bob", "usdc", newInt(100)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	shares, _ := l.UserBalanceOf("bob", "usdc")
	if _, err := l.Withdraw("bob", "usdc", shares); err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	stats, err := l.ReferralStats("ref")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalReferrals != 2 {
		t.Errorf("expected 2 total referrals, got %d", stats.TotalReferrals)
	}
	if stats.ActiveReferrals != 1 {
		t.Errorf("expected 1 active referral after bob's exit, got %d", stats.ActiveReferrals)
	}
}
