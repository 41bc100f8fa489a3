/*

Points and referral engine. Points are denominated in token-days, settle lazily
before every balance-changing operation, and are permanent: nothing earned is
ever clawed back on withdrawal. Referrers earn a cut of each referee
settlement, scaled by a tier looked up from their active referral count.

*/

package ledger

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/solstice-fi/svm/internal/types"
)

// codeAlphabet is the 32-symbol referral code alphabet. Visually ambiguous
// glyphs (I, O, 0, 1) are excluded.
const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 8
	codeRetries  = 10
)

// referralTiers is the fixed bonus table, ordered by ascending threshold.
var referralTiers = []types.ReferralTier{
	{Name: "Bronze", MinReferrals: 0, BonusMultiplier: sdkmath.LegacyZeroDec()},
	{Name: "Silver", MinReferrals: 5, BonusMultiplier: sdkmath.LegacyMustNewDecFromStr("0.1")},
	{Name: "Gold", MinReferrals: 10, BonusMultiplier: sdkmath.LegacyMustNewDecFromStr("0.2")},
	{Name: "Platinum", MinReferrals: 20, BonusMultiplier: sdkmath.LegacyMustNewDecFromStr("0.5")},
	{Name: "Diamond", MinReferrals: 50, BonusMultiplier: sdkmath.LegacyOneDec()},
}

// settlePoints accrues the user's points up to now and pays the referrer bonus
// on the settled delta. Caller must hold the write lock. Must run before any
// operation that changes the user's holdings.
func (l *Ledger) settlePoints(user string, now time.Time) {
	ps, ok := l.points[user]
	if !ok {
		ps = &types.PointsState{
			User:            user,
			PermanentPoints: sdkmath.LegacyZeroDec(),
			LastSettledAt:   now,
		}
		l.points[user] = ps
		return
	}
	elapsed := now.Sub(ps.LastSettledAt)
	if elapsed <= 0 {
		return
	}
	ps.LastSettledAt = now

	weighted := sdkmath.LegacyNewDecFromInt(l.flexibleValueLocked(user))
	for _, id := range l.locksByOwner[user] {
		lock := l.locks[id]
		if lock.State != types.LockActive {
			continue
		}
		weighted = weighted.Add(lock.PointsMultiplier.MulInt(lock.Principal))
	}
	if weighted.IsZero() {
		return
	}

	days := sdkmath.LegacyNewDec(int64(elapsed / time.Second)).QuoInt64(daySeconds)
	delta := weighted.Mul(days)
	if !delta.IsPositive() {
		return
	}
	ps.PermanentPoints = ps.PermanentPoints.Add(delta)

	rec, ok := l.referralByReferee[user]
	if !ok {
		return
	}
	tier := l.tierOfLocked(rec.Referrer)
	bonus := delta.
		MulInt64(int64(l.params.ReferralBonusRateBps)).
		QuoInt64(bpsDenom).
		Mul(tier.BonusMultiplier)
	if !bonus.IsPositive() {
		return
	}

	rp, ok := l.points[rec.Referrer]
	if !ok {
		rp = &types.PointsState{
			User:            rec.Referrer,
			PermanentPoints: sdkmath.LegacyZeroDec(),
			LastSettledAt:   now,
		}
		l.points[rec.Referrer] = rp
	}
	rp.PermanentPoints = rp.PermanentPoints.Add(bonus)
	rec.ReferralPointsEarned = rec.ReferralPointsEarned.Add(bonus)

	l.logger.Debug().
		Str("referee", user).
		Str("referrer", rec.Referrer).
		Str("tier", tier.Name).
		Str("bonus", bonus.String()).
		Msg("Referral bonus settled")
}

// SettlePoints settles a single user's points on demand.
func (l *Ledger) SettlePoints(user string) (types.PointsState, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if user == "" {
		return types.PointsState{}, fmt.Errorf("%w: user address is empty", ErrValidation)
	}
	l.settlePoints(user, l.now())
	return *l.points[user], nil
}

// PointsOf returns the stored (last settled) points state.
func (l *Ledger) PointsOf(user string) types.PointsState {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if ps, ok := l.points[user]; ok {
		return *ps
	}
	return types.PointsState{User: user, PermanentPoints: sdkmath.LegacyZeroDec()}
}

// RegisterReferral binds referee to referrer exactly once.
func (l *Ledger) RegisterReferral(referrer, referee string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if referrer == "" || referee == "" {
		return fmt.Errorf("%w: referrer and referee are required", ErrValidation)
	}
	if strings.EqualFold(referrer, referee) {
		return fmt.Errorf("%w: %s cannot refer themselves", ErrSelfReferral, referee)
	}
	if _, exists := l.referralByReferee[referee]; exists {
		return fmt.Errorf("%w: %s already has a referrer", ErrDuplicateReferral, referee)
	}

	now := l.now()
	l.referralByReferee[referee] = &types.ReferralRecord{
		Referee:              referee,
		Referrer:             referrer,
		ReferralPointsEarned: sdkmath.LegacyZeroDec(),
		RegisteredAt:         now,
	}
	l.refereesByReferrer[referrer] = append(l.refereesByReferrer[referrer], referee)

	l.logger.Info().
		Str("referrer", referrer).
		Str("referee", referee).
		Msg("Referral registered")
	return nil
}

// GenerateReferralCode returns the address's code, drawing a fresh one on
// first call. Idempotent: repeated calls return the identical code.
func (l *Ledger) GenerateReferralCode(address string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if address == "" {
		return "", fmt.Errorf("%w: address is empty", ErrValidation)
	}
	if code, ok := l.codeByAddress[address]; ok {
		return code, nil
	}

	for attempt := 0; attempt < codeRetries; attempt++ {
		code, err := randomCode()
		if err != nil {
			return "", fmt.Errorf("drawing referral code: %w", err)
		}
		if _, taken := l.addressByCode[code]; taken {
			continue
		}
		l.codeByAddress[address] = code
		l.addressByCode[code] = address
		l.logger.Info().Str("address", address).Str("code", code).Msg("Referral code generated")
		return code, nil
	}
	return "", fmt.Errorf("%w: after %d attempts", ErrCollisionExhausted, codeRetries)
}

// ResolveReferralCode looks up the address owning a code.
func (l *Ledger) ResolveReferralCode(code string) (string, error) {
	if len(code) != codeLength {
		return "", fmt.Errorf("%w: referral code must be %d characters", ErrValidation, codeLength)
	}
	code = strings.ToUpper(code)
	for _, c := range code {
		if !strings.ContainsRune(codeAlphabet, c) {
			return "", fmt.Errorf("%w: referral code contains invalid character %q", ErrValidation, c)
		}
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	addr, ok := l.addressByCode[code]
	if !ok {
		return "", fmt.Errorf("%w: referral code %s", ErrNotFound, code)
	}
	return addr, nil
}

// ReferralStats assembles the public referral view for an address.
func (l *Ledger) ReferralStats(address string) (types.ReferralStats, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if address == "" {
		return types.ReferralStats{}, fmt.Errorf("%w: address is empty", ErrValidation)
	}

	stats := types.ReferralStats{
		Address:              address,
		Code:                 l.codeByAddress[address],
		TotalReferrals:       len(l.refereesByReferrer[address]),
		ActiveReferrals:      l.activeReferralCountLocked(address),
		ReferralPointsEarned: sdkmath.LegacyZeroDec(),
		PermanentPoints:      sdkmath.LegacyZeroDec(),
	}
	if rec, ok := l.referralByReferee[address]; ok {
		stats.Referrer = rec.Referrer
	}
	for _, referee := range l.refereesByReferrer[address] {
		stats.ReferralPointsEarned = stats.ReferralPointsEarned.Add(l.referralByReferee[referee].ReferralPointsEarned)
	}
	if ps, ok := l.points[address]; ok {
		stats.PermanentPoints = ps.PermanentPoints
	}

	tier := tierForCount(stats.ActiveReferrals)
	stats.Tier = tier.Name
	stats.TierMultiplier = tier.BonusMultiplier
	return stats, nil
}

// tierOfLocked resolves the referrer's current tier. Caller must hold at
// least the read lock.
func (l *Ledger) tierOfLocked(referrer string) types.ReferralTier {
	return tierForCount(l.activeReferralCountLocked(referrer))
}

// activeReferralCountLocked counts referees that currently hold value: any
// flexible shares or an active lock.
func (l *Ledger) activeReferralCountLocked(referrer string) int {
	count := 0
	for _, referee := range l.refereesByReferrer[referrer] {
		if l.hasHoldingsLocked(referee) {
			count++
		}
	}
	return count
}

func (l *Ledger) hasHoldingsLocked(user string) bool {
	for _, bal := range l.balances[user] {
		if bal.Shares.IsPositive() {
			return true
		}
	}
	for _, id := range l.locksByOwner[user] {
		if l.locks[id].State == types.LockActive {
			return true
		}
	}
	return false
}

// tierForCount picks the highest tier whose threshold the count meets.
func tierForCount(activeReferrals int) types.ReferralTier {
	tier := referralTiers[0]
	for _, t := range referralTiers[1:] {
		if activeReferrals >= t.MinReferrals {
			tier = t
		}
	}
	return tier
}

func randomCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	// 32 symbols divide 256 evenly, so the modulo draw is unbiased.
	out := make([]byte, codeLength)
	for i, b := range buf {
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(out), nil
}
