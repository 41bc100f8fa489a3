/*

Yield reserve accrual. Growth is driven purely by stored elapsed wall-clock
time against a finite pre-funded reserve, so the tick entry point is safe to
call from any trigger at any cadence without double counting.

*/

package ledger

import (
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/solstice-fi/svm/internal/auth"
	"github.com/solstice-fi/svm/internal/types"
)

// AccrueYield advances the accrual clock and distributes pending yield:
// flexible pools gain principal pro rata (raising price per share) and each
// active lock gains accrued yield at the same rate. If the pending total
// exceeds the reserve the call fails and nothing changes, including the clock.
// Zero elapsed time is a valid no-op. The entry point is permissionless.
func (l *Ledger) AccrueYield() (sdkmath.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.accrueLocked()
}

func (l *Ledger) accrueLocked() (sdkmath.Int, error) {
	now := l.now()
	elapsed := now.Sub(l.reserve.LastAccrualTime)
	if elapsed <= 0 {
		return sdkmath.ZeroInt(), nil
	}
	elapsedSec := int64(elapsed / time.Second)
	if elapsedSec == 0 || l.reserve.BaseAPYBps == 0 {
		// Sub-second or zero-rate windows still advance the clock.
		l.reserve.LastAccrualTime = now
		l.reserve.UpdatedAt = now
		return sdkmath.ZeroInt(), nil
	}

	// rate = bps/10000 * elapsed/365d, floored per beneficiary.
	rate := sdkmath.LegacyNewDec(int64(l.reserve.BaseAPYBps)).
		MulInt64(elapsedSec).
		QuoInt64(bpsDenom * secondsPerYear)

	poolPending := make(map[string]sdkmath.Int, len(l.pools))
	lockPending := make(map[uint64]sdkmath.Int)
	total := sdkmath.ZeroInt()
	for asset, pool := range l.pools {
		p := rate.MulInt(pool.TotalPrincipal).TruncateInt()
		poolPending[asset] = p
		total = total.Add(p)
	}
	for id, lock := range l.locks {
		if lock.State != types.LockActive {
			continue
		}
		p := rate.MulInt(lock.Principal).TruncateInt()
		lockPending[id] = p
		total = total.Add(p)
	}

	if total.GT(l.reserve.ReserveBalance) {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: pending %s exceeds reserve %s", ErrInsufficientReserve, total, l.reserve.ReserveBalance)
	}

	for asset, p := range poolPending {
		if p.IsZero() {
			continue
		}
		pool := l.pools[asset]
		pool.TotalPrincipal = pool.TotalPrincipal.Add(p)
		pool.UpdatedAt = now
	}
	for id, p := range lockPending {
		if p.IsZero() {
			continue
		}
		lock := l.locks[id]
		lock.AccruedYield = lock.AccruedYield.Add(p)
		lock.UpdatedAt = now
	}
	l.reserve.ReserveBalance = l.reserve.ReserveBalance.Sub(total)
	l.reserve.LastAccrualTime = now
	l.reserve.UpdatedAt = now

	l.logger.Info().
		Int64("elapsed_sec", elapsedSec).
		Str("yield_paid", total.String()).
		Str("reserve_left", l.reserve.ReserveBalance.String()).
		Msg("Yield accrued")
	return total, nil
}

// SetBaseAPY changes the flat yield rate for subsequent accrual windows. The
// open window is settled at the old rate first so the change is never
// retroactive; if that settlement fails the rate stays untouched.
func (l *Ledger) SetBaseAPY(caller string, newBps uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.roles.IsAuthorized(caller, auth.RoleOwner) {
		return fmt.Errorf("%w: %s lacks the Owner role", ErrUnauthorized, caller)
	}
	if newBps > bpsDenom {
		return fmt.Errorf("%w: base APY %d bps exceeds 100%%", ErrValidation, newBps)
	}
	if _, err := l.accrueLocked(); err != nil {
		return fmt.Errorf("settling open accrual window: %w", err)
	}

	old := l.reserve.BaseAPYBps
	l.reserve.BaseAPYBps = newBps
	l.reserve.UpdatedAt = l.now()

	l.logger.Info().
		Uint64("old_bps", old).
		Uint64("new_bps", newBps).
		Str("caller", caller).
		Msg("Base APY updated")
	return nil
}

// FundReserve credits the yield reserve. Accrual can only ever pay out what
// has been pre-funded here.
func (l *Ledger) FundReserve(caller string, amount sdkmath.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.roles.IsAuthorized(caller, auth.RoleOperator) {
		return fmt.Errorf("%w: %s lacks the Operator role", ErrUnauthorized, caller)
	}
	if amount.IsNil() || !amount.IsPositive() {
		return fmt.Errorf("%w: reserve funding must be positive", ErrValidation)
	}

	now := l.now()
	l.reserve.ReserveBalance = l.reserve.ReserveBalance.Add(amount)
	l.reserve.UpdatedAt = now

	l.logger.Info().
		Str("caller", caller).
		Str("amount", amount.String()).
		Str("reserve", l.reserve.ReserveBalance.String()).
		Msg("Yield reserve funded")
	return nil
}

// ReserveState returns a copy of the reserve bookkeeping.
func (l *Ledger) ReserveState() types.YieldReserveState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.reserve
}
