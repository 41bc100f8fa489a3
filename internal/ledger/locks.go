/*

Locked position registry. Each lock is an independent record with a one-way
state machine: Active -> WithdrawnFull | WithdrawnEarly, both terminal. The
state gate on the record itself is what makes concurrent withdraw attempts
safe; no caller coordination is assumed.

*/

package ledger

import (
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/solstice-fi/svm/internal/types"
)

// lockMonth is the fixed 30-day month convention used for unlock times.
const lockMonth = 30 * 24 * time.Hour

// CreateLock commits fresh principal for a fixed duration. months must be one
// of the configured terms (1, 3, 12); the points multiplier comes from the
// fixed table. The principal is tracked outside the share pool but counts
// toward total vault value.
func (l *Ledger) CreateLock(user, asset string, principal sdkmath.Int, months int) (types.LockedPosition, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if user == "" {
		return types.LockedPosition{}, fmt.Errorf("%w: user address is empty", ErrValidation)
	}
	if _, err := l.pool(asset); err != nil {
		return types.LockedPosition{}, err
	}
	multiplier, ok := lockMultipliers[months]
	if !ok {
		return types.LockedPosition{}, fmt.Errorf("%w: unsupported lock duration %d months", ErrValidation, months)
	}
	if principal.IsNil() || !principal.IsPositive() {
		return types.LockedPosition{}, fmt.Errorf("%w: lock principal must be positive", ErrValidation)
	}
	if principal.LT(sdkmath.NewInt(l.params.MinLockPrincipal)) {
		return types.LockedPosition{}, fmt.Errorf("%w: lock principal %s below minimum %d", ErrValidation, principal, l.params.MinLockPrincipal)
	}

	now := l.now()
	l.settlePoints(user, now)

	id := l.nextLockID
	l.nextLockID++
	lock := &types.LockedPosition{
		ID:               id,
		Owner:            user,
		Asset:            asset,
		Principal:        principal,
		LockMonths:       months,
		PointsMultiplier: multiplier,
		CreatedAt:        now,
		UnlockAt:         now.Add(time.Duration(months) * lockMonth),
		State:            types.LockActive,
		AccruedYield:     sdkmath.ZeroInt(),
		UpdatedAt:        now,
	}
	l.locks[id] = lock
	l.locksByOwner[user] = append(l.locksByOwner[user], id)

	l.logger.Info().
		Uint64("lock_id", id).
		Str("user", user).
		Str("asset", asset).
		Str("principal", principal.String()).
		Int("months", months).
		Time("unlock_at", lock.UnlockAt).
		Msg("Lock created")
	return *lock, nil
}

// WithdrawLock closes a matured lock, paying principal plus accrued yield.
func (l *Ledger) WithdrawLock(caller string, lockID uint64) (sdkmath.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, err := l.ownedLock(caller, lockID)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	now := l.now()
	if now.Before(lock.UnlockAt) {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: lock %d matures at %s", ErrInvalidState, lockID, lock.UnlockAt.Format(time.RFC3339))
	}

	// Settle while the lock still counts as active holdings.
	l.settlePoints(lock.Owner, now)

	payout := lock.Principal.Add(lock.AccruedYield)
	lock.State = types.LockWithdrawnFull
	lock.UpdatedAt = now

	l.logger.Info().
		Uint64("lock_id", lockID).
		Str("user", lock.Owner).
		Str("payout", payout.String()).
		Msg("Lock withdrawn at maturity")
	return payout, nil
}

// EarlyWithdrawLock closes an unmatured lock at the configured penalty payout.
// The forfeited principal stays in the asset's flexible pool, raising value
// for remaining participants; accrued yield returns to the reserve unpaid.
func (l *Ledger) EarlyWithdrawLock(caller string, lockID uint64) (sdkmath.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, err := l.ownedLock(caller, lockID)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	now := l.now()
	if !now.Before(lock.UnlockAt) {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: lock %d already matured, use full withdrawal", ErrInvalidState, lockID)
	}

	l.settlePoints(lock.Owner, now)

	payout := lock.Principal.MulRaw(int64(l.params.EarlyExitPayoutBps)).QuoRaw(bpsDenom)
	forfeit := lock.Principal.Sub(payout)

	pool := l.pools[lock.Asset]
	pool.TotalPrincipal = pool.TotalPrincipal.Add(forfeit)
	pool.UpdatedAt = now

	if lock.AccruedYield.IsPositive() {
		l.reserve.ReserveBalance = l.reserve.ReserveBalance.Add(lock.AccruedYield)
		l.reserve.UpdatedAt = now
		lock.AccruedYield = sdkmath.ZeroInt()
	}
	lock.State = types.LockWithdrawnEarly
	lock.UpdatedAt = now

	l.logger.Info().
		Uint64("lock_id", lockID).
		Str("user", lock.Owner).
		Str("payout", payout.String()).
		Str("forfeit", forfeit.String()).
		Msg("Lock withdrawn early with penalty")
	return payout, nil
}

// LockByID returns a copy of the lock record.
func (l *Ledger) LockByID(lockID uint64) (types.LockedPosition, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	lock, ok := l.locks[lockID]
	if !ok {
		return types.LockedPosition{}, fmt.Errorf("%w: lock %d", ErrNotFound, lockID)
	}
	return *lock, nil
}

// LocksOf returns copies of all locks owned by the user, oldest first.
func (l *Ledger) LocksOf(user string) []types.LockedPosition {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := l.locksByOwner[user]
	out := make([]types.LockedPosition, 0, len(ids))
	for _, id := range ids {
		out = append(out, *l.locks[id])
	}
	return out
}

// ownedLock fetches an Active lock owned by caller. Caller must hold the
// write lock.
func (l *Ledger) ownedLock(caller string, lockID uint64) (*types.LockedPosition, error) {
	lock, ok := l.locks[lockID]
	if !ok {
		return nil, fmt.Errorf("%w: lock %d", ErrNotFound, lockID)
	}
	if lock.Owner != caller {
		return nil, fmt.Errorf("%w: lock %d is not owned by %s", ErrUnauthorized, lockID, caller)
	}
	if lock.State.Terminal() {
		return nil, fmt.Errorf("%w: lock %d is already %s", ErrInvalidState, lockID, lock.State)
	}
	return lock, nil
}
