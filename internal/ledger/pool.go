/*

Flexible pool operations: proportional share issuance on deposit, proportional
burn on withdrawal. Share math always floors in the pool's favor so that no
sequence of deposits dilutes existing holders.

*/

package ledger

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
)

// Deposit adds principal to an asset pool and mints shares for the user.
// The first deposit into an empty pool mints amount*ShareScale shares; later
// deposits mint floor(amount*totalShares/totalPrincipal).
func (l *Ledger) Deposit(user, asset string, amount sdkmath.Int) (sdkmath.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if user == "" {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: user address is empty", ErrValidation)
	}
	if amount.IsNil() || !amount.IsPositive() {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: deposit amount must be positive", ErrValidation)
	}
	pool, err := l.pool(asset)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}

	var shares sdkmath.Int
	if pool.TotalShares.IsZero() {
		shares = amount.Mul(shareScale())
	} else {
		shares = amount.Mul(pool.TotalShares).Quo(pool.TotalPrincipal)
	}
	if shares.IsZero() {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: deposit too small to mint shares", ErrValidation)
	}

	now := l.now()
	// Points settle against pre-deposit holdings before the balance moves.
	l.settlePoints(user, now)

	bal := l.balance(user, asset)
	pool.TotalPrincipal = pool.TotalPrincipal.Add(amount)
	pool.TotalShares = pool.TotalShares.Add(shares)
	pool.UpdatedAt = now
	bal.Shares = bal.Shares.Add(shares)
	bal.CumulativeDeposited = bal.CumulativeDeposited.Add(amount)
	bal.UpdatedAt = now

	l.logger.Info().
		Str("user", user).
		Str("asset", asset).
		Str("amount", amount.String()).
		Str("shares", shares.String()).
		Msg("Deposit applied")
	return shares, nil
}

// Withdraw burns the user's shares and pays out the proportional principal,
// floor(shares*totalPrincipal/totalShares).
func (l *Ledger) Withdraw(user, asset string, shares sdkmath.Int) (sdkmath.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if user == "" {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: user address is empty", ErrValidation)
	}
	if shares.IsNil() || !shares.IsPositive() {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: share amount must be positive", ErrValidation)
	}
	pool, err := l.pool(asset)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	byAsset := l.balances[user]
	bal, ok := byAsset[asset]
	if !ok || bal.Shares.LT(shares) {
		held := sdkmath.ZeroInt()
		if ok {
			held = bal.Shares
		}
		return sdkmath.ZeroInt(), fmt.Errorf("%w: withdrawing %s shares, holding %s", ErrInsufficientBalance, shares, held)
	}

	amount := shares.Mul(pool.TotalPrincipal).Quo(pool.TotalShares)

	now := l.now()
	l.settlePoints(user, now)

	bal.Shares = bal.Shares.Sub(shares)
	bal.UpdatedAt = now
	pool.TotalShares = pool.TotalShares.Sub(shares)
	pool.TotalPrincipal = pool.TotalPrincipal.Sub(amount)
	pool.UpdatedAt = now

	l.logger.Info().
		Str("user", user).
		Str("asset", asset).
		Str("shares", shares.String()).
		Str("amount", amount.String()).
		Msg("Withdrawal applied")
	return amount, nil
}

// PricePerShare returns the current price of one scaled share. An empty pool
// is priced at exactly 1.
func (l *Ledger) PricePerShare(asset string) (sdkmath.LegacyDec, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	pool, err := l.pool(asset)
	if err != nil {
		return sdkmath.LegacyZeroDec(), err
	}
	if pool.TotalShares.IsZero() {
		return sdkmath.LegacyOneDec(), nil
	}
	return sdkmath.LegacyNewDecFromInt(pool.TotalPrincipal.Mul(shareScale())).
		QuoInt(pool.TotalShares), nil
}

// UserValue returns the principal currently claimable by the user's shares.
func (l *Ledger) UserValue(user, asset string) (sdkmath.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	pool, err := l.pool(asset)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	bal, ok := l.balances[user][asset]
	if !ok || bal.Shares.IsZero() || pool.TotalShares.IsZero() {
		return sdkmath.ZeroInt(), nil
	}
	return bal.Shares.Mul(pool.TotalPrincipal).Quo(pool.TotalShares), nil
}

// UserBalanceOf returns a copy of the stored balance record.
func (l *Ledger) UserBalanceOf(user, asset string) (shares, cumulativeDeposited sdkmath.Int) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	bal, ok := l.balances[user][asset]
	if !ok {
		return sdkmath.ZeroInt(), sdkmath.ZeroInt()
	}
	return bal.Shares, bal.CumulativeDeposited
}

// flexibleValueLocked sums the user's claimable principal across all pools.
// Caller must hold at least the read lock.
func (l *Ledger) flexibleValueLocked(user string) sdkmath.Int {
	total := sdkmath.ZeroInt()
	for asset, bal := range l.balances[user] {
		pool := l.pools[asset]
		if pool == nil || pool.TotalShares.IsZero() || bal.Shares.IsZero() {
			continue
		}
		total = total.Add(bal.Shares.Mul(pool.TotalPrincipal).Quo(pool.TotalShares))
	}
	return total
}
