/*

Conversion reconciliation and total vault valuation. Conversions are recorded
from balances observed at the external venue, never from caller-asserted
deltas; valuation consumes the oracle price as a pre-computed input and falls
back to the last known price instead of blocking on a stale feed.

*/

package ledger

import (
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/solstice-fi/svm/internal/auth"
	"github.com/solstice-fi/svm/internal/types"
)

// RecordConversion reconciles the ledger with a swap executed at the external
// venue. The observed balances become the record; the deltas against the
// previous record are derived internally for the audit trail.
func (l *Ledger) RecordConversion(caller, asset string, observed types.ExternalBalances) (types.ConversionRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.roles.IsAuthorized(caller, auth.RoleOperator) {
		return types.ConversionRecord{}, fmt.Errorf("%w: %s lacks the Operator role", ErrUnauthorized, caller)
	}
	pool, err := l.pool(asset)
	if err != nil {
		return types.ConversionRecord{}, err
	}
	if observed.Principal.IsNil() || observed.Principal.IsNegative() ||
		observed.YieldAsset.IsNil() || observed.YieldAsset.IsNegative() {
		return types.ConversionRecord{}, fmt.Errorf("%w: observed balances must be non-negative", ErrValidation)
	}
	if observed.Principal.GT(pool.TotalPrincipal) {
		return types.ConversionRecord{}, fmt.Errorf("%w: observed converted principal %s exceeds pool principal %s",
			ErrValidation, observed.Principal, pool.TotalPrincipal)
	}

	now := l.now()
	rec, ok := l.conversions[asset]
	if !ok {
		rec = &types.ConversionRecord{
			Asset:              asset,
			PrincipalConverted: sdkmath.ZeroInt(),
			YieldAssetHeld:     sdkmath.ZeroInt(),
		}
		l.conversions[asset] = rec
	}
	principalDelta := observed.Principal.Sub(rec.PrincipalConverted)
	yieldDelta := observed.YieldAsset.Sub(rec.YieldAssetHeld)

	rec.PrincipalConverted = observed.Principal
	rec.YieldAssetHeld = observed.YieldAsset
	rec.UpdatedAt = now

	l.logger.Info().
		Str("caller", caller).
		Str("asset", asset).
		Str("principal_delta", principalDelta.String()).
		Str("yield_asset_delta", yieldDelta.String()).
		Msg("Conversion recorded from observed balances")
	return *rec, nil
}

// ConversionOf returns a copy of the conversion record for the asset.
func (l *Ledger) ConversionOf(asset string) (types.ConversionRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rec, ok := l.conversions[asset]
	if !ok {
		return types.ConversionRecord{}, fmt.Errorf("%w: no conversion record for %q", ErrNotFound, asset)
	}
	return *rec, nil
}

// TotalPoolValue values the whole vault: flexible and locked principal at par,
// minus the portion represented externally, plus the yield asset at the
// oracle price. A stale or absent oracle only sets the advisory flag; the
// read itself never fails on price availability.
func (l *Ledger) TotalPoolValue() types.Valuation {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	flexible := sdkmath.ZeroInt()
	for _, pool := range l.pools {
		flexible = flexible.Add(pool.TotalPrincipal)
	}
	locked := sdkmath.ZeroInt()
	for _, lock := range l.locks {
		if lock.State != types.LockActive {
			continue
		}
		locked = locked.Add(lock.Principal).Add(lock.AccruedYield)
	}
	converted := sdkmath.ZeroInt()
	yieldHeld := sdkmath.ZeroInt()
	for _, rec := range l.conversions {
		converted = converted.Add(rec.PrincipalConverted)
		yieldHeld = yieldHeld.Add(rec.YieldAssetHeld)
	}

	price, stale := l.yieldPriceLocked(now)
	yieldValue := price.MulInt(yieldHeld)

	total := sdkmath.LegacyNewDecFromInt(flexible.Add(locked).Sub(converted)).Add(yieldValue)
	return types.Valuation{
		TotalValue:        total,
		FlexiblePrincipal: flexible,
		LockedPrincipal:   locked,
		YieldAssetValue:   yieldValue,
		OraclePrice:       price,
		OracleStale:       stale,
		Timestamp:         now,
	}
}

// yieldPriceLocked resolves the reference asset price under the staleness
// policy, refreshing the fallback cache on every fresh quote. Caller must
// hold the write lock.
func (l *Ledger) yieldPriceLocked(now time.Time) (sdkmath.LegacyDec, bool) {
	denom := l.params.YieldAssetDenom
	maxAge := time.Duration(l.params.OracleMaxAgeSeconds) * time.Second

	if l.feed != nil {
		if q, ok := l.feed.CurrentPrice(denom); ok {
			fresh := maxAge <= 0 || now.Sub(q.Timestamp) <= maxAge
			if fresh {
				l.lastPrice[denom] = q
				return q.Price, false
			}
		}
	}
	if q, ok := l.lastPrice[denom]; ok {
		return q.Price, true
	}
	return sdkmath.LegacyZeroDec(), true
}
