/*

This file contains the types for the yield reserve and the reconciliation of
principal converted into the external yield-bearing reference asset.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// YieldReserveState is the pre-funded reserve that pays time-based yield.
// Only the accrual path mutates it.
type YieldReserveState struct {
	BaseAPYBps      uint64      `json:"base_apy_bps"`
	LastAccrualTime time.Time   `json:"last_accrual_time"`
	ReserveBalance  sdkmath.Int `json:"reserve_balance"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// ExternalBalances are balances observed at the external venue, used as the
// basis for conversion reconciliation. The ledger never accepts caller-asserted
// deltas; it derives them from these observations.
type ExternalBalances struct {
	Principal  sdkmath.Int `json:"principal"`
	YieldAsset sdkmath.Int `json:"yield_asset"`
}

// ConversionRecord reconciles how much of one pool's principal is currently
// held as the yield-bearing reference asset at the external venue.
type ConversionRecord struct {
	Asset              string      `json:"asset"`
	PrincipalConverted sdkmath.Int `json:"principal_converted"`
	YieldAssetHeld     sdkmath.Int `json:"yield_asset_held"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// Valuation is the result of a total-pool-value read. OracleStale is advisory:
// a stale or missing oracle price falls back to the last known price instead of
// failing the read.
type Valuation struct {
	TotalValue        sdkmath.LegacyDec `json:"total_value"`
	FlexiblePrincipal sdkmath.Int       `json:"flexible_principal"`
	LockedPrincipal   sdkmath.Int       `json:"locked_principal"`
	YieldAssetValue   sdkmath.LegacyDec `json:"yield_asset_value"`
	OraclePrice       sdkmath.LegacyDec `json:"oracle_price"`
	OracleStale       bool              `json:"oracle_stale"`
	Timestamp         time.Time         `json:"timestamp"`
}
