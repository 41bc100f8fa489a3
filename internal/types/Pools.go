/*

This file contains the types for the flexible asset pools and per-user share balances.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// ShareScale is the share multiplier applied to the first deposit into an empty
// pool. Shares carry six extra decimal places relative to principal base units so
// that later proportional mints do not collapse to zero.
var ShareScale = sdkmath.NewInt(1_000_000)

// AssetPool is the aggregate for one supported asset's flexible principal.
// Price per share is TotalPrincipal*ShareScale/TotalShares and only ever moves
// up, except by the exact proportional burn of a withdrawal.
type AssetPool struct {
	Asset          string      `json:"asset"`
	TotalPrincipal sdkmath.Int `json:"total_principal"`
	TotalShares    sdkmath.Int `json:"total_shares"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// UserBalance tracks one user's claim on one pool.
// CumulativeDeposited is informational (yield display), not an accounting input.
type UserBalance struct {
	User                string      `json:"user"`
	Asset               string      `json:"asset"`
	Shares              sdkmath.Int `json:"shares"`
	CumulativeDeposited sdkmath.Int `json:"cumulative_deposited"`
	UpdatedAt           time.Time   `json:"updated_at"`
}
