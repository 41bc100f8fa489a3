package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// LedgerSnapshot is a full point-in-time export of the ledger, taken once per
// engine cycle and persisted for audit and recovery.
type LedgerSnapshot struct {
	CycleNumber int                `json:"cycle_number"`
	CycleID     string             `json:"cycle_id"`
	Timestamp   time.Time          `json:"timestamp"`
	Pools       []AssetPool        `json:"pools"`
	Balances    []UserBalance      `json:"balances"`
	Locks       []LockedPosition   `json:"locks"`
	Reserve     YieldReserveState  `json:"reserve"`
	Conversions []ConversionRecord `json:"conversions"`
	Points      []PointsState      `json:"points"`
	Referrals   []ReferralRecord   `json:"referrals"`
	Codes       map[string]string  `json:"codes"`
	TotalValue  sdkmath.LegacyDec  `json:"total_value"`
	YieldPaid   sdkmath.Int        `json:"yield_paid"`
}

// AuditEvent is one row in the mutation audit trail. Every public write on the
// ledger produces exactly one event.
type AuditEvent struct {
	EventID   string    `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`
	Operation string    `json:"operation"`
	Actor     string    `json:"actor"`
	Asset     string    `json:"asset,omitempty"`
	Amount    string    `json:"amount,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Success   bool      `json:"success"`
}
