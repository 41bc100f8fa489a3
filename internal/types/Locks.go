/*

This file contains the types for time-committed locked positions. Locks are
tracked outside the share pools but count toward total vault value.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// LockState is the lifecycle state of a locked position.
type LockState string

const (
	LockActive         LockState = "ACTIVE"
	LockWithdrawnFull  LockState = "WITHDRAWN_FULL"
	LockWithdrawnEarly LockState = "WITHDRAWN_EARLY"
)

// Terminal reports whether the lock can no longer transition.
func (s LockState) Terminal() bool {
	return s == LockWithdrawnFull || s == LockWithdrawnEarly
}

// LockedPosition is a single user's time-committed principal.
// Duration uses a fixed 30-day month convention; UnlockAt is derived once at
// creation and never recomputed.
type LockedPosition struct {
	ID               uint64            `json:"id"`
	Owner            string            `json:"owner"`
	Asset            string            `json:"asset"`
	Principal        sdkmath.Int       `json:"principal"`
	LockMonths       int               `json:"lock_months"`
	PointsMultiplier sdkmath.LegacyDec `json:"points_multiplier"`
	CreatedAt        time.Time         `json:"created_at"`
	UnlockAt         time.Time         `json:"unlock_at"`
	State            LockState         `json:"state"`
	AccruedYield     sdkmath.Int       `json:"accrued_yield"`
	UpdatedAt        time.Time         `json:"updated_at"`
}
