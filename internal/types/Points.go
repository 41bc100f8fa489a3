/*

This file contains the types for the loyalty points ledger and the two-tier
referral program.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// PointsState is one user's permanent loyalty score. Points are denominated in
// token-days and never decrease; withdrawal does not claw anything back.
type PointsState struct {
	User            string            `json:"user"`
	PermanentPoints sdkmath.LegacyDec `json:"permanent_points"`
	LastSettledAt   time.Time         `json:"last_settled_at"`
}

// ReferralRecord binds a referee to its referrer. The referrer is set exactly
// once and is immutable afterwards.
type ReferralRecord struct {
	Referee              string            `json:"referee"`
	Referrer             string            `json:"referrer"`
	ReferralPointsEarned sdkmath.LegacyDec `json:"referral_points_earned"`
	RegisteredAt         time.Time         `json:"registered_at"`
}

// ReferralTier is one row of the referrer bonus table. A referrer sits in the
// highest tier whose MinReferrals does not exceed their active referral count.
type ReferralTier struct {
	Name            string            `json:"name"`
	MinReferrals    int               `json:"min_referrals"`
	BonusMultiplier sdkmath.LegacyDec `json:"bonus_multiplier"`
}

// ReferralStats is the public per-address view over the referral program.
type ReferralStats struct {
	Address              string            `json:"address"`
	Code                 string            `json:"code,omitempty"`
	Referrer             string            `json:"referrer,omitempty"`
	TotalReferrals       int               `json:"total_referrals"`
	ActiveReferrals      int               `json:"active_referrals"`
	Tier                 string            `json:"tier"`
	TierMultiplier       sdkmath.LegacyDec `json:"tier_multiplier"`
	ReferralPointsEarned sdkmath.LegacyDec `json:"referral_points_earned"`
	PermanentPoints      sdkmath.LegacyDec `json:"permanent_points"`
}
