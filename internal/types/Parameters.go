package types

// LedgerParameters are the operator-tunable knobs of the vault ledger. They are
// persisted as versioned rows so every historical accrual window can be traced
// back to the parameter set that produced it.
type LedgerParameters struct {
	// BaseAPYBps is the initial flat yield rate in basis points. Runtime
	// changes go through the owner-gated SetBaseAPY path and apply to
	// subsequent accrual windows only.
	BaseAPYBps uint64 `json:"base_apy_bps" yaml:"base_apy_bps"`

	// MinLockPrincipal is the smallest principal (base units) accepted for a
	// locked position.
	MinLockPrincipal int64 `json:"min_lock_principal" yaml:"min_lock_principal"`

	// EarlyExitPayoutBps is the share of principal paid on early withdrawal,
	// in basis points. The remainder is forfeited to the flexible pool.
	EarlyExitPayoutBps uint64 `json:"early_exit_payout_bps" yaml:"early_exit_payout_bps"`

	// ReferralBonusRateBps is the referrer's cut of each referee points
	// settlement, in basis points, before the tier multiplier.
	ReferralBonusRateBps uint64 `json:"referral_bonus_rate_bps" yaml:"referral_bonus_rate_bps"`

	// OracleMaxAgeSeconds is how old an oracle price may be before valuation
	// falls back to the last known price and flags the read as stale.
	OracleMaxAgeSeconds int64 `json:"oracle_max_age_seconds" yaml:"oracle_max_age_seconds"`

	// SupportedAssets are the stablecoin denoms the ledger accepts.
	SupportedAssets []string `json:"supported_assets" yaml:"supported_assets"`

	// YieldAssetDenom names the external yield-bearing reference asset that
	// idle principal is converted into.
	YieldAssetDenom string `json:"yield_asset_denom" yaml:"yield_asset_denom"`
}
