/*

This file contains the default ledger parameters for the SVM.

These values are used when no active parameter set is found in the database
during initialization. Operators can override them with a YAML file before
first boot; after that, parameter changes are versioned through the store.

*/

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/solstice-fi/svm/internal/types"
)

// DefaultLedgerParameters provides the baseline parameter set for the vault
// ledger.
var DefaultLedgerParameters = types.LedgerParameters{
	BaseAPYBps: 420, // 4.20% flat base yield.
	// Paid from the pre-funded reserve only: the rate is a promise bounded by
	// what has actually been deposited into the reserve.

	MinLockPrincipal: 100_000_000, // 100 units at 6 decimals.
	// Smaller locks are not worth their bookkeeping: each one accrues yield
	// and points individually on every tick.

	EarlyExitPayoutBps: 7_500, // Early withdrawal pays 75% of principal.
	// The forfeited 25% stays in the flexible pool for remaining holders.

	ReferralBonusRateBps: 1_000, // Referrers earn 10% of referee settlements.
	// Scaled further by the referrer's tier multiplier.

	OracleMaxAgeSeconds: 3_600, // Prices older than an hour are stale.
	// Valuation falls back to the last known price instead of failing.

	SupportedAssets: []string{"usdc", "usdt"},

	YieldAssetDenom: "wbtc",
}

// LoadLedgerParameters returns the defaults, overridden by the YAML file at
// path when one is configured.
func LoadLedgerParameters(path string) (types.LedgerParameters, error) {
	params := DefaultLedgerParameters
	if path == "" {
		return params, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return params, fmt.Errorf("reading parameters file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &params); err != nil {
		return params, fmt.Errorf("parsing parameters file %s: %w", path, err)
	}
	if err := ValidateLedgerParameters(params); err != nil {
		return params, err
	}
	return params, nil
}

// ValidateLedgerParameters rejects parameter sets that cannot produce a
// working ledger.
func ValidateLedgerParameters(p types.LedgerParameters) error {
	if len(p.SupportedAssets) == 0 {
		return fmt.Errorf("parameters: supported_assets must not be empty")
	}
	if p.YieldAssetDenom == "" {
		return fmt.Errorf("parameters: yield_asset_denom is required")
	}
	if p.EarlyExitPayoutBps > 10_000 {
		return fmt.Errorf("parameters: early_exit_payout_bps %d exceeds 100%%", p.EarlyExitPayoutBps)
	}
	if p.ReferralBonusRateBps > 10_000 {
		return fmt.Errorf("parameters: referral_bonus_rate_bps %d exceeds 100%%", p.ReferralBonusRateBps)
	}
	if p.MinLockPrincipal < 0 {
		return fmt.Errorf("parameters: min_lock_principal must not be negative")
	}
	return nil
}
