// ./internal/state/parameters_store.go
package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/solstice-fi/svm/internal/types"
)

// SaveLedgerParameters saves a new version of ledger parameters.
func SaveLedgerParameters(params types.LedgerParameters, configName string, version int, makeActive bool) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	tx, err := DB.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p) // Re-panic after rollback
		} else if err != nil {
			tx.Rollback() // Rollback if error occurred
		}
	}()

	if makeActive {
		stmtDeactivate := `UPDATE ledger_parameters SET is_active = FALSE WHERE config_name = $1 AND is_active = TRUE;`
		_, err = tx.Exec(stmtDeactivate, configName)
		if err != nil {
			return 0, fmt.Errorf("failed to deactivate existing active parameters for %s: %w", configName, err)
		}
	}

	stmt := `
        INSERT INTO ledger_parameters (
            version, config_name, is_active, activated_at, created_at,
            base_apy_bps, min_lock_principal, early_exit_payout_bps,
            referral_bonus_rate_bps, oracle_max_age_seconds,
            supported_assets, yield_asset_denom
        ) VALUES (
            $1, $2, $3, $4, $5,
            $6, $7, $8,
            $9, $10,
            $11, $12
        ) RETURNING params_id;`

	var paramsID int64
	currentTime := time.Now()
	err = tx.QueryRow(
		stmt,
		version, configName, makeActive, currentTime, currentTime,
		params.BaseAPYBps, params.MinLockPrincipal, params.EarlyExitPayoutBps,
		params.ReferralBonusRateBps, params.OracleMaxAgeSeconds,
		pq.Array(params.SupportedAssets), params.YieldAssetDenom,
	).Scan(&paramsID)

	if err != nil {
		return 0, fmt.Errorf("failed to insert ledger parameters: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Info().
		Int("version", version).
		Str("config", configName).
		Int64("params_id", paramsID).
		Bool("active", makeActive).
		Msg("Saved ledger parameters")
	return paramsID, nil
}

// LoadActiveLedgerParameters loads the currently active ledger parameters.
func LoadActiveLedgerParameters(configName string) (*types.LedgerParameters, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
        SELECT
            base_apy_bps, min_lock_principal, early_exit_payout_bps,
            referral_bonus_rate_bps, oracle_max_age_seconds,
            supported_assets, yield_asset_denom
        FROM ledger_parameters
        WHERE config_name = $1 AND is_active = TRUE
        ORDER BY activated_at DESC
        LIMIT 1;`

	p := &types.LedgerParameters{}
	row := DB.QueryRow(query, configName)
	err := row.Scan(
		&p.BaseAPYBps, &p.MinLockPrincipal, &p.EarlyExitPayoutBps,
		&p.ReferralBonusRateBps, &p.OracleMaxAgeSeconds,
		pq.Array(&p.SupportedAssets), &p.YieldAssetDenom,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no active ledger parameters found for config '%s'", configName)
		}
		return nil, fmt.Errorf("failed to scan active ledger parameters for config '%s': %w", configName, err)
	}
	log.Info().Str("config", configName).Msg("Loaded active ledger parameters")
	return p, nil
}
