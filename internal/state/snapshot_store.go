// ./internal/state/snapshot_store.go
package state

import (
	"encoding/json"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/solstice-fi/svm/internal/types"
)

// SaveLedgerSnapshot saves a complete ledger snapshot to the database.
func SaveLedgerSnapshot(snapshot types.LedgerSnapshot) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	poolsJSON, err := json.Marshal(snapshot.Pools)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal pools: %w", err)
	}
	balancesJSON, err := json.Marshal(snapshot.Balances)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal balances: %w", err)
	}
	locksJSON, err := json.Marshal(snapshot.Locks)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal locks: %w", err)
	}
	conversionsJSON, err := json.Marshal(snapshot.Conversions)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal conversions: %w", err)
	}
	pointsJSON, err := json.Marshal(snapshot.Points)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal points: %w", err)
	}
	referralsJSON, err := json.Marshal(snapshot.Referrals)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal referrals: %w", err)
	}
	codesJSON, err := json.Marshal(snapshot.Codes)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal codes: %w", err)
	}

	query := `
		INSERT INTO ledger_snapshots (
			cycle_number, cycle_id, snapshot_timestamp,
			total_value, yield_paid, reserve_balance, base_apy_bps,
			pools, balances, locks, conversions, points, referrals, codes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING snapshot_id;
	`

	var snapshotID int64
	err = DB.QueryRow(
		query,
		snapshot.CycleNumber, snapshot.CycleID, snapshot.Timestamp,
		snapshot.TotalValue.String(), snapshot.YieldPaid.String(),
		snapshot.Reserve.ReserveBalance.String(), snapshot.Reserve.BaseAPYBps,
		poolsJSON, balancesJSON, locksJSON, conversionsJSON, pointsJSON, referralsJSON, codesJSON,
	).Scan(&snapshotID)

	if err != nil {
		return 0, fmt.Errorf("failed to save ledger snapshot: %w", err)
	}

	log.Info().
		Int64("snapshot_id", snapshotID).
		Int("cycle_number", snapshot.CycleNumber).
		Str("total_value", snapshot.TotalValue.String()).
		Msg("Ledger snapshot saved to database")

	return snapshotID, nil
}

// GetRecentSnapshots returns the most recent ledger snapshots, newest first.
func GetRecentSnapshots(limit int) ([]types.LedgerSnapshot, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT cycle_number, cycle_id, snapshot_timestamp,
		       total_value, yield_paid, reserve_balance, base_apy_bps,
		       pools, balances, locks, conversions, points, referrals, codes
		FROM ledger_snapshots
		ORDER BY snapshot_timestamp DESC
		LIMIT $1;`

	rows, err := DB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []types.LedgerSnapshot
	for rows.Next() {
		var snap types.LedgerSnapshot
		var totalValue, yieldPaid, reserveBalance string
		var poolsJSON, balancesJSON, locksJSON, conversionsJSON, pointsJSON, referralsJSON, codesJSON []byte
		if err := rows.Scan(
			&snap.CycleNumber, &snap.CycleID, &snap.Timestamp,
			&totalValue, &yieldPaid, &reserveBalance, &snap.Reserve.BaseAPYBps,
			&poolsJSON, &balancesJSON, &locksJSON, &conversionsJSON, &pointsJSON, &referralsJSON, &codesJSON,
		); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		if snap.TotalValue, err = sdkmath.LegacyNewDecFromStr(totalValue); err != nil {
			return nil, fmt.Errorf("failed to parse total value %q: %w", totalValue, err)
		}
		var ok bool
		if snap.YieldPaid, ok = sdkmath.NewIntFromString(yieldPaid); !ok {
			return nil, fmt.Errorf("failed to parse yield paid %q", yieldPaid)
		}
		if snap.Reserve.ReserveBalance, ok = sdkmath.NewIntFromString(reserveBalance); !ok {
			return nil, fmt.Errorf("failed to parse reserve balance %q", reserveBalance)
		}
		snap.Reserve.LastAccrualTime = snap.Timestamp
		snap.Reserve.UpdatedAt = snap.Timestamp
		if err := json.Unmarshal(poolsJSON, &snap.Pools); err != nil {
			return nil, fmt.Errorf("failed to unmarshal pools: %w", err)
		}
		if err := json.Unmarshal(balancesJSON, &snap.Balances); err != nil {
			return nil, fmt.Errorf("failed to unmarshal balances: %w", err)
		}
		if err := json.Unmarshal(locksJSON, &snap.Locks); err != nil {
			return nil, fmt.Errorf("failed to unmarshal locks: %w", err)
		}
		if err := json.Unmarshal(conversionsJSON, &snap.Conversions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal conversions: %w", err)
		}
		if err := json.Unmarshal(pointsJSON, &snap.Points); err != nil {
			return nil, fmt.Errorf("failed to unmarshal points: %w", err)
		}
		if err := json.Unmarshal(referralsJSON, &snap.Referrals); err != nil {
			return nil, fmt.Errorf("failed to unmarshal referrals: %w", err)
		}
		if err := json.Unmarshal(codesJSON, &snap.Codes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal codes: %w", err)
		}
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot rows: %w", err)
	}
	return snapshots, nil
}
