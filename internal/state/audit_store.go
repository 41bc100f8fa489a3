// ./internal/state/audit_store.go
package state

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/solstice-fi/svm/internal/types"
)

// RecordAuditEvent appends one mutation event to the audit trail. Audit
// failures are reported but must never veto the ledger mutation they trail.
func RecordAuditEvent(event types.AuditEvent) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	query := `
		INSERT INTO audit_events (
			event_id, event_timestamp, operation, actor, asset, amount, detail, success
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`

	_, err := DB.Exec(query,
		event.EventID, event.Timestamp, event.Operation, event.Actor,
		event.Asset, event.Amount, event.Detail, event.Success,
	)
	if err != nil {
		return fmt.Errorf("failed to record audit event: %w", err)
	}

	log.Debug().
		Str("event_id", event.EventID).
		Str("operation", event.Operation).
		Str("actor", event.Actor).
		Bool("success", event.Success).
		Msg("Audit event recorded")
	return nil
}

// RecentAuditEvents returns the newest audit events, most recent first.
func RecentAuditEvents(limit int) ([]types.AuditEvent, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT event_id, event_timestamp, operation, actor, asset, amount, detail, success
		FROM audit_events
		ORDER BY event_timestamp DESC
		LIMIT $1;`

	rows, err := DB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	var events []types.AuditEvent
	for rows.Next() {
		var ev types.AuditEvent
		if err := rows.Scan(&ev.EventID, &ev.Timestamp, &ev.Operation, &ev.Actor,
			&ev.Asset, &ev.Amount, &ev.Detail, &ev.Success); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit events: %w", err)
	}
	return events, nil
}
