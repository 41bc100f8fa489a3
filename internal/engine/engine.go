/*

The engine is one trigger among many for the permissionless accrual tick. It
runs on a cron schedule: accrue yield, export a full ledger snapshot, persist
both for audit. Ledger correctness never depends on this cadence; a missed or
doubled cycle only changes when state got persisted.

*/

package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/solstice-fi/svm/internal/ledger"
	"github.com/solstice-fi/svm/internal/logger"
	"github.com/solstice-fi/svm/internal/state"
	"github.com/solstice-fi/svm/internal/types"
)

// Engine drives periodic accrual and snapshot persistence.
type Engine struct {
	logger     zerolog.Logger
	ledger     *ledger.Ledger
	cron       *cron.Cron
	cycleCount int
	persist    bool
}

// Config holds the configuration for creating a new Engine instance.
type Config struct {
	Ledger *ledger.Ledger
	// Persist controls whether cycles are written to the state store. Off in
	// tests and in store-less deployments.
	Persist bool
}

// NewEngine creates an Engine with dependency injection.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("ledger cannot be nil")
	}
	return &Engine{
		logger:  logger.GetForComponent("engine"),
		ledger:  cfg.Ledger,
		cron:    cron.New(cron.WithSeconds()),
		persist: cfg.Persist,
	}, nil
}

// Start registers the accrual cycle at the given cron spec and starts the
// scheduler.
func (e *Engine) Start(cronSpec string) error {
	if _, err := e.cron.AddFunc(cronSpec, func() { e.RunCycle() }); err != nil {
		return fmt.Errorf("register accrual cycle: %w", err)
	}
	e.cron.Start()
	e.logger.Info().Str("cron", cronSpec).Msg("Engine started")
	return nil
}

// Stop stops the scheduler gracefully.
func (e *Engine) Stop() {
	e.cron.Stop()
	e.logger.Info().Msg("Engine stopped")
}

// RunCycle executes one accrue-and-snapshot cycle. Also the manual trigger.
func (e *Engine) RunCycle() types.LedgerSnapshot {
	e.cycleCount++
	cycleID := uuid.New().String()
	cycleLogger := e.logger.With().Str("cycle_id", cycleID).Int("cycle", e.cycleCount).Logger()
	cycleLogger.Info().Msg("--- Starting accrual cycle ---")

	paid, err := e.ledger.AccrueYield()
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientReserve) {
			cycleLogger.Warn().Err(err).Msg("Accrual skipped: reserve cannot cover the pending window")
		} else {
			cycleLogger.Error().Err(err).Msg("Accrual failed")
		}
	}

	snapshot := e.ledger.Snapshot()
	snapshot.CycleNumber = e.cycleCount
	snapshot.CycleID = cycleID
	snapshot.YieldPaid = paid
	valuation := e.ledger.TotalPoolValue()
	snapshot.TotalValue = valuation.TotalValue

	if e.persist {
		if _, perr := state.SaveLedgerSnapshot(snapshot); perr != nil {
			cycleLogger.Error().Err(perr).Msg("Failed to persist cycle snapshot")
		}
		audit := types.AuditEvent{
			EventID:   cycleID,
			Timestamp: time.Now(),
			Operation: "accrue_yield",
			Actor:     "engine",
			Amount:    paid.String(),
			Success:   err == nil,
		}
		if err != nil {
			audit.Detail = err.Error()
		}
		if aerr := state.RecordAuditEvent(audit); aerr != nil {
			cycleLogger.Error().Err(aerr).Msg("Failed to record accrual audit event")
		}
	}

	cycleLogger.Info().
		Str("yield_paid", paid.String()).
		Str("total_value", valuation.TotalValue.String()).
		Bool("oracle_stale", valuation.OracleStale).
		Msg("--- Accrual cycle completed ---")
	return snapshot
}
