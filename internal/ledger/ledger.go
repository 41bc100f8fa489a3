/*

The Ledger is the transactional core of the vault: flexible share pools, locked
positions, the yield reserve, conversion reconciliation, and the points/referral
ledger, all behind one serializing aggregate. Every public mutation is
all-or-nothing: inputs are validated completely before any state is touched.

*/

package ledger

import (
	"fmt"
	"sort"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/solstice-fi/svm/internal/auth"
	"github.com/solstice-fi/svm/internal/logger"
	"github.com/solstice-fi/svm/internal/oracle"
	"github.com/solstice-fi/svm/internal/types"
)

const (
	bpsDenom       = 10_000
	secondsPerYear = 365 * 24 * 60 * 60
	daySeconds     = 24 * 60 * 60
)

// lockMultipliers is the fixed duration -> points multiplier table.
var lockMultipliers = map[int]sdkmath.LegacyDec{
	1:  sdkmath.LegacyMustNewDecFromStr("1.5"),
	3:  sdkmath.LegacyNewDec(2),
	12: sdkmath.LegacyNewDec(3),
}

// Ledger holds all mutable vault state. A single mutex serializes mutations;
// aggregate reads take the shared side and observe the latest committed state.
type Ledger struct {
	mu     sync.RWMutex
	params types.LedgerParameters
	roles  *auth.Registry
	feed   oracle.PriceFeed
	logger zerolog.Logger

	// now is injectable for deterministic tests; defaults to time.Now.
	now func() time.Time

	pools        map[string]*types.AssetPool
	balances     map[string]map[string]*types.UserBalance // user -> asset
	locks        map[uint64]*types.LockedPosition
	locksByOwner map[string][]uint64
	nextLockID   uint64

	reserve     types.YieldReserveState
	conversions map[string]*types.ConversionRecord

	points             map[string]*types.PointsState
	referralByReferee  map[string]*types.ReferralRecord
	refereesByReferrer map[string][]string
	codeByAddress      map[string]string
	addressByCode      map[string]string

	// lastPrice caches the most recent fresh oracle quote per denom so that a
	// stale feed degrades valuation instead of failing it.
	lastPrice map[string]oracle.Quote
}

// Option customizes a Ledger at construction time.
type Option func(*Ledger)

// WithClock overrides the wall clock. Tests drive time through this.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New creates a Ledger for the configured parameter set. Pools for every
// supported asset exist from the start; everything else is created lazily.
func New(params types.LedgerParameters, roles *auth.Registry, feed oracle.PriceFeed, opts ...Option) (*Ledger, error) {
	if len(params.SupportedAssets) == 0 {
		return nil, fmt.Errorf("%w: no supported assets configured", ErrValidation)
	}
	if params.EarlyExitPayoutBps > bpsDenom {
		return nil, fmt.Errorf("%w: early exit payout %d bps exceeds 100%%", ErrValidation, params.EarlyExitPayoutBps)
	}
	if roles == nil {
		roles = auth.NewRegistry()
	}

	l := &Ledger{
		params:             params,
		roles:              roles,
		feed:               feed,
		logger:             logger.GetForComponent("ledger"),
		now:                time.Now,
		pools:              make(map[string]*types.AssetPool),
		balances:           make(map[string]map[string]*types.UserBalance),
		locks:              make(map[uint64]*types.LockedPosition),
		locksByOwner:       make(map[string][]uint64),
		nextLockID:         1,
		conversions:        make(map[string]*types.ConversionRecord),
		points:             make(map[string]*types.PointsState),
		referralByReferee:  make(map[string]*types.ReferralRecord),
		refereesByReferrer: make(map[string][]string),
		codeByAddress:      make(map[string]string),
		addressByCode:      make(map[string]string),
		lastPrice:          make(map[string]oracle.Quote),
	}
	for _, opt := range opts {
		opt(l)
	}

	start := l.now()
	for _, asset := range params.SupportedAssets {
		l.pools[asset] = &types.AssetPool{
			Asset:          asset,
			TotalPrincipal: sdkmath.ZeroInt(),
			TotalShares:    sdkmath.ZeroInt(),
			UpdatedAt:      start,
		}
	}
	l.reserve = types.YieldReserveState{
		BaseAPYBps:      params.BaseAPYBps,
		LastAccrualTime: start,
		ReserveBalance:  sdkmath.ZeroInt(),
		UpdatedAt:       start,
	}

	l.logger.Info().
		Strs("assets", params.SupportedAssets).
		Uint64("base_apy_bps", params.BaseAPYBps).
		Msg("Ledger initialized")
	return l, nil
}

// Params returns the parameter set the ledger was built with.
func (l *Ledger) Params() types.LedgerParameters {
	return l.params
}

// CanUpdatePrice reports whether the address may push oracle quotes.
func (l *Ledger) CanUpdatePrice(address string) bool {
	return l.roles.IsAuthorized(address, auth.RolePriceUpdater)
}

func (l *Ledger) pool(asset string) (*types.AssetPool, error) {
	p, ok := l.pools[asset]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported asset %q", ErrValidation, asset)
	}
	return p, nil
}

func (l *Ledger) balance(user, asset string) *types.UserBalance {
	byAsset, ok := l.balances[user]
	if !ok {
		byAsset = make(map[string]*types.UserBalance)
		l.balances[user] = byAsset
	}
	b, ok := byAsset[asset]
	if !ok {
		b = &types.UserBalance{
			User:                user,
			Asset:               asset,
			Shares:              sdkmath.ZeroInt(),
			CumulativeDeposited: sdkmath.ZeroInt(),
		}
		byAsset[asset] = b
	}
	return b
}

// Snapshot exports a deterministic copy of the full ledger state.
func (l *Ledger) Snapshot() types.LedgerSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	snap := types.LedgerSnapshot{
		Timestamp: l.now(),
		Reserve:   l.reserve,
		Codes:     make(map[string]string, len(l.addressByCode)),
	}
	for _, asset := range sortedKeys(l.pools) {
		snap.Pools = append(snap.Pools, *l.pools[asset])
	}
	for _, user := range sortedKeys(l.balances) {
		for _, asset := range sortedKeys(l.balances[user]) {
			snap.Balances = append(snap.Balances, *l.balances[user][asset])
		}
	}
	lockIDs := make([]uint64, 0, len(l.locks))
	for id := range l.locks {
		lockIDs = append(lockIDs, id)
	}
	sort.Slice(lockIDs, func(i, j int) bool { return lockIDs[i] < lockIDs[j] })
	for _, id := range lockIDs {
		snap.Locks = append(snap.Locks, *l.locks[id])
	}
	for _, asset := range sortedKeys(l.conversions) {
		snap.Conversions = append(snap.Conversions, *l.conversions[asset])
	}
	for _, user := range sortedKeys(l.points) {
		snap.Points = append(snap.Points, *l.points[user])
	}
	for _, referee := range sortedKeys(l.referralByReferee) {
		snap.Referrals = append(snap.Referrals, *l.referralByReferee[referee])
	}
	for addr, code := range l.codeByAddress {
		snap.Codes[addr] = code
	}
	return snap
}

func shareScale() sdkmath.Int {
	return types.ShareScale
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
