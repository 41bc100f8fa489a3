package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/solstice-fi/svm/internal/ledger"
	"github.com/solstice-fi/svm/internal/state"
	"github.com/solstice-fi/svm/internal/types"
	"github.com/solstice-fi/svm/internal/utils"
)

type depositRequest struct {
	User   string `json:"user"`
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

func (ws *WebServer) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeError(w, fmt.Errorf("%w: invalid request body", ledger.ErrValidation))
		return
	}
	amount, err := utils.ParseAmount(req.Amount)
	if err != nil {
		ws.writeError(w, fmt.Errorf("%w: %v", ledger.ErrValidation, err))
		return
	}

	shares, err := ws.ledger.Deposit(req.User, req.Asset, amount)
	ws.recordAudit("deposit", req.User, req.Asset, req.Amount, err)
	if err != nil {
		ws.writeError(w, err)
		return
	}
	ws.writeJSON(w, http.StatusOK, map[string]string{
		"user":   req.User,
		"asset":  req.Asset,
		"shares": shares.String(),
	})
}

type withdrawRequest struct {
	User   string `json:"user"`
	Asset  string `json:"asset"`
	Shares string `json:"shares"`
}

func (ws *WebServer) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeError(w, fmt.Errorf("%w: invalid request body", ledger.ErrValidation))
		return
	}
	shares, err := utils.ParseAmount(req.Shares)
	if err != nil {
		ws.writeError(w, fmt.Errorf("%w: %v", ledger.ErrValidation, err))
		return
	}

	amount, err := ws.ledger.Withdraw(req.User, req.Asset, shares)
	ws.recordAudit("withdraw", req.User, req.Asset, req.Shares, err)
	if err != nil {
		ws.writeError(w, err)
		return
	}
	ws.writeJSON(w, http.StatusOK, map[string]string{
		"user":   req.User,
		"asset":  req.Asset,
		"amount": amount.String(),
	})
}

func (ws *WebServer) handlePricePerShare(w http.ResponseWriter, r *http.Request) {
	asset := mux.Vars(r)["asset"]
	price, err := ws.ledger.PricePerShare(asset)
	if err != nil {
		ws.writeError(w, err)
		return
	}
	ws.writeJSON(w, http.StatusOK, map[string]string{
		"asset":           asset,
		"price_per_share": price.String(),
	})
}

func (ws *WebServer) handleUserValue(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["user"]
	asset := r.URL.Query().Get("asset")
	value, err := ws.ledger.UserValue(user, asset)
	if err != nil {
		ws.writeError(w, err)
		return
	}
	shares, deposited := ws.ledger.UserBalanceOf(user, asset)
	ws.writeJSON(w, http.StatusOK, map[string]string{
		"user":                 user,
		"asset":                asset,
		"value":                value.String(),
		"shares":               shares.String(),
		"cumulative_deposited": deposited.String(),
	})
}

type createLockRequest struct {
	User      string `json:"user"`
	Asset     string `json:"asset"`
	Principal string `json:"principal"`
	Months    int    `json:"months"`
}

func (ws *WebServer) handleCreateLock(w http.ResponseWriter, r *http.Request) {
	var req createLockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeError(w, fmt.Errorf("%w: invalid request body", ledger.ErrValidation))
		return
	}
	principal, err := utils.ParseAmount(req.Principal)
	if err != nil {
		ws.writeError(w, fmt.Errorf("%w: %v", ledger.ErrValidation, err))
		return
	}

	lock, err := ws.ledger.CreateLock(req.User, req.Asset, principal, req.Months)
	ws.recordAudit("create_lock", req.User, req.Asset, req.Principal, err)
	if err != nil {
		ws.writeError(w, err)
		return
	}
	ws.writeJSON(w, http.StatusCreated, lock)
}

func (ws *WebServer) handleListLocks(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		ws.writeError(w, fmt.Errorf("%w: owner query parameter is required", ledger.ErrValidation))
		return
	}
	ws.writeJSON(w, http.StatusOK, ws.ledger.LocksOf(owner))
}

func (ws *WebServer) handleWithdrawLock(w http.ResponseWriter, r *http.Request) {
	ws.handleLockExit(w, r, "withdraw_lock", ws.ledger.WithdrawLock)
}

func (ws *WebServer) handleEarlyWithdrawLock(w http.ResponseWriter, r *http.Request) {
	ws.handleLockExit(w, r, "early_withdraw_lock", ws.ledger.EarlyWithdrawLock)
}

func (ws *WebServer) handleLockExit(w http.ResponseWriter, r *http.Request, op string, exit func(string, uint64) (sdkmath.Int, error)) {
	caller := r.Header.Get(callerHeader)
	lockID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		ws.writeError(w, fmt.Errorf("%w: invalid lock id", ledger.ErrValidation))
		return
	}

	payout, err := exit(caller, lockID)
	ws.recordAudit(op, caller, "", strconv.FormatUint(lockID, 10), err)
	if err != nil {
		ws.writeError(w, err)
		return
	}
	ws.writeJSON(w, http.StatusOK, map[string]string{
		"lock_id": strconv.FormatUint(lockID, 10),
		"payout":  payout.String(),
	})
}

func (ws *WebServer) handleAccrue(w http.ResponseWriter, r *http.Request) {
	paid, err := ws.ledger.AccrueYield()
	ws.recordAudit("accrue_yield", r.Header.Get(callerHeader), "", paid.String(), err)
	if err != nil {
		ws.writeError(w, err)
		return
	}
	ws.writeJSON(w, http.StatusOK, map[string]string{"yield_paid": paid.String()})
}

func (ws *WebServer) handleReserve(w http.ResponseWriter, r *http.Request) {
	ws.writeJSON(w, http.StatusOK, ws.ledger.ReserveState())
}

type fundReserveRequest struct {
	Amount string `json:"amount"`
}

func (ws *WebServer) handleFundReserve(w http.ResponseWriter, r *http.Request) {
	caller := r.Header.Get(callerHeader)
	var req fundReserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeError(w, fmt.Errorf("%w: invalid request body", ledger.ErrValidation))
		return
	}
	amount, err := utils.ParseAmount(req.Amount)
	if err != nil {
		ws.writeError(w, fmt.Errorf("%w: %v", ledger.ErrValidation, err))
		return
	}

	err = ws.ledger.FundReserve(caller, amount)
	ws.recordAudit("fund_reserve", caller, "", req.Amount, err)
	if err != nil {
		ws.writeError(w, err)
		return
	}
	ws.writeJSON(w, http.StatusOK, ws.ledger.ReserveState())
}

type setAPYRequest struct {
	BaseAPYBps uint64 `json:"base_apy_bps"`
}

func (ws *WebServer) handleSetAPY(w http.ResponseWriter, r *http.Request) {
	caller := r.Header.Get(callerHeader)
	var req setAPYRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeError(w, fmt.Errorf("%w: invalid request body", ledger.ErrValidation))
		return
	}

	err := ws.ledger.SetBaseAPY(caller, req.BaseAPYBps)
	ws.recordAudit("set_base_apy", caller, "", strconv.FormatUint(req.BaseAPYBps, 10), err)
	if err != nil {
		ws.writeError(w, err)
		return
	}
	ws.writeJSON(w, http.StatusOK, ws.ledger.ReserveState())
}

type recordConversionRequest struct {
	Asset              string `json:"asset"`
	ObservedPrincipal  string `json:"observed_principal"`
	ObservedYieldAsset string `json:"observed_yield_asset"`
}

func (ws *WebServer) handleRecordConversion(w http.ResponseWriter, r *http.Request) {
	caller := r.Header.Get(callerHeader)
	var req recordConversionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeError(w, fmt.Errorf("%w: invalid request body", ledger.ErrValidation))
		return
	}
	principal, err := utils.ParseAmount(req.ObservedPrincipal)
	if err != nil {
		ws.writeError(w, fmt.Errorf("%w: %v", ledger.ErrValidation, err))
		return
	}
	yieldAsset, err := utils.ParseAmount(req.ObservedYieldAsset)
	if err != nil {
		ws.writeError(w, fmt.Errorf("%w: %v", ledger.ErrValidation, err))
		return
	}

	rec, err := ws.ledger.RecordConversion(caller, req.Asset, types.ExternalBalances{
		Principal:  principal,
		YieldAsset: yieldAsset,
	})
	ws.recordAudit("record_conversion", caller, req.Asset, req.ObservedPrincipal, err)
	if err != nil {
		ws.writeError(w, err)
		return
	}
	ws.writeJSON(w, http.StatusOK, rec)
}

func (ws *WebServer) handleTotalValue(w http.ResponseWriter, r *http.Request) {
	ws.writeJSON(w, http.StatusOK, ws.ledger.TotalPoolValue())
}

type pushPriceRequest struct {
	Denom string `json:"denom"`
	Price string `json:"price"`
}

func (ws *WebServer) handlePushPrice(w http.ResponseWriter, r *http.Request) {
	caller := r.Header.Get(callerHeader)
	if !ws.ledger.CanUpdatePrice(caller) {
		ws.writeError(w, fmt.Errorf("%w: %s lacks the PriceUpdater role", ledger.ErrUnauthorized, caller))
		return
	}
	var req pushPriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeError(w, fmt.Errorf("%w: invalid request body", ledger.ErrValidation))
		return
	}
	price, err := utils.ParsePrice(req.Price)
	if err != nil {
		ws.writeError(w, fmt.Errorf("%w: %v", ledger.ErrValidation, err))
		return
	}
	denom := req.Denom
	if denom == "" {
		denom = ws.ledger.Params().YieldAssetDenom
	}

	ws.feed.Push(denom, price, time.Now())
	ws.recordAudit("push_price", caller, denom, req.Price, nil)
	ws.writeJSON(w, http.StatusOK, map[string]string{"denom": denom, "price": price.String()})
}

type registerReferralRequest struct {
	Referrer string `json:"referrer"`
	Referee  string `json:"referee"`
	Code     string `json:"code,omitempty"`
}

func (ws *WebServer) handleRegisterReferral(w http.ResponseWriter, r *http.Request) {
	var req registerReferralRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeError(w, fmt.Errorf("%w: invalid request body", ledger.ErrValidation))
		return
	}

	// Registration by code resolves the referrer first.
	referrer := req.Referrer
	if referrer == "" && req.Code != "" {
		addr, err := ws.ledger.ResolveReferralCode(req.Code)
		if err != nil {
			ws.writeError(w, err)
			return
		}
		referrer = addr
	}

	err := ws.ledger.RegisterReferral(referrer, req.Referee)
	ws.recordAudit("register_referral", req.Referee, "", referrer, err)
	if err != nil {
		ws.writeError(w, err)
		return
	}
	ws.writeJSON(w, http.StatusCreated, map[string]string{
		"referrer": referrer,
		"referee":  req.Referee,
	})
}

type generateCodeRequest struct {
	Address string `json:"address"`
}

func (ws *WebServer) handleGenerateCode(w http.ResponseWriter, r *http.Request) {
	var req generateCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeError(w, fmt.Errorf("%w: invalid request body", ledger.ErrValidation))
		return
	}

	code, err := ws.ledger.GenerateReferralCode(req.Address)
	ws.recordAudit("generate_referral_code", req.Address, "", code, err)
	if err != nil {
		ws.writeError(w, err)
		return
	}
	ws.writeJSON(w, http.StatusOK, map[string]string{"address": req.Address, "code": code})
}

func (ws *WebServer) handleResolveCode(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	addr, err := ws.ledger.ResolveReferralCode(code)
	if err != nil {
		ws.writeError(w, err)
		return
	}
	ws.writeJSON(w, http.StatusOK, map[string]string{"code": code, "address": addr})
}

func (ws *WebServer) handleReferralStats(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	stats, err := ws.ledger.ReferralStats(address)
	if err != nil {
		ws.writeError(w, err)
		return
	}
	ws.writeJSON(w, http.StatusOK, stats)
}

func (ws *WebServer) handleRecentSnapshots(w http.ResponseWriter, r *http.Request) {
	snapshots, err := state.GetRecentSnapshots(queryLimit(r))
	if err != nil {
		ws.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	ws.writeJSON(w, http.StatusOK, snapshots)
}

func (ws *WebServer) handleRecentAuditEvents(w http.ResponseWriter, r *http.Request) {
	events, err := state.RecentAuditEvents(queryLimit(r))
	if err != nil {
		ws.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	ws.writeJSON(w, http.StatusOK, events)
}

func queryLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return 0 // store default
	}
	return limit
}

// recordAudit appends a best-effort audit row for a mutation attempt.
func (ws *WebServer) recordAudit(op, actor, asset, amount string, opErr error) {
	if !ws.audit {
		return
	}
	event := types.AuditEvent{
		EventID:   uuid.New().String(),
		Timestamp: time.Now(),
		Operation: op,
		Actor:     actor,
		Asset:     asset,
		Amount:    amount,
		Success:   opErr == nil,
	}
	if opErr != nil {
		event.Detail = opErr.Error()
	}
	if err := state.RecordAuditEvent(event); err != nil {
		webLogger.Error().Err(err).Str("operation", op).Msg("Failed to record audit event")
	}
}
