package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/solstice-fi/svm/internal/ledger"
	"github.com/solstice-fi/svm/internal/logger"
	"github.com/solstice-fi/svm/internal/oracle"
	"github.com/solstice-fi/svm/internal/state"
)

var webLogger = logger.GetForComponent("web_server")

// callerHeader carries the authenticated caller identity. Authentication
// itself is an upstream concern (gateway, session service); the ledger only
// consumes the resolved address.
const callerHeader = "X-Caller-Address"

// WebServer exposes the public ledger API over HTTP.
type WebServer struct {
	router *mux.Router
	port   string
	ledger *ledger.Ledger
	feed   *oracle.ManualFeed
	audit  bool
}

// NewWebServer creates a new web server instance. audit controls whether
// mutations are recorded to the audit_events table.
func NewWebServer(port string, l *ledger.Ledger, feed *oracle.ManualFeed, audit bool) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router: mux.NewRouter(),
		port:   port,
		ledger: l,
		feed:   feed,
		audit:  audit,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")

	// Flexible pools
	api.HandleFunc("/deposit", ws.handleDeposit).Methods("POST")
	api.HandleFunc("/withdraw", ws.handleWithdraw).Methods("POST")
	api.HandleFunc("/pools/{asset}/price-per-share", ws.handlePricePerShare).Methods("GET")
	api.HandleFunc("/users/{user}/value", ws.handleUserValue).Methods("GET")

	// Locked positions
	api.HandleFunc("/locks", ws.handleCreateLock).Methods("POST")
	api.HandleFunc("/locks", ws.handleListLocks).Methods("GET")
	api.HandleFunc("/locks/{id}/withdraw", ws.handleWithdrawLock).Methods("POST")
	api.HandleFunc("/locks/{id}/early-withdraw", ws.handleEarlyWithdrawLock).Methods("POST")

	// Yield reserve
	api.HandleFunc("/accrue", ws.handleAccrue).Methods("POST")
	api.HandleFunc("/reserve", ws.handleReserve).Methods("GET")
	api.HandleFunc("/reserve/fund", ws.handleFundReserve).Methods("POST")
	api.HandleFunc("/apy", ws.handleSetAPY).Methods("POST")

	// Conversion & valuation
	api.HandleFunc("/conversions", ws.handleRecordConversion).Methods("POST")
	api.HandleFunc("/value", ws.handleTotalValue).Methods("GET")
	api.HandleFunc("/oracle/price", ws.handlePushPrice).Methods("POST")

	// History (requires the state store)
	api.HandleFunc("/snapshots", ws.handleRecentSnapshots).Methods("GET")
	api.HandleFunc("/audit", ws.handleRecentAuditEvents).Methods("GET")

	// Points & referrals
	api.HandleFunc("/referrals", ws.handleRegisterReferral).Methods("POST")
	api.HandleFunc("/referrals/code", ws.handleGenerateCode).Methods("POST")
	api.HandleFunc("/referrals/resolve/{code}", ws.handleResolveCode).Methods("GET")
	api.HandleFunc("/referrals/{address}/stats", ws.handleReferralStats).Methods("GET")

	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now(),
	}
	if state.DB != nil {
		if err := state.TestDBConnection(); err != nil {
			health["status"] = "degraded"
			health["database"] = err.Error()
		} else {
			health["database"] = "ok"
		}
	}
	ws.writeJSON(w, http.StatusOK, health)
}

// corsMiddleware adds CORS headers for the dashboard frontend.
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+callerHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs every request with latency.
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		webLogger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("latency", time.Since(start)).
			Msg("Request handled")
	})
}

func (ws *WebServer) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError maps ledger error kinds to HTTP statuses so clients can
// distinguish retryable conditions from permanent ones.
func (ws *WebServer) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ledger.ErrValidation),
		errors.Is(err, ledger.ErrSelfReferral),
		errors.Is(err, ledger.ErrDuplicateReferral):
		status = http.StatusBadRequest
	case errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, ledger.ErrInsufficientReserve):
		status = http.StatusConflict
	case errors.Is(err, ledger.ErrInvalidState):
		status = http.StatusConflict
	case errors.Is(err, ledger.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, ledger.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrCollisionExhausted):
		status = http.StatusServiceUnavailable
	}
	ws.writeJSON(w, status, map[string]string{"error": err.Error()})
}
