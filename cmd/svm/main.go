package main

import (
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/solstice-fi/svm/internal/auth"
	"github.com/solstice-fi/svm/internal/config"
	"github.com/solstice-fi/svm/internal/engine"
	"github.com/solstice-fi/svm/internal/ledger"
	"github.com/solstice-fi/svm/internal/logger"
	"github.com/solstice-fi/svm/internal/oracle"
	"github.com/solstice-fi/svm/internal/state"
	"github.com/solstice-fi/svm/internal/web"
)

const (
	defaultConfigName    = "default"
	defaultConfigVersion = 1
)

// main is the entry point for the SVM service.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("SVM Ledger Service Starting...")

	// Initialize Database Connection (parameter versioning, snapshots, audit)
	persist := os.Getenv("DB_HOST") != ""
	if persist {
		dbCfg := state.DBConfig{
			Host: os.Getenv("DB_HOST"), Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
			User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
			DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
		}
		if err := state.InitDB(dbCfg); err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize database")
		}
		defer state.CloseDB()
		if err := state.EnsureSchema(); err != nil {
			log.Fatal().Err(err).Msg("Failed to ensure database schema")
		}
	} else {
		log.Warn().Msg("DB_HOST not set. Running without persistence: no snapshots, no audit log.")
	}

	// Load Ledger Parameters
	params := config.DefaultLedgerParameters
	if persist {
		stored, err := state.LoadActiveLedgerParameters(defaultConfigName)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to load active ledger parameters, using defaults and saving.")
			defaults, loadErr := config.LoadLedgerParameters(config.ParametersFile)
			if loadErr != nil {
				log.Fatal().Err(loadErr).Msg("Failed to load default ledger parameters")
			}
			if _, err := state.SaveLedgerParameters(defaults, defaultConfigName, defaultConfigVersion, true); err != nil {
				log.Fatal().Err(err).Msg("Failed to save initial default ledger parameters.")
			}
			params = defaults
		} else {
			params = *stored
		}
	} else {
		loaded, err := config.LoadLedgerParameters(config.ParametersFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load ledger parameters")
		}
		params = loaded
	}
	if err := config.ValidateLedgerParameters(params); err != nil {
		log.Fatal().Err(err).Msg("Ledger parameters failed validation")
	}
	log.Info().Msg("Ledger parameters loaded successfully.")

	// --- 2. Role Registry ---
	roles := auth.NewRegistry()
	for _, addr := range config.OwnerAddresses {
		roles.Grant(addr, auth.RoleOwner)
	}
	for _, addr := range config.OperatorAddresses {
		roles.Grant(addr, auth.RoleOperator)
	}
	for _, addr := range config.PriceUpdaterAddresses {
		roles.Grant(addr, auth.RolePriceUpdater)
	}

	// --- 3. Ledger and Engine ---
	feed := oracle.NewManualFeed()

	ledgerInstance, err := ledger.New(params, roles, feed)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create ledger")
	}
	log.Info().Msg("Ledger created successfully")

	accrualEngine, err := engine.NewEngine(engine.Config{
		Ledger:  ledgerInstance,
		Persist: persist,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create accrual engine")
	}
	if err := accrualEngine.Start(config.AccrualInterval); err != nil {
		log.Fatal().Err(err).Msg("Failed to start accrual engine")
	}
	defer accrualEngine.Stop()
	log.Info().Str("cron", config.AccrualInterval).Msg("Accrual engine started")

	// --- 4. Web Server ---
	webServer := web.NewWebServer(config.WebPort, ledgerInstance, feed, persist)
	go func() {
		log.Info().Str("port", config.WebPort).Str("url", "http://localhost:"+config.WebPort).Msg("Starting SVM API server")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
		}
	}()

	// Block until asked to shut down so deferred cleanup runs.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	received := <-sig
	log.Info().Str("signal", received.String()).Msg("Shutting down")
}

// Helper to convert string to int with a default value
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}
