package config

import (
	"errors"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment
// variables. These are populated at startup by LoadConfig.
var (
	// WebPort is the port for the JSON API server.
	WebPort string

	// OwnerAddresses hold the Owner role (rate changes, grants).
	OwnerAddresses []string
	// OperatorAddresses hold the Operator role (reserve funding, conversion recording).
	OperatorAddresses []string
	// PriceUpdaterAddresses may push oracle prices.
	PriceUpdaterAddresses []string

	// AccrualInterval is the cron spec for the engine's accrual/snapshot cycle.
	AccrualInterval string

	// ParametersFile optionally overrides the default ledger parameters (YAML).
	ParametersFile string
)

// LoadConfig loads configuration from environment variables and sets the
// global config vars. Role address lists are required; a ledger with no owner
// cannot be operated.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	WebPort = getEnvOr("WEB_PORT", "8080")

	OwnerAddresses, err = getEnvAsList("SVM_OWNER_ADDRESSES")
	if err != nil {
		return err
	}
	OperatorAddresses = getEnvAsOptionalList("SVM_OPERATOR_ADDRESSES")
	PriceUpdaterAddresses = getEnvAsOptionalList("SVM_PRICE_UPDATER_ADDRESSES")

	AccrualInterval = getEnvOr("SVM_ACCRUAL_CRON", "0 */10 * * * *")
	ParametersFile = os.Getenv("SVM_PARAMETERS_FILE")

	log.Debug().
		Int("owners", len(OwnerAddresses)).
		Int("operators", len(OperatorAddresses)).
		Str("accrual_cron", AccrualInterval).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

func getEnvOr(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

// getEnvAsList retrieves a required comma-separated environment variable.
func getEnvAsList(key string) ([]string, error) {
	value, err := getEnv(key)
	if err != nil {
		return nil, err
	}
	list := splitList(value)
	if len(list) == 0 {
		return nil, errors.New("environment variable " + key + " must contain at least one address")
	}
	return list, nil
}

func getEnvAsOptionalList(key string) []string {
	return splitList(os.Getenv(key))
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
