package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config carries everything the server reads from the environment.
type Config struct {
	Port        string
	DatabaseURL string

	// CommissionRate is the platform's cut of every escrow transaction,
	// a fraction in (0,1). Defaults to 0.15.
	CommissionRate float64

	// PlatformAccountID is the ledger account credited with platform fees.
	PlatformAccountID string

	JWTSecret string
}

// Load reads configuration from the environment, applying defaults where a
// variable is unset.
func Load() (*Config, error) {
	cfg := &Config{
		Port:              getenv("PORT", "8080"),
		PlatformAccountID: getenv("PLATFORM_ACCOUNT_ID", "platform"),
		JWTSecret:         getenv("JWT_SECRET", "supersecret"),
		CommissionRate:    0.15,
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s",
			os.Getenv("DB_USER"),
			os.Getenv("DB_PASSWORD"),
			os.Getenv("DB_HOST"),
			os.Getenv("DB_PORT"),
			os.Getenv("DB_NAME"),
		)
	}

	if raw := os.Getenv("ESCROW_COMMISSION_RATE"); raw != "" {
		rate, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ESCROW_COMMISSION_RATE %q: %w", raw, err)
		}
		if rate <= 0 || rate >= 1 {
			return nil, fmt.Errorf("ESCROW_COMMISSION_RATE must be in (0,1), got %v", rate)
		}
		cfg.CommissionRate = rate
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
