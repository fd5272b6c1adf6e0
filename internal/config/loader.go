package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies DYNECO_* environment variable overrides and
// clamps the result. A missing file is not an error: defaults are used.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)
	cfg.Normalize()

	return &cfg, nil
}

// applyEnvOverrides reads well-known DYNECO_* environment variables and
// overwrites the corresponding Config fields when a variable is set.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Server.Port, "PORT")
	setStr(&cfg.Server.Port, "DYNECO_PORT")
	setStr(&cfg.Server.JWTSecret, "DYNECO_JWT_SECRET")
	setStr(&cfg.Server.AdminSecret, "DYNECO_ADMIN_SECRET")

	setStr(&cfg.Data.DatabasePath, "DYNECO_DATABASE_PATH")
	setInt(&cfg.Data.AutoSaveIntervalMinutes, "DYNECO_AUTOSAVE_INTERVAL_MINUTES")

	setStr(&cfg.Redis.Addr, "DYNECO_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "DYNECO_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "DYNECO_REDIS_DB")
	setStr(&cfg.Redis.Channel, "DYNECO_REDIS_CHANNEL")

	setStr(&cfg.Catalogue.Path, "DYNECO_CATALOGUE_PATH")

	setFloat64(&cfg.Economy.SellTaxRate, "DYNECO_SELL_TAX_RATE")
	setBool(&cfg.BuyMode.Enabled, "DYNECO_BUY_MODE_ENABLED")
	setBool(&cfg.MarketEvents.Enabled, "DYNECO_MARKET_EVENTS_ENABLED")
	setBool(&cfg.Logging.LogSales, "DYNECO_LOG_SALES")
}

func setStr(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
