package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Economy.SellTaxRate != 0.05 || cfg.Economy.MaxSellAmount != 2304 {
		t.Fatalf("unexpected economy defaults: %+v", cfg.Economy)
	}
	if cfg.Contracts.AmountMin != 200 || cfg.Contracts.AmountMax != 800 {
		t.Fatalf("unexpected contract defaults: %+v", cfg.Contracts)
	}
}

func TestLoadDecodesFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[economy]
sellTaxRate = 0.1
priceDropPerStack = 0.05

[contracts]
amountMin = 50
amountMax = 10
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DYNECO_PORT", "9191")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Economy.SellTaxRate != 0.1 || cfg.Economy.PriceDropPerStack != 0.05 {
		t.Fatalf("file values not applied: %+v", cfg.Economy)
	}
	if cfg.Server.Port != "9191" {
		t.Fatalf("expected env port override, got %q", cfg.Server.Port)
	}
	if cfg.Contracts.AmountMax != 50 {
		t.Fatalf("expected amountMax raised to amountMin, got %d", cfg.Contracts.AmountMax)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[economy\nbroken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestNormalizeClampsInsteadOfRejecting(t *testing.T) {
	cfg := Defaults()
	cfg.Economy.MinPriceMultiplier = -3
	cfg.Economy.MaxPriceMultiplier = 50
	cfg.Economy.SellTaxRate = 2
	cfg.MarketEvents.MaxIntervalMinutes = 1
	cfg.Normalize()

	if cfg.Economy.MinPriceMultiplier != 0.01 {
		t.Fatalf("min multiplier = %v", cfg.Economy.MinPriceMultiplier)
	}
	if cfg.Economy.MaxPriceMultiplier != 10 {
		t.Fatalf("max multiplier = %v", cfg.Economy.MaxPriceMultiplier)
	}
	if cfg.Economy.SellTaxRate != 0.99 {
		t.Fatalf("tax = %v", cfg.Economy.SellTaxRate)
	}
	if cfg.MarketEvents.MaxIntervalMinutes != cfg.MarketEvents.MinIntervalMinutes {
		t.Fatalf("max interval not raised: %+v", cfg.MarketEvents)
	}
}

func TestClampMultiplier(t *testing.T) {
	if got := ClampMultiplier(0); got != 0.01 {
		t.Fatalf("ClampMultiplier(0) = %v", got)
	}
	if got := ClampMultiplier(25); got != 10 {
		t.Fatalf("ClampMultiplier(25) = %v", got)
	}
	if got := ClampMultiplier(1.5); got != 1.5 {
		t.Fatalf("ClampMultiplier(1.5) = %v", got)
	}
}
