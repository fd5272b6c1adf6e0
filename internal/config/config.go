// Package config defines the configuration surface of the market and the
// clamping rules applied to it.
package config

import "math"

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by DYNECO_* environment variables.
type Config struct {
	Economy      EconomyConfig      `toml:"economy"`
	Seasonal     SeasonalConfig     `toml:"seasonal"`
	Contracts    ContractsConfig    `toml:"contracts"`
	Diversity    DiversityConfig    `toml:"diversity"`
	BuyMode      BuyModeConfig      `toml:"buyMode"`
	MarketEvents MarketEventsConfig `toml:"marketEvents"`
	Reputation   ReputationConfig   `toml:"reputation"`
	Auction      AuctionConfig      `toml:"auction"`
	Players      PlayersConfig      `toml:"players"`
	Data         DataConfig         `toml:"data"`
	Logging      LoggingConfig      `toml:"logging"`
	Server       ServerConfig       `toml:"server"`
	Redis        RedisConfig        `toml:"redis"`
	Catalogue    CatalogueConfig    `toml:"catalogue"`
}

// EconomyConfig holds the price model constants.
type EconomyConfig struct {
	MinPriceMultiplier      float64 `toml:"minPriceMultiplier"`
	MaxPriceMultiplier      float64 `toml:"maxPriceMultiplier"`
	PriceDropPerStack       float64 `toml:"priceDropPerStack"`
	PriceRecoveryPerHour    float64 `toml:"priceRecoveryPerHour"`
	RecoveryIntervalMinutes int     `toml:"recoveryIntervalMinutes"`
	SellTaxRate             float64 `toml:"sellTaxRate"`
	SellCooldownSeconds     int     `toml:"sellCooldownSeconds"`
	MaxSellAmount           int     `toml:"maxSellAmount"`
}

// SeasonalConfig controls the hot category rotation.
type SeasonalConfig struct {
	Enabled               bool    `toml:"enabled"`
	ChangeIntervalMinutes int     `toml:"changeIntervalMinutes"`
	HotMultiplier         float64 `toml:"hotMultiplier"`
}

// ContractsConfig controls the contract board. BonusMultiplier is an
// increment: 0.4 pays 1.4x.
type ContractsConfig struct {
	Enabled              bool    `toml:"enabled"`
	MaxActive            int     `toml:"maxActive"`
	SpawnIntervalMinutes int     `toml:"spawnIntervalMinutes"`
	BonusMultiplier      float64 `toml:"bonusMultiplier"`
	DurationMinutes      int     `toml:"durationMinutes"`
	AmountMin            int     `toml:"amountMin"`
	AmountMax            int     `toml:"amountMax"`
}

// DiversityConfig controls the multi-category sell bonus. BonusMultiplier
// is an increment: 0.1 pays 1.1x.
type DiversityConfig struct {
	Enabled         bool    `toml:"enabled"`
	MinCategories   int     `toml:"minCategories"`
	WindowMinutes   int     `toml:"windowMinutes"`
	BonusMultiplier float64 `toml:"bonusMultiplier"`
}

// BuyModeConfig controls buying goods from the market.
type BuyModeConfig struct {
	Enabled          bool    `toml:"enabled"`
	SpreadMultiplier float64 `toml:"spreadMultiplier"`
	TreasuryCut      float64 `toml:"treasuryCut"`
}

// MarketEventsConfig controls random market shocks and their factors.
type MarketEventsConfig struct {
	Enabled            bool    `toml:"enabled"`
	MinIntervalMinutes int     `toml:"minIntervalMinutes"`
	MaxIntervalMinutes int     `toml:"maxIntervalMinutes"`
	DurationMinutes    int     `toml:"durationMinutes"`
	Boom               float64 `toml:"boom"`
	Shortage           float64 `toml:"shortage"`
	Crash              float64 `toml:"crash"`
	Panic              float64 `toml:"panic"`
}

// ReputationConfig defines the tier thresholds and their perks.
type ReputationConfig struct {
	MerchantThreshold   float64 `toml:"merchantThreshold"`
	TycoonThreshold     float64 `toml:"tycoonThreshold"`
	MerchantTaxDiscount float64 `toml:"merchantTaxDiscount"`
	TycoonTaxDiscount   float64 `toml:"tycoonTaxDiscount"`
	MerchantMaxSell     int     `toml:"merchantMaxSell"`
	TycoonMaxSell       int     `toml:"tycoonMaxSell"`
}

// AuctionConfig controls the player auction board.
type AuctionConfig struct {
	DurationMinutes      int     `toml:"durationMinutes"`
	PlatformCut          float64 `toml:"platformCut"`
	SweepIntervalMinutes int     `toml:"sweepIntervalMinutes"`
	MaxListingsPerPlayer int     `toml:"maxListingsPerPlayer"`
	PageSize             int     `toml:"pageSize"`
}

// PlayersConfig holds defaults for newly seen player accounts.
type PlayersConfig struct {
	StartingBalance float64 `toml:"startingBalance"`
	Capacity        int     `toml:"capacity"`
}

// DataConfig controls persistence.
type DataConfig struct {
	AutoSaveIntervalMinutes int    `toml:"autoSaveIntervalMinutes"`
	DatabasePath            string `toml:"databasePath"`
}

// LoggingConfig toggles per-transaction log lines.
type LoggingConfig struct {
	LogSales  bool `toml:"logSales"`
	LogBuys   bool `toml:"logBuys"`
	LogEvents bool `toml:"logEvents"`
}

// ServerConfig holds the HTTP surface parameters.
type ServerConfig struct {
	Port        string `toml:"port"`
	JWTSecret   string `toml:"jwtSecret"`
	AdminSecret string `toml:"adminSecret"`
}

// RedisConfig holds the optional announcement publisher connection. An empty
// Addr disables Redis.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Channel  string `toml:"channel"`
}

// CatalogueConfig locates the catalogue definition file.
type CatalogueConfig struct {
	Path string `toml:"path"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Economy: EconomyConfig{
			MinPriceMultiplier:      0.2,
			MaxPriceMultiplier:      1.0,
			PriceDropPerStack:       0.02,
			PriceRecoveryPerHour:    0.05,
			RecoveryIntervalMinutes: 3,
			SellTaxRate:             0.05,
			SellCooldownSeconds:     3,
			MaxSellAmount:           2304,
		},
		Seasonal: SeasonalConfig{
			Enabled:               true,
			ChangeIntervalMinutes: 1440,
			HotMultiplier:         1.5,
		},
		Contracts: ContractsConfig{
			Enabled:              true,
			MaxActive:            3,
			SpawnIntervalMinutes: 60,
			BonusMultiplier:      0.4,
			DurationMinutes:      180,
			AmountMin:            200,
			AmountMax:            800,
		},
		Diversity: DiversityConfig{
			Enabled:         true,
			MinCategories:   3,
			WindowMinutes:   30,
			BonusMultiplier: 0.1,
		},
		BuyMode: BuyModeConfig{
			Enabled:          true,
			SpreadMultiplier: 1.3,
			TreasuryCut:      0.10,
		},
		MarketEvents: MarketEventsConfig{
			Enabled:            true,
			MinIntervalMinutes: 20,
			MaxIntervalMinutes: 60,
			DurationMinutes:    30,
			Boom:               2.0,
			Shortage:           1.5,
			Crash:              0.4,
			Panic:              0.2,
		},
		Reputation: ReputationConfig{
			MerchantThreshold:   10_000,
			TycoonThreshold:     50_000,
			MerchantTaxDiscount: 0.01,
			TycoonTaxDiscount:   0.02,
			MerchantMaxSell:     4608,
			TycoonMaxSell:       9216,
		},
		Auction: AuctionConfig{
			DurationMinutes:      1440,
			PlatformCut:          0,
			SweepIntervalMinutes: 1,
			MaxListingsPerPlayer: 10,
			PageSize:             45,
		},
		Players: PlayersConfig{
			StartingBalance: 0,
			Capacity:        2304,
		},
		Data: DataConfig{
			AutoSaveIntervalMinutes: 5,
			DatabasePath:            "dynamic_economy.db",
		},
		Logging: LoggingConfig{
			LogEvents: true,
		},
		Server: ServerConfig{
			Port:      "8080",
			JWTSecret: "dynamic-economy-secret",
		},
		Redis: RedisConfig{
			Channel: "dyneco:announcements",
		},
		Catalogue: CatalogueConfig{
			Path: "catalogue.toml",
		},
	}
}

// Normalize clamps every value into a sane range. Out-of-range values are
// never rejected: admin tooling relies on forgiving bounds.
func (c *Config) Normalize() {
	e := &c.Economy
	e.MinPriceMultiplier = clamp(e.MinPriceMultiplier, 0.01, 10.0)
	e.MaxPriceMultiplier = clamp(e.MaxPriceMultiplier, e.MinPriceMultiplier, 10.0)
	e.PriceDropPerStack = math.Max(0, e.PriceDropPerStack)
	e.PriceRecoveryPerHour = math.Max(0, e.PriceRecoveryPerHour)
	e.RecoveryIntervalMinutes = atLeast(e.RecoveryIntervalMinutes, 1)
	e.SellTaxRate = clamp(e.SellTaxRate, 0, 0.99)
	e.SellCooldownSeconds = atLeast(e.SellCooldownSeconds, 0)
	e.MaxSellAmount = atLeast(e.MaxSellAmount, 1)

	c.Seasonal.ChangeIntervalMinutes = atLeast(c.Seasonal.ChangeIntervalMinutes, 1)
	c.Seasonal.HotMultiplier = math.Max(1.0, c.Seasonal.HotMultiplier)

	k := &c.Contracts
	k.MaxActive = atLeast(k.MaxActive, 0)
	k.SpawnIntervalMinutes = atLeast(k.SpawnIntervalMinutes, 1)
	k.BonusMultiplier = math.Max(0, k.BonusMultiplier)
	k.DurationMinutes = atLeast(k.DurationMinutes, 1)
	k.AmountMin = atLeast(k.AmountMin, 1)
	if k.AmountMax < k.AmountMin {
		k.AmountMax = k.AmountMin
	}

	d := &c.Diversity
	d.MinCategories = atLeast(d.MinCategories, 1)
	d.WindowMinutes = atLeast(d.WindowMinutes, 1)
	d.BonusMultiplier = math.Max(0, d.BonusMultiplier)

	c.BuyMode.SpreadMultiplier = math.Max(1.0, c.BuyMode.SpreadMultiplier)
	c.BuyMode.TreasuryCut = clamp(c.BuyMode.TreasuryCut, 0, 1)

	m := &c.MarketEvents
	m.MinIntervalMinutes = atLeast(m.MinIntervalMinutes, 1)
	if m.MaxIntervalMinutes < m.MinIntervalMinutes {
		m.MaxIntervalMinutes = m.MinIntervalMinutes
	}
	m.DurationMinutes = atLeast(m.DurationMinutes, 1)

	r := &c.Reputation
	r.MerchantThreshold = math.Max(0, r.MerchantThreshold)
	if r.TycoonThreshold < r.MerchantThreshold {
		r.TycoonThreshold = r.MerchantThreshold
	}
	r.MerchantTaxDiscount = clamp(r.MerchantTaxDiscount, 0, 1)
	r.TycoonTaxDiscount = clamp(r.TycoonTaxDiscount, 0, 1)
	r.MerchantMaxSell = atLeast(r.MerchantMaxSell, e.MaxSellAmount)
	r.TycoonMaxSell = atLeast(r.TycoonMaxSell, r.MerchantMaxSell)

	a := &c.Auction
	a.DurationMinutes = atLeast(a.DurationMinutes, 1)
	a.PlatformCut = clamp(a.PlatformCut, 0, 1)
	a.SweepIntervalMinutes = atLeast(a.SweepIntervalMinutes, 1)
	a.MaxListingsPerPlayer = atLeast(a.MaxListingsPerPlayer, 1)
	a.PageSize = atLeast(a.PageSize, 1)

	c.Players.StartingBalance = math.Max(0, c.Players.StartingBalance)
	c.Players.Capacity = atLeast(c.Players.Capacity, 1)
	c.Data.AutoSaveIntervalMinutes = atLeast(c.Data.AutoSaveIntervalMinutes, 1)
}

// ClampMultiplier bounds an admin-supplied multiplier to [0.01, 10.0].
func ClampMultiplier(m float64) float64 {
	return clamp(m, 0.01, 10.0)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func atLeast(v, lo int) int {
	if v < lo {
		return lo
	}
	return v
}
