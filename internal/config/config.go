// Package config loads the application configuration from a YAML file with
// sane defaults for every key, so a bare binary still runs.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"eve-hauler/internal/engine"
	"eve-hauler/internal/logger"

	"github.com/spf13/viper"
)

// Config is the root configuration.
type Config struct {
	Log      logger.Config `mapstructure:"log"`
	DB       Database      `mapstructure:"db"`
	Cache    Cache         `mapstructure:"cache"`
	Fees     Fees          `mapstructure:"fees"`
	Planner  Planner       `mapstructure:"planner"`
	Harness  Harness       `mapstructure:"harness"`
	Universe Universe      `mapstructure:"universe"`
}

// Database points at the SQLite file.
type Database struct {
	Path string `mapstructure:"path"`
}

// Cache controls the market data read cache.
type Cache struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// Fees holds the market fee rates as fractions (0.05 = 5%).
type Fees struct {
	SalesTaxRate  float64 `mapstructure:"sales_tax_rate"`
	BrokerFeeRate float64 `mapstructure:"broker_fee_rate"`
	RelistFeeRate float64 `mapstructure:"relist_fee_rate"`
}

// Planner carries the default plan request; CLI flags can override parts of it.
// Shipping maps destination station ID (as a string key) to the flat cost of
// one package.
type Planner struct {
	InvestmentISK         float64            `mapstructure:"investment_isk"`
	PackageCapacityM3     float64            `mapstructure:"package_capacity_m3"`
	MaxPackagesHint       int                `mapstructure:"max_packages_hint"`
	MaxBudgetSharePerItem float64            `mapstructure:"max_budget_share_per_item"`
	MaxCollateralISK      float64            `mapstructure:"max_collateral_isk"`
	LiquidityWindowDays   int                `mapstructure:"liquidity_window_days"`
	AllocationMode        string             `mapstructure:"allocation_mode"`
	Shipping              map[string]float64 `mapstructure:"shipping"`
}

// Harness carries the walk-forward defaults shared by backtests and sweeps.
type Harness struct {
	TrainWindowDays   int     `mapstructure:"train_window_days"`
	TestWindowDays    int     `mapstructure:"test_window_days"`
	StepDays          int     `mapstructure:"step_days"`
	MaxRuns           int     `mapstructure:"max_runs"`
	SellModel         string  `mapstructure:"sell_model"`
	SellSharePct      float64 `mapstructure:"sell_share_pct"`
	PriceModel        string  `mapstructure:"price_model"`
	InitialCapitalISK float64 `mapstructure:"initial_capital_isk"`
	LoserRunThreshold int     `mapstructure:"loser_run_threshold"`
	Concurrency       int     `mapstructure:"concurrency"`
}

// Universe names the source and destination markets.
type Universe struct {
	SourceStationID       int64   `mapstructure:"source_station_id"`
	DestinationStationIDs []int64 `mapstructure:"destination_station_ids"`
}

// Load reads the config file at path, or the defaults when path is empty and
// no hauler.yaml exists in the working directory.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("hauler")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			// Missing file is fine, defaults apply. Anything else is real.
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.output", "console")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 14)

	v.SetDefault("db.path", "")
	v.SetDefault("cache.ttl", time.Hour)

	v.SetDefault("fees.sales_tax_rate", 0.036)
	v.SetDefault("fees.broker_fee_rate", 0.015)
	v.SetDefault("fees.relist_fee_rate", 0.003)

	v.SetDefault("planner.investment_isk", 1_000_000_000)
	v.SetDefault("planner.package_capacity_m3", 12_000)
	v.SetDefault("planner.max_packages_hint", 4)
	v.SetDefault("planner.max_budget_share_per_item", 0.25)
	v.SetDefault("planner.max_collateral_isk", 2_000_000_000)
	v.SetDefault("planner.liquidity_window_days", 14)
	v.SetDefault("planner.allocation_mode", engine.AllocationModeBest)

	v.SetDefault("harness.train_window_days", 28)
	v.SetDefault("harness.test_window_days", 14)
	v.SetDefault("harness.step_days", 14)
	v.SetDefault("harness.max_runs", 12)
	v.SetDefault("harness.sell_model", string(engine.SellVolumeShare))
	v.SetDefault("harness.sell_share_pct", 0.1)
	v.SetDefault("harness.price_model", string(engine.PriceAvg))
	v.SetDefault("harness.initial_capital_isk", 1_000_000_000)
	v.SetDefault("harness.loser_run_threshold", 2)
	v.SetDefault("harness.concurrency", 0)
}

// DBPath returns the configured database path, empty meaning "use default".
func (c *Config) DBPath() string {
	return c.DB.Path
}

// FeeModel converts the fee config into the engine's fee model.
func (c *Config) FeeModel() engine.FeeModel {
	return engine.FeeModel{
		SalesTaxRate:  c.Fees.SalesTaxRate,
		BrokerFeeRate: c.Fees.BrokerFeeRate,
		RelistFeeRate: c.Fees.RelistFeeRate,
	}
}

// ShippingCosts parses the planner shipping table into station IDs.
func (c *Config) ShippingCosts() (map[int64]float64, error) {
	out := make(map[int64]float64, len(c.Planner.Shipping))
	for key, cost := range c.Planner.Shipping {
		id, err := strconv.ParseInt(strings.TrimSpace(key), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("shipping station %q: %w", key, err)
		}
		out[id] = cost
	}
	return out, nil
}

// PlanRequest builds the default plan request from config.
func (c *Config) PlanRequest() (engine.PlanRequest, error) {
	shipping, err := c.ShippingCosts()
	if err != nil {
		return engine.PlanRequest{}, err
	}
	return engine.PlanRequest{
		InvestmentISK:                       c.Planner.InvestmentISK,
		PackageCapacityM3:                   c.Planner.PackageCapacityM3,
		MaxPackagesHint:                     c.Planner.MaxPackagesHint,
		PerDestinationMaxBudgetSharePerItem: c.Planner.MaxBudgetSharePerItem,
		MaxPackageCollateralISK:             c.Planner.MaxCollateralISK,
		LiquidityWindowDays:                 c.Planner.LiquidityWindowDays,
		ShippingCostByStation:               shipping,
		AllocationMode:                      c.Planner.AllocationMode,
	}, nil
}

// HarnessParams builds the walk-forward defaults from config. Start and end
// dates come from CLI flags, not the file.
func (c *Config) HarnessParams() engine.WalkForwardParams {
	return engine.WalkForwardParams{
		TrainWindowDays:   c.Harness.TrainWindowDays,
		TestWindowDays:    c.Harness.TestWindowDays,
		StepDays:          c.Harness.StepDays,
		MaxRuns:           c.Harness.MaxRuns,
		SellModel:         engine.SellModel(c.Harness.SellModel),
		SellSharePct:      c.Harness.SellSharePct,
		PriceModel:        engine.PriceModel(c.Harness.PriceModel),
		InitialCapitalIsk: c.Harness.InitialCapitalISK,
		Fees:              c.FeeModel(),
		LoserRunThreshold: c.Harness.LoserRunThreshold,
		Concurrency:       c.Harness.Concurrency,
	}
}

// MarketUniverse builds the universe skeleton; items are filled from the
// item catalog in the database.
func (c *Config) MarketUniverse() engine.MarketUniverse {
	return engine.MarketUniverse{
		SourceStationID:       c.Universe.SourceStationID,
		DestinationStationIDs: c.Universe.DestinationStationIDs,
	}
}
