package engine

import "time"

// HistoryPoint is one daily market aggregate for an item at a station.
// Dates use the YYYY-MM-DD form throughout the engine.
type HistoryPoint struct {
	Date      string  `json:"date"`
	Volume    int64   `json:"volume"`
	AvgPrice  float64 `json:"avg_price"`
	LowPrice  float64 `json:"low_price"`
	HighPrice float64 `json:"high_price"`
}

// HistorySource supplies daily market aggregates with "tell me what you
// have" semantics: callers tolerate gaps and short series. Implementations
// must be safe for concurrent use; the engine never mutates returned slices.
type HistorySource interface {
	// History returns up to maxDays of the most recent aggregates for the
	// item at the station, sorted by date ascending. maxDays <= 0 means all.
	History(typeID int32, stationID int64, maxDays int) []HistoryPoint
}

// PriceModel selects which observed daily price the engine treats as
// achievable when estimating liquidity and simulating sales.
type PriceModel string

const (
	PriceLow  PriceModel = "LOW"
	PriceAvg  PriceModel = "AVG"
	PriceHigh PriceModel = "HIGH"
)

// Valid reports whether m is one of the closed set of price models.
func (m PriceModel) Valid() bool {
	switch m {
	case PriceLow, PriceAvg, PriceHigh:
		return true
	}
	return false
}

// SellModel selects how the simulator converts daily market volume into
// units sold from held inventory.
type SellModel string

// SellVolumeShare sells a fixed share of each day's traded volume.
const SellVolumeShare SellModel = "VOLUME_SHARE"

// Valid reports whether m is a known sell model.
func (m SellModel) Valid() bool {
	return m == SellVolumeShare
}

// AllocationModeBest is the greedy-by-efficiency allocation mode, currently
// the only one implemented. The Allocator interface exists so a solver-based
// mode can be added without touching the rest of the engine.
const AllocationModeBest = "best"

// FeeModel holds the market fee assumptions for a single call, expressed as
// decimal rates (0.036 = 3.6%). Treated as effective-immediately constants;
// the engine does not version or cache them.
type FeeModel struct {
	SalesTaxRate  float64 `json:"sales_tax_rate"`
	BrokerFeeRate float64 `json:"broker_fee_rate"`
	RelistFeeRate float64 `json:"relist_fee_rate"`
}

// SourceQuote is the buy side of an opportunity: the best ask (or a
// configured fixed buy price) at the source market.
type SourceQuote struct {
	TypeID       int32   `json:"type_id"`
	TypeName     string  `json:"type_name"`
	UnitVolumeM3 float64 `json:"unit_volume_m3"`
	BestAsk      float64 `json:"best_ask"`
}

// DestQuote is the sell side: the achievable bid at a destination station
// together with the liquidity-bounded sellable units over the window.
type DestQuote struct {
	TypeID           int32   `json:"type_id"`
	StationID        int64   `json:"station_id"`
	SellPrice        float64 `json:"sell_price"`
	MaxSellableUnits int64   `json:"max_sellable_units"`
}

// Opportunity is a candidate (item, destination) pair with known unit
// economics. UnitProfit may be negative; the builder filters those out
// before ranking but always computes the value.
type Opportunity struct {
	TypeID               int32   `json:"type_id"`
	TypeName             string  `json:"type_name"`
	DestinationStationID int64   `json:"destination_station_id"`
	UnitCost             float64 `json:"unit_cost"`
	UnitProfit           float64 `json:"unit_profit"`
	UnitVolumeM3         float64 `json:"unit_volume_m3"`
	MaxSellableUnits     int64   `json:"max_sellable_units"`
}

// Efficiency is profit per ISK spent, the greedy ranking metric.
func (o Opportunity) Efficiency() float64 {
	if o.UnitCost <= 0 {
		return 0
	}
	return o.UnitProfit / o.UnitCost
}

// PlanRequest is the immutable configuration for a single Plan call.
type PlanRequest struct {
	InvestmentISK                       float64           `json:"investment_isk"`
	PackageCapacityM3                   float64           `json:"package_capacity_m3"`
	MaxPackagesHint                     int               `json:"max_packages_hint"`
	PerDestinationMaxBudgetSharePerItem float64           `json:"per_destination_max_budget_share_per_item"`
	MaxPackageCollateralISK             float64           `json:"max_package_collateral_isk"`
	LiquidityWindowDays                 int               `json:"liquidity_window_days"`
	ShippingCostByStation               map[int64]float64 `json:"shipping_cost_by_station"`
	AllocationMode                      string            `json:"allocation_mode"`
}

// PlanItem is a single item line within a package.
type PlanItem struct {
	TypeID       int32   `json:"type_id"`
	TypeName     string  `json:"type_name"`
	Units        int64   `json:"units"`
	UnitCost     float64 `json:"unit_cost"`
	UnitProfit   float64 `json:"unit_profit"`
	UnitVolumeM3 float64 `json:"unit_volume_m3"`
	SpendISK     float64 `json:"spend_isk"`
	ProfitISK    float64 `json:"profit_isk"`
	VolumeM3     float64 `json:"volume_m3"`
}

// PackagePlan is one capacity- and collateral-bounded shipment to a single
// destination. Efficiency uses net profit so ROI reflects transport cost.
type PackagePlan struct {
	PackageIndex         int        `json:"package_index"`
	DestinationStationID int64      `json:"destination_station_id"`
	Items                []PlanItem `json:"items"`
	SpendISK             float64    `json:"spend_isk"`
	GrossProfitISK       float64    `json:"gross_profit_isk"`
	ShippingISK          float64    `json:"shipping_isk"`
	NetProfitISK         float64    `json:"net_profit_isk"`
	UsedCapacityM3       float64    `json:"used_capacity_m3"`
	Efficiency           float64    `json:"efficiency"`
}

// ItemExposure tracks how much of a destination's spend sits in one item.
type ItemExposure struct {
	SpendISK float64 `json:"spend_isk"`
	Units    int64   `json:"units"`
}

// PlanResult is the full output of a Plan call. Totals always equal the
// componentwise sums over Packages.
type PlanResult struct {
	Packages            []PackagePlan                    `json:"packages"`
	TotalSpendISK       float64                          `json:"total_spend_isk"`
	TotalGrossProfitISK float64                          `json:"total_gross_profit_isk"`
	TotalShippingISK    float64                          `json:"total_shipping_isk"`
	TotalNetProfitISK   float64                          `json:"total_net_profit_isk"`
	ItemExposureByDest  map[int64]map[int32]ItemExposure `json:"item_exposure_by_dest"`
	DestSpend           map[int64]float64                `json:"dest_spend"`
	Notes               []string                         `json:"notes"`
}

// Strategy is a long-lived, user-edited configuration consumed read-only
// by the harness and the sweep.
type Strategy struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Params      PlanRequest `json:"params"`
	IsActive    bool        `json:"is_active"`
}

// Run status values. A run is immutable once it reaches a terminal state.
const (
	RunStatusCompleted  = "COMPLETED"
	RunStatusIncomplete = "INCOMPLETE"
)

// DaySnapshot records cash, inventory and NAV at the end of one simulated day.
type DaySnapshot struct {
	Date             string  `json:"date"`
	CashIsk          float64 `json:"cash_isk"`
	InventoryMarkIsk float64 `json:"inventory_mark_isk"`
	InventoryCostIsk float64 `json:"inventory_cost_isk"`
	NavIsk           float64 `json:"nav_isk"`
}

// Position is one (item, destination) holding within a simulated run,
// reported worst-first by realized profit for review.
type Position struct {
	TypeID               int32   `json:"type_id"`
	DestinationStationID int64   `json:"destination_station_id"`
	PlannedUnits         int64   `json:"planned_units"`
	UnitsRemaining       int64   `json:"units_remaining"`
	UnitCostIsk          float64 `json:"unit_cost_isk"`
	RealizedProfitIsk    float64 `json:"realized_profit_isk"`
}

// RunSummary aggregates a single simulated run. RoiPercent is nil when the
// initial capital is zero (undefined ROI, not a divide-by-zero).
type RunSummary struct {
	TotalProfitIsk float64  `json:"total_profit_isk"`
	RoiPercent     *float64 `json:"roi_percent"`
	MaxDrawdownPct float64  `json:"max_drawdown_pct"`
	RelistFeesIsk  float64  `json:"relist_fees_isk"`
	FinalNavIsk    float64  `json:"final_nav_isk"`
	UnitsSold      int64    `json:"units_sold"`
	UnitsUnsold    int64    `json:"units_unsold"`
}

// StrategyRun is one train/test window's simulation, create-once.
type StrategyRun struct {
	ID                string        `json:"id"`
	StrategyID        int64         `json:"strategy_id"`
	StartDate         time.Time     `json:"start_date"`
	EndDate           time.Time     `json:"end_date"`
	InitialCapitalIsk float64       `json:"initial_capital_isk"`
	SellModel         SellModel     `json:"sell_model"`
	SellSharePct      float64       `json:"sell_share_pct"`
	PriceModel        PriceModel    `json:"price_model"`
	Status            string        `json:"status"`
	Days              []DaySnapshot `json:"days"`
	Positions         []Position    `json:"positions"`
	Summary           RunSummary    `json:"summary"`
}

// BatchAggregates summarizes the completed runs of a walk-forward batch.
// Percentile fields are nil when no completed run produced the metric.
type BatchAggregates struct {
	Runs                int      `json:"runs"`
	Completed           int      `json:"completed"`
	WinRate             float64  `json:"win_rate"`
	RoiMedian           *float64 `json:"roi_median"`
	RoiP10              *float64 `json:"roi_p10"`
	RoiP90              *float64 `json:"roi_p90"`
	MaxDrawdownWorst    float64  `json:"max_drawdown_worst"`
	ProfitMedianIsk     *float64 `json:"profit_median_isk"`
	ProfitP10Isk        *float64 `json:"profit_p10_isk"`
	ProfitP90Isk        *float64 `json:"profit_p90_isk"`
	RelistFeesMedianIsk *float64 `json:"relist_fees_median_isk"`
	RelistFeesP10Isk    *float64 `json:"relist_fees_p10_isk"`
	RelistFeesP90Isk    *float64 `json:"relist_fees_p90_isk"`
}

// BlacklistSuggestion flags an (item, destination) pair that lost money in
// multiple runs of a batch.
type BlacklistSuggestion struct {
	TypeID               int32   `json:"type_id"`
	DestinationStationID int64   `json:"destination_station_id"`
	LoserRuns            int     `json:"loser_runs"`
	TotalLossIsk         float64 `json:"total_loss_isk"`
}

// WalkForwardBatch is the robustness report for one strategy.
type WalkForwardBatch struct {
	ID                   string                `json:"id"`
	StrategyID           int64                 `json:"strategy_id"`
	Runs                 []StrategyRun         `json:"runs"`
	Aggregates           BatchAggregates       `json:"aggregates"`
	BlacklistSuggestions []BlacklistSuggestion `json:"blacklist_suggestions"`
}

// StrategyBatchRank is one strategy's batch within the all-strategies view.
type StrategyBatchRank struct {
	StrategyID   int64            `json:"strategy_id"`
	StrategyName string           `json:"strategy_name"`
	Batch        WalkForwardBatch `json:"batch"`
}

// GlobalBlacklistEntry unions per-strategy blacklist suggestions and names
// the strategies that hit the pair.
type GlobalBlacklistEntry struct {
	TypeID               int32    `json:"type_id"`
	DestinationStationID int64    `json:"destination_station_id"`
	LoserRuns            int      `json:"loser_runs"`
	TotalLossIsk         float64  `json:"total_loss_isk"`
	Strategies           []string `json:"strategies"`
}

// AllStrategiesBatch is the all-strategies walk-forward variant: batches
// ranked by median ROI plus a global blacklist.
type AllStrategiesBatch struct {
	Batches         []StrategyBatchRank    `json:"batches"`
	GlobalBlacklist []GlobalBlacklistEntry `json:"global_blacklist"`
}

// Scenario is one pricing/selling assumption pair within a sweep.
type Scenario struct {
	PriceModel   PriceModel `json:"price_model"`
	SellSharePct float64    `json:"sell_share_pct"`
}

// SweepResult ranks one strategy across all sweep scenarios. OverallScore
// is nil when fewer scenarios completed than the sweep's minimum.
type SweepResult struct {
	StrategyID     int64      `json:"strategy_id"`
	StrategyName   string     `json:"strategy_name"`
	OverallScore   *float64   `json:"overall_score"`
	ScenarioScores []*float64 `json:"scenario_scores"`
	Completed      int        `json:"completed"`
}

// LabSweepReport is the full sweep output, results sorted by score descending.
type LabSweepReport struct {
	Scenarios []Scenario    `json:"scenarios"`
	Results   []SweepResult `json:"results"`
}
