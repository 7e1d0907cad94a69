package engine

import (
	"math"
	"sort"
	"time"
)

// SimParams configures a single day-stepped simulation.
type SimParams struct {
	StartDate         time.Time
	EndDate           time.Time
	SellModel         SellModel
	SellSharePct      float64
	PriceModel        PriceModel
	InitialCapitalIsk float64
	Fees              FeeModel
}

// SimulationOutcome is the raw result of one simulation: the daily NAV
// trail, per-position outcomes (worst first), the summary, and the run
// status. Used only by the walk-forward harness.
type SimulationOutcome struct {
	Days      []DaySnapshot
	Positions []Position
	Summary   RunSummary
	Status    string
}

// simPosition carries the mutable per-position state during a run.
type simPosition struct {
	typeID    int32
	stationID int64
	planned   int64
	remaining int64
	unitCost  float64
	realized  float64
	lastPrice float64
	series    []HistoryPoint
}

// Simulate advances the plan's packages day by day over [StartDate,
// EndDate]: each day it sells a share of that day's traded volume out of
// every open position at the model's reference price, charges relist fees
// on what stays listed, and records cash, inventory and NAV. Single
// threaded, purely computational, no suspension points.
func Simulate(packages []PackagePlan, history HistorySource, p SimParams) SimulationOutcome {
	positions := buildSimPositions(packages, history)

	totalSpend := 0.0
	totalShipping := 0.0
	for _, pkg := range packages {
		totalSpend += pkg.SpendISK
		totalShipping += pkg.ShippingISK
	}
	cash := p.InitialCapitalIsk - totalSpend - totalShipping

	var days []DaySnapshot
	var navSeries []float64
	var relistFees float64
	var unitsSold int64
	sawVolume := false

	for date := p.StartDate; !date.After(p.EndDate); date = date.AddDate(0, 0, 1) {
		dateStr := date.Format("2006-01-02")

		for i := range positions {
			pos := &positions[i]
			pt, ok := dayPoint(pos.series, dateStr)
			if !ok {
				continue
			}
			refPrice := referencePrice(pt, p.PriceModel)
			if refPrice > 0 {
				pos.lastPrice = refPrice
			}
			if pt.Volume > 0 {
				sawVolume = true
			}
			if pos.remaining <= 0 || refPrice <= 0 || pt.Volume <= 0 {
				continue
			}

			sellable := int64(math.Floor(float64(pt.Volume) * p.SellSharePct))
			units := pos.remaining
			if sellable < units {
				units = sellable
			}
			if units > 0 {
				cash += float64(units) * refPrice
				pos.realized += float64(units) * (refPrice - pos.unitCost)
				pos.remaining -= units
				unitsSold += units
			}

			// Whatever stays on the market gets re-listed at the day's
			// reference price and pays the relist fee.
			if pos.remaining > 0 && p.Fees.RelistFeeRate > 0 {
				fee := p.Fees.RelistFeeRate * refPrice * float64(pos.remaining)
				cash -= fee
				relistFees += fee
			}
		}

		mark := 0.0
		cost := 0.0
		for i := range positions {
			pos := &positions[i]
			if pos.remaining <= 0 {
				continue
			}
			price := pos.lastPrice
			if price <= 0 {
				// No market observation yet: carry at cost basis.
				price = pos.unitCost
			}
			mark += float64(pos.remaining) * price
			cost += float64(pos.remaining) * pos.unitCost
		}

		nav := cash + mark
		navSeries = append(navSeries, nav)
		days = append(days, DaySnapshot{
			Date:             dateStr,
			CashIsk:          roundIsk(cash),
			InventoryMarkIsk: roundIsk(mark),
			InventoryCostIsk: roundIsk(cost),
			NavIsk:           roundIsk(nav),
		})
	}

	out := SimulationOutcome{Days: days, Status: RunStatusCompleted}
	if len(positions) > 0 && !sawVolume {
		// The whole test window had no liquidity for any held item: nothing
		// could have been learned from this run.
		out.Status = RunStatusIncomplete
	}

	finalNav := p.InitialCapitalIsk
	if len(navSeries) > 0 {
		finalNav = navSeries[len(navSeries)-1]
	}

	var unitsUnsold int64
	for i := range positions {
		pos := &positions[i]
		unitsUnsold += pos.remaining
		out.Positions = append(out.Positions, Position{
			TypeID:               pos.typeID,
			DestinationStationID: pos.stationID,
			PlannedUnits:         pos.planned,
			UnitsRemaining:       pos.remaining,
			UnitCostIsk:          roundIsk(pos.unitCost),
			RealizedProfitIsk:    roundIsk(pos.realized),
		})
	}
	// Worst first for review; ties broken by typeID then station for
	// reproducible output.
	sort.Slice(out.Positions, func(i, j int) bool {
		if out.Positions[i].RealizedProfitIsk != out.Positions[j].RealizedProfitIsk {
			return out.Positions[i].RealizedProfitIsk < out.Positions[j].RealizedProfitIsk
		}
		if out.Positions[i].TypeID != out.Positions[j].TypeID {
			return out.Positions[i].TypeID < out.Positions[j].TypeID
		}
		return out.Positions[i].DestinationStationID < out.Positions[j].DestinationStationID
	})

	out.Summary = RunSummary{
		TotalProfitIsk: roundIsk(finalNav - p.InitialCapitalIsk),
		MaxDrawdownPct: maxDrawdownPct(navSeries),
		RelistFeesIsk:  roundIsk(relistFees),
		FinalNavIsk:    roundIsk(finalNav),
		UnitsSold:      unitsSold,
		UnitsUnsold:    unitsUnsold,
	}
	if p.InitialCapitalIsk != 0 {
		roi := (finalNav - p.InitialCapitalIsk) / p.InitialCapitalIsk * 100
		out.Summary.RoiPercent = &roi
	}
	return out
}

// buildSimPositions groups package items into per-(item, destination)
// positions with a weighted-average unit cost, preloading each position's
// full history series once so day stepping stays cheap.
func buildSimPositions(packages []PackagePlan, history HistorySource) []simPosition {
	type posKey struct {
		typeID    int32
		stationID int64
	}
	agg := make(map[posKey]*simPosition)
	var order []posKey
	for _, pkg := range packages {
		for _, it := range pkg.Items {
			key := posKey{it.TypeID, pkg.DestinationStationID}
			pos, ok := agg[key]
			if !ok {
				pos = &simPosition{typeID: it.TypeID, stationID: pkg.DestinationStationID}
				agg[key] = pos
				order = append(order, key)
			}
			// Weighted-average cost across packages.
			totalCost := pos.unitCost*float64(pos.planned) + it.UnitCost*float64(it.Units)
			pos.planned += it.Units
			pos.remaining += it.Units
			if pos.planned > 0 {
				pos.unitCost = totalCost / float64(pos.planned)
			}
		}
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].typeID != order[j].typeID {
			return order[i].typeID < order[j].typeID
		}
		return order[i].stationID < order[j].stationID
	})

	positions := make([]simPosition, 0, len(order))
	for _, key := range order {
		pos := agg[key]
		pos.series = history.History(pos.typeID, pos.stationID, 0)
		positions = append(positions, *pos)
	}
	return positions
}

func referencePrice(pt HistoryPoint, model PriceModel) float64 {
	switch model {
	case PriceLow:
		return pt.LowPrice
	case PriceHigh:
		return pt.HighPrice
	default:
		return pt.AvgPrice
	}
}
