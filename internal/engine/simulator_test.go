package engine

import (
	"math"
	"testing"
)

func simPackages() []PackagePlan {
	return []PackagePlan{{
		PackageIndex:         0,
		DestinationStationID: 61000001,
		SpendISK:             1000,
		ShippingISK:          50,
		Items: []PlanItem{{
			TypeID: 34, TypeName: "Tritanium", Units: 10, UnitCost: 100, UnitVolumeM3: 2,
		}},
	}}
}

func TestSimulate_SellsDailyShare(t *testing.T) {
	base := date("2024-01-01")
	hist := fakeHistory{}
	hist.add(34, 61000001, series(base, 3, 10, 150, 140, 160)...)

	out := Simulate(simPackages(), hist, SimParams{
		StartDate:         base,
		EndDate:           base.AddDate(0, 0, 2),
		SellModel:         SellVolumeShare,
		SellSharePct:      0.5,
		PriceModel:        PriceAvg,
		InitialCapitalIsk: 2000,
	})

	if out.Status != RunStatusCompleted {
		t.Fatalf("Status = %q, want %q", out.Status, RunStatusCompleted)
	}
	if len(out.Days) != 3 {
		t.Fatalf("days = %d, want 3", len(out.Days))
	}

	// Day 1: floor(10*0.5)=5 units sold at 150. Cash 950 + 750.
	d := out.Days[0]
	if math.Abs(d.CashIsk-1700) > 0.01 {
		t.Errorf("day1 cash = %v, want 1700", d.CashIsk)
	}
	if math.Abs(d.InventoryMarkIsk-750) > 0.01 {
		t.Errorf("day1 mark = %v, want 750", d.InventoryMarkIsk)
	}
	if math.Abs(d.InventoryCostIsk-500) > 0.01 {
		t.Errorf("day1 cost = %v, want 500", d.InventoryCostIsk)
	}
	if math.Abs(d.NavIsk-2450) > 0.01 {
		t.Errorf("day1 nav = %v, want 2450", d.NavIsk)
	}

	// Day 2 clears the rest; day 3 is flat.
	if math.Abs(out.Days[1].CashIsk-2450) > 0.01 {
		t.Errorf("day2 cash = %v, want 2450", out.Days[1].CashIsk)
	}
	if out.Days[1].InventoryMarkIsk != 0 {
		t.Errorf("day2 mark = %v, want 0", out.Days[1].InventoryMarkIsk)
	}
	if math.Abs(out.Days[2].NavIsk-2450) > 0.01 {
		t.Errorf("day3 nav = %v, want 2450", out.Days[2].NavIsk)
	}

	s := out.Summary
	if math.Abs(s.TotalProfitIsk-450) > 0.01 {
		t.Errorf("TotalProfitIsk = %v, want 450", s.TotalProfitIsk)
	}
	if s.RoiPercent == nil || math.Abs(*s.RoiPercent-22.5) > 1e-9 {
		t.Errorf("RoiPercent = %v, want 22.5", s.RoiPercent)
	}
	if s.MaxDrawdownPct != 0 {
		t.Errorf("MaxDrawdownPct = %v, want 0", s.MaxDrawdownPct)
	}
	if s.UnitsSold != 10 || s.UnitsUnsold != 0 {
		t.Errorf("units sold/unsold = %d/%d, want 10/0", s.UnitsSold, s.UnitsUnsold)
	}
	if math.Abs(s.FinalNavIsk-2450) > 0.01 {
		t.Errorf("FinalNavIsk = %v, want 2450", s.FinalNavIsk)
	}

	if len(out.Positions) != 1 {
		t.Fatalf("positions = %d, want 1", len(out.Positions))
	}
	pos := out.Positions[0]
	if pos.PlannedUnits != 10 || pos.UnitsRemaining != 0 {
		t.Errorf("position planned/remaining = %d/%d, want 10/0", pos.PlannedUnits, pos.UnitsRemaining)
	}
	if math.Abs(pos.RealizedProfitIsk-500) > 0.01 {
		t.Errorf("RealizedProfitIsk = %v, want 500 (10 units at +50)", pos.RealizedProfitIsk)
	}
}

func TestSimulate_RelistFees(t *testing.T) {
	base := date("2024-01-01")
	hist := fakeHistory{}
	hist.add(34, 61000001, series(base, 2, 10, 150, 140, 160)...)

	out := Simulate(simPackages(), hist, SimParams{
		StartDate:         base,
		EndDate:           base.AddDate(0, 0, 1),
		SellModel:         SellVolumeShare,
		SellSharePct:      0.5,
		PriceModel:        PriceAvg,
		InitialCapitalIsk: 2000,
		Fees:              FeeModel{RelistFeeRate: 0.01},
	})

	// Day 1: 5 units left listed at 150, fee 0.01*150*5 = 7.5. Day 2 sells
	// out before the relist step, so no further fee.
	if math.Abs(out.Summary.RelistFeesIsk-7.5) > 0.01 {
		t.Errorf("RelistFeesIsk = %v, want 7.5", out.Summary.RelistFeesIsk)
	}
	if math.Abs(out.Summary.FinalNavIsk-2442.5) > 0.01 {
		t.Errorf("FinalNavIsk = %v, want 2442.5", out.Summary.FinalNavIsk)
	}
	if math.Abs(out.Summary.TotalProfitIsk-442.5) > 0.01 {
		t.Errorf("TotalProfitIsk = %v, want 442.5", out.Summary.TotalProfitIsk)
	}
}

func TestSimulate_PriceModelLow(t *testing.T) {
	base := date("2024-01-01")
	hist := fakeHistory{}
	hist.add(34, 61000001, day(base, 0, 100, 150, 90, 200))

	out := Simulate(simPackages(), hist, SimParams{
		StartDate:         base,
		EndDate:           base,
		SellModel:         SellVolumeShare,
		SellSharePct:      1.0,
		PriceModel:        PriceLow,
		InitialCapitalIsk: 2000,
	})

	// All 10 units sell at the day low of 90: a 10 ISK loss per unit.
	if math.Abs(out.Positions[0].RealizedProfitIsk-(-100)) > 0.01 {
		t.Errorf("RealizedProfitIsk = %v, want -100", out.Positions[0].RealizedProfitIsk)
	}
}

func TestSimulate_ZeroCapitalNilRoi(t *testing.T) {
	base := date("2024-01-01")
	hist := fakeHistory{}
	hist.add(34, 61000001, series(base, 2, 100, 150, 140, 160)...)

	out := Simulate(simPackages(), hist, SimParams{
		StartDate:         base,
		EndDate:           base.AddDate(0, 0, 1),
		SellModel:         SellVolumeShare,
		SellSharePct:      1.0,
		PriceModel:        PriceAvg,
		InitialCapitalIsk: 0,
	})
	if out.Summary.RoiPercent != nil {
		t.Errorf("RoiPercent = %v, want nil for zero capital", *out.Summary.RoiPercent)
	}
}

func TestSimulate_NoVolumeIsIncomplete(t *testing.T) {
	base := date("2024-01-01")
	hist := fakeHistory{}
	hist.add(34, 61000001, series(base, 3, 0, 150, 140, 160)...)

	out := Simulate(simPackages(), hist, SimParams{
		StartDate:         base,
		EndDate:           base.AddDate(0, 0, 2),
		SellModel:         SellVolumeShare,
		SellSharePct:      0.5,
		PriceModel:        PriceAvg,
		InitialCapitalIsk: 2000,
	})

	if out.Status != RunStatusIncomplete {
		t.Errorf("Status = %q, want %q", out.Status, RunStatusIncomplete)
	}
	if out.Summary.UnitsSold != 0 {
		t.Errorf("UnitsSold = %d, want 0", out.Summary.UnitsSold)
	}
	if out.Summary.UnitsUnsold != 10 {
		t.Errorf("UnitsUnsold = %d, want 10", out.Summary.UnitsUnsold)
	}
	// Prices were observed even without trades, so inventory marks at 150.
	if math.Abs(out.Days[0].InventoryMarkIsk-1500) > 0.01 {
		t.Errorf("day1 mark = %v, want 1500", out.Days[0].InventoryMarkIsk)
	}
}

func TestSimulate_NoHistoryMarksAtCost(t *testing.T) {
	base := date("2024-01-01")
	out := Simulate(simPackages(), fakeHistory{}, SimParams{
		StartDate:         base,
		EndDate:           base.AddDate(0, 0, 1),
		SellModel:         SellVolumeShare,
		SellSharePct:      0.5,
		PriceModel:        PriceAvg,
		InitialCapitalIsk: 2000,
	})

	if out.Status != RunStatusIncomplete {
		t.Errorf("Status = %q, want %q", out.Status, RunStatusIncomplete)
	}
	if math.Abs(out.Days[0].InventoryMarkIsk-1000) > 0.01 {
		t.Errorf("mark = %v, want cost basis 1000", out.Days[0].InventoryMarkIsk)
	}
	// Cash never moves, NAV stays at capital minus shipping.
	if math.Abs(out.Days[1].NavIsk-1950) > 0.01 {
		t.Errorf("nav = %v, want 1950", out.Days[1].NavIsk)
	}
}

func TestSimulate_MergesPositionsAcrossPackages(t *testing.T) {
	base := date("2024-01-01")
	packages := []PackagePlan{
		{
			DestinationStationID: 61000001,
			SpendISK:             1000, ShippingISK: 0,
			Items: []PlanItem{{TypeID: 34, Units: 10, UnitCost: 100}},
		},
		{
			DestinationStationID: 61000001,
			SpendISK:             600, ShippingISK: 0,
			Items: []PlanItem{{TypeID: 34, Units: 5, UnitCost: 120}},
		},
	}
	hist := fakeHistory{}
	hist.add(34, 61000001, day(base, 0, 1000, 200, 190, 210))

	out := Simulate(packages, hist, SimParams{
		StartDate:         base,
		EndDate:           base,
		SellModel:         SellVolumeShare,
		SellSharePct:      1.0,
		PriceModel:        PriceAvg,
		InitialCapitalIsk: 2000,
	})

	if len(out.Positions) != 1 {
		t.Fatalf("positions = %d, want 1 merged position", len(out.Positions))
	}
	pos := out.Positions[0]
	if pos.PlannedUnits != 15 {
		t.Errorf("PlannedUnits = %d, want 15", pos.PlannedUnits)
	}
	// Weighted average cost: (10*100 + 5*120) / 15 = 106.67.
	if math.Abs(pos.UnitCostIsk-106.67) > 0.01 {
		t.Errorf("UnitCostIsk = %v, want 106.67", pos.UnitCostIsk)
	}
	// 15 units at 200 against that basis: 15 * (200 - 106.666...) = 1400.
	if math.Abs(pos.RealizedProfitIsk-1400) > 0.01 {
		t.Errorf("RealizedProfitIsk = %v, want 1400", pos.RealizedProfitIsk)
	}
}

func TestSimulate_PositionsWorstFirst(t *testing.T) {
	base := date("2024-01-01")
	packages := []PackagePlan{{
		DestinationStationID: 61000001,
		SpendISK:             2000, ShippingISK: 0,
		Items: []PlanItem{
			{TypeID: 34, Units: 10, UnitCost: 100},
			{TypeID: 35, Units: 10, UnitCost: 100},
		},
	}}
	hist := fakeHistory{}
	hist.add(34, 61000001, day(base, 0, 100, 150, 140, 160))
	hist.add(35, 61000001, day(base, 0, 100, 80, 70, 90))

	out := Simulate(packages, hist, SimParams{
		StartDate:         base,
		EndDate:           base,
		SellModel:         SellVolumeShare,
		SellSharePct:      1.0,
		PriceModel:        PriceAvg,
		InitialCapitalIsk: 5000,
	})

	if len(out.Positions) != 2 {
		t.Fatalf("positions = %d, want 2", len(out.Positions))
	}
	if out.Positions[0].TypeID != 35 {
		t.Errorf("worst position first: got typeID %d, want 35 (the losing item)", out.Positions[0].TypeID)
	}
	if out.Positions[0].RealizedProfitIsk >= out.Positions[1].RealizedProfitIsk {
		t.Error("positions not sorted by realized profit ascending")
	}
}

func TestSimulate_DrawdownFromPriceDecay(t *testing.T) {
	base := date("2024-01-01")
	hist := fakeHistory{}
	// Price collapses after day 1 while nothing trades, then a final day of
	// volume at the depressed price.
	hist.add(34, 61000001,
		day(base, 0, 0, 150, 150, 150),
		day(base, 1, 0, 75, 75, 75),
		day(base, 2, 100, 75, 75, 75),
	)

	out := Simulate(simPackages(), hist, SimParams{
		StartDate:         base,
		EndDate:           base.AddDate(0, 0, 2),
		SellModel:         SellVolumeShare,
		SellSharePct:      1.0,
		PriceModel:        PriceAvg,
		InitialCapitalIsk: 2000,
	})

	// Day 1 NAV: 950 cash + 10*150 = 2450. Day 2: 950 + 750 = 1700, a
	// 30.6% drop from peak. Day 3 realizes at 75: 950 + 750 cash, mark 0.
	if out.Summary.MaxDrawdownPct < 30.5 || out.Summary.MaxDrawdownPct > 30.7 {
		t.Errorf("MaxDrawdownPct = %v, want ~30.61", out.Summary.MaxDrawdownPct)
	}
	if out.Status != RunStatusCompleted {
		t.Errorf("Status = %q, want %q", out.Status, RunStatusCompleted)
	}
}
