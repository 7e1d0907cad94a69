package engine

import (
	"math"
	"testing"
)

func TestBuildOpportunities_FeeMath(t *testing.T) {
	sources := []SourceQuote{
		{TypeID: 34, TypeName: "Tritanium", UnitVolumeM3: 0.01, BestAsk: 100},
	}
	dests := []DestQuote{
		{TypeID: 34, StationID: 61000001, SellPrice: 200, MaxSellableUnits: 500},
	}
	fees := FeeModel{SalesTaxRate: 0.03, BrokerFeeRate: 0.02}

	opps, notes := BuildOpportunities(sources, dests, fees)
	if len(opps) != 1 {
		t.Fatalf("opportunities = %d, want 1", len(opps))
	}
	if len(notes) != 0 {
		t.Errorf("unexpected notes: %v", notes)
	}

	o := opps[0]
	// 200 * (1 - 0.05) - 100 = 90.
	if math.Abs(o.UnitProfit-90) > 1e-9 {
		t.Errorf("UnitProfit = %v, want 90", o.UnitProfit)
	}
	if math.Abs(o.Efficiency()-0.9) > 1e-9 {
		t.Errorf("Efficiency = %v, want 0.9", o.Efficiency())
	}
	if o.MaxSellableUnits != 500 {
		t.Errorf("MaxSellableUnits = %d, want 500", o.MaxSellableUnits)
	}
}

func TestBuildOpportunities_Filters(t *testing.T) {
	sources := []SourceQuote{
		{TypeID: 34, TypeName: "Tritanium", BestAsk: 100},
		{TypeID: 35, TypeName: "Pyerite", BestAsk: 100},
		{TypeID: 36, TypeName: "Mexallon", BestAsk: 100},
	}
	dests := []DestQuote{
		// Profitable and liquid: kept.
		{TypeID: 34, StationID: 1, SellPrice: 150, MaxSellableUnits: 10},
		// Negative margin after fees: dropped with a note.
		{TypeID: 35, StationID: 1, SellPrice: 100, MaxSellableUnits: 10},
		// No liquidity: dropped with a note.
		{TypeID: 36, StationID: 1, SellPrice: 150, MaxSellableUnits: 0},
		// No source quote at all: silently irrelevant.
		{TypeID: 99, StationID: 1, SellPrice: 900, MaxSellableUnits: 10},
	}

	opps, notes := BuildOpportunities(sources, dests, FeeModel{SalesTaxRate: 0.05})
	if len(opps) != 1 {
		t.Fatalf("opportunities = %d, want 1 (got %+v)", len(opps), opps)
	}
	if opps[0].TypeID != 34 {
		t.Errorf("kept TypeID = %d, want 34", opps[0].TypeID)
	}
	if len(notes) != 2 {
		t.Errorf("notes = %v, want margin note and liquidity note", notes)
	}
}

func TestBuildOpportunities_DeterministicOrder(t *testing.T) {
	sources := []SourceQuote{
		{TypeID: 36, TypeName: "Mexallon", BestAsk: 10},
		{TypeID: 34, TypeName: "Tritanium", BestAsk: 10},
	}
	dests := []DestQuote{
		{TypeID: 36, StationID: 2, SellPrice: 50, MaxSellableUnits: 5},
		{TypeID: 34, StationID: 2, SellPrice: 50, MaxSellableUnits: 5},
		{TypeID: 36, StationID: 1, SellPrice: 50, MaxSellableUnits: 5},
		{TypeID: 34, StationID: 1, SellPrice: 50, MaxSellableUnits: 5},
	}

	opps, _ := BuildOpportunities(sources, dests, FeeModel{})
	if len(opps) != 4 {
		t.Fatalf("opportunities = %d, want 4", len(opps))
	}
	want := []struct {
		station int64
		typeID  int32
	}{{1, 34}, {1, 36}, {2, 34}, {2, 36}}
	for i, w := range want {
		if opps[i].DestinationStationID != w.station || opps[i].TypeID != w.typeID {
			t.Errorf("opps[%d] = station %d type %d, want station %d type %d",
				i, opps[i].DestinationStationID, opps[i].TypeID, w.station, w.typeID)
		}
	}
}

func TestBuildDestQuotes(t *testing.T) {
	base := date("2024-01-01")
	src := fakeHistory{}
	src.add(34, 61000001, series(base, 7, 100, 200, 150, 250)...)

	quotes := BuildDestQuotes(src, 61000001, []int32{34, 35}, 7, PriceAvg)
	if len(quotes) != 2 {
		t.Fatalf("quotes = %d, want 2", len(quotes))
	}
	if quotes[0].MaxSellableUnits != 700 {
		t.Errorf("liquid quote units = %d, want 700", quotes[0].MaxSellableUnits)
	}
	if math.Abs(quotes[0].SellPrice-200) > 1e-9 {
		t.Errorf("liquid quote price = %v, want 200", quotes[0].SellPrice)
	}
	// Item 35 has no history: zero quote, excluded downstream, not dropped here.
	if quotes[1].MaxSellableUnits != 0 {
		t.Errorf("dry quote units = %d, want 0", quotes[1].MaxSellableUnits)
	}
}
