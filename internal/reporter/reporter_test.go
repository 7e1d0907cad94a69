package reporter

import (
	"bytes"
	"testing"
	"time"

	"eve-hauler/internal/engine"

	"github.com/stretchr/testify/assert"
)

func TestFormatISK(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.00"},
		{999.994, "999.99"},
		{1_000, "1.00k"},
		{12_345, "12.35k"},
		{1_500_000, "1.50m"},
		{2_345_678_900, "2.35b"},
		{-1_500_000, "-1.50m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatISK(tt.in), "FormatISK(%v)", tt.in)
	}
}

func TestWritePlan(t *testing.T) {
	result := &engine.PlanResult{
		Packages: []engine.PackagePlan{{
			PackageIndex:         0,
			DestinationStationID: 61000001,
			Items: []engine.PlanItem{{
				TypeID: 34, TypeName: "Tritanium", Units: 50,
				UnitCost: 10, UnitProfit: 5, SpendISK: 500, ProfitISK: 250,
			}},
			SpendISK:       500,
			GrossProfitISK: 250,
			ShippingISK:    100,
			NetProfitISK:   150,
			Efficiency:     0.3,
			UsedCapacityM3: 100,
		}},
		TotalSpendISK:       500,
		TotalGrossProfitISK: 250,
		TotalShippingISK:    100,
		TotalNetProfitISK:   150,
		Notes:               []string{"destination 61000001: liquidity cap reached for Tritanium at 50 unit(s)"},
	}

	var buf bytes.Buffer
	WritePlan(&buf, result)
	out := buf.String()

	assert.Contains(t, out, "61000001")
	assert.Contains(t, out, "Tritanium")
	assert.Contains(t, out, "500.00")
	assert.Contains(t, out, "note: destination 61000001")
}

func TestWriteBatch(t *testing.T) {
	roi := 49.0
	batch := &engine.WalkForwardBatch{
		ID: "batch-1",
		Runs: []engine.StrategyRun{{
			StartDate: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2024, 1, 22, 0, 0, 0, 0, time.UTC),
			Status:    engine.RunStatusCompleted,
			Summary: engine.RunSummary{
				TotalProfitIsk: 9800,
				RoiPercent:     &roi,
				UnitsSold:      80,
				UnitsUnsold:    20,
			},
		}},
		Aggregates: engine.BatchAggregates{Runs: 1, Completed: 1, WinRate: 1, RoiMedian: &roi},
		BlacklistSuggestions: []engine.BlacklistSuggestion{
			{TypeID: 34, DestinationStationID: 61000001, LoserRuns: 3, TotalLossIsk: 4000},
		},
	}

	var buf bytes.Buffer
	WriteBatch(&buf, batch)
	out := buf.String()

	assert.Contains(t, out, "2024-01-15")
	assert.Contains(t, out, "COMPLETED")
	assert.Contains(t, out, "49.00%")
	assert.Contains(t, out, "batch batch-1: 1/1 runs completed")
	assert.Contains(t, out, "4.00k")
}

func TestWriteBatchNilMedian(t *testing.T) {
	batch := &engine.WalkForwardBatch{
		ID:         "batch-2",
		Aggregates: engine.BatchAggregates{Runs: 2},
	}

	var buf bytes.Buffer
	WriteBatch(&buf, batch)
	assert.Contains(t, buf.String(), "roi median -")
}

func TestWriteSweep(t *testing.T) {
	overall := 46.5
	s1, s2 := 49.0, 44.0
	report := &engine.LabSweepReport{
		Scenarios: []engine.Scenario{
			{PriceModel: engine.PriceAvg, SellSharePct: 0.1},
			{PriceModel: engine.PriceLow, SellSharePct: 0.1},
		},
		Results: []engine.SweepResult{{
			StrategyName:   "alpha",
			Completed:      2,
			OverallScore:   &overall,
			ScenarioScores: []*float64{&s1, &s2},
		}, {
			StrategyName:   "beta",
			Completed:      0,
			ScenarioScores: []*float64{nil, nil},
		}},
	}

	var buf bytes.Buffer
	WriteSweep(&buf, report)
	out := buf.String()

	assert.Contains(t, out, "AVG/10%")
	assert.Contains(t, out, "LOW/10%")
	assert.Contains(t, out, "alpha")
	assert.Contains(t, out, "46.50")
	assert.Contains(t, out, "beta")
}
