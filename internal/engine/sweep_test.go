package engine

import (
	"context"
	"math"
	"testing"
)

func TestSweepParams_Validate(t *testing.T) {
	valid := SweepParams{
		Harness:       harnessParams(),
		PriceModels:   []PriceModel{PriceAvg},
		SellSharePcts: []float64{0.1},
	}

	tests := []struct {
		name      string
		mutate    func(*SweepParams)
		wantField string
	}{
		{"valid", func(p *SweepParams) {}, ""},
		{"no price models", func(p *SweepParams) { p.PriceModels = nil }, "price_models"},
		{"unknown price model", func(p *SweepParams) { p.PriceModels = []PriceModel{"VWAP"} }, "price_models"},
		{"no sell shares", func(p *SweepParams) { p.SellSharePcts = nil }, "sell_share_pcts"},
		{"share out of range", func(p *SweepParams) { p.SellSharePcts = []float64{0.1, 1.5} }, "sell_share_pcts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			verr, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("error = %v (%T), want *ValidationError", err, err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", verr.Field, tt.wantField)
			}
		})
	}
}

func TestSweep_SingleScenario(t *testing.T) {
	params := SweepParams{
		Harness:       harnessParams(),
		PriceModels:   []PriceModel{PriceAvg},
		SellSharePcts: []float64{0.1},
		Concurrency:   2,
	}

	report, err := Sweep(context.Background(), []Strategy{harnessStrategy()}, harnessUniverse(), params, flatHistory())
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if len(report.Scenarios) != 1 {
		t.Fatalf("scenarios = %d, want 1", len(report.Scenarios))
	}
	if len(report.Results) != 1 {
		t.Fatalf("results = %d, want 1", len(report.Results))
	}

	res := report.Results[0]
	if res.Completed != 1 {
		t.Fatalf("Completed = %d, want 1", res.Completed)
	}
	if res.ScenarioScores[0] == nil || math.Abs(*res.ScenarioScores[0]-49) > 0.01 {
		t.Errorf("scenario score = %v, want 49 (flat-market ROI median)", res.ScenarioScores[0])
	}
	// With one scenario the overall score is that scenario's score.
	if res.OverallScore == nil || *res.OverallScore != *res.ScenarioScores[0] {
		t.Errorf("OverallScore = %v, want equal to the single scenario score", res.OverallScore)
	}
}

func TestSweep_GridScores(t *testing.T) {
	params := SweepParams{
		Harness:       harnessParams(),
		PriceModels:   []PriceModel{PriceAvg, PriceLow},
		SellSharePcts: []float64{0.05, 0.1},
		Concurrency:   2,
	}

	report, err := Sweep(context.Background(), []Strategy{harnessStrategy()}, harnessUniverse(), params, flatHistory())
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if len(report.Scenarios) != 4 {
		t.Fatalf("scenarios = %d, want 4 (2 models x 2 shares)", len(report.Scenarios))
	}
	// Scenario order follows the grid: price model outer, sell share inner.
	if report.Scenarios[0].PriceModel != PriceAvg || report.Scenarios[0].SellSharePct != 0.05 {
		t.Errorf("scenario 0 = %+v", report.Scenarios[0])
	}
	if report.Scenarios[3].PriceModel != PriceLow || report.Scenarios[3].SellSharePct != 0.1 {
		t.Errorf("scenario 3 = %+v", report.Scenarios[3])
	}

	res := report.Results[0]
	if res.Completed != 4 {
		t.Fatalf("Completed = %d, want 4", res.Completed)
	}
	// Flat prices pin NAV regardless of sell share, so the score depends
	// only on the price model: AVG sells at 200 (ROI 49), LOW at 190 (ROI 44).
	for ci, want := range []float64{49, 49, 44, 44} {
		got := res.ScenarioScores[ci]
		if got == nil || math.Abs(*got-want) > 0.01 {
			t.Errorf("scenario %d score = %v, want %v", ci, got, want)
		}
	}
	// Median of {44, 44, 49, 49}.
	if res.OverallScore == nil || math.Abs(*res.OverallScore-46.5) > 0.01 {
		t.Errorf("OverallScore = %v, want 46.5", res.OverallScore)
	}
}

func TestSweep_RanksStrategies(t *testing.T) {
	small := harnessStrategy()
	small.ID = 2
	small.Name = "beta small"
	small.Params.InvestmentISK = 5000

	params := SweepParams{
		Harness:       harnessParams(),
		PriceModels:   []PriceModel{PriceAvg},
		SellSharePcts: []float64{0.1},
		Concurrency:   2,
	}

	report, err := Sweep(context.Background(), []Strategy{small, harnessStrategy()}, harnessUniverse(), params, flatHistory())
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if len(report.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(report.Results))
	}
	if report.Results[0].StrategyName != "alpha" {
		t.Errorf("top strategy = %q, want alpha", report.Results[0].StrategyName)
	}
	a, b := report.Results[0].OverallScore, report.Results[1].OverallScore
	if a == nil || b == nil || *a <= *b {
		t.Errorf("ranking broken: %v vs %v", a, b)
	}
}

func TestSweep_DrawdownPenalty(t *testing.T) {
	// Prices decay through the test window, so the NAV peaks early and the
	// run carries a real drawdown for the penalty to bite on.
	base := date("2024-01-01")
	hist := fakeHistory{}
	hist.add(34, 60000001, series(base, 18, 1000, 100, 95, 105)...)
	hist.add(34, 61000001, series(base, 15, 100, 200, 190, 210)...)
	hist.add(34, 61000001,
		day(base, 15, 100, 150, 140, 160),
		day(base, 16, 100, 100, 90, 110),
		day(base, 17, 100, 100, 90, 110),
	)

	harness := harnessParams()
	harness.EndDate = date("2024-01-18")
	harness.TestWindowDays = 3
	harness.MaxRuns = 1

	run := func(penalty float64) *float64 {
		params := SweepParams{
			Harness:         harness,
			PriceModels:     []PriceModel{PriceAvg},
			SellSharePcts:   []float64{0.1},
			DrawdownPenalty: penalty,
		}
		report, err := Sweep(context.Background(), []Strategy{harnessStrategy()}, harnessUniverse(), params, hist)
		if err != nil {
			t.Fatalf("Sweep() error = %v", err)
		}
		return report.Results[0].OverallScore
	}

	plain := run(0)
	penalized := run(1)
	if plain == nil || penalized == nil {
		t.Fatalf("scores = %v / %v, want both present", plain, penalized)
	}
	if *penalized >= *plain {
		t.Errorf("penalized score %v not below plain score %v", *penalized, *plain)
	}
	if *penalized >= 0 {
		t.Errorf("penalized score = %v, want negative (drawdown dominates)", *penalized)
	}
}

func TestSweep_MinScenarios(t *testing.T) {
	params := SweepParams{
		Harness:       harnessParams(),
		PriceModels:   []PriceModel{PriceAvg},
		SellSharePcts: []float64{0.1},
		MinScenarios:  2,
	}

	report, err := Sweep(context.Background(), []Strategy{harnessStrategy()}, harnessUniverse(), params, flatHistory())
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	res := report.Results[0]
	if res.Completed != 1 {
		t.Fatalf("Completed = %d, want 1", res.Completed)
	}
	if res.OverallScore != nil {
		t.Errorf("OverallScore = %v, want nil below the scenario minimum", *res.OverallScore)
	}
}
