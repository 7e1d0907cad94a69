package engine

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// SweepParams configures a scenario sweep: the harness settings shared by
// all scenarios plus the pricing/selling assumption grid.
type SweepParams struct {
	Harness       WalkForwardParams
	PriceModels   []PriceModel
	SellSharePcts []float64
	// MinScenarios is the minimum number of completed scenarios a strategy
	// needs before it gets an overall score. 0 means 1.
	MinScenarios int
	// DrawdownPenalty scales how hard the worst drawdown pulls a scenario
	// score down. 0 keeps the plain ROI median.
	DrawdownPenalty float64
	// Concurrency bounds the (strategy, scenario) worker pool; 0 means
	// runtime.NumCPU().
	Concurrency int
}

func (p SweepParams) minScenarios() int {
	if p.MinScenarios <= 0 {
		return 1
	}
	return p.MinScenarios
}

func (p SweepParams) workers() int {
	if p.Concurrency <= 0 {
		return runtime.NumCPU()
	}
	return p.Concurrency
}

// Validate checks the sweep grid before any harness run starts.
func (p SweepParams) Validate() error {
	if len(p.PriceModels) == 0 {
		return &ValidationError{Field: "price_models", Reason: "must not be empty"}
	}
	for _, m := range p.PriceModels {
		if !m.Valid() {
			return &ValidationError{Field: "price_models", Reason: "contains unknown model"}
		}
	}
	if len(p.SellSharePcts) == 0 {
		return &ValidationError{Field: "sell_share_pcts", Reason: "must not be empty"}
	}
	for _, s := range p.SellSharePcts {
		if s <= 0 || s > 1 {
			return &ValidationError{Field: "sell_share_pcts", Reason: "values must be in (0,1]"}
		}
	}
	return nil
}

// Sweep runs the walk-forward harness for every strategy under every
// combination of price model and sell share, scores each scenario by its
// drawdown-penalized ROI median, and ranks strategies by the median of
// their scenario scores. Scoring on the median across assumptions rewards
// robustness instead of one favorable scenario.
func Sweep(ctx context.Context, strategies []Strategy, universe MarketUniverse, params SweepParams, history HistorySource) (*LabSweepReport, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	var scenarios []Scenario
	for _, pm := range params.PriceModels {
		for _, share := range params.SellSharePcts {
			scenarios = append(scenarios, Scenario{PriceModel: pm, SellSharePct: share})
		}
	}

	report := &LabSweepReport{Scenarios: scenarios}

	// One cell per (strategy, scenario); cells are independent and run on
	// a shared bounded pool. Each cell's harness runs its windows serially
	// so the pool is not oversubscribed.
	scores := make([][]*float64, len(strategies))
	for i := range scores {
		scores[i] = make([]*float64, len(scenarios))
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(params.workers())
	for si := range strategies {
		for ci := range scenarios {
			si, ci := si, ci
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				harness := params.Harness
				harness.PriceModel = scenarios[ci].PriceModel
				harness.SellSharePct = scenarios[ci].SellSharePct
				harness.Concurrency = 1

				batch, err := RunBatch(gctx, strategies[si], universe, harness, history)
				if err != nil {
					return err
				}
				if batch.Aggregates.Completed == 0 || batch.Aggregates.RoiMedian == nil {
					// Scenario failed to simulate; excluded from the
					// strategy's score, the rest of the sweep continues.
					return nil
				}
				score := *batch.Aggregates.RoiMedian - params.DrawdownPenalty*batch.Aggregates.MaxDrawdownWorst
				mu.Lock()
				scores[si][ci] = &score
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for si, s := range strategies {
		res := SweepResult{
			StrategyID:     s.ID,
			StrategyName:   s.Name,
			ScenarioScores: scores[si],
		}
		var completed []float64
		for _, sc := range scores[si] {
			if sc != nil {
				completed = append(completed, *sc)
			}
		}
		res.Completed = len(completed)
		if res.Completed >= params.minScenarios() {
			res.OverallScore = percentile(completed, 50)
		}
		report.Results = append(report.Results, res)
	}

	// Rank descending; strategies without a score sort last.
	sort.SliceStable(report.Results, func(i, j int) bool {
		oi, oj := report.Results[i].OverallScore, report.Results[j].OverallScore
		switch {
		case oi == nil && oj == nil:
			return report.Results[i].StrategyName < report.Results[j].StrategyName
		case oi == nil:
			return false
		case oj == nil:
			return true
		case *oi != *oj:
			return *oi > *oj
		}
		return report.Results[i].StrategyName < report.Results[j].StrategyName
	})
	return report, nil
}
