package engine

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// SourceItem identifies one tradeable item at the source market.
type SourceItem struct {
	TypeID       int32   `json:"type_id"`
	TypeName     string  `json:"type_name"`
	UnitVolumeM3 float64 `json:"unit_volume_m3"`
}

// MarketUniverse is the set of markets and items a batch operates over.
type MarketUniverse struct {
	SourceStationID       int64        `json:"source_station_id"`
	DestinationStationIDs []int64      `json:"destination_station_ids"`
	Items                 []SourceItem `json:"items"`
}

// WalkForwardParams configures window generation and the sell model shared
// by every run of a batch.
type WalkForwardParams struct {
	StartDate         time.Time
	EndDate           time.Time
	TrainWindowDays   int
	TestWindowDays    int
	StepDays          int
	MaxRuns           int
	SellModel         SellModel
	SellSharePct      float64
	PriceModel        PriceModel
	InitialCapitalIsk float64
	Fees              FeeModel
	// LoserRunThreshold is the minimum number of losing runs before a pair
	// is suggested for the blacklist. 0 means the default of 2.
	LoserRunThreshold int
	// Concurrency bounds the worker pool; 0 means runtime.NumCPU().
	Concurrency int
}

func (p WalkForwardParams) loserThreshold() int {
	if p.LoserRunThreshold <= 0 {
		return 2
	}
	return p.LoserRunThreshold
}

func (p WalkForwardParams) workers() int {
	if p.Concurrency <= 0 {
		return runtime.NumCPU()
	}
	return p.Concurrency
}

// Validate checks the harness parameters before any window is generated.
func (p WalkForwardParams) Validate() error {
	if !p.EndDate.After(p.StartDate) {
		return &ValidationError{Field: "end_date", Reason: "must be after start_date"}
	}
	if p.TrainWindowDays < 1 {
		return &ValidationError{Field: "train_window_days", Reason: "must be at least 1"}
	}
	if p.TestWindowDays < 1 {
		return &ValidationError{Field: "test_window_days", Reason: "must be at least 1"}
	}
	if p.StepDays < 1 {
		return &ValidationError{Field: "step_days", Reason: "must be at least 1"}
	}
	if p.MaxRuns < 1 {
		return &ValidationError{Field: "max_runs", Reason: "must be at least 1"}
	}
	if p.SellSharePct <= 0 || p.SellSharePct > 1 {
		return &ValidationError{Field: "sell_share_pct", Reason: "must be in (0,1]"}
	}
	if !p.SellModel.Valid() {
		return &ValidationError{Field: "sell_model", Reason: fmt.Sprintf("unknown model %q", p.SellModel)}
	}
	if !p.PriceModel.Valid() {
		return &ValidationError{Field: "price_model", Reason: fmt.Sprintf("unknown model %q", p.PriceModel)}
	}
	return nil
}

// Window is one rolling train/test split.
type Window struct {
	TrainStart time.Time
	TrainEnd   time.Time
	TestStart  time.Time
	TestEnd    time.Time
	// Partial marks the window whose test period ran past the batch end
	// and was clamped; its run is always reported incomplete.
	Partial bool
}

// GenerateWindows builds the rolling train/test windows for [start, end].
// At least one window is always produced even when it only partially fits.
func GenerateWindows(start, end time.Time, trainDays, testDays, stepDays, maxRuns int) []Window {
	var windows []Window
	for trainStart := start; len(windows) < maxRuns; trainStart = trainStart.AddDate(0, 0, stepDays) {
		w := Window{
			TrainStart: trainStart,
			TrainEnd:   trainStart.AddDate(0, 0, trainDays),
		}
		w.TestStart = w.TrainEnd
		w.TestEnd = w.TestStart.AddDate(0, 0, testDays)
		if w.TestEnd.After(end) {
			if len(windows) > 0 {
				break
			}
			w.TestEnd = end
			w.Partial = true
		}
		windows = append(windows, w)
		if w.Partial {
			break
		}
	}
	return windows
}

// clampedSource hides every history point dated on or after the cutoff,
// so a planner ranking on train data cannot see test-period outcomes.
type clampedSource struct {
	src    HistorySource
	cutoff string
}

// ClampBefore wraps src so that only points strictly before cutoff are
// visible. Train/test leakage through the planner is a correctness bug;
// every plan inside a batch goes through this wrapper.
func ClampBefore(src HistorySource, cutoff time.Time) HistorySource {
	return &clampedSource{src: src, cutoff: cutoff.Format("2006-01-02")}
}

func (c *clampedSource) History(typeID int32, stationID int64, maxDays int) []HistoryPoint {
	points := c.src.History(typeID, stationID, 0)
	cut := len(points)
	for cut > 0 && points[cut-1].Date >= c.cutoff {
		cut--
	}
	points = points[:cut]
	if maxDays > 0 && len(points) > maxDays {
		points = points[len(points)-maxDays:]
	}
	return points
}

// RunBatch executes the walk-forward harness for one strategy: plan on the
// train period, simulate over the test period, once per rolling window,
// windows running concurrently on a bounded pool. Aggregation happens only
// after every run finished, over deterministically ordered inputs, so the
// report is reproducible regardless of completion order.
func RunBatch(ctx context.Context, strategy Strategy, universe MarketUniverse, params WalkForwardParams, history HistorySource) (*WalkForwardBatch, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := strategy.Params.Validate(); err != nil {
		return nil, err
	}

	windows := GenerateWindows(params.StartDate, params.EndDate, params.TrainWindowDays, params.TestWindowDays, params.StepDays, params.MaxRuns)
	runs := make([]StrategyRun, len(windows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(params.workers())
	for i := range windows {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			runs[i] = runWindow(strategy, universe, params, history, windows[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	batch := &WalkForwardBatch{
		ID:         uuid.NewString(),
		StrategyID: strategy.ID,
		Runs:       runs,
	}
	batch.Aggregates = aggregateRuns(runs)
	batch.BlacklistSuggestions = detectRecurringLosers(runs, params.loserThreshold())
	return batch, nil
}

// runWindow produces one StrategyRun: the planner sees history clamped at
// the train end, the simulator sees the real test period.
func runWindow(strategy Strategy, universe MarketUniverse, params WalkForwardParams, history HistorySource, w Window) StrategyRun {
	trainSrc := ClampBefore(history, w.TrainEnd)
	windowDays := strategy.Params.LiquidityWindowDays

	// Source buy cost: the daily aggregates carry no order book, so the
	// volume-weighted average at the source over the train window stands
	// in for the best ask.
	sources := make([]SourceQuote, 0, len(universe.Items))
	for _, item := range universe.Items {
		est := EstimateLiquidity(trainSrc, item.TypeID, universe.SourceStationID, windowDays, PriceAvg)
		sources = append(sources, SourceQuote{
			TypeID:       item.TypeID,
			TypeName:     item.TypeName,
			UnitVolumeM3: item.UnitVolumeM3,
			BestAsk:      est.ReferencePrice,
		})
	}

	typeIDs := make([]int32, 0, len(universe.Items))
	for _, item := range universe.Items {
		typeIDs = append(typeIDs, item.TypeID)
	}
	var dests []DestQuote
	for _, stationID := range universe.DestinationStationIDs {
		dests = append(dests, BuildDestQuotes(trainSrc, stationID, typeIDs, windowDays, params.PriceModel)...)
	}

	opps, _ := BuildOpportunities(sources, dests, params.Fees)
	plan, _ := Plan(strategy.Params, opps) // params validated by RunBatch

	sim := Simulate(plan.Packages, history, SimParams{
		StartDate:         w.TestStart,
		EndDate:           w.TestEnd,
		SellModel:         params.SellModel,
		SellSharePct:      params.SellSharePct,
		PriceModel:        params.PriceModel,
		InitialCapitalIsk: params.InitialCapitalIsk,
		Fees:              params.Fees,
	})

	status := sim.Status
	if w.Partial {
		status = RunStatusIncomplete
	}
	return StrategyRun{
		ID:                uuid.NewString(),
		StrategyID:        strategy.ID,
		StartDate:         w.TestStart,
		EndDate:           w.TestEnd,
		InitialCapitalIsk: params.InitialCapitalIsk,
		SellModel:         params.SellModel,
		SellSharePct:      params.SellSharePct,
		PriceModel:        params.PriceModel,
		Status:            status,
		Days:              sim.Days,
		Positions:         sim.Positions,
		Summary:           sim.Summary,
	}
}

// aggregateRuns folds completed runs into the batch statistics. Incomplete
// runs stay in the batch but contribute nothing here.
func aggregateRuns(runs []StrategyRun) BatchAggregates {
	agg := BatchAggregates{Runs: len(runs)}

	var rois, profits, relists []float64
	wins := 0
	for _, run := range runs {
		if run.Status != RunStatusCompleted {
			continue
		}
		agg.Completed++
		if run.Summary.TotalProfitIsk > 0 {
			wins++
		}
		if run.Summary.RoiPercent != nil {
			rois = append(rois, *run.Summary.RoiPercent)
		}
		profits = append(profits, run.Summary.TotalProfitIsk)
		relists = append(relists, run.Summary.RelistFeesIsk)
		if run.Summary.MaxDrawdownPct > agg.MaxDrawdownWorst {
			agg.MaxDrawdownWorst = run.Summary.MaxDrawdownPct
		}
	}
	if agg.Completed > 0 {
		agg.WinRate = float64(wins) / float64(agg.Completed)
	}
	agg.RoiMedian = percentile(rois, 50)
	agg.RoiP10 = percentile(rois, 10)
	agg.RoiP90 = percentile(rois, 90)
	agg.ProfitMedianIsk = percentile(profits, 50)
	agg.ProfitP10Isk = percentile(profits, 10)
	agg.ProfitP90Isk = percentile(profits, 90)
	agg.RelistFeesMedianIsk = percentile(relists, 50)
	agg.RelistFeesP10Isk = percentile(relists, 10)
	agg.RelistFeesP90Isk = percentile(relists, 90)
	return agg
}

// detectRecurringLosers flags (item, destination) pairs that were net
// losers in at least threshold completed runs, worst loss first.
func detectRecurringLosers(runs []StrategyRun, threshold int) []BlacklistSuggestion {
	type pairKey struct {
		typeID    int32
		stationID int64
	}
	losses := make(map[pairKey]*BlacklistSuggestion)
	for _, run := range runs {
		if run.Status != RunStatusCompleted {
			continue
		}
		for _, pos := range run.Positions {
			if pos.RealizedProfitIsk >= 0 {
				continue
			}
			key := pairKey{pos.TypeID, pos.DestinationStationID}
			s, ok := losses[key]
			if !ok {
				s = &BlacklistSuggestion{TypeID: pos.TypeID, DestinationStationID: pos.DestinationStationID}
				losses[key] = s
			}
			s.LoserRuns++
			s.TotalLossIsk = roundIsk(s.TotalLossIsk - pos.RealizedProfitIsk)
		}
	}

	var out []BlacklistSuggestion
	for _, s := range losses {
		if s.LoserRuns >= threshold {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalLossIsk != out[j].TotalLossIsk {
			return out[i].TotalLossIsk > out[j].TotalLossIsk
		}
		if out[i].TypeID != out[j].TypeID {
			return out[i].TypeID < out[j].TypeID
		}
		return out[i].DestinationStationID < out[j].DestinationStationID
	})
	return out
}

// RunAllBatches runs the harness for every active strategy whose name
// matches the optional filter, ranks the batches by median ROI (strategies
// with no median sort last), and unions their blacklist suggestions into a
// global list annotated with the strategies that hit each pair.
func RunAllBatches(ctx context.Context, strategies []Strategy, nameFilter string, universe MarketUniverse, params WalkForwardParams, history HistorySource) (*AllStrategiesBatch, error) {
	filter := strings.ToLower(strings.TrimSpace(nameFilter))

	var ranks []StrategyBatchRank
	for _, s := range strategies {
		if !s.IsActive {
			continue
		}
		if filter != "" && !strings.Contains(strings.ToLower(s.Name), filter) {
			continue
		}
		batch, err := RunBatch(ctx, s, universe, params, history)
		if err != nil {
			return nil, fmt.Errorf("strategy %q: %w", s.Name, err)
		}
		ranks = append(ranks, StrategyBatchRank{
			StrategyID:   s.ID,
			StrategyName: s.Name,
			Batch:        *batch,
		})
	}

	sort.SliceStable(ranks, func(i, j int) bool {
		mi, mj := ranks[i].Batch.Aggregates.RoiMedian, ranks[j].Batch.Aggregates.RoiMedian
		switch {
		case mi == nil && mj == nil:
			return ranks[i].StrategyName < ranks[j].StrategyName
		case mi == nil:
			return false
		case mj == nil:
			return true
		case *mi != *mj:
			return *mi > *mj
		}
		return ranks[i].StrategyName < ranks[j].StrategyName
	})

	type pairKey struct {
		typeID    int32
		stationID int64
	}
	global := make(map[pairKey]*GlobalBlacklistEntry)
	for _, rank := range ranks {
		for _, s := range rank.Batch.BlacklistSuggestions {
			key := pairKey{s.TypeID, s.DestinationStationID}
			e, ok := global[key]
			if !ok {
				e = &GlobalBlacklistEntry{TypeID: s.TypeID, DestinationStationID: s.DestinationStationID}
				global[key] = e
			}
			e.LoserRuns += s.LoserRuns
			e.TotalLossIsk = roundIsk(e.TotalLossIsk + s.TotalLossIsk)
			e.Strategies = append(e.Strategies, rank.StrategyName)
		}
	}
	var blacklist []GlobalBlacklistEntry
	for _, e := range global {
		sort.Strings(e.Strategies)
		blacklist = append(blacklist, *e)
	}
	sort.Slice(blacklist, func(i, j int) bool {
		if blacklist[i].TotalLossIsk != blacklist[j].TotalLossIsk {
			return blacklist[i].TotalLossIsk > blacklist[j].TotalLossIsk
		}
		if blacklist[i].TypeID != blacklist[j].TypeID {
			return blacklist[i].TypeID < blacklist[j].TypeID
		}
		return blacklist[i].DestinationStationID < blacklist[j].DestinationStationID
	})

	return &AllStrategiesBatch{Batches: ranks, GlobalBlacklist: blacklist}, nil
}
