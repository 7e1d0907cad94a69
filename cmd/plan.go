package cmd

import (
	"os"

	"eve-hauler/internal/engine"
	"eve-hauler/internal/reporter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var planFlags struct {
	investment float64
	capacity   float64
	packages   int
	share      float64
	collateral float64
	windowDays int
	asOf       string
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Build an allocation plan from current market history",
	RunE:  runPlan,
}

func init() {
	f := planCmd.Flags()
	f.Float64Var(&planFlags.investment, "investment", 0, "investment budget in ISK (default from config)")
	f.Float64Var(&planFlags.capacity, "capacity", 0, "package capacity in m3 (default from config)")
	f.IntVar(&planFlags.packages, "packages", 0, "max packages per destination (default from config)")
	f.Float64Var(&planFlags.share, "share", 0, "per-item budget share cap within a destination (default from config)")
	f.Float64Var(&planFlags.collateral, "collateral", 0, "max collateral per package in ISK (default from config)")
	f.IntVar(&planFlags.windowDays, "window", 0, "liquidity window in days (default from config)")
	f.StringVar(&planFlags.asOf, "as-of", "", "plan as of this date (YYYY-MM-DD), hiding later history")
}

func runPlan(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	req, err := a.cfg.PlanRequest()
	if err != nil {
		return err
	}
	if planFlags.investment > 0 {
		req.InvestmentISK = planFlags.investment
	}
	if planFlags.capacity > 0 {
		req.PackageCapacityM3 = planFlags.capacity
	}
	if planFlags.packages > 0 {
		req.MaxPackagesHint = planFlags.packages
	}
	if planFlags.share > 0 {
		req.PerDestinationMaxBudgetSharePerItem = planFlags.share
	}
	if planFlags.collateral > 0 {
		req.MaxPackageCollateralISK = planFlags.collateral
	}
	if planFlags.windowDays > 0 {
		req.LiquidityWindowDays = planFlags.windowDays
	}

	uni, err := a.universe()
	if err != nil {
		return err
	}

	var history engine.HistorySource = a.provider
	if planFlags.asOf != "" {
		cutoff, err := parseDay("as-of", planFlags.asOf)
		if err != nil {
			return err
		}
		// ClampBefore hides the cutoff date itself, shift by one day to
		// keep --as-of inclusive.
		history = engine.ClampBefore(history, cutoff.AddDate(0, 0, 1))
	}

	sources := make([]engine.SourceQuote, 0, len(uni.Items))
	typeIDs := make([]int32, 0, len(uni.Items))
	for _, item := range uni.Items {
		est := engine.EstimateLiquidity(history, item.TypeID, uni.SourceStationID, req.LiquidityWindowDays, engine.PriceAvg)
		sources = append(sources, engine.SourceQuote{
			TypeID:       item.TypeID,
			TypeName:     item.TypeName,
			UnitVolumeM3: item.UnitVolumeM3,
			BestAsk:      est.ReferencePrice,
		})
		typeIDs = append(typeIDs, item.TypeID)
	}

	priceModel := engine.PriceModel(a.cfg.Harness.PriceModel)
	var dests []engine.DestQuote
	for _, stationID := range uni.DestinationStationIDs {
		dests = append(dests, engine.BuildDestQuotes(history, stationID, typeIDs, req.LiquidityWindowDays, priceModel)...)
	}

	opps, notes := engine.BuildOpportunities(sources, dests, a.cfg.FeeModel())
	for _, note := range notes {
		a.log.Debug("opportunity builder", zap.String("note", note))
	}
	a.log.Info("opportunities built",
		zap.Int("count", len(opps)),
		zap.Int("items", len(uni.Items)),
		zap.Int("destinations", len(uni.DestinationStationIDs)))

	result, err := engine.Plan(req, opps)
	if err != nil {
		return err
	}

	reporter.WritePlan(os.Stdout, result)
	a.log.Info("plan built",
		zap.Int("packages", len(result.Packages)),
		zap.Float64("spend_isk", result.TotalSpendISK),
		zap.Float64("net_profit_isk", result.TotalNetProfitISK))
	return nil
}
