package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"eve-hauler/internal/engine"
	"eve-hauler/internal/reporter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var sweepFlags struct {
	start        string
	end          string
	priceModels  []string
	sellShares   []float64
	minScenarios int
	penalty      float64
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Stress-test strategies across pricing and liquidity assumptions",
	RunE:  runSweep,
}

var sweepShowCmd = &cobra.Command{
	Use:   "show <report-id>",
	Short: "Print a persisted sweep report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("report id %q: %w", args[0], err)
		}
		report, err := a.db.GetSweepReport(id)
		if err != nil {
			return err
		}
		if report == nil {
			return fmt.Errorf("no sweep report with id %d", id)
		}
		reporter.WriteSweep(os.Stdout, report)
		return nil
	},
}

func init() {
	f := sweepCmd.Flags()
	f.StringVar(&sweepFlags.start, "start", "", "first training day (YYYY-MM-DD)")
	f.StringVar(&sweepFlags.end, "end", "", "last test day (YYYY-MM-DD)")
	f.StringSliceVar(&sweepFlags.priceModels, "price-models", []string{"LOW", "AVG", "HIGH"}, "price models to sweep")
	f.Float64SliceVar(&sweepFlags.sellShares, "sell-shares", []float64{0.05, 0.1, 0.2}, "daily volume shares to sweep")
	f.IntVar(&sweepFlags.minScenarios, "min-scenarios", 0, "completed scenarios required for an overall score")
	f.Float64Var(&sweepFlags.penalty, "drawdown-penalty", 0, "score penalty per drawdown percent")
	sweepCmd.MarkFlagRequired("start")
	sweepCmd.MarkFlagRequired("end")

	sweepCmd.AddCommand(sweepShowCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	harness := a.cfg.HarnessParams()
	if harness.StartDate, err = parseDay("start", sweepFlags.start); err != nil {
		return err
	}
	if harness.EndDate, err = parseDay("end", sweepFlags.end); err != nil {
		return err
	}

	models := make([]engine.PriceModel, 0, len(sweepFlags.priceModels))
	for _, m := range sweepFlags.priceModels {
		models = append(models, engine.PriceModel(m))
	}

	params := engine.SweepParams{
		Harness:         harness,
		PriceModels:     models,
		SellSharePcts:   sweepFlags.sellShares,
		MinScenarios:    sweepFlags.minScenarios,
		DrawdownPenalty: sweepFlags.penalty,
	}

	uni, err := a.universe()
	if err != nil {
		return err
	}

	strategies, err := a.db.ListStrategies(true)
	if err != nil {
		return err
	}
	if len(strategies) == 0 {
		return fmt.Errorf("no active strategies stored")
	}

	a.log.Info("sweep starting",
		zap.Int("strategies", len(strategies)),
		zap.Int("scenarios", len(models)*len(sweepFlags.sellShares)))

	report, err := engine.Sweep(ctx, strategies, uni, params, a.provider)
	if err != nil {
		return err
	}

	id, err := a.db.SaveSweepReport(report)
	if err != nil {
		return err
	}
	a.log.Info("sweep report stored", zap.Int64("report_id", id))

	reporter.WriteSweep(os.Stdout, report)
	return nil
}
