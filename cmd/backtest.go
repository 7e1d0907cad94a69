package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"eve-hauler/internal/reporter"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var backtestFlags struct {
	start    string
	end      string
	strategy string
	verbose  bool
}

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run walk-forward backtests for the active strategies",
	RunE:  runBacktest,
}

var backtestListLimit int

var backtestListCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted backtest batches, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		batches, err := a.db.ListBatches(0, backtestListLimit)
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Batch", "Strategy", "Created"})
		for _, b := range batches {
			t.AppendRow(table.Row{b.ID, b.StrategyID, b.CreatedAt})
		}
		t.Render()
		return nil
	},
}

var backtestShowCmd = &cobra.Command{
	Use:   "show <batch-id>",
	Short: "Print a persisted backtest batch in full",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		batch, err := a.db.GetBatch(args[0])
		if err != nil {
			return err
		}
		if batch == nil {
			return fmt.Errorf("no batch with id %q", args[0])
		}
		reporter.WriteBatch(os.Stdout, batch)
		return nil
	},
}

func init() {
	f := backtestCmd.Flags()
	f.StringVar(&backtestFlags.start, "start", "", "first training day (YYYY-MM-DD)")
	f.StringVar(&backtestFlags.end, "end", "", "last test day (YYYY-MM-DD)")
	f.StringVar(&backtestFlags.strategy, "strategy", "", "only run strategies whose name contains this")
	f.BoolVar(&backtestFlags.verbose, "verbose", false, "print every batch in full, not just the ranking")
	backtestCmd.MarkFlagRequired("start")
	backtestCmd.MarkFlagRequired("end")

	backtestListCmd.Flags().IntVar(&backtestListLimit, "limit", 20, "max batches to list")
	backtestCmd.AddCommand(backtestListCmd)
	backtestCmd.AddCommand(backtestShowCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	params := a.cfg.HarnessParams()
	if params.StartDate, err = parseDay("start", backtestFlags.start); err != nil {
		return err
	}
	if params.EndDate, err = parseDay("end", backtestFlags.end); err != nil {
		return err
	}

	uni, err := a.universe()
	if err != nil {
		return err
	}

	strategies, err := a.db.ListStrategies(false)
	if err != nil {
		return err
	}
	if len(strategies) == 0 {
		return fmt.Errorf("no strategies stored, run 'eve-hauler strategy save' first")
	}

	a.log.Info("backtest starting",
		zap.Int("strategies", len(strategies)),
		zap.String("start", backtestFlags.start),
		zap.String("end", backtestFlags.end))

	out, err := RunAllBatchesAndPersist(ctx, a, strategies, backtestFlags.strategy, uni, params)
	if err != nil {
		return err
	}
	if len(out.Batches) == 0 {
		return fmt.Errorf("no active strategy matched %q", backtestFlags.strategy)
	}

	reporter.WriteRanking(os.Stdout, out)
	if backtestFlags.verbose {
		for _, rank := range out.Batches {
			fmt.Fprintf(os.Stdout, "\n%s\n", rank.StrategyName)
			batch := rank.Batch
			reporter.WriteBatch(os.Stdout, &batch)
		}
	}
	return nil
}
