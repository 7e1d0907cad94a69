// Package reporter renders plans, walk-forward batches and sweep reports as
// terminal tables.
package reporter

import (
	"fmt"
	"io"

	"eve-hauler/internal/engine"

	"github.com/jedib0t/go-pretty/v6/table"
)

// FormatISK renders an ISK amount in the compact notation used across EVE
// tooling: 1.50b, 320.25m, 12.30k, plain below a thousand.
func FormatISK(v float64) string {
	abs := v
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= 1e9:
		return fmt.Sprintf("%.2fb", v/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%.2fm", v/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("%.2fk", v/1e3)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

func formatPct(p *float64) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", *p)
}

func formatScore(s *float64) string {
	if s == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *s)
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

// WritePlan renders the package table, the per-item breakdown and the
// planner notes.
func WritePlan(w io.Writer, result *engine.PlanResult) {
	t := newTable(w)
	t.AppendHeader(table.Row{"#", "Destination", "Items", "Spend", "Gross", "Shipping", "Net", "Eff", "m3"})
	for _, p := range result.Packages {
		t.AppendRow(table.Row{
			p.PackageIndex,
			p.DestinationStationID,
			len(p.Items),
			FormatISK(p.SpendISK),
			FormatISK(p.GrossProfitISK),
			FormatISK(p.ShippingISK),
			FormatISK(p.NetProfitISK),
			fmt.Sprintf("%.3f", p.Efficiency),
			fmt.Sprintf("%.1f", p.UsedCapacityM3),
		})
	}
	t.AppendFooter(table.Row{
		"", "Total", "",
		FormatISK(result.TotalSpendISK),
		FormatISK(result.TotalGrossProfitISK),
		FormatISK(result.TotalShippingISK),
		FormatISK(result.TotalNetProfitISK),
		"", "",
	})
	t.Render()

	items := newTable(w)
	items.AppendHeader(table.Row{"Pkg", "Type", "Name", "Units", "Unit Cost", "Unit Profit", "Spend", "Profit"})
	for _, p := range result.Packages {
		for _, it := range p.Items {
			items.AppendRow(table.Row{
				p.PackageIndex,
				it.TypeID,
				it.TypeName,
				it.Units,
				FormatISK(it.UnitCost),
				FormatISK(it.UnitProfit),
				FormatISK(it.SpendISK),
				FormatISK(it.ProfitISK),
			})
		}
	}
	items.Render()

	for _, note := range result.Notes {
		fmt.Fprintf(w, "note: %s\n", note)
	}
}

// WriteBatch renders one walk-forward batch: the per-run rows, the
// aggregates and any blacklist suggestions.
func WriteBatch(w io.Writer, batch *engine.WalkForwardBatch) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Run", "Test Start", "Test End", "Status", "Profit", "ROI", "Drawdown", "Sold", "Unsold"})
	for i, run := range batch.Runs {
		t.AppendRow(table.Row{
			i + 1,
			run.StartDate.Format("2006-01-02"),
			run.EndDate.Format("2006-01-02"),
			run.Status,
			FormatISK(run.Summary.TotalProfitIsk),
			formatPct(run.Summary.RoiPercent),
			fmt.Sprintf("%.2f%%", run.Summary.MaxDrawdownPct),
			run.Summary.UnitsSold,
			run.Summary.UnitsUnsold,
		})
	}
	t.Render()

	agg := batch.Aggregates
	fmt.Fprintf(w, "batch %s: %d/%d runs completed, win rate %.0f%%\n",
		batch.ID, agg.Completed, agg.Runs, agg.WinRate*100)
	fmt.Fprintf(w, "roi median %s (p10 %s, p90 %s), worst drawdown %.2f%%\n",
		formatPct(agg.RoiMedian), formatPct(agg.RoiP10), formatPct(agg.RoiP90), agg.MaxDrawdownWorst)
	if agg.ProfitMedianIsk != nil {
		fmt.Fprintf(w, "profit median %s, relist fees median %s\n",
			FormatISK(*agg.ProfitMedianIsk), formatScore(agg.RelistFeesMedianIsk))
	}

	if len(batch.BlacklistSuggestions) > 0 {
		bl := newTable(w)
		bl.AppendHeader(table.Row{"Type", "Destination", "Loser Runs", "Total Loss"})
		for _, s := range batch.BlacklistSuggestions {
			bl.AppendRow(table.Row{s.TypeID, s.DestinationStationID, s.LoserRuns, FormatISK(s.TotalLossIsk)})
		}
		bl.Render()
	}
}

// WriteRanking renders the all-strategies comparison and the global
// blacklist union.
func WriteRanking(w io.Writer, out *engine.AllStrategiesBatch) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Rank", "Strategy", "Runs", "Completed", "Win Rate", "ROI Median", "Worst DD"})
	for i, rank := range out.Batches {
		agg := rank.Batch.Aggregates
		t.AppendRow(table.Row{
			i + 1,
			rank.StrategyName,
			agg.Runs,
			agg.Completed,
			fmt.Sprintf("%.0f%%", agg.WinRate*100),
			formatPct(agg.RoiMedian),
			fmt.Sprintf("%.2f%%", agg.MaxDrawdownWorst),
		})
	}
	t.Render()

	if len(out.GlobalBlacklist) > 0 {
		bl := newTable(w)
		bl.AppendHeader(table.Row{"Type", "Destination", "Loser Runs", "Total Loss", "Strategies"})
		for _, e := range out.GlobalBlacklist {
			bl.AppendRow(table.Row{e.TypeID, e.DestinationStationID, e.LoserRuns, FormatISK(e.TotalLossIsk), e.Strategies})
		}
		bl.Render()
	}
}

// WriteSweep renders the scenario grid and the ranked strategy scores.
func WriteSweep(w io.Writer, report *engine.LabSweepReport) {
	header := table.Row{"Strategy", "Completed", "Overall"}
	for _, sc := range report.Scenarios {
		header = append(header, fmt.Sprintf("%s/%.0f%%", sc.PriceModel, sc.SellSharePct*100))
	}

	t := newTable(w)
	t.AppendHeader(header)
	for _, res := range report.Results {
		row := table.Row{res.StrategyName, res.Completed, formatScore(res.OverallScore)}
		for _, score := range res.ScenarioScores {
			row = append(row, formatScore(score))
		}
		t.AppendRow(row)
	}
	t.Render()
}
