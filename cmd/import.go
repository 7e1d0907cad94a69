package cmd

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load market history and item catalogs from CSV files",
}

var importHistoryCmd = &cobra.Command{
	Use:   "history <file.csv>",
	Short: "Import daily market history (station_id,type_id,date,average,highest,lowest,volume)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.db.ImportHistoryCSV(args[0])
		if err != nil {
			return err
		}
		a.provider.Flush()
		a.log.Info("history imported", zap.String("file", args[0]), zap.Int("rows", n))
		return nil
	},
}

var importItemsCmd = &cobra.Command{
	Use:   "items <file.csv>",
	Short: "Import the item catalog (type_id,type_name,volume_m3)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.db.ImportItemTypesCSV(args[0])
		if err != nil {
			return err
		}
		a.log.Info("items imported", zap.String("file", args[0]), zap.Int("items", n))
		return nil
	},
}

var importPruneBefore string

var importPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete stored history older than a date",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := parseDay("before", importPruneBefore); err != nil {
			return err
		}
		n, err := a.db.DeleteHistoryBefore(importPruneBefore)
		if err != nil {
			return err
		}
		a.provider.Flush()
		a.log.Info("history pruned", zap.String("before", importPruneBefore), zap.Int64("rows", n))
		return nil
	},
}

var importStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stored history coverage per station and item",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		cov, err := a.db.HistoryCoverage()
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Station", "Type", "Days", "First", "Last"})
		for _, row := range cov {
			t.AppendRow(table.Row{row.StationID, row.TypeID, row.Days, row.FirstDate, row.LastDate})
		}
		t.Render()
		return nil
	},
}

func init() {
	importPruneCmd.Flags().StringVar(&importPruneBefore, "before", "", "delete rows dated before this day (YYYY-MM-DD)")
	importPruneCmd.MarkFlagRequired("before")

	importCmd.AddCommand(importHistoryCmd)
	importCmd.AddCommand(importItemsCmd)
	importCmd.AddCommand(importPruneCmd)
	importCmd.AddCommand(importStatusCmd)
}
