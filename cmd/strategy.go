package cmd

import (
	"fmt"
	"os"

	"eve-hauler/internal/engine"
	"eve-hauler/internal/reporter"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var strategyCmd = &cobra.Command{
	Use:   "strategy",
	Short: "Manage stored strategies",
}

var strategySaveFlags struct {
	name        string
	description string
	investment  float64
	capacity    float64
	packages    int
	share       float64
	collateral  float64
	windowDays  int
	inactive    bool
}

var strategySaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Create or update a strategy from config defaults plus flag overrides",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		params, err := a.cfg.PlanRequest()
		if err != nil {
			return err
		}
		if strategySaveFlags.investment > 0 {
			params.InvestmentISK = strategySaveFlags.investment
		}
		if strategySaveFlags.capacity > 0 {
			params.PackageCapacityM3 = strategySaveFlags.capacity
		}
		if strategySaveFlags.packages > 0 {
			params.MaxPackagesHint = strategySaveFlags.packages
		}
		if strategySaveFlags.share > 0 {
			params.PerDestinationMaxBudgetSharePerItem = strategySaveFlags.share
		}
		if strategySaveFlags.collateral > 0 {
			params.MaxPackageCollateralISK = strategySaveFlags.collateral
		}
		if strategySaveFlags.windowDays > 0 {
			params.LiquidityWindowDays = strategySaveFlags.windowDays
		}
		if err := params.Validate(); err != nil {
			return err
		}

		s := engine.Strategy{
			Name:        strategySaveFlags.name,
			Description: strategySaveFlags.description,
			Params:      params,
			IsActive:    !strategySaveFlags.inactive,
		}
		if err := a.db.SaveStrategy(&s); err != nil {
			return err
		}
		a.log.Info("strategy saved", zap.String("name", s.Name), zap.Int64("id", s.ID))
		return nil
	},
}

var strategyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored strategies",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		strategies, err := a.db.ListStrategies(false)
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"ID", "Name", "Active", "Investment", "Capacity m3", "Window", "Description"})
		for _, s := range strategies {
			t.AppendRow(table.Row{
				s.ID,
				s.Name,
				s.IsActive,
				reporter.FormatISK(s.Params.InvestmentISK),
				fmt.Sprintf("%.0f", s.Params.PackageCapacityM3),
				s.Params.LiquidityWindowDays,
				s.Description,
			})
		}
		t.Render()
		return nil
	},
}

var strategyShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print one strategy's parameters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := a.db.GetStrategy(args[0])
		if err != nil {
			return err
		}
		if s == nil {
			return fmt.Errorf("no strategy named %q", args[0])
		}

		fmt.Fprintf(os.Stdout, "%s (id %d, active=%v)\n", s.Name, s.ID, s.IsActive)
		if s.Description != "" {
			fmt.Fprintf(os.Stdout, "%s\n", s.Description)
		}
		p := s.Params
		fmt.Fprintf(os.Stdout, "  investment        %s\n", reporter.FormatISK(p.InvestmentISK))
		fmt.Fprintf(os.Stdout, "  capacity          %.0f m3\n", p.PackageCapacityM3)
		fmt.Fprintf(os.Stdout, "  max packages      %d\n", p.MaxPackagesHint)
		fmt.Fprintf(os.Stdout, "  item budget share %.2f\n", p.PerDestinationMaxBudgetSharePerItem)
		fmt.Fprintf(os.Stdout, "  max collateral    %s\n", reporter.FormatISK(p.MaxPackageCollateralISK))
		fmt.Fprintf(os.Stdout, "  liquidity window  %d days\n", p.LiquidityWindowDays)
		return nil
	},
}

var strategyEnableCmd = &cobra.Command{
	Use:   "enable <name>",
	Short: "Mark a strategy active",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setStrategyActive(args[0], true) },
}

var strategyDisableCmd = &cobra.Command{
	Use:   "disable <name>",
	Short: "Mark a strategy inactive",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setStrategyActive(args[0], false) },
}

func setStrategyActive(name string, active bool) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.db.SetStrategyActive(name, active); err != nil {
		return err
	}
	a.log.Info("strategy updated", zap.String("name", name), zap.Bool("active", active))
	return nil
}

func init() {
	f := strategySaveCmd.Flags()
	f.StringVar(&strategySaveFlags.name, "name", "", "strategy name (unique)")
	f.StringVar(&strategySaveFlags.description, "description", "", "free-form description")
	f.Float64Var(&strategySaveFlags.investment, "investment", 0, "investment budget in ISK")
	f.Float64Var(&strategySaveFlags.capacity, "capacity", 0, "package capacity in m3")
	f.IntVar(&strategySaveFlags.packages, "packages", 0, "max packages per destination")
	f.Float64Var(&strategySaveFlags.share, "share", 0, "per-item budget share cap")
	f.Float64Var(&strategySaveFlags.collateral, "collateral", 0, "max collateral per package in ISK")
	f.IntVar(&strategySaveFlags.windowDays, "window", 0, "liquidity window in days")
	f.BoolVar(&strategySaveFlags.inactive, "inactive", false, "store as inactive")
	strategySaveCmd.MarkFlagRequired("name")

	strategyCmd.AddCommand(strategySaveCmd)
	strategyCmd.AddCommand(strategyListCmd)
	strategyCmd.AddCommand(strategyShowCmd)
	strategyCmd.AddCommand(strategyEnableCmd)
	strategyCmd.AddCommand(strategyDisableCmd)
}
