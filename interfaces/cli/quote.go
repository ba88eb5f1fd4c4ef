package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/freight-agent/domain/freight"
)

// quoteOptions holds options for the quote command.
type quoteOptions struct {
	configPath  string
	tenantID    string
	destination string
	quantity    int
	unitWeight  float64
	jsonOutput  bool
}

// newQuoteCmd creates the quote command.
func (a *App) newQuoteCmd() *cobra.Command {
	opts := &quoteOptions{}

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Calculate delivery options for a destination",
		Long: `Calculate and rank delivery options without a conversation.

The total weight is quantity times the unit weight. It selects the light,
heavy or mixed provider strategy; the ranked options are printed best first.

Examples:
  # Quote 5 units to a postal code
  freight-agent quote --tenant acme -d 01001-000 -q 5

  # Override the unit weight and print JSON
  freight-agent quote --tenant acme -d 01001000 -q 40 --unit-weight 0.5 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runQuote(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().StringVar(&opts.tenantID, "tenant", "", "Tenant identifier")
	cmd.Flags().StringVarP(&opts.destination, "destination", "d", "", "Destination postal code (CEP)")
	cmd.Flags().IntVarP(&opts.quantity, "quantity", "q", 0, "Number of units")
	cmd.Flags().Float64Var(&opts.unitWeight, "unit-weight", 0, "Unit weight in kg (default from configuration)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the result as JSON")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("destination")
	_ = cmd.MarkFlagRequired("quantity")

	return cmd
}

func (a *App) runQuote(cmd *cobra.Command, opts *quoteOptions) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	rt, err := a.buildRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close(ctx) }()

	req := freight.Request{
		TenantID:    opts.tenantID,
		Destination: opts.destination,
		Quantity:    opts.quantity,
	}
	if cmd.Flags().Changed("unit-weight") {
		req.UnitWeight = &opts.unitWeight
	}

	result, err := rt.engine.CalculateFreight(ctx, req)
	if err != nil {
		return fmt.Errorf("quote failed: %w", err)
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	a.printResult(result)
	return nil
}

func (a *App) printResult(r *freight.Result) {
	fmt.Fprintf(a.stdout, "Destination: %s\n", r.Destination)
	fmt.Fprintf(a.stdout, "Total weight: %.2f kg (%d units, %s strategy)\n", r.TotalWeight, r.Quantity, r.Strategy)
	if r.Degraded {
		fmt.Fprintf(a.stdout, "Degraded: %d source(s) failed\n", len(r.FailedSources))
	}

	fmt.Fprintf(a.stdout, "\nOptions:\n")
	for i, o := range r.Options {
		fmt.Fprintf(a.stdout, "  %d. %-12s %-14s R$ %8s  %2d day(s)  score=%.3f\n",
			i+1, o.CarrierName, o.ServiceName, o.Price.StringFixed(2), o.DeliveryDays, o.Score)
	}

	fmt.Fprintf(a.stdout, "\nBest: %s %s\n", r.Best.CarrierName, r.Best.ServiceName)
	fmt.Fprintf(a.stdout, "Cheapest: %s %s\n", r.Cheapest.CarrierName, r.Cheapest.ServiceName)
	fmt.Fprintf(a.stdout, "Fastest: %s %s\n", r.Fastest.CarrierName, r.Fastest.ServiceName)
	if r.BestMargin != nil && r.BestMargin.Economics != nil {
		fmt.Fprintf(a.stdout, "Best margin: %s %s (%.2f%%)\n",
			r.BestMargin.CarrierName, r.BestMargin.ServiceName, r.BestMargin.Economics.MarginPercent)
	}
	if r.Cached {
		fmt.Fprintf(a.stdout, "(cached)\n")
	}
}
