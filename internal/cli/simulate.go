package cli

import (
	"fmt"

	"github.com/dubai-invest/dubai-invest/internal/cache"
	"github.com/dubai-invest/dubai-invest/internal/simulator"
	"github.com/dubai-invest/dubai-invest/pkg/numparse"
	"github.com/dubai-invest/dubai-invest/pkg/output"
	"github.com/dubai-invest/dubai-invest/pkg/validation"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// inputFlag binds one simulation input to a command-line flag.
type inputFlag struct {
	name  string
	usage string
	field func(*simulator.RawInputs) *numparse.Text
}

var inputFlags = []inputFlag{
	{"purchase-price", "purchase price in AED", func(r *simulator.RawInputs) *numparse.Text { return &r.PurchasePrice }},
	{"down-payment", "down payment in AED", func(r *simulator.RawInputs) *numparse.Text { return &r.DownPayment }},
	{"annual-rent", "gross annual rent in AED", func(r *simulator.RawInputs) *numparse.Text { return &r.AnnualRent }},
	{"annual-charges", "annual service charges in AED", func(r *simulator.RawInputs) *numparse.Text { return &r.AnnualCharges }},
	{"vacancy-rate", "vacancy rate percent", func(r *simulator.RawInputs) *numparse.Text { return &r.VacancyRatePercent }},
	{"resale-value", "expected resale value in AED", func(r *simulator.RawInputs) *numparse.Text { return &r.ResaleValue }},
	{"holding-years", "holding period in years", func(r *simulator.RawInputs) *numparse.Text { return &r.HoldingYears }},
}

func newSimulateCommand(a *app) *cobra.Command {
	var outputFormat string
	values := make(map[string]*string, len(inputFlags))

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Project the returns of a property purchase",
		Long: `Simulate a buy-to-let purchase held for a number of years and then resold.
Amounts accept free-form text such as "1,500,000" or "AED 90000". Inputs not
given on the command line come from the simulation section of the
configuration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format := outputFormat
			if format == "" {
				format = a.cfg.Output.Format
			}
			if err := validation.ValidateOutputFormat(format); err != nil {
				return err
			}

			raw := a.cfg.Simulation
			for _, f := range inputFlags {
				if cmd.Flags().Changed(f.name) {
					*f.field(&raw) = numparse.Text(*values[f.name])
				}
			}

			sims := cache.NewSimulations(cache.Nop{}, simulator.New(a.logger), a.logger)
			result, _, err := sims.Simulate(cmd.Context(), raw)
			if err != nil {
				return fmt.Errorf("simulation failed: %w", err)
			}

			a.logger.Debug("simulation computed",
				zap.String("op", "cli.simulate"),
				zap.Bool("present", result != nil),
			)
			return output.Simulation(cmd.OutOrStdout(), format, result)
		},
	}

	for _, f := range inputFlags {
		values[f.name] = cmd.Flags().String(f.name, "", f.usage)
	}
	cmd.Flags().StringVar(&outputFormat, "output-format", "", "output format override: pretty, csv, json")

	return cmd
}
