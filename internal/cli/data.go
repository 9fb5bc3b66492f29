package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/dubai-invest/dubai-invest/internal/importer"
	"github.com/dubai-invest/dubai-invest/internal/storage"
	"github.com/dubai-invest/dubai-invest/pkg/output"
	"github.com/dubai-invest/dubai-invest/pkg/validation"
	"github.com/spf13/cobra"
)

func newImportCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: "Import district market data from a JSON file",
		Long: `Import a JSON array of district statistics. Districts are created on first
sight and statistics already stored for a district and period are skipped.
Opportunity scores are recomputed for every imported year.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			result, err := importer.New(store, a.logger).ImportFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printImportResult(cmd.OutOrStdout(), result)
			return rescoreYears(cmd.Context(), a, store, result.Years)
		},
	}
}

func newSeedCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the bundled Dubai dataset into an empty database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			result, seeded, err := importer.New(store, a.logger).Seed(cmd.Context())
			if err != nil {
				return err
			}
			if !seeded {
				fmt.Fprintln(cmd.OutOrStdout(), "Database already contains districts, nothing to seed.")
				return nil
			}
			printImportResult(cmd.OutOrStdout(), result)
			return rescoreYears(cmd.Context(), a, store, result.Years)
		},
	}
}

func newScoreCommand(a *app) *cobra.Command {
	var (
		year         int
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Recompute and print the opportunity ranking for a year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format := outputFormat
			if format == "" {
				format = a.cfg.Output.Format
			}
			if err := validation.ValidateOutputFormat(format); err != nil {
				return err
			}
			if !cmd.Flags().Changed("year") {
				year = a.cfg.Scoring.Year
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			ranked, err := importer.Rescore(cmd.Context(), store, year, a.logger)
			if err != nil {
				return err
			}
			return output.Ranking(cmd.OutOrStdout(), format, ranked)
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "year to score (default from configuration)")
	cmd.Flags().StringVar(&outputFormat, "output-format", "", "output format override: pretty, csv, json")
	return cmd
}

func rescoreYears(ctx context.Context, a *app, store *storage.Store, years []int) error {
	for _, year := range years {
		if _, err := importer.Rescore(ctx, store, year, a.logger); err != nil {
			return err
		}
	}
	return nil
}

func printImportResult(w io.Writer, result importer.Result) {
	fmt.Fprintf(w, "Imported: %d\n", result.Success)
	fmt.Fprintf(w, "Skipped:  %d\n", result.Skipped)
	fmt.Fprintf(w, "Errors:   %d\n", result.Errors)
	fmt.Fprintf(w, "Warnings: %d\n", result.Warnings)
}
