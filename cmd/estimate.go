package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/semshift/semshift/internal/estimate"
)

var estimateSave string

var estimateCmd = &cobra.Command{
	Use:   "estimate [source]",
	Short: "Estimate the remaining manual migration effort",
	Long: `Score the application's tables, expressions, datasources, and
visuals and print an effort estimate in days with a t-shirt size.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := resolveApp(args)
		if err != nil {
			return err
		}

		plan := estimate.Estimate(app)
		fmt.Print(plan.FormatText())

		if estimateSave != "" {
			if err := os.MkdirAll(filepath.Dir(estimateSave), 0o755); err != nil {
				return fmt.Errorf("creating output directory: %w", err)
			}
			if err := plan.WriteYAML(estimateSave); err != nil {
				return fmt.Errorf("saving estimate: %w", err)
			}
			fmt.Printf("\nEstimate saved to %s\n", estimateSave)
		}

		return nil
	},
}

func init() {
	estimateCmd.Flags().StringVarP(&estimateSave, "output", "o", "", "save the estimate as YAML")
	rootCmd.AddCommand(estimateCmd)
}
