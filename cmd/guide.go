package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/semshift/semshift/internal/guide"
	"github.com/semshift/semshift/internal/report"
)

var guideOutput string

var guideCmd = &cobra.Command{
	Use:   "guide [source]",
	Short: "Write the manual-work migration guide",
	Long: `Generate MIGRATION_GUIDE.md covering the work that cannot be
automated: variables, section access, unconverted functions, set
analysis review, and QVD replacements.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := resolveApp(args)
		if err != nil {
			return err
		}

		rep := loadReportIfPresent()

		path, err := guide.WriteGuide(guideOutput, app, rep)
		if err != nil {
			return fmt.Errorf("writing guide: %w", err)
		}
		fmt.Printf("Guide written to %s\n", path)
		return nil
	},
}

// loadReportIfPresent reuses the last run's report so the guide can
// include conversion rates. Without one the guide skips those sections.
func loadReportIfPresent() *report.MigrationReport {
	for _, p := range []string{"output/report.json", "report.json"} {
		if rep, err := report.ReadJSON(p); err == nil {
			return rep
		}
	}
	return nil
}

func init() {
	guideCmd.Flags().StringVarP(&guideOutput, "output", "o", "output", "output directory for the guide")
	rootCmd.AddCommand(guideCmd)
}
