package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/semshift/semshift/internal/extract"
	"github.com/semshift/semshift/internal/state"
)

var extractOutput string

var extractCmd = &cobra.Command{
	Use:   "extract <source>",
	Short: "Extract a Qlik application into intermediate artifacts",
	Long: `Read a .qvf archive, an engine JSON export, or an artifact directory
and write one JSON file per concern (tables, measures, sheets, ...) to
the output directory.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sourcePath := args[0]

		app, warnings, err := extract.Read(sourcePath)
		if err != nil {
			return fmt.Errorf("extracting source: %w", err)
		}

		for _, w := range warnings {
			fmt.Printf("  warning: %s\n", w)
		}

		fmt.Printf("Extracted %q: %d tables, %d measures, %d dimensions, %d sheets, %d variables\n",
			app.Name, len(app.Tables), len(app.Measures), len(app.Dimensions),
			len(app.Sheets), len(app.Variables))

		if err := extract.WriteIntermediate(extractOutput, app, sourcePath); err != nil {
			return fmt.Errorf("writing artifacts: %w", err)
		}
		fmt.Printf("Artifacts written to %s\n", extractOutput)

		st, err := state.Load("")
		if err != nil {
			return fmt.Errorf("loading state: %w", err)
		}
		st.SourcePath = sourcePath
		st.AppPath = extractOutput
		st.CompleteStep(state.StepExtract, state.StepConvert)
		if err := st.Save(""); err != nil {
			return fmt.Errorf("saving state: %w", err)
		}

		return nil
	},
}

func init() {
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "output/extracted", "output directory for intermediate artifacts")
	rootCmd.AddCommand(extractCmd)
}
