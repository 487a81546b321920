package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/semshift/semshift/internal/dax"
	"github.com/semshift/semshift/internal/infer"
	"github.com/semshift/semshift/internal/mquery"
	"github.com/semshift/semshift/internal/state"
)

var convertVerbose bool

var convertCmd = &cobra.Command{
	Use:   "convert [source]",
	Short: "Convert Qlik expressions to DAX and the load script to M",
	Long: `Translate every measure and dimension expression to DAX and each load
statement to a Power Query (M) query, then print the conversion report.
Without a source argument the previously extracted application is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := resolveApp(args)
		if err != nil {
			return err
		}

		tables, _ := infer.ExtractSchema(app)

		results := dax.TranslateMeasures(app.Measures, dax.Options{
			ColumnTables: tables.ColumnTables(),
		})

		converted, flagged := 0, 0
		for _, r := range results {
			if len(r.Warnings) == 0 {
				converted++
			} else {
				flagged++
			}
			if convertVerbose {
				fmt.Printf("  %s\n    %s\n", r.Name, r.Expression)
				for _, w := range r.Warnings {
					fmt.Printf("    ! %s\n", w)
				}
			}
		}
		fmt.Printf("Measures: %d converted, %d flagged for review\n", converted, flagged)

		if app.LoadScript != "" {
			stmts, rep := mquery.ConvertScript(app.LoadScript)
			fmt.Printf("Load script: %d/%d statements converted (%.0f%%)\n",
				rep.Converted, rep.Total, rep.ConversionRate)
			if convertVerbose {
				for _, sr := range stmts {
					if sr.Err != nil {
						fmt.Printf("  ! statement %q: %v\n", sr.Statement.TableName, sr.Err)
					}
				}
			}
			if len(rep.Unconverted) > 0 {
				fmt.Printf("Unconverted functions: %v\n", rep.Unconverted)
			}
		}

		st, err := state.Load("")
		if err != nil {
			return fmt.Errorf("loading state: %w", err)
		}
		st.CompleteStep(state.StepConvert, state.StepGenerate)
		if err := st.Save(""); err != nil {
			return fmt.Errorf("saving state: %w", err)
		}

		return nil
	},
}

func init() {
	convertCmd.Flags().BoolVarP(&convertVerbose, "verbose", "v", false, "print every translated expression")
	rootCmd.AddCommand(convertCmd)
}
