package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/semshift/semshift/internal/state"
	"github.com/semshift/semshift/internal/validation"
)

var validateProject string

var validateCmd = &cobra.Command{
	Use:   "validate [source]",
	Short: "Validate the source application or an emitted project",
	Long: `Check the source application for migration blockers (synthetic keys,
circular references, unsupported constructs). With --project, check an
emitted PBIP project directory instead. Exits non-zero when any
error-level finding is reported.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var res *validation.Result

		if validateProject != "" {
			res = validation.CheckProject(validateProject)
		} else {
			app, err := resolveApp(args)
			if err != nil {
				return err
			}
			res = validation.CheckApp(app)
		}

		fmt.Print(res.FormatText())

		if res.HasErrors() {
			return fmt.Errorf("validation failed")
		}

		st, err := state.Load("")
		if err == nil && st.CurrentStep == state.StepValidate {
			st.CompleteStep(state.StepValidate, state.StepReport)
			_ = st.Save("")
		}

		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateProject, "project", "", "validate an emitted PBIP project directory")
	rootCmd.AddCommand(validateCmd)
}
