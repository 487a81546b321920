package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/semshift/semshift/internal/lock"
	"github.com/semshift/semshift/internal/state"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration progress and artifact paths",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := state.Load("")
		if err != nil {
			return fmt.Errorf("loading state: %w", err)
		}

		fmt.Printf("Current step: %s\n\n", st.CurrentStep)

		steps := []state.Step{
			state.StepExtract,
			state.StepConvert,
			state.StepGenerate,
			state.StepValidate,
			state.StepReport,
		}
		labels := map[state.Step]string{
			state.StepExtract:  "1. Extract",
			state.StepConvert:  "2. Convert",
			state.StepGenerate: "3. Generate",
			state.StepValidate: "4. Validate",
			state.StepReport:   "5. Report",
		}

		for _, step := range steps {
			status := "  "
			if st.IsStepComplete(step) {
				status = "OK"
			} else if st.CurrentStep == step {
				status = ">>"
			}
			fmt.Printf("  [%s] %s\n", status, labels[step])
		}

		fmt.Println()
		if st.SourcePath != "" {
			fmt.Printf("Source: %s\n", st.SourcePath)
		}
		if len(st.SelectedTables) > 0 {
			fmt.Printf("Tables: %d selected\n", len(st.SelectedTables))
		}
		if st.MigrationStatus != "" {
			fmt.Printf("Migration: %s\n", st.MigrationStatus)
		}
		if st.ProjectPath != "" {
			fmt.Printf("Project: %s\n", st.ProjectPath)
		}
		if st.GuidePath != "" {
			fmt.Printf("Guide: %s\n", st.GuidePath)
		}
		if st.ReportPath != "" {
			fmt.Printf("Report: %s\n", st.ReportPath)
		}

		if held, pid, err := lock.IsHeld(""); err == nil && held {
			fmt.Printf("Lock: held by pid %d\n", pid)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
