package cmd

import (
	"github.com/spf13/cobra"

	"github.com/semshift/semshift/internal/wizard"
)

var selectCmd = &cobra.Command{
	Use:   "select [source]",
	Short: "Interactively choose tables for migration",
	Long:  `Open the table selection screen standalone and save the selection to the state file.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveSourcePath(args)
		if err != nil {
			return err
		}
		return wizard.RunTableSelectStandalone(path, "")
	},
}

func init() {
	rootCmd.AddCommand(selectCmd)
}
