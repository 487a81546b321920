package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/semshift/semshift/internal/wizard"
)

var (
	cfgFile  string
	logLevel string
	version  = "dev"
	commit   = "none"
	date     = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "semshift",
	Short: "semshift — Qlik Sense to Power BI semantic model migration",
	Long: `semshift converts Qlik Sense applications into Power BI (Fabric)
semantic models: tables, relationships, DAX measures, Power Query
sources, and a PBIP project ready for Power BI Desktop.

Running without a subcommand launches the interactive wizard.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Launching interactive wizard...")
		w, err := wizard.New("", nil)
		if err != nil {
			return err
		}
		return w.Run()
	},
}

func Execute() {
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: semshift.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}
