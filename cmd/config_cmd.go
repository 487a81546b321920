package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/semshift/semshift/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View and validate the semshift configuration file.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current config (secrets masked)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		fmt.Println("Current configuration:")
		fmt.Println()
		fmt.Printf("  Source:\n")
		fmt.Printf("    Path:           %s\n", cfg.Source.Path)
		if cfg.Source.Type != "" {
			fmt.Printf("    Type:           %s\n", cfg.Source.Type)
		}
		fmt.Println()
		fmt.Printf("  Output:\n")
		fmt.Printf("    Dir:            %s\n", cfg.Output.Dir)
		fmt.Printf("    Project Name:   %s\n", cfg.Output.ProjectName)
		fmt.Println()
		fmt.Printf("  Model:\n")
		fmt.Printf("    Culture:        %s\n", cfg.Model.Culture)
		fmt.Printf("    Calendar:       %t\n", cfg.Model.Calendar)
		if cfg.Model.TypeOverrides != "" {
			fmt.Printf("    Type Overrides: %s\n", cfg.Model.TypeOverrides)
		}
		if cfg.Enrich.DSN != "" {
			fmt.Println()
			fmt.Printf("  Enrich:\n")
			fmt.Printf("    DSN:            %s\n", maskSecret(cfg.Enrich.DSN))
		}
		fmt.Println()
		fmt.Printf("  Serve:\n")
		fmt.Printf("    Port:           %d\n", cfg.Serve.Port)

		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("config invalid: %w", err)
		}

		var errs []string
		if cfg.Source.Path == "" {
			errs = append(errs, "source.path is required")
		}
		switch cfg.Source.Type {
		case "", "qvf", "json":
		default:
			errs = append(errs, fmt.Sprintf("source.type %q is not qvf or json", cfg.Source.Type))
		}
		if cfg.Model.CalendarStart != 0 && cfg.Model.CalendarEnd != 0 &&
			cfg.Model.CalendarStart > cfg.Model.CalendarEnd {
			errs = append(errs, "model.calendar_start is after model.calendar_end")
		}

		if len(errs) > 0 {
			fmt.Println("Validation errors:")
			for _, e := range errs {
				fmt.Printf("  - %s\n", e)
			}
			return fmt.Errorf("%d validation error(s)", len(errs))
		}

		fmt.Println("Configuration is valid.")
		return nil
	},
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}
