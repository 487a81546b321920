package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/semshift/semshift/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file interactively",
	Long:  `Walk through prompts to create a semshift configuration file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reader := bufio.NewReader(os.Stdin)

		fmt.Println("semshift Configuration Setup")
		fmt.Println("============================")
		fmt.Println()

		fmt.Println("Source Application")
		fmt.Println("------------------")
		sourcePath := prompt(reader, "Path to .qvf, JSON export, or artifact directory", "")
		fmt.Println()

		fmt.Println("Output")
		fmt.Println("------")
		outputDir := prompt(reader, "Output directory", "output")
		projectName := prompt(reader, "Project name (empty to derive from source)", "")
		culture := prompt(reader, "Model culture", "en-US")
		calendar := prompt(reader, "Generate a Calendar date table? (y/n)", "y")
		fmt.Println()

		fmt.Println("Enrichment (optional)")
		fmt.Println("---------------------")
		dsn := prompt(reader, "Postgres DSN for column-type enrichment (empty to skip)", "")
		fmt.Println()

		portStr := prompt(reader, "Status server port", "8080")
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid port: %s", portStr)
		}

		cfg := config.Default(sourcePath)
		cfg.Output.Dir = outputDir
		if projectName != "" {
			cfg.Output.ProjectName = projectName
		}
		cfg.Model.Culture = culture
		cfg.Model.Calendar = strings.EqualFold(calendar, "y") || strings.EqualFold(calendar, "yes")
		cfg.Enrich.DSN = dsn
		cfg.Serve.Port = port

		cfgPath := config.DefaultPath
		if cfgFile != "" {
			cfgPath = cfgFile
		}
		if err := cfg.Save(cfgPath); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}

		fmt.Printf("Config written to %s\n", cfgPath)
		fmt.Println()
		fmt.Println("Next steps:")
		fmt.Println("  semshift extract     — Extract the source application")
		fmt.Println("  semshift             — Launch the interactive wizard")
		fmt.Println("  semshift serve       — Start the status web UI")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func prompt(reader *bufio.Reader, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("  %s [%s]: ", label, defaultVal)
	} else {
		fmt.Printf("  %s: ", label)
	}
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultVal
	}
	return input
}
