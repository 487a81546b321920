package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/semshift/semshift/internal/engine"
	"github.com/semshift/semshift/internal/logging"
	"github.com/semshift/semshift/internal/state"
)

var (
	generateOutput  string
	generateName    string
	generateNoGuide bool
)

var generateCmd = &cobra.Command{
	Use:   "generate [source]",
	Short: "Generate the PBIP project",
	Long: `Run the pipeline and emit a PBIP project: TMDL model definition,
per-table Power Query partitions, report pages, and theme.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig()
		if err != nil {
			return err
		}
		if len(args) > 0 {
			cfg.Source.Path = args[0]
		}
		if generateOutput != "" {
			cfg.Output.Dir = generateOutput
		}
		if generateName != "" {
			cfg.Output.ProjectName = generateName
		}
		cfg.Logging.Level = logLevel

		logger, err := logging.Setup(cfg.Logging)
		if err != nil {
			return fmt.Errorf("configuring logging: %w", err)
		}

		eng := engine.New(cfg, logger)
		eng.NoGuide = generateNoGuide
		eng.OnProgress = func(p engine.Progress) {
			fmt.Printf("  [%3d%%] %s: %s\n", p.Percent, p.Phase, p.Message)
		}

		res, err := eng.Run(context.Background())
		if err != nil {
			return fmt.Errorf("generating project: %w", err)
		}

		for _, w := range res.Warnings {
			fmt.Printf("  warning: %s\n", w)
		}
		fmt.Printf("\nProject written to %s\n", res.ProjectPath)
		if res.GuidePath != "" {
			fmt.Printf("Guide: %s\n", res.GuidePath)
		}

		st, err := state.Load("")
		if err != nil {
			return fmt.Errorf("loading state: %w", err)
		}
		st.ProjectPath = res.ProjectPath
		st.GuidePath = res.GuidePath
		st.ReportPath = res.ReportPath
		st.CompleteStep(state.StepGenerate, state.StepValidate)
		if err := st.Save(""); err != nil {
			return fmt.Errorf("saving state: %w", err)
		}

		return nil
	},
}

func init() {
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "output directory (default from config)")
	generateCmd.Flags().StringVar(&generateName, "name", "", "project name (default: source file name)")
	generateCmd.Flags().BoolVar(&generateNoGuide, "no-guide", false, "skip the migration guide")
	rootCmd.AddCommand(generateCmd)
}
