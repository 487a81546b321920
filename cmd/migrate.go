package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/semshift/semshift/internal/engine"
	"github.com/semshift/semshift/internal/lock"
	"github.com/semshift/semshift/internal/logging"
	"github.com/semshift/semshift/internal/report"
	"github.com/semshift/semshift/internal/state"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate [source]",
	Short: "Run the full migration end to end",
	Long: `Run extract, inference, translation, assembly, emission, validation,
and reporting in one pass, recording progress in the state file. Only
one migration can run at a time.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig()
		if err != nil {
			return err
		}
		if len(args) > 0 {
			cfg.Source.Path = args[0]
		}
		cfg.Logging.Level = logLevel

		logger, err := logging.Setup(cfg.Logging)
		if err != nil {
			return fmt.Errorf("configuring logging: %w", err)
		}

		if err := lock.Acquire(""); err != nil {
			return fmt.Errorf("acquiring migration lock: %w", err)
		}
		defer func() {
			if err := lock.Release(""); err != nil {
				logger.Warn("releasing migration lock", "error", err)
			}
		}()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		eng := engine.New(cfg, logger)
		eng.OnProgress = func(p engine.Progress) {
			fmt.Printf("  [%3d%%] %s: %s\n", p.Percent, p.Phase, p.Message)
		}

		st, err := state.Load("")
		if err != nil {
			return fmt.Errorf("loading state: %w", err)
		}
		st.SourcePath = cfg.Source.Path
		st.MigrationStatus = "running"
		if err := st.Save(""); err != nil {
			return fmt.Errorf("saving state: %w", err)
		}

		res, err := eng.Run(ctx)
		if err != nil {
			st.MigrationStatus = "failed"
			_ = st.Save("")
			return fmt.Errorf("migration: %w", err)
		}

		st.ProjectPath = res.ProjectPath
		st.GuidePath = res.GuidePath
		st.ReportPath = res.ReportPath
		st.MigrationStatus = "completed"
		st.CompleteStep(state.StepExtract, state.StepConvert)
		st.CompleteStep(state.StepConvert, state.StepGenerate)
		st.CompleteStep(state.StepGenerate, state.StepValidate)
		st.CompleteStep(state.StepValidate, state.StepReport)
		st.CompleteStep(state.StepReport, state.StepComplete)
		if err := st.Save(""); err != nil {
			return fmt.Errorf("saving state: %w", err)
		}

		if res.Report != nil {
			fmt.Println()
			fmt.Print(report.FormatText(res.Report))
		}
		fmt.Printf("\nProject written to %s\n", res.ProjectPath)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
