package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/c-hydro/shybox/internal/config"
	"github.com/c-hydro/shybox/internal/orchestrator"
	"github.com/c-hydro/shybox/internal/store"
	"github.com/c-hydro/shybox/internal/timeseq"
	"github.com/c-hydro/shybox/pkg/descriptor"
)

func newRunCmd() *cobra.Command {
	cfg := config.DefaultRunnerConfig()
	var (
		flagJSON            bool
		flagUpdateNamelist  bool
		flagUpdateExecution bool
	)

	cmd := &cobra.Command{
		Use:   "run <descriptor>",
		Short: "Process a run descriptor over its time sequence",
		Long: `Loads the descriptor, generates the timestamp sequence, and for each
timestamp resolves variables, writes the namelist, and builds the
execution descriptor. Exits non-zero when any timestamp fails.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.DescriptorPath = args[0]

			doc, err := descriptor.Load(cfg.DescriptorPath)
			if err != nil {
				return err
			}
			if verr := descriptor.NewValidator(logger).Validate(doc); verr != nil {
				return verr
			}

			// Command-line overrides of the descriptor's idempotency flags.
			if cmd.Flags().Changed("update-namelist") {
				doc.Settings.Flags.UpdateNamelist = flagUpdateNamelist
			}
			if cmd.Flags().Changed("update-execution") {
				doc.Settings.Flags.UpdateExecution = flagUpdateExecution
			}

			opts := []orchestrator.Option{
				orchestrator.WithDescriptorPath(cfg.DescriptorPath),
				orchestrator.WithEnvironment(processEnvironment()),
				orchestrator.WithWorkers(cfg.Workers),
			}
			if cfg.RunTime != "" {
				t, err := timeseq.ParseTimestamp(cfg.RunTime)
				if err != nil {
					return err
				}
				opts = append(opts, orchestrator.WithRunTime(t))
			}
			if cfg.DBPath != "" {
				st, err := store.NewSQLiteStore(cfg.DBPath, logger)
				if err != nil {
					return fmt.Errorf("open database: %w", err)
				}
				defer st.Close()
				if err := st.Migrate(cmd.Context()); err != nil {
					return fmt.Errorf("migrate database: %w", err)
				}
				opts = append(opts, orchestrator.WithStore(st))
			}

			run, report, err := orchestrator.New(doc, logger, opts...).Run(cmd.Context())
			if err != nil {
				return err
			}

			if flagJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				fmt.Printf("run %s: %s (%d timestamps, %d succeeded, %d failed, %d skipped)\n",
					run.ID, run.State, run.Timestamps, run.Succeeded, run.Failed, run.Skipped)
				for _, f := range report.Failures() {
					fmt.Printf("  %s  %s: %s\n",
						f.Timestamp.Format(time.DateTime), f.ErrorKind, f.Error)
				}
			}

			if run.Failed > 0 {
				return fmt.Errorf("%d of %d timestamps failed", run.Failed, run.Timestamps)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&cfg.RunTime, "time", "t", "", "Run time (e.g. 2025-01-01 06:00 or 202501010600)")
	cmd.Flags().IntVarP(&cfg.Workers, "workers", "w", cfg.Workers, "Concurrent timestamp workers (0 for unlimited)")
	cmd.Flags().StringVar(&cfg.DBPath, "db", "", "SQLite database for run provenance (disabled when empty)")
	cmd.Flags().BoolVar(&flagJSON, "json", false, "Write the full report as JSON to stdout")
	cmd.Flags().BoolVar(&flagUpdateNamelist, "update-namelist", false, "Override the descriptor's update_namelist flag")
	cmd.Flags().BoolVar(&flagUpdateExecution, "update-execution", false, "Override the descriptor's update_execution flag")

	return cmd
}
