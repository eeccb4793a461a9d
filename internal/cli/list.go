package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/c-hydro/shybox/internal/store"
)

func newListCmd() *cobra.Command {
	var (
		flagDB    string
		flagLimit int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List persisted runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.NewSQLiteStore(flagDB, logger)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer st.Close()
			if err := st.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migrate database: %w", err)
			}

			runs, err := st.ListRuns(cmd.Context(), flagLimit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATE\tTIMESTAMPS\tFAILED\tSKIPPED\tCREATED\tDESCRIPTOR")
			for _, run := range runs {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
					run.ID, run.State, run.Timestamps, run.Failed, run.Skipped,
					run.CreatedAt.Format(time.DateTime), run.DescriptorPath)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&flagDB, "db", "shybox.db", "SQLite database path")
	cmd.Flags().IntVar(&flagLimit, "limit", 20, "Maximum number of runs to show")

	return cmd
}
