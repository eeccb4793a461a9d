package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/c-hydro/shybox/internal/orchestrator"
	"github.com/c-hydro/shybox/internal/timeseq"
	"github.com/c-hydro/shybox/pkg/descriptor"
)

func newTimeCmd() *cobra.Command {
	var flagTime string

	cmd := &cobra.Command{
		Use:   "time <descriptor>",
		Short: "Print the timestamp sequence a descriptor would generate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := descriptor.Load(args[0])
			if err != nil {
				return err
			}

			opts := []orchestrator.Option{orchestrator.WithDescriptorPath(args[0])}
			if flagTime != "" {
				t, err := timeseq.ParseTimestamp(flagTime)
				if err != nil {
					return err
				}
				opts = append(opts, orchestrator.WithRunTime(t))
			}

			sequence, err := orchestrator.New(doc, logger, opts...).TimeSequence()
			if err != nil {
				return err
			}
			for _, ts := range sequence {
				fmt.Println(ts.Format(time.DateTime))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&flagTime, "time", "t", "", "Run time (e.g. 2025-01-01 06:00 or 202501010600)")

	return cmd
}
