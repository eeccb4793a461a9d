package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/c-hydro/shybox/pkg/descriptor"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <descriptor>",
		Short: "Validate a run descriptor without processing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := descriptor.Load(args[0])
			if err != nil {
				return err
			}
			if verr := descriptor.NewValidator(logger).Validate(doc); verr != nil {
				return verr
			}
			fmt.Printf("%s: valid\n", args[0])
			return nil
		},
	}
}
