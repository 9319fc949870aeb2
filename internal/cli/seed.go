package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/staffdesk/internal/core/tables"
	"github.com/JonMunkholm/staffdesk/internal/seed"
)

func newSeedCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file>",
		Short: "Load fixture employees from YAML into an empty store",
		Long: `Load employees from a YAML seed document. Nothing is loaded when the
store already holds employees.

  employees:
    - payrollNumber: COOP08
      forenames: John
      surname: William
      dateOfBirth: 1955-01-26`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			n, err := seed.File(cmd.Context(), s.store, tables.Employees(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d employees\n", n)
			return nil
		},
	}
}
