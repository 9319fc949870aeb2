package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/staffdesk/internal/core"
)

func newQueryCommand(opts *options) *cobra.Command {
	var filters string

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query employees",
		Long: `Query employees with a grid request and print JSON.

Without --filters every employee is printed in surname order. With it the
request is paged, sorted and filtered and the output is {"data", "total"}.

Examples:
  staffctl query
  staffctl query --filters '{"take":20,"sort":[{"field":"startDate","dir":"desc"}]}'
  staffctl query --filters '{"filter":{"logic":"or","filters":[
      {"field":"surname","operator":"eq","value":"Jackson"},
      {"field":"postcode","operator":"startswith","value":"GU"}]}}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			svc := s.service()
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			if filters == "" {
				list, err := svc.List(cmd.Context())
				if err != nil {
					return err
				}
				if list == nil {
					return enc.Encode([]any{})
				}
				return enc.Encode(list)
			}

			req, err := core.ParseRequest([]byte(filters))
			if err != nil {
				return err
			}
			result, err := svc.Query(cmd.Context(), req)
			if err != nil {
				return err
			}
			return enc.Encode(result)
		},
	}

	cmd.Flags().StringVar(&filters, "filters", "", "JSON grid request (take, skip, sort, filter, all)")
	return cmd
}
