package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iliyamo/screen-seat-reservation/internal/repository"
)

func newMigrateCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withStore(cmd.Context(), true, func(repository.Store) error {
				fmt.Fprintf(cmd.OutOrStdout(), "schema ready (%s)\n", rt.cfg.StoreDriver)
				return nil
			})
		},
	}
}
