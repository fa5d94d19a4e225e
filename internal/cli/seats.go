package cli

import (
	"github.com/spf13/cobra"

	"github.com/iliyamo/screen-seat-reservation/internal/booking"
	"github.com/iliyamo/screen-seat-reservation/internal/repository"
)

func newSeatsCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "seats <screen>",
		Short: "List the unreserved seats of a screen",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withStore(cmd.Context(), false, func(store repository.Store) error {
				id, err := booking.NewCatalog(store).ResolveScreen(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				seats, err := booking.NewEngine(store).GetAvailableSeats(cmd.Context(), id)
				if err != nil {
					return err
				}
				renderAvailability(cmd.OutOrStdout(), args[0], seats)
				return nil
			})
		},
	}
}
