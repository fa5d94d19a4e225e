package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/screen-seat-reservation/internal/booking"
	"github.com/iliyamo/screen-seat-reservation/internal/config"
	"github.com/iliyamo/screen-seat-reservation/internal/model"
	"github.com/iliyamo/screen-seat-reservation/internal/repository"
)

func newScreensCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "screens",
		Short: "Register and inspect screens",
	}
	cmd.AddCommand(newScreensRegisterCommand(rt))
	cmd.AddCommand(newScreensLayoutCommand(rt))
	return cmd
}

type registerFlags struct {
	file string
}

func newScreensRegisterCommand(rt *runtime) *cobra.Command {
	flags := &registerFlags{}
	cmd := &cobra.Command{
		Use:   "register -f layout.yaml",
		Short: "Register every screen declared in a YAML layout file",
		Long: `Register every screen declared in a YAML layout file:

  screens:
    - name: inox
      rows:
        A: 10
        B: 15

Each screen is registered on its own; a duplicate name is reported and the
remaining screens are still registered.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			layouts, err := config.LoadScreenLayouts(flags.file)
			if err != nil {
				return err
			}
			return rt.withStore(cmd.Context(), rt.cfg.AutoMigrate, func(store repository.Store) error {
				catalog := booking.NewCatalog(store)
				regs := make([]registration, 0, len(layouts))
				failed := 0
				for _, l := range layouts {
					reg := registration{Name: l.Name, Rows: len(l.Rows), Result: "registered"}
					for _, n := range l.Rows {
						reg.Seats += n
					}
					id, err := catalog.RegisterScreen(cmd.Context(), l.Name, l.Rows)
					switch {
					case err == nil:
						reg.ID = id
					case booking.IsRejection(err):
						reg.Result = rejectionReason(err)
						failed++
					default:
						return fmt.Errorf("register %q: %w", l.Name, err)
					}
					rt.log.Debug("register screen", zap.String("screen", l.Name), zap.Error(err))
					regs = append(regs, reg)
				}
				renderRegistrations(cmd.OutOrStdout(), regs)
				if failed > 0 {
					return fmt.Errorf("%d of %d screens not registered", failed, len(layouts))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&flags.file, "file", "f", "", "layout file (YAML)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newScreensLayoutCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "layout <screen>",
		Short: "Show capacity and occupancy of every row of a screen",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withStore(cmd.Context(), false, func(store repository.Store) error {
				catalog := booking.NewCatalog(store)
				id, err := catalog.ResolveScreen(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				rows, err := catalog.ListRows(cmd.Context(), id)
				if err != nil {
					return err
				}
				renderLayout(cmd.OutOrStdout(), model.Screen{ID: id, Name: args[0]}, rows)
				return nil
			})
		},
	}
}

// rejectionReason is a short label for a business rejection.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, booking.ErrDuplicateName):
		return "duplicate name"
	case errors.Is(err, booking.ErrInvalidInput):
		return "invalid layout"
	case errors.Is(err, booking.ErrScreenNotFound):
		return "screen not found"
	case errors.Is(err, booking.ErrRowNotFound):
		return "row not found"
	case errors.Is(err, booking.ErrInvalidSeat):
		return "invalid seat"
	case errors.Is(err, booking.ErrSeatTaken):
		return "seat taken"
	default:
		return err.Error()
	}
}
