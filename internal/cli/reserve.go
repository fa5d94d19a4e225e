package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/screen-seat-reservation/internal/booking"
	"github.com/iliyamo/screen-seat-reservation/internal/repository"
)

func newReserveCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "reserve <screen> <row>=<seat>[,<seat>...]...",
		Short: "Reserve seats on a screen, all or nothing",
		Example: `  screen-seat-reservation reserve inox A=1,2 B=6
  screen-seat-reservation reserve inox A=0-3`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			seats, err := parseSeatArgs(args[1:])
			if err != nil {
				return err
			}
			return rt.withStore(cmd.Context(), false, func(store repository.Store) error {
				id, err := booking.NewCatalog(store).ResolveScreen(cmd.Context(), args[0])
				if err == nil {
					err = booking.NewEngine(store).Reserve(cmd.Context(), id, seats)
				}
				if err != nil {
					if booking.IsRejection(err) {
						return fmt.Errorf("cannot reserve specified seats: %s", rejectionReason(err))
					}
					return err
				}
				rt.log.Info("seats reserved", zap.String("screen", args[0]), zap.Any("seats", seats))
				fmt.Fprintln(cmd.OutOrStdout(), "Seats successfully reserved")
				return nil
			})
		},
	}
}

// parseSeatArgs turns ["A=1,2", "B=4-6"] into {"A": [1 2], "B": [4 5 6]}.
// A label given twice accumulates its seats.
func parseSeatArgs(args []string) (map[string][]int, error) {
	out := make(map[string][]int, len(args))
	for _, arg := range args {
		label, list, ok := strings.Cut(arg, "=")
		label = strings.TrimSpace(label)
		if !ok || label == "" || strings.TrimSpace(list) == "" {
			return nil, fmt.Errorf("invalid seat argument %q, want <row>=<seat>[,<seat>...]", arg)
		}
		for _, item := range strings.Split(list, ",") {
			item = strings.TrimSpace(item)
			lo, hi, isRange := strings.Cut(item, "-")
			first, err := strconv.Atoi(lo)
			if err != nil {
				return nil, fmt.Errorf("invalid seat %q in %q", item, arg)
			}
			if first < 0 || first >= booking.MaxRowCapacity {
				return nil, fmt.Errorf("invalid seat %q in %q", item, arg)
			}
			last := first
			if isRange {
				if last, err = strconv.Atoi(hi); err != nil || last < first || last >= booking.MaxRowCapacity {
					return nil, fmt.Errorf("invalid seat range %q in %q", item, arg)
				}
			}
			for i := 0; i <= last-first; i++ {
				out[label] = append(out[label], first+i)
			}
		}
	}
	return out, nil
}
