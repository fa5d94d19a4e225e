package cli

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/iliyamo/screen-seat-reservation/internal/model"
)

// formatSeatRanges compresses ascending seat numbers into ranges, e.g.
// [0 1 2 5 7 8] becomes "0-2, 5, 7-8".  An empty list renders as "-".
func formatSeatRanges(seats []int) string {
	if len(seats) == 0 {
		return "-"
	}
	var parts []string
	start, prev := seats[0], seats[0]
	flush := func() {
		if start == prev {
			parts = append(parts, strconv.Itoa(start))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", start, prev))
		}
	}
	for _, s := range seats[1:] {
		if s == prev+1 {
			prev = s
			continue
		}
		flush()
		start, prev = s, s
	}
	flush()
	return strings.Join(parts, ", ")
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

// renderAvailability prints one line per row with its free seats.
func renderAvailability(w io.Writer, screen string, seats map[string][]int) {
	labels := make([]string, 0, len(seats))
	for label := range seats {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	t := newTable(w)
	t.SetTitle("Screen " + screen)
	t.AppendHeader(table.Row{"Row", "Free", "Seats"})
	total := 0
	for _, label := range labels {
		free := seats[label]
		total += len(free)
		t.AppendRow(table.Row{label, len(free), formatSeatRanges(free)})
	}
	t.AppendFooter(table.Row{"Total", total, ""})
	t.Render()
}

// renderLayout prints capacity and occupancy of every row.
func renderLayout(w io.Writer, screen model.Screen, rows []model.Row) {
	t := newTable(w)
	t.SetTitle(fmt.Sprintf("Screen %s (#%d)", screen.Name, screen.ID))
	t.AppendHeader(table.Row{"Row", "Capacity", "Reserved", "Free"})
	var capacity, reserved int
	for _, r := range rows {
		n := r.Occupied.Len()
		capacity += r.Capacity
		reserved += n
		t.AppendRow(table.Row{r.Label, r.Capacity, n, r.Capacity - n})
	}
	t.AppendFooter(table.Row{"Total", capacity, reserved, capacity - reserved})
	t.Render()
}

// registration is one line of the screens register report.
type registration struct {
	Name   string
	ID     uint64
	Rows   int
	Seats  int
	Result string
}

func renderRegistrations(w io.Writer, regs []registration) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Screen", "ID", "Rows", "Seats", "Result"})
	for _, r := range regs {
		id := "-"
		if r.ID != 0 {
			id = strconv.FormatUint(r.ID, 10)
		}
		t.AppendRow(table.Row{r.Name, id, r.Rows, r.Seats, r.Result})
	}
	t.Render()
}
