package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/wilbur182/filescope/internal/loader"
	"github.com/wilbur182/filescope/internal/window"
)

// maxStalls bounds how often a window is requested again after a response
// that loaded none of its missing rows.
const maxStalls = 3

// slot tracks one page-aligned window of the listing.
type slot struct {
	pending bool
	issued  bool
	missing int // unloaded rows when last requested
	stalls  int
}

// dump pages through every row matching query and writes them as a table.
// Windows of page rows are fetched with up to concurrency requests in flight.
// A window the endpoint answers short is requested again from its first
// unloaded row.
func dump(ctx context.Context, w io.Writer, coord *loader.Coordinator, query string, page, concurrency int) error {
	if page <= 0 {
		page = loader.DefaultFirstLimit
	}

	first := coord.SetCriterion(query)
	if first == nil {
		first = coord.Start()
	}

	var fetchErr error
	slots := make(map[int]*slot)
	handle := func(msg tea.Msg) tea.Cmd {
		if m, ok := msg.(loader.RangeResultMsg); ok {
			if m.Err != nil && fetchErr == nil {
				fetchErr = m.Err
			}
			if s := slots[m.Request.Offset/page*page]; s != nil {
				s.pending = false
			}
		}
		if !coord.Update(msg) || fetchErr != nil {
			return nil
		}

		store := coord.Store()
		n := store.Matching()
		var cmds []tea.Cmd
		for off := 0; off < n; off += page {
			r := window.Range{Offset: off, Limit: min(page, n-off)}
			s := slots[off]
			if s == nil {
				s = &slot{}
				slots[off] = s
			}
			if s.pending {
				continue
			}
			missing := store.Missing(r)
			if len(missing) == 0 {
				continue
			}
			left := 0
			for _, m := range missing {
				left += m.Limit
			}
			if s.issued && left >= s.missing {
				s.stalls++
				if s.stalls >= maxStalls {
					fetchErr = fmt.Errorf("window %s: no rows after %d requests", r, s.stalls)
					return nil
				}
			} else {
				s.stalls = 0
			}

			from := missing[0].Offset
			if cmd := coord.EnsureRange(from, r.End()-from); cmd != nil {
				s.pending, s.issued, s.missing = true, true, left
				cmds = append(cmds, cmd)
			}
		}
		return tea.Batch(cmds...)
	}

	if err := loader.RunConcurrent(ctx, first, concurrency, handle); err != nil {
		return err
	}
	if fetchErr != nil {
		return fmt.Errorf("%s%w", loader.ErrorPrefix, fetchErr)
	}

	store := coord.Store()
	all := window.Range{Offset: 0, Limit: store.Matching()}
	if missing := store.Missing(all); len(missing) > 0 {
		return fmt.Errorf("listing incomplete: %d ranges missing, first %s", len(missing), missing[0])
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tID\tUID\tNAME\tCREATED")
	for i := 0; i < store.Matching(); i++ {
		row := store.RowAt(i)
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			row.Index, row.String("id"), row.String("uid"), row.String("name"), row.String("file_created_at"))
	}
	fmt.Fprintf(tw, "\nMatched %d of %d\n", store.Matching(), store.Total())
	return tw.Flush()
}
