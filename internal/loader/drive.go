package loader

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"
)

// Run executes cmd outside a tea.Program. Batched commands are expanded and
// run one at a time; every resulting message goes to handle, whose returned
// command is run in turn. Run returns when no work is left.
func Run(cmd tea.Cmd, handle func(tea.Msg) tea.Cmd) {
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		msg := next()
		if batch, ok := msg.(tea.BatchMsg); ok {
			queue = append(queue, batch...)
			continue
		}
		if msg == nil {
			continue
		}
		queue = append(queue, handle(msg))
	}
}

// RunConcurrent is Run with up to limit commands executing at once. handle is
// only ever called from the calling goroutine, so it may touch loop-owned
// state such as a Coordinator. On cancellation RunConcurrent returns at once;
// commands still executing are abandoned.
func RunConcurrent(ctx context.Context, cmd tea.Cmd, limit int, handle func(tea.Msg) tea.Cmd) error {
	if limit <= 0 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	msgs := make(chan tea.Msg, limit)
	queue := []tea.Cmd{cmd}
	running := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		for running < limit && len(queue) > 0 {
			next := queue[0]
			queue = queue[1:]
			if next == nil {
				continue
			}
			running++
			g.Go(func() error {
				msg := next()
				select {
				case msgs <- msg:
					return nil
				case <-gctx.Done():
					return gctx.Err()
				}
			})
		}
		if running == 0 {
			break
		}

		select {
		case <-gctx.Done():
			return ctx.Err()
		case msg := <-msgs:
			running--
			switch m := msg.(type) {
			case nil:
			case tea.BatchMsg:
				queue = append(queue, m...)
			default:
				queue = append(queue, handle(m))
			}
		}
	}
	return g.Wait()
}
