package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wilbur182/filescope/internal/devserver"
	"github.com/wilbur182/filescope/internal/loader"
	"github.com/wilbur182/filescope/internal/remote"
	"github.com/wilbur182/filescope/internal/session"
	"github.com/wilbur182/filescope/internal/window"
)

func newDumpCoordinator(t *testing.T, opts devserver.Options) *loader.Coordinator {
	t.Helper()

	srv, err := devserver.New(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	client := remote.New(ts.URL, remote.Options{MaxInFlight: 4})
	coord := loader.New(session.New(), client, loader.Config{DedupeInFlight: true})
	t.Cleanup(coord.Close)
	return coord
}

func TestDumpPagesThroughMatches(t *testing.T) {
	coord := newDumpCoordinator(t, devserver.Options{Files: 400})

	var out bytes.Buffer
	require.NoError(t, dump(context.Background(), &out, coord, "invoice", 20, 4))

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 1+50+2)
	assert.True(t, strings.HasPrefix(lines[0], "INDEX"))
	assert.Contains(t, lines[1], devserver.SeedName(400))
	assert.Contains(t, lines[50], devserver.SeedName(8))
	assert.Equal(t, "Matched 50 of 400", lines[len(lines)-1])

	for i := 0; i < 50; i++ {
		assert.True(t, coord.Store().IsLoaded(i), "row %d", i)
	}
}

func TestDumpRefillsShortPages(t *testing.T) {
	coord := newDumpCoordinator(t, devserver.Options{Files: 2500})

	// the devserver caps each page at MaxPageSize rows
	var out bytes.Buffer
	require.NoError(t, dump(context.Background(), &out, coord, "", 2*devserver.MaxPageSize, 4))

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 1+2500+2)
	assert.Equal(t, "Matched 2500 of 2500", lines[len(lines)-1])
	assert.True(t, coord.Store().Complete(window.Range{Offset: 0, Limit: 2500}))
}

// truncatedFiles claims matching rows but never serves past served.
type truncatedFiles struct {
	matching, served int

	mu    sync.Mutex
	calls int
}

func (f *truncatedFiles) ListFiles(_ context.Context, q remote.Query) (*remote.Page, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	var files []map[string]any
	for i := q.Offset; i < q.Offset+q.Limit && i < f.served; i++ {
		files = append(files, map[string]any{"id": i + 1, "name": fmt.Sprintf("file-%d", i)})
	}
	return &remote.Page{Files: files, Matching: f.matching, Total: f.matching}, nil
}

func TestDumpGivesUpOnStalledWindow(t *testing.T) {
	src := &truncatedFiles{matching: 50, served: 10}
	coord := loader.New(session.New(), src, loader.Config{DedupeInFlight: true, FirstLimit: 20})
	t.Cleanup(coord.Close)

	err := dump(context.Background(), &bytes.Buffer{}, coord, "", 20, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no rows after 3 requests")
	assert.LessOrEqual(t, src.calls, 1+3*3)
}

func TestDumpEmptyQueryUsesFirstWindow(t *testing.T) {
	coord := newDumpCoordinator(t, devserver.Options{Files: 60})

	var out bytes.Buffer
	require.NoError(t, dump(context.Background(), &out, coord, "", 0, 2))
	assert.Contains(t, out.String(), "Matched 60 of 60")
	assert.Equal(t, uint64(0), coord.Session().Generation())
}

func TestDumpReportsFetchFailure(t *testing.T) {
	coord := newDumpCoordinator(t, devserver.Options{
		Files:    300,
		FailWhen: func(r devserver.Request) bool { return r.Offset >= 100 },
	})

	var out bytes.Buffer
	err := dump(context.Background(), &out, coord, "", 100, 2)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), loader.ErrorPrefix), err.Error())
	assert.Empty(t, out.String())
}

func TestDumpCancelled(t *testing.T) {
	coord := newDumpCoordinator(t, devserver.Options{Files: 10})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := dump(ctx, &bytes.Buffer{}, coord, "", 10, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
