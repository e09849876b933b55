// Package devserver serves a fixture /rest/files endpoint backed by an
// in-memory SQLite table of synthetic files. It is used by -demo and by
// tests that need a real HTTP peer with controllable latency and failures.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/puzpuzpuz/xsync/v3"
)

// Page size bounds of the listing endpoint.
const (
	DefaultPageSize = 50
	MaxPageSize     = 1000
)

// Request is a parsed listing request.
type Request struct {
	Offset int
	Limit  int
	Query  string
}

// Options configures a Server.
type Options struct {
	Files   int           // Number of seeded files (default 1000)
	Latency time.Duration // Added to every request
	// Delay, when set, overrides Latency per request.
	Delay func(Request) time.Duration
	// FailWhen, when set and returning true, answers 500 instead of a page.
	FailWhen func(Request) bool
	Logger   *slog.Logger
}

// Server is an http.Handler for the listing endpoint.
type Server struct {
	store    *store
	opts     Options
	logger   *slog.Logger
	handler  http.Handler
	requests atomic.Int64
	byQuery  *xsync.MapOf[string, *xsync.Counter]
}

// New creates and seeds a server.
func New(ctx context.Context, opts Options) (*Server, error) {
	if opts.Files <= 0 {
		opts.Files = 1000
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.seed(ctx, opts.Files); err != nil {
		st.close()
		return nil, err
	}

	s := &Server{
		store:   st,
		opts:    opts,
		logger:  logger,
		byQuery: xsync.NewMapOf[string, *xsync.Counter](),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/files", s.handleFiles)
	s.handler = gzhttp.GzipHandler(mux)
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Requests returns the number of listing requests received.
func (s *Server) Requests() int64 {
	return s.requests.Load()
}

// RequestsFor returns the number of well-formed listing requests received
// for query.
func (s *Server) RequestsFor(query string) int64 {
	c, ok := s.byQuery.Load(query)
	if !ok {
		return 0
	}
	return c.Value()
}

// Serve answers requests on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("devserver: serve: %w", err)
	}
	return nil
}

// Close releases the database.
func (s *Server) Close() error {
	return s.store.close()
}

type listResponse struct {
	Status   string           `json:"status"`
	Files    []map[string]any `json:"files"`
	Matching int              `json:"matching"`
	Total    int              `json:"total"`
}

type errorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.requests.Add(1)

	req, err := parseRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	counter, _ := s.byQuery.LoadOrCompute(req.Query, xsync.NewCounter)
	counter.Inc()

	delay := s.opts.Latency
	if s.opts.Delay != nil {
		delay = s.opts.Delay(req)
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if s.opts.FailWhen != nil && s.opts.FailWhen(req) {
		s.logger.Debug("devserver: injected failure", "offset", req.Offset, "limit", req.Limit, "query", req.Query)
		writeError(w, http.StatusInternalServerError, "injected failure")
		return
	}

	ctx := r.Context()
	total, err := s.store.count(ctx, "")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	matching := total
	if req.Query != "" {
		if matching, err = s.store.count(ctx, req.Query); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	files, err := s.store.list(ctx, req.Query, req.Offset, req.Limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.Debug("devserver: files",
		"request_id", r.Header.Get("X-Request-ID"),
		"offset", req.Offset,
		"limit", req.Limit,
		"query", req.Query,
		"rows", len(files),
	)
	writeJSON(w, http.StatusOK, listResponse{
		Status:   "ok",
		Files:    files,
		Matching: matching,
		Total:    total,
	})
}

func parseRequest(r *http.Request) (Request, error) {
	q := r.URL.Query()
	req := Request{Limit: DefaultPageSize, Query: q.Get("query")}

	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return req, fmt.Errorf("invalid offset %q", v)
		}
		req.Offset = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return req, fmt.Errorf("invalid limit %q", v)
		}
		if n > 0 {
			req.Limit = min(n, MaxPageSize)
		}
	}
	return req, nil
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Status: "error", Error: msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
