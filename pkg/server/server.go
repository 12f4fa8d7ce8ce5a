// Package server exposes name resolution over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/plebnames/go-plebnames/pkg/resolver"
	"github.com/plebnames/go-plebnames/pkg/types"
)

// DefaultMaxBatch bounds the names accepted by one batch request.
const DefaultMaxBatch = 100

// NameResolver is the resolution surface served over HTTP. *resolver.Resolver
// implements it.
type NameResolver interface {
	Resolve(ctx context.Context, name string) (*types.Resolution, error)
	ResolveMany(ctx context.Context, inputs []string) ([]resolver.Result, error)
	Snapshot(ctx context.Context, name string) (*types.Resolution, error)
	Address(name string) (normalized, padAddress string, err error)
}

var _ NameResolver = (*resolver.Resolver)(nil)

// Options configures a Server.
type Options struct {
	// Gatherer backs GET /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
	MaxBatch int
	Logger   *slog.Logger
}

// Server holds the HTTP handlers.
type Server struct {
	resolver NameResolver
	gatherer prometheus.Gatherer
	maxBatch int
	logger   *slog.Logger
}

// New creates a Server backed by res.
func New(res NameResolver, opts Options) *Server {
	if opts.MaxBatch <= 0 {
		opts.MaxBatch = DefaultMaxBatch
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Server{
		resolver: res,
		gatherer: opts.Gatherer,
		maxBatch: opts.MaxBatch,
		logger:   opts.Logger,
	}
}

// Routes returns the router with every endpoint mounted.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1/names", func(r chi.Router) {
		r.Post("/resolve", s.handleResolveMany)
		r.Get("/{name}", s.handleResolve)
		r.Get("/{name}/address", s.handleAddress)
		r.Get("/{name}/changes", s.handleChanges)
		r.Get("/{name}/snapshot", s.handleSnapshot)
	})

	return r
}

// ListenAndServe serves the API on addr until ctx ends.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP API listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	resolution, err := s.resolver.Resolve(r.Context(), name)
	if err != nil {
		s.writeError(w, r, name, err)
		return
	}
	writeJSON(w, http.StatusOK, resolution)
}

// addressResponse is the body of GET /v1/names/{name}/address.
type addressResponse struct {
	Name           string `json:"name"`
	NormalizedName string `json:"normalizedName"`
	PadAddress     string `json:"padAddress"`
}

func (s *Server) handleAddress(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	normalized, address, err := s.resolver.Address(name)
	if err != nil {
		s.writeError(w, r, name, err)
		return
	}
	writeJSON(w, http.StatusOK, addressResponse{
		Name:           name,
		NormalizedName: normalized,
		PadAddress:     address,
	})
}

// changesResponse is the body of GET /v1/names/{name}/changes.
type changesResponse struct {
	Name           string                 `json:"name"`
	NormalizedName string                 `json:"normalizedName"`
	Status         types.ResolutionStatus `json:"status"`
	Changes        []types.Record         `json:"changes"`
}

func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	resolution, err := s.resolver.Resolve(r.Context(), name)
	if err != nil {
		s.writeError(w, r, name, err)
		return
	}

	changes := resolution.Changes
	if changes == nil {
		changes = []types.Record{}
	}
	writeJSON(w, http.StatusOK, changesResponse{
		Name:           resolution.Name,
		NormalizedName: resolution.NormalizedName,
		Status:         resolution.Status,
		Changes:        changes,
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	resolution, err := s.resolver.Snapshot(r.Context(), name)
	if err != nil {
		s.writeError(w, r, name, err)
		return
	}
	writeJSON(w, http.StatusOK, resolution)
}

// batchRequest is the body of POST /v1/names/resolve.
type batchRequest struct {
	Names []string `json:"names"`
}

// batchResult is one entry of the batch response, in request order.
type batchResult struct {
	Name       string            `json:"name"`
	Resolution *types.Resolution `json:"resolution,omitempty"`
	Error      *errorResponse    `json:"error,omitempty"`
}

type batchResponse struct {
	Results []batchResult `json:"results"`
}

func (s *Server) handleResolveMany(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "request body must be {\"names\": [...]}", Code: CodeInvalidRequest})
		return
	}
	if len(req.Names) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "names must not be empty", Code: CodeInvalidRequest})
		return
	}
	if len(req.Names) > s.maxBatch {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "too many names in one request", Code: CodeInvalidRequest})
		return
	}

	results, err := s.resolver.ResolveMany(r.Context(), req.Names)
	if err != nil {
		s.writeError(w, r, "", err)
		return
	}

	resp := batchResponse{Results: make([]batchResult, len(results))}
	for i, res := range results {
		resp.Results[i] = batchResult{Name: res.Name, Resolution: res.Resolution}
		if res.Err != nil {
			_, body := classify(res.Err)
			resp.Results[i].Error = &body
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
