// Package apiserver is the thin HTTP surface of the gateway, wiring
// chi routes directly onto the query planner, the classification
// queue, and the taxonomy/health endpoints with no business logic of
// its own -- that lives in internal/search, internal/sync, and their
// peers.
package apiserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/qdrant/go-client/qdrant"

	"github.com/agentauri/gateway/internal/agent"
	"github.com/agentauri/gateway/internal/search"
	"github.com/agentauri/gateway/internal/vectorstore"
)

// Planner is the subset of *internal/search.Planner the HTTP surface
// drives.
type Planner interface {
	Plan(ctx context.Context, req search.Request) (search.Response, error)
}

// PayloadStore is the subset of *internal/vectorstore.Store the agent
// detail and chain-count endpoints read from.
type PayloadStore interface {
	GetByIDs(ctx context.Context, ids []agent.Identifier) ([]vectorstore.ScoredPoint, error)
	Count(ctx context.Context, f *qdrant.Filter) (uint64, error)
	Ping(ctx context.Context) error
}

// ClassificationStore is the subset of *internal/store.Store the
// classify endpoints drive.
type ClassificationStore interface {
	Enqueue(ctx context.Context, id agent.Identifier, force bool) error
	JobStatus(ctx context.Context, id agent.Identifier) (agent.ClassificationJobStatus, bool, error)
	LoadClassification(ctx context.Context, id agent.Identifier) (agent.Classification, bool, error)
}

// RelationalPinger is the narrow liveness surface GET /health checks
// against the relational store.
type RelationalPinger interface {
	Ping(ctx context.Context) error
}

// Config wires the HTTP surface's dependencies and runtime knobs
// (rate-limit tiers, listen address).
type Config struct {
	Addr string

	Planner         Planner
	Payloads        PayloadStore
	Classifier      ClassificationStore
	RelationalStore RelationalPinger

	KnownChains        map[int64]struct{}
	HTTPClient         *http.Client
	UpstreamGraphQLURL string
	AnthropicKeySet    bool

	DefaultRateLimitRPM int
	RateLimitTiers      map[string]int
}

// Server is the composed HTTP surface.
type Server struct {
	addr string
	http *http.Server

	planner    Planner
	payloads   PayloadStore
	classifier ClassificationStore

	relationalStore    RelationalPinger
	knownChains        map[int64]struct{}
	httpClient         *http.Client
	upstreamGraphQLURL string
	anthropicKeySet    bool

	limiter *rateLimiter
}

// New builds a Server and wires its routes; it does not start listening
// until ListenAndServe is called.
func New(cfg Config) *Server {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	s := &Server{
		addr:               cfg.Addr,
		planner:            cfg.Planner,
		payloads:           cfg.Payloads,
		classifier:         cfg.Classifier,
		relationalStore:    cfg.RelationalStore,
		knownChains:        cfg.KnownChains,
		httpClient:         client,
		upstreamGraphQLURL: cfg.UpstreamGraphQLURL,
		anthropicKeySet:    cfg.AnthropicKeySet,
		limiter:            newRateLimiter(cfg.DefaultRateLimitRPM, cfg.RateLimitTiers),
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(requestIDMiddleware)
	router.Use(s.limiter.middleware)

	router.Get("/health", s.handleHealth)
	router.Get("/taxonomy", s.handleTaxonomy)
	router.Get("/chains", s.handleListChains)
	router.Get("/agents", s.handleListAgents)
	router.Get("/agents/{id}", s.handleGetAgent)
	router.Post("/agents/{id}/classify", s.handlePostClassify)
	router.Get("/agents/{id}/classify", s.handleGetClassify)
	router.Post("/search", s.handleSearch)

	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// ListenAndServe blocks serving HTTP until the listener errors or is
// shut down.
func (s *Server) ListenAndServe() error {
	return s.http.ListenAndServe()
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
