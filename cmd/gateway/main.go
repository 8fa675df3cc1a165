// Command gateway is the agent discovery and reputation gateway's
// composition root: it loads configuration, wires every subsystem
// (relational store, vector store, embedding/LLM clients, upstream
// GraphQL client, sync workers, the classification consumer, the
// cadence scheduler, and the HTTP surface), and runs until signalled to
// shut down.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/qdrant/go-client/qdrant"

	"github.com/agentauri/gateway/internal/apiserver"
	"github.com/agentauri/gateway/internal/capability"
	"github.com/agentauri/gateway/internal/classify"
	"github.com/agentauri/gateway/internal/config"
	"github.com/agentauri/gateway/internal/embedding"
	"github.com/agentauri/gateway/internal/graphclient"
	"github.com/agentauri/gateway/internal/llm"
	"github.com/agentauri/gateway/internal/reachability"
	"github.com/agentauri/gateway/internal/reputation"
	"github.com/agentauri/gateway/internal/scheduler"
	"github.com/agentauri/gateway/internal/search"
	"github.com/agentauri/gateway/internal/store"
	feedbacksync "github.com/agentauri/gateway/internal/sync/feedback"
	graphsync "github.com/agentauri/gateway/internal/sync/graph"
	reconcilesync "github.com/agentauri/gateway/internal/sync/reconcile"
	relationalsync "github.com/agentauri/gateway/internal/sync/relational"
	"github.com/agentauri/gateway/internal/vectorstore"
)

// classificationConsumerConcurrency is the classification consumer's
// in-process pull concurrency. Modest, since every job spends most of
// its time waiting on the LLM call.
const classificationConsumerConcurrency = 4

// classificationConsumerIdleSleep is how long the consumer sleeps
// between empty-queue polls.
const classificationConsumerIdleSleep = 5 * time.Second

// schedulerTaskTimeout bounds any single cadence task run.
const schedulerTaskTimeout = 10 * time.Minute

func main() {
	envFile := flag.String("env-file", ".env", "path to a local .env file (ignored if absent)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*envFile, true)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := build(ctx, cfg, logger)
	if err != nil {
		logger.Error("build gateway", "error", err)
		os.Exit(1)
	}
	defer app.close()

	go app.consumer.Run(ctx, func() { time.Sleep(classificationConsumerIdleSleep) })
	app.scheduler.Start()

	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	app.scheduler.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown", "error", err)
	}
}

// application holds every long-lived component main needs to start and
// stop.
type application struct {
	relational *store.Store
	vectors    *vectorstore.Store

	consumer  *classify.Consumer
	scheduler *scheduler.Scheduler
	server    *apiserver.Server
}

func (a *application) close() {
	a.relational.Close()
}

// build wires the full dependency graph: relational store, vector
// store, embedding/LLM providers, the upstream GraphQL client, every
// sync worker, the classification consumer, the cadence scheduler, and
// the HTTP surface.
func build(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	startCtx, cancel := context.WithTimeout(ctx, config.StartupTimeout)
	defer cancel()

	relational, err := store.New(startCtx, store.Config{
		DSN:           cfg.PostgresDSN,
		RunMigrations: cfg.RunMigrations,
	})
	if err != nil {
		return nil, fmt.Errorf("gateway: relational store: %w", err)
	}

	qdrantClient, err := newQdrantClient(cfg)
	if err != nil {
		relational.Close()
		return nil, fmt.Errorf("gateway: qdrant client: %w", err)
	}
	vectors, err := vectorstore.New(startCtx, vectorstore.Config{
		Client:           qdrantClient,
		CollectionName:   cfg.QdrantCollection,
		VectorDimensions: embedding.VectorDimensions,
		InitializeSchema: true,
	})
	if err != nil {
		relational.Close()
		return nil, fmt.Errorf("gateway: vector store: %w", err)
	}

	embedder := embedding.NewClient(
		embedding.NewOpenAIProvider("openai", cfg.OpenAIAPIKey, cfg.OpenAIEmbeddingModel, ""),
		embedding.NewOpenAIProvider(cfg.FallbackEmbeddingName, cfg.FallbackEmbeddingKey, cfg.FallbackEmbeddingModel, cfg.FallbackEmbeddingURL),
	)

	llmClient := llm.New(cfg.AnthropicAPIKey, cfg.HydeModel)

	gql := graphclient.New(cfg.UpstreamGraphQLURL)
	recordPuller := graphclient.NewRecordPuller(gql)
	feedbackPuller := graphclient.NewFeedbackPuller(gql)

	httpClient := &http.Client{Timeout: 10 * time.Second}
	capFetcher := capability.NewFetcher(httpClient, 0)
	reachEval := reachability.New(relational)
	repAggregator := reputation.New(relational)

	graphWorker := graphsync.New(graphsync.Config{
		Puller:                recordPuller,
		MetadataStore:         relational,
		SyncStateStore:        relational,
		VectorWriter:          vectors,
		CapabilityFetcher:     capFetcher,
		ReachabilityEvaluator: reachEval,
		EmbeddingClient:       embedder,
	})

	relationalWorker := relationalsync.New(relationalsync.Config{
		Classifications: relational,
		Reputations:     relational,
		TrustScores:     relational,
		MetadataStore:   relational,
		SyncStateStore:  relational,
		VectorWriter:    vectors,
	})

	feedbackWorker := feedbacksync.New(feedbacksync.Config{
		Puller:            feedbackPuller,
		ExistenceChecker:  relational,
		FeedbackWriter:    relational,
		ReputationUpdater: repAggregator,
		SyncStateStore:    relational,
	})

	reconcileWorker := reconcilesync.New(reconcilesync.Config{
		Upstream:        recordPuller,
		VectorIDs:       vectors,
		Vectors:         vectors,
		MetadataStore:   relational,
		SyncStateStore:  relational,
		EmbeddingClient: embedder,
	})

	consumer := classify.New(classify.Config{
		Queue:       relational,
		Agents:      classify.NewVectorAgentLoader(vectors),
		Writer:      relational,
		LLM:         llmClient,
		Concurrency: classificationConsumerConcurrency,
		OnPanic: func(err error) {
			logger.Error("classification consumer panic", "error", err)
		},
	})

	planner := buildPlanner(cfg, vectors, embedder, llmClient)

	sched := scheduler.New(schedulerTaskTimeout)
	if err := scheduler.RegisterDefaults(sched, scheduler.Deps{
		Graph:          graphWorker,
		Relational:     relationalWorker,
		Feedback:       feedbackWorker,
		Reconciliation: reconcileWorker,
		ClassifyQueue:  relational,
		Reputation:     relational,
	}); err != nil {
		relational.Close()
		return nil, fmt.Errorf("gateway: register scheduler tasks: %w", err)
	}

	server := apiserver.New(apiserver.Config{
		Addr:                cfg.HTTPAddr,
		Planner:             planner,
		Payloads:            vectors,
		Classifier:          relational,
		RelationalStore:     relational,
		KnownChains:         cfg.KnownChains(),
		HTTPClient:          httpClient,
		UpstreamGraphQLURL:  cfg.UpstreamGraphQLURL,
		AnthropicKeySet:     cfg.AnthropicAPIKey != "",
		DefaultRateLimitRPM: 600,
		RateLimitTiers:      cfg.RateLimitTiers,
	})

	return &application{
		relational: relational,
		vectors:    vectors,
		consumer:   consumer,
		scheduler:  sched,
		server:     server,
	}, nil
}

// buildPlanner wires the query planner's optional HyDE and reranker
// hooks to the shared LLM client only when their feature flags are on.
// An unset flag leaves the dependency nil, and the planner already
// treats a nil hook the same as the feature failing.
func buildPlanner(cfg config.Config, vectors *vectorstore.Store, embedder *embedding.Client, llmClient *llm.Client) *search.Planner {
	var hyde search.HyDEGenerator
	if cfg.HydeEnabled {
		hyde = llmClient
	}
	var reranker search.Reranker
	if cfg.RerankerEnabled {
		reranker = llmClient
	}

	return search.New(search.Config{
		Store:    vectors,
		Embedder: embedder,
		HyDE:     hyde,
		Reranker: reranker,
	})
}

// newQdrantClient builds a qdrant.Client from the configured Qdrant
// URL, splitting it into the host/port/TLS shape the client expects.
func newQdrantClient(cfg config.Config) (*qdrant.Client, error) {
	u, err := url.Parse(cfg.QdrantURL)
	if err != nil {
		return nil, fmt.Errorf("parse QDRANT_URL: %w", err)
	}

	host := u.Hostname()
	useTLS := u.Scheme == "https"
	port := 6334
	if p := u.Port(); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			port = n
		}
	}

	return qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.QdrantAPIKey,
		UseTLS: useTLS,
	})
}
