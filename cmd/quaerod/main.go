// quaerod is the Quaero research daemon. It serves the research pipeline
// over HTTP with SSE streaming for live progress.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quaero-ai/quaero/pkg/config"
	"github.com/quaero-ai/quaero/pkg/httpapi"
	"github.com/quaero-ai/quaero/pkg/llm"
	"github.com/quaero-ai/quaero/pkg/memory"
	memopenai "github.com/quaero-ai/quaero/pkg/memory/openai"
	"github.com/quaero-ai/quaero/pkg/memory/qdrant"
	"github.com/quaero-ai/quaero/pkg/pipeline"
	"github.com/quaero-ai/quaero/pkg/research"
	"github.com/quaero-ai/quaero/pkg/search"
	"github.com/quaero-ai/quaero/pkg/task"
	"github.com/quaero-ai/quaero/pkg/telemetry"
)

var version = "dev"

func main() {
	cfgPath := flag.String("config", "", "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("quaerod", version)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *cfgPath); err != nil {
		slog.Error("quaerod exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := telemetry.ConfigureSlog(os.Stdout, cfg.Log.Level, cfg.Log.Format)

	shutdownTelemetry, err := telemetry.InitWithConfig("quaerod", version, telemetry.Config{
		Exporter:     cfg.Telemetry.Exporter,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure: cfg.Telemetry.OTLPInsecure,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown", "error", err)
		}
	}()

	provider, err := buildProvider(cfg.LLM)
	if err != nil {
		return err
	}
	searcher := buildSearcher(cfg.Search)
	mem := buildMemory(ctx, cfg.Memory, logger)

	store, closeStore, err := buildStore(cfg.Store)
	if err != nil {
		return fmt.Errorf("open task store: %w", err)
	}
	defer closeStore()

	metrics, err := telemetry.NewPipelineMetrics()
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	opts := []research.Option{research.WithMetrics(metrics)}
	if cfg.Pipeline.GraphPath != "" {
		graph, err := pipeline.LoadGraph(cfg.Pipeline.GraphPath)
		if err != nil {
			return fmt.Errorf("load pipeline graph: %w", err)
		}
		opts = append(opts, research.WithGraph(graph))
	}

	svc := research.NewService(provider, searcher, mem, store, opts...)
	api := httpapi.New(svc, httpapi.Health{
		LLMConfigured:    llmConfigured(cfg.LLM),
		SearchConfigured: cfg.Search.APIKey != "",
	}, version)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("quaerod listening", "addr", cfg.Server.Addr, "version", version)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
	}
	return nil
}

func buildProvider(cfg config.LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "", "openai":
		opts := []llm.OpenAIOption{llm.WithModel(cfg.Model)}
		if cfg.APIKey != "" {
			opts = append(opts, llm.WithAPIKey(cfg.APIKey))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, llm.WithBaseURL(cfg.BaseURL))
		}
		return llm.NewOpenAI(opts...), nil
	case "ollama":
		return llm.NewOllama(cfg.BaseURL), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

func buildSearcher(cfg config.SearchConfig) search.Client {
	var opts []search.TavilyOption
	if cfg.BaseURL != "" {
		opts = append(opts, search.WithTavilyBaseURL(cfg.BaseURL))
	}
	return search.NewTavily(cfg.APIKey, opts...)
}

// buildMemory returns nil when memory is disabled or unreachable. The
// pipeline treats nil memory as "no past research context".
func buildMemory(ctx context.Context, cfg config.MemoryConfig, logger *slog.Logger) *memory.ResearchMemory {
	if !cfg.Enabled {
		return nil
	}

	var store memory.VectorStore
	switch cfg.Provider {
	case "inmemory":
		store = memory.NewInMemoryStore()
	default:
		qs, err := qdrant.New(cfg.QdrantAddr)
		if err != nil {
			logger.Warn("qdrant unavailable, memory disabled", "addr", cfg.QdrantAddr, "error", err)
			return nil
		}
		store = qs
	}

	var embedder memory.Embedder
	switch cfg.EmbedderProvider {
	case "", "openai":
		embedder = memopenai.NewEmbedder(cfg.EmbedderAPIKey, cfg.EmbedderModel, cfg.EmbedderBaseURL)
	default:
		logger.Warn("unknown embedder provider, memory disabled", "provider", cfg.EmbedderProvider)
		return nil
	}
	mem := memory.NewResearchMemory(store, embedder, cfg.Collection)
	if err := mem.Initialize(ctx); err != nil {
		logger.Warn("memory initialization failed, memory disabled", "error", err)
		return nil
	}
	return mem
}

func buildStore(cfg config.StoreConfig) (task.Store, func(), error) {
	switch cfg.Driver {
	case "sqlite":
		store, db, err := task.OpenSQLiteStore(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = db.Close() }, nil
	case "", "memory":
		return task.NewMemoryStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func llmConfigured(cfg config.LLMConfig) bool {
	if cfg.Provider == "ollama" {
		return cfg.BaseURL != ""
	}
	return cfg.APIKey != "" || os.Getenv("OPENAI_API_KEY") != ""
}
