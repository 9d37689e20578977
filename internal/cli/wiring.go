package cli

import (
	"fmt"
	"log/slog"

	"docqa/config"
	"docqa/internal/adapter/analyzer"
	"docqa/internal/adapter/cache"
	"docqa/internal/adapter/chunker"
	"docqa/internal/adapter/embedding"
	"docqa/internal/adapter/extract"
	"docqa/internal/adapter/llm"
	"docqa/internal/adapter/memstore"
	"docqa/internal/adapter/retriever"
	"docqa/internal/adapter/retry"
	"docqa/internal/adapter/store"
	"docqa/internal/port"
	"docqa/internal/progress"
	"docqa/internal/usecase"
)

// services is the container every command builds from the config. It owns
// the vector index and the document registry.
type services struct {
	indexDir string
	index    *store.VectorIndex
	docs     port.DocumentStore

	embedder  *embedding.Client
	generator *llm.Client
	tracker   *progress.Tracker

	ingest   *usecase.IngestUseCase
	retrieve *usecase.RetrieveUseCase
	query    *usecase.QueryUseCase
	health   *usecase.HealthUseCase
}

type buildOptions struct {
	// ephemeral keeps everything in memory and never touches the index dir.
	ephemeral bool
}

func policyFrom(r config.RetryConfig) retry.Policy {
	return retry.Policy{
		Timeout:           r.Timeout,
		MaxRetries:        r.MaxRetries,
		InitialBackoff:    r.InitialBackoff,
		MaxBackoff:        r.MaxBackoff,
		RequestsPerSecond: r.RequestsPerSecond,
	}
}

func newEmbeddingProvider(c config.EmbeddingConfig) (port.Embedder, error) {
	switch c.Provider {
	case "ollama":
		return embedding.NewOllamaEmbedder(c.BaseURL, c.Model, c.Dimension)
	case "openai":
		return embedding.NewOpenAIEmbedder(c.BaseURL, c.APIKeyEnv, c.Model, c.Dimension)
	case "hash":
		return embedding.NewHashEmbedder(c.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", c.Provider)
	}
}

func newGenerationProvider(c config.GenerationConfig) (port.LLM, error) {
	switch c.Provider {
	case "ollama":
		return llm.NewOllamaLLM(c.BaseURL, c.Model, c.Temperature, c.MaxTokens)
	case "echo":
		return llm.NewEchoLLM(), nil
	default:
		return nil, fmt.Errorf("unsupported generation provider: %s", c.Provider)
	}
}

func buildServices(cfg *config.Config, root string, opts buildOptions) (*services, error) {
	metric, err := store.ParseMetric(cfg.Index.Metric)
	if err != nil {
		return nil, err
	}
	counter, err := analyzer.Counter(cfg.Assemble.Unit)
	if err != nil {
		return nil, err
	}
	chk, err := chunker.NewWindowChunker(cfg.Chunk.Size, cfg.Chunk.Overlap)
	if err != nil {
		return nil, err
	}

	embProvider, err := newEmbeddingProvider(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	genProvider, err := newGenerationProvider(cfg.Generation)
	if err != nil {
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}

	s := &services{
		indexDir:  cfg.IndexDir(root),
		embedder:  embedding.NewClient(embProvider, policyFrom(cfg.Embedding.RetryConfig), cfg.Embedding.BatchSize),
		generator: llm.NewClient(genProvider, policyFrom(cfg.Generation.RetryConfig)),
		tracker:   progress.NewTracker(cfg.Progress.MaxSessions),
	}

	if opts.ephemeral {
		s.index = store.NewVectorIndex(metric, embProvider.ModelName())
		s.docs = memstore.NewMemoryStore()
	} else {
		if err := config.EnsureIndexDir(s.indexDir); err != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}
		s.index, err = store.LoadVectorIndex(s.indexDir, metric, embProvider.ModelName())
		if err != nil {
			return nil, fmt.Errorf("failed to load index from %s: %w", s.indexDir, err)
		}
		s.docs, err = store.NewDocumentStore(config.DocumentsDBPath(s.indexDir))
		if err != nil {
			return nil, fmt.Errorf("failed to open document registry: %w", err)
		}
		dropped, err := usecase.ReconcileRegistry(s.docs, s.index.Len())
		if err != nil {
			s.docs.Close()
			return nil, err
		}
		for _, doc := range dropped {
			slog.Warn("dropped document missing from the saved index", "document_id", doc.ID, "filename", doc.Filename)
		}
	}
	slog.Debug("index ready", "dir", s.indexDir, "entries", s.index.Len(), "metric", metric, "ephemeral", opts.ephemeral)

	var queryEmbedder port.Embedder = s.embedder
	if cfg.Embedding.CacheSize > 0 {
		queryEmbedder = cache.NewCachedEmbedder(s.embedder, cache.NewEmbeddingCache(cfg.Embedding.CacheSize))
	}

	s.ingest = usecase.NewIngestUseCase(extract.New(nil), chk, s.embedder, s.index, s.docs, counter)
	s.ingest.SetRecorder(s.tracker)
	if cfg.Index.Autosave && !opts.ephemeral {
		s.ingest.SetAutosave(s.index, s.indexDir)
	}

	s.retrieve = usecase.NewRetrieveUseCase(
		retriever.NewSemanticRetriever(s.index, queryEmbedder),
		cfg.Retrieve.TopK,
		cfg.Retrieve.MaxTopK,
		cfg.Retrieve.MinScoreThreshold,
	)
	s.query = usecase.NewQueryUseCase(
		s.retrieve,
		usecase.NewContextAssembler(counter),
		usecase.NewGenerator(s.generator),
		cfg.Assemble.MaxContextUnits,
	)
	s.query.SetRecorder(s.tracker)

	s.health = usecase.NewHealthUseCase(s.embedder, s.generator, s.index, s.docs, 0)
	return s, nil
}

// Close releases the document registry.
func (s *services) Close() error {
	return s.docs.Close()
}
