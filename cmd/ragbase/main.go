// Command ragbase is a local retrieval knowledge base: it chunks
// documents, embeds the chunks and answers similarity queries.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/ragbase-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/ragbase-cli/internal/adapters/driven/embedding/hash"
	"github.com/custodia-labs/ragbase-cli/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/ragbase-cli/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/ragbase-cli/internal/adapters/driven/embedding/ratelimit"
	"github.com/custodia-labs/ragbase-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/ragbase-cli/internal/adapters/driven/vector/bruteforce"
	"github.com/custodia-labs/ragbase-cli/internal/adapters/driving/cli"
	"github.com/custodia-labs/ragbase-cli/internal/chunker"
	"github.com/custodia-labs/ragbase-cli/internal/core/domain"
	"github.com/custodia-labs/ragbase-cli/internal/core/ports/driven"
	"github.com/custodia-labs/ragbase-cli/internal/core/services"
	"github.com/custodia-labs/ragbase-cli/internal/logger"
	"github.com/custodia-labs/ragbase-cli/internal/tokens"
)

// Build-time variables set via ldflags.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	splitter, err := buildSplitter(cfg)
	if err != nil {
		return err
	}

	store, err := sqlite.NewStore("")
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	metric := domain.Metric(cfg.GetString("search.metric"))
	if metric == "" {
		metric = domain.MetricCosine
	}
	index, err := bruteforce.New(metric)
	if err != nil {
		return err
	}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return err
	}
	defer embedder.Close()

	svc := services.NewKnowledgeService(store, index, embedder, splitter)
	if batch := cfg.GetInt("ingest.batch_size"); batch > 0 {
		svc.SetBatchSize(batch)
	}

	if err := svc.RebuildIndex(ctx); err != nil {
		return err
	}

	cli.SetKnowledgeService(svc)
	cli.SetVersion(version)
	return cli.Execute(ctx)
}

// buildSplitter creates the chunker from configuration. BPE token
// counting needs an encoding download on first use; when that fails
// the approximate counter keeps the tool usable offline.
func buildSplitter(cfg driven.ConfigStore) (*chunker.Splitter, error) {
	var opts []chunker.Option
	if n := cfg.GetInt("chunking.max_chars"); n > 0 {
		opts = append(opts, chunker.WithMaxChars(n))
	}
	if n := cfg.GetInt("chunking.max_tokens"); n > 0 {
		opts = append(opts, chunker.WithMaxTokens(n))
	}
	if v, ok := cfg.Get("chunking.overlap"); ok {
		if n, isInt := v.(int64); isInt {
			opts = append(opts, chunker.WithOverlap(int(n)))
		}
	}

	counter, err := tokens.NewBPE(cfg.GetString("chunking.encoding"))
	if err != nil {
		logger.Warn("BPE encoding unavailable, using approximate counter: %v", err)
		opts = append(opts, chunker.WithCounter(tokens.Approx{}))
	} else {
		opts = append(opts, chunker.WithCounter(counter))
	}

	return chunker.New(opts...)
}

// buildEmbedder creates the embedding service selected by the
// embedding.provider key: "ollama" (default), "openai" or "hash".
// Remote providers are wrapped with a rate limiter.
func buildEmbedder(cfg driven.ConfigStore) (driven.EmbeddingService, error) {
	provider := cfg.GetString("embedding.provider")

	var (
		embedder driven.EmbeddingService
		err      error
	)

	switch provider {
	case "", "ollama":
		embedder = ollama.NewEmbeddingService(ollama.Config{
			BaseURL:    cfg.GetString("embedding.base_url"),
			Model:      cfg.GetString("embedding.model"),
			Dimensions: cfg.GetInt("embedding.dimensions"),
		})

	case "openai":
		apiKey := cfg.GetString("embedding.api_key")
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		embedder, err = openai.NewEmbeddingService(openai.Config{
			APIKey:     apiKey,
			BaseURL:    cfg.GetString("embedding.base_url"),
			Model:      cfg.GetString("embedding.model"),
			Dimensions: cfg.GetInt("embedding.dimensions"),
		})
		if err != nil {
			return nil, err
		}

	case "hash":
		return hash.NewEmbeddingService(cfg.GetInt("embedding.dimensions")), nil

	default:
		return nil, domain.NewConfigError("unknown embedding provider %q", provider)
	}

	rate := cfg.GetFloat64("embedding.rate")
	return ratelimit.Wrap(embedder, rate, services.DefaultBatchSize), nil
}
