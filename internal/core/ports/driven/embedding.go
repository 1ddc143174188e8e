package driven

import "context"

// EmbeddingService generates vector embeddings from text.
// The core treats it as an opaque capability: any component with this
// contract is substitutable (local model, remote service, test stub).
//
// Implementations may include:
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Ollama (nomic-embed-text, all-minilm)
//   - Local models via inference servers
//
// Implementations must honour context cancellation and deadlines:
// a slow backend surfaces as a context error, never a hang.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently.
	// A batch failure aborts the whole call; callers that need
	// per-item isolation fall back to Embed for each text.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 768, 1536).
	// This is fixed per model and must match the store's dimensionality.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Close releases resources.
	Close() error
}
