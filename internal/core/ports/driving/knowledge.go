package driving

import (
	"context"
	"io"

	"github.com/custodia-labs/ragbase-cli/internal/core/domain"
)

// KnowledgeService is the query and ingestion surface exposed to
// external callers. A downstream generation caller consumes Search;
// assembling the final prompt is out of scope here.
type KnowledgeService interface {
	// IngestDocument chunks, embeds and stores a document. Embedding
	// failures are isolated per chunk: the batch continues and the
	// report lists every item outcome. Cancellation leaves already
	// committed records committed.
	IngestDocument(ctx context.Context, doc *domain.Document) (domain.IngestReport, error)

	// Search returns the k nearest records to the query text,
	// ascending by distance. An empty store yields an empty slice.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.Hit, error)

	// DeleteDocument removes a document, its records and their
	// indexed vectors. An unknown document yields ErrNotFound.
	DeleteDocument(ctx context.Context, documentID string) error

	// Stats returns a point-in-time snapshot of the store.
	Stats(ctx context.Context) (domain.Stats, error)

	// Export writes every stored record to w, one JSON object per
	// line, and returns the number of records written.
	Export(ctx context.Context, w io.Writer) (int, error)

	// Import re-ingests records from a JSONL stream produced by
	// Export. Vectors present in the stream are reused; records with
	// missing vectors are re-embedded.
	Import(ctx context.Context, r io.Reader) (domain.IngestReport, error)
}
