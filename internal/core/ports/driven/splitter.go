package driven

import (
	"github.com/custodia-labs/ragbase-cli/internal/core/domain"
)

// Splitter turns a document into an ordered sequence of chunks.
// Implementations enforce their configured length bounds; chunks that
// had to be cut at a hard limit carry the BoundaryForced flag.
type Splitter interface {
	// Split chunks the document. An empty document yields no chunks
	// and no error. Ordering is stable and equals document order.
	Split(doc *domain.Document) ([]domain.Chunk, error)
}
