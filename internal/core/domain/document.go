package domain

import (
	"fmt"
	"time"
)

// Document represents a source document supplied for ingestion.
// Documents are immutable once ingested; re-ingesting the same ID
// replaces the stored copy wholesale.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Title is the human-readable title.
	Title string

	// URI is the original location (file path, URL, etc).
	URI string

	// Content is the full text body.
	Content string

	// Metadata contains arbitrary source metadata as string pairs.
	// Values propagate onto every record derived from this document.
	Metadata map[string]string

	// CreatedAt is when the document was first ingested.
	CreatedAt time.Time

	// UpdatedAt is when the document was last re-ingested.
	UpdatedAt time.Time
}

// Chunk represents a bounded text segment derived from exactly one
// document. Chunks are the retrieval unit: each one is embedded and
// persisted as a Record.
type Chunk struct {
	// ID is the unique identifier, derived from the document ID and
	// the sequence index. See ChunkID.
	ID string

	// DocumentID is a weak back-reference to the parent document,
	// used for metadata joins only. Never a live object reference.
	DocumentID string

	// Text is the chunk content, including any overlap prefix carried
	// over from the previous chunk.
	Text string

	// Index is the ordinal position within the document.
	Index int

	// CharCount is the rune length of Text.
	CharCount int

	// TokenCount is the token length of Text under the configured
	// tokeniser. Character and token counts diverge for languages
	// without explicit word spacing, so both are tracked.
	TokenCount int

	// Overlap is the number of runes at the start of Text that repeat
	// the tail of the previous chunk. Zero for the first chunk.
	Overlap int

	// BoundaryForced marks a chunk that was cut at the hard character
	// limit because no natural boundary existed within budget. Kept
	// for downstream diagnostics; the chunk is still ingested.
	BoundaryForced bool

	// Metadata contains chunk-specific key-value pairs.
	Metadata map[string]string
}

// ChunkID derives the canonical chunk identifier from a document ID
// and a sequence index.
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s-%04d", documentID, index)
}
