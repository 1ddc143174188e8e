package domain

// Record is an embedded chunk as persisted in the knowledge store.
// Records are append-only: re-ingesting a chunk ID overwrites the
// stored record, it never merges.
type Record struct {
	// ID is the chunk ID this record was derived from.
	ID string `json:"id"`

	// Vector is the dense embedding. Dimensionality is fixed per
	// embedding service and invariant across the store's lifetime.
	Vector []float32 `json:"vector"`

	// Text is the original chunk text.
	Text string `json:"text"`

	// Metadata maps string keys to scalar string values. Used for
	// equality filtering at search time.
	Metadata map[string]string `json:"metadata,omitempty"`

	// DocumentID is the weak back-reference to the source document.
	DocumentID string `json:"document_id"`

	// Index is the chunk's sequence index within its document.
	Index int `json:"sequence_index"`
}

// Stats is a point-in-time snapshot of the knowledge store.
type Stats struct {
	// Records is the total number of stored records.
	Records int

	// Documents is the number of distinct source documents.
	Documents int

	// AvgChunkLen is the mean rune length of stored chunk texts.
	AvgChunkLen float64
}
