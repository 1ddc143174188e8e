package domain

// ItemResult reports the outcome of ingesting a single chunk.
// Every ingest call returns one result per input chunk; failures are
// reported here rather than aborting the batch.
type ItemResult struct {
	// ChunkID identifies the chunk this result refers to.
	ChunkID string

	// Err is the per-item failure, nil on success. Embedding failures
	// carry an EmbeddingError.
	Err error
}

// IngestReport summarises an ingest batch.
type IngestReport struct {
	// BatchID uniquely identifies this ingest run.
	BatchID string

	// Ingested is the number of records committed to the store.
	Ingested int

	// Items holds per-item results in chunk order.
	Items []ItemResult
}

// Failed returns the results for chunks that were skipped.
func (r IngestReport) Failed() []ItemResult {
	var failed []ItemResult
	for _, item := range r.Items {
		if item.Err != nil {
			failed = append(failed, item)
		}
	}
	return failed
}
