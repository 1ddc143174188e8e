package services

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragbase-cli/internal/core/domain"
	"github.com/custodia-labs/ragbase-cli/internal/core/ports/driven"
	"github.com/custodia-labs/ragbase-cli/internal/core/ports/driving"
	"github.com/custodia-labs/ragbase-cli/internal/logger"
)

// Ensure KnowledgeService implements the interface.
var _ driving.KnowledgeService = (*KnowledgeService)(nil)

const (
	// DefaultBatchSize is the number of chunks embedded per batch call.
	DefaultBatchSize = 16

	// DefaultSearchLimit is the number of results when the caller
	// doesn't specify one.
	DefaultSearchLimit = 5

	// maxImportLine bounds a single JSONL line on import. Vectors are
	// long; 1536 floats serialise well under this.
	maxImportLine = 16 * 1024 * 1024
)

// KnowledgeService orchestrates chunking, embedding, storage and
// retrieval. The store is the source of truth; the vector index is a
// derived view kept in step with every write.
type KnowledgeService struct {
	store     driven.RecordStore
	index     driven.VectorIndex
	embedder  driven.EmbeddingService
	splitter  driven.Splitter
	batchSize int
}

// NewKnowledgeService creates a new knowledge service.
func NewKnowledgeService(
	store driven.RecordStore,
	index driven.VectorIndex,
	embedder driven.EmbeddingService,
	splitter driven.Splitter,
) *KnowledgeService {
	return &KnowledgeService{
		store:     store,
		index:     index,
		embedder:  embedder,
		splitter:  splitter,
		batchSize: DefaultBatchSize,
	}
}

// SetBatchSize overrides the embedding batch size. Values below 1 are
// ignored.
func (s *KnowledgeService) SetBatchSize(n int) {
	if n >= 1 {
		s.batchSize = n
	}
}

// RebuildIndex loads every stored vector into the index. Called at
// startup so searches see records from previous runs.
func (s *KnowledgeService) RebuildIndex(ctx context.Context) error {
	records, err := s.store.ListRecords(ctx, "")
	if err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}

	for _, rec := range records {
		if err := s.index.Add(ctx, rec.ID, rec.Vector); err != nil {
			return fmt.Errorf("rebuild index: add %s: %w", rec.ID, err)
		}
	}

	logger.Debug("Index rebuilt: %d vectors", len(records))
	return nil
}

// IngestDocument chunks, embeds and stores a document. Chunks are
// embedded in batches; when a batch call fails the service retries
// each chunk individually so one bad item doesn't sink its batch.
// Failed chunks are reported in the result and skipped, never stored.
func (s *KnowledgeService) IngestDocument(
	ctx context.Context, doc *domain.Document,
) (domain.IngestReport, error) {
	report := domain.IngestReport{BatchID: uuid.NewString()}

	if doc == nil || doc.ID == "" {
		return report, domain.ErrInvalidInput
	}

	logger.Section("Document Ingestion")
	logger.Debug("Document: %s (%d bytes)", doc.ID, len(doc.Content))

	if err := s.checkDimensions(ctx, s.embedder.Dimensions()); err != nil {
		return report, err
	}

	chunks, err := s.splitter.Split(doc)
	if err != nil {
		return report, fmt.Errorf("split document %s: %w", doc.ID, err)
	}
	logger.Debug("Split into %d chunks", len(chunks))

	// The document row must exist before records reference it.
	if err := s.store.SaveDocument(ctx, doc); err != nil {
		return report, fmt.Errorf("save document %s: %w", doc.ID, err)
	}

	report.Items = make([]domain.ItemResult, 0, len(chunks))

	for start := 0; start < len(chunks); start += s.batchSize {
		if err := ctx.Err(); err != nil {
			// Committed batches stay committed.
			return report, err
		}

		end := start + s.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		vectors, items := s.embedChunks(ctx, batch)

		var records []domain.Record
		for i, chunk := range batch {
			if items[i].Err != nil {
				logger.Warn("Chunk %s failed to embed: %v", chunk.ID, items[i].Err)
				continue
			}
			records = append(records, domain.Record{
				ID:         chunk.ID,
				Vector:     vectors[i],
				Text:       chunk.Text,
				Metadata:   mergeMetadata(doc.Metadata, chunk.Metadata),
				DocumentID: chunk.DocumentID,
				Index:      chunk.Index,
			})
		}

		if err := s.commitRecords(ctx, records); err != nil {
			report.Items = append(report.Items, items...)
			return report, err
		}

		report.Ingested += len(records)
		report.Items = append(report.Items, items...)
	}

	logger.Info("Ingested %d/%d chunks from %s", report.Ingested, len(chunks), doc.ID)
	return report, nil
}

// embedChunks embeds a batch, falling back to per-chunk calls when the
// batch call fails. Returns one vector and one item result per chunk;
// a failed chunk has a nil vector and a non-nil item error.
func (s *KnowledgeService) embedChunks(
	ctx context.Context, chunks []domain.Chunk,
) ([][]float32, []domain.ItemResult) {
	items := make([]domain.ItemResult, len(chunks))
	for i, chunk := range chunks {
		items[i] = domain.ItemResult{ChunkID: chunk.ID}
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err == nil && len(vectors) == len(chunks) {
		return vectors, items
	}

	if err != nil {
		logger.Warn("Batch embedding failed, retrying per chunk: %v", err)
	}

	vectors = make([][]float32, len(chunks))
	for i, chunk := range chunks {
		vec, err := s.embedder.Embed(ctx, chunk.Text)
		if err != nil {
			items[i].Err = &domain.EmbeddingError{ChunkID: chunk.ID, Err: err}
			continue
		}
		vectors[i] = vec
	}
	return vectors, items
}

// commitRecords writes records to the store and mirrors them into the
// vector index.
func (s *KnowledgeService) commitRecords(ctx context.Context, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}

	if err := s.store.UpsertRecords(ctx, records); err != nil {
		return fmt.Errorf("store records: %w", err)
	}

	for _, rec := range records {
		if err := s.index.Add(ctx, rec.ID, rec.Vector); err != nil {
			return fmt.Errorf("index record %s: %w", rec.ID, err)
		}
	}
	return nil
}

// Search embeds the query and returns the nearest records, ascending
// by distance with ties broken by record ID. A query embedding failure
// is fatal: there is nothing sensible to rank without it.
func (s *KnowledgeService) Search(
	ctx context.Context, query string, opts domain.SearchOptions,
) ([]domain.Hit, error) {
	logger.Section("Similarity Search")
	logger.Debug("Query: %q", query)

	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.Hit{}, nil
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	if s.index.Len() == 0 {
		logger.Debug("Empty index, returning no results")
		return []domain.Hit{}, nil
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, &domain.EmbeddingError{Err: err}
	}

	if err := s.checkDimensions(ctx, len(queryVec)); err != nil {
		return nil, err
	}

	// Filtering must not silently drop records the store failed to
	// read; the first failure surfaces after the index scan.
	var allow func(string) bool
	var allowErr error
	if len(opts.Filter) > 0 {
		logger.Debug("Metadata filter: %v", opts.Filter)
		allow = func(recordID string) bool {
			rec, err := s.store.GetRecord(ctx, recordID)
			if err != nil {
				if !errors.Is(err, domain.ErrNotFound) && allowErr == nil {
					allowErr = err
				}
				return false
			}
			return matchesFilter(rec.Metadata, opts.Filter)
		}
	}

	vectorHits, err := s.index.Search(ctx, queryVec, limit, allow)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	if allowErr != nil {
		return nil, fmt.Errorf("filter records: %w", allowErr)
	}
	logger.Debug("Vector search: %d hits", len(vectorHits))

	hits := make([]domain.Hit, 0, len(vectorHits))
	for _, vh := range vectorHits {
		rec, err := s.store.GetRecord(ctx, vh.RecordID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// Record deleted since it was indexed.
				continue
			}
			return nil, fmt.Errorf("get record %s: %w", vh.RecordID, err)
		}
		hits = append(hits, domain.Hit{Record: *rec, Distance: vh.Distance})
	}

	logger.Info("Search returned %d results", len(hits))
	return hits, nil
}

// DeleteDocument removes a document, its records and their indexed
// vectors. The store row goes first; a search racing the index
// cleanup skips vectors whose record is already gone.
func (s *KnowledgeService) DeleteDocument(ctx context.Context, documentID string) error {
	if documentID == "" {
		return domain.ErrInvalidInput
	}

	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		return fmt.Errorf("get document %s: %w", documentID, err)
	}

	records, err := s.store.ListRecords(ctx, documentID)
	if err != nil {
		return fmt.Errorf("list records for %s: %w", documentID, err)
	}

	if err := s.store.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete document %s: %w", documentID, err)
	}

	for _, rec := range records {
		if err := s.index.Delete(ctx, rec.ID); err != nil {
			return fmt.Errorf("unindex record %s: %w", rec.ID, err)
		}
	}

	logger.Info("Deleted document %s (%d records)", documentID, len(records))
	return nil
}

// Stats returns a point-in-time snapshot of the store.
func (s *KnowledgeService) Stats(ctx context.Context) (domain.Stats, error) {
	return s.store.Stats(ctx)
}

// Export writes every stored record to w as JSONL, ordered by document
// then sequence so repeated exports of the same store are identical.
func (s *KnowledgeService) Export(ctx context.Context, w io.Writer) (int, error) {
	records, err := s.store.ListRecords(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("export: %w", err)
	}

	enc := json.NewEncoder(w)
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := enc.Encode(rec); err != nil {
			return i, &domain.StoreIOError{Op: "export", Err: err}
		}
	}

	logger.Info("Exported %d records", len(records))
	return len(records), nil
}

// Import re-ingests records from a JSONL stream produced by Export.
// Records carrying a vector are stored as-is; records without one are
// re-embedded, with per-item failure isolation as in IngestDocument.
// A malformed line aborts the import.
func (s *KnowledgeService) Import(ctx context.Context, r io.Reader) (domain.IngestReport, error) {
	report := domain.IngestReport{BatchID: uuid.NewString()}

	logger.Section("Record Import")

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxImportLine)

	seenDocs := make(map[string]bool)
	var pending []domain.Record
	line := 0

	flush := func() error {
		if err := s.commitRecords(ctx, pending); err != nil {
			return err
		}
		report.Ingested += len(pending)
		pending = pending[:0]
		return nil
	}

	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		if err := ctx.Err(); err != nil {
			return report, err
		}

		var rec domain.Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return report, fmt.Errorf("import line %d: %w: %v", line, domain.ErrInvalidInput, err)
		}
		if rec.ID == "" {
			return report, fmt.Errorf("import line %d: missing record id: %w", line, domain.ErrInvalidInput)
		}

		item := domain.ItemResult{ChunkID: rec.ID}

		if len(rec.Vector) == 0 {
			vec, err := s.embedder.Embed(ctx, rec.Text)
			if err != nil {
				item.Err = &domain.EmbeddingError{ChunkID: rec.ID, Err: err}
				report.Items = append(report.Items, item)
				logger.Warn("Record %s failed to re-embed: %v", rec.ID, err)
				continue
			}
			rec.Vector = vec
		}

		if err := s.checkDimensions(ctx, len(rec.Vector)); err != nil {
			return report, fmt.Errorf("import line %d: %w", line, err)
		}

		if rec.DocumentID != "" && !seenDocs[rec.DocumentID] {
			if err := s.ensureDocument(ctx, rec.DocumentID); err != nil {
				return report, err
			}
			seenDocs[rec.DocumentID] = true
		}

		report.Items = append(report.Items, item)
		pending = append(pending, rec)

		if len(pending) >= s.batchSize {
			if err := flush(); err != nil {
				return report, err
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return report, &domain.StoreIOError{Op: "import", Err: err}
	}

	if err := flush(); err != nil {
		return report, err
	}

	logger.Info("Imported %d records", report.Ingested)
	return report, nil
}

// ensureDocument creates a placeholder document row when an imported
// record references a document the store doesn't know.
func (s *KnowledgeService) ensureDocument(ctx context.Context, documentID string) error {
	_, err := s.store.GetDocument(ctx, documentID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("get document %s: %w", documentID, err)
	}

	return s.store.SaveDocument(ctx, &domain.Document{
		ID:    documentID,
		Title: documentID,
	})
}

// checkDimensions rejects vectors whose size disagrees with what the
// store already holds. Mixing dimensionalities silently corrupts
// ranking, so it surfaces as a configuration error.
func (s *KnowledgeService) checkDimensions(ctx context.Context, dims int) error {
	stored, err := s.store.Dimensions(ctx)
	if err != nil {
		return fmt.Errorf("store dimensions: %w", err)
	}
	if stored != 0 && dims != 0 && stored != dims {
		return domain.NewConfigError(
			"embedding dimensions %d do not match store dimensions %d", dims, stored)
	}
	return nil
}

// mergeMetadata combines document and chunk metadata; chunk pairs win
// on key collisions. Returns nil when both inputs are empty.
func mergeMetadata(docMeta, chunkMeta map[string]string) map[string]string {
	if len(docMeta) == 0 && len(chunkMeta) == 0 {
		return nil
	}
	merged := make(map[string]string, len(docMeta)+len(chunkMeta))
	for k, v := range docMeta {
		merged[k] = v
	}
	for k, v := range chunkMeta {
		merged[k] = v
	}
	return merged
}

// matchesFilter reports whether metadata satisfies every filter pair.
func matchesFilter(metadata, filter map[string]string) bool {
	for k, want := range filter {
		if metadata[k] != want {
			return false
		}
	}
	return true
}
