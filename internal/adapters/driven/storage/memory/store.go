// Package memory provides an in-memory record store. It backs tests
// and ephemeral sessions where nothing should touch disk.
package memory

import (
	"context"
	"sort"
	"sync"
	"unicode/utf8"

	"github.com/custodia-labs/ragbase-cli/internal/core/domain"
	"github.com/custodia-labs/ragbase-cli/internal/core/ports/driven"
)

// Ensure Store implements the port.
var _ driven.RecordStore = (*Store)(nil)

// Store keeps documents and records in maps guarded by a single lock.
type Store struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	records   map[string]domain.Record
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		documents: make(map[string]domain.Document),
		records:   make(map[string]domain.Record),
	}
}

// SaveDocument stores or replaces a document.
func (s *Store) SaveDocument(_ context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return domain.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[doc.ID] = *doc
	return nil
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// UpsertRecords stores records keyed by ID, overwriting existing ones.
func (s *Store) UpsertRecords(_ context.Context, records []domain.Record) error {
	for _, rec := range records {
		if rec.ID == "" || len(rec.Vector) == 0 {
			return domain.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		vec := make([]float32, len(rec.Vector))
		copy(vec, rec.Vector)
		rec.Vector = vec
		s.records[rec.ID] = rec
	}
	return nil
}

// GetRecord retrieves a record by ID.
func (s *Store) GetRecord(_ context.Context, id string) (*domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

// ListRecords returns records for a document in sequence order. An
// empty documentID lists the whole store, ordered by document then
// sequence.
func (s *Store) ListRecords(_ context.Context, documentID string) ([]domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []domain.Record
	for _, rec := range s.records {
		if documentID != "" && rec.DocumentID != documentID {
			continue
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].DocumentID != records[j].DocumentID {
			return records[i].DocumentID < records[j].DocumentID
		}
		return records[i].Index < records[j].Index
	})
	return records, nil
}

// DeleteDocument removes a document and its records.
func (s *Store) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.documents, id)
	for recID, rec := range s.records {
		if rec.DocumentID == id {
			delete(s.records, recID)
		}
	}
	return nil
}

// Stats returns a point-in-time snapshot of the store.
func (s *Store) Stats(_ context.Context) (domain.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := domain.Stats{Records: len(s.records)}
	docs := make(map[string]struct{})
	var totalLen int
	for _, rec := range s.records {
		docs[rec.DocumentID] = struct{}{}
		totalLen += utf8.RuneCountInString(rec.Text)
	}
	stats.Documents = len(docs)
	if stats.Records > 0 {
		stats.AvgChunkLen = float64(totalLen) / float64(stats.Records)
	}
	return stats, nil
}

// Dimensions returns the stored vector dimensionality, 0 when empty.
func (s *Store) Dimensions(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.records {
		return len(rec.Vector), nil
	}
	return 0, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}
