package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/custodia-labs/ragbase-cli/internal/core/domain"
	"github.com/custodia-labs/ragbase-cli/internal/core/ports/driving"
)

// mockKnowledgeService records calls and returns canned results.
type mockKnowledgeService struct {
	ingested []domain.Document
	deleted  []string
	hits     []domain.Hit
	stats    domain.Stats
	records  []domain.Record
	err      error

	lastQuery string
	lastOpts  domain.SearchOptions
}

var _ driving.KnowledgeService = (*mockKnowledgeService)(nil)

func (m *mockKnowledgeService) IngestDocument(
	_ context.Context, doc *domain.Document,
) (domain.IngestReport, error) {
	if m.err != nil {
		return domain.IngestReport{}, m.err
	}
	m.ingested = append(m.ingested, *doc)
	return domain.IngestReport{
		BatchID:  "batch-test",
		Ingested: 2,
		Items: []domain.ItemResult{
			{ChunkID: domain.ChunkID(doc.ID, 0)},
			{ChunkID: domain.ChunkID(doc.ID, 1)},
		},
	}, nil
}

func (m *mockKnowledgeService) Search(
	_ context.Context, query string, opts domain.SearchOptions,
) ([]domain.Hit, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.lastQuery = query
	m.lastOpts = opts
	return m.hits, nil
}

func (m *mockKnowledgeService) DeleteDocument(_ context.Context, documentID string) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, documentID)
	return nil
}

func (m *mockKnowledgeService) Stats(context.Context) (domain.Stats, error) {
	if m.err != nil {
		return domain.Stats{}, m.err
	}
	return m.stats, nil
}

func (m *mockKnowledgeService) Export(_ context.Context, w io.Writer) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	for _, rec := range m.records {
		if _, err := w.Write([]byte(`{"id":"` + rec.ID + `"}` + "\n")); err != nil {
			return 0, err
		}
	}
	return len(m.records), nil
}

func (m *mockKnowledgeService) Import(_ context.Context, r io.Reader) (domain.IngestReport, error) {
	if m.err != nil {
		return domain.IngestReport{}, m.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.IngestReport{}, err
	}
	n := bytes.Count(data, []byte("\n"))
	return domain.IngestReport{BatchID: "batch-test", Ingested: n}, nil
}

// setupTestServices swaps in a fresh mock and returns it with a
// cleanup that restores the previous service.
func setupTestServices() (*mockKnowledgeService, func()) {
	old := knowledgeService
	mock := &mockKnowledgeService{}
	knowledgeService = mock
	return mock, func() {
		knowledgeService = old
	}
}

// executeCommand runs the root command with args and captures output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return buf.String(), err
}

var errMock = errors.New("mock failure")
