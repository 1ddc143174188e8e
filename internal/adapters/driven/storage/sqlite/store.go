package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/ragbase-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/ragbase-cli/internal/core/domain"
	"github.com/custodia-labs/ragbase-cli/internal/core/ports/driven"
)

// Ensure Store implements the port.
var _ driven.RecordStore = (*Store)(nil)

// Store is a SQLite-backed record store. It persists documents and
// embedding records and is the durable side of the knowledge base;
// the vector index is rebuilt from it at startup.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.ragbase/data/knowledge.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".ragbase", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, &domain.StoreIOError{Op: "init", Err: err}
	}

	dbPath := filepath.Join(dataDir, "knowledge.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, &domain.StoreIOError{Op: "open", Err: err}
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, &domain.StoreIOError{Op: "open", Err: err}
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, &domain.StoreIOError{Op: "migrate", Err: err}
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(
			"INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// SaveDocument stores or updates a document.
func (s *Store) SaveDocument(ctx context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return domain.ErrInvalidInput
	}

	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}

	now := time.Now().UTC()
	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (id, title, uri, content, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			uri = excluded.uri,
			content = excluded.content,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`, doc.ID, doc.Title, doc.URI, doc.Content, string(metadataJSON), createdAt, now)

	if err != nil {
		return &domain.StoreIOError{Op: "save document", Err: err}
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, uri, content, metadata, created_at, updated_at
		FROM documents WHERE id = ?
	`, id)

	var doc domain.Document
	var metadataJSON string
	if err := row.Scan(&doc.ID, &doc.Title, &doc.URI, &doc.Content,
		&metadataJSON, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, &domain.StoreIOError{Op: "get document", Err: err}
	}

	if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshalling metadata: %w", err)
	}

	return &doc, nil
}

// UpsertRecords stores records keyed by ID, overwriting existing
// ones. The whole batch commits in one transaction.
func (s *Store) UpsertRecords(ctx context.Context, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.StoreIOError{Op: "upsert", Err: err}
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (id, document_id, sequence_index, text, vector, dimensions, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document_id = excluded.document_id,
			sequence_index = excluded.sequence_index,
			text = excluded.text,
			vector = excluded.vector,
			dimensions = excluded.dimensions,
			metadata = excluded.metadata
	`)
	if err != nil {
		return &domain.StoreIOError{Op: "upsert", Err: err}
	}
	defer stmt.Close()

	for _, rec := range records {
		if rec.ID == "" || len(rec.Vector) == 0 {
			return domain.ErrInvalidInput
		}

		metadataJSON, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling record metadata: %w", err)
		}

		vectorBlob := float32SliceToBytes(rec.Vector)

		if _, err := stmt.ExecContext(ctx, rec.ID, rec.DocumentID, rec.Index,
			rec.Text, vectorBlob, len(rec.Vector), string(metadataJSON)); err != nil {
			return &domain.StoreIOError{Op: "upsert", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &domain.StoreIOError{Op: "upsert", Err: err}
	}
	return nil
}

// GetRecord retrieves a record by ID.
func (s *Store) GetRecord(ctx context.Context, id string) (*domain.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, document_id, sequence_index, text, vector, metadata
		FROM records WHERE id = ?
	`, id)

	rec, err := scanRecord(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, &domain.StoreIOError{Op: "get record", Err: err}
	}
	return rec, nil
}

// ListRecords returns records for a document in sequence order.
// An empty documentID lists the whole store, ordered by document then
// sequence for stable exports.
func (s *Store) ListRecords(ctx context.Context, documentID string) ([]domain.Record, error) {
	query := `
		SELECT id, document_id, sequence_index, text, vector, metadata
		FROM records
		WHERE document_id = ?
		ORDER BY sequence_index`
	args := []any{documentID}
	if documentID == "" {
		query = `
			SELECT id, document_id, sequence_index, text, vector, metadata
			FROM records
			ORDER BY document_id, sequence_index`
		args = nil
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &domain.StoreIOError{Op: "list records", Err: err}
	}
	defer rows.Close()

	var records []domain.Record //nolint:prealloc // size unknown from query
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, &domain.StoreIOError{Op: "list records", Err: err}
		}
		records = append(records, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, &domain.StoreIOError{Op: "list records", Err: err}
	}

	return records, nil
}

// DeleteDocument removes a document and its records.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return &domain.StoreIOError{Op: "delete document", Err: err}
	}
	return nil
}

// Stats returns a point-in-time snapshot of the store.
func (s *Store) Stats(ctx context.Context) (domain.Stats, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT document_id), COALESCE(AVG(LENGTH(text)), 0)
		FROM records
	`)

	var stats domain.Stats
	if err := row.Scan(&stats.Records, &stats.Documents, &stats.AvgChunkLen); err != nil {
		return domain.Stats{}, &domain.StoreIOError{Op: "stats", Err: err}
	}
	return stats, nil
}

// Dimensions returns the stored vector dimensionality, 0 when empty.
func (s *Store) Dimensions(ctx context.Context) (int, error) {
	row := s.db.QueryRowContext(ctx, "SELECT dimensions FROM records LIMIT 1")

	var dims int
	if err := row.Scan(&dims); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, &domain.StoreIOError{Op: "dimensions", Err: err}
	}
	return dims, nil
}

// ==================== Helper Functions ====================

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// scanRecord scans a record row via the given scan function.
func scanRecord(scan func(dest ...any) error) (*domain.Record, error) {
	var rec domain.Record
	var vectorBlob []byte
	var metadataJSON string

	if err := scan(&rec.ID, &rec.DocumentID, &rec.Index,
		&rec.Text, &vectorBlob, &metadataJSON); err != nil {
		return nil, err
	}

	rec.Vector = bytesToFloat32Slice(vectorBlob)

	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &rec.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshalling record metadata: %w", err)
		}
	}

	return &rec, nil
}
