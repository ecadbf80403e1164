package search

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

const schema = `
CREATE TABLE IF NOT EXISTS documents (
    id         TEXT PRIMARY KEY,
    text       TEXT NOT NULL,
    metadata   TEXT NOT NULL DEFAULT '{}',
    model      TEXT NOT NULL,
    dim        INTEGER NOT NULL,
    vector     BLOB NOT NULL,
    updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_model ON documents(model);
`

// Document is a unit of indexed text.
type Document struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// StoredDocument is a document with the embedding it was indexed under.
type StoredDocument struct {
	Document
	Model     string
	Vector    []float32
	UpdatedAt time.Time
}

// Store persists documents and vectors in SQLite.
type Store struct {
	db *sql.DB
}

// OpenStore opens or creates the database at path. Use ":memory:" for a
// throwaway store.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// One connection keeps ":memory:" databases coherent and avoids writer contention.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open store: enable WAL: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open store: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put upserts documents in a single transaction.
func (s *Store) Put(ctx context.Context, docs []StoredDocument) (err error) {
	if len(docs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store put: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO documents (id, text, metadata, model, dim, vector, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    text = excluded.text,
    metadata = excluded.metadata,
    model = excluded.model,
    dim = excluded.dim,
    vector = excluded.vector,
    updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("store put: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, d := range docs {
		meta, err := json.Marshal(d.Metadata)
		if err != nil {
			return fmt.Errorf("store put %q: metadata: %w", d.ID, err)
		}
		updated := d.UpdatedAt
		if updated.IsZero() {
			updated = now
		}
		if _, err := stmt.ExecContext(ctx, d.ID, d.Text, string(meta), d.Model, len(d.Vector),
			serializeVector(d.Vector), updated.UnixMilli()); err != nil {
			return fmt.Errorf("store put %q: %w", d.ID, err)
		}
	}
	return tx.Commit()
}

// Get returns the document with id. ok is false when it does not exist.
func (s *Store) Get(ctx context.Context, id string) (doc StoredDocument, ok bool, err error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, text, metadata, model, vector, updated_at FROM documents WHERE id = ?`, id)
	doc, err = scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return StoredDocument{}, false, nil
	}
	if err != nil {
		return StoredDocument{}, false, fmt.Errorf("store get %q: %w", id, err)
	}
	return doc, true, nil
}

// All returns every document indexed with model, ordered by ID. An empty
// model returns documents of every model.
func (s *Store) All(ctx context.Context, model string) ([]StoredDocument, error) {
	q := `SELECT id, text, metadata, model, vector, updated_at FROM documents`
	var args []any
	if model != "" {
		q += ` WHERE model = ?`
		args = append(args, model)
	}
	q += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store list: %w", err)
	}
	defer rows.Close()

	var out []StoredDocument
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("store list: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Delete removes documents by ID and reports how many existed.
func (s *Store) Delete(ctx context.Context, ids ...string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("store delete: %w", err)
	}
	return res.RowsAffected()
}

// Count returns the number of stored documents.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store count: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(sc scanner) (StoredDocument, error) {
	var (
		d       StoredDocument
		meta    string
		blob    []byte
		updated int64
	)
	if err := sc.Scan(&d.ID, &d.Text, &meta, &d.Model, &blob, &updated); err != nil {
		return StoredDocument{}, err
	}
	if meta != "" && meta != "null" {
		if err := json.Unmarshal([]byte(meta), &d.Metadata); err != nil {
			return StoredDocument{}, fmt.Errorf("document %q metadata: %w", d.ID, err)
		}
	}
	d.Vector = deserializeVector(blob)
	d.UpdatedAt = time.UnixMilli(updated).UTC()
	return d, nil
}

// serializeVector encodes a vector as little-endian float32 bytes.
func serializeVector(v []float32) []byte {
	blob := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(f))
	}
	return blob
}

func deserializeVector(blob []byte) []float32 {
	v := make([]float32, len(blob)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return v
}
