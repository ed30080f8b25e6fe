// Package store persists index snapshots in SQLite so the CLI can search
// without re-extracting.
package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/dpolishuk/codeflow/internal/errors"
	"github.com/dpolishuk/codeflow/internal/index"
	"github.com/dpolishuk/codeflow/internal/logging"
	"github.com/dpolishuk/codeflow/internal/models"
)

// DefaultKeep is how many snapshots Save retains.
const DefaultKeep = 3

var schema = []string{`
CREATE TABLE IF NOT EXISTS snapshots (
	id           TEXT PRIMARY KEY,
	root         TEXT NOT NULL,
	fingerprint  TEXT NOT NULL,
	created_at   INTEGER NOT NULL,
	entity_count INTEGER NOT NULL
)`, `
CREATE TABLE IF NOT EXISTS entities (
	snapshot_id TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
	position    INTEGER NOT NULL,
	id          TEXT NOT NULL,
	data        TEXT NOT NULL,
	embedding   BLOB,
	PRIMARY KEY (snapshot_id, position)
)`,
	`CREATE INDEX IF NOT EXISTS idx_snapshots_created ON snapshots(created_at)`,
}

// Store is a SQLite database of snapshots.
type Store struct {
	conn   *sql.DB
	path   string
	keep   int
	logger *slog.Logger
}

// Open opens or creates the database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer; readers share the same connection
	conn.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}
	for _, stmt := range schema {
		if _, err := conn.Exec(stmt); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
	}

	return &Store{
		conn:   conn,
		path:   path,
		keep:   DefaultKeep,
		logger: logging.OrDefault(logger),
	}, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) Path() string {
	return s.path
}

// Save writes snap and prunes all but the newest snapshots.
func (s *Store) Save(ctx context.Context, snap *index.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("failed to save snapshot: nil snapshot")
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	entities := snap.All()
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO snapshots (id, root, fingerprint, created_at, entity_count) VALUES (?, ?, ?, ?, ?)`,
		snap.ID, snap.Root, snap.Fingerprint, snap.CreatedAt.UnixNano(), len(entities)); err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM entities WHERE snapshot_id = ?`, snap.ID); err != nil {
		return fmt.Errorf("failed to clear entities: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO entities (snapshot_id, position, id, data, embedding) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range entities {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to encode entity %s: %w", e.ID, err)
		}
		var vec []byte
		if len(e.Embedding) > 0 {
			vec = encodeVector(e.Embedding)
		}
		if _, err := stmt.ExecContext(ctx, snap.ID, i, e.ID, string(data), vec); err != nil {
			return fmt.Errorf("failed to insert entity %s: %w", e.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM snapshots WHERE id NOT IN (SELECT id FROM snapshots ORDER BY created_at DESC LIMIT ?)`,
		s.keep); err != nil {
		return fmt.Errorf("failed to prune snapshots: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM entities WHERE snapshot_id NOT IN (SELECT id FROM snapshots)`); err != nil {
		return fmt.Errorf("failed to prune entities: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	s.logger.Info("snapshot saved", "id", snap.ID, "entities", len(entities), "path", s.path)
	return nil
}

// Info describes a stored snapshot without loading its entities.
type Info struct {
	ID          string    `json:"id"`
	Root        string    `json:"root"`
	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"createdAt"`
	Entities    int       `json:"entities"`
}

// List returns stored snapshots, newest first.
func (s *Store) List(ctx context.Context) ([]Info, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, root, fingerprint, created_at, entity_count FROM snapshots ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var out []Info
	for rows.Next() {
		var info Info
		var created int64
		if err := rows.Scan(&info.ID, &info.Root, &info.Fingerprint, &created, &info.Entities); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		info.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, info)
	}
	return out, rows.Err()
}

// LoadLatest restores the newest snapshot. An empty store yields a
// NOT_INDEXED error.
func (s *Store) LoadLatest(ctx context.Context) (*index.Snapshot, error) {
	var id string
	err := s.conn.QueryRowContext(ctx, `SELECT id FROM snapshots ORDER BY created_at DESC LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.NotIndexed, "no snapshot stored in "+s.path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find latest snapshot: %w", err)
	}
	return s.Load(ctx, id)
}

// Load restores the snapshot with the given id.
func (s *Store) Load(ctx context.Context, id string) (*index.Snapshot, error) {
	var root string
	var created int64
	err := s.conn.QueryRowContext(ctx, `SELECT root, created_at FROM snapshots WHERE id = ?`, id).Scan(&root, &created)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.NotIndexed, "snapshot "+id+" not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	rows, err := s.conn.QueryContext(ctx,
		`SELECT data, embedding FROM entities WHERE snapshot_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read entities: %w", err)
	}
	defer rows.Close()

	var entities []*models.CodeEntity
	for rows.Next() {
		var data string
		var vec []byte
		if err := rows.Scan(&data, &vec); err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		e := &models.CodeEntity{}
		if err := json.Unmarshal([]byte(data), e); err != nil {
			return nil, fmt.Errorf("failed to decode entity: %w", err)
		}
		if len(vec) > 0 {
			if e.Embedding, err = decodeVector(vec); err != nil {
				return nil, fmt.Errorf("failed to decode embedding of %s: %w", e.ID, err)
			}
		}
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read entities: %w", err)
	}

	snap := index.RestoreSnapshot(id, root, time.Unix(0, created), entities)
	s.logger.Debug("snapshot loaded", "id", id, "entities", snap.Len())
	return snap, nil
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
