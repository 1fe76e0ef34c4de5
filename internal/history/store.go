// Package history persists a record of every composed album so earlier
// albums stay downloadable across page reloads.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when an album ID has no record.
var ErrNotFound = errors.New("album not found")

// Album is one composed-album record.
type Album struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	CreatedAt time.Time `json:"createdAt"`
	SlotCount int       `json:"slotCount"`
	Path      string    `json:"-"`
}

// Store manages album history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database in dir and applies
// migrations.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure history dir: %w", err)
	}

	dbPath := filepath.Join(dir, "albums.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) applyMigrations(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS albums (
    id         TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    created_at TEXT NOT NULL,
    slot_count INTEGER NOT NULL,
    path       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_albums_session ON albums(session_id, created_at);
`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Record inserts a new album record.
func (s *Store) Record(ctx context.Context, album Album) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO albums (id, session_id, created_at, slot_count, path)
         VALUES (?, ?, ?, ?, ?)`,
		album.ID,
		album.SessionID,
		album.CreatedAt.UTC().Format(time.RFC3339Nano),
		album.SlotCount,
		album.Path,
	)
	if err != nil {
		return fmt.Errorf("record album %s: %w", album.ID, err)
	}
	return nil
}

// Get fetches one album by ID.
func (s *Store) Get(ctx context.Context, id string) (*Album, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, session_id, created_at, slot_count, path FROM albums WHERE id = ?`,
		id,
	)
	album, err := scanAlbum(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get album %s: %w", id, err)
	}
	return album, nil
}

// List returns a session's albums, newest first.
func (s *Store) List(ctx context.Context, sessionID string) ([]Album, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, session_id, created_at, slot_count, path
         FROM albums WHERE session_id = ? ORDER BY created_at DESC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list albums: %w", err)
	}
	defer rows.Close()

	var albums []Album
	for rows.Next() {
		album, err := scanAlbum(rows)
		if err != nil {
			return nil, fmt.Errorf("scan album: %w", err)
		}
		albums = append(albums, *album)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list albums: %w", err)
	}
	return albums, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAlbum(row scanner) (*Album, error) {
	var album Album
	var createdAt string
	if err := row.Scan(&album.ID, &album.SessionID, &createdAt, &album.SlotCount, &album.Path); err != nil {
		return nil, err
	}
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	album.CreatedAt = ts
	return &album, nil
}
