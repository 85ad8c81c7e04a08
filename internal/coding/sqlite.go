package coding

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

// Storage keys. The project list lives as one serialized blob under a fixed
// key; the last-active project id is tracked under its own key.
const (
	projectsKey   = "qualivision_multi_projects_v3"
	lastActiveKey = "qualivision_last_active"
)

// SQLiteStore is a durable Store backed by a single-table SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	log *slog.Logger
}

// OpenSQLiteStore opens (creating if needed) the database at path.
func OpenSQLiteStore(path string, log *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (key TEXT PRIMARY KEY, value BLOB NOT NULL)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create kv table: %w", err)
	}
	return &SQLiteStore{db: db, log: log}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load implements Store.Load. A missing or malformed blob loads as an empty
// project list: corruption must never prevent the application from starting.
func (s *SQLiteStore) Load() ([]Project, error) {
	blob, err := s.get(projectsKey)
	if err != nil {
		return nil, err
	}
	if blob == nil {
		return nil, nil
	}
	var projects []Project
	if err := json.Unmarshal(blob, &projects); err != nil {
		s.log.Warn("discarding malformed project blob", "error", err)
		return nil, nil
	}
	return projects, nil
}

// Save implements Store.Save.
func (s *SQLiteStore) Save(projects []Project) error {
	blob, err := json.Marshal(projects)
	if err != nil {
		return fmt.Errorf("marshal projects: %w", err)
	}
	return s.put(projectsKey, blob)
}

// LoadLastActive implements Store.LoadLastActive.
func (s *SQLiteStore) LoadLastActive() (ProjectID, error) {
	blob, err := s.get(lastActiveKey)
	if err != nil {
		return "", err
	}
	return ProjectID(blob), nil
}

// SaveLastActive implements Store.SaveLastActive.
func (s *SQLiteStore) SaveLastActive(id ProjectID) error {
	return s.put(lastActiveKey, []byte(id))
}

func (s *SQLiteStore) get(key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteStore) put(key string, value []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
