package db

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"healthrisk/registry"
)

// Store keeps the model-load audit log. It never holds user inputs or
// prediction results.
type Store struct {
	database *sql.DB
}

// Open opens (or creates) the SQLite database at path.
func Open(path string) (*Store, error) {
	database, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	query := `
    CREATE TABLE IF NOT EXISTS model_loads (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        disease VARCHAR(20) NOT NULL,
        path TEXT NOT NULL,
        model_type VARCHAR(20),
        checksum VARCHAR(64),
        loaded INTEGER NOT NULL,
        error TEXT,
        loaded_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_model_loads_disease ON model_loads(disease, loaded_at);
    `
	if _, err := database.Exec(query); err != nil {
		database.Close()
		return nil, err
	}
	return &Store{database: database}, nil
}

func (s *Store) Close() error {
	if s == nil || s.database == nil {
		return nil
	}
	return s.database.Close()
}

// SaveModelLoads appends one row per load record.
func (s *Store) SaveModelLoads(records []registry.LoadRecord) error {
	if s == nil || s.database == nil {
		return errors.New("database not initialized")
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := s.database.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
        INSERT INTO model_loads (disease, path, model_type, checksum, loaded, error, loaded_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		loadedAt := r.LoadedAt
		if loadedAt.IsZero() {
			loadedAt = time.Now().UTC()
		}
		if _, err := stmt.Exec(r.Disease.String(), r.Path, r.Type, r.Checksum, r.Loaded, r.Error, loadedAt); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// ModelLoad is one row of the audit log.
type ModelLoad struct {
	Disease   string    `json:"disease"`
	Path      string    `json:"path"`
	ModelType string    `json:"model_type"`
	Checksum  string    `json:"checksum,omitempty"`
	Loaded    bool      `json:"loaded"`
	Error     string    `json:"error,omitempty"`
	LoadedAt  time.Time `json:"loaded_at"`
}

// QueryModelLoads returns the newest rows first. An empty disease matches all.
func (s *Store) QueryModelLoads(disease string, limit int) ([]ModelLoad, error) {
	if s == nil || s.database == nil {
		return nil, errors.New("database not initialized")
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.database.Query(`
        SELECT disease, path, model_type, checksum, loaded, error, loaded_at
        FROM model_loads
        WHERE ? = '' OR disease = ?
        ORDER BY loaded_at DESC, id DESC
        LIMIT ?`, disease, disease, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	loads := make([]ModelLoad, 0)
	for rows.Next() {
		var l ModelLoad
		var modelType, checksum, loadErr sql.NullString
		if err := rows.Scan(&l.Disease, &l.Path, &modelType, &checksum, &l.Loaded, &loadErr, &l.LoadedAt); err != nil {
			return nil, err
		}
		l.ModelType = modelType.String
		l.Checksum = checksum.String
		l.Error = loadErr.String
		loads = append(loads, l)
	}
	return loads, rows.Err()
}
