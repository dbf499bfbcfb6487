package persistence

import (
	"database/sql"
	"errors"

	"github.com/rheijn/flume/pkg/api"
)

// SQLiteSpecStore is a SpecStore backed by SQLite.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing
// the driver, e.g.:
//
//	import _ "modernc.org/sqlite"
type SQLiteSpecStore struct {
	db *sql.DB
}

// Ensure SQLiteSpecStore implements SpecStore.
var _ SpecStore = (*SQLiteSpecStore)(nil)

// NewSQLiteSpecStore initializes the required schema in the given database
// and returns a new SQLiteSpecStore.
func NewSQLiteSpecStore(db *sql.DB) (*SQLiteSpecStore, error) {
	s := &SQLiteSpecStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteSpecStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS specs (
			name TEXT PRIMARY KEY,
			version TEXT NOT NULL,
			doc BLOB NOT NULL
		);`,
	)
	return err
}

func (s *SQLiteSpecStore) SaveSpec(name string, spec *api.Spec) error {
	doc, err := EncodeSpec(spec)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO specs (name, version, doc) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET version = excluded.version, doc = excluded.doc`,
		name,
		spec.Version,
		doc,
	)
	return err
}

func (s *SQLiteSpecStore) GetSpec(name string) (*api.Spec, error) {
	var doc []byte
	err := s.db.QueryRow(`SELECT doc FROM specs WHERE name = ?`, name).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSpecNotFound
	}
	if err != nil {
		return nil, err
	}
	return DecodeSpec(doc)
}

func (s *SQLiteSpecStore) ListSpecs() ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM specs ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *SQLiteSpecStore) DeleteSpec(name string) error {
	res, err := s.db.Exec(`DELETE FROM specs WHERE name = ?`, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSpecNotFound
	}
	return nil
}
