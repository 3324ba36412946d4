package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// getValue reads one raw value from a collection table.
func (s *Store) getValue(collection, key string) (string, error) {
	var value string
	err := s.db.QueryRow(
		"SELECT value FROM "+collection+" WHERE key = ?", key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read %s[%q]: %w", collection, key, err)
	}
	return value, nil
}

// putValue inserts or replaces one raw value in a collection table.
func (s *Store) putValue(collection, key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO "+collection+" (key, value) VALUES (?, ?) "+
			"ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("write %s[%q]: %w", collection, key, err)
	}
	return nil
}

// deleteValue removes one key from a collection table. Deleting an absent
// key is not an error.
func (s *Store) deleteValue(collection, key string) error {
	if _, err := s.db.Exec("DELETE FROM "+collection+" WHERE key = ?", key); err != nil {
		return fmt.Errorf("delete %s[%q]: %w", collection, key, err)
	}
	return nil
}

func (s *Store) getJSON(collection, key string, out any) error {
	raw, err := s.getValue(collection, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("decode %s[%q]: %w", collection, key, err)
	}
	return nil
}

func (s *Store) putJSON(collection, key string, in any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s[%q]: %w", collection, key, err)
	}
	return s.putValue(collection, key, string(raw))
}
