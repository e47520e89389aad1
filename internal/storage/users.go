package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// UserStorage manages the users rows that log entries reference.
// Accounts and credentials belong to an external service; this table only
// anchors the foreign keys.
type UserStorage struct {
	db *DB
}

// NewUserStorage creates a new user storage handler.
func NewUserStorage(db *DB) *UserStorage {
	return &UserStorage{db: db}
}

// ensureUser inserts the user row if it does not exist yet.
func ensureUser(ctx context.Context, tx *sql.Tx, userID int64) error {
	if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO users (id) VALUES (?)", userID); err != nil {
		return fmt.Errorf("failed to register user %d: %w", userID, err)
	}
	return nil
}

// List returns the ids of every user that has logged a measurement.
func (s *UserStorage) List(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.db.WithRLock(func() error {
		rows, err := s.db.QueryContext(ctx, "SELECT id FROM users ORDER BY id")
		if err != nil {
			return fmt.Errorf("failed to query users: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				return fmt.Errorf("failed to scan user: %w", err)
			}
			ids = append(ids, id)
		}
		return rows.Err()
	})
	return ids, err
}
