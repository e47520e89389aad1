package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/user/netmon/internal/model"
)

// UptimeStorage handles uptime log persistence.
type UptimeStorage struct {
	db *DB
}

// NewUptimeStorage creates a new uptime storage handler.
func NewUptimeStorage(db *DB) *UptimeStorage {
	return &UptimeStorage{db: db}
}

// Save appends an uptime entry and sets its ID.
func (s *UptimeStorage) Save(ctx context.Context, e *model.LogEntry) error {
	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		if err := ensureUser(ctx, tx, e.UserID); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			"INSERT INTO uptime_logs (user_id, url, status, timestamp) VALUES (?, ?, ?, ?)",
			e.UserID, e.Uptime.URL, string(e.Uptime.Status), e.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to insert uptime log: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert ID: %w", err)
		}
		e.ID = id
		return nil
	})
}

// Recent returns the newest uptime entries for userID.
func (s *UptimeStorage) Recent(ctx context.Context, userID int64, limit int) ([]model.LogEntry, error) {
	query := `SELECT id, user_id, url, status, timestamp
			  FROM uptime_logs WHERE user_id = ?
			  ORDER BY timestamp DESC, id DESC LIMIT ?`

	var entries []model.LogEntry
	err := s.db.WithRLock(func() error {
		rows, err := s.db.QueryContext(ctx, query, userID, limit)
		if err != nil {
			return fmt.Errorf("failed to query uptime logs: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			e := model.LogEntry{Kind: model.KindUptime, Uptime: &model.UptimeResult{}}
			var status string
			if err := rows.Scan(&e.ID, &e.UserID, &e.Uptime.URL, &status, &e.Timestamp); err != nil {
				return fmt.Errorf("failed to scan uptime log: %w", err)
			}
			e.Uptime.Status = model.UptimeStatus(status)
			entries = append(entries, e)
		}
		return rows.Err()
	})
	return entries, err
}

// Count returns the number of uptime entries for userID.
func (s *UptimeStorage) Count(ctx context.Context, userID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM uptime_logs WHERE user_id = ?", userID).Scan(&count)
	return count, err
}

// CountOnline returns how many uptime entries for userID were Online.
func (s *UptimeStorage) CountOnline(ctx context.Context, userID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM uptime_logs WHERE user_id = ? AND status = ?",
		userID, string(model.StatusOnline)).Scan(&count)
	return count, err
}
