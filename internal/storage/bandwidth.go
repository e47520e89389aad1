package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/user/netmon/internal/model"
)

// BandwidthStorage handles bandwidth log persistence.
type BandwidthStorage struct {
	db *DB
}

// NewBandwidthStorage creates a new bandwidth storage handler.
func NewBandwidthStorage(db *DB) *BandwidthStorage {
	return &BandwidthStorage{db: db}
}

// Save appends a bandwidth entry and sets its ID.
func (s *BandwidthStorage) Save(ctx context.Context, e *model.LogEntry) error {
	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		if err := ensureUser(ctx, tx, e.UserID); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			"INSERT INTO bandwidth_logs (user_id, download, upload, timestamp) VALUES (?, ?, ?, ?)",
			e.UserID, e.Bandwidth.DownloadMbps, e.Bandwidth.UploadMbps, e.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to insert bandwidth log: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert ID: %w", err)
		}
		e.ID = id
		return nil
	})
}

// Recent returns the newest bandwidth entries for userID.
func (s *BandwidthStorage) Recent(ctx context.Context, userID int64, limit int) ([]model.LogEntry, error) {
	query := `SELECT id, user_id, download, upload, timestamp
			  FROM bandwidth_logs WHERE user_id = ?
			  ORDER BY timestamp DESC, id DESC LIMIT ?`

	var entries []model.LogEntry
	err := s.db.WithRLock(func() error {
		rows, err := s.db.QueryContext(ctx, query, userID, limit)
		if err != nil {
			return fmt.Errorf("failed to query bandwidth logs: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			e := model.LogEntry{Kind: model.KindBandwidth, Bandwidth: &model.BandwidthSample{}}
			if err := rows.Scan(&e.ID, &e.UserID,
				&e.Bandwidth.DownloadMbps, &e.Bandwidth.UploadMbps, &e.Timestamp); err != nil {
				return fmt.Errorf("failed to scan bandwidth log: %w", err)
			}
			entries = append(entries, e)
		}
		return rows.Err()
	})
	return entries, err
}

// Count returns the number of bandwidth entries for userID.
func (s *BandwidthStorage) Count(ctx context.Context, userID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM bandwidth_logs WHERE user_id = ?", userID).Scan(&count)
	return count, err
}
