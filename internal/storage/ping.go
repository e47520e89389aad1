package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/user/netmon/internal/model"
)

// PingStorage handles ping log persistence.
type PingStorage struct {
	db *DB
}

// NewPingStorage creates a new ping storage handler.
func NewPingStorage(db *DB) *PingStorage {
	return &PingStorage{db: db}
}

// Save appends a ping entry and sets its ID. Timestamp must already be set.
func (s *PingStorage) Save(ctx context.Context, e *model.LogEntry) error {
	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		if err := ensureUser(ctx, tx, e.UserID); err != nil {
			return err
		}

		query := `INSERT INTO ping_logs (user_id, target, avg_latency, packet_loss, failure, timestamp)
				  VALUES (?, ?, ?, ?, ?, ?)`
		result, err := tx.ExecContext(ctx, query,
			e.UserID, e.Ping.Target, e.Ping.AvgLatencyMs,
			e.Ping.PacketLossPct, string(e.Ping.Failure), e.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to insert ping log: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert ID: %w", err)
		}
		e.ID = id
		return nil
	})
}

// Recent returns the newest ping entries for userID.
func (s *PingStorage) Recent(ctx context.Context, userID int64, limit int) ([]model.LogEntry, error) {
	query := `SELECT id, user_id, target, avg_latency, packet_loss, failure, timestamp
			  FROM ping_logs WHERE user_id = ?
			  ORDER BY timestamp DESC, id DESC LIMIT ?`

	var entries []model.LogEntry
	err := s.db.WithRLock(func() error {
		rows, err := s.db.QueryContext(ctx, query, userID, limit)
		if err != nil {
			return fmt.Errorf("failed to query ping logs: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			e := model.LogEntry{Kind: model.KindPing, Ping: &model.PingPayload{}}
			var failure string
			if err := rows.Scan(&e.ID, &e.UserID, &e.Ping.Target,
				&e.Ping.AvgLatencyMs, &e.Ping.PacketLossPct, &failure, &e.Timestamp); err != nil {
				return fmt.Errorf("failed to scan ping log: %w", err)
			}
			e.Ping.Failure = model.FailureReason(failure)
			entries = append(entries, e)
		}
		return rows.Err()
	})
	return entries, err
}

// Count returns the number of ping entries for userID.
func (s *PingStorage) Count(ctx context.Context, userID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM ping_logs WHERE user_id = ?", userID).Scan(&count)
	return count, err
}
