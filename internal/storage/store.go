package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/user/netmon/internal/model"
	"github.com/user/netmon/internal/util"
)

// Store is the append-only measurement log. Entries are never updated or
// deleted, and storage failures are always returned to the caller.
type Store interface {
	// Append validates e, assigns its ID and Timestamp, and persists it.
	Append(ctx context.Context, e *model.LogEntry) error
	// Recent returns at most limit entries of kind for userID, newest first.
	// A limit <= 0 selects the kind's recency window.
	Recent(ctx context.Context, kind model.Kind, userID int64, limit int) ([]model.LogEntry, error)
	Close() error
}

// OpenStore opens the backend named by cfg.StoreBackend.
func OpenStore(ctx context.Context, cfg *util.Config) (Store, error) {
	switch cfg.StoreBackend {
	case "", "sqlite":
		db, err := OpenInDir(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		return NewSQLiteStore(db), nil
	case "dynamodb":
		return OpenDynamoStore(ctx, cfg.DynamoRegion, cfg.DynamoTablePrefix)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// SQLiteStore implements Store on the local SQLite database.
type SQLiteStore struct {
	db        *DB
	Ping      *PingStorage
	Uptime    *UptimeStorage
	Bandwidth *BandwidthStorage
	Users     *UserStorage
}

// NewSQLiteStore wires the per-kind storages onto db.
func NewSQLiteStore(db *DB) *SQLiteStore {
	return &SQLiteStore{
		db:        db,
		Ping:      NewPingStorage(db),
		Uptime:    NewUptimeStorage(db),
		Bandwidth: NewBandwidthStorage(db),
		Users:     NewUserStorage(db),
	}
}

// Append implements Store.
func (s *SQLiteStore) Append(ctx context.Context, e *model.LogEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	e.Timestamp = time.Now().UTC()

	switch e.Kind {
	case model.KindPing:
		return s.Ping.Save(ctx, e)
	case model.KindUptime:
		return s.Uptime.Save(ctx, e)
	default:
		return s.Bandwidth.Save(ctx, e)
	}
}

// Recent implements Store.
func (s *SQLiteStore) Recent(ctx context.Context, kind model.Kind, userID int64, limit int) ([]model.LogEntry, error) {
	limit = kind.ClampLimit(limit)

	switch kind {
	case model.KindPing:
		return s.Ping.Recent(ctx, userID, limit)
	case model.KindUptime:
		return s.Uptime.Recent(ctx, userID, limit)
	case model.KindBandwidth:
		return s.Bandwidth.Recent(ctx, userID, limit)
	default:
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownKind, kind)
	}
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
