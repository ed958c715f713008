package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"istanbul-explorer/pkg/database"
	errs "istanbul-explorer/pkg/errors"
)

// SQLEventStore persists events into the staging_events table.
type SQLEventStore struct {
	db *database.DB
}

func NewSQLEventStore(db *database.DB) (*SQLEventStore, error) {
	if db == nil {
		return nil, errs.NewValidation("events.NewSQLEventStore", "nil database", nil)
	}
	return &SQLEventStore{db: db}, nil
}

var _ EventStore = (*SQLEventStore)(nil)

// Append inserts one event row. Failures are returned so the caller can log
// a warning; audit persistence must never abort the action that produced it.
func (s *SQLEventStore) Append(ctx context.Context, e Event) error {
	data, err := e.MarshalData()
	if err != nil {
		return errs.NewBiz("events.Append", "marshal event payload", err)
	}

	wctx, cancel := s.db.WriteCtx(ctx)
	defer cancel()

	const q = `INSERT INTO staging_events (id, staging_id, type, admin, data, ts)
	           VALUES (?, ?, ?, ?, ?, ?)`
	_, err = s.db.Conn().ExecContext(wctx, q,
		uuid.NewString(), e.StagingID(), e.Type(), e.Admin(), string(data), e.Timestamp())
	if err != nil {
		return errs.NewDB("events.Append", "insert event", err)
	}
	return nil
}

// RecentByStagingID returns the latest events for one staging item.
func (s *SQLEventStore) RecentByStagingID(ctx context.Context, stagingID int64, limit int) ([]StoredEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	rctx, cancel := s.db.ReadCtx(ctx)
	defer cancel()

	const q = `SELECT id, staging_id, type, admin, data, ts
	           FROM staging_events WHERE staging_id = ? ORDER BY ts DESC LIMIT ?`
	rows, err := s.db.Conn().QueryContext(rctx, q, stagingID, limit)
	if err != nil {
		return nil, errs.NewDB("events.RecentByStagingID", "query events", err)
	}
	defer rows.Close()

	var out []StoredEvent
	for rows.Next() {
		var ev StoredEvent
		var ts time.Time
		if err := rows.Scan(&ev.ID, &ev.StagingID, &ev.Type, &ev.Admin, &ev.Data, &ts); err != nil {
			return nil, errs.NewDB("events.RecentByStagingID", "scan event", err)
		}
		ev.Ts = ts
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewDB("events.RecentByStagingID", "iterate events", err)
	}
	return out, nil
}
