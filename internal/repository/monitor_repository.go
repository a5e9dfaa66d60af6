package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// MonitorRepository reads the persisted audit trail of a quiz session.
type MonitorRepository struct {
	pool *pgxpool.Pool
}

// NewMonitorRepository creates a new MonitorRepository.
func NewMonitorRepository(pool *pgxpool.Pool) *MonitorRepository {
	return &MonitorRepository{pool: pool}
}

// EventCounts maps a registration number to its event counts by type.
type EventCounts map[string]map[model.ProctorEventType]int64

// GetEventCounts returns per-student event counts for the given session.
func (r *MonitorRepository) GetEventCounts(ctx context.Context, sessionID string) (EventCounts, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT reg_no, event_type, COUNT(*)
		 FROM proctor_events
		 WHERE session_id = $1
		 GROUP BY reg_no, event_type`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(EventCounts)
	for rows.Next() {
		var (
			regNo string
			typ   string
			count int64
		)
		if err := rows.Scan(&regNo, &typ, &count); err != nil {
			return nil, err
		}
		if counts[regNo] == nil {
			counts[regNo] = make(map[model.ProctorEventType]int64)
		}
		counts[regNo][model.ProctorEventType(typ)] = count
	}
	return counts, rows.Err()
}

// GetViolationTotals returns the number of suspensions per violation kind.
func (r *MonitorRepository) GetViolationTotals(ctx context.Context, sessionID string) (map[model.ViolationKind]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT kind, COUNT(*)
		 FROM proctor_events
		 WHERE session_id = $1 AND event_type = $2 AND kind <> ''
		 GROUP BY kind`,
		sessionID, string(model.EventSuspended),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make(map[model.ViolationKind]int64)
	for rows.Next() {
		var (
			kind  string
			count int64
		)
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, err
		}
		totals[model.ViolationKind(kind)] = count
	}
	return totals, rows.Err()
}
