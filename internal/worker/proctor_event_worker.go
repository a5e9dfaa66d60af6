package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/model"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

var proctorEventColumns = []string{"attempt_id", "session_id", "reg_no", "event_type", "kind", "detail", "recorded_at"}

// ProctorEventWorker drains the proctor event queue into proctor_events.
type ProctorEventWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

func NewProctorEventWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ProctorEventWorker {
	return &ProctorEventWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "proctor_event_worker").Logger(),
	}
}

func (w *ProctorEventWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ProctorEventWorker started")

	buffer := make([]*model.ProctorEvent, 0, BatchSize)
	lastFlushTime := time.Now()

	for {
		// Flush on size or age
		if len(buffer) > 0 {
			if len(buffer) >= BatchSize || time.Since(lastFlushTime) >= BatchTimeout {
				w.flushSafe(ctx, buffer)
				buffer = buffer[:0]
				lastFlushTime = time.Now()
			}
		}

		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		// BLPop blocks for PollTimeout and returns immediately if data exists.
		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistProctorEventsQueue).Result()
		if err != nil {
			if err == redis.Nil {
				continue // queue empty, loop back to check the flush timer
			}
			if ctx.Err() != nil {
				w.shutdown(buffer)
				return
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}

		if len(result) < 2 {
			continue
		}

		var ev model.ProctorEvent
		if err := json.Unmarshal([]byte(result[1]), &ev); err != nil {
			// Malformed JSON cannot be retried.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed JSON")
			continue
		}
		if ev.SessionID == "" || ev.Type == "" {
			w.log.Warn().Str("data", result[1]).Msg("Discarding event without session or type")
			continue
		}

		buffer = append(buffer, &ev)
	}
}

// flushSafe attempts a bulk copy, then row-by-row insert, then requeue.
func (w *ProctorEventWorker) flushSafe(ctx context.Context, batch []*model.ProctorEvent) {
	if err := w.bulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")
		w.fallbackInsert(ctx, batch)
	}
}

func (w *ProctorEventWorker) bulkInsert(ctx context.Context, batch []*model.ProctorEvent) error {
	rows := make([][]interface{}, 0, len(batch))
	for _, ev := range batch {
		rows = append(rows, eventRow(ev))
	}

	_, err := w.pool.CopyFrom(
		ctx,
		pgx.Identifier{"proctor_events"},
		proctorEventColumns,
		pgx.CopyFromRows(rows),
	)
	return err
}

func (w *ProctorEventWorker) fallbackInsert(ctx context.Context, batch []*model.ProctorEvent) {
	requeueList := make([]*model.ProctorEvent, 0)

	for _, ev := range batch {
		_, err := w.pool.Exec(ctx,
			`INSERT INTO proctor_events (attempt_id, session_id, reg_no, event_type, kind, detail, recorded_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			eventRow(ev)...,
		)
		if err != nil {
			w.log.Error().Err(err).Str("attempt_id", ev.AttemptID).Msg("Insert failed, requeueing")
			requeueList = append(requeueList, ev)
		}
	}

	if len(requeueList) > 0 {
		w.requeue(ctx, requeueList)
	}
}

func (w *ProctorEventWorker) requeue(ctx context.Context, items []*model.ProctorEvent) {
	pipe := w.rdb.Pipeline()
	for _, ev := range items {
		data, _ := json.Marshal(ev)
		pipe.RPush(ctx, config.WorkerKey.PersistProctorEventsQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Int("count", len(items)).Msg("CRITICAL: Failed to requeue proctor events. Data loss occurred.")
		return
	}
	w.log.Info().Int("count", len(items)).Msg("Requeued failed items back to Redis")
	// Back off so a database outage does not spin the loop.
	time.Sleep(2 * time.Second)
}

func (w *ProctorEventWorker) shutdown(buffer []*model.ProctorEvent) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flushSafe(shutdownCtx, buffer)
	}
}

func eventRow(ev *model.ProctorEvent) []interface{} {
	recordedAt := ev.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}
	return []interface{}{
		ev.AttemptID, ev.SessionID, ev.RegNo, string(ev.Type), ev.Kind, ev.Detail, recordedAt,
	}
}
