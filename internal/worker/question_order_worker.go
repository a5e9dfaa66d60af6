package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/repository"
)

const (
	QuestionOrderBatchSize    = 50
	QuestionOrderBatchTimeout = 2 * time.Second
	QuestionOrderPollTimeout  = 1 * time.Second
)

// QuestionOrderWorker persists shuffled question orders so a resume can
// restore them after the Redis copy expired.
type QuestionOrderWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

func NewQuestionOrderWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *QuestionOrderWorker {
	return &QuestionOrderWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "question_order_worker").Logger(),
	}
}

func (w *QuestionOrderWorker) Start(ctx context.Context) {
	w.log.Info().Msg("QuestionOrderWorker started")

	batch := make([]*repository.QuestionOrderPayload, 0, QuestionOrderBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= QuestionOrderBatchSize || time.Since(lastFlush) >= QuestionOrderBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			w.flushSafe(flushCtx, batch)
			cancel()
			return

		default:
			item, err := w.rdb.BLPop(ctx, QuestionOrderPollTimeout, config.WorkerKey.PersistQuestionOrderQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var p repository.QuestionOrderPayload
			if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}
			if _, err := uuid.Parse(p.AttemptID); err != nil {
				w.log.Error().Str("attempt_id", p.AttemptID).Msg("Dropping question order with invalid attempt id")
				continue
			}

			batch = append(batch, &p)
		}
	}
}

func (w *QuestionOrderWorker) flushSafe(ctx context.Context, batch []*repository.QuestionOrderPayload) {
	if len(batch) == 0 {
		return
	}

	if err := w.bulkUpsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("bulk question order upsert failed, using fallback")

		for _, p := range batch {
			if err := w.persistSingle(ctx, p); err != nil {
				w.log.Error().Err(err).Str("attempt_id", p.AttemptID).Msg("persistSingle failed, requeueing")
				raw, _ := json.Marshal(p)
				w.rdb.RPush(ctx, config.WorkerKey.PersistQuestionOrderQueue, raw)
			}
		}
	}
}

func (w *QuestionOrderWorker) bulkUpsert(ctx context.Context, batch []*repository.QuestionOrderPayload) error {
	n := len(batch)

	attemptIDs := make([]uuid.UUID, 0, n)
	sessions := make([]string, 0, n)
	regNos := make([]string, 0, n)
	orders := make([][]byte, 0, n)

	for _, p := range batch {
		id, err := uuid.Parse(p.AttemptID)
		if err != nil {
			return err
		}
		qb, err := json.Marshal(p.Questions)
		if err != nil {
			return err
		}

		attemptIDs = append(attemptIDs, id)
		sessions = append(sessions, p.SessionID)
		regNos = append(regNos, p.RegNo)
		orders = append(orders, qb)
	}

	query := `
		INSERT INTO attempt_question_orders (attempt_id, session_id, reg_no, questions)
		SELECT u.attempt_id, u.session_id, u.reg_no, u.questions
		FROM UNNEST(
			$1::uuid[],
			$2::text[],
			$3::text[],
			$4::jsonb[]
		) AS u (attempt_id, session_id, reg_no, questions)
		ON CONFLICT (attempt_id) DO UPDATE
		SET questions = EXCLUDED.questions
	`

	_, err := w.pool.Exec(ctx, query, attemptIDs, sessions, regNos, orders)
	return err
}

func (w *QuestionOrderWorker) persistSingle(ctx context.Context, p *repository.QuestionOrderPayload) error {
	id, err := uuid.Parse(p.AttemptID)
	if err != nil {
		return err
	}

	qb, err := json.Marshal(p.Questions)
	if err != nil {
		return err
	}

	_, err = w.pool.Exec(ctx,
		`INSERT INTO attempt_question_orders (attempt_id, session_id, reg_no, questions)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (attempt_id) DO UPDATE SET questions = EXCLUDED.questions`,
		id, p.SessionID, p.RegNo, qb,
	)
	return err
}
