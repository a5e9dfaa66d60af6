package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// AttemptStore keeps the Redis side of running attempts: live snapshots for
// the monitor, the shuffled question order per student, and the queues read
// by the persistence workers.
type AttemptStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewAttemptStore creates a new AttemptStore. ttl bounds every key it writes.
func NewAttemptStore(rdb *redis.Client, ttl time.Duration) *AttemptStore {
	return &AttemptStore{rdb: rdb, ttl: ttl}
}

// QuestionOrderPayload is the queue item persisted by the question order worker.
type QuestionOrderPayload struct {
	AttemptID string           `json:"attempt_id"`
	SessionID string           `json:"session_id"`
	RegNo     string           `json:"reg_no"`
	Questions []model.Question `json:"questions"`
}

// SaveLive stores the attempt snapshot and indexes it under its session.
func (s *AttemptStore) SaveLive(ctx context.Context, live *model.LiveAttempt) error {
	data, err := json.Marshal(live)
	if err != nil {
		return fmt.Errorf("marshal live attempt: %w", err)
	}

	setKey := config.CacheKey.SessionAttemptsKey(live.SessionID)
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, config.CacheKey.LiveAttemptKey(live.AttemptID), data, s.ttl)
	pipe.SAdd(ctx, setKey, live.AttemptID)
	pipe.Expire(ctx, setKey, s.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

// ListLive returns the live snapshots of a session. Expired entries are
// dropped from the session index.
func (s *AttemptStore) ListLive(ctx context.Context, sessionID string) ([]model.LiveAttempt, error) {
	setKey := config.CacheKey.SessionAttemptsKey(sessionID)
	ids, err := s.rdb.SMembers(ctx, setKey).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []model.LiveAttempt{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = config.CacheKey.LiveAttemptKey(id)
	}
	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]model.LiveAttempt, 0, len(values))
	var stale []interface{}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var live model.LiveAttempt
		if err := json.Unmarshal([]byte(raw), &live); err != nil {
			continue
		}
		out = append(out, live)
	}
	if len(stale) > 0 {
		s.rdb.SRem(ctx, setKey, stale...)
	}
	return out, nil
}

// SaveOrder caches the shuffled questions of a student and queues them for
// persistence.
func (s *AttemptStore) SaveOrder(ctx context.Context, p *QuestionOrderPayload) error {
	p.RegNo = normalizeRegNo(p.RegNo)
	questions, err := json.Marshal(p.Questions)
	if err != nil {
		return fmt.Errorf("marshal question order: %w", err)
	}
	item, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal question order payload: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.ShuffledOrderKey(p.SessionID, p.RegNo), questions, s.ttl)
	pipe.RPush(ctx, config.WorkerKey.PersistQuestionOrderQueue, item)
	_, err = pipe.Exec(ctx)
	return err
}

// LoadOrder returns the cached shuffled questions of a student, or
// (nil, nil) when none are cached.
func (s *AttemptStore) LoadOrder(ctx context.Context, sessionID, regNo string) ([]model.Question, error) {
	raw, err := s.rdb.Get(ctx, config.CacheKey.ShuffledOrderKey(sessionID, regNo)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var qs []model.Question
	if err := json.Unmarshal(raw, &qs); err != nil {
		return nil, fmt.Errorf("decode cached order: %w", err)
	}
	return qs, nil
}

// EnqueueEvent pushes an audit event for the proctor event worker.
func (s *AttemptStore) EnqueueEvent(ctx context.Context, ev *model.ProctorEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal proctor event: %w", err)
	}
	return s.rdb.RPush(ctx, config.WorkerKey.PersistProctorEventsQueue, data).Err()
}

// PublishMonitor broadcasts a monitor message on the session channel.
func (s *AttemptStore) PublishMonitor(ctx context.Context, sessionID string, payload []byte) error {
	return s.rdb.Publish(ctx, config.CacheKey.SessionMonitorChannel(sessionID), payload).Err()
}

// SubscribeMonitor subscribes to a session channel. The caller closes it.
func (s *AttemptStore) SubscribeMonitor(ctx context.Context, sessionID string) *redis.PubSub {
	return s.rdb.Subscribe(ctx, config.CacheKey.SessionMonitorChannel(sessionID))
}

// normalizeRegNo matches the case-insensitive registration number lookups.
func normalizeRegNo(regNo string) string {
	return strings.ToUpper(strings.TrimSpace(regNo))
}
