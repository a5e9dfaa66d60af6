package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/attempt"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/repository"
)

// Monitor message types published on a session channel.
const (
	MonitorAttempt = "attempt"
	MonitorEvent   = "event"
)

// MonitorMessage is one pub/sub payload forwarded to monitor streams.
type MonitorMessage struct {
	Type    string              `json:"type"`
	Attempt *model.LiveAttempt  `json:"attempt,omitempty"`
	Event   *model.ProctorEvent `json:"event,omitempty"`
}

type attemptCache interface {
	SaveLive(ctx context.Context, live *model.LiveAttempt) error
	SaveOrder(ctx context.Context, p *repository.QuestionOrderPayload) error
	LoadOrder(ctx context.Context, sessionID, regNo string) ([]model.Question, error)
	EnqueueEvent(ctx context.Context, ev *model.ProctorEvent) error
	PublishMonitor(ctx context.Context, sessionID string, payload []byte) error
}

type orderArchive interface {
	GetLatest(ctx context.Context, sessionID, regNo string) ([]model.Question, error)
}

type eventPublisher interface {
	Publish(ctx context.Context, ev *model.ProctorEvent) error
}

// ProctorService builds attempt machines and persists what they report:
// audit events go to the Redis queue and the event exchange, live snapshots
// to the Redis cache, both are broadcast to monitors.
type ProctorService struct {
	cfg       attempt.Config
	backend   attempt.Backend
	cache     attemptCache
	archive   orderArchive
	publisher eventPublisher
	log       zerolog.Logger
}

// NewProctorService creates a new ProctorService.
func NewProctorService(
	cfg *config.Config,
	backend attempt.Backend,
	cache attemptCache,
	archive orderArchive,
	publisher eventPublisher,
	log zerolog.Logger,
) *ProctorService {
	return &ProctorService{
		cfg:       MachineConfig(cfg),
		backend:   backend,
		cache:     cache,
		archive:   archive,
		publisher: publisher,
		log:       log.With().Str("component", "proctor_service").Logger(),
	}
}

// MachineConfig maps application configuration onto attempt settings.
func MachineConfig(cfg *config.Config) attempt.Config {
	return attempt.Config{
		TimeLimit:        int(cfg.QuizTimeLimit / time.Second),
		PollInterval:     cfg.ResumePollInterval,
		MinViewportRatio: cfg.ViewportMinRatio,
		PendingPolicy:    attempt.PendingPolicy(cfg.PendingCheckPolicy),
		PendingRetries:   cfg.PendingRetries,
	}
}

// NewMachine returns a machine reporting to notifier. The caller runs it.
func (s *ProctorService) NewMachine(notifier attempt.Notifier, log zerolog.Logger) *attempt.Machine {
	return attempt.New(s.cfg, attempt.Deps{
		Backend:  s.backend,
		Notifier: notifier,
		Recorder: s,
		Orders:   s,
		Log:      log,
	})
}

// Record queues ev for persistence and fans it out. Failures are logged.
func (s *ProctorService) Record(ctx context.Context, ev model.ProctorEvent) {
	log := s.log.With().Str("attempt_id", ev.AttemptID).Str("type", string(ev.Type)).Logger()

	if err := s.cache.EnqueueEvent(ctx, &ev); err != nil {
		log.Error().Err(err).Msg("Failed to queue proctor event")
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, &ev); err != nil {
			log.Warn().Err(err).Msg("Failed to publish lifecycle event")
		}
	}
	s.broadcast(ctx, ev.SessionID, MonitorMessage{Type: MonitorEvent, Event: &ev})
}

// Publish caches the live view of snap and broadcasts it.
func (s *ProctorService) Publish(ctx context.Context, snap attempt.Snapshot) {
	if snap.SessionID == "" {
		return
	}
	live := LiveFromSnapshot(snap, time.Now().UTC())

	if err := s.cache.SaveLive(ctx, live); err != nil {
		s.log.Error().Err(err).Str("attempt_id", snap.AttemptID).Msg("Failed to cache live attempt")
	}
	s.broadcast(ctx, snap.SessionID, MonitorMessage{Type: MonitorAttempt, Attempt: live})
}

func (s *ProctorService) broadcast(ctx context.Context, sessionID string, msg MonitorMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := s.cache.PublishMonitor(ctx, sessionID, payload); err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID).Msg("Failed to broadcast monitor message")
	}
}

// SaveOrder caches the shuffled order and queues it for the database.
func (s *ProctorService) SaveOrder(ctx context.Context, sessionID, regNo, attemptID string, questions []model.Question) {
	err := s.cache.SaveOrder(ctx, &repository.QuestionOrderPayload{
		AttemptID: attemptID,
		SessionID: sessionID,
		RegNo:     regNo,
		Questions: questions,
	})
	if err != nil {
		s.log.Error().Err(err).Str("attempt_id", attemptID).Msg("Failed to save question order")
	}
}

// LoadOrder reads the cached order, falling back to the persisted one.
func (s *ProctorService) LoadOrder(ctx context.Context, sessionID, regNo string) ([]model.Question, bool) {
	qs, err := s.cache.LoadOrder(ctx, sessionID, regNo)
	if err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID).Msg("Cached question order unavailable")
	}
	if len(qs) > 0 {
		return qs, true
	}
	if s.archive == nil {
		return nil, false
	}

	qs, err = s.archive.GetLatest(ctx, sessionID, regNo)
	if err != nil {
		s.log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to load persisted question order")
		return nil, false
	}
	return qs, len(qs) > 0
}

// LiveFromSnapshot converts a machine snapshot into the monitor view.
func LiveFromSnapshot(snap attempt.Snapshot, now time.Time) *model.LiveAttempt {
	live := &model.LiveAttempt{
		AttemptID:        snap.AttemptID,
		SessionID:        snap.SessionID,
		Phase:            snap.Phase,
		CurrentIndex:     snap.CurrentIndex,
		TotalQuestions:   snap.TotalQuestions,
		AnsweredCount:    len(snap.Answers.Answered()),
		TimeRemaining:    snap.TimeRemaining,
		TabSwitchCount:   snap.TabSwitchCount,
		SplitScreenCount: snap.SplitScreenCount,
		ViolationID:      snap.ViolationID,
		UpdatedAt:        now,
	}
	if snap.Student != nil {
		live.Student = *snap.Student
	}
	return live
}
