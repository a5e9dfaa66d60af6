package service

import (
	"context"
	"sort"
	"sync"

	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/repository"
)

type liveLister interface {
	ListLive(ctx context.Context, sessionID string) ([]model.LiveAttempt, error)
}

type auditReader interface {
	GetEventCounts(ctx context.Context, sessionID string) (repository.EventCounts, error)
	GetViolationTotals(ctx context.Context, sessionID string) (map[model.ViolationKind]int64, error)
}

// MonitorService orchestrates live session monitoring.
type MonitorService struct {
	live  liveLister
	audit auditReader
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(live liveLister, audit auditReader) *MonitorService {
	return &MonitorService{live: live, audit: audit}
}

// SessionOverview is the monitor snapshot of one quiz session.
type SessionOverview struct {
	SessionID       string                        `json:"session_id"`
	Attempts        []model.LiveAttempt           `json:"attempts"`
	ByPhase         map[model.Phase]int           `json:"by_phase"`
	EventCounts     repository.EventCounts        `json:"event_counts"`
	ViolationTotals map[model.ViolationKind]int64 `json:"violation_totals"`
}

// GetSessionOverview fetches live attempts and audit counts concurrently.
// Live attempts are required; audit counts are best-effort.
func (s *MonitorService) GetSessionOverview(ctx context.Context, sessionID string) (*SessionOverview, error) {
	var (
		attempts  []model.LiveAttempt
		counts    repository.EventCounts
		totals    map[model.ViolationKind]int64
		liveErr   error
		countsErr error
		totalsErr error
		wg        sync.WaitGroup
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		attempts, liveErr = s.live.ListLive(ctx, sessionID)
	}()
	go func() {
		defer wg.Done()
		counts, countsErr = s.audit.GetEventCounts(ctx, sessionID)
	}()
	go func() {
		defer wg.Done()
		totals, totalsErr = s.audit.GetViolationTotals(ctx, sessionID)
	}()
	wg.Wait()

	if liveErr != nil {
		return nil, liveErr
	}

	overview := &SessionOverview{
		SessionID:       sessionID,
		Attempts:        attempts,
		ByPhase:         make(map[model.Phase]int),
		EventCounts:     make(repository.EventCounts),
		ViolationTotals: make(map[model.ViolationKind]int64),
	}
	if overview.Attempts == nil {
		overview.Attempts = []model.LiveAttempt{}
	}
	sort.Slice(overview.Attempts, func(i, j int) bool {
		return overview.Attempts[i].Student.RegNo < overview.Attempts[j].Student.RegNo
	})
	for _, a := range overview.Attempts {
		overview.ByPhase[a.Phase]++
	}
	if countsErr == nil && counts != nil {
		overview.EventCounts = counts
	}
	if totalsErr == nil && totals != nil {
		overview.ViolationTotals = totals
	}
	return overview, nil
}
