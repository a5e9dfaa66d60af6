// Package attempt runs one test-taker's quiz attempt as a state machine.
//
// A Machine owns all attempt state and is driven by a single goroutine
// (Run) that handles events one at a time. The timer and the resume poller
// run in scopes bound to the InProgress and Suspended phases; they only post
// events back into the machine and are stopped on every phase exit.
package attempt

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/countdown"
	"github.com/stemsi/exstem-proctor/internal/detector"
	"github.com/stemsi/exstem-proctor/internal/metrics"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stemsi/exstem-proctor/internal/shuffle"
)

// Backend is the quiz backend REST contract.
type Backend interface {
	GetQuizSession(ctx context.Context, code string) (*model.QuizSession, error)
	CreateViolation(ctx context.Context, req *model.ViolationRequest) (string, error)
	CheckPending(ctx context.Context, req *model.PendingCheckRequest) (*model.PendingCheckResponse, error)
	Continue(ctx context.Context, violationID string) (*model.ContinueResponse, error)
	SubmitResult(ctx context.Context, req *model.ResultRequest) error
	AssetURL(path string) string
}

// Recorder receives audit events and live snapshots. Implementations log
// their own failures; the machine never waits on them beyond the call.
type Recorder interface {
	Record(ctx context.Context, ev model.ProctorEvent)
	Publish(ctx context.Context, snap Snapshot)
}

// OrderStore keeps the shuffled question order of an attempt so a resume
// handled by another process can restore it.
type OrderStore interface {
	SaveOrder(ctx context.Context, sessionID, regNo, attemptID string, questions []model.Question)
	LoadOrder(ctx context.Context, sessionID, regNo string) ([]model.Question, bool)
}

// PendingPolicy decides how a failed pending-violation check is treated.
type PendingPolicy string

const (
	// PendingOptimistic starts the attempt as if nothing were pending.
	PendingOptimistic PendingPolicy = "optimistic"
	// PendingBlock keeps the student on the info form.
	PendingBlock PendingPolicy = "block"
)

// Config tunes a Machine. Zero values select defaults.
type Config struct {
	TimeLimit        int // seconds
	TickInterval     time.Duration
	PollInterval     time.Duration
	MinViewportRatio float64
	PendingPolicy    PendingPolicy
	PendingRetries   int
	PendingBackoff   time.Duration
	QueueSize        int
}

const (
	DefaultTimeLimit    = 90 * 60
	DefaultPollInterval = 3 * time.Second

	// live snapshots are published to the recorder every N ticks
	publishEvery = 10
	// a failed forced submission is retried every N ticks
	autoRetryEvery = 5
)

func (c Config) withDefaults() Config {
	if c.TimeLimit <= 0 {
		c.TimeLimit = DefaultTimeLimit
	}
	if c.TickInterval <= 0 {
		c.TickInterval = time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.PendingPolicy != PendingBlock {
		c.PendingPolicy = PendingOptimistic
	}
	if c.PendingRetries < 1 {
		c.PendingRetries = 1
	}
	if c.PendingBackoff <= 0 {
		c.PendingBackoff = 500 * time.Millisecond
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	return c
}

// Deps are the collaborators of a Machine. Backend and Notifier are required.
type Deps struct {
	Backend  Backend
	Notifier Notifier
	Recorder Recorder
	Orders   OrderStore
	Rand     func() *rand.Rand
	NewID    func() string
	Log      zerolog.Logger
}

// Machine is one attempt. Handle and Snapshot must only be called from the
// goroutine running Run, or from a single goroutine when Run is not used.
type Machine struct {
	cfg      Config
	backend  Backend
	notifier Notifier
	recorder Recorder
	orders   OrderStore
	newRand  func() *rand.Rand
	newID    func() string
	baseLog  zerolog.Logger
	log      zerolog.Logger

	events  chan Event
	done    chan struct{}
	stopped bool

	phase     model.Phase
	quiz      *model.QuizSession
	student   *model.StudentInfo
	attemptID string
	questions []model.Question
	answers   model.Answers
	index     int
	allotment int
	timer     *countdown.Countdown
	det       detector.Detector
	resumed   bool
	result    *Result

	// violation is the open suspension. local is true when this machine
	// took the snapshot itself, false when it was found by a pending check.
	violation *model.ViolationRecord
	local     bool

	gen         uint64
	progress    *scope
	progressGen uint64
	poll        *scope
	pollGen     uint64
	ticks       int

	// autoPending is set once the countdown fired and stays set until the
	// forced submission went through. autoWait counts ticks to the next try.
	autoPending bool
	autoWait    int
}

// New returns a machine in the CodeEntry phase.
func New(cfg Config, deps Deps) *Machine {
	cfg = cfg.withDefaults()
	if deps.Rand == nil {
		deps.Rand = shuffle.NewAttemptSource
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	if deps.Notifier == nil {
		deps.Notifier = NotifierFunc(func(Notice) {})
	}

	base := deps.Log.With().Str("component", "attempt").Logger()
	m := &Machine{
		cfg:      cfg,
		backend:  deps.Backend,
		notifier: deps.Notifier,
		recorder: deps.Recorder,
		orders:   deps.Orders,
		newRand:  deps.Rand,
		newID:    deps.NewID,
		baseLog:  base,
		log:      base,
		events:   make(chan Event, cfg.QueueSize),
		done:     make(chan struct{}),
		phase:    model.PhaseCodeEntry,
		det:      detector.New(cfg.MinViewportRatio),
	}
	metrics.PhaseChanged("", string(m.phase))
	return m
}

// Dispatch queues ev for the loop. It reports false once the machine has stopped.
func (m *Machine) Dispatch(ev Event) bool {
	// a closed done must win over free queue space
	select {
	case <-m.done:
		return false
	default:
	}

	select {
	case m.events <- ev:
		return true
	case <-m.done:
		return false
	}
}

// Done is closed when Run returns.
func (m *Machine) Done() <-chan struct{} { return m.done }

// Run handles queued events until Leave is handled or ctx is cancelled.
func (m *Machine) Run(ctx context.Context) {
	defer close(m.done)

	for {
		select {
		case <-ctx.Done():
			leaveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			m.Handle(leaveCtx, Leave{})
			cancel()
			return
		case ev := <-m.events:
			m.Handle(ctx, ev)
			if m.stopped {
				return
			}
		}
	}
}

// Handle applies one event synchronously. A returned error has already been
// reported to the notifier; attempt state is unchanged when it is non-nil.
func (m *Machine) Handle(ctx context.Context, ev Event) error {
	if m.stopped {
		return nil
	}

	switch e := ev.(type) {
	case JoinCode:
		return m.joinCode(ctx, e.Code)
	case SubmitInfo:
		return m.submitInfo(ctx, e.Info)
	case Back:
		return m.back(ctx)
	case SelectOption:
		return m.selectOption(ctx, e.Label)
	case Next:
		return m.next(ctx)
	case Previous:
		return m.previous(ctx)
	case GoTo:
		return m.goTo(ctx, e.Index)
	case Submit:
		return m.submit(ctx, triggerInteractive)
	case BrowserSignal:
		return m.observe(ctx, e.Signal)
	case Tick:
		return m.tick(ctx, e)
	case CheckApproval:
		return m.checkApproval(ctx)
	case Decision:
		return m.decide(ctx, e)
	case Leave:
		m.leave(ctx)
	}
	return nil
}

// Phase returns the current phase.
func (m *Machine) Phase() model.Phase { return m.phase }

// Snapshot returns a copy of the current state.
func (m *Machine) Snapshot() Snapshot {
	s := Snapshot{
		Phase:            m.phase,
		AttemptID:        m.attemptID,
		CurrentIndex:     m.index,
		TotalQuestions:   len(m.questions),
		Answers:          m.answers.Clone(),
		TabSwitchCount:   m.det.Counters.TabSwitch,
		SplitScreenCount: m.det.Counters.SplitScreen,
		IsResumed:        m.resumed,
	}
	if m.quiz != nil {
		s.SessionID = m.quiz.SessionID
	}
	if m.student != nil {
		st := *m.student
		s.Student = &st
	}
	if m.timer != nil {
		s.TimeRemaining = m.timer.Remaining()
	}
	if m.violation != nil {
		s.ViolationID = m.violation.ID
		s.ViolationType = m.violation.Kind
	}
	return s
}

func (m *Machine) leave(ctx context.Context) {
	m.stopProgress()
	m.stopPoll()

	if m.phase == model.PhaseInProgress || m.phase == model.PhaseSuspended {
		m.record(ctx, model.EventAttemptAbandoned, "", string(m.phase))
		m.log.Info().Str("phase", string(m.phase)).Msg("Attempt left before completion")
	}
	if m.recorder != nil && m.attemptID != "" {
		m.recorder.Publish(ctx, m.Snapshot())
	}
	metrics.PhaseChanged(string(m.phase), "")
	m.stopped = true
}

func (m *Machine) setPhase(p model.Phase) {
	if p == m.phase {
		return
	}
	metrics.PhaseChanged(string(m.phase), string(p))
	m.log.Debug().Str("from", string(m.phase)).Str("to", string(p)).Msg("Phase changed")
	m.phase = p
}

// changed reports the new state to the test-taker and the live monitor.
func (m *Machine) changed(ctx context.Context) {
	snap := m.Snapshot()
	m.notifier.Notify(Notice{Kind: NoticeState, Snapshot: &snap})
	if m.recorder != nil && m.attemptID != "" {
		m.recorder.Publish(ctx, snap)
	}
}

func (m *Machine) notify(n Notice) {
	m.notifier.Notify(n)
}

// fail reports err to the test-taker with the catalogue message and returns it.
func (m *Machine) fail(err error) error {
	code := Code(err)
	m.notifier.Notify(Notice{Kind: NoticeError, Code: code, Message: response.GetMessage(code)})
	return err
}

func (m *Machine) record(ctx context.Context, typ model.ProctorEventType, kind model.ViolationKind, detail string) {
	if m.recorder == nil {
		return
	}
	ev := model.ProctorEvent{
		AttemptID:  m.attemptID,
		Type:       typ,
		Kind:       string(kind),
		Detail:     detail,
		RecordedAt: time.Now().UTC(),
	}
	if m.quiz != nil {
		ev.SessionID = m.quiz.SessionID
	}
	if m.student != nil {
		ev.RegNo = m.student.RegNo
	}
	m.recorder.Record(ctx, ev)
}

func (m *Machine) sessionID() string {
	if m.quiz == nil {
		return ""
	}
	return m.quiz.SessionID
}

func (m *Machine) timeSpent() int {
	if m.timer == nil {
		return 0
	}
	spent := m.allotment - m.timer.Remaining()
	if spent < 0 {
		return 0
	}
	return spent
}

func (m *Machine) allotmentFor(q *model.QuizSession) int {
	if q != nil && q.TimeLimit > 0 {
		return q.TimeLimit
	}
	return m.cfg.TimeLimit
}

// bindLog attaches attempt identity to the machine logger.
func (m *Machine) bindLog() {
	ctx := m.baseLog.With().Str("attempt_id", m.attemptID).Str("session_id", m.sessionID())
	if m.student != nil {
		ctx = ctx.Str("reg_no", m.student.RegNo)
	}
	m.log = ctx.Logger()
}

// post delivers an event from a scoped goroutine. It gives up when ctx ends
// so that scope teardown never blocks on a full queue.
func (m *Machine) post(ctx context.Context, ev Event) bool {
	select {
	case m.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
