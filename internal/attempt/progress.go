package attempt

import (
	"context"
	"fmt"

	"github.com/stemsi/exstem-proctor/internal/countdown"
	"github.com/stemsi/exstem-proctor/internal/detector"
	"github.com/stemsi/exstem-proctor/internal/metrics"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/shuffle"
)

// Submission triggers, used for metrics and audit detail.
const (
	triggerInteractive = "interactive"
	triggerTimer       = "timer"
)

func shuffleFor(m *Machine, source []model.Question) []model.Question {
	return shuffle.Questions(m.newRand(), source)
}

func newDetector(m *Machine) detector.Detector {
	return detector.New(m.cfg.MinViewportRatio)
}

// enterProgress switches to InProgress with the given remaining time and
// starts the timer scope. Questions, answers and counters must already be set.
func (m *Machine) enterProgress(ctx context.Context, remaining int, typ model.ProctorEventType, mode string) {
	m.timer = countdown.New(remaining)
	m.autoPending = false
	m.autoWait = 0
	m.setPhase(model.PhaseInProgress)
	m.startProgress(ctx)

	metrics.AttemptStarted(mode)
	m.record(ctx, typ, "", mode)
	m.log.Info().Str("mode", mode).Int("questions", len(m.questions)).Int("time_left", remaining).Msg("Attempt in progress")

	m.notify(Notice{Kind: NoticeStarted, Questions: views(m.questions)})
	m.changed(ctx)
}

// startProgress arms the detector and starts the ticking goroutine.
func (m *Machine) startProgress(ctx context.Context) {
	m.stopProgress()

	m.gen++
	gen := m.gen
	m.progressGen = gen
	m.ticks = 0
	m.det.Arm()

	s := newScope(ctx)
	interval := m.cfg.TickInterval
	s.Go(func(ctx context.Context) {
		countdown.Run(ctx, interval, func() {
			m.post(ctx, Tick{gen: gen})
		})
	})
	m.progress = s
}

func (m *Machine) stopProgress() {
	m.det.Disarm()
	m.progress.stop()
	m.progress = nil
	m.progressGen = 0
}

func (m *Machine) requireProgress() error {
	if m.phase != model.PhaseInProgress {
		return m.fail(m.phaseError())
	}
	return nil
}

func (m *Machine) selectOption(ctx context.Context, label model.Label) error {
	if err := m.requireProgress(); err != nil {
		return err
	}
	if m.timeUp() {
		return m.fail(ErrTimeUp)
	}
	if !label.Valid() {
		return m.fail(ErrInvalidOption)
	}
	m.answers[m.index] = label
	m.changed(ctx)
	return nil
}

func (m *Machine) next(ctx context.Context) error {
	if err := m.requireProgress(); err != nil {
		return err
	}
	if m.index >= len(m.questions)-1 {
		return m.submit(ctx, triggerInteractive)
	}
	m.index++
	m.changed(ctx)
	return nil
}

// timeUp reports whether the attempt has no time left. Answers are frozen
// from then on.
func (m *Machine) timeUp() bool {
	return m.timer != nil && m.timer.Expired()
}

func (m *Machine) previous(ctx context.Context) error {
	if err := m.requireProgress(); err != nil {
		return err
	}
	if m.index > 0 {
		m.index--
		m.changed(ctx)
	}
	return nil
}

func (m *Machine) goTo(ctx context.Context, index int) error {
	if err := m.requireProgress(); err != nil {
		return err
	}
	if index < 0 || index >= len(m.questions) {
		return m.fail(ErrIndexOutOfRange)
	}
	m.index = index
	m.changed(ctx)
	return nil
}

// submit finalizes an interactive submission. Unset answers are only
// allowed once the time has run out, and such a submission counts as
// automatic.
func (m *Machine) submit(ctx context.Context, trigger string) error {
	if err := m.requireProgress(); err != nil {
		return err
	}
	auto := m.timeUp()
	if missing := m.answers.Unanswered(); missing > 0 && !auto {
		err := fmt.Errorf("%w: %d unanswered", ErrIncompleteAnswers, missing)
		m.notify(Notice{
			Kind:    NoticeError,
			Code:    Code(err),
			Message: fmt.Sprintf("Please complete remaining answers (%d unanswered)", missing),
			Missing: missing,
		})
		return err
	}
	return m.finish(ctx, auto, trigger)
}

// finish posts the result. On failure the attempt stays InProgress.
func (m *Machine) finish(ctx context.Context, auto bool, trigger string) error {
	score, pct := shuffle.Score(m.questions, m.answers)
	req := &model.ResultRequest{
		SessionID:      m.sessionID(),
		StudentName:    m.student.Name,
		RegNo:          m.student.RegNo,
		Department:     m.student.Department,
		Answers:        m.answers.Clone(),
		Score:          score,
		TotalQuestions: len(m.questions),
		Percentage:     pct,
		IsAutoSubmit:   auto,
		IsResumed:      m.resumed,
		TimeSpent:      m.timeSpent(),
	}

	err := m.backend.SubmitResult(ctx, req)
	metrics.Submission(trigger, err)
	if err != nil {
		m.log.Error().Err(err).Str("trigger", trigger).Msg("Failed to submit result")
		return m.fail(fmt.Errorf("%w: %w", ErrBackend, err))
	}

	m.stopProgress()
	m.autoPending = false
	m.result = &Result{
		Score:          score,
		TotalQuestions: len(m.questions),
		Percentage:     pct,
		Grade:          shuffle.Grade(pct),
		IsAutoSubmit:   auto,
		TimeSpent:      req.TimeSpent,
	}
	m.setPhase(model.PhaseCompleted)
	m.record(ctx, model.EventSubmitted, "", trigger)
	m.log.Info().Int("score", score).Int("percentage", pct).Bool("auto", auto).Msg("Attempt submitted")

	m.notify(Notice{Kind: NoticeResult, Result: m.result})
	m.changed(ctx)
	return nil
}

func (m *Machine) tick(ctx context.Context, e Tick) error {
	if m.phase != model.PhaseInProgress || m.timer == nil {
		return nil
	}
	if e.gen != 0 && e.gen != m.progressGen {
		return nil
	}

	if m.autoPending {
		m.autoWait++
		if m.autoWait < autoRetryEvery {
			return nil
		}
		m.autoWait = 0
		m.log.Info().Msg("Retrying forced submission")
		return m.finish(ctx, true, triggerTimer)
	}

	_, expired := m.timer.Tick()
	m.ticks++

	if expired {
		m.autoPending = true
		m.log.Info().Msg("Time is up, submitting")
		return m.finish(ctx, true, triggerTimer)
	}

	snap := m.Snapshot()
	m.notify(Notice{Kind: NoticeState, Snapshot: &snap})
	if m.recorder != nil && m.ticks%publishEvery == 0 {
		m.recorder.Publish(ctx, snap)
	}
	return nil
}

func (m *Machine) observe(ctx context.Context, sig detector.Signal) error {
	if m.phase != model.PhaseInProgress || m.timeUp() {
		return nil
	}

	dec, next := m.det.Observe(sig)
	if dec.Action == detector.ActionNone {
		return nil
	}
	metrics.Violation(string(dec.Kind), dec.Action.String())

	switch dec.Action {
	case detector.ActionBlocked:
		m.record(ctx, model.EventBlocked, "", dec.Detail)
		m.notify(Notice{Kind: NoticeBlocked, Message: dec.Detail + " is disabled during the quiz"})
		return nil

	case detector.ActionWarn:
		m.det = next
		m.record(ctx, model.EventWarning, dec.Kind, "")
		m.log.Warn().Str("kind", string(dec.Kind)).Msg("Violation warning")
		m.notify(Notice{Kind: NoticeWarning, Message: warningMessage(dec.Kind)})
		m.changed(ctx)
		return nil

	case detector.ActionSuspend:
		return m.suspend(ctx, dec.Kind, next)
	}
	return nil
}

func warningMessage(kind model.ViolationKind) string {
	switch kind {
	case model.ViolationSplitScreen:
		return "Warning: split screen detected! Next time your quiz will be suspended."
	default:
		return "Warning: tab switching detected! Next time your quiz will be suspended."
	}
}
