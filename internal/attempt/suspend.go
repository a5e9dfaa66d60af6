package attempt

import (
	"context"
	"fmt"
	"time"

	"github.com/stemsi/exstem-proctor/internal/detector"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// suspend records a violation with the backend and moves to Suspended.
// next holds the advanced counters; they are committed only when the
// backend accepted the record.
func (m *Machine) suspend(ctx context.Context, kind model.ViolationKind, next detector.Detector) error {
	rec := model.ViolationRecord{
		AttemptID:        m.attemptID,
		Kind:             kind,
		CurrentIndex:     m.index,
		Answers:          m.answers.Clone(),
		TimeRemaining:    m.timer.Remaining(),
		TabSwitchCount:   next.Counters.TabSwitch,
		SplitScreenCount: next.Counters.SplitScreen,
		TimeSpent:        m.timeSpent(),
		Resolution:       model.ResolutionPending,
	}

	id, err := m.backend.CreateViolation(ctx, &model.ViolationRequest{
		SessionID:       m.sessionID(),
		StudentName:     m.student.Name,
		RegNo:           m.student.RegNo,
		Department:      m.student.Department,
		CurrentQuestion: rec.CurrentIndex,
		UserAnswers:     rec.Answers,
		TimeLeft:        rec.TimeRemaining,
		ViolationType:   kind,
		TabSwitchCount:  rec.TabSwitchCount,
		TimeSpent:       rec.TimeSpent,
	})
	if err != nil {
		m.log.Error().Err(err).Str("kind", string(kind)).Msg("Failed to record violation")
		return m.fail(fmt.Errorf("%w: %w", ErrBackend, err))
	}
	rec.ID = id

	m.det = next
	m.stopProgress()
	m.violation = &rec
	m.local = true
	m.setPhase(model.PhaseSuspended)

	m.log.Warn().Str("kind", string(kind)).Str("violation_id", id).Msg("Attempt suspended")
	m.record(ctx, model.EventSuspended, kind, id)
	m.notify(Notice{Kind: NoticeSuspended, Message: suspendedMessage(kind)})

	m.startPoll(ctx, id)
	m.changed(ctx)
	return nil
}

// startPoll asks the backend for a decision every poll interval until the
// scope is stopped. It never mutates state; decisions go through the queue.
func (m *Machine) startPoll(ctx context.Context, violationID string) {
	m.stopPoll()

	m.gen++
	gen := m.gen
	m.pollGen = gen

	s := newScope(ctx)
	interval := m.cfg.PollInterval
	backend := m.backend
	log := m.log.With().Str("violation_id", violationID).Logger()

	s.Go(func(ctx context.Context) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var posted model.ContinueAction

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			resp, err := backend.Continue(ctx, violationID)
			if err != nil {
				if ctx.Err() == nil {
					log.Debug().Err(err).Msg("Continue poll failed")
				}
				continue
			}
			if !resp.Decided() || resp.ActionType == posted {
				continue
			}
			if !m.post(ctx, Decision{ViolationID: violationID, Response: resp, gen: gen}) {
				return
			}
			// a decision the machine could not apply is left to CheckApproval
			posted = resp.ActionType
		}
	})
	m.poll = s
}

func (m *Machine) stopPoll() {
	m.poll.stop()
	m.poll = nil
	m.pollGen = 0
}

func (m *Machine) checkApproval(ctx context.Context) error {
	if m.phase != model.PhaseSuspended || m.violation == nil {
		return m.fail(ErrInvalidPhase)
	}

	id := m.violation.ID
	resp, err := m.backend.Continue(ctx, id)
	if err != nil {
		m.log.Warn().Err(err).Msg("Approval check failed")
		return m.fail(fmt.Errorf("%w: %w", ErrBackend, err))
	}
	if !resp.Decided() {
		m.notify(Notice{Kind: NoticeWaiting, Message: "Waiting for admin approval"})
		return nil
	}
	return m.decide(ctx, Decision{ViolationID: id, Response: resp})
}

// decide applies an admin decision if it still concerns the open suspension.
func (m *Machine) decide(ctx context.Context, e Decision) error {
	if m.phase != model.PhaseSuspended || m.violation == nil || e.ViolationID != m.violation.ID {
		return nil
	}
	if e.gen != 0 && e.gen != m.pollGen {
		return nil
	}
	if !e.Response.Decided() {
		return nil
	}

	switch e.Response.ActionType {
	case model.ContinueResume:
		return m.resume(ctx, e.Response)
	case model.ContinueRestart:
		return m.restart(ctx, e.Response)
	}
	return nil
}

// resume continues the same attempt from the suspension snapshot. The
// question order is resolved before any state is touched.
func (m *Machine) resume(ctx context.Context, resp *model.ContinueResponse) error {
	quiz, student := m.decisionContext(resp)

	questions := m.resumeOrder(ctx, resp, quiz, student)
	if len(questions) == 0 {
		m.log.Error().Msg("Resume approved but no questions are available")
		return m.fail(ErrNoQuestions)
	}
	m.quiz, m.student = quiz, student
	m.stopPoll()

	rec := m.violation
	index, answers, remaining := resp.CurrentQuestion, resp.UserAnswers, resp.TimeLeft
	if m.local {
		index, answers, remaining = rec.CurrentIndex, rec.Answers, rec.TimeRemaining
	}
	if m.attemptID == "" {
		m.attemptID = m.newID()
	}
	m.resolve(ctx, model.ResolutionResumeApproved)
	m.questions = questions
	m.answers = answers.Fit(len(questions))
	m.index = clamp(index, 0, len(questions)-1)
	if m.allotment == 0 {
		m.allotment = m.allotmentFor(m.quiz)
	}
	m.det = newDetector(m)
	m.det.Counters = detector.Counters{TabSwitch: rec.TabSwitchCount, SplitScreen: rec.SplitScreenCount}
	m.violation = nil
	m.local = false
	m.resumed = true
	m.bindLog()

	m.enterProgress(ctx, remaining, model.EventResumed, "resume")
	return nil
}

// restart discards progress and starts a new attempt on the same quiz.
func (m *Machine) restart(ctx context.Context, resp *model.ContinueResponse) error {
	quiz, student := m.decisionContext(resp)

	var source []model.Question
	if resp.QuizData != nil && len(resp.QuizData.Questions) > 0 {
		source = resp.QuizData.Questions
	} else if quiz != nil {
		source = quiz.Questions
	}
	if len(source) == 0 {
		m.log.Error().Msg("Restart approved but no questions are available")
		return m.fail(ErrNoQuestions)
	}
	m.quiz, m.student = quiz, student
	m.stopPoll()

	allotment := m.cfg.TimeLimit
	if resp.QuizData != nil && resp.QuizData.TimeLimit > 0 {
		allotment = resp.QuizData.TimeLimit
	} else if m.quiz != nil && m.quiz.TimeLimit > 0 {
		allotment = m.quiz.TimeLimit
	}

	m.resolve(ctx, model.ResolutionRestartApproved)
	m.resumed = true
	return m.begin(ctx, source, allotment, "restart")
}

// resolve closes the open violation with the admin's decision.
func (m *Machine) resolve(ctx context.Context, res model.Resolution) {
	rec := m.violation
	rec.Resolution = res
	m.log.Info().Str("violation_id", rec.ID).Str("resolution", string(res)).Msg("Violation resolved")
	m.record(ctx, model.EventResolved, rec.Kind, string(res))
}

// decisionContext returns the quiz and student to continue with, taking
// from resp what this machine never held.
func (m *Machine) decisionContext(resp *model.ContinueResponse) (*model.QuizSession, *model.StudentInfo) {
	quiz, student := m.quiz, m.student
	if quiz == nil && resp.QuizData != nil {
		q := *resp.QuizData
		quiz = &q
	}
	if student == nil && resp.StudentInfo != nil {
		st := *resp.StudentInfo
		student = &st
	}
	return quiz, student
}

// resumeOrder picks the question order to resume with: the order held in
// memory, then the stored order for this student, then the backend's list.
func (m *Machine) resumeOrder(ctx context.Context, resp *model.ContinueResponse, quiz *model.QuizSession, student *model.StudentInfo) []model.Question {
	if len(m.questions) > 0 {
		return m.questions
	}
	if m.orders != nil && student != nil && quiz != nil && quiz.SessionID != "" {
		if qs, ok := m.orders.LoadOrder(ctx, quiz.SessionID, student.RegNo); ok && len(qs) > 0 {
			return qs
		}
	}
	if resp.QuizData != nil && len(resp.QuizData.Questions) > 0 {
		return resp.QuizData.Questions
	}
	if quiz != nil {
		return quiz.Questions
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
