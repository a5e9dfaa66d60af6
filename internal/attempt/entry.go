package attempt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/quizapi"
	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stemsi/exstem-proctor/internal/validator"
)

func (m *Machine) joinCode(ctx context.Context, code string) error {
	if m.phase != model.PhaseCodeEntry {
		return m.fail(m.phaseError())
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return m.fail(ErrEmptyCode)
	}

	quiz, err := m.backend.GetQuizSession(ctx, code)
	switch {
	case errors.Is(err, quizapi.ErrNotFound):
		return m.fail(ErrQuizNotFound)
	case err != nil:
		m.log.Error().Err(err).Str("code", code).Msg("Failed to fetch quiz session")
		return m.fail(fmt.Errorf("%w: %w", ErrBackend, err))
	case quiz == nil:
		return m.fail(ErrQuizNotFound)
	case !quiz.IsActive:
		return m.fail(ErrQuizInactive)
	case len(quiz.Questions) == 0:
		return m.fail(ErrQuizEmpty)
	}

	m.quiz = quiz
	m.setPhase(model.PhaseInfoForm)

	view := &QuizView{
		SessionID:      quiz.SessionID,
		Name:           quiz.Name,
		TotalQuestions: len(quiz.Questions),
		Passages:       quiz.Passages,
	}
	if len(quiz.AudioFiles) > 0 {
		view.AudioURL = m.backend.AssetURL(quiz.AudioFiles[0].Path)
	}
	m.notify(Notice{Kind: NoticeQuiz, Quiz: view})
	m.changed(ctx)
	return nil
}

func (m *Machine) back(ctx context.Context) error {
	if m.phase != model.PhaseInfoForm {
		return m.fail(m.phaseError())
	}
	m.quiz = nil
	m.setPhase(model.PhaseCodeEntry)
	m.changed(ctx)
	return nil
}

func (m *Machine) submitInfo(ctx context.Context, info model.StudentInfo) error {
	if m.phase != model.PhaseInfoForm {
		return m.fail(m.phaseError())
	}

	info = model.StudentInfo{
		Name:       strings.TrimSpace(info.Name),
		RegNo:      strings.TrimSpace(info.RegNo),
		Department: strings.TrimSpace(info.Department),
	}
	if fields := validator.Struct(info); fields != nil {
		code := Code(ErrInvalidStudentInfo)
		m.notify(Notice{
			Kind:    NoticeError,
			Code:    code,
			Message: response.GetMessage(code),
			Fields:  fields,
		})
		return ErrInvalidStudentInfo
	}

	pending, err := m.checkPending(ctx, info)
	if err != nil {
		if m.cfg.PendingPolicy == PendingBlock {
			m.log.Warn().Err(err).Str("reg_no", info.RegNo).Msg("Pending check failed, blocking attempt start")
			return m.fail(fmt.Errorf("%w: %w", ErrPendingCheck, err))
		}
		m.log.Warn().Err(err).Str("reg_no", info.RegNo).Msg("Pending check failed, starting attempt")
		pending = nil
	}

	m.student = &info

	if pending != nil && pending.HasPendingViolation && pending.ViolationID == "" {
		m.log.Warn().Str("reg_no", info.RegNo).Str("kind", string(pending.ViolationType)).
			Msg("Pending violation reported without an id, starting a fresh attempt")
	}
	if pending != nil && pending.HasPendingViolation && pending.ViolationID != "" {
		m.bindLog()
		m.violation = &model.ViolationRecord{
			ID:         pending.ViolationID,
			Kind:       pending.ViolationType,
			Resolution: model.ResolutionPending,
		}
		m.local = false
		m.setPhase(model.PhaseSuspended)
		m.log.Info().Str("violation_id", pending.ViolationID).Msg("Pending violation found, attempt suspended")
		m.record(ctx, model.EventSuspended, pending.ViolationType, "pending")
		m.notify(Notice{
			Kind:    NoticeSuspended,
			Message: suspendedMessage(pending.ViolationType),
		})
		m.startPoll(ctx, pending.ViolationID)
		m.changed(ctx)
		return nil
	}

	return m.begin(ctx, m.quiz.Questions, m.allotmentFor(m.quiz), "fresh")
}

// checkPending retries at least once before giving up.
func (m *Machine) checkPending(ctx context.Context, info model.StudentInfo) (*model.PendingCheckResponse, error) {
	req := &model.PendingCheckRequest{
		StudentName: info.Name,
		RegNo:       info.RegNo,
		SessionID:   m.sessionID(),
	}

	var lastErr error
	for i := 0; i <= m.cfg.PendingRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(i) * m.cfg.PendingBackoff):
			}
		}

		resp, err := m.backend.CheckPending(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		m.log.Debug().Err(err).Int("try", i+1).Msg("Pending check failed")
	}
	return nil, lastErr
}

// begin starts a new attempt over a fresh shuffle of source.
func (m *Machine) begin(ctx context.Context, source []model.Question, allotment int, mode string) error {
	if len(source) == 0 {
		return m.fail(ErrNoQuestions)
	}

	m.attemptID = m.newID()
	m.questions = shuffleFor(m, source)
	m.answers = model.NewAnswers(len(m.questions))
	m.index = 0
	m.allotment = allotment
	m.timer = nil
	m.det = newDetector(m)
	m.violation = nil
	m.local = false
	m.result = nil
	m.bindLog()

	if m.orders != nil && m.student != nil {
		m.orders.SaveOrder(ctx, m.sessionID(), m.student.RegNo, m.attemptID, m.questions)
	}

	typ := model.EventAttemptStarted
	if mode == "restart" {
		typ = model.EventRestarted
	}
	m.enterProgress(ctx, allotment, typ, mode)
	return nil
}

func (m *Machine) phaseError() error {
	switch m.phase {
	case model.PhaseSuspended:
		return ErrSuspended
	case model.PhaseCompleted:
		return ErrCompleted
	}
	return ErrInvalidPhase
}

func suspendedMessage(kind model.ViolationKind) string {
	if kind == "" {
		return "Quiz suspended. Waiting for admin approval."
	}
	return "Quiz suspended due to " + kind.Human() + ". Waiting for admin approval."
}
