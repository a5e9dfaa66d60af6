package attempt

import (
	"errors"

	"github.com/stemsi/exstem-proctor/internal/response"
)

// Errors reported to the test-taker. They never change attempt state.
var (
	ErrInvalidPhase       = errors.New("action not allowed in the current phase")
	ErrSuspended          = errors.New("quiz is suspended pending admin review")
	ErrCompleted          = errors.New("quiz already submitted")
	ErrEmptyCode          = errors.New("quiz code is required")
	ErrQuizNotFound       = errors.New("invalid quiz code")
	ErrQuizInactive       = errors.New("quiz is not active")
	ErrQuizEmpty          = errors.New("quiz has no questions")
	ErrInvalidStudentInfo = errors.New("student information is incomplete")
	ErrInvalidOption      = errors.New("invalid option")
	ErrIndexOutOfRange    = errors.New("question index out of range")
	ErrIncompleteAnswers  = errors.New("complete remaining answers before submitting")
	ErrTimeUp             = errors.New("time is up")
	ErrPendingCheck       = errors.New("could not verify pending violations")
	ErrNoQuestions        = errors.New("no questions available for this attempt")
	ErrBackend            = errors.New("quiz server unavailable, please try again")
)

var codes = []struct {
	err  error
	code response.ErrCode
}{
	{ErrInvalidPhase, response.ErrInvalidPhase},
	{ErrSuspended, response.ErrAttemptSuspended},
	{ErrCompleted, response.ErrAttemptCompleted},
	{ErrEmptyCode, response.ErrEmptyCode},
	{ErrQuizNotFound, response.ErrQuizNotFound},
	{ErrQuizInactive, response.ErrQuizInactive},
	{ErrQuizEmpty, response.ErrQuizEmpty},
	{ErrInvalidStudentInfo, response.ErrValidation},
	{ErrInvalidOption, response.ErrInvalidOption},
	{ErrIndexOutOfRange, response.ErrIndexOutOfRange},
	{ErrIncompleteAnswers, response.ErrIncompleteAnswers},
	{ErrTimeUp, response.ErrTimeUp},
	{ErrPendingCheck, response.ErrPendingCheck},
	{ErrNoQuestions, response.ErrNoQuestions},
	{ErrBackend, response.ErrBackend},
}

// Code returns the API error code for err, or response.ErrInternal.
func Code(err error) response.ErrCode {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return response.ErrInternal
}
