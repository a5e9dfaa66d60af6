package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden        ErrCode = "FORBIDDEN"
	ErrOriginNotAllowed ErrCode = "ORIGIN_NOT_ALLOWED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"
	ErrUnknownAction  ErrCode = "UNKNOWN_ACTION"

	// ─── Attempt ───────────────────────────────────────────────────────
	ErrInvalidPhase      ErrCode = "INVALID_PHASE"
	ErrAttemptSuspended  ErrCode = "ATTEMPT_SUSPENDED"
	ErrAttemptCompleted  ErrCode = "ATTEMPT_COMPLETED"
	ErrEmptyCode         ErrCode = "EMPTY_CODE"
	ErrQuizNotFound      ErrCode = "QUIZ_NOT_FOUND"
	ErrQuizInactive      ErrCode = "QUIZ_INACTIVE"
	ErrQuizEmpty         ErrCode = "QUIZ_EMPTY"
	ErrInvalidOption     ErrCode = "INVALID_OPTION"
	ErrIndexOutOfRange   ErrCode = "INDEX_OUT_OF_RANGE"
	ErrIncompleteAnswers ErrCode = "INCOMPLETE_ANSWERS"
	ErrTimeUp            ErrCode = "TIME_UP"
	ErrPendingCheck      ErrCode = "PENDING_CHECK_FAILED"
	ErrNoQuestions       ErrCode = "NO_QUESTIONS"
	ErrBackend           ErrCode = "BACKEND_UNAVAILABLE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid or expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have access to this resource."
	case ErrOriginNotAllowed:
		return "Origin is not allowed."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Student information is incomplete. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."
	case ErrUnknownAction:
		return "Unknown action."

	// ─── Attempt ───────────────────────────────────────────────────────
	case ErrInvalidPhase:
		return "This action is not allowed right now."
	case ErrAttemptSuspended:
		return "Quiz is suspended pending admin review."
	case ErrAttemptCompleted:
		return "Quiz already submitted."
	case ErrEmptyCode:
		return "Please enter a quiz code."
	case ErrQuizNotFound:
		return "Invalid quiz code."
	case ErrQuizInactive:
		return "This quiz is not active."
	case ErrQuizEmpty:
		return "This quiz has no questions."
	case ErrInvalidOption:
		return "Invalid option."
	case ErrIndexOutOfRange:
		return "Question index out of range."
	case ErrIncompleteAnswers:
		return "Please answer all questions before submitting."
	case ErrTimeUp:
		return "Time is up. Your answers are being submitted."
	case ErrPendingCheck:
		return "Could not verify pending violations. Please try again."
	case ErrNoQuestions:
		return "No questions available for this attempt."
	case ErrBackend:
		return "Quiz server unavailable. Please try again."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Internal server error."
	default:
		return "An unexpected error occurred."
	}
}
