package model

// Request and response bodies of the quiz backend REST contract.
// JSON field names are shared with the backend and must not change.

// ViolationRequest is the body of POST /quiz-violations.
type ViolationRequest struct {
	SessionID       string        `json:"sessionId"`
	StudentName     string        `json:"studentName"`
	RegNo           string        `json:"regNo"`
	Department      string        `json:"department"`
	CurrentQuestion int           `json:"currentQuestion"`
	UserAnswers     Answers       `json:"userAnswers"`
	TimeLeft        int           `json:"timeLeft"`
	ViolationType   ViolationKind `json:"violationType"`
	TabSwitchCount  int           `json:"tabSwitchCount"`
	TimeSpent       int           `json:"timeSpent"`
}

// ViolationCreated is the response of POST /quiz-violations.
type ViolationCreated struct {
	ViolationID string `json:"violationId"`
}

// PendingCheckRequest is the body of POST /quiz-violations/check-pending.
type PendingCheckRequest struct {
	StudentName string `json:"studentName"`
	RegNo       string `json:"regNo"`
	SessionID   string `json:"sessionId"`
}

// PendingCheckResponse is the response of POST /quiz-violations/check-pending.
type PendingCheckResponse struct {
	HasPendingViolation bool          `json:"hasPendingViolation"`
	ViolationID         string        `json:"violationId,omitempty"`
	ViolationType       ViolationKind `json:"violationType,omitempty"`
}

// ContinueAction is the admin decision carried by a continue response.
type ContinueAction string

const (
	ContinueResume  ContinueAction = "resume"
	ContinueRestart ContinueAction = "restart"
)

// ContinueResponse is the response of POST /quiz-violations/{id}/continue.
// Success is false (or the body empty) while no decision has been made.
type ContinueResponse struct {
	Success         bool           `json:"success"`
	ActionType      ContinueAction `json:"actionType,omitempty"`
	QuizData        *QuizSession   `json:"quizData,omitempty"`
	StudentInfo     *StudentInfo   `json:"studentInfo,omitempty"`
	CurrentQuestion int            `json:"currentQuestion"`
	UserAnswers     Answers        `json:"userAnswers"`
	TimeLeft        int            `json:"timeLeft"`
}

// Decided reports whether the response carries an actionable decision.
func (r *ContinueResponse) Decided() bool {
	if r == nil || !r.Success {
		return false
	}
	return r.ActionType == ContinueResume || r.ActionType == ContinueRestart
}

// ResultRequest is the body of POST /quiz-results.
type ResultRequest struct {
	SessionID      string  `json:"sessionId"`
	StudentName    string  `json:"studentName"`
	RegNo          string  `json:"regNo"`
	Department     string  `json:"department"`
	Answers        Answers `json:"answers"`
	Score          int     `json:"score"`
	TotalQuestions int     `json:"totalQuestions"`
	Percentage     int     `json:"percentage"`
	IsAutoSubmit   bool    `json:"isAutoSubmit"`
	IsResumed      bool    `json:"isResumed"`
	TimeSpent      int     `json:"timeSpent"`
}
