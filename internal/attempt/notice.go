package attempt

import (
	"encoding/json"

	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/response"
)

// NoticeKind classifies what a machine reports to its test-taker.
type NoticeKind string

const (
	NoticeState     NoticeKind = "state"
	NoticeQuiz      NoticeKind = "quiz"
	NoticeStarted   NoticeKind = "started"
	NoticeWarning   NoticeKind = "warning"
	NoticeBlocked   NoticeKind = "blocked"
	NoticeSuspended NoticeKind = "suspended"
	NoticeWaiting   NoticeKind = "waiting"
	NoticeResult    NoticeKind = "result"
	NoticeError     NoticeKind = "error"
)

// Notice is one message for the test-taker.
type Notice struct {
	Kind      NoticeKind        `json:"kind"`
	Code      response.ErrCode  `json:"code,omitempty"`
	Message   string            `json:"message,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	Missing   int               `json:"missing,omitempty"`
	Snapshot  *Snapshot         `json:"snapshot,omitempty"`
	Quiz      *QuizView         `json:"quiz,omitempty"`
	Questions []QuestionView    `json:"questions,omitempty"`
	Result    *Result           `json:"result,omitempty"`
}

// Notifier receives notices. Notify is called from the machine loop and
// must not block.
type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// QuizView describes a joined quiz.
type QuizView struct {
	SessionID      string            `json:"sessionId"`
	Name           string            `json:"name"`
	TotalQuestions int               `json:"totalQuestions"`
	AudioURL       string            `json:"audioUrl,omitempty"`
	Passages       []json.RawMessage `json:"passages,omitempty"`
}

// QuestionView is a question as shown to the test-taker, without its key.
type QuestionView struct {
	Index   int           `json:"index"`
	Text    string        `json:"question"`
	Options model.Options `json:"options"`
}

// Result is the outcome of a completed attempt.
type Result struct {
	Score          int    `json:"score"`
	TotalQuestions int    `json:"totalQuestions"`
	Percentage     int    `json:"percentage"`
	Grade          string `json:"grade"`
	IsAutoSubmit   bool   `json:"isAutoSubmit"`
	TimeSpent      int    `json:"timeSpent"`
}

// Snapshot is the read-only state of a machine after a mutation.
type Snapshot struct {
	Phase            model.Phase         `json:"phase"`
	AttemptID        string              `json:"attemptId,omitempty"`
	SessionID        string              `json:"sessionId,omitempty"`
	Student          *model.StudentInfo  `json:"student,omitempty"`
	CurrentIndex     int                 `json:"currentQuestion"`
	TotalQuestions   int                 `json:"totalQuestions"`
	Answers          model.Answers       `json:"answers"`
	TimeRemaining    int                 `json:"timeLeft"`
	TabSwitchCount   int                 `json:"tabSwitchCount"`
	SplitScreenCount int                 `json:"splitScreenCount"`
	ViolationID      string              `json:"violationId,omitempty"`
	ViolationType    model.ViolationKind `json:"violationType,omitempty"`
	IsResumed        bool                `json:"isResumed"`
}

func views(qs []model.Question) []QuestionView {
	out := make([]QuestionView, len(qs))
	for i, q := range qs {
		out[i] = QuestionView{Index: i, Text: q.Text, Options: q.Options}
	}
	return out
}
