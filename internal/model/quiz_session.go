package model

import "encoding/json"

// AudioFile references an uploaded audio asset of a quiz.
type AudioFile struct {
	Path string `json:"path"`
}

// QuizSession is the quiz definition returned by GET /quiz-sessions/{code}
// and embedded as quizData in continue decisions.
type QuizSession struct {
	SessionID  string            `json:"sessionId"`
	Name       string            `json:"name"`
	IsActive   bool              `json:"isActive"`
	Questions  []Question        `json:"questions"`
	AudioFiles []AudioFile       `json:"audioFiles,omitempty"`
	Passages   []json.RawMessage `json:"passages,omitempty"`
	// TimeLimit is the allotment in seconds; zero means the service default.
	TimeLimit int `json:"timeLimit,omitempty"`
}

// StudentInfo identifies the test-taker. It is immutable once an attempt starts.
type StudentInfo struct {
	Name       string `json:"name" validate:"required,max=120"`
	RegNo      string `json:"regNo" validate:"required,max=40"`
	Department string `json:"department" validate:"required,max=80"`
}
