package model

import (
	"time"
)

// ProctorEventType enumerates audit events emitted by a running attempt.
type ProctorEventType string

const (
	EventAttemptStarted   ProctorEventType = "attempt_started"
	EventWarning          ProctorEventType = "warning"
	EventBlocked          ProctorEventType = "blocked_interaction"
	EventSuspended        ProctorEventType = "suspended"
	EventResolved         ProctorEventType = "violation_resolved"
	EventResumed          ProctorEventType = "resumed"
	EventRestarted        ProctorEventType = "restarted"
	EventSubmitted        ProctorEventType = "submitted"
	EventAttemptAbandoned ProctorEventType = "abandoned"
)

// ProctorEvent is one audit entry. It is queued in Redis and persisted
// to the proctor_events table by the proctor event worker.
type ProctorEvent struct {
	AttemptID  string           `json:"attempt_id"`
	SessionID  string           `json:"session_id"`
	RegNo      string           `json:"reg_no"`
	Type       ProctorEventType `json:"type"`
	Kind       string           `json:"kind,omitempty"`
	Detail     string           `json:"detail,omitempty"`
	RecordedAt time.Time        `json:"recorded_at"`
}

// LiveAttempt is the monitor-facing view of an attempt cached in Redis.
type LiveAttempt struct {
	AttemptID        string      `json:"attempt_id"`
	SessionID        string      `json:"session_id"`
	Student          StudentInfo `json:"student"`
	Phase            Phase       `json:"phase"`
	CurrentIndex     int         `json:"current_index"`
	TotalQuestions   int         `json:"total_questions"`
	AnsweredCount    int         `json:"answered_count"`
	TimeRemaining    int         `json:"time_remaining"`
	TabSwitchCount   int         `json:"tab_switch_count"`
	SplitScreenCount int         `json:"split_screen_count"`
	ViolationID      string      `json:"violation_id,omitempty"`
	UpdatedAt        time.Time   `json:"updated_at"`
}
