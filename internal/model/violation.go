package model

import "strings"

// Phase enumerates the attempt lifecycle states.
type Phase string

const (
	PhaseCodeEntry  Phase = "code_entry"
	PhaseInfoForm   Phase = "info_form"
	PhaseInProgress Phase = "in_progress"
	PhaseSuspended  Phase = "suspended"
	PhaseCompleted  Phase = "completed"
)

// ViolationKind is the category of integrity breach that suspends an attempt.
type ViolationKind string

const (
	ViolationTabSwitch   ViolationKind = "tab_switch_violation"
	ViolationSplitScreen ViolationKind = "split_screen_violation"
)

// Human returns the kind with its first underscore replaced by a space,
// matching the wording shown to suspended test-takers.
func (k ViolationKind) Human() string {
	return strings.Replace(string(k), "_", " ", 1)
}

// Resolution is the admin decision state of a violation record.
type Resolution string

const (
	ResolutionPending         Resolution = "pending"
	ResolutionResumeApproved  Resolution = "resume_approved"
	ResolutionRestartApproved Resolution = "restart_approved"
)

// ViolationRecord is the snapshot taken when an attempt is suspended.
// The backend owns the record; locally only ID and the snapshot are kept.
type ViolationRecord struct {
	ID               string        `json:"violationId"`
	AttemptID        string        `json:"attemptId"`
	Kind             ViolationKind `json:"violationType"`
	CurrentIndex     int           `json:"currentQuestion"`
	Answers          Answers       `json:"userAnswers"`
	TimeRemaining    int           `json:"timeLeft"`
	TabSwitchCount   int           `json:"tabSwitchCount"`
	SplitScreenCount int           `json:"splitScreenCount"`
	TimeSpent        int           `json:"timeSpent"`
	Resolution       Resolution    `json:"resolution"`
}
