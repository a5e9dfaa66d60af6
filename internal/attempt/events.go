package attempt

import (
	"github.com/stemsi/exstem-proctor/internal/detector"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// Event is one input to a Machine. Events are handled strictly one at a
// time by the machine loop.
type Event interface {
	event()
}

// JoinCode looks up a quiz by its join code.
type JoinCode struct {
	Code string
}

// SubmitInfo submits the student's identity and starts the attempt.
type SubmitInfo struct {
	Info model.StudentInfo
}

// Back returns from the info form to code entry.
type Back struct{}

// SelectOption answers the current question.
type SelectOption struct {
	Label model.Label
}

// Next moves forward one question. On the last question it submits.
type Next struct{}

// Previous moves back one question.
type Previous struct{}

// GoTo jumps to a question by index.
type GoTo struct {
	Index int
}

// Submit finalizes the attempt.
type Submit struct{}

// BrowserSignal carries a signal reported by the browser.
type BrowserSignal struct {
	Signal detector.Signal
}

// Tick is one second of the attempt timer. gen ties it to the timer scope
// that produced it; a zero gen is accepted as current.
type Tick struct {
	gen uint64
}

// CheckApproval asks the backend once for a decision on the suspension.
type CheckApproval struct{}

// Decision is an admin decision fetched by the poller.
type Decision struct {
	ViolationID string
	Response    *model.ContinueResponse
	gen         uint64
}

// Leave tears the machine down. No event is handled after it.
type Leave struct{}

func (JoinCode) event()      {}
func (SubmitInfo) event()    {}
func (Back) event()          {}
func (SelectOption) event()  {}
func (Next) event()          {}
func (Previous) event()      {}
func (GoTo) event()          {}
func (Submit) event()        {}
func (BrowserSignal) event() {}
func (Tick) event()          {}
func (CheckApproval) event() {}
func (Decision) event()      {}
func (Leave) event()         {}
