// Package detector turns browser signals into violation decisions.
//
// Two signal classes escalate: visibility loss (tab switch) and a viewport
// shrinking below a fraction of the screen (split screen). Each has its own
// counter; the first occurrence warns and the second suspends. Blocked
// interactions (devtools shortcuts, reload, context menu, copy/cut) only
// produce a transient warning.
package detector

import (
	"strings"

	"github.com/stemsi/exstem-proctor/internal/model"
)

// DefaultMinViewportRatio is the window/screen ratio below which a resize
// counts as split screen.
const DefaultMinViewportRatio = 0.8

// SuspendThreshold is the occurrence at which a counted violation suspends.
const SuspendThreshold = 2

// SignalType names a browser signal.
type SignalType string

const (
	SignalVisibility  SignalType = "visibility"
	SignalResize      SignalType = "resize"
	SignalKey         SignalType = "key"
	SignalContextMenu SignalType = "context_menu"
	SignalClipboard   SignalType = "clipboard"
)

// Signal is one observation reported by the browser.
type Signal struct {
	Type SignalType `json:"type"`

	// visibility
	Hidden bool `json:"hidden,omitempty"`

	// resize
	InnerWidth   float64 `json:"innerWidth,omitempty"`
	InnerHeight  float64 `json:"innerHeight,omitempty"`
	ScreenWidth  float64 `json:"screenWidth,omitempty"`
	ScreenHeight float64 `json:"screenHeight,omitempty"`

	// key
	Key   string `json:"key,omitempty"`
	Ctrl  bool   `json:"ctrl,omitempty"`
	Shift bool   `json:"shift,omitempty"`
	Meta  bool   `json:"meta,omitempty"`

	// clipboard: "copy" or "cut"
	Op string `json:"op,omitempty"`
}

// Action is the outcome of observing a signal.
type Action int

const (
	ActionNone Action = iota
	ActionWarn
	ActionSuspend
	ActionBlocked
)

func (a Action) String() string {
	switch a {
	case ActionWarn:
		return "warn"
	case ActionSuspend:
		return "suspend"
	case ActionBlocked:
		return "blocked"
	default:
		return "none"
	}
}

// Decision is returned by Observe.
type Decision struct {
	Action Action
	// Kind is set for ActionWarn and ActionSuspend.
	Kind model.ViolationKind
	// Detail describes a blocked interaction, e.g. "Ctrl+Shift+I".
	Detail string
}

// Counters are the escalation counters of one attempt. They are only ever
// incremented, and reset only by a restart.
type Counters struct {
	TabSwitch   int `json:"tabSwitchCount"`
	SplitScreen int `json:"splitScreenCount"`
}

// Detector is a value type: Observe returns the updated detector so the
// caller decides whether to commit it.
type Detector struct {
	Counters Counters
	MinRatio float64
	armed    bool
}

// New returns a disarmed detector with the given ratio threshold.
// A non-positive ratio selects DefaultMinViewportRatio.
func New(minRatio float64) Detector {
	if minRatio <= 0 || minRatio > 1 {
		minRatio = DefaultMinViewportRatio
	}
	return Detector{MinRatio: minRatio}
}

// Armed reports whether signals are being evaluated.
func (d Detector) Armed() bool { return d.armed }

// Arm starts evaluating signals.
func (d *Detector) Arm() { d.armed = true }

// Disarm stops evaluating signals; Observe returns ActionNone until re-armed.
func (d *Detector) Disarm() { d.armed = false }

// Observe classifies sig and returns the decision and the detector with its
// counters advanced. A disarmed detector ignores every signal.
func (d Detector) Observe(sig Signal) (Decision, Detector) {
	if !d.armed {
		return Decision{}, d
	}

	switch sig.Type {
	case SignalVisibility:
		if !sig.Hidden {
			return Decision{}, d
		}
		d.Counters.TabSwitch++
		return escalate(model.ViolationTabSwitch, d.Counters.TabSwitch), d

	case SignalResize:
		if !d.Shrunk(sig) {
			return Decision{}, d
		}
		d.Counters.SplitScreen++
		return escalate(model.ViolationSplitScreen, d.Counters.SplitScreen), d

	case SignalKey:
		if combo, blocked := BlockedKey(sig); blocked {
			return Decision{Action: ActionBlocked, Detail: combo}, d
		}
		return Decision{}, d

	case SignalContextMenu:
		return Decision{Action: ActionBlocked, Detail: "context menu"}, d

	case SignalClipboard:
		op := strings.ToLower(sig.Op)
		if op == "copy" || op == "cut" {
			return Decision{Action: ActionBlocked, Detail: op}, d
		}
		return Decision{}, d
	}

	return Decision{}, d
}

func escalate(kind model.ViolationKind, count int) Decision {
	if count >= SuspendThreshold {
		return Decision{Action: ActionSuspend, Kind: kind}
	}
	return Decision{Action: ActionWarn, Kind: kind}
}

// Shrunk reports whether the window is below the ratio threshold in either
// axis. Signals without screen dimensions are ignored.
func (d Detector) Shrunk(sig Signal) bool {
	if sig.ScreenWidth <= 0 || sig.ScreenHeight <= 0 {
		return false
	}
	return sig.InnerWidth/sig.ScreenWidth < d.MinRatio ||
		sig.InnerHeight/sig.ScreenHeight < d.MinRatio
}

// BlockedKey reports whether a key event is one of the suppressed shortcuts
// and returns a printable combo.
func BlockedKey(sig Signal) (string, bool) {
	key := sig.Key
	lower := strings.ToLower(key)
	mod := sig.Ctrl || sig.Meta

	switch {
	case key == "F12":
		return "F12", true
	case key == "F5":
		return "F5", true
	case sig.Ctrl && sig.Shift && lower == "i":
		return "Ctrl+Shift+I", true
	case sig.Ctrl && lower == "u":
		return "Ctrl+U", true
	case sig.Ctrl && lower == "r":
		return "Ctrl+R", true
	case mod && lower == "c":
		return modName(sig) + "+C", true
	case mod && lower == "x":
		return modName(sig) + "+X", true
	}
	return "", false
}

func modName(sig Signal) string {
	if sig.Ctrl {
		return "Ctrl"
	}
	return "Meta"
}
