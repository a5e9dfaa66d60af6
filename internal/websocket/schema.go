package websocket

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stemsi/exstem-proctor/internal/attempt"
	"github.com/stemsi/exstem-proctor/internal/detector"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/response"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionJoinCode      Action = "join_code"
	ActionSubmitInfo    Action = "submit_info"
	ActionBack          Action = "back"
	ActionSelectOption  Action = "select_option"
	ActionNext          Action = "next"
	ActionPrevious      Action = "previous"
	ActionGoTo          Action = "go_to"
	ActionSubmit        Action = "submit"
	ActionSignal        Action = "signal"
	ActionCheckApproval Action = "check_approval"
	ActionPing          Action = "ping"
)

// Request is one client message. Payload is decoded per action.
type Request struct {
	Action  Action          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type JoinCodePayload struct {
	Code string `json:"code"`
}

type SelectOptionPayload struct {
	Option string `json:"option"`
}

type GoToPayload struct {
	Index int `json:"index"`
}

// ErrUnknownAction is returned by Decode for unsupported actions.
var ErrUnknownAction = errors.New("unknown action")

// Decode converts a request into a machine event. Ping yields (nil, nil).
func Decode(req Request) (attempt.Event, error) {
	switch req.Action {
	case ActionJoinCode:
		var p JoinCodePayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return nil, err
		}
		return attempt.JoinCode{Code: p.Code}, nil

	case ActionSubmitInfo:
		var p model.StudentInfo
		if err := decodePayload(req.Payload, &p); err != nil {
			return nil, err
		}
		return attempt.SubmitInfo{Info: p}, nil

	case ActionSelectOption:
		var p SelectOptionPayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return nil, err
		}
		label, _ := model.ParseLabel(p.Option)
		return attempt.SelectOption{Label: label}, nil

	case ActionGoTo:
		var p GoToPayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return nil, err
		}
		return attempt.GoTo{Index: p.Index}, nil

	case ActionSignal:
		var sig detector.Signal
		if err := decodePayload(req.Payload, &sig); err != nil {
			return nil, err
		}
		if !knownSignal(sig.Type) {
			return nil, fmt.Errorf("unknown signal type %q", sig.Type)
		}
		return attempt.BrowserSignal{Signal: sig}, nil

	case ActionBack:
		return attempt.Back{}, nil
	case ActionNext:
		return attempt.Next{}, nil
	case ActionPrevious:
		return attempt.Previous{}, nil
	case ActionSubmit:
		return attempt.Submit{}, nil
	case ActionCheckApproval:
		return attempt.CheckApproval{}, nil
	case ActionPing:
		return nil, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
}

func knownSignal(t detector.SignalType) bool {
	switch t {
	case detector.SignalVisibility, detector.SignalResize, detector.SignalKey,
		detector.SignalContextMenu, detector.SignalClipboard:
		return true
	}
	return false
}

func decodePayload(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return fmt.Errorf("payload is required")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventNotice Event = "notice"
	EventError  Event = "error"
	EventPong   Event = "pong"
)

// NoticeResponse wraps a machine notice.
type NoticeResponse struct {
	Event  Event          `json:"event"`
	Notice attempt.Notice `json:"notice"`
}

// ErrorResponse reports a malformed client message.
type ErrorResponse struct {
	Event   Event            `json:"event"`
	Code    response.ErrCode `json:"code"`
	Message string           `json:"message"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
