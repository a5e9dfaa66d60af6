package websocket

import (
	"encoding/json"
	"testing"

	"github.com/stemsi/exstem-proctor/internal/attempt"
	"github.com/stemsi/exstem-proctor/internal/detector"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func request(t *testing.T, raw string) Request {
	t.Helper()
	var req Request
	require.NoError(t, json.Unmarshal([]byte(raw), &req))
	return req
}

func TestDecode(t *testing.T) {
	tests := []struct {
		raw  string
		want attempt.Event
	}{
		{`{"action":"join_code","payload":{"code":"abc123"}}`, attempt.JoinCode{Code: "abc123"}},
		{`{"action":"submit_info","payload":{"name":"Ana","regNo":"R1","department":"CS"}}`,
			attempt.SubmitInfo{Info: model.StudentInfo{Name: "Ana", RegNo: "R1", Department: "CS"}}},
		{`{"action":"select_option","payload":{"option":"c"}}`, attempt.SelectOption{Label: model.LabelC}},
		{`{"action":"select_option","payload":{"option":"z"}}`, attempt.SelectOption{Label: "Z"}},
		{`{"action":"go_to","payload":{"index":4}}`, attempt.GoTo{Index: 4}},
		{`{"action":"signal","payload":{"type":"visibility","hidden":true}}`,
			attempt.BrowserSignal{Signal: detector.Signal{Type: detector.SignalVisibility, Hidden: true}}},
		{`{"action":"signal","payload":{"type":"resize","innerWidth":600,"innerHeight":900,"screenWidth":1920,"screenHeight":1080}}`,
			attempt.BrowserSignal{Signal: detector.Signal{Type: detector.SignalResize, InnerWidth: 600, InnerHeight: 900, ScreenWidth: 1920, ScreenHeight: 1080}}},
		{`{"action":"back"}`, attempt.Back{}},
		{`{"action":"next"}`, attempt.Next{}},
		{`{"action":"previous"}`, attempt.Previous{}},
		{`{"action":"submit"}`, attempt.Submit{}},
		{`{"action":"check_approval"}`, attempt.CheckApproval{}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			ev, err := Decode(request(t, tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, ev)
		})
	}
}

func TestDecodePing(t *testing.T) {
	ev, err := Decode(request(t, `{"action":"ping"}`))
	require.NoError(t, err)
	assert.Nil(t, ev)
}

func TestDecodeRejects(t *testing.T) {
	_, err := Decode(request(t, `{"action":"autosave"}`))
	assert.ErrorIs(t, err, ErrUnknownAction)

	for _, raw := range []string{
		`{"action":"join_code"}`,
		`{"action":"go_to","payload":{"index":"x"}}`,
		`{"action":"signal","payload":{"type":"mouse"}}`,
	} {
		_, err := Decode(request(t, raw))
		assert.Error(t, err, raw)
		assert.NotErrorIs(t, err, ErrUnknownAction, raw)
	}
}
