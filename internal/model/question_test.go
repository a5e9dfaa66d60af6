package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswersEncodeUnsetAsNull(t *testing.T) {
	a := Answers{LabelA, LabelNone, LabelD}

	raw, err := json.Marshal(a)
	require.NoError(t, err)
	assert.JSONEq(t, `["A", null, "D"]`, string(raw))

	var back Answers
	require.NoError(t, json.Unmarshal([]byte(`["b", null, "x", "D"]`), &back))
	assert.Equal(t, Answers{LabelB, LabelNone, LabelNone, LabelD}, back)
}

func TestAnswersFit(t *testing.T) {
	a := Answers{LabelA, LabelB, LabelC}

	assert.Equal(t, Answers{LabelA, LabelB}, a.Fit(2))
	assert.Equal(t, Answers{LabelA, LabelB, LabelC, LabelNone}, a.Fit(4))
	assert.Equal(t, 1, a.Fit(4).Unanswered())
	assert.Equal(t, []int{0, 1, 2}, a.Answered())
}

func TestQuestionWireFormat(t *testing.T) {
	data := []byte(`{"_id":"q1","question":"2+2?","options":{"a":"3","b":"4","c":"5","d":"6"},"correct":"B"}`)

	var q Question
	require.NoError(t, json.Unmarshal(data, &q))
	assert.Equal(t, Options{"3", "4", "5", "6"}, q.Options)
	assert.Equal(t, "4", q.Options.Text(q.Correct))

	raw, err := json.Marshal(q)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(raw))
}

func TestContinueResponseDecided(t *testing.T) {
	var empty *ContinueResponse
	assert.False(t, empty.Decided())
	assert.False(t, (&ContinueResponse{Success: false, ActionType: ContinueResume}).Decided())
	assert.False(t, (&ContinueResponse{Success: true}).Decided())
	assert.True(t, (&ContinueResponse{Success: true, ActionType: ContinueRestart}).Decided())
}

func TestViolationKindHuman(t *testing.T) {
	assert.Equal(t, "tab switch_violation", ViolationTabSwitch.Human())
}
