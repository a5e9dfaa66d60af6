package quizapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/api", 2*time.Second, zerolog.Nop())
}

func TestGetQuizSessionUppercasesCode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/quiz-sessions/ABC123", r.URL.Path)
		w.Write([]byte(`{"sessionId":"s1","name":"Midterm","isActive":true,
			"questions":[{"question":"q","options":{"a":"1","b":"2","c":"3","d":"4"},"correct":"C"}],
			"audioFiles":[{"path":"/uploads/a.mp3"}]}`))
	})

	quiz, err := c.GetQuizSession(context.Background(), " abc123 ")
	require.NoError(t, err)
	assert.Equal(t, "s1", quiz.SessionID)
	assert.True(t, quiz.IsActive)
	require.Len(t, quiz.Questions, 1)
	assert.Equal(t, model.LabelC, quiz.Questions[0].Correct)
	assert.Equal(t, c.origin+"/uploads/a.mp3", c.AssetURL(quiz.AudioFiles[0].Path))
}

func TestGetQuizSessionNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	_, err := c.GetQuizSession(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateViolationSendsWireFields(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/quiz-violations", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		for _, k := range []string{"sessionId", "studentName", "regNo", "department", "currentQuestion",
			"userAnswers", "timeLeft", "violationType", "tabSwitchCount", "timeSpent"} {
			assert.Contains(t, body, k)
		}
		assert.Equal(t, "tab_switch_violation", body["violationType"])
		assert.Equal(t, []interface{}{"A", nil}, body["userAnswers"])

		w.Write([]byte(`{"violationId":"v-1"}`))
	})

	id, err := c.CreateViolation(context.Background(), &model.ViolationRequest{
		SessionID:     "s1",
		UserAnswers:   model.Answers{model.LabelA, model.LabelNone},
		ViolationType: model.ViolationTabSwitch,
	})
	require.NoError(t, err)
	assert.Equal(t, "v-1", id)
}

func TestContinueWithoutDecision(t *testing.T) {
	for _, body := range []string{"", "false", "null", `{"success":false}`} {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/quiz-violations/v-1/continue", r.URL.Path)
			w.Write([]byte(body))
		})

		resp, err := c.Continue(context.Background(), "v-1")
		require.NoError(t, err, "body %q", body)
		assert.False(t, resp.Decided(), "body %q", body)
	}
}

func TestContinueResumeDecision(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"actionType":"resume","quizData":{"sessionId":"s1","questions":[]},
			"studentInfo":{"name":"Ann","regNo":"R1","department":"IT"},
			"currentQuestion":3,"userAnswers":["B",null,null,"D"],"timeLeft":1200}`))
	})

	resp, err := c.Continue(context.Background(), "v-1")
	require.NoError(t, err)
	require.True(t, resp.Decided())
	assert.Equal(t, model.ContinueResume, resp.ActionType)
	assert.Equal(t, 3, resp.CurrentQuestion)
	assert.Equal(t, model.Answers{model.LabelB, "", "", model.LabelD}, resp.UserAnswers)
	assert.Equal(t, 1200, resp.TimeLeft)
	assert.Equal(t, "Ann", resp.StudentInfo.Name)
}

func TestServerErrorIsStatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	err := c.SubmitResult(context.Background(), &model.ResultRequest{})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.Status)
	assert.Equal(t, "submit_result", se.Op)
}

func TestCheckPending(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req model.PendingCheckRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "R1", req.RegNo)
		w.Write([]byte(`{"hasPendingViolation":true,"violationId":"v-9","violationType":"split_screen_violation"}`))
	})

	resp, err := c.CheckPending(context.Background(), &model.PendingCheckRequest{StudentName: "Ann", RegNo: "R1", SessionID: "s1"})
	require.NoError(t, err)
	assert.True(t, resp.HasPendingViolation)
	assert.Equal(t, "v-9", resp.ViolationID)
	assert.Equal(t, model.ViolationSplitScreen, resp.ViolationType)
}
