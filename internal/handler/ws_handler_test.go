package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/attempt"
	"github.com/stemsi/exstem-proctor/internal/quizapi"
	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testMachines struct {
	backend attempt.Backend
}

func (f testMachines) NewMachine(n attempt.Notifier, log zerolog.Logger) *attempt.Machine {
	return attempt.New(attempt.Config{TickInterval: time.Hour, PollInterval: time.Hour}, attempt.Deps{
		Backend:  f.backend,
		Notifier: n,
		Log:      log,
	})
}

func quizBackend(t *testing.T) *quizapi.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/quiz-sessions/MID1" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"sessionId":"sess-1","name":"Midterm","isActive":true,
			"questions":[{"question":"q1","options":{"a":"1","b":"2","c":"3","d":"4"},"correct":"A"}]}`))
	}))
	t.Cleanup(srv.Close)
	return quizapi.NewClient(srv.URL+"/api", 2*time.Second, zerolog.Nop())
}

func dialAttempt(t *testing.T, origins []string, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h := newAttemptWSHandler(ctx, testMachines{backend: quizBackend(t)}, origins, zerolog.Nop())

	r := gin.New()
	r.GET("/ws/v1/attempts", h.AttemptStream)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		cancel()
		srv.Close()
		h.Wait()
	})

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/v1/attempts"
	return websocket.DefaultDialer.Dial(url, header)
}

type frame struct {
	Event   string         `json:"event"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Notice  attempt.Notice `json:"notice"`
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

// readUntil skips frames until one matches.
func readUntil(t *testing.T, conn *websocket.Conn, match func(frame) bool) frame {
	t.Helper()
	for i := 0; i < 10; i++ {
		if f := readFrame(t, conn); match(f) {
			return f
		}
	}
	t.Fatal("expected frame not received")
	return frame{}
}

func TestAttemptStreamJoinCode(t *testing.T) {
	conn, _, err := dialAttempt(t, nil, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"action":  "join_code",
		"payload": map[string]string{"code": "mid1"},
	}))

	f := readUntil(t, conn, func(f frame) bool { return f.Notice.Kind == attempt.NoticeQuiz })
	require.NotNil(t, f.Notice.Quiz)
	assert.Equal(t, "Midterm", f.Notice.Quiz.Name)
	assert.Equal(t, 1, f.Notice.Quiz.TotalQuestions)
}

func TestAttemptStreamReportsMachineErrors(t *testing.T) {
	conn, _, err := dialAttempt(t, nil, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"action":  "join_code",
		"payload": map[string]string{"code": "nope"},
	}))

	f := readUntil(t, conn, func(f frame) bool { return f.Notice.Kind == attempt.NoticeError })
	assert.Equal(t, response.ErrQuizNotFound, f.Notice.Code)
	assert.Equal(t, response.GetMessage(response.ErrQuizNotFound), f.Notice.Message)
}

func TestAttemptStreamRejectsBadMessages(t *testing.T) {
	conn, _, err := dialAttempt(t, nil, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]string{"action": "autosave"}))
	f := readFrame(t, conn)
	assert.Equal(t, "error", f.Event)
	assert.Equal(t, "UNKNOWN_ACTION", f.Code)

	require.NoError(t, conn.WriteJSON(map[string]string{"action": "go_to"}))
	f = readFrame(t, conn)
	assert.Equal(t, "INVALID_PAYLOAD", f.Code)

	require.NoError(t, conn.WriteJSON(map[string]string{"action": "ping"}))
	f = readFrame(t, conn)
	assert.Equal(t, "pong", f.Event)
}

func TestAttemptStreamChecksOrigin(t *testing.T) {
	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := dialAttempt(t, []string{"https://quiz.example"}, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ORIGIN_NOT_ALLOWED", body.Error.Code)
}
