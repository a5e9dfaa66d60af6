package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOverview struct {
	err error
}

func (f fakeOverview) GetSessionOverview(_ context.Context, sessionID string) (*service.SessionOverview, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &service.SessionOverview{
		SessionID: sessionID,
		Attempts:  []model.LiveAttempt{{AttemptID: "a-1", Phase: model.PhaseInProgress}},
		ByPhase:   map[model.Phase]int{model.PhaseInProgress: 1},
	}, nil
}

func serveMonitor(h *MonitorHandler, path string) *httptest.ResponseRecorder {
	r := gin.New()
	r.GET("/sessions/:session_id", h.GetSession)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestGetSession(t *testing.T) {
	w := serveMonitor(NewMonitorHandler(fakeOverview{}, nil, zerolog.Nop()), "/sessions/sess-1")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data service.SessionOverview `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "sess-1", body.Data.SessionID)
	assert.Equal(t, 1, body.Data.ByPhase[model.PhaseInProgress])
}

func TestGetSessionErrors(t *testing.T) {
	w := serveMonitor(NewMonitorHandler(fakeOverview{err: errors.New("redis down")}, nil, zerolog.Nop()), "/sessions/sess-1")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = serveMonitor(NewMonitorHandler(fakeOverview{}, nil, zerolog.Nop()), "/sessions/"+strings.Repeat("x", 65))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_ID")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "2m 5s", formatDuration(125*time.Second))
	assert.Equal(t, "1h 0m 1s", formatDuration(time.Hour+time.Second))
	assert.Equal(t, "1d 2h 0m 0s", formatDuration(26*time.Hour))
}
