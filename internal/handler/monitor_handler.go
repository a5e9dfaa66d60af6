package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/middleware"
	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stemsi/exstem-proctor/internal/service"
)

const (
	refreshInterval   = 15 * time.Second
	keepAliveInterval = 30 * time.Second
	refreshTimeout    = 5 * time.Second // prevent slow queries from blocking the SSE loop

	maxSessionIDLength = 64
)

type overviewReader interface {
	GetSessionOverview(ctx context.Context, sessionID string) (*service.SessionOverview, error)
}

type monitorSubscriber interface {
	SubscribeMonitor(ctx context.Context, sessionID string) *redis.PubSub
}

// MonitorHandler serves the live view of quiz sessions to proctors.
type MonitorHandler struct {
	monitor overviewReader
	sub     monitorSubscriber
	log     zerolog.Logger
}

func NewMonitorHandler(monitor overviewReader, sub monitorSubscriber, log zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{
		monitor: monitor,
		sub:     sub,
		log:     log.With().Str("component", "monitor_handler").Logger(),
	}
}

func sessionParam(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("session_id"))
	if id == "" || len(id) > maxSessionIDLength {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return "", false
	}
	return id, true
}

// GetSession godoc
// GET /api/v1/monitor/sessions/:session_id
func (h *MonitorHandler) GetSession(c *gin.Context) {
	sessionID, ok := sessionParam(c)
	if !ok {
		return
	}

	overview, err := h.monitor.GetSessionOverview(c.Request.Context(), sessionID)
	if err != nil {
		h.log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to load session overview")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, overview)
}

// StreamSession godoc
// GET /api/v1/monitor/sessions/:session_id/stream
// Sends a snapshot, then forwards attempt updates and audit events as they
// are published. A fresh snapshot follows every refresh interval once
// anything happened.
func (h *MonitorHandler) StreamSession(c *gin.Context) {
	sessionID, ok := sessionParam(c)
	if !ok {
		return
	}
	reqCtx := c.Request.Context()

	operator := ""
	if claims := middleware.GetClaims(c); claims != nil {
		operator = claims.Operator
	}
	log := h.log.With().Str("session_id", sessionID).Str("operator", operator).Logger()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	// Subscribe before the snapshot so no update falls in between.
	pubsub := h.sub.SubscribeMonitor(reqCtx, sessionID)
	defer pubsub.Close()
	ch := pubsub.Channel()

	h.sendSnapshot(c, reqCtx, sessionID, log)

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()

	refreshTicker := time.NewTicker(refreshInterval)
	defer refreshTicker.Stop()

	dirty := false
	pingPayload, _ := json.Marshal(map[string]string{"type": "ping"})

	log.Info().Msg("Proctor attached to session monitor SSE")

	for {
		select {
		case <-reqCtx.Done():
			log.Info().Msg("Proctor disconnected from session monitor SSE")
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			// Payloads are already JSON
			writeSSE(c, []byte(msg.Payload))
			dirty = true

		case <-refreshTicker.C:
			if !dirty {
				continue
			}
			h.sendSnapshot(c, reqCtx, sessionID, log)
			dirty = false

		case <-keepAliveTicker.C:
			writeSSE(c, pingPayload)
		}
	}
}

func (h *MonitorHandler) sendSnapshot(c *gin.Context, parentCtx context.Context, sessionID string, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(parentCtx, refreshTimeout)
	defer cancel()

	overview, err := h.monitor.GetSessionOverview(ctx, sessionID)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to fetch session overview for stream")
		return
	}

	data, err := json.Marshal(map[string]interface{}{
		"type": "snapshot",
		"data": overview,
	})
	if err != nil {
		return
	}
	writeSSE(c, data)
}

func writeSSE(c *gin.Context, data []byte) {
	c.Writer.Write([]byte("data: "))
	c.Writer.Write(data)
	c.Writer.Write([]byte("\n\n"))
	c.Writer.Flush()
}
