package handler

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/response"
)

const healthTimeout = 2 * time.Second

// SystemHandler reports process health and persistence backlog.
type SystemHandler struct {
	pool      *pgxpool.Pool
	rdb       *redis.Client
	startTime time.Time
	log       zerolog.Logger
}

func NewSystemHandler(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		pool:      pool,
		rdb:       rdb,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

type healthStatus struct {
	Status   string `json:"status"`
	Postgres string `json:"postgres"`
	Redis    string `json:"redis"`
	Uptime   string `json:"uptime"`
}

// Health godoc
// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	st := healthStatus{Status: "ok", Postgres: "ok", Redis: "ok", Uptime: formatDuration(time.Since(h.startTime))}
	if err := h.pool.Ping(ctx); err != nil {
		h.log.Warn().Err(err).Msg("Postgres health check failed")
		st.Postgres, st.Status = "down", "degraded"
	}
	if err := h.rdb.Ping(ctx).Err(); err != nil {
		h.log.Warn().Err(err).Msg("Redis health check failed")
		st.Redis, st.Status = "down", "degraded"
	}

	code := http.StatusOK
	if st.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	response.Success(c, code, st)
}

type queueStats struct {
	Goroutines         int   `json:"goroutines"`
	QueueProctorEvents int64 `json:"queue_proctor_events"`
	QueueQuestionOrder int64 `json:"queue_question_order"`
}

// Queues godoc
// GET /api/v1/monitor/system/queues
func (h *SystemHandler) Queues(c *gin.Context) {
	ctx := c.Request.Context()

	pipe := h.rdb.Pipeline()
	eventsCmd := pipe.LLen(ctx, config.WorkerKey.PersistProctorEventsQueue)
	orderCmd := pipe.LLen(ctx, config.WorkerKey.PersistQuestionOrderQueue)
	if _, err := pipe.Exec(ctx); err != nil {
		h.log.Error().Err(err).Msg("Failed to read queue lengths")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, queueStats{
		Goroutines:         runtime.NumGoroutine(),
		QueueProctorEvents: eventsCmd.Val(),
		QueueQuestionOrder: orderCmd.Val(),
	})
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
