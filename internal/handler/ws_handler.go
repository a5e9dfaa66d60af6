package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/attempt"
	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stemsi/exstem-proctor/internal/service"
	ws "github.com/stemsi/exstem-proctor/internal/websocket"
)

// outboxSize bounds the messages queued for one slow client. A client that
// falls further behind is disconnected.
const outboxSize = 256

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(allowedOrigins, r.Header.Get("Origin"))
		},
	}
}

func originAllowed(allowed []string, origin string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}

// machineFactory builds the attempt machine of one connection.
type machineFactory interface {
	NewMachine(notifier attempt.Notifier, log zerolog.Logger) *attempt.Machine
}

// AttemptWSHandler runs one attempt machine per WebSocket connection.
type AttemptWSHandler struct {
	baseCtx        context.Context
	machines       machineFactory
	allowedOrigins []string
	upgrader       websocket.Upgrader
	log            zerolog.Logger
	wg             sync.WaitGroup
}

// NewAttemptWSHandler creates a new AttemptWSHandler. Cancelling ctx ends
// every open attempt.
func NewAttemptWSHandler(ctx context.Context, proctor *service.ProctorService, allowedOrigins []string, log zerolog.Logger) *AttemptWSHandler {
	return newAttemptWSHandler(ctx, proctor, allowedOrigins, log)
}

func newAttemptWSHandler(ctx context.Context, machines machineFactory, allowedOrigins []string, log zerolog.Logger) *AttemptWSHandler {
	return &AttemptWSHandler{
		baseCtx:        ctx,
		machines:       machines,
		allowedOrigins: allowedOrigins,
		upgrader:       buildUpgrader(allowedOrigins),
		log:            log.With().Str("component", "ws_handler").Logger(),
	}
}

// Wait blocks until every connection has torn down its machine.
func (h *AttemptWSHandler) Wait() { h.wg.Wait() }

// AttemptStream godoc
// WS /ws/v1/attempts
// Streams user actions and browser signals into an attempt machine and
// machine notices back to the client.
func (h *AttemptWSHandler) AttemptStream(c *gin.Context) {
	if !originAllowed(h.allowedOrigins, c.GetHeader("Origin")) {
		response.Fail(c, http.StatusForbidden, response.ErrOriginNotAllowed)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	h.wg.Add(1)
	defer h.wg.Done()

	connLog := h.log.With().
		Str("request_id", response.RequestID(c)).
		Str("remote_ip", c.ClientIP()).
		Logger()

	ctx, cancel := context.WithCancel(h.baseCtx)
	defer cancel()

	out := make(chan interface{}, outboxSize)
	send := func(v interface{}) {
		select {
		case out <- v:
		default:
			connLog.Warn().Msg("Client outbox full, disconnecting")
			cancel()
		}
	}

	m := h.machines.NewMachine(attempt.NotifierFunc(func(n attempt.Notice) {
		send(ws.NoticeResponse{Event: ws.EventNotice, Notice: n})
	}), connLog)
	go m.Run(ctx)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(ctx, conn, out, connLog)
		// unblocks the reader when the writer gave up first
		cancel()
		conn.Close()
	}()

	connLog.Info().Msg("Attempt connection opened")
	h.readLoop(ctx, conn, m, send, connLog)

	cancel()
	<-m.Done()
	<-writerDone
	connLog.Info().Str("phase", string(m.Phase())).Msg("Attempt connection closed")
}

func (h *AttemptWSHandler) readLoop(ctx context.Context, conn *websocket.Conn, m *attempt.Machine, send func(interface{}), log zerolog.Logger) {
	ws.PrepareRead(conn)
	for {
		req, err := ws.ReadRequest(conn)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && ctx.Err() == nil {
				log.Warn().Err(err).Msg("Unexpected close")
			} else {
				log.Debug().Msg("Connection closed")
			}
			return
		}

		ev, err := ws.Decode(req)
		if err != nil {
			code := response.ErrInvalidPayload
			if errors.Is(err, ws.ErrUnknownAction) {
				code = response.ErrUnknownAction
			}
			log.Debug().Err(err).Str("action", string(req.Action)).Msg("Rejected client message")
			send(ws.ErrorResponse{Event: ws.EventError, Code: code, Message: err.Error()})
			continue
		}
		if ev == nil {
			send(ws.PongResponse{Event: ws.EventPong})
			continue
		}
		if !m.Dispatch(ev) {
			return
		}
	}
}

// writeLoop is the only writer of conn. It drains out and keeps the
// connection alive with pings.
func (h *AttemptWSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, out <-chan interface{}, log zerolog.Logger) {
	ticker := time.NewTicker(ws.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = ws.WriteClose(conn)
			return
		case v := <-out:
			if err := ws.WriteTyped(conn, v); err != nil {
				log.Debug().Err(err).Msg("Write failed")
				return
			}
		case <-ticker.C:
			if err := ws.WritePing(conn); err != nil {
				log.Debug().Err(err).Msg("Ping failed")
				return
			}
		}
	}
}
