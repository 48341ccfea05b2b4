package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/lms-backend/internal/middleware"
	"github.com/stemsi/lms-backend/internal/response"
	"github.com/stemsi/lms-backend/internal/service"
	ws "github.com/stemsi/lms-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams a live exam session over a WebSocket.
type WSHandler struct {
	sessionService *service.ExamSessionService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.ExamSessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/student/sessions/:session_id/stream
// Sends the session state on connect, then serves submit, state and ping.
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID := c.Param("session_id")
	studentID := claims.UserID

	// Reject dead sessions before upgrading so the client sees a plain HTTP error.
	state, err := h.sessionService.SessionState(c.Request.Context(), studentID, sessionID)
	if err != nil {
		response.FailFromError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Str("student_id", studentID).
		Str("session_id", sessionID).
		Logger()
	wsLog.Info().Msg("Student connected")

	if err := ws.WriteTyped(conn, ws.StateResponse{Event: ws.EventState, State: state}); err != nil {
		return
	}

	ctx := c.Request.Context()
	for {
		var msg ws.RequestEnvelope
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		var writeErr error
		switch msg.Action {
		case ws.ActionSubmit:
			result, err := h.sessionService.SubmitExamJSON(ctx, studentID, sessionID, msg.Answers)
			if err != nil {
				writeErr = h.writeServiceError(conn, wsLog, err)
				break
			}
			writeErr = ws.WriteTyped(conn, ws.GradedResponse{Event: ws.EventGraded, Result: result})
		case ws.ActionState:
			state, err := h.sessionService.SessionState(ctx, studentID, sessionID)
			if err != nil {
				writeErr = h.writeServiceError(conn, wsLog, err)
				break
			}
			writeErr = ws.WriteTyped(conn, ws.StateResponse{Event: ws.EventState, State: state})
		case ws.ActionPing:
			writeErr = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			writeErr = ws.WriteError(conn, string(response.ErrInvalidPayload), "unknown action: "+string(msg.Action))
		}

		if writeErr != nil {
			wsLog.Debug().Err(writeErr).Msg("Write failed")
			return
		}
	}
}

func (h *WSHandler) writeServiceError(conn *websocket.Conn, log zerolog.Logger, err error) error {
	status, code := response.MapError(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg("Session action failed")
	}
	return ws.WriteError(conn, string(code), response.GetMessage(code))
}
