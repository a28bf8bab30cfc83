package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/brainwavehq/academy-backend/internal/middleware"
	"github.com/brainwavehq/academy-backend/internal/quiz"
	"github.com/brainwavehq/academy-backend/internal/service"
	ws "github.com/brainwavehq/academy-backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
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

// WSHandler streams attempt state over WebSocket: countdown ticks once per
// second and a graded event the moment the attempt finishes, whether by
// explicit submit or by the timer reaching zero.
type WSHandler struct {
	attemptService *service.AttemptService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(attemptService *service.AttemptService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		attemptService: attemptService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/student/assignments/:assignment_id/stream
// Upgrades to WebSocket for the live attempt flow.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	assignmentID, err := uuid.Parse(c.Param("assignment_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid assignment ID"})
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.Wrap(raw)
	defer conn.Close()

	studentID := claims.UserID

	wsLog := h.log.With().
		Int("student_id", studentID).
		Str("assignment_id", assignmentID.String()).
		Logger()

	// Enter puts the session in the instructions view on first contact and is
	// a no-op for a session that already exists.
	state, err := h.attemptService.Enter(c.Request.Context(), assignmentID, studentID)
	if err != nil {
		conn.WriteError(attemptErrMessage(err))
		return
	}
	conn.WriteTyped(ws.StateResponse{Event: ws.EventState, State: state})

	wsLog.Info().Msg("Student connected")

	pushCtx, stopPush := context.WithCancel(context.Background())
	defer stopPush()
	go h.pushLoop(pushCtx, conn, assignmentID, studentID)

	for {
		var msg ws.RequestPayload
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		switch msg.Action {
		case ws.ActionStart:
			h.handleStart(conn, assignmentID, studentID)
		case ws.ActionAnswer:
			h.handleAnswer(conn, assignmentID, studentID, &msg)
		case ws.ActionNavigate:
			h.handleNavigate(conn, assignmentID, studentID, &msg)
		case ws.ActionSubmit:
			h.handleSubmit(conn, assignmentID, studentID, msg.Confirm)
		case ws.ActionRetry:
			h.handleRetry(conn, assignmentID, studentID)
		case ws.ActionState:
			h.handleState(conn, assignmentID, studentID)
		case ws.ActionPing:
			conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})
		default:
			conn.WriteError("unknown action")
		}
	}

	wsLog.Info().Msg("Student disconnected")
}

// pushLoop polls the session once per second and pushes countdown ticks while
// the attempt runs, plus a single graded event when the view flips to results.
// The session itself owns the timer; this loop only mirrors it to the client,
// which is how auto-submit reaches a student who never sends another message.
func (h *WSHandler) pushLoop(ctx context.Context, conn *ws.Conn, assignmentID uuid.UUID, studentID int) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var lastView quiz.View

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		state, err := h.attemptService.State(assignmentID, studentID)
		if err != nil {
			continue
		}

		if state.View == quiz.ViewInProgress && !state.Untimed {
			if err := conn.WriteTyped(ws.TickResponse{Event: ws.EventTick, Remaining: state.Remaining}); err != nil {
				return
			}
		}

		if state.View == quiz.ViewResults && lastView == quiz.ViewInProgress {
			if err := conn.WriteTyped(ws.GradedResponse{
				Event:         ws.EventGraded,
				AutoSubmitted: state.Result != nil && state.Result.AutoSubmitted,
				Result:        state.Result,
				State:         state,
			}); err != nil {
				return
			}
		}
		lastView = state.View
	}
}

func (h *WSHandler) handleStart(conn *ws.Conn, assignmentID uuid.UUID, studentID int) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	state, err := h.attemptService.Start(ctx, assignmentID, studentID)
	if err != nil {
		conn.WriteError(attemptErrMessage(err))
		return
	}
	conn.WriteTyped(ws.StateResponse{Event: ws.EventState, State: state})
}

func (h *WSHandler) handleAnswer(conn *ws.Conn, assignmentID uuid.UUID, studentID int, msg *ws.RequestPayload) {
	questionID, err := uuid.Parse(msg.QID)
	if err != nil {
		conn.WriteError("invalid question ID")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := h.attemptService.RecordAnswer(ctx, assignmentID, studentID, questionID, msg.Value); err != nil {
		conn.WriteError(attemptErrMessage(err))
		return
	}
	conn.WriteTyped(ws.SavedResponse{Event: ws.EventSaved, QID: msg.QID})
}

func (h *WSHandler) handleNavigate(conn *ws.Conn, assignmentID uuid.UUID, studentID int, msg *ws.RequestPayload) {
	var action service.NavAction
	switch msg.Direction {
	case "next":
		action = service.NavNext
	case "previous":
		action = service.NavPrevious
	case "jump":
		action = service.NavJump
	default:
		conn.WriteError("unknown direction")
		return
	}

	state, err := h.attemptService.Navigate(assignmentID, studentID, action, msg.Index)
	if err != nil {
		conn.WriteError(attemptErrMessage(err))
		return
	}
	conn.WriteTyped(ws.StateResponse{Event: ws.EventState, State: state})
}

func (h *WSHandler) handleSubmit(conn *ws.Conn, assignmentID uuid.UUID, studentID int, confirm bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	state, err := h.attemptService.Submit(ctx, assignmentID, studentID, confirm)
	if err != nil {
		conn.WriteError(attemptErrMessage(err))
		return
	}
	conn.WriteTyped(ws.GradedResponse{
		Event:         ws.EventGraded,
		AutoSubmitted: false,
		Result:        state.Result,
		State:         state,
	})
}

func (h *WSHandler) handleRetry(conn *ws.Conn, assignmentID uuid.UUID, studentID int) {
	state, err := h.attemptService.Retry(assignmentID, studentID)
	if err != nil {
		conn.WriteError(attemptErrMessage(err))
		return
	}
	conn.WriteTyped(ws.StateResponse{Event: ws.EventState, State: state})
}

func (h *WSHandler) handleState(conn *ws.Conn, assignmentID uuid.UUID, studentID int) {
	state, err := h.attemptService.State(assignmentID, studentID)
	if err != nil {
		conn.WriteError(attemptErrMessage(err))
		return
	}
	conn.WriteTyped(ws.StateResponse{Event: ws.EventState, State: state})
}

// attemptErrMessage flattens attempt flow errors to client-facing strings.
func attemptErrMessage(err error) string {
	switch {
	case errors.Is(err, quiz.ErrNoQuestions):
		return "assignment has no questions"
	case errors.Is(err, quiz.ErrAttemptsExhausted):
		return "no attempts remaining"
	case errors.Is(err, quiz.ErrNotInProgress):
		return "attempt is not in progress"
	case errors.Is(err, quiz.ErrConfirmationRequired):
		return "submit requires confirmation"
	case errors.Is(err, quiz.ErrUnknownQuestion):
		return "unknown question"
	case errors.Is(err, quiz.ErrClosed), errors.Is(err, service.ErrNoActiveSession):
		return "no active attempt session"
	case errors.Is(err, service.ErrAssignmentNotAvailable):
		return "assignment is not available"
	default:
		return "internal error"
	}
}
