package websocket

import "github.com/brainwavehq/academy-backend/internal/quiz"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionStart    Action = "start"
	ActionAnswer   Action = "answer"
	ActionNavigate Action = "navigate"
	ActionSubmit   Action = "submit"
	ActionRetry    Action = "retry"
	ActionState    Action = "state"
	ActionPing     Action = "ping"
)

// RequestPayload carries every client action; unused fields stay empty.
type RequestPayload struct {
	Action Action `json:"action"`

	// ActionAnswer
	QID   string `json:"q_id,omitempty"`
	Value string `json:"value,omitempty"`

	// ActionNavigate: "next", "previous", or "jump" with Index.
	Direction string `json:"direction,omitempty"`
	Index     int    `json:"index,omitempty"`

	// ActionSubmit
	Confirm bool `json:"confirm,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState  Event = "state"
	EventSaved  Event = "saved"
	EventTick   Event = "tick"
	EventGraded Event = "graded"
	EventError  Event = "error"
	EventPong   Event = "pong"
)

// StateResponse carries a full session snapshot, sent after start, navigate,
// retry, and explicit state requests.
type StateResponse struct {
	Event Event      `json:"event"`
	State quiz.State `json:"state"`
}

// SavedResponse acknowledges a stored answer.
type SavedResponse struct {
	Event Event  `json:"event"`
	QID   string `json:"q_id"`
}

// TickResponse pushes the countdown once per second while in progress.
type TickResponse struct {
	Event     Event `json:"event"`
	Remaining int   `json:"remaining_seconds"`
}

// GradedResponse announces that the attempt finished, manually or by the
// countdown reaching zero.
type GradedResponse struct {
	Event         Event        `json:"event"`
	AutoSubmitted bool         `json:"auto_submitted"`
	Result        *quiz.Result `json:"result,omitempty"`
	State         quiz.State   `json:"state"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
