package websocket

import (
	"encoding/json"

	"github.com/stemsi/lms-backend/internal/model"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionSubmit Action = "submit"
	ActionState  Action = "state"
	ActionPing   Action = "ping"
)

// RequestEnvelope is the single client message shape. Answers is only read
// for submit.
type RequestEnvelope struct {
	Action  Action          `json:"action"`
	Answers json.RawMessage `json:"answers,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError  Event = "error"
	EventState  Event = "state"
	EventGraded Event = "graded"
	EventPong   Event = "pong"
)

type StateResponse struct {
	Event Event               `json:"event"`
	State *model.SessionState `json:"state"`
}

type GradedResponse struct {
	Event  Event             `json:"event"`
	Result *model.ExamResult `json:"result"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
