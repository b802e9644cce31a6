package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	// ActionSelect records one answer selection (last write wins).
	ActionSelect Action = "select"
	// ActionSubmit requests a manual submission.
	ActionSubmit Action = "submit"
	// ActionConfirmSubmit acknowledges the unanswered-questions prompt.
	ActionConfirmSubmit Action = "confirm_submit"
	ActionPing          Action = "ping"
)

// RequestPayload carries any client message; unused fields stay empty.
type RequestPayload struct {
	Action     Action `json:"action"`
	QuestionID string `json:"question_id,omitempty"`
	Selected   *int   `json:"selected,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventStarted Event = "started"
	EventTick    Event = "tick"
	// EventConfirm asks the client to confirm submitting with
	// unanswered questions.
	EventConfirm Event = "confirm"
	EventGraded  Event = "graded"
	// EventBlocked reports a pre-existing result for this exam.
	EventBlocked Event = "blocked"
	EventError   Event = "error"
	EventPong    Event = "pong"
)

// ResponsePayload is the envelope for all server events.
type ResponsePayload struct {
	Event Event       `json:"event"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}
