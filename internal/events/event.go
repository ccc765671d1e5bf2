// Package events records every meeting state transition as an ordered event
// and replays the full history plus live updates to subscribers.
package events

import "github.com/asdersss/EZ-LLMcouncil/internal/model"

// EventType tags the payload variant. Consumers switch exhaustively on the
// type instead of probing optional fields.
type EventType string

const (
	EventStage1Start        EventType = "stage1_start"
	EventStage1Progress     EventType = "stage1_progress"
	EventStage1Complete     EventType = "stage1_complete"
	EventStage2Start        EventType = "stage2_start"
	EventStage2LabelMapping EventType = "stage2_label_mapping"
	EventStage2Progress     EventType = "stage2_progress"
	EventStage2Complete     EventType = "stage2_complete"
	EventStage3Start        EventType = "stage3_start"
	EventStage3Progress     EventType = "stage3_progress"
	EventStage3Complete     EventType = "stage3_complete"
	EventStage4Start        EventType = "stage4_start"
	EventStage4Progress     EventType = "stage4_progress"
	EventStage4Complete     EventType = "stage4_complete"
	EventComplete           EventType = "complete"
	EventError              EventType = "error"
	EventHeartbeat          EventType = "heartbeat"
)

// Event is one entry of a meeting's append-only log. Seq starts at 1 and is
// strictly increasing per meeting, so consumers can de-duplicate the seam
// between replayed history and live delivery. Heartbeats are synthesized per
// connection and carry Seq 0; they are never logged.
type Event struct {
	Seq       int       `json:"seq,omitempty"`
	Type      EventType `json:"type"`
	Timestamp string    `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// IsTerminal reports whether the event ends the stream for subscribers.
func (e Event) IsTerminal() bool {
	return e.Type == EventComplete || e.Type == EventError
}

type StageStartPayload struct {
	Message string `json:"message"`
}

type Stage1ProgressPayload struct {
	Model       string              `json:"model"`
	Status      string              `json:"status"`
	Attempt     int                 `json:"attempt,omitempty"`
	MaxAttempts int                 `json:"max_attempts,omitempty"`
	Result      *model.Stage1Result `json:"result,omitempty"`
}

type Stage1CompletePayload struct {
	Results []model.Stage1Result `json:"results"`
}

type LabelMappingPayload struct {
	LabelToModel map[string]string `json:"label_to_model"`
}

type Stage2ProgressPayload struct {
	Model       string              `json:"model"`
	Status      string              `json:"status"`
	Attempt     int                 `json:"attempt,omitempty"`
	MaxAttempts int                 `json:"max_attempts,omitempty"`
	Result      *model.Stage2Result `json:"result,omitempty"`
}

type Stage2CompletePayload struct {
	Results []model.Stage2Result `json:"results"`
}

type Stage3ProgressPayload struct {
	Status      string `json:"status"`
	Attempt     int    `json:"attempt,omitempty"`
	MaxAttempts int    `json:"max_attempts,omitempty"`
	Error       string `json:"error,omitempty"`
}

type Stage3CompletePayload struct {
	Result model.Stage3Result `json:"result"`
}

type Stage4ProgressPayload struct {
	Status string `json:"status"`
}

type Stage4CompletePayload struct {
	Result model.Stage4Result `json:"result"`
}

type CompletePayload struct {
	Title string `json:"title,omitempty"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}
