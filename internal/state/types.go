package state

import (
	"errors"
	"time"

	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/phase"
)

// ErrSessionNotFound is returned when a session id has no row.
var ErrSessionNotFound = errors.New("session not found")

// #region session
// Session is one tracked conversation. Phase is empty until a detection is stored.
type Session struct {
	ID              string     `json:"session_id"`
	Platform        string     `json:"platform"`
	Title           string     `json:"title,omitempty"`
	Participant     string     `json:"participant,omitempty"`
	URL             string     `json:"url,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	LastActivity    time.Time  `json:"last_activity"`
	TotalMessages   int        `json:"total_messages"`
	Status          string     `json:"status"`
	Phase           phase.ID   `json:"phase,omitempty"`
	PhaseConfidence float64    `json:"phase_confidence,omitempty"`
	PhaseUpdatedAt  *time.Time `json:"phase_updated_at,omitempty"`
}
// #endregion session

// #region message
// Message is one stored chat message. MessageID is unique across sessions.
type Message struct {
	SessionID  string    `json:"session_id"`
	MessageID  string    `json:"message_id"`
	Sender     string    `json:"sender"`
	SenderType string    `json:"sender_type"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
	Order      int       `json:"message_order"`
}
// #endregion message

// #region phase-record
// PhaseRecord is the durable memory of the last phase decided for a session.
type PhaseRecord struct {
	SessionID  string    `json:"session_id"`
	Phase      phase.ID  `json:"phase"`
	Confidence float64   `json:"confidence"`
	UpdatedAt  time.Time `json:"updated_at"`
}
// #endregion phase-record
