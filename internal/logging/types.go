package logging

import "time"

// #region detection-entry
// DetectionEntry is a single row in the detection_log table.
type DetectionEntry struct {
	SessionID   string    `json:"session_id"`
	Phase       string    `json:"phase"`
	Confidence  float64   `json:"confidence"`
	Method      string    `json:"method"` // "ml_model" | "keyword_matching" | "default"
	ContextHash string    `json:"context_hash,omitempty"`
	Turns       int       `json:"turns"`
	CreatedAt   time.Time `json:"created_at"`
}
// #endregion detection-entry
