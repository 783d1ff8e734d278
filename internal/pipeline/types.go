package pipeline

import (
	"errors"

	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/orchestrator"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/phase"
)

// LatestSession is the session reference that resolves to the most recently active session.
const LatestSession = "latest"

// #region errors

var (
	// ErrNoContext means the session has no stored messages to detect from.
	ErrNoContext = errors.New("no conversation context")
	// ErrUnknownSession means an explicit session id has no row.
	ErrUnknownSession = errors.New("unknown session")
	// ErrPhaseNotDetected means a response was requested before any detection was stored.
	ErrPhaseNotDetected = errors.New("phase not detected yet; run detect first")
	// ErrNoActiveSession means "latest" was requested but no active session exists.
	ErrNoActiveSession = errors.New("no active session")
)

// Error kinds reported on failed outcomes.
const (
	KindNoContext        = "no_context"
	KindUnknownSession   = "unknown_session"
	KindPhaseNotDetected = "phase_not_detected"
	KindNoActiveSession  = "no_active_session"
	KindInvalidMode      = "invalid_mode"
	KindInvalidInput     = "invalid_input"
	KindInternal         = "internal"
)

// ErrInvalidInput wraps ingest payload problems.
var ErrInvalidInput = errors.New("invalid input")

// KindOf maps an error onto its outcome kind.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoContext):
		return KindNoContext
	case errors.Is(err, ErrUnknownSession):
		return KindUnknownSession
	case errors.Is(err, ErrPhaseNotDetected):
		return KindPhaseNotDetected
	case errors.Is(err, ErrNoActiveSession):
		return KindNoActiveSession
	case errors.Is(err, orchestrator.ErrInvalidMode):
		return KindInvalidMode
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	default:
		return KindInternal
	}
}

// #endregion

// #region outcomes

// Failure is embedded in every outcome. Success is false exactly when Error is set.
type Failure struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Kind    string `json:"error_kind,omitempty"`
}

func failure(err error) Failure {
	if err == nil {
		return Failure{Success: true}
	}
	return Failure{Error: err.Error(), Kind: KindOf(err)}
}

// DetectOutcome reports a detect-and-store call.
type DetectOutcome struct {
	Failure
	SessionID     string       `json:"session_id"`
	Phase         phase.ID     `json:"phase,omitempty"`
	PhaseName     string       `json:"phase_name,omitempty"`
	Confidence    float64      `json:"confidence"`
	Method        phase.Method `json:"method,omitempty"`
	RequiresHuman bool         `json:"requires_human"`
	NextPhase     string       `json:"next_phase,omitempty"`
	Turns         int          `json:"turns"`
	Stored        bool         `json:"stored"`
}

// RespondOutcome reports a respond-from-stored-phase call.
type RespondOutcome struct {
	Failure
	SessionID       string               `json:"session_id"`
	DetectionMethod string               `json:"detection_method,omitempty"`
	Bundle          *orchestrator.Bundle `json:"result,omitempty"`
}

// RunOutcome reports detect followed by respond.
type RunOutcome struct {
	Failure
	Detect  DetectOutcome   `json:"detection"`
	Respond *RespondOutcome `json:"response,omitempty"`
}

// IngestOutcome reports a transcript import.
type IngestOutcome struct {
	Failure
	SessionID string `json:"session_id"`
	Received  int    `json:"received"`
	Inserted  int    `json:"inserted"`
}

// #endregion
