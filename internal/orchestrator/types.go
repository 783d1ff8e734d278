package orchestrator

// #region imports
import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/phase"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/transcript"
)

// #endregion

// #region mode

// Mode selects how candidate replies are produced.
type Mode string

const (
	ModeTemplate Mode = "template"
	ModeHybrid   Mode = "hybrid"
	ModePure     Mode = "pure"
	ModeSummary  Mode = "summary"
	ModeAll      Mode = "all"
	// ModeBoth is the two-way composite (one template, one pure) used by the
	// template|ai|both command variant.
	ModeBoth Mode = "both"
)

// ErrInvalidMode is a programmer error: the caller asked for a mode that does not exist.
var ErrInvalidMode = errors.New("invalid response mode")

// #endregion

// #region backend

// Backend is a text-completion capability. An empty string with a nil error
// means no usable output and is treated as a failure.
type Backend interface {
	Complete(ctx context.Context, prompt string, maxNewTokens int, temperature float64) (string, error)
}

// namedBackend is implemented by backends that can report a model name.
type namedBackend interface {
	Name() string
}

// #endregion

// #region request

// Request is one orchestration call. Options <= 0 uses the mode's default count.
type Request struct {
	SessionID  string
	Phase      phase.ID
	Confidence float64
	Transcript transcript.Transcript
	Mode       Mode
	Options    int
}

// #endregion

// #region mode-result

// ModeResult is what one non-composite mode produced.
type ModeResult struct {
	Mode        Mode     `json:"mode"`
	Name        string   `json:"mode_name"`
	Description string   `json:"description"`
	Responses   []string `json:"responses"`
	// Generated counts the responses that came from the backend rather than a template.
	Generated int     `json:"generated"`
	Quality   float64 `json:"quality"`
	Degraded  bool    `json:"degraded"`
	Reason    string  `json:"reason,omitempty"`

	generated []string
}

// #endregion

// #region bundle

// Bundle is the full result of one orchestration call.
type Bundle struct {
	ID                  uuid.UUID    `json:"id"`
	SessionID           string       `json:"session_id"`
	Phase               phase.ID     `json:"phase"`
	PhaseName           string       `json:"phase_name"`
	Confidence          float64      `json:"confidence"`
	Mode                Mode         `json:"mode"`
	Responses           []string     `json:"responses"`
	Results             []ModeResult `json:"modes"`
	Quality             float64      `json:"quality"`
	Degraded            bool         `json:"degraded"`
	RequiresHumanReview bool         `json:"requires_human_review"`
	NextPhaseHint       string       `json:"next_phase_hint,omitempty"`
	NextSteps           string       `json:"next_steps"`
	Warning             string       `json:"warning,omitempty"`
	FollowUpQuestions   []string     `json:"follow_up_questions"`
	ModelUsed           string       `json:"model_used"`
	CreatedAt           time.Time    `json:"created_at"`
}

// Result returns the entry for mode m, if it ran.
func (b Bundle) Result(m Mode) (ModeResult, bool) {
	for _, r := range b.Results {
		if r.Mode == m {
			return r, true
		}
	}
	return ModeResult{}, false
}

// #endregion
