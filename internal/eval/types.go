package eval

import (
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/phase"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/transcript"
)

// #region eval-config
// EvalConfig holds the pass thresholds for a detection run.
type EvalConfig struct {
	MinAccuracy float64 // fail if overall accuracy is below this
	// MinEscalationRecall fails the run when knowledge_check recall drops
	// below it. Missed escalations are costlier than other misses.
	MinEscalationRecall float64
}

// DefaultEvalConfig returns thresholds the built-in keyword table clears.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		MinAccuracy:         0.6,
		MinEscalationRecall: 0.8,
	}
}

// #endregion eval-config

// #region sample
// Sample is one labelled transcript.
type Sample struct {
	ID         string
	Transcript transcript.Transcript
	Expected   phase.ID
}

// Prediction is what the detector said about one sample.
type Prediction struct {
	ID         string       `json:"id"`
	Expected   phase.ID     `json:"expected"`
	Got        phase.ID     `json:"got"`
	Confidence float64      `json:"confidence"`
	Method     phase.Method `json:"method"`
	Correct    bool         `json:"correct"`
}

// #endregion sample

// #region eval-metric
// PhaseMetrics is the per-label breakdown.
type PhaseMetrics struct {
	Phase     phase.ID `json:"phase"`
	Support   int      `json:"support"`
	Predicted int      `json:"predicted"`
	Correct   int      `json:"correct"`
	Precision float64  `json:"precision"`
	Recall    float64  `json:"recall"`
	F1        float64  `json:"f1"`
}

// #endregion eval-metric

// #region eval-result
// Report is the output of Evaluate.
type Report struct {
	Total       int                           `json:"total"`
	Correct     int                           `json:"correct"`
	Accuracy    float64                       `json:"accuracy"`
	Phases      []PhaseMetrics                `json:"phases"`
	Confusion   map[phase.ID]map[phase.ID]int `json:"confusion"`
	ByMethod    map[phase.Method]int          `json:"by_method"`
	Predictions []Prediction                  `json:"predictions"`
	Passed      bool                          `json:"passed"`
	Reason      string                        `json:"reason"`
}

// #endregion eval-result
