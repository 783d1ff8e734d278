package detect

import (
	"context"
	"errors"

	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/phase"
)

// #region errors

var (
	// ErrNoArtifact means no classifier artifact directory is configured or present.
	ErrNoArtifact = errors.New("classifier artifact not found")
	// ErrInvalidPrediction is returned when a classifier answers with an unknown
	// label or an out-of-range confidence.
	ErrInvalidPrediction = errors.New("invalid classifier prediction")
)

// #endregion

// #region triggers

// PhaseTriggers is one row of the keyword table: lowercase trigger substrings
// and a weight applied to the normalized hit ratio.
type PhaseTriggers struct {
	Phase    phase.ID `yaml:"phase" json:"phase"`
	Triggers []string `yaml:"triggers" json:"triggers"`
	Weight   float64  `yaml:"weight" json:"weight"`
}

// PhaseScore is the raw weighted score of one phase.
type PhaseScore struct {
	Phase phase.ID
	Score float64
	Hits  []string
}

// #endregion

// #region capabilities

// Classifier is the learned phase classifier capability.
// It must never be called with empty context.
type Classifier interface {
	PredictPhase(ctx context.Context, text string) (phase.Prediction, error)
}

// ClassifierFactory builds a Classifier once its artifact metadata has been validated.
type ClassifierFactory func(meta Metadata) (Classifier, error)

// Strategy is one classification variant, selected once at construction.
type Strategy interface {
	Method() phase.Method
	Classify(ctx context.Context, text string) (phase.DetectionResult, error)
}

// #endregion
