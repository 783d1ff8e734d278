package detect

import (
	"context"
	"fmt"
	"math"

	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/phase"
)

// #region ml-strategy

type mlStrategy struct {
	clf Classifier
}

// NewMLStrategy wraps a learned classifier. Panics inside the classifier are
// converted to errors; unknown labels and out-of-range confidences are rejected.
func NewMLStrategy(clf Classifier) Strategy {
	return mlStrategy{clf: clf}
}

func (s mlStrategy) Method() phase.Method { return phase.MethodML }

func (s mlStrategy) Classify(ctx context.Context, text string) (res phase.DetectionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = phase.DetectionResult{}, fmt.Errorf("classifier panic: %v", r)
		}
	}()

	pred, err := s.clf.PredictPhase(ctx, text)
	if err != nil {
		return phase.DetectionResult{}, err
	}
	if !phase.Known(pred.Phase) {
		return phase.DetectionResult{}, fmt.Errorf("%w: label %q", ErrInvalidPrediction, pred.Phase)
	}
	if math.IsNaN(pred.Confidence) || pred.Confidence < 0 || pred.Confidence > 1 {
		return phase.DetectionResult{}, fmt.Errorf("%w: confidence %v", ErrInvalidPrediction, pred.Confidence)
	}
	return phase.DetectionResult{
		Phase:      pred.Phase,
		Confidence: phase.Round4(pred.Confidence),
		Method:     phase.MethodML,
	}, nil
}

// #endregion
