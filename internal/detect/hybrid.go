package detect

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/phase"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/transcript"
)

// #region options

// Options configures a HybridDetector.
type Options struct {
	// ArtifactDir holds metadata.json for the learned classifier. Empty means keyword-only.
	ArtifactDir string
	// Factory builds the classifier once the artifact validates.
	Factory ClassifierFactory
	// Classifier, when set, is used directly and skips the artifact probe.
	Classifier Classifier
	Triggers   []PhaseTriggers
	Floor      float64
	// Window bounds the turns rendered for detection. <= 0 uses transcript.DetectionWindow.
	Window int
	Logger *zap.Logger
}

// #endregion

// #region detector

// HybridDetector prefers the learned classifier and falls back to keywords.
// Detect never fails.
type HybridDetector struct {
	ml       Strategy // nil when keyword-only
	fallback Strategy
	meta     Metadata
	window   int
	log      *zap.Logger
}

// NewHybridDetector probes for the classifier once. A missing or broken
// artifact leaves the detector keyword-only.
func NewHybridDetector(opts Options) *HybridDetector {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("detect")

	window := opts.Window
	if window <= 0 {
		window = transcript.DetectionWindow
	}

	keyword := NewKeywordStrategy(NewKeywordScorer(opts.Triggers, opts.Floor))
	d := &HybridDetector{fallback: keyword, window: window, log: log}

	clf := opts.Classifier
	if clf == nil {
		probed, meta, err := ProbeClassifier(opts.ArtifactDir, opts.Factory)
		switch {
		case errors.Is(err, ErrNoArtifact):
			log.Info("no classifier artifact, using keyword matching", zap.String("dir", opts.ArtifactDir))
		case err != nil:
			log.Warn("classifier artifact unusable, using keyword matching", zap.Error(err))
		default:
			clf, d.meta = probed, meta
			log.Info("using ml classifier",
				zap.String("dir", meta.Dir),
				zap.Float64("accuracy", meta.Accuracy),
				zap.Int("training_samples", meta.TrainingSamples))
		}
	}
	if clf != nil {
		d.ml = NewMLStrategy(clf)
	}
	return d
}

// ActiveMethod reports which strategy was selected at construction.
func (d *HybridDetector) ActiveMethod() phase.Method {
	if d.ml != nil {
		return d.ml.Method()
	}
	return d.fallback.Method()
}

// Metadata returns the probed artifact manifest, zero if keyword-only.
func (d *HybridDetector) Metadata() Metadata {
	return d.meta
}

// #endregion

// #region detect

// Detect classifies the most recent window of the transcript.
func (d *HybridDetector) Detect(ctx context.Context, t transcript.Transcript) phase.DetectionResult {
	window := t.Tail(d.window)
	if window.IsEmpty() {
		return Default()
	}
	return d.DetectText(ctx, window.Render())
}

// DetectText classifies pre-rendered transcript text.
func (d *HybridDetector) DetectText(ctx context.Context, text string) phase.DetectionResult {
	if strings.TrimSpace(text) == "" {
		return Default()
	}
	if d.ml != nil {
		res, err := d.ml.Classify(ctx, text)
		if err == nil {
			d.log.Debug("detected", zap.String("phase", string(res.Phase)),
				zap.Float64("confidence", res.Confidence), zap.String("method", string(res.Method)))
			return res
		}
		d.log.Warn("classifier failed, falling back to keywords", zap.Error(err))
	}
	res, _ := d.fallback.Classify(ctx, text)
	d.log.Debug("detected", zap.String("phase", string(res.Phase)),
		zap.Float64("confidence", res.Confidence), zap.String("method", string(res.Method)))
	return res
}

// #endregion
