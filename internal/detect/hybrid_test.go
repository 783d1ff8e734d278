package detect

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/phase"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/transcript"
)

type stubClassifier struct {
	pred  phase.Prediction
	err   error
	panic bool
	calls int
}

func (s *stubClassifier) PredictPhase(_ context.Context, _ string) (phase.Prediction, error) {
	s.calls++
	if s.panic {
		panic("tensor shape mismatch")
	}
	return s.pred, s.err
}

func writeMetadata(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, MetadataFile), []byte(body), 0o644))
	return dir
}

const goodMetadata = `{
	"phase_labels": ["initial_response", "ask_details", "knowledge_check"],
	"id_to_phase": {"0": "initial_response", "1": "ask_details", "2": "knowledge_check"},
	"accuracy": 91.5,
	"training_samples": 640
}`

func TestHybrid_UsesClassifier(t *testing.T) {
	clf := &stubClassifier{pred: phase.Prediction{Phase: phase.RateNegotiation, Confidence: 0.876543}}
	d := NewHybridDetector(Options{Classifier: clf})
	require.Equal(t, phase.MethodML, d.ActiveMethod())

	got := d.Detect(context.Background(), transcript.FromLines("other: hi"))
	assert.Equal(t, phase.DetectionResult{Phase: phase.RateNegotiation, Confidence: 0.8765, Method: phase.MethodML}, got)
	assert.Equal(t, 1, clf.calls)
}

func TestHybrid_FallsBackOnFailure(t *testing.T) {
	tests := []struct {
		name string
		clf  *stubClassifier
	}{
		{"error", &stubClassifier{err: errors.New("model offline")}},
		{"panic", &stubClassifier{panic: true}},
		{"unknown-label", &stubClassifier{pred: phase.Prediction{Phase: "small_talk", Confidence: 0.9}}},
		{"bad-confidence", &stubClassifier{pred: phase.Prediction{Phase: phase.AskDetails, Confidence: 1.4}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewHybridDetector(Options{Classifier: tt.clf})
			got := d.Detect(context.Background(), transcript.FromLines("other: Hello! Are you available?"))
			assert.Equal(t, phase.InitialResponse, got.Phase)
			assert.Equal(t, phase.MethodKeyword, got.Method)
			assert.GreaterOrEqual(t, got.Confidence, 0.5)
		})
	}
}

func TestHybrid_EmptyTranscriptSkipsClassifier(t *testing.T) {
	clf := &stubClassifier{pred: phase.Prediction{Phase: phase.AskDetails, Confidence: 0.9}}
	d := NewHybridDetector(Options{Classifier: clf})
	got := d.Detect(context.Background(), nil)
	assert.Equal(t, Default(), got)
	assert.Zero(t, clf.calls)
}

func TestHybrid_BlankTextSkipsClassifier(t *testing.T) {
	clf := &stubClassifier{pred: phase.Prediction{Phase: phase.AskDetails, Confidence: 0.9}}
	d := NewHybridDetector(Options{Classifier: clf})
	for _, text := range []string{"", "   ", "\n\t "} {
		assert.Equal(t, Default(), d.DetectText(context.Background(), text), "%q", text)
	}
	assert.Zero(t, clf.calls)
}

func TestHybrid_WindowLimitsContext(t *testing.T) {
	d := NewHybridDetector(Options{Window: 1})
	tr := transcript.FromLines(
		"other: Which language do you prefer - English or Dutch?",
		"other: I'm sending the contract now. Please accept to start.",
	)
	assert.Equal(t, phase.ContractAcceptance, d.Detect(context.Background(), tr).Phase)
}

func TestHybrid_ProbeArtifact(t *testing.T) {
	clf := &stubClassifier{pred: phase.Prediction{Phase: phase.AskDetails, Confidence: 0.7}}
	built := 0
	factory := func(meta Metadata) (Classifier, error) {
		built++
		assert.Equal(t, 640, meta.TrainingSamples)
		return clf, nil
	}

	d := NewHybridDetector(Options{ArtifactDir: writeMetadata(t, goodMetadata), Factory: factory})
	assert.Equal(t, phase.MethodML, d.ActiveMethod())
	assert.InDelta(t, 91.5, d.Metadata().Accuracy, 1e-9)

	d.DetectText(context.Background(), "other: a")
	d.DetectText(context.Background(), "other: b")
	assert.Equal(t, 1, built, "probe must run once at construction")
	assert.Equal(t, 2, clf.calls)
}

func TestHybrid_ProbeFailuresAreKeywordOnly(t *testing.T) {
	ok := func(Metadata) (Classifier, error) { return &stubClassifier{}, nil }
	tests := []struct {
		name    string
		dir     string
		factory ClassifierFactory
	}{
		{"no-dir", "", ok},
		{"missing-file", t.TempDir(), ok},
		{"malformed", writeMetadata(t, `{"phase_labels": [`), ok},
		{"unknown-label", writeMetadata(t, `{"phase_labels": ["greeting"]}`), ok},
		{"factory-error", writeMetadata(t, goodMetadata), func(Metadata) (Classifier, error) {
			return nil, errors.New("weights missing")
		}},
		{"no-factory", writeMetadata(t, goodMetadata), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewHybridDetector(Options{ArtifactDir: tt.dir, Factory: tt.factory})
			assert.Equal(t, phase.MethodKeyword, d.ActiveMethod())
		})
	}
}

func TestLoadMetadata_Missing(t *testing.T) {
	_, err := LoadMetadata(t.TempDir())
	assert.ErrorIs(t, err, ErrNoArtifact)
}

func TestConfidenceAlwaysInRange(t *testing.T) {
	d := NewHybridDetector(Options{})
	inputs := []string{
		"other: test question familiar explain technical your opinion how would you what do you think can you explain experience with",
		"other: hello",
		"self: rate price budget cost",
		"",
	}
	for _, in := range inputs {
		got := d.DetectText(context.Background(), in)
		assert.GreaterOrEqual(t, got.Confidence, 0.0)
		assert.LessOrEqual(t, got.Confidence, 1.0)
	}
}
