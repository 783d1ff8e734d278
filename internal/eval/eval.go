package eval

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/phase"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/transcript"
)

// DetectFunc classifies a transcript. HybridDetector.Detect satisfies it.
type DetectFunc func(ctx context.Context, t transcript.Transcript) phase.DetectionResult

// #region evaluate
// Evaluate runs detect over every sample in order and scores the run
// against config. Phases appear in catalog order; labels outside the
// catalog are reported after them.
func Evaluate(ctx context.Context, samples []Sample, detect DetectFunc, config EvalConfig) Report {
	r := Report{
		Total:     len(samples),
		Confusion: make(map[phase.ID]map[phase.ID]int),
		ByMethod:  make(map[phase.Method]int),
	}

	support := make(map[phase.ID]int)
	predicted := make(map[phase.ID]int)
	correct := make(map[phase.ID]int)

	for _, s := range samples {
		res := detect(ctx, s.Transcript)
		p := Prediction{
			ID:         s.ID,
			Expected:   s.Expected,
			Got:        res.Phase,
			Confidence: res.Confidence,
			Method:     res.Method,
			Correct:    res.Phase == s.Expected,
		}
		r.Predictions = append(r.Predictions, p)
		r.ByMethod[res.Method]++

		if r.Confusion[s.Expected] == nil {
			r.Confusion[s.Expected] = make(map[phase.ID]int)
		}
		r.Confusion[s.Expected][res.Phase]++
		support[s.Expected]++
		predicted[res.Phase]++
		if p.Correct {
			r.Correct++
			correct[s.Expected]++
		}
	}
	if r.Total > 0 {
		r.Accuracy = round4(float64(r.Correct) / float64(r.Total))
	}

	for _, id := range labels(support, predicted) {
		m := PhaseMetrics{
			Phase:     id,
			Support:   support[id],
			Predicted: predicted[id],
			Correct:   correct[id],
		}
		if m.Predicted > 0 {
			m.Precision = round4(float64(m.Correct) / float64(m.Predicted))
		}
		if m.Support > 0 {
			m.Recall = round4(float64(m.Correct) / float64(m.Support))
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = round4(2 * m.Precision * m.Recall / (m.Precision + m.Recall))
		}
		r.Phases = append(r.Phases, m)
	}

	r.Passed, r.Reason = verdict(r, config)
	return r
}

// #endregion evaluate

// #region helpers
func verdict(r Report, config EvalConfig) (bool, string) {
	if r.Total == 0 {
		return false, "eval failed: no samples"
	}
	var failReasons []string
	if r.Accuracy < config.MinAccuracy {
		failReasons = append(failReasons, fmt.Sprintf("accuracy %.4f below %.4f", r.Accuracy, config.MinAccuracy))
	}
	if m, ok := r.Metrics(phase.KnowledgeCheck); ok && m.Support > 0 && m.Recall < config.MinEscalationRecall {
		failReasons = append(failReasons, fmt.Sprintf("knowledge_check recall %.4f below %.4f", m.Recall, config.MinEscalationRecall))
	}

	switch len(failReasons) {
	case 0:
		return true, "all checks passed"
	case 1:
		return false, "eval failed: " + failReasons[0]
	default:
		return false, fmt.Sprintf("eval failed: %d checks: %s", len(failReasons), failReasons[0])
	}
}

// Metrics returns the breakdown for one phase.
func (r Report) Metrics(id phase.ID) (PhaseMetrics, bool) {
	for _, m := range r.Phases {
		if m.Phase == id {
			return m, true
		}
	}
	return PhaseMetrics{}, false
}

// Misses returns the incorrect predictions.
func (r Report) Misses() []Prediction {
	var out []Prediction
	for _, p := range r.Predictions {
		if !p.Correct {
			out = append(out, p)
		}
	}
	return out
}

func labels(sets ...map[phase.ID]int) []phase.ID {
	seen := make(map[phase.ID]bool)
	var out []phase.ID
	for _, id := range phase.All() {
		for _, set := range sets {
			if set[id] > 0 && !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	// Labels outside the catalog, sorted.
	var extra []phase.ID
	for _, set := range sets {
		for id, n := range set {
			if n > 0 && !seen[id] {
				seen[id] = true
				extra = append(extra, id)
			}
		}
	}
	slices.Sort(extra)
	return append(out, extra...)
}

func round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}

// #endregion helpers
