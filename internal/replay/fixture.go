package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/eval"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/phase"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/transcript"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description   string                `json:"description"`
	Config        FixtureConfig         `json:"config"`
	Conversations []FixtureConversation `json:"conversations"`
}

// FixtureConfig carries detector and pass thresholds. Zero values use defaults.
type FixtureConfig struct {
	ConfidenceFloor     float64 `json:"confidence_floor,omitempty"`
	Window              int     `json:"window,omitempty"`
	MinAccuracy         float64 `json:"min_accuracy,omitempty"`
	MinEscalationRecall float64 `json:"min_escalation_recall,omitempty"`
}

// FixtureConversation is one recorded chat. Expected is the phase after the
// last turn; individual turns may also carry an expectation.
type FixtureConversation struct {
	ID       string        `json:"id"`
	Turns    []FixtureTurn `json:"turns"`
	Expected string        `json:"expected"`
}

// FixtureTurn is one message. Expect, when set, is checked after this turn.
type FixtureTurn struct {
	Role   string `json:"role"`
	Text   string `json:"text"`
	Expect string `json:"expect,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file. Unknown phase labels are rejected.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("fixture %s: %w", path, err)
	}
	return &f, nil
}

// Validate checks every label names a catalog phase.
func (f *Fixture) Validate() error {
	for _, c := range f.Conversations {
		if len(c.Turns) == 0 {
			return fmt.Errorf("conversation %q has no turns", c.ID)
		}
		if c.Expected != "" {
			if _, ok := phase.Parse(c.Expected); !ok {
				return fmt.Errorf("conversation %q: unknown phase %q", c.ID, c.Expected)
			}
		}
		for i, t := range c.Turns {
			if t.Expect == "" {
				continue
			}
			if _, ok := phase.Parse(t.Expect); !ok {
				return fmt.Errorf("conversation %q turn %d: unknown phase %q", c.ID, i, t.Expect)
			}
		}
	}
	return nil
}

// ToTranscript converts the turns to a domain Transcript.
func (fc *FixtureConversation) ToTranscript() transcript.Transcript {
	out := make(transcript.Transcript, 0, len(fc.Turns))
	for _, t := range fc.Turns {
		out = append(out, transcript.Turn{Role: transcript.ParseRole(t.Role), Text: t.Text})
	}
	return out
}

// Samples returns one eval sample per conversation with a final expectation.
func (f *Fixture) Samples() []eval.Sample {
	var out []eval.Sample
	for i := range f.Conversations {
		c := &f.Conversations[i]
		id, ok := phase.Parse(c.Expected)
		if !ok {
			continue
		}
		out = append(out, eval.Sample{ID: c.ID, Transcript: c.ToTranscript(), Expected: id})
	}
	return out
}

// ToEvalConfig merges the fixture thresholds over the defaults.
func (fc *FixtureConfig) ToEvalConfig() eval.EvalConfig {
	cfg := eval.DefaultEvalConfig()
	if fc.MinAccuracy > 0 {
		cfg.MinAccuracy = fc.MinAccuracy
	}
	if fc.MinEscalationRecall > 0 {
		cfg.MinEscalationRecall = fc.MinEscalationRecall
	}
	return cfg
}

// #endregion fixture-loader
