package detect

import (
	"testing"

	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/phase"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/transcript"
)

func TestKeywordScorer_Scenarios(t *testing.T) {
	scorer := NewKeywordScorer(nil, 0)

	tests := []struct {
		name     string
		line     string
		wantID   phase.ID
		wantConf float64
		wantM    phase.Method
	}{
		{"opening", "other: Hello! Are you available?", phase.InitialResponse, 0.5, phase.MethodKeyword},
		{"knowledge", "other: Can you explain what RTP means", phase.KnowledgeCheck, 0.24, phase.MethodKeyword},
		{"language", "other: Which language do you prefer - English or Dutch?", phase.LanguageConfirm, 0.5, phase.MethodKeyword},
		{"rate", "other: Our budget is $0.06 per word. Does that work?", phase.RateNegotiation, 0.2222, phase.MethodKeyword},
		{"structure", "other: Each article needs H1, H2s, and FAQ section with SEO.", phase.StructureClarification, 0.3333, phase.MethodKeyword},
		{"contract", "other: I'm sending the contract now. Please accept to start.", phase.ContractAcceptance, 0.3333, phase.MethodKeyword},
		{"below-floor", "other: ok thanks", phase.InitialResponse, 0.5, phase.MethodDefault},
		{"empty", "   ", phase.InitialResponse, 0.5, phase.MethodDefault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scorer.Score(tt.line)
			if got.Phase != tt.wantID || got.Confidence != tt.wantConf || got.Method != tt.wantM {
				t.Errorf("got %+v, want {%s %v %s}", got, tt.wantID, tt.wantConf, tt.wantM)
			}
		})
	}
}

func TestKeywordScorer_Deterministic(t *testing.T) {
	scorer := NewKeywordScorer(nil, 0)
	text := transcript.FromLines(
		"other: Hello, we saw your application.",
		"self: Thanks! What is the project about?",
		"other: Our budget is limited, what is your rate?",
	).Render()
	first := scorer.Score(text)
	for i := 0; i < 20; i++ {
		if got := scorer.Score(text); got != first {
			t.Fatalf("run %d: got %+v, want %+v", i, got, first)
		}
	}
}

func TestKeywordScorer_TiesGoToCatalogOrder(t *testing.T) {
	table := []PhaseTriggers{
		{Phase: phase.ContractAcceptance, Triggers: []string{"alpha"}},
		{Phase: phase.AskDetails, Triggers: []string{"alpha"}},
	}
	got := NewKeywordScorer(table, 0).Score("alpha")
	if got.Phase != phase.AskDetails {
		t.Errorf("tie: got %s, want %s", got.Phase, phase.AskDetails)
	}
}

func TestKeywordScorer_ConfidenceClamped(t *testing.T) {
	table := []PhaseTriggers{{Phase: phase.KnowledgeCheck, Triggers: []string{"rtp"}, Weight: 1.2}}
	got := NewKeywordScorer(table, 0).Score("what is rtp")
	if got.Confidence != 1 {
		t.Errorf("confidence: got %v, want 1", got.Confidence)
	}
}

func TestKeywordScorer_DuplicateTriggersCountOnce(t *testing.T) {
	table := []PhaseTriggers{{Phase: phase.RateNegotiation, Triggers: []string{"rate", "RATE", "price", "cost"}}}
	got := NewKeywordScorer(table, 0).Score("rate rate rate")
	if got.Confidence != 0.3333 {
		t.Errorf("confidence: got %v, want 0.3333", got.Confidence)
	}
}

func TestKeywordScorer_CustomFloor(t *testing.T) {
	scorer := NewKeywordScorer(nil, 0.6)
	if got := scorer.Score("other: Hello! Are you available?"); got.Method != phase.MethodDefault {
		t.Errorf("floor 0.6 should force default, got %+v", got)
	}
	if scorer.Floor() != 0.6 {
		t.Errorf("Floor: got %v", scorer.Floor())
	}
}
